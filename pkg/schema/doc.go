// Package schema parses and compiles the SDNA schema embedded in every
// container stream.
//
// # Blob Format
//
// The schema blob is the payload of the DNA1 chunk. It is a sequence of
// labelled sections, each starting on a 4 byte boundary, with integers in the
// producer's byte order:
//
//	"SDNA"
//	"NAME" [count u32] count NUL-terminated field names
//	"TYPE" [count u32] count NUL-terminated type names
//	"TLEN" count u16 type sizes (one per type, no own count)
//	"STRC" [count u32] count declarations:
//	         [type u16][fieldCount u16] fieldCount x [type u16][name u16]
//
// Padding between sections must be zero so that Encode reproduces every
// accepted blob byte for byte.
//
// # Names
//
// Field names carry C declarator syntax: "*next", "(*func)()", "mat[4][4]".
// ParseName strips it into a Name with a pointer count, a function pointer
// flag, array extents and a base name. Fields with the same base name match
// across schemas even when their array sizes differ.
//
// # Compilation
//
// Compile flattens every declaration into a list of leaf fields with byte
// offsets. A field whose type is itself a declared struct, and that is not a
// pointer, is expanded in place once per array element; its fields are
// appended one level deeper and record the path they were reached through in
// their Chain. The result only holds primitive, pointer and opaque leaves.
//
// # Host Schemas
//
// The reading program describes the record types it cares about with a
// Builder, or ships a blob produced by its own build. Host.Compile caches the
// compiled form process-wide, keyed by the BLAKE3 fingerprint of the blob and
// layout.
package schema
