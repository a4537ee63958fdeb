// Package archive opens chunked, self-describing binary streams and
// converts their records to the layout of the reading program.
//
// # Stream Format
//
// A stream starts with a 12 byte header naming the producer, its pointer
// width and byte order, followed by chunks:
//
//	+---------+----------+-------------------+--------------+----------+
//	| code(4) | length(4)| address(4 or 8)   | struct idx(4)| count(4) |
//	+---------+----------+-------------------+--------------+----------+
//	| payload (length bytes)                                           |
//	+------------------------------------------------------------------+
//
// Data chunks come first. The DNA1 chunk carries the producer's schema and
// is followed only by the ENDB end marker.
//
// # Opening
//
// Open reads the whole stream before anything is usable. Every data chunk
// is stored under the address it had in the producing program. When the
// schema arrives it is compiled, linked against the host schema and every
// stored block is converted:
//
//   - fields present in both schemas are copied, byte swapped or cast
//   - fields the producer did not have read as zero
//   - pointers are replaced by the Handle of the block they referenced
//
// Handles are 1-based indexes into Session.Blocks; 0 is the null handle.
// Deref and Follow turn them back into blocks.
//
// # Writing
//
// Writer produces a stream in the host layout. WriteSession re-emits a
// converted session using handles as addresses, so a converted file can be
// opened again with the same host schema.
package archive
