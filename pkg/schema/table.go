package schema

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ssargent/fbtfile/pkg/chunk"
	"github.com/ssargent/fbtfile/pkg/hashtable"
)

// ErrMalformedSchema is returned for schema blobs that cannot be parsed.
var ErrMalformedSchema = errors.New("malformed schema")

// Section labels.
const (
	magicSDNA = "SDNA"
	magicNAME = "NAME"
	magicTYPE = "TYPE"
	magicTLEN = "TLEN"
	magicSTRC = "STRC"
)

// Type describes one entry of the TYPE section.
type Type struct {
	Name   string
	Hash   uint32
	Size   int  // declared byte length from TLEN
	Struct int  // declaration index, -1 when the type has no declaration
	Kind   Kind // primitive kind, KindNone for structs and opaque types
}

// IsStruct reports whether the type has a declaration.
func (t *Type) IsStruct() bool {
	return t.Struct >= 0
}

// DeclField is one (type, name) pair of a declaration.
type DeclField struct {
	Type int
	Name int
}

// Decl is one entry of the STRC section.
type Decl struct {
	Type   int
	Fields []DeclField
}

// Table is a parsed schema blob.
type Table struct {
	Names []Name
	Types []Type
	Decls []Decl

	// trailing counts zero bytes after the STRC section.
	trailing int
	types    map[string]int
}

// Lookup returns the type with the given name.
func (t *Table) Lookup(name string) (*Type, bool) {
	i, ok := t.types[name]
	if !ok {
		return nil, false
	}
	return &t.Types[i], true
}

// TypeIndex returns the index of the named type.
func (t *Table) TypeIndex(name string) (int, bool) {
	i, ok := t.types[name]
	return i, ok
}

// DeclName returns the type name of declaration i.
func (t *Table) DeclName(i int) string {
	return t.Types[t.Decls[i].Type].Name
}

// Parse decodes a schema blob whose integers are in byte order order.
func Parse(blob []byte, order chunk.Endian) (*Table, error) {
	r := &blobReader{buf: blob, order: order.ByteOrder()}
	t := &Table{}

	if err := r.expect(magicSDNA); err != nil {
		return nil, err
	}

	if err := r.expect(magicNAME); err != nil {
		return nil, err
	}
	nameCount, err := r.count(1)
	if err != nil {
		return nil, err
	}
	t.Names = make([]Name, nameCount)
	for i := range t.Names {
		text, err := r.cstring()
		if err != nil {
			return nil, err
		}
		if t.Names[i], err = ParseName(text); err != nil {
			return nil, err
		}
	}
	if err := r.align(); err != nil {
		return nil, err
	}

	if err := r.expect(magicTYPE); err != nil {
		return nil, err
	}
	typeCount, err := r.count(1)
	if err != nil {
		return nil, err
	}
	t.Types = make([]Type, typeCount)
	t.types = make(map[string]int, typeCount)
	for i := range t.Types {
		name, err := r.cstring()
		if err != nil {
			return nil, err
		}
		t.Types[i] = Type{Name: name, Hash: hashtable.StringHash(name), Struct: -1, Kind: KindOf(name)}
		if _, dup := t.types[name]; !dup {
			t.types[name] = i
		}
	}
	if err := r.align(); err != nil {
		return nil, err
	}

	if err := r.expect(magicTLEN); err != nil {
		return nil, err
	}
	for i := range t.Types {
		size, err := r.u16()
		if err != nil {
			return nil, err
		}
		t.Types[i].Size = int(size)
	}
	if err := r.align(); err != nil {
		return nil, err
	}

	if err := r.expect(magicSTRC); err != nil {
		return nil, err
	}
	declCount, err := r.count(4)
	if err != nil {
		return nil, err
	}
	t.Decls = make([]Decl, declCount)
	for i := range t.Decls {
		if err := t.parseDecl(r, i); err != nil {
			return nil, err
		}
	}

	for _, b := range r.buf[r.pos:] {
		if b != 0 {
			return nil, fmt.Errorf("%w: %d unexpected bytes after STRC section", ErrMalformedSchema, len(r.buf)-r.pos)
		}
	}
	t.trailing = len(r.buf) - r.pos

	return t, nil
}

func (t *Table) parseDecl(r *blobReader, i int) error {
	typeIndex, err := r.u16()
	if err != nil {
		return err
	}
	fieldCount, err := r.u16()
	if err != nil {
		return err
	}
	if int(typeIndex) >= len(t.Types) {
		return fmt.Errorf("%w: declaration %d has type index %d of %d", ErrMalformedSchema, i, typeIndex, len(t.Types))
	}
	if t.Types[typeIndex].Struct >= 0 {
		return fmt.Errorf("%w: type %q declared twice", ErrMalformedSchema, t.Types[typeIndex].Name)
	}
	if r.remaining() < int(fieldCount)*4 {
		return fmt.Errorf("%w: declaration %d truncated", ErrMalformedSchema, i)
	}

	decl := Decl{Type: int(typeIndex), Fields: make([]DeclField, fieldCount)}
	for j := range decl.Fields {
		fieldType, _ := r.u16()
		fieldName, _ := r.u16()
		if int(fieldType) >= len(t.Types) || int(fieldName) >= len(t.Names) {
			return fmt.Errorf("%w: declaration %q field %d out of range", ErrMalformedSchema, t.Types[typeIndex].Name, j)
		}
		decl.Fields[j] = DeclField{Type: int(fieldType), Name: int(fieldName)}
	}

	t.Decls[i] = decl
	t.Types[typeIndex].Struct = i
	return nil
}

// Encode serializes the table in byte order order.
func (t *Table) Encode(order chunk.Endian) []byte {
	w := &blobWriter{order: order.ByteOrder()}

	w.magic(magicSDNA)

	w.magic(magicNAME)
	w.u32(uint32(len(t.Names)))
	for _, n := range t.Names {
		w.cstring(n.Text)
	}
	w.align()

	w.magic(magicTYPE)
	w.u32(uint32(len(t.Types)))
	for _, typ := range t.Types {
		w.cstring(typ.Name)
	}
	w.align()

	w.magic(magicTLEN)
	for _, typ := range t.Types {
		w.u16(uint16(typ.Size))
	}
	w.align()

	w.magic(magicSTRC)
	w.u32(uint32(len(t.Decls)))
	for _, decl := range t.Decls {
		w.u16(uint16(decl.Type))
		w.u16(uint16(len(decl.Fields)))
		for _, f := range decl.Fields {
			w.u16(uint16(f.Type))
			w.u16(uint16(f.Name))
		}
	}
	w.buf.Write(make([]byte, t.trailing))

	return w.buf.Bytes()
}

type blobReader struct {
	buf   []byte
	pos   int
	order binary.ByteOrder
}

func (r *blobReader) remaining() int {
	return len(r.buf) - r.pos
}

func (r *blobReader) expect(magic string) error {
	if r.remaining() < 4 || string(r.buf[r.pos:r.pos+4]) != magic {
		return fmt.Errorf("%w: missing %s section at offset %d", ErrMalformedSchema, magic, r.pos)
	}
	r.pos += 4
	return nil
}

func (r *blobReader) u32() (uint32, error) {
	if r.remaining() < 4 {
		return 0, fmt.Errorf("%w: truncated at offset %d", ErrMalformedSchema, r.pos)
	}
	v := r.order.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *blobReader) u16() (uint16, error) {
	if r.remaining() < 2 {
		return 0, fmt.Errorf("%w: truncated at offset %d", ErrMalformedSchema, r.pos)
	}
	v := r.order.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, nil
}

// count reads a section count and checks that at least minSize bytes per
// entry remain, so corrupt counts cannot force huge allocations.
func (r *blobReader) count(minSize int) (int, error) {
	n, err := r.u32()
	if err != nil {
		return 0, err
	}
	if uint64(n)*uint64(minSize) > uint64(r.remaining()) {
		return 0, fmt.Errorf("%w: count %d exceeds remaining %d bytes", ErrMalformedSchema, n, r.remaining())
	}
	return int(n), nil
}

func (r *blobReader) cstring() (string, error) {
	end := bytes.IndexByte(r.buf[r.pos:], 0)
	if end < 0 {
		return "", fmt.Errorf("%w: unterminated string at offset %d", ErrMalformedSchema, r.pos)
	}
	s := string(r.buf[r.pos : r.pos+end])
	r.pos += end + 1
	return s, nil
}

func (r *blobReader) align() error {
	pad := (4 - r.pos%4) % 4
	if r.remaining() < pad {
		return fmt.Errorf("%w: truncated padding at offset %d", ErrMalformedSchema, r.pos)
	}
	for _, b := range r.buf[r.pos : r.pos+pad] {
		if b != 0 {
			return fmt.Errorf("%w: non-zero padding at offset %d", ErrMalformedSchema, r.pos)
		}
	}
	r.pos += pad
	return nil
}

type blobWriter struct {
	buf   bytes.Buffer
	order binary.ByteOrder
}

func (w *blobWriter) magic(m string) {
	w.buf.WriteString(m)
}

func (w *blobWriter) u32(v uint32) {
	var b [4]byte
	w.order.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

func (w *blobWriter) u16(v uint16) {
	var b [2]byte
	w.order.PutUint16(b[:], v)
	w.buf.Write(b[:])
}

func (w *blobWriter) cstring(s string) {
	w.buf.WriteString(s)
	w.buf.WriteByte(0)
}

func (w *blobWriter) align() {
	for w.buf.Len()%4 != 0 {
		w.buf.WriteByte(0)
	}
}
