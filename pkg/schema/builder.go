package schema

import (
	"fmt"
	"strings"

	"github.com/ssargent/fbtfile/pkg/chunk"
	"github.com/ssargent/fbtfile/pkg/hashtable"
)

// defaultPrimitives lists the primitive types every Builder starts with, in
// the order they appear in the TYPE section.
var defaultPrimitives = []struct {
	name string
	size int
}{
	{"char", 1},
	{"uchar", 1},
	{"short", 2},
	{"ushort", 2},
	{"int", 4},
	{"long", 8},
	{"ulong", 8},
	{"float", 4},
	{"double", 8},
	{"void", 0},
	{"int8", 1},
	{"uint8", 1},
	{"int16", 2},
	{"uint16", 2},
	{"int32", 4},
	{"uint32", 4},
	{"int64", 8},
	{"uint64", 8},
	{"float32", 4},
	{"float64", 8},
}

// Builder assembles a schema blob from hand-written record declarations.
//
//	blob, err := schema.NewBuilder().
//	    Struct("Pt", "int x", "int y").
//	    Struct("Path", "Pt points[4]", "Path *next").
//	    Encode(chunk.NativeLayout())
type Builder struct {
	types     []builderType
	typeIndex map[string]int
	names     []string
	nameIndex map[string]int
	decls     []builderDecl
	err       error
}

type builderType struct {
	name     string
	size     int
	declared bool
}

type builderDecl struct {
	typ    int
	fields []DeclField
}

// NewBuilder returns a builder preloaded with the primitive types.
func NewBuilder() *Builder {
	b := &Builder{
		typeIndex: make(map[string]int),
		nameIndex: make(map[string]int),
	}
	for _, p := range defaultPrimitives {
		b.Primitive(p.name, p.size)
	}
	return b
}

// Primitive adds a primitive type or overrides the size of an existing one.
func (b *Builder) Primitive(name string, size int) *Builder {
	if i, ok := b.typeIndex[name]; ok {
		b.types[i].size = size
		return b
	}
	b.typeIndex[name] = len(b.types)
	b.types = append(b.types, builderType{name: name, size: size})
	return b
}

// Struct declares a record. Each field is "type declarator", for example
// "float co[3]", "Link *next" or "void (*free)()".
func (b *Builder) Struct(name string, fields ...string) *Builder {
	if b.err != nil {
		return b
	}

	typ := b.typeFor(name)
	if b.types[typ].declared {
		b.err = fmt.Errorf("struct %q declared twice", name)
		return b
	}
	b.types[typ].declared = true

	decl := builderDecl{typ: typ}
	for _, field := range fields {
		typeName, declarator, ok := strings.Cut(strings.TrimSpace(field), " ")
		declarator = strings.TrimSpace(declarator)
		if !ok || declarator == "" {
			b.err = fmt.Errorf("struct %q: field %q must be \"type name\"", name, field)
			return b
		}
		if _, err := ParseName(declarator); err != nil {
			b.err = fmt.Errorf("struct %q: %w", name, err)
			return b
		}
		decl.fields = append(decl.fields, DeclField{Type: b.typeFor(typeName), Name: b.nameFor(declarator)})
	}
	b.decls = append(b.decls, decl)
	return b
}

func (b *Builder) typeFor(name string) int {
	if i, ok := b.typeIndex[name]; ok {
		return i
	}
	b.typeIndex[name] = len(b.types)
	b.types = append(b.types, builderType{name: name})
	return len(b.types) - 1
}

func (b *Builder) nameFor(declarator string) int {
	if i, ok := b.nameIndex[declarator]; ok {
		return i
	}
	b.nameIndex[declarator] = len(b.names)
	b.names = append(b.names, declarator)
	return len(b.names) - 1
}

// Table builds the schema table for a program with the given layout.
// Struct sizes are the packed sum of their fields.
func (b *Builder) Table(layout chunk.Layout) (*Table, error) {
	if b.err != nil {
		return nil, b.err
	}
	if err := layout.Validate(); err != nil {
		return nil, err
	}

	t := &Table{
		Names: make([]Name, len(b.names)),
		Types: make([]Type, len(b.types)),
		Decls: make([]Decl, len(b.decls)),
		types: make(map[string]int, len(b.types)),
	}
	for i, text := range b.names {
		t.Names[i], _ = ParseName(text)
	}
	for i, bt := range b.types {
		t.Types[i] = Type{Name: bt.name, Hash: hashtable.StringHash(bt.name), Size: bt.size, Struct: -1, Kind: KindOf(bt.name)}
		t.types[bt.name] = i
	}
	for i, bd := range b.decls {
		t.Decls[i] = Decl{Type: bd.typ, Fields: bd.fields}
		t.Types[bd.typ].Struct = i
	}

	sizer := &structSizer{table: t, pointerSize: layout.PointerSize, state: make([]int, len(t.Decls))}
	for i := range t.Decls {
		if _, err := sizer.size(i); err != nil {
			return nil, err
		}
	}

	for i, typ := range t.Types {
		if typ.Size > 0xFFFF {
			return nil, fmt.Errorf("type %q is %d bytes, larger than TLEN can record", typ.Name, typ.Size)
		}
		if !typ.IsStruct() && typ.Kind == KindNone && b.usedByValue(i) {
			return nil, fmt.Errorf("type %q is used by value but never declared", typ.Name)
		}
	}
	return t, nil
}

// Encode builds the table and serializes it in the layout's byte order.
func (b *Builder) Encode(layout chunk.Layout) ([]byte, error) {
	t, err := b.Table(layout)
	if err != nil {
		return nil, err
	}
	return t.Encode(layout.Order), nil
}

func (b *Builder) usedByValue(typ int) bool {
	if b.types[typ].size > 0 {
		return false
	}
	for _, d := range b.decls {
		for _, f := range d.fields {
			if f.Type == typ {
				n, _ := ParseName(b.names[f.Name])
				if !n.IsPointer() {
					return true
				}
			}
		}
	}
	return false
}

const (
	sizeUnknown = iota
	sizeInProgress
	sizeDone
)

type structSizer struct {
	table       *Table
	pointerSize int
	state       []int
}

func (s *structSizer) size(decl int) (int, error) {
	typ := &s.table.Types[s.table.Decls[decl].Type]
	switch s.state[decl] {
	case sizeDone:
		return typ.Size, nil
	case sizeInProgress:
		return 0, fmt.Errorf("%w: %q", ErrSchemaCycle, typ.Name)
	}
	s.state[decl] = sizeInProgress

	total := 0
	for _, f := range s.table.Decls[decl].Fields {
		name := &s.table.Names[f.Name]
		fieldType := &s.table.Types[f.Type]

		elem := fieldType.Size
		switch {
		case name.IsPointer():
			elem = s.pointerSize
		case fieldType.IsStruct():
			n, err := s.size(fieldType.Struct)
			if err != nil {
				return 0, err
			}
			elem = n
		}
		total += elem * name.Elements
	}

	typ.Size = total
	s.state[decl] = sizeDone
	return total, nil
}

// Builder returns a builder holding the types and declarations of t, so the
// same records can be encoded for another layout. Primitive sizes are kept;
// struct sizes are recomputed by Table.
func (t *Table) Builder() *Builder {
	b := &Builder{
		typeIndex: make(map[string]int, len(t.Types)),
		nameIndex: make(map[string]int, len(t.Names)),
	}
	for _, typ := range t.Types {
		size := typ.Size
		if typ.IsStruct() {
			size = 0
		}
		b.Primitive(typ.Name, size)
	}
	for _, n := range t.Names {
		b.nameFor(n.Text)
	}
	for _, d := range t.Decls {
		b.types[d.Type].declared = true
		b.decls = append(b.decls, builderDecl{
			typ:    d.Type,
			fields: append([]DeclField(nil), d.Fields...),
		})
	}
	return b
}
