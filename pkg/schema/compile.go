package schema

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// MaxDepth bounds struct embedding during compilation.
	MaxDepth = 64
	// MaxFields bounds the number of leaves one record flattens into.
	MaxFields = 1 << 20
	// MaxEmbeddings bounds the struct elements expanded while flattening
	// one record, including those that contribute no leaves.
	MaxEmbeddings = 1 << 20
)

// ErrSchemaCycle is returned when a struct embeds itself by value, directly
// or through other structs, or embedding exceeds MaxDepth.
var ErrSchemaCycle = errors.New("schema struct embedding cycle")

// Flag annotates a compiled field or struct.
type Flag uint8

const (
	FlagMissing Flag = 1 << iota
	FlagMisaligned
	FlagSkip
	FlagNeedsCast
)

// Has reports whether every bit of x is set in f.
func (f Flag) Has(x Flag) bool {
	return f&x == x
}

func (f Flag) String() string {
	if f == 0 {
		return "none"
	}
	var parts []string
	for _, named := range []struct {
		flag Flag
		name string
	}{
		{FlagMissing, "missing"},
		{FlagMisaligned, "misaligned"},
		{FlagSkip, "skip"},
		{FlagNeedsCast, "needs-cast"},
	} {
		if f.Has(named.flag) {
			parts = append(parts, named.name)
		}
	}
	return strings.Join(parts, "|")
}

// Key identifies a field across schemas: its type hash and base name hash.
type Key struct {
	Type uint32
	Name uint32
}

// ChainLink records one embedding level a field was reached through.
type ChainLink struct {
	Type  uint32
	Name  uint32
	Index int
}

// Field is one flattened leaf of a record.
type Field struct {
	TypeIndex int
	NameIndex int
	Type      *Type
	Name      *Name
	Key       Key
	Path      string // dotted path from the record root, e.g. "loc[1].x"

	Offset   int
	Len      int
	ElemSize int
	Elements int

	Repeat int // array element index of the innermost embedding
	Depth  int // number of embedding levels above the leaf
	Chain  []ChainLink
	Flags  Flag
}

// PtrCount returns the pointer indirection of the field.
func (f *Field) PtrCount() int {
	return f.Name.PtrCount
}

// IsPointer reports whether the field stores addresses.
func (f *Field) IsPointer() bool {
	return f.Name.IsPointer()
}

// Kind returns the primitive kind of a non-pointer field.
func (f *Field) Kind() Kind {
	return f.Type.Kind
}

// SameChain reports whether f and other were reached through equivalent
// embedding paths.
func (f *Field) SameChain(other *Field) bool {
	if len(f.Chain) != len(other.Chain) {
		return false
	}
	for i := range f.Chain {
		if f.Chain[i] != other.Chain[i] {
			return false
		}
	}
	return true
}

// Struct is the flattened form of one declaration.
type Struct struct {
	Index     int // declaration index
	TypeIndex int
	Type      *Type
	Size      int // declared length
	Fields    []*Field
	Flags     Flag

	// HasPointers is true when any leaf stores an address.
	HasPointers bool
}

// Name returns the record type name.
func (s *Struct) Name() string {
	return s.Type.Name
}

// FieldByPath returns the leaf with the given dotted path.
func (s *Struct) FieldByPath(path string) (*Field, bool) {
	for _, f := range s.Fields {
		if f.Path == path {
			return f, true
		}
	}
	return nil, false
}

// Compiled is a Table flattened for one pointer width. It is read-only
// after Compile returns.
type Compiled struct {
	Table       *Table
	PointerSize int
	Structs     []*Struct

	byHash map[uint32]*Struct
}

// Struct returns the flattened declaration with index i.
func (c *Compiled) Struct(i int) (*Struct, bool) {
	if i < 0 || i >= len(c.Structs) {
		return nil, false
	}
	return c.Structs[i], true
}

// StructByName returns the flattened declaration of the named type.
func (c *Compiled) StructByName(name string) (*Struct, bool) {
	typ, ok := c.Table.Lookup(name)
	if !ok || typ.Struct < 0 {
		return nil, false
	}
	return c.Structs[typ.Struct], true
}

// StructByHash returns the declaration whose type name hashes to h.
func (c *Compiled) StructByHash(h uint32) (*Struct, bool) {
	s, ok := c.byHash[h]
	return s, ok
}

// Misaligned returns the structs whose flattened size differs from TLEN.
func (c *Compiled) Misaligned() []*Struct {
	var out []*Struct
	for _, s := range c.Structs {
		if s.Flags.Has(FlagMisaligned) {
			out = append(out, s)
		}
	}
	return out
}

// Compile flattens every declaration of t for a program with the given
// pointer width in bytes.
func Compile(t *Table, pointerSize int) (*Compiled, error) {
	if pointerSize != 4 && pointerSize != 8 {
		return nil, fmt.Errorf("unsupported pointer size: %d", pointerSize)
	}

	c := &Compiled{
		Table:       t,
		PointerSize: pointerSize,
		Structs:     make([]*Struct, len(t.Decls)),
		byHash:      make(map[uint32]*Struct, len(t.Decls)),
	}

	visiting := make([]bool, len(t.Decls))
	for i, decl := range t.Decls {
		s := &Struct{
			Index:     i,
			TypeIndex: decl.Type,
			Type:      &t.Types[decl.Type],
			Size:      t.Types[decl.Type].Size,
		}

		f := flattener{table: t, pointerSize: pointerSize, root: s, visiting: visiting}
		if err := f.flatten(i, "", 0, nil, 0); err != nil {
			return nil, fmt.Errorf("compile %q: %w", s.Type.Name, err)
		}
		if f.offset != s.Size {
			s.Flags |= FlagMisaligned
		}

		c.Structs[i] = s
		if _, dup := c.byHash[s.Type.Hash]; !dup {
			c.byHash[s.Type.Hash] = s
		}
	}

	return c, nil
}

type flattener struct {
	table       *Table
	pointerSize int
	root        *Struct
	visiting    []bool
	offset      int
	embeddings  int
}

func (f *flattener) flatten(decl int, prefix string, depth int, chain []ChainLink, repeat int) error {
	if depth > MaxDepth {
		return fmt.Errorf("%w: deeper than %d levels", ErrSchemaCycle, MaxDepth)
	}
	if f.visiting[decl] {
		return fmt.Errorf("%w: %q embeds itself", ErrSchemaCycle, f.table.DeclName(decl))
	}
	f.visiting[decl] = true
	defer func() { f.visiting[decl] = false }()

	for _, df := range f.table.Decls[decl].Fields {
		typ := &f.table.Types[df.Type]
		name := &f.table.Names[df.Name]
		path := prefix + name.Base

		if typ.IsStruct() && !name.IsPointer() {
			for e := 0; e < name.Elements; e++ {
				if f.embeddings++; f.embeddings > MaxEmbeddings {
					return fmt.Errorf("%w: more than %d embedded elements", ErrMalformedSchema, MaxEmbeddings)
				}
				elemPath := path
				if len(name.Dims) > 0 {
					elemPath += "[" + strconv.Itoa(e) + "]"
				}
				link := ChainLink{Type: typ.Hash, Name: name.BaseHash, Index: e}
				next := make([]ChainLink, len(chain), len(chain)+1)
				copy(next, chain)
				if err := f.flatten(typ.Struct, elemPath+".", depth+1, append(next, link), e); err != nil {
					return err
				}
			}
			continue
		}

		elemSize := typ.Size
		if name.IsPointer() {
			elemSize = f.pointerSize
		}

		leaf := &Field{
			TypeIndex: df.Type,
			NameIndex: df.Name,
			Type:      typ,
			Name:      name,
			Key:       Key{Type: typ.Hash, Name: name.BaseHash},
			Path:      path,
			Offset:    f.offset,
			Len:       elemSize * name.Elements,
			ElemSize:  elemSize,
			Elements:  name.Elements,
			Repeat:    repeat,
			Depth:     depth,
			Chain:     chain,
		}
		if name.FuncPtr || (typ.Kind == KindVoid && !name.IsPointer()) {
			leaf.Flags |= FlagSkip
		}
		if name.IsPointer() {
			f.root.HasPointers = true
		}

		if len(f.root.Fields) >= MaxFields {
			return fmt.Errorf("%w: more than %d fields", ErrMalformedSchema, MaxFields)
		}
		f.root.Fields = append(f.root.Fields, leaf)
		f.offset += leaf.Len
	}
	return nil
}
