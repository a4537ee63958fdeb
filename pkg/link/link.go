// Package link matches a file schema against the host schema field by
// field.
//
// The result is a Graph: for every record type present in both schemas a
// StructLink pairs the two flattened declarations, and every leaf on either
// side has a FieldLink naming its peer (or none) and the flags that tell the
// relinker how to move bytes between them. Compiled schemas are never
// modified, so one host schema can be linked against any number of files.
package link

import (
	"errors"
	"fmt"

	"github.com/ssargent/fbtfile/pkg/schema"
)

// ErrNothingLinked is returned when no record type exists in both schemas.
var ErrNothingLinked = errors.New("no record type is shared by both schemas")

// FieldLink is the link state of one leaf field.
type FieldLink struct {
	Field *schema.Field
	Peer  *schema.Field // nil when the field has no counterpart
	Flags schema.Flag
}

// Linked reports whether the field has a counterpart.
func (l *FieldLink) Linked() bool {
	return l.Peer != nil
}

// StructLink pairs one host record with the file record of the same name.
type StructLink struct {
	Ours   *schema.Struct
	Theirs *schema.Struct

	// Fields holds one entry per host leaf, in host field order.
	Fields []*FieldLink

	// Identical is true when both layouts agree on every byte.
	Identical bool
}

// Stats summarises a Graph.
type Stats struct {
	Structs   int
	Linked    int
	Missing   int
	NeedsCast int
	Dropped   int // file fields with no host counterpart
}

// Graph is the bidirectional link between a file and a host schema.
type Graph struct {
	Theirs *schema.Compiled
	Ours   *schema.Compiled

	Structs []*StructLink

	byTheirs map[*schema.Struct]*StructLink
	byOurs   map[*schema.Struct]*StructLink
	fields   map[*schema.Field]*FieldLink
}

// Compile links theirs (the file schema) to ours (the host schema).
func Compile(theirs, ours *schema.Compiled) (*Graph, error) {
	g := &Graph{
		Theirs:   theirs,
		Ours:     ours,
		byTheirs: make(map[*schema.Struct]*StructLink),
		byOurs:   make(map[*schema.Struct]*StructLink),
		fields:   make(map[*schema.Field]*FieldLink),
	}

	for _, o := range ours.Structs {
		t, ok := theirs.StructByName(o.Name())
		if !ok {
			continue
		}
		if _, taken := g.byTheirs[t]; taken {
			continue
		}
		g.linkStruct(o, t)
	}

	if len(g.Structs) == 0 {
		return nil, fmt.Errorf("%w: %d file records, %d host records", ErrNothingLinked, len(theirs.Structs), len(ours.Structs))
	}
	return g, nil
}

func (g *Graph) linkStruct(o, t *schema.Struct) {
	sl := &StructLink{Ours: o, Theirs: t, Fields: make([]*FieldLink, len(o.Fields))}

	identical := o.Size == t.Size && len(o.Fields) == len(t.Fields)
	for i, of := range o.Fields {
		ol := &FieldLink{Field: of, Flags: of.Flags}
		sl.Fields[i] = ol
		g.fields[of] = ol

		peer, cast := match(of, t)
		if peer == nil {
			ol.Flags |= schema.FlagMissing
			identical = false
			continue
		}

		tl := &FieldLink{Field: peer, Peer: of, Flags: peer.Flags}
		ol.Peer = peer
		if cast {
			ol.Flags |= schema.FlagNeedsCast
			tl.Flags |= schema.FlagNeedsCast
		}
		g.fields[peer] = tl

		if cast || peer.Offset != of.Offset || peer.Len != of.Len || peer.Key.Type != of.Key.Type {
			identical = false
		}
	}

	for _, tf := range t.Fields {
		if _, ok := g.fields[tf]; !ok {
			g.fields[tf] = &FieldLink{Field: tf, Flags: tf.Flags | schema.FlagMissing}
		}
	}

	sl.Identical = identical
	g.Structs = append(g.Structs, sl)
	g.byOurs[o] = sl
	g.byTheirs[t] = sl
}

// match finds the file field corresponding to host field of. cast is true
// when the two are different numeric kinds.
func match(of *schema.Field, t *schema.Struct) (peer *schema.Field, cast bool) {
	for _, tf := range t.Fields {
		if tf.Repeat != of.Repeat || tf.Depth != of.Depth || tf.Key.Name != of.Key.Name || !tf.SameChain(of) {
			continue
		}

		if tf.PtrCount() != of.PtrCount() || tf.Name.FuncPtr != of.Name.FuncPtr {
			return nil, false
		}
		if tf.Key.Type == of.Key.Type {
			return tf, false
		}
		if of.IsPointer() {
			return nil, false
		}

		theirKind, ourKind := tf.Kind(), of.Kind()
		switch {
		case theirKind.Integer() && ourKind.Integer():
			return tf, false
		case theirKind.Numeric() && ourKind.Numeric():
			return tf, true
		default:
			return nil, false
		}
	}
	return nil, false
}

// StructFor returns the link of a file record.
func (g *Graph) StructFor(theirs *schema.Struct) (*StructLink, bool) {
	sl, ok := g.byTheirs[theirs]
	return sl, ok
}

// StructForHost returns the link of a host record.
func (g *Graph) StructForHost(ours *schema.Struct) (*StructLink, bool) {
	sl, ok := g.byOurs[ours]
	return sl, ok
}

// Field returns the link state of a leaf from either schema.
func (g *Graph) Field(f *schema.Field) (*FieldLink, bool) {
	l, ok := g.fields[f]
	return l, ok
}

// Peer returns the counterpart of f, or nil.
func (g *Graph) Peer(f *schema.Field) *schema.Field {
	if l, ok := g.fields[f]; ok {
		return l.Peer
	}
	return nil
}

// Flags returns the flags of f in this graph.
func (g *Graph) Flags(f *schema.Field) schema.Flag {
	if l, ok := g.fields[f]; ok {
		return l.Flags
	}
	return f.Flags
}

// Stats counts link outcomes over every linked record.
func (g *Graph) Stats() Stats {
	s := Stats{Structs: len(g.Structs)}
	for _, sl := range g.Structs {
		for _, fl := range sl.Fields {
			switch {
			case !fl.Linked():
				s.Missing++
			case fl.Flags.Has(schema.FlagNeedsCast):
				s.Linked++
				s.NeedsCast++
			default:
				s.Linked++
			}
		}
		for _, tf := range sl.Theirs.Fields {
			if g.Peer(tf) == nil {
				s.Dropped++
			}
		}
	}
	return s
}
