package archive

import (
	"github.com/ssargent/fbtfile/pkg/chunk"
	"github.com/ssargent/fbtfile/pkg/link"
	"github.com/ssargent/fbtfile/pkg/metrics"
	"github.com/ssargent/fbtfile/pkg/schema"
)

// relink converts every stored block to the host layout. Pointer arrays
// named by multi-level pointer fields go first so that no block is
// converted as a record when it is referenced as an array of addresses.
func (s *Session) relink() {
	for _, b := range s.blocks {
		sl := s.structLink(b)
		if sl == nil {
			continue
		}
		for _, fl := range sl.Fields {
			if !fl.Linked() || fl.Field.PtrCount() < 2 || fl.Field.Flags.Has(schema.FlagSkip) {
				continue
			}
			s.eachAddress(b, sl, fl, func(address uint64) {
				if target := s.resolve(address); target != nil {
					s.convertPointerArray(target)
				}
			})
		}
	}

	for _, b := range s.blocks {
		if !b.converted {
			s.convertBlock(b)
		}
	}

	for _, b := range s.blocks {
		b.source = nil
	}
}

// structLink returns the link for the record type named in b's header, or
// nil when the host has no such record.
func (s *Session) structLink(b *Block) *link.StructLink {
	theirs, ok := s.file.Struct(int(b.Header.StructIndex))
	if !ok {
		return nil
	}
	sl, ok := s.graph.StructFor(theirs)
	if !ok {
		return nil
	}
	return sl
}

// elementCount returns how many whole source elements b holds, capped by
// its header count. Zero sized records hold none.
func (s *Session) elementCount(b *Block, size int) int {
	count := int(b.Header.Count)
	if size <= 0 {
		if count > 0 {
			s.logger.Warn("chunk counts elements of a zero sized record",
				"chunk", b.Header.String(), "count", count)
		}
		return 0
	}
	if avail := len(b.source) / size; avail < count {
		s.logger.Warn("chunk shorter than its element count",
			"chunk", b.Header.String(), "elements", avail)
		count = avail
	}
	return count
}

// eachAddress calls fn with every producer address stored in the peer of
// fl, for every element of b.
func (s *Session) eachAddress(b *Block, sl *link.StructLink, fl *link.FieldLink, fn func(uint64)) {
	peer := fl.Peer
	ptr := s.codec.File.PointerSize
	size := sl.Theirs.Size
	count := s.elementCount(b, size)
	for e := 0; e < count; e++ {
		base := e*size + peer.Offset
		if base+peer.Len > len(b.source) {
			return
		}
		for k := 0; k < peer.Elements; k++ {
			fn(s.codec.Host.Narrow(chunk.ReadAddress(b.source[base+k*ptr:], s.codec.File)))
		}
	}
}

// convertPointerArray rewrites b as an array of host width handles. It is
// idempotent.
func (s *Session) convertPointerArray(b *Block) {
	if b.converted {
		if !b.pointerArray {
			s.logger.Warn("block referenced as pointer array after record conversion",
				"chunk", b.Header.String())
		}
		return
	}

	filePtr := s.codec.File.PointerSize
	hostPtr := s.codec.Host.PointerSize
	n := len(b.source) / filePtr

	b.data = make([]byte, n*hostPtr)
	for k := 0; k < n; k++ {
		address := s.codec.Host.Narrow(chunk.ReadAddress(b.source[k*filePtr:], s.codec.File))
		chunk.PutAddress(b.data[k*hostPtr:], s.codec.Host, uint64(s.handleOf(address)))
	}
	b.count = n
	b.converted = true
	b.pointerArray = true
	s.stats.PointerArrays++
	s.cfg.Metrics.BlockConverted(metrics.ModePointerArray)
}

func (s *Session) convertBlock(b *Block) {
	sl := s.structLink(b)
	if sl == nil {
		s.stats.Unlinked++
		s.logger.Debug("no host record for chunk", "chunk", b.Header.String())
		return
	}
	ours := sl.Ours
	b.record = ours

	if ours.Name() == s.cfg.LinkNodeType {
		b.data = append([]byte(nil), b.source...)
		b.count = int(b.Header.Count)
		b.converted = true
		b.verbatim = true
		s.stats.Verbatim++
		s.cfg.Metrics.BlockConverted(metrics.ModeVerbatim)
		return
	}

	srcSize := sl.Theirs.Size
	dstSize := ours.Size
	count := s.elementCount(b, srcSize)
	b.data = make([]byte, count*dstSize)
	b.count = count
	b.converted = true
	s.stats.Converted++

	if sl.Identical && !ours.HasPointers && !s.codec.Swapped() {
		copy(b.data, b.source)
		s.cfg.Metrics.BlockConverted(metrics.ModeCopy)
		return
	}

	for e := 0; e < count; e++ {
		src := b.source[e*srcSize : (e+1)*srcSize]
		dst := b.data[e*dstSize : (e+1)*dstSize]
		for _, fl := range sl.Fields {
			s.convertField(fl, src, dst)
		}
	}
	s.cfg.Metrics.BlockConverted(metrics.ModeFields)
}

// convertField moves one field of one element. Unlinked and skipped fields
// stay zero.
func (s *Session) convertField(fl *link.FieldLink, src, dst []byte) {
	ours, theirs := fl.Field, fl.Peer
	if theirs == nil || ours.Flags.Has(schema.FlagSkip) {
		return
	}
	if !within(theirs, len(src)) || !within(ours, len(dst)) {
		return
	}
	in := src[theirs.Offset : theirs.Offset+theirs.Len]
	out := dst[ours.Offset : ours.Offset+ours.Len]

	switch {
	case ours.PtrCount() == 1:
		s.relinkPointers(in, out, theirs, ours, false)
	case ours.PtrCount() > 1:
		s.relinkPointers(in, out, theirs, ours, true)
	default:
		s.convertValue(fl, in, out)
	}
}

// within reports whether f lies inside an element of size bytes.
func within(f *schema.Field, size int) bool {
	return f.Offset >= 0 && f.Len >= 0 && f.Offset <= size && f.Len <= size-f.Offset
}

// relinkPointers replaces each stored address with the handle of the block
// it names. Multi-level pointers name pointer arrays.
func (s *Session) relinkPointers(in, out []byte, theirs, ours *schema.Field, multi bool) {
	filePtr := s.codec.File.PointerSize
	hostPtr := s.codec.Host.PointerSize
	n := min(theirs.Elements, ours.Elements)
	for k := 0; k < n; k++ {
		address := s.codec.Host.Narrow(chunk.ReadAddress(in[k*filePtr:], s.codec.File))
		if multi {
			if target := s.resolve(address); target != nil {
				s.convertPointerArray(target)
			}
		}
		chunk.PutAddress(out[k*hostPtr:], s.codec.Host, uint64(s.handleOf(address)))
	}
}

func (s *Session) handleOf(address uint64) Handle {
	if address == 0 {
		return 0
	}
	target := s.resolve(address)
	if target == nil {
		s.stats.Unresolved++
		s.cfg.Metrics.UnresolvedPointer()
		return 0
	}
	return target.Handle
}

// convertValue copies or casts a non-pointer field element by element.
func (s *Session) convertValue(fl *link.FieldLink, in, out []byte) {
	ours, theirs := fl.Field, fl.Peer
	swapped := s.codec.Swapped()

	if ours.Type.Hash == theirs.Type.Hash && !fl.Flags.Has(schema.FlagNeedsCast) &&
		(!swapped || theirs.ElemSize <= 1) {
		copy(out, in)
		return
	}

	sk, dk := theirs.Kind(), ours.Kind()
	if !sk.Numeric() || !dk.Numeric() {
		// Opaque data of the same type; byte order cannot be fixed without
		// knowing its structure.
		copy(out, in)
		return
	}

	order := s.codec.Host.Order.ByteOrder()
	var scratch [8]byte
	n := min(theirs.Elements, ours.Elements)
	for k := 0; k < n; k++ {
		elem := in[k*theirs.ElemSize : (k+1)*theirs.ElemSize]
		if swapped && len(elem) <= len(scratch) {
			tmp := scratch[:len(elem)]
			copy(tmp, elem)
			chunk.SwapInPlace(tmp)
			elem = tmp
		}
		if !castElement(out[k*ours.ElemSize:(k+1)*ours.ElemSize], dk, elem, sk, order) {
			s.logger.Debug("cannot cast field element",
				"field", ours.Path, "from", theirs.Type.Name, "to", ours.Type.Name)
			return
		}
	}
}
