package archive

import (
	"github.com/ssargent/fbtfile/pkg/chunk"
	"github.com/ssargent/fbtfile/pkg/schema"
)

// Block is one stored chunk. Until the session finishes relinking it holds
// the producer's bytes; afterwards it holds the host layout conversion.
type Block struct {
	Header chunk.Header
	Handle Handle

	source []byte
	data   []byte
	count  int
	record *schema.Struct

	converted    bool
	pointerArray bool
	verbatim     bool
}

// Code returns the block's record type code.
func (b *Block) Code() chunk.Code {
	return b.Header.Code
}

// Address returns the address the block had in the producing program.
func (b *Block) Address() uint64 {
	return b.Header.Address
}

// Data returns the converted bytes, or nil when the block had no host
// record to convert to.
func (b *Block) Data() []byte {
	return b.data
}

// Converted reports whether the block was converted to the host layout.
func (b *Block) Converted() bool {
	return b.converted
}

// PointerArray reports whether the block was converted as an array of
// handles.
func (b *Block) PointerArray() bool {
	return b.pointerArray
}

// Verbatim reports whether the block was copied without conversion.
func (b *Block) Verbatim() bool {
	return b.verbatim
}

// Record returns the host record the block was converted to.
func (b *Block) Record() *schema.Struct {
	return b.record
}

// Len returns the number of converted elements.
func (b *Block) Len() int {
	return b.count
}

// Element returns the bytes of element i of a converted record block.
func (b *Block) Element(i int) []byte {
	if b.record == nil || i < 0 || i >= b.count {
		return nil
	}
	size := b.record.Size
	return b.data[i*size : (i+1)*size]
}
