package archive

import (
	"github.com/ssargent/fbtfile/pkg/hashtable"
)

const defaultIndexCapacity = 256

// AddressIndex maps the address a block had in the producing program to the
// stored block. It lives for one session only.
type AddressIndex struct {
	entries *hashtable.Table[uint64, *Block]
}

// NewAddressIndex creates an index sized for roughly capacity blocks.
func NewAddressIndex(capacity int) *AddressIndex {
	if capacity <= 0 {
		capacity = defaultIndexCapacity
	}
	return &AddressIndex{
		entries: hashtable.New[uint64, *Block](capacity, hashtable.Uint64Hash),
	}
}

// Put stores b under its header address. When another block already owns
// the address, nothing is stored and that block is returned.
func (idx *AddressIndex) Put(b *Block) (*Block, bool) {
	if idx.entries.Insert(b.Header.Address, b) {
		return nil, true
	}
	existing, _ := idx.entries.Get(b.Header.Address)
	return existing, false
}

// Get retrieves the block stored under address
func (idx *AddressIndex) Get(address uint64) (*Block, bool) {
	return idx.entries.Get(address)
}

// Delete removes an address from the index
func (idx *AddressIndex) Delete(address uint64) bool {
	return idx.entries.Remove(address)
}

// Size returns the number of addresses in the index
func (idx *AddressIndex) Size() int {
	return idx.entries.Len()
}

// Clear removes all entries from the index
func (idx *AddressIndex) Clear() {
	idx.entries.Clear()
}

// Addresses returns all indexed addresses in insertion order, as long as
// nothing has been deleted.
func (idx *AddressIndex) Addresses() []uint64 {
	addrs := make([]uint64, 0, idx.entries.Len())
	idx.entries.Range(func(addr uint64, _ *Block) bool {
		addrs = append(addrs, addr)
		return true
	})
	return addrs
}
