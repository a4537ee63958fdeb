// Package hashtable provides the open-addressed dictionary used to resolve
// stored addresses and names while reading a file.
//
// Entries live in dense slices in insertion order. A power-of-two bucket
// index points at the first entry of each bucket and a parallel chain slice
// links entries that share a bucket. Removal moves the last entry into the
// freed slot, so At indexes stay dense but are not stable across Remove.
package hashtable

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

const (
	// DefaultCapacity is used when a table is created with a non-positive capacity.
	DefaultCapacity = 16

	empty = -1
)

// Hasher maps a key to its 32-bit hash.
type Hasher[K comparable] func(K) uint32

// Table is a hash map keyed by K using a caller supplied 32-bit hash.
// A Table is not safe for concurrent use.
type Table[K comparable, V any] struct {
	hash   Hasher[K]
	index  []int
	chain  []int
	keys   []K
	values []V
	hashes []uint32
	mask   uint32

	// cached is the entry returned by the most recent successful lookup.
	cached int
}

// New creates a table able to hold capacity entries before growing.
// The capacity is rounded up to the next power of two.
func New[K comparable, V any](capacity int, hash Hasher[K]) *Table[K, V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	capacity = nextPowerOfTwo(capacity)

	t := &Table[K, V]{
		hash:   hash,
		keys:   make([]K, 0, capacity),
		values: make([]V, 0, capacity),
		hashes: make([]uint32, 0, capacity),
		cached: empty,
	}
	t.rehash(capacity)
	return t
}

// Insert adds key with value. It returns false and leaves the table
// unchanged when the key is already present.
func (t *Table[K, V]) Insert(key K, value V) bool {
	if _, ok := t.Find(key); ok {
		return false
	}

	if len(t.keys)+1 > len(t.index) {
		t.rehash(len(t.index) * 2)
	}

	h := t.hash(key)
	bucket := h & t.mask
	i := len(t.keys)

	t.keys = append(t.keys, key)
	t.values = append(t.values, value)
	t.hashes = append(t.hashes, h)
	t.chain = append(t.chain, t.index[bucket])
	t.index[bucket] = i
	return true
}

// Find returns the entry index of key.
func (t *Table[K, V]) Find(key K) (int, bool) {
	if t.cached != empty && t.keys[t.cached] == key {
		return t.cached, true
	}
	if len(t.keys) == 0 {
		return empty, false
	}

	h := t.hash(key)
	for i := t.index[h&t.mask]; i != empty; i = t.chain[i] {
		if t.hashes[i] == h && t.keys[i] == key {
			t.cached = i
			return i, true
		}
	}
	return empty, false
}

// Get returns the value stored for key.
func (t *Table[K, V]) Get(key K) (V, bool) {
	i, ok := t.Find(key)
	if !ok {
		var zero V
		return zero, false
	}
	return t.values[i], true
}

// At returns the entry stored at index i. It panics if i is out of range.
func (t *Table[K, V]) At(i int) (K, V) {
	return t.keys[i], t.values[i]
}

// Remove deletes key. The last entry is moved into the freed slot.
func (t *Table[K, V]) Remove(key K) bool {
	i, ok := t.Find(key)
	if !ok {
		return false
	}
	t.cached = empty

	t.unlink(i)
	last := len(t.keys) - 1
	if i != last {
		t.relocate(last, i)
	}

	var zeroKey K
	var zeroValue V
	t.keys[last] = zeroKey
	t.values[last] = zeroValue

	t.keys = t.keys[:last]
	t.values = t.values[:last]
	t.hashes = t.hashes[:last]
	t.chain = t.chain[:last]
	return true
}

// Len returns the number of entries.
func (t *Table[K, V]) Len() int {
	return len(t.keys)
}

// Cap returns the number of entries the table holds before it grows.
func (t *Table[K, V]) Cap() int {
	return len(t.index)
}

// Clear removes every entry but keeps the current capacity.
func (t *Table[K, V]) Clear() {
	clear(t.keys)
	clear(t.values)
	t.keys = t.keys[:0]
	t.values = t.values[:0]
	t.hashes = t.hashes[:0]
	t.chain = t.chain[:0]
	for b := range t.index {
		t.index[b] = empty
	}
	t.cached = empty
}

// Range calls fn for each entry in index order until fn returns false.
func (t *Table[K, V]) Range(fn func(key K, value V) bool) {
	for i := range t.keys {
		if !fn(t.keys[i], t.values[i]) {
			return
		}
	}
}

// unlink removes entry i from its bucket chain.
func (t *Table[K, V]) unlink(i int) {
	bucket := t.hashes[i] & t.mask
	if t.index[bucket] == i {
		t.index[bucket] = t.chain[i]
		return
	}
	p := t.index[bucket]
	for t.chain[p] != i {
		p = t.chain[p]
	}
	t.chain[p] = t.chain[i]
}

// relocate moves entry from into slot to and repoints whatever referenced it.
func (t *Table[K, V]) relocate(from, to int) {
	bucket := t.hashes[from] & t.mask
	if t.index[bucket] == from {
		t.index[bucket] = to
	} else {
		p := t.index[bucket]
		for t.chain[p] != from {
			p = t.chain[p]
		}
		t.chain[p] = to
	}

	t.keys[to] = t.keys[from]
	t.values[to] = t.values[from]
	t.hashes[to] = t.hashes[from]
	t.chain[to] = t.chain[from]
}

func (t *Table[K, V]) rehash(capacity int) {
	t.index = make([]int, capacity)
	for b := range t.index {
		t.index[b] = empty
	}
	t.mask = uint32(capacity - 1)

	chain := make([]int, len(t.keys), capacity)
	for i, h := range t.hashes {
		bucket := h & t.mask
		chain[i] = t.index[bucket]
		t.index[bucket] = i
	}
	t.chain = chain
}

func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// Fold reduces a 64-bit hash to 32 bits.
func Fold(h uint64) uint32 {
	return uint32(h) ^ uint32(h>>32)
}

// Uint64Hash hashes integer keys such as stored addresses.
func Uint64Hash(key uint64) uint32 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], key)
	return Fold(xxhash.Sum64(buf[:]))
}

// StringHash hashes string keys such as type and field names.
func StringHash(key string) uint32 {
	return Fold(xxhash.Sum64String(key))
}
