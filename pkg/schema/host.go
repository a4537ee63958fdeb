package schema

import (
	"sync"

	"github.com/zeebo/blake3"

	"github.com/ssargent/fbtfile/pkg/chunk"
)

// Fingerprint identifies a schema blob compiled for a layout.
type Fingerprint [32]byte

// FingerprintOf hashes blob together with the layout it is compiled for.
func FingerprintOf(blob []byte, layout chunk.Layout) Fingerprint {
	h := blake3.New()
	_, _ = h.Write([]byte{byte(layout.PointerSize), byte(layout.Order)})
	_, _ = h.Write(blob)

	var fp Fingerprint
	copy(fp[:], h.Sum(nil))
	return fp
}

// Host describes the record layouts of the reading program.
type Host struct {
	Blob   []byte
	Layout chunk.Layout
}

// NewHost wraps a schema blob encoded in layout's byte order.
func NewHost(blob []byte, layout chunk.Layout) *Host {
	return &Host{Blob: blob, Layout: layout}
}

// NewHostFromBuilder encodes b for layout and wraps the result.
func NewHostFromBuilder(b *Builder, layout chunk.Layout) (*Host, error) {
	blob, err := b.Encode(layout)
	if err != nil {
		return nil, err
	}
	return NewHost(blob, layout), nil
}

// Fingerprint returns the cache key of the host schema.
func (h *Host) Fingerprint() Fingerprint {
	return FingerprintOf(h.Blob, h.Layout)
}

// Compile returns the compiled host schema, compiling it at most once per
// process for a given blob and layout.
func (h *Host) Compile() (*Compiled, error) {
	return CompileCached(h.Blob, h.Layout)
}

var compiledCache = struct {
	sync.Mutex
	entries map[Fingerprint]*Compiled
}{entries: make(map[Fingerprint]*Compiled)}

// CompileCached parses and compiles blob, reusing an earlier result for the
// same blob and layout. The returned schema must not be modified.
func CompileCached(blob []byte, layout chunk.Layout) (*Compiled, error) {
	key := FingerprintOf(blob, layout)

	compiledCache.Lock()
	defer compiledCache.Unlock()

	if c, ok := compiledCache.entries[key]; ok {
		return c, nil
	}

	t, err := Parse(blob, layout.Order)
	if err != nil {
		return nil, err
	}
	c, err := Compile(t, layout.PointerSize)
	if err != nil {
		return nil, err
	}
	compiledCache.entries[key] = c
	return c, nil
}
