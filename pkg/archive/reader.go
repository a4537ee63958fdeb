package archive

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/ssargent/fbtfile/pkg/chunk"
)

// payloadPrealloc is the most ReadNext allocates before payload bytes arrive.
const payloadPrealloc = 64 << 10

// ChunkReader provides sequential access to the chunks of a stream
type ChunkReader struct {
	reader  *bufio.Reader
	codec   *chunk.Codec
	header  chunk.StreamHeader
	offset  int64
	maxSize uint32
	scratch []byte
}

// NewChunkReader reads the stream header from r. Addresses are narrowed to
// host; a zero host uses the producer layout unchanged.
func NewChunkReader(r io.Reader, host chunk.Layout, maxSize uint32) (*ChunkReader, error) {
	cr := &ChunkReader{
		reader:  bufio.NewReader(r),
		maxSize: maxSize,
	}
	if cr.maxSize == 0 {
		cr.maxSize = DefaultMaxChunkSize
	}

	buf := make([]byte, chunk.StreamHeaderSize)
	n, err := io.ReadFull(cr.reader, buf)
	cr.offset += int64(n)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedHeader, err)
	}
	h, err := chunk.ParseStreamHeader(buf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedHeader, err)
	}
	cr.header = h

	if host == (chunk.Layout{}) {
		host = h.Layout
	}
	cr.codec = chunk.NewCodec(h.Layout, host)
	cr.scratch = make([]byte, cr.codec.Size())
	return cr, nil
}

// Header returns the stream header.
func (r *ChunkReader) Header() chunk.StreamHeader {
	return r.header
}

// Codec returns the header codec for this stream.
func (r *ChunkReader) Codec() *chunk.Codec {
	return r.codec
}

// Offset returns the number of bytes consumed so far.
func (r *ChunkReader) Offset() int64 {
	return r.offset
}

// ReadNext reads the next chunk header and its payload. It returns io.EOF
// only when the stream ends exactly on a chunk boundary.
func (r *ChunkReader) ReadNext() (chunk.Header, []byte, error) {
	start := r.offset
	n, err := io.ReadFull(r.reader, r.scratch)
	r.offset += int64(n)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return chunk.Header{}, nil, io.EOF
		}
		return chunk.Header{}, nil, fmt.Errorf("%w: header at offset %d: %v", ErrMalformedChunk, start, err)
	}

	h, err := r.codec.Decode(r.scratch)
	if err != nil {
		return chunk.Header{}, nil, fmt.Errorf("%w: offset %d: %v", ErrMalformedChunk, start, err)
	}
	if h.Length > r.maxSize {
		return chunk.Header{}, nil, fmt.Errorf("%w: %s at offset %d wants %d bytes, limit %d",
			ErrAllocation, h.Code, start, h.Length, r.maxSize)
	}

	// The buffer grows with the bytes actually present.
	var payload bytes.Buffer
	payload.Grow(int(min(h.Length, payloadPrealloc)))
	read, err := payload.ReadFrom(io.LimitReader(r.reader, int64(h.Length)))
	r.offset += read
	if err != nil || read < int64(h.Length) {
		return chunk.Header{}, nil, fmt.Errorf("%w: %s at offset %d: payload truncated after %d of %d bytes",
			ErrMalformedChunk, h.Code, start, read, h.Length)
	}
	return h, payload.Bytes(), nil
}

// Scan reads every chunk up to and including the first schema chunk or end
// marker and hands it to fn without converting anything. Addresses are
// reported at producer width.
func Scan(r io.Reader, fn func(h chunk.Header, payload []byte) error) (chunk.StreamHeader, error) {
	cr, err := NewChunkReader(r, chunk.Layout{}, 0)
	if err != nil {
		return chunk.StreamHeader{}, err
	}
	for {
		h, payload, err := cr.ReadNext()
		if err == io.EOF {
			return cr.Header(), nil
		}
		if err != nil {
			return cr.Header(), err
		}
		if err := fn(h, payload); err != nil {
			return cr.Header(), err
		}
		if h.Code == chunk.CodeSchema || h.Code == chunk.CodeEnd {
			return cr.Header(), nil
		}
	}
}
