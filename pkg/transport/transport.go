// Package transport opens and creates the byte streams archives are read
// from and written to: plain files, in-memory buffers and gzip, zstd or
// LZ4 compressed files. Compression is detected from the leading magic
// bytes on read.
package transport

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression identifies the compression wrapped around a stream.
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionGzip
	CompressionZstd
	CompressionLZ4
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	lz4Magic  = []byte{0x04, 0x22, 0x4d, 0x18}
)

// String returns the human-readable name of a compression.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionGzip:
		return "gzip"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", c)
	}
}

// ParseCompression parses a compression from its string representation.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "", "none":
		return CompressionNone, nil
	case "gzip", "gz":
		return CompressionGzip, nil
	case "zstd", "zst":
		return CompressionZstd, nil
	case "lz4":
		return CompressionLZ4, nil
	default:
		return 0, fmt.Errorf("unknown compression: %q", name)
	}
}

// Detect reports the compression of the stream behind r without consuming
// any bytes.
func Detect(r *bufio.Reader) (Compression, error) {
	magic, err := r.Peek(4)
	if err != nil && !errors.Is(err, io.EOF) {
		return CompressionNone, err
	}
	switch {
	case bytes.HasPrefix(magic, zstdMagic):
		return CompressionZstd, nil
	case bytes.HasPrefix(magic, lz4Magic):
		return CompressionLZ4, nil
	case bytes.HasPrefix(magic, gzipMagic):
		return CompressionGzip, nil
	}
	return CompressionNone, nil
}

// NewReader detects the compression of r and returns a reader over the
// decompressed bytes. Closing it releases the decompressor but not r.
func NewReader(r io.Reader) (io.ReadCloser, Compression, error) {
	br := bufio.NewReader(r)
	c, err := Detect(br)
	if err != nil {
		return nil, c, err
	}

	switch c {
	case CompressionGzip:
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, c, fmt.Errorf("gzip: %w", err)
		}
		return zr, c, nil
	case CompressionZstd:
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, c, fmt.Errorf("zstd: %w", err)
		}
		return zr.IOReadCloser(), c, nil
	case CompressionLZ4:
		return io.NopCloser(lz4.NewReader(br)), c, nil
	default:
		return io.NopCloser(br), c, nil
	}
}

// NewWriter wraps w with compression c. Closing the result flushes the
// compressor but does not close w.
func NewWriter(w io.Writer, c Compression) (io.WriteCloser, error) {
	switch c {
	case CompressionNone:
		return nopWriteCloser{w}, nil
	case CompressionGzip:
		return gzip.NewWriter(w), nil
	case CompressionZstd:
		zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		return zw, nil
	case CompressionLZ4:
		return lz4.NewWriter(w), nil
	default:
		return nil, fmt.Errorf("unsupported compression: %s", c)
	}
}

// OpenBytes returns a reader over an in-memory stream.
func OpenBytes(b []byte) (io.ReadCloser, Compression, error) {
	return NewReader(bytes.NewReader(b))
}

// Open opens the file at path for reading, undoing any compression.
func Open(path string) (io.ReadCloser, Compression, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, CompressionNone, err
	}
	r, c, err := NewReader(f)
	if err != nil {
		f.Close()
		return nil, c, fmt.Errorf("%s: %w", path, err)
	}
	return &stack{inner: r, file: f}, c, nil
}

// Create creates or truncates the file at path, compressing everything
// written with c. The file is complete only after Close returns nil.
func Create(path string, c Compression) (io.WriteCloser, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, err
	}
	w, err := NewWriter(f, c)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &stack{inner: w, file: f}, nil
}

// stack closes a compression layer and then the file under it.
type stack struct {
	inner io.Closer
	file  *os.File
}

func (s *stack) Read(p []byte) (int, error) {
	return s.inner.(io.Reader).Read(p)
}

func (s *stack) Write(p []byte) (int, error) {
	return s.inner.(io.Writer).Write(p)
}

func (s *stack) Close() error {
	err := s.inner.Close()
	if cerr := s.file.Close(); err == nil {
		err = cerr
	}
	return err
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
