package archive

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/ssargent/fbtfile/pkg/chunk"
	"github.com/ssargent/fbtfile/pkg/schema"
)

// Writer produces a stream in the host layout. Every record is written as
// it is, so no linking takes place. The host schema blob is emitted by
// Close, followed by the end marker.
type Writer struct {
	writer  *bufio.Writer
	codec   *chunk.Codec
	host    *schema.Host
	records *schema.Compiled
	offset  int64
	closed  bool
}

// NewWriter writes the stream header to w and returns a writer for the
// remaining chunks. The caller closes w after Close.
func NewWriter(w io.Writer, config WriterConfig) (*Writer, error) {
	if config.Host == nil {
		return nil, ErrNoHostSchema
	}
	tag := config.Tag
	if tag == "" {
		tag = DefaultTag
	}

	records, err := config.Host.Compile()
	if err != nil {
		return nil, fmt.Errorf("host schema: %w", err)
	}

	header, err := chunk.StreamHeader{
		Tag:     tag,
		Layout:  config.Host.Layout,
		Version: config.Version,
	}.Encode()
	if err != nil {
		return nil, err
	}

	writer := &Writer{
		writer:  bufio.NewWriter(w),
		codec:   chunk.NewCodec(config.Host.Layout, config.Host.Layout),
		host:    config.Host,
		records: records,
	}
	if err := writer.write(header); err != nil {
		return nil, err
	}
	return writer, nil
}

// Offset returns the number of bytes written so far.
func (w *Writer) Offset() int64 {
	return w.offset
}

// WriteChunk appends one data chunk and returns the offset it starts at.
// The header length is taken from payload.
func (w *Writer) WriteChunk(h chunk.Header, payload []byte) (int64, error) {
	if w.closed {
		return 0, ErrWriterClosed
	}
	if h.Code == chunk.CodeSchema || h.Code == chunk.CodeEnd {
		return 0, fmt.Errorf("code %s is written by Close", h.Code)
	}
	if uint64(len(payload)) >= chunk.SentinelLength {
		return 0, fmt.Errorf("%w: %d byte payload", ErrAllocation, len(payload))
	}

	h.Length = uint32(len(payload))
	recordOffset := w.offset
	if err := w.write(w.codec.Encode(h)); err != nil {
		return 0, err
	}
	if err := w.write(payload); err != nil {
		return 0, err
	}
	return recordOffset, nil
}

// WriteRecords appends count elements of host record type record stored
// at address.
func (w *Writer) WriteRecords(code chunk.Code, record string, address uint64, count int, data []byte) (int64, error) {
	st, ok := w.records.StructByName(record)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownRecord, record)
	}
	if len(data) != count*st.Size {
		return 0, fmt.Errorf("%s: %d bytes for %d elements of %d", record, len(data), count, st.Size)
	}
	return w.WriteChunk(chunk.Header{
		Code:        code,
		Address:     address,
		StructIndex: uint32(st.Index),
		Count:       uint32(count),
	}, data)
}

// WriteSession appends every converted block of s. Handles become
// addresses, so pointers between written blocks stay valid. Verbatim
// blocks keep the producer addresses they contain. It returns the number
// of blocks written.
func (w *Writer) WriteSession(s *Session) (int, error) {
	if s.HostLayout() != w.host.Layout || !bytes.Equal(s.cfg.Host.Blob, w.host.Blob) {
		return 0, fmt.Errorf("session was converted to a different host schema")
	}

	written := 0
	for _, b := range s.Blocks() {
		if !b.converted {
			continue
		}
		h := chunk.Header{
			Code:    b.Header.Code,
			Address: uint64(b.Handle),
			Count:   uint32(b.count),
		}
		if b.record != nil {
			h.StructIndex = uint32(b.record.Index)
		}
		if _, err := w.WriteChunk(h, b.data); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

// Close writes the schema chunk and the end marker and flushes.
func (w *Writer) Close() error {
	if w.closed {
		return ErrWriterClosed
	}
	if err := w.write(w.codec.Encode(chunk.Header{
		Code:   chunk.CodeSchema,
		Length: uint32(len(w.host.Blob)),
	})); err != nil {
		return err
	}
	if err := w.write(w.host.Blob); err != nil {
		return err
	}
	if err := w.write(w.codec.Encode(chunk.Header{Code: chunk.CodeEnd})); err != nil {
		return err
	}
	w.closed = true
	return w.writer.Flush()
}

func (w *Writer) write(p []byte) error {
	n, err := w.writer.Write(p)
	w.offset += int64(n)
	return err
}
