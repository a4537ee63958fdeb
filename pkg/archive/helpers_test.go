package archive

import (
	"bytes"
	"encoding/binary"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ssargent/fbtfile/pkg/chunk"
	"github.com/ssargent/fbtfile/pkg/schema"
)

var (
	le32 = chunk.Layout{PointerSize: 4, Order: chunk.LittleEndian}
	le64 = chunk.Layout{PointerSize: 8, Order: chunk.LittleEndian}
	be32 = chunk.Layout{PointerSize: 4, Order: chunk.BigEndian}
	be64 = chunk.Layout{PointerSize: 8, Order: chunk.BigEndian}

	codeData = chunk.MakeCode("DATA")
	codeNode = chunk.MakeCode("ND")
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustHost(t *testing.T, b *schema.Builder, layout chunk.Layout) *schema.Host {
	t.Helper()
	h, err := schema.NewHostFromBuilder(b, layout)
	require.NoError(t, err)
	return h
}

func testConfig(host *schema.Host) Config {
	return Config{Host: host, Logger: quietLogger()}
}

// payload encodes record fields in one layout.
type payload struct {
	layout chunk.Layout
	buf    []byte
}

func newPayload(layout chunk.Layout) *payload {
	return &payload{layout: layout}
}

func (p *payload) order() binary.ByteOrder {
	return p.layout.Order.ByteOrder()
}

func (p *payload) i32(vs ...int32) *payload {
	for _, v := range vs {
		p.u32(uint32(v))
	}
	return p
}

func (p *payload) f32(vs ...float32) *payload {
	for _, v := range vs {
		p.u32(math.Float32bits(v))
	}
	return p
}

func (p *payload) u32(v uint32) {
	var b [4]byte
	p.order().PutUint32(b[:], v)
	p.buf = append(p.buf, b[:]...)
}

func (p *payload) ptr(addrs ...uint64) *payload {
	for _, a := range addrs {
		b := make([]byte, p.layout.PointerSize)
		chunk.PutAddress(b, p.layout, a)
		p.buf = append(p.buf, b...)
	}
	return p
}

func (p *payload) bytes() []byte {
	return p.buf
}

// stream writes a producer stream with w's layout and schema.
func stream(t *testing.T, producer *schema.Host, fn func(w *Writer)) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := NewWriter(&buf, WriterConfig{Tag: "PROD001", Version: 1, Host: producer})
	require.NoError(t, err)
	fn(w)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func writeRecords(t *testing.T, w *Writer, code chunk.Code, record string, address uint64, count int, data []byte) {
	t.Helper()
	_, err := w.WriteRecords(code, record, address, count, data)
	require.NoError(t, err)
}

func writeChunk(t *testing.T, w *Writer, h chunk.Header, data []byte) {
	t.Helper()
	_, err := w.WriteChunk(h, data)
	require.NoError(t, err)
}

func ptBuilder(fields ...string) *schema.Builder {
	return schema.NewBuilder().Struct("Pt", fields...)
}

// leInt32s decodes little endian int32 values.
func leInt32s(b []byte) []int32 {
	out := make([]int32, len(b)/4)
	for i := range out {
		out[i] = int32(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}

func leFloat32s(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}
