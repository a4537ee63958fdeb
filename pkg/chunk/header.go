package chunk

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

// SentinelLength is the all-ones length that never describes a real chunk.
const SentinelLength = 0xFFFFFFFF

var (
	// ErrShortHeader is returned when fewer bytes than a header are supplied.
	ErrShortHeader = errors.New("chunk header truncated")
	// ErrSentinelLength is returned for a header whose length is SentinelLength.
	ErrSentinelLength = errors.New("chunk length is the sentinel value")
)

// Code identifies the kind of a chunk. Four character codes are the little
// endian value of their bytes; two character codes occupy the low half.
type Code uint32

// Well-known block codes.
var (
	CodeSchema = MakeCode("DNA1")
	CodeEnd    = MakeCode("ENDB")
)

// MakeCode packs a two or four character code. Shorter names are padded
// with zero bytes.
func MakeCode(name string) Code {
	var b [4]byte
	copy(b[:], name)
	return Code(binary.LittleEndian.Uint32(b[:]))
}

// Short reports whether c is a two character code.
func (c Code) Short() bool {
	return c>>16 == 0
}

func (c Code) String() string {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(c))
	return strings.TrimRight(string(b[:]), "\x00")
}

// Header is a decoded chunk header with its address in host width.
type Header struct {
	Code        Code
	Length      uint32
	Address     uint64
	StructIndex uint32
	Count       uint32
}

func (h Header) String() string {
	return fmt.Sprintf("%s len=%d addr=%#x struct=%d count=%d", h.Code, h.Length, h.Address, h.StructIndex, h.Count)
}

// HeaderSize returns the encoded header size for a producer pointer width.
func HeaderSize(pointerSize int) int {
	return 16 + pointerSize
}

// Codec translates chunk headers between a producer layout and the host
// layout. It is safe for concurrent use.
type Codec struct {
	File Layout
	Host Layout
}

// NewCodec creates a codec for reading or writing a stream in layout file.
func NewCodec(file, host Layout) *Codec {
	return &Codec{File: file, Host: host}
}

// Size returns the header size in the file layout.
func (c *Codec) Size() int {
	return HeaderSize(c.File.PointerSize)
}

// Swapped reports whether producer and host byte orders differ.
func (c *Codec) Swapped() bool {
	return c.File.Order != c.Host.Order
}

// VariableBits reports whether producer and host pointer widths differ.
func (c *Codec) VariableBits() bool {
	return c.File.PointerSize != c.Host.PointerSize
}

// Decode parses a header stored in the file layout.
func (c *Codec) Decode(b []byte) (Header, error) {
	if len(b) < c.Size() {
		return Header{}, fmt.Errorf("%w: %d bytes, need %d", ErrShortHeader, len(b), c.Size())
	}
	order := c.File.Order.ByteOrder()

	code := binary.LittleEndian.Uint32(b[0:4])
	if c.File.Order == BigEndian && code&0xFFFF == 0 {
		code >>= 16
	}

	h := Header{
		Code:    Code(code),
		Length:  order.Uint32(b[4:8]),
		Address: c.Host.Narrow(ReadAddress(b[8:], c.File)),
	}
	rest := 8 + c.File.PointerSize
	h.StructIndex = order.Uint32(b[rest:])
	h.Count = order.Uint32(b[rest+4:])

	if h.Length == SentinelLength {
		return Header{}, fmt.Errorf("%w: code %s", ErrSentinelLength, h.Code)
	}
	return h, nil
}

// Encode serializes h in the file layout.
func (c *Codec) Encode(h Header) []byte {
	buf := make([]byte, c.Size())
	order := c.File.Order.ByteOrder()

	code := uint32(h.Code)
	if c.File.Order == BigEndian && h.Code.Short() {
		code <<= 16
	}
	binary.LittleEndian.PutUint32(buf[0:4], code)
	order.PutUint32(buf[4:8], h.Length)
	PutAddress(buf[8:], c.File, h.Address)
	rest := 8 + c.File.PointerSize
	order.PutUint32(buf[rest:], h.StructIndex)
	order.PutUint32(buf[rest+4:], h.Count)
	return buf
}
