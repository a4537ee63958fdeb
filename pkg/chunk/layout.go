package chunk

import (
	"encoding/binary"
	"fmt"
	"math/bits"
	"strconv"
)

// Endian is a byte order, stored as its stream header marker.
type Endian byte

const (
	LittleEndian Endian = 'v'
	BigEndian    Endian = 'V'
)

// Pointer width markers used in the stream header.
const (
	pointer32Marker = '_'
	pointer64Marker = '-'
)

// ByteOrder returns the encoding/binary order for e.
func (e Endian) ByteOrder() binary.ByteOrder {
	if e == BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// Valid reports whether e is one of the two known markers.
func (e Endian) Valid() bool {
	return e == LittleEndian || e == BigEndian
}

func (e Endian) String() string {
	switch e {
	case LittleEndian:
		return "little"
	case BigEndian:
		return "big"
	default:
		return fmt.Sprintf("unknown(%q)", byte(e))
	}
}

// ParseEndian parses a byte order name. An empty name means native.
func ParseEndian(name string) (Endian, error) {
	switch name {
	case "little", "le":
		return LittleEndian, nil
	case "big", "be":
		return BigEndian, nil
	case "native", "":
		return NativeLayout().Order, nil
	default:
		return 0, fmt.Errorf("unknown byte order: %q", name)
	}
}

// Layout describes how a program lays out memory: pointer width in bytes
// and byte order.
type Layout struct {
	PointerSize int
	Order       Endian
}

// NativeLayout returns the layout of the running program.
func NativeLayout() Layout {
	order := LittleEndian
	if binary.NativeEndian.Uint16([]byte{0x01, 0x00}) != 0x0001 {
		order = BigEndian
	}
	return Layout{
		PointerSize: strconv.IntSize / 8,
		Order:       order,
	}
}

// Validate checks that the pointer size and byte order are supported.
func (l Layout) Validate() error {
	if l.PointerSize != 4 && l.PointerSize != 8 {
		return fmt.Errorf("unsupported pointer size: %d", l.PointerSize)
	}
	if !l.Order.Valid() {
		return fmt.Errorf("unsupported byte order marker: %q", byte(l.Order))
	}
	return nil
}

// Narrow truncates an address to the layout's pointer width.
func (l Layout) Narrow(address uint64) uint64 {
	if l.PointerSize == 4 {
		return address & 0xFFFFFFFF
	}
	return address
}

func (l Layout) String() string {
	return fmt.Sprintf("%d-bit %s-endian", l.PointerSize*8, l.Order)
}

// ReadAddress decodes a pointer-sized value stored in layout l.
// A 64-bit value is two 32-bit halves, low half first.
func ReadAddress(b []byte, l Layout) uint64 {
	order := l.Order.ByteOrder()
	if l.PointerSize == 4 {
		return uint64(order.Uint32(b))
	}
	return uint64(order.Uint32(b[0:4])) | uint64(order.Uint32(b[4:8]))<<32
}

// PutAddress encodes address into b using layout l. It is the inverse of
// ReadAddress.
func PutAddress(b []byte, l Layout, address uint64) {
	order := l.Order.ByteOrder()
	if l.PointerSize == 4 {
		order.PutUint32(b, uint32(address))
		return
	}
	order.PutUint32(b[0:4], uint32(address))
	order.PutUint32(b[4:8], uint32(address>>32))
}

// Swap16 reverses the bytes of v.
func Swap16(v uint16) uint16 { return bits.ReverseBytes16(v) }

// Swap32 reverses the bytes of v.
func Swap32(v uint32) uint32 { return bits.ReverseBytes32(v) }

// Swap64 reverses the bytes of v.
func Swap64(v uint64) uint64 { return bits.ReverseBytes64(v) }

// SwapInPlace reverses a 1, 2, 4 or 8 byte element in place. Other lengths
// are left untouched and reported as false.
func SwapInPlace(b []byte) bool {
	switch len(b) {
	case 1:
	case 2:
		binary.LittleEndian.PutUint16(b, Swap16(binary.LittleEndian.Uint16(b)))
	case 4:
		binary.LittleEndian.PutUint32(b, Swap32(binary.LittleEndian.Uint32(b)))
	case 8:
		binary.LittleEndian.PutUint64(b, Swap64(binary.LittleEndian.Uint64(b)))
	default:
		return false
	}
	return true
}
