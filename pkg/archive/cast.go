package archive

import (
	"encoding/binary"
	"math"

	"github.com/ssargent/fbtfile/pkg/schema"
)

// wide is the common intermediate every numeric element passes through.
// Integers keep their two's complement bits; unsigned tells how to widen
// them to float.
type wide struct {
	bits     uint64
	float    float64
	isFloat  bool
	unsigned bool
}

// readWide decodes one element of kind k stored in order. It reports false
// for widths the kind cannot have.
func readWide(b []byte, k schema.Kind, order binary.ByteOrder) (wide, bool) {
	if k.Float() {
		switch len(b) {
		case 4:
			return wide{float: float64(math.Float32frombits(order.Uint32(b))), isFloat: true}, true
		case 8:
			return wide{float: math.Float64frombits(order.Uint64(b)), isFloat: true}, true
		}
		return wide{}, false
	}
	if !k.Integer() {
		return wide{}, false
	}

	w := wide{unsigned: !k.Signed()}
	switch len(b) {
	case 1:
		w.bits = uint64(b[0])
		if k.Signed() {
			w.bits = uint64(int64(int8(b[0])))
		}
	case 2:
		v := order.Uint16(b)
		w.bits = uint64(v)
		if k.Signed() {
			w.bits = uint64(int64(int16(v)))
		}
	case 4:
		v := order.Uint32(b)
		w.bits = uint64(v)
		if k.Signed() {
			w.bits = uint64(int64(int32(v)))
		}
	case 8:
		w.bits = order.Uint64(b)
	default:
		return wide{}, false
	}
	return w, true
}

// writeTo encodes w as kind k into b, truncating integers to the width of b.
func (w wide) writeTo(b []byte, k schema.Kind, order binary.ByteOrder) bool {
	if k.Float() {
		f := w.float
		if !w.isFloat {
			if w.unsigned {
				f = float64(w.bits)
			} else {
				f = float64(int64(w.bits))
			}
		}
		switch len(b) {
		case 4:
			order.PutUint32(b, math.Float32bits(float32(f)))
		case 8:
			order.PutUint64(b, math.Float64bits(f))
		default:
			return false
		}
		return true
	}
	if !k.Integer() {
		return false
	}

	v := w.bits
	if w.isFloat {
		if w.float < 0 || k.Signed() {
			v = uint64(int64(w.float))
		} else {
			v = uint64(w.float)
		}
	}
	switch len(b) {
	case 1:
		b[0] = byte(v)
	case 2:
		order.PutUint16(b, uint16(v))
	case 4:
		order.PutUint32(b, uint32(v))
	case 8:
		order.PutUint64(b, v)
	default:
		return false
	}
	return true
}

// castElement converts one element from kind src to kind dst. Both buffers
// are in order.
func castElement(dst []byte, dk schema.Kind, src []byte, sk schema.Kind, order binary.ByteOrder) bool {
	w, ok := readWide(src, sk, order)
	if !ok {
		return false
	}
	return w.writeTo(dst, dk, order)
}
