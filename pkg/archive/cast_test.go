package archive

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/fbtfile/pkg/schema"
)

func encodeInt(size int, v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b[:size]
}

func encodeFloat(size int, f float64) []byte {
	if size == 4 {
		return binary.LittleEndian.AppendUint32(nil, math.Float32bits(float32(f)))
	}
	return binary.LittleEndian.AppendUint64(nil, math.Float64bits(f))
}

func TestCastElement(t *testing.T) {
	neg1 := uint64(math.MaxUint64)

	tests := []struct {
		name    string
		src     []byte
		srcKind schema.Kind
		dstSize int
		dstKind schema.Kind
		want    []byte
	}{
		{"int to float", encodeInt(4, 13), schema.KindInt, 4, schema.KindFloat, encodeFloat(4, 13)},
		{"negative int to float", encodeInt(4, neg1), schema.KindInt, 4, schema.KindFloat, encodeFloat(4, -1)},
		{"int -1 to uint32 wraps", encodeInt(4, neg1), schema.KindInt, 4, schema.KindULong, encodeInt(4, 0xFFFFFFFF)},
		{"int -1 to uint64 wraps", encodeInt(4, neg1), schema.KindInt, 8, schema.KindULong, encodeInt(8, neg1)},
		{"int -1 to int64", encodeInt(4, neg1), schema.KindInt, 8, schema.KindLong, encodeInt(8, neg1)},
		{"uint32 max to int64", encodeInt(4, 0xFFFFFFFF), schema.KindULong, 8, schema.KindLong, encodeInt(8, 0xFFFFFFFF)},
		{"uint32 max to double", encodeInt(4, 0xFFFFFFFF), schema.KindULong, 8, schema.KindDouble, encodeFloat(8, 4294967295)},
		{"char -1 to short", encodeInt(1, neg1), schema.KindChar, 2, schema.KindShort, encodeInt(2, 0xFFFF)},
		{"uchar 255 to short", encodeInt(1, 255), schema.KindUChar, 2, schema.KindShort, encodeInt(2, 255)},
		{"int truncates to short", encodeInt(4, 0x12345), schema.KindInt, 2, schema.KindShort, encodeInt(2, 0x2345)},
		{"float truncates to int", encodeFloat(4, 2.7), schema.KindFloat, 4, schema.KindInt, encodeInt(4, 2)},
		{"negative float to int", encodeFloat(8, -2.7), schema.KindDouble, 4, schema.KindInt, encodeInt(4, uint64(0xFFFFFFFE))},
		{"double to float", encodeFloat(8, 0.5), schema.KindDouble, 4, schema.KindFloat, encodeFloat(4, 0.5)},
		{"float to double", encodeFloat(4, 1.25), schema.KindFloat, 8, schema.KindDouble, encodeFloat(8, 1.25)},
		{"large float to ulong", encodeFloat(8, 1<<63), schema.KindDouble, 8, schema.KindULong, encodeInt(8, 1<<63)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := make([]byte, tt.dstSize)
			require.True(t, castElement(dst, tt.dstKind, tt.src, tt.srcKind, binary.LittleEndian))
			assert.Equal(t, tt.want, dst)
		})
	}
}

func TestCastElement_Rejects(t *testing.T) {
	dst := make([]byte, 4)
	assert.False(t, castElement(dst, schema.KindInt, make([]byte, 3), schema.KindInt, binary.LittleEndian))
	assert.False(t, castElement(dst, schema.KindInt, make([]byte, 2), schema.KindFloat, binary.LittleEndian))
	assert.False(t, castElement(dst, schema.KindNone, make([]byte, 4), schema.KindInt, binary.LittleEndian))
	assert.False(t, castElement(make([]byte, 2), schema.KindFloat, make([]byte, 4), schema.KindInt, binary.LittleEndian))
}

func TestCastElement_BigEndian(t *testing.T) {
	src := binary.BigEndian.AppendUint16(nil, 0xFFFE)
	dst := make([]byte, 4)
	require.True(t, castElement(dst, schema.KindInt, src, schema.KindShort, binary.BigEndian))
	assert.Equal(t, int32(-2), int32(binary.BigEndian.Uint32(dst)))
}
