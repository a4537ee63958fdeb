package chunk

import (
	"bytes"
	"errors"
	"testing"
)

var (
	le32 = Layout{PointerSize: 4, Order: LittleEndian}
	le64 = Layout{PointerSize: 8, Order: LittleEndian}
	be32 = Layout{PointerSize: 4, Order: BigEndian}
	be64 = Layout{PointerSize: 8, Order: BigEndian}
)

func TestCodec_EncodeDecodeRoundTrip(t *testing.T) {
	testCases := []struct {
		name   string
		file   Layout
		header Header
	}{
		{
			name:   "32-bit little-endian",
			file:   le32,
			header: Header{Code: MakeCode("DATA"), Length: 8, Address: 0x1000, StructIndex: 3, Count: 2},
		},
		{
			name:   "64-bit little-endian",
			file:   le64,
			header: Header{Code: MakeCode("DATA"), Length: 16, Address: 0x7FFF00001000, StructIndex: 1, Count: 1},
		},
		{
			name:   "32-bit big-endian",
			file:   be32,
			header: Header{Code: MakeCode("DNA1"), Length: 1024, Address: 0xDEADBEEF, StructIndex: 0, Count: 1},
		},
		{
			name:   "64-bit big-endian",
			file:   be64,
			header: Header{Code: MakeCode("ENDB"), Length: 0, Address: 0x0000000100000002, StructIndex: 0, Count: 0},
		},
		{
			name:   "two character code big-endian",
			file:   be32,
			header: Header{Code: MakeCode("OB"), Length: 4, Address: 0x20, StructIndex: 7, Count: 1},
		},
		{
			name:   "two character code little-endian",
			file:   le64,
			header: Header{Code: MakeCode("ME"), Length: 4, Address: 0x20, StructIndex: 7, Count: 1},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			codec := NewCodec(tc.file, le64)

			encoded := codec.Encode(tc.header)
			if len(encoded) != HeaderSize(tc.file.PointerSize) {
				t.Fatalf("encoded size: got %d, want %d", len(encoded), HeaderSize(tc.file.PointerSize))
			}

			decoded, err := codec.Decode(encoded)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if decoded != tc.header {
				t.Errorf("header mismatch: got %v, want %v", decoded, tc.header)
			}
		})
	}
}

func TestCodec_HeaderSizes(t *testing.T) {
	if got := NewCodec(le32, le64).Size(); got != 20 {
		t.Errorf("32-bit header size: got %d, want 20", got)
	}
	if got := NewCodec(be64, le32).Size(); got != 24 {
		t.Errorf("64-bit header size: got %d, want 24", got)
	}
}

func TestCodec_DecodeBigEndianBytes(t *testing.T) {
	raw := []byte{
		'D', 'A', 'T', 'A',
		0x00, 0x00, 0x00, 0x08, // length
		0x00, 0x00, 0x10, 0x00, // address
		0x00, 0x00, 0x00, 0x02, // struct index
		0x00, 0x00, 0x00, 0x03, // count
	}

	h, err := NewCodec(be32, le64).Decode(raw)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	want := Header{Code: MakeCode("DATA"), Length: 8, Address: 0x1000, StructIndex: 2, Count: 3}
	if h != want {
		t.Errorf("got %v, want %v", h, want)
	}
}

func TestCodec_TwoCharacterCodeFromBigEndianProducer(t *testing.T) {
	// A big-endian producer packs a two character code as (a<<8 | b) and
	// writes it in its own byte order.
	raw := []byte{0x00, 0x00, 'O', 'B', 0, 0, 0, 0, 0, 0, 0, 0x40, 0, 0, 0, 1, 0, 0, 0, 1}

	h, err := NewCodec(be32, le32).Decode(raw)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if h.Code != MakeCode("OB") {
		t.Errorf("code: got %q (%#x), want OB", h.Code, uint32(h.Code))
	}
	if !h.Code.Short() {
		t.Error("expected a short code")
	}
}

func TestCodec_AddressHalvesSwappedIndependently(t *testing.T) {
	// Each 32-bit half is in producer order; the low half comes first.
	raw := make([]byte, 24)
	copy(raw, "DATA")
	copy(raw[8:16], []byte{0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x02})

	h, err := NewCodec(be64, le64).Decode(raw)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if h.Address != 0x0000000200000001 {
		t.Errorf("address: got %#x, want %#x", h.Address, uint64(0x0000000200000001))
	}
}

func TestCodec_VariableBits(t *testing.T) {
	t.Run("widen 32 to 64", func(t *testing.T) {
		writer := NewCodec(le32, le32)
		encoded := writer.Encode(Header{Code: MakeCode("DATA"), Address: 0xCAFEBABE})

		h, err := NewCodec(le32, le64).Decode(encoded)
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		if h.Address != 0xCAFEBABE {
			t.Errorf("address: got %#x", h.Address)
		}
	})

	t.Run("narrow 64 to 32 keeps low bits", func(t *testing.T) {
		writer := NewCodec(be64, be64)
		encoded := writer.Encode(Header{Code: MakeCode("DATA"), Address: 0x1122334455667788})

		codec := NewCodec(be64, le32)
		if !codec.VariableBits() || !codec.Swapped() {
			t.Fatal("expected a variable-bit swapped codec")
		}
		h, err := codec.Decode(encoded)
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		if h.Address != 0x55667788 {
			t.Errorf("address: got %#x, want 0x55667788", h.Address)
		}
	})
}

func TestCodec_RejectsSentinelLength(t *testing.T) {
	codec := NewCodec(le32, le64)
	encoded := codec.Encode(Header{Code: MakeCode("DATA"), Length: SentinelLength})

	_, err := codec.Decode(encoded)
	if !errors.Is(err, ErrSentinelLength) {
		t.Errorf("expected ErrSentinelLength, got %v", err)
	}
}

func TestCodec_RejectsShortInput(t *testing.T) {
	_, err := NewCodec(le64, le64).Decode(make([]byte, 20))
	if !errors.Is(err, ErrShortHeader) {
		t.Errorf("expected ErrShortHeader, got %v", err)
	}
}

func TestMakeCode(t *testing.T) {
	if CodeSchema.String() != "DNA1" {
		t.Errorf("schema code string: %q", CodeSchema.String())
	}
	if CodeEnd.Short() {
		t.Error("ENDB must not be a short code")
	}
	if MakeCode("OB").String() != "OB" {
		t.Errorf("short code string: %q", MakeCode("OB").String())
	}
	if !bytes.Equal(NewCodec(le32, le32).Encode(Header{Code: CodeSchema})[:4], []byte("DNA1")) {
		t.Error("four character codes must be written as their bytes")
	}
}

func TestSwap_SelfInverse(t *testing.T) {
	for _, v := range []uint16{0, 1, 0x00FF, 0x1234, 0xFFFF} {
		if Swap16(Swap16(v)) != v {
			t.Errorf("Swap16 not self-inverse for %#x", v)
		}
	}
	for _, v := range []uint32{0, 1, 0x12345678, 0xFFFFFFFF, 0x80000000} {
		if Swap32(Swap32(v)) != v {
			t.Errorf("Swap32 not self-inverse for %#x", v)
		}
	}
	for _, v := range []uint64{0, 1, 0x0123456789ABCDEF, ^uint64(0)} {
		if Swap64(Swap64(v)) != v {
			t.Errorf("Swap64 not self-inverse for %#x", v)
		}
	}
	if Swap32(0x12345678) != 0x78563412 {
		t.Errorf("Swap32: got %#x", Swap32(0x12345678))
	}
}

func TestSwapInPlace(t *testing.T) {
	b := []byte{1, 2, 3, 4}
	if !SwapInPlace(b) || !bytes.Equal(b, []byte{4, 3, 2, 1}) {
		t.Errorf("SwapInPlace 4 bytes: %v", b)
	}
	if SwapInPlace(make([]byte, 3)) {
		t.Error("SwapInPlace must reject 3 byte elements")
	}
}

func TestReadPutAddress(t *testing.T) {
	for _, layout := range []Layout{le32, le64, be32, be64} {
		buf := make([]byte, layout.PointerSize)
		want := layout.Narrow(0x0102030405060708)
		PutAddress(buf, layout, want)
		if got := ReadAddress(buf, layout); got != want {
			t.Errorf("%v: got %#x, want %#x", layout, got, want)
		}
	}
}
