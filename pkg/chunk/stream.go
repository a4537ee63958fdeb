package chunk

import (
	"errors"
	"fmt"
)

const (
	// StreamHeaderSize is the size of the header at the start of every stream.
	StreamHeaderSize = 12
	// TagSize is the length of the producer tag.
	TagSize = 7
)

// ErrBadStreamHeader is returned when the 12 byte stream header cannot be parsed.
var ErrBadStreamHeader = errors.New("invalid stream header")

// StreamHeader identifies the producer of a stream and its memory layout.
type StreamHeader struct {
	Tag     string
	Layout  Layout
	Version int
}

// ParseStreamHeader decodes the first StreamHeaderSize bytes of a stream.
func ParseStreamHeader(b []byte) (StreamHeader, error) {
	if len(b) < StreamHeaderSize {
		return StreamHeader{}, fmt.Errorf("%w: %d bytes, need %d", ErrBadStreamHeader, len(b), StreamHeaderSize)
	}

	h := StreamHeader{Tag: string(b[:TagSize])}

	switch b[7] {
	case pointer32Marker:
		h.Layout.PointerSize = 4
	case pointer64Marker:
		h.Layout.PointerSize = 8
	default:
		return StreamHeader{}, fmt.Errorf("%w: pointer width marker %q", ErrBadStreamHeader, b[7])
	}

	h.Layout.Order = Endian(b[8])
	if !h.Layout.Order.Valid() {
		return StreamHeader{}, fmt.Errorf("%w: byte order marker %q", ErrBadStreamHeader, b[8])
	}

	for _, digit := range b[9:12] {
		if digit < '0' || digit > '9' {
			return StreamHeader{}, fmt.Errorf("%w: version %q", ErrBadStreamHeader, b[9:12])
		}
		h.Version = h.Version*10 + int(digit-'0')
	}

	return h, nil
}

// Encode serializes the header. The tag must be exactly TagSize bytes and
// the version must fit in three digits.
func (h StreamHeader) Encode() ([]byte, error) {
	if len(h.Tag) != TagSize {
		return nil, fmt.Errorf("tag %q must be %d bytes", h.Tag, TagSize)
	}
	if h.Version < 0 || h.Version > 999 {
		return nil, fmt.Errorf("version %d out of range", h.Version)
	}
	if err := h.Layout.Validate(); err != nil {
		return nil, err
	}

	buf := make([]byte, 0, StreamHeaderSize)
	buf = append(buf, h.Tag...)
	if h.Layout.PointerSize == 8 {
		buf = append(buf, pointer64Marker)
	} else {
		buf = append(buf, pointer32Marker)
	}
	buf = append(buf, byte(h.Layout.Order))
	buf = append(buf, fmt.Sprintf("%03d", h.Version)...)
	return buf, nil
}

func (h StreamHeader) String() string {
	marker := byte(pointer32Marker)
	if h.Layout.PointerSize == 8 {
		marker = pointer64Marker
	}
	return fmt.Sprintf("%s%c%c%03d", h.Tag, marker, byte(h.Layout.Order), h.Version)
}
