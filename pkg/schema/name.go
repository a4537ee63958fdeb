package schema

import (
	"fmt"
	"strings"

	"github.com/ssargent/fbtfile/pkg/hashtable"
)

// MaxElements bounds the element count of one array field.
const MaxElements = 1 << 24

// Name is a lexed field name.
type Name struct {
	Text     string // raw declarator as stored in the schema
	Base     string // Text without pointer, function and array syntax
	BaseHash uint32
	PtrCount int
	FuncPtr  bool
	Dims     []int // array extents, outermost first
	Elements int   // product of Dims, 1 for scalars
}

// IsPointer reports whether the field stores an address.
func (n *Name) IsPointer() bool {
	return n.PtrCount > 0 || n.FuncPtr
}

// ParseName lexes a field declarator such as "*next", "(*func)()" or "co[3]".
func ParseName(text string) (Name, error) {
	n := Name{Text: text, Elements: 1}
	var base strings.Builder

	for i := 0; i < len(text); i++ {
		switch c := text[i]; c {
		case '*':
			n.PtrCount++
		case '(':
			n.FuncPtr = true
		case ')':
		case '[':
			end := strings.IndexByte(text[i:], ']')
			if end < 0 {
				return Name{}, fmt.Errorf("%w: unterminated array in name %q", ErrMalformedSchema, text)
			}
			extent, err := parseExtent(text[i+1 : i+end])
			if err != nil {
				return Name{}, fmt.Errorf("%w: name %q: %v", ErrMalformedSchema, text, err)
			}
			if extent > 0 && n.Elements > MaxElements/extent {
				return Name{}, fmt.Errorf("%w: name %q: more than %d elements", ErrMalformedSchema, text, MaxElements)
			}
			n.Dims = append(n.Dims, extent)
			n.Elements *= extent
			i += end
		default:
			base.WriteByte(c)
		}
	}

	n.Base = base.String()
	if n.Base == "" {
		return Name{}, fmt.Errorf("%w: empty field name %q", ErrMalformedSchema, text)
	}
	n.BaseHash = hashtable.StringHash(n.Base)
	return n, nil
}

func parseExtent(digits string) (int, error) {
	if digits == "" {
		return 0, fmt.Errorf("empty array extent")
	}
	extent := 0
	for _, d := range digits {
		if d < '0' || d > '9' {
			return 0, fmt.Errorf("array extent %q is not a number", digits)
		}
		extent = extent*10 + int(d-'0')
		if extent > MaxElements {
			return 0, fmt.Errorf("array extent %q too large", digits)
		}
	}
	return extent, nil
}
