package schema

// Kind classifies primitive types. The width of a primitive always comes
// from the schema's TLEN section, never from the kind.
type Kind uint8

const (
	KindNone Kind = iota // declared struct or opaque type
	KindChar
	KindUChar
	KindShort
	KindUShort
	KindInt
	KindLong
	KindULong
	KindFloat
	KindDouble
	KindVoid
)

var kindNames = [...]string{
	KindNone:   "none",
	KindChar:   "char",
	KindUChar:  "uchar",
	KindShort:  "short",
	KindUShort: "ushort",
	KindInt:    "int",
	KindLong:   "long",
	KindULong:  "ulong",
	KindFloat:  "float",
	KindDouble: "double",
	KindVoid:   "void",
}

var primitiveKinds = map[string]Kind{
	"char":    KindChar,
	"uchar":   KindUChar,
	"short":   KindShort,
	"ushort":  KindUShort,
	"int":     KindInt,
	"long":    KindLong,
	"ulong":   KindULong,
	"float":   KindFloat,
	"double":  KindDouble,
	"void":    KindVoid,
	"int8":    KindChar,
	"uint8":   KindUChar,
	"int16":   KindShort,
	"uint16":  KindUShort,
	"int32":   KindInt,
	"uint":    KindULong,
	"uint32":  KindULong,
	"int64":   KindLong,
	"uint64":  KindULong,
	"float32": KindFloat,
	"float64": KindDouble,
}

// KindOf returns the primitive kind of a type name, or KindNone.
func KindOf(typeName string) Kind {
	return primitiveKinds[typeName]
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Numeric reports whether k is one of the nine castable kinds.
func (k Kind) Numeric() bool {
	return k >= KindChar && k <= KindDouble
}

// Integer reports whether k is an integer kind.
func (k Kind) Integer() bool {
	return k >= KindChar && k <= KindULong
}

// Signed reports whether k is a signed integer kind.
func (k Kind) Signed() bool {
	switch k {
	case KindChar, KindShort, KindInt, KindLong:
		return true
	}
	return false
}

// Float reports whether k is a floating point kind.
func (k Kind) Float() bool {
	return k == KindFloat || k == KindDouble
}
