package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/fbtfile/pkg/chunk"
)

func TestBuilder_Sizes(t *testing.T) {
	tbl, err := sampleBuilder().Table(le64)
	require.NoError(t, err)

	link, ok := tbl.Lookup("Link")
	require.True(t, ok)
	assert.Equal(t, 16, link.Size)

	vec, ok := tbl.Lookup("Vec")
	require.True(t, ok)
	assert.Equal(t, 12, vec.Size)

	tbl32, err := sampleBuilder().Table(le32)
	require.NoError(t, err)
	link32, _ := tbl32.Lookup("Link")
	assert.Equal(t, 8, link32.Size)
}

func TestBuilder_ForwardReferences(t *testing.T) {
	tbl, err := NewBuilder().
		Struct("Outer", "Inner in", "int n").
		Struct("Inner", "double d[2]").
		Table(le64)
	require.NoError(t, err)

	outer, _ := tbl.Lookup("Outer")
	assert.Equal(t, 20, outer.Size)
}

func TestBuilder_PrimitiveOverride(t *testing.T) {
	tbl, err := NewBuilder().Primitive("long", 4).Struct("S", "long v").Table(le32)
	require.NoError(t, err)

	s, _ := tbl.Lookup("S")
	assert.Equal(t, 4, s.Size)
}

func TestBuilder_Errors(t *testing.T) {
	testCases := map[string]*Builder{
		"field without name": NewBuilder().Struct("S", "int"),
		"bad declarator":     NewBuilder().Struct("S", "int v[x]"),
		"declared twice":     NewBuilder().Struct("S", "int a").Struct("S", "int b"),
		"undeclared value":   NewBuilder().Struct("S", "Missing m"),
		"embedding cycle":    NewBuilder().Struct("A", "B b").Struct("B", "A a"),
	}

	for name, b := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := b.Table(le64)
			assert.Error(t, err)
		})
	}

	_, err := NewBuilder().Struct("A", "B b").Struct("B", "A a").Table(le64)
	assert.True(t, errors.Is(err, ErrSchemaCycle))
}

func TestBuilder_UndeclaredPointerTarget(t *testing.T) {
	tbl, err := NewBuilder().Struct("S", "Opaque *handle").Table(le64)
	require.NoError(t, err)

	s, _ := tbl.Lookup("S")
	assert.Equal(t, 8, s.Size)
}

func TestHost_CompileIsCached(t *testing.T) {
	host, err := NewHostFromBuilder(sampleBuilder(), le64)
	require.NoError(t, err)

	first, err := host.Compile()
	require.NoError(t, err)
	second, err := NewHost(append([]byte(nil), host.Blob...), le64).Compile()
	require.NoError(t, err)

	assert.Same(t, first, second)

	other, err := NewHost(host.Blob, be64).Compile()
	if err == nil {
		assert.NotSame(t, first, other, "a different layout is a different cache entry")
	}
	assert.NotEqual(t, host.Fingerprint(), FingerprintOf(host.Blob, be64))
}

func TestTable_BuilderRelayouts(t *testing.T) {
	tbl, err := sampleBuilder().Table(le64)
	require.NoError(t, err)

	narrow, err := tbl.Builder().Table(le32)
	require.NoError(t, err)

	obj, ok := narrow.Lookup("Object")
	require.True(t, ok)
	assert.Equal(t, 76, obj.Size)
	assert.Len(t, narrow.Types, len(tbl.Types))
	assert.Len(t, narrow.Decls, len(tbl.Decls))

	wide, err := tbl.Builder().Table(le64)
	require.NoError(t, err)
	assert.Equal(t, tbl.Encode(chunk.LittleEndian), wide.Encode(chunk.LittleEndian))
}
