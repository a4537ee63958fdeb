package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/fbtfile/pkg/chunk"
	"github.com/ssargent/fbtfile/pkg/config"
)

func TestHostSchema(t *testing.T) {
	table, err := nodeBuilder().Table(le64)
	require.NoError(t, err)

	t.Run("same pointer size reuses the producer records", func(t *testing.T) {
		host, err := hostSchema(config.Host{PointerSize: 8, ByteOrder: "big"}, table, le64)
		require.NoError(t, err)
		assert.Equal(t, chunk.Layout{PointerSize: 8, Order: chunk.BigEndian}, host.Layout)
		assert.Equal(t, table.Encode(chunk.BigEndian), host.Blob)
	})

	t.Run("narrower pointers are laid out again", func(t *testing.T) {
		host, err := hostSchema(config.Host{PointerSize: 4, ByteOrder: "little"}, table, le64)
		require.NoError(t, err)

		records, err := host.Compile()
		require.NoError(t, err)
		node, ok := records.StructByName("Node")
		require.True(t, ok)
		assert.Equal(t, 8, node.Size)
	})

	t.Run("schema file is used as is", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "host.sdna")
		blob := table.Encode(chunk.LittleEndian)
		require.NoError(t, os.WriteFile(path, blob, 0600))

		host, err := hostSchema(config.Host{PointerSize: 8, ByteOrder: "little", SchemaFile: path}, table, le64)
		require.NoError(t, err)
		assert.Equal(t, blob, host.Blob)
	})

	t.Run("bad layout", func(t *testing.T) {
		_, err := hostSchema(config.Host{PointerSize: 2}, table, le64)
		assert.Error(t, err)
	})
}

func TestEncode(t *testing.T) {
	v := map[string]int{"chunks": 3}

	var buf bytes.Buffer
	require.NoError(t, encode(&buf, "json", v))
	assert.JSONEq(t, `{"chunks": 3}`, buf.String())

	buf.Reset()
	require.NoError(t, encode(&buf, "yaml", v))
	assert.Equal(t, "chunks: 3\n", buf.String())

	buf.Reset()
	require.NoError(t, encode(&buf, "cbor", v))
	assert.NotEmpty(t, buf.Bytes())

	assert.Error(t, encode(&buf, "xml", v))
}
