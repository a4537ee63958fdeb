package cmd

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/fbtfile/pkg/catalog"
	"github.com/ssargent/fbtfile/pkg/chunk"
	"github.com/ssargent/fbtfile/pkg/config"
	"github.com/ssargent/fbtfile/pkg/schema"
	"github.com/ssargent/fbtfile/pkg/transport"
)

func TestInspect(t *testing.T) {
	path := writeProducer(t, t.TempDir())
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	listing, err := inspect(bytes.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, "PROD001-v001", listing.Producer)
	assert.Equal(t, le64.String(), listing.Layout)
	require.Len(t, listing.Chunks, 3)

	first := listing.Chunks[0]
	assert.Equal(t, ChunkInfo{Offset: 12, Code: "DATA", Address: 0x1000, Record: "Node", Count: 1, Length: 12}, first)
	assert.Equal(t, int64(48), listing.Chunks[1].Offset)
	assert.Equal(t, "DNA1", listing.Chunks[2].Code)
	assert.Empty(t, listing.Chunks[2].Record)
}

func TestInspectCommand(t *testing.T) {
	useContainer(t, testConfig(t))
	path := writeProducer(t, t.TempDir())

	out, err := run(t, "inspect", path)
	require.NoError(t, err)
	assert.Contains(t, out, "OFFSET")
	assert.Contains(t, out, "Node")

	out, err = run(t, "inspect", path, "--format", "json")
	require.NoError(t, err)
	var listing Listing
	require.NoError(t, json.Unmarshal([]byte(out), &listing))
	assert.Len(t, listing.Chunks, 3)
}

func TestSchemaCommand(t *testing.T) {
	useContainer(t, testConfig(t))
	dir := t.TempDir()
	path := writeProducer(t, dir)

	out, err := run(t, "schema", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Node")
	assert.Contains(t, out, "next")

	out, err = run(t, "schema", path, "--record", "Node", "--format", "json")
	require.NoError(t, err)
	var desc schema.Description
	require.NoError(t, json.Unmarshal([]byte(out), &desc))
	require.Len(t, desc.Records, 1)
	assert.Equal(t, 12, desc.Records[0].Size)

	_, err = run(t, "schema", path, "--record", "Missing")
	assert.Error(t, err)

	blobPath := filepath.Join(dir, "host.sdna")
	out, err = run(t, "schema", path, "--blob", blobPath, "--pointer-size", "4", "--byte-order", "big")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote")

	blob, err := os.ReadFile(blobPath)
	require.NoError(t, err)
	records, err := schema.CompileCached(blob, chunk.Layout{PointerSize: 4, Order: chunk.BigEndian})
	require.NoError(t, err)
	node, ok := records.StructByName("Node")
	require.True(t, ok)
	assert.Equal(t, 8, node.Size)
}

func TestConvertCommand(t *testing.T) {
	useContainer(t, testConfig(t))
	dir := t.TempDir()
	path := writeProducer(t, dir)
	outPath := filepath.Join(dir, "out", "nodes32.fbt.zst")

	out, err := run(t, "convert", path, outPath,
		"--pointer-size", "4", "--byte-order", "big", "--compression", "zstd")
	require.NoError(t, err)
	assert.Contains(t, out, "Blocks written: 2")

	rc, compression, err := transport.Open(outPath)
	require.NoError(t, err)
	rc.Close()
	assert.Equal(t, transport.CompressionZstd, compression)

	s, _, err := loadArchive(outPath, config.Host{PointerSize: 4, ByteOrder: "big"})
	require.NoError(t, err)
	assert.Equal(t, chunk.Layout{PointerSize: 4, Order: chunk.BigEndian}, s.Header().Layout)

	nodes := s.Records(codeData)
	require.Len(t, nodes, 2)

	value, ok := s.Field(nodes[0], 0, "value")
	require.True(t, ok)
	assert.Equal(t, uint32(7), binary.BigEndian.Uint32(value))
	assert.Same(t, nodes[1], s.Follow(nodes[0], 0, "next"))
	assert.Nil(t, s.Follow(nodes[1], 0, "next"))
}

func TestConvertCommand_BadCompression(t *testing.T) {
	useContainer(t, testConfig(t))
	dir := t.TempDir()
	path := writeProducer(t, dir)

	_, err := run(t, "convert", path, filepath.Join(dir, "out.fbt"), "--compression", "brotli")
	assert.Error(t, err)
}

func TestExportAndCatalogCommands(t *testing.T) {
	cfg := testConfig(t)
	useContainer(t, cfg)
	path := writeProducer(t, t.TempDir())

	out, err := run(t, "export", path)
	require.NoError(t, err)
	id := strings.TrimSpace(out)
	require.Len(t, id, 27)

	out, err = run(t, "catalog", "list", "--format", "json")
	require.NoError(t, err)
	var manifests []catalog.Manifest
	require.NoError(t, json.Unmarshal([]byte(out), &manifests))
	require.Len(t, manifests, 1)
	assert.Equal(t, id, manifests[0].ID)
	assert.Equal(t, []uint32{1, 2}, manifests[0].Handles)

	out, err = run(t, "catalog", "show", id, "--blocks")
	require.NoError(t, err)
	assert.Contains(t, out, id)
	assert.Contains(t, out, "Node")

	_, err = run(t, "catalog", "show", "not-an-id")
	assert.Error(t, err)

	out, err = run(t, "catalog", "rm", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted")

	out, err = run(t, "catalog", "list")
	require.NoError(t, err)
	assert.NotContains(t, out, id)
}
