package cmd

import (
	"bytes"
	"encoding/binary"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/fbtfile/pkg/archive"
	"github.com/ssargent/fbtfile/pkg/chunk"
	"github.com/ssargent/fbtfile/pkg/config"
	"github.com/ssargent/fbtfile/pkg/di"
	"github.com/ssargent/fbtfile/pkg/schema"
)

var (
	codeData = chunk.MakeCode("DATA")
	le64     = chunk.Layout{PointerSize: 8, Order: chunk.LittleEndian}
)

func nodeBuilder() *schema.Builder {
	return schema.NewBuilder().Struct("Node", "int value", "Node *next")
}

// writeProducer writes a 64-bit little endian container holding two linked
// nodes and returns its path.
func writeProducer(t *testing.T, dir string) string {
	t.Helper()
	host, err := schema.NewHostFromBuilder(nodeBuilder(), le64)
	require.NoError(t, err)

	node := func(value int32, next uint64) []byte {
		b := make([]byte, 12)
		binary.LittleEndian.PutUint32(b, uint32(value))
		binary.LittleEndian.PutUint64(b[4:], next)
		return b
	}

	var buf bytes.Buffer
	w, err := archive.NewWriter(&buf, archive.WriterConfig{Tag: "PROD001", Version: 1, Host: host})
	require.NoError(t, err)
	_, err = w.WriteRecords(codeData, "Node", 0x1000, 1, node(7, 0x2000))
	require.NoError(t, err)
	_, err = w.WriteRecords(codeData, "Node", 0x2000, 1, node(9, 0))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	path := filepath.Join(dir, "nodes.fbt")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0600))
	return path
}

// useContainer injects a container built from cfg for the duration of t.
func useContainer(t *testing.T, cfg *config.Config) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	SetContainer(di.NewContainer(cfg, logger, prometheus.NewRegistry()))
	t.Cleanup(func() { SetContainer(nil) })
}

func testConfig(t *testing.T) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Catalog.Dir = filepath.Join(t.TempDir(), "catalog")
	cfg.Host = config.Host{PointerSize: 8, ByteOrder: "little"}
	return cfg
}

// run executes the root command with args and returns what it printed.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// resetFlags restores every flag to its default so runs do not leak into
// each other.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}
