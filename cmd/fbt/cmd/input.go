package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fxamacker/cbor/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ssargent/fbtfile/pkg/archive"
	"github.com/ssargent/fbtfile/pkg/chunk"
	"github.com/ssargent/fbtfile/pkg/config"
	"github.com/ssargent/fbtfile/pkg/schema"
	"github.com/ssargent/fbtfile/pkg/transport"
)

// readInput reads a whole container, decompressing it if needed.
func readInput(path string) ([]byte, error) {
	rc, _, err := transport.Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// hostFlags registers the flags that override the configured host layout.
// withSchema also registers --host-schema.
func hostFlags(cmd *cobra.Command, withSchema bool) {
	cmd.Flags().Int("pointer-size", 0, "Host pointer size in bytes (4 or 8)")
	cmd.Flags().String("byte-order", "", "Host byte order (little, big or native)")
	if withSchema {
		cmd.Flags().String("host-schema", "", "Host schema blob, encoded in the host byte order")
	}
}

// hostSettings returns the configured host settings with command line
// overrides applied.
func hostSettings(cmd *cobra.Command, base config.Host) config.Host {
	if cmd.Flags().Changed("pointer-size") {
		base.PointerSize, _ = cmd.Flags().GetInt("pointer-size")
	}
	if cmd.Flags().Changed("byte-order") {
		base.ByteOrder, _ = cmd.Flags().GetString("byte-order")
	}
	if cmd.Flags().Changed("host-schema") {
		base.SchemaFile, _ = cmd.Flags().GetString("host-schema")
	}
	return base
}

// hostSchema builds the host schema for settings. Without a schema file the
// producer's own records are used, laid out for the host.
func hostSchema(settings config.Host, table *schema.Table, producer chunk.Layout) (*schema.Host, error) {
	layout, err := settings.Layout()
	if err != nil {
		return nil, err
	}
	if settings.SchemaFile != "" {
		blob, err := os.ReadFile(settings.SchemaFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read host schema: %w", err)
		}
		return schema.NewHost(blob, layout), nil
	}
	if layout.PointerSize == producer.PointerSize {
		return schema.NewHost(table.Encode(layout.Order), layout), nil
	}
	return schema.NewHostFromBuilder(table.Builder(), layout)
}

// loadArchive opens the container at path converted to settings.
func loadArchive(path string, settings config.Host) (*archive.Session, *schema.Host, error) {
	data, err := readInput(path)
	if err != nil {
		return nil, nil, err
	}
	table, header, err := archive.ExtractSchema(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	host, err := hostSchema(settings, table, header.Layout)
	if err != nil {
		return nil, nil, err
	}
	s, err := archive.Open(bytes.NewReader(data), container.ArchiveConfig(host))
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, host, nil
}

// encode writes v to w as json, yaml or cbor.
func encode(w io.Writer, format string, v any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "cbor":
		return cbor.NewEncoder(w).Encode(v)
	default:
		return fmt.Errorf("unknown output format: %q", format)
	}
}
