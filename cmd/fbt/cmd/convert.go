/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ssargent/fbtfile/pkg/archive"
	"github.com/ssargent/fbtfile/pkg/transport"
)

// convertCmd represents the convert command
var convertCmd = &cobra.Command{
	Use:   "convert <input> <output>",
	Short: "Convert a container to the host layout",
	Long: `Read a container, convert every record to the host layout and write
the result as a new container. Pointers in the output refer to block handles,
so the output relinks without any address translation.

The host layout comes from the configuration unless overridden by flags.
Without a host schema the input's own record types are used.

Examples:
  fbt convert scene.fbt scene-host.fbt
  fbt convert scene.fbt scene32.fbt.zst --pointer-size 4 --compression zstd
  fbt convert scene.fbt out.fbt --host-schema host.sdna --byte-order big`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := container.Config()
		compressionName := cfg.Writer.Compression
		if cmd.Flags().Changed("compression") {
			compressionName, _ = cmd.Flags().GetString("compression")
		}
		compression, err := transport.ParseCompression(compressionName)
		if err != nil {
			return err
		}

		s, host, err := loadArchive(args[0], hostSettings(cmd, cfg.Host))
		if err != nil {
			return err
		}

		out, err := transport.Create(args[1], compression)
		if err != nil {
			return err
		}
		written, err := writeSession(out, s, container.WriterConfig(host))
		if closeErr := out.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			return fmt.Errorf("failed to write %s: %w", args[1], err)
		}

		stats := s.Stats()
		fmt.Fprintf(cmd.OutOrStdout(), "Converted %s (%s) to %s\n", args[0], s.Header(), host.Layout)
		fmt.Fprintf(cmd.OutOrStdout(), "Blocks written: %d (pointer arrays %d, verbatim %d)\n",
			written, stats.PointerArrays, stats.Verbatim)
		if stats.Unlinked > 0 || stats.Unresolved > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "Skipped: %d unlinked blocks, %d unresolved pointers\n",
				stats.Unlinked, stats.Unresolved)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Output: %s (%s)\n", args[1], compression)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(convertCmd)
	convertCmd.Flags().String("compression", "none", "Output compression (none, gzip, zstd, lz4)")
	hostFlags(convertCmd, true)
}

// writeSession writes every converted block of s as a new container.
func writeSession(w io.Writer, s *archive.Session, cfg archive.WriterConfig) (int, error) {
	writer, err := archive.NewWriter(w, cfg)
	if err != nil {
		return 0, err
	}
	written, err := writer.WriteSession(s)
	if err != nil {
		return written, err
	}
	return written, writer.Close()
}
