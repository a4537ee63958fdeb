/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ssargent/fbtfile/pkg/archive"
	"github.com/ssargent/fbtfile/pkg/schema"
)

// schemaCmd represents the schema command
var schemaCmd = &cobra.Command{
	Use:   "schema <file>",
	Short: "Show the record schema embedded in a container",
	Long: `Show the record types a container declares, with every field flattened
to its offset in the producer layout.

With --blob the schema is instead laid out for the host and written as a raw
schema blob, ready to be passed to convert with --host-schema.

Examples:
  fbt schema scene.fbt
  fbt schema scene.fbt --record Object --format yaml
  fbt schema scene.fbt --blob host.sdna --pointer-size 4 --byte-order big`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		record, _ := cmd.Flags().GetString("record")
		blobPath, _ := cmd.Flags().GetString("blob")

		data, err := readInput(args[0])
		if err != nil {
			return err
		}
		table, header, err := archive.ExtractSchema(bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}

		if blobPath != "" {
			settings := hostSettings(cmd, container.Config().Host)
			settings.SchemaFile = ""
			host, err := hostSchema(settings, table, header.Layout)
			if err != nil {
				return err
			}
			if err := os.WriteFile(blobPath, host.Blob, 0600); err != nil {
				return fmt.Errorf("failed to write schema blob: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d byte schema blob for %s to %s\n", len(host.Blob), host.Layout, blobPath)
			return nil
		}

		records, err := schema.Compile(table, header.Layout.PointerSize)
		if err != nil {
			return err
		}
		desc, ok := records.Describe(record)
		if !ok {
			return fmt.Errorf("record %q is not declared", record)
		}

		if format == "text" {
			return printDescription(cmd.OutOrStdout(), desc)
		}
		return encode(cmd.OutOrStdout(), format, desc)
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
	schemaCmd.Flags().StringP("format", "f", "text", "Output format (text, json, yaml, cbor)")
	schemaCmd.Flags().StringP("record", "r", "", "Only show this record type")
	schemaCmd.Flags().String("blob", "", "Write the schema laid out for the host to this file")
	hostFlags(schemaCmd, false)
}

func printDescription(out io.Writer, desc schema.Description) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, r := range desc.Records {
		fmt.Fprintf(w, "%s\t(%d bytes)", r.Name, r.Size)
		if r.Flags != "" {
			fmt.Fprintf(w, "\t%s", r.Flags)
		}
		fmt.Fprintln(w)
		for _, f := range r.Fields {
			fmt.Fprintf(w, "  %d\t%s\t%s\t%d\t%s\n", f.Offset, f.Type, f.Path, f.Len, f.Flags)
		}
	}
	return w.Flush()
}
