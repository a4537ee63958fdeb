/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"encoding/hex"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/segmentio/ksuid"
	"github.com/spf13/cobra"

	"github.com/ssargent/fbtfile/pkg/catalog"
)

// catalogCmd represents the catalog command
var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage exported containers",
	Long: `List, show and delete the exports stored in the local catalog.

Examples:
  fbt catalog list
  fbt catalog show 2HZ8Kq7Q8c1bYq0JbW5eWn0bLzA --blocks
  fbt catalog rm 2HZ8Kq7Q8c1bYq0JbW5eWn0bLzA`,
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every export",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		return withCatalog(cmd, func(cat *catalog.Catalog) error {
			manifests, err := cat.List()
			if err != nil {
				return err
			}
			if format == "table" {
				return printManifests(cmd.OutOrStdout(), manifests)
			}
			return encode(cmd.OutOrStdout(), format, manifests)
		})
	},
}

var catalogShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one export",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		withBlocks, _ := cmd.Flags().GetBool("blocks")
		id, err := ksuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid export id %q: %w", args[0], err)
		}

		return withCatalog(cmd, func(cat *catalog.Catalog) error {
			m, err := cat.Manifest(id)
			if err != nil {
				return err
			}
			var blocks []catalog.Entry
			if withBlocks {
				if blocks, err = cat.Blocks(id); err != nil {
					return err
				}
			}
			if format == "table" {
				return printExport(cmd.OutOrStdout(), m, blocks)
			}
			return encode(cmd.OutOrStdout(), format, exportView{Manifest: *m, Blocks: blocks})
		})
	},
}

var catalogDeleteCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"delete"},
	Short:   "Delete an export",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := ksuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid export id %q: %w", args[0], err)
		}
		return withCatalog(cmd, func(cat *catalog.Catalog) error {
			if err := cat.Delete(id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", id)
			return nil
		})
	},
}

// exportView is a manifest with its blocks.
type exportView struct {
	catalog.Manifest `yaml:",inline"`
	Blocks           []catalog.Entry `json:"blocks,omitempty" yaml:"blocks,omitempty"`
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogListCmd, catalogShowCmd, catalogDeleteCmd)

	catalogCmd.PersistentFlags().String("catalog", "", "Catalog directory (defaults to the configured one)")
	catalogListCmd.Flags().StringP("format", "f", "table", "Output format (table, json, yaml)")
	catalogShowCmd.Flags().StringP("format", "f", "table", "Output format (table, json, yaml)")
	catalogShowCmd.Flags().Bool("blocks", false, "Include every stored block")
}

func withCatalog(cmd *cobra.Command, fn func(cat *catalog.Catalog) error) error {
	dir, _ := cmd.Flags().GetString("catalog")
	cat, err := container.OpenCatalog(dir)
	if err != nil {
		return err
	}
	defer cat.Close()
	return fn(cat)
}

func printManifests(out io.Writer, manifests []catalog.Manifest) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPRODUCER\tHOST\tBLOCKS\tCREATED\tSOURCE")
	for _, m := range manifests {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			m.ID, m.Producer, m.HostLayout, len(m.Handles), m.Created.Format(time.RFC3339), m.Source)
	}
	return w.Flush()
}

func printExport(out io.Writer, m *catalog.Manifest, blocks []catalog.Entry) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID:\t%s\n", m.ID)
	fmt.Fprintf(w, "Source:\t%s\n", m.Source)
	fmt.Fprintf(w, "Producer:\t%s\n", m.Producer)
	fmt.Fprintf(w, "Host:\t%s\n", m.HostLayout)
	fmt.Fprintf(w, "Fingerprint:\t%s\n", hex.EncodeToString(m.Fingerprint))
	fmt.Fprintf(w, "Blocks:\t%d\n", len(m.Handles))
	fmt.Fprintf(w, "Created:\t%s\n", m.Created.Format(time.RFC3339))
	if err := w.Flush(); err != nil {
		return err
	}
	if len(blocks) == 0 {
		return nil
	}

	fmt.Fprintln(out)
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "HANDLE\tCODE\tRECORD\tCOUNT\tBYTES\tADDRESS")
	for _, b := range blocks {
		record := b.Record
		switch {
		case b.PointerArray:
			record = "(pointers)"
		case b.Verbatim:
			record += " (verbatim)"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%#x\n", b.Handle, b.Code, record, b.Count, len(b.Data), b.Address)
	}
	return w.Flush()
}
