/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"bytes"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ssargent/fbtfile/pkg/archive"
	"github.com/ssargent/fbtfile/pkg/chunk"
	"github.com/ssargent/fbtfile/pkg/schema"
)

// ChunkInfo describes one chunk of a container as stored.
type ChunkInfo struct {
	Offset      int64  `json:"offset" yaml:"offset"`
	Code        string `json:"code" yaml:"code"`
	Address     uint64 `json:"address" yaml:"address"`
	StructIndex uint32 `json:"struct_index" yaml:"struct_index"`
	Record      string `json:"record,omitempty" yaml:"record,omitempty"`
	Count       uint32 `json:"count" yaml:"count"`
	Length      uint32 `json:"length" yaml:"length"`
}

// Listing is the result of inspecting a container.
type Listing struct {
	Producer string      `json:"producer" yaml:"producer"`
	Layout   string      `json:"layout" yaml:"layout"`
	Chunks   []ChunkInfo `json:"chunks" yaml:"chunks"`
}

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "List the chunks of a container",
	Long: `List every chunk of a container up to its schema chunk, without
converting anything. Addresses are shown as the producer wrote them.

Examples:
  fbt inspect scene.fbt
  fbt inspect scene.fbt.zst --format json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")

		data, err := readInput(args[0])
		if err != nil {
			return err
		}
		listing, err := inspect(bytes.NewReader(data))
		if err != nil {
			return err
		}

		if format == "table" {
			return printListing(cmd.OutOrStdout(), listing)
		}
		return encode(cmd.OutOrStdout(), format, listing)
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().StringP("format", "f", "table", "Output format (table, json, yaml)")
}

// inspect lists the chunks of r. Record names are filled in when the
// stream carries a schema that compiles.
func inspect(r io.Reader) (*Listing, error) {
	cr, err := archive.NewChunkReader(r, chunk.Layout{}, 0)
	if err != nil {
		return nil, err
	}
	listing := &Listing{
		Producer: cr.Header().String(),
		Layout:   cr.Header().Layout.String(),
	}

	var records *schema.Compiled
	for {
		offset := cr.Offset()
		h, payload, err := cr.ReadNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		listing.Chunks = append(listing.Chunks, ChunkInfo{
			Offset:      offset,
			Code:        h.Code.String(),
			Address:     h.Address,
			StructIndex: h.StructIndex,
			Count:       h.Count,
			Length:      h.Length,
		})
		if h.Code == chunk.CodeSchema {
			records = compileQuietly(payload, cr.Header().Layout)
			break
		}
		if h.Code == chunk.CodeEnd {
			break
		}
	}

	if records != nil {
		for i := range listing.Chunks {
			c := &listing.Chunks[i]
			if c.Code == chunk.CodeSchema.String() || c.Code == chunk.CodeEnd.String() {
				continue
			}
			if st, ok := records.Struct(int(c.StructIndex)); ok {
				c.Record = st.Name()
			}
		}
	}
	return listing, nil
}

func compileQuietly(blob []byte, layout chunk.Layout) *schema.Compiled {
	table, err := schema.Parse(blob, layout.Order)
	if err != nil {
		return nil
	}
	records, err := schema.Compile(table, layout.PointerSize)
	if err != nil {
		return nil
	}
	return records
}

func printListing(out io.Writer, listing *Listing) error {
	fmt.Fprintf(out, "Producer: %s (%s)\n", listing.Producer, listing.Layout)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "OFFSET\tCODE\tADDRESS\tSTRUCT\tRECORD\tCOUNT\tLENGTH")
	for _, c := range listing.Chunks {
		fmt.Fprintf(w, "%d\t%s\t%#x\t%d\t%s\t%d\t%d\n",
			c.Offset, c.Code, c.Address, c.StructIndex, c.Record, c.Count, c.Length)
	}
	return w.Flush()
}
