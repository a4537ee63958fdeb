/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Convert a container and store its records in the catalog",
	Long: `Convert a container to the host layout and store every converted block
in the local catalog under a new export id.

Examples:
  fbt export scene.fbt
  fbt export scene.fbt --catalog ./catalog --pointer-size 8`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("catalog")

		s, _, err := loadArchive(args[0], hostSettings(cmd, container.Config().Host))
		if err != nil {
			return err
		}

		cat, err := container.OpenCatalog(dir)
		if err != nil {
			return err
		}
		defer cat.Close()

		source, err := filepath.Abs(args[0])
		if err != nil {
			source = args[0]
		}
		id, err := cat.Export(s, source)
		if err != nil {
			return fmt.Errorf("failed to export %s: %w", args[0], err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().String("catalog", "", "Catalog directory (defaults to the configured one)")
	hostFlags(exportCmd, true)
}
