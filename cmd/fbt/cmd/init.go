/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/fbtfile/pkg/config"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: `Write a configuration file with default settings. An existing file is
kept unless --force is given.

Examples:
  fbt init
  fbt init --config ./fbt.yaml --force`,
	Args: cobra.NoArgs,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		force, _ := cmd.Flags().GetBool("force")

		created, err := initConfig(configPath, force)
		if err != nil {
			return err
		}
		if !created {
			fmt.Fprintf(cmd.OutOrStdout(), "Config already exists at %s. Use --force to overwrite.\n", configPath)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote default config to %s\n", configPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().Bool("force", false, "Overwrite an existing config file")
}

// initConfig writes the default configuration to path and reports whether
// a file was written.
func initConfig(path string, force bool) (bool, error) {
	if !force {
		existed := config.ConfigExists(path)
		if _, err := config.BootstrapConfig(path); err != nil {
			return false, err
		}
		return !existed, nil
	}
	if err := config.SaveConfig(config.DefaultConfig(), path); err != nil {
		return false, err
	}
	return true, nil
}
