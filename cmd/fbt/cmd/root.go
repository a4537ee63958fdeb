/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ssargent/fbtfile/pkg/config"
	"github.com/ssargent/fbtfile/pkg/di"
)

var container *di.Container

// SetContainer sets the dependency injection container
func SetContainer(c *di.Container) {
	container = c
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "fbt",
	Short: "fbt - chunked record container tool",
	Long: `fbt reads chunked record containers written by any producer layout,
converts their records to a host layout and relinks the pointers between them.

Containers can be inspected, converted to another layout, or exported into a
local catalog for later lookup.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if container != nil {
			return nil
		}
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := resolveConfig(configPath, cmd.Flags().Changed("config"))
		if err != nil {
			return err
		}
		if level, _ := cmd.Flags().GetString("log-level"); level != "" {
			cfg.Logging.Level = level
		}
		logger, err := cfg.Logging.NewLogger(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		SetContainer(di.NewContainer(cfg, logger, nil))
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", config.GetDefaultConfigPath(), "Path to the configuration file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
}

// resolveConfig loads the configuration at path. A missing file is only an
// error when the path was given explicitly.
func resolveConfig(path string, explicit bool) (*config.Config, error) {
	if !explicit && !config.ConfigExists(path) {
		return config.DefaultConfig(), nil
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}
