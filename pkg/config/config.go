/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ssargent/fbtfile/pkg/chunk"
)

// Config represents the fbt configuration
type Config struct {
	Reader  Reader  `yaml:"reader"`
	Host    Host    `yaml:"host"`
	Writer  Writer  `yaml:"writer"`
	Catalog Catalog `yaml:"catalog"`
	Logging Logging `yaml:"logging"`
}

// Reader contains options for opening archives
type Reader struct {
	StrictAddresses bool   `yaml:"strict_addresses"`
	MaxChunkSize    uint32 `yaml:"max_chunk_size"`
	LinkNodeType    string `yaml:"link_node_type"`
}

// Host describes the layout records are converted to
type Host struct {
	PointerSize int    `yaml:"pointer_size"` // 0 = native
	ByteOrder   string `yaml:"byte_order"`   // little, big or native
	SchemaFile  string `yaml:"schema_file"`  // host schema blob; empty = take it from the input
}

// Writer contains options for producing archives
type Writer struct {
	Tag         string `yaml:"tag"`
	Version     int    `yaml:"version"`
	Compression string `yaml:"compression"`
}

// Catalog contains catalog storage configuration
type Catalog struct {
	Dir string `yaml:"dir"`
}

// Logging contains logging configuration
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Reader: Reader{
			StrictAddresses: true,
			MaxChunkSize:    1 << 30,
			LinkNodeType:    "Link",
		},
		Host: Host{
			ByteOrder: "native",
		},
		Writer: Writer{
			Tag:         "FBTFILE",
			Version:     1,
			Compression: "none",
		},
		Catalog: Catalog{
			Dir: "./catalog",
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig loads configuration from the specified path. Settings missing
// from the file keep their defaults.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	if !filepath.IsAbs(configPath) {
		absPath, err := filepath.Abs(configPath)
		if err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		configPath = absPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file: %w", err)
	}

	return config, nil
}

// SaveConfig saves the configuration to the specified path
func SaveConfig(config *Config, configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// BootstrapConfig writes a default configuration to configPath, keeping
// any file that is already there.
func BootstrapConfig(configPath string) (*Config, error) {
	if ConfigExists(configPath) {
		return LoadConfig(configPath)
	}
	config := DefaultConfig()
	if err := SaveConfig(config, configPath); err != nil {
		return nil, fmt.Errorf("failed to save bootstrap config: %w", err)
	}
	return config, nil
}

// GetDefaultConfigPath returns the default configuration path for the current platform
func GetDefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./fbt.yaml"
	}

	configDir := filepath.Join(homeDir, ".config", "fbt")
	return filepath.Join(configDir, "config.yaml")
}

// ConfigExists checks if a configuration file exists
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !os.IsNotExist(err)
}

// Validate checks every setting that has a fixed set of values.
func (c *Config) Validate() error {
	if _, err := c.Host.Layout(); err != nil {
		return err
	}
	if _, err := c.Logging.SlogLevel(); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format: %q", c.Logging.Format)
	}
	if c.Writer.Version < 0 || c.Writer.Version > 999 {
		return fmt.Errorf("writer version %d out of range", c.Writer.Version)
	}
	return nil
}

// Layout resolves the host layout, filling native values for unset fields.
func (h Host) Layout() (chunk.Layout, error) {
	layout := chunk.NativeLayout()
	if h.PointerSize != 0 {
		layout.PointerSize = h.PointerSize
	}
	order, err := chunk.ParseEndian(h.ByteOrder)
	if err != nil {
		return chunk.Layout{}, err
	}
	layout.Order = order
	if err := layout.Validate(); err != nil {
		return chunk.Layout{}, err
	}
	return layout, nil
}

// SlogLevel parses the configured level.
func (l Logging) SlogLevel() (slog.Level, error) {
	var level slog.Level
	name := l.Level
	if name == "" {
		name = "info"
	}
	if err := level.UnmarshalText([]byte(strings.ToUpper(name))); err != nil {
		return 0, fmt.Errorf("unknown log level: %q", l.Level)
	}
	return level, nil
}

// NewLogger returns a logger writing to w in the configured format.
func (l Logging) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := l.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}
