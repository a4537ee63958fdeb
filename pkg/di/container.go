// Package di provides dependency injection container
package di

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ssargent/fbtfile/pkg/archive"
	"github.com/ssargent/fbtfile/pkg/catalog"
	"github.com/ssargent/fbtfile/pkg/config"
	"github.com/ssargent/fbtfile/pkg/metrics"
	"github.com/ssargent/fbtfile/pkg/schema"
)

// CatalogOpener opens the catalog stored in dir.
type CatalogOpener func(dir string, opts catalog.Options) (*catalog.Catalog, error)

// Container holds all the dependencies for the application
type Container struct {
	config        *config.Config
	logger        *slog.Logger
	metrics       *metrics.Metrics
	catalogOpener CatalogOpener
}

// NewContainer creates a new dependency injection container. Metrics are
// registered with reg; a nil reg uses the default registerer.
func NewContainer(cfg *config.Config, logger *slog.Logger, reg prometheus.Registerer) *Container {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Container{
		config:        cfg,
		logger:        logger,
		metrics:       metrics.NewMetrics(reg),
		catalogOpener: catalog.Open,
	}
}

// Config returns the loaded configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the application logger
func (c *Container) Logger() *slog.Logger {
	return c.logger
}

// Metrics returns the metrics collectors
func (c *Container) Metrics() *metrics.Metrics {
	return c.metrics
}

// ArchiveConfig returns the reader configuration for converting to host.
func (c *Container) ArchiveConfig(host *schema.Host) archive.Config {
	return archive.Config{
		Host:                      host,
		AllowConflictingAddresses: !c.config.Reader.StrictAddresses,
		MaxChunkSize:              c.config.Reader.MaxChunkSize,
		LinkNodeType:              c.config.Reader.LinkNodeType,
		Logger:                    c.logger,
		Metrics:                   c.metrics,
	}
}

// WriterConfig returns the writer configuration for host.
func (c *Container) WriterConfig(host *schema.Host) archive.WriterConfig {
	return archive.WriterConfig{
		Tag:     c.config.Writer.Tag,
		Version: c.config.Writer.Version,
		Host:    host,
	}
}

// OpenCatalog opens the catalog at dir, or the configured directory when
// dir is empty.
func (c *Container) OpenCatalog(dir string) (*catalog.Catalog, error) {
	if dir == "" {
		dir = c.config.Catalog.Dir
	}
	return c.catalogOpener(dir, catalog.Options{Logger: c.logger, Metrics: c.metrics})
}

// SetCatalogOpener allows overriding how catalogs are opened (for testing)
func (c *Container) SetCatalogOpener(opener CatalogOpener) {
	c.catalogOpener = opener
}
