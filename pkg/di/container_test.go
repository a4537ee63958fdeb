package di

import (
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/fbtfile/pkg/catalog"
	"github.com/ssargent/fbtfile/pkg/config"
	"github.com/ssargent/fbtfile/pkg/schema"
)

func TestNewContainer_Defaults(t *testing.T) {
	c := NewContainer(nil, nil, prometheus.NewRegistry())

	assert.Equal(t, config.DefaultConfig(), c.Config())
	assert.NotNil(t, c.Logger())
	assert.NotNil(t, c.Metrics())
}

func TestContainer_ArchiveConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Reader.StrictAddresses = false
	cfg.Reader.MaxChunkSize = 4096
	cfg.Reader.LinkNodeType = "ListBase"
	cfg.Writer.Tag = "TESTTAG"
	cfg.Writer.Version = 7
	c := NewContainer(cfg, nil, prometheus.NewRegistry())

	host := &schema.Host{}
	ac := c.ArchiveConfig(host)
	assert.Same(t, host, ac.Host)
	assert.True(t, ac.AllowConflictingAddresses)
	assert.Equal(t, uint32(4096), ac.MaxChunkSize)
	assert.Equal(t, "ListBase", ac.LinkNodeType)
	assert.Same(t, c.Logger(), ac.Logger)
	assert.Same(t, c.Metrics(), ac.Metrics)

	wc := c.WriterConfig(host)
	assert.Equal(t, "TESTTAG", wc.Tag)
	assert.Equal(t, 7, wc.Version)
	assert.Same(t, host, wc.Host)
}

func TestContainer_OpenCatalog(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Catalog.Dir = filepath.Join(t.TempDir(), "configured")
	c := NewContainer(cfg, nil, prometheus.NewRegistry())

	var opened []string
	c.SetCatalogOpener(func(dir string, opts catalog.Options) (*catalog.Catalog, error) {
		opened = append(opened, dir)
		assert.Same(t, c.Logger(), opts.Logger)
		return catalog.Open(dir, opts)
	})

	cat, err := c.OpenCatalog("")
	require.NoError(t, err)
	require.NoError(t, cat.Close())

	other := filepath.Join(t.TempDir(), "explicit")
	cat, err = c.OpenCatalog(other)
	require.NoError(t, err)
	require.NoError(t, cat.Close())

	assert.Equal(t, []string{cfg.Catalog.Dir, other}, opened)
}
