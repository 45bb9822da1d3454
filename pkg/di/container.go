// Package di provides dependency injection container
package di

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ssargent/baseband/pkg/catalog"
	"github.com/ssargent/baseband/pkg/config"
	"github.com/ssargent/baseband/pkg/metrics"
)

// CatalogFactory opens scan catalogs.
type CatalogFactory interface {
	OpenCatalog(dir string) (*catalog.Catalog, error)
}

// DefaultCatalogFactory opens pebble catalogs on disk.
type DefaultCatalogFactory struct{}

// NewCatalogFactory creates a new catalog factory
func NewCatalogFactory() CatalogFactory {
	return &DefaultCatalogFactory{}
}

// OpenCatalog opens or creates the catalog in dir.
func (f *DefaultCatalogFactory) OpenCatalog(dir string) (*catalog.Catalog, error) {
	return catalog.Open(dir)
}

// Container holds all the dependencies for the application
type Container struct {
	config         *config.Config
	registry       *prometheus.Registry
	metrics        *metrics.Metrics
	catalogFactory CatalogFactory
}

// NewContainer creates a new dependency injection container
func NewContainer() *Container {
	registry := prometheus.NewRegistry()
	return &Container{
		config:         config.DefaultConfig(),
		registry:       registry,
		metrics:        metrics.NewMetrics(registry),
		catalogFactory: NewCatalogFactory(),
	}
}

// GetConfig returns the active configuration
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// SetConfig replaces the active configuration
func (c *Container) SetConfig(cfg *config.Config) {
	c.config = cfg
}

// GetMetrics returns the stream metrics
func (c *Container) GetMetrics() *metrics.Metrics {
	return c.metrics
}

// GetRegistry returns the registry the metrics are registered with
func (c *Container) GetRegistry() *prometheus.Registry {
	return c.registry
}

// GetCatalogFactory returns the catalog factory
func (c *Container) GetCatalogFactory() CatalogFactory {
	return c.catalogFactory
}

// SetCatalogFactory allows overriding the catalog factory (for testing)
func (c *Container) SetCatalogFactory(factory CatalogFactory) {
	c.catalogFactory = factory
}

// ExportMetrics writes the metrics to the configured textfile, if any.
func (c *Container) ExportMetrics() error {
	if c.config == nil || c.config.Metrics.Textfile == "" {
		return nil
	}
	return metrics.WriteTextfile(c.config.Metrics.Textfile, c.registry)
}
