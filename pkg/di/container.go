// Package di provides dependency injection container
package di

import (
	"github.com/ssargent/datumkit/pkg/config"
	"github.com/ssargent/datumkit/pkg/metrics"
	"github.com/ssargent/datumkit/pkg/pipeline"
	"github.com/ssargent/datumkit/pkg/storage"
)

// OpenerFactory builds the store opener for a configuration
type OpenerFactory func(cfg *config.Config) storage.Opener

// Container holds all the dependencies for the application
type Container struct {
	openerFactory OpenerFactory
	metrics       *metrics.Metrics
}

// NewContainer creates a new dependency injection container
func NewContainer() *Container {
	return &Container{
		openerFactory: PebbleOpenerFactory,
		metrics:       metrics.NewMetrics(),
	}
}

// PebbleOpenerFactory opens on-disk pebble stores tuned by cfg.Storage
func PebbleOpenerFactory(cfg *config.Config) storage.Opener {
	return storage.NewPebbleOpener(storage.PebbleConfig{
		Compression:  cfg.Storage.Compression,
		CacheSizeMB:  cfg.Storage.CacheSizeMB,
		MaxOpenFiles: cfg.Storage.MaxOpenFiles,
		Sync:         cfg.Storage.Sync,
	})
}

// GetOpener returns the store opener for cfg
func (c *Container) GetOpener(cfg *config.Config) storage.Opener {
	return c.openerFactory(cfg)
}

// GetMetrics returns the process-wide metrics
func (c *Container) GetMetrics() *metrics.Metrics {
	return c.metrics
}

// GetTools returns a tool runner wired to the container's opener and metrics
func (c *Container) GetTools(cfg *config.Config) (*pipeline.Tools, error) {
	return pipeline.New(cfg, c.GetOpener(cfg), c.metrics)
}

// SetOpenerFactory allows overriding the opener factory (for testing)
func (c *Container) SetOpenerFactory(factory OpenerFactory) {
	c.openerFactory = factory
}
