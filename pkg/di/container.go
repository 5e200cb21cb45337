package di

import (
	"context"
	"fmt"

	"github.com/goliatone/go-callcache/cache"
	"github.com/goliatone/go-callcache/callcache"
	"github.com/goliatone/go-callcache/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Container provides dependency injection for call cache components.
// It owns the logger, the key normalizer and the metrics registry, and
// creates scopes and decorators configured from the same Config.
type Container struct {
	config     cache.Config
	logger     *logging.Logger
	normalizer cache.KeyNormalizer
	registry   *prometheus.Registry
}

// NewContainer creates a new DI container with the provided configuration.
func NewContainer(config cache.Config) (*Container, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("di: invalid config: %w", err)
	}

	logger, err := logging.New(config.Log)
	if err != nil {
		return nil, err
	}

	c := &Container{
		config:     config,
		logger:     logger,
		normalizer: cache.NewNormalizer(config.MaxDepth),
	}
	if config.Metrics.Enabled {
		c.registry = prometheus.NewRegistry()
	}
	return c, nil
}

// NewContainerWithDefaults creates a new DI container using default configuration.
func NewContainerWithDefaults() (*Container, error) {
	return NewContainer(cache.DefaultConfig())
}

// NewContainerFromFile loads the configuration at path (see cache.LoadConfig)
// and creates a container from it.
func NewContainerFromFile(path string) (*Container, error) {
	config, err := cache.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return NewContainer(config)
}

// Config returns a copy of the configuration used by this container.
func (c *Container) Config() cache.Config {
	return c.config
}

// Logger returns the container logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger.Logger
}

// Normalizer returns the singleton key normalizer.
func (c *Container) Normalizer() cache.KeyNormalizer {
	return c.normalizer
}

// Registry returns the Prometheus registry, or nil when metrics are disabled.
func (c *Container) Registry() *prometheus.Registry {
	return c.registry
}

// Options returns the callcache options matching the container configuration.
func (c *Container) Options() []callcache.Option {
	opts := c.baseOptions()
	if c.registry != nil {
		opts = append(opts, callcache.WithMetrics(c.registry))
	}
	return opts
}

func (c *Container) baseOptions() []callcache.Option {
	return []callcache.Option{
		callcache.WithLogger(c.logger.Logger),
		callcache.WithConfig(c.config),
		callcache.WithNormalizer(c.normalizer),
	}
}

// BeginScope opens a scope over targets.
func (c *Container) BeginScope(targets ...callcache.Target) (*callcache.Scope, error) {
	return callcache.Begin(targets, c.Options()...)
}

// Run opens a scope, runs fn and ends the scope.
func (c *Container) Run(ctx context.Context, fn func(ctx context.Context, s *callcache.Scope) error, targets ...callcache.Target) error {
	return callcache.Run(ctx, targets, fn, c.Options()...)
}

// NewDecorator creates a method decorator configured like the container scopes.
// Decorators live as long as their object and are not registered for metrics.
func (c *Container) NewDecorator(name string) *callcache.Decorator {
	return callcache.NewDecorator(name, c.baseOptions()...)
}

// Close flushes the logger and closes its files.
func (c *Container) Close() error {
	return c.logger.Close()
}

// NewCachedFunc creates a decorator named name holding fn and returns the
// cached form of fn with it.
//
// Since Go methods cannot have type parameters, this is provided as a package-level function.
// Example: NewCachedFunc(container, "GetByID", repo.GetByID)
func NewCachedFunc[A, R any](container *Container, name string, fn func(context.Context, A) (R, error)) (func(context.Context, A) (R, error), *callcache.Decorator, error) {
	d := container.NewDecorator(name)
	cached, err := callcache.Wrap1(d, name, fn)
	if err != nil {
		return nil, nil, err
	}
	return cached, d, nil
}
