package callcache

import (
	"io"
	"os"

	"github.com/goliatone/go-callcache/cache"
	"github.com/goliatone/go-callcache/internal/cacheinfra"
	"github.com/goliatone/go-callcache/report"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Option configures scopes, decorators and interceptors.
type Option func(*options)

type options struct {
	logger     *zap.Logger
	normalizer cache.KeyNormalizer
	newStore   func() cache.Store
	hooks      *Hooks
	enabled    bool

	renderer  report.Renderer
	output    io.Writer
	reportCfg *cache.ReportConfig

	registerer prometheus.Registerer
	namespace  string
}

func defaultOptions() options {
	return options{
		logger:     zap.NewNop(),
		normalizer: cache.NewDefaultNormalizer(),
		newStore:   func() cache.Store { return cacheinfra.NewMemoryStore() },
		enabled:    true,
		renderer:   report.NewTableRenderer(report.WithColor(true)),
		output:     os.Stdout,
		namespace:  cache.DefaultConfig().Metrics.Namespace,
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.reportCfg != nil {
		o.renderer, o.output = report.FromConfig(*o.reportCfg, o.logger)
	}
	if o.hooks == nil {
		o.hooks = NewHooks()
	}
	return o
}

// WithLogger sets the logger. A nil logger keeps the no-op default.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithNormalizer replaces the key normalizer.
func WithNormalizer(n cache.KeyNormalizer) Option {
	return func(o *options) {
		if n != nil {
			o.normalizer = n
		}
	}
}

// WithStore sets the factory used to create the store of each scope or decorator.
func WithStore(newStore func() cache.Store) Option {
	return func(o *options) {
		if newStore != nil {
			o.newStore = newStore
		}
	}
}

// WithHooks attaches event hooks.
func WithHooks(h *Hooks) Option {
	return func(o *options) {
		o.hooks = h
	}
}

// WithEnabled turns interception on or off. Disabled interceptors call
// targets directly and record nothing.
func WithEnabled(enabled bool) Option {
	return func(o *options) {
		o.enabled = enabled
	}
}

// WithReporter sets how the report is rendered when a scope ends.
func WithReporter(r report.Renderer, w io.Writer) Option {
	return func(o *options) {
		o.renderer = r
		o.output = w
		o.reportCfg = nil
	}
}

// WithoutReport disables the report emitted when a scope ends.
func WithoutReport() Option {
	return WithReporter(nil, nil)
}

// WithMetrics registers a Prometheus collector for the lifetime of the scope.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithConfig applies the enabled flag, the normalization depth, the report
// settings and the metrics namespace of cfg.
func WithConfig(cfg cache.Config) Option {
	return func(o *options) {
		o.enabled = cfg.Enabled
		o.normalizer = cache.NewNormalizer(cfg.MaxDepth)
		rc := cfg.Report
		o.reportCfg = &rc
		if cfg.Metrics.Namespace != "" {
			o.namespace = cfg.Metrics.Namespace
		}
	}
}
