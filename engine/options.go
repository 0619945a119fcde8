package engine

import (
	"log/slog"
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
)

// ============================================================================
// ENGINE OPTIONS — Functional options for NewExecutor()
// ============================================================================

// Option configures engine behavior via functional options pattern.
type Option func(*config)

type config struct {
	Logger      *slog.Logger
	Metrics     *Metrics
	Parallelism int // max KPIs and panels evaluated at once
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// WithRegisterer registers executor metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *config) {
		c.Metrics = NewMetrics(reg)
	}
}

// WithMetrics uses an already registered metrics set.
func WithMetrics(m *Metrics) Option {
	return func(c *config) {
		c.Metrics = m
	}
}

// WithParallelism bounds how many KPIs and panels run concurrently.
// n <= 0 keeps the default of GOMAXPROCS.
func WithParallelism(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.Parallelism = n
		}
	}
}

// applyOptions creates a config from functional options.
func applyOptions(opts []Option) *config {
	cfg := &config{
		Logger:      slog.New(slog.DiscardHandler),
		Parallelism: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NewMetrics(nil)
	}
	return cfg
}
