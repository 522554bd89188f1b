package pipeline

import (
	"log/slog"

	"github.com/c360/pipekit/metric"
)

// Option configures pipeline behavior using the functional options pattern.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	metrics *metric.Registry
}

// WithLogger sets the logger used for lifecycle events.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics enables pipeline-level Prometheus metrics. Blocks carry
// their own metrics option; the pipeline only records run status.
func WithMetrics(registry *metric.Registry) Option {
	return func(o *options) {
		o.metrics = registry
	}
}

func applyOptions(opts ...Option) *options {
	o := &options{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}
