package block

import (
	"log/slog"

	"github.com/c360/pipekit/metric"
)

// Option configures block behavior using the functional options pattern.
type Option func(*options)

type options struct {
	name       string
	logger     *slog.Logger
	metricsReg *metric.Registry
}

// WithName overrides the block name. By default blocks take the name of
// their task template; an override is needed when the same task type
// appears more than once in a pipeline.
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithLogger sets the logger used by worker threads.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics enables Prometheus metrics for the block and its sockets.
func WithMetrics(registry *metric.Registry) Option {
	return func(o *options) {
		o.metricsReg = registry
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
