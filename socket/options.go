package socket

import (
	"github.com/c360/pipekit/metric"
)

// Option configures socket behavior using the functional options pattern.
type Option func(*options)

type options struct {
	// metricsReg is optional - if provided, socket stats are also exposed
	// as Prometheus metrics under the given prefix.
	metricsReg    *metric.Registry
	metricsPrefix string
}

// WithMetrics enables Prometheus metrics export for socket statistics.
// If registry is nil or prefix is empty, this option is ignored.
func WithMetrics(registry *metric.Registry, prefix string) Option {
	return func(o *options) {
		if registry != nil && prefix != "" {
			o.metricsReg = registry
			o.metricsPrefix = prefix
		}
	}
}

func applyOptions(opts ...Option) *options {
	o := &options{}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}
