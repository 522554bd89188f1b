package config

import (
	"fmt"
	"log/slog"

	"github.com/c360/pipekit/block"
	"github.com/c360/pipekit/errors"
	"github.com/c360/pipekit/metric"
	"github.com/c360/pipekit/pipeline"
	"github.com/c360/pipekit/registry"
)

// Option configures pipeline assembly.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	metrics *metric.Registry
}

// WithLogger sets the logger passed to the pipeline and every block.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics enables Prometheus metrics on the pipeline and every block.
func WithMetrics(reg *metric.Registry) Option {
	return func(o *options) {
		o.metrics = reg
	}
}

// Build assembles a pipeline from the topology, resolving task types
// through reg. The returned pipeline is validated and ready to run.
func (c *Config) Build(reg *registry.Registry, opts ...Option) (*pipeline.Pipeline, error) {
	if reg == nil {
		return nil, errors.WrapInvalid(
			fmt.Errorf("task registry is nil: %w", errors.ErrInvalidArgument),
			"Config", "Build", "registry validation")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	var pipelineOpts []pipeline.Option
	pipelineOpts = append(pipelineOpts, pipeline.WithLogger(o.logger))
	if o.metrics != nil {
		pipelineOpts = append(pipelineOpts, pipeline.WithMetrics(o.metrics))
	}
	p := pipeline.New(c.Name, pipelineOpts...)

	for _, bc := range c.Blocks {
		tpl, err := reg.Create(bc.Task)
		if err != nil {
			return nil, errors.Wrap(err, "Config", "Build",
				fmt.Sprintf("resolving task type for block %q", bc.Name))
		}

		blockOpts := []block.Option{
			block.WithName(bc.Name),
			block.WithLogger(o.logger),
		}
		if o.metrics != nil {
			blockOpts = append(blockOpts, block.WithMetrics(o.metrics))
		}

		b, err := block.New(tpl, bc.Threads, bc.Buffer, blockOpts...)
		if err != nil {
			return nil, errors.Wrap(err, "Config", "Build",
				fmt.Sprintf("building block %q", bc.Name))
		}
		if err := p.Add(b); err != nil {
			return nil, err
		}
	}

	for _, bd := range c.Bindings {
		srcBlock, srcOut, err := splitEndpoint(bd.From)
		if err != nil {
			return nil, err
		}
		dstBlock, dstIn, err := splitEndpoint(bd.To)
		if err != nil {
			return nil, err
		}
		if err := p.Connect(srcBlock, srcOut, dstBlock, dstIn); err != nil {
			return nil, err
		}
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}
