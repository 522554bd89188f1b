// Package pipeline assembles blocks into a dataflow graph and drives their
// lifecycle as a unit: one shared stop flag, one start, one join.
//
// A pipeline never moves data itself. Connections are socket binds between
// blocks, so items flow worker-to-worker through the buffered sockets;
// the pipeline only validates the graph shape and fans lifecycle calls out
// to its blocks.
package pipeline

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/c360/pipekit/block"
	"github.com/c360/pipekit/errors"
	"github.com/c360/pipekit/metric"
)

// binding records one output-to-input connection between two blocks.
type binding struct {
	srcBlock string
	srcOut   string
	dstBlock string
	dstIn    string
}

// Pipeline is a set of connected blocks sharing a single stop flag.
type Pipeline struct {
	name string

	blocks   map[string]*block.Block
	order    []string
	bindings []binding

	stop    atomic.Bool
	running atomic.Bool

	// runID tags the log lines of one Run/Join cycle.
	runID string

	logger  *slog.Logger
	metrics *metric.Registry
}

// New creates an empty pipeline.
func New(name string, opts ...Option) *Pipeline {
	if name == "" {
		name = "pipeline"
	}
	o := applyOptions(opts...)
	return &Pipeline{
		name:    name,
		blocks:  make(map[string]*block.Block),
		logger:  o.logger,
		metrics: o.metrics,
	}
}

// Name returns the pipeline name
func (p *Pipeline) Name() string { return p.name }

// Add registers a block with the pipeline. Block names must be unique.
func (p *Pipeline) Add(b *block.Block) error {
	if b == nil {
		return errors.WrapInvalid(
			fmt.Errorf("block is nil: %w", errors.ErrInvalidArgument),
			"Pipeline", "Add", "block validation")
	}
	if p.running.Load() {
		return errors.WrapInvalid(
			fmt.Errorf("cannot add block %q while pipeline is running: %w",
				b.Name(), errors.ErrInvalidArgument),
			"Pipeline", "Add", "state check")
	}
	if _, exists := p.blocks[b.Name()]; exists {
		return errors.WrapInvalid(
			fmt.Errorf("block %q already added: %w", b.Name(), errors.ErrInvalidArgument),
			"Pipeline", "Add", "duplicate check")
	}

	p.blocks[b.Name()] = b
	p.order = append(p.order, b.Name())
	return nil
}

// Block returns the named block.
func (p *Pipeline) Block(name string) (*block.Block, error) {
	b, ok := p.blocks[name]
	if !ok {
		return nil, errors.WrapNotFound(
			fmt.Errorf("pipeline %q has no block %q: %w", p.name, name, errors.ErrBlockNotFound),
			"Pipeline", "Block", "block lookup")
	}
	return b, nil
}

// Blocks returns the block names in the order they were added.
func (p *Pipeline) Blocks() []string { return append([]string(nil), p.order...) }

// Connect binds srcBlock's named output to dstBlock's named input.
func (p *Pipeline) Connect(srcBlock, outputName, dstBlock, inputName string) error {
	if p.running.Load() {
		return errors.WrapInvalid(
			fmt.Errorf("cannot connect while pipeline is running: %w", errors.ErrInvalidArgument),
			"Pipeline", "Connect", "state check")
	}

	src, err := p.Block(srcBlock)
	if err != nil {
		return err
	}
	dst, err := p.Block(dstBlock)
	if err != nil {
		return err
	}

	if err := src.Bind(outputName, dst, inputName); err != nil {
		return err
	}

	p.bindings = append(p.bindings, binding{
		srcBlock: srcBlock,
		srcOut:   outputName,
		dstBlock: dstBlock,
		dstIn:    inputName,
	})

	p.logger.Debug("blocks connected",
		"pipeline", p.name,
		"from", srcBlock+"."+outputName,
		"to", dstBlock+"."+inputName)
	return nil
}

// dfsColor is the node state used by cycle detection.
type dfsColor uint8

const (
	colorWhite dfsColor = iota // not visited
	colorGray                  // on the current DFS path
	colorBlack                 // fully explored
)

// Validate checks the graph shape: the pipeline has at least one block and
// the binding graph is acyclic. A cycle would deadlock the worker loops,
// every block waiting on its own output to drain.
func (p *Pipeline) Validate() error {
	if len(p.blocks) == 0 {
		return errors.WrapInvalid(
			fmt.Errorf("pipeline %q has no blocks: %w", p.name, errors.ErrInvalidArgument),
			"Pipeline", "Validate", "graph check")
	}

	adjacency := make(map[string][]string, len(p.blocks))
	for _, bd := range p.bindings {
		adjacency[bd.srcBlock] = append(adjacency[bd.srcBlock], bd.dstBlock)
	}

	colors := make(map[string]dfsColor, len(p.blocks))

	var visit func(name string) []string
	visit = func(name string) []string {
		colors[name] = colorGray
		for _, next := range adjacency[name] {
			switch colors[next] {
			case colorGray:
				return []string{next, name}
			case colorWhite:
				if cycle := visit(next); cycle != nil {
					return append(cycle, name)
				}
			}
		}
		colors[name] = colorBlack
		return nil
	}

	for _, name := range p.order {
		if colors[name] != colorWhite {
			continue
		}
		if cycle := visit(name); cycle != nil {
			return errors.WrapInvalid(
				fmt.Errorf("pipeline %q contains a cycle through block %q: %w",
					p.name, cycle[0], errors.ErrInvalidArgument),
				"Pipeline", "Validate", "cycle detection")
		}
	}

	return nil
}

// Run validates the graph and starts every block's workers against the
// shared stop flag. It returns immediately; Join waits for completion.
func (p *Pipeline) Run() error {
	if !p.running.CompareAndSwap(false, true) {
		return errors.WrapInvalid(
			fmt.Errorf("pipeline %q: %w", p.name, errors.ErrAlreadyStarted),
			"Pipeline", "Run", "state check")
	}

	if err := p.Validate(); err != nil {
		p.running.Store(false)
		return err
	}

	p.stop.Store(false)
	p.runID = uuid.NewString()

	p.logger.Info("pipeline starting",
		"pipeline", p.name, "run_id", p.runID, "blocks", len(p.blocks))

	started := make([]string, 0, len(p.order))
	for _, name := range p.order {
		if err := p.blocks[name].Run(&p.stop); err != nil {
			// Release the blocks that did start before reporting.
			p.stop.Store(true)
			for _, s := range started {
				_ = p.blocks[s].Join()
			}
			p.running.Store(false)
			return errors.Wrap(err, "Pipeline", "Run",
				fmt.Sprintf("starting block %q", name))
		}
		started = append(started, name)
	}

	if p.metrics != nil {
		p.metrics.Core.RecordPipelineStatus(p.name, true)
	}
	return nil
}

// Stop raises the shared stop flag. Worker threads observe it and exit;
// Join reports when they all have. Idempotent.
func (p *Pipeline) Stop() {
	p.stop.Store(true)
}

// Join waits for every block's workers to exit and returns the first task
// execution error observed across the pipeline, if any.
func (p *Pipeline) Join() error {
	if !p.running.Load() {
		return errors.WrapInvalid(
			fmt.Errorf("pipeline %q: %w", p.name, errors.ErrNotStarted),
			"Pipeline", "Join", "state check")
	}

	var firstErr error
	for _, name := range p.order {
		if err := p.blocks[name].Join(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	p.running.Store(false)
	if p.metrics != nil {
		p.metrics.Core.RecordPipelineStatus(p.name, false)
		status := "ok"
		if firstErr != nil {
			status = "error"
		}
		p.metrics.Core.RecordPipelineRun(p.name, status)
	}

	p.logger.Info("pipeline stopped",
		"pipeline", p.name, "run_id", p.runID, "error", firstErr)
	return firstErr
}

// Running reports whether the pipeline workers are active
func (p *Pipeline) Running() bool { return p.running.Load() }

// Reset clears the stop flag and restores every block for another run.
// Illegal while running.
func (p *Pipeline) Reset() error {
	if p.running.Load() {
		return errors.WrapInvalid(
			fmt.Errorf("cannot reset pipeline %q while running: %w",
				p.name, errors.ErrInvalidArgument),
			"Pipeline", "Reset", "state check")
	}

	for _, name := range p.order {
		if err := p.blocks[name].Reset(); err != nil {
			return errors.Wrap(err, "Pipeline", "Reset",
				fmt.Sprintf("resetting block %q", name))
		}
	}
	p.stop.Store(false)
	return nil
}
