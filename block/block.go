// Package block implements the pipeline stage: a unit of work replicated
// across worker threads, fed and drained through buffered sockets.
//
// A block owns one task replica per worker thread plus one socket per task
// endpoint. Worker threads run the same loop: pop every input, execute the
// replica, push every output, until a shared stop flag is raised. Sockets
// apply backpressure, so a slow downstream block throttles its upstream
// without any coordination beyond the buffers themselves.
package block

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360/pipekit/errors"
	"github.com/c360/pipekit/socket"
	"github.com/c360/pipekit/task"
)

// Block replicates a task across worker threads behind buffered sockets.
type Block struct {
	name       string
	nThreads   int
	bufferSize int

	// replicas[tid] is worker tid's private task clone.
	replicas []task.Task

	inputs  map[string]socket.Socket
	outputs map[string]socket.Socket

	// inputOrder and outputOrder preserve endpoint declaration order so the
	// worker loop visits sockets deterministically.
	inputOrder  []string
	outputOrder []string

	// boundInputs tracks which of this block's inputs already consume from
	// an upstream output.
	boundInputs map[string]bool

	running atomic.Bool
	wg      sync.WaitGroup

	// execErr records the first task execution error across all workers.
	execMu  sync.Mutex
	execErr error

	logger  *slog.Logger
	metrics *blockMetrics
}

// New builds a block from a task template. The template is cloned once per
// worker thread; the template itself is not executed. bufferSize is the
// capacity of every socket of the block and has to be at least nThreads so
// each worker can hold one in-flight item.
func New(tpl task.Task, nThreads, bufferSize int, opts ...Option) (*Block, error) {
	if tpl == nil {
		return nil, errors.WrapInvalid(
			fmt.Errorf("task template is nil: %w", errors.ErrNilTask),
			"Block", "New", "task validation")
	}
	if nThreads <= 0 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("'n_threads' has to be strictly positive ('n_threads' = %d): %w",
				nThreads, errors.ErrInvalidArgument),
			"Block", "New", "thread count validation")
	}
	if bufferSize < nThreads {
		return nil, errors.WrapInvalid(
			fmt.Errorf("'buffer_size' has to be greater or equal to 'n_threads' "+
				"('buffer_size' = %d, 'n_threads' = %d): %w",
				bufferSize, nThreads, errors.ErrInvalidArgument),
			"Block", "New", "buffer size validation")
	}

	o := applyOptions(opts...)

	name := o.name
	if name == "" {
		name = tpl.Name()
	}

	b := &Block{
		name:        name,
		nThreads:    nThreads,
		bufferSize:  bufferSize,
		replicas:    make([]task.Task, nThreads),
		inputs:      make(map[string]socket.Socket),
		outputs:     make(map[string]socket.Socket),
		boundInputs: make(map[string]bool),
		logger:      o.logger,
	}

	for i := range b.replicas {
		b.replicas[i] = tpl.Clone()
	}

	for _, ep := range tpl.Endpoints() {
		var socketOpts []socket.Option
		if o.metricsReg != nil {
			socketOpts = append(socketOpts,
				socket.WithMetrics(o.metricsReg, name+"."+ep.Name))
		}

		s, err := socket.New(ep, b.replicas, bufferSize, socketOpts...)
		if err != nil {
			return nil, errors.Wrap(err, "Block", "New",
				fmt.Sprintf("socket creation for endpoint %q", ep.Name))
		}

		switch ep.Direction {
		case task.DirectionInput:
			if _, exists := b.inputs[ep.Name]; exists {
				return nil, errors.WrapInvalid(
					fmt.Errorf("duplicate input endpoint %q: %w", ep.Name, errors.ErrInvalidArgument),
					"Block", "New", "endpoint registration")
			}
			b.inputs[ep.Name] = s
			b.inputOrder = append(b.inputOrder, ep.Name)
		case task.DirectionOutput:
			if _, exists := b.outputs[ep.Name]; exists {
				return nil, errors.WrapInvalid(
					fmt.Errorf("duplicate output endpoint %q: %w", ep.Name, errors.ErrInvalidArgument),
					"Block", "New", "endpoint registration")
			}
			b.outputs[ep.Name] = s
			b.outputOrder = append(b.outputOrder, ep.Name)
		}
	}

	if o.metricsReg != nil {
		m, err := newBlockMetrics(o.metricsReg, name)
		if err != nil {
			return nil, errors.Wrap(err, "Block", "New", "metrics registration")
		}
		b.metrics = m
	}

	return b, nil
}

// Name returns the block name
func (b *Block) Name() string { return b.name }

// Threads returns the number of worker threads
func (b *Block) Threads() int { return b.nThreads }

// BufferSize returns the socket capacity of the block
func (b *Block) BufferSize() int { return b.bufferSize }

// Input returns the named input socket.
func (b *Block) Input(name string) (socket.Socket, error) {
	s, ok := b.inputs[name]
	if !ok {
		return nil, errors.WrapNotFound(
			fmt.Errorf("block %q has no input %q: %w", b.name, name, errors.ErrEndpointNotFound),
			"Block", "Input", "endpoint lookup")
	}
	return s, nil
}

// Output returns the named output socket.
func (b *Block) Output(name string) (socket.Socket, error) {
	s, ok := b.outputs[name]
	if !ok {
		return nil, errors.WrapNotFound(
			fmt.Errorf("block %q has no output %q: %w", b.name, name, errors.ErrEndpointNotFound),
			"Block", "Output", "endpoint lookup")
	}
	return s, nil
}

// Inputs returns the input endpoint names in declaration order.
func (b *Block) Inputs() []string { return append([]string(nil), b.inputOrder...) }

// Outputs returns the output endpoint names in declaration order.
func (b *Block) Outputs() []string { return append([]string(nil), b.outputOrder...) }

// Bind connects this block's named output to dst's named input. After a
// successful bind, items pushed by this block's workers are the items dst's
// workers pop. Binding an already-bound input fails; a failed bind leaves
// both blocks unmodified.
func (b *Block) Bind(outputName string, dst *Block, inputName string) error {
	if dst == nil {
		return errors.WrapInvalid(
			fmt.Errorf("destination block is nil: %w", errors.ErrInvalidArgument),
			"Block", "Bind", "destination validation")
	}

	out, err := b.Output(outputName)
	if err != nil {
		return err
	}
	in, err := dst.Input(inputName)
	if err != nil {
		return err
	}

	if dst.boundInputs[inputName] {
		return errors.WrapInvalid(
			fmt.Errorf("input %q of block %q is already bound: %w",
				inputName, dst.name, errors.ErrAlreadyBound),
			"Block", "Bind", "rebind check")
	}

	if err := out.Bind(in); err != nil {
		return errors.Wrap(err,
			"Block", "Bind",
			fmt.Sprintf("binding %s.%s to %s.%s", b.name, outputName, dst.name, inputName))
	}

	dst.boundInputs[inputName] = true
	return nil
}

// Run starts the worker threads. It returns immediately; Join waits for
// them. All workers poll the shared stop flag, which is typically owned by
// the pipeline and shared across every block in it.
func (b *Block) Run(stop *atomic.Bool) error {
	if stop == nil {
		return errors.WrapInvalid(
			fmt.Errorf("stop flag is nil: %w", errors.ErrInvalidArgument),
			"Block", "Run", "stop flag validation")
	}
	if !b.running.CompareAndSwap(false, true) {
		return errors.WrapInvalid(
			fmt.Errorf("block %q: %w", b.name, errors.ErrAlreadyStarted),
			"Block", "Run", "state check")
	}

	b.execMu.Lock()
	b.execErr = nil
	b.execMu.Unlock()

	b.logger.Debug("block starting",
		"block", b.name, "threads", b.nThreads, "buffer_size", b.bufferSize)

	b.wg.Add(b.nThreads)
	for tid := 0; tid < b.nThreads; tid++ {
		go b.work(tid, stop)
	}
	return nil
}

// Join waits for all worker threads to exit and returns the first task
// execution error observed, if any.
func (b *Block) Join() error {
	if !b.running.Load() {
		return errors.WrapInvalid(
			fmt.Errorf("block %q: %w", b.name, errors.ErrNotStarted),
			"Block", "Join", "state check")
	}

	b.wg.Wait()
	b.running.Store(false)

	b.execMu.Lock()
	defer b.execMu.Unlock()
	return b.execErr
}

// Running reports whether worker threads are active
func (b *Block) Running() bool { return b.running.Load() }

// Reset restores every socket of the block to its initial empty state so
// the block can run again. Illegal while workers are running.
func (b *Block) Reset() error {
	if b.running.Load() {
		return errors.WrapInvalid(
			fmt.Errorf("cannot reset block %q while running: %w", b.name, errors.ErrInvalidArgument),
			"Block", "Reset", "state check")
	}

	for _, name := range b.inputOrder {
		b.inputs[name].Reset()
	}
	for _, name := range b.outputOrder {
		b.outputs[name].Reset()
	}

	b.execMu.Lock()
	b.execErr = nil
	b.execMu.Unlock()
	return nil
}

// work is the worker thread loop. Each iteration pops every input in
// declaration order, executes the replica, then pushes every output. Pops
// and pushes spin against socket backpressure while polling the stop flag.
// On exit the worker stops its output sockets before its input sockets, so
// downstream blocks drain out before upstream blocks are released.
func (b *Block) work(tid int, stop *atomic.Bool) {
	defer b.wg.Done()

	replica := b.replicas[tid]
	if b.metrics != nil {
		b.metrics.workerStarted()
		defer b.metrics.workerStopped()
	}

	defer func() {
		for _, name := range b.outputOrder {
			b.outputs[name].Stop()
		}
		for _, name := range b.inputOrder {
			b.inputs[name].Stop()
		}
	}()

	for !stop.Load() {
		if !b.popAll(tid, stop) {
			return
		}
		if stop.Load() {
			return
		}

		start := time.Now()
		err := replica.Exec()
		if b.metrics != nil {
			b.metrics.iteration(time.Since(start))
		}
		if err != nil {
			b.recordExecErr(tid, err)
		}

		// Outputs are pushed even after an execution error: skipping a
		// push would stall the round-robin turn order for other workers.
		if !b.pushAll(tid, stop) {
			return
		}
	}
}

// popAll fills every input endpoint of worker tid, spinning on each socket
// until an item arrives. False means the stop flag or a stopped socket was
// observed and the worker must exit.
func (b *Block) popAll(tid int, stop *atomic.Bool) bool {
	for _, name := range b.inputOrder {
		s := b.inputs[name]
		for !s.Pop(tid) {
			if stop.Load() || s.Stopped() {
				return false
			}
			runtime.Gosched()
		}
	}
	return true
}

// pushAll drains every output endpoint of worker tid, spinning on each
// socket until space is available. False means the worker must exit.
func (b *Block) pushAll(tid int, stop *atomic.Bool) bool {
	for _, name := range b.outputOrder {
		s := b.outputs[name]
		for !s.Push(tid) {
			if stop.Load() || s.Stopped() {
				return false
			}
			runtime.Gosched()
		}
	}
	return true
}

// recordExecErr keeps the first execution error and logs every one.
func (b *Block) recordExecErr(tid int, err error) {
	wrapped := errors.Wrap(err, "Block", "Exec",
		fmt.Sprintf("task execution in block %q worker %d", b.name, tid))

	b.execMu.Lock()
	if b.execErr == nil {
		b.execErr = wrapped
	}
	b.execMu.Unlock()

	b.logger.Error("task execution failed",
		"block", b.name, "worker", tid, "error", err)

	if b.metrics != nil {
		b.metrics.execError()
	}
}
