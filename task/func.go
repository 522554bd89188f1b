package task

import (
	"fmt"

	"github.com/c360/pipekit/errors"
)

// ExecFunc is the computation body of a Func task. It reads input endpoint
// storage and writes output endpoint storage through the replica's Base.
type ExecFunc func(*Base) error

// Func adapts a plain function into a Task. Each clone gets its own Base,
// so the function must keep all mutable state inside endpoint storage (or
// be stateless), which is the normal shape for streaming kernels.
type Func struct {
	name string
	base *Base
	fn   ExecFunc
}

// NewFunc builds a Func task template from an endpoint list and a body
func NewFunc(name string, endpoints []Endpoint, fn ExecFunc) (*Func, error) {
	if name == "" {
		return nil, errors.WrapInvalid(
			fmt.Errorf("task name is empty: %w", errors.ErrInvalidArgument),
			"Func", "NewFunc", "name validation")
	}
	if fn == nil {
		return nil, errors.WrapInvalid(
			fmt.Errorf("exec function is nil: %w", errors.ErrInvalidArgument),
			"Func", "NewFunc", "exec validation")
	}
	base, err := NewBase(endpoints)
	if err != nil {
		return nil, errors.Wrap(err, "Func", "NewFunc", "base construction")
	}
	return &Func{name: name, base: base, fn: fn}, nil
}

// Name returns the task name
func (f *Func) Name() string { return f.name }

// Endpoints returns the ordered endpoint descriptors
func (f *Func) Endpoints() []Endpoint { return f.base.Endpoints() }

// Storage returns the backing slice for the named endpoint
func (f *Func) Storage(name string) any { return f.base.Storage(name) }

// Clone returns an independent replica with fresh storage
func (f *Func) Clone() Task {
	return &Func{name: f.name, base: f.base.Clone(), fn: f.fn}
}

// Exec invokes the computation once against this replica's storage
func (f *Func) Exec() error {
	return f.fn(f.base)
}
