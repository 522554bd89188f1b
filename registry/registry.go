// Package registry maps task type names to factories so pipelines can be
// assembled from configuration. Task packages register themselves at init
// time; config loading resolves names through a Registry.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/c360/pipekit/errors"
	"github.com/c360/pipekit/task"
)

// Factory builds a fresh task template. Each call must return an
// independent instance; blocks clone the template per worker thread.
type Factory func() (task.Task, error)

// Registry is a thread-safe name-to-factory map.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register adds a factory under the given task type name.
func (r *Registry) Register(name string, factory Factory) error {
	if name == "" {
		return errors.WrapInvalid(
			fmt.Errorf("task type name is empty: %w", errors.ErrInvalidArgument),
			"Registry", "Register", "name validation")
	}
	if factory == nil {
		return errors.WrapInvalid(
			fmt.Errorf("factory for task type %q is nil: %w", name, errors.ErrInvalidArgument),
			"Registry", "Register", "factory validation")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return errors.WrapInvalid(
			fmt.Errorf("task type %q already registered: %w", name, errors.ErrInvalidArgument),
			"Registry", "Register", "duplicate check")
	}

	r.factories[name] = factory
	return nil
}

// Create builds a new task template of the named type.
func (r *Registry) Create(name string) (task.Task, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()

	if !ok {
		return nil, errors.WrapNotFound(
			fmt.Errorf("task type %q: %w", name, errors.ErrFactoryNotFound),
			"Registry", "Create", "factory lookup")
	}

	t, err := factory()
	if err != nil {
		return nil, errors.Wrap(err, "Registry", "Create",
			fmt.Sprintf("building task of type %q", name))
	}
	if t == nil {
		return nil, errors.WrapUnreachable(
			fmt.Errorf("factory for task type %q returned nil without error: %w",
				name, errors.ErrUnreachable),
			"Registry", "Create", "factory contract check")
	}
	return t, nil
}

// Has reports whether a factory is registered under the given name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

// List returns the registered task type names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Default is the process-wide registry used by init-time registration.
var Default = NewRegistry()

// Register adds a factory to the default registry. It panics on error, for
// use from init functions where a duplicate is a programming mistake.
func Register(name string, factory Factory) {
	if err := Default.Register(name, factory); err != nil {
		panic(err)
	}
}
