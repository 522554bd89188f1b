package task

import (
	"fmt"

	"github.com/c360/pipekit/errors"
)

// Base manages endpoint storage for a task implementation: one private
// slice per endpoint, allocated at construction. Embedding or wrapping a
// Base satisfies the storage half of the Task contract; cloning a Base
// allocates fresh slices so replicas never alias each other.
type Base struct {
	endpoints []Endpoint
	storage   map[string]any
}

// NewBase validates the endpoint list and allocates backing storage.
// Endpoint names must be unique across both directions.
func NewBase(endpoints []Endpoint) (*Base, error) {
	if len(endpoints) == 0 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("no endpoints declared: %w", errors.ErrInvalidArgument),
			"Base", "NewBase", "endpoint validation")
	}

	b := &Base{
		endpoints: make([]Endpoint, len(endpoints)),
		storage:   make(map[string]any, len(endpoints)),
	}
	copy(b.endpoints, endpoints)

	for _, ep := range b.endpoints {
		if err := ep.Validate(); err != nil {
			return nil, err
		}
		if _, exists := b.storage[ep.Name]; exists {
			return nil, errors.WrapInvalid(
				fmt.Errorf("duplicate endpoint name %q: %w", ep.Name, errors.ErrInvalidArgument),
				"Base", "NewBase", "endpoint name uniqueness")
		}
		b.storage[ep.Name] = allocate(ep)
	}

	return b, nil
}

// allocate returns a zeroed backing slice for the endpoint. The datatype is
// validated before this point, so the switch is exhaustive.
func allocate(ep Endpoint) any {
	switch ep.Datatype {
	case Int8:
		return make([]int8, ep.Count)
	case Int16:
		return make([]int16, ep.Count)
	case Int32:
		return make([]int32, ep.Count)
	case Int64:
		return make([]int64, ep.Count)
	case Float32:
		return make([]float32, ep.Count)
	case Float64:
		return make([]float64, ep.Count)
	default:
		return nil
	}
}

// Endpoints returns the ordered endpoint descriptors
func (b *Base) Endpoints() []Endpoint {
	out := make([]Endpoint, len(b.endpoints))
	copy(out, b.endpoints)
	return out
}

// Storage returns the backing slice for the named endpoint, or nil for an
// unknown name.
func (b *Base) Storage(name string) any {
	return b.storage[name]
}

// Clone allocates an independent copy with fresh zeroed storage
func (b *Base) Clone() *Base {
	clone := &Base{
		endpoints: make([]Endpoint, len(b.endpoints)),
		storage:   make(map[string]any, len(b.endpoints)),
	}
	copy(clone.endpoints, b.endpoints)
	for _, ep := range clone.endpoints {
		clone.storage[ep.Name] = allocate(ep)
	}
	return clone
}

// Slice returns the typed backing slice for the named endpoint. It fails
// with a NotFound error for unknown names and an Unreachable error when the
// requested sample type does not match the endpoint datatype.
func Slice[T Sample](b *Base, name string) ([]T, error) {
	raw, ok := b.storage[name]
	if !ok {
		return nil, errors.WrapNotFound(
			fmt.Errorf("endpoint %q: %w", name, errors.ErrEndpointNotFound),
			"Base", "Slice", "endpoint lookup")
	}
	s, ok := raw.([]T)
	if !ok {
		return nil, errors.WrapUnreachable(
			fmt.Errorf("endpoint %q storage is %T: %w", name, raw, errors.ErrUnreachable),
			"Base", "Slice", "storage type check")
	}
	return s, nil
}
