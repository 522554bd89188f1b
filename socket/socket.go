// Package socket implements the buffered socket: a fixed-capacity,
// type-erased ring buffer that moves one endpoint's data between task
// replicas, decoupling producer and consumer cadence through backpressure.
//
// A socket is created per endpoint of a block and wired to the matching
// storage slice of every replica. Pop and Push are non-blocking: callers
// spin-retry around them while polling a shared stop flag. Delivery policy
// is strict FIFO with round-robin thread gating - see Buffered.
package socket

import (
	"fmt"

	"github.com/c360/pipekit/errors"
	"github.com/c360/pipekit/task"
)

// Socket is the type-erased view of a buffered socket. The concrete element
// type is fixed at construction and recoverable through Datatype; block
// logic never needs it.
type Socket interface {
	// Name returns the endpoint name this socket carries.
	Name() string

	// Direction returns whether this socket feeds replica inputs or
	// drains replica outputs.
	Direction() task.Direction

	// Datatype returns the element type tag, used for binding
	// compatibility checks.
	Datatype() task.Datatype

	// Count returns the number of elements per item.
	Count() int

	// Capacity returns the maximum number of in-flight items.
	Capacity() int

	// Pop attempts to move one item into the consuming replica's endpoint
	// storage for the given worker thread. Returns false when no item is
	// available yet, when it is not this thread's turn, or when the
	// socket is stopped. Never blocks.
	Pop(tid int) bool

	// Push attempts to move the producing replica's endpoint storage into
	// the socket. Returns false when the socket is full (backpressure),
	// when it is not this thread's turn, or when the socket is stopped.
	// Never blocks.
	Push(tid int) bool

	// Stop makes all subsequent Pop and Push calls return false so that
	// surrounding retry loops observe termination. Idempotent. A bound
	// pair shares stop state: stopping either end releases both.
	Stop()

	// Stopped reports whether Stop has been called since the last Reset.
	Stopped() bool

	// Reset restores the socket to empty and clears the stop state, for
	// pipeline reuse across runs. Only legal while no worker is running.
	Reset()

	// Bind connects dst, an input socket of matching datatype and count,
	// to consume directly from this output socket's buffer. On error
	// neither socket is modified. Only legal before the blocks run.
	Bind(dst Socket) error

	// Stats returns socket statistics (always collected).
	Stats() *Statistics
}

// New constructs a buffered socket for one endpoint, wired to the endpoint
// storage of every replica. This is the single dispatch point mapping the
// closed datatype set to concrete socket behavior; a tag outside the set is
// an Unreachable error, and replica storage that does not match the tag is
// a collaborator contract violation, also Unreachable.
//
// Capacity must be at least the replica count so every worker thread can
// hold one in-flight item simultaneously without deadlock.
func New(ep task.Endpoint, replicas []task.Task, capacity int, opts ...Option) (Socket, error) {
	if err := ep.Validate(); err != nil {
		return nil, err
	}
	if len(replicas) == 0 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("no replicas for endpoint %q: %w", ep.Name, errors.ErrInvalidArgument),
			"socket", "New", "replica validation")
	}
	if capacity < len(replicas) {
		return nil, errors.WrapInvalid(
			fmt.Errorf("'capacity' has to be equal or greater than the replica count "+
				"('capacity' = %d, replicas = %d): %w", capacity, len(replicas), errors.ErrInvalidArgument),
			"socket", "New", "capacity validation")
	}

	o := applyOptions(opts...)

	switch ep.Datatype {
	case task.Int8:
		return newBuffered[int8](ep, replicas, capacity, o)
	case task.Int16:
		return newBuffered[int16](ep, replicas, capacity, o)
	case task.Int32:
		return newBuffered[int32](ep, replicas, capacity, o)
	case task.Int64:
		return newBuffered[int64](ep, replicas, capacity, o)
	case task.Float32:
		return newBuffered[float32](ep, replicas, capacity, o)
	case task.Float64:
		return newBuffered[float64](ep, replicas, capacity, o)
	default:
		return nil, errors.WrapUnreachable(
			fmt.Errorf("datatype %s: %w", ep.Datatype, errors.ErrUnreachable),
			"socket", "New", "datatype dispatch")
	}
}
