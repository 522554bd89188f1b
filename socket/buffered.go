package socket

import (
	"fmt"

	"github.com/c360/pipekit/errors"
	"github.com/c360/pipekit/task"
)

// Buffered is the typed buffered socket over one shared ring.
//
// Delivery policy: strict FIFO with round-robin thread gating. Push(tid)
// succeeds only when it is tid's turn in round-robin order over this end's
// replica count, and likewise for Pop, so replica t always handles items
// t, t+n, t+2n, ... and the global item order on the ring matches the feed
// order regardless of which replica finishes its computation first. When
// two bound blocks have different thread counts, each end round-robins
// over its own count; channel order is still strict FIFO.
//
// Write and Read give external code (feeders, collectors, tests) direct
// unguarded access to the ring and must only be used on endpoints that are
// not bound to another block.
type Buffered[T task.Sample] struct {
	name      string
	direction task.Direction
	datatype  task.Datatype
	count     int
	capacity  int

	// endpoints[tid] is replica tid's private storage for this endpoint.
	endpoints [][]T

	// ring is replaced on the consuming end by Bind. turn is this end's
	// round-robin cursor, guarded by the ring mutex.
	ring *ring[T]
	turn int

	stats   *Statistics
	metrics *socketMetrics
}

func newBuffered[T task.Sample](
	ep task.Endpoint, replicas []task.Task, capacity int, o *options,
) (Socket, error) {
	if dt, ok := task.DatatypeOf[T](); !ok || dt != ep.Datatype {
		return nil, errors.WrapUnreachable(
			fmt.Errorf("endpoint %q dispatched to the wrong element type: %w",
				ep.Name, errors.ErrUnreachable),
			"socket", "newBuffered", "datatype dispatch check")
	}

	endpoints := make([][]T, len(replicas))
	for i, r := range replicas {
		raw := r.Storage(ep.Name)
		s, ok := raw.([]T)
		if !ok {
			return nil, errors.WrapUnreachable(
				fmt.Errorf("replica %d storage for endpoint %q is %T, want []%s: %w",
					i, ep.Name, raw, ep.Datatype, errors.ErrUnreachable),
				"socket", "newBuffered", "replica storage check")
		}
		if len(s) != ep.Count {
			return nil, errors.WrapUnreachable(
				fmt.Errorf("replica %d storage for endpoint %q has length %d, want %d: %w",
					i, ep.Name, len(s), ep.Count, errors.ErrUnreachable),
				"socket", "newBuffered", "replica storage length check")
		}
		endpoints[i] = s
	}

	var metrics *socketMetrics
	if o.metricsReg != nil && o.metricsPrefix != "" {
		var err error
		metrics, err = newSocketMetrics(o.metricsReg, o.metricsPrefix)
		if err != nil {
			return nil, errors.Wrap(err, "socket", "newBuffered", "metrics registration")
		}
	}

	return &Buffered[T]{
		name:      ep.Name,
		direction: ep.Direction,
		datatype:  ep.Datatype,
		count:     ep.Count,
		capacity:  capacity,
		endpoints: endpoints,
		ring:      newRing[T](capacity, ep.Count),
		stats:     NewStatistics(),
		metrics:   metrics,
	}, nil
}

// Name returns the endpoint name
func (s *Buffered[T]) Name() string { return s.name }

// Direction returns the endpoint direction
func (s *Buffered[T]) Direction() task.Direction { return s.direction }

// Datatype returns the element type tag
func (s *Buffered[T]) Datatype() task.Datatype { return s.datatype }

// Count returns the number of elements per item
func (s *Buffered[T]) Count() int { return s.count }

// Capacity returns the maximum number of in-flight items
func (s *Buffered[T]) Capacity() int { return s.capacity }

// Pop moves one item into replica tid's endpoint storage. False when it is
// not tid's turn, the buffer is empty, or the socket is stopped.
func (s *Buffered[T]) Pop(tid int) bool {
	r := s.ring
	if r.stopped.Load() {
		return false
	}

	r.mu.Lock()
	if s.turn%len(s.endpoints) != tid || r.size == 0 {
		r.mu.Unlock()
		return false
	}

	copy(s.endpoints[tid], r.slots[r.tail])
	r.tail = (r.tail + 1) % r.capacity
	r.size--
	s.turn++
	occupancy := r.size
	r.mu.Unlock()

	s.stats.Pop()
	s.stats.UpdateSize(int64(occupancy))
	if s.metrics != nil {
		s.metrics.recordPop(occupancy, s.capacity)
	}
	return true
}

// Push moves replica tid's endpoint storage into the buffer. False when it
// is not tid's turn, the buffer is full (backpressure), or the socket is
// stopped.
func (s *Buffered[T]) Push(tid int) bool {
	r := s.ring
	if r.stopped.Load() {
		return false
	}

	r.mu.Lock()
	if s.turn%len(s.endpoints) != tid || r.size == r.capacity {
		r.mu.Unlock()
		return false
	}

	copy(r.slots[r.head], s.endpoints[tid])
	r.head = (r.head + 1) % r.capacity
	r.size++
	s.turn++
	occupancy := r.size
	r.mu.Unlock()

	s.stats.Push()
	s.stats.UpdateSize(int64(occupancy))
	if s.metrics != nil {
		s.metrics.recordPush(occupancy, s.capacity)
	}
	return true
}

// Write copies one item from values into the buffer, bypassing thread
// gating. For external feeders on unbound input endpoints. False when the
// buffer is full or stopped.
func (s *Buffered[T]) Write(values []T) bool {
	occupancy, ok := s.ring.tryPush(values)
	if !ok {
		return false
	}
	s.stats.Push()
	s.stats.UpdateSize(int64(occupancy))
	if s.metrics != nil {
		s.metrics.recordPush(occupancy, s.capacity)
	}
	return true
}

// Read copies the oldest item into dst, bypassing thread gating. For
// external collectors on unbound output endpoints. False when the buffer
// is empty or stopped.
func (s *Buffered[T]) Read(dst []T) bool {
	occupancy, ok := s.ring.tryPop(dst)
	if !ok {
		return false
	}
	s.stats.Pop()
	s.stats.UpdateSize(int64(occupancy))
	if s.metrics != nil {
		s.metrics.recordPop(occupancy, s.capacity)
	}
	return true
}

// Stop makes all subsequent Pop and Push calls return false. Idempotent.
func (s *Buffered[T]) Stop() {
	s.ring.stop()
}

// Stopped reports whether the socket is stopped
func (s *Buffered[T]) Stopped() bool {
	return s.ring.stopped.Load()
}

// Reset empties the buffer, rewinds the round-robin cursor, and clears the
// stop state for reuse across runs.
func (s *Buffered[T]) Reset() {
	s.ring.reset()
	s.ring.mu.Lock()
	s.turn = 0
	s.ring.mu.Unlock()
	s.stats.UpdateSize(0)
	if s.metrics != nil {
		s.metrics.updateSize(0, s.capacity)
	}
}

// Bind connects dst to consume from this socket's ring. All checks happen
// before any mutation, so a failed bind leaves both sockets untouched.
func (s *Buffered[T]) Bind(dst Socket) error {
	if s.direction != task.DirectionOutput {
		return errors.WrapInvalid(
			fmt.Errorf("cannot bind from %s endpoint %q: %w", s.direction, s.name, errors.ErrInvalidArgument),
			"socket", "Bind", "source direction check")
	}
	if dst.Direction() != task.DirectionInput {
		return errors.WrapInvalid(
			fmt.Errorf("cannot bind to %s endpoint %q: %w", dst.Direction(), dst.Name(), errors.ErrInvalidArgument),
			"socket", "Bind", "destination direction check")
	}
	if dst.Datatype() != s.datatype {
		return errors.WrapTypeMismatch(
			fmt.Errorf("output %q is %s, input %q is %s: %w",
				s.name, s.datatype, dst.Name(), dst.Datatype(), errors.ErrTypeMismatch),
			"socket", "Bind", "datatype check")
	}
	if dst.Count() != s.count {
		return errors.WrapTypeMismatch(
			fmt.Errorf("output %q carries %d elements, input %q carries %d: %w",
				s.name, s.count, dst.Name(), dst.Count(), errors.ErrTypeMismatch),
			"socket", "Bind", "element count check")
	}

	d, ok := dst.(*Buffered[T])
	if !ok {
		return errors.WrapUnreachable(
			fmt.Errorf("matching datatype tags but incompatible socket types: %w", errors.ErrUnreachable),
			"socket", "Bind", "concrete type check")
	}

	d.ring = s.ring
	return nil
}

// Stats returns socket statistics
func (s *Buffered[T]) Stats() *Statistics {
	return s.stats
}
