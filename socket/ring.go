package socket

import (
	"sync"
	"sync/atomic"

	"github.com/c360/pipekit/task"
)

// ring is the shared buffer behind one or two buffered sockets. After a
// bind, the producing and consuming socket reference the same ring, so its
// mutex is the only synchronization point between the two blocks. Stop
// state lives here so either end releases both.
type ring[T task.Sample] struct {
	mu       sync.Mutex
	slots    [][]T
	capacity int
	head     int // next write position
	tail     int // next read position
	size     int
	stopped  atomic.Bool
}

func newRing[T task.Sample](capacity, count int) *ring[T] {
	r := &ring[T]{
		slots:    make([][]T, capacity),
		capacity: capacity,
	}
	for i := range r.slots {
		r.slots[i] = make([]T, count)
	}
	return r
}

// tryPush copies src into the next free slot. False when full or stopped.
func (r *ring[T]) tryPush(src []T) (int, bool) {
	if r.stopped.Load() {
		return 0, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.size == r.capacity {
		return r.size, false
	}

	copy(r.slots[r.head], src)
	r.head = (r.head + 1) % r.capacity
	r.size++

	return r.size, true
}

// tryPop copies the oldest slot into dst. False when empty or stopped.
func (r *ring[T]) tryPop(dst []T) (int, bool) {
	if r.stopped.Load() {
		return 0, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.size == 0 {
		return 0, false
	}

	copy(dst, r.slots[r.tail])
	r.tail = (r.tail + 1) % r.capacity
	r.size--

	return r.size, true
}

func (r *ring[T]) stop() {
	r.stopped.Store(true)
}

// reset rewinds cursors and clears the stop state. Idempotent, so both
// bound ends may reset the shared ring.
func (r *ring[T]) reset() {
	r.mu.Lock()
	r.head = 0
	r.tail = 0
	r.size = 0
	r.mu.Unlock()
	r.stopped.Store(false)
}

func (r *ring[T]) occupancy() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}
