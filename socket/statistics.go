package socket

import (
	"sync"
	"sync/atomic"
)

// Statistics tracks socket activity. Always collected; Prometheus export
// is opt-in via WithMetrics.
type Statistics struct {
	pushes int64
	pops   int64

	mu          sync.RWMutex
	currentSize int64
	maxSize     int64
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	return &Statistics{}
}

// Push records a successful push
func (s *Statistics) Push() {
	atomic.AddInt64(&s.pushes, 1)
}

// Pop records a successful pop
func (s *Statistics) Pop() {
	atomic.AddInt64(&s.pops, 1)
}

// UpdateSize updates the current occupancy
func (s *Statistics) UpdateSize(size int64) {
	s.mu.Lock()
	s.currentSize = size
	if size > s.maxSize {
		s.maxSize = size
	}
	s.mu.Unlock()
}

// Pushes returns the total number of successful pushes
func (s *Statistics) Pushes() int64 {
	return atomic.LoadInt64(&s.pushes)
}

// Pops returns the total number of successful pops
func (s *Statistics) Pops() int64 {
	return atomic.LoadInt64(&s.pops)
}

// CurrentSize returns the occupancy after the last recorded operation
func (s *Statistics) CurrentSize() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentSize
}

// MaxSize returns the highest occupancy observed
func (s *Statistics) MaxSize() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxSize
}

// Reset resets all statistics to zero
func (s *Statistics) Reset() {
	atomic.StoreInt64(&s.pushes, 0)
	atomic.StoreInt64(&s.pops, 0)

	s.mu.Lock()
	s.currentSize = 0
	s.maxSize = 0
	s.mu.Unlock()
}
