package executor

import "sync"

// semaphore is a counting semaphore whose capacity may only be resized
// between windows, when no goroutine holds a permit — the executor never
// calls Resize while tasks from the window being resized are still
// in-flight.
type semaphore struct {
	mu     sync.Mutex
	cond   *sync.Cond
	cap    int
	inUse  int
}

func newSemaphore(capacity int) *semaphore {
	s := &semaphore{cap: capacity}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *semaphore) Acquire() {
	s.mu.Lock()
	for s.inUse >= s.cap {
		s.cond.Wait()
	}
	s.inUse++
	s.mu.Unlock()
}

func (s *semaphore) Release() {
	s.mu.Lock()
	s.inUse--
	s.cond.Broadcast()
	s.mu.Unlock()
}

// Resize changes the semaphore's capacity. Callers must ensure no permits
// are held at the time of the call.
func (s *semaphore) Resize(capacity int) {
	s.mu.Lock()
	s.cap = capacity
	s.cond.Broadcast()
	s.mu.Unlock()
}

// windowStats summarizes one window's outcome, feeding the adaptation rule
// of spec.md §4.6.
type windowStats struct {
	bytesTransferred int64
	elapsedSeconds   float64
	partsTotal       int
	partsRetried     int
	sawSlowDown      bool
}

func (w windowStats) throughputBytesPerSec() float64 {
	if w.elapsedSeconds <= 0 {
		return 0
	}
	return float64(w.bytesTransferred) / w.elapsedSeconds
}

func (w windowStats) errorRate() float64 {
	if w.partsTotal == 0 {
		return 0
	}
	return float64(w.partsRetried) / float64(w.partsTotal)
}

// adaptConcurrency implements the per-window adaptation rule: shrink on a
// high error rate or any observed SlowDown, grow on a throughput
// improvement of more than 10% while headroom remains, otherwise hold.
func adaptConcurrency(current, max int, stats windowStats, previousThroughput float64) int {
	switch {
	case stats.errorRate() > 0.10 || stats.sawSlowDown:
		next := int(float64(current) * 0.7)
		if next < 1 {
			next = 1
		}
		return next
	case stats.throughputBytesPerSec() > previousThroughput*1.1 && current < max:
		grow := current + maxInt(1, int(float64(current)*0.25))
		if grow > max {
			grow = max
		}
		return grow
	default:
		return current
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
