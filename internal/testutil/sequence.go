package testutil

import "sync"

// Sequence numbers the steps of a scenario trace.
//
// The first call to Next returns 1. Reset starts over, so a harness can
// replay the same scenario and get identical step numbers.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Sequence struct {
	mu sync.Mutex
	n  int
}

// NewSequence creates a sequence starting at 0.
func NewSequence() *Sequence {
	return &Sequence{}
}

// Next increments and returns the next number.
func (s *Sequence) Next() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return s.n
}

// Current returns the last number handed out, 0 before the first Next.
func (s *Sequence) Current() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}

// Reset rewinds the sequence to 0.
func (s *Sequence) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n = 0
}
