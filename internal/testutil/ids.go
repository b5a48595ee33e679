package testutil

import (
	"fmt"
	"sync"
)

// FixedIDGenerator returns predetermined snapshot ids for testing.
//
// It satisfies store.IDGenerator, so tests can assert exact snapshot ids.
// Once the given ids run out it continues with "snapshot-<n>", counting
// every id handed out.
//
// Thread-safety: FixedIDGenerator is safe for concurrent use via internal mutex.
type FixedIDGenerator struct {
	mu  sync.Mutex
	ids []string
	n   int
}

// NewFixedIDGenerator creates a generator that returns ids in order.
//
// Example:
//
//	gen := NewFixedIDGenerator("snap-a", "snap-b")
//	gen.Generate() // "snap-a"
//	gen.Generate() // "snap-b"
//	gen.Generate() // "snapshot-3"
func NewFixedIDGenerator(ids ...string) *FixedIDGenerator {
	return &FixedIDGenerator{ids: ids}
}

// Generate returns the next id.
func (g *FixedIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.n++
	if g.n <= len(g.ids) {
		return g.ids[g.n-1]
	}
	return fmt.Sprintf("snapshot-%d", g.n)
}

// Count returns how many ids were handed out.
func (g *FixedIDGenerator) Count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.n
}
