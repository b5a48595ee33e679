package manager

import (
	"context"

	"github.com/roach88/taskmgr/internal/task"
)

// MemoryBackend keeps the last snapshot in process memory. Nothing outlives
// the process.
type MemoryBackend struct {
	snap task.Snapshot
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

// Save keeps a copy of snap.
func (b *MemoryBackend) Save(ctx context.Context, snap task.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.snap = snap.Clone()
	return nil
}

// Load returns a copy of the last saved snapshot.
func (b *MemoryBackend) Load(ctx context.Context) (task.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return task.Snapshot{}, err
	}
	return b.snap.Clone(), nil
}

// KeepsHistory reports that the view history is kept.
func (b *MemoryBackend) KeepsHistory() bool {
	return true
}
