package manager

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/taskmgr/internal/task"
)

// newTestManager creates a store that discards logs.
func newTestManager(t *testing.T, opts ...Option) *Manager {
	t.Helper()
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return New(opts...)
}

// mustCreate creates item and fails the test on error.
func mustCreate(t *testing.T, m *Manager, item *task.Item) *task.Item {
	t.Helper()
	created, err := m.Create(item)
	require.NoError(t, err)
	return created
}

// historyIDs returns the ids in the store's history.
func historyIDs(m *Manager) []int {
	items := m.History()
	ids := make([]int, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}

// listIDs returns the ids of kind in the store.
func listIDs(m *Manager, kind task.Kind) []int {
	items := m.List(kind)
	ids := make([]int, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}

// memoryBackend keeps the last snapshot as a deep copy.
type memoryBackend struct {
	snap    task.Snapshot
	saves   int
	failErr error
	history bool
}

func (b *memoryBackend) Save(_ context.Context, snap task.Snapshot) error {
	if b.failErr != nil {
		return b.failErr
	}
	b.snap = snap.Clone()
	b.saves++
	return nil
}

func (b *memoryBackend) Load(_ context.Context) (task.Snapshot, error) {
	if b.failErr != nil {
		return task.Snapshot{}, b.failErr
	}
	return b.snap.Clone(), nil
}

func (b *memoryBackend) KeepsHistory() bool { return b.history }

var errDiskFull = errors.New("disk full")
