package manager

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/taskmgr/internal/task"
)

func quietLogger() Option {
	return WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func openPersistent(t *testing.T, backend Backend) *Persistent {
	t.Helper()
	p, err := Open(context.Background(), backend, quietLogger())
	require.NoError(t, err)
	return p
}

func TestPersistent_SavesAfterEveryMutation(t *testing.T) {
	ctx := context.Background()
	backend := &memoryBackend{}
	p := openPersistent(t, backend)

	tk, err := p.Create(ctx, task.NewTask("t", "", task.StatusNew))
	require.NoError(t, err)
	assert.Equal(t, 1, backend.saves)

	tk.Status = task.StatusDone
	_, err = p.Update(ctx, tk)
	require.NoError(t, err)
	assert.Equal(t, 2, backend.saves)
	assert.Equal(t, task.StatusDone, backend.snap.Tasks[0].Status)

	removed, err := p.Delete(ctx, task.KindTask, tk.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, 3, backend.saves)
	assert.Empty(t, backend.snap.Tasks)

	require.NoError(t, p.Clear(ctx, task.KindEpic))
	assert.Equal(t, 4, backend.saves)
}

func TestPersistent_ReadsAndNoopsDoNotSave(t *testing.T) {
	ctx := context.Background()
	backend := &memoryBackend{}
	p := openPersistent(t, backend)

	tk, err := p.Create(ctx, task.NewTask("t", "", task.StatusNew))
	require.NoError(t, err)

	_, ok, err := p.Get(ctx, task.KindTask, tk.ID)
	require.NoError(t, err)
	require.True(t, ok)
	p.List(task.KindTask)
	p.History()

	removed, err := p.Delete(ctx, task.KindTask, 999)
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = p.Update(ctx, task.NewTask("never created", "", task.StatusNew))
	assert.True(t, task.IsMissingIdentifier(err))

	assert.Equal(t, 1, backend.saves)
	assert.Nil(t, backend.snap.History, "history is not handed to backends that do not keep it")
}

func TestPersistent_HistoryKeeperSavesVisits(t *testing.T) {
	ctx := context.Background()
	backend := &memoryBackend{history: true}
	p := openPersistent(t, backend)

	a, err := p.Create(ctx, task.NewTask("a", "", task.StatusNew))
	require.NoError(t, err)
	b, err := p.Create(ctx, task.NewTask("b", "", task.StatusNew))
	require.NoError(t, err)

	_, _, err = p.Get(ctx, task.KindTask, b.ID)
	require.NoError(t, err)
	_, _, err = p.Get(ctx, task.KindTask, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{b.ID, a.ID}, backend.snap.History)

	reopened := openPersistent(t, backend)
	assert.Equal(t, []int{b.ID, a.ID}, historyIDs(reopened.Manager()))
}

func TestPersistent_SaveFailureIsReported(t *testing.T) {
	ctx := context.Background()
	backend := &memoryBackend{}
	p := openPersistent(t, backend)
	backend.failErr = errDiskFull

	created, err := p.Create(ctx, task.NewTask("t", "", task.StatusNew))
	require.Error(t, err)
	assert.True(t, task.IsPersistence(err))
	assert.ErrorIs(t, err, errDiskFull)
	require.NotNil(t, created, "in-memory effect is kept")
	assert.Len(t, p.List(task.KindTask), 1)

	backend.failErr = nil
	require.NoError(t, p.Save(ctx))
	assert.Len(t, backend.snap.Tasks, 1)
}

func TestPersistent_LoadFailure(t *testing.T) {
	_, err := Open(context.Background(), &memoryBackend{failErr: errDiskFull}, quietLogger())
	require.Error(t, err)
	assert.True(t, task.IsPersistence(err))
}

func TestPersistent_RoundTrip(t *testing.T) {
	ctx := context.Background()
	backend := &memoryBackend{}
	p := openPersistent(t, backend)

	_, err := p.Create(ctx, task.NewTask("Task 1", "Description 1", task.StatusNew))
	require.NoError(t, err)
	_, err = p.Create(ctx, task.NewTask("Task 2", "Description 2", task.StatusInProgress))
	require.NoError(t, err)
	epic, err := p.Create(ctx, task.NewEpic("Epic 1", "Epic description"))
	require.NoError(t, err)
	_, err = p.Create(ctx, task.NewSubtask("Subtask 1", "Subtask description 1", task.StatusDone, epic.ID))
	require.NoError(t, err)
	_, err = p.Create(ctx, task.NewSubtask("Subtask 2", "Subtask description 2", task.StatusNew, epic.ID))
	require.NoError(t, err)
	require.Equal(t, task.StatusInProgress, epic.Status)

	reloaded := openPersistent(t, backend)
	want := p.Manager().Snapshot().Clone()
	got := reloaded.Manager().Snapshot().Clone()
	want.History, got.History = nil, nil
	assert.Equal(t, want, got)

	reEpic, ok, err := reloaded.Get(ctx, task.KindEpic, epic.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, task.StatusInProgress, reEpic.Status)
	assert.Len(t, reEpic.SubtaskIDs(), 2)

	next, err := reloaded.Create(ctx, task.NewTask("after reload", "", task.StatusNew))
	require.NoError(t, err)
	for _, kind := range task.Kinds {
		for _, it := range p.List(kind) {
			assert.Greater(t, next.ID, it.ID)
		}
	}
}
