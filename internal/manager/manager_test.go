package manager

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/taskmgr/internal/history"
	"github.com/roach88/taskmgr/internal/task"
)

func TestCreate_AssignsUniqueIDsAcrossKinds(t *testing.T) {
	m := newTestManager(t)

	t1 := mustCreate(t, m, task.NewTask("Task 1", "", task.StatusNew))
	e1 := mustCreate(t, m, task.NewEpic("Epic 1", ""))
	s1 := mustCreate(t, m, task.NewSubtask("Sub 1", "", task.StatusNew, e1.ID))
	t2 := mustCreate(t, m, task.NewTask("Task 2", "", task.StatusDone))

	seen := map[int]bool{}
	for _, it := range []*task.Item{t1, e1, s1, t2} {
		assert.NotZero(t, it.ID)
		assert.False(t, seen[it.ID], "id %d issued twice", it.ID)
		seen[it.ID] = true
	}
	assert.Equal(t, []int{1, 2, 3, 4}, []int{t1.ID, e1.ID, s1.ID, t2.ID})
	assert.Equal(t, 5, m.NextID())
}

func TestCreate_OverwritesCallerID(t *testing.T) {
	m := newTestManager(t)
	existing := mustCreate(t, m, task.NewTask("first", "", task.StatusNew))

	clash := task.NewTask("second", "", task.StatusNew)
	clash.ID = existing.ID
	created := mustCreate(t, m, clash)

	assert.NotEqual(t, existing.ID, created.ID)
	assert.Len(t, m.List(task.KindTask), 2)
}

func TestCreate_IDsNeverReused(t *testing.T) {
	m := newTestManager(t)
	first := mustCreate(t, m, task.NewTask("a", "", task.StatusNew))
	require.True(t, m.Delete(task.KindTask, first.ID))

	second := mustCreate(t, m, task.NewTask("b", "", task.StatusNew))
	assert.Greater(t, second.ID, first.ID)
}

func TestCreate_ReturnsSameHandle(t *testing.T) {
	m := newTestManager(t)
	in := task.NewTask("a", "", task.StatusNew)
	out := mustCreate(t, m, in)
	assert.Same(t, in, out)

	got, ok := m.Get(task.KindTask, out.ID)
	require.True(t, ok)
	assert.Same(t, in, got)
}

func TestCreate_RejectsInvalidItems(t *testing.T) {
	m := newTestManager(t)

	_, err := m.Create(nil)
	assert.Equal(t, task.ErrCodeInvalidItem, task.CodeOf(err))

	_, err = m.Create(&task.Item{Name: "no kind"})
	assert.Equal(t, task.ErrCodeInvalidItem, task.CodeOf(err))

	stored := mustCreate(t, m, task.NewTask("a", "", task.StatusNew))
	_, err = m.Create(stored)
	assert.Equal(t, task.ErrCodeInvalidItem, task.CodeOf(err))
	assert.Len(t, m.List(task.KindTask), 1)
	assert.Equal(t, 2, m.NextID())
}

func TestCreate_EpicStatusIgnoresCaller(t *testing.T) {
	m := newTestManager(t)
	epic := task.NewEpic("e", "")
	epic.Status = task.StatusDone

	created := mustCreate(t, m, epic)
	assert.Equal(t, task.StatusNew, created.Status)
}

func TestCreate_SubtaskSelfReference(t *testing.T) {
	m := newTestManager(t)
	mustCreate(t, m, task.NewTask("a", "", task.StatusNew))

	// Next id is 2; a subtask naming 2 as its epic would reference itself.
	sub := task.NewSubtask("self", "", task.StatusNew, 2)
	_, err := m.Create(sub)
	require.Error(t, err)
	assert.True(t, task.IsSelfReference(err))

	assert.Empty(t, m.List(task.KindSubtask))
	assert.Equal(t, 2, m.NextID(), "failed create must not consume an id")
	assert.Zero(t, sub.ID)
}

func TestCreate_OrphanSubtask(t *testing.T) {
	m := newTestManager(t)
	orphan := mustCreate(t, m, task.NewSubtask("orphan", "", task.StatusDone, 999))

	assert.Equal(t, []int{orphan.ID}, listIDs(m, task.KindSubtask))
	assert.Empty(t, m.List(task.KindEpic))
}

func TestEpicStatusRollUp(t *testing.T) {
	tests := []struct {
		name     string
		statuses []task.Status
		want     task.Status
	}{
		{"no subtasks", nil, task.StatusNew},
		{"new and in progress", []task.Status{task.StatusNew, task.StatusInProgress}, task.StatusInProgress},
		{"done and done", []task.Status{task.StatusDone, task.StatusDone}, task.StatusDone},
		{"new and new", []task.Status{task.StatusNew, task.StatusNew}, task.StatusNew},
		{"new and done", []task.Status{task.StatusNew, task.StatusDone}, task.StatusInProgress},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestManager(t)
			epic := mustCreate(t, m, task.NewEpic("e", ""))
			for _, s := range tt.statuses {
				mustCreate(t, m, task.NewSubtask("s", "", s, epic.ID))
			}
			assert.Equal(t, tt.want, epic.Status)
		})
	}
}

func TestEpicStatus_FollowsSubtaskUpdatesAndDeletes(t *testing.T) {
	m := newTestManager(t)
	epic := mustCreate(t, m, task.NewEpic("e", ""))
	a := mustCreate(t, m, task.NewSubtask("a", "", task.StatusNew, epic.ID))
	b := mustCreate(t, m, task.NewSubtask("b", "", task.StatusNew, epic.ID))
	assert.Equal(t, task.StatusNew, epic.Status)

	a.Status = task.StatusDone
	_, err := m.Update(a)
	require.NoError(t, err)
	assert.Equal(t, task.StatusInProgress, epic.Status)

	// Update with a fresh record rather than the stored handle.
	replacement := task.NewSubtask("b2", "", task.StatusDone, epic.ID)
	replacement.ID = b.ID
	_, err = m.Update(replacement)
	require.NoError(t, err)
	assert.Equal(t, task.StatusDone, epic.Status)

	require.True(t, m.Delete(task.KindSubtask, a.ID))
	assert.Equal(t, task.StatusDone, epic.Status)
	assert.Equal(t, []int{b.ID}, epic.SubtaskIDs())

	require.True(t, m.Delete(task.KindSubtask, b.ID))
	assert.Equal(t, task.StatusNew, epic.Status)
}

func TestUpdate_MissingIdentifierLeavesStoreUnchanged(t *testing.T) {
	m := newTestManager(t)
	mustCreate(t, m, task.NewTask("t", "", task.StatusNew))
	epic := mustCreate(t, m, task.NewEpic("e", ""))
	mustCreate(t, m, task.NewSubtask("s", "", task.StatusInProgress, epic.ID))
	_, _ = m.Get(task.KindEpic, epic.ID)

	before := m.Snapshot().Clone()
	nextBefore := m.NextID()

	for _, item := range []*task.Item{
		task.NewTask("never created", "", task.StatusDone),
		task.NewEpic("never created", ""),
		task.NewSubtask("never created", "", task.StatusDone, epic.ID),
	} {
		_, err := m.Update(item)
		require.Error(t, err)
		assert.True(t, task.IsMissingIdentifier(err), "kind %s", item.Kind)
		assert.False(t, task.IsNotFound(err))
	}

	assert.Equal(t, before, m.Snapshot().Clone())
	assert.Equal(t, nextBefore, m.NextID())
}

func TestUpdate_UnknownIDIsNotFound(t *testing.T) {
	m := newTestManager(t)
	ghost := task.NewTask("ghost", "", task.StatusNew)
	ghost.ID = 41

	_, err := m.Update(ghost)
	require.Error(t, err)
	assert.True(t, task.IsNotFound(err))
	assert.Empty(t, m.List(task.KindTask))
}

func TestUpdate_ReplacesRecord(t *testing.T) {
	m := newTestManager(t)
	orig := mustCreate(t, m, task.NewTask("old", "", task.StatusNew))

	repl := task.NewTask("new", "desc", task.StatusInProgress)
	repl.ID = orig.ID
	_, err := m.Update(repl)
	require.NoError(t, err)

	got, ok := m.Get(task.KindTask, orig.ID)
	require.True(t, ok)
	assert.Same(t, repl, got)
	assert.Equal(t, "new", got.Name)
}

func TestUpdate_EpicKeepsChildrenAndDerivedStatus(t *testing.T) {
	m := newTestManager(t)
	epic := mustCreate(t, m, task.NewEpic("e", ""))
	sub := mustCreate(t, m, task.NewSubtask("s", "", task.StatusInProgress, epic.ID))

	repl := task.NewEpic("renamed", "new description")
	repl.ID = epic.ID
	repl.Status = task.StatusDone
	_, err := m.Update(repl)
	require.NoError(t, err)

	got, ok := m.Get(task.KindEpic, epic.ID)
	require.True(t, ok)
	assert.Equal(t, "renamed", got.Name)
	assert.Equal(t, task.StatusInProgress, got.Status, "caller status must be overwritten")
	assert.Equal(t, []int{sub.ID}, got.SubtaskIDs())
}

func TestUpdate_SubtaskCannotChangeEpic(t *testing.T) {
	m := newTestManager(t)
	e1 := mustCreate(t, m, task.NewEpic("e1", ""))
	e2 := mustCreate(t, m, task.NewEpic("e2", ""))
	sub := mustCreate(t, m, task.NewSubtask("s", "", task.StatusDone, e1.ID))

	moved := task.NewSubtask("s", "", task.StatusDone, e2.ID)
	moved.ID = sub.ID
	_, err := m.Update(moved)
	require.Error(t, err)
	assert.Equal(t, task.ErrCodeEpicReassigned, task.CodeOf(err))

	assert.Equal(t, []int{sub.ID}, e1.SubtaskIDs())
	assert.Empty(t, e2.SubtaskIDs())
}

func TestUpdate_SubtaskCannotChangeEpicThroughStoredHandle(t *testing.T) {
	m := newTestManager(t)
	e1 := mustCreate(t, m, task.NewEpic("e1", ""))
	e2 := mustCreate(t, m, task.NewEpic("e2", ""))
	sub := mustCreate(t, m, task.NewSubtask("s", "", task.StatusDone, e1.ID))

	require.NoError(t, sub.SetEpicID(e2.ID))
	_, err := m.Update(sub)
	require.Error(t, err)
	assert.Equal(t, task.ErrCodeEpicReassigned, task.CodeOf(err))
	assert.Equal(t, e1.ID, sub.EpicID, "stored handle points back at its epic")
	assert.Equal(t, []int{sub.ID}, e1.SubtaskIDs())
	assert.Empty(t, e2.SubtaskIDs())

	require.True(t, m.Delete(task.KindSubtask, sub.ID))
	assert.Empty(t, e1.SubtaskIDs())
	assert.Equal(t, task.StatusNew, e1.Status)
}

func TestDeleteSubtask_DetachesFromStoredEpic(t *testing.T) {
	m := newTestManager(t)
	e1 := mustCreate(t, m, task.NewEpic("e1", ""))
	e2 := mustCreate(t, m, task.NewEpic("e2", ""))
	sub := mustCreate(t, m, task.NewSubtask("s", "", task.StatusDone, e1.ID))

	// Mutated without Update: the store still files it under e1.
	sub.EpicID = e2.ID
	require.True(t, m.Delete(task.KindSubtask, sub.ID))
	assert.Empty(t, e1.SubtaskIDs())
	assert.Equal(t, task.StatusNew, e1.Status)
}

func TestCreate_EpicAdoptsWaitingSubtask(t *testing.T) {
	m := newTestManager(t)
	sub := mustCreate(t, m, task.NewSubtask("early", "", task.StatusDone, 2))
	epic := mustCreate(t, m, task.NewEpic("late", ""))
	require.Equal(t, 2, epic.ID)

	assert.Equal(t, []int{sub.ID}, epic.SubtaskIDs())
	assert.Equal(t, task.StatusDone, epic.Status)

	reloaded := New()
	require.NoError(t, reloaded.Restore(m.Snapshot().Clone()))
	got, ok := reloaded.Peek(task.KindEpic, epic.ID)
	require.True(t, ok)
	assert.Equal(t, epic.Status, got.Status, "derived status survives a reload")
	assert.Equal(t, epic.SubtaskIDs(), got.SubtaskIDs())

	require.True(t, m.Delete(task.KindEpic, epic.ID))
	assert.Empty(t, m.List(task.KindSubtask), "deleting the epic cascades to the adopted subtask")
}

func TestUpdate_RefreshesHistoryHandle(t *testing.T) {
	m := newTestManager(t)
	a := mustCreate(t, m, task.NewTask("a", "", task.StatusNew))
	b := mustCreate(t, m, task.NewTask("b", "", task.StatusNew))
	m.Get(task.KindTask, a.ID)
	m.Get(task.KindTask, b.ID)

	repl := task.NewTask("a2", "", task.StatusDone)
	repl.ID = a.ID
	_, err := m.Update(repl)
	require.NoError(t, err)

	hist := m.History()
	require.Len(t, hist, 2)
	assert.Same(t, repl, hist[0])
	assert.Equal(t, []int{a.ID, b.ID}, historyIDs(m), "update must not count as a visit")
}

func TestGet_NotFoundIsAbsentResult(t *testing.T) {
	m := newTestManager(t)
	epic := mustCreate(t, m, task.NewEpic("e", ""))

	got, ok := m.Get(task.KindTask, epic.ID)
	assert.False(t, ok, "ids are looked up within their own kind")
	assert.Nil(t, got)

	_, ok = m.Get(task.KindSubtask, 404)
	assert.False(t, ok)
	assert.Empty(t, m.History())
}

func TestHistory_NoDuplicates(t *testing.T) {
	m := newTestManager(t)
	tk := mustCreate(t, m, task.NewTask("t", "", task.StatusNew))
	other := mustCreate(t, m, task.NewTask("o", "", task.StatusNew))

	m.Get(task.KindTask, tk.ID)
	m.Get(task.KindTask, other.ID)
	m.Get(task.KindTask, tk.ID)
	m.Get(task.KindTask, tk.ID)

	assert.Equal(t, []int{other.ID, tk.ID}, historyIDs(m))
}

func TestHistory_RevisitOrder(t *testing.T) {
	m := newTestManager(t)
	a := mustCreate(t, m, task.NewTask("A", "", task.StatusNew))
	b := mustCreate(t, m, task.NewEpic("B", ""))

	m.Get(task.KindTask, a.ID)
	m.Get(task.KindEpic, b.ID)
	m.Get(task.KindTask, a.ID)

	assert.Equal(t, []int{b.ID, a.ID}, historyIDs(m))
}

func TestHistory_ListDoesNotRecord(t *testing.T) {
	m := newTestManager(t)
	mustCreate(t, m, task.NewTask("t", "", task.StatusNew))
	m.List(task.KindTask)
	assert.Empty(t, m.History())
}

func TestPeek_DoesNotRecord(t *testing.T) {
	m := newTestManager(t)
	created := mustCreate(t, m, task.NewTask("t", "", task.StatusNew))

	it, ok := m.Peek(task.KindTask, created.ID)
	require.True(t, ok)
	assert.Same(t, created, it)
	assert.Empty(t, m.History())

	_, ok = m.Peek(task.KindEpic, created.ID)
	assert.False(t, ok)
}

func TestHistory_BoundedTracker(t *testing.T) {
	m := newTestManager(t, WithHistory(history.New(history.WithLimit(2))))
	var ids []int
	for i := 0; i < 3; i++ {
		ids = append(ids, mustCreate(t, m, task.NewTask("t", "", task.StatusNew)).ID)
	}
	for _, id := range ids {
		m.Get(task.KindTask, id)
	}
	assert.Equal(t, ids[1:], historyIDs(m))
}

func TestDeleteEpic_CascadesToSubtasksAndHistory(t *testing.T) {
	m := newTestManager(t)
	epic := mustCreate(t, m, task.NewEpic("E", ""))
	a := mustCreate(t, m, task.NewSubtask("A", "", task.StatusNew, epic.ID))
	b := mustCreate(t, m, task.NewSubtask("B", "", task.StatusDone, epic.ID))
	keep := mustCreate(t, m, task.NewTask("keep", "", task.StatusNew))

	m.Get(task.KindSubtask, a.ID)
	m.Get(task.KindEpic, epic.ID)
	m.Get(task.KindSubtask, b.ID)
	m.Get(task.KindTask, keep.ID)

	require.True(t, m.Delete(task.KindEpic, epic.ID))

	assert.Empty(t, m.List(task.KindEpic))
	assert.NotContains(t, listIDs(m, task.KindSubtask), a.ID)
	assert.NotContains(t, listIDs(m, task.KindSubtask), b.ID)
	assert.Equal(t, []int{keep.ID}, historyIDs(m))
}

func TestDeleteSubtask_OrphanSkipsCascade(t *testing.T) {
	m := newTestManager(t)
	orphan := mustCreate(t, m, task.NewSubtask("o", "", task.StatusNew, 77))
	m.Get(task.KindSubtask, orphan.ID)

	assert.True(t, m.Delete(task.KindSubtask, orphan.ID))
	assert.Empty(t, m.List(task.KindSubtask))
	assert.Empty(t, m.History())
}

func TestDelete_Absent(t *testing.T) {
	m := newTestManager(t)
	tk := mustCreate(t, m, task.NewTask("t", "", task.StatusNew))

	assert.False(t, m.Delete(task.KindTask, 999))
	assert.False(t, m.Delete(task.KindEpic, tk.ID))
	assert.False(t, m.Delete(task.Kind(0), tk.ID))
	assert.Len(t, m.List(task.KindTask), 1)
}

func TestClearTasks(t *testing.T) {
	m := newTestManager(t)
	tk := mustCreate(t, m, task.NewTask("t", "", task.StatusNew))
	epic := mustCreate(t, m, task.NewEpic("e", ""))
	m.Get(task.KindTask, tk.ID)
	m.Get(task.KindEpic, epic.ID)

	require.NoError(t, m.Clear(task.KindTask))
	assert.Empty(t, m.List(task.KindTask))
	assert.Len(t, m.List(task.KindEpic), 1)
	assert.Equal(t, []int{epic.ID}, historyIDs(m))
}

func TestClearEpics_ClearsAllSubtasks(t *testing.T) {
	m := newTestManager(t)
	epic := mustCreate(t, m, task.NewEpic("e", ""))
	sub := mustCreate(t, m, task.NewSubtask("s", "", task.StatusNew, epic.ID))
	orphan := mustCreate(t, m, task.NewSubtask("o", "", task.StatusNew, 500))
	tk := mustCreate(t, m, task.NewTask("t", "", task.StatusNew))
	for _, ref := range []struct {
		kind task.Kind
		id   int
	}{{task.KindEpic, epic.ID}, {task.KindSubtask, sub.ID}, {task.KindSubtask, orphan.ID}, {task.KindTask, tk.ID}} {
		m.Get(ref.kind, ref.id)
	}

	require.NoError(t, m.Clear(task.KindEpic))
	assert.Empty(t, m.List(task.KindEpic))
	assert.Empty(t, m.List(task.KindSubtask))
	assert.Equal(t, []int{tk.ID}, historyIDs(m))
}

func TestClearSubtasks_ResetsEpics(t *testing.T) {
	m := newTestManager(t)
	e1 := mustCreate(t, m, task.NewEpic("e1", ""))
	e2 := mustCreate(t, m, task.NewEpic("e2", ""))
	s1 := mustCreate(t, m, task.NewSubtask("s1", "", task.StatusDone, e1.ID))
	mustCreate(t, m, task.NewSubtask("s2", "", task.StatusInProgress, e2.ID))
	m.Get(task.KindSubtask, s1.ID)
	m.Get(task.KindEpic, e1.ID)

	require.Equal(t, task.StatusDone, e1.Status)
	require.Equal(t, task.StatusInProgress, e2.Status)

	require.NoError(t, m.Clear(task.KindSubtask))
	assert.Empty(t, m.List(task.KindSubtask))
	for _, epic := range m.List(task.KindEpic) {
		assert.Equal(t, task.StatusNew, epic.Status)
		assert.Empty(t, epic.SubtaskIDs())
	}
	assert.Equal(t, []int{e1.ID}, historyIDs(m))
}

func TestClear_UnknownKind(t *testing.T) {
	m := newTestManager(t)
	err := m.Clear(task.Kind(9))
	assert.Equal(t, task.ErrCodeInvalidItem, task.CodeOf(err))
}

func TestSnapshot(t *testing.T) {
	m := newTestManager(t)
	tk := mustCreate(t, m, task.NewTask("t", "", task.StatusNew))
	epic := mustCreate(t, m, task.NewEpic("e", ""))
	sub := mustCreate(t, m, task.NewSubtask("s", "", task.StatusDone, epic.ID))
	m.Get(task.KindSubtask, sub.ID)
	m.Get(task.KindTask, tk.ID)

	snap := m.Snapshot()
	assert.Equal(t, 3, snap.Len())
	assert.Equal(t, []int{sub.ID, tk.ID}, snap.History)
	assert.Same(t, epic, snap.Epics[0])
}
