package task

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func subtasksWith(statuses ...Status) []*Item {
	out := make([]*Item, len(statuses))
	for i, s := range statuses {
		out[i] = &Item{ID: i + 10, Kind: KindSubtask, Status: s, EpicID: 1}
	}
	return out
}

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name     string
		children []*Item
		want     Status
	}{
		{"empty", nil, StatusNew},
		{"all new", subtasksWith(StatusNew, StatusNew), StatusNew},
		{"all done", subtasksWith(StatusDone, StatusDone), StatusDone},
		{"new and in progress", subtasksWith(StatusNew, StatusInProgress), StatusInProgress},
		{"new and done", subtasksWith(StatusNew, StatusDone), StatusInProgress},
		{"single in progress", subtasksWith(StatusInProgress), StatusInProgress},
		{"single done", subtasksWith(StatusDone), StatusDone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveStatus(tt.children))
		})
	}
}

func TestDeriveStatus_Idempotent(t *testing.T) {
	children := subtasksWith(StatusDone, StatusNew)
	first := DeriveStatus(children)
	second := DeriveStatus(children)
	assert.Equal(t, first, second)
}

func TestParseKind(t *testing.T) {
	for _, kind := range Kinds {
		parsed, err := ParseKind(kind.String())
		require.NoError(t, err)
		assert.Equal(t, kind, parsed)
	}

	_, err := ParseKind("task")
	assert.Error(t, err)
	_, err = ParseKind("STORY")
	assert.Error(t, err)
}

func TestParseStatus(t *testing.T) {
	for _, s := range []Status{StatusNew, StatusInProgress, StatusDone} {
		parsed, err := ParseStatus(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}

	_, err := ParseStatus("CLOSED")
	assert.Error(t, err)
}

func TestItem_JSONUsesTags(t *testing.T) {
	it := NewSubtask("Write docs", "", StatusInProgress, 4)
	it.ID = 7

	data, err := json.Marshal(it)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"id":7,"type":"SUBTASK","name":"Write docs","description":"","status":"IN_PROGRESS","epic_id":4}`,
		string(data))
}

func TestSetEpicID_RejectsSelf(t *testing.T) {
	sub := NewSubtask("s", "", StatusNew, 1)
	sub.ID = 5

	err := sub.SetEpicID(5)
	require.Error(t, err)
	assert.True(t, IsSelfReference(err))
	assert.Equal(t, 1, sub.EpicID, "epic id must not change on failure")

	require.NoError(t, sub.SetEpicID(2))
	assert.Equal(t, 2, sub.EpicID)
}

func TestSetEpicID_OnlySubtasks(t *testing.T) {
	err := NewTask("t", "", StatusNew).SetEpicID(3)
	require.Error(t, err)
	assert.Equal(t, ErrCodeInvalidItem, CodeOf(err))
}

func TestAddSubtask(t *testing.T) {
	epic := NewEpic("e", "")
	epic.ID = 1

	sub := NewSubtask("s", "", StatusNew, 1)
	sub.ID = 2
	require.NoError(t, epic.AddSubtask(sub))
	assert.True(t, epic.HasSubtask(2))
	assert.Equal(t, []int{2}, epic.SubtaskIDs())

	t.Run("self reference", func(t *testing.T) {
		self := NewSubtask("s", "", StatusNew, 1)
		self.ID = 1
		err := epic.AddSubtask(self)
		require.Error(t, err)
		assert.True(t, IsSelfReference(err))
		assert.False(t, epic.HasSubtask(1))
	})

	t.Run("non subtask child", func(t *testing.T) {
		other := NewTask("t", "", StatusNew)
		other.ID = 3
		err := epic.AddSubtask(other)
		assert.Equal(t, ErrCodeInvalidItem, CodeOf(err))
	})

	t.Run("non epic parent", func(t *testing.T) {
		parent := NewTask("t", "", StatusNew)
		parent.ID = 9
		err := parent.AddSubtask(sub)
		assert.Equal(t, ErrCodeInvalidItem, CodeOf(err))
	})
}

func TestSubtasks_SortedCopy(t *testing.T) {
	epic := NewEpic("e", "")
	epic.ID = 1
	for _, id := range []int{9, 3, 6} {
		sub := NewSubtask(fmt.Sprintf("s%d", id), "", StatusNew, 1)
		sub.ID = id
		require.NoError(t, epic.AddSubtask(sub))
	}

	subs := epic.Subtasks()
	require.Len(t, subs, 3)
	assert.Equal(t, 3, subs[0].ID)
	assert.Equal(t, 6, subs[1].ID)
	assert.Equal(t, 9, subs[2].ID)

	subs[0] = nil
	assert.Len(t, epic.Subtasks(), 3, "mutating the copy must not affect the epic")

	epic.RemoveSubtask(6)
	assert.Equal(t, []int{3, 9}, epic.SubtaskIDs())

	epic.ClearSubtasks()
	assert.Empty(t, epic.Subtasks())
}

func TestError_Message(t *testing.T) {
	err := NewNotFoundError("get", KindEpic, 12)
	assert.Equal(t, "NOT_FOUND: get EPIC #12: no such item", err.Error())

	wrapped := fmt.Errorf("cli: %w", NewMissingIdentifierError("update", KindTask))
	assert.True(t, IsMissingIdentifier(wrapped))
	assert.False(t, IsNotFound(wrapped))

	cause := fmt.Errorf("disk full")
	perr := NewPersistenceError("save", cause)
	assert.True(t, IsPersistence(perr))
	assert.ErrorIs(t, perr, cause)
}

func TestSnapshot_MaxIDAndItems(t *testing.T) {
	var snap Snapshot
	snap.Add(&Item{ID: 3, Kind: KindTask})
	snap.Add(&Item{ID: 8, Kind: KindEpic})
	snap.Add(&Item{ID: 5, Kind: KindSubtask, EpicID: 8})

	assert.Equal(t, 3, snap.Len())
	assert.Equal(t, 8, snap.MaxID())
	assert.Len(t, snap.Items(KindSubtask), 1)
	assert.Nil(t, snap.Items(Kind(0)))
	assert.Equal(t, 0, Snapshot{}.MaxID())
}
