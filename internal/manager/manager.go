package manager

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/roach88/taskmgr/internal/history"
	"github.com/roach88/taskmgr/internal/task"
)

// Manager is the in-memory task store.
type Manager struct {
	tasks    map[int]*task.Item
	epics    map[int]*task.Item
	subtasks map[int]*task.Item

	// owner maps each stored subtask to the epic id it was stored under.
	// Callers share item handles, so Item.EpicID alone cannot be trusted.
	owner map[int]int

	history *history.Tracker
	nextID  int
	logger  *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithHistory injects the history tracker.
func WithHistory(tr *history.Tracker) Option {
	return func(m *Manager) { m.history = tr }
}

// WithHistoryLimit uses a tracker bounded to n entries (0 = unbounded).
func WithHistoryLimit(n int) Option {
	return func(m *Manager) { m.history = history.New(history.WithLimit(n)) }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// New creates an empty store. The first id issued is 1.
func New(opts ...Option) *Manager {
	m := &Manager{
		tasks:    make(map[int]*task.Item),
		epics:    make(map[int]*task.Item),
		subtasks: make(map[int]*task.Item),
		owner:    make(map[int]int),
		nextID:   1,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.history == nil {
		m.history = history.New()
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	return m
}

// items returns the map holding kind, or nil for an unknown kind.
func (m *Manager) items(kind task.Kind) map[int]*task.Item {
	switch kind {
	case task.KindTask:
		return m.tasks
	case task.KindEpic:
		return m.epics
	case task.KindSubtask:
		return m.subtasks
	default:
		return nil
	}
}

// List returns every live item of kind sorted by id. It does not touch
// the history.
func (m *Manager) List(kind task.Kind) []*task.Item {
	out := slices.Collect(maps.Values(m.items(kind)))
	task.SortByID(out)
	return out
}

// Len returns the number of live items of kind.
func (m *Manager) Len(kind task.Kind) int {
	return len(m.items(kind))
}

// Get returns the live item and records a visit. Absent ids return false
// and leave the history untouched.
func (m *Manager) Get(kind task.Kind, id int) (*task.Item, bool) {
	it, ok := m.items(kind)[id]
	if !ok {
		return nil, false
	}
	m.history.Add(it)
	return it, true
}

// Peek returns the live item without recording a visit.
func (m *Manager) Peek(kind task.Kind, id int) (*task.Item, bool) {
	it, ok := m.items(kind)[id]
	return it, ok
}

// Create stores item under a freshly issued id, overwriting any id the
// caller set, and returns it. The stored handle is item itself.
//
// Epics start with no children and their status is derived (NEW).
// A subtask whose epic exists is attached to it and the epic re-derived;
// otherwise the subtask is kept as an orphan until an epic with that id is
// created, which adopts it.
func (m *Manager) Create(item *task.Item) (*task.Item, error) {
	if err := m.checkItem("create", item); err != nil {
		return nil, err
	}
	if stored, ok := m.items(item.Kind)[item.ID]; ok && stored == item {
		return nil, &task.Error{Code: task.ErrCodeInvalidItem, Op: "create", Kind: item.Kind, ID: item.ID,
			Message: "item is already stored; use update"}
	}

	if err := m.insert("create", item, m.nextID); err != nil {
		return nil, err
	}
	m.nextID++
	return item, nil
}

// Update replaces the stored record with item's id.
//
// An item without an id fails with MissingIdentifier and an unknown id with
// NotFound; in both cases nothing changes. Epics keep their stored children
// and their status is re-derived, whatever the caller set. A subtask cannot
// move to another epic, even through its stored handle: the handle's EpicID
// is put back and EpicReassigned returned. Its epic is re-derived from the
// new record.
func (m *Manager) Update(item *task.Item) (*task.Item, error) {
	if err := m.checkItem("update", item); err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, task.NewMissingIdentifierError("update", item.Kind)
	}
	existing, ok := m.items(item.Kind)[item.ID]
	if !ok {
		return nil, task.NewNotFoundError("update", item.Kind, item.ID)
	}

	switch item.Kind {
	case task.KindTask:
		m.tasks[item.ID] = item

	case task.KindEpic:
		if item != existing {
			children := existing.Subtasks()
			item.ClearSubtasks()
			for _, sub := range children {
				if err := item.AddSubtask(sub); err != nil {
					return nil, err
				}
			}
		}
		m.epics[item.ID] = item
		m.refreshEpic(item)

	case task.KindSubtask:
		epicID := m.owner[item.ID]
		if item.EpicID != epicID {
			requested := item.EpicID
			if item == existing {
				item.EpicID = epicID
			}
			return nil, &task.Error{Code: task.ErrCodeEpicReassigned, Op: "update", Kind: item.Kind, ID: item.ID,
				Message: fmt.Sprintf("subtask belongs to epic %d, not %d", epicID, requested)}
		}
		if item.EpicID == item.ID {
			return nil, task.NewSelfReferenceError("update", item)
		}
		m.subtasks[item.ID] = item
		if epic, ok := m.epics[item.EpicID]; ok {
			if err := epic.AddSubtask(item); err != nil {
				m.subtasks[item.ID] = existing
				return nil, err
			}
			m.refreshEpic(epic)
		}
	}

	m.history.Refresh(item)
	return item, nil
}

// Delete removes the item and reports whether it existed.
//
// Deleting an epic deletes its subtasks first. Deleting a subtask detaches
// it from its epic, if that epic is still alive, and re-derives the epic.
// History entries of every removed item are purged.
func (m *Manager) Delete(kind task.Kind, id int) bool {
	switch kind {
	case task.KindTask:
		if _, ok := m.tasks[id]; !ok {
			return false
		}
		delete(m.tasks, id)

	case task.KindEpic:
		epic, ok := m.epics[id]
		if !ok {
			return false
		}
		children := epic.SubtaskIDs()
		for _, subID := range children {
			delete(m.subtasks, subID)
			delete(m.owner, subID)
			m.history.Remove(subID)
		}
		delete(m.epics, id)
		m.logger.Debug("epic deleted", "epic_id", id, "cascaded_subtasks", len(children))

	case task.KindSubtask:
		if _, ok := m.subtasks[id]; !ok {
			return false
		}
		epicID := m.owner[id]
		delete(m.subtasks, id)
		delete(m.owner, id)
		if epic, ok := m.epics[epicID]; ok && epic.HasSubtask(id) {
			epic.RemoveSubtask(id)
			m.refreshEpic(epic)
		}

	default:
		return false
	}

	m.history.Remove(id)
	return true
}

// Clear removes every item of kind.
//
// Clearing epics also clears every subtask. Clearing subtasks empties each
// epic's child set, which re-derives every epic to NEW.
func (m *Manager) Clear(kind task.Kind) error {
	switch kind {
	case task.KindTask:
		m.forget(m.tasks)
		clear(m.tasks)

	case task.KindEpic:
		m.forget(m.subtasks)
		clear(m.subtasks)
		clear(m.owner)
		m.forget(m.epics)
		clear(m.epics)

	case task.KindSubtask:
		for _, epic := range m.epics {
			epic.ClearSubtasks()
			m.refreshEpic(epic)
		}
		m.forget(m.subtasks)
		clear(m.subtasks)
		clear(m.owner)

	default:
		return &task.Error{Code: task.ErrCodeInvalidItem, Op: "clear", Message: fmt.Sprintf("unknown kind %s", kind)}
	}

	m.logger.Debug("cleared", "kind", kind.String())
	return nil
}

// History returns the visited items, least recent first.
func (m *Manager) History() []*task.Item {
	return m.history.History()
}

// NextID returns the id the next Create will issue.
func (m *Manager) NextID() int {
	return m.nextID
}

// Snapshot returns a full view of the store, including history order.
func (m *Manager) Snapshot() task.Snapshot {
	return task.Snapshot{
		Tasks:    m.List(task.KindTask),
		Epics:    m.List(task.KindEpic),
		Subtasks: m.List(task.KindSubtask),
		History:  m.history.IDs(),
	}
}

// checkItem rejects nil items and unknown kinds.
func (m *Manager) checkItem(op string, item *task.Item) error {
	if item == nil {
		return &task.Error{Code: task.ErrCodeInvalidItem, Op: op, Message: "item is nil"}
	}
	if !item.Kind.Valid() {
		return &task.Error{Code: task.ErrCodeInvalidItem, Op: op, ID: item.ID,
			Message: fmt.Sprintf("unknown kind %s", item.Kind)}
	}
	return nil
}

// insert stores item under id. Shared by Create and Restore so loaded data
// goes through the same attachment and roll-up as runtime data.
// Nothing is changed when it returns an error.
func (m *Manager) insert(op string, item *task.Item, id int) error {
	switch item.Kind {
	case task.KindTask:
		item.ID = id
		m.tasks[id] = item

	case task.KindEpic:
		prevID := item.ID
		item.ID = id
		item.ClearSubtasks()
		adopted := 0
		for subID, epicID := range m.owner {
			if epicID != id {
				continue
			}
			if err := item.AddSubtask(m.subtasks[subID]); err != nil {
				item.ClearSubtasks()
				item.ID = prevID
				return err
			}
			adopted++
		}
		m.epics[id] = item
		m.refreshEpic(item)
		if adopted > 0 {
			m.logger.Debug("epic adopted waiting subtasks", "epic_id", id, "subtasks", adopted)
		}

	case task.KindSubtask:
		if item.EpicID == id {
			failed := *item
			failed.ID = id
			return task.NewSelfReferenceError(op, &failed)
		}
		prevID := item.ID
		item.ID = id
		epic, hasEpic := m.epics[item.EpicID]
		if hasEpic {
			if err := epic.AddSubtask(item); err != nil {
				item.ID = prevID
				return err
			}
		}
		m.subtasks[id] = item
		m.owner[id] = item.EpicID
		if hasEpic {
			m.refreshEpic(epic)
		} else {
			m.logger.Debug("orphan subtask stored", "subtask_id", id, "epic_id", item.EpicID)
		}
	}
	return nil
}

// refreshEpic re-derives the epic's status from its current children.
func (m *Manager) refreshEpic(epic *task.Item) {
	epic.Status = task.DeriveStatus(epic.Subtasks())
}

// forget purges every item in set from the history.
func (m *Manager) forget(set map[int]*task.Item) {
	for id := range set {
		m.history.Remove(id)
	}
}

// lookup resolves an id against every kind.
func (m *Manager) lookup(id int) (*task.Item, bool) {
	for _, kind := range task.Kinds {
		if it, ok := m.items(kind)[id]; ok {
			return it, true
		}
	}
	return nil, false
}
