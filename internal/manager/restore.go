package manager

import (
	"fmt"

	"github.com/roach88/taskmgr/internal/task"
)

// Restore loads a snapshot into an empty store.
//
// Items keep their persisted ids but are otherwise inserted exactly as
// Create would insert them: tasks, then epics, then subtasks, so every
// subtask re-attaches to its epic and every epic status is re-derived.
// History ids are replayed in order against the restored items; ids that
// no longer resolve are skipped. The id counter moves past the largest
// restored id.
//
// The snapshot is validated before anything is stored; on error the store
// is left empty.
func (m *Manager) Restore(snap task.Snapshot) error {
	if len(m.tasks)+len(m.epics)+len(m.subtasks) > 0 {
		return &task.Error{Code: task.ErrCodeInvalidItem, Op: "restore", Message: "store is not empty"}
	}
	if err := validateSnapshot(snap); err != nil {
		return err
	}

	for _, kind := range task.Kinds {
		for _, it := range snap.Items(kind) {
			if err := m.insert("restore", it, it.ID); err != nil {
				m.reset()
				return err
			}
		}
	}

	skipped := 0
	for _, id := range snap.History {
		it, ok := m.lookup(id)
		if !ok {
			skipped++
			continue
		}
		m.history.Add(it)
	}

	if next := snap.MaxID() + 1; next > m.nextID {
		m.nextID = next
	}

	m.logger.Debug("store restored",
		"tasks", len(m.tasks),
		"epics", len(m.epics),
		"subtasks", len(m.subtasks),
		"history", m.history.Len(),
		"history_skipped", skipped,
		"next_id", m.nextID,
	)
	return nil
}

// validateSnapshot checks ids and kinds across the whole snapshot.
func validateSnapshot(snap task.Snapshot) error {
	seen := make(map[int]task.Kind, snap.Len())
	for _, kind := range task.Kinds {
		for _, it := range snap.Items(kind) {
			if it == nil {
				return &task.Error{Code: task.ErrCodeInvalidItem, Op: "restore", Kind: kind, Message: "nil item"}
			}
			if it.Kind != kind {
				return &task.Error{Code: task.ErrCodeInvalidItem, Op: "restore", Kind: it.Kind, ID: it.ID,
					Message: fmt.Sprintf("listed among %s items", kind)}
			}
			if it.ID <= 0 {
				return task.NewMissingIdentifierError("restore", kind)
			}
			if prev, dup := seen[it.ID]; dup {
				return &task.Error{Code: task.ErrCodeDuplicateIdentifier, Op: "restore", Kind: kind, ID: it.ID,
					Message: fmt.Sprintf("id already used by a %s", prev)}
			}
			if kind == task.KindSubtask && it.EpicID == it.ID {
				return task.NewSelfReferenceError("restore", it)
			}
			seen[it.ID] = kind
		}
	}
	return nil
}

// reset empties the store, keeping its configuration.
func (m *Manager) reset() {
	clear(m.tasks)
	clear(m.epics)
	clear(m.subtasks)
	clear(m.owner)
	m.history.Reset()
	m.nextID = 1
}
