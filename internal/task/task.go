package task

import (
	"fmt"
	"slices"
)

// Kind discriminates the item variants.
type Kind int

const (
	KindTask Kind = iota + 1
	KindEpic
	KindSubtask
)

// Kinds lists every valid kind in persistence order.
// Epics must be restored before subtasks so children can attach.
var Kinds = []Kind{KindTask, KindEpic, KindSubtask}

// String returns the persisted type tag.
func (k Kind) String() string {
	switch k {
	case KindTask:
		return "TASK"
	case KindEpic:
		return "EPIC"
	case KindSubtask:
		return "SUBTASK"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Valid reports whether k is one of the three known kinds.
func (k Kind) Valid() bool {
	return k == KindTask || k == KindEpic || k == KindSubtask
}

// ParseKind parses a type tag. Matching is exact ("TASK", not "task").
func ParseKind(s string) (Kind, error) {
	switch s {
	case "TASK":
		return KindTask, nil
	case "EPIC":
		return KindEpic, nil
	case "SUBTASK":
		return KindSubtask, nil
	default:
		return 0, fmt.Errorf("unknown item type %q", s)
	}
}

// Status is the lifecycle state of an item.
type Status int

const (
	StatusNew Status = iota
	StatusInProgress
	StatusDone
)

// String returns the persisted status tag.
func (s Status) String() string {
	switch s {
	case StatusNew:
		return "NEW"
	case StatusInProgress:
		return "IN_PROGRESS"
	case StatusDone:
		return "DONE"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// ParseStatus parses a status tag.
func ParseStatus(s string) (Status, error) {
	switch s {
	case "NEW":
		return StatusNew, nil
	case "IN_PROGRESS":
		return StatusInProgress, nil
	case "DONE":
		return StatusDone, nil
	default:
		return 0, fmt.Errorf("unknown status %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler so statuses render as tags
// in JSON output.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Item is the shared record for tasks, epics and subtasks.
//
// The store hands out and keeps the same *Item; mutations made through a
// returned handle are visible everywhere the handle is held (including the
// view history). Changes are only validated and rolled up on Update.
type Item struct {
	ID          int    `json:"id"`
	Kind        Kind   `json:"type"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      Status `json:"status"`

	// EpicID is the owning epic. Only meaningful for subtasks.
	EpicID int `json:"epic_id,omitempty"`

	// subtasks is the epic's child set keyed by subtask id.
	subtasks map[int]*Item
}

// NewTask creates an unsaved standalone task.
func NewTask(name, description string, status Status) *Item {
	return &Item{Kind: KindTask, Name: name, Description: description, Status: status}
}

// NewEpic creates an unsaved epic. Its status starts NEW and is derived
// from its children once stored.
func NewEpic(name, description string) *Item {
	return &Item{Kind: KindEpic, Name: name, Description: description, Status: StatusNew}
}

// NewSubtask creates an unsaved subtask owned by epicID.
func NewSubtask(name, description string, status Status, epicID int) *Item {
	return &Item{Kind: KindSubtask, Name: name, Description: description, Status: status, EpicID: epicID}
}

// SetEpicID changes the owning epic of a subtask.
// A subtask may never name itself as its epic.
func (it *Item) SetEpicID(epicID int) error {
	if it.Kind != KindSubtask {
		return &Error{Code: ErrCodeInvalidItem, Op: "set epic", Kind: it.Kind, ID: it.ID,
			Message: "only subtasks have an epic"}
	}
	if it.ID != 0 && it.ID == epicID {
		return NewSelfReferenceError("set epic", it)
	}
	it.EpicID = epicID
	return nil
}

// AddSubtask attaches sub to the epic's child set, replacing any previous
// handle with the same id.
func (it *Item) AddSubtask(sub *Item) error {
	if it.Kind != KindEpic {
		return &Error{Code: ErrCodeInvalidItem, Op: "add subtask", Kind: it.Kind, ID: it.ID,
			Message: "only epics have subtasks"}
	}
	if sub == nil || sub.Kind != KindSubtask {
		return &Error{Code: ErrCodeInvalidItem, Op: "add subtask", Kind: KindEpic, ID: it.ID,
			Message: "child is not a subtask"}
	}
	if sub.ID == it.ID {
		return NewSelfReferenceError("add subtask", it)
	}
	if it.subtasks == nil {
		it.subtasks = make(map[int]*Item)
	}
	it.subtasks[sub.ID] = sub
	return nil
}

// RemoveSubtask detaches the child with the given id. No-op if absent.
func (it *Item) RemoveSubtask(id int) {
	delete(it.subtasks, id)
}

// ClearSubtasks empties the child set.
func (it *Item) ClearSubtasks() {
	clear(it.subtasks)
}

// HasSubtask reports whether the child set holds id.
func (it *Item) HasSubtask(id int) bool {
	_, ok := it.subtasks[id]
	return ok
}

// Subtasks returns the children sorted by id. The slice is a copy; the
// items are the live handles.
func (it *Item) Subtasks() []*Item {
	out := make([]*Item, 0, len(it.subtasks))
	for _, sub := range it.subtasks {
		out = append(out, sub)
	}
	SortByID(out)
	return out
}

// SubtaskIDs returns the children's ids in ascending order.
func (it *Item) SubtaskIDs() []int {
	ids := make([]int, 0, len(it.subtasks))
	for id := range it.subtasks {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// String renders a one-line summary used by the CLI and logs.
func (it *Item) String() string {
	if it.Kind == KindSubtask {
		return fmt.Sprintf("%s#%d %q [%s] epic=%d", it.Kind, it.ID, it.Name, it.Status, it.EpicID)
	}
	return fmt.Sprintf("%s#%d %q [%s]", it.Kind, it.ID, it.Name, it.Status)
}

// SortByID orders items by ascending id in place.
func SortByID(items []*Item) {
	slices.SortFunc(items, func(a, b *Item) int { return a.ID - b.ID })
}
