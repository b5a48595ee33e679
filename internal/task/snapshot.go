package task

// Snapshot is a full, consistent view of a store.
//
// Persistence backends receive one after every mutating call and return one
// on load. Items are grouped by kind and sorted by id. History holds item ids
// oldest first; backends that cannot keep history leave it nil.
type Snapshot struct {
	Tasks    []*Item `json:"tasks"`
	Epics    []*Item `json:"epics"`
	Subtasks []*Item `json:"subtasks"`
	History  []int   `json:"history,omitempty"`
}

// Items returns the items of a single kind.
func (s Snapshot) Items(kind Kind) []*Item {
	switch kind {
	case KindTask:
		return s.Tasks
	case KindEpic:
		return s.Epics
	case KindSubtask:
		return s.Subtasks
	default:
		return nil
	}
}

// Add appends an item to the slice matching its kind. Items with an
// unknown kind are ignored.
func (s *Snapshot) Add(it *Item) {
	switch it.Kind {
	case KindTask:
		s.Tasks = append(s.Tasks, it)
	case KindEpic:
		s.Epics = append(s.Epics, it)
	case KindSubtask:
		s.Subtasks = append(s.Subtasks, it)
	}
}

// Len returns the number of items across all kinds.
func (s Snapshot) Len() int {
	return len(s.Tasks) + len(s.Epics) + len(s.Subtasks)
}

// MaxID returns the largest item id in the snapshot, or 0 when empty.
func (s Snapshot) MaxID() int {
	maxID := 0
	for _, kind := range Kinds {
		for _, it := range s.Items(kind) {
			if it.ID > maxID {
				maxID = it.ID
			}
		}
	}
	return maxID
}

// Clone copies the item values, so the result shares no handles with s.
// Epic child sets are not copied; a store rebuilds them on restore.
func (s Snapshot) Clone() Snapshot {
	var out Snapshot
	for _, kind := range Kinds {
		for _, it := range s.Items(kind) {
			out.Add(&Item{
				ID:          it.ID,
				Kind:        it.Kind,
				Name:        it.Name,
				Description: it.Description,
				Status:      it.Status,
				EpicID:      it.EpicID,
			})
		}
	}
	out.History = append([]int(nil), s.History...)
	return out
}
