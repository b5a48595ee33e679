// Package history tracks recently viewed items.
//
// The tracker is a doubly linked list indexed by item id. Adding an item
// already present unlinks it first, so the list never holds duplicates and
// re-visits move to the most recent end. All operations except History are
// O(1).
//
// The tracker holds the same *task.Item handles the store returns, so edits
// are visible through the history. The store must Remove an id whenever it
// destroys the item.
package history

import "github.com/roach88/taskmgr/internal/task"

type node struct {
	item *task.Item
	prev *node
	next *node
}

// Tracker is a deduplicating recency list.
//
// Not safe for concurrent use.
type Tracker struct {
	index map[int]*node
	head  *node
	tail  *node
	limit int
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLimit bounds the number of distinct entries. When full, recording a
// new id evicts the least recent entry. Zero or negative means unbounded.
func WithLimit(n int) Option {
	return func(t *Tracker) {
		if n < 0 {
			n = 0
		}
		t.limit = n
	}
}

// New creates an empty tracker. Unbounded unless WithLimit is given.
func New(opts ...Option) *Tracker {
	t := &Tracker{index: make(map[int]*node)}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Add records a visit. A nil item is ignored.
func (t *Tracker) Add(item *task.Item) {
	if item == nil {
		return
	}

	if n, ok := t.index[item.ID]; ok {
		t.unlink(n)
		n.item = item
		t.linkLast(n)
		return
	}

	if t.limit > 0 && len(t.index) >= t.limit {
		oldest := t.head
		t.unlink(oldest)
		delete(t.index, oldest.item.ID)
	}

	n := &node{item: item}
	t.linkLast(n)
	t.index[item.ID] = n
}

// Remove drops the entry for id. No-op if id is not tracked.
func (t *Tracker) Remove(id int) {
	n, ok := t.index[id]
	if !ok {
		return
	}
	t.unlink(n)
	delete(t.index, id)
}

// Refresh replaces the handle stored for item.ID without moving it.
// Returns false if the id is not tracked.
func (t *Tracker) Refresh(item *task.Item) bool {
	if item == nil {
		return false
	}
	n, ok := t.index[item.ID]
	if !ok {
		return false
	}
	n.item = item
	return true
}

// Contains reports whether id is tracked.
func (t *Tracker) Contains(id int) bool {
	_, ok := t.index[id]
	return ok
}

// History returns the tracked items from least to most recently visited.
// The slice is freshly allocated.
func (t *Tracker) History() []*task.Item {
	out := make([]*task.Item, 0, len(t.index))
	for n := t.head; n != nil; n = n.next {
		out = append(out, n.item)
	}
	return out
}

// IDs returns the tracked ids in History order.
func (t *Tracker) IDs() []int {
	out := make([]int, 0, len(t.index))
	for n := t.head; n != nil; n = n.next {
		out = append(out, n.item.ID)
	}
	return out
}

// Len returns the number of tracked entries.
func (t *Tracker) Len() int {
	return len(t.index)
}

// Limit returns the capacity bound, 0 when unbounded.
func (t *Tracker) Limit() int {
	return t.limit
}

// Reset drops every entry.
func (t *Tracker) Reset() {
	clear(t.index)
	t.head, t.tail = nil, nil
}

func (t *Tracker) linkLast(n *node) {
	n.prev = t.tail
	n.next = nil
	if t.tail == nil {
		t.head = n
	} else {
		t.tail.next = n
	}
	t.tail = n
}

func (t *Tracker) unlink(n *node) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		t.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		t.tail = n.prev
	}
	n.prev, n.next = nil, nil
}
