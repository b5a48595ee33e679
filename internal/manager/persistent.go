package manager

import (
	"context"

	"github.com/roach88/taskmgr/internal/task"
)

// Backend stores full snapshots of a store.
type Backend interface {
	// Save replaces the stored snapshot with snap.
	Save(ctx context.Context, snap task.Snapshot) error

	// Load returns the last saved snapshot, or an empty one if nothing
	// was saved yet.
	Load(ctx context.Context) (task.Snapshot, error)
}

// HistoryKeeper is implemented by backends that persist the view history.
// Persistent saves after reads as well when the backend keeps history.
type HistoryKeeper interface {
	KeepsHistory() bool
}

// Persistent is a Manager that saves a snapshot after every successful
// mutating call.
//
// The in-memory effect of a call is applied in full before saving. When the
// save fails the call returns a PERSISTENCE error; the in-memory state keeps
// the change and the next successful save writes it.
type Persistent struct {
	mem         *Manager
	backend     Backend
	keepHistory bool
}

// Open builds a store from the backend's last snapshot.
func Open(ctx context.Context, backend Backend, opts ...Option) (*Persistent, error) {
	snap, err := backend.Load(ctx)
	if err != nil {
		return nil, task.NewPersistenceError("load", err)
	}

	m := New(opts...)
	if err := m.Restore(snap); err != nil {
		return nil, err
	}

	p := &Persistent{mem: m, backend: backend}
	if hk, ok := backend.(HistoryKeeper); ok {
		p.keepHistory = hk.KeepsHistory()
	}
	return p, nil
}

// Manager returns the underlying in-memory store.
func (p *Persistent) Manager() *Manager {
	return p.mem
}

// List returns every live item of kind. Never saves.
func (p *Persistent) List(kind task.Kind) []*task.Item {
	return p.mem.List(kind)
}

// History returns the visited items, least recent first. Never saves.
func (p *Persistent) History() []*task.Item {
	return p.mem.History()
}

// Get returns the item and records a visit. The visit is saved only when
// the backend keeps history.
func (p *Persistent) Get(ctx context.Context, kind task.Kind, id int) (*task.Item, bool, error) {
	it, ok := p.mem.Get(kind, id)
	if !ok || !p.keepHistory {
		return it, ok, nil
	}
	return it, ok, p.save(ctx, "get")
}

// Peek returns the item without recording a visit. Never saves.
func (p *Persistent) Peek(kind task.Kind, id int) (*task.Item, bool) {
	return p.mem.Peek(kind, id)
}

// Create stores item under a fresh id and saves.
func (p *Persistent) Create(ctx context.Context, item *task.Item) (*task.Item, error) {
	created, err := p.mem.Create(item)
	if err != nil {
		return nil, err
	}
	return created, p.save(ctx, "create")
}

// Update replaces the stored record and saves.
func (p *Persistent) Update(ctx context.Context, item *task.Item) (*task.Item, error) {
	updated, err := p.mem.Update(item)
	if err != nil {
		return nil, err
	}
	return updated, p.save(ctx, "update")
}

// Delete removes the item and saves. Deleting an absent id saves nothing.
func (p *Persistent) Delete(ctx context.Context, kind task.Kind, id int) (bool, error) {
	if !p.mem.Delete(kind, id) {
		return false, nil
	}
	return true, p.save(ctx, "delete")
}

// Clear removes every item of kind and saves.
func (p *Persistent) Clear(ctx context.Context, kind task.Kind) error {
	if err := p.mem.Clear(kind); err != nil {
		return err
	}
	return p.save(ctx, "clear")
}

// Save writes the current snapshot.
func (p *Persistent) Save(ctx context.Context) error {
	return p.save(ctx, "save")
}

func (p *Persistent) save(ctx context.Context, op string) error {
	snap := p.mem.Snapshot()
	if !p.keepHistory {
		snap.History = nil
	}
	if err := p.backend.Save(ctx, snap); err != nil {
		p.mem.logger.Error("snapshot save failed", "op", op, "error", err)
		return task.NewPersistenceError(op, err)
	}
	p.mem.logger.Debug("snapshot saved", "op", op, "items", snap.Len())
	return nil
}
