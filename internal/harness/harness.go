package harness

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/taskmgr/internal/csvfile"
	"github.com/roach88/taskmgr/internal/manager"
	"github.com/roach88/taskmgr/internal/store"
	"github.com/roach88/taskmgr/internal/task"
	"github.com/roach88/taskmgr/internal/testutil"
)

// Binding is the item a scenario ref was bound to by its create step.
type Binding struct {
	ID   int
	Kind task.Kind
}

// Harness is the test execution engine.
// It runs scenario steps against an in-memory manager and numbers them
// with a deterministic sequence.
type Harness struct {
	mgr    *manager.Manager
	refs   map[string]Binding
	seq    *testutil.Sequence
	limit  int
	logger *slog.Logger
}

// fatalError aborts a scenario. Unlike a store error it is not a step
// outcome: the scenario itself is broken.
type fatalError struct {
	err error
}

func (e *fatalError) Error() string { return e.err.Error() }
func (e *fatalError) Unwrap() error { return e.err }

func fatalf(format string, args ...any) error {
	return &fatalError{err: fmt.Errorf(format, args...)}
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs against a fresh in-memory store, so ids start at 1
// and traces are identical across runs.
//
// Execution flow:
// 1. Create a fresh manager with the scenario's history limit
// 2. Execute steps, checking each against its expected error
// 3. Capture the final state
// 4. Evaluate assertions
//
// A returned error means the scenario could not be executed (unknown ref,
// failed reload); failed expectations are reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	h := &Harness{
		refs:   make(map[string]Binding),
		seq:    testutil.NewSequence(),
		limit:  scenario.HistoryLimit,
		logger: logger,
	}
	h.mgr = h.newManager()

	ctx := context.Background()
	result := NewResult()

	for i, step := range scenario.Steps {
		if err := h.execute(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i+1, step.Op, err)
		}
	}

	result.State = h.finalState()
	result.Refs = h.refIDs()

	actx := &AssertionContext{Manager: h.mgr, Refs: h.refs}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

func (h *Harness) newManager() *manager.Manager {
	return manager.New(
		manager.WithHistoryLimit(h.limit),
		manager.WithLogger(h.logger),
	)
}

// execute runs one step, records it in the trace and checks its expected
// error. Only fatal errors are returned.
func (h *Harness) execute(ctx context.Context, index int, step Step, result *Result) error {
	event := TraceEvent{
		Seq:     h.seq.Next(),
		Op:      step.Op,
		Ref:     step.Ref,
		Outcome: OutcomeOK,
	}

	var err error
	switch step.Op {
	case OpCreate:
		err = h.create(step, &event)
	case OpUpdate:
		err = h.update(step, &event)
	case OpGet:
		err = h.get(step, &event)
	case OpDelete:
		err = h.remove(step, &event)
	case OpClear:
		err = h.clear(step, &event)
	case OpReload:
		err = h.reload(ctx, step)
	default:
		return fatalf("unknown op %q", step.Op)
	}

	var fatal *fatalError
	if errors.As(err, &fatal) {
		return err
	}
	if err != nil {
		code := task.CodeOf(err)
		if code == "" {
			return err
		}
		event.Outcome = string(code)
	}
	result.AddTrace(event)

	h.logger.Debug("step executed", "step", index+1, "op", step.Op, "outcome", event.Outcome)

	switch {
	case step.ExpectError != "" && event.Outcome != step.ExpectError:
		result.AddError(fmt.Sprintf("step %d (%s): expected error %s, got %s",
			index+1, step.Op, step.ExpectError, event.Outcome))
	case step.ExpectError == "" && err != nil:
		result.AddError(fmt.Sprintf("step %d (%s): unexpected error: %v", index+1, step.Op, err))
	}
	return nil
}

func (h *Harness) create(step Step, event *TraceEvent) error {
	kind, err := task.ParseKind(step.Type)
	if err != nil {
		return fatalf("%w", err)
	}
	if _, bound := h.refs[step.Ref]; bound {
		return fatalf("ref %q is already bound", step.Ref)
	}
	event.Type = kind.String()

	status := task.StatusNew
	if step.Status != "" {
		if status, err = task.ParseStatus(step.Status); err != nil {
			return fatalf("%w", err)
		}
	}
	name, desc := deref(step.Name), deref(step.Description)

	var item *task.Item
	switch kind {
	case task.KindTask:
		item = task.NewTask(name, desc, status)
	case task.KindEpic:
		item = task.NewEpic(name, desc)
	case task.KindSubtask:
		epicID, err := h.epicID(step)
		if err != nil {
			return err
		}
		item = task.NewSubtask(name, desc, status, epicID)
	}

	created, err := h.mgr.Create(item)
	if err != nil {
		return err
	}
	h.refs[step.Ref] = Binding{ID: created.ID, Kind: kind}
	event.ID = created.ID
	event.Status = created.Status.String()
	return nil
}

// update sends a fresh record built from the stored item and the step's
// fields. An id with no live item starts from an empty record.
func (h *Harness) update(step Step, event *TraceEvent) error {
	b, err := h.resolve(step)
	if err != nil {
		return err
	}
	event.Type, event.ID = b.Kind.String(), b.ID

	item := &task.Item{ID: b.ID, Kind: b.Kind}
	if current := h.peek(b.Kind, b.ID); current != nil {
		item.Name = current.Name
		item.Description = current.Description
		item.Status = current.Status
		item.EpicID = current.EpicID
	}
	if step.Name != nil {
		item.Name = *step.Name
	}
	if step.Description != nil {
		item.Description = *step.Description
	}
	if step.Status != "" {
		if item.Status, err = task.ParseStatus(step.Status); err != nil {
			return fatalf("%w", err)
		}
	}
	if step.Epic != "" || step.EpicID != 0 {
		if item.EpicID, err = h.epicID(step); err != nil {
			return err
		}
	}

	updated, err := h.mgr.Update(item)
	if err != nil {
		return err
	}
	event.Status = updated.Status.String()
	return nil
}

func (h *Harness) get(step Step, event *TraceEvent) error {
	b, err := h.resolve(step)
	if err != nil {
		return err
	}
	event.Type, event.ID = b.Kind.String(), b.ID

	it, ok := h.mgr.Get(b.Kind, b.ID)
	if !ok {
		event.Outcome = OutcomeAbsent
		return nil
	}
	event.Status = it.Status.String()
	return nil
}

func (h *Harness) remove(step Step, event *TraceEvent) error {
	b, err := h.resolve(step)
	if err != nil {
		return err
	}
	event.Type, event.ID = b.Kind.String(), b.ID

	if !h.mgr.Delete(b.Kind, b.ID) {
		event.Outcome = OutcomeAbsent
	}
	return nil
}

func (h *Harness) clear(step Step, event *TraceEvent) error {
	kind, err := task.ParseKind(step.Type)
	if err != nil {
		return fatalf("%w", err)
	}
	event.Type = kind.String()
	return h.mgr.Clear(kind)
}

// reload round trips the store through a backend and continues with a
// fresh manager restored from the result. Refs stay bound: ids survive.
func (h *Harness) reload(ctx context.Context, step Step) error {
	snap := h.mgr.Snapshot()

	var loaded task.Snapshot
	var err error
	switch step.Via {
	case ViaSQLite:
		loaded, err = roundTripSQLite(ctx, snap, h.logger)
	default:
		loaded, err = roundTripCSV(snap, h.logger)
	}
	if err != nil {
		return fatalf("reload via %s: %w", step.Via, err)
	}

	mgr := h.newManager()
	if err := mgr.Restore(loaded); err != nil {
		return fatalf("reload: %w", err)
	}
	h.mgr = mgr
	return nil
}

func roundTripCSV(snap task.Snapshot, logger *slog.Logger) (task.Snapshot, error) {
	var buf bytes.Buffer
	if err := csvfile.Encode(&buf, snap); err != nil {
		return task.Snapshot{}, err
	}
	return csvfile.Decode(&buf, csvfile.DecodeOptions{Logger: logger})
}

func roundTripSQLite(ctx context.Context, snap task.Snapshot, logger *slog.Logger) (task.Snapshot, error) {
	st, err := store.Open(":memory:", store.WithIDGenerator(testutil.NewFixedIDGenerator()), store.WithLogger(logger))
	if err != nil {
		return task.Snapshot{}, err
	}
	defer st.Close()

	if err := st.Save(ctx, snap); err != nil {
		return task.Snapshot{}, err
	}
	return st.Load(ctx)
}

// resolve returns the item a step addresses. A raw id needs a type; a
// ref uses its binding, with the step's type overriding the bound kind.
func (h *Harness) resolve(step Step) (Binding, error) {
	var b Binding
	if step.ID != nil {
		b.ID = *step.ID
	} else {
		bound, ok := h.refs[step.Ref]
		if !ok {
			return Binding{}, fatalf("unknown ref %q", step.Ref)
		}
		b = bound
	}

	if step.Type != "" {
		kind, err := task.ParseKind(step.Type)
		if err != nil {
			return Binding{}, fatalf("%w", err)
		}
		b.Kind = kind
	}
	return b, nil
}

func (h *Harness) epicID(step Step) (int, error) {
	if step.Epic == "" {
		return step.EpicID, nil
	}
	b, ok := h.refs[step.Epic]
	if !ok {
		return 0, fatalf("unknown epic ref %q", step.Epic)
	}
	return b.ID, nil
}

// peek finds a live item without recording a visit.
func (h *Harness) peek(kind task.Kind, id int) *task.Item {
	return findItem(h.mgr, kind, id)
}

func findItem(mgr *manager.Manager, kind task.Kind, id int) *task.Item {
	it, _ := mgr.Peek(kind, id)
	return it
}

func (h *Harness) finalState() FinalState {
	state := FinalState{Items: []ItemState{}, History: []int{}}
	for _, kind := range task.Kinds {
		for _, it := range h.mgr.List(kind) {
			state.Items = append(state.Items, ItemState{
				ID:     it.ID,
				Type:   it.Kind.String(),
				Name:   it.Name,
				Status: it.Status.String(),
				EpicID: it.EpicID,
			})
		}
	}
	for _, it := range h.mgr.History() {
		state.History = append(state.History, it.ID)
	}
	return state
}

func (h *Harness) refIDs() map[string]int {
	ids := make(map[string]int, len(h.refs))
	for ref, b := range h.refs {
		ids[ref] = b.ID
	}
	return ids
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
