package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/taskmgr/internal/manager"
	"github.com/roach88/taskmgr/internal/task"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s #%d -> %s\n", event.Seq, event.Op, event.Type, event.ID, event.Outcome)
		}
	}

	return buf.String()
}

// AssertionContext provides the store and ref bindings assertions are
// evaluated against.
type AssertionContext struct {
	Manager *manager.Manager
	Refs    map[string]Binding
}

func (a *AssertionContext) item(ref string) (*task.Item, error) {
	b, ok := a.Refs[ref]
	if !ok {
		return nil, fmt.Errorf("unknown ref %q", ref)
	}
	return findItem(a.Manager, b.Kind, b.ID), nil
}

// assertStatus checks the status of a live item.
func assertStatus(result *Result, actx *AssertionContext, assertion Assertion) error {
	it, err := actx.item(assertion.Ref)
	if err != nil {
		return err
	}
	actual := "no live item"
	if it != nil {
		actual = it.Status.String()
		if actual == assertion.Status {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertStatus,
		Expected: fmt.Sprintf("%s has status %s", assertion.Ref, assertion.Status),
		Actual:   actual,
		Trace:    result.Trace,
	}
}

// assertCount checks the number of live items of a kind.
func assertCount(result *Result, actx *AssertionContext, assertion Assertion) error {
	kind, err := task.ParseKind(assertion.Kind)
	if err != nil {
		return err
	}
	if n := actx.Manager.Len(kind); n != assertion.Count {
		return &AssertionError{
			Type:     AssertCount,
			Expected: fmt.Sprintf("%d %s items", assertion.Count, kind),
			Actual:   fmt.Sprintf("%d items", n),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertHistory checks the final history, least recent first.
func assertHistory(result *Result, actx *AssertionContext, assertion Assertion) error {
	expected := make([]int, 0, len(assertion.Refs))
	for _, ref := range assertion.Refs {
		b, ok := actx.Refs[ref]
		if !ok {
			return fmt.Errorf("unknown ref %q", ref)
		}
		expected = append(expected, b.ID)
	}

	if !slices.Equal(expected, result.State.History) {
		return &AssertionError{
			Type:     AssertHistory,
			Expected: fmt.Sprintf("history %v (ids %v)", assertion.Refs, expected),
			Actual:   fmt.Sprintf("ids %v", result.State.History),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertPresence checks that a ref does or does not resolve to a live item.
// A ref whose create failed was never bound and counts as absent.
func assertPresence(result *Result, actx *AssertionContext, assertion Assertion, want bool) error {
	var it *task.Item
	if b, ok := actx.Refs[assertion.Ref]; ok {
		it = findItem(actx.Manager, b.Kind, b.ID)
	}
	if (it != nil) == want {
		return nil
	}

	expected, actual := "live", "absent"
	if !want {
		expected, actual = actual, expected
	}
	return &AssertionError{
		Type:     assertion.Type,
		Expected: fmt.Sprintf("%s is %s", assertion.Ref, expected),
		Actual:   actual,
		Trace:    result.Trace,
	}
}

// assertStepOutcome checks the recorded outcome of a step.
func assertStepOutcome(result *Result, assertion Assertion) error {
	if assertion.Step < 1 || assertion.Step > len(result.Trace) {
		return fmt.Errorf("step %d was not executed", assertion.Step)
	}
	if got := result.Trace[assertion.Step-1].Outcome; got != assertion.Code {
		return &AssertionError{
			Type:     AssertError,
			Expected: fmt.Sprintf("step %d ends with %s", assertion.Step, assertion.Code),
			Actual:   got,
			Trace:    result.Trace,
		}
	}
	return nil
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertStatus:
			err = assertStatus(result, actx, assertion)
		case AssertCount:
			err = assertCount(result, actx, assertion)
		case AssertHistory:
			err = assertHistory(result, actx, assertion)
		case AssertExists:
			err = assertPresence(result, actx, assertion, true)
		case AssertAbsent:
			err = assertPresence(result, actx, assertion, false)
		case AssertError:
			err = assertStepOutcome(result, assertion)
		default:
			err = fmt.Errorf("unknown assertion type %q", assertion.Type)
		}

		if err != nil {
			errs = append(errs, fmt.Sprintf("assertion[%d]: %s", i, err))
		}
	}

	return errs
}
