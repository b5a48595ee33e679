package harness

// Step outcomes recorded in the trace besides error codes.
const (
	OutcomeOK     = "OK"
	OutcomeAbsent = "ABSENT" // get or delete of an id with no live item
)

// TraceEvent records one executed step.
type TraceEvent struct {
	Seq     int    `json:"seq"`
	Op      string `json:"op"`
	Ref     string `json:"ref,omitempty"`
	Type    string `json:"type,omitempty"`
	ID      int    `json:"id,omitempty"`
	Status  string `json:"status,omitempty"` // item status after the step
	Outcome string `json:"outcome"`
}

// ItemState is an item as seen in the final state.
type ItemState struct {
	ID     int    `json:"id"`
	Type   string `json:"type"`
	Name   string `json:"name"`
	Status string `json:"status"`
	EpicID int    `json:"epic_id,omitempty"`
}

// FinalState is the store after the last step.
type FinalState struct {
	Items   []ItemState `json:"items"`
	History []int       `json:"history"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success: every step met its expectation
	// and every assertion held.
	Pass bool `json:"pass"`

	// Trace contains every executed step in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State is the store after the last step.
	State FinalState `json:"state"`

	// Refs maps each bound ref to its item id.
	Refs map[string]int `json:"refs"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		State:  FinalState{Items: []ItemState{}, History: []int{}},
		Refs:   map[string]int{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step to the trace.
func (r *Result) AddTrace(event TraceEvent) {
	r.Trace = append(r.Trace, event)
}
