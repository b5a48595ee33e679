// Package harness runs scripted scenarios against a task manager and
// checks the outcome.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: epic_rollup
//	description: "Epic status follows its subtasks"
//	history_limit: 0
//	steps:
//	  - op: create
//	    ref: release
//	    type: EPIC
//	    name: Release
//	  - op: create
//	    ref: build
//	    type: SUBTASK
//	    name: Build
//	    status: DONE
//	    epic: release
//	  - op: update
//	    id: 99
//	    type: TASK
//	    expect_error: NOT_FOUND
//	  - op: reload
//	    via: sqlite
//	assertions:
//	  - type: status
//	    ref: release
//	    status: DONE
//	  - type: history
//	    refs: [build, release]
//
// A create binds its ref to the id the store assigns; later steps and
// assertions name items by ref. Steps run against a fresh in-memory
// manager. A reload round trips the store through CSV (dropping the view
// history) or an in-memory SQLite database (keeping it).
//
// # Assertion Types
//
//   - status: a live item has the given status
//   - count: number of live items of a type
//   - history: the view history, least recent first
//   - exists, absent: whether a ref resolves to a live item
//   - error: the outcome recorded for a step (an error code, OK or ABSENT)
//
// # Deterministic Testing
//
// Ids start at 1 in every run and trace steps are numbered by a
// testutil.Sequence, so the same scenario always produces the same trace.
// RunWithGolden compares the trace and final state against
// testdata/golden/<name>.golden.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/epic_rollup.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, msg := range result.Errors {
//	    log.Println(msg)
//	}
package harness
