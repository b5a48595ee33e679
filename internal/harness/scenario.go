package harness

import (
	"bytes"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/taskmgr/internal/task"
)

// Scenario is a scripted sequence of store operations with assertions on
// the outcome.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// HistoryLimit bounds the view history (0 = unbounded).
	HistoryLimit int `yaml:"history_limit,omitempty"`

	// Steps run in order against a fresh in-memory store.
	Steps []Step `yaml:"steps"`

	// Assertions validate the trace and final state.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is a single store operation.
//
// Items are named by Ref; a create binds the ref to the id the store
// assigns, and later steps use the ref instead of the id. ID addresses an
// item by raw id instead, for steps about ids that were never issued.
type Step struct {
	// Op is one of create, update, get, delete, clear, reload.
	Op string `yaml:"op"`

	Ref  string `yaml:"ref,omitempty"`
	ID   *int   `yaml:"id,omitempty"`
	Type string `yaml:"type,omitempty"`

	Name        *string `yaml:"name,omitempty"`
	Description *string `yaml:"description,omitempty"`
	Status      string  `yaml:"status,omitempty"`

	// Epic names the parent of a subtask by ref; EpicID by raw id.
	Epic   string `yaml:"epic,omitempty"`
	EpicID int    `yaml:"epic_id,omitempty"`

	// Via selects the reload round trip: csv (default) or sqlite.
	Via string `yaml:"via,omitempty"`

	// ExpectError is the error code the step must fail with. Steps without
	// it must succeed.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Assertion validates the trace or the final state.
type Assertion struct {
	// Type is one of status, count, history, exists, absent, error.
	Type string `yaml:"type"`

	// Ref names the item (status, exists, absent).
	Ref string `yaml:"ref,omitempty"`

	// Status is the expected item status (status).
	Status string `yaml:"status,omitempty"`

	// Kind selects the item type (count).
	Kind string `yaml:"kind,omitempty"`

	// Count is the expected number of items (count).
	Count int `yaml:"count,omitempty"`

	// Refs is the expected history, least recent first (history).
	Refs []string `yaml:"refs,omitempty"`

	// Step is the 1-based step number and Code its expected outcome (error).
	Step int    `yaml:"step,omitempty"`
	Code string `yaml:"code,omitempty"`
}

// Step operations.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpGet    = "get"
	OpDelete = "delete"
	OpClear  = "clear"
	OpReload = "reload"
)

// Reload round trips.
const (
	ViaCSV    = "csv"
	ViaSQLite = "sqlite"
)

// Assertion type constants.
const (
	AssertStatus  = "status"
	AssertCount   = "count"
	AssertHistory = "history"
	AssertExists  = "exists"
	AssertAbsent  = "absent"
	AssertError   = "error"
)

var errorCodes = []string{
	string(task.ErrCodeNotFound),
	string(task.ErrCodeMissingIdentifier),
	string(task.ErrCodeSelfReference),
	string(task.ErrCodeInvalidItem),
	string(task.ErrCodeEpicReassigned),
	string(task.ErrCodeDuplicateIdentifier),
	string(task.ErrCodePersistence),
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field validation.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // catches typos like "assertion:" vs "assertions:"
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.HistoryLimit < 0 {
		return fmt.Errorf("history_limit must be non-negative")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion, len(s.Steps)); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, s *Step) error {
	addressed := s.Ref != "" || s.ID != nil

	switch s.Op {
	case OpCreate:
		if s.Ref == "" {
			return fmt.Errorf("steps[%d]: ref is required for create", index)
		}
		if s.ID != nil {
			return fmt.Errorf("steps[%d]: create cannot take an id", index)
		}
		if s.Type == "" {
			return fmt.Errorf("steps[%d]: type is required for create", index)
		}
	case OpUpdate, OpGet, OpDelete:
		if !addressed {
			return fmt.Errorf("steps[%d]: ref or id is required for %s", index, s.Op)
		}
		if s.ID != nil && s.Type == "" {
			return fmt.Errorf("steps[%d]: type is required with id", index)
		}
	case OpClear:
		if s.Type == "" {
			return fmt.Errorf("steps[%d]: type is required for clear", index)
		}
	case OpReload:
		if s.Via != "" && s.Via != ViaCSV && s.Via != ViaSQLite {
			return fmt.Errorf("steps[%d]: via must be %s or %s", index, ViaCSV, ViaSQLite)
		}
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, s.Op)
	}

	if s.Type != "" {
		if _, err := task.ParseKind(s.Type); err != nil {
			return fmt.Errorf("steps[%d]: %w", index, err)
		}
	}
	if s.Status != "" {
		if _, err := task.ParseStatus(s.Status); err != nil {
			return fmt.Errorf("steps[%d]: %w", index, err)
		}
	}
	if s.ExpectError != "" && !slices.Contains(errorCodes, s.ExpectError) {
		return fmt.Errorf("steps[%d]: unknown error code %q", index, s.ExpectError)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, steps int) error {
	switch a.Type {
	case AssertStatus:
		if a.Ref == "" {
			return fmt.Errorf("assertions[%d]: ref is required for status", index)
		}
		if _, err := task.ParseStatus(a.Status); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	case AssertCount:
		if _, err := task.ParseKind(a.Kind); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertHistory:
		// An empty refs list asserts an empty history.
	case AssertExists, AssertAbsent:
		if a.Ref == "" {
			return fmt.Errorf("assertions[%d]: ref is required for %s", index, a.Type)
		}
	case AssertError:
		if a.Step < 1 || a.Step > steps {
			return fmt.Errorf("assertions[%d]: step must be between 1 and %d", index, steps)
		}
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for error", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
