// Package csvfile persists task snapshots as CSV.
//
// The file has a header row followed by one row per item:
//
//	id,type,name,status,description,epicId
//	1,TASK,Write report,NEW,Quarterly numbers,
//	2,EPIC,Release,IN_PROGRESS,,
//	3,SUBTASK,Tag build,DONE,,2
//
// epicId is only set on SUBTASK rows. Epic statuses are written for
// readability but re-derived on load. Text fields are NFC-normalised on
// write and quoted as needed, so names may contain commas or newlines.
// The view history is not stored.
package csvfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/taskmgr/internal/task"
)

// Header is the first row of every file.
var Header = []string{"id", "type", "name", "status", "description", "epicId"}

// ParseError reports a row that could not be decoded.
type ParseError struct {
	Line   int    // 1-based line in the input
	Reason string // what was wrong with the row
	Err    error  // underlying parse error, if any
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("line %d: %s: %v", e.Line, e.Reason, e.Err)
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// Unwrap returns the underlying parse error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// DecodeOptions controls Decode.
type DecodeOptions struct {
	// Tolerant skips bad rows (logging each one) instead of aborting on the
	// first. A row is bad when it fails to parse or reuses an earlier row's
	// id; the first row with an id wins. Malformed CSV syntax always aborts.
	Tolerant bool

	// Logger receives skipped-row warnings. Defaults to slog.Default().
	Logger *slog.Logger
}

// Encode writes snap as CSV: header, tasks, epics, subtasks, each sorted by id.
func Encode(w io.Writer, snap task.Snapshot) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, kind := range task.Kinds {
		items := slices.Clone(snap.Items(kind))
		task.SortByID(items)
		for _, it := range items {
			if err := cw.Write(encodeRow(it)); err != nil {
				return fmt.Errorf("write %s %d: %w", kind, it.ID, err)
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

func encodeRow(it *task.Item) []string {
	epicID := ""
	if it.Kind == task.KindSubtask {
		epicID = strconv.Itoa(it.EpicID)
	}
	return []string{
		strconv.Itoa(it.ID),
		it.Kind.String(),
		norm.NFC.String(it.Name),
		it.Status.String(),
		norm.NFC.String(it.Description),
		epicID,
	}
}

// Decode reads a snapshot written by Encode. An empty input decodes to an
// empty snapshot.
func Decode(r io.Reader, opts DecodeOptions) (task.Snapshot, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // column count is checked per row

	var snap task.Snapshot
	seen := make(map[int]int) // id -> line

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return snap, nil
	}
	if err != nil {
		return task.Snapshot{}, &ParseError{Line: 1, Reason: "malformed header", Err: err}
	}
	if !slices.Equal(header, Header) {
		return task.Snapshot{}, &ParseError{Line: 1, Reason: fmt.Sprintf("unexpected header %v", header)}
	}

	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			line := 0
			var csvErr *csv.ParseError
			if errors.As(err, &csvErr) {
				line = csvErr.Line
			}
			return task.Snapshot{}, &ParseError{Line: line, Reason: "malformed csv", Err: err}
		}

		line, _ := cr.FieldPos(0)
		it, perr := decodeRow(record, line)
		if perr == nil {
			if first, dup := seen[it.ID]; dup {
				perr = &ParseError{Line: line, Reason: fmt.Sprintf("duplicate id %d (first on line %d)", it.ID, first)}
			}
		}
		if perr != nil {
			if !opts.Tolerant {
				return task.Snapshot{}, perr
			}
			logger.Warn("skipping unreadable row", "line", perr.Line, "reason", perr.Reason, "error", perr.Err)
			continue
		}
		seen[it.ID] = line
		snap.Add(it)
	}

	return snap, nil
}

func decodeRow(record []string, line int) (*task.Item, *ParseError) {
	if len(record) != len(Header) {
		return nil, &ParseError{Line: line, Reason: fmt.Sprintf("expected %d columns, got %d", len(Header), len(record))}
	}

	id, err := strconv.Atoi(record[0])
	if err != nil {
		return nil, &ParseError{Line: line, Reason: "invalid id", Err: err}
	}
	if id <= 0 {
		return nil, &ParseError{Line: line, Reason: fmt.Sprintf("id must be positive, got %d", id)}
	}

	kind, err := task.ParseKind(record[1])
	if err != nil {
		return nil, &ParseError{Line: line, Reason: "invalid type", Err: err}
	}

	status, err := task.ParseStatus(record[3])
	if err != nil {
		return nil, &ParseError{Line: line, Reason: "invalid status", Err: err}
	}

	it := &task.Item{
		ID:          id,
		Kind:        kind,
		Name:        record[2],
		Status:      status,
		Description: record[4],
	}

	switch {
	case kind == task.KindSubtask:
		if record[5] == "" {
			return nil, &ParseError{Line: line, Reason: "subtask row without epicId"}
		}
		epicID, err := strconv.Atoi(record[5])
		if err != nil {
			return nil, &ParseError{Line: line, Reason: "invalid epicId", Err: err}
		}
		if epicID == id {
			return nil, &ParseError{Line: line, Reason: fmt.Sprintf("subtask %d names itself as its epic", id)}
		}
		it.EpicID = epicID
	case record[5] != "":
		return nil, &ParseError{Line: line, Reason: fmt.Sprintf("epicId set on %s row", kind)}
	}

	return it, nil
}
