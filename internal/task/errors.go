package task

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes store errors.
type ErrorCode string

const (
	// ErrCodeNotFound indicates an id that does not resolve to a live item.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeMissingIdentifier indicates an update of an item that was never created.
	ErrCodeMissingIdentifier ErrorCode = "MISSING_IDENTIFIER"

	// ErrCodeSelfReference indicates an epic containing itself or a subtask
	// naming itself as its epic.
	ErrCodeSelfReference ErrorCode = "INVALID_SELF_REFERENCE"

	// ErrCodeInvalidItem indicates a nil item, an unknown kind, or an
	// operation applied to the wrong kind.
	ErrCodeInvalidItem ErrorCode = "INVALID_ITEM"

	// ErrCodeEpicReassigned indicates an update that tried to move a subtask
	// to a different epic.
	ErrCodeEpicReassigned ErrorCode = "EPIC_REASSIGNED"

	// ErrCodeDuplicateIdentifier indicates a restored snapshot that reuses an id.
	ErrCodeDuplicateIdentifier ErrorCode = "DUPLICATE_IDENTIFIER"

	// ErrCodePersistence indicates a save or load failure in a backend.
	ErrCodePersistence ErrorCode = "PERSISTENCE"
)

// Error is the error type returned by store operations.
//
// Every failure is call-scoped: the operation that returned it did not
// change the store.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Op is the operation that failed ("create", "update", "load", ...).
	Op string

	// Kind and ID identify the item involved, when known.
	Kind Kind
	ID   int

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause (persistence errors).
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Op)
	if e.Kind.Valid() {
		msg += fmt.Sprintf(" %s", e.Kind)
	}
	if e.ID != 0 {
		msg += fmt.Sprintf(" #%d", e.ID)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewNotFoundError creates an Error for an unknown id.
func NewNotFoundError(op string, kind Kind, id int) *Error {
	return &Error{Code: ErrCodeNotFound, Op: op, Kind: kind, ID: id, Message: "no such item"}
}

// NewMissingIdentifierError creates an Error for an update without an id.
func NewMissingIdentifierError(op string, kind Kind) *Error {
	return &Error{Code: ErrCodeMissingIdentifier, Op: op, Kind: kind,
		Message: "item has no identifier; create it first"}
}

// NewSelfReferenceError creates an Error for an item referencing itself.
func NewSelfReferenceError(op string, it *Item) *Error {
	msg := "epic cannot contain itself as a subtask"
	if it.Kind == KindSubtask {
		msg = "subtask cannot be its own epic"
	}
	return &Error{Code: ErrCodeSelfReference, Op: op, Kind: it.Kind, ID: it.ID, Message: msg}
}

// NewPersistenceError wraps a backend failure.
func NewPersistenceError(op string, err error) *Error {
	return &Error{Code: ErrCodePersistence, Op: op, Err: err}
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsNotFound returns true if err is a not-found error.
func IsNotFound(err error) bool { return CodeOf(err) == ErrCodeNotFound }

// IsMissingIdentifier returns true if err is a missing-identifier error.
func IsMissingIdentifier(err error) bool { return CodeOf(err) == ErrCodeMissingIdentifier }

// IsSelfReference returns true if err is a self-reference error.
func IsSelfReference(err error) bool { return CodeOf(err) == ErrCodeSelfReference }

// IsPersistence returns true if err is a persistence error.
func IsPersistence(err error) bool { return CodeOf(err) == ErrCodePersistence }
