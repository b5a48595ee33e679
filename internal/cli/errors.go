package cli

import (
	"errors"
	"fmt"

	"github.com/roach88/taskmgr/internal/task"
)

// Error codes for failures that do not come from the store. Store failures
// report their own code (NOT_FOUND, EPIC_REASSIGNED, ...).
const (
	ErrCodeGeneric  = "E001" // Generic/unknown error
	ErrCodeConfig   = "E002" // Configuration could not be loaded or is invalid
	ErrCodeStorage  = "E003" // Backend could not be opened or loaded
	ErrCodeArgument = "E004" // Bad argument or flag value
	ErrCodeNotFound = "E005" // Path not found
)

// fail reports message through f and returns an ExitError with exitCode.
func fail(f *OutputFormatter, code string, exitCode int, message string) error {
	_ = f.Error(code, message, nil)
	return NewExitError(exitCode, fmt.Sprintf("%s: %s", code, message))
}

// failStore reports an error returned by the store. Persistence failures are
// command errors; everything else is an operation failure.
func failStore(f *OutputFormatter, err error) error {
	code := string(task.CodeOf(err))
	if code == "" {
		code = ErrCodeGeneric
	}
	exitCode := ExitFailure
	if task.IsPersistence(err) {
		exitCode = ExitCommandError
	}

	var details interface{}
	var terr *task.Error
	if errors.As(err, &terr) && terr.ID != 0 {
		details = map[string]interface{}{"type": terr.Kind, "id": terr.ID}
	}

	_ = f.Error(code, err.Error(), details)
	return WrapExitError(exitCode, code, err)
}
