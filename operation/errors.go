package operation

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error patterns.
var (
	// ErrPollRejected is returned when an action's poll refuses a context.
	ErrPollRejected = errors.New("poll rejected")

	// ErrUnknownAction is returned for ids the engine has no operator for.
	ErrUnknownAction = errors.New("unknown action")

	// ErrActionExists is returned when adding an id twice.
	ErrActionExists = errors.New("action already added")

	// ErrModalBusy is returned when invoking while a modal operation runs.
	ErrModalBusy = errors.New("a modal operation is already running")

	// ErrOperationEnded is returned when delivering events to a finished,
	// cancelled or foreign operation state.
	ErrOperationEnded = errors.New("operation has ended")

	// ErrInvalidTransition is returned when an operator step returns a status
	// that is not allowed in its phase. The operation is cancelled.
	ErrInvalidTransition = errors.New("invalid operation transition")
)

// PollRejectedError reports that an action is unavailable in the current
// context.
type PollRejectedError struct {
	ActionID string
}

func (e *PollRejectedError) Error() string {
	return fmt.Sprintf("poll rejected: %s is not available in this context", e.ActionID)
}

// Is implements error matching for errors.Is() checks.
// This allows: errors.Is(err, operation.ErrPollRejected)
func (e *PollRejectedError) Is(target error) bool {
	return target == ErrPollRejected
}
