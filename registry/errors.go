package registry

import (
	"errors"
	"fmt"
	"strings"

	"github.com/reglet-dev/reglet-addon-host/capability"
)

// Sentinel errors for common error patterns.
// These allow both errors.Is() checks and errors.As() for detailed information.
var (
	// ErrDuplicateID is returned when registering an id that is already live.
	ErrDuplicateID = errors.New("duplicate capability id")

	// ErrNotFound is returned for handles or ids the registry does not hold.
	ErrNotFound = errors.New("capability not found")

	// ErrReversal is returned when a reversal closure fails.
	ErrReversal = errors.New("reversal failed")
)

// DuplicateIDError reports a registration clash.
type DuplicateIDError struct {
	ID       string
	Existing capability.Kind
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("duplicate capability id: %s (already registered as %s)", e.ID, e.Existing)
}

// Is implements error matching for errors.Is() checks.
// This allows: errors.Is(err, registry.ErrDuplicateID)
func (e *DuplicateIDError) Is(target error) bool {
	return target == ErrDuplicateID
}

// NotFoundError reports an unknown handle.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("capability not found: %s", e.ID)
}

// Is implements error matching for errors.Is() checks.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ReversalError wraps the failure of one reversal. The entry it belongs to
// has been removed regardless.
type ReversalError struct {
	Err error
	ID  string
}

func (e *ReversalError) Error() string {
	return fmt.Sprintf("reversal of %s failed: %v", e.ID, e.Err)
}

// Is implements error matching for errors.Is() checks.
func (e *ReversalError) Is(target error) bool {
	return target == ErrReversal
}

func (e *ReversalError) Unwrap() error { return e.Err }

// ReversalErrors aggregates the failures of a bulk unregistration, in the
// order the reversals ran.
type ReversalErrors []*ReversalError

func (e ReversalErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%d reversal(s) failed: %s", len(e), strings.Join(msgs, "; "))
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e ReversalErrors) Unwrap() []error {
	out := make([]error, len(e))
	for i, err := range e {
		out[i] = err
	}
	return out
}

// IDs returns the ids whose reversal failed.
func (e ReversalErrors) IDs() []string {
	out := make([]string, len(e))
	for i, err := range e {
		out[i] = err.ID
	}
	return out
}
