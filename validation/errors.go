// Package validation checks add-on manifests before they are packaged or
// enabled.
//
// Validation is total: every check runs and every problem is reported, so a
// single malformed field never hides others.
package validation

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidManifest matches any non-empty Errors value.
var ErrInvalidManifest = errors.New("invalid manifest")

// ValidationError describes one problem with one manifest field.
type ValidationError struct {
	// Value is the offending value, if any.
	Value any
	// Field is a path such as "version" or "dependencies[2].version".
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Errors is a list of validation problems usable as a single error.
type Errors []ValidationError

func (e Errors) Error() string {
	msgs := make([]string, len(e))
	for i, ve := range e {
		msgs[i] = ve.Error()
	}
	return fmt.Sprintf("invalid manifest: %s", strings.Join(msgs, "; "))
}

// Is implements error matching for errors.Is() checks.
func (e Errors) Is(target error) bool {
	return target == ErrInvalidManifest && len(e) > 0
}

// Err returns errs as an error, or nil when errs is empty.
func Err(errs []ValidationError) error {
	if len(errs) == 0 {
		return nil
	}
	return Errors(errs)
}

// Fields returns the field paths in report order.
func (e Errors) Fields() []string {
	out := make([]string, len(e))
	for i, ve := range e {
		out[i] = ve.Field
	}
	return out
}
