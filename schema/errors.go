package schema

import (
	"errors"
	"fmt"
)

var (
	// ErrConstraint is returned when a value violates a property's constraints.
	ErrConstraint = errors.New("property constraint violated")

	// ErrDuplicateProperty is returned when a name is declared twice.
	ErrDuplicateProperty = errors.New("duplicate property")

	// ErrInvalidDescriptor is returned for descriptors that cannot be declared.
	ErrInvalidDescriptor = errors.New("invalid property descriptor")

	// ErrAlreadyBound is returned when a schema is bound twice to one context.
	ErrAlreadyBound = errors.New("schema already bound to context")

	// ErrDetached is returned when using an instance after Detach.
	ErrDetached = errors.New("schema instance detached")
)

// ConstraintError describes a rejected write.
type ConstraintError struct {
	Value    any
	Schema   string
	Property string
	Reason   string
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("%s.%s: %s (got %v)", e.Schema, e.Property, e.Reason, e.Value)
}

// Is implements error matching for errors.Is() checks.
// This allows: errors.Is(err, schema.ErrConstraint)
func (e *ConstraintError) Is(target error) bool {
	return target == ErrConstraint
}
