package entities

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common error patterns.
// These allow both errors.Is() checks and errors.As() for detailed information.
var (
	// ErrAddonNotFound is returned when an add-on is not enabled.
	ErrAddonNotFound = errors.New("add-on not found")

	// ErrDependencyUnsatisfied is returned when a dependency has no matching
	// enabled add-on.
	ErrDependencyUnsatisfied = errors.New("dependency unsatisfied")

	// ErrIncompatibleHost is returned when the running host is outside the
	// manifest's host version range.
	ErrIncompatibleHost = errors.New("incompatible host version")

	// ErrDependents is returned when disabling an add-on others depend on.
	ErrDependents = errors.New("add-on has enabled dependents")
)

// AddonNotFoundError indicates the add-on is not enabled.
type AddonNotFoundError struct {
	ID string
}

func (e *AddonNotFoundError) Error() string {
	return fmt.Sprintf("add-on not found: %s", e.ID)
}

// Is implements error matching for errors.Is() checks.
// This allows: errors.Is(err, entities.ErrAddonNotFound)
func (e *AddonNotFoundError) Is(target error) bool {
	return target == ErrAddonNotFound
}

// DependencyError indicates a dependency of an add-on is not satisfied.
type DependencyError struct {
	AddonID    string
	Dependency Dependency
	// Found is the enabled version, empty when the dependency is not enabled.
	Found string
}

func (e *DependencyError) Error() string {
	if e.Found == "" {
		return fmt.Sprintf("%s requires %s: not enabled", e.AddonID, e.Dependency)
	}
	return fmt.Sprintf("%s requires %s: found %s", e.AddonID, e.Dependency, e.Found)
}

// Is implements error matching for errors.Is() checks.
func (e *DependencyError) Is(target error) bool {
	return target == ErrDependencyUnsatisfied
}

// IncompatibleHostError reports a host version outside the supported range.
type IncompatibleHostError struct {
	AddonID     string
	HostVersion string
	Min         string
	Max         string
}

func (e *IncompatibleHostError) Error() string {
	rng := ">= " + e.Min
	if e.Max != "" {
		rng += ", <= " + e.Max
	}
	return fmt.Sprintf("%s supports host %s, running %s", e.AddonID, rng, e.HostVersion)
}

// Is implements error matching for errors.Is() checks.
func (e *IncompatibleHostError) Is(target error) bool {
	return target == ErrIncompatibleHost
}

// DependentsError lists the enabled add-ons blocking a disable.
type DependentsError struct {
	AddonID    string
	Dependents []string
}

func (e *DependentsError) Error() string {
	return fmt.Sprintf("cannot disable %s: required by %s", e.AddonID, strings.Join(e.Dependents, ", "))
}

// Is implements error matching for errors.Is() checks.
func (e *DependentsError) Is(target error) bool {
	return target == ErrDependents
}
