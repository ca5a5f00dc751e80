// Package resolvers matches add-on dependencies and host ranges against
// semantic versions.
package resolvers

import (
	"fmt"
	"sort"

	"github.com/Masterminds/semver/v3"
)

// SemverResolver picks versions that satisfy constraints using
// Masterminds/semver.
type SemverResolver struct{}

// NewSemverResolver creates a new SemverResolver.
func NewSemverResolver() *SemverResolver {
	return &SemverResolver{}
}

// Constraint parses a constraint. "latest", "*" and "" match every version.
func (r *SemverResolver) Constraint(constraint string) (*semver.Constraints, error) {
	switch constraint {
	case "", "*", "latest":
		constraint = ">= 0.0.0-0"
	}
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return nil, fmt.Errorf("invalid version constraint %q: %w", constraint, err)
	}
	return c, nil
}

// Resolve converts a version constraint to an exact version from the available options.
// It returns the highest version that satisfies the constraint.
func (r *SemverResolver) Resolve(constraint string, available []string) (string, error) {
	c, err := r.Constraint(constraint)
	if err != nil {
		return "", err
	}

	var valid []*semver.Version
	for _, vStr := range available {
		v, err := semver.NewVersion(vStr)
		if err != nil {
			continue // Skip invalid versions in availability list
		}
		if c.Check(v) {
			valid = append(valid, v)
		}
	}

	if len(valid) == 0 {
		return "", fmt.Errorf("no version satisfies constraint %q from available options", constraint)
	}

	// Collection sorts ascending, so the last element is the highest.
	sort.Sort(semver.Collection(valid))
	return valid[len(valid)-1].Original(), nil
}

// Satisfies reports whether version meets constraint.
func (r *SemverResolver) Satisfies(constraint, version string) (bool, error) {
	c, err := r.Constraint(constraint)
	if err != nil {
		return false, err
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return false, fmt.Errorf("invalid version %q: %w", version, err)
	}
	return c.Check(v), nil
}
