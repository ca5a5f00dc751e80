// Package compat resolves which host API surface applies to a host version.
//
// A Gate holds monotonically ordered version thresholds, each carrying the
// API differences introduced at that version. Resolving a host version folds
// every difference up to the highest threshold not above it, so renames
// chain across releases.
package compat

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/Masterminds/semver/v3"
)

var (
	// ErrUnsupportedVersion is returned for host versions below every
	// threshold.
	ErrUnsupportedVersion = errors.New("unsupported host version")

	// ErrNoThresholds is returned when resolving against an empty gate.
	ErrNoThresholds = errors.New("compatibility gate has no thresholds")

	// ErrDuplicateThreshold is returned when a version is added twice.
	ErrDuplicateThreshold = errors.New("duplicate threshold")
)

// Difference lists the API changes introduced at a threshold.
type Difference struct {
	// Renamed maps old primitive names to their new names.
	Renamed map[string]string
	// RequiredParams lists parameters that became mandatory, per operation.
	RequiredParams map[string][]string
	// Removed lists global state setters that no longer exist.
	Removed []string
}

type threshold struct {
	version *semver.Version
	diff    Difference
}

// Gate maps host version thresholds to API differences.
type Gate struct {
	thresholds []threshold
}

// NewGate creates an empty gate.
func NewGate() *Gate { return &Gate{} }

// Add registers the differences introduced at version.
func (g *Gate) Add(version string, diff Difference) error {
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("threshold %q: %w", version, err)
	}
	i, found := slices.BinarySearchFunc(g.thresholds, v, func(t threshold, v *semver.Version) int {
		return t.version.Compare(v)
	})
	if found {
		return fmt.Errorf("%w: %s", ErrDuplicateThreshold, v)
	}
	g.thresholds = slices.Insert(g.thresholds, i, threshold{version: v, diff: diff})
	return nil
}

// MustAdd is Add for static tables; it panics on error.
func (g *Gate) MustAdd(version string, diff Difference) *Gate {
	if err := g.Add(version, diff); err != nil {
		panic(err)
	}
	return g
}

// Thresholds returns the threshold versions in ascending order.
func (g *Gate) Thresholds() []*semver.Version {
	out := make([]*semver.Version, len(g.thresholds))
	for i, t := range g.thresholds {
		out[i] = t.version
	}
	return out
}

// Resolve parses hostVersion and returns the capability set that applies to
// it.
func (g *Gate) Resolve(hostVersion string) (CapabilitySet, error) {
	v, err := semver.NewVersion(hostVersion)
	if err != nil {
		return CapabilitySet{}, fmt.Errorf("host version %q: %w", hostVersion, err)
	}
	return g.ResolveVersion(v)
}

// ResolveVersion selects the highest threshold <= v. Versions above every
// threshold resolve to the highest one.
func (g *Gate) ResolveVersion(v *semver.Version) (CapabilitySet, error) {
	if len(g.thresholds) == 0 {
		return CapabilitySet{}, ErrNoThresholds
	}
	if v.LessThan(g.thresholds[0].version) {
		return CapabilitySet{}, fmt.Errorf("%w: %s is older than %s", ErrUnsupportedVersion, v, g.thresholds[0].version)
	}

	set := CapabilitySet{
		renamed:  make(map[string]string),
		removed:  make(map[string]struct{}),
		required: make(map[string][]string),
	}
	for _, t := range g.thresholds {
		if t.version.GreaterThan(v) {
			break
		}
		set.apply(t.diff)
		set.threshold = t.version
	}
	return set, nil
}

// CapabilitySet is the API surface active for one host version.
type CapabilitySet struct {
	threshold *semver.Version
	renamed   map[string]string
	removed   map[string]struct{}
	required  map[string][]string
}

func (s *CapabilitySet) apply(d Difference) {
	// Chain existing renames through the new ones first.
	for old, cur := range s.renamed {
		if next, ok := d.Renamed[cur]; ok {
			s.renamed[old] = next
		}
	}
	for old, next := range d.Renamed {
		if _, ok := s.renamed[old]; !ok {
			s.renamed[old] = next
		}
	}
	for _, r := range d.Removed {
		s.removed[r] = struct{}{}
	}
	for op, params := range d.RequiredParams {
		merged := append(slices.Clone(s.required[op]), params...)
		slices.Sort(merged)
		s.required[op] = slices.Compact(merged)
	}
}

// Threshold returns the selected threshold version.
func (s CapabilitySet) Threshold() *semver.Version { return s.threshold }

// Name translates a primitive name to its current spelling. Names that were
// never renamed are returned unchanged.
func (s CapabilitySet) Name(primitive string) string {
	if n, ok := s.renamed[primitive]; ok {
		return n
	}
	return primitive
}

// Removed reports whether a global state setter no longer exists.
func (s CapabilitySet) Removed(setter string) bool {
	_, ok := s.removed[setter]
	return ok
}

// RequiredParams returns the parameters op requires, sorted.
func (s CapabilitySet) RequiredParams(op string) []string {
	return slices.Clone(s.required[op])
}

// Renames returns the full rename table.
func (s CapabilitySet) Renames() map[string]string {
	return maps.Clone(s.renamed)
}
