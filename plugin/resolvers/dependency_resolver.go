package resolvers

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/reglet-dev/reglet-addon-host/plugin/entities"
)

// ErrDependencyCycle is returned by Order when manifests depend on each other.
var ErrDependencyCycle = errors.New("dependency cycle")

// DependencyResolver checks manifests against the running host and the set of
// enabled add-ons.
type DependencyResolver struct {
	versions *SemverResolver
}

// NewDependencyResolver creates a new DependencyResolver.
func NewDependencyResolver() *DependencyResolver {
	return &DependencyResolver{versions: NewSemverResolver()}
}

// Check verifies every dependency of m against enabled, which maps add-on id
// to enabled version. All unsatisfied dependencies are reported together as
// *entities.DependencyError values.
func (r *DependencyResolver) Check(m *entities.Manifest, enabled map[string]string) error {
	var errs []error
	for _, dep := range m.Dependencies {
		found, ok := enabled[dep.Name]
		if !ok {
			errs = append(errs, &entities.DependencyError{AddonID: m.ID, Dependency: dep})
			continue
		}
		if _, err := r.versions.Resolve(dep.Constraint, []string{found}); err != nil {
			errs = append(errs, &entities.DependencyError{AddonID: m.ID, Dependency: dep, Found: found})
		}
	}
	return errors.Join(errs...)
}

// CheckHost verifies hostVersion lies within the manifest's host range. An
// empty maximum leaves the range open.
func (r *DependencyResolver) CheckHost(m *entities.Manifest, hostVersion string) error {
	host, err := semver.NewVersion(hostVersion)
	if err != nil {
		return fmt.Errorf("host version %q: %w", hostVersion, err)
	}
	incompatible := &entities.IncompatibleHostError{
		AddonID:     m.ID,
		HostVersion: hostVersion,
		Min:         m.HostVersionMin,
		Max:         m.HostVersionMax,
	}

	lo, err := semver.NewVersion(m.HostVersionMin)
	if err != nil {
		return fmt.Errorf("%s: host_version_min: %w", m.ID, err)
	}
	if host.LessThan(lo) {
		return incompatible
	}
	if m.HostVersionMax == "" {
		return nil
	}
	hi, err := semver.NewVersion(m.HostVersionMax)
	if err != nil {
		return fmt.Errorf("%s: host_version_max: %w", m.ID, err)
	}
	if host.GreaterThan(hi) {
		return incompatible
	}
	return nil
}

// Dependents returns the ids of manifests that depend on id, sorted.
func Dependents(id string, manifests []*entities.Manifest) []string {
	var out []string
	for _, m := range manifests {
		if slices.Contains(m.DependencyNames(), id) {
			out = append(out, m.ID)
		}
	}
	slices.Sort(out)
	return out
}

// Order sorts manifests so that every add-on comes after the add-ons it
// depends on. Input order is kept among independent manifests. Dependencies
// outside the given set are ignored.
func Order(manifests []*entities.Manifest) ([]*entities.Manifest, error) {
	index := make(map[string]int, len(manifests))
	for i, m := range manifests {
		index[m.ID] = i
	}

	pending := make([]int, len(manifests))
	dependents := make([][]int, len(manifests))
	for i, m := range manifests {
		for _, name := range m.DependencyNames() {
			j, ok := index[name]
			if !ok || j == i {
				continue
			}
			pending[i]++
			dependents[j] = append(dependents[j], i)
		}
	}

	out := make([]*entities.Manifest, 0, len(manifests))
	done := make([]bool, len(manifests))
	for len(out) < len(manifests) {
		progressed := false
		for i, m := range manifests {
			if done[i] || pending[i] > 0 {
				continue
			}
			done[i] = true
			progressed = true
			out = append(out, m)
			for _, d := range dependents[i] {
				pending[d]--
			}
			break
		}
		if !progressed {
			var stuck []string
			for i, m := range manifests {
				if !done[i] {
					stuck = append(stuck, m.ID)
				}
			}
			return nil, fmt.Errorf("%w between %s", ErrDependencyCycle, strings.Join(stuck, ", "))
		}
	}
	return out, nil
}
