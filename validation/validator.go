package validation

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/reglet-dev/reglet-addon-host/capability"
	"github.com/reglet-dev/reglet-addon-host/plugin/entities"
	"github.com/reglet-dev/reglet-addon-host/plugin/values"
)

// Validate checks m and returns every problem found. A nil result means the
// manifest is valid.
func Validate(m *entities.Manifest) []ValidationError {
	if m == nil {
		return []ValidationError{{Message: "manifest is nil"}}
	}

	var v collector
	v.id(m.ID)
	v.version("version", m.Version, true)
	lo := v.version("host_version_min", m.HostVersionMin, true)
	hi := v.version("host_version_max", m.HostVersionMax, false)
	if lo != nil && hi != nil && lo.GreaterThan(hi) {
		v.add("host_version_max", m.HostVersionMax,
			fmt.Sprintf("must not be lower than host_version_min %s", m.HostVersionMin))
	}
	v.dependencies(m.ID, m.Dependencies)
	v.permissions(m.Permissions)
	return v.errs
}

type collector struct {
	errs []ValidationError
}

func (c *collector) add(field string, value any, msg string) {
	c.errs = append(c.errs, ValidationError{Field: field, Value: value, Message: msg})
}

func (c *collector) id(id string) {
	if strings.TrimSpace(id) == "" {
		c.add("id", id, "is required")
		return
	}
	if _, err := values.NewAddonID(id); err != nil {
		c.add("id", id, err.Error())
	}
}

func (c *collector) version(field, raw string, required bool) *semver.Version {
	if strings.TrimSpace(raw) == "" {
		if required {
			c.add(field, raw, "is required")
		}
		return nil
	}
	v, err := semver.NewVersion(raw)
	if err != nil {
		c.add(field, raw, fmt.Sprintf("not a semantic version: %v", err))
		return nil
	}
	return v
}

func (c *collector) dependencies(self string, deps []entities.Dependency) {
	seen := make(map[string]struct{}, len(deps))
	for i, d := range deps {
		field := fmt.Sprintf("dependencies[%d]", i)
		if d.Name == "" {
			c.add(field+".name", d.Name, "is required")
		} else {
			if self != "" && d.Name == self {
				c.add(field+".name", d.Name, "add-on cannot depend on itself")
			}
			if _, dup := seen[d.Name]; dup {
				c.add(field+".name", d.Name, "duplicate dependency")
			}
			seen[d.Name] = struct{}{}
		}
		if _, err := semver.NewConstraint(d.Constraint); err != nil {
			c.add(field+".version", d.Constraint,
				fmt.Sprintf("invalid constraint for %q: %v", d.Name, err))
		}
	}
}

func (c *collector) permissions(perms map[string]string) {
	keys := make([]string, 0, len(perms))
	for k := range perms {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		field := fmt.Sprintf("permissions.%s", k)
		if _, err := capability.ParsePermission(k); err != nil {
			c.add(field, k, fmt.Sprintf("unknown permission; expected one of %s", vocabulary()))
			continue
		}
		if strings.TrimSpace(perms[k]) == "" {
			c.add(field, perms[k], "justification is required")
		}
	}
}

func vocabulary() string {
	vocab := capability.Vocabulary()
	names := make([]string, len(vocab))
	for i, p := range vocab {
		names[i] = string(p)
	}
	return strings.Join(names, ", ")
}
