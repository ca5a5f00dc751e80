// Package entities contains domain entities for add-on packaging and lifecycle.
package entities

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Manifest is the packaging descriptor of an add-on: identity, compatible host
// versions, dependencies and declared permissions.
//
// A Manifest is a plain data holder. Use the validation package to check it.
type Manifest struct {
	// Permissions maps a permission name to the justification shown to users.
	Permissions    map[string]string `json:"permissions,omitempty" yaml:"permissions,omitempty"`
	ID             string            `json:"id" yaml:"id"`
	Version        string            `json:"version" yaml:"version"`
	Name           string            `json:"name,omitempty" yaml:"name,omitempty"`
	Description    string            `json:"description,omitempty" yaml:"description,omitempty"`
	HostVersionMin string            `json:"host_version_min" yaml:"host_version_min"`
	HostVersionMax string            `json:"host_version_max,omitempty" yaml:"host_version_max,omitempty"`
	Dependencies   []Dependency      `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
}

// DisplayName returns Name, falling back to ID.
func (m *Manifest) DisplayName() string {
	if m.Name != "" {
		return m.Name
	}
	return m.ID
}

// PermissionNames returns the declared permission keys, sorted.
func (m *Manifest) PermissionNames() []string {
	return slices.Sorted(maps.Keys(m.Permissions))
}

// DependencyNames returns dependency names in declaration order.
func (m *Manifest) DependencyNames() []string {
	names := make([]string, 0, len(m.Dependencies))
	for _, d := range m.Dependencies {
		names = append(names, d.Name)
	}
	return names
}

// AnyConstraint matches every version.
const AnyConstraint = "*"

// constraintStart holds the characters that begin a version constraint in the
// short "name constraint" form.
const constraintStart = " <>=!~^"

// Dependency is a required add-on plus the version constraint it must satisfy.
//
// In documents it may be written either as a string such as "numpy >= 1.20"
// or as an object {"name": "numpy", "version": ">= 1.20"}.
type Dependency struct {
	Name       string `json:"name" yaml:"name"`
	Constraint string `json:"version,omitempty" yaml:"version,omitempty"`
}

// ParseDependency splits the short "name constraint" form. A missing
// constraint becomes AnyConstraint.
func ParseDependency(s string) Dependency {
	s = strings.TrimSpace(s)
	i := strings.IndexAny(s, constraintStart)
	if i < 0 {
		return Dependency{Name: s, Constraint: AnyConstraint}
	}
	d := Dependency{
		Name:       strings.TrimSpace(s[:i]),
		Constraint: strings.TrimSpace(s[i:]),
	}
	if d.Constraint == "" {
		d.Constraint = AnyConstraint
	}
	return d
}

// String renders the short form.
func (d Dependency) String() string {
	if d.Constraint == "" || d.Constraint == AnyConstraint {
		return d.Name
	}
	return d.Name + " " + d.Constraint
}

type dependencyObject struct {
	Name       string `json:"name" yaml:"name"`
	Constraint string `json:"version" yaml:"version"`
}

func (o dependencyObject) normalize() Dependency {
	d := Dependency{Name: strings.TrimSpace(o.Name), Constraint: strings.TrimSpace(o.Constraint)}
	if d.Constraint == "" {
		d.Constraint = AnyConstraint
	}
	return d
}

// UnmarshalJSON accepts both the string and the object form.
func (d *Dependency) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*d = ParseDependency(s)
		return nil
	}
	var o dependencyObject
	if err := json.Unmarshal(data, &o); err != nil {
		return fmt.Errorf("dependency must be a string or an object with name and version: %w", err)
	}
	*d = o.normalize()
	return nil
}

// UnmarshalYAML accepts both the string and the object form.
func (d *Dependency) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*d = ParseDependency(node.Value)
		return nil
	case yaml.MappingNode:
		var o dependencyObject
		if err := node.Decode(&o); err != nil {
			return err
		}
		*d = o.normalize()
		return nil
	default:
		return fmt.Errorf("line %d: dependency must be a string or a mapping", node.Line)
	}
}
