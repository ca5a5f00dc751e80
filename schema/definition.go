// Package schema declares typed, constrained properties and binds them to
// host contexts as validated value stores.
package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/invopop/jsonschema"
)

// Definition is a named, ordered set of property descriptors.
type Definition struct {
	byName map[string]int
	name   string
	props  []Descriptor
}

// NewDefinition creates an empty definition. The name doubles as the
// attachment name when instances are bound to a context.
func NewDefinition(name string) *Definition {
	return &Definition{name: name, byName: make(map[string]int)}
}

// Name returns the definition name.
func (d *Definition) Name() string { return d.name }

// Declare adds a property. It fails on duplicate names and on descriptors
// whose constraints are inconsistent.
func (d *Definition) Declare(desc Descriptor) error {
	if _, ok := d.byName[desc.Name]; ok {
		return fmt.Errorf("%w: %s.%s", ErrDuplicateProperty, d.name, desc.Name)
	}
	norm, err := desc.normalize()
	if err != nil {
		return fmt.Errorf("declare %s: %w", d.name, err)
	}
	d.byName[norm.Name] = len(d.props)
	d.props = append(d.props, norm)
	return nil
}

// MustDeclare is Declare for static definitions; it panics on error.
func (d *Definition) MustDeclare(descs ...Descriptor) *Definition {
	for _, desc := range descs {
		if err := d.Declare(desc); err != nil {
			panic(err)
		}
	}
	return d
}

// Descriptor returns the named descriptor.
func (d *Definition) Descriptor(name string) (Descriptor, bool) {
	i, ok := d.byName[name]
	if !ok {
		return Descriptor{}, false
	}
	return d.props[i], true
}

// Descriptors returns the descriptors in declaration order.
func (d *Definition) Descriptors() []Descriptor {
	out := make([]Descriptor, len(d.props))
	copy(out, d.props)
	return out
}

// Len returns the number of declared properties.
func (d *Definition) Len() int { return len(d.props) }

// JSONSchema exports the definition as a JSON Schema object, e.g. for
// generating preference forms.
func (d *Definition) JSONSchema() *jsonschema.Schema {
	s := &jsonschema.Schema{
		Version:              jsonschema.Version,
		Title:                d.name,
		Type:                 "object",
		Properties:           jsonschema.NewProperties(),
		AdditionalProperties: jsonschema.FalseSchema,
	}
	for _, p := range d.props {
		s.Properties.Set(p.Name, p.jsonSchema())
	}
	return s
}

func (d Descriptor) jsonSchema() *jsonschema.Schema {
	s := &jsonschema.Schema{
		Title:       d.Label,
		Description: d.Description,
		Default:     d.Default,
	}

	switch d.Type {
	case String:
		s.Type = "string"
	case Bool:
		s.Type = "boolean"
	case Int:
		s.Type = "integer"
		d.bounds(s)
	case Float:
		s.Type = "number"
		d.bounds(s)
	case Enum:
		s.Type = "string"
		for _, item := range d.Items {
			s.Enum = append(s.Enum, item)
		}
	case Vector:
		size := uint64(d.Size)
		item := &jsonschema.Schema{Type: "number"}
		d.bounds(item)
		s.Type = "array"
		s.Items = item
		s.MinItems = &size
		s.MaxItems = &size
	}
	return s
}

func (d Descriptor) bounds(s *jsonschema.Schema) {
	if d.Range == nil {
		return
	}
	if !math.IsInf(d.Range.Min, 0) {
		s.Minimum = json.Number(strconv.FormatFloat(d.Range.Min, 'f', -1, 64))
	}
	if !math.IsInf(d.Range.Max, 0) {
		s.Maximum = json.Number(strconv.FormatFloat(d.Range.Max, 'f', -1, 64))
	}
}
