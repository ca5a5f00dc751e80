package schema

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/reglet-dev/reglet-addon-host/hostctx"
)

// Instance holds validated values for a Definition, bound to one context.
type Instance struct {
	def      *Definition
	ctx      *hostctx.Context
	values   map[string]any
	detached bool
}

// Value is one named property value.
type Value struct {
	Value any
	Name  string
}

// Bind creates an instance of def with all defaults applied and attaches it to
// ctx. A definition can be bound at most once per context.
func Bind(def *Definition, ctx *hostctx.Context) (*Instance, error) {
	inst := &Instance{def: def, ctx: ctx, values: make(map[string]any, def.Len())}
	for _, p := range def.props {
		inst.values[p.Name] = clone(p.Default)
	}
	if err := ctx.Attach(inst); err != nil {
		if errors.Is(err, hostctx.ErrAttached) {
			return nil, fmt.Errorf("%w: %s on %s", ErrAlreadyBound, def.name, ctx.ID())
		}
		return nil, err
	}
	return inst, nil
}

// Lookup returns the instance of def bound to ctx, if any.
func Lookup(def *Definition, ctx *hostctx.Context) (*Instance, bool) {
	a, ok := ctx.Attachment(def.name)
	if !ok {
		return nil, false
	}
	inst, ok := a.(*Instance)
	return inst, ok
}

// AttachmentName implements hostctx.Attachment.
func (i *Instance) AttachmentName() string { return i.def.name }

// Definition returns the instance's definition.
func (i *Instance) Definition() *Definition { return i.def }

// Context returns the bound context, or nil after Detach.
func (i *Instance) Context() *hostctx.Context {
	if i.detached {
		return nil
	}
	return i.ctx
}

// Detached reports whether Detach has been called.
func (i *Instance) Detached() bool { return i.detached }

// Get returns the current value of a property. Properties declared after
// the instance was bound read as their default.
func (i *Instance) Get(name string) (any, bool) {
	if v, ok := i.values[name]; ok {
		return clone(v), true
	}
	if p, ok := i.def.Descriptor(name); ok {
		return clone(p.Default), true
	}
	return nil, false
}

// Set validates and stores a value. Numeric values are clamped to the
// declared range; anything else that violates the descriptor is rejected
// with a *ConstraintError and the previous value is kept.
func (i *Instance) Set(name string, value any) error {
	if i.detached {
		return fmt.Errorf("set %s.%s: %w", i.def.name, name, ErrDetached)
	}
	p, ok := i.def.Descriptor(name)
	if !ok {
		return &ConstraintError{Schema: i.def.name, Property: name, Value: value, Reason: "unknown property"}
	}
	v, reason := p.coerce(value)
	if reason != "" {
		return &ConstraintError{Schema: i.def.name, Property: name, Value: value, Reason: reason}
	}
	i.values[name] = v
	return nil
}

// Apply sets several values in declaration order. Every failing write is
// reported; successful writes are kept.
func (i *Instance) Apply(values map[string]any) error {
	var errs []error
	for _, p := range i.def.props {
		if v, ok := values[p.Name]; ok {
			if err := i.Set(p.Name, v); err != nil {
				errs = append(errs, err)
			}
		}
	}
	for _, name := range slices.Sorted(maps.Keys(values)) {
		if _, ok := i.def.byName[name]; !ok {
			errs = append(errs, &ConstraintError{Schema: i.def.name, Property: name, Value: values[name], Reason: "unknown property"})
		}
	}
	return errors.Join(errs...)
}

// Reset restores a property to its default.
func (i *Instance) Reset(name string) error {
	p, ok := i.def.Descriptor(name)
	if !ok {
		return &ConstraintError{Schema: i.def.name, Property: name, Reason: "unknown property"}
	}
	return i.Set(name, p.Default)
}

// Values returns every value in declaration order.
func (i *Instance) Values() []Value {
	out := make([]Value, 0, len(i.def.props))
	for _, p := range i.def.props {
		v, _ := i.Get(p.Name)
		out = append(out, Value{Name: p.Name, Value: v})
	}
	return out
}

// Map returns the values keyed by name.
func (i *Instance) Map() map[string]any {
	out := make(map[string]any, len(i.def.props))
	for _, v := range i.Values() {
		out[v.Name] = v.Value
	}
	return out
}

// Detach severs the context binding. It may be called once.
func (i *Instance) Detach() error {
	if i.detached {
		return fmt.Errorf("detach %s: %w", i.def.name, ErrDetached)
	}
	i.detached = true
	if a, ok := i.ctx.Attachment(i.def.name); ok && a == hostctx.Attachment(i) {
		return i.ctx.Detach(i.def.name)
	}
	return nil
}

// Int returns an Int property, or 0.
func (i *Instance) Int(name string) int64 {
	v, _ := i.Get(name)
	n, _ := v.(int64)
	return n
}

// Float returns a Float property, or 0.
func (i *Instance) Float(name string) float64 {
	v, _ := i.Get(name)
	f, _ := v.(float64)
	return f
}

// String returns a String or Enum property, or "".
func (i *Instance) String(name string) string {
	v, _ := i.Get(name)
	s, _ := v.(string)
	return s
}

// Bool returns a Bool property, or false.
func (i *Instance) Bool(name string) bool {
	v, _ := i.Get(name)
	b, _ := v.(bool)
	return b
}

// Vector returns a copy of a Vector property, or nil.
func (i *Instance) Vector(name string) []float64 {
	v, _ := i.Get(name)
	f, _ := v.([]float64)
	return f
}
