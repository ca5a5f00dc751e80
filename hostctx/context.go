// Package hostctx models the shared host context that add-on code reads and
// mutates: a bag of named state values, the current interaction mode and the
// schema instances attached to it.
//
// A Context is owned by the host loop. It is not safe for concurrent use;
// background work must marshal back to the loop before touching it.
package hostctx

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

var (
	// ErrAttached is returned when an attachment name is already taken.
	ErrAttached = errors.New("attachment already present")

	// ErrNotAttached is returned when detaching an unknown attachment.
	ErrNotAttached = errors.New("attachment not present")
)

// Attachment is a value hung off a context under a unique name.
// Schema instances are the main attachments.
type Attachment interface {
	AttachmentName() string
}

// Context is the mutable state shared between the host and its add-ons.
type Context struct {
	id          string
	mode        string
	state       map[string]any
	attachments map[string]Attachment
}

// New creates an empty context in the "object" mode.
func New(id string) *Context {
	return &Context{
		id:          id,
		mode:        ModeObject,
		state:       make(map[string]any),
		attachments: make(map[string]Attachment),
	}
}

// Common interaction modes.
const (
	ModeObject = "object"
	ModeEdit   = "edit"
	ModeSculpt = "sculpt"
)

// ID returns the context identifier.
func (c *Context) ID() string { return c.id }

// Mode returns the current interaction mode.
func (c *Context) Mode() string { return c.mode }

// SetMode switches the interaction mode.
func (c *Context) SetMode(mode string) { c.mode = mode }

// Get returns a state value.
func (c *Context) Get(key string) (any, bool) {
	v, ok := c.state[key]
	return v, ok
}

// Set stores a state value.
func (c *Context) Set(key string, value any) { c.state[key] = value }

// Delete removes a state value.
func (c *Context) Delete(key string) { delete(c.state, key) }

// Keys returns the state keys in sorted order.
func (c *Context) Keys() []string {
	return slices.Sorted(maps.Keys(c.state))
}

// Attach hangs a on the context under a.AttachmentName().
func (c *Context) Attach(a Attachment) error {
	name := a.AttachmentName()
	if _, ok := c.attachments[name]; ok {
		return fmt.Errorf("%w: %s on %s", ErrAttached, name, c.id)
	}
	c.attachments[name] = a
	return nil
}

// Detach removes the named attachment.
func (c *Context) Detach(name string) error {
	if _, ok := c.attachments[name]; !ok {
		return fmt.Errorf("%w: %s on %s", ErrNotAttached, name, c.id)
	}
	delete(c.attachments, name)
	return nil
}

// Attachment returns the named attachment.
func (c *Context) Attachment(name string) (Attachment, bool) {
	a, ok := c.attachments[name]
	return a, ok
}

// Attachments returns the attachment names in sorted order.
func (c *Context) Attachments() []string {
	return slices.Sorted(maps.Keys(c.attachments))
}

// Snapshot is a point-in-time copy of a context's mode and state values.
// Values are copied shallowly.
type Snapshot struct {
	Mode  string
	State map[string]any
}

// Snapshot captures the current mode and state.
func (c *Context) Snapshot() Snapshot {
	return Snapshot{Mode: c.mode, State: maps.Clone(c.state)}
}

// Restore replaces the mode and state with the snapshot's.
// Attachments are left untouched.
func (c *Context) Restore(s Snapshot) {
	c.mode = s.Mode
	c.state = maps.Clone(s.State)
	if c.state == nil {
		c.state = make(map[string]any)
	}
}
