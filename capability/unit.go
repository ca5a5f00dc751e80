// Package capability describes what an add-on contributes to the host and
// what it is allowed to touch: capability units, the permission vocabulary,
// risk analysis, stored grants and the runtime permission checker.
package capability

import (
	"errors"
	"fmt"
	"strings"

	"github.com/reglet-dev/reglet-addon-host/hostctx"
)

// ErrInvalidUnit is returned for units that cannot be registered.
var ErrInvalidUnit = errors.New("invalid capability unit")

// Kind tags the variant of a capability unit.
type Kind int

const (
	KindAction Kind = iota + 1
	KindSurface
	KindSchema
	KindPreferenceSet
	KindKeyBinding
)

func (k Kind) String() string {
	switch k {
	case KindAction:
		return "action"
	case KindSurface:
		return "surface"
	case KindSchema:
		return "schema"
	case KindPreferenceSet:
		return "preference_set"
	case KindKeyBinding:
		return "key_binding"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// PollFunc reports whether a unit is available in a context. It must not
// mutate the context.
type PollFunc func(ctx *hostctx.Context) bool

// Options are the behavioral flags of a unit.
type Options struct {
	// Undoable actions push an undo entry when they finish.
	Undoable bool
	// Reregisterable units replace an existing registration of the same id.
	Reregisterable bool
	// RecheckPoll cancels a running modal operation once its poll fails.
	RecheckPoll bool
	// Internal units are hidden from user-facing listings.
	Internal bool
}

// Unit is a named contribution an add-on makes to the host.
type Unit struct {
	Poll        PollFunc
	ID          string
	Label       string
	Description string
	Owner       string
	Kind        Kind
	Options     Options
}

// Available evaluates the poll predicate. Units without one are always
// available.
func (u Unit) Available(ctx *hostctx.Context) bool {
	if u.Poll == nil {
		return true
	}
	return u.Poll(ctx)
}

// Validate checks the fields a registry relies on.
func (u Unit) Validate() error {
	if u.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidUnit)
	}
	if strings.ContainsFunc(u.ID, func(r rune) bool { return r == ' ' || r == '\t' || r == '\n' }) {
		return fmt.Errorf("%w: id %q contains whitespace", ErrInvalidUnit, u.ID)
	}
	if u.Kind < KindAction || u.Kind > KindKeyBinding {
		return fmt.Errorf("%w: %s: unknown kind %v", ErrInvalidUnit, u.ID, u.Kind)
	}
	return nil
}

// DisplayLabel returns the label, falling back to the id.
func (u Unit) DisplayLabel() string {
	if u.Label != "" {
		return u.Label
	}
	return u.ID
}
