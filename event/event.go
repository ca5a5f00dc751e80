// Package event defines the input events the host delivers to its loop.
package event

import (
	"fmt"
	"strings"
)

// Type identifies the input source of an event: a key name, a mouse button,
// pointer motion or a synthetic host event.
type Type string

// Well-known event types. Keyboard keys use their upper-case name, e.g. "D".
const (
	MouseMove   Type = "MOUSEMOVE"
	LeftMouse   Type = "LEFTMOUSE"
	RightMouse  Type = "RIGHTMOUSE"
	MiddleMouse Type = "MIDDLEMOUSE"
	WheelUp     Type = "WHEELUPMOUSE"
	WheelDown   Type = "WHEELDOWNMOUSE"
	Escape      Type = "ESC"
	Return      Type = "RET"
	Timer       Type = "TIMER"
)

// Key returns the event type for a keyboard key.
func Key(name string) Type { return Type(strings.ToUpper(name)) }

// Value is the action carried by an event.
type Value int

const (
	// Nothing is the value of events that carry no action, such as timers.
	Nothing Value = iota
	Press
	Release
	Move
)

func (v Value) String() string {
	switch v {
	case Press:
		return "PRESS"
	case Release:
		return "RELEASE"
	case Move:
		return "MOVE"
	default:
		return "NOTHING"
	}
}

// Modifier is a set of held modifier keys.
type Modifier uint8

const (
	Shift Modifier = 1 << iota
	Ctrl
	Alt
	OSKey
)

// NoModifiers is the empty modifier set.
const NoModifiers Modifier = 0

// Has reports whether every modifier in m is held.
func (s Modifier) Has(m Modifier) bool { return s&m == m }

func (s Modifier) String() string {
	if s == NoModifiers {
		return "none"
	}
	var parts []string
	for _, m := range []struct {
		bit  Modifier
		name string
	}{{Shift, "shift"}, {Ctrl, "ctrl"}, {Alt, "alt"}, {OSKey, "oskey"}} {
		if s.Has(m.bit) {
			parts = append(parts, m.name)
		}
	}
	return strings.Join(parts, "+")
}

// Event is a single input event.
type Event struct {
	Type      Type
	Value     Value
	Modifiers Modifier
	X, Y      int
}

// New builds an event without position data.
func New(t Type, v Value, mods Modifier) Event {
	return Event{Type: t, Value: v, Modifiers: mods}
}

// At returns a copy of e positioned at (x, y).
func (e Event) At(x, y int) Event {
	e.X, e.Y = x, y
	return e
}

func (e Event) String() string {
	return fmt.Sprintf("%s %s [%s] @(%d,%d)", e.Type, e.Value, e.Modifiers, e.X, e.Y)
}
