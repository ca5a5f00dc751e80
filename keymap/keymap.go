// Package keymap maps input events to capability ids.
package keymap

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/reglet-dev/reglet-addon-host/event"
	"github.com/reglet-dev/reglet-addon-host/telemetry"
)

// ErrBindingNotFound is returned when unbinding an unknown handle.
var ErrBindingNotFound = errors.New("key binding not found")

// Trigger is the event type and value a binding reacts to.
type Trigger struct {
	Type  event.Type
	Value event.Value
}

// OnPress is a Trigger for a press of t.
func OnPress(t event.Type) Trigger { return Trigger{Type: t, Value: event.Press} }

// OnRelease is a Trigger for a release of t.
func OnRelease(t event.Type) Trigger { return Trigger{Type: t, Value: event.Release} }

func (t Trigger) String() string { return fmt.Sprintf("%s %s", t.Type, t.Value) }

// Matches reports whether ev fires the trigger, ignoring modifiers.
func (t Trigger) Matches(ev event.Event) bool {
	return ev.Type == t.Type && ev.Value == t.Value
}

// Binding routes a trigger plus an exact modifier set to a capability.
type Binding struct {
	CapabilityID string
	Trigger      Trigger
	Modifiers    event.Modifier
}

func (b Binding) matches(ev event.Event) bool {
	return b.Trigger.Matches(ev) && ev.Modifiers == b.Modifiers
}

// Handle identifies one binding.
type Handle struct {
	seq uint64
}

type bound struct {
	binding Binding
	seq     uint64
}

// Dispatcher holds the active bindings. When several bindings match an event,
// the most recently bound one wins.
type Dispatcher struct {
	logger   *slog.Logger
	metrics  *telemetry.Metrics
	bindings []bound
	seq      uint64
	mu       sync.RWMutex
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// WithMetrics counts dispatches in m.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{logger: slog.Default()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Bind adds a binding and returns its handle.
func (d *Dispatcher) Bind(capabilityID string, trigger Trigger, mods event.Modifier) Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seq++
	d.bindings = append(d.bindings, bound{
		binding: Binding{CapabilityID: capabilityID, Trigger: trigger, Modifiers: mods},
		seq:     d.seq,
	})
	d.logger.Debug("key bound", "capability", capabilityID, "trigger", trigger, "modifiers", mods)
	return Handle{seq: d.seq}
}

// Unbind removes a binding.
func (d *Dispatcher) Unbind(h Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	i := slices.IndexFunc(d.bindings, func(b bound) bool { return b.seq == h.seq })
	if i < 0 {
		return ErrBindingNotFound
	}
	d.bindings = slices.Delete(d.bindings, i, i+1)
	return nil
}

// Dispatch returns the capability bound to ev. An unmatched event yields
// false and passes through to the host.
func (d *Dispatcher) Dispatch(ev event.Event) (string, bool) {
	return d.DispatchFunc(ev, nil)
}

// DispatchFunc is Dispatch restricted to capabilities for which available
// returns true; a nil available accepts every capability. Skipped bindings
// let older matching bindings through.
func (d *Dispatcher) DispatchFunc(ev event.Event, available func(capabilityID string) bool) (string, bool) {
	d.mu.RLock()
	candidates := make([]Binding, 0, 2)
	for i := len(d.bindings) - 1; i >= 0; i-- {
		if b := d.bindings[i].binding; b.matches(ev) {
			candidates = append(candidates, b)
		}
	}
	d.mu.RUnlock()

	for _, b := range candidates {
		if available == nil || available(b.CapabilityID) {
			d.metrics.Dispatch(true)
			return b.CapabilityID, true
		}
	}
	d.metrics.Dispatch(false)
	return "", false
}

// Bindings returns the bindings in the order they were added.
func (d *Dispatcher) Bindings() []Binding {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Binding, len(d.bindings))
	for i, b := range d.bindings {
		out[i] = b.binding
	}
	return out
}

// Len returns the number of bindings.
func (d *Dispatcher) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.bindings)
}
