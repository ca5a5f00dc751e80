// Package registry implements the capability registry: the set of live
// capability units and the reversal closures that take them down again.
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/reglet-dev/reglet-addon-host/capability"
	"github.com/reglet-dev/reglet-addon-host/telemetry"
)

// Handle identifies one registration. Handles from a replaced registration
// no longer resolve.
type Handle struct {
	id  string
	seq uint64
}

// ID returns the unit id the handle refers to.
func (h Handle) ID() string { return h.id }

// IsZero reports whether h is the zero handle.
func (h Handle) IsZero() bool { return h.seq == 0 }

type entry struct {
	sideEffect SideEffect
	reversal   Reversal
	unit       capability.Unit
	seq      uint64
	removing bool
}

// Registry implements CapabilityRegistry using in-memory storage.
//
// Side effects and reversals run without the lock held so that they may call
// back into the registry.
type Registry struct {
	byID    map[string]*entry
	logger  *slog.Logger
	metrics *telemetry.Metrics
	entries []*entry
	seq     uint64
	mu      sync.Mutex
}

// RegistryOption configures the Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) RegistryOption {
	return func(r *Registry) { r.logger = l }
}

// WithMetrics records registrations in m.
func WithMetrics(m *telemetry.Metrics) RegistryOption {
	return func(r *Registry) { r.metrics = m }
}

// NewRegistry creates an empty capability registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		byID:   make(map[string]*entry),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register runs sideEffect and records unit with its reversal.
//
// An id that is already registered fails with *DuplicateIDError, unless the
// new unit is Reregisterable: then the existing entry is unregistered first
// and replaced. A failing side effect aborts the registration; when it was
// replacing an entry, the old entry is registered again in its old place.
func (r *Registry) Register(unit capability.Unit, sideEffect SideEffect, reversal Reversal) (Handle, error) {
	if err := unit.Validate(); err != nil {
		return Handle{}, err
	}

	r.mu.Lock()
	existing := r.byID[unit.ID]
	r.mu.Unlock()

	replacedAt := -1
	if existing != nil {
		if !unit.Options.Reregisterable {
			return Handle{}, &DuplicateIDError{ID: unit.ID, Existing: existing.unit.Kind}
		}
		r.logger.Debug("replacing registration", "id", unit.ID)
		r.mu.Lock()
		replacedAt = slices.Index(r.entries, existing)
		r.mu.Unlock()
		if err := r.Unregister(Handle{id: unit.ID, seq: existing.seq}); err != nil && !errors.Is(err, ErrReversal) {
			return Handle{}, fmt.Errorf("replace %s: %w", unit.ID, err)
		} else if err != nil {
			r.logger.Warn("reversal failed during replacement", "id", unit.ID, "error", err)
		}
	}

	if err := runSideEffect(sideEffect); err != nil {
		err = fmt.Errorf("register %s: side effect: %w", unit.ID, err)
		if existing != nil {
			if rerr := r.restore(existing, replacedAt); rerr != nil {
				err = errors.Join(err, rerr)
			}
		}
		return Handle{}, err
	}

	r.mu.Lock()
	if other, dup := r.byID[unit.ID]; dup {
		// The side effect registered the same id itself.
		r.mu.Unlock()
		if err := runReversal(reversal); err != nil {
			r.logger.Warn("reversal failed after duplicate registration", "id", unit.ID, "error", err)
		}
		return Handle{}, &DuplicateIDError{ID: unit.ID, Existing: other.unit.Kind}
	}
	r.seq++
	e := &entry{unit: unit, sideEffect: sideEffect, reversal: reversal, seq: r.seq}
	r.entries = append(r.entries, e)
	r.byID[unit.ID] = e
	r.mu.Unlock()

	r.metrics.Registered(unit.Kind.String())
	r.logger.Debug("registered capability", "id", unit.ID, "kind", unit.Kind, "owner", unit.Owner)
	return Handle{id: unit.ID, seq: e.seq}, nil
}

// Unregister runs the reversal of h's entry, then removes the entry. The
// entry is removed even when the reversal fails; the failure is returned as
// a *ReversalError.
func (r *Registry) Unregister(h Handle) error {
	r.mu.Lock()
	e, ok := r.byID[h.id]
	if !ok || e.seq != h.seq || e.removing {
		r.mu.Unlock()
		return &NotFoundError{ID: h.id}
	}
	e.removing = true
	r.mu.Unlock()

	if err := r.reverse(e); err != nil {
		return err
	}
	return nil
}

// UnregisterAll unregisters every entry in strict reverse registration order.
// It continues past failing reversals and returns them as ReversalErrors.
func (r *Registry) UnregisterAll() error {
	return r.unregisterMatching(func(capability.Unit) bool { return true })
}

// UnregisterOwner unregisters the units owned by one add-on, in reverse
// registration order.
func (r *Registry) UnregisterOwner(owner string) error {
	return r.unregisterMatching(func(u capability.Unit) bool { return u.Owner == owner })
}

func (r *Registry) unregisterMatching(match func(capability.Unit) bool) error {
	r.mu.Lock()
	var batch []*entry
	for i := len(r.entries) - 1; i >= 0; i-- {
		e := r.entries[i]
		if !e.removing && match(e.unit) {
			e.removing = true
			batch = append(batch, e)
		}
	}
	r.mu.Unlock()

	var errs ReversalErrors
	for _, e := range batch {
		if rerr := r.reverse(e); rerr != nil {
			errs = append(errs, rerr)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// restore puts back an entry whose replacement failed, at index at, after
// running its side effect again. The old handle stays valid.
func (r *Registry) restore(old *entry, at int) error {
	if err := runSideEffect(old.sideEffect); err != nil {
		r.logger.Warn("previous registration could not be restored", "id", old.unit.ID, "error", err)
		return fmt.Errorf("restore %s: %w", old.unit.ID, err)
	}

	r.mu.Lock()
	if _, taken := r.byID[old.unit.ID]; taken {
		r.mu.Unlock()
		return &DuplicateIDError{ID: old.unit.ID, Existing: old.unit.Kind}
	}
	old.removing = false
	at = min(max(at, 0), len(r.entries))
	r.entries = slices.Insert(r.entries, at, old)
	r.byID[old.unit.ID] = old
	r.mu.Unlock()

	r.metrics.Registered(old.unit.Kind.String())
	r.logger.Debug("restored previous registration", "id", old.unit.ID)
	return nil
}

func runSideEffect(fn SideEffect) (err error) {
	if fn == nil {
		return nil
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("side effect panicked: %v", p)
		}
	}()
	return fn()
}

func runReversal(fn Reversal) (err error) {
	if fn == nil {
		return nil
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("reversal panicked: %v", p)
		}
	}()
	return fn()
}

// reverse runs e's reversal and drops e. A panicking reversal counts as a
// failed one.
func (r *Registry) reverse(e *entry) *ReversalError {
	var rerr *ReversalError
	if err := runReversal(e.reversal); err != nil {
		rerr = &ReversalError{ID: e.unit.ID, Err: err}
	}

	r.mu.Lock()
	if i := slices.Index(r.entries, e); i >= 0 {
		r.entries = slices.Delete(r.entries, i, i+1)
	}
	if r.byID[e.unit.ID] == e {
		delete(r.byID, e.unit.ID)
	}
	r.mu.Unlock()

	r.metrics.Unregistered(e.unit.Kind.String(), rerr != nil)
	if rerr != nil {
		r.logger.Warn("reversal failed", "id", e.unit.ID, "error", rerr.Err)
	} else {
		r.logger.Debug("unregistered capability", "id", e.unit.ID)
	}
	return rerr
}

// Find returns the unit registered under id.
func (r *Registry) Find(id string) (capability.Unit, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byID[id]
	if !ok {
		return capability.Unit{}, false
	}
	return e.unit, true
}

// Lookup returns the live handle for id.
func (r *Registry) Lookup(id string) (Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byID[id]
	if !ok {
		return Handle{}, false
	}
	return Handle{id: id, seq: e.seq}, true
}

// Units returns the registered units in registration order.
func (r *Registry) Units() []capability.Unit {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]capability.Unit, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.unit
	}
	return out
}

// Len returns the number of registered units.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
