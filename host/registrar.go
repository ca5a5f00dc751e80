package host

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/reglet-dev/reglet-addon-host/capability"
	"github.com/reglet-dev/reglet-addon-host/event"
	"github.com/reglet-dev/reglet-addon-host/hostctx"
	"github.com/reglet-dev/reglet-addon-host/keymap"
	"github.com/reglet-dev/reglet-addon-host/operation"
	"github.com/reglet-dev/reglet-addon-host/registry"
	"github.com/reglet-dev/reglet-addon-host/schema"
)

// Registrar is the registration surface handed to one add-on. Every unit it
// registers is owned by that add-on and reversed when it is disabled.
type Registrar struct {
	session *Session
	logger  *slog.Logger
	owner   string
	seq     int
}

func newRegistrar(s *Session, owner string) *Registrar {
	return &Registrar{
		session: s,
		owner:   owner,
		logger:  s.logger.With("addon", owner),
	}
}

// Owner returns the add-on id.
func (r *Registrar) Owner() string { return r.owner }

// Host returns the shared host context.
func (r *Registrar) Host() *hostctx.Context { return r.session.host }

// Logger returns a logger tagged with the add-on id.
func (r *Registrar) Logger() *slog.Logger { return r.logger }

func (r *Registrar) nextID(kind string) string {
	r.seq++
	return fmt.Sprintf("%s.%s.%d", r.owner, kind, r.seq)
}

func (r *Registrar) require(ctx context.Context, perm capability.Permission) error {
	return r.session.checker.Require(capability.WithAddonID(ctx, r.owner), perm)
}

// RegisterAction makes an action invocable. The unit's kind and owner are
// set by the registrar.
func (r *Registrar) RegisterAction(action operation.Action) (registry.Handle, error) {
	action.Unit.Kind = capability.KindAction
	action.Unit.Owner = r.owner
	engine := r.session.engine
	id := action.Unit.ID

	return r.session.registry.Register(action.Unit,
		func() error { return engine.Add(action) },
		func() error { return engine.Remove(r.session.base, id) },
	)
}

// RegisterKeyBinding binds a trigger to an action. It requires the keymap
// permission.
func (r *Registrar) RegisterKeyBinding(ctx context.Context, actionID string, trigger keymap.Trigger, mods event.Modifier) (registry.Handle, error) {
	if err := r.require(ctx, capability.PermKeymap); err != nil {
		return registry.Handle{}, err
	}
	unit := capability.Unit{
		ID:    r.nextID("keymap"),
		Kind:  capability.KindKeyBinding,
		Owner: r.owner,
		Label: fmt.Sprintf("%s on %s [%s]", actionID, trigger, mods),
	}

	dispatcher := r.session.keymap
	var bound keymap.Handle
	return r.session.registry.Register(unit,
		func() error {
			bound = dispatcher.Bind(actionID, trigger, mods)
			return nil
		},
		func() error { return dispatcher.Unbind(bound) },
	)
}

// RegisterProperties attaches a property group to the host context. The
// definition name must not clash with other attachments.
func (r *Registrar) RegisterProperties(def *schema.Definition) (*schema.Instance, registry.Handle, error) {
	return r.bindSchema(def, capability.KindSchema, r.session.host, "properties")
}

// RegisterPreferences binds a preference set to the session's preference
// context. It requires the preferences permission.
func (r *Registrar) RegisterPreferences(ctx context.Context, def *schema.Definition) (*schema.Instance, registry.Handle, error) {
	if err := r.require(ctx, capability.PermPreferences); err != nil {
		return nil, registry.Handle{}, err
	}
	return r.bindSchema(def, capability.KindPreferenceSet, r.session.prefs, "preferences")
}

func (r *Registrar) bindSchema(def *schema.Definition, kind capability.Kind, target *hostctx.Context, prefix string) (*schema.Instance, registry.Handle, error) {
	unit := capability.Unit{
		ID:    r.nextID(prefix),
		Kind:  kind,
		Owner: r.owner,
		Label: def.Name(),
	}

	var inst *schema.Instance
	h, err := r.session.registry.Register(unit,
		func() error {
			var err error
			inst, err = schema.Bind(def, target)
			return err
		},
		func() error { return inst.Detach() },
	)
	if err != nil {
		return nil, registry.Handle{}, err
	}
	return inst, h, nil
}

// RegisterSurface registers a UI surface provided by the host. show and hide
// are the host calls that add and remove it.
func (r *Registrar) RegisterSurface(unit capability.Unit, show, hide func() error) (registry.Handle, error) {
	unit.Kind = capability.KindSurface
	unit.Owner = r.owner
	return r.session.registry.Register(unit, show, hide)
}

// Unregister reverses one unit before the add-on is disabled.
func (r *Registrar) Unregister(h registry.Handle) error {
	return r.session.registry.Unregister(h)
}

// Schedule runs fn on the loop after delay. It requires the timers
// permission. The timer is cancelled when the add-on is disabled.
func (r *Registrar) Schedule(ctx context.Context, delay time.Duration, fn TimerFunc) (*Timer, error) {
	if r.session.closed {
		return nil, ErrClosed
	}
	if err := r.require(ctx, capability.PermTimers); err != nil {
		return nil, err
	}
	return r.session.schedule(r.owner, delay, fn)
}

// Go runs work off the loop and hands its result to then on the loop.
func (r *Registrar) Go(work func(ctx context.Context) (any, error), then func(ctx context.Context, result any, err error)) error {
	if then == nil {
		return r.session.Go(work, nil)
	}
	owner := r.owner
	return r.session.Go(work, func(ctx context.Context, result any, err error) {
		if !r.session.IsEnabled(owner) {
			r.logger.Debug("dropping background result of disabled add-on")
			return
		}
		then(capability.WithAddonID(ctx, owner), result, err)
	})
}
