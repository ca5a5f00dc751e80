// Package host runs the single-threaded host loop that add-ons plug into.
//
// A Session owns the capability registry, the operation engine and the
// keymap dispatcher. Their state is only touched on the loop goroutine: from
// Run, from tasks queued with Do, Post or Go, or by the caller before Run
// starts. Post, Do and Go are the only methods safe to call from other
// goroutines.
package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/reglet-dev/reglet-addon-host/capability"
	"github.com/reglet-dev/reglet-addon-host/event"
	"github.com/reglet-dev/reglet-addon-host/hostctx"
	"github.com/reglet-dev/reglet-addon-host/keymap"
	"github.com/reglet-dev/reglet-addon-host/operation"
	"github.com/reglet-dev/reglet-addon-host/policy"
	"github.com/reglet-dev/reglet-addon-host/registry"
	"github.com/reglet-dev/reglet-addon-host/telemetry"
)

var (
	// ErrAlreadyEnabled is returned when enabling an enabled add-on.
	ErrAlreadyEnabled = errors.New("add-on already enabled")

	// ErrNotEnabled is returned when disabling an add-on that is not enabled.
	ErrNotEnabled = errors.New("add-on not enabled")

	// ErrClosed is returned after Shutdown.
	ErrClosed = errors.New("session closed")
)

// DefaultWorkers is the background pool size when none is configured.
const DefaultWorkers = 4

// Addon is the code half of an add-on: it registers its capability units
// through the Registrar when enabled.
type Addon interface {
	ID() string
	Register(ctx context.Context, r *Registrar) error
}

// Unregisterer is implemented by add-ons that need a hook before their units
// are reversed.
type Unregisterer interface {
	Unregister(ctx context.Context)
}

// AddonFunc adapts a registration function to Addon.
type AddonFunc struct {
	Fn   func(ctx context.Context, r *Registrar) error
	Name string
}

// ID implements Addon.
func (a AddonFunc) ID() string { return a.Name }

// Register implements Addon.
func (a AddonFunc) Register(ctx context.Context, r *Registrar) error { return a.Fn(ctx, r) }

type enabledAddon struct {
	addon  Addon
	timers []*Timer
}

// Session is the host loop plus the components add-ons register into.
type Session struct {
	host     *hostctx.Context
	prefs    *hostctx.Context
	registry *registry.Registry
	engine   *operation.Engine
	keymap   *keymap.Dispatcher
	checker  *capability.Checker
	logger   *slog.Logger
	metrics  *telemetry.Metrics
	now      func() time.Time

	queue  *taskQueue
	timers *timerHeap
	pool   *ants.Pool

	// base is cancelled by Shutdown; background work runs under it.
	base   context.Context
	cancel context.CancelFunc

	addons  map[string]*enabledAddon
	order   []string
	workers int
	closed  bool
}

// NewSession creates a session around host. Components not supplied through
// options are created with the session's logger and metrics.
func NewSession(host *hostctx.Context, opts ...Option) (*Session, error) {
	s := &Session{
		host:    host,
		prefs:   hostctx.New("preferences"),
		logger:  slog.Default(),
		now:     time.Now,
		queue:   newTaskQueue(),
		timers:  newTimerHeap(),
		addons:  make(map[string]*enabledAddon),
		workers: DefaultWorkers,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.host == nil {
		s.host = hostctx.New("host")
	}
	if s.registry == nil {
		s.registry = registry.NewRegistry(registry.WithLogger(s.logger), registry.WithMetrics(s.metrics))
	}
	if s.engine == nil {
		s.engine = operation.NewEngine(operation.WithLogger(s.logger), operation.WithMetrics(s.metrics))
	}
	if s.keymap == nil {
		s.keymap = keymap.NewDispatcher(keymap.WithLogger(s.logger), keymap.WithMetrics(s.metrics))
	}
	if s.checker == nil {
		s.checker = capability.NewChecker(capability.WithDenialHandler(policy.Chain(
			policy.LogDenials(s.logger),
			policy.CountDenials(s.metrics),
		)))
	}

	pool, err := ants.NewPool(s.workers, ants.WithPanicHandler(func(p any) {
		s.logger.Error("background worker panicked", "panic", p)
	}))
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	s.pool = pool
	s.base, s.cancel = context.WithCancel(context.Background())
	return s, nil
}

// Host returns the shared host context.
func (s *Session) Host() *hostctx.Context { return s.host }

// Preferences returns the context preference sets are bound to.
func (s *Session) Preferences() *hostctx.Context { return s.prefs }

// Registry returns the capability registry.
func (s *Session) Registry() *registry.Registry { return s.registry }

// Engine returns the operation engine.
func (s *Session) Engine() *operation.Engine { return s.engine }

// Keymap returns the keymap dispatcher.
func (s *Session) Keymap() *keymap.Dispatcher { return s.keymap }

// Checker returns the runtime permission checker.
func (s *Session) Checker() *capability.Checker { return s.checker }

// Enabled returns the enabled add-on ids in enable order.
func (s *Session) Enabled() []string { return slices.Clone(s.order) }

// IsEnabled reports whether id is enabled.
func (s *Session) IsEnabled(id string) bool {
	_, ok := s.addons[id]
	return ok
}

// Enable grants perms to the add-on and runs its registration. A failing
// registration is rolled back: every unit it registered is reversed.
func (s *Session) Enable(ctx context.Context, a Addon, perms capability.PermissionSet) error {
	if s.closed {
		return ErrClosed
	}
	id := a.ID()
	if _, ok := s.addons[id]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyEnabled, id)
	}

	s.checker.Grant(id, perms)
	entry := &enabledAddon{addon: a}
	s.addons[id] = entry

	ctx = capability.WithAddonID(ctx, id)
	if err := a.Register(ctx, newRegistrar(s, id)); err != nil {
		rollback := s.teardown(id, entry)
		delete(s.addons, id)
		s.checker.Revoke(id)
		s.logger.Warn("add-on registration failed", "addon", id, "error", err)
		return errors.Join(fmt.Errorf("enable %s: %w", id, err), rollback)
	}

	s.order = append(s.order, id)
	s.logger.Info("add-on enabled", "addon", id)
	return nil
}

// Disable reverses every unit the add-on registered, newest first, and
// cancels its timers. Reversal failures are returned after the add-on has
// been removed.
func (s *Session) Disable(ctx context.Context, id string) error {
	entry, ok := s.addons[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotEnabled, id)
	}
	if u, ok := entry.addon.(Unregisterer); ok {
		u.Unregister(capability.WithAddonID(ctx, id))
	}

	err := s.teardown(id, entry)
	delete(s.addons, id)
	s.order = slices.DeleteFunc(s.order, func(o string) bool { return o == id })
	s.checker.Revoke(id)

	if err != nil {
		s.logger.Warn("add-on disabled with reversal failures", "addon", id, "error", err)
		return fmt.Errorf("disable %s: %w", id, err)
	}
	s.logger.Info("add-on disabled", "addon", id)
	return nil
}

func (s *Session) teardown(id string, entry *enabledAddon) error {
	for _, t := range entry.timers {
		t.Cancel()
	}
	return s.registry.UnregisterOwner(id)
}

// Shutdown cancels the running modal operation, runs the add-ons' unregister
// hooks newest first, then reverses every registered unit in strict reverse
// registration order. It is idempotent.
func (s *Session) Shutdown(ctx context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.queue.Close()

	s.engine.CancelRunning(ctx, operation.ReasonShutdown)
	for _, id := range slices.Backward(s.order) {
		entry := s.addons[id]
		if u, ok := entry.addon.(Unregisterer); ok {
			u.Unregister(capability.WithAddonID(ctx, id))
		}
		for _, t := range entry.timers {
			t.Cancel()
		}
		s.checker.Revoke(id)
	}
	err := s.registry.UnregisterAll()

	s.addons = make(map[string]*enabledAddon)
	s.order = nil
	s.timers.dispose()
	s.cancel()
	s.pool.Release()

	if err != nil {
		s.logger.Warn("shutdown finished with reversal failures", "error", err)
		return fmt.Errorf("shutdown: %w", err)
	}
	s.logger.Info("session shut down")
	return nil
}

// Stop asks Run to return. Safe to call from any goroutine.
func (s *Session) Stop() { s.queue.Close() }

// Do queues fn to run on the loop. It returns false once the session is
// stopping.
func (s *Session) Do(fn func(ctx context.Context)) bool {
	return s.queue.Enqueue(task(fn))
}

// Post queues a host event for delivery on the loop.
func (s *Session) Post(ev event.Event) bool {
	return s.Do(func(ctx context.Context) { s.HandleEvent(ctx, ev) })
}

// Go runs work on the background pool and delivers its result to then on the
// loop. work must not touch the host context; then may. A panic in work is
// reported to then as an error.
func (s *Session) Go(work func(ctx context.Context) (any, error), then func(ctx context.Context, result any, err error)) error {
	if s.queue.Closed() {
		return ErrClosed
	}
	return s.pool.Submit(func() {
		result, err := s.runWork(work)
		s.metrics.BackgroundTask(err)
		if then == nil {
			return
		}
		if !s.queue.Enqueue(func(ctx context.Context) { then(ctx, result, err) }) {
			s.logger.Debug("dropping background result after stop", "error", err)
		}
	})
}

func (s *Session) runWork(work func(ctx context.Context) (any, error)) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("background work panicked: %v", r)
		}
	}()
	return work(s.base)
}

// Schedule runs fn on the loop no earlier than delay from now. The returned
// timer belongs to the host; add-ons schedule through their Registrar. It
// fails with ErrClosed after Shutdown.
func (s *Session) Schedule(delay time.Duration, fn TimerFunc) (*Timer, error) {
	return s.schedule("", delay, fn)
}

func (s *Session) schedule(owner string, delay time.Duration, fn TimerFunc) (*Timer, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if delay < 0 {
		delay = 0
	}
	t := &Timer{due: s.now().Add(delay), fn: fn, owner: owner}
	if err := s.timers.push(t); err != nil {
		return nil, fmt.Errorf("schedule timer: %w", err)
	}
	if entry, ok := s.addons[owner]; ok {
		entry.timers = append(entry.timers, t)
	}
	return t, nil
}

// Require checks perm for the add-on that ctx was handed to. Host services
// called back from add-on code use it; contexts that carry no add-on id
// belong to the host and pass.
func (s *Session) Require(ctx context.Context, perm capability.Permission) error {
	return s.checker.Require(ctx, perm)
}

// HandleEvent routes one event: a running modal operation receives every
// event; otherwise the keymap picks the newest matching binding whose action
// polls true and the engine invokes it. It reports whether the event was
// consumed.
func (s *Session) HandleEvent(ctx context.Context, ev event.Event) bool {
	if st := s.engine.Running(); st != nil {
		out, err := s.engine.HandleEvent(ctx, st, ev)
		if err != nil {
			s.logger.Warn("modal event failed", "action", st.ActionID, "event", ev, "error", err)
		} else if out.Terminal() {
			s.logger.Debug("modal operation ended", "action", st.ActionID, "status", out.Status, "reason", out.Reason)
		}
		return true
	}

	id, ok := s.keymap.DispatchFunc(ev, func(id string) bool {
		return s.engine.Poll(s.host, id)
	})
	if !ok {
		return false
	}

	if unit, found := s.registry.Find(id); found && unit.Owner != "" {
		ctx = capability.WithAddonID(ctx, unit.Owner)
	}
	if _, err := s.engine.Invoke(ctx, s.host, id, ev); err != nil {
		s.logger.Debug("invocation refused", "action", id, "event", ev, "error", err)
	}
	return true
}

// Run drives the loop until ctx is done or Stop is called, then shuts the
// session down. Queued tasks run in FIFO order; due timers run before the
// next task. It returns nil after Stop and ctx.Err() on cancellation.
func (s *Session) Run(ctx context.Context) error {
	if s.closed {
		return ErrClosed
	}
	s.logger.Info("host loop starting")

	for {
		s.fireTimers(ctx)

		if t, ok := s.queue.TryDequeue(); ok {
			s.runTask(ctx, t)
			continue
		}

		var wake <-chan time.Time
		var timer *time.Timer
		if next := s.timers.next(); next != nil {
			timer = time.NewTimer(max(next.due.Sub(s.now()), 0))
			wake = timer.C
		}

		select {
		case <-ctx.Done():
			stopTimer(timer)
			s.logger.Info("host loop stopping: context cancelled")
			if err := s.Shutdown(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn("shutdown error", "error", err)
			}
			return ctx.Err()

		case <-s.queue.Wait():
			stopTimer(timer)
			if s.queue.Closed() && s.queue.Len() == 0 {
				s.logger.Info("host loop stopping: stopped")
				return s.Shutdown(ctx)
			}

		case <-wake:
		}
	}
}

func stopTimer(t *time.Timer) {
	if t != nil {
		t.Stop()
	}
}

func (s *Session) runTask(ctx context.Context, t task) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("loop task panicked", "panic", r)
		}
	}()
	t(ctx)
}

// fireTimers runs every timer that is due. Timers rescheduled by their own
// return value wait for the next pass, so a zero delay cannot starve the
// task queue.
func (s *Session) fireTimers(ctx context.Context) {
	due := s.timers.popDue(s.now())
	for _, t := range due {
		if t.cancelled {
			continue
		}
		next := s.fireTimer(ctx, t)
		s.metrics.TimerFired()
		if next < 0 || t.cancelled {
			t.cancelled = true
			s.forgetTimer(t)
			continue
		}
		t.due = s.now().Add(next)
		if err := s.timers.push(t); err != nil {
			s.logger.Warn("timer dropped", "owner", t.owner, "error", err)
			t.cancelled = true
			s.forgetTimer(t)
		}
	}
}

func (s *Session) fireTimer(ctx context.Context, t *Timer) (next time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("timer panicked", "owner", t.owner, "panic", r)
			next = Stop
		}
	}()
	t.runs++
	if t.owner != "" {
		ctx = capability.WithAddonID(ctx, t.owner)
	}
	return t.fn(ctx)
}

func (s *Session) forgetTimer(t *Timer) {
	entry, ok := s.addons[t.owner]
	if !ok {
		return
	}
	entry.timers = slices.DeleteFunc(entry.timers, func(o *Timer) bool { return o == t })
}
