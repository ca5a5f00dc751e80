// Package operation runs actions: synchronous executes and event-driven
// modal operations, with undo integration and cancellation.
//
// The Engine is owned by the host loop and is not safe for concurrent use.
package operation

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/google/uuid"
	"github.com/reglet-dev/reglet-addon-host/event"
	"github.com/reglet-dev/reglet-addon-host/hostctx"
	"github.com/reglet-dev/reglet-addon-host/keymap"
	"github.com/reglet-dev/reglet-addon-host/schema"
	"github.com/reglet-dev/reglet-addon-host/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Cancellation reasons set by the engine itself.
const (
	ReasonUserCancelled = "cancelled by user"
	ReasonPollFailed    = "no longer available in this context"
	ReasonUnregistered  = "action unregistered"
	ReasonShutdown      = "host shutting down"
)

// DefaultCancelTriggers are the events that cancel a running modal operation
// unless configured otherwise.
var DefaultCancelTriggers = []keymap.Trigger{
	keymap.OnPress(event.Escape),
	keymap.OnPress(event.RightMouse),
}

// Engine drives operations through Idle, Invoked, RunningModal and the
// terminal Finished or Cancelled states.
type Engine struct {
	actions    map[string]*Action
	running    *State
	undo       UndoSink
	logger     *slog.Logger
	metrics    *telemetry.Metrics
	tracer     trace.Tracer
	newID      func() string
	handler    Handler
	middleware []Middleware
	cancelOn   []keymap.Trigger
}

// Option configures an Engine.
type Option func(*Engine)

// WithUndoSink sets where undoable operations push their entries.
func WithUndoSink(s UndoSink) Option {
	return func(e *Engine) { e.undo = s }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMetrics records outcomes in m.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithTracerProvider sets the provider for invocation spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) { e.tracer = telemetry.Tracer(tp) }
}

// WithMiddleware appends middleware around every operator step. Panics are
// always recovered outside of it.
func WithMiddleware(mws ...Middleware) Option {
	return func(e *Engine) { e.middleware = append(e.middleware, mws...) }
}

// WithCancelTriggers replaces the events that cancel a modal operation. An
// empty list leaves cancellation to the operators.
func WithCancelTriggers(triggers ...keymap.Trigger) Option {
	return func(e *Engine) { e.cancelOn = triggers }
}

// WithIDGenerator overrides invocation id generation.
func WithIDGenerator(f func() string) Option {
	return func(e *Engine) { e.newID = f }
}

// NewEngine creates an engine with no actions.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		actions:  make(map[string]*Action),
		logger:   slog.Default(),
		newID:    uuid.NewString,
		cancelOn: DefaultCancelTriggers,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.tracer == nil {
		e.tracer = telemetry.Tracer(nil)
	}
	// Recovery wraps everything else so that a panicking middleware or
	// operator ends the operation instead of the host loop.
	e.handler = chain(e.dispatch, append([]Middleware{PanicRecoveryMiddleware()}, e.middleware...))
	return e
}

// Add makes an action invocable.
func (e *Engine) Add(a Action) error {
	if err := a.validate(); err != nil {
		return fmt.Errorf("add action: %w", err)
	}
	if _, ok := e.actions[a.Unit.ID]; ok {
		return fmt.Errorf("%w: %s", ErrActionExists, a.Unit.ID)
	}
	e.actions[a.Unit.ID] = &a
	return nil
}

// Remove drops an action. A running modal operation of that action is
// cancelled first.
func (e *Engine) Remove(ctx context.Context, id string) error {
	if _, ok := e.actions[id]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAction, id)
	}
	if e.running != nil && e.running.ActionID == id {
		e.cancel(ctx, e.running, ReasonUnregistered)
	}
	delete(e.actions, id)
	return nil
}

// Has reports whether id can be invoked.
func (e *Engine) Has(id string) bool {
	_, ok := e.actions[id]
	return ok
}

// Actions returns the action ids in lexical order.
func (e *Engine) Actions() []string {
	return slices.Sorted(maps.Keys(e.actions))
}

// Running returns the running modal operation, or nil.
func (e *Engine) Running() *State { return e.running }

// Poll evaluates the action's availability in host. It never caches and has
// no side effects. Unknown actions poll false.
func (e *Engine) Poll(host *hostctx.Context, id string) bool {
	a, ok := e.actions[id]
	if !ok {
		return false
	}
	return a.Unit.Available(host)
}

// Execute runs an action synchronously with the given parameters and
// returns its terminal outcome. Parameters that violate the action's schema
// are rejected before the operator runs.
func (e *Engine) Execute(ctx context.Context, host *hostctx.Context, id string, params map[string]any) (Outcome, error) {
	a, err := e.admit(host, id)
	if err != nil {
		return Outcome{}, err
	}

	st, ctx, err := e.prepare(ctx, a, host, event.Event{})
	if err != nil {
		return Outcome{}, err
	}
	if len(params) > 0 {
		if st.Params == nil {
			err = fmt.Errorf("execute %s: action takes no parameters", id)
		} else {
			err = st.Params.Apply(params)
		}
		if err != nil {
			e.abandon(st, telemetry.OutcomeRejected)
			return Outcome{}, fmt.Errorf("execute %s: %w", id, err)
		}
	}

	st.Phase = PhaseExecute
	out := e.handler(ctx, st)
	if !out.Terminal() {
		e.finish(st, Cancel("execute must finish or cancel"))
		return st.Outcome, fmt.Errorf("%w: %s returned %s from execute", ErrInvalidTransition, id, out.Status)
	}
	e.finish(st, out)
	return st.Outcome, nil
}

// Invoke starts an action from an initiating event. The operator's setup
// step either finishes the operation right away or enters the modal phase;
// in the latter case the returned state receives events via HandleEvent.
// Only one modal operation runs at a time.
func (e *Engine) Invoke(ctx context.Context, host *hostctx.Context, id string, ev event.Event) (*State, error) {
	if e.running != nil {
		return nil, fmt.Errorf("%w: %s (invocation %s)", ErrModalBusy, e.running.ActionID, e.running.ID)
	}
	a, err := e.admit(host, id)
	if err != nil {
		return nil, err
	}

	st, ctx, err := e.prepare(ctx, a, host, ev)
	if err != nil {
		return nil, err
	}

	st.Phase = PhaseInvoke
	out := e.handler(ctx, st)
	switch {
	case out.Status == RunningModal:
		st.Status = RunningModal
		e.running = st
		e.logger.Debug("modal operation started", "action", id, "invocation", st.ID)
		return st, nil
	case out.Terminal():
		e.finish(st, out)
		return st, nil
	default:
		e.finish(st, Cancel("invoke must continue, finish or cancel"))
		return st, fmt.Errorf("%w: %s returned %s from invoke", ErrInvalidTransition, id, out.Status)
	}
}

// HandleEvent delivers one event to a running modal operation and returns
// the resulting transition. States that are terminal, released or not the
// engine's running operation yield ErrOperationEnded without reaching the
// operator.
func (e *Engine) HandleEvent(ctx context.Context, st *State, ev event.Event) (Outcome, error) {
	if st == nil || st.released || st.Status.Terminal() || st != e.running {
		return Outcome{}, ErrOperationEnded
	}
	e.metrics.ModalEvent()
	st.Event = ev
	st.Events++
	ctx = trace.ContextWithSpan(ctx, st.span)

	if e.isCancelEvent(ev) {
		e.cancel(ctx, st, ReasonUserCancelled)
		return st.Outcome, nil
	}
	if st.action.Unit.Options.RecheckPoll && !st.action.Unit.Available(st.Host) {
		e.cancel(ctx, st, ReasonPollFailed)
		return st.Outcome, nil
	}

	st.Phase = PhaseModal
	out := e.handler(ctx, st)
	switch {
	case out.Status == RunningModal:
		return Continue(), nil
	case out.Terminal():
		e.finish(st, out)
		return st.Outcome, nil
	default:
		e.finish(st, Cancel("modal must continue, finish or cancel"))
		return st.Outcome, fmt.Errorf("%w: %s returned %s from modal", ErrInvalidTransition, st.ActionID, out.Status)
	}
}

// CancelRunning cancels the running modal operation, if any, and reports
// whether there was one.
func (e *Engine) CancelRunning(ctx context.Context, reason string) bool {
	if e.running == nil {
		return false
	}
	e.cancel(ctx, e.running, reason)
	return true
}

func (e *Engine) admit(host *hostctx.Context, id string) (*Action, error) {
	a, ok := e.actions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, id)
	}
	if !a.Unit.Available(host) {
		e.metrics.Operation(id, telemetry.OutcomeRejected)
		e.logger.Debug("poll rejected", "action", id, "context", host.ID())
		return nil, &PollRejectedError{ActionID: id}
	}
	return a, nil
}

// prepare creates the operation state: invocation id, span, parameters
// bound to a transient context, and the undo pre-image.
func (e *Engine) prepare(ctx context.Context, a *Action, host *hostctx.Context, ev event.Event) (*State, context.Context, error) {
	st := &State{
		ID:       e.newID(),
		ActionID: a.Unit.ID,
		Host:     host,
		Origin:   ev,
		Event:    ev,
		Status:   Invoked,
		Data:     make(map[string]any),
		action:   a,
	}

	if a.Params != nil {
		params, err := schema.Bind(a.Params, hostctx.New("operation:"+st.ID))
		if err != nil {
			return nil, ctx, fmt.Errorf("bind parameters of %s: %w", a.Unit.ID, err)
		}
		st.Params = params
	}
	if a.Unit.Options.Undoable {
		pre := host.Snapshot()
		st.undoPre = &pre
	}

	ctx, st.span = e.tracer.Start(ctx, "operation "+a.Unit.ID, trace.WithAttributes(
		attribute.String("addon.action", a.Unit.ID),
		attribute.String("addon.invocation", st.ID),
		attribute.String("addon.owner", a.Unit.Owner),
	))
	return st, ctx, nil
}

func (e *Engine) dispatch(ctx context.Context, st *State) Outcome {
	op := st.action.Operator
	switch st.Phase {
	case PhaseInvoke:
		if inv, ok := op.(Invoker); ok {
			return inv.Invoke(ctx, st, st.Event)
		}
		return op.Execute(ctx, st)
	case PhaseModal:
		if m, ok := op.(ModalHandler); ok {
			return m.Modal(ctx, st, st.Event)
		}
		return Cancel("operator has no modal handler")
	default:
		return op.Execute(ctx, st)
	}
}

func (e *Engine) isCancelEvent(ev event.Event) bool {
	for _, t := range e.cancelOn {
		if t.Matches(ev) {
			return true
		}
	}
	return false
}

func (e *Engine) cancel(ctx context.Context, st *State, reason string) {
	if c, ok := st.action.Operator.(Canceler); ok {
		e.notifyCancel(ctx, c, st)
	}
	e.finish(st, Cancel(reason))
}

// notifyCancel calls the operator's cancel hook. A panic there is logged and
// the operation is still cancelled.
func (e *Engine) notifyCancel(ctx context.Context, c Canceler, st *State) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("operator cancel panicked", "action", st.ActionID, "invocation", st.ID, "panic", r)
		}
	}()
	c.Cancel(ctx, st)
}

// finish records a terminal outcome, pushes undo and releases the state.
func (e *Engine) finish(st *State, out Outcome) {
	st.Status = out.Status
	st.Outcome = out

	if out.Status == Finished && st.undoPre != nil && e.undo != nil {
		e.undo.PushUndoEntry(UndoEntry{
			Label:        st.action.Unit.DisplayLabel(),
			ActionID:     st.ActionID,
			InvocationID: st.ID,
			Pre:          *st.undoPre,
			Post:         st.Host.Snapshot(),
		})
	}

	label := telemetry.OutcomeFinished
	if out.Status == Cancelled {
		label = telemetry.OutcomeCancelled
		st.span.SetAttributes(attribute.String("addon.cancel_reason", out.Reason))
	}
	st.span.SetAttributes(attribute.String("addon.outcome", label), attribute.Int("addon.events", st.Events))
	e.metrics.Operation(st.ActionID, label)
	e.logger.Debug("operation ended", "action", st.ActionID, "invocation", st.ID, "outcome", out.String())
	e.release(st)
}

// abandon releases a state whose operator never ran.
func (e *Engine) abandon(st *State, outcome string) {
	st.Status = Cancelled
	st.Outcome = Cancel(outcome)
	st.span.SetAttributes(attribute.String("addon.outcome", outcome))
	e.metrics.Operation(st.ActionID, outcome)
	e.release(st)
}

func (e *Engine) release(st *State) {
	if st.Params != nil && !st.Params.Detached() {
		if err := st.Params.Detach(); err != nil {
			e.logger.Warn("detach parameters", "action", st.ActionID, "error", err)
		}
	}
	st.Data = nil
	st.undoPre = nil
	st.released = true
	if e.running == st {
		e.running = nil
	}
	st.span.End()
}
