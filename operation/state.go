package operation

import (
	"github.com/reglet-dev/reglet-addon-host/event"
	"github.com/reglet-dev/reglet-addon-host/hostctx"
	"github.com/reglet-dev/reglet-addon-host/schema"
	"go.opentelemetry.io/otel/trace"
)

// Phase tells middleware which operator step is being called.
type Phase int

const (
	PhaseExecute Phase = iota
	PhaseInvoke
	PhaseModal
)

func (p Phase) String() string {
	switch p {
	case PhaseInvoke:
		return "invoke"
	case PhaseModal:
		return "modal"
	default:
		return "execute"
	}
}

// State is the per-invocation state of an operation. It is created by the
// engine and released as soon as the operation reaches a terminal status:
// parameters are detached and Data is cleared.
type State struct {
	// Host is the shared context the operation works on.
	Host *hostctx.Context
	// Params holds the validated parameters, bound to the operation's own
	// transient context. Nil for actions without a parameter schema.
	Params *schema.Instance
	// Data is free bookkeeping for the operator.
	Data map[string]any

	span    trace.Span
	action  *Action
	undoPre *hostctx.Snapshot

	// ID is the invocation id.
	ID       string
	ActionID string
	// Origin is the event that started the operation; Event is the one
	// currently being handled.
	Origin event.Event
	Event  event.Event
	// Outcome is set once the operation is terminal.
	Outcome  Outcome
	Status   Status
	Phase    Phase
	Events   int
	released bool
}

// Released reports whether the engine has torn the state down.
func (s *State) Released() bool { return s.released }

// Label returns the action's display label.
func (s *State) Label() string {
	if s.action == nil {
		return ""
	}
	return s.action.Unit.DisplayLabel()
}
