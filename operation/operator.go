package operation

import (
	"context"
	"errors"

	"github.com/reglet-dev/reglet-addon-host/capability"
	"github.com/reglet-dev/reglet-addon-host/event"
	"github.com/reglet-dev/reglet-addon-host/schema"
)

// Operator is the minimum an action implements: a synchronous execute step
// returning Finish or Cancel.
type Operator interface {
	Execute(ctx context.Context, st *State) Outcome
}

// Invoker is implemented by operators with an interactive setup step. Invoke
// may return Continue to enter the modal phase. Operators without it are
// invoked through Execute.
type Invoker interface {
	Invoke(ctx context.Context, st *State, ev event.Event) Outcome
}

// ModalHandler receives the events of a running modal operation.
type ModalHandler interface {
	Modal(ctx context.Context, st *State, ev event.Event) Outcome
}

// Canceler is notified before a modal operation is cancelled by the engine,
// so that it can roll back preview changes.
type Canceler interface {
	Cancel(ctx context.Context, st *State)
}

// Funcs adapts plain functions to the operator interfaces. Nil fields fall
// back: Invoke to Execute, and a missing Execute or Modal cancels.
type Funcs struct {
	ExecuteFn func(ctx context.Context, st *State) Outcome
	InvokeFn  func(ctx context.Context, st *State, ev event.Event) Outcome
	ModalFn   func(ctx context.Context, st *State, ev event.Event) Outcome
	CancelFn  func(ctx context.Context, st *State)
}

// Execute implements Operator.
func (f Funcs) Execute(ctx context.Context, st *State) Outcome {
	if f.ExecuteFn == nil {
		return Cancel("operator cannot run without interaction")
	}
	return f.ExecuteFn(ctx, st)
}

// Invoke implements Invoker.
func (f Funcs) Invoke(ctx context.Context, st *State, ev event.Event) Outcome {
	if f.InvokeFn == nil {
		return f.Execute(ctx, st)
	}
	return f.InvokeFn(ctx, st, ev)
}

// Modal implements ModalHandler.
func (f Funcs) Modal(ctx context.Context, st *State, ev event.Event) Outcome {
	if f.ModalFn == nil {
		return Cancel("operator has no modal handler")
	}
	return f.ModalFn(ctx, st, ev)
}

// Cancel implements Canceler.
func (f Funcs) Cancel(ctx context.Context, st *State) {
	if f.CancelFn != nil {
		f.CancelFn(ctx, st)
	}
}

// Action is an operator together with its capability unit and optional
// parameter schema.
type Action struct {
	Operator Operator
	Params   *schema.Definition
	Unit     capability.Unit
}

func (a Action) validate() error {
	if err := a.Unit.Validate(); err != nil {
		return err
	}
	if a.Operator == nil {
		return errors.New("action has no operator")
	}
	return nil
}
