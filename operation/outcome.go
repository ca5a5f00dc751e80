package operation

import "fmt"

// Status is the lifecycle state of an invocation.
type Status int

const (
	Idle Status = iota
	Invoked
	RunningModal
	Finished
	Cancelled
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Invoked:
		return "invoked"
	case RunningModal:
		return "running_modal"
	case Finished:
		return "finished"
	case Cancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool { return s == Finished || s == Cancelled }

// Outcome is what an operator step returns: keep running, finish with a
// result, or cancel with a reason.
type Outcome struct {
	Result any
	Reason string
	Status Status
}

// Continue keeps a modal operation running.
func Continue() Outcome { return Outcome{Status: RunningModal} }

// Finish ends an operation successfully.
func Finish(result any) Outcome { return Outcome{Status: Finished, Result: result} }

// Cancel ends an operation without committing it.
func Cancel(reason string) Outcome { return Outcome{Status: Cancelled, Reason: reason} }

// Terminal reports whether o ends the operation.
func (o Outcome) Terminal() bool { return o.Status.Terminal() }

func (o Outcome) String() string {
	switch o.Status {
	case Finished:
		return fmt.Sprintf("finished(%v)", o.Result)
	case Cancelled:
		return fmt.Sprintf("cancelled(%s)", o.Reason)
	default:
		return o.Status.String()
	}
}
