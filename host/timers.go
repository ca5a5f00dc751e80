package host

import (
	"context"
	"fmt"
	"time"

	"github.com/Workiva/go-datastructures/queue"
)

// Stop is returned by a TimerFunc that must not run again.
const Stop time.Duration = -1

// TimerFunc is deferred work run on the loop. It returns the delay before
// its next run, or Stop.
type TimerFunc func(ctx context.Context) time.Duration

// Timer is a scheduled TimerFunc. Its methods must be called on the loop.
type Timer struct {
	due       time.Time
	fn        TimerFunc
	owner     string
	seq       uint64
	runs      int
	cancelled bool
}

// Cancel prevents further runs. Cancelling twice is harmless.
func (t *Timer) Cancel() { t.cancelled = true }

// Cancelled reports whether the timer was cancelled or stopped itself.
func (t *Timer) Cancelled() bool { return t.cancelled }

// Owner returns the add-on that scheduled the timer, or "" for the host.
func (t *Timer) Owner() string { return t.owner }

// Runs returns how many times the timer has fired.
func (t *Timer) Runs() int { return t.runs }

// Compare implements queue.Item: earlier deadlines first, then scheduling
// order.
func (t *Timer) Compare(other queue.Item) int {
	o := other.(*Timer)
	switch {
	case t.due.Before(o.due):
		return -1
	case t.due.After(o.due):
		return 1
	case t.seq < o.seq:
		return -1
	case t.seq > o.seq:
		return 1
	default:
		return 0
	}
}

// timerHeap wraps the priority queue with the loop's bookkeeping.
type timerHeap struct {
	pq  *queue.PriorityQueue
	seq uint64
}

func newTimerHeap() *timerHeap {
	return &timerHeap{pq: queue.NewPriorityQueue(16, true)}
}

// push fails once the heap has been disposed.
func (h *timerHeap) push(t *Timer) error {
	h.seq++
	t.seq = h.seq
	if err := h.pq.Put(t); err != nil {
		return fmt.Errorf("%w: %w", ErrClosed, err)
	}
	return nil
}

// next returns the earliest live timer without removing it. Cancelled timers
// at the front are discarded.
func (h *timerHeap) next() *Timer {
	for {
		item := h.pq.Peek()
		if item == nil {
			return nil
		}
		t := item.(*Timer)
		if !t.cancelled {
			return t
		}
		h.pop()
	}
}

func (h *timerHeap) pop() *Timer {
	items, err := h.pq.Get(1)
	if err != nil || len(items) == 0 {
		return nil
	}
	return items[0].(*Timer)
}

// popDue removes every live timer due at or before now, in firing order.
func (h *timerHeap) popDue(now time.Time) []*Timer {
	var due []*Timer
	for {
		t := h.next()
		if t == nil || t.due.After(now) {
			return due
		}
		h.pop()
		due = append(due, t)
	}
}

func (h *timerHeap) len() int { return h.pq.Len() }

func (h *timerHeap) dispose() { h.pq.Dispose() }
