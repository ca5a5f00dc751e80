package operation

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Handler runs one operator step for st; st.Phase says which.
type Handler func(ctx context.Context, st *State) Outcome

// Middleware is a function that wraps a Handler to add cross-cutting behavior.
// Middleware executes in FIFO order (first registered wraps first, onion model).
//
// Example usage:
//
//	timing := func(next operation.Handler) operation.Handler {
//	    return func(ctx context.Context, st *operation.State) operation.Outcome {
//	        start := time.Now()
//	        defer func() { log.Printf("%s took %s", st.ActionID, time.Since(start)) }()
//	        return next(ctx, st)
//	    }
//	}
type Middleware func(next Handler) Handler

func chain(h Handler, mws []Middleware) Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// PanicRecoveryMiddleware returns a middleware that turns a panicking
// operator step into a cancellation instead of crashing the host loop.
func PanicRecoveryMiddleware() Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, st *State) (out Outcome) {
			defer func() {
				if r := recover(); r != nil {
					out = Cancel(fmt.Sprintf("panic in %s %s: %v", st.ActionID, st.Phase, r))
				}
			}()
			return next(ctx, st)
		}
	}
}

// LoggingMiddleware returns a middleware that logs every operator step at
// debug level.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, st *State) Outcome {
			start := time.Now()
			out := next(ctx, st)
			logger.DebugContext(ctx, "operator step",
				"action", st.ActionID,
				"invocation", st.ID,
				"phase", st.Phase.String(),
				"status", out.Status.String(),
				"duration", time.Since(start))
			return out
		}
	}
}
