// Package policy provides the reactions to refused runtime permission checks.
package policy

import (
	"context"
	"log/slog"
	"sync"

	"github.com/reglet-dev/reglet-addon-host/capability"
	"github.com/reglet-dev/reglet-addon-host/telemetry"
)

// LogDenials returns a handler that logs each denial at warn level.
func LogDenials(logger *slog.Logger) capability.DenialHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, addonID string, perm capability.Permission, message string) {
		logger.WarnContext(ctx, "permission denied", "addon", addonID, "permission", perm, "reason", message)
	}
}

// CountDenials returns a handler that counts denials by permission.
func CountDenials(m *telemetry.Metrics) capability.DenialHandler {
	return func(_ context.Context, _ string, perm capability.Permission, _ string) {
		m.Denied(string(perm))
	}
}

// Nop ignores denials.
func Nop(context.Context, string, capability.Permission, string) {}

// Chain calls every non-nil handler in order.
func Chain(handlers ...capability.DenialHandler) capability.DenialHandler {
	return func(ctx context.Context, addonID string, perm capability.Permission, message string) {
		for _, h := range handlers {
			if h != nil {
				h(ctx, addonID, perm, message)
			}
		}
	}
}

// Denial is one recorded refusal.
type Denial struct {
	AddonID    string
	Permission capability.Permission
	Message    string
}

// Recorder keeps every denial it sees. Safe for concurrent use.
type Recorder struct {
	denials []Denial
	mu      sync.Mutex
}

// Handle implements capability.DenialHandler.
func (r *Recorder) Handle(_ context.Context, addonID string, perm capability.Permission, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.denials = append(r.denials, Denial{AddonID: addonID, Permission: perm, Message: message})
}

// Denials returns a copy of the recorded denials in arrival order.
func (r *Recorder) Denials() []Denial {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Denial, len(r.denials))
	copy(out, r.denials)
	return out
}
