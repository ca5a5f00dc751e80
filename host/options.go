package host

import (
	"log/slog"
	"time"

	"github.com/reglet-dev/reglet-addon-host/capability"
	"github.com/reglet-dev/reglet-addon-host/keymap"
	"github.com/reglet-dev/reglet-addon-host/operation"
	"github.com/reglet-dev/reglet-addon-host/registry"
	"github.com/reglet-dev/reglet-addon-host/telemetry"
)

// Option defines a functional option for configuring the Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		s.logger = l
	}
}

// WithMetrics records loop activity in m.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Session) {
		s.metrics = m
	}
}

// WithRegistry replaces the capability registry.
func WithRegistry(r *registry.Registry) Option {
	return func(s *Session) {
		s.registry = r
	}
}

// WithEngine replaces the operation engine.
func WithEngine(e *operation.Engine) Option {
	return func(s *Session) {
		s.engine = e
	}
}

// WithKeymap replaces the keymap dispatcher.
func WithKeymap(d *keymap.Dispatcher) Option {
	return func(s *Session) {
		s.keymap = d
	}
}

// WithChecker replaces the runtime permission checker.
func WithChecker(c *capability.Checker) Option {
	return func(s *Session) {
		s.checker = c
	}
}

// WithWorkers sets the size of the background worker pool.
func WithWorkers(n int) Option {
	return func(s *Session) {
		s.workers = n
	}
}

// WithClock overrides the time source used for timer deadlines.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}
