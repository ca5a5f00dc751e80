// Package telemetry holds the Prometheus metrics and OpenTelemetry tracer
// shared by the host components. A nil *Metrics is valid and records nothing.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "addon_host"

// Outcome labels for operation metrics.
const (
	OutcomeFinished  = "finished"
	OutcomeCancelled = "cancelled"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

// Metrics is the set of host counters and gauges.
type Metrics struct {
	Registrations    *prometheus.CounterVec
	Unregistrations  *prometheus.CounterVec
	ActiveUnits      *prometheus.GaugeVec
	ReversalFailures prometheus.Counter
	Operations       *prometheus.CounterVec
	ModalEvents      prometheus.Counter
	Dispatches       *prometheus.CounterVec
	TimersFired      prometheus.Counter
	BackgroundTasks  *prometheus.CounterVec
	Denials          *prometheus.CounterVec
}

// NewMetrics creates the metrics and registers them with reg. A nil reg
// leaves them unregistered, which is what tests usually want.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Capability units registered, by kind.",
		}, []string{"kind"}),
		Unregistrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unregistrations_total",
			Help:      "Capability units unregistered, by kind.",
		}, []string{"kind"}),
		ActiveUnits: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_units",
			Help:      "Capability units currently registered, by kind.",
		}, []string{"kind"}),
		ReversalFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reversal_failures_total",
			Help:      "Registration reversals that returned an error.",
		}),
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Operation invocations, by action and outcome.",
		}, []string{"action", "outcome"}),
		ModalEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "modal_events_total",
			Help:      "Events delivered to running modal operations.",
		}),
		Dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "keymap_dispatches_total",
			Help:      "Keymap lookups, by whether a binding matched.",
		}, []string{"matched"}),
		TimersFired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "timers_fired_total",
			Help:      "Scheduled callbacks run by the host loop.",
		}),
		BackgroundTasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "background_tasks_total",
			Help:      "Background tasks, by result.",
		}, []string{"result"}),
		Denials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "permission_denials_total",
			Help:      "Runtime permission checks refused, by permission.",
		}, []string{"permission"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.Registrations,
			m.Unregistrations,
			m.ActiveUnits,
			m.ReversalFailures,
			m.Operations,
			m.ModalEvents,
			m.Dispatches,
			m.TimersFired,
			m.BackgroundTasks,
			m.Denials,
		)
	}
	return m
}

// Registered records a successful registration.
func (m *Metrics) Registered(kind string) {
	if m == nil {
		return
	}
	m.Registrations.WithLabelValues(kind).Inc()
	m.ActiveUnits.WithLabelValues(kind).Inc()
}

// Unregistered records a removal. failed marks a reversal error.
func (m *Metrics) Unregistered(kind string, failed bool) {
	if m == nil {
		return
	}
	m.Unregistrations.WithLabelValues(kind).Inc()
	m.ActiveUnits.WithLabelValues(kind).Dec()
	if failed {
		m.ReversalFailures.Inc()
	}
}

// Operation records the outcome of an invocation.
func (m *Metrics) Operation(action, outcome string) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(action, outcome).Inc()
}

// ModalEvent records an event delivered to a modal operation.
func (m *Metrics) ModalEvent() {
	if m == nil {
		return
	}
	m.ModalEvents.Inc()
}

// Dispatch records a keymap lookup.
func (m *Metrics) Dispatch(matched bool) {
	if m == nil {
		return
	}
	label := "false"
	if matched {
		label = "true"
	}
	m.Dispatches.WithLabelValues(label).Inc()
}

// TimerFired records a timer callback.
func (m *Metrics) TimerFired() {
	if m == nil {
		return
	}
	m.TimersFired.Inc()
}

// BackgroundTask records a finished background task.
func (m *Metrics) BackgroundTask(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.BackgroundTasks.WithLabelValues(result).Inc()
}

// Denied records a refused permission check.
func (m *Metrics) Denied(permission string) {
	if m == nil {
		return
	}
	m.Denials.WithLabelValues(permission).Inc()
}
