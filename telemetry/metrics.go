package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Command outcomes used as the "outcome" label
const (
	OutcomeApplied = "applied"
	OutcomeIgnored = "ignored"
	OutcomeError   = "error"
)

// Metrics holds the Prometheus collectors of the simulator.
// All methods are safe to call on a nil *Metrics.
type Metrics struct {
	commands          *prometheus.CounterVec
	clampedMoves      prometheus.Counter
	placementFailures *prometheus.CounterVec
	scriptRuns        *prometheus.CounterVec
	activeSessions    prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates the collectors on a private registry
func NewMetrics(namespace string) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "commands_total",
				Help:      "Robot commands executed, by command and outcome",
			},
			[]string{"command", "outcome"},
		),
		clampedMoves: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "moves_dropped_total",
				Help:      "MOVE commands dropped because they would leave the table",
			},
		),
		placementFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "placement_failures_total",
				Help:      "Rejected PLACE commands, by reason",
			},
			[]string{"reason"},
		),
		scriptRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "script_runs_total",
				Help:      "Command scripts run, by outcome",
			},
			[]string{"outcome"},
		),
		activeSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_sessions",
				Help:      "Robot sessions currently held in memory",
			},
		),
	}

	registry.MustRegister(
		m.commands,
		m.clampedMoves,
		m.placementFailures,
		m.scriptRuns,
		m.activeSessions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// ObserveCommand counts one executed command
func (m *Metrics) ObserveCommand(command, outcome string) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(command, outcome).Inc()
}

// MoveDropped counts a MOVE that was ignored at the table edge
func (m *Metrics) MoveDropped() {
	if m == nil {
		return
	}
	m.clampedMoves.Inc()
}

// PlacementFailed counts a rejected PLACE
func (m *Metrics) PlacementFailed(reason string) {
	if m == nil {
		return
	}
	m.placementFailures.WithLabelValues(reason).Inc()
}

// ScriptRun counts a finished script run
func (m *Metrics) ScriptRun(outcome string) {
	if m == nil {
		return
	}
	m.scriptRuns.WithLabelValues(outcome).Inc()
}

// SetActiveSessions records the current number of sessions
func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}

// Registry returns the underlying registry, or nil
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
