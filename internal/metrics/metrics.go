// Package metrics exposes Prometheus counters for the simulation.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tOgg1/geoforce/internal/events"
	"github.com/tOgg1/geoforce/internal/models"
)

// Metrics collects Prometheus counters for geoforce. A nil *Metrics is a
// valid no-op recorder.
type Metrics struct {
	registry            *prometheus.Registry
	telemetryTicksTotal prometheus.Counter
	agentsMovedTotal    prometheus.Counter
	taskTransitions     *prometheus.CounterVec
	storeCommitsTotal   prometheus.Counter
	storeChangesTotal   prometheus.Counter
	persistFailures     *prometheus.CounterVec
}

// New constructs a metrics registry and registers all collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	telemetryTicksTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "geoforce",
			Subsystem: "telemetry",
			Name:      "ticks_total",
			Help:      "Total number of telemetry ticks applied.",
		},
	)
	agentsMovedTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "geoforce",
			Subsystem: "telemetry",
			Name:      "agents_moved_total",
			Help:      "Total number of agent position updates produced by telemetry.",
		},
	)
	taskTransitions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "geoforce",
			Subsystem: "task",
			Name:      "transitions_total",
			Help:      "Total task state transitions by target status.",
		},
		[]string{"to"},
	)
	storeCommitsTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "geoforce",
			Subsystem: "store",
			Name:      "commits_total",
			Help:      "Total committed logical store operations.",
		},
	)
	storeChangesTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "geoforce",
			Subsystem: "store",
			Name:      "changes_total",
			Help:      "Total record changes across committed operations.",
		},
	)
	persistFailures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "geoforce",
			Subsystem: "persistence",
			Name:      "failures_total",
			Help:      "Total persistence failures by operation.",
		},
		[]string{"op"},
	)

	registry.MustRegister(
		telemetryTicksTotal,
		agentsMovedTotal,
		taskTransitions,
		storeCommitsTotal,
		storeChangesTotal,
		persistFailures,
	)

	return &Metrics{
		registry:            registry,
		telemetryTicksTotal: telemetryTicksTotal,
		agentsMovedTotal:    agentsMovedTotal,
		taskTransitions:     taskTransitions,
		storeCommitsTotal:   storeCommitsTotal,
		storeChangesTotal:   storeChangesTotal,
		persistFailures:     persistFailures,
	}
}

// Handler returns an HTTP handler that serves the metrics registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Attach counts store commits published on p.
func (m *Metrics) Attach(p events.Publisher) error {
	if m == nil || p == nil {
		return nil
	}
	return p.Subscribe("metrics", events.Filter{
		EventTypes: []models.EventType{models.EventTypeStoreCommitted},
	}, func(_ context.Context, ev *models.Event) {
		m.ObserveCommit(ev.Changes)
	})
}

func (m *Metrics) ObserveTick(moved int) {
	if m == nil {
		return
	}
	m.telemetryTicksTotal.Inc()
	if moved > 0 {
		m.agentsMovedTotal.Add(float64(moved))
	}
}

func (m *Metrics) ObserveTransition(to models.TaskStatus) {
	if m == nil {
		return
	}
	m.taskTransitions.WithLabelValues(string(to)).Inc()
}

func (m *Metrics) ObserveCommit(changes int) {
	if m == nil {
		return
	}
	m.storeCommitsTotal.Inc()
	if changes > 0 {
		m.storeChangesTotal.Add(float64(changes))
	}
}

func (m *Metrics) ObservePersistenceFailure(op string) {
	if m == nil {
		return
	}
	if op == "" {
		op = "unknown"
	}
	m.persistFailures.WithLabelValues(op).Inc()
}
