// Package metrics exposes Prometheus collectors for the ledger, the event
// bus, snapshot storage and the HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lhtc/classpoint/internal/domain/shared"
	"github.com/lhtc/classpoint/pkg/circuitbreaker"
)

const namespace = "classpoint"

// Metrics holds every collector, registered on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	pointChanges  *prometheus.CounterVec
	pointsMoved   *prometheus.CounterVec
	levelUps      *prometheus.CounterVec
	redemptions   prometheus.Counter
	pointsSpent   prometheus.Counter
	students      prometheus.Gauge
	classes       prometheus.Gauge
	eventHandlers *prometheus.HistogramVec
	snapshotOps   *prometheus.HistogramVec
	breakerState  *prometheus.GaugeVec
	httpRequests  *prometheus.CounterVec
	httpLatency   *prometheus.HistogramVec
}

// New creates the collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		pointChanges: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "changes_total",
			Help:      "Point history entries recorded, by direction",
		}, []string{"direction"}),

		pointsMoved: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "points_total",
			Help:      "Absolute points awarded or deducted",
		}, []string{"direction"}),

		levelUps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "level_ups_total",
			Help:      "Level-ups by reached level",
		}, []string{"level"}),

		redemptions: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rewards",
			Name:      "redemptions_total",
			Help:      "Rewards redeemed",
		}),

		pointsSpent: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rewards",
			Name:      "points_spent_total",
			Help:      "Points spent on rewards",
		}),

		students: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "students",
			Help:      "Students across all classes",
		}),

		classes: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "classes",
			Help:      "Class groups",
		}),

		eventHandlers: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "handler_duration_seconds",
			Help:      "Event handler latency by event type and status",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"event_type", "status"}),

		snapshotOps: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "operation_duration_seconds",
			Help:      "Snapshot load/save latency by operation and status",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"operation", "status"}),

		breakerState: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "circuit_breaker",
			Name:      "state",
			Help:      "Circuit breaker state (0 closed, 1 open, 2 half-open)",
		}, []string{"name"}),

		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status code",
		}, []string{"method", "route", "code"}),

		httpLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ─────────────────────────────────────────────────────────────────────────────
// Recording
// ─────────────────────────────────────────────────────────────────────────────

// ObserveEvent updates the domain counters from a published event.
// It is subscribed to the event bus for every event type.
func (m *Metrics) ObserveEvent(event shared.Event) error {
	switch e := event.(type) {
	case shared.PointsChangedEvent:
		direction, amount := "awarded", e.Change
		if e.Change <= 0 {
			direction, amount = "deducted", -e.Change
		}
		m.pointChanges.WithLabelValues(direction).Inc()
		m.pointsMoved.WithLabelValues(direction).Add(float64(amount))
	case shared.LevelUpEvent:
		m.levelUps.WithLabelValues(e.NewLevel).Inc()
	case shared.RewardRedeemedEvent:
		m.redemptions.Inc()
		m.pointsSpent.Add(float64(e.PointsSpent))
	}
	return nil
}

// ObserveHandler records one event handler execution. Its signature
// matches messaging.Observer.
func (m *Metrics) ObserveHandler(eventType shared.EventType, d time.Duration, err error) {
	m.eventHandlers.WithLabelValues(string(eventType), status(err)).Observe(d.Seconds())
}

// ObserveSnapshot records a snapshot load or save.
func (m *Metrics) ObserveSnapshot(operation string, d time.Duration, err error) {
	m.snapshotOps.WithLabelValues(operation, status(err)).Observe(d.Seconds())
}

// SetRoster publishes the current roster size.
func (m *Metrics) SetRoster(students, classes int) {
	m.students.Set(float64(students))
	m.classes.Set(float64(classes))
}

// BreakerStateChanged matches the circuit breaker state callback.
func (m *Metrics) BreakerStateChanged(name string, _, to circuitbreaker.State) {
	m.breakerState.WithLabelValues(name).Set(float64(to))
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route string, code int, d time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.httpLatency.WithLabelValues(method, route).Observe(d.Seconds())
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
