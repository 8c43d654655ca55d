// Package metrics exposes the rotation engine's run counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jakechorley/mass-rota/pkg/core/model"
	"github.com/jakechorley/mass-rota/pkg/core/services"
)

const namespace = "mass_rota"

// Collector records auto-assign and manual save events
type Collector struct {
	registry *prometheus.Registry

	runsStarted      *prometheus.CounterVec
	runsFinished     *prometheus.CounterVec
	runDuration      *prometheus.HistogramVec
	assignmentsMade  *prometheus.CounterVec
	shortfallSlots   *prometheus.CounterVec
	iterationErrors  *prometheus.CounterVec
	rejectedSelected *prometheus.CounterVec
}

var _ services.RunMetrics = (*Collector)(nil)

// NewCollector creates a collector with its own registry
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	auto := promauto.With(registry)

	return &Collector{
		registry: registry,
		runsStarted: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "autoassign",
			Name:      "runs_started_total",
			Help:      "Number of monthly auto-assign runs started",
		}, []string{"ministry"}),
		runsFinished: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "autoassign",
			Name:      "runs_finished_total",
			Help:      "Number of monthly auto-assign runs finished, by final status",
		}, []string{"ministry", "status"}),
		runDuration: auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "autoassign",
			Name:      "run_duration_seconds",
			Help:      "Duration of monthly auto-assign runs",
			Buckets:   prometheus.DefBuckets,
		}, []string{"ministry"}),
		assignmentsMade: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assignments_made_total",
			Help:      "Number of members assigned to a slot",
		}, []string{"ministry", "role"}),
		shortfallSlots: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "autoassign",
			Name:      "shortfall_slots_total",
			Help:      "Number of slots left vacant because no candidate was available",
		}, []string{"ministry", "role"}),
		iterationErrors: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "autoassign",
			Name:      "iteration_errors_total",
			Help:      "Number of role iterations that failed",
		}, []string{"ministry", "role"}),
		rejectedSelected: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "selection_rejections_total",
			Help:      "Number of manually selected members rejected on save",
		}, []string{"ministry", "role"}),
	}
}

func (c *Collector) RunStarted(ministry model.Ministry) {
	c.runsStarted.WithLabelValues(string(ministry)).Inc()
}

func (c *Collector) RunFinished(ministry model.Ministry, status string, duration time.Duration) {
	c.runsFinished.WithLabelValues(string(ministry), status).Inc()
	c.runDuration.WithLabelValues(string(ministry)).Observe(duration.Seconds())
}

func (c *Collector) AssignmentsMade(ministry model.Ministry, role model.RoleKey, count int) {
	c.assignmentsMade.WithLabelValues(string(ministry), string(role)).Add(float64(count))
}

func (c *Collector) ShortfallRecorded(ministry model.Ministry, role model.RoleKey, slots int) {
	c.shortfallSlots.WithLabelValues(string(ministry), string(role)).Add(float64(slots))
}

func (c *Collector) IterationFailed(ministry model.Ministry, role model.RoleKey) {
	c.iterationErrors.WithLabelValues(string(ministry), string(role)).Inc()
}

func (c *Collector) SelectionRejected(ministry model.Ministry, role model.RoleKey, count int) {
	c.rejectedSelected.WithLabelValues(string(ministry), string(role)).Add(float64(count))
}

// Registry returns the registry the collector's metrics are registered on
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collector's metrics in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
