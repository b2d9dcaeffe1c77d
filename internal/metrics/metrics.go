// Package metrics exports worker pool metrics to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Spawn cycle outcomes.
const (
	CycleSkippedBusy = "busy"
	CycleNoCapacity  = "no_capacity"
	CycleLockHeld    = "lock_held"
	CycleNoQueues    = "no_queues"
	CycleClaimed     = "claimed"
	CycleError       = "error"
)

// Metrics holds the pool's collectors. A nil *Metrics records nothing.
type Metrics struct {
	SpawnCycles  *prometheus.CounterVec
	Claims       prometheus.Counter
	ClaimLosses  prometheus.Counter
	ActiveDrains prometheus.Gauge
	DrainErrors  prometheus.Counter
	JobsTotal    *prometheus.CounterVec
	JobDuration  *prometheus.HistogramVec
}

// New registers the collectors on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer, namespace, nodeID string) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	labels := prometheus.Labels{"node_id": nodeID}

	return &Metrics{
		SpawnCycles: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Name:        "spawn_cycles_total",
				Help:        "Spawn cycles by outcome",
				ConstLabels: labels,
			},
			[]string{"outcome"},
		),
		Claims: f.NewCounter(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Name:        "queue_claims_total",
				Help:        "Queues claimed for draining",
				ConstLabels: labels,
			},
		),
		ClaimLosses: f.NewCounter(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Name:        "queue_claim_losses_total",
				Help:        "Queues listed as claimable but claimed elsewhere first",
				ConstLabels: labels,
			},
		),
		ActiveDrains: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace:   namespace,
				Name:        "active_drains",
				Help:        "Number of queues currently drained by this node",
				ConstLabels: labels,
			},
		),
		DrainErrors: f.NewCounter(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Name:        "drain_errors_total",
				Help:        "Drains aborted by a store error or panic",
				ConstLabels: labels,
			},
		),
		JobsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Name:        "jobs_total",
				Help:        "Jobs processed by terminal status",
				ConstLabels: labels,
			},
			[]string{"status"},
		),
		JobDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   namespace,
				Name:        "job_duration_seconds",
				Help:        "Callback execution time in seconds",
				Buckets:     []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120},
				ConstLabels: labels,
			},
			[]string{"status"},
		),
	}
}

// RecordCycle counts one spawn cycle outcome.
func (m *Metrics) RecordCycle(outcome string) {
	if m == nil {
		return
	}
	m.SpawnCycles.WithLabelValues(outcome).Inc()
}

// RecordClaim counts one claim attempt.
func (m *Metrics) RecordClaim(won bool) {
	if m == nil {
		return
	}
	if won {
		m.Claims.Inc()
		return
	}
	m.ClaimLosses.Inc()
}

// DrainStarted marks a new drain.
func (m *Metrics) DrainStarted() {
	if m == nil {
		return
	}
	m.ActiveDrains.Inc()
}

// DrainFinished marks the end of a drain; failed is true when it aborted.
func (m *Metrics) DrainFinished(failed bool) {
	if m == nil {
		return
	}
	m.ActiveDrains.Dec()
	if failed {
		m.DrainErrors.Inc()
	}
}

// RecordJob counts one job outcome.
func (m *Metrics) RecordJob(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.JobsTotal.WithLabelValues(status).Inc()
	m.JobDuration.WithLabelValues(status).Observe(d.Seconds())
}

// Handler serves the metrics gathered by g, or the default gatherer when g
// is nil.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
