// Package metrics provides Prometheus metrics for the slate store
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Operation status labels.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Metrics holds the store's Prometheus collectors. A nil *Metrics records
// nothing.
type Metrics struct {
	// Store operation metrics
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec

	// Durability cycle metrics
	CommitsTotal   prometheus.Counter
	CommitDuration prometheus.Histogram

	// Content metrics
	EntitiesActive  *prometheus.GaugeVec
	EntitiesRetired *prometheus.GaugeVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{}

	m.OperationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slate_operations_total",
			Help: "Total number of store operations",
		},
		[]string{"operation", "entity_type", "status"},
	)

	m.OperationDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "slate_operation_duration_seconds",
			Help:    "Duration of store operations in seconds",
			Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"operation"},
	)

	m.CommitsTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "slate_commits_total",
			Help: "Total number of durability cycles",
		},
	)

	m.CommitDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "slate_commit_duration_seconds",
			Help:    "Duration of durability cycles in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	m.EntitiesActive = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "slate_entities_active",
			Help: "Number of active entities per entity type",
		},
		[]string{"entity_type"},
	)

	m.EntitiesRetired = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "slate_entities_retired",
			Help: "Number of retired entities per entity type",
		},
		[]string{"entity_type"},
	)

	return m
}

// RecordOperation records one store operation and its outcome.
func (m *Metrics) RecordOperation(operation, entityType string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	status := StatusOK
	if err != nil {
		status = StatusError
	}
	m.OperationsTotal.WithLabelValues(operation, entityType, status).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordCommit records one durability cycle.
func (m *Metrics) RecordCommit(duration time.Duration) {
	if m == nil {
		return
	}
	m.CommitsTotal.Inc()
	m.CommitDuration.Observe(duration.Seconds())
}

// SetEntityCounts updates the per-type entity gauges.
func (m *Metrics) SetEntityCounts(entityType string, active, retired int) {
	if m == nil {
		return
	}
	m.EntitiesActive.WithLabelValues(entityType).Set(float64(active))
	m.EntitiesRetired.WithLabelValues(entityType).Set(float64(retired))
}
