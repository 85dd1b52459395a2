// Package metrics exposes prometheus metrics for the access audit log.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the audit recorder's prometheus collectors.
type Metrics struct {
	EntriesRecorded prometheus.Counter
	PersistFailures prometheus.Counter
	PersistDuration prometheus.Histogram
}

// New creates and registers the audit metrics.
func New() *Metrics {
	return &Metrics{
		EntriesRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "veristay_audit_entries_recorded_total",
			Help: "Total access log entries successfully persisted",
		}),
		PersistFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "veristay_audit_persist_failures_total",
			Help: "Total access log appends that failed (reads fail closed)",
		}),
		PersistDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "veristay_audit_persist_duration_seconds",
			Help:    "Latency of access log appends",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
