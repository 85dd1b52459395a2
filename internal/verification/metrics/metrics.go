// Package metrics exposes prometheus metrics for the verification pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the verification pipeline's prometheus collectors.
type Metrics struct {
	SubmissionsTotal *prometheus.CounterVec
	DecisionsTotal   *prometheus.CounterVec
	TrustScore       prometheus.Histogram
	GuardDecisions   *prometheus.CounterVec
}

// New creates and registers all verification metrics.
func New() *Metrics {
	return &Metrics{
		SubmissionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veristay_submissions_total",
			Help: "Verification submissions by channel",
		}, []string{"channel"}),
		DecisionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veristay_decisions_total",
			Help: "Verification decisions by channel and outcome",
		}, []string{"channel", "outcome"}),
		TrustScore: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "veristay_trust_score",
			Help:    "Distribution of recomputed trust scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		}),
		GuardDecisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veristay_guard_decisions_total",
			Help: "Guard check outcomes by decision",
		}, []string{"decision"}),
	}
}
