// Package metrics holds the Prometheus collectors of the wallet callback API.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "wallet"

type Metrics struct {
	operations    *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	duplicates    *prometheus.CounterVec
	appendRetries *prometheus.CounterVec
	sideEffects   *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "callback_operations_total",
			Help:      "Callback operations by operation and envelope status code.",
		}, []string{"operation", "status_code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "callback_operation_duration_seconds",
			Help:      "Callback operation latency.",
			Buckets:   []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"operation"}),
		duplicates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicate_batches_total",
			Help:      "Batches rejected as duplicates, by the tier that caught them.",
		}, []string{"operation", "tier"}),
		appendRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_append_retries_total",
			Help:      "Ledger entry append attempts that failed and were retried.",
		}, []string{"operation"}),
		sideEffects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "post_commit_failures_total",
			Help:      "Failed post-commit side effects (cache, feed).",
		}, []string{"target"}),
	}

	reg.MustRegister(m.operations, m.duration, m.duplicates, m.appendRetries, m.sideEffects)

	return m
}

func (m *Metrics) ObserveOperation(op string, statusCode int, took time.Duration) {
	if m == nil {
		return
	}

	m.operations.WithLabelValues(op, strconv.Itoa(statusCode)).Inc()
	m.duration.WithLabelValues(op).Observe(took.Seconds())
}

// Duplicate counts a rejected batch. tier is "cache", "log" or "insert".
func (m *Metrics) Duplicate(op, tier string) {
	if m == nil {
		return
	}

	m.duplicates.WithLabelValues(op, tier).Inc()
}

func (m *Metrics) AppendRetry(op string) {
	if m == nil {
		return
	}

	m.appendRetries.WithLabelValues(op).Inc()
}

// PostCommitFailure counts a failed cache write or feed publish.
func (m *Metrics) PostCommitFailure(target string) {
	if m == nil {
		return
	}

	m.sideEffects.WithLabelValues(target).Inc()
}
