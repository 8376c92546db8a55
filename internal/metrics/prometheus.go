// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobsTotal counts finished queue items by final status and error kind.
	JobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polyglot_jobs_total",
			Help: "Total number of processed translation jobs.",
		},
		[]string{"status", "reason"},
	)

	// TranslationDurationSeconds tracks chat-completion round trips.
	TranslationDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "polyglot_translation_duration_seconds",
			Help:    "Duration of translation API calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s .. ~256s
		},
	)

	// BatchesTotal counts processor invocations by outcome.
	BatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polyglot_batches_total",
			Help: "Total number of queue processor invocations.",
		},
		[]string{"outcome"},
	)

	// QueueItems reports the current number of items per status.
	QueueItems = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "polyglot_queue_items",
			Help: "Number of queue items per status.",
		},
		[]string{"status"},
	)

	// APIRequestDurationSeconds tracks HTTP API latency per route.
	APIRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "polyglot_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "code"},
	)
)

// Batch outcomes.
const (
	BatchProcessed = "processed"
	BatchIdle      = "idle"
	BatchLockHeld  = "lock_held"
	BatchAborted   = "aborted"
)

// SetQueueItems replaces the per-status gauge values.
func SetQueueItems(counts map[string]int) {
	for status, count := range counts {
		QueueItems.WithLabelValues(status).Set(float64(count))
	}
}
