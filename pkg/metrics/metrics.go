// Package metrics provides Prometheus instrumentation for pagefetch.
//
// Metrics cover the two moving parts of the engine: individual HTTP attempts
// (latency, outcome, retries) and page-level progress (pages fetched, rows
// merged). Registration happens once at package init via promauto; recording
// helpers are safe for concurrent use and cheap enough to call per request.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pagefetch",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP attempts by outcome (ok or transport_error).",
	}, []string{"outcome"})

	requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "pagefetch",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Latency of individual HTTP attempts.",
		Buckets:   prometheus.DefBuckets,
	})

	retriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pagefetch",
		Subsystem: "http",
		Name:      "retries_total",
		Help:      "Retry attempts scheduled by the executor.",
	})

	pagesFetched = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pagefetch",
		Subsystem: "engine",
		Name:      "pages_fetched_total",
		Help:      "Pages merged into results across all fetch sessions.",
	})

	rowsMerged = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pagefetch",
		Subsystem: "engine",
		Name:      "rows_merged_total",
		Help:      "Rows appended to results across all fetch sessions.",
	})
)

// ObserveRequest records one HTTP attempt.
func ObserveRequest(duration time.Duration, ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "transport_error"
	}
	requestsTotal.WithLabelValues(outcome).Inc()
	requestDuration.Observe(duration.Seconds())
}

// IncRetry records one scheduled retry.
func IncRetry() {
	retriesTotal.Inc()
}

// ObservePage records one merged page and its row count.
func ObservePage(rows int) {
	pagesFetched.Inc()
	rowsMerged.Add(float64(rows))
}
