// internal/metrics/metrics.go
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	apiRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "congress_sync",
			Name:      "api_requests_total",
			Help:      "Outbound Congress API requests by resource.",
		},
		[]string{"resource"},
	)

	recordsSynced = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "congress_sync",
			Name:      "records_synced_total",
			Help:      "Records reconciled by resource and outcome.",
		},
		[]string{"resource", "outcome"},
	)

	changesDetected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "congress_sync",
			Name:      "changes_detected_total",
			Help:      "Field-level changes detected by significance.",
		},
		[]string{"significance"},
	)

	syncRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "congress_sync",
			Name:      "sync_runs_total",
			Help:      "Sync runs by resource and terminal status.",
		},
		[]string{"resource", "status"},
	)

	syncDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "congress_sync",
			Name:      "sync_duration_seconds",
			Help:      "Sync run duration by resource.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		},
		[]string{"resource"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(apiRequests, recordsSynced, changesDetected, syncRuns, syncDuration)
	})
}

// IncAPIRequest counts one outbound API request for a resource.
func IncAPIRequest(resource string) {
	apiRequests.WithLabelValues(resource).Inc()
}

// IncRecordSynced counts one reconciled record with its outcome
// (created, updated, unchanged, error).
func IncRecordSynced(resource, outcome string) {
	recordsSynced.WithLabelValues(resource, outcome).Inc()
}

// IncChangeDetected counts one detected change by significance.
func IncChangeDetected(significance string) {
	changesDetected.WithLabelValues(significance).Inc()
}

// ObserveSyncRun records one finished run's status and duration.
func ObserveSyncRun(resource, status string, d time.Duration) {
	syncRuns.WithLabelValues(resource, status).Inc()
	syncDuration.WithLabelValues(resource).Observe(d.Seconds())
}
