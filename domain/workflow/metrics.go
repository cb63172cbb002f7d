package workflow

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Package-level metrics, promauto-registered against the default
// registry the way pkg/syshealth does it — the engine has no reason to
// own a private prometheus.Registry since it never needs to unregister.
var (
	stepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "workflow_step_duration_seconds",
		Help:    "Time spent resolving one step end to end (pre-tools through supervisor review).",
		Buckets: prometheus.DefBuckets,
	}, []string{"step", "outcome"})

	stepRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "workflow_step_retries_total",
		Help: "Total number of step retries, by step and failure class.",
	}, []string{"step", "class"})

	runningSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "workflow_running_sessions",
		Help: "Number of sessions currently in status=running.",
	})

	staleSessionsRecoveredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "workflow_stale_sessions_recovered_total",
		Help: "Total number of sessions requeued by the stale-session recovery task.",
	})
)

// observeStep records one runStep call's wall-clock duration and outcome.
func observeStep(stepName string, outcome Status, start time.Time) {
	stepDuration.WithLabelValues(stepName, string(outcome)).Observe(time.Since(start).Seconds())
}

// observeRetry records one retry being scheduled for stepName.
func observeRetry(stepName string, class string) {
	stepRetriesTotal.WithLabelValues(stepName, class).Inc()
}

// SetRunningSessions reports the current count of status=running
// sessions. The scheduler's poll-loop task calls this every tick since
// it already enumerates that set to drive Advance.
func SetRunningSessions(n int) {
	runningSessions.Set(float64(n))
}

// RecordStaleSessionRecovered is called once per session the stale-
// session recovery task requeues.
func RecordStaleSessionRecovered() {
	staleSessionsRecoveredTotal.Inc()
}
