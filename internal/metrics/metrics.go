// Package metrics holds the Prometheus collectors for the job queue.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "dailygist"

var (
	JobsEnqueued = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "jobs_enqueued_total",
		Help:      "Scheduler upserts by outcome (created, updated, skipped).",
	}, []string{"outcome"})

	JobsClaimed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "jobs_claimed_total",
		Help:      "Jobs handed to a worker.",
	})

	ClaimsEmpty = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "claims_empty_total",
		Help:      "Claim calls that found nothing queued.",
	})

	JobsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "jobs_completed_total",
		Help:      "Worker reports by terminal status and whether they applied.",
	}, []string{"status", "applied"})

	JobsStaleReset = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "jobs_stale_reset_total",
		Help:      "Processing jobs returned to the queue after the stale timeout.",
	})

	JobsRetried = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "jobs_retried_total",
		Help:      "Failed jobs re-enqueued by the retry phase.",
	})

	SchedulerErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scheduler_errors_total",
		Help:      "Per-owner errors hit during a scheduler pass, by phase.",
	}, []string{"phase"})

	SchedulerRunSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "scheduler_run_seconds",
		Help:      "Wall time of one scheduler pass.",
		Buckets:   prometheus.DefBuckets,
	})
)

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// ObserveCompletion counts one worker report.
func ObserveCompletion(status string, applied bool) {
	JobsCompleted.WithLabelValues(status, boolLabel(applied)).Inc()
}
