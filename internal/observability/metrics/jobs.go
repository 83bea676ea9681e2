// Package metrics exposes Prometheus instrumentation for the job pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Job outcome label values.
const (
	OutcomeCompleted = "completed"
	OutcomeRetried   = "retried"
	OutcomeFailed    = "failed"
)

// JobMetrics groups the collectors for worker job processing.
type JobMetrics struct {
	JobsTotal   *prometheus.CounterVec
	JobDuration *prometheus.HistogramVec
	QueueDepth  prometheus.Gauge
}

// NewJobMetrics registers the job collectors against reg.
func NewJobMetrics(reg prometheus.Registerer) *JobMetrics {
	factory := promauto.With(reg)

	return &JobMetrics{
		JobsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "verifyq_jobs_total",
			Help: "Processed jobs by kind and outcome.",
		}, []string{"kind", "outcome"}),
		JobDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "verifyq_job_duration_seconds",
			Help:    "Wall-clock duration of job execution attempts.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"kind"}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "verifyq_queue_depth",
			Help: "Envelopes waiting in the queue backend, ready plus delayed.",
		}),
	}
}
