package worker

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Job run outcomes.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// JobMetrics tracks scheduled job executions, labelled by job name.
type JobMetrics struct {
	RunsTotal            *prometheus.CounterVec
	DurationSeconds      *prometheus.HistogramVec
	LastSuccessTimestamp *prometheus.GaugeVec
}

// NewJobMetrics registers the job metrics with reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func NewJobMetrics(reg prometheus.Registerer) *JobMetrics {
	factory := promauto.With(reg)
	return &JobMetrics{
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_job_runs_total",
			Help: "Total number of scheduled job runs by job and status",
		}, []string{"job", "status"}),

		DurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ledger_job_duration_seconds",
			Help:    "Duration of scheduled job runs in seconds",
			Buckets: []float64{.01, .05, .1, .5, 1, 5, 30},
		}, []string{"job"}),

		LastSuccessTimestamp: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ledger_job_last_success_timestamp",
			Help: "Unix timestamp of the last successful run of a job",
		}, []string{"job"}),
	}
}

// RecordRun records one finished run of job.
func (m *JobMetrics) RecordRun(job, status string, d time.Duration) {
	m.RunsTotal.WithLabelValues(job, status).Inc()
	m.DurationSeconds.WithLabelValues(job).Observe(d.Seconds())
	if status == StatusSuccess {
		m.LastSuccessTimestamp.WithLabelValues(job).SetToCurrentTime()
	}
}
