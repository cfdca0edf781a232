package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SweepRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifier_sweep_runs_total",
			Help: "Document expiry sweeps by outcome",
		},
		[]string{"outcome"},
	)

	DocumentsChecked = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notifier_documents_checked_total",
			Help: "Documents whose reminder day matched a sweep date",
		},
	)

	Emails = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifier_emails_total",
			Help: "Reminder emails by dispatch status",
		},
		[]string{"status"},
	)

	CompaniesSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notifier_companies_skipped_total",
			Help: "Companies skipped because no recipient could be resolved",
		},
	)

	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "notifier_sweep_duration_seconds",
			Help:    "Wall time of a sweep run",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		},
	)

	SweepState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "notifier_sweep_state",
			Help: "Current sweep state (0 idle, 1 loading, 2 evaluating, 3 dispatching, 4 completed, 5 failed)",
		},
	)

	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)
)
