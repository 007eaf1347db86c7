package engine

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/seantiz/surveyd/internal/model"
)

var (
	jobsSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "surveyd_jobs_submitted_total",
			Help: "Total number of jobs accepted by the dispatcher.",
		},
		[]string{"query_type"},
	)

	jobsFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "surveyd_jobs_finished_total",
			Help: "Total number of jobs that reached a terminal status.",
		},
		[]string{"query_type", "status"},
	)

	jobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "surveyd_job_duration_seconds",
			Help:    "Time from a worker taking a job to its terminal status, in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"query_type"},
	)

	queueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "surveyd_queue_depth",
			Help: "Number of jobs waiting in the work queue.",
		},
	)

	workersBusy = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "surveyd_workers_busy",
			Help: "Number of workers currently executing a job.",
		},
	)
)

func init() {
	prometheus.MustRegister(jobsSubmitted)
	prometheus.MustRegister(jobsFinished)
	prometheus.MustRegister(jobDuration)
	prometheus.MustRegister(queueDepth)
	prometheus.MustRegister(workersBusy)

	// Pre-initialize label combinations so every query type shows up in
	// /metrics with value 0 from startup.
	for _, qt := range model.QueryTypes {
		jobsSubmitted.WithLabelValues(qt)
		jobsFinished.WithLabelValues(qt, string(model.StatusDone))
		jobsFinished.WithLabelValues(qt, string(model.StatusFailed))
	}
}
