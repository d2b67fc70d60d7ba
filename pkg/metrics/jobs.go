package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// JobMetrics tracks the order lifecycle sweeps and outbox retention.
type JobMetrics struct {
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	lastRun  *prometheus.GaugeVec
}

func NewJobMetrics(reg prometheus.Registerer) *JobMetrics {
	if reg == nil {
		return &JobMetrics{}
	}
	m := &JobMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scheduled_job_runs_total",
			Help: "Scheduled job executions by outcome.",
		}, []string{"job", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scheduled_job_duration_seconds",
			Help:    "Scheduled job duration in seconds.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
		}, []string{"job"}),
		lastRun: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "scheduled_job_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run.",
		}, []string{"job"}),
	}
	reg.MustRegister(m.runs, m.duration, m.lastRun)
	return m
}

// Observe records one finished run; err decides the outcome.
func (m *JobMetrics) Observe(job string, started time.Time, took time.Duration, err error) {
	if m == nil || m.runs == nil {
		return
	}
	job = normalizeLabel(job)
	m.duration.WithLabelValues(job).Observe(took.Seconds())
	if err != nil {
		m.runs.WithLabelValues(job, OutcomeFailure).Inc()
		return
	}
	m.runs.WithLabelValues(job, OutcomeSuccess).Inc()
	m.lastRun.WithLabelValues(job).Set(float64(started.Add(took).Unix()))
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
