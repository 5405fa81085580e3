package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CronJobMetrics records per-job timing and outcome counters for the
// background worker. A nil receiver or an unregistered instance is a
// no-op so callers never need to guard their calls.
type CronJobMetrics struct {
	duration *prometheus.HistogramVec
	runs     *prometheus.CounterVec
}

// NewCronJobMetrics registers the worker metrics on reg. Passing a nil
// registerer yields an inert instance, useful in tests.
func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	if reg == nil {
		return &CronJobMetrics{}
	}

	m := &CronJobMetrics{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "haulpoints_job_duration_seconds",
			Help:    "Wall-clock duration of scheduled job runs.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "haulpoints_job_runs_total",
			Help: "Scheduled job runs partitioned by outcome.",
		}, []string{"job", "result"}),
	}
	reg.MustRegister(m.duration, m.runs)
	return m
}

// ObserveDuration records how long the named job ran.
func (m *CronJobMetrics) ObserveDuration(job string, d time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(jobLabel(job)).Observe(d.Seconds())
}

// IncSuccess counts a successful run of the named job.
func (m *CronJobMetrics) IncSuccess(job string) {
	m.incRun(job, "success")
}

// IncFailure counts a failed run of the named job.
func (m *CronJobMetrics) IncFailure(job string) {
	m.incRun(job, "failure")
}

func (m *CronJobMetrics) incRun(job, result string) {
	if m == nil || m.runs == nil {
		return
	}
	m.runs.WithLabelValues(jobLabel(job), result).Inc()
}

func jobLabel(job string) string {
	if job == "" {
		return "unknown"
	}
	return job
}
