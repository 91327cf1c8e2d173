// Package metrics holds the Prometheus instruments shared by the API and scheduler.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// JobMetrics records scheduled job executions.
type JobMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
	affected *prometheus.CounterVec
}

// NewJobMetrics registers scheduled job metrics on reg. A nil reg yields a no-op recorder.
func NewJobMetrics(reg prometheus.Registerer) *JobMetrics {
	if reg == nil {
		return &JobMetrics{}
	}
	m := &JobMetrics{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "flyttbas",
			Name:      "job_duration_seconds",
			Help:      "Duration of scheduled jobs in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"job"}),
		success: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flyttbas",
			Name:      "job_success_total",
			Help:      "Successful scheduled job runs.",
		}, []string{"job"}),
		failure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flyttbas",
			Name:      "job_failure_total",
			Help:      "Failed scheduled job runs.",
		}, []string{"job"}),
		affected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flyttbas",
			Name:      "job_affected_rows_total",
			Help:      "Rows changed by scheduled jobs.",
		}, []string{"job"}),
	}
	reg.MustRegister(m.duration, m.success, m.failure, m.affected)
	return m
}

// ObserveDuration records the duration for the named job.
func (m *JobMetrics) ObserveDuration(job string, d time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(label(job)).Observe(d.Seconds())
}

// IncSuccess increments the success counter for the named job.
func (m *JobMetrics) IncSuccess(job string) {
	if m == nil || m.success == nil {
		return
	}
	m.success.WithLabelValues(label(job)).Inc()
}

// IncFailure increments the failure counter for the named job.
func (m *JobMetrics) IncFailure(job string) {
	if m == nil || m.failure == nil {
		return
	}
	m.failure.WithLabelValues(label(job)).Inc()
}

// AddAffected adds n changed rows for the named job.
func (m *JobMetrics) AddAffected(job string, n int) {
	if m == nil || m.affected == nil || n <= 0 {
		return
	}
	m.affected.WithLabelValues(label(job)).Add(float64(n))
}

// TransitionMetrics counts lifecycle transitions per entity and target state.
type TransitionMetrics struct {
	transitions *prometheus.CounterVec
	conflicts   *prometheus.CounterVec
}

// NewTransitionMetrics registers lifecycle counters on reg. A nil reg yields a no-op recorder.
func NewTransitionMetrics(reg prometheus.Registerer) *TransitionMetrics {
	if reg == nil {
		return &TransitionMetrics{}
	}
	m := &TransitionMetrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flyttbas",
			Name:      "lifecycle_transitions_total",
			Help:      "Committed lifecycle transitions.",
		}, []string{"entity", "to"}),
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flyttbas",
			Name:      "lifecycle_conflicts_total",
			Help:      "Transitions rejected by a conditional write.",
		}, []string{"entity", "to"}),
	}
	reg.MustRegister(m.transitions, m.conflicts)
	return m
}

// Transition records a committed transition.
func (m *TransitionMetrics) Transition(entity, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(entity, to).Inc()
}

// Conflict records a transition that lost a race.
func (m *TransitionMetrics) Conflict(entity, to string) {
	if m == nil || m.conflicts == nil {
		return
	}
	m.conflicts.WithLabelValues(entity, to).Inc()
}

func label(job string) string {
	if job == "" {
		return "unknown"
	}
	return job
}
