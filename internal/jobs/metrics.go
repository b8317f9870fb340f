// Package jobmetrics instruments background job runs.
package jobmetrics

import (
	"errors"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
)

// Run outcomes. A dropped run returned asynq.SkipRetry and will not be retried.
const (
	OutcomeOK      = "ok"
	OutcomeRetry   = "retry"
	OutcomeDropped = "dropped"
)

// Metrics holds the job collectors.
type Metrics struct {
	runs        *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	items       *prometheus.CounterVec
	lastSuccess *prometheus.GaugeVec
}

// NewMetrics registers the job collectors on registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "freshmart_job_runs_total",
			Help: "Job runs by task type and outcome.",
		}, []string{"task", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "freshmart_job_duration_seconds",
			Help:    "Job run duration.",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 15, 30, 60},
		}, []string{"task"}),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "freshmart_job_items_total",
			Help: "Alerts raised, mails sent and reports warmed by jobs.",
		}, []string{"task"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "freshmart_job_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run.",
		}, []string{"task"}),
	}
	registerer.MustRegister(m.runs, m.duration, m.items, m.lastSuccess)
	return m
}

// Tracker times one run of a task.
type Tracker struct {
	metrics *Metrics
	task    string
	start   time.Time
}

// Track starts timing a run of task.
func (m *Metrics) Track(task string) *Tracker {
	return &Tracker{metrics: m, task: task, start: time.Now()}
}

// End records the run outcome and returns err unchanged so handlers can
// `return tracker.End(err)`.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil {
		return err
	}
	outcome := Outcome(err)
	t.metrics.runs.WithLabelValues(t.task, outcome).Inc()
	t.metrics.duration.WithLabelValues(t.task).Observe(time.Since(t.start).Seconds())
	if outcome == OutcomeOK {
		t.metrics.lastSuccess.WithLabelValues(t.task).SetToCurrentTime()
	}
	return err
}

// Outcome classifies a handler error.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, asynq.SkipRetry):
		return OutcomeDropped
	default:
		return OutcomeRetry
	}
}

// AddItems counts units of work a task produced.
func (m *Metrics) AddItems(task string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.items.WithLabelValues(task).Add(float64(count))
}
