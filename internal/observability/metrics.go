package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "reminders"

// Metrics exposes Prometheus collectors for the reminder and notification core.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	schedule     *prometheus.CounterVec
	removed      prometheus.Counter
	malformed    prometheus.Counter
	listed       prometheus.Counter
	markedRead   prometheus.Counter
	rejectedIDs  prometheus.Counter
	jobs         *prometheus.CounterVec
	jobDuration  *prometheus.HistogramVec
	jobsInFlight prometheus.Gauge
}

// NewMetrics constructs and registers the collectors. Supply a fresh registry in tests.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		schedule: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "decisions_total",
			Help:      "Scheduling decisions by outcome (scheduled, outside_window, no_due_date, error).",
		}, []string{"outcome"}),
		removed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "removed_total",
			Help:      "Reminders removed after task completion or deletion.",
		}),
		malformed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "malformed_records_total",
			Help:      "Stored reminders skipped because they could not be decoded.",
		}),
		listed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "listed_total",
			Help:      "Notifications returned to callers.",
		}),
		markedRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "marked_read_total",
			Help:      "Notifications marked as read.",
		}),
		rejectedIDs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "rejected_ids_total",
			Help:      "Notification ids skipped as unparseable or owned by another user.",
		}),
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatcher",
			Name:      "jobs_total",
			Help:      "Reminder job transitions by event (enqueued, deduplicated, cancelled, completed, skipped, deferred, retried, failed).",
		}, []string{"event"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "dispatcher",
			Name:      "job_duration_seconds",
			Help:      "Time spent processing a reminder job.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
		jobsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dispatcher",
			Name:      "jobs_in_flight",
			Help:      "Reminder jobs currently being processed.",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.schedule, m.removed, m.malformed, m.listed, m.markedRead,
		m.rejectedIDs, m.jobs, m.jobDuration, m.jobsInFlight,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// MustNewMetrics is NewMetrics that panics on registration errors.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	m, err := NewMetrics(reg)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *Metrics) ScheduleDecision(outcome string) {
	if m == nil {
		return
	}
	m.schedule.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ReminderRemoved() {
	if m == nil {
		return
	}
	m.removed.Inc()
}

func (m *Metrics) MalformedRecord() {
	if m == nil {
		return
	}
	m.malformed.Inc()
}

func (m *Metrics) NotificationsListed(n int) {
	if m == nil {
		return
	}
	m.listed.Add(float64(n))
}

func (m *Metrics) NotificationsMarked(marked, rejected int) {
	if m == nil {
		return
	}
	m.markedRead.Add(float64(marked))
	m.rejectedIDs.Add(float64(rejected))
}

func (m *Metrics) JobEvent(event string) {
	if m == nil {
		return
	}
	m.jobs.WithLabelValues(event).Inc()
}

// JobStarted marks a job in flight and returns a func recording its outcome.
func (m *Metrics) JobStarted() func(status string) {
	if m == nil {
		return func(string) {}
	}
	start := time.Now()
	m.jobsInFlight.Inc()
	return func(status string) {
		m.jobsInFlight.Dec()
		m.jobDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	}
}
