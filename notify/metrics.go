package notify

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts delivery attempts and event outcomes. A nil *Metrics is a no-op.
type Metrics struct {
	attempts *prometheus.CounterVec
	duration *prometheus.HistogramVec
	events   *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "order_notify_attempts_total",
				Help: "Delivery attempts per kind (text, media) and outcome (sent, failed).",
			},
			[]string{"kind", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "order_notify_attempt_duration_seconds",
				Help:    "Duration of one delivery attempt.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "order_notify_events_total",
				Help: "Notification events by outcome.",
			},
			[]string{"outcome"},
		),
	}
	reg.MustRegister(m.attempts, m.duration, m.events)
	return m
}

func (m *Metrics) observeAttempt(kind string, err error, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "sent"
	if err != nil {
		outcome = "failed"
	}
	m.attempts.WithLabelValues(kind, outcome).Inc()
	m.duration.WithLabelValues(kind).Observe(d.Seconds())
}

func (m *Metrics) observeEvent(outcome string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(outcome).Inc()
}
