package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/notifyhub/github-relay/internal/domain"
)

// Metrics groups all Prometheus instruments used across the application.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	DeliveriesReceived  *prometheus.CounterVec
	GroupsSkipped       *prometheus.CounterVec
	NotificationsSent   *prometheus.CounterVec
	NotificationsFailed *prometheus.CounterVec
	NotificationLatency *prometheus.HistogramVec
	BatchDuration       *prometheus.HistogramVec
	QueueDepth          *prometheus.GaugeVec
}

// New registers all instruments with the given Prometheus registerer and
// returns the populated Metrics struct.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DeliveriesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_deliveries_total",
			Help: "Queued webhook deliveries settled by the consumer, by outcome (acked, retried).",
		}, []string{"mode", "outcome"}),

		GroupsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_groups_skipped_total",
			Help: "Destination groups skipped because their configuration could not be resolved.",
		}, []string{"mode", "reason"}),

		NotificationsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_notifications_sent_total",
			Help: "Notifications delivered to every accepting chat robot.",
		}, []string{"mode", "event"}),

		NotificationsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_notifications_failed_total",
			Help: "Notifications whose delivery failed for at least one chat robot.",
		}, []string{"mode", "event"}),

		NotificationLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "relay_notification_send_seconds",
			Help:    "Time spent sending one notification to its chat robots.",
			Buckets: prometheus.DefBuckets,
		}, []string{"mode"}),

		BatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "relay_batch_seconds",
			Help:    "Time taken by the consumer to process one batch.",
			Buckets: prometheus.DefBuckets,
		}, []string{"mode"}),

		QueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "relay_queue_depth",
			Help: "Deliveries waiting in the queue, by state (ready, delayed).",
		}, []string{"mode", "state"}),
	}

	reg.MustRegister(
		m.DeliveriesReceived,
		m.GroupsSkipped,
		m.NotificationsSent,
		m.NotificationsFailed,
		m.NotificationLatency,
		m.BatchDuration,
		m.QueueDepth,
	)

	return m
}

// ConsumerHooks are the callbacks a consumer for one mode reports through.
// Field names mirror worker.MetricHooks so main can copy them across.
type ConsumerHooks struct {
	OnReceipt      func(outcome string)
	OnGroupSkipped func(reason string)
	OnSent         func(event string, latency time.Duration)
	OnFailed       func(event string)
	OnBatch        func(size int, elapsed time.Duration)
}

// Hooks returns the metric callbacks for the consumer of mode.
// Centralises the prometheus observation calls so the worker package stays import-free.
func (m *Metrics) Hooks(mode domain.Mode) ConsumerHooks {
	md := string(mode)
	return ConsumerHooks{
		OnReceipt: func(outcome string) {
			m.DeliveriesReceived.WithLabelValues(md, outcome).Inc()
		},
		OnGroupSkipped: func(reason string) {
			m.GroupsSkipped.WithLabelValues(md, reason).Inc()
		},
		OnSent: func(event string, latency time.Duration) {
			m.NotificationsSent.WithLabelValues(md, event).Inc()
			m.NotificationLatency.WithLabelValues(md).Observe(latency.Seconds())
		},
		OnFailed: func(event string) {
			m.NotificationsFailed.WithLabelValues(md, event).Inc()
		},
		OnBatch: func(_ int, elapsed time.Duration) {
			m.BatchDuration.WithLabelValues(md).Observe(elapsed.Seconds())
		},
	}
}

// ObserveQueue records the current depth of mode's queue.
func (m *Metrics) ObserveQueue(mode domain.Mode, d domain.QueueDepth) {
	m.QueueDepth.WithLabelValues(string(mode), "ready").Set(float64(d.Ready))
	m.QueueDepth.WithLabelValues(string(mode), "delayed").Set(float64(d.Delayed))
}
