package chat

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the relay's Prometheus collectors. A nil *Metrics records nothing.
type Metrics struct {
	activeSessions   prometheus.Gauge
	commands         *prometheus.CounterVec
	notifications    prometheus.Counter
	deliveryFailures prometheus.Counter
	relayedFiles     *prometheus.CounterVec
	relayedBytes     prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "relaychat",
			Name:      "active_sessions",
			Help:      "Number of live WebSocket sessions.",
		}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relaychat",
			Name:      "commands_total",
			Help:      "Command lines received, by keyword.",
		}, []string{"command"}),
		notifications: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "relaychat",
			Name:      "notifications_enqueued_total",
			Help:      "Notifications enqueued onto recipient outboxes.",
		}),
		deliveryFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "relaychat",
			Name:      "notification_failures_total",
			Help:      "Notifications that could not be enqueued.",
		}),
		relayedFiles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relaychat",
			Name:      "file_relays_total",
			Help:      "File relays, by outcome.",
		}, []string{"outcome"}),
		relayedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "relaychat",
			Name:      "file_relay_bytes_total",
			Help:      "File chunk bytes forwarded to recipients.",
		}),
	}

	reg.MustRegister(
		m.activeSessions,
		m.commands,
		m.notifications,
		m.deliveryFailures,
		m.relayedFiles,
		m.relayedBytes,
	)

	return m
}

// RecordActiveSessions sets the live session gauge.
func (m *Metrics) RecordActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}

// RecordCommand counts one command line by keyword ("unknown" when no grammar matched).
func (m *Metrics) RecordCommand(keyword string) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(keyword).Inc()
}

// RecordDelivery counts one notification enqueue attempt.
func (m *Metrics) RecordDelivery(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.notifications.Inc()
		return
	}
	m.deliveryFailures.Inc()
}

// RecordFileRelay counts a finished relay and the bytes it forwarded.
func (m *Metrics) RecordFileRelay(ok bool, bytes int) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	m.relayedFiles.WithLabelValues(outcome).Inc()
	m.relayedBytes.Add(float64(bytes))
}
