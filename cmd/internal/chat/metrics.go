package chat

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the prometheus instruments for the realtime core.
// A nil *Metrics disables instrumentation (all methods are nil-safe), which
// keeps unit tests free of registry bookkeeping.
type Metrics struct {
	connectionsActive  prometheus.Gauge
	connectionsTotal   prometheus.Counter
	authRejects        prometheus.Counter
	framesTotal        *prometheus.CounterVec
	messagesPersisted  prometheus.Counter
	duplicatesRejected prometheus.Counter
	broadcastsTotal    prometheus.Counter
	framesDelivered    prometheus.Counter
	deliveryDrops      prometheus.Counter
}

// NewMetrics registers the chat instruments on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		connectionsActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "parley", Subsystem: "ws",
			Name: "connections_active",
			Help: "Currently open websocket sessions.",
		}),
		connectionsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: "parley", Subsystem: "ws",
			Name: "connections_total",
			Help: "Websocket sessions accepted since start.",
		}),
		authRejects: f.NewCounter(prometheus.CounterOpts{
			Namespace: "parley", Subsystem: "ws",
			Name: "auth_rejects_total",
			Help: "Connections closed before bind (token or routing failures).",
		}),
		framesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parley", Subsystem: "ws",
			Name: "frames_total",
			Help: "Inbound frames by action.",
		}, []string{"action"}),
		messagesPersisted: f.NewCounter(prometheus.CounterOpts{
			Namespace: "parley", Subsystem: "chat",
			Name: "messages_persisted_total",
			Help: "Messages accepted by the store.",
		}),
		duplicatesRejected: f.NewCounter(prometheus.CounterOpts{
			Namespace: "parley", Subsystem: "chat",
			Name: "duplicates_rejected_total",
			Help: "send_message frames rejected by the fingerprint guard.",
		}),
		broadcastsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: "parley", Subsystem: "chat",
			Name: "broadcasts_total",
			Help: "Broadcast fan-outs started.",
		}),
		framesDelivered: f.NewCounter(prometheus.CounterOpts{
			Namespace: "parley", Subsystem: "chat",
			Name: "frames_delivered_total",
			Help: "Outbound frames enqueued to member sessions.",
		}),
		deliveryDrops: f.NewCounter(prometheus.CounterOpts{
			Namespace: "parley", Subsystem: "chat",
			Name: "delivery_drops_total",
			Help: "Per-member deliveries dropped (full queue or closing session).",
		}),
	}
}

func (m *Metrics) connectionOpened() {
	if m == nil {
		return
	}
	m.connectionsTotal.Inc()
	m.connectionsActive.Inc()
}

func (m *Metrics) connectionClosed() {
	if m == nil {
		return
	}
	m.connectionsActive.Dec()
}

func (m *Metrics) authRejected() {
	if m == nil {
		return
	}
	m.authRejects.Inc()
}

func (m *Metrics) frameReceived(action string) {
	if m == nil {
		return
	}
	m.framesTotal.WithLabelValues(action).Inc()
}

func (m *Metrics) messagePersisted() {
	if m == nil {
		return
	}
	m.messagesPersisted.Inc()
}

func (m *Metrics) duplicateRejected() {
	if m == nil {
		return
	}
	m.duplicatesRejected.Inc()
}

func (m *Metrics) broadcastStarted() {
	if m == nil {
		return
	}
	m.broadcastsTotal.Inc()
}

func (m *Metrics) frameDelivered() {
	if m == nil {
		return
	}
	m.framesDelivered.Inc()
}

func (m *Metrics) deliveryDropped() {
	if m == nil {
		return
	}
	m.deliveryDrops.Inc()
}
