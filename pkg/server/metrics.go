package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the server's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	sessionsActive  prometheus.Gauge
	sessionsTotal   prometheus.Counter
	messagesIn      prometheus.Counter
	messagesOut     prometheus.Counter
	eventsBroadcast prometheus.Counter
	broadcastErrors prometheus.Counter
	sessionCloses   *prometheus.CounterVec
	requestsTotal   *prometheus.CounterVec
	requestDuration prometheus.Histogram
	batchesTotal    *prometheus.CounterVec
}

func newMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		sessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "studiolink_sessions_active",
			Help: "Number of currently connected sessions.",
		}),
		sessionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "studiolink_sessions_total",
			Help: "Total number of sessions accepted.",
		}),
		messagesIn: factory.NewCounter(prometheus.CounterOpts{
			Name: "studiolink_messages_incoming_total",
			Help: "Total number of messages received from clients.",
		}),
		messagesOut: factory.NewCounter(prometheus.CounterOpts{
			Name: "studiolink_messages_outgoing_total",
			Help: "Total number of messages sent to clients.",
		}),
		eventsBroadcast: factory.NewCounter(prometheus.CounterOpts{
			Name: "studiolink_events_broadcast_total",
			Help: "Total number of events broadcast to sessions.",
		}),
		broadcastErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "studiolink_broadcast_send_errors_total",
			Help: "Total number of event writes that failed.",
		}),
		sessionCloses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "studiolink_session_closes_total",
			Help: "Total number of server-initiated session closes by close code.",
		}, []string{"code"}),
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "studiolink_requests_total",
			Help: "Total number of requests processed by request type.",
		}, []string{"request_type"}),
		requestDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "studiolink_request_duration_seconds",
			Help:    "Request processing latency.",
			Buckets: prometheus.DefBuckets,
		}),
		batchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "studiolink_request_batches_total",
			Help: "Total number of request batches by execution type.",
		}, []string{"execution_type"}),
	}
}

// Registry returns the Prometheus registry backing the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
