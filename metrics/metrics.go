// Package metrics exposes the server's Prometheus instruments.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "pointdeck"

var (
	// OpenConnections counts currently open WebSocket connections.
	OpenConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "open_websocket_connections",
		Help:      "Number of currently open WebSocket connections",
	})

	// MessagesTotal counts inbound protocol messages by type.
	MessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_total",
		Help:      "Total inbound WebSocket protocol messages",
	}, []string{"type"})

	// EventsPublished counts session snapshots published to the hub.
	EventsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_published_total",
		Help:      "Total session updates published to the hub",
	})

	// ProtocolErrors counts recoverable per-connection protocol errors.
	ProtocolErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "protocol_errors_total",
		Help:      "Total protocol errors reported to clients",
	})
)

// RegisterSessionGauges registers gauges backed by live counts from the
// store and the hub.
func RegisterSessionGauges(storeCount, hubCount func() int) {
	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_sessions",
		Help:      "Number of sessions currently in the store",
	}, func() float64 { return float64(storeCount()) })

	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "hub_sessions",
		Help:      "Number of session IDs with a registered hub notifier",
	}, func() float64 { return float64(hubCount()) })
}
