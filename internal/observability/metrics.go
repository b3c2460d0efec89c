// Package observability exposes Prometheus metrics for the service.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis errors by operation type.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nexus_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// WebSocketConnectionsTotal is the gauge of active WebSocket connections.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nexus_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// WebSocketRoomConnections is the gauge of connections per network room kind.
	WebSocketRoomConnections = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "nexus_websocket_room_connections",
		Help: "Number of WebSocket connections per room kind",
	}, []string{"kind"})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nexus_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"reason"})

	// BusPublishes counts bus publishes by topic and outcome.
	BusPublishes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nexus_bus_publishes_total",
		Help: "Total number of bus publish attempts by topic and outcome",
	}, []string{"topic", "outcome"})

	// BusMessagesConsumed counts consumed bus messages by topic and outcome.
	BusMessagesConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nexus_bus_messages_consumed_total",
		Help: "Total number of bus messages consumed by topic and outcome",
	}, []string{"topic", "outcome"})

	// SweepRuns counts suspension sweep executions.
	SweepRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nexus_suspension_sweep_runs_total",
		Help: "Total number of suspension sweep executions",
	})

	// SweepDeletions counts networks permanently deleted by the sweep.
	SweepDeletions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nexus_suspension_sweep_deletions_total",
		Help: "Total number of networks permanently deleted after suspension expiry",
	})
)
