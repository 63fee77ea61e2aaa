// Package metrics holds the process-wide Prometheus collectors. Label values
// are bounded: no per-session or per-entity labels.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "arena_tick_duration_seconds",
		Help:    "Time spent running all systems for one tick",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1},
	})

	SystemFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arena_system_failures_total",
		Help: "System updates that returned an error or panicked",
	}, []string{"system"}) // bounded by the systems manifest

	Entities = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_entities",
		Help: "Live entities in the registry",
	})

	PacketsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arena_packets_received_total",
		Help: "Datagrams accepted into the ingress queue",
	})

	PacketsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arena_packets_dropped_total",
		Help: "Datagrams discarded before reaching the simulation",
	}, []string{"reason"}) // "rate_limit", "queue_full", "empty"

	PacketsDrained = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "arena_packets_drained_per_tick",
		Help:    "Packets drained from the ingress queue in one tick",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})

	DatagramsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arena_datagrams_sent_total",
		Help: "Datagrams written to the wire",
	})

	SendFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arena_send_failures_total",
		Help: "Outgoing datagrams that failed or were dropped",
	}, []string{"reason"}) // "write", "queue_full", "closed"

	ConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_connections_active",
		Help: "Connections currently tracked by the session table",
	})

	ConnectionsReaped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arena_connections_reaped_total",
		Help: "Connections removed from the session table",
	}, []string{"reason"}) // "idle", "inactive", "replaced", "bye"

	EventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arena_events_dropped_total",
		Help: "Messages rejected by a full event queue",
	})
)
