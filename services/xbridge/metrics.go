package xbridge

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	prometheusPacketsReceived      prometheus.Counter
	prometheusPacketsDuplicate     prometheus.Counter
	prometheusPacketsSent          prometheus.Counter
	prometheusDecodeErrors         prometheus.Counter
	prometheusVersionMismatches    prometheus.Counter
	prometheusPendingDeferred      prometheus.Counter
	prometheusPendingFlushed       prometheus.Counter
	prometheusPendingExpired       prometheus.Counter
	prometheusPendingPackets       prometheus.Gauge
	prometheusProposals            *prometheus.CounterVec
	prometheusAccepts              *prometheus.CounterVec
	prometheusCancels              *prometheus.CounterVec
	prometheusRollbacks            prometheus.Counter
	prometheusStateMismatches      prometheus.Counter
	prometheusExpired              prometheus.Counter
	prometheusNotificationsDropped prometheus.Counter
	prometheusActiveTransactions   prometheus.Gauge
	prometheusHistoricTransactions prometheus.Gauge
)

var (
	prometheusMetricsInitOnce sync.Once
)

func initPrometheusMetrics() {
	prometheusMetricsInitOnce.Do(_initPrometheusMetrics)
}

func _initPrometheusMetrics() {
	prometheusPacketsReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "xbridge",
			Subsystem: "coordinator",
			Name:      "packets_received",
			Help:      "Number of packets received from the network",
		},
	)

	prometheusPacketsDuplicate = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "xbridge",
			Subsystem: "coordinator",
			Name:      "packets_duplicate",
			Help:      "Number of received packets that had been seen before",
		},
	)

	prometheusPacketsSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "xbridge",
			Subsystem: "coordinator",
			Name:      "packets_sent",
			Help:      "Number of packets handed to the transport",
		},
	)

	prometheusDecodeErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "xbridge",
			Subsystem: "coordinator",
			Name:      "decode_errors",
			Help:      "Number of packets that could not be decoded",
		},
	)

	prometheusVersionMismatches = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "xbridge",
			Subsystem: "coordinator",
			Name:      "version_mismatches",
			Help:      "Number of packets dropped for a foreign protocol version",
		},
	)

	prometheusPendingDeferred = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "xbridge",
			Subsystem: "coordinator",
			Name:      "pending_deferred",
			Help:      "Number of packets parked in the pending queue",
		},
	)

	prometheusPendingFlushed = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "xbridge",
			Subsystem: "coordinator",
			Name:      "pending_flushed",
			Help:      "Number of pending packets handed back to workers",
		},
	)

	prometheusPendingExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "xbridge",
			Subsystem: "coordinator",
			Name:      "pending_expired",
			Help:      "Number of pending packets dropped after the pending ttl",
		},
	)

	prometheusPendingPackets = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "xbridge",
			Subsystem: "coordinator",
			Name:      "pending_packets",
			Help:      "Number of packets waiting in the pending queue",
		},
	)

	prometheusProposals = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xbridge",
			Subsystem: "coordinator",
			Name:      "proposals",
			Help:      "Number of swap proposals by origin",
		},
		[]string{"origin"},
	)

	prometheusAccepts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xbridge",
			Subsystem: "coordinator",
			Name:      "accepts",
			Help:      "Number of swap accepts by origin",
		},
		[]string{"origin"},
	)

	prometheusCancels = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xbridge",
			Subsystem: "coordinator",
			Name:      "cancels",
			Help:      "Number of cancelled swaps by reason",
		},
		[]string{"reason"},
	)

	prometheusRollbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "xbridge",
			Subsystem: "coordinator",
			Name:      "rollbacks",
			Help:      "Number of refund transactions broadcast by this node",
		},
	)

	prometheusStateMismatches = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "xbridge",
			Subsystem: "coordinator",
			Name:      "state_mismatches",
			Help:      "Number of state reports or confirmations that did not match the swap",
		},
	)

	prometheusExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "xbridge",
			Subsystem: "coordinator",
			Name:      "expired",
			Help:      "Number of swaps dropped after their ttl",
		},
	)

	prometheusNotificationsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "xbridge",
			Subsystem: "coordinator",
			Name:      "notifications_dropped",
			Help:      "Number of state notifications dropped because the buffer was full",
		},
	)

	prometheusActiveTransactions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "xbridge",
			Subsystem: "coordinator",
			Name:      "active_transactions",
			Help:      "Number of swaps in progress",
		},
	)

	prometheusHistoricTransactions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "xbridge",
			Subsystem: "coordinator",
			Name:      "historic_transactions",
			Help:      "Number of finished, cancelled or dropped swaps kept in history",
		},
	)
}
