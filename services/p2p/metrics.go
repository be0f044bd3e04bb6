package p2p

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	prometheusBytesSent     prometheus.Counter
	prometheusBytesReceived prometheus.Counter
)

var (
	prometheusMetricsInitOnce sync.Once
)

func initPrometheusMetrics() {
	prometheusMetricsInitOnce.Do(_initPrometheusMetrics)
}

func _initPrometheusMetrics() {
	prometheusBytesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "xbridge",
			Subsystem: "p2p",
			Name:      "bytes_sent",
			Help:      "Number of bytes published to the xbridge topic",
		},
	)

	prometheusBytesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "xbridge",
			Subsystem: "p2p",
			Name:      "bytes_received",
			Help:      "Number of bytes received from the xbridge topic",
		},
	)
}
