package reservation

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	prometheusReservedCoins prometheus.Gauge
)

var (
	prometheusMetricsInitOnce sync.Once
)

func initPrometheusMetrics() {
	prometheusMetricsInitOnce.Do(_initPrometheusMetrics)
}

func _initPrometheusMetrics() {
	prometheusReservedCoins = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "xbridge",
			Subsystem: "reservation",
			Name:      "reserved_coins",
			Help:      "Number of coins currently pledged to swaps",
		},
	)
}
