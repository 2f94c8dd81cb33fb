package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HttpRequestLatencySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:      "http_request_latency_seconds",
			Namespace: ColmenaNamespace,
			Buckets:   prometheus.DefBuckets,
			Help:      "The latency of http operations in seconds.",
		},
		[]string{"route"},
	)

	StreamClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name:      "stream_clients",
		Namespace: ColmenaNamespace,
		Help:      "Number of connected dashboard stream clients.",
	})
)
