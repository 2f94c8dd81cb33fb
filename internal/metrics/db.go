package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ScyllaQueryLatencySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:      "scylla_query_latency_seconds",
			Namespace: ColmenaNamespace,
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2},
			Help:      "Latency of reading queries against ScyllaDB, by outcome.",
		},
		[]string{"query", "outcome"},
	)

	ScyllaRowsRead = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "scylla_rows_read_total",
			Namespace: ColmenaNamespace,
			Help:      "Reading rows scanned from ScyllaDB.",
		},
		[]string{"query"},
	)
)
