package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CacheWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "cache_writes_total",
			Namespace: ColmenaNamespace,
			Help:      "The total number of dashboard snapshots mirrored to the cache.",
		},
		[]string{"cache", "result"},
	)

	CacheReadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "cache_reads_total",
			Namespace: ColmenaNamespace,
			Help:      "The total number of mirrored snapshot reads by result (hit, miss, error).",
		},
		[]string{"cache", "result"},
	)

	CacheReadLatencySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:      "cache_read_latency_seconds",
			Namespace: ColmenaNamespace,
			Buckets:   prometheus.DefBuckets,
			Help:      "The latency of cache read operations in seconds.",
		},
		[]string{"cache"},
	)

	CacheWriteLatencySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:      "cache_write_latency_seconds",
			Namespace: ColmenaNamespace,
			Buckets:   prometheus.DefBuckets,
			Help:      "The latency of cache write operations in seconds.",
		},
		[]string{"cache"},
	)
)
