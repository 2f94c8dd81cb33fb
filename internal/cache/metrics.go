package cache

import (
	"time"

	"github.com/ntentasd/colmena-telemetry/internal/metrics"
)

type CacheMetrics struct {
	driver string
}

func NewCacheMetrics(driver string) *CacheMetrics {
	return &CacheMetrics{
		driver,
	}
}

// RecordHit marks a cache hit and logs latency since start
func (cm *CacheMetrics) RecordHit(start time.Time) {
	metrics.CacheReadsTotal.WithLabelValues(cm.driver, "hit").Inc()
	metrics.CacheReadLatencySeconds.WithLabelValues(cm.driver).Observe(time.Since(start).Seconds())
}

// RecordMiss marks a cache miss
func (cm *CacheMetrics) RecordMiss() {
	metrics.CacheReadsTotal.WithLabelValues(cm.driver, "miss").Inc()
}

func (cm *CacheMetrics) RecordReadError() {
	metrics.CacheReadsTotal.WithLabelValues(cm.driver, "error").Inc()
}

// RecordWrite logs cache write latency since start
func (cm *CacheMetrics) RecordWrite(start time.Time) {
	metrics.CacheWritesTotal.WithLabelValues(cm.driver, "ok").Inc()
	metrics.CacheWriteLatencySeconds.WithLabelValues(cm.driver).Observe(time.Since(start).Seconds())
}

func (cm *CacheMetrics) RecordWriteError() {
	metrics.CacheWritesTotal.WithLabelValues(cm.driver, "error").Inc()
}
