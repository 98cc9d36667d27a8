package querycache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for one cache.
type Metrics struct {
	hits      prometheus.Counter
	misses    prometheus.Counter
	evictions prometheus.Counter
	entries   prometheus.Gauge
}

// NewMetrics registers the cache instruments with the registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		hits: factory.NewCounter(prometheus.CounterOpts{
			Name: "restq_query_cache_hits_total",
			Help: "Number of cache reads served from a live entry.",
		}),
		misses: factory.NewCounter(prometheus.CounterOpts{
			Name: "restq_query_cache_misses_total",
			Help: "Number of cache reads that found no live entry.",
		}),
		evictions: factory.NewCounter(prometheus.CounterOpts{
			Name: "restq_query_cache_evictions_total",
			Help: "Number of entries removed by cleanup sweeps.",
		}),
		entries: factory.NewGauge(prometheus.GaugeOpts{
			Name: "restq_query_cache_entries",
			Help: "Current number of physically stored entries.",
		}),
	}
}
