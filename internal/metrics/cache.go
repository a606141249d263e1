package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/edvin/backupdash/internal/querycache"
)

// StatsSource is satisfied by *querycache.Cache.
type StatsSource interface {
	Stats() querycache.Stats
}

// RegisterCacheMetrics exposes query cache statistics on reg. A nil reg
// registers with the default Prometheus registry.
func RegisterCacheMetrics(reg prometheus.Registerer, cache StatsSource) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	counter := func(name, help string, value func(querycache.Stats) uint64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: name,
			Help: help,
		}, func() float64 {
			return float64(value(cache.Stats()))
		})
	}
	reg.MustRegister(
		counter("querycache_hits_total", "Reads answered from a fresh cached value",
			func(s querycache.Stats) uint64 { return s.Hits }),
		counter("querycache_misses_total", "Reads that had to wait for a fetch",
			func(s querycache.Stats) uint64 { return s.Misses }),
		counter("querycache_fetches_total", "Loader invocations started",
			func(s querycache.Stats) uint64 { return s.Fetches }),
		counter("querycache_deduplicated_total", "Reads that joined an in-flight fetch",
			func(s querycache.Stats) uint64 { return s.Deduplicated }),
		counter("querycache_superseded_total", "Fetch results discarded after invalidation",
			func(s querycache.Stats) uint64 { return s.Superseded }),
		counter("querycache_errors_total", "Fetches that failed after retries",
			func(s querycache.Stats) uint64 { return s.Errors }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "querycache_entries",
			Help: "Number of keys currently held in the cache",
		}, func() float64 {
			return float64(cache.Stats().Entries)
		}),
	)
}
