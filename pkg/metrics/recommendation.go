package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RecommendDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "recs_recommend_latency_seconds",
		Help:    "Latency of the hybrid recommendation path",
		Buckets: prometheus.DefBuckets,
	})

	// Recommendations served, labeled by the segment that handled them.
	RecommendTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "recs_recommend_total",
		Help: "Total recommendation requests served, by visitor segment",
	}, []string{"segment"})

	CacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "recs_cache_hits_total",
		Help: "Result cache hits across both tiers",
	})

	CacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "recs_cache_misses_total",
		Help: "Result cache misses",
	})

	CacheEvictions = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "recs_cache_evictions_total",
		Help: "Entries evicted from the in-process cache tier",
	})

	RollupDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "recs_rollup_duration_seconds",
		Help:    "Duration of analytics rollup runs, by rollup kind",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	RollupErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "recs_rollup_errors_total",
		Help: "Rollup runs that left the previous rollup in place",
	}, []string{"kind"})
)

func Init() {
	prometheus.MustRegister(
		RecommendDuration,
		RecommendTotal,
		CacheHits,
		CacheMisses,
		CacheEvictions,
		RollupDuration,
		RollupErrors,
	)
}
