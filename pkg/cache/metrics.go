package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by layer (memory, redis)
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketo_describe_cache_hits_total",
			Help: "Total number of describe cache hits",
		},
		[]string{"layer"},
	)

	// CacheMisses tracks cache misses
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marketo_describe_cache_misses_total",
			Help: "Total number of describe cache misses",
		},
	)

	// DescribeFetches tracks describe calls issued on a miss
	DescribeFetches = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marketo_describe_fetches_total",
			Help: "Total number of describe calls issued by the cache",
		},
	)

	// CacheErrors tracks store operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketo_describe_cache_errors_total",
			Help: "Total number of describe cache store errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
