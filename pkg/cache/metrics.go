package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by layer (redis)
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memocloud_cache_hits_total",
			Help: "Total number of API response cache hits",
		},
		[]string{"layer"},
	)

	// CacheMisses tracks cache misses
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "memocloud_cache_misses_total",
			Help: "Total number of API response cache misses",
		},
	)

	// CacheStoredBytes tracks bytes written to the cache by layer
	CacheStoredBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memocloud_cache_stored_bytes_total",
			Help: "Total bytes written to the API response cache",
		},
		[]string{"layer"},
	)

	// ConditionalRequests tracks 304 Not Modified responses
	ConditionalRequests = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "memocloud_cache_not_modified_total",
			Help: "Total number of 304 Not Modified responses served from cache",
		},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memocloud_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
