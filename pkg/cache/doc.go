// Package cache provides a Redis-backed response cache for the repository API.
//
// The cache is shared between processes (the CLI and the gateway) so that a
// listing fetched once is not paged again by every invocation. It supports:
//
// - Expires-driven TTLs, with DefaultTTL when the API sends none
// - ETag and Last-Modified revalidation (If-None-Match / If-Modified-Since)
// - Per-principal keys so authenticated responses never leak between users
// - Prometheus metrics for observability
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	manager := cache.NewManager(redisClient)
//
//	key := cache.CacheKey{
//		Endpoint:    "/memoires/universites/ecole-des-travaux/memoires/",
//		QueryParams: url.Values{"page": []string{"2"}},
//		Principal:   cache.Principal(token),
//	}
//
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch from the API
//	}
//
// # Conditional Requests
//
//	if cache.ShouldMakeConditionalRequest(entry) {
//		cache.AddConditionalHeaders(req, entry)
//	}
//
// # Metrics
//
//   - memocloud_cache_hits_total{layer="redis"}
//   - memocloud_cache_misses_total
//   - memocloud_cache_stored_bytes_total{layer="redis"}
//   - memocloud_cache_not_modified_total
//   - memocloud_cache_errors_total{operation}
package cache
