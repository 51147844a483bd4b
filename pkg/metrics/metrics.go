// Package metrics exposes the Prometheus registry used by memocloud.
// All metrics are defined in their respective packages (client, cache,
// ratelimit, search, server) and registered via promauto, so importing
// this package never creates a cycle.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by memocloud.
var Registry = prometheus.DefaultRegisterer

// Gatherer collects every registered metric.
var Gatherer = prometheus.DefaultGatherer

// Handler serves the registered metrics in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Corpus Metrics (pkg/search):
//   - memocloud_corpus_records (Gauge): Records held in the session corpus
//   - memocloud_corpus_build_seconds (Histogram): Corpus build duration
//   - memocloud_corpus_partial_builds_total (Counter): Builds that stopped on a failed page
//
// Rate Limit Metrics (pkg/ratelimit):
//   - memocloud_rate_limit_cooldowns_total (Counter): 429 responses that opened a cooldown
//   - memocloud_rate_limit_blocks_total (Counter): Requests refused during a long cooldown
//   - memocloud_rate_limit_waits_total (Counter): Requests delayed through a short cooldown
//
// Cache Metrics (pkg/cache):
//   - memocloud_cache_hits_total{layer="redis"} (Counter): Cache hits by layer
//   - memocloud_cache_misses_total (Counter): Cache misses
//   - memocloud_cache_stored_bytes_total{layer="redis"} (Counter): Bytes written to the cache
//   - memocloud_cache_not_modified_total (Counter): 304 responses served from the cache
//   - memocloud_cache_errors_total{operation} (Counter): Cache operation errors
//
// Request Metrics (pkg/client):
//   - memocloud_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//   - memocloud_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - memocloud_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Retry Metrics (pkg/client):
//   - memocloud_retries_total{error_class} (Counter): Retry attempts by error class
//   - memocloud_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - memocloud_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Gateway Metrics (pkg/server):
//   - memocloud_gateway_requests_total{route, status} (Counter): Gateway requests served
//   - memocloud_gateway_request_duration_seconds{route} (Histogram): Gateway latency
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(memocloud_cache_hits_total[5m])) /
//   (sum(rate(memocloud_cache_hits_total[5m])) + sum(rate(memocloud_cache_misses_total[5m])))
//
//   # Partial builds in the last hour
//   increase(memocloud_corpus_partial_builds_total[1h]) > 0
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(memocloud_request_duration_seconds_bucket[5m]))
