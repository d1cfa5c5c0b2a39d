// Package metrics exposes the Prometheus metrics of the Marketo client.
// Metrics are defined in the packages that record them (client, ratelimit,
// pagination, cache) and registered via promauto on the default registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registerer all metrics are registered with.
var Registry = prometheus.DefaultRegisterer

// Handler serves the default gatherer in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Transport (pkg/client):
//   - marketo_requests_total{method, path, status} (Counter)
//   - marketo_request_duration_seconds{path} (Histogram)
//   - marketo_errors_total{class} (Counter): client, server, rate_limit, network, validation
//   - marketo_transport_limiter_wait_seconds (Histogram): requests-per-second limiter wait
//   - marketo_retries_total{error_class} (Counter)
//   - marketo_retry_backoff_seconds{error_class} (Histogram)
//   - marketo_retry_exhausted_total{error_class} (Counter)
//
// Call throttle (pkg/ratelimit):
//   - marketo_throttle_delays_total (Counter)
//   - marketo_throttle_delay_seconds_total (Counter)
//
// Aggregated reads (pkg/pagination):
//   - marketo_batches_total (Counter): ID batches of at most 30
//   - marketo_pages_total{mode} (Counter): "token" or "offset"
//   - marketo_page_ceiling_hits_total (Counter): batches cut at 10 follow-up pages
//   - marketo_partial_failures_total{mode} (Counter): results with success=false
//
// Describe cache (pkg/cache):
//   - marketo_describe_cache_hits_total{layer} (Counter): memory or redis
//   - marketo_describe_cache_misses_total (Counter)
//   - marketo_describe_fetches_total (Counter)
//   - marketo_describe_cache_errors_total{operation} (Counter)
//
// Example Prometheus Queries:
//
//   # Truncated batches per hour
//   increase(marketo_page_ceiling_hits_total[1h])
//
//   # Rate-limit rejections
//   rate(marketo_errors_total{class="rate_limit"}[5m])
//
//   # P95 request latency
//   histogram_quantile(0.95, rate(marketo_request_duration_seconds_bucket[5m]))
