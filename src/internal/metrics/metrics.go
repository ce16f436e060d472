// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movieboxd_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "movieboxd_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route"},
	)

	HTTPRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movieboxd_http_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"route"},
	)

	CatalogRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movieboxd_catalog_requests_total",
			Help: "Total number of catalog API calls by outcome",
		},
		[]string{"operation", "outcome"},
	)

	CatalogCircuitState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "movieboxd_catalog_circuit_state",
			Help: "Catalog circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	CatalogCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movieboxd_catalog_cache_total",
			Help: "Catalog cache lookups by result (hit, miss, error)",
		},
		[]string{"result"},
	)

	FilmsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movieboxd_films_created_total",
			Help: "Films inserted into the local store by source",
		},
		[]string{"source"},
	)
)

// RecordHTTPRequest records one served request. route is the matched route
// pattern, not the raw path.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func RecordCatalogRequest(operation, outcome string) {
	CatalogRequests.WithLabelValues(operation, outcome).Inc()
}
