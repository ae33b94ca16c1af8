// FitnessOverlays - Strava Activity Overlay Generator
// Copyright 2026 FitnessOverlays Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fitnessoverlays/fitnessoverlays

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for production observability:
// - API endpoint latency and throughput
// - Strava API call outcomes and latency
// - Cache efficiency per resource type
// - Token refresh outcomes
// - Circuit breaker state transitions
// - Database query performance (DuckDB)

var (
	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of in-flight API requests",
		},
	)

	// Strava Upstream Metrics
	StravaRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strava_requests_total",
			Help: "Total number of Strava API requests",
		},
		[]string{"endpoint", "status_code"},
	)

	StravaRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "strava_request_duration_seconds",
			Help:    "Strava API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// Token Provider Metrics
	TokenRefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "token_refreshes_total",
			Help: "Total number of OAuth token refresh attempts",
		},
		[]string{"result"}, // "success", "failure", "forced"
	)

	// Cache Metrics
	CacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache rows served without an upstream fetch",
		},
		[]string{"resource"}, // "profile", "activity_list", "activity_detail"
	)

	CacheMissesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache decisions that required an upstream fetch",
		},
		[]string{"resource", "reason"}, // reason: "missing", "stale", "incomplete"
	)

	CacheStaleServesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_stale_serves_total",
			Help: "Stale cache rows served because the upstream token could not be refreshed",
		},
		[]string{"resource"},
	)

	// Ownership Guard Metrics
	OwnershipRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ownership_rejections_total",
			Help: "Payloads rejected because the embedded owner did not match the session athlete",
		},
		[]string{"resource"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table"},
	)
)

// RecordAPIRequest records metrics for a completed API request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the in-flight request gauge.
func TrackActiveRequest(start bool) {
	if start {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordStravaRequest records metrics for a completed Strava API call.
func RecordStravaRequest(endpoint, statusCode string, duration time.Duration) {
	StravaRequestsTotal.WithLabelValues(endpoint, statusCode).Inc()
	StravaRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// ObserveDBQuery returns a function that records the query duration when called.
//
//	defer metrics.ObserveDBQuery("upsert", "activities")()
func ObserveDBQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DBQueryDuration.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
