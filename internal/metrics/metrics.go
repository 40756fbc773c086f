// Corridor - Traffic Signal Analytics and Corridor Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corridor

// Package metrics holds Corridor's Prometheus instruments and the helpers
// that record them.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Selection
	SelectionToggles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "selection_toggles_total",
			Help: "Selection operations applied, by kind",
		},
		[]string{"kind"}, // signal, segment, clear
	)

	SelectionSegments = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "selection_segments",
			Help:    "Selected segment count after each selection change",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100, 250, 1000},
		},
	)

	// Membership index
	IndexRebuilds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "membership_index_rebuilds_total",
			Help: "Membership index builds, by trigger",
		},
		[]string{"trigger"}, // create, geometry_filter
	)

	IndexBuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "membership_index_build_duration_seconds",
			Help:    "Time to build a membership index from records",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
	)

	IndexPairs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "membership_index_pairs",
			Help: "Signal/segment pairs in the most recently built index",
		},
	)

	// Dimension cache
	DimensionCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dimension_cache_hits_total",
			Help: "Membership snapshot cache hits",
		},
	)

	DimensionCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dimension_cache_misses_total",
			Help: "Membership snapshot cache misses",
		},
	)

	DimensionCacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dimension_cache_evictions_total",
			Help: "Membership snapshots evicted for capacity or expiry",
		},
	)

	DimensionCacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dimension_cache_entries",
			Help: "Membership snapshots currently cached",
		},
	)

	// Sessions
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "selection_sessions_active",
			Help: "Selection sessions held in memory",
		},
	)

	SessionsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "selection_sessions_created_total",
			Help: "Selection sessions created",
		},
	)

	SessionsExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "selection_sessions_expired_total",
			Help: "Selection sessions removed by the idle sweeper",
		},
	)

	// Chart loads
	ChartLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chart_loads_total",
			Help: "Chart data loads, by outcome",
		},
		[]string{"outcome"}, // ok, stale, error, unavailable
	)

	ChartLoadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chart_load_duration_seconds",
			Help:    "Chart data load latency",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"scoped"},
	)

	// Database
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

	// API
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
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of in-flight API requests",
		},
	)

	// WebSocket
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)

	WSMessagesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_received_total",
			Help: "Total number of WebSocket messages received",
		},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_errors_total",
			Help: "Total number of WebSocket errors",
		},
		[]string{"error_type"}, // rate_limited, bad_command, dropped, read, write
	)

	// Events
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "selection_events_published_total",
			Help: "Selection events published to the bus, by kind",
		},
		[]string{"kind"},
	)

	EventsForwarded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "selection_events_forwarded_total",
			Help: "Selection events delivered from the bus to the WebSocket hub",
		},
	)

	// Circuit breaker
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Requests through the circuit breaker",
		},
		[]string{"name", "result"}, // success, failure, rejected
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)
)

// RecordToggle counts one selection operation and the resulting segment count.
func RecordToggle(kind string, selectedSegments int) {
	SelectionToggles.WithLabelValues(kind).Inc()
	SelectionSegments.Observe(float64(selectedSegments))
}

// RecordIndexBuild records a membership index build.
func RecordIndexBuild(trigger string, duration time.Duration, pairs int) {
	IndexRebuilds.WithLabelValues(trigger).Inc()
	IndexBuildDuration.Observe(duration.Seconds())
	IndexPairs.Set(float64(pairs))
}

// RecordChartLoad records the outcome and latency of a chart load.
func RecordChartLoad(outcome string, scoped bool, duration time.Duration) {
	ChartLoads.WithLabelValues(outcome).Inc()
	ChartLoadDuration.WithLabelValues(strconv.FormatBool(scoped)).Observe(duration.Seconds())
}

// RecordDBQuery records a database query metric.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the in-flight request gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
