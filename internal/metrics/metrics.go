// Bloodhound - CTF First Blood Tracker and Live Scoreboard
// Copyright 2026 Samurai CTF Team
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/samuraictf/bloodhound

// Package metrics exposes Prometheus instrumentation for upstream
// requests, polling cycles, entity caches, the WebSocket hub, and the
// HTTP API. All collectors are registered via promauto at package load.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Upstream client metrics
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ctfd_upstream_requests_total",
			Help: "Total number of requests sent to the upstream CTFd API",
		},
		[]string{"endpoint", "status"},
	)

	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ctfd_upstream_request_duration_seconds",
			Help:    "Duration of upstream CTFd API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	UpstreamAuthRefreshes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ctfd_auth_refreshes_total",
			Help: "Total number of session cookie re-acquisitions",
		},
	)

	CircuitBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ctfd_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	// Entity cache metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "entity_cache_hits_total",
			Help: "Total number of entity cache hits",
		},
		[]string{"cache"}, // "teams", "challenges"
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "entity_cache_misses_total",
			Help: "Total number of entity cache misses (upstream fetches)",
		},
		[]string{"cache"},
	)

	CacheResets = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "entity_cache_resets_total",
			Help: "Total number of explicit cache resets",
		},
	)

	// Polling / broadcaster metrics
	PollCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poll_cycles_total",
			Help: "Total number of polling cycles by outcome",
		},
		[]string{"outcome"}, // "success", "error", "skipped"
	)

	PollDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "poll_cycle_duration_seconds",
			Help:    "Duration of a full polling cycle in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	NewSolves = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "new_solves_total",
			Help: "Total number of newly observed solves",
		},
	)

	NewFirstBloods = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "new_first_bloods_total",
			Help: "Total number of newly observed first bloods",
		},
	)

	TrackedSolves = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tracked_solves",
			Help: "Number of solves in the current snapshot",
		},
	)

	// WebSocket metrics
	WSConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connected_clients",
			Help: "Current number of connected WebSocket clients",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages broadcast",
		},
	)

	WSDroppedClients = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_dropped_clients_total",
			Help: "Total number of clients dropped for slow consumption",
		},
	)

	// HTTP API metrics
	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)
)

// RecordUpstreamRequest records one upstream request outcome.
func RecordUpstreamRequest(endpoint string, statusCode int, duration time.Duration) {
	UpstreamRequests.WithLabelValues(endpoint, strconv.Itoa(statusCode)).Inc()
	UpstreamRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordAPIRequest records one served API request.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequests.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
