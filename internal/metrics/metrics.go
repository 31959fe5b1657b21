// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

// Package metrics declares the Prometheus collectors used across groovesync.
// Collectors are registered on the default registry at package init through
// promauto and exposed by the server at /metrics.
package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
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

	// Change feed
	FeedPagesServed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "change_feed_pages_served_total",
			Help: "Change feed pages served, by entity type",
		},
		[]string{"entity_type"},
	)

	FeedRowsServed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "change_feed_rows_served_total",
			Help: "Change feed rows served, by entity type and kind (new, modified, removed)",
		},
		[]string{"entity_type", "kind"},
	)

	// HTTP API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Requests currently being served",
		},
	)

	// WebSocket sessions
	WSSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_sessions",
			Help: "Current number of registered WebSocket sessions",
		},
	)

	WSMessagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_messages_received_total",
			Help: "Inbound WebSocket messages by message type",
		},
		[]string{"message_type"},
	)

	WSMessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Outbound WebSocket messages queued by message type",
		},
		[]string{"message_type"},
	)

	WSSendDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_send_dropped_total",
			Help: "Outbound messages dropped because the recipient was slow or closed",
		},
		[]string{"reason"},
	)

	NowListeningStates = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "now_listening_states",
			Help: "Sessions with a stored now-listening state",
		},
	)

	RemotePlayRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remote_play_requests_total",
			Help: "Remote play requests by outcome",
		},
		[]string{"outcome"},
	)

	// Cross-instance relay
	RelayPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_messages_published_total",
			Help: "Messages published to the cross-instance relay",
		},
		[]string{"subject"},
	)

	RelayDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_messages_delivered_total",
			Help: "Relay messages received from other instances and delivered locally",
		},
		[]string{"subject"},
	)

	// Client sync
	SyncRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_runs_total",
			Help: "Sync runs by outcome (completed, partial, skipped_busy, skipped_offline, skipped_recent, aborted)",
		},
		[]string{"outcome"},
	)

	SyncRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sync_run_duration_seconds",
			Help:    "Duration of sync runs that reached the fetch stage",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)

	SyncEntityResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_entity_results_total",
			Help: "Per entity type results (synced, unchanged, failed)",
		},
		[]string{"entity_type", "result"},
	)

	SyncPagesApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_pages_applied_total",
			Help: "Change feed pages applied to the local store",
		},
		[]string{"entity_type"},
	)

	ListenQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "listen_queue_depth",
			Help: "Mark-listened requests waiting in the durable retry queue",
		},
	)

	ListenReports = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listen_reports_total",
			Help: "Mark-listened outcomes (sent, queued, dropped, replayed)",
		},
		[]string{"outcome"},
	)

	// Circuit breakers
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
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"},
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)
)

// RecordDBQuery records one query's latency and, when err is set, an error.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordFeedPage counts one served change-feed page.
func RecordFeedPage(entityType string, created, modified, removed int) {
	FeedPagesServed.WithLabelValues(entityType).Inc()
	FeedRowsServed.WithLabelValues(entityType, "new").Add(float64(created))
	FeedRowsServed.WithLabelValues(entityType, "modified").Add(float64(modified))
	FeedRowsServed.WithLabelValues(entityType, "removed").Add(float64(removed))
}

// RecordAPIRequest records an API request.
func RecordAPIRequest(method, route, status string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, status).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// TrackActiveRequest moves the in-flight gauge.
func TrackActiveRequest(start bool) {
	if start {
		APIActiveRequests.Inc()
		return
	}
	APIActiveRequests.Dec()
}

// RecordRemotePlay counts a remote play outcome. Outcome labels are the
// lower-cased error codes plus "delivered".
func RecordRemotePlay(outcome string) {
	RemotePlayRequests.WithLabelValues(strings.ToLower(outcome)).Inc()
}

// RecordSyncRun counts a sync run and, for runs that did work, its duration.
func RecordSyncRun(outcome string, duration time.Duration) {
	SyncRuns.WithLabelValues(outcome).Inc()
	if duration > 0 {
		SyncRunDuration.Observe(duration.Seconds())
	}
}
