// Fieldsync - Offline-First Field Health Data Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldsync

// Package metrics holds the Prometheus collectors for Fieldsync. Collectors
// are registered on the default registry at init and exposed at /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cycle outcomes used as label values. They match sync.Outcome.
const (
	OutcomeSkipped   = "skipped"
	OutcomeUpToDate  = "up_to_date"
	OutcomeSuccess   = "success"
	OutcomePartial   = "partial"
	OutcomeFailed    = "failed"
	TierResultOK     = "success"
	TierResultFailed = "failure"
)

var (
	// Sync cycle metrics
	SyncCyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldsync_sync_cycles_total",
			Help: "Sync cycle attempts by outcome",
		},
		[]string{"outcome"},
	)

	SyncCycleSkips = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldsync_sync_cycle_skips_total",
			Help: "Sync cycle attempts refused by a guard",
		},
		[]string{"reason"}, // "in_progress", "offline", "debounced"
	)

	SyncCycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fieldsync_sync_cycle_duration_seconds",
			Help:    "Duration of sync cycles that ran",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	SyncInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fieldsync_sync_in_progress",
			Help: "1 while a sync cycle is running",
		},
	)

	SyncLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fieldsync_sync_last_success_timestamp",
			Help: "Unix time of the last cycle with at least one successful tier",
		},
	)

	// Tier metrics
	SyncTierBatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldsync_sync_tier_batches_total",
			Help: "Tier batches sent to the remote by result",
		},
		[]string{"tier", "result"},
	)

	SyncTierRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldsync_sync_tier_records_total",
			Help: "Records marked synced per tier",
		},
		[]string{"tier", "kind"},
	)

	UrgentConsecutiveFailures = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fieldsync_sync_urgent_consecutive_failures",
			Help: "Consecutive failed urgent tier batches; reset by a successful one",
		},
	)

	// Store metrics
	UnsyncedRecords = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fieldsync_unsynced_records",
			Help: "Records not yet accepted by the remote",
		},
		[]string{"kind"},
	)

	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fieldsync_store_operation_duration_seconds",
			Help:    "Local store get/set latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldsync_store_errors_total",
			Help: "Local store failures",
		},
		[]string{"operation"},
	)

	// Remote metrics
	RemoteRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fieldsync_remote_request_duration_seconds",
			Help:    "Round trip of sync batches to the remote",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"remote"},
	)

	RemoteRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldsync_remote_requests_total",
			Help: "Sync batches by remote and result",
		},
		[]string{"remote", "result"}, // result: "success", "rejected", "error"
	)

	// Connectivity
	Online = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fieldsync_online",
			Help: "1 when the remote is considered reachable",
		},
	)

	ConnectivityTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldsync_connectivity_transitions_total",
			Help: "Online/offline transitions",
		},
		[]string{"to"},
	)

	// API metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldsync_api_requests_total",
			Help: "HTTP requests by method, route and status",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fieldsync_api_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fieldsync_websocket_connections",
			Help: "Current number of status WebSocket clients",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fieldsync_websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldsync_websocket_errors_total",
			Help: "Total number of WebSocket errors",
		},
		[]string{"error_type"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fieldsync_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldsync_circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fieldsync_circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldsync_circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)
)

// RecordCycle records a finished cycle. duration is ignored for skipped cycles.
func RecordCycle(outcome string, duration time.Duration) {
	SyncCyclesTotal.WithLabelValues(outcome).Inc()
	if outcome == OutcomeSkipped {
		return
	}
	SyncCycleDuration.Observe(duration.Seconds())
	switch outcome {
	case OutcomeSuccess, OutcomePartial, OutcomeUpToDate:
		SyncLastSuccess.Set(float64(time.Now().Unix()))
	}
}

// RecordSkip records a cycle refused by a guard.
func RecordSkip(reason string) {
	SyncCycleSkips.WithLabelValues(reason).Inc()
	SyncCyclesTotal.WithLabelValues(OutcomeSkipped).Inc()
}

// RecordTier records one tier batch.
func RecordTier(tier string, ok bool) {
	result := TierResultFailed
	if ok {
		result = TierResultOK
	}
	SyncTierBatches.WithLabelValues(tier, result).Inc()
}

// RecordTierRecords counts records marked synced by a tier.
func RecordTierRecords(tier, kind string, n int) {
	if n > 0 {
		SyncTierRecords.WithLabelValues(tier, kind).Add(float64(n))
	}
}

// RecordRemoteCall records one batch round trip. result is "success",
// "rejected" (the remote answered success=false) or "error".
func RecordRemoteCall(remote, result string, duration time.Duration) {
	RemoteRequests.WithLabelValues(remote, result).Inc()
	RemoteRequestDuration.WithLabelValues(remote).Observe(duration.Seconds())
}

// RecordStoreOperation records a store get or set.
func RecordStoreOperation(operation string, duration time.Duration, err error) {
	StoreOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		StoreErrors.WithLabelValues(operation).Inc()
	}
}

// SetOnline updates the connectivity gauge and counts the transition.
func SetOnline(online bool) {
	if online {
		Online.Set(1)
		ConnectivityTransitions.WithLabelValues("online").Inc()
		return
	}
	Online.Set(0)
	ConnectivityTransitions.WithLabelValues("offline").Inc()
}

// SetSyncing flips the in-progress gauge.
func SetSyncing(syncing bool) {
	if syncing {
		SyncInProgress.Set(1)
		return
	}
	SyncInProgress.Set(0)
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
