// Fieldsync - Offline-First Field Health Data Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldsync

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/fieldsync/internal/models"
)

// HealthStatus is returned by GET /api/v1/health.
type HealthStatus struct {
	Status         string  `json:"status"`
	StoreReadable  bool    `json:"store_readable"`
	SyncRunning    bool    `json:"sync_running"`
	Online         bool    `json:"online"`
	UnsyncedCount  int     `json:"unsynced_count"`
	LastSync       *string `json:"last_sync"`
	WebSocketPeers int     `json:"websocket_clients"`
	Uptime         float64 `json:"uptime"`
}

// Health reports the state of the store, the sync engine and connectivity.
// A device that is offline is still healthy; it is degraded only when the
// store cannot be read or the engine is not running.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	health := HealthStatus{
		Status: "healthy",
		Uptime: time.Since(h.startTime).Seconds(),
	}

	if h.sync != nil {
		health.SyncRunning = h.sync.IsRunning()
		st, err := h.sync.Status(r.Context())
		health.StoreReadable = err == nil
		health.Online = st.Online
		health.UnsyncedCount = st.UnsyncedCount
		health.LastSync = st.LastSync
	}
	if h.wsHub != nil {
		health.WebSocketPeers = h.wsHub.GetClientCount()
	}

	if !health.StoreReadable || !health.SyncRunning {
		health.Status = "degraded"
	}

	respondSuccess(w, http.StatusOK, health, start)
}

// HealthLive answers 200 while the process is alive.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	}, time.Now())
}

// HealthReady answers 200 once the store is readable and the sync engine
// runs, 503 otherwise.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	storeReadable := false
	if h.records != nil {
		_, err := h.records.UnsyncedCount(r.Context())
		storeReadable = err == nil
	}
	syncRunning := h.sync != nil && h.sync.IsRunning()
	ready := storeReadable && syncRunning

	statusCode := http.StatusOK
	status := "ready"
	if !ready {
		statusCode = http.StatusServiceUnavailable
		status = "not_ready"
	}

	respondJSON(w, statusCode, &models.APIResponse{
		Status: status,
		Data: map[string]interface{}{
			"store_readable": storeReadable,
			"sync_running":   syncRunning,
			"ready_to_serve": ready,
			"uptime":         time.Since(h.startTime).Seconds(),
		},
		Metadata: models.Metadata{
			Timestamp: time.Now(),
		},
	})
}
