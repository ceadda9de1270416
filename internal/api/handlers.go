// Fieldsync - Offline-First Field Health Data Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldsync

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/fieldsync/internal/config"
	"github.com/tomtom215/fieldsync/internal/connectivity"
	"github.com/tomtom215/fieldsync/internal/logging"
	"github.com/tomtom215/fieldsync/internal/store"
	syncpkg "github.com/tomtom215/fieldsync/internal/sync"
	ws "github.com/tomtom215/fieldsync/internal/websocket"
)

// SyncService is the part of sync.Manager the API drives.
type SyncService interface {
	TriggerSync(ctx context.Context) syncpkg.CycleReport
	Status(ctx context.Context) (syncpkg.Status, error)
	IsRunning() bool
}

// Handler holds the dependencies of every route.
type Handler struct {
	records   *store.Records
	sync      SyncService
	monitor   connectivity.Monitor
	config    *config.Config
	wsHub     *ws.Hub
	startTime time.Time
}

// NewHandler creates a Handler. monitor may be a connectivity.Setter, in
// which case PUT /api/v1/connectivity is accepted. wsHub may be nil.
func NewHandler(records *store.Records, syncSvc SyncService, monitor connectivity.Monitor, cfg *config.Config, wsHub *ws.Hub) *Handler {
	return &Handler{
		records:   records,
		sync:      syncSvc,
		monitor:   monitor,
		config:    cfg,
		wsHub:     wsHub,
		startTime: time.Now(),
	}
}

// getUpgrader creates a websocket upgrader with origin checking and a
// handshake timeout.
func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin accepts origins listed in server.cors_origins. A
// missing Origin header is rejected.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		logging.Warn().Msg("WebSocket connection rejected: missing Origin header")
		return false
	}

	if h.config == nil {
		return true
	}

	for _, allowedOrigin := range h.config.Server.CORSOrigins {
		if allowedOrigin == "*" || allowedOrigin == origin {
			return true
		}
	}

	logging.Warn().Str("origin", sanitizeLogValue(origin)).Msg("WebSocket connection rejected from unauthorized origin")
	return false
}
