// Fieldsync - Offline-First Field Health Data Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldsync

package api

import (
	"net/http"

	"github.com/tomtom215/fieldsync/internal/logging"
	"github.com/tomtom215/fieldsync/internal/models"
	ws "github.com/tomtom215/fieldsync/internal/websocket"
)

// WebSocket upgrades the connection and subscribes it to status broadcasts.
// The current status is sent first so a new client does not wait for the
// next change.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.wsHub == nil {
		respondError(w, http.StatusServiceUnavailable, models.ErrCodeUnavailable, "WebSocket feed is not available", nil)
		return
	}

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already answered the request.
		logging.Ctx(r.Context()).Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := ws.NewClient(h.wsHub, conn)
	if st, err := h.sync.Status(r.Context()); err == nil {
		client.Enqueue(ws.Message{Type: ws.MessageTypeSyncStatus, Data: st})
	} else {
		logging.Ctx(r.Context()).Warn().Err(err).Str("code", models.ErrCodeStore).Msg("Failed to read status for websocket greeting")
	}

	h.wsHub.Register <- client
	client.Start()
}
