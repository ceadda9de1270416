// Fieldsync - Offline-First Field Health Data Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldsync

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/fieldsync/internal/connectivity"
	"github.com/tomtom215/fieldsync/internal/logging"
	"github.com/tomtom215/fieldsync/internal/models"
	syncpkg "github.com/tomtom215/fieldsync/internal/sync"
)

// ConnectivityRequest is the body of PUT /api/v1/connectivity.
type ConnectivityRequest struct {
	Online *bool `json:"online" validate:"required"`
}

// SyncStatus returns the current sync status.
func (h *Handler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	st, err := h.sync.Status(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, models.ErrCodeStore, "Failed to read sync status", err)
		return
	}
	respondSuccess(w, http.StatusOK, st, start)
}

// TriggerSync runs a cycle now and returns its report. The request waits
// for the whole cycle.
func (h *Handler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	report := h.sync.TriggerSync(r.Context())

	logging.Ctx(r.Context()).Info().
		Str("outcome", string(report.Outcome)).
		Str("reason", report.Reason).
		Str("cycle_id", report.CorrelationID).
		Msg("Manual sync finished")

	switch report.Outcome {
	case syncpkg.OutcomeSkipped:
		respondAPIError(w, http.StatusConflict, &models.APIError{
			Code:    models.ErrCodeSyncSkipped,
			Message: skipMessage(report.Reason),
			Details: map[string]interface{}{"reason": report.Reason},
		})
	case syncpkg.OutcomeFailed:
		respondAPIError(w, http.StatusBadGateway, &models.APIError{
			Code:    models.ErrCodeSyncFailed,
			Message: "Sync failed, records will be retried on the next cycle",
			Details: map[string]interface{}{
				"cycle_id": report.CorrelationID,
				"tiers":    report.Tiers,
			},
		})
	default:
		respondSuccess(w, http.StatusOK, report, start)
	}
}

func skipMessage(reason string) string {
	switch reason {
	case syncpkg.SkipInProgress:
		return "A sync is already in progress"
	case syncpkg.SkipOffline:
		return "Device is offline"
	case syncpkg.SkipDebounced:
		return "Sync was attempted moments ago"
	case syncpkg.SkipCanceled:
		return "Request was canceled"
	default:
		return "Sync skipped"
	}
}

// SetConnectivity sets the manual online flag. It is only available when
// connectivity is not probed.
func (h *Handler) SetConnectivity(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	setter, ok := h.monitor.(connectivity.Setter)
	if !ok {
		respondError(w, http.StatusConflict, models.ErrCodeConflict, "Connectivity is probed and cannot be set manually", nil)
		return
	}

	var req ConnectivityRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, models.ErrCodeBadRequest, "Invalid request body", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr)
		return
	}

	setter.SetOnline(*req.Online)
	logging.Ctx(r.Context()).Info().Bool("online", *req.Online).Msg("Connectivity set manually")

	respondSuccess(w, http.StatusOK, map[string]bool{"online": h.monitor.Online()}, start)
}
