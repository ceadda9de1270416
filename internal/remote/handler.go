// Fieldsync - Offline-First Field Health Data Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldsync

package remote

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/fieldsync/internal/logging"
	"github.com/tomtom215/fieldsync/internal/models"
)

// NewHandler serves merge as the remote sync endpoint:
//
//	POST /   body: SyncPayload   reply: SyncResult
//
// A rejected batch is answered 200 with success=false. Undecodable bodies get
// 400 and merge errors 502.
func NewHandler(merge MergeStore) http.Handler {
	r := chi.NewRouter()
	r.Post("/", func(w http.ResponseWriter, req *http.Request) {
		req.Body = http.MaxBytesReader(w, req.Body, maxPayloadSize)

		var payload models.SyncPayload
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeResult(w, http.StatusBadRequest, &models.SyncResult{Success: false})
			return
		}

		res, err := merge.SyncBatch(req.Context(), &payload)
		if err != nil {
			logging.Ctx(req.Context()).Warn().Err(err).Int("records", payload.Len()).Msg("Remote merge failed")
			writeResult(w, http.StatusBadGateway, &models.SyncResult{Success: false})
			return
		}
		if res == nil {
			res = &models.SyncResult{Success: false}
		}
		writeResult(w, http.StatusOK, res)
	})
	return r
}

func writeResult(w http.ResponseWriter, status int, res *models.SyncResult) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(res); err != nil {
		log := logging.WithComponent(component)
		log.Error().Err(err).Msg("Failed to encode sync result")
	}
}
