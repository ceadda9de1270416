// Fieldsync - Offline-First Field Health Data Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldsync

package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tomtom215/fieldsync/internal/logging"
	"github.com/tomtom215/fieldsync/internal/models"
	"github.com/tomtom215/fieldsync/internal/store"
)

// entryRecord is a record kind accepted by the entry routes.
type entryRecord[T any] interface {
	models.Record
	WithID(id string) T
}

// recordRoutes binds one record kind to the store.
type recordRoutes[T entryRecord[T]] struct {
	kind models.Kind
	list func(ctx context.Context) ([]T, error)
	get  func(ctx context.Context, id string) (T, error)
	put  func(ctx context.Context, item T) (T, error)
}

// RecordList is the payload of a list response.
type RecordList[T any] struct {
	Kind     models.Kind `json:"kind"`
	Count    int         `json:"count"`
	Unsynced int         `json:"unsynced"`
	Records  []T         `json:"records"`
}

func (h *Handler) symptomLogRoutes() *recordRoutes[models.SymptomLog] {
	return &recordRoutes[models.SymptomLog]{
		kind: models.KindSymptomLog,
		list: h.records.SymptomLogs,
		get:  h.records.SymptomLog,
		put:  h.records.PutSymptomLog,
	}
}

func (h *Handler) patientRoutes() *recordRoutes[models.Patient] {
	return &recordRoutes[models.Patient]{
		kind: models.KindPatient,
		list: h.records.Patients,
		get:  h.records.Patient,
		put:  h.records.PutPatient,
	}
}

func (h *Handler) enrollmentRoutes() *recordRoutes[models.PatientEnrollment] {
	return &recordRoutes[models.PatientEnrollment]{
		kind: models.KindPatientEnrollment,
		list: h.records.Enrollments,
		get:  h.records.Enrollment,
		put:  h.records.PutEnrollment,
	}
}

// mount registers list, create, get and update under r.
func (rr *recordRoutes[T]) mount(r chi.Router) {
	r.Get("/", rr.List)
	r.Post("/", rr.Create)
	r.Get("/{id}", rr.Get)
	r.Put("/{id}", rr.Update)
}

// List returns every record of the kind, or only the unsynced ones with
// ?unsynced=true.
func (rr *recordRoutes[T]) List(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	items, err := rr.list(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, models.ErrCodeStore, "Failed to read records", err)
		return
	}

	unsynced := models.UnsyncedCount(items)
	if getBoolParam(r, "unsynced", false) {
		items = models.Unsynced(items)
	}
	if items == nil {
		items = []T{}
	}

	respondSuccess(w, http.StatusOK, RecordList[T]{
		Kind:     rr.kind,
		Count:    len(items),
		Unsynced: unsynced,
		Records:  items,
	}, start)
}

// Get returns one record.
func (rr *recordRoutes[T]) Get(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := chi.URLParam(r, "id")

	item, err := rr.get(r.Context(), id)
	if errors.Is(err, store.ErrRecordNotFound) {
		respondError(w, http.StatusNotFound, models.ErrCodeNotFound, "Record not found", nil)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, models.ErrCodeStore, "Failed to read record", err)
		return
	}
	respondSuccess(w, http.StatusOK, item, start)
}

// Create stores a new record. A missing id is assigned here; an id that is
// already stored is a conflict and must go through Update.
func (rr *recordRoutes[T]) Create(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var item T
	if err := decodeJSONBody(w, r, &item); err != nil {
		respondError(w, http.StatusBadRequest, models.ErrCodeBadRequest, "Invalid request body", err)
		return
	}

	id := item.RecordID()
	if id == "" {
		item = item.WithID(uuid.NewString())
	} else {
		_, err := rr.get(r.Context(), id)
		switch {
		case err == nil:
			respondAPIError(w, http.StatusConflict, &models.APIError{
				Code:    models.ErrCodeConflict,
				Message: "Record already exists, use PUT to replace it",
				Details: map[string]interface{}{
					"id":     id,
					"update": strings.TrimSuffix(r.URL.Path, "/") + "/" + id,
				},
			})
			return
		case !errors.Is(err, store.ErrRecordNotFound):
			respondError(w, http.StatusInternalServerError, models.ErrCodeStore, "Failed to read record", err)
			return
		}
	}

	rr.save(w, r, item, http.StatusCreated, start)
}

// Update replaces an existing record. The id in the path wins over the body.
func (rr *recordRoutes[T]) Update(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := chi.URLParam(r, "id")

	if _, err := rr.get(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			respondError(w, http.StatusNotFound, models.ErrCodeNotFound, "Record not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, models.ErrCodeStore, "Failed to read record", err)
		return
	}

	var item T
	if err := decodeJSONBody(w, r, &item); err != nil {
		respondError(w, http.StatusBadRequest, models.ErrCodeBadRequest, "Invalid request body", err)
		return
	}
	item = item.WithID(id)

	rr.save(w, r, item, http.StatusOK, start)
}

func (rr *recordRoutes[T]) save(w http.ResponseWriter, r *http.Request, item T, status int, start time.Time) {
	if apiErr := validateRequest(&item); apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr)
		return
	}

	stored, err := rr.put(r.Context(), item)
	if err != nil {
		respondError(w, http.StatusInternalServerError, models.ErrCodeStore, "Failed to save record", err)
		return
	}

	logging.Ctx(r.Context()).Debug().
		Str("kind", string(rr.kind)).
		Str("id", stored.RecordID()).
		Msg("Record saved")

	respondSuccess(w, status, stored, start)
}
