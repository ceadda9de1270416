// Fieldsync - Offline-First Field Health Data Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldsync

package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/tomtom215/fieldsync/internal/connectivity"
	"github.com/tomtom215/fieldsync/internal/models"
	syncpkg "github.com/tomtom215/fieldsync/internal/sync"
)

func TestSyncStatus(t *testing.T) {
	f := newAPIFixture(t, fixtureOptions{})
	if _, err := f.records.PutPatient(context.Background(), validPatient("P1")); err != nil {
		t.Fatalf("PutPatient: %v", err)
	}

	rec, env := f.do(t, http.MethodGet, "/api/v1/sync/status", nil)
	expectStatus(t, rec, http.StatusOK)

	var st syncpkg.Status
	decodeData(t, env, &st)
	if st.UnsyncedCount != 1 {
		t.Errorf("unsyncedCount = %d, want 1", st.UnsyncedCount)
	}
	if !st.Online || st.IsSyncing || st.LastSync != nil {
		t.Errorf("status = %+v, want online, idle, never synced", st)
	}
	if got := st.Records[models.KindPatient]; got.Total != 1 || got.Unsynced != 1 {
		t.Errorf("patient counts = %+v, want 1/1", got)
	}
	if rec.Header().Get("Cache-Control") != "no-store" {
		t.Errorf("Cache-Control = %q", rec.Header().Get("Cache-Control"))
	}
}

func TestTriggerSync(t *testing.T) {
	tests := []struct {
		name        string
		failureRate float64
		online      bool
		seed        bool
		wantStatus  int
		wantOutcome syncpkg.Outcome
		wantCode    string
		wantReason  string
	}{
		{"records accepted", 0, true, true, http.StatusOK, syncpkg.OutcomeSuccess, "", ""},
		{"nothing pending", 0, true, false, http.StatusOK, syncpkg.OutcomeUpToDate, "", ""},
		{"every batch rejected", 1, true, true, http.StatusBadGateway, "", models.ErrCodeSyncFailed, ""},
		{"offline", 0, false, true, http.StatusConflict, "", models.ErrCodeSyncSkipped, syncpkg.SkipOffline},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAPIFixture(t, fixtureOptions{
				failureRate: tt.failureRate,
				monitor:     connectivity.NewStatic(tt.online),
			})
			if tt.seed {
				ctx := context.Background()
				if _, err := f.records.PutPatient(ctx, validPatient("P1")); err != nil {
					t.Fatalf("PutPatient: %v", err)
				}
				if _, err := f.records.PutSymptomLog(ctx, validLog("L1", "P1", 9, true)); err != nil {
					t.Fatalf("PutSymptomLog: %v", err)
				}
			}

			rec, env := f.do(t, http.MethodPost, "/api/v1/sync", nil)
			expectStatus(t, rec, tt.wantStatus)

			if tt.wantCode != "" {
				expectErrorCode(t, env, tt.wantCode)
				if tt.wantReason != "" && env.Error.Details["reason"] != tt.wantReason {
					t.Errorf("reason = %v, want %s", env.Error.Details["reason"], tt.wantReason)
				}
				return
			}

			var report syncpkg.CycleReport
			decodeData(t, env, &report)
			if report.Outcome != tt.wantOutcome {
				t.Errorf("outcome = %s, want %s", report.Outcome, tt.wantOutcome)
			}
			if report.LastSync == nil {
				t.Error("lastSync not set after a successful cycle")
			}
		})
	}
}

func TestTriggerSyncMarksRecordsSynced(t *testing.T) {
	f := newAPIFixture(t, fixtureOptions{})

	rec, env := f.do(t, http.MethodPost, "/api/v1/patients", validPatient(""))
	expectStatus(t, rec, http.StatusCreated)
	var created models.Patient
	decodeData(t, env, &created)

	rec, _ = f.do(t, http.MethodPost, "/api/v1/sync", nil)
	expectStatus(t, rec, http.StatusOK)

	stored, err := f.records.Patient(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("Patient: %v", err)
	}
	if !stored.Synced {
		t.Error("patient not synced after manual sync")
	}
	if _, ok := f.remote.Patient(created.ID); !ok {
		t.Error("remote does not hold the patient")
	}

	// Editing the record puts it back in the queue.
	rec, env = f.do(t, http.MethodPut, "/api/v1/patients/"+created.ID, validPatient("ignored"))
	expectStatus(t, rec, http.StatusOK)
	var edited models.Patient
	decodeData(t, env, &edited)
	if edited.Synced || edited.ID != created.ID {
		t.Errorf("edited = %+v, want unsynced with id %s", edited, created.ID)
	}
}

func TestTriggerSyncRateLimited(t *testing.T) {
	mw := DefaultChiMiddlewareConfig()
	mw.RateLimitRequests = 1
	mw.RateLimitWindow = time.Minute
	f := newAPIFixture(t, fixtureOptions{middleware: mw})

	rec, _ := f.do(t, http.MethodPost, "/api/v1/sync", nil)
	expectStatus(t, rec, http.StatusOK)

	rec, env := f.do(t, http.MethodPost, "/api/v1/sync", nil)
	expectStatus(t, rec, http.StatusTooManyRequests)
	expectErrorCode(t, env, models.ErrCodeRateLimit)

	// Status reads are not limited.
	rec, _ = f.do(t, http.MethodGet, "/api/v1/sync/status", nil)
	expectStatus(t, rec, http.StatusOK)
}

func TestSetConnectivity(t *testing.T) {
	f := newAPIFixture(t, fixtureOptions{monitor: connectivity.NewStatic(false)})

	rec, env := f.do(t, http.MethodPut, "/api/v1/connectivity", map[string]bool{"online": true})
	expectStatus(t, rec, http.StatusOK)
	var got map[string]bool
	decodeData(t, env, &got)
	if !got["online"] || !f.monitor.Online() {
		t.Errorf("online = %v / %v, want true", got["online"], f.monitor.Online())
	}

	rec, env = f.do(t, http.MethodPut, "/api/v1/connectivity", `{}`)
	expectStatus(t, rec, http.StatusBadRequest)
	expectErrorCode(t, env, models.ErrCodeValidation)

	rec, env = f.do(t, http.MethodPut, "/api/v1/connectivity", `{"online": "yes"}`)
	expectStatus(t, rec, http.StatusBadRequest)
	expectErrorCode(t, env, models.ErrCodeBadRequest)
}

func TestSetConnectivityWhenProbed(t *testing.T) {
	f := newAPIFixture(t, fixtureOptions{monitor: probedMonitor{online: true}})

	rec, env := f.do(t, http.MethodPut, "/api/v1/connectivity", map[string]bool{"online": false})
	expectStatus(t, rec, http.StatusConflict)
	expectErrorCode(t, env, models.ErrCodeConflict)
}

func TestSkipMessage(t *testing.T) {
	for _, reason := range []string{syncpkg.SkipInProgress, syncpkg.SkipOffline, syncpkg.SkipDebounced, syncpkg.SkipCanceled} {
		if skipMessage(reason) == skipMessage("other") {
			t.Errorf("skipMessage(%q) falls back to the generic message", reason)
		}
	}
}
