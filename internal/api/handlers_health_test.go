// Fieldsync - Offline-First Field Health Data Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldsync

package api

import (
	"net/http"
	"testing"
)

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		started    bool
		wantStatus string
	}{
		{"engine running", true, "healthy"},
		{"engine stopped", false, "degraded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAPIFixture(t, fixtureOptions{startManager: tt.started, withHub: true})

			rec, env := f.do(t, http.MethodGet, "/api/v1/health", nil)
			expectStatus(t, rec, http.StatusOK)

			var health HealthStatus
			decodeData(t, env, &health)
			if health.Status != tt.wantStatus {
				t.Errorf("status = %s, want %s", health.Status, tt.wantStatus)
			}
			if !health.StoreReadable || !health.Online {
				t.Errorf("health = %+v, want store readable and online", health)
			}
			if health.SyncRunning != tt.started {
				t.Errorf("sync_running = %v, want %v", health.SyncRunning, tt.started)
			}
		})
	}
}

func TestHealthReady(t *testing.T) {
	tests := []struct {
		name       string
		started    bool
		wantCode   int
		wantStatus string
	}{
		{"ready", true, http.StatusOK, "ready"},
		{"not ready", false, http.StatusServiceUnavailable, "not_ready"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAPIFixture(t, fixtureOptions{startManager: tt.started})

			rec, env := f.do(t, http.MethodGet, "/api/v1/health/ready", nil)
			expectStatus(t, rec, tt.wantCode)
			if env.Status != tt.wantStatus {
				t.Errorf("status = %s, want %s", env.Status, tt.wantStatus)
			}
		})
	}
}

func TestHealthLive(t *testing.T) {
	f := newAPIFixture(t, fixtureOptions{})

	rec, env := f.do(t, http.MethodGet, "/api/v1/health/live", nil)
	expectStatus(t, rec, http.StatusOK)

	var got map[string]interface{}
	decodeData(t, env, &got)
	if got["alive"] != true {
		t.Errorf("alive = %v", got["alive"])
	}
}
