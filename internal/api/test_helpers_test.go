// Fieldsync - Offline-First Field Health Data Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldsync

package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/fieldsync/internal/config"
	"github.com/tomtom215/fieldsync/internal/connectivity"
	"github.com/tomtom215/fieldsync/internal/logging"
	"github.com/tomtom215/fieldsync/internal/models"
	"github.com/tomtom215/fieldsync/internal/remote"
	"github.com/tomtom215/fieldsync/internal/store"
	syncpkg "github.com/tomtom215/fieldsync/internal/sync"
	ws "github.com/tomtom215/fieldsync/internal/websocket"
)

//nolint:gochecknoinits // quiet logging for tests
func init() {
	logging.Init(logging.Config{
		Level:  "error",
		Format: "console",
		Output: io.Discard,
	})
}

type fixtureOptions struct {
	failureRate  float64
	monitor      connectivity.Monitor
	middleware   *ChiMiddlewareConfig
	withHub      bool
	startManager bool
	mountRemote  bool
}

type apiFixture struct {
	records *store.Records
	remote  *remote.Simulated
	monitor connectivity.Monitor
	manager *syncpkg.Manager
	hub     *ws.Hub
	router  http.Handler
}

func newAPIFixture(t *testing.T, opts fixtureOptions) *apiFixture {
	t.Helper()

	kv := store.NewMemoryStore()
	t.Cleanup(func() { _ = kv.Close() })
	records := store.NewRecords(kv)

	sim := remote.NewSimulated(remote.WithFailureRate(opts.failureRate), remote.WithLatency(0))

	monitor := opts.monitor
	if monitor == nil {
		monitor = connectivity.NewStatic(true)
	}

	orch := syncpkg.NewOrchestrator(records, sim, monitor, syncpkg.Options{})
	manager := syncpkg.NewManager(&config.SyncConfig{Interval: time.Hour}, orch)
	if opts.startManager {
		if err := manager.Start(context.Background()); err != nil {
			t.Fatalf("Start: %v", err)
		}
		t.Cleanup(func() { _ = manager.Stop() })
	}

	cfg := &config.Config{Server: config.ServerConfig{CORSOrigins: []string{"http://field.local"}}}

	var hub *ws.Hub
	if opts.withHub {
		hub = ws.NewHub()
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			defer close(done)
			_ = hub.RunWithContext(ctx)
		}()
		t.Cleanup(func() {
			cancel()
			<-done
		})
		orch.SetWebSocketHub(hub)
	}

	mwCfg := opts.middleware
	if mwCfg == nil {
		mwCfg = DefaultChiMiddlewareConfig()
		mwCfg.CORSAllowedOrigins = cfg.Server.CORSOrigins
		mwCfg.RateLimitDisabled = true
	}

	router := NewRouter(NewHandler(records, manager, monitor, cfg, hub), NewChiMiddleware(mwCfg))
	if opts.mountRemote {
		router.MountRemote(remote.NewHandler(sim))
	}

	return &apiFixture{
		records: records,
		remote:  sim,
		monitor: monitor,
		manager: manager,
		hub:     hub,
		router:  router.SetupChi(),
	}
}

// envelope mirrors models.APIResponse with Data left undecoded.
type envelope struct {
	Status string           `json:"status"`
	Data   json.RawMessage  `json:"data"`
	Error  *models.APIError `json:"error"`
}

func (f *apiFixture) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var env envelope
	if rec.Header().Get("Content-Type") == "application/json" {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("Unmarshal %s: %v", rec.Body.String(), err)
		}
	}
	return rec, env
}

func decodeData(t *testing.T, env envelope, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("Unmarshal data %s: %v", env.Data, err)
	}
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, want, rec.Body.String())
	}
}

func expectErrorCode(t *testing.T, env envelope, want string) {
	t.Helper()
	if env.Error == nil {
		t.Fatalf("error = nil, want code %s", want)
	}
	if env.Error.Code != want {
		t.Errorf("error code = %s, want %s", env.Error.Code, want)
	}
}

func validPatient(id string) models.Patient {
	return models.Patient{ID: id, Name: "Asha", FamilyID: "F1", Gender: models.GenderFemale}
}

func validLog(id, patientID string, severity int, urgent bool) models.SymptomLog {
	return models.SymptomLog{
		ID:        id,
		PatientID: patientID,
		FamilyID:  "F1",
		Symptoms:  []models.Symptom{models.SymptomFever},
		Severity:  severity,
		IsUrgent:  urgent,
		Location:  models.Location{Sector: "S1", Household: "H1"},
		Timestamp: "2026-03-01T08:00:00Z",
	}
}

// probedMonitor is a Monitor without SetOnline.
type probedMonitor struct{ online bool }

func (m probedMonitor) Online() bool { return m.online }

func (m probedMonitor) Subscribe() (<-chan bool, func()) {
	ch := make(chan bool)
	return ch, func() {}
}
