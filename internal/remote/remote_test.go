// Fieldsync - Offline-First Field Health Data Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldsync

package remote

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/fieldsync/internal/logging"
	"github.com/tomtom215/fieldsync/internal/models"
)

func noSleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

func always(v float64) func() float64 { return func() float64 { return v } }

func samplePayload() *models.SyncPayload {
	return models.NewSyncPayload(
		[]models.SymptomLog{{ID: "l1", Severity: 9}, {ID: "l2", Severity: 2}},
		[]models.Patient{{ID: "p1", Name: "Asha"}},
		[]models.PatientEnrollment{{ID: "e1", Status: models.EnrollmentPending}},
	)
}

func TestSimulatedUpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewSimulated(WithSleep(noSleep), WithRandom(always(0.99)))

	for i := 0; i < 3; i++ {
		res, err := s.SyncBatch(ctx, samplePayload())
		if !Accepted(res, err) {
			t.Fatalf("batch %d not accepted: %+v, %v", i, res, err)
		}
	}

	counts := s.Counts()
	if counts[models.KindSymptomLog] != 2 || counts[models.KindPatient] != 1 || counts[models.KindPatientEnrollment] != 1 {
		t.Errorf("Counts() = %v, want 2/1/1 after repeated batches", counts)
	}

	// Last write wins.
	updated := models.NewSyncPayload(nil, []models.Patient{{ID: "p1", Name: "Asha Devi"}}, nil)
	if _, err := s.SyncBatch(ctx, updated); err != nil {
		t.Fatal(err)
	}
	p, ok := s.Patient("p1")
	if !ok || p.Name != "Asha Devi" {
		t.Errorf("Patient(p1) = %+v, %v", p, ok)
	}
	if total, rejected := s.Calls(); total != 4 || rejected != 0 {
		t.Errorf("Calls() = %d, %d", total, rejected)
	}
}

func TestSimulatedFailureStoresNothing(t *testing.T) {
	s := NewSimulated(WithSleep(noSleep), WithRandom(always(0.05)))

	res, err := s.SyncBatch(context.Background(), samplePayload())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success {
		t.Fatal("batch below the failure rate should be rejected")
	}
	if res.LastSync != "" {
		t.Errorf("rejected batch carried lastSync %q", res.LastSync)
	}
	for kind, n := range s.Counts() {
		if n != 0 {
			t.Errorf("%s count = %d after rejected batch", kind, n)
		}
	}
}

func TestSimulatedTimestampsNeverDecrease(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	times := []time.Time{base, base.Add(-time.Minute), base.Add(time.Second)}
	i := 0
	clock := func() time.Time {
		ts := times[i]
		i++
		return ts
	}

	s := NewSimulated(WithSleep(noSleep), WithRandom(always(0.5)), WithClock(clock))
	var got []string
	for range times {
		res, err := s.SyncBatch(context.Background(), samplePayload())
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, res.LastSync)
	}

	want := []string{"2026-03-01T10:00:00.000Z", "2026-03-01T10:00:00.000Z", "2026-03-01T10:00:01.000Z"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("batch %d lastSync = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSimulatedHonorsContextDuringLatency(t *testing.T) {
	s := NewSimulated(WithLatency(time.Hour))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := s.SyncBatch(ctx, samplePayload())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("SyncBatch() error = %v, want DeadlineExceeded", err)
	}
	if Accepted(nil, err) {
		t.Error("an error is never accepted")
	}
}

func TestHTTPRoundTrip(t *testing.T) {
	sim := NewSimulated(WithSleep(noSleep), WithRandom(always(0.9)))
	srv := httptest.NewServer(NewHandler(sim))
	defer srv.Close()

	client, err := NewHTTPClient(srv.URL, time.Second)
	if err != nil {
		t.Fatalf("NewHTTPClient: %v", err)
	}

	res, err := client.SyncBatch(context.Background(), samplePayload())
	if !Accepted(res, err) {
		t.Fatalf("SyncBatch = %+v, %v", res, err)
	}
	if res.LastSync == "" {
		t.Error("missing lastSync")
	}
	if l, ok := sim.SymptomLog("l1"); !ok || l.Severity != 9 {
		t.Errorf("remote copy of l1 = %+v, %v", l, ok)
	}
}

func TestHTTPRejectedBatch(t *testing.T) {
	sim := NewSimulated(WithSleep(noSleep), WithRandom(always(0)))
	srv := httptest.NewServer(NewHandler(sim))
	defer srv.Close()

	client, _ := NewHTTPClient(srv.URL, time.Second)
	res, err := client.SyncBatch(context.Background(), samplePayload())
	if err != nil {
		t.Fatalf("SyncBatch error = %v", err)
	}
	if res.Success {
		t.Error("expected success=false")
	}
}

func TestHTTPClientErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr string
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "database on fire", http.StatusInternalServerError)
			},
			wantErr: "status 500",
		},
		{
			name: "garbage body",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("<html>captive portal</html>"))
			},
			wantErr: "decode response",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			client, _ := NewHTTPClient(srv.URL, time.Second)
			res, err := client.SyncBatch(context.Background(), samplePayload())
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("SyncBatch error = %v, want containing %q", err, tt.wantErr)
			}
			if Accepted(res, err) {
				t.Error("failed call must not be accepted")
			}
		})
	}
}

func TestHandlerBadRequest(t *testing.T) {
	h := NewHandler(NewSimulated(WithSleep(noSleep)))
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"success":false`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestHandlerMergeError(t *testing.T) {
	failing := MergeStoreFunc(func(context.Context, *models.SyncPayload) (*models.SyncResult, error) {
		return nil, errors.New("disk full")
	})
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"symptomLogs":[],"patients":[],"patientEnrollments":[]}`))
	rec := httptest.NewRecorder()
	NewHandler(failing).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

type scriptedRemote struct {
	mu      sync.Mutex
	replies []bool
	calls   int
}

func (s *scriptedRemote) SyncBatch(context.Context, *models.SyncPayload) (*models.SyncResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok := s.replies[s.calls%len(s.replies)]
	s.calls++
	if ok {
		return &models.SyncResult{Success: true, LastSync: "2026-03-01T10:00:00.000Z"}, nil
	}
	return &models.SyncResult{Success: false}, nil
}

func TestCircuitBreakerOpensOnRejections(t *testing.T) {
	next := &scriptedRemote{replies: []bool{false}}
	b := NewCircuitBreaker(next, BreakerSettings{
		Name:                "test-open",
		Timeout:             time.Hour,
		ConsecutiveFailures: 2,
	})

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		res, err := b.SyncBatch(ctx, samplePayload())
		if err != nil {
			t.Fatalf("call %d: rejection should pass through as success=false, got error %v", i, err)
		}
		if res.Success {
			t.Fatalf("call %d: expected success=false", i)
		}
	}

	if b.State() != "open" {
		t.Fatalf("State() = %q, want open", b.State())
	}

	_, err := b.SyncBatch(ctx, samplePayload())
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("open breaker error = %v, want ErrOpenState", err)
	}
	if next.calls != 2 {
		t.Errorf("remote called %d times, want 2", next.calls)
	}
}

func TestCircuitBreakerPassesSuccess(t *testing.T) {
	next := &scriptedRemote{replies: []bool{true, false, true}}
	b := NewCircuitBreaker(next, BreakerSettings{Name: "test-pass", Timeout: time.Hour, ConsecutiveFailures: 2})

	for i, want := range []bool{true, false, true, true} {
		res, err := b.SyncBatch(context.Background(), samplePayload())
		if Accepted(res, err) != want {
			t.Errorf("call %d accepted = %v, want %v", i, Accepted(res, err), want)
		}
	}
	if b.State() != "closed" {
		t.Errorf("State() = %q, want closed", b.State())
	}
}

func TestInstrumentedPassesThrough(t *testing.T) {
	next := &scriptedRemote{replies: []bool{true}}
	i := NewInstrumented("test", next)
	res, err := i.SyncBatch(context.Background(), samplePayload())
	if !Accepted(res, err) {
		t.Fatalf("SyncBatch = %+v, %v", res, err)
	}
}

func TestNormalizeTimestamp(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "2026-03-01T12:00:01.000Z", want: "2026-03-01T12:00:01.000Z"},
		{in: "2026-03-01T12:00:01+0000", want: "2026-03-01T12:00:01.000Z"},
		{in: "2026-03-01T14:00:01.5+02:00", want: "2026-03-01T12:00:01.500Z"},
		{in: "2026-03-01T12:00:01.250+0100", want: "2026-03-01T11:00:01.250Z"},
		{in: "2026-03-01T12:00:01+01", want: "2026-03-01T11:00:01.000Z"},
		{in: "20260301T120001Z", want: "2026-03-01T12:00:01.000Z"},
		{in: "yesterday", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeTimestamp(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("NormalizeTimestamp(%q) = %q, want error", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizeTimestamp(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("NormalizeTimestamp(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCircuitBreakerLogsWithComponent(t *testing.T) {
	var buf bytes.Buffer
	prev := logging.Logger()
	logging.SetLogger(logging.NewTestLogger(&buf))
	t.Cleanup(func() { logging.SetLogger(prev) })

	b := NewCircuitBreaker(&scriptedRemote{replies: []bool{false}}, BreakerSettings{
		Name:                "test-log-component",
		Timeout:             time.Hour,
		ConsecutiveFailures: 1,
	})
	_, _ = b.SyncBatch(context.Background(), samplePayload())

	out := buf.String()
	if !strings.Contains(out, `"component":"remote"`) || !strings.Contains(out, `"to":"open"`) {
		t.Errorf("log output = %s, want a remote component state transition", out)
	}
}
