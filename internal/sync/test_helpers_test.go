// Fieldsync - Offline-First Field Health Data Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldsync

package sync

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/fieldsync/internal/connectivity"
	"github.com/tomtom215/fieldsync/internal/models"
	"github.com/tomtom215/fieldsync/internal/remote"
	"github.com/tomtom215/fieldsync/internal/store"
)

type manualClock struct {
	mu sync.Mutex
	t  time.Time
}

func newManualClock() *manualClock {
	return &manualClock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// tickingClock advances on every read so record revisions differ.
type tickingClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Millisecond)
	return c.t
}

// scriptedRemote answers batches in call order: results[i] decides call i,
// calls past the end succeed. Call n (1-based) is stamped 12:00:0n.
type scriptedRemote struct {
	mu       sync.Mutex
	results  []bool
	calls    []*models.SyncPayload
	clock    time.Time
	returned []string

	// onCall runs inside SyncBatch before the result is decided.
	onCall func(call int, payload *models.SyncPayload)
}

func newScriptedRemote(results ...bool) *scriptedRemote {
	return &scriptedRemote{
		results: results,
		clock:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (r *scriptedRemote) SyncBatch(_ context.Context, payload *models.SyncPayload) (*models.SyncResult, error) {
	r.mu.Lock()
	call := len(r.calls)
	r.calls = append(r.calls, payload)
	onCall := r.onCall
	r.mu.Unlock()

	if onCall != nil {
		onCall(call, payload)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.clock = r.clock.Add(time.Second)
	if call < len(r.results) && !r.results[call] {
		return &models.SyncResult{Success: false}, nil
	}
	ts := r.clock.Format(remote.TimestampFormat)
	r.returned = append(r.returned, ts)
	return &models.SyncResult{Success: true, LastSync: ts}, nil
}

func (r *scriptedRemote) Calls() []*models.SyncPayload {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.SyncPayload, len(r.calls))
	copy(out, r.calls)
	return out
}

func (r *scriptedRemote) LastReturned() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.returned) == 0 {
		return ""
	}
	return r.returned[len(r.returned)-1]
}

type recordingHub struct {
	mu       sync.Mutex
	messages []Status
}

func (h *recordingHub) BroadcastJSON(messageType string, data interface{}) {
	if messageType != MessageTypeSyncStatus {
		return
	}
	st, ok := data.(Status)
	if !ok {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, st)
}

func (h *recordingHub) Messages() []Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Status, len(h.messages))
	copy(out, h.messages)
	return out
}

type fixture struct {
	ctx     context.Context
	records *store.Records
	remote  *scriptedRemote
	monitor *connectivity.Static
	clock   *manualClock
	orch    *Orchestrator

	sleeps    atomic.Int64
	lastSleep atomic.Int64
}

func newFixture(t *testing.T, rem *scriptedRemote) *fixture {
	t.Helper()

	records := store.NewRecords(store.NewMemoryStore())
	records.SetClock((&tickingClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}).Now)
	t.Cleanup(func() { records.Store().Close() })

	f := &fixture{
		ctx:     context.Background(),
		records: records,
		remote:  rem,
		monitor: connectivity.NewStatic(true),
		clock:   newManualClock(),
	}

	opts := DefaultOptions()
	opts.Now = f.clock.Now
	opts.Sleep = func(_ context.Context, d time.Duration) error {
		f.sleeps.Add(1)
		f.lastSleep.Store(int64(d))
		return nil
	}
	f.orch = NewOrchestrator(records, rem, f.monitor, opts)
	return f
}

func (f *fixture) addLog(t *testing.T, id, patientID string, severity int, urgent bool, ts string) {
	t.Helper()
	_, err := f.records.PutSymptomLog(f.ctx, models.SymptomLog{
		ID:        id,
		PatientID: patientID,
		FamilyID:  "fam-1",
		Symptoms:  []models.Symptom{models.SymptomFever},
		Severity:  severity,
		IsUrgent:  urgent,
		Location:  models.Location{Sector: "North", Household: "H1"},
		Timestamp: ts,
	})
	if err != nil {
		t.Fatalf("PutSymptomLog(%s): %v", id, err)
	}
}

func (f *fixture) addPatient(t *testing.T, id string) {
	t.Helper()
	if _, err := f.records.PutPatient(f.ctx, models.Patient{ID: id, Name: "Patient " + id, FamilyID: "fam-1"}); err != nil {
		t.Fatalf("PutPatient(%s): %v", id, err)
	}
}

func (f *fixture) addEnrollment(t *testing.T, id, patientID string) {
	t.Helper()
	_, err := f.records.PutEnrollment(f.ctx, models.PatientEnrollment{
		ID:             id,
		PatientID:      patientID,
		FamilyID:       "fam-1",
		SchemeID:       "scheme-1",
		EnrollmentDate: "2026-02-01T00:00:00Z",
		Status:         models.EnrollmentPending,
	})
	if err != nil {
		t.Fatalf("PutEnrollment(%s): %v", id, err)
	}
}

// seedScenario stores one urgent log, one severity 9 log and three ordinary
// logs, each for its own patient.
func (f *fixture) seedScenario(t *testing.T) {
	t.Helper()
	for _, id := range []string{"P1", "P2", "P3", "P4", "P5"} {
		f.addPatient(t, id)
	}
	f.addLog(t, "routine-1", "P3", 2, false, "2026-03-01T08:04:00Z")
	f.addLog(t, "severe-1", "P2", 9, false, "2026-03-01T08:01:00Z")
	f.addLog(t, "routine-2", "P4", 3, false, "2026-03-01T08:00:00Z")
	f.addLog(t, "urgent-1", "P1", 5, true, "2026-03-01T08:03:00Z")
	f.addLog(t, "routine-3", "P5", 7, false, "2026-03-01T08:02:00Z")
}

func (f *fixture) unsyncedCount(t *testing.T) int {
	t.Helper()
	n, err := f.records.UnsyncedCount(f.ctx)
	if err != nil {
		t.Fatalf("UnsyncedCount: %v", err)
	}
	return n
}

func (f *fixture) lastSync(t *testing.T) string {
	t.Helper()
	last, err := f.records.LastSync(f.ctx)
	if err != nil {
		t.Fatalf("LastSync: %v", err)
	}
	if last == nil {
		return ""
	}
	return *last
}

func (f *fixture) syncedIDs(t *testing.T) map[string]bool {
	t.Helper()
	out := make(map[string]bool)
	logs, err := f.records.SymptomLogs(f.ctx)
	if err != nil {
		t.Fatalf("SymptomLogs: %v", err)
	}
	for _, l := range logs {
		out[l.ID] = l.Synced
	}
	patients, err := f.records.Patients(f.ctx)
	if err != nil {
		t.Fatalf("Patients: %v", err)
	}
	for _, p := range patients {
		out[p.ID] = p.Synced
	}
	return out
}

func logIDs(logs []models.SymptomLog) []string {
	out := make([]string, len(logs))
	for i, l := range logs {
		out[i] = l.ID
	}
	return out
}

// patientIDs returns the patient ids sorted.
func patientIDs(patients []models.Patient) []string {
	out := make([]string, len(patients))
	for i, p := range patients {
		out[i] = p.ID
	}
	sort.Strings(out)
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
