// Fieldsync - Offline-First Field Health Data Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldsync

package models

import (
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func TestUnsyncedCount(t *testing.T) {
	logs := []SymptomLog{
		{ID: "a", Synced: true},
		{ID: "b"},
		{ID: "c"},
	}
	if got := UnsyncedCount(logs); got != 2 {
		t.Errorf("UnsyncedCount() = %d, want 2", got)
	}

	got := Unsynced(logs)
	if len(got) != 2 || got[0].ID != "b" || got[1].ID != "c" {
		t.Errorf("Unsynced() = %+v, want [b c]", got)
	}

	if UnsyncedCount([]Patient(nil)) != 0 {
		t.Error("UnsyncedCount(nil) should be 0")
	}
}

func TestSymptomLogObservedAt(t *testing.T) {
	tests := []struct {
		name      string
		timestamp string
		want      time.Time
	}{
		{"rfc3339", "2026-03-01T10:00:00Z", time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)},
		{"fractional seconds", "2026-03-01T10:00:00.250Z", time.Date(2026, 3, 1, 10, 0, 0, 250_000_000, time.UTC)},
		{"garbage", "yesterday", time.Time{}},
		{"empty", "", time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SymptomLog{Timestamp: tt.timestamp}.ObservedAt()
			if !got.Equal(tt.want) {
				t.Errorf("ObservedAt() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSyncPayloadEncodesEmptyArrays(t *testing.T) {
	p := NewSyncPayload(nil, nil, nil)
	if !p.Empty() {
		t.Fatal("expected empty payload")
	}

	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"symptomLogs":[],"patients":[],"patientEnrollments":[]}`
	if string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}
}

func TestSymptomLogWireNames(t *testing.T) {
	log := SymptomLog{
		ID:        "log-1",
		PatientID: "p-1",
		FamilyID:  "f-1",
		Symptoms:  []Symptom{SymptomFever},
		Severity:  9,
		IsUrgent:  true,
		Location:  Location{Sector: "North", Household: "H12"},
		Timestamp: "2026-03-01T10:00:00Z",
	}
	data, err := json.Marshal(log)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	for _, key := range []string{`"patientId"`, `"familyId"`, `"isUrgent":true`, `"synced":false`, `"household":"H12"`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("encoded log %s missing %s", data, key)
		}
	}
	if strings.Contains(string(data), `"photo"`) {
		t.Errorf("empty photo should be omitted: %s", data)
	}
}

func TestPayloadLen(t *testing.T) {
	var nilPayload *SyncPayload
	if nilPayload.Len() != 0 {
		t.Error("nil payload Len should be 0")
	}
	p := NewSyncPayload([]SymptomLog{{ID: "a"}}, []Patient{{ID: "p"}, {ID: "q"}}, nil)
	if p.Len() != 3 {
		t.Errorf("Len() = %d, want 3", p.Len())
	}
}
