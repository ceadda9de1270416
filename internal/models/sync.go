// Fieldsync - Offline-First Field Health Data Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldsync

package models

// SyncPayload is one batch sent to the remote merge store. The remote
// processes it all-or-nothing and upserts every record by id.
//
// Empty kinds are encoded as empty arrays, never null.
type SyncPayload struct {
	SymptomLogs        []SymptomLog        `json:"symptomLogs"`
	Patients           []Patient           `json:"patients"`
	PatientEnrollments []PatientEnrollment `json:"patientEnrollments"`
}

// NewSyncPayload builds a payload with non-nil slices.
func NewSyncPayload(logs []SymptomLog, patients []Patient, enrollments []PatientEnrollment) *SyncPayload {
	if logs == nil {
		logs = []SymptomLog{}
	}
	if patients == nil {
		patients = []Patient{}
	}
	if enrollments == nil {
		enrollments = []PatientEnrollment{}
	}
	return &SyncPayload{
		SymptomLogs:        logs,
		Patients:           patients,
		PatientEnrollments: enrollments,
	}
}

// Len returns the total number of records in the payload.
func (p *SyncPayload) Len() int {
	if p == nil {
		return 0
	}
	return len(p.SymptomLogs) + len(p.Patients) + len(p.PatientEnrollments)
}

// Empty reports whether the payload carries no records.
func (p *SyncPayload) Empty() bool {
	return p.Len() == 0
}

// SyncResult is the remote's reply to a SyncPayload. LastSync is the
// server-assigned commit time (RFC 3339) and is meaningful only when Success
// is true.
type SyncResult struct {
	Success  bool   `json:"success"`
	LastSync string `json:"lastSync,omitempty"`
}
