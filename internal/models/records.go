// Fieldsync - Offline-First Field Health Data Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldsync

// Package models defines the records collected in the field, the sync wire
// payloads exchanged with the remote merge store, and the HTTP API envelope.
//
// Three record kinds are synchronized:
//   - SymptomLog: an observation about a patient; the only kind carrying
//     Severity and IsUrgent, which drive sync prioritization
//   - Patient: a member of a family/household
//   - PatientEnrollment: a patient's enrollment in a government health scheme
//
// Every record carries a Synced flag. It starts false, is reset to false by any
// local edit, and is set true only after the remote accepted a batch that
// contained the record.
//
// JSON field names match the mobile client's wire format (camelCase).
package models

import (
	"time"
)

// Kind names a record collection.
type Kind string

// Record kinds. The values double as the collection names in the local store
// and the field names of the sync payload.
const (
	KindSymptomLog        Kind = "symptomLogs"
	KindPatient           Kind = "patients"
	KindPatientEnrollment Kind = "patientEnrollments"
)

// AllKinds lists the synchronized kinds in payload order.
var AllKinds = []Kind{KindSymptomLog, KindPatient, KindPatientEnrollment}

// Symptom is one of the symptoms a health worker can record.
type Symptom string

// Recordable symptoms.
const (
	SymptomFever               Symptom = "Fever"
	SymptomCough               Symptom = "Cough"
	SymptomBreathingDifficulty Symptom = "Breathing Difficulty"
	SymptomDiarrhea            Symptom = "Diarrhea"
	SymptomRash                Symptom = "Rash"
	SymptomVomiting            Symptom = "Vomiting"
)

// SymptomList is the ordered list shown on the entry form.
var SymptomList = []Symptom{
	SymptomFever,
	SymptomCough,
	SymptomBreathingDifficulty,
	SymptomDiarrhea,
	SymptomRash,
	SymptomVomiting,
}

// Severity bounds for symptom logs.
const (
	MinSeverity = 1
	MaxSeverity = 10
)

// Location identifies where a symptom log was taken.
type Location struct {
	Sector    string `json:"sector" validate:"required"`
	Household string `json:"household" validate:"required"`
}

// SymptomLog records symptoms observed for one patient at one point in time.
type SymptomLog struct {
	ID        string    `json:"id" validate:"required"`
	PatientID string    `json:"patientId" validate:"required"`
	FamilyID  string    `json:"familyId" validate:"required"`
	Symptoms  []Symptom `json:"symptoms" validate:"dive,symptom"`
	Severity  int       `json:"severity" validate:"gte=1,lte=10"`
	IsUrgent  bool      `json:"isUrgent"`
	Location  Location  `json:"location"`
	Photo     string    `json:"photo,omitempty" validate:"omitempty,base64"`
	Timestamp string    `json:"timestamp" validate:"required,rfc3339"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
	Synced    bool      `json:"synced"`
}

// RecordID implements Record.
func (l SymptomLog) RecordID() string { return l.ID }

// IsSynced implements Record.
func (l SymptomLog) IsSynced() bool { return l.Synced }

// Revision implements Record.
func (l SymptomLog) Revision() time.Time { return l.UpdatedAt }

// WithSynced returns a copy with Synced set.
func (l SymptomLog) WithSynced(synced bool) SymptomLog {
	l.Synced = synced
	return l
}

// Edited returns a copy stamped as locally edited at t.
func (l SymptomLog) Edited(t time.Time) SymptomLog {
	l.UpdatedAt = t
	l.Synced = false
	return l
}

// WithID returns a copy with ID set.
func (l SymptomLog) WithID(id string) SymptomLog {
	l.ID = id
	return l
}

// ObservedAt parses Timestamp. Unparsable timestamps return the zero time so
// they sort first.
func (l SymptomLog) ObservedAt() time.Time {
	t, err := time.Parse(time.RFC3339Nano, l.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Gender of a patient.
type Gender string

// Genders accepted by the entry form.
const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

// Patient is a member of a family registered by the health worker.
type Patient struct {
	ID                 string    `json:"id" validate:"required"`
	Name               string    `json:"name" validate:"required,max=200"`
	FamilyID           string    `json:"familyId" validate:"required"`
	DOB                string    `json:"dob,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Gender             Gender    `json:"gender,omitempty" validate:"omitempty,oneof=Male Female Other"`
	ContactNumber      string    `json:"contactNumber,omitempty" validate:"omitempty,max=32"`
	PastIllnesses      string    `json:"pastIllnesses,omitempty"`
	Allergies          []string  `json:"allergies,omitempty"`
	RelationshipToHead string    `json:"relationshipToHead,omitempty"`
	ParentID           string    `json:"parentId,omitempty"`
	UpdatedAt          time.Time `json:"updatedAt,omitempty"`
	Synced             bool      `json:"synced"`
}

// RecordID implements Record.
func (p Patient) RecordID() string { return p.ID }

// IsSynced implements Record.
func (p Patient) IsSynced() bool { return p.Synced }

// Revision implements Record.
func (p Patient) Revision() time.Time { return p.UpdatedAt }

// WithSynced returns a copy with Synced set.
func (p Patient) WithSynced(synced bool) Patient {
	p.Synced = synced
	return p
}

// Edited returns a copy stamped as locally edited at t.
func (p Patient) Edited(t time.Time) Patient {
	p.UpdatedAt = t
	p.Synced = false
	return p
}

// WithID returns a copy with ID set.
func (p Patient) WithID(id string) Patient {
	p.ID = id
	return p
}

// EnrollmentStatus is the state of a scheme enrollment.
type EnrollmentStatus string

// Enrollment states.
const (
	EnrollmentEnrolled  EnrollmentStatus = "Enrolled"
	EnrollmentPending   EnrollmentStatus = "Pending"
	EnrollmentRejected  EnrollmentStatus = "Rejected"
	EnrollmentCompleted EnrollmentStatus = "Completed"
)

// PatientEnrollment links a patient to a government health scheme.
type PatientEnrollment struct {
	ID             string           `json:"id" validate:"required"`
	PatientID      string           `json:"patientId" validate:"required"`
	FamilyID       string           `json:"familyId" validate:"required"`
	SchemeID       string           `json:"schemeId" validate:"required"`
	EnrollmentDate string           `json:"enrollmentDate" validate:"required,rfc3339"`
	Status         EnrollmentStatus `json:"status" validate:"required,oneof=Enrolled Pending Rejected Completed"`
	Notes          string           `json:"notes,omitempty"`
	UpdatedAt      time.Time        `json:"updatedAt,omitempty"`
	Synced         bool             `json:"synced"`
}

// RecordID implements Record.
func (e PatientEnrollment) RecordID() string { return e.ID }

// IsSynced implements Record.
func (e PatientEnrollment) IsSynced() bool { return e.Synced }

// Revision implements Record.
func (e PatientEnrollment) Revision() time.Time { return e.UpdatedAt }

// WithSynced returns a copy with Synced set.
func (e PatientEnrollment) WithSynced(synced bool) PatientEnrollment {
	e.Synced = synced
	return e
}

// Edited returns a copy stamped as locally edited at t.
func (e PatientEnrollment) Edited(t time.Time) PatientEnrollment {
	e.UpdatedAt = t
	e.Synced = false
	return e
}

// WithID returns a copy with ID set.
func (e PatientEnrollment) WithID(id string) PatientEnrollment {
	e.ID = id
	return e
}

// Record is the behavior shared by every synchronized kind.
type Record interface {
	RecordID() string
	IsSynced() bool
	// Revision is the time of the last local edit. Two copies of a record with
	// the same Revision carry the same content.
	Revision() time.Time
}

// UnsyncedCount counts records whose Synced flag is false.
func UnsyncedCount[T Record](records []T) int {
	n := 0
	for _, r := range records {
		if !r.IsSynced() {
			n++
		}
	}
	return n
}

// Unsynced returns the records whose Synced flag is false, preserving order.
func Unsynced[T Record](records []T) []T {
	out := make([]T, 0, len(records))
	for _, r := range records {
		if !r.IsSynced() {
			out = append(out, r)
		}
	}
	return out
}
