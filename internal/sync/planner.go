// Fieldsync - Offline-First Field Health Data Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldsync

package sync

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/tomtom215/fieldsync/internal/models"
)

// Tier is a priority class of a sync batch. Tiers are sent in ascending order.
type Tier int

// Sync tiers.
const (
	TierUrgent Tier = iota + 1
	TierSevere
	TierRoutine
)

// Tiers lists the tiers in send order.
var Tiers = []Tier{TierUrgent, TierSevere, TierRoutine}

// SevereThreshold is the severity a non-urgent log must exceed to go out in
// the severe tier.
const SevereThreshold = 7

func (t Tier) String() string {
	switch t {
	case TierUrgent:
		return "urgent"
	case TierSevere:
		return "severe"
	case TierRoutine:
		return "routine"
	default:
		return "unknown"
	}
}

// MarshalText encodes the tier by name.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes a tier name.
func (t *Tier) UnmarshalText(text []byte) error {
	for _, tier := range Tiers {
		if tier.String() == string(text) {
			*t = tier
			return nil
		}
	}
	return fmt.Errorf("unknown sync tier %q", text)
}

// pending is the set of records a cycle has not yet sent. A batch's records
// leave it once the batch was attempted, whatever the outcome.
type pending struct {
	logs        []models.SymptomLog
	patients    []models.Patient
	enrollments []models.PatientEnrollment
}

func newPending(logs []models.SymptomLog, patients []models.Patient, enrollments []models.PatientEnrollment) *pending {
	return &pending{
		logs:        models.Unsynced(logs),
		patients:    models.Unsynced(patients),
		enrollments: models.Unsynced(enrollments),
	}
}

func (p *pending) empty() bool {
	return len(p.logs) == 0 && len(p.patients) == 0 && len(p.enrollments) == 0
}

// batch builds the payload for tier from what is still pending.
func (p *pending) batch(tier Tier) *models.SyncPayload {
	switch tier {
	case TierUrgent:
		logs := filterLogs(p.logs, func(l models.SymptomLog) bool { return l.IsUrgent })
		return models.NewSyncPayload(logs, p.referencedPatients(logs), nil)

	case TierSevere:
		logs := filterLogs(p.logs, func(l models.SymptomLog) bool { return l.Severity > SevereThreshold })
		slices.SortStableFunc(logs, func(a, b models.SymptomLog) int {
			return cmp.Compare(b.Severity, a.Severity)
		})
		return models.NewSyncPayload(logs, p.referencedPatients(logs), nil)

	case TierRoutine:
		logs := slices.Clone(p.logs)
		slices.SortStableFunc(logs, func(a, b models.SymptomLog) int {
			return a.ObservedAt().Compare(b.ObservedAt())
		})
		return models.NewSyncPayload(logs, slices.Clone(p.patients), slices.Clone(p.enrollments))
	}
	return models.NewSyncPayload(nil, nil, nil)
}

// remove drops every record of sent.
func (p *pending) remove(sent *models.SyncPayload) {
	p.logs = without(p.logs, sent.SymptomLogs)
	p.patients = without(p.patients, sent.Patients)
	p.enrollments = without(p.enrollments, sent.PatientEnrollments)
}

func (p *pending) referencedPatients(logs []models.SymptomLog) []models.Patient {
	ids := make(map[string]struct{}, len(logs))
	for _, l := range logs {
		ids[l.PatientID] = struct{}{}
	}
	out := make([]models.Patient, 0, len(ids))
	for _, pt := range p.patients {
		if _, ok := ids[pt.ID]; ok {
			out = append(out, pt)
		}
	}
	return out
}

func filterLogs(logs []models.SymptomLog, keep func(models.SymptomLog) bool) []models.SymptomLog {
	out := make([]models.SymptomLog, 0, len(logs))
	for _, l := range logs {
		if keep(l) {
			out = append(out, l)
		}
	}
	return out
}

func without[T models.Record](items, drop []T) []T {
	if len(drop) == 0 {
		return items
	}
	ids := make(map[string]struct{}, len(drop))
	for _, d := range drop {
		ids[d.RecordID()] = struct{}{}
	}
	return slices.DeleteFunc(items, func(item T) bool {
		_, ok := ids[item.RecordID()]
		return ok
	})
}
