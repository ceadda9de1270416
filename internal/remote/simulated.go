// Fieldsync - Offline-First Field Health Data Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldsync

package remote

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/tomtom215/fieldsync/internal/logging"
	"github.com/tomtom215/fieldsync/internal/models"
)

// TimestampFormat is the layout of server commit timestamps.
const TimestampFormat = "2006-01-02T15:04:05.000Z07:00"

// Simulated is an in-memory merge store. Each kind is a map keyed by record
// id, so resending a batch leaves the same state.
type Simulated struct {
	failureRate float64
	latency     time.Duration
	random      func() float64
	now         func() time.Time
	sleep       func(ctx context.Context, d time.Duration) error

	mu          sync.Mutex
	logs        map[string]models.SymptomLog
	patients    map[string]models.Patient
	enrollments map[string]models.PatientEnrollment
	last        time.Time
	calls       int
	rejected    int
}

// SimulatedOption configures a Simulated.
type SimulatedOption func(*Simulated)

// WithFailureRate sets the fraction of batches that fail. Default 0.1.
func WithFailureRate(rate float64) SimulatedOption {
	return func(s *Simulated) { s.failureRate = rate }
}

// WithLatency sets the simulated round trip. Default 1.5s.
func WithLatency(d time.Duration) SimulatedOption {
	return func(s *Simulated) { s.latency = d }
}

// WithRandom replaces the random source. f returns values in [0, 1).
func WithRandom(f func() float64) SimulatedOption {
	return func(s *Simulated) { s.random = f }
}

// WithClock replaces the clock used for commit timestamps.
func WithClock(now func() time.Time) SimulatedOption {
	return func(s *Simulated) { s.now = now }
}

// WithSleep replaces the latency wait.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) SimulatedOption {
	return func(s *Simulated) { s.sleep = sleep }
}

// NewSimulated returns an empty simulated store.
func NewSimulated(opts ...SimulatedOption) *Simulated {
	s := &Simulated{
		failureRate: 0.1,
		latency:     1500 * time.Millisecond,
		random:      rand.Float64,
		now:         time.Now,
		sleep:       sleepContext,
		logs:        make(map[string]models.SymptomLog),
		patients:    make(map[string]models.Patient),
		enrollments: make(map[string]models.PatientEnrollment),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// SyncBatch implements MergeStore.
func (s *Simulated) SyncBatch(ctx context.Context, payload *models.SyncPayload) (*models.SyncResult, error) {
	if payload == nil {
		payload = models.NewSyncPayload(nil, nil, nil)
	}
	if err := s.sleep(ctx, s.latency); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	if s.random() < s.failureRate {
		s.rejected++
		log := logging.WithComponent(component)
		log.Debug().Int("records", payload.Len()).Msg("Simulated remote rejected batch")
		return &models.SyncResult{Success: false}, nil
	}

	for _, l := range payload.SymptomLogs {
		s.logs[l.ID] = l
	}
	for _, p := range payload.Patients {
		s.patients[p.ID] = p
	}
	for _, e := range payload.PatientEnrollments {
		s.enrollments[e.ID] = e
	}

	now := s.now().UTC()
	if now.Before(s.last) {
		now = s.last
	}
	s.last = now

	return &models.SyncResult{Success: true, LastSync: now.Format(TimestampFormat)}, nil
}

// Counts returns how many distinct records of each kind are stored.
func (s *Simulated) Counts() map[models.Kind]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return map[models.Kind]int{
		models.KindSymptomLog:        len(s.logs),
		models.KindPatient:           len(s.patients),
		models.KindPatientEnrollment: len(s.enrollments),
	}
}

// SymptomLog returns the stored copy of a symptom log.
func (s *Simulated) SymptomLog(id string) (models.SymptomLog, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.logs[id]
	return l, ok
}

// Patient returns the stored copy of a patient.
func (s *Simulated) Patient(id string) (models.Patient, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.patients[id]
	return p, ok
}

// Enrollment returns the stored copy of an enrollment.
func (s *Simulated) Enrollment(id string) (models.PatientEnrollment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.enrollments[id]
	return e, ok
}

// Calls returns the number of batches received and how many were rejected.
func (s *Simulated) Calls() (total, rejected int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls, s.rejected
}
