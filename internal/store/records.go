// Fieldsync - Offline-First Field Health Data Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldsync

package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/fieldsync/internal/models"
)

// ErrRecordNotFound is returned when no record has the requested id.
var ErrRecordNotFound = errors.New("store: record not found")

// record is satisfied by the value types of every synchronized kind.
type record[T any] interface {
	models.Record
	WithSynced(bool) T
	Edited(time.Time) T
	WithID(string) T
}

// Records is typed access to the record collections and the lastSync marker.
//
// Every read-modify-write of a collection holds mu, so the entry path and the
// sync write-back never lose each other's updates.
type Records struct {
	kv  Store
	now func() time.Time
	mu  sync.Mutex
}

// NewRecords wraps kv.
func NewRecords(kv Store) *Records {
	return &Records{kv: kv, now: time.Now}
}

// SetClock replaces the clock used to stamp edits. Tests only.
func (r *Records) SetClock(now func() time.Time) {
	r.now = now
}

// Store returns the underlying key-value store.
func (r *Records) Store() Store {
	return r.kv
}

// SymptomLogs returns every stored symptom log.
func (r *Records) SymptomLogs(ctx context.Context) ([]models.SymptomLog, error) {
	return load[models.SymptomLog](ctx, r.kv, KeySymptomLogs)
}

// Patients returns every stored patient.
func (r *Records) Patients(ctx context.Context) ([]models.Patient, error) {
	return load[models.Patient](ctx, r.kv, KeyPatients)
}

// Enrollments returns every stored enrollment.
func (r *Records) Enrollments(ctx context.Context) ([]models.PatientEnrollment, error) {
	return load[models.PatientEnrollment](ctx, r.kv, KeyPatientEnrollments)
}

// SymptomLog returns one symptom log by id.
func (r *Records) SymptomLog(ctx context.Context, id string) (models.SymptomLog, error) {
	return find[models.SymptomLog](ctx, r.kv, KeySymptomLogs, id)
}

// Patient returns one patient by id.
func (r *Records) Patient(ctx context.Context, id string) (models.Patient, error) {
	return find[models.Patient](ctx, r.kv, KeyPatients, id)
}

// Enrollment returns one enrollment by id.
func (r *Records) Enrollment(ctx context.Context, id string) (models.PatientEnrollment, error) {
	return find[models.PatientEnrollment](ctx, r.kv, KeyPatientEnrollments, id)
}

// PutSymptomLog inserts or replaces a symptom log. The stored copy is always
// unsynced and stamped with the current time; an empty ID gets a new UUID.
func (r *Records) PutSymptomLog(ctx context.Context, log models.SymptomLog) (models.SymptomLog, error) {
	return put(ctx, r, KeySymptomLogs, log)
}

// PutPatient inserts or replaces a patient. See PutSymptomLog.
func (r *Records) PutPatient(ctx context.Context, p models.Patient) (models.Patient, error) {
	return put(ctx, r, KeyPatients, p)
}

// PutEnrollment inserts or replaces an enrollment. See PutSymptomLog.
func (r *Records) PutEnrollment(ctx context.Context, e models.PatientEnrollment) (models.PatientEnrollment, error) {
	return put(ctx, r, KeyPatientEnrollments, e)
}

// MarkResult reports what MarkSynced changed.
type MarkResult struct {
	SymptomLogs        int
	Patients           int
	PatientEnrollments int

	// Stale counts sent records that were edited while the batch was in
	// flight. They stay unsynced and go out again next cycle.
	Stale int
}

// Total is the number of records flipped to synced.
func (m MarkResult) Total() int {
	return m.SymptomLogs + m.Patients + m.PatientEnrollments
}

// MarkSynced flips Synced to true for every record in sent that is still
// stored with the same revision. Collections without sent records are not
// rewritten.
func (r *Records) MarkSynced(ctx context.Context, sent *models.SyncPayload) (MarkResult, error) {
	var res MarkResult
	if sent.Empty() {
		return res, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var err error
	var stale int
	if res.SymptomLogs, stale, err = markSynced(ctx, r.kv, KeySymptomLogs, sent.SymptomLogs); err != nil {
		return res, err
	}
	res.Stale += stale
	if res.Patients, stale, err = markSynced(ctx, r.kv, KeyPatients, sent.Patients); err != nil {
		return res, err
	}
	res.Stale += stale
	if res.PatientEnrollments, stale, err = markSynced(ctx, r.kv, KeyPatientEnrollments, sent.PatientEnrollments); err != nil {
		return res, err
	}
	res.Stale += stale
	return res, nil
}

// UnsyncedCounts counts unsynced records per kind, read fresh from the store.
func (r *Records) UnsyncedCounts(ctx context.Context) (map[models.Kind]models.RecordCounts, error) {
	logs, err := r.SymptomLogs(ctx)
	if err != nil {
		return nil, err
	}
	patients, err := r.Patients(ctx)
	if err != nil {
		return nil, err
	}
	enrollments, err := r.Enrollments(ctx)
	if err != nil {
		return nil, err
	}

	return map[models.Kind]models.RecordCounts{
		models.KindSymptomLog:        {Total: len(logs), Unsynced: models.UnsyncedCount(logs)},
		models.KindPatient:           {Total: len(patients), Unsynced: models.UnsyncedCount(patients)},
		models.KindPatientEnrollment: {Total: len(enrollments), Unsynced: models.UnsyncedCount(enrollments)},
	}, nil
}

// UnsyncedCount is the total number of unsynced records.
func (r *Records) UnsyncedCount(ctx context.Context) (int, error) {
	counts, err := r.UnsyncedCounts(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, c := range counts {
		n += c.Unsynced
	}
	return n, nil
}

// LastSync returns the persisted lastSync timestamp, or nil if no cycle ever
// succeeded.
func (r *Records) LastSync(ctx context.Context) (*string, error) {
	raw, err := r.kv.Get(ctx, KeyLastSync)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read lastSync: %w", err)
	}
	s := string(raw)
	return &s, nil
}

// AdvanceLastSync persists ts as lastSync unless the stored value is the same
// or later. It reports whether the value was written. ts must be RFC 3339.
func (r *Records) AdvanceLastSync(ctx context.Context, ts string) (bool, error) {
	next, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return false, fmt.Errorf("parse lastSync %q: %w", ts, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.LastSync(ctx)
	if err != nil {
		return false, err
	}
	if current != nil {
		// An unparsable stored value is replaced.
		if prev, perr := time.Parse(time.RFC3339Nano, *current); perr == nil && !next.After(prev) {
			return false, nil
		}
	}

	if err := r.kv.Set(ctx, KeyLastSync, []byte(ts)); err != nil {
		return false, fmt.Errorf("write lastSync: %w", err)
	}
	return true, nil
}

func load[T any](ctx context.Context, kv Store, key string) ([]T, error) {
	raw, err := kv.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}

	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func save[T any](ctx context.Context, kv Store, key string, items []T) error {
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := kv.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func find[T models.Record](ctx context.Context, kv Store, key, id string) (T, error) {
	var zero T
	items, err := load[T](ctx, kv, key)
	if err != nil {
		return zero, err
	}
	for _, item := range items {
		if item.RecordID() == id {
			return item, nil
		}
	}
	return zero, ErrRecordNotFound
}

func put[T record[T]](ctx context.Context, r *Records, key string, item T) (T, error) {
	if item.RecordID() == "" {
		item = item.WithID(uuid.NewString())
	}
	item = item.Edited(r.now().UTC())

	r.mu.Lock()
	defer r.mu.Unlock()

	items, err := load[T](ctx, r.kv, key)
	if err != nil {
		return item, err
	}

	replaced := false
	for i := range items {
		if items[i].RecordID() == item.RecordID() {
			items[i] = item
			replaced = true
			break
		}
	}
	if !replaced {
		items = append(items, item)
	}

	if err := save(ctx, r.kv, key, items); err != nil {
		return item, err
	}
	return item, nil
}

// markSynced must be called with r.mu held.
func markSynced[T record[T]](ctx context.Context, kv Store, key string, sent []T) (marked, stale int, err error) {
	if len(sent) == 0 {
		return 0, 0, nil
	}

	revisions := make(map[string]time.Time, len(sent))
	for _, s := range sent {
		revisions[s.RecordID()] = s.Revision()
	}

	items, err := load[T](ctx, kv, key)
	if err != nil {
		return 0, 0, err
	}

	for i, item := range items {
		rev, ok := revisions[item.RecordID()]
		if !ok || item.IsSynced() {
			continue
		}
		if !item.Revision().Equal(rev) {
			stale++
			continue
		}
		items[i] = item.WithSynced(true)
		marked++
	}

	if marked == 0 {
		return 0, stale, nil
	}
	if err := save(ctx, kv, key, items); err != nil {
		return 0, stale, err
	}
	return marked, stale, nil
}
