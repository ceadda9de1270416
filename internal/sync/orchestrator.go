// Fieldsync - Offline-First Field Health Data Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldsync

package sync

import (
	"context"
	"sync"
	"time"

	"github.com/tomtom215/fieldsync/internal/config"
	"github.com/tomtom215/fieldsync/internal/connectivity"
	"github.com/tomtom215/fieldsync/internal/logging"
	"github.com/tomtom215/fieldsync/internal/metrics"
	"github.com/tomtom215/fieldsync/internal/models"
	"github.com/tomtom215/fieldsync/internal/remote"
	"github.com/tomtom215/fieldsync/internal/store"
)

// MessageTypeSyncStatus is the websocket message type carrying a Status.
const MessageTypeSyncStatus = "sync_status"

// WebSocketHub receives status broadcasts for connected UI clients.
type WebSocketHub interface {
	BroadcastJSON(messageType string, data interface{})
}

// Outcome summarizes one call to Sync.
type Outcome string

// Cycle outcomes.
const (
	OutcomeSkipped  Outcome = metrics.OutcomeSkipped
	OutcomeUpToDate Outcome = metrics.OutcomeUpToDate
	OutcomeSuccess  Outcome = metrics.OutcomeSuccess
	OutcomePartial  Outcome = metrics.OutcomePartial
	OutcomeFailed   Outcome = metrics.OutcomeFailed
)

// Reasons a cycle was skipped.
const (
	SkipInProgress = "in_progress"
	SkipOffline    = "offline"
	SkipDebounced  = "debounced"
	SkipCanceled   = "canceled"
)

// TierReport describes one batch sent during a cycle.
type TierReport struct {
	Tier       Tier   `json:"tier"`
	Records    int    `json:"records"`
	Success    bool   `json:"success"`
	Marked     int    `json:"marked"`
	Stale      int    `json:"stale,omitempty"`
	ServerTime string `json:"serverTime,omitempty"`
	TimeSource string `json:"timeSource,omitempty"`
}

// Commit time sources recorded on an accepted tier.
const (
	TimeSourceServer     = "server"
	TimeSourceLocalClock = "local_clock"
)

// CycleReport describes one call to Sync.
type CycleReport struct {
	CorrelationID string        `json:"correlationId,omitempty"`
	Outcome       Outcome       `json:"outcome"`
	Reason        string        `json:"reason,omitempty"`
	Tiers         []TierReport  `json:"tiers,omitempty"`
	LastSync      *string       `json:"lastSync"`
	Duration      time.Duration `json:"-"`
}

// Succeeded reports whether at least one batch was accepted, or the store
// was confirmed up to date.
func (r CycleReport) Succeeded() bool {
	switch r.Outcome {
	case OutcomeSuccess, OutcomePartial, OutcomeUpToDate:
		return true
	}
	return false
}

// Status is the sync state shown to the UI. UnsyncedCount and Records are
// read from the store on every call.
type Status struct {
	IsSyncing     bool                                `json:"isSyncing"`
	LastSync      *string                             `json:"lastSync"`
	SyncSuccess   bool                                `json:"syncSuccess"`
	UnsyncedCount int                                 `json:"unsyncedCount"`
	Online        bool                                `json:"online"`
	Records       map[models.Kind]models.RecordCounts `json:"records,omitempty"`
}

// Options tunes the orchestrator. Zero durations are honored as zero.
type Options struct {
	// Debounce is the minimum spacing between two cycle starts.
	Debounce time.Duration

	// EmptyCycleDelay is how long a cycle with nothing to send pretends to
	// work before confirming the store is up to date.
	EmptyCycleDelay time.Duration

	// SuccessDisplay is how long Status reports SyncSuccess after a cycle.
	SuccessDisplay time.Duration

	// Now and Sleep default to the wall clock.
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultOptions returns the intervals used by the field app.
func DefaultOptions() Options {
	return Options{
		Debounce:        2 * time.Second,
		EmptyCycleDelay: 500 * time.Millisecond,
		SuccessDisplay:  3 * time.Second,
	}
}

// OptionsFromConfig maps the sync config section.
func OptionsFromConfig(cfg *config.SyncConfig) Options {
	return Options{
		Debounce:        cfg.Debounce,
		EmptyCycleDelay: cfg.EmptyCycleDelay,
		SuccessDisplay:  cfg.SuccessDisplay,
	}
}

// Orchestrator runs tiered sync cycles against a remote merge store.
//
// At most one cycle runs at a time. Concurrent callers are turned away by the
// in-progress, offline and debounce guards, which are checked and latched
// under a single lock.
type Orchestrator struct {
	records *store.Records
	remote  remote.MergeStore
	monitor connectivity.Monitor
	opts    Options

	hubMu sync.RWMutex
	hub   WebSocketHub

	mu           sync.Mutex
	syncing      bool
	lastAttempt  time.Time
	successUntil time.Time

	// Touched only by the cycle holding the latch.
	urgentFailures int
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(records *store.Records, merge remote.MergeStore, monitor connectivity.Monitor, opts Options) *Orchestrator {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepContext
	}
	return &Orchestrator{
		records: records,
		remote:  merge,
		monitor: monitor,
		opts:    opts,
	}
}

// SetWebSocketHub sets the hub that receives status broadcasts.
func (o *Orchestrator) SetWebSocketHub(hub WebSocketHub) {
	o.hubMu.Lock()
	defer o.hubMu.Unlock()
	o.hub = hub
}

// Records returns the record store the orchestrator syncs.
func (o *Orchestrator) Records() *store.Records {
	return o.records
}

// Monitor returns the connectivity monitor consulted by the guards.
func (o *Orchestrator) Monitor() connectivity.Monitor {
	return o.monitor
}

// RunSyncCycle runs one cycle and discards the report. It never fails; the
// outcome is visible through Status and the records' synced flags.
func (o *Orchestrator) RunSyncCycle(ctx context.Context) {
	o.Sync(ctx)
}

// Sync runs one cycle and reports what happened. Once the guards pass the
// cycle runs to completion even if ctx is canceled.
func (o *Orchestrator) Sync(ctx context.Context) CycleReport {
	if reason, ok := o.acquire(ctx); !ok {
		metrics.RecordSkip(reason)
		logging.Debug().Str("reason", reason).Msg("Sync cycle skipped")
		last, _ := o.records.LastSync(context.WithoutCancel(ctx))
		return CycleReport{Outcome: OutcomeSkipped, Reason: reason, LastSync: last}
	}

	ctx = logging.ContextWithNewCorrelationID(context.WithoutCancel(ctx))
	start := time.Now()
	metrics.SetSyncing(true)
	o.BroadcastStatus(ctx)

	report := o.run(ctx)
	report.CorrelationID = logging.CorrelationIDFromContext(ctx)
	report.Duration = time.Since(start)
	if last, err := o.records.LastSync(ctx); err == nil {
		report.LastSync = last
	}

	o.release(report)
	metrics.SetSyncing(false)
	metrics.RecordCycle(string(report.Outcome), report.Duration)

	logging.Ctx(ctx).Info().
		Str("outcome", string(report.Outcome)).
		Int("batches", len(report.Tiers)).
		Dur("duration", report.Duration).
		Msg("Sync cycle finished")

	o.BroadcastStatus(ctx)
	return report
}

// acquire checks the guards and latches the cycle.
func (o *Orchestrator) acquire(ctx context.Context) (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	now := o.opts.Now()
	if !o.lastAttempt.IsZero() && now.Sub(o.lastAttempt) < o.opts.Debounce {
		return SkipDebounced, false
	}
	if o.syncing {
		return SkipInProgress, false
	}
	if !o.monitor.Online() {
		return SkipOffline, false
	}
	if ctx.Err() != nil {
		return SkipCanceled, false
	}

	o.lastAttempt = now
	o.syncing = true
	return "", true
}

func (o *Orchestrator) release(report CycleReport) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.syncing = false
	if report.Succeeded() {
		o.successUntil = o.opts.Now().Add(o.opts.SuccessDisplay)
	}
}

func (o *Orchestrator) run(ctx context.Context) CycleReport {
	log := logging.Ctx(ctx)

	logs, err := o.records.SymptomLogs(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load symptom logs")
		return CycleReport{Outcome: OutcomeFailed}
	}
	patients, err := o.records.Patients(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load patients")
		return CycleReport{Outcome: OutcomeFailed}
	}
	enrollments, err := o.records.Enrollments(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load enrollments")
		return CycleReport{Outcome: OutcomeFailed}
	}

	p := newPending(logs, patients, enrollments)
	if p.empty() {
		return o.confirmUpToDate(ctx)
	}

	var (
		report    CycleReport
		latest    time.Time
		succeeded int
		storeErr  error
	)

	for _, tier := range Tiers {
		batch := p.batch(tier)
		if batch.Empty() {
			continue
		}

		tr := TierReport{Tier: tier, Records: batch.Len()}
		res, err := o.remote.SyncBatch(ctx, batch)
		tr.Success = remote.Accepted(res, err)
		metrics.RecordTier(tier.String(), tr.Success)

		if tier == TierUrgent {
			o.trackUrgent(tr.Success)
		}

		if !tr.Success {
			report.Tiers = append(report.Tiers, tr)
			ev := log.Warn().Str("tier", tier.String()).Int("records", tr.Records)
			if err != nil {
				ev = ev.Err(err)
			}
			if tier == TierUrgent {
				ev.Msg("Urgent batch failed, aborting sync cycle")
				report.Outcome = OutcomeFailed
				return report
			}
			// Held back until the next cycle rather than folded into a later tier.
			ev.Msg("Sync batch failed, continuing with next tier")
			p.remove(batch)
			continue
		}

		succeeded++
		tr.ServerTime = res.LastSync
		var committed time.Time
		committed, tr.TimeSource = o.commitTime(ctx, tier, res.LastSync)
		if committed.After(latest) {
			latest = committed
		}

		marked, err := o.records.MarkSynced(ctx, batch)
		tr.Marked, tr.Stale = marked.Total(), marked.Stale
		report.Tiers = append(report.Tiers, tr)
		metrics.RecordTierRecords(tier.String(), string(models.KindSymptomLog), marked.SymptomLogs)
		metrics.RecordTierRecords(tier.String(), string(models.KindPatient), marked.Patients)
		metrics.RecordTierRecords(tier.String(), string(models.KindPatientEnrollment), marked.PatientEnrollments)
		if err != nil {
			// The remote holds the batch; it is resent next cycle and upserted.
			log.Error().Err(err).Str("tier", tier.String()).Msg("Failed to mark batch synced")
			storeErr = err
			break
		}

		log.Debug().
			Str("tier", tier.String()).
			Int("records", tr.Records).
			Int("marked", tr.Marked).
			Int("stale", tr.Stale).
			Msg("Sync batch accepted")
		p.remove(batch)
	}

	if succeeded == 0 {
		report.Outcome = OutcomeFailed
		return report
	}

	if !latest.IsZero() {
		if _, err := o.records.AdvanceLastSync(ctx, latest.Format(remote.TimestampFormat)); err != nil {
			log.Error().Err(err).Msg("Failed to persist last sync time")
			storeErr = err
		}
	}

	report.Outcome = OutcomeSuccess
	if succeeded < len(report.Tiers) || storeErr != nil {
		report.Outcome = OutcomePartial
	}
	return report
}

// commitTime returns the remote's commit time for an accepted tier in UTC.
// A missing or unreadable timestamp falls back to the local clock.
func (o *Orchestrator) commitTime(ctx context.Context, tier Tier, raw string) (time.Time, string) {
	log := logging.Ctx(ctx)
	ts, err := remote.ParseTimestamp(raw)
	if err == nil {
		log.Debug().Str("tier", tier.String()).Str("time_source", TimeSourceServer).Time("commit_time", ts).Msg("Using remote commit time")
		return ts, TimeSourceServer
	}
	now := o.opts.Now().UTC()
	log.Warn().Err(err).
		Str("tier", tier.String()).
		Str("server_time", raw).
		Str("time_source", TimeSourceLocalClock).
		Msg("Remote commit time unusable, using local clock")
	return now, TimeSourceLocalClock
}

// confirmUpToDate handles a cycle with nothing to send.
func (o *Orchestrator) confirmUpToDate(ctx context.Context) CycleReport {
	_ = o.opts.Sleep(ctx, o.opts.EmptyCycleDelay)

	ts := o.opts.Now().UTC().Format(remote.TimestampFormat)
	if _, err := o.records.AdvanceLastSync(ctx, ts); err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("Failed to persist last sync time")
		return CycleReport{Outcome: OutcomeFailed}
	}
	return CycleReport{Outcome: OutcomeUpToDate}
}

func (o *Orchestrator) trackUrgent(ok bool) {
	if ok {
		o.urgentFailures = 0
	} else {
		o.urgentFailures++
	}
	metrics.UrgentConsecutiveFailures.Set(float64(o.urgentFailures))
}

// Status returns the current sync state.
func (o *Orchestrator) Status(ctx context.Context) (Status, error) {
	o.mu.Lock()
	st := Status{
		IsSyncing:   o.syncing,
		SyncSuccess: o.opts.Now().Before(o.successUntil),
	}
	o.mu.Unlock()

	st.Online = o.monitor.Online()

	counts, err := o.records.UnsyncedCounts(ctx)
	if err != nil {
		return st, err
	}
	st.Records = counts
	for kind, c := range counts {
		st.UnsyncedCount += c.Unsynced
		metrics.UnsyncedRecords.WithLabelValues(string(kind)).Set(float64(c.Unsynced))
	}

	st.LastSync, err = o.records.LastSync(ctx)
	return st, err
}

// BroadcastStatus pushes the current status to the websocket hub, if any.
func (o *Orchestrator) BroadcastStatus(ctx context.Context) {
	o.hubMu.RLock()
	hub := o.hub
	o.hubMu.RUnlock()
	if hub == nil {
		return
	}

	st, err := o.Status(ctx)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Failed to read sync status for broadcast")
		return
	}
	hub.BroadcastJSON(MessageTypeSyncStatus, st)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
