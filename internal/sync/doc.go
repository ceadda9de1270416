// Fieldsync - Offline-First Field Health Data Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldsync

/*
Package sync delivers locally collected records to the remote merge store.

A cycle sends unsynced records in up to three batches, in priority order:

 1. Urgent: symptom logs flagged urgent, with the patients they reference.
    If this batch fails the cycle stops and nothing is marked synced.
 2. Severe: remaining logs with severity above 7, most severe first, with
    their patients. A failure here does not stop the cycle.
 3. Routine: every other unsynced log, oldest first, every remaining patient
    and every unsynced enrollment.

Records of an accepted batch are marked synced right away, so a later failure
in the same cycle does not undo earlier progress. Records of a failed batch
stay unsynced and are retried by the next cycle. The latest server timestamp
seen in the cycle becomes the persisted last sync time.

When nothing is unsynced the cycle waits briefly, then records the current
time as the last sync, confirming that the device is up to date.

Orchestrator runs cycles and owns the single-flight guards. Manager decides
when to run them: on reconnect, on an interval while online, and on demand.

Usage:

	orch := sync.NewOrchestrator(records, merge, monitor, sync.DefaultOptions())
	mgr := sync.NewManager(&cfg.Sync, orch)
	if err := mgr.Start(ctx); err != nil {
	    return err
	}
	defer mgr.Stop()

	report := mgr.TriggerSync(ctx)
*/
package sync
