// Fieldsync - Offline-First Field Health Data Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldsync

package remote

import (
	"context"
	"time"

	"github.com/tomtom215/fieldsync/internal/metrics"
	"github.com/tomtom215/fieldsync/internal/models"
)

// Instrumented records latency and result of every batch.
type Instrumented struct {
	next MergeStore
	name string
}

// NewInstrumented wraps next. name is the metrics label.
func NewInstrumented(name string, next MergeStore) *Instrumented {
	return &Instrumented{next: next, name: name}
}

// SyncBatch implements MergeStore.
func (i *Instrumented) SyncBatch(ctx context.Context, payload *models.SyncPayload) (*models.SyncResult, error) {
	start := time.Now()
	res, err := i.next.SyncBatch(ctx, payload)

	result := "success"
	switch {
	case err != nil:
		result = "error"
	case res == nil || !res.Success:
		result = "rejected"
	}
	metrics.RecordRemoteCall(i.name, result, time.Since(start))
	return res, err
}
