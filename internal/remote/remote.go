// Fieldsync - Offline-First Field Health Data Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldsync

// Package remote is the boundary to the remote merge store.
//
// The remote accepts a batch of records, upserts each by id (last write
// wins), and answers with a success flag and its commit timestamp. A batch is
// all-or-nothing. Callers treat a returned error exactly like success=false.
//
// Implementations:
//   - Simulated: in-process store with injected latency and random failure
//   - HTTPClient: posts batches to a remote node
//   - CircuitBreaker: wraps another MergeStore with sony/gobreaker
//   - Instrumented: wraps another MergeStore with Prometheus metrics
//
// NewHandler serves any MergeStore over HTTP so one node can act as the
// remote for others.
package remote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/fieldsync/internal/models"
)

// component tags this package's log lines.
const component = "remote"

// ErrRemoteRejected marks a batch the remote answered with success=false.
var ErrRemoteRejected = errors.New("remote: batch rejected")

// MergeStore accepts sync batches.
type MergeStore interface {
	SyncBatch(ctx context.Context, payload *models.SyncPayload) (*models.SyncResult, error)
}

// MergeStoreFunc adapts a function to MergeStore.
type MergeStoreFunc func(ctx context.Context, payload *models.SyncPayload) (*models.SyncResult, error)

// SyncBatch implements MergeStore.
func (f MergeStoreFunc) SyncBatch(ctx context.Context, payload *models.SyncPayload) (*models.SyncResult, error) {
	return f(ctx, payload)
}

// Accepted reports whether res is a successful reply.
func Accepted(res *models.SyncResult, err error) bool {
	return err == nil && res != nil && res.Success
}

// timestampLayouts are the ISO-8601 forms accepted from a remote. Fractional
// seconds are optional in each.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05Z07",
	"20060102T150405Z0700",
}

// ParseTimestamp parses a remote commit timestamp in any of the accepted
// ISO-8601 forms and returns it in UTC.
func ParseTimestamp(s string) (time.Time, error) {
	var firstErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, fmt.Errorf("remote: parse timestamp %q: %w", s, firstErr)
}

// NormalizeTimestamp rewrites an accepted timestamp in TimestampFormat.
func NormalizeTimestamp(s string) (string, error) {
	t, err := ParseTimestamp(s)
	if err != nil {
		return "", err
	}
	return t.Format(TimestampFormat), nil
}
