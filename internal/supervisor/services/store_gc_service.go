// Fieldsync - Offline-First Field Health Data Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldsync

package services

import (
	"context"
	"time"

	"github.com/tomtom215/fieldsync/internal/logging"
	"github.com/tomtom215/fieldsync/internal/metrics"
)

// GarbageCollector matches *store.BadgerStore.
type GarbageCollector interface {
	RunGC() error
}

// StoreGCService compacts the Badger value log on a fixed interval.
//
// A failed pass is logged and counted but does not stop the service; the
// next tick tries again.
type StoreGCService struct {
	store    GarbageCollector
	interval time.Duration
	name     string
}

// NewStoreGCService wraps store. A non-positive interval means 10m.
func NewStoreGCService(store GarbageCollector, interval time.Duration) *StoreGCService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &StoreGCService{
		store:    store,
		interval: interval,
		name:     "store-gc",
	}
}

// Serve implements suture.Service.
func (s *StoreGCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.collect()
		}
	}
}

func (s *StoreGCService) collect() {
	start := time.Now()
	if err := s.store.RunGC(); err != nil {
		metrics.StoreErrors.WithLabelValues("gc").Inc()
		logging.Warn().Err(err).Msg("Store value log GC failed")
		return
	}
	metrics.StoreOperationDuration.WithLabelValues("gc").Observe(time.Since(start).Seconds())
	logging.Debug().Dur("took", time.Since(start)).Msg("Store value log GC finished")
}

func (s *StoreGCService) String() string {
	return s.name
}
