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

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/fieldsync/internal/logging"
	"github.com/tomtom215/fieldsync/internal/metrics"
)

// keyPrefix namespaces collection keys inside the Badger keyspace.
const keyPrefix = "kv:"

// BadgerOptions configures OpenBadger.
type BadgerOptions struct {
	// Path is the data directory. Ignored when InMemory is set.
	Path string

	InMemory bool

	// SyncWrites fsyncs every write. Defaults to true via DefaultBadgerOptions.
	SyncWrites bool

	// GCRatio is passed to RunValueLogGC.
	GCRatio float64

	// CloseTimeout bounds Close.
	CloseTimeout time.Duration
}

// DefaultBadgerOptions returns options for a persistent store at path.
func DefaultBadgerOptions(path string) BadgerOptions {
	return BadgerOptions{
		Path:         path,
		SyncWrites:   true,
		GCRatio:      0.5,
		CloseTimeout: 30 * time.Second,
	}
}

// BadgerStore is a Store persisted with BadgerDB.
type BadgerStore struct {
	db     *badger.DB
	opts   BadgerOptions
	notify *notifier

	mu     sync.RWMutex
	closed bool
}

// OpenBadger opens or creates a Badger-backed store.
func OpenBadger(opts BadgerOptions) (*BadgerStore, error) {
	if !opts.InMemory && opts.Path == "" {
		return nil, errors.New("store: badger path is required")
	}
	if opts.GCRatio <= 0 || opts.GCRatio >= 1 {
		opts.GCRatio = 0.5
	}
	if opts.CloseTimeout <= 0 {
		opts.CloseTimeout = 30 * time.Second
	}

	bopts := badger.DefaultOptions(opts.Path)
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	}
	bopts.SyncWrites = opts.SyncWrites
	bopts.Logger = nil

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	logging.Info().
		Str("path", opts.Path).
		Bool("in_memory", opts.InMemory).
		Bool("sync_writes", opts.SyncWrites).
		Msg("Record store opened")

	return &BadgerStore{
		db:     db,
		opts:   opts,
		notify: newNotifier(),
	}, nil
}

func (s *BadgerStore) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// Get implements Store.
func (s *BadgerStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.isClosed() {
		return nil, ErrClosed
	}

	start := time.Now()
	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + key))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		metrics.RecordStoreOperation("get", time.Since(start), nil)
		return nil, ErrNotFound
	}
	metrics.RecordStoreOperation("get", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return out, nil
}

// Set implements Store.
func (s *BadgerStore) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.isClosed() {
		return ErrClosed
	}

	start := time.Now()
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry([]byte(keyPrefix+key), value))
	})
	metrics.RecordStoreOperation("set", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}

	s.notify.notify(key)
	return nil
}

// Keys lists the stored keys.
func (s *BadgerStore) Keys(ctx context.Context) ([]string, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}

	var keys []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(keyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			keys = append(keys, string(it.Item().Key()[len(prefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	return keys, nil
}

// Subscribe implements Store.
func (s *BadgerStore) Subscribe() (<-chan string, func()) {
	return s.notify.subscribe()
}

// RunGC reclaims value log space until Badger reports nothing to rewrite.
// In-memory stores have no value log and return immediately.
func (s *BadgerStore) RunGC() error {
	if s.isClosed() {
		return ErrClosed
	}
	if s.opts.InMemory {
		return nil
	}

	for {
		err := s.db.RunValueLogGC(s.opts.GCRatio)
		if errors.Is(err, badger.ErrNoRewrite) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("run GC: %w", err)
		}
	}
}

// Close implements Store. Subscriptions are closed first.
func (s *BadgerStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.notify.close()

	done := make(chan error, 1)
	go func() {
		done <- s.db.Close()
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("close BadgerDB: %w", err)
		}
		logging.Info().Msg("Record store closed")
		return nil
	case <-time.After(s.opts.CloseTimeout):
		logging.Warn().Dur("timeout", s.opts.CloseTimeout).Msg("BadgerDB close timed out")
		return fmt.Errorf("badgerdb close timeout after %v", s.opts.CloseTimeout)
	}
}
