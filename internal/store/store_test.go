// Fieldsync - Offline-First Field Health Data Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldsync

package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

// storeFactories runs the contract tests against every implementation.
var storeFactories = map[string]func(t *testing.T) Store{
	"memory": func(*testing.T) Store { return NewMemoryStore() },
	"badger": func(t *testing.T) Store {
		t.Helper()
		opts := DefaultBadgerOptions("")
		opts.InMemory = true
		s, err := OpenBadger(opts)
		if err != nil {
			t.Fatalf("OpenBadger: %v", err)
		}
		return s
	},
}

func TestStoreContract(t *testing.T) {
	for name, factory := range storeFactories {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := factory(t)
			defer s.Close()

			if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
			}

			if err := s.Set(ctx, "k", []byte("v1")); err != nil {
				t.Fatalf("Set: %v", err)
			}
			got, err := s.Get(ctx, "k")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if string(got) != "v1" {
				t.Errorf("Get = %q, want v1", got)
			}

			// Overwrite replaces.
			if err := s.Set(ctx, "k", []byte("v2")); err != nil {
				t.Fatalf("Set: %v", err)
			}
			got, _ = s.Get(ctx, "k")
			if string(got) != "v2" {
				t.Errorf("Get = %q, want v2", got)
			}
		})
	}
}

func TestStoreSubscribe(t *testing.T) {
	for name, factory := range storeFactories {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := factory(t)
			defer s.Close()

			changes, cancel := s.Subscribe()

			if err := s.Set(ctx, KeyPatients, []byte("[]")); err != nil {
				t.Fatalf("Set: %v", err)
			}

			select {
			case key := <-changes:
				if key != KeyPatients {
					t.Errorf("change key = %q, want %q", key, KeyPatients)
				}
			case <-time.After(time.Second):
				t.Fatal("no change notification")
			}

			cancel()
			cancel() // idempotent
			if _, ok := <-changes; ok {
				t.Error("channel should be closed after cancel")
			}
		})
	}
}

func TestStoreClosed(t *testing.T) {
	for name, factory := range storeFactories {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := factory(t)
			changes, _ := s.Subscribe()

			if err := s.Close(); err != nil {
				t.Fatalf("Close: %v", err)
			}
			if _, ok := <-changes; ok {
				t.Error("subscriptions should close with the store")
			}
			if err := s.Set(ctx, "k", nil); !errors.Is(err, ErrClosed) {
				t.Errorf("Set after Close = %v, want ErrClosed", err)
			}
			if _, err := s.Get(ctx, "k"); !errors.Is(err, ErrClosed) {
				t.Errorf("Get after Close = %v, want ErrClosed", err)
			}
		})
	}
}

func TestStoreCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewMemoryStore()
	defer s.Close()
	if err := s.Set(ctx, "k", []byte("v")); !errors.Is(err, context.Canceled) {
		t.Errorf("Set = %v, want context.Canceled", err)
	}
}

func TestBadgerPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := OpenBadger(DefaultBadgerOptions(dir))
	if err != nil {
		t.Fatalf("OpenBadger: %v", err)
	}
	if err := s.Set(ctx, KeyLastSync, []byte("2026-03-01T10:00:00Z")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s, err = OpenBadger(DefaultBadgerOptions(dir))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	got, err := s.Get(ctx, KeyLastSync)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "2026-03-01T10:00:00Z" {
		t.Errorf("Get = %q", got)
	}

	keys, err := s.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 1 || keys[0] != KeyLastSync {
		t.Errorf("Keys = %v, want [lastSync]", keys)
	}
}

func TestRunGCInMemoryIsNoop(t *testing.T) {
	opts := DefaultBadgerOptions("")
	opts.InMemory = true
	s, err := OpenBadger(opts)
	if err != nil {
		t.Fatalf("OpenBadger: %v", err)
	}
	if err := s.RunGC(); err != nil {
		t.Errorf("RunGC = %v, want nil", err)
	}
	_ = s.Close()
	if err := s.RunGC(); !errors.Is(err, ErrClosed) {
		t.Errorf("RunGC after Close = %v, want ErrClosed", err)
	}
}

func TestOpenBadgerRequiresPath(t *testing.T) {
	if _, err := OpenBadger(BadgerOptions{}); err == nil {
		t.Fatal("expected error without path")
	}
}
