// Fieldsync - Offline-First Field Health Data Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldsync

/*
manager.go - Sync Trigger Layer

The Manager decides when the Orchestrator runs a cycle. It never decides
whether a cycle may run; the Orchestrator's guards do that, so racing triggers
are safe.

Triggers:
  - Connectivity: an offline to online transition runs a cycle
  - Interval: a ticker runs a cycle while online
  - Manual: TriggerSync runs a cycle and returns its report
  - Startup: optionally one cycle when the manager starts

The Manager also watches the record store and pushes a fresh status to
websocket clients whenever a collection changes, so the unsynced count shown
in the UI follows local edits.

Lifecycle:
  - Start(): subscribe and launch the trigger goroutines
  - Stop(): stop the ticker, drop subscriptions and wait for goroutines,
    including a cycle that is in flight
*/

//nolint:staticcheck // File documentation, not package doc
package sync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/fieldsync/internal/config"
	"github.com/tomtom215/fieldsync/internal/logging"
)

// Manager drives an Orchestrator from connectivity, timer and manual triggers.
type Manager struct {
	orch     *Orchestrator
	interval time.Duration
	onStart  bool

	mu       sync.RWMutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewManager creates a manager for orch using the sync config section.
func NewManager(cfg *config.SyncConfig, orch *Orchestrator) *Manager {
	return &Manager{
		orch:     orch,
		interval: cfg.Interval,
		onStart:  cfg.OnStart,
	}
}

// Start subscribes to connectivity and store changes and starts the interval
// timer.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("sync manager is already running")
	}
	m.running = true
	m.stopChan = make(chan struct{})
	stop := m.stopChan
	m.mu.Unlock()

	logging.Info().Dur("interval", m.interval).Msg("Starting sync manager...")

	transitions, cancelTransitions := m.orch.Monitor().Subscribe()
	changes, cancelChanges := m.orch.Records().Store().Subscribe()

	// Add before launching so Stop cannot Wait ahead of an Add.
	m.wg.Add(3)
	go m.connectivityLoop(ctx, stop, transitions, cancelTransitions)
	go m.syncLoop(ctx, stop)
	go m.statusLoop(ctx, stop, changes, cancelChanges)

	if m.onStart {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.orch.RunSyncCycle(ctx)
		}()
	}

	return nil
}

// Stop halts all triggers and waits for a running cycle to finish.
func (m *Manager) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return fmt.Errorf("sync manager is not running")
	}
	m.running = false
	close(m.stopChan)
	m.mu.Unlock()

	logging.Info().Msg("Stopping sync manager...")
	m.wg.Wait()
	logging.Info().Msg("Sync manager stopped")

	return nil
}

// IsRunning reports whether Start has been called without a matching Stop.
func (m *Manager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// TriggerSync runs a cycle on behalf of the user. Unlike the automatic
// triggers, the report is returned so a failure can be shown.
func (m *Manager) TriggerSync(ctx context.Context) CycleReport {
	return m.orch.Sync(ctx)
}

// Status returns the orchestrator's current status.
func (m *Manager) Status(ctx context.Context) (Status, error) {
	return m.orch.Status(ctx)
}

// connectivityLoop runs a cycle on every online notification. The monitor
// only publishes changes and coalesces to the newest state, so each received
// true stands for at least one offline to online edge since the last read.
func (m *Manager) connectivityLoop(ctx context.Context, stop <-chan struct{}, transitions <-chan bool, cancel func()) {
	defer m.wg.Done()
	defer cancel()

	for {
		select {
		case online, ok := <-transitions:
			if !ok {
				return
			}
			if online {
				logging.Info().Msg("Connectivity restored, starting sync")
				m.orch.RunSyncCycle(ctx)
			}
		case <-stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// syncLoop runs a cycle on every tick while online.
func (m *Manager) syncLoop(ctx context.Context, stop <-chan struct{}) {
	defer m.wg.Done()

	if m.interval <= 0 {
		return
	}
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !m.orch.Monitor().Online() {
				continue
			}
			m.orch.RunSyncCycle(ctx)
		case <-stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// statusLoop broadcasts the status after each store change.
func (m *Manager) statusLoop(ctx context.Context, stop <-chan struct{}, changes <-chan string, cancel func()) {
	defer m.wg.Done()
	defer cancel()

	for {
		select {
		case _, ok := <-changes:
			if !ok {
				return
			}
			m.orch.BroadcastStatus(context.WithoutCancel(ctx))
		case <-stop:
			return
		case <-ctx.Done():
			return
		}
	}
}
