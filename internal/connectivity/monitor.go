// Fieldsync - Offline-First Field Health Data Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldsync

// Package connectivity reports whether the remote is reachable.
//
// A Monitor exposes the current state and publishes transitions. Static is
// driven explicitly (through the API, or by tests). Prober polls a URL and
// feeds the result into a Static.
package connectivity

import (
	"sync"

	"github.com/tomtom215/fieldsync/internal/logging"
	"github.com/tomtom215/fieldsync/internal/metrics"
)

// component tags this package's log lines.
const component = "connectivity"

// Monitor is the network reachability boundary.
type Monitor interface {
	// Online reports the current state.
	Online() bool

	// Subscribe returns a channel that receives the new state on every
	// transition. A slow reader sees only the newest state, so a received
	// true means the monitor went online at least once since the last read.
	// cancel releases the subscription and closes the channel.
	Subscribe() (transitions <-chan bool, cancel func())
}

// Setter is a Monitor whose state can be forced.
type Setter interface {
	Monitor
	SetOnline(online bool)
}

// Static is a Monitor whose state is set by the caller.
type Static struct {
	mu     sync.Mutex
	online bool
	subs   map[int]chan bool
	nextID int
}

// NewStatic returns a Static in the given initial state.
func NewStatic(online bool) *Static {
	if online {
		metrics.Online.Set(1)
	} else {
		metrics.Online.Set(0)
	}
	return &Static{online: online, subs: make(map[int]chan bool)}
}

// Online implements Monitor.
func (s *Static) Online() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online
}

// SetOnline changes the state. Subscribers are notified only when the state
// actually changes.
func (s *Static) SetOnline(online bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.online == online {
		return
	}
	s.online = online
	metrics.SetOnline(online)
	log := logging.WithComponent(component)
	log.Info().Bool("online", online).Msg("Connectivity changed")

	for _, ch := range s.subs {
		// Keep only the newest state in a full buffer.
		select {
		case ch <- online:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- online:
			default:
			}
		}
	}
}

// Subscribe implements Monitor.
func (s *Static) Subscribe() (<-chan bool, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan bool, 1)
	id := s.nextID
	s.nextID++
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
}
