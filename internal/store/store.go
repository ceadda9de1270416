// Fieldsync - Offline-First Field Health Data Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldsync

// Package store is the local record store.
//
// Store is a small key-value boundary: whole collections are read and written
// under a key, and subscribers are told which key changed. Two implementations
// exist: BadgerStore for on-device persistence and MemoryStore for tests and
// ephemeral nodes.
//
// Records layers typed access on top of a Store. It is the only writer of the
// record collections and of the lastSync key.
package store

import (
	"context"
	"errors"
	"sync"
)

// Errors returned by stores.
var (
	ErrClosed   = errors.New("store: closed")
	ErrNotFound = errors.New("store: key not found")
)

// Keys used by Records.
const (
	KeySymptomLogs        = "symptomLogs"
	KeyPatients           = "patients"
	KeyPatientEnrollments = "patientEnrollments"
	KeyLastSync           = "lastSync"
)

// Store is a key-value store with change notification.
type Store interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key and notifies subscribers.
	Set(ctx context.Context, key string, value []byte) error

	// Subscribe returns a channel receiving the key of every Set. Delivery is
	// best effort: a subscriber that is not keeping up misses keys but always
	// receives at least one after its last read. cancel releases the
	// subscription and closes the channel.
	Subscribe() (changes <-chan string, cancel func())

	Close() error
}

// notifier fans key changes out to subscribers. Sends never block Set.
type notifier struct {
	mu     sync.Mutex
	subs   map[int]chan string
	nextID int
	closed bool
}

func newNotifier() *notifier {
	return &notifier{subs: make(map[int]chan string)}
}

func (n *notifier) subscribe() (<-chan string, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	ch := make(chan string, 16)
	if n.closed {
		close(ch)
		return ch, func() {}
	}

	id := n.nextID
	n.nextID++
	n.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			if c, ok := n.subs[id]; ok {
				delete(n.subs, id)
				close(c)
			}
		})
	}
}

func (n *notifier) notify(key string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ch := range n.subs {
		select {
		case ch <- key:
		default:
		}
	}
}

func (n *notifier) close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = true
	for id, ch := range n.subs {
		delete(n.subs, id)
		close(ch)
	}
}
