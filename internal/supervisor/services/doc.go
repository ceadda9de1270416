// Fieldsync - Offline-First Field Health Data Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldsync

// Package services adapts fieldsync's long-running components to
// suture.Service so the supervisor tree can restart them.
//
//   - SyncService: Start/Stop lifecycle of the sync manager
//   - WebSocketHubService: the status broadcast hub
//   - ConnectivityService: the reachability prober
//   - StoreGCService: periodic Badger value log GC
//   - HTTPServerService: ListenAndServe with graceful shutdown
//
// Every wrapper implements fmt.Stringer so suture's log lines name it.
package services
