// Fieldsync - Offline-First Field Health Data Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldsync

/*
Fieldsync runs one offline-first field node: a local record store for
symptom logs, patients and enrollments, a sync engine that pushes unsynced
records to a remote merge store in priority tiers, and an HTTP API for the
device UI.

# Process layout

	fieldsync
	├── data-layer
	│   └── store-gc              Badger value log GC (persistent store only)
	├── sync-layer
	│   ├── websocket-hub         sync status broadcasts
	│   ├── connectivity-prober   CONNECTIVITY_MODE=probe only
	│   └── sync-manager          interval, reconnect and edit triggers
	└── api-layer
	    └── http-server

# Configuration

Defaults, then an optional YAML file (CONFIG_PATH), then environment
variables. Commonly set:

	STORE_PATH=/data/fieldsync     # Badger directory
	STORE_IN_MEMORY=false
	SYNC_INTERVAL=5m
	REMOTE_MODE=simulated          # simulated or http
	REMOTE_URL=http://hub:8484/api/v1/remote/sync
	REMOTE_SERVE_ENDPOINT=false    # expose the simulated store to other nodes
	CONNECTIVITY_MODE=static       # static or probe
	CONNECTIVITY_PROBE_URL=http://hub:8484/api/v1/health/live
	HTTP_PORT=8484
	LOG_LEVEL=info
	LOG_FORMAT=json

SIGINT and SIGTERM stop the tree. A running sync cycle finishes its current
batch before the sync manager returns.
*/
package main
