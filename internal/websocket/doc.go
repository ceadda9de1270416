// Fieldsync - Offline-First Field Health Data Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldsync

/*
Package websocket pushes sync status to connected UI clients.

The UI shows whether a sync is running, when the device last synced, a short
lived success indicator, and how many records are still waiting. Those values
change when a cycle starts or ends and whenever a record is edited locally,
so the server pushes them instead of having clients poll.

Key Components:

  - Hub: tracks connected clients and fans messages out to them
  - Client: one connection with a read goroutine and a write goroutine
  - Message: {"type": ..., "data": ...} envelope

Message Types:

  - sync_status: the current sync status (see sync.Status)
  - ping / pong: application level keepalive initiated by the client

Slow clients whose send buffer is full are dropped rather than allowed to
block the hub.

Usage:

	hub := websocket.NewHub()
	go hub.RunWithContext(ctx)

	orchestrator.SetWebSocketHub(hub)

	// in the /ws handler
	client := websocket.NewClient(hub, conn)
	hub.Register <- client
	client.Start()

Thread Safety:

All Hub methods are safe for concurrent use. BroadcastJSON never blocks; if
the hub's queue is full the message is dropped and counted.
*/
package websocket
