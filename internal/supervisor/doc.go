// Fieldsync - Offline-First Field Health Data Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldsync

/*
Package supervisor runs fieldsync's long-lived services under suture v4.

The tree has three layers so that a failure in one does not take down the
others:

	fieldsync
	├── data-layer
	│   └── StoreGCService (Badger only)
	├── sync-layer
	│   ├── WebSocketHubService
	│   ├── ConnectivityService (probe mode only)
	│   └── SyncService
	└── api-layer
	    └── HTTPServerService

Crashed services are restarted with suture's backoff. Supervisor events are
logged through sutureslog, using the slog adapter from internal/logging so
they land in the same zerolog stream as everything else.

Usage:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		return err
	}
	tree.AddSyncService(services.NewSyncService(manager))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	err = tree.Serve(ctx)

The service wrappers live in the services subpackage.
*/
package supervisor
