// Fieldsync - Offline-First Field Health Data Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldsync

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/fieldsync/internal/api"
	"github.com/tomtom215/fieldsync/internal/config"
	"github.com/tomtom215/fieldsync/internal/logging"
	"github.com/tomtom215/fieldsync/internal/store"
	"github.com/tomtom215/fieldsync/internal/supervisor"
	"github.com/tomtom215/fieldsync/internal/supervisor/services"
	"github.com/tomtom215/fieldsync/internal/sync"
	ws "github.com/tomtom215/fieldsync/internal/websocket"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Output:    os.Stderr,
	})

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("Fieldsync stopped with an error")
	}
	logging.Info().Msg("Fieldsync stopped")
}

func run(cfg *config.Config) error {
	logging.Info().Str("addr", cfg.Server.Addr()).Msg("Starting Fieldsync")

	kv, gc, err := openStore(&cfg.Store)
	if err != nil {
		return err
	}
	defer func() {
		if err := kv.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing store")
		}
	}()
	records := store.NewRecords(kv)

	rs, err := buildRemote(&cfg.Remote)
	if err != nil {
		return err
	}

	monitor, prober, err := buildMonitor(&cfg.Connectivity)
	if err != nil {
		return err
	}

	// The hub exists before the orchestrator so the first cycle can broadcast.
	wsHub := ws.NewHub()
	orch := sync.NewOrchestrator(records, rs.merge, monitor, sync.OptionsFromConfig(&cfg.Sync))
	orch.SetWebSocketHub(wsHub)
	manager := sync.NewManager(&cfg.Sync, orch)

	handler := api.NewHandler(records, manager, monitor, cfg, wsHub)
	router := api.NewRouter(handler, api.NewChiMiddleware(api.ChiMiddlewareConfigFromServer(&cfg.Server)))
	if rs.endpoint != nil {
		router.MountRemote(rs.endpoint)
		logging.Info().Str("path", api.RemoteSyncPath).Msg("Serving remote merge endpoint")
	}
	if len(cfg.Server.CORSOrigins) == 1 && cfg.Server.CORSOrigins[0] == "*" {
		logging.Warn().Msg("CORS allows any origin (CORS_ORIGINS=*); restrict it outside a trusted network")
	}

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       2 * cfg.Server.Timeout,
	}

	// Bridges zerolog to slog for sutureslog.
	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: shutdownTimeout,
	})
	if err != nil {
		return err
	}

	if gc != nil && cfg.Store.GCInterval > 0 {
		tree.AddDataService(services.NewStoreGCService(gc, cfg.Store.GCInterval))
	}
	tree.AddSyncService(services.NewWebSocketHubService(wsHub))
	if prober != nil {
		tree.AddSyncService(services.NewConnectivityService(prober))
	}
	tree.AddSyncService(services.NewSyncService(manager))
	tree.AddAPIService(services.NewHTTPServerService(server, shutdownTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.Info().
		Str("remote", cfg.Remote.Mode).
		Str("connectivity", cfg.Connectivity.Mode).
		Dur("sync_interval", cfg.Sync.Interval).
		Msg("Supervisor tree starting")

	err = tree.Serve(ctx)
	if report, rerr := tree.UnstoppedServiceReport(); rerr == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop before the shutdown timeout")
		}
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
