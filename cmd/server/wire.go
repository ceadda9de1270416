// Fieldsync - Offline-First Field Health Data Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldsync

package main

import (
	"fmt"
	"net/http"

	"github.com/tomtom215/fieldsync/internal/config"
	"github.com/tomtom215/fieldsync/internal/connectivity"
	"github.com/tomtom215/fieldsync/internal/logging"
	"github.com/tomtom215/fieldsync/internal/remote"
	"github.com/tomtom215/fieldsync/internal/store"
	"github.com/tomtom215/fieldsync/internal/supervisor/services"
)

// openStore returns the local store. gc is non-nil only for a persistent
// Badger store.
func openStore(cfg *config.StoreConfig) (kv store.Store, gc services.GarbageCollector, err error) {
	if cfg.InMemory {
		logging.Warn().Msg("Using in-memory store (STORE_IN_MEMORY=true); records are lost on restart")
		return store.NewMemoryStore(), nil, nil
	}

	badgerStore, err := store.OpenBadger(store.DefaultBadgerOptions(cfg.Path))
	if err != nil {
		return nil, nil, fmt.Errorf("open store at %s: %w", cfg.Path, err)
	}
	logging.Info().Str("path", cfg.Path).Msg("Badger store opened")
	return badgerStore, badgerStore, nil
}

// remoteStack is the merge store the sync engine talks to. endpoint is the
// handler to expose on this node, or nil.
type remoteStack struct {
	merge    remote.MergeStore
	endpoint http.Handler
}

// buildRemote layers breaker and metrics around the configured remote:
// Instrumented -> CircuitBreaker -> Simulated|HTTPClient.
func buildRemote(cfg *config.RemoteConfig) (remoteStack, error) {
	var (
		base     remote.MergeStore
		endpoint http.Handler
	)

	switch cfg.Mode {
	case config.RemoteModeSimulated:
		sim := remote.NewSimulated(
			remote.WithFailureRate(cfg.FailureRate),
			remote.WithLatency(cfg.Latency),
		)
		base = sim
		if cfg.ServeEndpoint {
			endpoint = remote.NewHandler(sim)
		}
		logging.Info().
			Float64("failure_rate", cfg.FailureRate).
			Dur("latency", cfg.Latency).
			Bool("serve_endpoint", cfg.ServeEndpoint).
			Msg("Using simulated remote")

	case config.RemoteModeHTTP:
		client, err := remote.NewHTTPClient(cfg.URL, cfg.Timeout)
		if err != nil {
			return remoteStack{}, fmt.Errorf("create remote client: %w", err)
		}
		base = client
		if cfg.ServeEndpoint {
			logging.Warn().Msg("REMOTE_SERVE_ENDPOINT ignored: only a simulated remote can be served")
		}
		logging.Info().Str("url", cfg.URL).Msg("Using HTTP remote")

	default:
		return remoteStack{}, fmt.Errorf("unknown remote mode %q", cfg.Mode)
	}

	if cfg.Breaker.Enabled {
		base = remote.NewCircuitBreaker(base, remote.BreakerSettings{
			Name:                "remote",
			MaxRequests:         cfg.Breaker.MaxRequests,
			Interval:            cfg.Breaker.Interval,
			Timeout:             cfg.Breaker.Timeout,
			ConsecutiveFailures: cfg.Breaker.ConsecutiveFailures,
		})
	}

	return remoteStack{
		merge:    remote.NewInstrumented(cfg.Mode, base),
		endpoint: endpoint,
	}, nil
}

// buildMonitor returns the connectivity monitor. runner is non-nil when the
// monitor needs a supervised loop.
func buildMonitor(cfg *config.ConnectivityConfig) (connectivity.Monitor, services.Runner, error) {
	switch cfg.Mode {
	case config.ConnectivityModeStatic:
		return connectivity.NewStatic(cfg.InitiallyOnline), nil, nil

	case config.ConnectivityModeProbe:
		prober, err := connectivity.NewProber(connectivity.ProberConfig{
			URL:             cfg.ProbeURL,
			Interval:        cfg.ProbeInterval,
			Timeout:         cfg.ProbeTimeout,
			InitiallyOnline: cfg.InitiallyOnline,
		})
		if err != nil {
			return nil, nil, err
		}
		return prober, prober, nil

	default:
		return nil, nil, fmt.Errorf("unknown connectivity mode %q", cfg.Mode)
	}
}
