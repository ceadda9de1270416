// Fieldsync - Offline-First Field Health Data Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldsync

// Package config loads Fieldsync configuration.
//
// Configuration is layered with koanf v2:
//  1. Defaults from defaultConfig()
//  2. An optional YAML file (CONFIG_PATH, or config.yaml in the working directory)
//  3. Environment variables listed in envMappings
//
// Later layers override earlier ones. The merged result is validated before it
// is returned.
//
//	cfg, err := config.Load()
//	if err != nil {
//	    logging.Fatal().Err(err).Msg("Failed to load config")
//	}
package config

import (
	"fmt"
	"time"
)

// Config is the complete process configuration.
type Config struct {
	Store        StoreConfig        `koanf:"store"`
	Sync         SyncConfig         `koanf:"sync"`
	Remote       RemoteConfig       `koanf:"remote"`
	Connectivity ConnectivityConfig `koanf:"connectivity"`
	Server       ServerConfig       `koanf:"server"`
	Logging      LoggingConfig      `koanf:"logging"`
}

// StoreConfig configures the local record store.
type StoreConfig struct {
	// Path is the Badger data directory.
	Path string `koanf:"path"`

	// InMemory keeps everything in memory. Records are lost on restart.
	InMemory bool `koanf:"in_memory"`

	// GCInterval is how often Badger's value log is compacted. Zero disables it.
	GCInterval time.Duration `koanf:"gc_interval"`
}

// SyncConfig holds the sync engine timings.
type SyncConfig struct {
	// Interval between periodic cycles while online.
	Interval time.Duration `koanf:"interval"`

	// Debounce is the minimum gap between two cycle attempts.
	Debounce time.Duration `koanf:"debounce"`

	// EmptyCycleDelay is how long a cycle with nothing to send stays "syncing"
	// before reporting success.
	EmptyCycleDelay time.Duration `koanf:"empty_cycle_delay"`

	// SuccessDisplay is how long the success indicator stays raised.
	SuccessDisplay time.Duration `koanf:"success_display"`

	// OnStart runs one cycle as soon as the engine starts.
	OnStart bool `koanf:"on_start"`
}

// Remote modes.
const (
	RemoteModeSimulated = "simulated"
	RemoteModeHTTP      = "http"
)

// RemoteConfig selects and configures the remote merge store.
type RemoteConfig struct {
	// Mode is simulated (in-process store) or http.
	Mode string `koanf:"mode"`

	// URL receives sync batches in http mode.
	URL string `koanf:"url"`

	// Timeout bounds a single http batch.
	Timeout time.Duration `koanf:"timeout"`

	// FailureRate is the fraction of simulated batches that fail.
	FailureRate float64 `koanf:"failure_rate"`

	// Latency is the simulated round trip.
	Latency time.Duration `koanf:"latency"`

	// ServeEndpoint mounts the simulated store on this node's HTTP API so other
	// nodes can use it as their remote.
	ServeEndpoint bool `koanf:"serve_endpoint"`

	Breaker BreakerConfig `koanf:"breaker"`
}

// BreakerConfig configures the circuit breaker in front of the remote.
type BreakerConfig struct {
	Enabled bool `koanf:"enabled"`

	// MaxRequests allowed through while half-open.
	MaxRequests uint32 `koanf:"max_requests"`

	// Interval clears the failure counts while closed. Zero never clears.
	Interval time.Duration `koanf:"interval"`

	// Timeout is how long the breaker stays open.
	Timeout time.Duration `koanf:"timeout"`

	// ConsecutiveFailures trips the breaker.
	ConsecutiveFailures uint32 `koanf:"consecutive_failures"`
}

// Connectivity modes.
const (
	ConnectivityModeStatic = "static"
	ConnectivityModeProbe  = "probe"
)

// ConnectivityConfig selects how reachability is detected.
type ConnectivityConfig struct {
	// Mode is static (set through the API) or probe (HTTP polling).
	Mode string `koanf:"mode"`

	ProbeURL      string        `koanf:"probe_url"`
	ProbeInterval time.Duration `koanf:"probe_interval"`
	ProbeTimeout  time.Duration `koanf:"probe_timeout"`

	// InitiallyOnline is the state before the first probe or API call.
	InitiallyOnline bool `koanf:"initially_online"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`

	CORSOrigins []string `koanf:"cors_origins"`

	// RateLimitReqs manual sync requests per RateLimitWindow per client.
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	// Level: trace, debug, info, warn, error.
	Level string `koanf:"level"`

	// Format: json or console.
	Format string `koanf:"format"`

	Caller bool `koanf:"caller"`
}
