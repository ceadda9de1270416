// Fieldsync - Offline-First Field Health Data Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldsync

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/fieldsync/config.yaml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Path:       "/data/fieldsync",
			InMemory:   false,
			GCInterval: 10 * time.Minute,
		},
		Sync: SyncConfig{
			Interval:        5 * time.Minute,
			Debounce:        2 * time.Second,
			EmptyCycleDelay: 500 * time.Millisecond,
			SuccessDisplay:  3 * time.Second,
			OnStart:         false,
		},
		Remote: RemoteConfig{
			Mode:          RemoteModeSimulated,
			URL:           "",
			Timeout:       30 * time.Second,
			FailureRate:   0.1,
			Latency:       1500 * time.Millisecond,
			ServeEndpoint: false,
			Breaker: BreakerConfig{
				Enabled:             true,
				MaxRequests:         1,
				Interval:            0,
				Timeout:             60 * time.Second,
				ConsecutiveFailures: 5,
			},
		},
		Connectivity: ConnectivityConfig{
			Mode:            ConnectivityModeStatic,
			ProbeURL:        "",
			ProbeInterval:   15 * time.Second,
			ProbeTimeout:    5 * time.Second,
			InitiallyOnline: true,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8484,
			Timeout:         30 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   10,
			RateLimitWindow: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load builds the configuration from defaults, the config file and the
// environment, then validates it.
func Load() (*Config, error) {
	return load(findConfigFile())
}

// LoadFile is Load with an explicit config file path. An empty path skips
// the file layer.
func LoadFile(path string) (*Config, error) {
	return load(path)
}

func load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// SYNC_INTERVAL -> sync.interval, HTTP_PORT -> server.port
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths are parsed as comma-separated lists when set from the environment.
var sliceConfigPaths = []string{
	"server.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to config paths.
// Unlisted variables are ignored.
var envMappings = map[string]string{
	"store_path":        "store.path",
	"store_in_memory":   "store.in_memory",
	"store_gc_interval": "store.gc_interval",

	"sync_interval":          "sync.interval",
	"sync_debounce":          "sync.debounce",
	"sync_empty_cycle_delay": "sync.empty_cycle_delay",
	"sync_success_display":   "sync.success_display",
	"sync_on_start":          "sync.on_start",

	"remote_mode":                         "remote.mode",
	"remote_url":                          "remote.url",
	"remote_timeout":                      "remote.timeout",
	"remote_failure_rate":                 "remote.failure_rate",
	"remote_latency":                      "remote.latency",
	"remote_serve_endpoint":               "remote.serve_endpoint",
	"remote_breaker_enabled":              "remote.breaker.enabled",
	"remote_breaker_max_requests":         "remote.breaker.max_requests",
	"remote_breaker_interval":             "remote.breaker.interval",
	"remote_breaker_timeout":              "remote.breaker.timeout",
	"remote_breaker_consecutive_failures": "remote.breaker.consecutive_failures",

	"connectivity_mode":             "connectivity.mode",
	"connectivity_probe_url":        "connectivity.probe_url",
	"connectivity_probe_interval":   "connectivity.probe_interval",
	"connectivity_probe_timeout":    "connectivity.probe_timeout",
	"connectivity_initially_online": "connectivity.initially_online",

	"http_host":         "server.host",
	"http_port":         "server.port",
	"http_timeout":      "server.timeout",
	"cors_origins":      "server.cors_origins",
	"rate_limit_reqs":   "server.rate_limit_reqs",
	"rate_limit_window": "server.rate_limit_window",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
