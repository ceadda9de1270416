// Fieldsync - Offline-First Field Health Data Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldsync

package config

import (
	"errors"
	"fmt"
)

// Validate checks the merged configuration.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateStore,
		c.validateSync,
		c.validateRemote,
		c.validateConnectivity,
		c.validateServer,
		c.validateLogging,
	}
	for _, v := range validators {
		if err := v(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateStore() error {
	if !c.Store.InMemory && c.Store.Path == "" {
		return errors.New("STORE_PATH is required unless STORE_IN_MEMORY=true")
	}
	if c.Store.GCInterval < 0 {
		return fmt.Errorf("STORE_GC_INTERVAL must not be negative, got %v", c.Store.GCInterval)
	}
	return nil
}

func (c *Config) validateSync() error {
	if c.Sync.Interval <= 0 {
		return fmt.Errorf("SYNC_INTERVAL must be positive, got %v", c.Sync.Interval)
	}
	if c.Sync.Debounce < 0 {
		return fmt.Errorf("SYNC_DEBOUNCE must not be negative, got %v", c.Sync.Debounce)
	}
	if c.Sync.EmptyCycleDelay < 0 {
		return fmt.Errorf("SYNC_EMPTY_CYCLE_DELAY must not be negative, got %v", c.Sync.EmptyCycleDelay)
	}
	if c.Sync.SuccessDisplay < 0 {
		return fmt.Errorf("SYNC_SUCCESS_DISPLAY must not be negative, got %v", c.Sync.SuccessDisplay)
	}
	return nil
}

func (c *Config) validateRemote() error {
	switch c.Remote.Mode {
	case RemoteModeSimulated:
		if c.Remote.FailureRate < 0 || c.Remote.FailureRate > 1 {
			return fmt.Errorf("REMOTE_FAILURE_RATE must be between 0 and 1, got %v", c.Remote.FailureRate)
		}
		if c.Remote.Latency < 0 {
			return fmt.Errorf("REMOTE_LATENCY must not be negative, got %v", c.Remote.Latency)
		}
	case RemoteModeHTTP:
		if c.Remote.URL == "" {
			return errors.New("REMOTE_URL is required when REMOTE_MODE=http")
		}
		if err := validateHTTPURL(c.Remote.URL, "REMOTE_URL"); err != nil {
			return err
		}
		if c.Remote.Timeout <= 0 {
			return fmt.Errorf("REMOTE_TIMEOUT must be positive, got %v", c.Remote.Timeout)
		}
		if c.Remote.ServeEndpoint {
			return errors.New("REMOTE_SERVE_ENDPOINT requires REMOTE_MODE=simulated")
		}
	default:
		return fmt.Errorf("REMOTE_MODE must be one of: simulated, http, got %q", c.Remote.Mode)
	}
	return c.validateBreaker()
}

func (c *Config) validateBreaker() error {
	b := c.Remote.Breaker
	if !b.Enabled {
		return nil
	}
	if b.ConsecutiveFailures == 0 {
		return errors.New("REMOTE_BREAKER_CONSECUTIVE_FAILURES must be at least 1")
	}
	if b.Timeout <= 0 {
		return fmt.Errorf("REMOTE_BREAKER_TIMEOUT must be positive, got %v", b.Timeout)
	}
	return nil
}

func (c *Config) validateConnectivity() error {
	switch c.Connectivity.Mode {
	case ConnectivityModeStatic:
		return nil
	case ConnectivityModeProbe:
		if c.Connectivity.ProbeURL == "" {
			return errors.New("CONNECTIVITY_PROBE_URL is required when CONNECTIVITY_MODE=probe")
		}
		if err := validateHTTPURL(c.Connectivity.ProbeURL, "CONNECTIVITY_PROBE_URL"); err != nil {
			return err
		}
		if c.Connectivity.ProbeInterval <= 0 {
			return fmt.Errorf("CONNECTIVITY_PROBE_INTERVAL must be positive, got %v", c.Connectivity.ProbeInterval)
		}
		if c.Connectivity.ProbeTimeout <= 0 {
			return fmt.Errorf("CONNECTIVITY_PROBE_TIMEOUT must be positive, got %v", c.Connectivity.ProbeTimeout)
		}
		return nil
	default:
		return fmt.Errorf("CONNECTIVITY_MODE must be one of: static, probe, got %q", c.Connectivity.Mode)
	}
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive, got %v", c.Server.Timeout)
	}
	if c.Server.RateLimitReqs < 1 {
		return fmt.Errorf("RATE_LIMIT_REQS must be at least 1, got %d", c.Server.RateLimitReqs)
	}
	if c.Server.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got %v", c.Server.RateLimitWindow)
	}
	return nil
}

var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}
