// Fieldsync - Offline-First Field Health Data Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldsync

package connectivity

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tomtom215/fieldsync/internal/logging"
)

// ProberConfig configures a Prober.
type ProberConfig struct {
	URL      string
	Interval time.Duration
	Timeout  time.Duration

	// InitiallyOnline is reported until the first probe completes.
	InitiallyOnline bool
}

// Prober decides reachability by issuing HEAD requests to a URL. Any HTTP
// response below 500 counts as online; transport errors and 5xx count as
// offline.
type Prober struct {
	*Static

	cfg    ProberConfig
	client *http.Client
}

// NewProber creates a Prober. Call Run to start probing.
func NewProber(cfg ProberConfig) (*Prober, error) {
	if cfg.URL == "" {
		return nil, errors.New("connectivity: probe URL is required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &Prober{
		Static: NewStatic(cfg.InitiallyOnline),
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Probe performs one reachability check and updates the state.
func (p *Prober) Probe(ctx context.Context) bool {
	online := p.check(ctx) == nil
	p.SetOnline(online)
	return online
}

func (p *Prober) check(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.cfg.URL, http.NoBody)
	if err != nil {
		return fmt.Errorf("build probe request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		log := logging.WithComponent(component)
		log.Debug().Err(err).Str("url", p.cfg.URL).Msg("Connectivity probe failed")
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("probe returned status %d", resp.StatusCode)
	}
	return nil
}

// Run probes immediately and then every Interval until ctx is done.
func (p *Prober) Run(ctx context.Context) error {
	log := logging.WithComponent(component)
	log.Info().
		Str("url", p.cfg.URL).
		Dur("interval", p.cfg.Interval).
		Msg("Connectivity prober started")

	p.Probe(ctx)

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Connectivity prober stopped")
			return ctx.Err()
		case <-ticker.C:
			p.Probe(ctx)
		}
	}
}
