// Fieldsync - Offline-First Field Health Data Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldsync

package remote

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/fieldsync/internal/logging"
	"github.com/tomtom215/fieldsync/internal/metrics"
	"github.com/tomtom215/fieldsync/internal/models"
)

// BreakerSettings configures CircuitBreaker.
type BreakerSettings struct {
	Name string

	// MaxRequests allowed through while half-open.
	MaxRequests uint32

	// Interval clears counts while closed. Zero never clears.
	Interval time.Duration

	// Timeout is the open period before a half-open probe.
	Timeout time.Duration

	// ConsecutiveFailures opens the breaker.
	ConsecutiveFailures uint32
}

// CircuitBreaker stops calling an unhealthy remote for a while. A rejected
// batch counts as a failure. While open, SyncBatch returns
// gobreaker.ErrOpenState without calling the remote.
type CircuitBreaker struct {
	next MergeStore
	cb   *gobreaker.CircuitBreaker[*models.SyncResult]
	name string
}

// NewCircuitBreaker wraps next.
func NewCircuitBreaker(next MergeStore, s BreakerSettings) *CircuitBreaker {
	if s.Name == "" {
		s.Name = "remote"
	}
	if s.ConsecutiveFailures == 0 {
		s.ConsecutiveFailures = 5
	}
	threshold := s.ConsecutiveFailures

	metrics.CircuitBreakerState.WithLabelValues(s.Name).Set(0)
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(s.Name).Set(0)

	cb := gobreaker.NewCircuitBreaker[*models.SyncResult](gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			trip := counts.ConsecutiveFailures >= threshold
			if trip {
				log := logging.WithComponent(component)
				log.Warn().Uint32("consecutive_failures", counts.ConsecutiveFailures).Msg("Opening remote circuit breaker")
			}
			return trip
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)
			log := logging.WithComponent(component)
			log.Info().Str("breaker", name).Str("from", fromStr).Str("to", toStr).Msg("Circuit breaker state transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},
	})

	return &CircuitBreaker{next: next, cb: cb, name: s.Name}
}

// SyncBatch implements MergeStore.
func (b *CircuitBreaker) SyncBatch(ctx context.Context, payload *models.SyncPayload) (*models.SyncResult, error) {
	res, err := b.cb.Execute(func() (*models.SyncResult, error) {
		res, err := b.next.SyncBatch(ctx, payload)
		if err != nil {
			return nil, err
		}
		if res == nil || !res.Success {
			return res, ErrRemoteRejected
		}
		return res, nil
	})

	switch {
	case err == nil:
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
		metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(b.name).Set(0)
		return res, nil
	case errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
		log := logging.WithComponent(component)
		log.Debug().Err(err).Msg("Remote call short-circuited")
		return nil, err
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
		metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(b.name).Set(float64(b.cb.Counts().ConsecutiveFailures))
		if errors.Is(err, ErrRemoteRejected) {
			return &models.SyncResult{Success: false}, nil
		}
		return nil, err
	}
}

// State returns the breaker state name: closed, half-open or open.
func (b *CircuitBreaker) State() string {
	return stateToString(b.cb.State())
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
