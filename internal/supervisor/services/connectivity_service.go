// Fieldsync - Offline-First Field Health Data Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldsync

package services

import (
	"context"
)

// Runner is a blocking loop that returns when ctx is done, like
// *connectivity.Prober.
type Runner interface {
	Run(ctx context.Context) error
}

// ConnectivityService runs the reachability prober. Static connectivity has
// no loop and is not supervised.
type ConnectivityService struct {
	prober Runner
	name   string
}

// NewConnectivityService wraps prober.
func NewConnectivityService(prober Runner) *ConnectivityService {
	return &ConnectivityService{
		prober: prober,
		name:   "connectivity-prober",
	}
}

// Serve implements suture.Service.
func (c *ConnectivityService) Serve(ctx context.Context) error {
	return c.prober.Run(ctx)
}

func (c *ConnectivityService) String() string {
	return c.name
}
