// Fieldsync - Offline-First Field Health Data Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldsync

/*
Package middleware provides HTTP instrumentation shared by the local API and
the optional remote endpoint.

PrometheusMetrics records one request counter and one latency observation per
request, labeled by method, route pattern and status code. The route pattern
comes from the chi routing context, so /api/v1/patients/{id} is one series no
matter how many ids are requested. Requests that did not match a route are
labeled "unmatched".

Usage:

	r := chi.NewRouter()
	r.Use(middleware.PrometheusMetrics)
	r.Get("/api/v1/sync/status", h.SyncStatus)

The response writer is wrapped with chi's WrapResponseWriter, which keeps the
http.Hijacker interface available for websocket upgrades.
*/
package middleware
