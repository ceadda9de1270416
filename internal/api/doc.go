// Fieldsync - Offline-First Field Health Data Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldsync

/*
Package api serves the local HTTP API of a field device.

The API stands in for the entry forms and the sync indicator of the mobile
client. Every JSON response uses the models.APIResponse envelope.

Routes:

	GET  /api/v1/health                 overall health
	GET  /api/v1/health/live            liveness probe
	GET  /api/v1/health/ready           readiness probe
	GET  /api/v1/sync/status            current sync.Status
	POST /api/v1/sync                   run a sync cycle now (rate limited)
	PUT  /api/v1/connectivity           set the manual online flag
	GET  /api/v1/ws                     websocket status feed
	GET  /api/v1/{kind}                 list records (?unsynced=true)
	POST /api/v1/{kind}                 create a record (409 if the id exists)
	GET  /api/v1/{kind}/{id}            read a record
	PUT  /api/v1/{kind}/{id}            replace a record
	POST /api/v1/remote/sync            remote merge endpoint (optional)
	GET  /metrics                       Prometheus metrics

where {kind} is symptom-logs, patients or enrollments.

Every write through the record routes stores the record unsynced with a fresh
revision stamp, so the next cycle picks it up. The manual sync route returns
the cycle report: 200 when at least one batch was accepted or nothing was
pending, 409 SYNC_SKIPPED when a guard refused the cycle, and 502 SYNC_FAILED
when every batch was rejected.

Middleware:

Global: request id with logging context, real IP, panic recovery, CORS,
gzip compression. Per group: rate limiting, security headers and Prometheus
instrumentation.
*/
package api
