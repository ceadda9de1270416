// Fieldsync - Offline-First Field Health Data Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldsync

package models

import (
	"time"
)

// APIResponse is the envelope returned by every JSON endpoint of the local API.
//
// Status is "success" or "error". On success Data holds the payload, on error
// Error describes what went wrong.
//
// Example successful response:
//
//	{
//	  "status": "success",
//	  "data": {"isSyncing": false, "lastSync": "2026-03-01T10:00:00Z", "unsyncedCount": 2},
//	  "metadata": {"timestamp": "2026-03-01T10:00:05Z", "duration_ms": 1}
//	}
//
// Example error response:
//
//	{
//	  "status": "error",
//	  "error": {
//	    "code": "VALIDATION_ERROR",
//	    "message": "Request validation failed",
//	    "details": {"field": "severity", "tag": "lte"}
//	  },
//	  "metadata": {"timestamp": "2026-03-01T10:00:05Z"}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data,omitempty"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata accompanies every response.
type Metadata struct {
	Timestamp  time.Time `json:"timestamp"`
	DurationMS int64     `json:"duration_ms,omitempty"`
}

// APIError is a machine-readable error.
//
// Codes in use:
//   - VALIDATION_ERROR: the request body failed validation
//   - BAD_REQUEST: the request body could not be decoded
//   - NOT_FOUND: no record with that id
//   - STORE_ERROR: the local store failed
//   - SYNC_SKIPPED: a manual sync was refused by a guard
//   - SYNC_FAILED: a manual sync ran but no tier succeeded
//   - RATE_LIMIT_EXCEEDED: too many requests
//   - CONFLICT: the operation is not available in the current mode
//   - SERVICE_UNAVAILABLE: an optional component is not running
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error codes.
const (
	ErrCodeValidation  = "VALIDATION_ERROR"
	ErrCodeBadRequest  = "BAD_REQUEST"
	ErrCodeNotFound    = "NOT_FOUND"
	ErrCodeStore       = "STORE_ERROR"
	ErrCodeSyncSkipped = "SYNC_SKIPPED"
	ErrCodeSyncFailed  = "SYNC_FAILED"
	ErrCodeRateLimit   = "RATE_LIMIT_EXCEEDED"
	ErrCodeConflict    = "CONFLICT"
	ErrCodeUnavailable = "SERVICE_UNAVAILABLE"
)

// RecordCounts summarizes the local store per kind.
type RecordCounts struct {
	Total    int `json:"total"`
	Unsynced int `json:"unsynced"`
}
