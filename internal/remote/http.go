// Fieldsync - Offline-First Field Health Data Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldsync

package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/fieldsync/internal/models"
)

// maxErrorBodySize caps how much of an error response is read.
const maxErrorBodySize = 64 * 1024

// maxPayloadSize caps an incoming batch. Photos travel inline as base64.
const maxPayloadSize = 32 << 20

func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("\n... (truncated)")...)
	}
	return body
}

// HTTPClient sends batches to a remote node's sync endpoint.
type HTTPClient struct {
	url    string
	client *http.Client
}

// NewHTTPClient posts batches to url.
func NewHTTPClient(url string, timeout time.Duration) (*HTTPClient, error) {
	if url == "" {
		return nil, errors.New("remote: url is required")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}, nil
}

// SyncBatch implements MergeStore. Non-2xx responses and undecodable bodies
// are errors.
func (c *HTTPClient) SyncBatch(ctx context.Context, payload *models.SyncPayload) (*models.SyncResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post batch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("remote returned status %d: %s", resp.StatusCode, readBodyForError(resp.Body))
	}

	var result models.SyncResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &result, nil
}
