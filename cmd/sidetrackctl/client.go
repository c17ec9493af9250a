// Sidetrackd - BLE Tracking Die Daemon
// Copyright 2026 N. Ollvik (nollvik)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nollvik/sidetrackd

package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"
)

// apiEnvelope is the daemon's response wrapper. Data holds the payload
// on success; Error is set on failure.
type apiEnvelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data,omitempty"`
	Error  *apiError       `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ctlClient issues control API requests against the configured daemon
// address.
type ctlClient struct {
	base  string
	token string
	http  *http.Client
}

// newClient builds a client from the persistent flags.
func newClient() *ctlClient {
	return &ctlClient{
		base:  strings.TrimRight(flagAddr, "/"),
		token: flagToken,
		http:  &http.Client{Timeout: flagTimeout},
	}
}

// call issues one request and unwraps the envelope. The returned bytes
// are the raw Data payload.
func (c *ctlClient) call(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+"/api/v1"+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("daemon unreachable at %s (is sidetrackd running?): %w", c.base, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("unexpected response from daemon (HTTP %d): %w", resp.StatusCode, err)
	}

	if envelope.Error != nil {
		return nil, fmt.Errorf("%s: %s", envelope.Error.Code, envelope.Error.Message)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("daemon returned HTTP %d", resp.StatusCode)
	}

	return envelope.Data, nil
}

func (c *ctlClient) get(ctx context.Context, path string) (json.RawMessage, error) {
	return c.call(ctx, http.MethodGet, path, nil)
}

func (c *ctlClient) post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return c.call(ctx, http.MethodPost, path, body)
}

// decodeInto unmarshals a Data payload into out.
func decodeInto(raw json.RawMessage, out any) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}
