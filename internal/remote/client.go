// Sidetrackd - BLE Tracking Die Daemon
// Copyright 2026 N. Ollvik (nollvik)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nollvik/sidetrackd

package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/nollvik/sidetrackd/internal/config"
	"github.com/nollvik/sidetrackd/internal/logging"
	"github.com/nollvik/sidetrackd/internal/metrics"
)

const (
	// entriesPath accepts POST submissions and GET queries.
	entriesPath = "/api/v1/entries"
	pingPath    = "/api/ping"

	// maxErrorBodySize limits how much of an error response body is read
	// back into error messages.
	maxErrorBodySize = 64 * 1024 // 64KB

	defaultMaxRetries     = 5
	defaultRetryBaseDelay = 1 * time.Second
)

// readBodyForError reads a response body for error reporting, capped at
// maxErrorBodySize so a hostile or broken service cannot balloon memory.
func readBodyForError(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return fmt.Sprintf("(failed to read response body: %v)", err)
	}
	if len(body) == maxErrorBodySize {
		return string(body) + "... (truncated)"
	}
	return string(body)
}

// Client talks to the time tracking service over HTTP. All methods map
// failures onto ErrUnreachable or ErrRejected so callers can decide
// between buffering and dropping without reading status codes.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
	limiter *rate.Limiter

	maxRetries     int
	retryBaseDelay time.Duration
}

// NewClient creates a client for the configured service endpoint.
func NewClient(cfg *config.RemoteConfig) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter:        rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.Burst),
		maxRetries:     defaultMaxRetries,
		retryBaseDelay: defaultRetryBaseDelay,
	}
}

// submitResponse is the acknowledgment for a submission. The service
// echoes the keys it accepted; a key missing from the list was refused.
type submitResponse struct {
	Accepted []string `json:"accepted"`
}

// fetchResponse wraps entry queries. Entries arrive most recent first.
type fetchResponse struct {
	Entries []TimeEntry `json:"entries"`
}

// doRequest performs one HTTP request with client-side pacing and HTTP 429
// handling. Rate limited responses are retried with exponential backoff,
// honoring a Retry-After header when the service sends one.
func (c *Client) doRequest(ctx context.Context, method, reqURL string, body []byte) (*http.Response, error) {
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("request canceled: %w", err)
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait: %w", err)
		}

		var reqBody io.Reader = http.NoBody
		if body != nil {
			reqBody = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		// Rate limited. Drain and close the body before backing off.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodySize))
		_ = resp.Body.Close()

		if attempt == c.maxRetries {
			break
		}

		delay := c.retryBaseDelay * (1 << attempt)
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if secs, parseErr := strconv.Atoi(ra); parseErr == nil && secs > 0 {
				delay = time.Duration(secs) * time.Second
			}
		}

		logging.Warn().
			Int("attempt", attempt+1).
			Dur("delay", delay).
			Str("url", reqURL).
			Msg("Rate limited by time tracking service, backing off")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("request canceled during backoff: %w", ctx.Err())
		}
	}

	return nil, fmt.Errorf("rate limited after %d attempts", c.maxRetries+1)
}

// classifyStatus maps a non-2xx response onto the error taxonomy. Client
// errors mean the service understood the request and refused it; anything
// else is treated as unreachable and therefore retryable.
func classifyStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body := readBodyForError(resp.Body)
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, body)
	}
	return fmt.Errorf("%w: status %d: %s", ErrUnreachable, resp.StatusCode, body)
}

// resultLabel collapses a classified error into the metrics result label.
func resultLabel(err error) string {
	if errors.Is(err, ErrRejected) {
		return "rejected"
	}
	return "unreachable"
}

// SubmitEntry records one time entry. The call succeeds only when the
// service response explicitly lists the entry key as accepted.
func (c *Client) SubmitEntry(ctx context.Context, entry TimeEntry) error {
	start := time.Now()

	if err := entry.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrRejected, err)
	}

	body, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("%w: marshal entry: %v", ErrRejected, err)
	}

	resp, err := c.doRequest(ctx, http.MethodPost, c.baseURL+entriesPath, body)
	if err != nil {
		metrics.RecordRemoteSubmission("unreachable", time.Since(start))
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := classifyStatus(resp); err != nil {
		metrics.RecordRemoteSubmission(resultLabel(err), time.Since(start))
		return fmt.Errorf("submit entry %s: %w", entry.Key, err)
	}

	var ack submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		metrics.RecordRemoteSubmission("unreachable", time.Since(start))
		return fmt.Errorf("%w: decode submit response: %v", ErrUnreachable, err)
	}

	if !slices.Contains(ack.Accepted, entry.Key) {
		metrics.RecordRemoteSubmission("rejected", time.Since(start))
		return fmt.Errorf("%w: key %s not in accepted list", ErrRejected, entry.Key)
	}

	metrics.RecordRemoteSubmission("success", time.Since(start))
	logging.Debug().
		Str("key", entry.Key).
		Int64("t1", entry.T1).
		Int64("t2", entry.T2).
		Bool("hidden", entry.Hidden).
		Msg("Time entry submitted")
	return nil
}

// FetchEntry returns the most recent entry recorded under key within the
// window [from, to], both Unix seconds. A nil entry with a nil error means
// the service answered and holds nothing for that window.
func (c *Client) FetchEntry(ctx context.Context, key string, from, to int64) (*TimeEntry, error) {
	start := time.Now()

	q := url.Values{}
	q.Set("key", key)
	q.Set("from", strconv.FormatInt(from, 10))
	q.Set("to", strconv.FormatInt(to, 10))
	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, entriesPath, q.Encode())

	resp, err := c.doRequest(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		metrics.RecordRemoteFetch("unreachable", time.Since(start))
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := classifyStatus(resp); err != nil {
		metrics.RecordRemoteFetch(resultLabel(err), time.Since(start))
		return nil, fmt.Errorf("fetch entry %s: %w", key, err)
	}

	var page fetchResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		metrics.RecordRemoteFetch("unreachable", time.Since(start))
		return nil, fmt.Errorf("%w: decode fetch response: %v", ErrUnreachable, err)
	}

	metrics.RecordRemoteFetch("success", time.Since(start))
	if len(page.Entries) == 0 {
		return nil, nil
	}
	entry := page.Entries[0]
	return &entry, nil
}

// Ping verifies the service answers at all. Any non-200 response counts as
// unreachable; the prober only cares whether the service is back.
func (c *Client) Ping(ctx context.Context) error {
	start := time.Now()
	defer func() { metrics.RecordRemoteProbe(time.Since(start)) }()

	resp, err := c.doRequest(ctx, http.MethodGet, c.baseURL+pingPath, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: ping status %d: %s", ErrUnreachable, resp.StatusCode, readBodyForError(resp.Body))
	}
	return nil
}
