// Pleximport - Plex Media Server library import engine
// Copyright 2026 Pleximport contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediabridge/pleximport

// Package plex implements the HTTP client for the Plex Media Server
// API: library sections, paged item listing with delta filters, item
// metadata, and playback timeline reporting.
//
// All requests carry the X-Plex-Token and client identification
// headers and are decoded with goccy/go-json. Requests are rate
// limited client-side and retried with exponential backoff on
// HTTP 429.
package plex

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/mediabridge/pleximport/internal/logging"
)

// Product and identifier reported to the server on every request.
const (
	headerProduct    = "pleximport"
	headerVersion    = "1.0"
	timelineIdentity = "com.plexapp.plugins.library"
)

// Client communicates with one Plex Media Server.
type Client struct {
	baseURL    string
	token      string
	clientID   string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a client for the server at baseURL. token may be
// empty for local-only servers that do not enforce authentication.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:  baseURL,
		token:    token,
		clientID: uuid.NewString(),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		// 10 req/s with small bursts keeps full-library enumeration
		// from starving the server.
		limiter: rate.NewLimiter(rate.Limit(10), 20),
	}
}

// BaseURL returns the server URL this client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// Token returns the access token used by this client.
func (c *Client) Token() string { return c.token }

// requestConfig holds configuration for building HTTP requests.
type requestConfig struct {
	method   string
	path     string
	query    url.Values
	expectOK bool // if true, require 200 OK (204 is always accepted)
}

// doRequest executes a Plex API request and decodes the JSON response
// into result when a result pointer is provided.
func (c *Client) doRequest(ctx context.Context, cfg requestConfig, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	reqURL := fmt.Sprintf("%s%s", c.baseURL, cfg.path)
	req, err := http.NewRequestWithContext(ctx, cfg.method, reqURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	if c.token != "" {
		req.Header.Set("X-Plex-Token", c.token)
	}
	req.Header.Set("X-Plex-Client-Identifier", c.clientID)
	req.Header.Set("X-Plex-Product", headerProduct)
	req.Header.Set("X-Plex-Version", headerVersion)
	req.Header.Set("Accept", "application/json")

	if len(cfg.query) > 0 {
		req.URL.RawQuery = cfg.query.Encode()
	}

	resp, err := c.doRequestWithRateLimit(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if cfg.expectOK && resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("unexpected status: %d %s", resp.StatusCode, resp.Status)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	return nil
}

// get is a convenience wrapper for GET requests expecting 200.
func (c *Client) get(ctx context.Context, path string, query url.Values, result interface{}) error {
	return c.doRequest(ctx, requestConfig{
		method:   http.MethodGet,
		path:     path,
		query:    query,
		expectOK: true,
	}, result)
}

// doRequestWithRateLimit executes the request and retries with
// exponential backoff when the server answers HTTP 429, honoring a
// Retry-After header when present.
func (c *Client) doRequestWithRateLimit(req *http.Request) (*http.Response, error) {
	const maxRetries = 5
	baseDelay := 1 * time.Second

	for attempt := 0; attempt <= maxRetries; attempt++ {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("execute request: %w", err)
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		resp.Body.Close()

		if attempt == maxRetries {
			return nil, fmt.Errorf("rate limit exceeded after %d retries", maxRetries)
		}

		retryDelay := baseDelay * (1 << attempt)
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if seconds, err := time.ParseDuration(retryAfter + "s"); err == nil {
				retryDelay = seconds
			}
		}

		logging.Warn().Dur("retry_delay", retryDelay).Int("attempt", attempt+1).Msg("Plex API rate limited (HTTP 429), retrying")

		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-time.After(retryDelay):
		}
	}

	return nil, fmt.Errorf("unreachable: retry loop must return")
}

// Identity fetches the server's identity (machine identifier, version).
//
// Endpoint: GET /identity
func (c *Client) Identity(ctx context.Context) (*Identity, error) {
	var resp identityResponse
	if err := c.get(ctx, "/identity", nil, &resp); err != nil {
		return nil, err
	}
	return &Identity{
		MachineIdentifier: resp.MediaContainer.MachineIdentifier,
		Version:           resp.MediaContainer.Version,
	}, nil
}

// Ping verifies the server is reachable and answering.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Identity(ctx)
	return err
}
