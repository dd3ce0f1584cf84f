// Pleximport - Plex Media Server library import engine
// Copyright 2026 Pleximport contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediabridge/pleximport

// Package plextv implements the small plex.tv API surface pleximport
// needs: PIN-based account linking and the resource listing used to
// resolve a server's candidate connections.
package plextv

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// DefaultBaseURL is the public plex.tv endpoint.
const DefaultBaseURL = "https://plex.tv"

// LinkURL is where the user enters the PIN code.
const LinkURL = "https://plex.tv/link"

// serverProduct identifies Plex Media Server resources in the account
// resource listing.
const serverProduct = "Plex Media Server"

// Client talks to plex.tv.
type Client struct {
	baseURL    string
	clientID   string
	httpClient *http.Client
}

// NewClient creates a plex.tv client. baseURL is overridable for
// tests; pass "" for the public endpoint.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:  baseURL,
		clientID: uuid.NewString(),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Pin is one PIN linking attempt. AuthToken is empty until the user
// completes the link on plex.tv.
type Pin struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	AuthToken string    `json:"authToken"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Resource is one device registered to the linked account.
type Resource struct {
	Name             string       `json:"name"`
	Product          string       `json:"product"`
	ClientIdentifier string       `json:"clientIdentifier"`
	Provides         string       `json:"provides"`
	AccessToken      string       `json:"accessToken"`
	Connections      []Connection `json:"connections"`
}

// IsServer reports whether the resource is a Plex Media Server.
func (r *Resource) IsServer() bool {
	return r.Product == serverProduct && strings.Contains(r.Provides, "server")
}

// Connection is one way to reach a resource.
type Connection struct {
	URI      string `json:"uri"`
	Protocol string `json:"protocol"`
	Address  string `json:"address"`
	Port     int    `json:"port"`
	Local    bool   `json:"local"`
	Relay    bool   `json:"relay"`
}

// CreatePin requests a new linking PIN.
//
// Endpoint: POST /api/v2/pins
func (c *Client) CreatePin(ctx context.Context) (*Pin, error) {
	query := url.Values{}
	query.Set("strong", "false")

	var pin Pin
	if err := c.do(ctx, http.MethodPost, "/api/v2/pins", query, "", &pin); err != nil {
		return nil, fmt.Errorf("create pin: %w", err)
	}
	if pin.Code == "" {
		return nil, fmt.Errorf("create pin: empty code in response")
	}
	return &pin, nil
}

// CheckPin polls a PIN's link status. The returned Pin carries a
// non-empty AuthToken once the user has completed the link.
//
// Endpoint: GET /api/v2/pins/{id}
func (c *Client) CheckPin(ctx context.Context, id int64, code string) (*Pin, error) {
	query := url.Values{}
	query.Set("code", code)

	var pin Pin
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v2/pins/%d", id), query, "", &pin); err != nil {
		return nil, fmt.Errorf("check pin: %w", err)
	}
	return &pin, nil
}

// Resources lists the account's devices, including each server's
// candidate connections (local, remote, relay).
//
// Endpoint: GET /api/v2/resources
func (c *Client) Resources(ctx context.Context, token string) ([]Resource, error) {
	query := url.Values{}
	query.Set("includeHttps", "1")
	query.Set("includeRelay", "1")

	var resources []Resource
	if err := c.do(ctx, http.MethodGet, "/api/v2/resources", query, token, &resources); err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	return resources, nil
}

// do executes one plex.tv request with client identification headers.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, token string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Plex-Client-Identifier", c.clientID)
	req.Header.Set("X-Plex-Product", "pleximport")
	req.Header.Set("X-Plex-Version", "1.0")
	if token != "" {
		req.Header.Set("X-Plex-Token", token)
	}
	if len(query) > 0 {
		req.URL.RawQuery = query.Encode()
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("unexpected status: %d %s", resp.StatusCode, resp.Status)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	return nil
}
