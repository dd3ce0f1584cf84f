// Pleximport - Plex Media Server library import engine
// Copyright 2026 Pleximport contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediabridge/pleximport

package plex

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// UpdateTimeline reports playback position and state for an item.
// time and duration are milliseconds.
//
// Endpoint: GET /:/timeline
func (c *Client) UpdateTimeline(ctx context.Context, ratingKey, key, state string, timeMs, durationMs int64) error {
	query := url.Values{}
	query.Set("ratingKey", ratingKey)
	query.Set("key", key)
	query.Set("state", state)
	query.Set("time", fmt.Sprintf("%d", timeMs))
	query.Set("duration", fmt.Sprintf("%d", durationMs))
	query.Set("identifier", timelineIdentity)

	return c.doRequest(ctx, requestConfig{
		method:   http.MethodGet,
		path:     "/:/timeline",
		query:    query,
		expectOK: true,
	}, nil)
}

// Scrobble marks an item watched on the server.
//
// Endpoint: GET /:/scrobble
func (c *Client) Scrobble(ctx context.Context, ratingKey string) error {
	return c.scrobblePath(ctx, "/:/scrobble", ratingKey)
}

// Unscrobble clears an item's watched state on the server.
//
// Endpoint: GET /:/unscrobble
func (c *Client) Unscrobble(ctx context.Context, ratingKey string) error {
	return c.scrobblePath(ctx, "/:/unscrobble", ratingKey)
}

func (c *Client) scrobblePath(ctx context.Context, path, ratingKey string) error {
	query := url.Values{}
	query.Set("key", ratingKey)
	query.Set("identifier", timelineIdentity)

	return c.doRequest(ctx, requestConfig{
		method:   http.MethodGet,
		path:     path,
		query:    query,
		expectOK: true,
	}, nil)
}
