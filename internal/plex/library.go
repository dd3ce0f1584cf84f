// Pleximport - Plex Media Server library import engine
// Copyright 2026 Pleximport contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediabridge/pleximport

package plex

import (
	"context"
	"fmt"
	"net/url"
)

// ItemsOptions controls a paged section listing.
type ItemsOptions struct {
	// Start is the zero-based container offset.
	Start int

	// Size is the maximum number of items per page.
	Size int

	// UpdatedSince, when > 0, restricts the listing to items with an
	// update marker strictly greater than the given value.
	UpdatedSince int64

	// TypeFilter, when > 0, restricts the listing to one numeric item
	// type (TypeFilterMovie, TypeFilterEpisode, ...).
	TypeFilter int
}

// GetSections lists all library sections.
//
// Endpoint: GET /library/sections
func (c *Client) GetSections(ctx context.Context) ([]Section, error) {
	var resp SectionsResponse
	if err := c.get(ctx, "/library/sections", nil, &resp); err != nil {
		return nil, err
	}
	return resp.MediaContainer.Directory, nil
}

// GetSectionItems lists one page of a section's items. Pagination uses
// the X-Plex-Container-Start/Size query parameters; the delta fast
// path is expressed as an "updatedAt>" filter. Pages are requested in
// ascending update-marker order so a caller advancing a cursor page by
// page never records a marker ahead of items it has not seen yet.
//
// Endpoint: GET /library/sections/{key}/all
func (c *Client) GetSectionItems(ctx context.Context, sectionKey string, opts ItemsOptions) (*ContainerResponse, error) {
	query := url.Values{}
	query.Set("X-Plex-Container-Start", fmt.Sprintf("%d", opts.Start))
	if opts.Size > 0 {
		query.Set("X-Plex-Container-Size", fmt.Sprintf("%d", opts.Size))
	}
	if opts.UpdatedSince > 0 {
		// The "updatedAt>" key is a strict greater-than filter, so
		// passing the cursor itself never re-fetches applied items.
		query.Set("updatedAt>", fmt.Sprintf("%d", opts.UpdatedSince))
	}
	if opts.TypeFilter > 0 {
		query.Set("type", fmt.Sprintf("%d", opts.TypeFilter))
	}
	query.Set("sort", "updatedAt:asc")
	query.Set("includeGuids", "1")
	query.Set("includeMarkers", "1")

	var resp ContainerResponse
	if err := c.get(ctx, "/library/sections/"+sectionKey+"/all", query, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetMetadata fetches full metadata for one item, including external
// GUIDs and intro/commercial markers.
//
// Endpoint: GET /library/metadata/{ratingKey}
func (c *Client) GetMetadata(ctx context.Context, ratingKey string) (*Metadata, error) {
	query := url.Values{}
	query.Set("includeGuids", "1")
	query.Set("includeMarkers", "1")

	var resp MetadataResponse
	if err := c.get(ctx, "/library/metadata/"+ratingKey, query, &resp); err != nil {
		return nil, err
	}
	if len(resp.MediaContainer.Metadata) == 0 {
		return nil, fmt.Errorf("item %s not found", ratingKey)
	}
	return &resp.MediaContainer.Metadata[0], nil
}
