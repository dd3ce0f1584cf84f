// Pleximport - Plex Media Server library import engine
// Copyright 2026 Pleximport contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediabridge/pleximport

package importer

import (
	"context"
	"fmt"
	"strconv"

	"github.com/mediabridge/pleximport/internal/host"
	"github.com/mediabridge/pleximport/internal/logging"
)

// RefreshItem re-fetches one item's metadata and delivers it to the
// host as a single-item page. It is the targeted alternative to a
// section sync when only one item is known stale.
func (e *Engine) RefreshItem(ctx context.Context, ratingKey string) (*host.Item, error) {
	item, err := e.fetchItem(ctx, ratingKey)
	if err != nil {
		return nil, err
	}

	if err := e.deliverer.DeliverItems(ctx, item.SectionKey, []host.Item{*item}); err != nil {
		return nil, fmt.Errorf("deliver refreshed item %s: %w", ratingKey, err)
	}

	logging.Debug().Str("item", ratingKey).Str("section", item.SectionKey).Msg("item refreshed")
	return item, nil
}

// SyncItem translates one item without delivering it. The observer
// uses it to materialize change notifications.
func (e *Engine) SyncItem(ctx context.Context, ratingKey string) (*host.Item, error) {
	return e.fetchItem(ctx, ratingKey)
}

// ItemVersions lists an item's playable versions, primary first.
func (e *Engine) ItemVersions(ctx context.Context, ratingKey string) ([]host.Version, error) {
	item, err := e.fetchItem(ctx, ratingKey)
	if err != nil {
		return nil, err
	}

	versions := item.Versions
	for i, v := range versions {
		if v.Primary && i != 0 {
			versions[0], versions[i] = versions[i], versions[0]
			break
		}
	}
	return versions, nil
}

func (e *Engine) fetchItem(ctx context.Context, ratingKey string) (*host.Item, error) {
	md, err := e.client.GetMetadata(ctx, ratingKey)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch item %s: %v", ErrProviderUnavailable, ratingKey, err)
	}

	sectionKey := ""
	if md.LibrarySectionID > 0 {
		sectionKey = strconv.FormatInt(md.LibrarySectionID, 10)
	}

	// Single-item paths rebuild from provider state; a forced refresh
	// deliberately bypasses the host's existing unique-ID mappings.
	item, err := e.translator.Translate(md, sectionKey, nil)
	if err != nil {
		return nil, err
	}
	return &item, nil
}
