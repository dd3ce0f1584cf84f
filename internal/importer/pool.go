// Pleximport - Plex Media Server library import engine
// Copyright 2026 Pleximport contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediabridge/pleximport

package importer

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/mediabridge/pleximport/internal/host"
	"github.com/mediabridge/pleximport/internal/logging"
	"github.com/mediabridge/pleximport/internal/metrics"
	"github.com/mediabridge/pleximport/internal/plex"
)

// translatePage converts one page of metadata records concurrently
// while preserving provider order in the result. Records that fail
// translation are skipped and counted, never aborting the page;
// any other error cancels the remaining work.
func translatePage(ctx context.Context, tr *Translator, sectionKey string, page []plex.Metadata, workers int) ([]host.Item, int, error) {
	if len(page) == 0 {
		return nil, 0, nil
	}
	if workers < 1 {
		workers = 1
	}

	// results is indexed by page position; nil slots mark skips and
	// are compacted afterwards so delivery order matches provider
	// order.
	results := make([]*host.Item, len(page))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range page {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			item, err := tr.Translate(&page[i], sectionKey, nil)
			if err != nil {
				if errors.Is(err, ErrItemTranslation) {
					logging.Warn().Err(err).Str("section", sectionKey).Msg("skipping untranslatable item")
					metrics.ItemsSkipped.Inc()
					return nil
				}
				return err
			}
			results[i] = &item
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	items := make([]host.Item, 0, len(page))
	skipped := 0
	for _, r := range results {
		if r == nil {
			skipped++
			continue
		}
		items = append(items, *r)
	}

	metrics.ItemsTranslated.Add(float64(len(items)))
	return items, skipped, nil
}
