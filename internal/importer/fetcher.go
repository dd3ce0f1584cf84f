// Pleximport - Plex Media Server library import engine
// Copyright 2026 Pleximport contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediabridge/pleximport

package importer

import (
	"context"
	"fmt"

	"github.com/cenkalti/backoff/v4"

	"github.com/mediabridge/pleximport/internal/logging"
	"github.com/mediabridge/pleximport/internal/metrics"
	"github.com/mediabridge/pleximport/internal/plex"
)

// providerClient is the provider API surface the engine depends on.
// *plex.Client and *plex.BreakerClient both satisfy it.
type providerClient interface {
	Identity(ctx context.Context) (*plex.Identity, error)
	GetSections(ctx context.Context) ([]plex.Section, error)
	GetSectionItems(ctx context.Context, sectionKey string, opts plex.ItemsOptions) (*plex.ContainerResponse, error)
	GetMetadata(ctx context.Context, ratingKey string) (*plex.Metadata, error)
}

// fetchPage requests one container page, retrying transient failures
// with exponential backoff. The attempt budget is retryAttempts
// retries after the initial try; exhausting it surfaces the last
// error for the section to abort on.
func (e *Engine) fetchPage(ctx context.Context, sectionKey string, opts plex.ItemsOptions) (*plex.ContainerResponse, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = e.retryInitialDelay
	bo.MaxElapsedTime = 0

	policy := backoff.WithContext(
		backoff.WithMaxRetries(bo, uint64(e.retryAttempts)),
		ctx,
	)

	attempt := 0
	var page *plex.ContainerResponse

	operation := func() error {
		attempt++
		resp, err := e.client.GetSectionItems(ctx, sectionKey, opts)
		if err != nil {
			if attempt > 1 {
				metrics.PageRetries.Inc()
			}
			logging.Warn().Err(err).
				Str("section", sectionKey).
				Int("offset", opts.Start).
				Int("attempt", attempt).
				Msg("page fetch failed")
			return err
		}
		page = resp
		return nil
	}

	if err := backoff.Retry(operation, policy); err != nil {
		return nil, fmt.Errorf("fetch page at offset %d: %w", opts.Start, err)
	}

	metrics.PagesFetched.Inc()
	return page, nil
}
