// Pleximport - Plex Media Server library import engine
// Copyright 2026 Pleximport contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediabridge/pleximport

// Package playback bridges the host's playback state to the provider:
// periodic progress reports while playing, watched-state flips, and
// fetching the provider's stored resume position.
package playback

import (
	"context"
	"sync"
	"time"

	"github.com/mediabridge/pleximport/internal/host"
	"github.com/mediabridge/pleximport/internal/logging"
	"github.com/mediabridge/pleximport/internal/metrics"
	"github.com/mediabridge/pleximport/internal/plex"
)

// stateClient is the provider surface the bridge needs.
type stateClient interface {
	UpdateTimeline(ctx context.Context, ratingKey, key, state string, timeMs, durationMs int64) error
	Scrobble(ctx context.Context, ratingKey string) error
	Unscrobble(ctx context.Context, ratingKey string) error
	GetMetadata(ctx context.Context, ratingKey string) (*plex.Metadata, error)
}

// State is a playback state accepted by ReportProgress.
type State string

const (
	StatePlaying State = plex.StatePlaying
	StatePaused  State = plex.StatePaused
	StateStopped State = plex.StateStopped
)

// Bridge pushes playback state to one provider. Progress reports for
// the same item are throttled to the configured interval; state
// transitions (pause, stop) always go through.
type Bridge struct {
	client   stateClient
	interval time.Duration

	mu         sync.Mutex
	lastReport map[string]time.Time
	lastState  map[string]State
}

// NewBridge creates a bridge reporting at most once per interval per
// item.
func NewBridge(client stateClient, interval time.Duration) *Bridge {
	return &Bridge{
		client:     client,
		interval:   interval,
		lastReport: make(map[string]time.Time),
		lastState:  make(map[string]State),
	}
}

// ReportProgress reports an item's playback position. Reporting is
// best-effort: one retry on failure, then the report is dropped and
// counted. A stopped report clears the item's throttle entry.
func (b *Bridge) ReportProgress(ctx context.Context, ratingKey, key string, state State, positionMs, durationMs int64) {
	if !b.shouldReport(ratingKey, state) {
		return
	}

	err := b.client.UpdateTimeline(ctx, ratingKey, key, string(state), positionMs, durationMs)
	if err != nil {
		err = b.client.UpdateTimeline(ctx, ratingKey, key, string(state), positionMs, durationMs)
	}

	if err != nil {
		metrics.PlaybackReports.WithLabelValues("failed").Inc()
		logging.Warn().Err(err).Str("item", ratingKey).Str("state", string(state)).Msg("progress report dropped")
		return
	}

	metrics.PlaybackReports.WithLabelValues("success").Inc()

	if state == StateStopped {
		b.forget(ratingKey)
	}
}

// shouldReport applies per-item throttling. State changes bypass the
// interval so pause and stop land immediately.
func (b *Bridge) shouldReport(ratingKey string, state State) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	if prev, ok := b.lastState[ratingKey]; ok && prev == state && state == StatePlaying {
		if last, ok := b.lastReport[ratingKey]; ok && now.Sub(last) < b.interval {
			return false
		}
	}

	b.lastReport[ratingKey] = now
	b.lastState[ratingKey] = state
	return true
}

func (b *Bridge) forget(ratingKey string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.lastReport, ratingKey)
	delete(b.lastState, ratingKey)
}

// SetWatched flips an item's watched state on the provider.
func (b *Bridge) SetWatched(ctx context.Context, ratingKey string, watched bool) error {
	if watched {
		return b.client.Scrobble(ctx, ratingKey)
	}
	return b.client.Unscrobble(ctx, ratingKey)
}

// FetchProgress reads the provider's stored watch state for an item.
// An item with no stored state yields a zero Resume, not an error.
func (b *Bridge) FetchProgress(ctx context.Context, ratingKey string) (host.Resume, error) {
	md, err := b.client.GetMetadata(ctx, ratingKey)
	if err != nil {
		return host.Resume{}, err
	}
	return host.Resume{
		PositionMs:   md.ViewOffset,
		PlayCount:    md.ViewCount,
		LastViewedAt: md.LastViewedAt,
	}, nil
}
