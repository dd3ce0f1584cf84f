// Pleximport - Plex Media Server library import engine
// Copyright 2026 Pleximport contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediabridge/pleximport

package playback

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mediabridge/pleximport/internal/plex"
)

type timelineCall struct {
	ratingKey string
	state     string
	timeMs    int64
}

type fakeStateClient struct {
	mu        sync.Mutex
	timelines []timelineCall
	failNext  int

	scrobbled   []string
	unscrobbled []string
	metadata    *plex.Metadata
}

func (f *fakeStateClient) UpdateTimeline(ctx context.Context, ratingKey, key, state string, timeMs, durationMs int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext > 0 {
		f.failNext--
		return errors.New("timeout")
	}
	f.timelines = append(f.timelines, timelineCall{ratingKey, state, timeMs})
	return nil
}

func (f *fakeStateClient) Scrobble(ctx context.Context, ratingKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scrobbled = append(f.scrobbled, ratingKey)
	return nil
}

func (f *fakeStateClient) Unscrobble(ctx context.Context, ratingKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unscrobbled = append(f.unscrobbled, ratingKey)
	return nil
}

func (f *fakeStateClient) GetMetadata(ctx context.Context, ratingKey string) (*plex.Metadata, error) {
	if f.metadata == nil {
		return nil, errors.New("not found")
	}
	return f.metadata, nil
}

func (f *fakeStateClient) calls() []timelineCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]timelineCall, len(f.timelines))
	copy(out, f.timelines)
	return out
}

func TestReportProgressThrottlesRepeats(t *testing.T) {
	client := &fakeStateClient{}
	bridge := NewBridge(client, time.Hour)

	ctx := context.Background()
	bridge.ReportProgress(ctx, "9", "/library/metadata/9", StatePlaying, 1000, 7200000)
	bridge.ReportProgress(ctx, "9", "/library/metadata/9", StatePlaying, 2000, 7200000)
	bridge.ReportProgress(ctx, "9", "/library/metadata/9", StatePlaying, 3000, 7200000)

	if calls := client.calls(); len(calls) != 1 {
		t.Fatalf("got %d timeline calls, want 1 (throttled)", len(calls))
	}
}

func TestReportProgressStateChangeBypassesThrottle(t *testing.T) {
	client := &fakeStateClient{}
	bridge := NewBridge(client, time.Hour)

	ctx := context.Background()
	bridge.ReportProgress(ctx, "9", "k", StatePlaying, 1000, 7200000)
	bridge.ReportProgress(ctx, "9", "k", StatePaused, 2000, 7200000)
	bridge.ReportProgress(ctx, "9", "k", StateStopped, 2000, 7200000)

	calls := client.calls()
	if len(calls) != 3 {
		t.Fatalf("got %d timeline calls, want 3 (state changes bypass throttle)", len(calls))
	}
	if calls[1].state != "paused" || calls[2].state != "stopped" {
		t.Errorf("states = %+v, want paused then stopped", calls)
	}
}

func TestReportProgressRetriesOnce(t *testing.T) {
	client := &fakeStateClient{failNext: 1}
	bridge := NewBridge(client, time.Hour)

	bridge.ReportProgress(context.Background(), "9", "k", StatePlaying, 1000, 7200000)

	if calls := client.calls(); len(calls) != 1 {
		t.Fatalf("got %d successful calls, want 1 after a single retry", len(calls))
	}
}

func TestReportProgressDropsAfterRetry(t *testing.T) {
	client := &fakeStateClient{failNext: 2}
	bridge := NewBridge(client, time.Hour)

	// Both attempts fail; the report is dropped without panic or
	// blocking.
	bridge.ReportProgress(context.Background(), "9", "k", StatePlaying, 1000, 7200000)

	if calls := client.calls(); len(calls) != 0 {
		t.Fatalf("got %d calls, want 0", len(calls))
	}
}

func TestSetWatched(t *testing.T) {
	client := &fakeStateClient{}
	bridge := NewBridge(client, time.Second)

	if err := bridge.SetWatched(context.Background(), "9", true); err != nil {
		t.Fatalf("SetWatched(true) error = %v", err)
	}
	if err := bridge.SetWatched(context.Background(), "9", false); err != nil {
		t.Fatalf("SetWatched(false) error = %v", err)
	}

	if len(client.scrobbled) != 1 || client.scrobbled[0] != "9" {
		t.Errorf("scrobbled = %v, want [9]", client.scrobbled)
	}
	if len(client.unscrobbled) != 1 || client.unscrobbled[0] != "9" {
		t.Errorf("unscrobbled = %v, want [9]", client.unscrobbled)
	}
}

func TestFetchProgress(t *testing.T) {
	client := &fakeStateClient{metadata: &plex.Metadata{
		RatingKey:    "9",
		ViewOffset:   120000,
		ViewCount:    2,
		LastViewedAt: 1700000000,
	}}
	bridge := NewBridge(client, time.Second)

	resume, err := bridge.FetchProgress(context.Background(), "9")
	if err != nil {
		t.Fatalf("FetchProgress() error = %v", err)
	}
	if resume.PositionMs != 120000 || resume.PlayCount != 2 {
		t.Errorf("resume = %+v, want position 120000 count 2", resume)
	}
}

func TestFetchProgressUnwatched(t *testing.T) {
	client := &fakeStateClient{metadata: &plex.Metadata{RatingKey: "9"}}
	bridge := NewBridge(client, time.Second)

	resume, err := bridge.FetchProgress(context.Background(), "9")
	if err != nil {
		t.Fatalf("FetchProgress() error = %v", err)
	}
	if resume.PositionMs != 0 || resume.PlayCount != 0 {
		t.Errorf("resume = %+v, want zero state without error", resume)
	}
}
