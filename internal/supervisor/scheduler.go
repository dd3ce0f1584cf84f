// Pleximport - Plex Media Server library import engine
// Copyright 2026 Pleximport contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediabridge/pleximport

package supervisor

import (
	"context"
	"time"

	"github.com/mediabridge/pleximport/internal/host"
	"github.com/mediabridge/pleximport/internal/logging"
)

// syncRunner is the engine surface the scheduler needs.
type syncRunner interface {
	Sync(ctx context.Context) ([]host.Report, error)
}

// Scheduler runs periodic sync passes. With a zero interval it runs
// one initial pass and then idles until shutdown, leaving further runs
// to the admin API.
type Scheduler struct {
	engine   syncRunner
	interval time.Duration
}

// NewScheduler creates a scheduler over the engine.
func NewScheduler(engine syncRunner, interval time.Duration) *Scheduler {
	return &Scheduler{engine: engine, interval: interval}
}

// String names the service in supervisor logs.
func (s *Scheduler) String() string { return "sync-scheduler" }

// Serve runs until ctx is cancelled.
func (s *Scheduler) Serve(ctx context.Context) error {
	s.runOnce(ctx)

	if s.interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	reports, err := s.engine.Sync(ctx)
	if err != nil {
		logging.Error().Err(err).Msg("scheduled sync failed")
		return
	}

	delivered, skipped := 0, 0
	for _, r := range reports {
		delivered += r.Delivered
		skipped += r.Skipped
	}
	logging.Info().
		Int("sections", len(reports)).
		Int("delivered", delivered).
		Int("skipped", skipped).
		Msg("scheduled sync finished")
}
