// Pleximport - Plex Media Server library import engine
// Copyright 2026 Pleximport contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediabridge/pleximport

// Package importer drives library synchronization: it enumerates a
// provider's sections, pages their items, translates each page into
// host items on a bounded worker pool, and delivers pages to the host
// in provider order. A durable per-section cursor enables a
// changed-since fast path on subsequent runs; the cursor only advances
// past items the host has accepted.
package importer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mediabridge/pleximport/internal/config"
	"github.com/mediabridge/pleximport/internal/cursor"
	"github.com/mediabridge/pleximport/internal/host"
	"github.com/mediabridge/pleximport/internal/logging"
	"github.com/mediabridge/pleximport/internal/metrics"
	"github.com/mediabridge/pleximport/internal/plex"
)

// sectionPasses maps a section kind to the item type passes executed
// for it. Shows are expanded into show, season, and episode records so
// the host receives the full hierarchy.
var sectionPasses = map[string][]int{
	plex.TypeMovie: {plex.TypeFilterMovie, plex.TypeFilterCollection},
	plex.TypeShow:  {plex.TypeFilterShow, plex.TypeFilterSeason, plex.TypeFilterEpisode},
}

// Engine synchronizes one provider into one host.
type Engine struct {
	client     providerClient
	deliverer  host.Deliverer
	cursors    *cursor.Store
	translator *Translator
	providerID string

	pageSize          int
	workers           int
	retryAttempts     int
	retryInitialDelay time.Duration
	forceFull         bool
	sectionFilter     map[string]bool

	// runLocks serializes concurrent syncs of the same section.
	mu       sync.Mutex
	runLocks map[string]*sync.Mutex
}

// NewEngine wires an engine from its collaborators and sync settings.
func NewEngine(client providerClient, deliverer host.Deliverer, cursors *cursor.Store, translator *Translator, providerID string, cfg config.SyncConfig) *Engine {
	var filter map[string]bool
	if len(cfg.Sections) > 0 {
		filter = make(map[string]bool, len(cfg.Sections))
		for _, key := range cfg.Sections {
			filter[key] = true
		}
	}
	return &Engine{
		client:            client,
		deliverer:         deliverer,
		cursors:           cursors,
		translator:        translator,
		providerID:        providerID,
		pageSize:          cfg.PageSize,
		workers:           cfg.Workers,
		retryAttempts:     cfg.RetryAttempts,
		retryInitialDelay: cfg.RetryInitialDelay,
		forceFull:         cfg.ForceFull,
		sectionFilter:     filter,
	}
}

// Sections lists the provider's importable sections.
func (e *Engine) Sections(ctx context.Context) ([]plex.Section, error) {
	sections, err := e.client.GetSections(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	out := sections[:0]
	for _, s := range sections {
		if _, ok := sectionPasses[s.Type]; !ok {
			continue
		}
		if e.sectionFilter != nil && !e.sectionFilter[s.Key] {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

// Sync synchronizes every importable section and returns one report
// per attempted section. Sections fail independently: an aborted
// section never blocks the rest. The returned error is non-nil only
// when the provider could not be enumerated at all.
func (e *Engine) Sync(ctx context.Context) ([]host.Report, error) {
	sections, err := e.Sections(ctx)
	if err != nil {
		metrics.SyncRuns.WithLabelValues(string(host.StatusFailed)).Inc()
		return nil, err
	}

	reports := make([]host.Report, 0, len(sections))
	runStatus := host.StatusSuccess

	for _, section := range sections {
		if ctx.Err() != nil {
			break
		}

		report := e.SyncSection(ctx, section)
		reports = append(reports, report)

		switch report.Status {
		case host.StatusFailed:
			runStatus = host.StatusFailed
		case host.StatusPartial, host.StatusCancelled:
			if runStatus == host.StatusSuccess {
				runStatus = host.StatusPartial
			}
		}
	}

	metrics.SyncRuns.WithLabelValues(string(runStatus)).Inc()
	return reports, nil
}

// SyncSection synchronizes one section and reports the outcome. The
// report is also pushed to the host via FinishSection, exactly once,
// regardless of outcome.
func (e *Engine) SyncSection(ctx context.Context, section plex.Section) host.Report {
	report := host.Report{
		SectionKey:   section.Key,
		SectionTitle: section.Title,
		Kind:         host.MediaType(section.Type),
		Status:       host.StatusSuccess,
	}

	passes, ok := sectionPasses[section.Type]
	if !ok {
		report.Status = host.StatusFailed
		report.Err = fmt.Errorf("%w: %s", ErrUnsupportedSection, section.Type)
		return report
	}

	lock := e.lockFor(section.Key)
	if !lock.TryLock() {
		report.Status = host.StatusFailed
		report.Err = fmt.Errorf("%w: section %s", ErrSyncInProgress, section.Key)
		return report
	}
	defer lock.Unlock()

	start := time.Now()
	defer func() {
		metrics.SectionSyncDuration.WithLabelValues(section.Type).Observe(time.Since(start).Seconds())
		metrics.SectionSyncs.WithLabelValues(section.Type, string(report.Status)).Inc()

		if err := e.deliverer.FinishSection(ctx, report); err != nil {
			logging.Error().Err(err).Str("section", section.Key).Msg("host rejected section report")
		}
	}()

	since, err := e.sectionCursor(section.Key)
	if err != nil {
		logging.Warn().Err(err).Str("section", section.Key).Msg("cursor read failed, falling back to full sync")
		since = 0
	}

	logging.Info().
		Str("section", section.Key).
		Str("title", section.Title).
		Str("kind", section.Type).
		Int64("since", since).
		Msg("section sync started")

	// The section cursor is persisted once per run: every pass must
	// finish before a marker beyond the run's start is safe, since a
	// later pass may still hold undelivered items below an earlier
	// pass's maximum. On a pass failure only that pass's delivered
	// watermark is stored, so the next delta run re-covers everything
	// the failed pass left behind.
	var watermark int64
	for _, typeFilter := range passes {
		passMark, err := e.syncPass(ctx, section.Key, typeFilter, since, &report)
		if passMark > watermark {
			watermark = passMark
		}
		if err != nil {
			e.persistCursor(section.Key, passMark)

			if errors.Is(err, context.Canceled) {
				report.Status = host.StatusCancelled
				report.Err = fmt.Errorf("section %s: %w", section.Key, err)
				logging.Info().Str("section", section.Key).Msg("section sync cancelled")
				return report
			}

			report.Status = host.StatusFailed
			report.Err = fmt.Errorf("%w: section %s: %v", ErrSectionSyncFailed, section.Key, err)
			logging.Error().Err(report.Err).Str("section", section.Key).Msg("section sync aborted")
			return report
		}
	}

	e.persistCursor(section.Key, watermark)

	if report.Skipped > 0 {
		report.Status = host.StatusPartial
	}

	logging.Info().
		Str("section", section.Key).
		Int("delivered", report.Delivered).
		Int("skipped", report.Skipped).
		Str("status", string(report.Status)).
		Dur("elapsed", time.Since(start)).
		Msg("section sync finished")
	return report
}

// syncPass pages through one item type of a section, translating and
// delivering each page before fetching the next. Pages arrive in
// ascending update-marker order, so the returned watermark is the
// highest marker among pages the host has accepted; on error it covers
// the last fully delivered page only.
func (e *Engine) syncPass(ctx context.Context, sectionKey string, typeFilter int, since int64, report *host.Report) (int64, error) {
	offset := 0
	var watermark int64

	for {
		if err := ctx.Err(); err != nil {
			return watermark, err
		}

		page, err := e.fetchPage(ctx, sectionKey, plex.ItemsOptions{
			Start:        offset,
			Size:         e.pageSize,
			UpdatedSince: since,
			TypeFilter:   typeFilter,
		})
		if err != nil {
			return watermark, err
		}

		records := page.MediaContainer.Metadata
		if len(records) == 0 {
			return watermark, nil
		}

		items, skipped, err := translatePage(ctx, e.translator, sectionKey, records, e.workers)
		if err != nil {
			return watermark, err
		}
		report.Skipped += skipped

		if len(items) > 0 {
			if err := e.deliverer.DeliverItems(ctx, sectionKey, items); err != nil {
				return watermark, fmt.Errorf("deliver page at offset %d: %w", offset, err)
			}
			report.Delivered += len(items)

			if mark := pageWatermark(items); mark > watermark {
				watermark = mark
			}
		}

		offset += len(records)
		total := page.MediaContainer.TotalSize
		if total > 0 && offset >= total {
			return watermark, nil
		}
	}
}

// sectionCursor returns the changed-since watermark for a section, or
// 0 when a full enumeration is required.
func (e *Engine) sectionCursor(sectionKey string) (int64, error) {
	if e.forceFull {
		return 0, nil
	}
	return e.cursors.Get(e.providerID, sectionKey)
}

// persistCursor stores a section watermark. Zero means nothing was
// delivered and leaves the cursor alone.
func (e *Engine) persistCursor(sectionKey string, watermark int64) {
	if watermark == 0 {
		return
	}
	if err := e.cursors.Put(e.providerID, sectionKey, watermark); err != nil {
		logging.Warn().Err(err).Str("section", sectionKey).Msg("cursor write failed")
	}
}

// pageWatermark returns the highest update marker among delivered
// items.
func pageWatermark(delivered []host.Item) int64 {
	var max int64
	for _, item := range delivered {
		if item.UpdatedAt > max {
			max = item.UpdatedAt
		}
	}
	return max
}

// ResetSection drops a section's cursor so the next run enumerates it
// in full.
func (e *Engine) ResetSection(sectionKey string) error {
	return e.cursors.Delete(e.providerID, sectionKey)
}

func (e *Engine) lockFor(sectionKey string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.runLocks == nil {
		e.runLocks = make(map[string]*sync.Mutex)
	}
	key := e.providerID + ":" + sectionKey
	lock, ok := e.runLocks[key]
	if !ok {
		lock = &sync.Mutex{}
		e.runLocks[key] = lock
	}
	return lock
}
