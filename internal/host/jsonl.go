// Pleximport - Plex Media Server library import engine
// Copyright 2026 Pleximport contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediabridge/pleximport

package host

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"

	"github.com/mediabridge/pleximport/internal/logging"
)

// JSONLDeliverer is the bundled host adapter: it appends delivered
// items as JSON lines, one file per section, under a base directory.
// Deployments embedding the engine in a real media host supply their
// own Deliverer instead.
type JSONLDeliverer struct {
	dir string

	mu    sync.Mutex
	files map[string]*os.File
}

// NewJSONLDeliverer creates the adapter, creating dir if needed.
func NewJSONLDeliverer(dir string) (*JSONLDeliverer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export directory: %w", err)
	}
	return &JSONLDeliverer{dir: dir, files: make(map[string]*os.File)}, nil
}

// DeliverItems appends one page of items to the section's export file.
func (d *JSONLDeliverer) DeliverItems(ctx context.Context, sectionKey string, items []Item) error {
	f, err := d.file(sectionKey)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	enc := json.NewEncoder(f)
	for i := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := enc.Encode(&items[i]); err != nil {
			return fmt.Errorf("write item %s: %w", items[i].ID, err)
		}
	}
	return nil
}

// FinishSection logs the outcome and syncs the section file.
func (d *JSONLDeliverer) FinishSection(ctx context.Context, report Report) error {
	d.mu.Lock()
	f, ok := d.files[report.SectionKey]
	d.mu.Unlock()

	if ok {
		if err := f.Sync(); err != nil {
			return fmt.Errorf("sync export file: %w", err)
		}
	}

	logging.Info().
		Str("section", report.SectionKey).
		Str("status", string(report.Status)).
		Int("delivered", report.Delivered).
		Int("skipped", report.Skipped).
		Msg("section export finished")
	return nil
}

// ChangeItems appends change notifications to a shared changes file.
func (d *JSONLDeliverer) ChangeItems(ctx context.Context, changes []ItemChange) error {
	f, err := d.file("changes")
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	enc := json.NewEncoder(f)
	for i := range changes {
		if err := enc.Encode(&changes[i]); err != nil {
			return fmt.Errorf("write change %s: %w", changes[i].ID, err)
		}
	}
	return nil
}

// Close releases all open export files.
func (d *JSONLDeliverer) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var firstErr error
	for _, f := range d.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	d.files = make(map[string]*os.File)
	return firstErr
}

func (d *JSONLDeliverer) file(sectionKey string) (*os.File, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if f, ok := d.files[sectionKey]; ok {
		return f, nil
	}

	path := filepath.Join(d.dir, "section-"+sectionKey+".jsonl")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open export file: %w", err)
	}
	d.files[sectionKey] = f
	return f, nil
}
