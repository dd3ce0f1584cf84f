// Pleximport - Plex Media Server library import engine
// Copyright 2026 Pleximport contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediabridge/pleximport

package host

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
)

func TestJSONLDelivererAppendsPerSection(t *testing.T) {
	dir := t.TempDir()
	d, err := NewJSONLDeliverer(dir)
	if err != nil {
		t.Fatalf("NewJSONLDeliverer() error = %v", err)
	}
	defer d.Close()

	ctx := context.Background()
	page1 := []Item{{ID: "1", Title: "A"}, {ID: "2", Title: "B"}}
	page2 := []Item{{ID: "3", Title: "C"}}

	if err := d.DeliverItems(ctx, "1", page1); err != nil {
		t.Fatalf("DeliverItems() error = %v", err)
	}
	if err := d.DeliverItems(ctx, "1", page2); err != nil {
		t.Fatalf("DeliverItems() error = %v", err)
	}
	if err := d.DeliverItems(ctx, "2", []Item{{ID: "9", Title: "Z"}}); err != nil {
		t.Fatalf("DeliverItems() error = %v", err)
	}
	if err := d.FinishSection(ctx, Report{SectionKey: "1", Status: StatusSuccess, Delivered: 3}); err != nil {
		t.Fatalf("FinishSection() error = %v", err)
	}

	ids := readIDs(t, filepath.Join(dir, "section-1.jsonl"))
	want := []string{"1", "2", "3"}
	if len(ids) != len(want) {
		t.Fatalf("section-1 ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ids[%d] = %q, want %q", i, ids[i], want[i])
		}
	}

	if other := readIDs(t, filepath.Join(dir, "section-2.jsonl")); len(other) != 1 || other[0] != "9" {
		t.Errorf("section-2 ids = %v, want [9]", other)
	}
}

func TestJSONLDelivererChanges(t *testing.T) {
	dir := t.TempDir()
	d, err := NewJSONLDeliverer(dir)
	if err != nil {
		t.Fatalf("NewJSONLDeliverer() error = %v", err)
	}
	defer d.Close()

	changes := []ItemChange{
		{Type: ChangeAdded, ID: "1", Item: &Item{ID: "1", Title: "A"}},
		{Type: ChangeRemoved, ID: "2"},
	}
	if err := d.ChangeItems(context.Background(), changes); err != nil {
		t.Fatalf("ChangeItems() error = %v", err)
	}

	f, err := os.Open(filepath.Join(dir, "section-changes.jsonl"))
	if err != nil {
		t.Fatalf("open changes file: %v", err)
	}
	defer f.Close()

	lines := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines++
	}
	if lines != 2 {
		t.Errorf("changes file has %d lines, want 2", lines)
	}
}

func readIDs(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	var ids []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var item Item
		if err := json.Unmarshal(scanner.Bytes(), &item); err != nil {
			t.Fatalf("decode line %q: %v", scanner.Text(), err)
		}
		ids = append(ids, item.ID)
	}
	return ids
}
