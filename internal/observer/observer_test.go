// Pleximport - Plex Media Server library import engine
// Copyright 2026 Pleximport contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediabridge/pleximport

package observer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mediabridge/pleximport/internal/host"
)

type fakeSyncer struct {
	items map[string]*host.Item
}

func (f *fakeSyncer) SyncItem(ctx context.Context, ratingKey string) (*host.Item, error) {
	item, ok := f.items[ratingKey]
	if !ok {
		return nil, errors.New("not found")
	}
	return item, nil
}

type recordingSink struct {
	changes []host.ItemChange
}

func (r *recordingSink) ChangeItems(ctx context.Context, changes []host.ItemChange) error {
	r.changes = append(r.changes, changes...)
	return nil
}

func newTestObserver(syncer itemSyncer, sink host.ChangeSink) *Observer {
	return New("http://plex.local:32400", "tok", syncer, sink, time.Second)
}

func TestHandleMessageRemoved(t *testing.T) {
	sink := &recordingSink{}
	o := newTestObserver(&fakeSyncer{}, sink)

	o.handleMessage(context.Background(), []byte(`{"NotificationContainer":{"type":"timeline","TimelineEntry":[
		{"identifier":"com.plexapp.plugins.library","itemID":"42","state":9}
	]}}`))

	if len(sink.changes) != 1 {
		t.Fatalf("got %d changes, want 1", len(sink.changes))
	}
	change := sink.changes[0]
	if change.Type != host.ChangeRemoved || change.ID != "42" || change.Item != nil {
		t.Errorf("change = %+v, want removal of 42 with nil item", change)
	}
}

func TestHandleMessageAddedVersusUpdated(t *testing.T) {
	syncer := &fakeSyncer{items: map[string]*host.Item{
		"1": {ID: "1", AddedAt: 1000, UpdatedAt: 1000}, // fresh
		"2": {ID: "2", AddedAt: 1000, UpdatedAt: 2000}, // edited
	}}
	sink := &recordingSink{}
	o := newTestObserver(syncer, sink)

	o.handleMessage(context.Background(), []byte(`{"NotificationContainer":{"type":"timeline","TimelineEntry":[
		{"identifier":"com.plexapp.plugins.library","itemID":1,"state":5},
		{"identifier":"com.plexapp.plugins.library","itemID":"2","state":5}
	]}}`))

	if len(sink.changes) != 2 {
		t.Fatalf("got %d changes, want 2", len(sink.changes))
	}
	if sink.changes[0].Type != host.ChangeAdded {
		t.Errorf("change[0].Type = %s, want added", sink.changes[0].Type)
	}
	if sink.changes[1].Type != host.ChangeUpdated {
		t.Errorf("change[1].Type = %s, want changed", sink.changes[1].Type)
	}
	if sink.changes[0].Item == nil || sink.changes[1].Item == nil {
		t.Error("non-removal changes must carry the item")
	}
}

func TestHandleMessageIgnoresForeignEntries(t *testing.T) {
	sink := &recordingSink{}
	o := newTestObserver(&fakeSyncer{}, sink)

	// Non-library identifier, non-timeline type, intermediate states
	// and undecodable payloads are all ignored.
	o.handleMessage(context.Background(), []byte(`{"NotificationContainer":{"type":"timeline","TimelineEntry":[
		{"identifier":"com.plexapp.plugins.playlists","itemID":"1","state":9},
		{"identifier":"com.plexapp.plugins.library","itemID":"2","state":0}
	]}}`))
	o.handleMessage(context.Background(), []byte(`{"NotificationContainer":{"type":"playing"}}`))
	o.handleMessage(context.Background(), []byte(`not json`))

	if len(sink.changes) != 0 {
		t.Errorf("got %d changes, want 0", len(sink.changes))
	}
}

func TestHandleMessageFetchFailureSkipsEntry(t *testing.T) {
	sink := &recordingSink{}
	o := newTestObserver(&fakeSyncer{}, sink) // syncer knows no items

	o.handleMessage(context.Background(), []byte(`{"NotificationContainer":{"type":"timeline","TimelineEntry":[
		{"identifier":"com.plexapp.plugins.library","itemID":"7","state":5},
		{"identifier":"com.plexapp.plugins.library","itemID":"8","state":9}
	]}}`))

	// The failed fetch is skipped; the removal still goes through.
	if len(sink.changes) != 1 || sink.changes[0].Type != host.ChangeRemoved {
		t.Fatalf("changes = %+v, want only the removal", sink.changes)
	}
}

func TestSocketURL(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"http://plex.local:32400", "ws://plex.local:32400/:/websockets/notifications?X-Plex-Token=tok"},
		{"https://plex.example:32400", "wss://plex.example:32400/:/websockets/notifications?X-Plex-Token=tok"},
	}
	for _, tt := range tests {
		o := New(tt.base, "tok", &fakeSyncer{}, &recordingSink{}, time.Second)
		got, err := o.socketURL()
		if err != nil {
			t.Fatalf("socketURL(%q) error = %v", tt.base, err)
		}
		if got != tt.want {
			t.Errorf("socketURL(%q) = %q, want %q", tt.base, got, tt.want)
		}
	}
}
