// Pleximport - Plex Media Server library import engine
// Copyright 2026 Pleximport contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediabridge/pleximport

// Package host defines the boundary between the import engine and the
// consuming media host: the provider-independent item model delivered
// to it and the interfaces the host implements to receive items and
// change notifications.
package host

import "context"

// MediaType classifies a delivered item.
type MediaType string

const (
	MediaTypeMovie      MediaType = "movie"
	MediaTypeShow       MediaType = "show"
	MediaTypeSeason     MediaType = "season"
	MediaTypeEpisode    MediaType = "episode"
	MediaTypeCollection MediaType = "collection"
)

// Known external identifier namespaces. GUIDs outside these are
// dropped during translation.
const (
	NamespaceIMDB = "imdb"
	NamespaceTMDB = "tmdb"
	NamespaceTVDB = "tvdb"
)

// Item is one fully translated library item. It is a self-contained
// value: the host never needs to reach back to the provider to render
// or play it.
type Item struct {
	// ID is the provider's stable item identifier (the rating key).
	ID string

	// ProviderID is the machine identifier of the originating server.
	ProviderID string

	// SectionKey is the library section the item belongs to.
	SectionKey string

	Type  MediaType
	Title string

	// SortTitle and OriginalTitle are optional title variants.
	SortTitle     string
	OriginalTitle string

	// ShowTitle and SeasonIndex/EpisodeIndex position episodic content.
	ShowTitle    string
	SeasonTitle  string
	SeasonIndex  int
	EpisodeIndex int

	Summary       string
	Tagline       string
	Studio        string
	ContentRating string
	Year          int
	Premiered     string

	// Rating is the critic rating, UserRating the account's own.
	Rating     float64
	UserRating float64

	Genres      []string
	Directors   []string
	Writers     []string
	Countries   []string
	Collections []string
	Cast        []CastMember

	// UniqueIDs maps identifier namespace to value, e.g.
	// "imdb" -> "tt0133093". First writer wins on conflict.
	UniqueIDs map[string]string

	// Artwork URLs on the provider, token included.
	Thumb string
	Art   string

	// DurationMs is the runtime of the primary version.
	DurationMs int64

	// Versions lists every available encode of the item. Exactly one
	// is the primary.
	Versions []Version

	// Subtitles lists external subtitle files found next to the
	// primary version's media file.
	Subtitles []Subtitle

	// Markers are skippable intervals (intro, commercial, credits).
	Markers []Marker

	// Resume carries watch state from the provider.
	Resume Resume

	// AddedAt and UpdatedAt are unix seconds; UpdatedAt drives the
	// delta cursor.
	AddedAt   int64
	UpdatedAt int64
}

// CastMember is one cast credit.
type CastMember struct {
	Name string
	Role string
}

// Version is one encode/file set of an item.
type Version struct {
	// ID is the provider's media version identifier.
	ID int64

	// Primary marks the version chosen for default playback.
	Primary bool

	// Name is a human-readable label derived from resolution and
	// codecs, e.g. "1080p h264".
	Name string

	Resolution    string
	Width         int
	Height        int
	Bitrate       int
	VideoCodec    string
	AudioCodec    string
	AudioChannels int
	DurationMs    int64

	// File is the provider-side path of the first part; PlayKey is the
	// streaming key used to build a playback URL.
	File    string
	PlayKey string
	SizeB   int64
}

// Subtitle is one external subtitle file.
type Subtitle struct {
	Path     string
	Language string
	Forced   bool
}

// Marker is a skippable interval in milliseconds.
type Marker struct {
	Type    string
	StartMs int64
	EndMs   int64
}

// Resume is watch state for an item.
type Resume struct {
	// PositionMs is the saved playback offset; 0 means unstarted or
	// fully watched (see PlayCount).
	PositionMs int64

	// PlayCount > 0 marks the item watched.
	PlayCount int

	LastViewedAt int64
}

// ChangeType classifies an observer notification.
type ChangeType string

const (
	ChangeAdded   ChangeType = "added"
	ChangeUpdated ChangeType = "changed"
	ChangeRemoved ChangeType = "removed"
)

// ItemChange is one change notification delivered outside a sync run.
// Item is nil for removals.
type ItemChange struct {
	Type ChangeType
	ID   string
	Item *Item
}

// ReportStatus summarizes a section sync outcome.
type ReportStatus string

const (
	// StatusSuccess means every enumerated item was delivered.
	StatusSuccess ReportStatus = "success"

	// StatusPartial means the sync completed but some items were
	// skipped after translation failures.
	StatusPartial ReportStatus = "partial"

	// StatusCancelled means the run was stopped cooperatively before
	// the section completed; undelivered items remain covered by the
	// cursor and are picked up by the next run.
	StatusCancelled ReportStatus = "cancelled"

	// StatusFailed means the sync aborted before completing the
	// section.
	StatusFailed ReportStatus = "failed"
)

// Report is the per-section outcome returned to the caller and pushed
// to the host via FinishSection.
type Report struct {
	SectionKey   string
	SectionTitle string
	Kind         MediaType
	Status       ReportStatus
	Delivered    int
	Skipped      int
	Err          error
}

// Deliverer is implemented by the media host. The engine calls
// DeliverItems once per translated page, preserving provider order,
// and FinishSection exactly once per attempted section.
//
// DeliverItems returning an error aborts the section; the cursor does
// not advance past undelivered items.
type Deliverer interface {
	DeliverItems(ctx context.Context, sectionKey string, items []Item) error
	FinishSection(ctx context.Context, report Report) error
}

// ChangeSink receives out-of-band change notifications from the
// observer. Hosts that do not track live changes may embed
// NopChangeSink.
type ChangeSink interface {
	ChangeItems(ctx context.Context, changes []ItemChange) error
}

// NopChangeSink discards change notifications.
type NopChangeSink struct{}

func (NopChangeSink) ChangeItems(context.Context, []ItemChange) error { return nil }
