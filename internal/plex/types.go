// Pleximport - Plex Media Server library import engine
// Copyright 2026 Pleximport contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediabridge/pleximport

package plex

// Library content kinds as reported by the server.
const (
	TypeMovie      = "movie"
	TypeShow       = "show"
	TypeSeason     = "season"
	TypeEpisode    = "episode"
	TypeCollection = "collection"
)

// Numeric type filters for /library/sections/{key}/all?type=N.
const (
	TypeFilterMovie      = 1
	TypeFilterShow       = 2
	TypeFilterSeason     = 3
	TypeFilterEpisode    = 4
	TypeFilterCollection = 18
)

// Playback states accepted by the timeline endpoint.
const (
	StatePlaying = "playing"
	StatePaused  = "paused"
	StateStopped = "stopped"
)

// Identity describes a server.
type Identity struct {
	MachineIdentifier string
	Version           string
}

type identityResponse struct {
	MediaContainer struct {
		MachineIdentifier string `json:"machineIdentifier"`
		Version           string `json:"version"`
	} `json:"MediaContainer"`
}

// SectionsResponse wraps GET /library/sections.
type SectionsResponse struct {
	MediaContainer struct {
		Size      int       `json:"size"`
		Directory []Section `json:"Directory"`
	} `json:"MediaContainer"`
}

// Section is one library section (Movies, TV Shows, Music, ...).
type Section struct {
	Key       string `json:"key"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	UUID      string `json:"uuid"`
	UpdatedAt int64  `json:"updatedAt"`
	ScannedAt int64  `json:"scannedAt"`
}

// ContainerResponse wraps paged item listings.
type ContainerResponse struct {
	MediaContainer struct {
		Size      int        `json:"size"`
		TotalSize int        `json:"totalSize"`
		Offset    int        `json:"offset"`
		Metadata  []Metadata `json:"Metadata"`
	} `json:"MediaContainer"`
}

// MetadataResponse wraps GET /library/metadata/{ratingKey}.
type MetadataResponse struct {
	MediaContainer struct {
		Size     int        `json:"size"`
		Metadata []Metadata `json:"Metadata"`
	} `json:"MediaContainer"`
}

// Metadata is one library item as returned by the server. It is the
// engine's RemoteItem representation: transient, materialized per page
// and discarded after translation.
type Metadata struct {
	RatingKey            string  `json:"ratingKey"`
	Key                  string  `json:"key"`
	LibrarySectionID     int64   `json:"librarySectionID,omitempty"`
	ParentRatingKey      string  `json:"parentRatingKey,omitempty"`
	GrandparentRatingKey string  `json:"grandparentRatingKey,omitempty"`
	Type                 string  `json:"type"`
	Title                string  `json:"title"`
	TitleSort            string  `json:"titleSort,omitempty"`
	OriginalTitle        string  `json:"originalTitle,omitempty"`
	ParentTitle          string  `json:"parentTitle,omitempty"`
	GrandparentTitle     string  `json:"grandparentTitle,omitempty"`
	Summary              string  `json:"summary,omitempty"`
	Tagline              string  `json:"tagline,omitempty"`
	Studio               string  `json:"studio,omitempty"`
	ContentRating        string  `json:"contentRating,omitempty"`
	Rating               float64 `json:"rating,omitempty"`
	UserRating           float64 `json:"userRating,omitempty"`
	Year                 int     `json:"year,omitempty"`
	Index                int     `json:"index,omitempty"`
	ParentIndex          int     `json:"parentIndex,omitempty"`

	// Durations and offsets are milliseconds; timestamps are unix
	// seconds.
	Duration              int64  `json:"duration,omitempty"`
	ViewOffset            int64  `json:"viewOffset,omitempty"`
	ViewCount             int    `json:"viewCount,omitempty"`
	AddedAt               int64  `json:"addedAt,omitempty"`
	UpdatedAt             int64  `json:"updatedAt,omitempty"`
	LastViewedAt          int64  `json:"lastViewedAt,omitempty"`
	OriginallyAvailableAt string `json:"originallyAvailableAt,omitempty"`

	Thumb string `json:"thumb,omitempty"`
	Art   string `json:"art,omitempty"`

	GUIDs       []GUID   `json:"Guid,omitempty"`
	Media       []Media  `json:"Media,omitempty"`
	Markers     []Marker `json:"Marker,omitempty"`
	Genres      []Tag    `json:"Genre,omitempty"`
	Directors   []Tag    `json:"Director,omitempty"`
	Writers     []Tag    `json:"Writer,omitempty"`
	Countries   []Tag    `json:"Country,omitempty"`
	Collections []Tag    `json:"Collection,omitempty"`
	Roles       []Role   `json:"Role,omitempty"`
}

// GUID is an external identifier reference, e.g. "imdb://tt0133093".
type GUID struct {
	ID string `json:"id"`
}

// Tag is a generic tag wrapper (genres, directors, collections, ...).
type Tag struct {
	Tag string `json:"tag"`
}

// Role is a cast entry.
type Role struct {
	Tag  string `json:"tag"`
	Role string `json:"role,omitempty"`
}

// Media is one version of an item (a distinct encode/file set).
type Media struct {
	ID              int64  `json:"id"`
	VideoResolution string `json:"videoResolution,omitempty"`
	Bitrate         int    `json:"bitrate,omitempty"`
	VideoCodec      string `json:"videoCodec,omitempty"`
	AudioCodec      string `json:"audioCodec,omitempty"`
	AudioChannels   int    `json:"audioChannels,omitempty"`
	Width           int    `json:"width,omitempty"`
	Height          int    `json:"height,omitempty"`
	Duration        int64  `json:"duration,omitempty"`
	Selected        bool   `json:"selected,omitempty"`
	Parts           []Part `json:"Part,omitempty"`
}

// Part is one file of a media version.
type Part struct {
	ID       int64    `json:"id"`
	Key      string   `json:"key"`
	File     string   `json:"file,omitempty"`
	Size     int64    `json:"size,omitempty"`
	Duration int64    `json:"duration,omitempty"`
	Streams  []Stream `json:"Stream,omitempty"`
}

// Stream type discriminators within a part.
const (
	StreamTypeVideo    = 1
	StreamTypeAudio    = 2
	StreamTypeSubtitle = 3
)

// Stream is one elementary stream of a part.
type Stream struct {
	ID           int64  `json:"id"`
	StreamType   int    `json:"streamType"`
	Codec        string `json:"codec,omitempty"`
	Language     string `json:"language,omitempty"`
	LanguageTag  string `json:"languageTag,omitempty"`
	LanguageCode string `json:"languageCode,omitempty"`
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
	Channels     int    `json:"channels,omitempty"`
	// Key is set for external (sidecar) streams only.
	Key string `json:"key,omitempty"`
}

// Marker kinds used for skip features.
const (
	MarkerIntro      = "intro"
	MarkerCommercial = "commercial"
	MarkerCredits    = "credits"
)

// Marker is a timed interval within an item.
type Marker struct {
	Type            string `json:"type"`
	StartTimeOffset int64  `json:"startTimeOffset"`
	EndTimeOffset   int64  `json:"endTimeOffset"`
}
