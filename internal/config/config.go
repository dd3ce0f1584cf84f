// Pleximport - Plex Media Server library import engine
// Copyright 2026 Pleximport contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediabridge/pleximport

// Package config defines the pleximport configuration model and its
// koanf-based loader. Configuration is layered: struct defaults, then
// an optional YAML file, then PLEXIMPORT_-prefixed environment
// variables. The merged result is validated before use.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the root configuration passed into the sync engine at run
// start. There is no ambient settings state; everything the engine
// needs travels through this struct.
type Config struct {
	Provider  ProviderConfig  `koanf:"provider"`
	Discovery DiscoveryConfig `koanf:"discovery"`
	Sync      SyncConfig      `koanf:"sync"`
	Subtitles SubtitlesConfig `koanf:"subtitles"`
	Playback  PlaybackConfig  `koanf:"playback"`
	Observer  ObserverConfig  `koanf:"observer"`
	Host      HostConfig      `koanf:"host"`
	Store     StoreConfig     `koanf:"store"`
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ProviderConfig identifies and authenticates the Plex Media Server to
// import from.
type ProviderConfig struct {
	// MachineID is the server's machine identifier. Optional when URL
	// is set; required for plex.tv resource resolution.
	MachineID string `koanf:"machine_id"`

	// URL is an explicit access URL override. When set it is ranked
	// ahead of any discovered or plex.tv-resolved connection.
	URL string `koanf:"url" validate:"omitempty,url"`

	// Token is the X-Plex-Token used against the server. Empty is
	// allowed in local-only mode.
	Token string `koanf:"token"`

	// LocalOnly disables plex.tv resolution and token requirements;
	// only direct local connections are attempted.
	LocalOnly bool `koanf:"local_only"`

	// Timeout bounds every request against the server.
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`
}

// DiscoveryConfig controls GDM discovery of servers on the local
// network.
type DiscoveryConfig struct {
	Enabled bool `koanf:"enabled"`

	// Timeout bounds one discovery round; servers that do not answer
	// within it are not considered.
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`
}

// SyncConfig controls the import engine.
type SyncConfig struct {
	// PageSize is the number of items requested per container page.
	PageSize int `koanf:"page_size" validate:"gt=0,lte=1000"`

	// Workers is the size of the translation worker pool per page.
	Workers int `koanf:"workers" validate:"gte=1,lte=32"`

	// RetryAttempts bounds the per-page retry count on transient
	// failure. The first attempt is not a retry: a page is fetched at
	// most RetryAttempts+1 times.
	RetryAttempts int `koanf:"retry_attempts" validate:"gte=0,lte=10"`

	// RetryInitialDelay seeds the exponential backoff between page
	// retry attempts.
	RetryInitialDelay time.Duration `koanf:"retry_initial_delay" validate:"gt=0"`

	// ForceFull disables the changed-since fast path and performs a
	// full enumeration regardless of stored cursors.
	ForceFull bool `koanf:"force_full"`

	// Sections restricts the sync to the listed section keys. Empty
	// means all supported sections.
	Sections []string `koanf:"sections"`

	// Interval is the period of the background sync scheduler. Zero
	// disables scheduled runs (sync on demand only).
	Interval time.Duration `koanf:"interval"`
}

// SubtitlesConfig controls external subtitle discovery next to media
// files.
type SubtitlesConfig struct {
	Enabled bool `koanf:"enabled"`

	// Extensions lists recognized subtitle file extensions without the
	// leading dot.
	Extensions []string `koanf:"extensions"`
}

// PlaybackConfig controls playback state reporting.
type PlaybackConfig struct {
	// ReportInterval is the minimum spacing between periodic progress
	// reports for the same item.
	ReportInterval time.Duration `koanf:"report_interval" validate:"gt=0"`
}

// ObserverConfig controls the websocket change observer.
type ObserverConfig struct {
	Enabled bool `koanf:"enabled"`

	// ReconnectDelay is the pause before re-dialing a dropped
	// notification socket.
	ReconnectDelay time.Duration `koanf:"reconnect_delay" validate:"gt=0"`
}

// HostConfig selects the host adapter receiving delivered items.
type HostConfig struct {
	// ExportDir is where the bundled JSONL adapter writes delivered
	// items, one file per section.
	ExportDir string `koanf:"export_dir"`
}

// StoreConfig locates the durable cursor store.
type StoreConfig struct {
	// Path is the BadgerDB directory. Empty selects an in-memory store
	// (cursors lost on restart).
	Path string `koanf:"path"`
}

// ServerConfig configures the admin/control HTTP listener.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port" validate:"gte=1,lte=65535"`
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

// defaultConfig returns a Config with all defaults applied. These are
// layered first and overridden by file and environment values.
func defaultConfig() *Config {
	return &Config{
		Provider: ProviderConfig{
			Timeout: 30 * time.Second,
		},
		Discovery: DiscoveryConfig{
			Enabled: true,
			Timeout: 2 * time.Second,
		},
		Sync: SyncConfig{
			PageSize:          100,
			Workers:           4,
			RetryAttempts:     3,
			RetryInitialDelay: 500 * time.Millisecond,
			ForceFull:         false,
			Interval:          0,
		},
		Subtitles: SubtitlesConfig{
			Enabled:    true,
			Extensions: []string{"srt", "ass", "ssa", "sub", "vtt"},
		},
		Playback: PlaybackConfig{
			ReportInterval: 5 * time.Second,
		},
		Observer: ObserverConfig{
			Enabled:        false,
			ReconnectDelay: 10 * time.Second,
		},
		Host: HostConfig{
			ExportDir: "/data/pleximport/export",
		},
		Store: StoreConfig{
			Path: "/data/pleximport",
		},
		Server: ServerConfig{
			Host:    "127.0.0.1",
			Port:    3852,
			Timeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks the configuration for structural and semantic
// errors.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// The engine needs at least one way to find a server.
	if c.Provider.URL == "" && c.Provider.MachineID == "" && !c.Discovery.Enabled {
		return fmt.Errorf("invalid configuration: provider.url, provider.machine_id or discovery.enabled must be set")
	}

	if !c.Provider.LocalOnly && c.Provider.Token == "" && c.Provider.MachineID != "" {
		return fmt.Errorf("invalid configuration: provider.token is required unless provider.local_only is set")
	}

	return nil
}
