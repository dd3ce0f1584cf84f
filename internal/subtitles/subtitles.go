// Pleximport - Plex Media Server library import engine
// Copyright 2026 Pleximport contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediabridge/pleximport

// Package subtitles discovers external subtitle files next to a media
// file. A sidecar matches when its name starts with the media file's
// stem; the remaining dot-separated parts are parsed as language tags
// and flags, e.g. "Movie.en.forced.srt".
package subtitles

import (
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/language"

	"github.com/mediabridge/pleximport/internal/host"
)

// Finder locates sidecar subtitles for media files.
type Finder struct {
	extensions map[string]bool
}

// NewFinder creates a finder recognizing the given extensions (without
// the leading dot).
func NewFinder(extensions []string) *Finder {
	exts := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		exts[strings.ToLower(strings.TrimPrefix(e, "."))] = true
	}
	return &Finder{extensions: exts}
}

// Find scans the media file's directory for matching sidecar files.
// The media path is provider-side; when the directory is not visible
// from this process the scan silently yields nothing.
func (f *Finder) Find(mediaPath string) []host.Subtitle {
	if mediaPath == "" {
		return nil
	}

	dir := filepath.Dir(mediaPath)
	stem := strings.TrimSuffix(filepath.Base(mediaPath), filepath.Ext(mediaPath))

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var found []host.Subtitle
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()

		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
		if !f.extensions[ext] {
			continue
		}

		base := strings.TrimSuffix(name, filepath.Ext(name))
		if base != stem && !strings.HasPrefix(base, stem+".") {
			continue
		}

		lang, forced := parseSuffix(strings.TrimPrefix(base, stem))
		found = append(found, host.Subtitle{
			Path:     filepath.Join(dir, name),
			Language: lang,
			Forced:   forced,
		})
	}

	return found
}

// parseSuffix extracts a language and flags from the dot-separated
// tail between stem and extension, e.g. ".en.forced".
func parseSuffix(suffix string) (lang string, forced bool) {
	for _, part := range strings.Split(strings.Trim(suffix, "."), ".") {
		if part == "" {
			continue
		}
		low := strings.ToLower(part)
		if low == "forced" {
			forced = true
			continue
		}
		if lang == "" {
			if tag, err := language.Parse(low); err == nil {
				if base, conf := tag.Base(); conf >= language.High {
					lang = base.String()
				}
			}
		}
	}
	return lang, forced
}
