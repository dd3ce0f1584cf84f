// Pleximport - Plex Media Server library import engine
// Copyright 2026 Pleximport contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediabridge/pleximport

package subtitles

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

func TestFindSidecars(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir,
		"Movie (1999).mkv",
		"Movie (1999).srt",
		"Movie (1999).en.srt",
		"Movie (1999).de.forced.ass",
		"Movie (1999).txt",     // wrong extension
		"Other Movie.en.srt",   // different stem
		"Movie (1999) CD2.srt", // stem is a prefix but not dot-separated
	)

	finder := NewFinder([]string{"srt", "ass"})
	found := finder.Find(filepath.Join(dir, "Movie (1999).mkv"))

	if len(found) != 3 {
		t.Fatalf("got %d subtitles, want 3: %+v", len(found), found)
	}

	byPath := make(map[string]struct {
		lang   string
		forced bool
	})
	for _, s := range found {
		byPath[filepath.Base(s.Path)] = struct {
			lang   string
			forced bool
		}{s.Language, s.Forced}
	}

	if got := byPath["Movie (1999).srt"]; got.lang != "" || got.forced {
		t.Errorf("bare sidecar = %+v, want no language", got)
	}
	if got := byPath["Movie (1999).en.srt"]; got.lang != "en" {
		t.Errorf("en sidecar language = %q, want en", got.lang)
	}
	if got := byPath["Movie (1999).de.forced.ass"]; got.lang != "de" || !got.forced {
		t.Errorf("forced sidecar = %+v, want de/forced", got)
	}
}

func TestFindMissingDirectory(t *testing.T) {
	finder := NewFinder([]string{"srt"})
	if found := finder.Find("/nonexistent/path/movie.mkv"); found != nil {
		t.Errorf("Find() = %v, want nil for unreadable directory", found)
	}
}

func TestFindEmptyPath(t *testing.T) {
	finder := NewFinder([]string{"srt"})
	if found := finder.Find(""); found != nil {
		t.Errorf("Find(\"\") = %v, want nil", found)
	}
}

func TestParseSuffix(t *testing.T) {
	tests := []struct {
		suffix     string
		wantLang   string
		wantForced bool
	}{
		{"", "", false},
		{".en", "en", false},
		{".eng", "en", false},
		{".de.forced", "de", true},
		{".forced", "", true},
		{".whatever", "", false},
	}
	for _, tt := range tests {
		lang, forced := parseSuffix(tt.suffix)
		if lang != tt.wantLang || forced != tt.wantForced {
			t.Errorf("parseSuffix(%q) = (%q, %v), want (%q, %v)", tt.suffix, lang, forced, tt.wantLang, tt.wantForced)
		}
	}
}
