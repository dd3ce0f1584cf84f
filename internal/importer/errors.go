// Pleximport - Plex Media Server library import engine
// Copyright 2026 Pleximport contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediabridge/pleximport

package importer

import "errors"

// Sentinel errors of the import engine. Callers distinguish transport
// failures (retryable at the run level) from data failures (skipped
// per item) with errors.Is.
var (
	// ErrProviderUnavailable means the provider stopped answering
	// mid-run.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrSectionSyncFailed means a section aborted after exhausting
	// page retries. Other sections are unaffected.
	ErrSectionSyncFailed = errors.New("section sync failed")

	// ErrItemTranslation means one item could not be translated. The
	// item is skipped; the page continues.
	ErrItemTranslation = errors.New("item translation failed")

	// ErrSyncInProgress means a run is already active for the same
	// provider and section.
	ErrSyncInProgress = errors.New("sync already in progress")

	// ErrUnsupportedSection means the section's content kind is not
	// importable (e.g. music).
	ErrUnsupportedSection = errors.New("unsupported section kind")
)
