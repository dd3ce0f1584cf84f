// Pleximport - Plex Media Server library import engine
// Copyright 2026 Pleximport contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediabridge/pleximport

package importer

import (
	"fmt"
	"strings"

	"github.com/mediabridge/pleximport/internal/host"
	"github.com/mediabridge/pleximport/internal/plex"
	"github.com/mediabridge/pleximport/internal/subtitles"
)

// resolutionRank orders video resolutions for primary version
// selection when the provider marks none as selected.
var resolutionRank = map[string]int{
	"4k":   6,
	"2160": 6,
	"1080": 5,
	"720":  4,
	"576":  3,
	"480":  2,
	"sd":   1,
}

// Translator converts provider metadata into host items. Translation
// is pure aside from the optional sidecar subtitle scan; a Translator
// is safe for concurrent use.
type Translator struct {
	providerID string
	baseURL    string
	token      string
	subtitles  *subtitles.Finder
}

// NewTranslator creates a translator for one provider. subs may be nil
// to disable sidecar discovery.
func NewTranslator(providerID, baseURL, token string, subs *subtitles.Finder) *Translator {
	return &Translator{
		providerID: providerID,
		baseURL:    baseURL,
		token:      token,
		subtitles:  subs,
	}
}

// Translate converts one metadata record into a host item. existing is
// the host's current record for the same item when one is known, nil
// otherwise; its unique-ID mappings win over incoming GUIDs namespace
// by namespace, so re-translating unchanged input is a no-op on the
// mapping. A forced refresh passes nil to rebuild from provider state.
// Malformed records yield an error wrapping ErrItemTranslation;
// callers skip the item and continue.
func (t *Translator) Translate(md *plex.Metadata, sectionKey string, existing *host.Item) (host.Item, error) {
	if md.RatingKey == "" {
		return host.Item{}, fmt.Errorf("%w: missing rating key", ErrItemTranslation)
	}
	if md.Title == "" {
		return host.Item{}, fmt.Errorf("%w: item %s has no title", ErrItemTranslation, md.RatingKey)
	}

	mediaType, ok := mediaTypeOf(md.Type)
	if !ok {
		return host.Item{}, fmt.Errorf("%w: item %s has unsupported type %q", ErrItemTranslation, md.RatingKey, md.Type)
	}

	item := host.Item{
		ID:            md.RatingKey,
		ProviderID:    t.providerID,
		SectionKey:    sectionKey,
		Type:          mediaType,
		Title:         md.Title,
		SortTitle:     md.TitleSort,
		OriginalTitle: md.OriginalTitle,
		Summary:       md.Summary,
		Tagline:       md.Tagline,
		Studio:        md.Studio,
		ContentRating: md.ContentRating,
		Year:          md.Year,
		Premiered:     md.OriginallyAvailableAt,
		Rating:        md.Rating,
		UserRating:    md.UserRating,
		Genres:        tagValues(md.Genres),
		Directors:     tagValues(md.Directors),
		Writers:       tagValues(md.Writers),
		Countries:     tagValues(md.Countries),
		Collections:   tagValues(md.Collections),
		DurationMs:    md.Duration,
		AddedAt:       md.AddedAt,
		UpdatedAt:     md.UpdatedAt,
		Thumb:         t.imageURL(md.Thumb),
		Art:           t.imageURL(md.Art),
		Resume: host.Resume{
			PositionMs:   md.ViewOffset,
			PlayCount:    md.ViewCount,
			LastViewedAt: md.LastViewedAt,
		},
	}

	switch mediaType {
	case host.MediaTypeEpisode:
		item.ShowTitle = md.GrandparentTitle
		item.SeasonTitle = md.ParentTitle
		item.SeasonIndex = md.ParentIndex
		item.EpisodeIndex = md.Index
	case host.MediaTypeSeason:
		item.ShowTitle = md.ParentTitle
		item.SeasonIndex = md.Index
	}

	for _, role := range md.Roles {
		item.Cast = append(item.Cast, host.CastMember{Name: role.Tag, Role: role.Role})
	}

	var known map[string]string
	if existing != nil {
		known = existing.UniqueIDs
	}
	item.UniqueIDs = mergeGUIDs(md.GUIDs, known)
	item.Versions = t.translateVersions(md.Media)

	for _, m := range md.Markers {
		item.Markers = append(item.Markers, host.Marker{
			Type:    m.Type,
			StartMs: m.StartTimeOffset,
			EndMs:   m.EndTimeOffset,
		})
	}

	if t.subtitles != nil {
		if primary := primaryVersion(item.Versions); primary != nil {
			item.Subtitles = t.subtitles.Find(primary.File)
		}
	}

	return item, nil
}

// mergeGUIDs folds external identifiers into a namespace map on top of
// the host's known mappings. The first value seen for a namespace wins
// and a known mapping is never overwritten, making the merge
// idempotent under re-translation; unknown namespaces are dropped.
func mergeGUIDs(guids []plex.GUID, known map[string]string) map[string]string {
	if len(guids) == 0 && len(known) == 0 {
		return nil
	}
	ids := make(map[string]string, len(known)+len(guids))
	for ns, value := range known {
		ids[ns] = value
	}
	for _, g := range guids {
		ns, value, found := strings.Cut(g.ID, "://")
		if !found || value == "" {
			continue
		}
		switch ns {
		case host.NamespaceIMDB, host.NamespaceTMDB, host.NamespaceTVDB:
		default:
			continue
		}
		if _, exists := ids[ns]; !exists {
			ids[ns] = value
		}
	}
	if len(ids) == 0 {
		return nil
	}
	return ids
}

// translateVersions converts media records and selects the primary:
// the provider-selected version when marked, otherwise the highest
// resolution, ties broken by bitrate.
func (t *Translator) translateVersions(media []plex.Media) []host.Version {
	if len(media) == 0 {
		return nil
	}

	versions := make([]host.Version, 0, len(media))
	primaryIdx, primaryScore := 0, -1
	selected := -1

	for i, m := range media {
		v := host.Version{
			ID:            m.ID,
			Name:          versionName(m),
			Resolution:    m.VideoResolution,
			Width:         m.Width,
			Height:        m.Height,
			Bitrate:       m.Bitrate,
			VideoCodec:    m.VideoCodec,
			AudioCodec:    m.AudioCodec,
			AudioChannels: m.AudioChannels,
			DurationMs:    m.Duration,
		}
		if len(m.Parts) > 0 {
			v.File = m.Parts[0].File
			v.PlayKey = m.Parts[0].Key
			v.SizeB = m.Parts[0].Size
		}
		versions = append(versions, v)

		if m.Selected && selected < 0 {
			selected = i
		}
		score := resolutionRank[strings.ToLower(m.VideoResolution)]*1_000_000 + m.Bitrate
		if score > primaryScore {
			primaryScore = score
			primaryIdx = i
		}
	}

	if selected >= 0 {
		primaryIdx = selected
	}
	versions[primaryIdx].Primary = true
	return versions
}

// versionName builds a human-readable label like "1080p h264".
func versionName(m plex.Media) string {
	parts := make([]string, 0, 2)
	if m.VideoResolution != "" {
		res := m.VideoResolution
		if res != "sd" && res != "4k" && !strings.HasSuffix(res, "p") {
			res += "p"
		}
		parts = append(parts, res)
	}
	if m.VideoCodec != "" {
		parts = append(parts, m.VideoCodec)
	}
	if len(parts) == 0 {
		return fmt.Sprintf("version %d", m.ID)
	}
	return strings.Join(parts, " ")
}

func primaryVersion(versions []host.Version) *host.Version {
	for i := range versions {
		if versions[i].Primary {
			return &versions[i]
		}
	}
	return nil
}

// imageURL makes a provider image path fetchable by appending the
// access token.
func (t *Translator) imageURL(path string) string {
	if path == "" {
		return ""
	}
	url := t.baseURL + path
	if t.token != "" {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		url += sep + "X-Plex-Token=" + t.token
	}
	return url
}

func mediaTypeOf(plexType string) (host.MediaType, bool) {
	switch plexType {
	case plex.TypeMovie:
		return host.MediaTypeMovie, true
	case plex.TypeShow:
		return host.MediaTypeShow, true
	case plex.TypeSeason:
		return host.MediaTypeSeason, true
	case plex.TypeEpisode:
		return host.MediaTypeEpisode, true
	case plex.TypeCollection:
		return host.MediaTypeCollection, true
	default:
		return "", false
	}
}

func tagValues(tags []plex.Tag) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t.Tag != "" {
			out = append(out, t.Tag)
		}
	}
	return out
}
