// Pleximport - Plex Media Server library import engine
// Copyright 2026 Pleximport contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediabridge/pleximport

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/mediabridge/pleximport/internal/auth"
	"github.com/mediabridge/pleximport/internal/importer"
	"github.com/mediabridge/pleximport/internal/logging"
)

// writeJSON encodes a response body, logging encode failures instead
// of surfacing them (headers are already gone).
func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Error().Err(err).Msg("response encode failed")
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ok",
		"provider": s.provider.MachineID(),
		"url":      s.provider.ActiveURL(),
	})
}

// handleSyncStart launches a full sync run in the background. A second
// start while one is running is rejected.
func (s *Server) handleSyncStart(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if s.run.Running {
		s.mu.Unlock()
		writeError(w, http.StatusConflict, importer.ErrSyncInProgress)
		return
	}
	s.run = runState{Running: true, StartedAt: time.Now()}
	s.mu.Unlock()

	go func() {
		// The run outlives the triggering request on purpose.
		reports, err := s.engine.Sync(context.Background())

		s.mu.Lock()
		s.run.Running = false
		s.run.FinishedAt = time.Now()
		s.run.Reports = reports
		s.run.Err = err
		s.mu.Unlock()
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

// sectionReportView is the wire shape of one section outcome.
type sectionReportView struct {
	SectionKey   string `json:"section_key"`
	SectionTitle string `json:"section_title"`
	Kind         string `json:"kind"`
	Status       string `json:"status"`
	Delivered    int    `json:"delivered"`
	Skipped      int    `json:"skipped"`
	Error        string `json:"error,omitempty"`
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	run := s.run
	s.mu.Unlock()

	views := make([]sectionReportView, 0, len(run.Reports))
	for _, rep := range run.Reports {
		view := sectionReportView{
			SectionKey:   rep.SectionKey,
			SectionTitle: rep.SectionTitle,
			Kind:         string(rep.Kind),
			Status:       string(rep.Status),
			Delivered:    rep.Delivered,
			Skipped:      rep.Skipped,
		}
		if rep.Err != nil {
			view.Error = rep.Err.Error()
		}
		views = append(views, view)
	}

	body := map[string]interface{}{
		"running":  run.Running,
		"sections": views,
	}
	if !run.StartedAt.IsZero() {
		body["started_at"] = run.StartedAt
	}
	if !run.FinishedAt.IsZero() {
		body["finished_at"] = run.FinishedAt
	}
	if run.Err != nil {
		body["error"] = run.Err.Error()
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleSections(w http.ResponseWriter, r *http.Request) {
	sections, err := s.engine.Sections(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"sections": sections})
}

func (s *Server) handleSectionReset(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if err := s.engine.ResetSection(key); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset", "section": key})
}

func (s *Server) handleItemRefresh(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	item, err := s.engine.RefreshItem(r.Context(), id)
	if err != nil {
		writeError(w, itemErrorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":      item.ID,
		"title":   item.Title,
		"type":    item.Type,
		"section": item.SectionKey,
	})
}

type versionView struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Primary    bool   `json:"primary"`
	Resolution string `json:"resolution,omitempty"`
	VideoCodec string `json:"video_codec,omitempty"`
	AudioCodec string `json:"audio_codec,omitempty"`
	File       string `json:"file,omitempty"`
}

func (s *Server) handleItemVersions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	versions, err := s.engine.ItemVersions(r.Context(), id)
	if err != nil {
		writeError(w, itemErrorStatus(err), err)
		return
	}

	views := make([]versionView, 0, len(versions))
	for _, v := range versions {
		views = append(views, versionView{
			ID:         v.ID,
			Name:       v.Name,
			Primary:    v.Primary,
			Resolution: v.Resolution,
			VideoCodec: v.VideoCodec,
			AudioCodec: v.AudioCodec,
			File:       v.File,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"versions": views})
}

func itemErrorStatus(err error) int {
	switch {
	case errors.Is(err, importer.ErrItemTranslation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, importer.ErrProviderUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleLinkStart(w http.ResponseWriter, r *http.Request) {
	if s.linker == nil {
		writeError(w, http.StatusNotImplemented, errors.New("linking not configured"))
		return
	}

	code, err := s.linker.Start(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}

	// Polling continues past this request; the status endpoint tracks
	// it.
	go func() {
		if _, err := s.linker.Wait(context.Background()); err != nil && !errors.Is(err, auth.ErrLinkAborted) {
			logging.Warn().Err(err).Msg("link attempt ended without a token")
		}
	}()

	_, url := s.linker.Code()
	writeJSON(w, http.StatusAccepted, map[string]string{"code": code, "url": url})
}

func (s *Server) handleLinkStatus(w http.ResponseWriter, r *http.Request) {
	if s.linker == nil {
		writeError(w, http.StatusNotImplemented, errors.New("linking not configured"))
		return
	}
	body := map[string]string{"state": s.linker.State().String()}
	if code, url := s.linker.Code(); code != "" {
		body["code"] = code
		body["url"] = url
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleLinkCancel(w http.ResponseWriter, r *http.Request) {
	if s.linker == nil {
		writeError(w, http.StatusNotImplemented, errors.New("linking not configured"))
		return
	}
	s.linker.Cancel()
	writeJSON(w, http.StatusOK, map[string]string{"state": s.linker.State().String()})
}
