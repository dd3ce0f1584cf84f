// Pleximport - Plex Media Server library import engine
// Copyright 2026 Pleximport contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediabridge/pleximport

// Package api serves the admin/control HTTP surface: triggering and
// inspecting sync runs, listing sections, single-item operations,
// account linking, health, and Prometheus metrics.
package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mediabridge/pleximport/internal/auth"
	"github.com/mediabridge/pleximport/internal/config"
	"github.com/mediabridge/pleximport/internal/host"
	"github.com/mediabridge/pleximport/internal/importer"
	"github.com/mediabridge/pleximport/internal/logging"
	"github.com/mediabridge/pleximport/internal/provider"
)

// Server carries handler dependencies and the admin listener.
type Server struct {
	engine   *importer.Engine
	linker   *auth.Linker
	provider *provider.Provider
	cfg      config.ServerConfig

	httpServer *http.Server

	// run tracks the most recent sync run for the status endpoint.
	mu  sync.Mutex
	run runState
}

type runState struct {
	Running    bool
	StartedAt  time.Time
	FinishedAt time.Time
	Reports    []host.Report
	Err        error
}

// NewServer wires the admin server. linker may be nil when the
// deployment is token-configured and never links interactively.
func NewServer(engine *importer.Engine, linker *auth.Linker, p *provider.Provider, cfg config.ServerConfig) *Server {
	s := &Server{
		engine:   engine,
		linker:   linker,
		provider: p,
		cfg:      cfg,
	}
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Timeout,
		WriteTimeout:      cfg.Timeout,
	}
	return s
}

// String names the service in supervisor logs.
func (s *Server) String() string { return "admin-api" }

// Serve runs the listener until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", s.httpServer.Addr).Msg("admin API listening")
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpServer.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(s.cfg.Timeout))

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/sync", s.handleSyncStart)
		r.Get("/sync/status", s.handleSyncStatus)
		r.Get("/sections", s.handleSections)
		r.Post("/sections/{key}/reset", s.handleSectionReset)

		r.Route("/items/{id}", func(r chi.Router) {
			r.Post("/refresh", s.handleItemRefresh)
			r.Get("/versions", s.handleItemVersions)
		})

		r.Route("/link", func(r chi.Router) {
			r.Post("/", s.handleLinkStart)
			r.Get("/status", s.handleLinkStatus)
			r.Delete("/", s.handleLinkCancel)
		})
	})

	return r
}
