// Pleximport - Plex Media Server library import engine
// Copyright 2026 Pleximport contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediabridge/pleximport

// pleximportd locates a Plex Media Server, synchronizes its library
// into the configured host adapter, and serves the admin API.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mediabridge/pleximport/internal/api"
	"github.com/mediabridge/pleximport/internal/auth"
	"github.com/mediabridge/pleximport/internal/config"
	"github.com/mediabridge/pleximport/internal/cursor"
	"github.com/mediabridge/pleximport/internal/host"
	"github.com/mediabridge/pleximport/internal/importer"
	"github.com/mediabridge/pleximport/internal/locate"
	"github.com/mediabridge/pleximport/internal/logging"
	"github.com/mediabridge/pleximport/internal/observer"
	"github.com/mediabridge/pleximport/internal/plex"
	"github.com/mediabridge/pleximport/internal/plextv"
	"github.com/mediabridge/pleximport/internal/subtitles"
	"github.com/mediabridge/pleximport/internal/supervisor"
)

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("pleximportd failed")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Timestamp: true,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var plexTV *plextv.Client
	var linker *auth.Linker
	if !cfg.Provider.LocalOnly {
		plexTV = plextv.NewClient("", cfg.Provider.Timeout)
		linker = auth.NewLinker(plexTV)
	}

	// Interactive linking: no token configured, wait for the user to
	// claim a PIN before resolving the server.
	if cfg.Provider.Token == "" && linker != nil {
		code, err := linker.Start(ctx)
		if err != nil {
			return err
		}
		logging.Info().Str("code", code).Str("url", plextv.LinkURL).Msg("enter the code to link this importer")

		token, err := linker.Wait(ctx)
		if err != nil {
			return err
		}
		cfg.Provider.Token = token
	}

	// A typed nil must not reach the interface parameter.
	locator := locate.NewLocator(cfg.Provider, cfg.Discovery, nil)
	if plexTV != nil {
		locator = locate.NewLocator(cfg.Provider, cfg.Discovery, plexTV)
	}
	prov, err := locator.Resolve(ctx)
	if err != nil {
		return err
	}

	client := plex.NewBreakerClient(plex.NewClient(prov.ActiveURL(), prov.Token(), cfg.Provider.Timeout))

	identity, err := client.Identity(ctx)
	if err != nil {
		return err
	}
	providerID := identity.MachineIdentifier

	cursors, err := cursor.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer cursors.Close()

	deliverer, err := host.NewJSONLDeliverer(cfg.Host.ExportDir)
	if err != nil {
		return err
	}
	defer deliverer.Close()

	var finder *subtitles.Finder
	if cfg.Subtitles.Enabled {
		finder = subtitles.NewFinder(cfg.Subtitles.Extensions)
	}

	translator := importer.NewTranslator(providerID, client.BaseURL(), client.Token(), finder)
	engine := importer.NewEngine(client, deliverer, cursors, translator, providerID, cfg.Sync)

	tree := supervisor.NewTree(
		slog.New(logging.NewSlogHandler()),
		supervisor.DefaultTreeConfig(),
	)

	tree.AddSyncService(supervisor.NewScheduler(engine, cfg.Sync.Interval))

	if cfg.Observer.Enabled {
		tree.AddSyncService(observer.New(
			client.BaseURL(), client.Token(),
			engine, deliverer,
			cfg.Observer.ReconnectDelay,
		))
	}

	tree.AddAPIService(api.NewServer(engine, linker, prov, cfg.Server))

	logging.Info().
		Str("provider", providerID).
		Str("url", prov.ActiveURL()).
		Msg("pleximportd started")

	err = tree.Serve(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
