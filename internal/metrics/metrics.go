// Pleximport - Plex Media Server library import engine
// Copyright 2026 Pleximport contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediabridge/pleximport

// Package metrics declares the Prometheus instrumentation for the
// import engine, exposed at /metrics on the admin listener.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Sync engine metrics.

	SyncRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pleximport_sync_runs_total",
			Help: "Total sync runs by result",
		},
		[]string{"result"}, // "success", "partial", "failed"
	)

	SectionSyncs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pleximport_section_syncs_total",
			Help: "Total per-section sync outcomes",
		},
		[]string{"kind", "result"},
	)

	PagesFetched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pleximport_pages_fetched_total",
			Help: "Total item pages fetched from the provider",
		},
	)

	PageRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pleximport_page_retries_total",
			Help: "Total page fetch retries after transient failures",
		},
	)

	ItemsTranslated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pleximport_items_translated_total",
			Help: "Total items successfully translated to host items",
		},
	)

	ItemsSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pleximport_items_skipped_total",
			Help: "Total items skipped due to translation failures",
		},
	)

	SectionSyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pleximport_section_sync_duration_seconds",
			Help:    "Duration of one section sync",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"kind"},
	)

	// Provider client metrics.

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pleximport_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pleximport_circuit_breaker_requests_total",
			Help: "Circuit breaker request outcomes",
		},
		[]string{"name", "result"}, // "success", "failure", "rejected"
	)

	PlaybackReports = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pleximport_playback_reports_total",
			Help: "Playback state reports pushed to the provider",
		},
		[]string{"result"},
	)

	ObserverEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pleximport_observer_events_total",
			Help: "Websocket change notifications processed",
		},
		[]string{"change"}, // "added", "changed", "removed"
	)
)
