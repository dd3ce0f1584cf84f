// Pleximport - Plex Media Server library import engine
// Copyright 2026 Pleximport contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediabridge/pleximport

package plex

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/mediabridge/pleximport/internal/logging"
	"github.com/mediabridge/pleximport/internal/metrics"
)

// BreakerClient wraps Client with a circuit breaker so that a dead or
// flapping server sheds load quickly instead of piling up timeouts.
// The breaker uses real time for its interval and timeout windows;
// tests exercise the wrapped client directly.
type BreakerClient struct {
	client *Client
	cb     *gobreaker.CircuitBreaker[interface{}]
	name   string
}

// NewBreakerClient wraps client with a circuit breaker:
// opens after a 60% failure rate over at least 10 requests, allows 3
// probes in half-open state, and waits 2 minutes before probing.
func NewBreakerClient(client *Client) *BreakerClient {
	cbName := "plex-api"

	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0)

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.6
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("from", stateToString(from)).Str("to", stateToString(to)).Msg("[CIRCUIT BREAKER] state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})

	return &BreakerClient{client: client, cb: cb, name: cbName}
}

// BaseURL returns the wrapped client's server URL.
func (bc *BreakerClient) BaseURL() string { return bc.client.BaseURL() }

// Token returns the wrapped client's access token.
func (bc *BreakerClient) Token() string { return bc.client.Token() }

// execute runs one API call under the breaker and records the outcome.
func (bc *BreakerClient) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := bc.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(bc.name, "rejected").Inc()
			logging.Warn().Err(err).Msg("[CIRCUIT BREAKER] request rejected")
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(bc.name, "failure").Inc()
		}
		return nil, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(bc.name, "success").Inc()
	return result, nil
}

// castResult type-asserts the breaker result.
func castResult[T any](result interface{}, err error) (*T, error) {
	if err != nil {
		return nil, err
	}
	typed, ok := result.(*T)
	if !ok {
		return nil, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Identity fetches server identity with circuit breaker protection.
func (bc *BreakerClient) Identity(ctx context.Context) (*Identity, error) {
	return castResult[Identity](bc.execute(func() (interface{}, error) {
		return bc.client.Identity(ctx)
	}))
}

// Ping verifies connectivity with circuit breaker protection.
func (bc *BreakerClient) Ping(ctx context.Context) error {
	_, err := bc.execute(func() (interface{}, error) {
		return nil, bc.client.Ping(ctx)
	})
	return err
}

// GetSections lists library sections with circuit breaker protection.
func (bc *BreakerClient) GetSections(ctx context.Context) ([]Section, error) {
	result, err := bc.execute(func() (interface{}, error) {
		return bc.client.GetSections(ctx)
	})
	if err != nil {
		return nil, err
	}
	sections, ok := result.([]Section)
	if !ok {
		return nil, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return sections, nil
}

// GetSectionItems lists one page of section items with circuit breaker
// protection.
func (bc *BreakerClient) GetSectionItems(ctx context.Context, sectionKey string, opts ItemsOptions) (*ContainerResponse, error) {
	return castResult[ContainerResponse](bc.execute(func() (interface{}, error) {
		return bc.client.GetSectionItems(ctx, sectionKey, opts)
	}))
}

// GetMetadata fetches one item's metadata with circuit breaker
// protection.
func (bc *BreakerClient) GetMetadata(ctx context.Context, ratingKey string) (*Metadata, error) {
	return castResult[Metadata](bc.execute(func() (interface{}, error) {
		return bc.client.GetMetadata(ctx, ratingKey)
	}))
}

// UpdateTimeline reports playback state with circuit breaker
// protection.
func (bc *BreakerClient) UpdateTimeline(ctx context.Context, ratingKey, key, state string, timeMs, durationMs int64) error {
	_, err := bc.execute(func() (interface{}, error) {
		return nil, bc.client.UpdateTimeline(ctx, ratingKey, key, state, timeMs, durationMs)
	})
	return err
}

// Scrobble marks an item watched with circuit breaker protection.
func (bc *BreakerClient) Scrobble(ctx context.Context, ratingKey string) error {
	_, err := bc.execute(func() (interface{}, error) {
		return nil, bc.client.Scrobble(ctx, ratingKey)
	})
	return err
}

// Unscrobble clears watched state with circuit breaker protection.
func (bc *BreakerClient) Unscrobble(ctx context.Context, ratingKey string) error {
	_, err := bc.execute(func() (interface{}, error) {
		return nil, bc.client.Unscrobble(ctx, ratingKey)
	})
	return err
}
