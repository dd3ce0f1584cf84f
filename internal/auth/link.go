// Pleximport - Plex Media Server library import engine
// Copyright 2026 Pleximport contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediabridge/pleximport

// Package auth implements PIN-based account linking against plex.tv.
// The linker is a small state machine: a PIN is requested, the user
// enters it at plex.tv/link, and the linker polls until the PIN is
// claimed, expires, or the attempt is cancelled.
package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mediabridge/pleximport/internal/logging"
	"github.com/mediabridge/pleximport/internal/plextv"
)

// State is the linker's lifecycle position.
type State int

const (
	// StateUnlinked is the initial state and the state after Cancel.
	StateUnlinked State = iota

	// StatePinRequested means a PIN exists but polling has not started.
	StatePinRequested

	// StatePolling means the linker is waiting for the user to claim
	// the PIN.
	StatePolling

	// StateLinked means an account token was obtained.
	StateLinked

	// StateExpired means the PIN's lifetime elapsed unclaimed.
	StateExpired

	// StateFailed means plex.tv errored during the attempt.
	StateFailed
)

// String returns a stable label for logging and API responses.
func (s State) String() string {
	switch s {
	case StateUnlinked:
		return "unlinked"
	case StatePinRequested:
		return "pin-requested"
	case StatePolling:
		return "polling"
	case StateLinked:
		return "linked"
	case StateExpired:
		return "expired"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Linker errors.
var (
	ErrPinExpired  = errors.New("pin expired before it was claimed")
	ErrLinkAborted = errors.New("link attempt cancelled")
	ErrNotLinked   = errors.New("no account token: not linked")
)

// pinClient is the plex.tv surface the linker needs.
type pinClient interface {
	CreatePin(ctx context.Context) (*plextv.Pin, error)
	CheckPin(ctx context.Context, id int64, code string) (*plextv.Pin, error)
}

// defaultPollInterval paces PIN status checks against plex.tv.
const defaultPollInterval = 2 * time.Second

// Linker drives one account link attempt at a time. Safe for
// concurrent use.
type Linker struct {
	client       pinClient
	pollInterval time.Duration

	mu     sync.Mutex
	state  State
	pin    *plextv.Pin
	token  string
	cancel context.CancelFunc
}

// NewLinker creates a linker over the given plex.tv client.
func NewLinker(client pinClient) *Linker {
	return &Linker{
		client:       client,
		pollInterval: defaultPollInterval,
		state:        StateUnlinked,
	}
}

// State returns the current lifecycle position.
func (l *Linker) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Token returns the account token once linked.
func (l *Linker) Token() (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != StateLinked {
		return "", ErrNotLinked
	}
	return l.token, nil
}

// Code returns the active PIN code and the URL where the user enters
// it. Empty when no attempt is in flight.
func (l *Linker) Code() (code, url string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pin == nil {
		return "", ""
	}
	return l.pin.Code, plextv.LinkURL
}

// Start requests a new PIN and returns its code. Any in-flight attempt
// is cancelled first. The caller follows up with Wait (or polls State)
// while the user enters the code at plex.tv/link.
func (l *Linker) Start(ctx context.Context) (string, error) {
	l.abortLocked()

	pin, err := l.client.CreatePin(ctx)
	if err != nil {
		l.mu.Lock()
		l.state = StateFailed
		l.mu.Unlock()
		return "", err
	}

	l.mu.Lock()
	l.pin = pin
	l.state = StatePinRequested
	l.mu.Unlock()

	logging.Info().Str("code", pin.Code).Time("expires_at", pin.ExpiresAt).Msg("link PIN issued, waiting for claim at " + plextv.LinkURL)
	return pin.Code, nil
}

// Wait polls the active PIN until it is claimed, expires, or ctx is
// cancelled. On success the account token is retained and returned.
func (l *Linker) Wait(ctx context.Context) (string, error) {
	l.mu.Lock()
	if l.pin == nil {
		l.mu.Unlock()
		return "", ErrNotLinked
	}
	pin := l.pin
	pollCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.state = StatePolling
	l.mu.Unlock()

	defer cancel()

	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-pollCtx.Done():
			l.setState(StateUnlinked)
			return "", ErrLinkAborted

		case <-ticker.C:
			if !pin.ExpiresAt.IsZero() && time.Now().After(pin.ExpiresAt) {
				l.setState(StateExpired)
				return "", ErrPinExpired
			}

			checked, err := l.client.CheckPin(pollCtx, pin.ID, pin.Code)
			if err != nil {
				if pollCtx.Err() != nil {
					l.setState(StateUnlinked)
					return "", ErrLinkAborted
				}
				logging.Warn().Err(err).Msg("pin status check failed, retrying")
				continue
			}

			if checked.AuthToken != "" {
				l.mu.Lock()
				l.token = checked.AuthToken
				l.state = StateLinked
				l.pin = nil
				l.cancel = nil
				l.mu.Unlock()
				logging.Info().Msg("account linked")
				return checked.AuthToken, nil
			}
		}
	}
}

// Cancel aborts any in-flight attempt and returns to the unlinked
// state. A retained token from a previous successful link is cleared.
func (l *Linker) Cancel() {
	l.abortLocked()
	l.mu.Lock()
	l.token = ""
	l.state = StateUnlinked
	l.pin = nil
	l.mu.Unlock()
}

func (l *Linker) abortLocked() {
	l.mu.Lock()
	cancel := l.cancel
	l.cancel = nil
	l.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (l *Linker) setState(s State) {
	l.mu.Lock()
	l.state = s
	l.pin = nil
	l.cancel = nil
	l.mu.Unlock()
}
