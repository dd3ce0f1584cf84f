// Pleximport - Plex Media Server library import engine
// Copyright 2026 Pleximport contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediabridge/pleximport

// Package provider models a located Plex Media Server: its identity,
// its candidate connections ranked by reachability class, and the
// currently active connection.
package provider

import (
	"errors"
	"sort"
	"sync"
)

// Class orders candidate connections. Lower is preferred.
type Class int

const (
	// ClassLocalDirect is a direct connection on the local network.
	ClassLocalDirect Class = iota

	// ClassRemoteDirect is a direct connection over the internet.
	ClassRemoteDirect

	// ClassRelay tunnels through the plex.tv relay. Slowest; last
	// resort.
	ClassRelay
)

// String returns a stable label for logging.
func (c Class) String() string {
	switch c {
	case ClassLocalDirect:
		return "local-direct"
	case ClassRemoteDirect:
		return "remote-direct"
	case ClassRelay:
		return "relay"
	default:
		return "unknown"
	}
}

// Connection is one candidate access URL for a server.
type Connection struct {
	URI   string
	Class Class
}

// ErrNoConnections is returned when a provider has exhausted all of
// its candidate connections.
var ErrNoConnections = errors.New("no usable connections remain")

// Provider is one located server. It is safe for concurrent use; the
// active connection may be re-ranked by any caller observing a
// failure.
type Provider struct {
	machineID string
	name      string
	token     string

	mu          sync.RWMutex
	connections []Connection
	active      int
}

// New creates a provider from its ranked candidate connections.
// Connections are sorted by class, preserving the given order within a
// class so that callers can pre-rank equals (e.g. explicit overrides
// first).
func New(machineID, name, token string, conns []Connection) (*Provider, error) {
	if len(conns) == 0 {
		return nil, ErrNoConnections
	}
	ranked := make([]Connection, len(conns))
	copy(ranked, conns)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Class < ranked[j].Class
	})
	return &Provider{
		machineID:   machineID,
		name:        name,
		token:       token,
		connections: ranked,
	}, nil
}

// MachineID returns the server's machine identifier.
func (p *Provider) MachineID() string { return p.machineID }

// Name returns the server's friendly name.
func (p *Provider) Name() string { return p.name }

// Token returns the access token for this server.
func (p *Provider) Token() string { return p.token }

// ActiveURL returns the currently selected connection URL.
func (p *Provider) ActiveURL() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.connections[p.active].URI
}

// ActiveClass returns the class of the currently selected connection.
func (p *Provider) ActiveClass() Class {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.connections[p.active].Class
}

// Connections returns a copy of the ranked candidate list.
func (p *Provider) Connections() []Connection {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Connection, len(p.connections))
	copy(out, p.connections)
	return out
}

// MarkActiveFailed demotes the active connection and advances to the
// next candidate. It returns the new active URL, or ErrNoConnections
// when every candidate has failed.
func (p *Provider) MarkActiveFailed() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active+1 >= len(p.connections) {
		return "", ErrNoConnections
	}
	p.active++
	return p.connections[p.active].URI, nil
}

// Reset restores the highest-ranked connection as active, typically
// after a successful reconnect cycle.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.active = 0
}
