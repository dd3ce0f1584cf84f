// Pleximport - Plex Media Server library import engine
// Copyright 2026 Pleximport contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediabridge/pleximport

// Package locate resolves a configured server into a reachable
// provider. Candidates come from three sources, merged and ranked: an
// explicit URL override, GDM discovery on the local network, and the
// plex.tv resource listing. Each candidate is probed before the
// provider is handed to the engine.
package locate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mediabridge/pleximport/internal/config"
	"github.com/mediabridge/pleximport/internal/logging"
	"github.com/mediabridge/pleximport/internal/plex"
	"github.com/mediabridge/pleximport/internal/plextv"
	"github.com/mediabridge/pleximport/internal/provider"
)

// ErrProviderUnreachable is returned when no candidate connection
// answers an identity probe.
var ErrProviderUnreachable = errors.New("provider unreachable")

// resourceLister is the plex.tv surface the locator needs.
type resourceLister interface {
	Resources(ctx context.Context, token string) ([]plextv.Resource, error)
}

// Locator resolves configuration into a probed provider.
type Locator struct {
	cfg    config.ProviderConfig
	disc   config.DiscoveryConfig
	plexTV resourceLister
}

// NewLocator creates a locator. plexTV may be nil in local-only mode.
func NewLocator(cfg config.ProviderConfig, disc config.DiscoveryConfig, plexTV resourceLister) *Locator {
	return &Locator{cfg: cfg, disc: disc, plexTV: plexTV}
}

// Resolve gathers candidate connections, probes them in rank order,
// and returns a provider whose active connection answered. The probe
// also pins the machine identifier: when the configuration names one,
// candidates reporting a different identity are rejected.
func (l *Locator) Resolve(ctx context.Context) (*provider.Provider, error) {
	candidates, name, token, err := l.gatherCandidates(ctx)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: no candidate connections for server %q", ErrProviderUnreachable, l.cfg.MachineID)
	}

	p, err := provider.New(l.cfg.MachineID, name, token, candidates)
	if err != nil {
		return nil, err
	}

	for {
		url := p.ActiveURL()
		identity, probeErr := l.probe(ctx, url, token)
		if probeErr == nil {
			if l.cfg.MachineID != "" && identity.MachineIdentifier != l.cfg.MachineID {
				probeErr = fmt.Errorf("identity mismatch: got %s", identity.MachineIdentifier)
			}
		}
		if probeErr == nil {
			logging.Info().
				Str("url", url).
				Str("class", p.ActiveClass().String()).
				Str("machine_id", identity.MachineIdentifier).
				Msg("provider resolved")
			return p, nil
		}

		logging.Warn().Err(probeErr).Str("url", url).Msg("candidate connection failed probe")
		if _, err := p.MarkActiveFailed(); err != nil {
			return nil, fmt.Errorf("%w: all %d candidates failed", ErrProviderUnreachable, len(candidates))
		}
	}
}

// gatherCandidates merges the three candidate sources. The explicit
// URL override ranks first within its class; plex.tv candidates carry
// the resource's own access token when the account token differs.
func (l *Locator) gatherCandidates(ctx context.Context) ([]provider.Connection, string, string, error) {
	var candidates []provider.Connection
	name := ""
	token := l.cfg.Token

	if l.cfg.URL != "" {
		class := provider.ClassRemoteDirect
		if isLocalURL(l.cfg.URL) {
			class = provider.ClassLocalDirect
		}
		candidates = append(candidates, provider.Connection{URI: strings.TrimSuffix(l.cfg.URL, "/"), Class: class})
	}

	if l.disc.Enabled {
		servers, err := DiscoverGDM(ctx, l.disc.Timeout)
		if err != nil {
			logging.Warn().Err(err).Msg("local discovery failed")
		}
		for _, s := range servers {
			if l.cfg.MachineID != "" && s.MachineID != l.cfg.MachineID {
				continue
			}
			if name == "" {
				name = s.Name
			}
			candidates = append(candidates, provider.Connection{URI: s.URL(), Class: provider.ClassLocalDirect})
		}
	}

	if !l.cfg.LocalOnly && l.plexTV != nil && l.cfg.Token != "" {
		resources, err := l.plexTV.Resources(ctx, l.cfg.Token)
		if err != nil {
			logging.Warn().Err(err).Msg("plex.tv resource listing failed")
		}
		for _, r := range resources {
			if !r.IsServer() {
				continue
			}
			if l.cfg.MachineID != "" && r.ClientIdentifier != l.cfg.MachineID {
				continue
			}
			if name == "" {
				name = r.Name
			}
			if r.AccessToken != "" {
				token = r.AccessToken
			}
			for _, c := range r.Connections {
				class := provider.ClassRemoteDirect
				switch {
				case c.Relay:
					class = provider.ClassRelay
				case c.Local:
					class = provider.ClassLocalDirect
				}
				candidates = append(candidates, provider.Connection{URI: c.URI, Class: class})
			}
		}
	}

	return dedupeCandidates(candidates), name, token, nil
}

// probe checks one candidate with a short identity request.
func (l *Locator) probe(ctx context.Context, url, token string) (*plex.Identity, error) {
	timeout := l.cfg.Timeout
	if timeout > 10*time.Second {
		timeout = 10 * time.Second
	}
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client := plex.NewClient(url, token, timeout)
	return client.Identity(probeCtx)
}

func dedupeCandidates(conns []provider.Connection) []provider.Connection {
	seen := make(map[string]bool, len(conns))
	out := conns[:0]
	for _, c := range conns {
		if seen[c.URI] {
			continue
		}
		seen[c.URI] = true
		out = append(out, c)
	}
	return out
}

// isLocalURL reports whether the URL points at a private or loopback
// address. Hostname-based URLs are treated as remote.
func isLocalURL(url string) bool {
	host := url
	if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}
	if i := strings.IndexAny(host, ":/"); i >= 0 {
		host = host[:i]
	}
	switch {
	case host == "localhost", strings.HasPrefix(host, "127."),
		strings.HasPrefix(host, "10."), strings.HasPrefix(host, "192.168."):
		return true
	}
	if strings.HasPrefix(host, "172.") {
		parts := strings.SplitN(host, ".", 3)
		if len(parts) >= 2 {
			if second, err := parseOctet(parts[1]); err == nil && second >= 16 && second <= 31 {
				return true
			}
		}
	}
	return false
}

func parseOctet(s string) (int, error) {
	n := 0
	if s == "" {
		return 0, fmt.Errorf("empty octet")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("invalid octet %q", s)
		}
		n = n*10 + int(r-'0')
	}
	return n, nil
}
