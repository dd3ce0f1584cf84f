// Pleximport - Plex Media Server library import engine
// Copyright 2026 Pleximport contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediabridge/pleximport

package locate

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mediabridge/pleximport/internal/config"
	"github.com/mediabridge/pleximport/internal/plextv"
	"github.com/mediabridge/pleximport/internal/provider"
)

type fakeLister struct {
	resources []plextv.Resource
	err       error
}

func (f *fakeLister) Resources(ctx context.Context, token string) ([]plextv.Resource, error) {
	return f.resources, f.err
}

func identityHandler(machineID string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/identity" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"MediaContainer":{"machineIdentifier":"` + machineID + `","version":"1.40"}}`))
	})
}

func testProviderConfig(url string) config.ProviderConfig {
	return config.ProviderConfig{
		URL:     url,
		Token:   "tok",
		Timeout: 2 * time.Second,
	}
}

func TestResolveExplicitURL(t *testing.T) {
	server := httptest.NewServer(identityHandler("m-1"))
	defer server.Close()

	locator := NewLocator(testProviderConfig(server.URL), config.DiscoveryConfig{}, nil)

	p, err := locator.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if p.ActiveURL() != server.URL {
		t.Errorf("ActiveURL() = %q, want %q", p.ActiveURL(), server.URL)
	}
}

func TestResolveIdentityMismatch(t *testing.T) {
	server := httptest.NewServer(identityHandler("other-machine"))
	defer server.Close()

	cfg := testProviderConfig(server.URL)
	cfg.MachineID = "m-1"
	locator := NewLocator(cfg, config.DiscoveryConfig{}, nil)

	if _, err := locator.Resolve(context.Background()); !errors.Is(err, ErrProviderUnreachable) {
		t.Fatalf("Resolve() error = %v, want ErrProviderUnreachable on identity mismatch", err)
	}
}

func TestResolveFallsBackAcrossCandidates(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer dead.Close()
	alive := httptest.NewServer(identityHandler("m-1"))
	defer alive.Close()

	// plex.tv offers a dead local connection and a working remote one.
	lister := &fakeLister{resources: []plextv.Resource{{
		Name:             "Den",
		Product:          "Plex Media Server",
		Provides:         "server",
		ClientIdentifier: "m-1",
		AccessToken:      "server-tok",
		Connections: []plextv.Connection{
			{URI: dead.URL, Local: true},
			{URI: alive.URL, Local: false},
		},
	}}}

	cfg := config.ProviderConfig{MachineID: "m-1", Token: "tok", Timeout: 2 * time.Second}
	locator := NewLocator(cfg, config.DiscoveryConfig{}, lister)

	p, err := locator.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if p.ActiveURL() != alive.URL {
		t.Errorf("ActiveURL() = %q, want fallback to %q", p.ActiveURL(), alive.URL)
	}
	if p.Token() != "server-tok" {
		t.Errorf("Token() = %q, want the resource access token", p.Token())
	}
}

func TestResolveNoCandidates(t *testing.T) {
	cfg := config.ProviderConfig{MachineID: "m-1", Token: "tok", Timeout: time.Second}
	locator := NewLocator(cfg, config.DiscoveryConfig{}, &fakeLister{err: errors.New("plex.tv down")})

	if _, err := locator.Resolve(context.Background()); !errors.Is(err, ErrProviderUnreachable) {
		t.Fatalf("Resolve() error = %v, want ErrProviderUnreachable", err)
	}
}

func TestGatherCandidatesRanking(t *testing.T) {
	lister := &fakeLister{resources: []plextv.Resource{{
		Product:          "Plex Media Server",
		Provides:         "server",
		ClientIdentifier: "m-1",
		Connections: []plextv.Connection{
			{URI: "https://relay.example:8443", Relay: true},
			{URI: "https://remote.example:32400"},
			{URI: "http://192.168.1.10:32400", Local: true},
		},
	}}}

	cfg := config.ProviderConfig{MachineID: "m-1", Token: "tok", Timeout: time.Second}
	locator := NewLocator(cfg, config.DiscoveryConfig{}, lister)

	candidates, _, _, err := locator.gatherCandidates(context.Background())
	if err != nil {
		t.Fatalf("gatherCandidates() error = %v", err)
	}

	p, err := provider.New("m-1", "", "tok", candidates)
	if err != nil {
		t.Fatalf("provider.New() error = %v", err)
	}

	if p.ActiveClass() != provider.ClassLocalDirect {
		t.Errorf("active class = %s, want local-direct ranked first", p.ActiveClass())
	}

	conns := p.Connections()
	if conns[len(conns)-1].Class != provider.ClassRelay {
		t.Errorf("last candidate class = %s, want relay ranked last", conns[len(conns)-1].Class)
	}
}

func TestIsLocalURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"http://192.168.1.10:32400", true},
		{"http://10.0.0.5:32400", true},
		{"http://172.16.0.1:32400", true},
		{"http://172.32.0.1:32400", false},
		{"http://localhost:32400", true},
		{"https://remote.example.com:32400", false},
	}
	for _, tt := range tests {
		if got := isLocalURL(tt.url); got != tt.want {
			t.Errorf("isLocalURL(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}
