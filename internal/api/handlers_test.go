// Pleximport - Plex Media Server library import engine
// Copyright 2026 Pleximport contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediabridge/pleximport

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/mediabridge/pleximport/internal/config"
	"github.com/mediabridge/pleximport/internal/cursor"
	"github.com/mediabridge/pleximport/internal/host"
	"github.com/mediabridge/pleximport/internal/importer"
	"github.com/mediabridge/pleximport/internal/plex"
	"github.com/mediabridge/pleximport/internal/provider"
)

// plexStub serves a one-movie library.
func plexStub(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/identity", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"MediaContainer":{"machineIdentifier":"m-1"}}`))
	})
	mux.HandleFunc("/library/sections", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"MediaContainer":{"size":2,"Directory":[
			{"key":"1","type":"movie","title":"Movies"},
			{"key":"9","type":"artist","title":"Music"}
		]}}`))
	})
	mux.HandleFunc("/library/sections/1/all", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("type") != "1" {
			w.Write([]byte(`{"MediaContainer":{"size":0,"totalSize":0,"Metadata":[]}}`))
			return
		}
		w.Write([]byte(`{"MediaContainer":{"size":1,"totalSize":1,"Metadata":[
			{"ratingKey":"101","type":"movie","title":"The Matrix","updatedAt":1700000000}
		]}}`))
	})
	mux.HandleFunc("/library/metadata/101", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"MediaContainer":{"size":1,"Metadata":[
			{"ratingKey":"101","librarySectionID":1,"type":"movie","title":"The Matrix",
			 "Media":[{"id":1,"videoResolution":"1080","videoCodec":"h264","Part":[{"id":11,"key":"/parts/11"}]}]}
		]}}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

type discardDeliverer struct{ delivered int }

func (d *discardDeliverer) DeliverItems(ctx context.Context, sectionKey string, items []host.Item) error {
	d.delivered += len(items)
	return nil
}

func (d *discardDeliverer) FinishSection(ctx context.Context, report host.Report) error {
	return nil
}

func newTestServer(t *testing.T) (*Server, *discardDeliverer) {
	t.Helper()

	stub := plexStub(t)
	client := plex.NewClient(stub.URL, "tok", 2*time.Second)

	store, err := cursor.Open("")
	if err != nil {
		t.Fatalf("cursor.Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })

	deliverer := &discardDeliverer{}
	translator := importer.NewTranslator("m-1", stub.URL, "tok", nil)
	engine := importer.NewEngine(client, deliverer, store, translator, "m-1", config.SyncConfig{
		PageSize:          10,
		Workers:           2,
		RetryAttempts:     0,
		RetryInitialDelay: time.Millisecond,
	})

	prov, err := provider.New("m-1", "Den", "tok", []provider.Connection{
		{URI: stub.URL, Class: provider.ClassLocalDirect},
	})
	if err != nil {
		t.Fatalf("provider.New() error = %v", err)
	}

	server := NewServer(engine, nil, prov, config.ServerConfig{
		Host: "127.0.0.1", Port: 0, Timeout: 5 * time.Second,
	})
	return server, deliverer
}

func doRequest(t *testing.T, handler http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestHealthz(t *testing.T) {
	server, _ := newTestServer(t)
	handler := server.routes()

	rec := doRequest(t, handler, http.MethodGet, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	body := decodeBody(t, rec)
	if body["provider"] != "m-1" {
		t.Errorf("provider = %v, want m-1", body["provider"])
	}
}

func TestSectionsEndpointFiltersUnsupported(t *testing.T) {
	server, _ := newTestServer(t)
	handler := server.routes()

	rec := doRequest(t, handler, http.MethodGet, "/api/v1/sections")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	body := decodeBody(t, rec)
	sections, ok := body["sections"].([]interface{})
	if !ok || len(sections) != 1 {
		t.Fatalf("sections = %v, want exactly the movie section", body["sections"])
	}
}

func TestSyncStartAndStatus(t *testing.T) {
	server, deliverer := newTestServer(t)
	handler := server.routes()

	rec := doRequest(t, handler, http.MethodPost, "/api/v1/sync")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("sync start status = %d, want 202", rec.Code)
	}

	// Poll until the background run completes.
	deadline := time.Now().Add(5 * time.Second)
	for {
		rec = doRequest(t, handler, http.MethodGet, "/api/v1/sync/status")
		if rec.Code != http.StatusOK {
			t.Fatalf("status endpoint = %d, want 200", rec.Code)
		}
		body := decodeBody(t, rec)
		if body["running"] == false {
			sections := body["sections"].([]interface{})
			if len(sections) != 1 {
				t.Fatalf("sections = %v, want 1 report", sections)
			}
			report := sections[0].(map[string]interface{})
			if report["status"] != "success" {
				t.Errorf("report status = %v, want success", report["status"])
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("sync run did not finish in time")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if deliverer.delivered != 1 {
		t.Errorf("delivered = %d, want 1", deliverer.delivered)
	}
}

func TestItemEndpoints(t *testing.T) {
	server, _ := newTestServer(t)
	handler := server.routes()

	rec := doRequest(t, handler, http.MethodPost, "/api/v1/items/101/refresh")
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh status = %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["title"] != "The Matrix" {
		t.Errorf("title = %v, want The Matrix", body["title"])
	}

	rec = doRequest(t, handler, http.MethodGet, "/api/v1/items/101/versions")
	if rec.Code != http.StatusOK {
		t.Fatalf("versions status = %d", rec.Code)
	}
	body = decodeBody(t, rec)
	versions := body["versions"].([]interface{})
	if len(versions) != 1 {
		t.Fatalf("versions = %v, want 1", versions)
	}
	if versions[0].(map[string]interface{})["primary"] != true {
		t.Errorf("versions[0].primary = %v, want true", versions[0])
	}
}

func TestLinkEndpointsWithoutLinker(t *testing.T) {
	server, _ := newTestServer(t)
	handler := server.routes()

	rec := doRequest(t, handler, http.MethodGet, "/api/v1/link/status")
	if rec.Code != http.StatusNotImplemented {
		t.Errorf("link status = %d, want 501 when linking is not configured", rec.Code)
	}
}

func TestSectionReset(t *testing.T) {
	server, _ := newTestServer(t)
	handler := server.routes()

	rec := doRequest(t, handler, http.MethodPost, "/api/v1/sections/1/reset")
	if rec.Code != http.StatusOK {
		t.Fatalf("reset status = %d, want 200", rec.Code)
	}
}
