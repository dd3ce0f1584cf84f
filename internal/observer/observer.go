// Pleximport - Plex Media Server library import engine
// Copyright 2026 Pleximport contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediabridge/pleximport

// Package observer keeps a websocket subscription to the provider's
// notification feed and converts library timeline events into host
// change notifications, so edits land between scheduled sync runs.
package observer

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/mediabridge/pleximport/internal/host"
	"github.com/mediabridge/pleximport/internal/logging"
	"github.com/mediabridge/pleximport/internal/metrics"
)

// notificationsPath is the server's websocket notification endpoint.
const notificationsPath = "/:/websockets/notifications"

// libraryIdentifier marks timeline entries originating from the
// library (as opposed to e.g. playlists).
const libraryIdentifier = "com.plexapp.plugins.library"

// Timeline entry states the observer acts on.
const (
	stateProcessed = 5
	stateDeleted   = 9
)

// itemSyncer materializes one item for a change notification.
type itemSyncer interface {
	SyncItem(ctx context.Context, ratingKey string) (*host.Item, error)
}

// Observer is a long-running service; Serve blocks until ctx is
// cancelled, reconnecting on socket failures.
type Observer struct {
	baseURL        string
	token          string
	syncer         itemSyncer
	sink           host.ChangeSink
	reconnectDelay time.Duration
}

// New creates an observer for the server at baseURL.
func New(baseURL, token string, syncer itemSyncer, sink host.ChangeSink, reconnectDelay time.Duration) *Observer {
	return &Observer{
		baseURL:        baseURL,
		token:          token,
		syncer:         syncer,
		sink:           sink,
		reconnectDelay: reconnectDelay,
	}
}

// String names the service in supervisor logs.
func (o *Observer) String() string { return "change-observer" }

// Serve runs the subscription loop until ctx is cancelled.
func (o *Observer) Serve(ctx context.Context) error {
	for {
		if err := o.listen(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logging.Warn().Err(err).Dur("reconnect_delay", o.reconnectDelay).Msg("notification socket lost, reconnecting")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(o.reconnectDelay):
		}
	}
}

// listen holds one websocket session open and dispatches its messages.
func (o *Observer) listen(ctx context.Context) error {
	wsURL, err := o.socketURL()
	if err != nil {
		return err
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial notifications: %w", err)
	}
	defer conn.Close()

	logging.Info().Msg("change observer connected")

	// Unblock ReadMessage when the context ends.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read notification: %w", err)
		}
		o.handleMessage(ctx, payload)
	}
}

func (o *Observer) socketURL() (string, error) {
	u, err := url.Parse(o.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse provider url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + notificationsPath
	if o.token != "" {
		q := u.Query()
		q.Set("X-Plex-Token", o.token)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// notification is the envelope of one websocket message.
type notification struct {
	Container struct {
		Type            string          `json:"type"`
		TimelineEntries []timelineEntry `json:"TimelineEntry"`
	} `json:"NotificationContainer"`
}

type timelineEntry struct {
	Identifier string `json:"identifier"`
	ItemID     any    `json:"itemID"`
	State      int    `json:"state"`
	Title      string `json:"title"`
}

// ratingKey normalizes itemID, which the server sends as either a
// string or a number depending on version.
func (e timelineEntry) ratingKey() string {
	switch v := e.ItemID.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatInt(int64(v), 10)
	default:
		return ""
	}
}

func (o *Observer) handleMessage(ctx context.Context, payload []byte) {
	var n notification
	if err := json.Unmarshal(payload, &n); err != nil {
		logging.Debug().Err(err).Msg("ignoring undecodable notification")
		return
	}
	if n.Container.Type != "timeline" {
		return
	}

	var changes []host.ItemChange
	for _, entry := range n.Container.TimelineEntries {
		if entry.Identifier != libraryIdentifier {
			continue
		}
		key := entry.ratingKey()
		if key == "" {
			continue
		}

		switch entry.State {
		case stateDeleted:
			changes = append(changes, host.ItemChange{Type: host.ChangeRemoved, ID: key})
			metrics.ObserverEvents.WithLabelValues(string(host.ChangeRemoved)).Inc()

		case stateProcessed:
			item, err := o.syncer.SyncItem(ctx, key)
			if err != nil {
				logging.Warn().Err(err).Str("item", key).Msg("change notification item fetch failed")
				continue
			}

			changeType := host.ChangeUpdated
			if item.AddedAt != 0 && item.AddedAt == item.UpdatedAt {
				changeType = host.ChangeAdded
			}
			changes = append(changes, host.ItemChange{Type: changeType, ID: key, Item: item})
			metrics.ObserverEvents.WithLabelValues(string(changeType)).Inc()
		}
	}

	if len(changes) == 0 {
		return
	}
	if err := o.sink.ChangeItems(ctx, changes); err != nil {
		logging.Error().Err(err).Int("changes", len(changes)).Msg("host rejected change notifications")
	}
}
