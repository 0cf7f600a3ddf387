// Bloodhound - CTF First Blood Tracker and Live Scoreboard
// Copyright 2026 Samurai CTF Team
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/samuraictf/bloodhound

package api

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"

	"github.com/samuraictf/bloodhound/internal/broadcast"
	"github.com/samuraictf/bloodhound/internal/config"
	"github.com/samuraictf/bloodhound/internal/firstblood"
	"github.com/samuraictf/bloodhound/internal/models"
	"github.com/samuraictf/bloodhound/internal/websocket"
)

func setupWSServer(t *testing.T, upstream *stubUpstream) (*httptest.Server, *broadcast.Broadcaster) {
	t.Helper()

	dir := firstblood.NewDirectory(upstream)
	engine := firstblood.NewEngine(upstream, dir, 100)

	hub := websocket.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = hub.RunWithContext(ctx) }()

	broadcaster := broadcast.NewBroadcaster(engine, hub, time.Minute)
	handler := NewHandler(engine, broadcaster, upstream, hub)
	router := NewRouter(handler, &config.ServerConfig{
		CORSOrigins: []string{"*"},
		RateLimit:   1000,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, broadcaster
}

func wsURL(httpURL string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http") + "/ws"
}

func TestServeWSDeliversInitialData(t *testing.T) {
	srv, broadcaster := setupWSServer(t, defaultUpstream())

	// Seed the broadcaster so a connecting client gets a snapshot.
	broadcaster.Poll(context.Background())

	conn, _, err := gorilla.DefaultDialer.Dial(wsURL(srv.URL), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() { _ = conn.Close() }()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var msg websocket.Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read initial message: %v", err)
	}
	if msg.Type != websocket.MessageTypeInitialData {
		t.Errorf("first message type = %q, want %q", msg.Type, websocket.MessageTypeInitialData)
	}
}

func TestServeWSNoInitialDataWhileBootstrapping(t *testing.T) {
	srv, _ := setupWSServer(t, defaultUpstream())

	conn, _, err := gorilla.DefaultDialer.Dial(wsURL(srv.URL), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() { _ = conn.Close() }()

	_ = conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))

	var msg websocket.Message
	if err := conn.ReadJSON(&msg); err == nil {
		t.Errorf("expected no message before first poll, got %q", msg.Type)
	}
}

func TestServeWSReceivesDataUpdate(t *testing.T) {
	upstream := defaultUpstream()
	srv, broadcaster := setupWSServer(t, upstream)
	ctx := context.Background()

	broadcaster.Poll(ctx)

	conn, _, err := gorilla.DefaultDialer.Dial(wsURL(srv.URL), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() { _ = conn.Close() }()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var msg websocket.Message
	if err := conn.ReadJSON(&msg); err != nil || msg.Type != websocket.MessageTypeInitialData {
		t.Fatalf("initial message: %v / %q", err, msg.Type)
	}

	// A new solve lands upstream; the next poll pushes an update.
	upstream.subs = append(upstream.subs, models.Submission{
		ID: 3, ChallengeID: 11, TeamID: intPtr(5), Date: "2024-01-01T01:00:00Z",
	})
	broadcaster.Poll(ctx)

	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read update: %v", err)
	}
	if msg.Type != websocket.MessageTypeDataUpdate {
		t.Errorf("update type = %q", msg.Type)
	}
}
