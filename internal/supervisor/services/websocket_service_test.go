// Bloodhound - CTF First Blood Tracker and Live Scoreboard
// Copyright 2026 Samurai CTF Team
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/samuraictf/bloodhound

package services

import (
	"context"
	"errors"
	"testing"
	"time"
)

// mockHub is a test double for the ContextHub interface.
type mockHub struct {
	started chan struct{}
	err     error
}

func (m *mockHub) RunWithContext(ctx context.Context) error {
	close(m.started)
	if m.err != nil {
		return m.err
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestWebSocketHubServiceRunsUntilCancel(t *testing.T) {
	hub := &mockHub{started: make(chan struct{})}
	svc := NewWebSocketHubService(hub)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	select {
	case <-hub.started:
	case <-time.After(time.Second):
		t.Fatal("hub never started")
	}

	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestWebSocketHubServicePropagatesError(t *testing.T) {
	wantErr := errors.New("hub crashed")
	hub := &mockHub{started: make(chan struct{}), err: wantErr}
	svc := NewWebSocketHubService(hub)

	if err := svc.Serve(context.Background()); !errors.Is(err, wantErr) {
		t.Errorf("Serve returned %v, want %v", err, wantErr)
	}
}

func TestWebSocketHubServiceString(t *testing.T) {
	hub := &mockHub{started: make(chan struct{})}
	if got := NewWebSocketHubService(hub).String(); got != "websocket-hub" {
		t.Errorf("String() = %q", got)
	}
}
