// Bloodhound - CTF First Blood Tracker and Live Scoreboard
// Copyright 2026 Samurai CTF Team
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/samuraictf/bloodhound

package firstblood

import (
	"context"
	"errors"
	"testing"

	"github.com/goccy/go-json"

	"github.com/samuraictf/bloodhound/internal/models"
)

// fakeClient is a call-counting upstream double. Each endpoint returns
// its configured payload or error.
type fakeClient struct {
	teams      []models.ActorRef
	teamsErr   error
	users      []models.ActorRef
	usersErr   error
	standings  []models.Standing
	boardErr   error
	challenges []models.Challenge
	chalErr    error

	// pages holds submission pages keyed by page number.
	pages    map[int][]models.Submission
	pagesErr map[int]error

	teamsCalls      int
	usersCalls      int
	boardCalls      int
	chalCalls       int
	subCalls        int
	invalidateCalls int
}

func (f *fakeClient) Teams(context.Context) ([]models.ActorRef, error) {
	f.teamsCalls++
	return f.teams, f.teamsErr
}

func (f *fakeClient) Users(context.Context) ([]models.ActorRef, error) {
	f.usersCalls++
	return f.users, f.usersErr
}

func (f *fakeClient) Scoreboard(context.Context) ([]models.Standing, error) {
	f.boardCalls++
	return f.standings, f.boardErr
}

func (f *fakeClient) Challenges(context.Context) ([]models.Challenge, error) {
	f.chalCalls++
	return f.challenges, f.chalErr
}

func (f *fakeClient) Submissions(_ context.Context, page, _ int) ([]models.Submission, error) {
	f.subCalls++
	if err, ok := f.pagesErr[page]; ok {
		return nil, err
	}
	return f.pages[page], nil
}

func (f *fakeClient) Raw(context.Context, string) (json.RawMessage, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeClient) InvalidateSession() {
	f.invalidateCalls++
}

func TestDirectoryTeamsCachedAfterFirstFetch(t *testing.T) {
	client := &fakeClient{
		teams: []models.ActorRef{{ID: 1, Name: "Alpha"}, {ID: 2, Name: "Beta"}},
	}
	dir := NewDirectory(client)
	ctx := context.Background()

	first := dir.Teams(ctx)
	second := dir.Teams(ctx)

	if client.teamsCalls != 1 {
		t.Errorf("expected 1 upstream call, got %d", client.teamsCalls)
	}
	if len(first) != 2 || first[1] != "Alpha" || first[2] != "Beta" {
		t.Errorf("unexpected team map: %v", first)
	}
	if len(second) != 2 {
		t.Errorf("cached map lost entries: %v", second)
	}
}

func TestDirectoryTeamsFallbackToScoreboard(t *testing.T) {
	client := &fakeClient{
		teamsErr: errors.New("forbidden"),
		standings: []models.Standing{
			{Pos: 1, Team: &models.ActorRef{ID: 3, Name: "Gamma"}},
			{Pos: 2, AccountID: 4, Name: "Delta"},
		},
	}
	dir := NewDirectory(client)

	teams := dir.Teams(context.Background())

	if teams[3] != "Gamma" {
		t.Errorf("nested team standing not picked up: %v", teams)
	}
	if teams[4] != "Delta" {
		t.Errorf("flat standing not picked up: %v", teams)
	}
	if client.usersCalls != 0 {
		t.Errorf("user listing should not be consulted when scoreboard yields teams")
	}
}

func TestDirectoryTeamsEmptySourceFallsThrough(t *testing.T) {
	// An empty team listing is not an error, but it still must not win
	// over a later source that has entries.
	client := &fakeClient{
		teams: []models.ActorRef{},
		users: []models.ActorRef{{ID: 8, Name: "Solo"}},
	}
	dir := NewDirectory(client)

	teams := dir.Teams(context.Background())

	if teams[8] != "Solo" {
		t.Errorf("expected user fallback, got %v", teams)
	}
	if client.boardCalls != 1 {
		t.Errorf("scoreboard should be tried before users, calls=%d", client.boardCalls)
	}
}

func TestDirectoryTeamsTotalFailureCachedEmpty(t *testing.T) {
	client := &fakeClient{
		teamsErr: errors.New("down"),
		boardErr: errors.New("down"),
		usersErr: errors.New("down"),
	}
	dir := NewDirectory(client)
	ctx := context.Background()

	first := dir.Teams(ctx)
	second := dir.Teams(ctx)

	if len(first) != 0 || len(second) != 0 {
		t.Errorf("expected empty maps, got %v / %v", first, second)
	}
	// The empty result is cached: no second round of upstream calls.
	if client.teamsCalls != 1 || client.boardCalls != 1 || client.usersCalls != 1 {
		t.Errorf("failure not cached: teams=%d board=%d users=%d",
			client.teamsCalls, client.boardCalls, client.usersCalls)
	}
}

func TestDirectoryChallengesCached(t *testing.T) {
	client := &fakeClient{
		challenges: []models.Challenge{{ID: 10, Name: "Warmup", Category: "Web", Value: 100}},
	}
	dir := NewDirectory(client)
	ctx := context.Background()

	first, err := dir.Challenges(ctx)
	if err != nil {
		t.Fatalf("Challenges() error: %v", err)
	}
	if _, err := dir.Challenges(ctx); err != nil {
		t.Fatalf("second Challenges() error: %v", err)
	}

	if client.chalCalls != 1 {
		t.Errorf("expected 1 upstream call, got %d", client.chalCalls)
	}
	if ch := first[10]; ch.Name != "Warmup" || ch.Category != "Web" || ch.Value != 100 {
		t.Errorf("unexpected challenge: %+v", ch)
	}
}

func TestDirectoryChallengesFailureNotCached(t *testing.T) {
	client := &fakeClient{chalErr: errors.New("temporarily down")}
	dir := NewDirectory(client)
	ctx := context.Background()

	if _, err := dir.Challenges(ctx); err == nil {
		t.Fatal("expected error from failed fetch")
	}

	// Upstream recovers; the next call must retry instead of serving a
	// cached failure.
	client.chalErr = nil
	client.challenges = []models.Challenge{{ID: 1, Name: "Back", Category: "Misc", Value: 50}}

	challenges, err := dir.Challenges(ctx)
	if err != nil {
		t.Fatalf("Challenges() after recovery: %v", err)
	}
	if challenges[1].Name != "Back" {
		t.Errorf("recovered fetch not served: %v", challenges)
	}
	if client.chalCalls != 2 {
		t.Errorf("expected 2 upstream calls, got %d", client.chalCalls)
	}
}

func TestDirectoryResetForcesRefetch(t *testing.T) {
	client := &fakeClient{
		teams:      []models.ActorRef{{ID: 1, Name: "Alpha"}},
		challenges: []models.Challenge{{ID: 10, Name: "Warmup", Category: "Web", Value: 100}},
	}
	dir := NewDirectory(client)
	ctx := context.Background()

	dir.Teams(ctx)
	if _, err := dir.Challenges(ctx); err != nil {
		t.Fatalf("Challenges() error: %v", err)
	}

	dir.Reset()

	dir.Teams(ctx)
	if _, err := dir.Challenges(ctx); err != nil {
		t.Fatalf("Challenges() after reset: %v", err)
	}

	if client.teamsCalls != 2 {
		t.Errorf("teams not refetched after reset, calls=%d", client.teamsCalls)
	}
	if client.chalCalls != 2 {
		t.Errorf("challenges not refetched after reset, calls=%d", client.chalCalls)
	}
	if client.invalidateCalls != 1 {
		t.Errorf("session credential not invalidated, calls=%d", client.invalidateCalls)
	}
}
