// Bloodhound - CTF First Blood Tracker and Live Scoreboard
// Copyright 2026 Samurai CTF Team
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/samuraictf/bloodhound

package firstblood

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/samuraictf/bloodhound/internal/models"
)

// makePage builds n submissions with sequential ids starting at base.
func makePage(base, n int) []models.Submission {
	subs := make([]models.Submission, n)
	for i := range subs {
		subs[i] = models.Submission{
			ID:          base + i,
			ChallengeID: base + i,
			Date:        fmt.Sprintf("2024-01-01T00:00:%02dZ", i%60),
		}
	}
	return subs
}

func TestFetchSubmissionsStopsOnShortPage(t *testing.T) {
	client := &fakeClient{
		pages: map[int][]models.Submission{
			1: makePage(1, 100),
			2: makePage(101, 37),
		},
	}
	engine := NewEngine(client, NewDirectory(client), 100)

	subs := engine.fetchSubmissions(context.Background())

	if len(subs) != 137 {
		t.Errorf("expected 137 submissions, got %d", len(subs))
	}
	if client.subCalls != 2 {
		t.Errorf("expected 2 page requests, got %d", client.subCalls)
	}
}

func TestFetchSubmissionsExactPageSizeFetchesNext(t *testing.T) {
	// A page holding exactly the page size must trigger one more
	// request; only the empty follow-up page ends pagination.
	client := &fakeClient{
		pages: map[int][]models.Submission{
			1: makePage(1, 100),
		},
	}
	engine := NewEngine(client, NewDirectory(client), 100)

	subs := engine.fetchSubmissions(context.Background())

	if len(subs) != 100 {
		t.Errorf("expected 100 submissions, got %d", len(subs))
	}
	if client.subCalls != 2 {
		t.Errorf("expected a follow-up request after a full page, got %d calls", client.subCalls)
	}
}

func TestFetchSubmissionsShortPageEndsPagination(t *testing.T) {
	client := &fakeClient{
		pages: map[int][]models.Submission{
			1: makePage(1, 99),
		},
	}
	engine := NewEngine(client, NewDirectory(client), 100)

	engine.fetchSubmissions(context.Background())

	if client.subCalls != 1 {
		t.Errorf("short page must end pagination, got %d calls", client.subCalls)
	}
}

func TestFetchSubmissionsFailedPageReturnsPartial(t *testing.T) {
	client := &fakeClient{
		pages: map[int][]models.Submission{
			1: makePage(1, 100),
		},
		pagesErr: map[int]error{
			2: errors.New("gateway timeout"),
		},
	}
	engine := NewEngine(client, NewDirectory(client), 100)

	subs := engine.fetchSubmissions(context.Background())

	if len(subs) != 100 {
		t.Errorf("expected partial results from page 1, got %d", len(subs))
	}
}

func TestEnhancedSolvesPlaceholders(t *testing.T) {
	client := &fakeClient{
		challenges: []models.Challenge{{ID: 10, Name: "Warmup", Category: "Web", Value: 100}},
		pages: map[int][]models.Submission{
			1: {
				{ID: 1, ChallengeID: 10, Date: "2024-01-01T00:00:00Z"},
				{ID: 2, ChallengeID: 99, Date: "2024-01-01T00:00:01Z"},
			},
		},
	}
	engine := NewEngine(client, NewDirectory(client), 100)

	solves, err := engine.EnhancedSolves(context.Background())
	if err != nil {
		t.Fatalf("EnhancedSolves() error: %v", err)
	}
	if len(solves) != 2 {
		t.Fatalf("expected 2 solves, got %d", len(solves))
	}

	known := solves[0]
	if known.ChallengeName != "Warmup" || known.Category != "Web" || known.Value != 100 {
		t.Errorf("known challenge not enhanced: %+v", known)
	}

	missing := solves[1]
	if missing.ChallengeName != "Challenge 99" || missing.Category != "Unknown" || missing.Value != 0 {
		t.Errorf("missing challenge placeholders wrong: %+v", missing)
	}
}

func TestEnhancedSolvesChallengeFailurePropagates(t *testing.T) {
	client := &fakeClient{
		chalErr: errors.New("challenges endpoint down"),
		pages: map[int][]models.Submission{
			1: {{ID: 1, ChallengeID: 10, Date: "2024-01-01T00:00:00Z"}},
		},
	}
	engine := NewEngine(client, NewDirectory(client), 100)

	if _, err := engine.EnhancedSolves(context.Background()); err == nil {
		t.Fatal("expected challenge directory failure to propagate")
	}
}

func TestComputeFirstBloodsEarliestWins(t *testing.T) {
	solves := []models.EnhancedSolve{
		{
			Submission: models.Submission{ID: 1, ChallengeID: 10, TeamID: intPtr(5), Date: "2024-01-01T00:00:01Z"},
			TeamName:   "Alpha", ChallengeName: "Warmup", Category: "Web", Value: 100,
		},
		{
			Submission: models.Submission{ID: 2, ChallengeID: 10, TeamID: intPtr(6), Date: "2024-01-01T00:00:00Z"},
			TeamName:   "Beta", ChallengeName: "Warmup", Category: "Web", Value: 100,
		},
	}

	bloods := ComputeFirstBloods(solves)

	if len(bloods) != 1 {
		t.Fatalf("expected exactly one first blood, got %d", len(bloods))
	}
	fb := bloods[0]
	if fb.ID != 10 || fb.Name != "Warmup" || fb.Category != "Web" || fb.Value != 100 {
		t.Errorf("challenge fields wrong: %+v", fb)
	}
	if fb.Team != "Beta" || fb.TeamID != 6 {
		t.Errorf("earlier solve must win: got team %q (id %d)", fb.Team, fb.TeamID)
	}
	if fb.Date != "2024-01-01T00:00:00Z" {
		t.Errorf("blood date = %q, want earliest", fb.Date)
	}
	if fb.RawSolve.ID != 2 {
		t.Errorf("raw solve id = %d, want 2", fb.RawSolve.ID)
	}
}

func TestComputeFirstBloodsTieKeepsFirstSeen(t *testing.T) {
	solves := []models.EnhancedSolve{
		{
			Submission: models.Submission{ID: 7, ChallengeID: 3, Date: "2024-05-01T12:00:00Z"},
			TeamName:   "Incumbent",
		},
		{
			Submission: models.Submission{ID: 8, ChallengeID: 3, Date: "2024-05-01T12:00:00Z"},
			TeamName:   "Challenger",
		},
	}

	bloods := ComputeFirstBloods(solves)

	if len(bloods) != 1 || bloods[0].Team != "Incumbent" {
		t.Errorf("equal timestamps must keep the first-seen solve: %+v", bloods)
	}
}

func TestComputeFirstBloodsOnePerChallenge(t *testing.T) {
	solves := []models.EnhancedSolve{
		{Submission: models.Submission{ID: 1, ChallengeID: 1, Date: "2024-01-01T01:00:00Z"}, TeamName: "A"},
		{Submission: models.Submission{ID: 2, ChallengeID: 2, Date: "2024-01-01T02:00:00Z"}, TeamName: "B"},
		{Submission: models.Submission{ID: 3, ChallengeID: 1, Date: "2024-01-01T03:00:00Z"}, TeamName: "C"},
		{Submission: models.Submission{ID: 4, ChallengeID: 3, Date: "2024-01-01T04:00:00Z"}, TeamName: "D"},
	}

	bloods := ComputeFirstBloods(solves)

	if len(bloods) != 3 {
		t.Fatalf("expected one blood per solved challenge, got %d", len(bloods))
	}
	seen := make(map[int]bool)
	for _, fb := range bloods {
		if seen[fb.ID] {
			t.Errorf("challenge %d appears twice", fb.ID)
		}
		seen[fb.ID] = true
	}
}

func TestComputeFirstBloodsSortedMostRecentFirst(t *testing.T) {
	solves := []models.EnhancedSolve{
		{Submission: models.Submission{ID: 1, ChallengeID: 1, Date: "2024-01-01T01:00:00Z"}},
		{Submission: models.Submission{ID: 2, ChallengeID: 2, Date: "2024-01-01T03:00:00Z"}},
		{Submission: models.Submission{ID: 3, ChallengeID: 3, Date: "2024-01-01T02:00:00Z"}},
	}

	bloods := ComputeFirstBloods(solves)

	want := []int{2, 3, 1}
	for i, id := range want {
		if bloods[i].ID != id {
			t.Errorf("position %d: challenge %d, want %d", i, bloods[i].ID, id)
		}
	}
}

func TestComputeFirstBloodsEmpty(t *testing.T) {
	if bloods := ComputeFirstBloods(nil); len(bloods) != 0 {
		t.Errorf("no solves must yield no bloods, got %d", len(bloods))
	}
}

func TestComputeFirstBloodsInvalidDateLoses(t *testing.T) {
	solves := []models.EnhancedSolve{
		{Submission: models.Submission{ID: 1, ChallengeID: 1, Date: "garbage"}, TeamName: "Broken"},
		{Submission: models.Submission{ID: 2, ChallengeID: 1, Date: "2024-01-01T05:00:00Z"}, TeamName: "Valid"},
	}

	bloods := ComputeFirstBloods(solves)

	if len(bloods) != 1 || bloods[0].Team != "Valid" {
		t.Errorf("parseable timestamp must beat an unparseable one: %+v", bloods)
	}
}

func TestFirstBloodsEndToEnd(t *testing.T) {
	client := &fakeClient{
		teams:      []models.ActorRef{{ID: 5, Name: "Alpha"}, {ID: 6, Name: "Beta"}},
		challenges: []models.Challenge{{ID: 10, Name: "Warmup", Category: "Web", Value: 100}},
		pages: map[int][]models.Submission{
			1: {
				{ID: 1, ChallengeID: 10, TeamID: intPtr(5), Date: "2024-01-01T00:00:01Z"},
				{ID: 2, ChallengeID: 10, TeamID: intPtr(6), Date: "2024-01-01T00:00:00Z"},
			},
		},
	}
	engine := NewEngine(client, NewDirectory(client), 100)

	bloods, err := engine.FirstBloods(context.Background())
	if err != nil {
		t.Fatalf("FirstBloods() error: %v", err)
	}

	if len(bloods) != 1 {
		t.Fatalf("expected 1 first blood, got %d", len(bloods))
	}
	fb := bloods[0]
	checks := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"id", fb.ID, 10},
		{"name", fb.Name, "Warmup"},
		{"category", fb.Category, "Web"},
		{"value", fb.Value, 100},
		{"team", fb.Team, "Beta"},
		{"date", fb.Date, "2024-01-01T00:00:00Z"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}
