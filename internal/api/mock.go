// Bloodhound - CTF First Blood Tracker and Live Scoreboard
// Copyright 2026 Samurai CTF Team
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/samuraictf/bloodhound

package api

import (
	"net/http"
	"time"

	"github.com/samuraictf/bloodhound/internal/models"
)

// MockChallenges serves fixed sample challenges for operating the UI
// without upstream connectivity.
func (h *Handler) MockChallenges(w http.ResponseWriter, _ *http.Request) {
	WriteSuccess(w, []models.Challenge{
		{ID: 1, Name: "Intro Challenge", Category: "Web", Value: 100},
		{ID: 2, Name: "Hidden Flag", Category: "Crypto", Value: 200},
		{ID: 3, Name: "Buffer Overflow", Category: "Pwn", Value: 300},
		{ID: 4, Name: "Reverse Me", Category: "Reverse", Value: 250},
		{ID: 5, Name: "SQL Injection", Category: "Web", Value: 150},
	})
}

// MockSolves serves fixed sample solves with timestamps relative to
// now, so recency-dependent UI paths stay exercisable offline.
func (h *Handler) MockSolves(w http.ResponseWriter, _ *http.Request) {
	now := time.Now().UTC()
	oneHourAgo := now.Add(-time.Hour).Format(time.RFC3339)
	twoHoursAgo := now.Add(-2 * time.Hour).Format(time.RFC3339)

	WriteSuccess(w, []models.Submission{
		{ID: 1, ChallengeID: 1, TeamName: "Samurai Warriors", Date: twoHoursAgo},
		{ID: 2, ChallengeID: 2, TeamName: "Binary Ninjas", Date: oneHourAgo},
		{ID: 3, ChallengeID: 3, TeamName: "Samurai Warriors", Date: now.Format(time.RFC3339)},
		{ID: 4, ChallengeID: 4, TeamName: "Hack Masters", Date: oneHourAgo},
		{ID: 5, ChallengeID: 1, TeamName: "Binary Ninjas", Date: twoHoursAgo},
	})
}
