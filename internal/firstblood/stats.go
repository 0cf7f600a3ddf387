// Bloodhound - CTF First Blood Tracker and Live Scoreboard
// Copyright 2026 Samurai CTF Team
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/samuraictf/bloodhound

package firstblood

import (
	"context"
	"sort"
	"strings"

	"github.com/samuraictf/bloodhound/internal/ctfd"
	"github.com/samuraictf/bloodhound/internal/models"
)

// ChallengesStatus reports every challenge with its solve count and,
// when solved, who drew first blood.
func (e *Engine) ChallengesStatus(ctx context.Context) ([]models.ChallengeStatus, error) {
	challenges, err := e.dir.Challenges(ctx)
	if err != nil {
		return nil, err
	}
	solves, err := e.EnhancedSolves(ctx)
	if err != nil {
		return nil, err
	}

	counts := make(map[int]int, len(challenges))
	for i := range solves {
		counts[solves[i].ChallengeID]++
	}

	bloodByChallenge := make(map[int]models.FirstBlood)
	for _, fb := range ComputeFirstBloods(solves) {
		bloodByChallenge[fb.ID] = fb
	}

	statuses := make([]models.ChallengeStatus, 0, len(challenges))
	for _, ch := range challenges {
		status := models.ChallengeStatus{
			Challenge:  ch,
			SolveCount: counts[ch.ID],
			Solved:     counts[ch.ID] > 0,
		}
		if fb, ok := bloodByChallenge[ch.ID]; ok {
			status.FirstBlood = fb.Team
			status.BloodDate = fb.Date
		}
		statuses = append(statuses, status)
	}

	sort.Slice(statuses, func(i, j int) bool {
		if statuses[i].Category != statuses[j].Category {
			return statuses[i].Category < statuses[j].Category
		}
		return statuses[i].ID < statuses[j].ID
	})

	return statuses, nil
}

// BloodStats aggregates first bloods per team, most bloods first.
func (e *Engine) BloodStats(ctx context.Context) ([]models.TeamBloodStats, error) {
	bloods, err := e.FirstBloods(ctx)
	if err != nil {
		return nil, err
	}
	return AggregateBloodStats(bloods), nil
}

// AggregateBloodStats groups first bloods by team name.
func AggregateBloodStats(bloods []models.FirstBlood) []models.TeamBloodStats {
	byTeam := make(map[string][]string)
	for _, fb := range bloods {
		byTeam[fb.Team] = append(byTeam[fb.Team], fb.Name)
	}

	stats := make([]models.TeamBloodStats, 0, len(byTeam))
	for team, challenges := range byTeam {
		stats = append(stats, models.TeamBloodStats{
			Team:       team,
			Count:      len(challenges),
			Challenges: challenges,
		})
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		return stats[i].Team < stats[j].Team
	})

	return stats
}

// ChallengeSolves returns every solve of the challenge with the given
// name (case-insensitive). Returns NotFoundError for unknown names.
func (e *Engine) ChallengeSolves(ctx context.Context, name string) ([]models.EnhancedSolve, error) {
	challenges, err := e.dir.Challenges(ctx)
	if err != nil {
		return nil, err
	}

	challengeID := 0
	found := false
	for _, ch := range challenges {
		if strings.EqualFold(ch.Name, name) {
			challengeID = ch.ID
			found = true
			break
		}
	}
	if !found {
		return nil, &ctfd.NotFoundError{Kind: "challenge", Name: name}
	}

	solves, err := e.EnhancedSolves(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]models.EnhancedSolve, 0)
	for i := range solves {
		if solves[i].ChallengeID == challengeID {
			matched = append(matched, solves[i])
		}
	}
	return matched, nil
}
