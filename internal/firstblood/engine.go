// Bloodhound - CTF First Blood Tracker and Live Scoreboard
// Copyright 2026 Samurai CTF Team
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/samuraictf/bloodhound

package firstblood

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/samuraictf/bloodhound/internal/ctfd"
	"github.com/samuraictf/bloodhound/internal/logging"
	"github.com/samuraictf/bloodhound/internal/models"
)

// maxSubmissionPages caps pagination so a pathological upstream cannot
// spin the poll loop forever.
const maxSubmissionPages = 1000

// Engine retrieves the full correct-submission set, enhances it with
// display fields, and computes first bloods.
//
// First bloods are recomputed from scratch on every call rather than
// incrementally patched: an admin correction upstream can retroactively
// invalidate a solve, and memoized state would go stale.
type Engine struct {
	client   ctfd.ClientInterface
	dir      *Directory
	pageSize int
}

// NewEngine creates an engine with the given page size for submission
// pagination.
func NewEngine(client ctfd.ClientInterface, dir *Directory, pageSize int) *Engine {
	return &Engine{client: client, dir: dir, pageSize: pageSize}
}

// Directory exposes the engine's entity directory.
func (e *Engine) Directory() *Directory { return e.dir }

// fetchSubmissions paginates the correct-submission listing
// exhaustively. A page with fewer records than the page size marks the
// end. A failed page aborts pagination and returns what was gathered:
// partial results beat total failure for a live scoreboard.
func (e *Engine) fetchSubmissions(ctx context.Context) []models.Submission {
	var all []models.Submission

	for page := 1; page <= maxSubmissionPages; page++ {
		subs, err := e.client.Submissions(ctx, page, e.pageSize)
		if err != nil {
			logging.Warn().Err(err).Int("page", page).Int("gathered", len(all)).
				Msg("submission page failed, continuing with partial results")
			break
		}

		all = append(all, subs...)
		if len(subs) < e.pageSize {
			break
		}
	}

	return all
}

// EnhancedSolves returns every correct submission augmented with
// resolved team and challenge display fields. A challenge directory
// failure propagates; individual missing challenge ids degrade to
// placeholders instead.
func (e *Engine) EnhancedSolves(ctx context.Context) ([]models.EnhancedSolve, error) {
	// Teams and challenges have no data dependency, so fetch them
	// concurrently. Submission pagination stays sequential because each
	// page's continuation depends on the previous page's size.
	type challengeResult struct {
		challenges map[int]models.Challenge
		err        error
	}

	teamsCh := make(chan map[int]string, 1)
	chalCh := make(chan challengeResult, 1)
	go func() { teamsCh <- e.dir.Teams(ctx) }()
	go func() {
		challenges, err := e.dir.Challenges(ctx)
		chalCh <- challengeResult{challenges, err}
	}()

	subs := e.fetchSubmissions(ctx)

	teams := <-teamsCh
	chal := <-chalCh
	if chal.err != nil {
		return nil, chal.err
	}

	solves := make([]models.EnhancedSolve, 0, len(subs))
	for i := range subs {
		solves = append(solves, enhance(&subs[i], teams, chal.challenges))
	}
	return solves, nil
}

// enhance attaches display fields to one submission.
func enhance(sub *models.Submission, teams map[int]string, challenges map[int]models.Challenge) models.EnhancedSolve {
	solve := models.EnhancedSolve{
		Submission: *sub,
		TeamName:   ResolveActorName(sub, teams),
	}

	if ch, ok := challenges[sub.ChallengeID]; ok {
		solve.ChallengeName = ch.Name
		solve.Category = ch.Category
		solve.Value = ch.Value
	} else {
		solve.ChallengeName = fmt.Sprintf("Challenge %d", sub.ChallengeID)
		solve.Category = "Unknown"
		solve.Value = 0
	}

	return solve
}

// FirstBloods fetches the current solve set and computes first bloods.
func (e *Engine) FirstBloods(ctx context.Context) ([]models.FirstBlood, error) {
	solves, err := e.EnhancedSolves(ctx)
	if err != nil {
		return nil, err
	}
	return ComputeFirstBloods(solves), nil
}

// ComputeFirstBloods selects, per challenge, the solve with the
// earliest timestamp. Ties keep the first-seen solve, since upstream
// page order is the only secondary ordering available across all
// submission shapes. The result is sorted most recent first.
func ComputeFirstBloods(solves []models.EnhancedSolve) []models.FirstBlood {
	type candidate struct {
		solve models.EnhancedSolve
		at    time.Time
		valid bool
	}

	best := make(map[int]*candidate)
	order := make([]int, 0)

	for i := range solves {
		solve := solves[i]
		at, err := models.ParseDate(solve.Date)
		valid := err == nil

		cur, seen := best[solve.ChallengeID]
		if !seen {
			best[solve.ChallengeID] = &candidate{solve: solve, at: at, valid: valid}
			order = append(order, solve.ChallengeID)
			continue
		}
		// Strictly earlier wins; equal timestamps keep the incumbent.
		if valid && (!cur.valid || at.Before(cur.at)) {
			best[solve.ChallengeID] = &candidate{solve: solve, at: at, valid: valid}
		}
	}

	bloods := make([]models.FirstBlood, 0, len(order))
	for _, id := range order {
		c := best[id]
		bloods = append(bloods, models.FirstBlood{
			ID:       id,
			Name:     c.solve.ChallengeName,
			Category: c.solve.Category,
			Value:    c.solve.Value,
			TeamID:   c.solve.AccountID(),
			Team:     c.solve.TeamName,
			Date:     c.solve.Date,
			RawSolve: c.solve,
		})
	}

	sort.SliceStable(bloods, func(i, j int) bool {
		ti, erri := models.ParseDate(bloods[i].Date)
		tj, errj := models.ParseDate(bloods[j].Date)
		if erri != nil || errj != nil {
			return errj != nil && erri == nil
		}
		return ti.After(tj)
	})

	return bloods
}

// Scoreboard returns the raw upstream standings.
func (e *Engine) Scoreboard(ctx context.Context) ([]models.Standing, error) {
	return e.client.Scoreboard(ctx)
}
