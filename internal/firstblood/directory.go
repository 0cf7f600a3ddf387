// Bloodhound - CTF First Blood Tracker and Live Scoreboard
// Copyright 2026 Samurai CTF Team
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/samuraictf/bloodhound

// Package firstblood contains the scoring core: the lazily populated
// team/challenge directory, the actor name resolver, and the engine
// that paginates submissions and computes first bloods.
package firstblood

import (
	"context"
	"sync"

	"github.com/samuraictf/bloodhound/internal/ctfd"
	"github.com/samuraictf/bloodhound/internal/logging"
	"github.com/samuraictf/bloodhound/internal/metrics"
	"github.com/samuraictf/bloodhound/internal/models"
)

// Directory caches team and challenge lookups for the lifetime of the
// process, invalidated only by an explicit Reset.
//
// Teams are populated from the first upstream source that yields at
// least one entry, in strict order: team listing, scoreboard standings,
// user listing. A total failure is cached as an empty map so a
// misbehaving upstream is not hammered on every request; Reset clears
// the failure. Challenges come from a single source and a failed fetch
// is NOT cached, so the next call retries.
type Directory struct {
	client ctfd.ClientInterface

	mu         sync.Mutex
	teams      map[int]string
	challenges map[int]models.Challenge
}

// NewDirectory creates a directory backed by the given upstream client.
func NewDirectory(client ctfd.ClientInterface) *Directory {
	return &Directory{client: client}
}

// Teams returns the id-to-name map, populating it on first use. Never
// fails: a fully failed population yields an empty, cached map and the
// resolver degrades to id-based placeholder names.
func (d *Directory) Teams(ctx context.Context) map[int]string {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.teams != nil {
		metrics.CacheHits.WithLabelValues("teams").Inc()
		return d.teams
	}
	metrics.CacheMisses.WithLabelValues("teams").Inc()

	d.teams = d.fetchTeams(ctx)
	logging.Info().Int("teams", len(d.teams)).Msg("team directory populated")
	return d.teams
}

// fetchTeams walks the fallback chain. Per-source failures are logged
// and skipped; the first source with at least one entry wins.
func (d *Directory) fetchTeams(ctx context.Context) map[int]string {
	teams := make(map[int]string)

	refs, err := d.client.Teams(ctx)
	if err != nil {
		logging.Warn().Err(err).Msg("team listing unavailable, falling back to scoreboard")
	} else {
		for _, ref := range refs {
			if ref.Name != "" {
				teams[ref.ID] = ref.Name
			}
		}
		if len(teams) > 0 {
			return teams
		}
	}

	standings, err := d.client.Scoreboard(ctx)
	if err != nil {
		logging.Warn().Err(err).Msg("scoreboard unavailable, falling back to user listing")
	} else {
		for _, st := range standings {
			// Team-mode standings nest a team object; user-mode ones
			// carry a flat name with an account id.
			switch {
			case st.Team != nil && st.Team.Name != "":
				teams[st.Team.ID] = st.Team.Name
			case st.Name != "" && st.AccountID != 0:
				teams[st.AccountID] = st.Name
			}
		}
		if len(teams) > 0 {
			return teams
		}
	}

	refs, err = d.client.Users(ctx)
	if err != nil {
		logging.Warn().Err(err).Msg("user listing unavailable, team names will be placeholders")
		return teams
	}
	for _, ref := range refs {
		if ref.Name != "" {
			teams[ref.ID] = ref.Name
		}
	}
	return teams
}

// Challenges returns the id-to-challenge map, populating it on first
// use. A fetch failure propagates without being cached.
func (d *Directory) Challenges(ctx context.Context) (map[int]models.Challenge, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.challenges != nil {
		metrics.CacheHits.WithLabelValues("challenges").Inc()
		return d.challenges, nil
	}
	metrics.CacheMisses.WithLabelValues("challenges").Inc()

	list, err := d.client.Challenges(ctx)
	if err != nil {
		return nil, err
	}

	challenges := make(map[int]models.Challenge, len(list))
	for _, ch := range list {
		challenges[ch.ID] = ch
	}
	d.challenges = challenges
	logging.Info().Int("challenges", len(challenges)).Msg("challenge directory populated")
	return challenges, nil
}

// Reset drops both caches and the upstream session credential. The
// next access re-fetches everything. This is the only mutation path
// after initial population.
func (d *Directory) Reset() {
	d.mu.Lock()
	d.teams = nil
	d.challenges = nil
	d.mu.Unlock()

	d.client.InvalidateSession()
	metrics.CacheResets.Inc()
	logging.Info().Msg("entity caches and session credential reset")
}
