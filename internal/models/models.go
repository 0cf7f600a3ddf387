// Bloodhound - CTF First Blood Tracker and Live Scoreboard
// Copyright 2026 Samurai CTF Team
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/samuraictf/bloodhound

// Package models defines the canonical data types shared across the
// service: challenges, submissions, enhanced solves, first bloods, and
// scoreboard standings.
//
// Upstream CTFd deployments return submissions in several shapes
// depending on competition mode (team vs. individual) and endpoint
// version. Submission is deliberately permissive: every known actor
// reference is an optional field, and resolution into a display name is
// the job of the resolver, not the type.
package models

import (
	"fmt"
	"time"
)

// Challenge is a single challenge as reported by the upstream API.
type Challenge struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Value    int    `json:"value"`
}

// ActorRef is an embedded actor object (team, user, solved_by, account)
// inside a submission record.
type ActorRef struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Submission is a raw correct-submission record. All actor references
// are optional; at most a few are populated for any given upstream.
type Submission struct {
	ID          int       `json:"id"`
	ChallengeID int       `json:"challenge_id"`
	Type        string    `json:"type,omitempty"`
	Date        string    `json:"date"`
	Challenge   *ActorRef `json:"challenge,omitempty"`
	Team        *ActorRef `json:"team,omitempty"`
	User        *ActorRef `json:"user,omitempty"`
	SolvedBy    *ActorRef `json:"solved_by,omitempty"`
	Account     *ActorRef `json:"account,omitempty"`
	TeamID      *int      `json:"team_id,omitempty"`
	UserID      *int      `json:"user_id,omitempty"`
	TeamName    string    `json:"team_name,omitempty"`
	UserName    string    `json:"user_name,omitempty"`
}

// AccountID returns the numeric id most likely to identify the solving
// account, preferring team over user references.
func (s *Submission) AccountID() int {
	switch {
	case s.Team != nil && s.Team.ID != 0:
		return s.Team.ID
	case s.TeamID != nil:
		return *s.TeamID
	case s.User != nil && s.User.ID != 0:
		return s.User.ID
	case s.UserID != nil:
		return *s.UserID
	case s.Account != nil:
		return s.Account.ID
	}
	return 0
}

// submissionDateLayouts covers the timestamp formats observed from CTFd
// deployments: RFC 3339 with and without sub-second precision, and the
// +00:00 offset form CTFd emits from Python datetimes.
var submissionDateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999-07:00",
	"2006-01-02T15:04:05",
}

// ParseDate parses a submission timestamp. The zero time and an error
// are returned if no known layout matches.
func ParseDate(date string) (time.Time, error) {
	for _, layout := range submissionDateLayouts {
		if t, err := time.Parse(layout, date); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized submission date %q", date)
}

// EnhancedSolve is a submission augmented with resolved display fields.
// It is derived on every fetch and never persisted.
type EnhancedSolve struct {
	Submission
	TeamName      string `json:"team_name"`
	ChallengeName string `json:"challenge_name"`
	Category      string `json:"category"`
	Value         int    `json:"value"`
}

// FirstBlood is the earliest solve of a challenge, flattened for
// display. ID is the challenge id, not the submission id.
type FirstBlood struct {
	ID       int           `json:"id"`
	Name     string        `json:"name"`
	Category string        `json:"category"`
	Value    int           `json:"value"`
	TeamID   int           `json:"team_id"`
	Team     string        `json:"team"`
	Date     string        `json:"date"`
	RawSolve EnhancedSolve `json:"raw_solve"`
}

// Standing is one row of the upstream scoreboard. Team-mode upstreams
// nest a team object; user-mode upstreams report a flat name with an
// account id.
type Standing struct {
	Pos       int       `json:"pos"`
	AccountID int       `json:"account_id"`
	Name      string    `json:"name"`
	Score     int       `json:"score"`
	Team      *ActorRef `json:"team,omitempty"`
	Members   []ActorRef `json:"members,omitempty"`
}

// ChallengeStatus is the per-challenge view served by the status
// endpoint: whether anyone has solved it and who drew first blood.
type ChallengeStatus struct {
	Challenge
	Solved     bool   `json:"solved"`
	SolveCount int    `json:"solve_count"`
	FirstBlood string `json:"first_blood,omitempty"`
	BloodDate  string `json:"blood_date,omitempty"`
}

// TeamBloodStats aggregates first bloods per team.
type TeamBloodStats struct {
	Team       string   `json:"team"`
	Count      int      `json:"count"`
	Challenges []string `json:"challenges"`
}
