// Bloodhound - CTF First Blood Tracker and Live Scoreboard
// Copyright 2026 Samurai CTF Team
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/samuraictf/bloodhound

package firstblood

import (
	"fmt"

	"github.com/samuraictf/bloodhound/internal/models"
)

// ResolveActorName normalizes a submission's inconsistent actor
// references into a display name. First match wins, in this order:
//
//  1. embedded team object
//  2. embedded solved_by object
//  3. flat team_name field
//  4. team_id looked up in the team directory
//  5. embedded user object
//  6. flat user_name field
//  7. user_id looked up in the team directory
//  8. embedded account object
//  9. "Team {id}" / "User {id}" / "Unknown Team"
//
// Embedded objects outrank directory lookups because they reflect the
// exact submission-time state; the directory may lag behind renames.
// The result is deterministic given the submission and the directory.
func ResolveActorName(sub *models.Submission, teams map[int]string) string {
	if sub.Team != nil && sub.Team.Name != "" {
		return sub.Team.Name
	}
	if sub.SolvedBy != nil && sub.SolvedBy.Name != "" {
		return sub.SolvedBy.Name
	}
	if sub.TeamName != "" {
		return sub.TeamName
	}
	if sub.TeamID != nil {
		if name := teams[*sub.TeamID]; name != "" {
			return name
		}
	}
	if sub.User != nil && sub.User.Name != "" {
		return sub.User.Name
	}
	if sub.UserName != "" {
		return sub.UserName
	}
	if sub.UserID != nil {
		if name := teams[*sub.UserID]; name != "" {
			return name
		}
	}
	if sub.Account != nil && sub.Account.Name != "" {
		return sub.Account.Name
	}
	if sub.TeamID != nil {
		return fmt.Sprintf("Team %d", *sub.TeamID)
	}
	if sub.UserID != nil {
		return fmt.Sprintf("User %d", *sub.UserID)
	}
	return "Unknown Team"
}
