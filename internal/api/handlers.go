// Bloodhound - CTF First Blood Tracker and Live Scoreboard
// Copyright 2026 Samurai CTF Team
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/samuraictf/bloodhound

package api

import (
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/samuraictf/bloodhound/internal/broadcast"
	"github.com/samuraictf/bloodhound/internal/ctfd"
	"github.com/samuraictf/bloodhound/internal/firstblood"
	"github.com/samuraictf/bloodhound/internal/logging"
	"github.com/samuraictf/bloodhound/internal/models"
	"github.com/samuraictf/bloodhound/internal/websocket"
)

// Handler carries the dependencies of all HTTP endpoints.
type Handler struct {
	engine      *firstblood.Engine
	broadcaster *broadcast.Broadcaster
	client      ctfd.ClientInterface
	hub         *websocket.Hub
}

// NewHandler wires the endpoint dependencies.
func NewHandler(engine *firstblood.Engine, broadcaster *broadcast.Broadcaster, client ctfd.ClientInterface, hub *websocket.Hub) *Handler {
	return &Handler{
		engine:      engine,
		broadcaster: broadcaster,
		client:      client,
		hub:         hub,
	}
}

// Challenges serves the cached challenge list, sorted by id.
func (h *Handler) Challenges(w http.ResponseWriter, r *http.Request) {
	byID, err := h.engine.Directory().Challenges(r.Context())
	if err != nil {
		WriteError(r, w, err)
		return
	}

	challenges := make([]models.Challenge, 0, len(byID))
	for _, ch := range byID {
		challenges = append(challenges, ch)
	}
	sort.Slice(challenges, func(i, j int) bool { return challenges[i].ID < challenges[j].ID })

	WriteSuccess(w, challenges)
}

// Teams serves the cached id-to-name map.
func (h *Handler) Teams(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, h.engine.Directory().Teams(r.Context()))
}

// Scoreboard proxies the raw upstream standings.
func (h *Handler) Scoreboard(w http.ResponseWriter, r *http.Request) {
	standings, err := h.engine.Scoreboard(r.Context())
	if err != nil {
		WriteError(r, w, err)
		return
	}
	WriteSuccess(w, standings)
}

// Solves serves all correct submissions with display fields attached.
func (h *Handler) Solves(w http.ResponseWriter, r *http.Request) {
	solves, err := h.engine.EnhancedSolves(r.Context())
	if err != nil {
		WriteError(r, w, err)
		return
	}
	WriteSuccess(w, solves)
}

// FirstBloods serves the current first blood per challenge, most
// recent first.
func (h *Handler) FirstBloods(w http.ResponseWriter, r *http.Request) {
	bloods, err := h.engine.FirstBloods(r.Context())
	if err != nil {
		WriteError(r, w, err)
		return
	}
	WriteSuccess(w, bloods)
}

// ChallengesStatus serves per-challenge solve counts and blood status.
func (h *Handler) ChallengesStatus(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.engine.ChallengesStatus(r.Context())
	if err != nil {
		WriteError(r, w, err)
		return
	}
	WriteSuccess(w, statuses)
}

// BloodStats serves per-team first blood aggregates.
func (h *Handler) BloodStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.engine.BloodStats(r.Context())
	if err != nil {
		WriteError(r, w, err)
		return
	}
	WriteSuccess(w, stats)
}

// ChallengeSolves serves every solve of one challenge, looked up by
// name. Unknown names yield 404.
func (h *Handler) ChallengeSolves(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	solves, err := h.engine.ChallengeSolves(r.Context(), name)
	if err != nil {
		WriteError(r, w, err)
		return
	}
	WriteSuccess(w, solves)
}

// ResetCache invalidates all in-memory state: entity caches, the
// session credential, and the broadcaster snapshot. The next poll
// rebuilds silently, exactly like a fresh start.
func (h *Handler) ResetCache(w http.ResponseWriter, r *http.Request) {
	h.engine.Directory().Reset()
	h.broadcaster.Reset()

	logging.Ctx(r.Context()).Info().Msg("cache reset requested")
	WriteSuccess(w, map[string]string{"message": "cache reset"})
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Debug reports internal service state: connection counts, broadcaster
// phase, and cache population. Development aid, not a stable contract.
func (h *Handler) Debug(w http.ResponseWriter, r *http.Request) {
	state, steady := h.broadcaster.State()

	WriteSuccess(w, map[string]interface{}{
		"websocket_clients": h.hub.GetClientCount(),
		"steady":            steady,
		"tracked_solves":    len(state.Solves),
		"first_bloods":      len(state.FirstBloods),
		"teams_cached":      len(h.engine.Directory().Teams(r.Context())),
	})
}

// DebugStructure exposes one raw submissions page and the raw team
// listing so upstream shape quirks can be inspected without curl and
// credentials.
func (h *Handler) DebugStructure(w http.ResponseWriter, r *http.Request) {
	subs, err := h.client.Raw(r.Context(), "/api/v1/submissions?type=correct&per_page=5&page=1")
	if err != nil {
		WriteError(r, w, err)
		return
	}
	teams, err := h.client.Raw(r.Context(), "/api/v1/teams")
	if err != nil {
		// Team-less (user mode) upstreams 404 here; show the error
		// inline rather than failing the whole view.
		WriteSuccess(w, map[string]interface{}{
			"submissions": subs,
			"teams_error": err.Error(),
		})
		return
	}

	WriteSuccess(w, map[string]interface{}{
		"submissions": subs,
		"teams":       teams,
	})
}

// DetailSubmissions proxies a raw page of correct submissions.
func (h *Handler) DetailSubmissions(w http.ResponseWriter, r *http.Request) {
	raw, err := h.client.Raw(r.Context(), "/api/v1/submissions?type=correct&per_page=10&page=1")
	if err != nil {
		WriteError(r, w, err)
		return
	}
	WriteSuccess(w, raw)
}
