// Bloodhound - CTF First Blood Tracker and Live Scoreboard
// Copyright 2026 Samurai CTF Team
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/samuraictf/bloodhound

package api

import (
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/samuraictf/bloodhound/internal/config"
	"github.com/samuraictf/bloodhound/internal/logging"
	"github.com/samuraictf/bloodhound/internal/middleware"
)

// NewRouter builds the chi router with the full middleware stack and
// all routes.
func NewRouter(h *Handler, cfg *config.ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Use(httprate.LimitByIP(cfg.RateLimit, time.Minute))
		r.Use(middleware.PrometheusMetrics)

		r.Get("/challenges", h.Challenges)
		r.Get("/teams", h.Teams)
		r.Get("/scoreboard", h.Scoreboard)
		r.Get("/solves", h.Solves)
		r.Get("/firstbloods", h.FirstBloods)
		r.Get("/challenges-status", h.ChallengesStatus)
		r.Get("/blood-stats", h.BloodStats)
		r.Get("/challenge-solves/{name}", h.ChallengeSolves)

		r.Post("/reset-cache", h.ResetCache)

		r.Get("/mock/challenges", h.MockChallenges)
		r.Get("/mock/solves", h.MockSolves)

		r.Get("/debug", h.Debug)
		r.Get("/debug-structure", h.DebugStructure)
		r.Get("/detail-submissions", h.DetailSubmissions)
	})

	r.Get("/ws", h.ServeWS)
	r.Get("/healthz", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	// Serve the scoreboard UI when a static directory is present; the
	// service also runs headless behind an external frontend.
	if cfg.StaticDir != "" {
		if _, err := os.Stat(cfg.StaticDir); err == nil {
			fs := http.FileServer(http.Dir(cfg.StaticDir))
			r.Handle("/*", fs)
			logging.Info().Str("dir", cfg.StaticDir).Msg("serving static scoreboard assets")
		}
	}

	return r
}
