// Bloodhound - CTF First Blood Tracker and Live Scoreboard
// Copyright 2026 Samurai CTF Team
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/samuraictf/bloodhound

// Bloodhound polls a CTFd competition API, computes first bloods, and
// pushes live updates to browser scoreboards over WebSocket.
//
// Startup order matters: configuration and logging first, then the
// upstream client stack (raw client wrapped in a circuit breaker), the
// entity directory and engine on top of it, and finally the hub,
// broadcaster, and HTTP server under supervision. Shutdown is driven
// by SIGINT/SIGTERM through a signal-bound context; the supervision
// tree stops its services gracefully in reverse.
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/samuraictf/bloodhound/internal/api"
	"github.com/samuraictf/bloodhound/internal/broadcast"
	"github.com/samuraictf/bloodhound/internal/config"
	"github.com/samuraictf/bloodhound/internal/ctfd"
	"github.com/samuraictf/bloodhound/internal/firstblood"
	"github.com/samuraictf/bloodhound/internal/logging"
	"github.com/samuraictf/bloodhound/internal/supervisor"
	"github.com/samuraictf/bloodhound/internal/supervisor/services"
	"github.com/samuraictf/bloodhound/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})

	logging.Info().
		Str("upstream", cfg.CTFd.URL).
		Str("auth_mode", cfg.CTFd.AuthMode).
		Dur("poll_interval", cfg.Poll.Interval).
		Msg("bloodhound starting")

	client := ctfd.NewCircuitBreakerClient(ctfd.NewClient(&cfg.CTFd))
	directory := firstblood.NewDirectory(client)
	engine := firstblood.NewEngine(client, directory, cfg.CTFd.PageSize)

	hub := websocket.NewHub()
	broadcaster := broadcast.NewBroadcaster(engine, hub, cfg.Poll.Interval)

	handler := api.NewHandler(engine, broadcaster, client, hub)
	router := api.NewRouter(handler, &cfg.Server)

	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	treeCfg := supervisor.DefaultTreeConfig()
	treeCfg.ShutdownTimeout = cfg.Server.ShutdownTimeout
	tree := supervisor.NewTree(logging.NewSlogLogger(), treeCfg)

	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	if cfg.Poll.Enabled {
		tree.AddMessagingService(broadcaster)
	} else {
		logging.Warn().Msg("polling disabled, serving request-driven views only")
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.Info().Str("addr", server.Addr).Msg("serving")

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Fatal().Err(err).Msg("supervisor tree exited")
	}

	logging.Info().Msg("bloodhound stopped")
}
