// Bloodhound - CTF First Blood Tracker and Live Scoreboard
// Copyright 2026 Samurai CTF Team
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/samuraictf/bloodhound

package api

import (
	"net/http"

	gorilla "github.com/gorilla/websocket"

	"github.com/samuraictf/bloodhound/internal/logging"
	"github.com/samuraictf/bloodhound/internal/websocket"
)

// upgrader accepts any origin: the scoreboard is meant to be embedded
// on projector screens and CTF infra pages, and the API carries no
// mutating operations over the socket.
var upgrader = gorilla.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// ServeWS upgrades the connection, registers the client with the hub,
// and delivers the current state as initialData. Clients connecting
// before the first poll completes get their first view from the next
// dataUpdate instead.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Ctx(r.Context()).Err(err).Msg("websocket upgrade failed")
		return
	}

	client := websocket.NewClient(h.hub, conn)
	h.hub.Register <- client
	client.Start()

	if state, ok := h.broadcaster.State(); ok {
		client.Enqueue(websocket.Message{
			Type: websocket.MessageTypeInitialData,
			Data: state,
		})
	}
}
