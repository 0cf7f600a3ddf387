// Bloodhound - CTF First Blood Tracker and Live Scoreboard
// Copyright 2026 Samurai CTF Team
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/samuraictf/bloodhound

// Package api exposes the HTTP surface: derived scoreboard views, the
// cache reset operation, mock and diagnostic endpoints, and the
// WebSocket upgrade.
package api

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/samuraictf/bloodhound/internal/ctfd"
	"github.com/samuraictf/bloodhound/internal/logging"
)

// SuccessResponse wraps every successful payload.
type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

// ErrorResponse is the error contract: a stable machine-readable code
// plus a human-readable message.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Error codes returned to clients.
const (
	ErrCodeAuth     = "auth_error"
	ErrCodeNetwork  = "network_error"
	ErrCodeUpstream = "upstream_error"
	ErrCodeNotFound = "not_found"
	ErrCodeInternal = "internal_error"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Err(err).Msg("failed to encode response")
	}
}

// WriteSuccess writes a 200 with the standard success envelope.
func WriteSuccess(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true, Data: data})
}

// WriteError classifies err into the error taxonomy and writes the
// matching status: 404 for unknown named entities, 500 for everything
// else.
func WriteError(r *http.Request, w http.ResponseWriter, err error) {
	code := ErrCodeInternal
	status := http.StatusInternalServerError

	var (
		authErr     *ctfd.AuthError
		netErr      *ctfd.NetworkError
		upstreamErr *ctfd.UpstreamError
		notFoundErr *ctfd.NotFoundError
	)

	switch {
	case errors.As(err, &notFoundErr):
		code = ErrCodeNotFound
		status = http.StatusNotFound
	case errors.As(err, &authErr):
		code = ErrCodeAuth
	case errors.As(err, &netErr):
		code = ErrCodeNetwork
	case errors.As(err, &upstreamErr):
		code = ErrCodeUpstream
	}

	logging.Ctx(r.Context()).Error().Err(err).
		Str("code", code).
		Str("path", r.URL.Path).
		Msg("request failed")

	writeJSON(w, status, ErrorResponse{Error: code, Message: err.Error()})
}
