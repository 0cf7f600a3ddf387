// Bloodhound - CTF First Blood Tracker and Live Scoreboard
// Copyright 2026 Samurai CTF Team
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/samuraictf/bloodhound

package ctfd

import "fmt"

// AuthError reports a 401/403 from the upstream: the credential is
// invalid, expired, or missing.
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("upstream auth failed (HTTP %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("upstream auth failed (HTTP %d)", e.StatusCode)
}

// NetworkError reports a transport-level failure: timeout, refused
// connection, DNS failure. The request never produced an HTTP status.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("upstream unreachable during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// UpstreamError reports an unexpected upstream response: a non-2xx
// status outside the auth range, or a body that does not match the
// expected envelope.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upstream error (HTTP %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("upstream error: %s", e.Message)
}

// NotFoundError reports a request for a named entity that does not
// exist in the current upstream data.
type NotFoundError struct {
	Kind string
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}
