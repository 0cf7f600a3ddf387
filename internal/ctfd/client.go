// Bloodhound - CTF First Blood Tracker and Live Scoreboard
// Copyright 2026 Samurai CTF Team
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/samuraictf/bloodhound

// Package ctfd implements the authenticated HTTP client for the
// upstream CTFd API.
//
// Two mutually exclusive auth modes are supported. Session mode scrapes
// the anti-forgery nonce from the login form, submits credentials, and
// caches the resulting session cookie process-wide; an auth failure on
// a later request invalidates the cookie and retries exactly once with
// a fresh login. Token mode attaches a static Authorization header and
// never retries, since a rejected token means misconfiguration rather
// than expiry.
//
// Failures are classified into AuthError, NetworkError, and
// UpstreamError so callers can choose a recovery strategy per kind.
package ctfd

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/samuraictf/bloodhound/internal/config"
	"github.com/samuraictf/bloodhound/internal/logging"
	"github.com/samuraictf/bloodhound/internal/metrics"
	"github.com/samuraictf/bloodhound/internal/models"
)

// userAgent identifies this service to the upstream on every request.
const userAgent = "Bloodhound/1.0"

// maxErrorBodySize limits how much of an error response body is read
// for diagnostics.
const maxErrorBodySize = 64 * 1024

// nonceRe extracts the anti-forgery nonce from the CTFd login form.
var nonceRe = regexp.MustCompile(`name="nonce"[^>]*value="([^"]+)"`)

// ClientInterface is the upstream API surface consumed by the rest of
// the service. Implemented by Client, by CircuitBreakerClient, and by
// test doubles.
type ClientInterface interface {
	Teams(ctx context.Context) ([]models.ActorRef, error)
	Users(ctx context.Context) ([]models.ActorRef, error)
	Scoreboard(ctx context.Context) ([]models.Standing, error)
	Challenges(ctx context.Context) ([]models.Challenge, error)
	Submissions(ctx context.Context, page, perPage int) ([]models.Submission, error)
	Raw(ctx context.Context, path string) (json.RawMessage, error)
	InvalidateSession()
}

// Envelope is the standard CTFd response wrapper.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Meta    json.RawMessage `json:"meta,omitempty"`
	Message string          `json:"message,omitempty"`
}

// Client talks to a single CTFd deployment.
type Client struct {
	baseURL  string
	authMode string
	username string
	password string
	token    string

	// apiClient follows redirects; loginClient must not, because the
	// login POST answers with a 302 that carries the session cookie.
	apiClient   *http.Client
	loginClient *http.Client

	limiter        *rate.Limiter
	maxRetries     int
	retryBaseDelay time.Duration

	mu      sync.Mutex
	cookies []*http.Cookie
}

var _ ClientInterface = (*Client)(nil)

// NewClient builds a client from the upstream configuration.
func NewClient(cfg *config.CTFdConfig) *Client {
	return &Client{
		baseURL:  strings.TrimRight(cfg.URL, "/"),
		authMode: cfg.AuthMode,
		username: cfg.Username,
		password: cfg.Password,
		token:    cfg.Token,
		apiClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		loginClient: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		limiter:        rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		maxRetries:     5,
		retryBaseDelay: time.Second,
	}
}

// InvalidateSession drops the cached session cookie. The next request
// in session mode performs a fresh login. No-op in token mode.
func (c *Client) InvalidateSession() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cookies = nil
}

// sessionCookies returns a copy of the cached cookies, or nil.
func (c *Client) sessionCookies() []*http.Cookie {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cookies
}

// login acquires a fresh session cookie from the login form.
func (c *Client) login(ctx context.Context) error {
	loginURL := c.baseURL + "/login"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, loginURL, http.NoBody)
	if err != nil {
		return &NetworkError{Op: "login form fetch", Err: err}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.loginClient.Do(req)
	if err != nil {
		return &NetworkError{Op: "login form fetch", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &NetworkError{Op: "login form read", Err: err}
	}

	match := nonceRe.FindSubmatch(body)
	if match == nil {
		return &UpstreamError{StatusCode: resp.StatusCode, Message: "login form carries no nonce"}
	}
	nonce := string(match[1])
	formCookies := resp.Cookies()

	form := url.Values{}
	form.Set("name", c.username)
	form.Set("password", c.password)
	form.Set("_submit", "Submit")
	form.Set("nonce", nonce)

	req, err = http.NewRequestWithContext(ctx, http.MethodPost, loginURL, strings.NewReader(form.Encode()))
	if err != nil {
		return &NetworkError{Op: "login submit", Err: err}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, ck := range formCookies {
		req.AddCookie(ck)
	}

	resp, err = c.loginClient.Do(req)
	if err != nil {
		return &NetworkError{Op: "login submit", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		return &AuthError{StatusCode: resp.StatusCode, Message: "login rejected"}
	}

	// Cookies from the POST response supersede the pre-login ones.
	merged := make(map[string]*http.Cookie, len(formCookies)+4)
	for _, ck := range formCookies {
		merged[ck.Name] = ck
	}
	for _, ck := range resp.Cookies() {
		merged[ck.Name] = ck
	}

	session := false
	cookies := make([]*http.Cookie, 0, len(merged))
	for _, ck := range merged {
		if strings.Contains(strings.ToLower(ck.Name), "session") {
			session = true
		}
		cookies = append(cookies, ck)
	}
	if !session {
		return &AuthError{StatusCode: resp.StatusCode, Message: "login granted no session cookie"}
	}

	c.mu.Lock()
	c.cookies = cookies
	c.mu.Unlock()

	metrics.UpstreamAuthRefreshes.Inc()
	logging.Debug().Str("url", loginURL).Msg("session cookie acquired")
	return nil
}

// get performs an authenticated GET and returns the raw response body.
// In session mode an AuthError triggers one transparent re-login and
// retry; in token mode it propagates immediately.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	body, err := c.getOnce(ctx, path)
	if err == nil {
		return body, nil
	}
	var authErr *AuthError
	if !errors.As(err, &authErr) || c.authMode != config.AuthModeSession {
		return nil, err
	}

	logging.Warn().Str("path", path).Msg("session rejected, re-authenticating")
	c.InvalidateSession()
	return c.getOnce(ctx, path)
}

// getOnce performs a single authenticated GET attempt, retrying only
// on HTTP 429.
func (c *Client) getOnce(ctx context.Context, path string) ([]byte, error) {
	if c.authMode == config.AuthModeSession && c.sessionCookies() == nil {
		if err := c.login(ctx); err != nil {
			return nil, err
		}
	}

	resp, err := c.doWithRateLimit(ctx, path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &AuthError{StatusCode: resp.StatusCode}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		snippet := readBodyForError(resp.Body)
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Message: string(snippet)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Op: "response read", Err: err}
	}
	return body, nil
}

// doWithRateLimit sends the request, backing off exponentially on
// HTTP 429 (1s, 2s, 4s, 8s, 16s) and honoring Retry-After.
func (c *Client) doWithRateLimit(ctx context.Context, path string) (*http.Response, error) {
	endpoint := metricEndpoint(path)

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &NetworkError{Op: "rate limit wait", Err: err}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
		if err != nil {
			return nil, &NetworkError{Op: "request build", Err: err}
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Accept", "application/json")

		if c.authMode == config.AuthModeToken {
			req.Header.Set("Authorization", "Token "+c.token)
		} else {
			for _, ck := range c.sessionCookies() {
				req.AddCookie(ck)
			}
		}

		start := time.Now()
		resp, err := c.apiClient.Do(req)
		if err != nil {
			metrics.RecordUpstreamRequest(endpoint, 0, time.Since(start))
			return nil, &NetworkError{Op: "request", Err: err}
		}
		metrics.RecordUpstreamRequest(endpoint, resp.StatusCode, time.Since(start))

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}
		_ = resp.Body.Close()

		if attempt == c.maxRetries {
			lastErr = &UpstreamError{StatusCode: http.StatusTooManyRequests, Message: "rate limit exceeded after retries"}
			break
		}

		delay := c.retryBaseDelay * time.Duration(1<<uint(attempt))
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if seconds, err := strconv.Atoi(retryAfter); err == nil {
				delay = time.Duration(seconds) * time.Second
			}
		}

		logging.Warn().Str("path", path).Dur("delay", delay).Msg("upstream rate limited, backing off")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, &NetworkError{Op: "backoff wait", Err: ctx.Err()}
		}
	}

	return nil, lastErr
}

// getData fetches a path and decodes the envelope's data field into
// result.
func (c *Client) getData(ctx context.Context, path string, result interface{}) error {
	body, err := c.get(ctx, path)
	if err != nil {
		return err
	}

	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return &UpstreamError{Message: "malformed response envelope: " + err.Error()}
	}
	if !env.Success {
		return &UpstreamError{Message: "upstream reported failure: " + env.Message}
	}
	if err := json.Unmarshal(env.Data, result); err != nil {
		return &UpstreamError{Message: "malformed response data: " + err.Error()}
	}
	return nil
}

// Teams lists competition teams.
func (c *Client) Teams(ctx context.Context) ([]models.ActorRef, error) {
	var teams []models.ActorRef
	if err := c.getData(ctx, "/api/v1/teams", &teams); err != nil {
		return nil, err
	}
	return teams, nil
}

// Users lists competition users, the last-resort name source for
// user-mode competitions.
func (c *Client) Users(ctx context.Context) ([]models.ActorRef, error) {
	var users []models.ActorRef
	if err := c.getData(ctx, "/api/v1/users", &users); err != nil {
		return nil, err
	}
	return users, nil
}

// Scoreboard fetches the current standings.
func (c *Client) Scoreboard(ctx context.Context) ([]models.Standing, error) {
	var standings []models.Standing
	if err := c.getData(ctx, "/api/v1/scoreboard", &standings); err != nil {
		return nil, err
	}
	return standings, nil
}

// Challenges lists all visible challenges.
func (c *Client) Challenges(ctx context.Context) ([]models.Challenge, error) {
	var challenges []models.Challenge
	if err := c.getData(ctx, "/api/v1/challenges", &challenges); err != nil {
		return nil, err
	}
	return challenges, nil
}

// Submissions fetches one page of correct submissions. Pages are
// 1-based, mirroring the upstream API.
func (c *Client) Submissions(ctx context.Context, page, perPage int) ([]models.Submission, error) {
	path := "/api/v1/submissions?type=correct&per_page=" + strconv.Itoa(perPage) + "&page=" + strconv.Itoa(page)
	var subs []models.Submission
	if err := c.getData(ctx, path, &subs); err != nil {
		return nil, err
	}
	return subs, nil
}

// Raw fetches an arbitrary API path and returns the undecoded response
// body. Used by the diagnostic endpoints to expose upstream shapes.
func (c *Client) Raw(ctx context.Context, path string) (json.RawMessage, error) {
	body, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, &UpstreamError{Message: "upstream returned non-JSON body"}
	}
	return json.RawMessage(body), nil
}

// metricEndpoint strips the query string so metrics do not explode in
// cardinality across pagination.
func metricEndpoint(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		return path[:i]
	}
	return path
}

// readBodyForError reads at most maxErrorBodySize bytes for error
// reporting.
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	return body
}
