// Bloodhound - CTF First Blood Tracker and Live Scoreboard
// Copyright 2026 Samurai CTF Team
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/samuraictf/bloodhound

package ctfd

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/samuraictf/bloodhound/internal/logging"
	"github.com/samuraictf/bloodhound/internal/metrics"
	"github.com/samuraictf/bloodhound/internal/models"
)

// CircuitBreakerClient wraps a Client so a misbehaving upstream trips
// the circuit instead of having every poll cycle grind through
// timeouts. The breaker uses real time for its interval and timeout
// windows; unit tests exercise the wrapped client directly.
type CircuitBreakerClient struct {
	client ClientInterface
	cb     *gobreaker.CircuitBreaker[interface{}]
}

var _ ClientInterface = (*CircuitBreakerClient)(nil)

// NewCircuitBreakerClient wraps client with a breaker that opens at a
// 60% failure rate over at least 10 requests, resets its counts every
// minute, and probes again after 2 minutes open.
func NewCircuitBreakerClient(client ClientInterface) *CircuitBreakerClient {
	metrics.CircuitBreakerState.Set(0)

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        "ctfd-api",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			if failureRatio >= 0.6 {
				logging.Warn().
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Msg("circuit breaker opening")
				return true
			}
			return false
		},
		OnStateChange: func(_ string, from, to gobreaker.State) {
			logging.Info().
				Str("from", stateToString(from)).
				Str("to", stateToString(to)).
				Msg("circuit breaker state transition")
			metrics.CircuitBreakerState.Set(stateToFloat(to))
		},
	})

	return &CircuitBreakerClient{client: client, cb: cb}
}

func (cbc *CircuitBreakerClient) execute(fn func() (interface{}, error)) (interface{}, error) {
	return cbc.cb.Execute(fn)
}

// castResult type-casts the breaker result with error checking.
func castResult[T any](result interface{}, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Teams lists teams with circuit breaker protection.
func (cbc *CircuitBreakerClient) Teams(ctx context.Context) ([]models.ActorRef, error) {
	return castResult[[]models.ActorRef](cbc.execute(func() (interface{}, error) {
		return cbc.client.Teams(ctx)
	}))
}

// Users lists users with circuit breaker protection.
func (cbc *CircuitBreakerClient) Users(ctx context.Context) ([]models.ActorRef, error) {
	return castResult[[]models.ActorRef](cbc.execute(func() (interface{}, error) {
		return cbc.client.Users(ctx)
	}))
}

// Scoreboard fetches standings with circuit breaker protection.
func (cbc *CircuitBreakerClient) Scoreboard(ctx context.Context) ([]models.Standing, error) {
	return castResult[[]models.Standing](cbc.execute(func() (interface{}, error) {
		return cbc.client.Scoreboard(ctx)
	}))
}

// Challenges lists challenges with circuit breaker protection.
func (cbc *CircuitBreakerClient) Challenges(ctx context.Context) ([]models.Challenge, error) {
	return castResult[[]models.Challenge](cbc.execute(func() (interface{}, error) {
		return cbc.client.Challenges(ctx)
	}))
}

// Submissions fetches one submission page with circuit breaker
// protection.
func (cbc *CircuitBreakerClient) Submissions(ctx context.Context, page, perPage int) ([]models.Submission, error) {
	return castResult[[]models.Submission](cbc.execute(func() (interface{}, error) {
		return cbc.client.Submissions(ctx, page, perPage)
	}))
}

// Raw fetches an arbitrary path with circuit breaker protection.
func (cbc *CircuitBreakerClient) Raw(ctx context.Context, path string) (json.RawMessage, error) {
	return castResult[json.RawMessage](cbc.execute(func() (interface{}, error) {
		return cbc.client.Raw(ctx, path)
	}))
}

// InvalidateSession forwards to the wrapped client.
func (cbc *CircuitBreakerClient) InvalidateSession() {
	cbc.client.InvalidateSession()
}
