// Bloodhound - CTF First Blood Tracker and Live Scoreboard
// Copyright 2026 Samurai CTF Team
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/samuraictf/bloodhound

// Package broadcast runs the polling loop that drives the first-blood
// engine and pushes diffs to subscribers.
//
// The broadcaster is a two-state machine. While bootstrapping, the
// first successful poll only seeds the snapshot; emitting events for
// solves that happened before the service started would flood every
// viewer with stale celebrations. Once steady, each poll diffs the
// fresh solve set against the snapshot by submission id and publishes
// updates only for genuinely new solves.
package broadcast

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samuraictf/bloodhound/internal/firstblood"
	"github.com/samuraictf/bloodhound/internal/logging"
	"github.com/samuraictf/bloodhound/internal/metrics"
	"github.com/samuraictf/bloodhound/internal/models"
	"github.com/samuraictf/bloodhound/internal/websocket"
)

// Publisher is the push channel the broadcaster emits events on.
// Satisfied by *websocket.Hub.
type Publisher interface {
	BroadcastJSON(messageType string, data interface{})
}

// State is the last published view of the competition, served as
// initialData to newly connected clients.
type State struct {
	Solves      []models.EnhancedSolve `json:"solves"`
	FirstBloods []models.FirstBlood    `json:"firstBloods"`
	Scoreboard  []models.Standing      `json:"scoreboard"`
}

// UpdateData is the payload of a dataUpdate event.
type UpdateData struct {
	NewSolves   []models.EnhancedSolve `json:"newSolves"`
	Solves      []models.EnhancedSolve `json:"solves"`
	FirstBloods []models.FirstBlood    `json:"firstBloods"`
	Scoreboard  []models.Standing      `json:"scoreboard"`
}

// ErrorData is the payload of an error event. The message is generic:
// upstream details go to the log, not to every connected browser.
type ErrorData struct {
	Message string `json:"message"`
}

// Broadcaster polls the engine on a fixed interval and publishes
// updates to the hub.
type Broadcaster struct {
	engine   *firstblood.Engine
	pub      Publisher
	interval time.Duration

	mu       sync.RWMutex
	steady   bool
	snapshot map[int]struct{}
	state    State

	inFlight atomic.Bool
}

// NewBroadcaster creates a broadcaster polling at the given interval.
func NewBroadcaster(engine *firstblood.Engine, pub Publisher, interval time.Duration) *Broadcaster {
	return &Broadcaster{
		engine:   engine,
		pub:      pub,
		interval: interval,
		snapshot: make(map[int]struct{}),
	}
}

// String identifies the broadcaster to the supervisor.
func (b *Broadcaster) String() string { return "update-broadcaster" }

// Serve runs the polling loop until the context is canceled. It polls
// once immediately so a freshly started service has data before the
// first tick.
func (b *Broadcaster) Serve(ctx context.Context) error {
	logging.Info().Dur("interval", b.interval).Msg("update broadcaster started")

	b.Poll(ctx)

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info().Str("component", "update-broadcaster").Msg("update broadcaster stopped")
			return ctx.Err()
		case <-ticker.C:
			b.Poll(ctx)
		}
	}
}

// Poll executes one polling cycle. Overlapping calls coalesce: if a
// previous cycle is still in flight the tick is skipped, so a slow
// upstream cannot pile up concurrent polls. A failing cycle is logged
// and reported as an error event; it never stops future polling.
func (b *Broadcaster) Poll(ctx context.Context) {
	if !b.inFlight.CompareAndSwap(false, true) {
		metrics.PollCycles.WithLabelValues("skipped").Inc()
		logging.Warn().Msg("previous poll still in flight, skipping tick")
		return
	}
	defer b.inFlight.Store(false)

	start := time.Now()
	if err := b.pollOnce(ctx); err != nil {
		metrics.PollCycles.WithLabelValues("error").Inc()
		logging.Err(err).Msg("poll cycle failed")
		b.pub.BroadcastJSON(websocket.MessageTypeError, ErrorData{
			Message: "failed to refresh competition data",
		})
		return
	}
	metrics.PollCycles.WithLabelValues("success").Inc()
	metrics.PollDuration.Observe(time.Since(start).Seconds())
}

func (b *Broadcaster) pollOnce(ctx context.Context) error {
	solves, err := b.engine.EnhancedSolves(ctx)
	if err != nil {
		return err
	}
	scoreboard, err := b.engine.Scoreboard(ctx)
	if err != nil {
		return err
	}

	firstBloods := firstblood.ComputeFirstBloods(solves)

	current := make(map[int]struct{}, len(solves))
	for i := range solves {
		current[solves[i].ID] = struct{}{}
	}

	b.mu.Lock()
	wasSteady := b.steady
	var newSolves []models.EnhancedSolve
	if wasSteady {
		for i := range solves {
			if _, seen := b.snapshot[solves[i].ID]; !seen {
				newSolves = append(newSolves, solves[i])
			}
		}
	}
	b.snapshot = current
	b.steady = true
	b.state = State{Solves: solves, FirstBloods: firstBloods, Scoreboard: scoreboard}
	b.mu.Unlock()

	metrics.TrackedSolves.Set(float64(len(solves)))

	if !wasSteady {
		logging.Info().Int("solves", len(solves)).Int("first_bloods", len(firstBloods)).
			Msg("bootstrap snapshot stored, steady state entered")
		return nil
	}
	if len(newSolves) == 0 {
		return nil
	}

	metrics.NewSolves.Add(float64(len(newSolves)))
	logging.Info().Int("new_solves", len(newSolves)).Msg("publishing data update")

	b.pub.BroadcastJSON(websocket.MessageTypeDataUpdate, UpdateData{
		NewSolves:   newSolves,
		Solves:      solves,
		FirstBloods: firstBloods,
		Scoreboard:  scoreboard,
	})

	if newBloods := newFirstBloods(newSolves, firstBloods); len(newBloods) > 0 {
		metrics.NewFirstBloods.Add(float64(len(newBloods)))
		logging.Info().Int("count", len(newBloods)).Msg("publishing new first bloods")
		b.pub.BroadcastJSON(websocket.MessageTypeNewFirstBloods, newBloods)
	}

	return nil
}

// newFirstBloods returns the first bloods whose winning solve is among
// the newly observed solves, i.e. bloods drawn this cycle.
func newFirstBloods(newSolves []models.EnhancedSolve, bloods []models.FirstBlood) []models.FirstBlood {
	newIDs := make(map[int]struct{}, len(newSolves))
	for i := range newSolves {
		newIDs[newSolves[i].ID] = struct{}{}
	}

	var fresh []models.FirstBlood
	for _, fb := range bloods {
		if _, ok := newIDs[fb.RawSolve.ID]; ok {
			fresh = append(fresh, fb)
		}
	}
	return fresh
}

// State returns the last published view for initialData delivery.
// Returns ok=false while still bootstrapping.
func (b *Broadcaster) State() (State, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state, b.steady
}

// Reset drops the snapshot and returns the broadcaster to the
// bootstrapping state, used together with a cache reset so the next
// poll rebuilds everything silently.
func (b *Broadcaster) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.steady = false
	b.snapshot = make(map[int]struct{})
	b.state = State{}
}
