package sync

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/randomly-source/guided-surveys/internal/domain"
	"github.com/randomly-source/guided-surveys/internal/feed"
)

// EngineStore is the read/write surface one session engine needs from the
// backing store.
type EngineStore interface {
	SessionGetter
	MergeStore
	ListResponses(ctx context.Context, sessionID string) ([]*domain.Response, error)
}

// Engine wires the mirror, change feed client, polling fallback, and
// household merge together for one session id. Lifecycle: Start performs
// the initial load and household merge, then brings up push delivery and
// polling; Stop tears both down idempotently on every exit path.
type Engine struct {
	sessionID string
	store     EngineStore
	mirror    *Mirror
	client    *FeedClient
	poller    *Poller
	merger    *Merger

	stopOnce sync.Once
}

// NewEngine builds an engine for the session id. pollInterval <= 0 selects
// the default.
func NewEngine(sessionID string, st EngineStore, hub *feed.Hub, pollInterval time.Duration, onStatus StatusFunc) *Engine {
	mirror := NewMirror()
	return &Engine{
		sessionID: sessionID,
		store:     st,
		mirror:    mirror,
		client:    NewFeedClient(sessionID, hub, mirror, onStatus),
		poller:    NewPoller(sessionID, st, mirror, pollInterval),
		merger:    NewMerger(st, mirror),
	}
}

// Mirror exposes the engine's local state store.
func (e *Engine) Mirror() *Mirror {
	return e.mirror
}

// Start loads initial state, merges household defaults, and starts the
// push and polling producers. A failed initial read is logged and leaves
// the mirror empty; the poller recovers the session row on its next tick.
func (e *Engine) Start(ctx context.Context) {
	session, err := e.store.GetSession(ctx, e.sessionID)
	switch {
	case err != nil:
		slog.Error("Initial session load failed", "session_id", e.sessionID, "error", err)
	case session == nil:
		slog.Warn("Session not found on initial load", "session_id", e.sessionID)
	default:
		responses, err := e.store.ListResponses(ctx, e.sessionID)
		if err != nil {
			slog.Error("Initial responses load failed", "session_id", e.sessionID, "error", err)
			responses = nil
		}
		e.mirror.Apply(InitialLoad{Session: session, Responses: responses})

		// Household defaults fill in synchronously before the view first
		// renders; durable write-backs run detached.
		e.merger.Merge(ctx, session)
	}

	e.client.Subscribe()
	e.poller.Start(ctx)
}

// Stop shuts down push delivery and polling, then joins outstanding
// fill-back writes so their failures get logged before teardown. Safe to
// call multiple times and from any exit path.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		e.client.Unsubscribe()
		e.poller.Stop()
		e.merger.Wait()
		slog.Debug("Session engine stopped", "session_id", e.sessionID)
	})
}
