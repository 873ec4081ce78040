package sync

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/randomly-source/guided-surveys/internal/domain"
	"github.com/randomly-source/guided-surveys/internal/store"
)

// MergeStore is what the merge engine needs from the backing store.
type MergeStore interface {
	ListHouseholdEntries(ctx context.Context, householdID string) ([]*domain.HouseholdEntry, error)
	UpsertResponse(ctx context.Context, sessionID, questionID string, value json.RawMessage) error
}

// Merger fills household profile answers into a freshly loaded session.
// Session data always wins: only question ids with no session answer at all
// are filled. An existing-but-empty value counts as an answer.
type Merger struct {
	store  MergeStore
	mirror *Mirror

	wg sync.WaitGroup
}

// NewMerger creates a merge engine writing into the given mirror.
func NewMerger(st MergeStore, mirror *Mirror) *Merger {
	return &Merger{store: st, mirror: mirror}
}

// Merge runs once per session load, after the initial responses are in the
// mirror. Absent answers are filled into the mirror synchronously; each
// fill is then written back to the session's own response store by a
// detached goroutine so the value becomes durably part of the session.
// Write-back failures are logged and never block or roll back the in-memory
// fill or each other.
func (m *Merger) Merge(ctx context.Context, session *domain.Session) {
	if session == nil || !session.HasHousehold() {
		return
	}

	entries, err := m.store.ListHouseholdEntries(ctx, session.HouseholdID)
	if err != nil {
		slog.Error("Household profile load failed",
			"session_id", session.ID,
			"household_id", session.HouseholdID,
			"error", err)
		return
	}
	if len(entries) == 0 {
		return
	}

	filled := 0
	for _, entry := range entries {
		if m.mirror.HasResponse(entry.QuestionID) {
			continue
		}
		m.mirror.Apply(ResponseUpsert{QuestionID: entry.QuestionID, Value: entry.Value})
		filled++

		m.wg.Add(1)
		go m.fillBack(ctx, session.ID, entry.QuestionID, entry.Value)
	}

	if filled > 0 {
		slog.Info("Household defaults merged",
			"session_id", session.ID,
			"household_id", session.HouseholdID,
			"filled", filled)
	}
}

// Wait blocks until all in-flight fill-back writes have finished. Only
// tests and shutdown logging join on this; the merge itself never does.
func (m *Merger) Wait() {
	m.wg.Wait()
}

func (m *Merger) fillBack(ctx context.Context, sessionID, questionID string, value json.RawMessage) {
	defer m.wg.Done()

	if err := upsertResponseWithRetry(ctx, m.store, sessionID, questionID, value); err != nil {
		slog.Warn("Household fill-back write failed",
			"session_id", sessionID,
			"question_id", questionID,
			"error", err)
	}
}

// upsertResponseWithRetry retries SQLite lock contention with a short
// exponential backoff before giving up.
func upsertResponseWithRetry(ctx context.Context, st MergeStore, sessionID, questionID string, value json.RawMessage) error {
	maxRetries := 3
	baseDelay := 50 * time.Millisecond

	var err error
	for i := 0; i < maxRetries; i++ {
		err = st.UpsertResponse(ctx, sessionID, questionID, value)
		if err == nil {
			return nil
		}
		if !store.IsBusy(err) || i == maxRetries-1 {
			return err
		}

		delay := baseDelay * time.Duration(1<<i)
		slog.Debug("Fill-back hit lock contention, retrying",
			"session_id", sessionID,
			"question_id", questionID,
			"attempt", i+1,
			"delay", delay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
