package survey

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/randomly-source/guided-surveys/internal/domain"
)

// ErrNoResponses rejects submission of an empty answer set before any
// household write is issued.
var ErrNoResponses = errors.New("session has no responses to submit")

// SubmitStore is what the submission transactor needs from the backing
// store.
type SubmitStore interface {
	ListResponses(ctx context.Context, sessionID string) ([]*domain.Response, error)
	UpsertHouseholdEntries(ctx context.Context, entries []*domain.HouseholdEntry) error
	UpdateSessionStatus(ctx context.Context, sessionID string, status domain.SessionStatus) error
}

// Submitter projects a session's answers into the household store and
// marks the session complete.
//
// The steps are not atomic: a failure between the household upsert and the
// status update leaves household data written with the session still
// active. There is deliberately no compensation; re-invoking submission is
// safe because the upsert is a no-op on identical values and the status
// update alone then completes.
type Submitter struct {
	store SubmitStore
	now   func() time.Time
}

// NewSubmitter creates a submission transactor.
func NewSubmitter(st SubmitStore) *Submitter {
	return &Submitter{store: st, now: time.Now}
}

// SubmitToHousehold runs the completion transaction. Each step's failure
// aborts the remainder and is returned wrapped with the step that failed.
func (s *Submitter) SubmitToHousehold(ctx context.Context, sessionID, householdID string) error {
	householdID = strings.TrimSpace(householdID)
	if householdID == "" {
		return ErrEmptyHouseholdID
	}

	responses, err := s.store.ListResponses(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load session responses: %w", err)
	}
	if len(responses) == 0 {
		return ErrNoResponses
	}

	now := s.now()
	entries := make([]*domain.HouseholdEntry, 0, len(responses))
	for _, resp := range responses {
		entries = append(entries, &domain.HouseholdEntry{
			HouseholdID: householdID,
			QuestionID:  resp.QuestionID,
			Value:       resp.Value,
			UpdatedAt:   now,
		})
	}

	// Authoritative overwrite: any question the session answered replaces
	// the household's prior answer wholesale.
	if err := s.store.UpsertHouseholdEntries(ctx, entries); err != nil {
		return fmt.Errorf("upsert household profile: %w", err)
	}

	if err := s.store.UpdateSessionStatus(ctx, sessionID, domain.StatusCompleted); err != nil {
		return fmt.Errorf("mark session completed: %w", err)
	}

	slog.Info("Session submitted to household",
		"session_id", sessionID,
		"household_id", householdID,
		"answers", len(entries))
	return nil
}
