// Package survey exposes the operations an actor may perform on a session:
// creation, page navigation, edit locking, answer writes, and the final
// submission into the household store. Each operation is a single
// backing-store write; the change feed and polling reflect the result back
// into every live mirror.
package survey

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/randomly-source/guided-surveys/internal/domain"
	"github.com/randomly-source/guided-surveys/internal/store"
)

var (
	// ErrSessionNotFound is returned when the addressed session does not exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionCompleted is returned for page/lock mutations on a session
	// whose status is terminal.
	ErrSessionCompleted = errors.New("session already completed")
	// ErrEmptyHouseholdID rejects a household-linked create with no id.
	ErrEmptyHouseholdID = errors.New("household id must not be empty")
	// ErrInvalidEditMode rejects unknown edit modes before any write.
	ErrInvalidEditMode = errors.New("invalid edit mode")
)

// ActionStore is the write surface the mutation facade needs.
type ActionStore interface {
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)
	InsertSession(ctx context.Context, session *domain.Session) error
	UpdateSessionPage(ctx context.Context, sessionID string, page int) error
	UpdateSessionEditMode(ctx context.Context, sessionID string, mode domain.EditMode) error
	UpsertResponse(ctx context.Context, sessionID, questionID string, value json.RawMessage) error
}

// Actions is the session mutation facade.
type Actions struct {
	store ActionStore
	now   func() time.Time
}

// NewActions creates the facade.
func NewActions(st ActionStore) *Actions {
	return &Actions{store: st, now: time.Now}
}

// CreateResult is the structured outcome of session creation. Write
// failures land here rather than as bare errors so the calling UI can
// render a retry prompt without special-casing exceptions.
type CreateResult struct {
	OK        bool   `json:"ok"`
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

// CreateSession inserts a fresh session at page zero with customer editing
// enabled.
func (a *Actions) CreateSession(ctx context.Context, sessionID string) CreateResult {
	return a.create(ctx, sessionID, "")
}

// CreateSessionWithHousehold inserts a fresh session linked to a household
// profile. The household id is immutable once set.
func (a *Actions) CreateSessionWithHousehold(ctx context.Context, sessionID, householdID string) CreateResult {
	householdID = strings.TrimSpace(householdID)
	if householdID == "" {
		return CreateResult{OK: false, Message: ErrEmptyHouseholdID.Error()}
	}
	return a.create(ctx, sessionID, householdID)
}

func (a *Actions) create(ctx context.Context, sessionID, householdID string) CreateResult {
	now := a.now()
	session := &domain.Session{
		ID:          sessionID,
		CurrentPage: 0,
		EditMode:    domain.EditModeCustomer,
		HouseholdID: householdID,
		Status:      domain.StatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := a.store.InsertSession(ctx, session); err != nil {
		if store.IsUnavailable(err) {
			return CreateResult{
				OK:        false,
				Message:   "The database is currently unavailable. Please try again later.",
				Retryable: true,
			}
		}
		return CreateResult{OK: false, Message: fmt.Sprintf("failed to create session: %v", err)}
	}

	return CreateResult{OK: true, SessionID: sessionID}
}

// UpdateSessionPage sets the session's current page. The facade performs no
// clamping: callers bound the index against the static page count before
// invoking. Refused once the session is completed.
func (a *Actions) UpdateSessionPage(ctx context.Context, sessionID string, page int) error {
	if err := a.requireActive(ctx, sessionID); err != nil {
		return err
	}
	return a.store.UpdateSessionPage(ctx, sessionID, page)
}

// UpdateSessionEditMode sets which actor may currently write answers.
// Refused once the session is completed.
func (a *Actions) UpdateSessionEditMode(ctx context.Context, sessionID string, mode domain.EditMode) error {
	if !mode.Valid() {
		return ErrInvalidEditMode
	}
	if err := a.requireActive(ctx, sessionID); err != nil {
		return err
	}
	return a.store.UpdateSessionEditMode(ctx, sessionID, mode)
}

// UpsertResponse writes one answer keyed by (session_id, question_id).
// Last write wins.
func (a *Actions) UpsertResponse(ctx context.Context, sessionID, questionID string, value json.RawMessage) error {
	if questionID == "" {
		return errors.New("question id must not be empty")
	}
	return a.store.UpsertResponse(ctx, sessionID, questionID, value)
}

func (a *Actions) requireActive(ctx context.Context, sessionID string) error {
	session, err := a.store.GetSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if session == nil {
		return ErrSessionNotFound
	}
	if session.Completed() {
		return ErrSessionCompleted
	}
	return nil
}
