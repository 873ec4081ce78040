// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"encoding/json"

	"github.com/randomly-source/guided-surveys/internal/domain"
)

// Repository defines the interface for persisting survey sessions,
// responses, and household profiles. Implementations publish a change-feed
// event after every successful session or response write.
type Repository interface {
	// GetSession retrieves a session by id. Returns (nil, nil) when absent.
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)

	// InsertSession creates a new session row.
	InsertSession(ctx context.Context, session *domain.Session) error

	// UpdateSessionPage sets current_page for a session.
	UpdateSessionPage(ctx context.Context, sessionID string, page int) error

	// UpdateSessionEditMode sets edit_mode for a session.
	UpdateSessionEditMode(ctx context.Context, sessionID string, mode domain.EditMode) error

	// UpdateSessionStatus sets the session lifecycle status.
	UpdateSessionStatus(ctx context.Context, sessionID string, status domain.SessionStatus) error

	// ListResponses retrieves all responses for a session.
	ListResponses(ctx context.Context, sessionID string) ([]*domain.Response, error)

	// UpsertResponse creates or overwrites a response keyed by
	// (session_id, question_id). Last write wins.
	UpsertResponse(ctx context.Context, sessionID, questionID string, value json.RawMessage) error

	// DeleteResponse removes a response row.
	DeleteResponse(ctx context.Context, sessionID, questionID string) error

	// ListHouseholdEntries retrieves the household profile.
	ListHouseholdEntries(ctx context.Context, householdID string) ([]*domain.HouseholdEntry, error)

	// UpsertHouseholdEntries bulk-writes household rows keyed by
	// (household_id, question_id), overwriting prior values.
	UpsertHouseholdEntries(ctx context.Context, entries []*domain.HouseholdEntry) error

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
