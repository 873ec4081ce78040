// Package sync keeps a live in-process mirror of one survey session current
// across three producers: the initial load, the change feed, and the
// polling fallback. The mirror is the single write path; all producers are
// translated into mirror events and folded in arrival order.
package sync

import (
	"encoding/json"

	"github.com/randomly-source/guided-surveys/internal/domain"
)

// Event is one mirror mutation. Exactly one of the concrete types below is
// passed to Mirror.Apply.
type Event interface {
	isEvent()
}

// InitialLoad seeds the mirror with the session row and its responses.
type InitialLoad struct {
	Session   *domain.Session
	Responses []*domain.Response
}

// SessionChanged replaces the session wholesale. Last writer wins by
// arrival order; the backing store is the ordering authority.
type SessionChanged struct {
	Session *domain.Session
}

// ResponseUpsert sets one answer by question id.
type ResponseUpsert struct {
	QuestionID string
	Value      json.RawMessage
}

// ResponseDeleted removes one answer by question id.
type ResponseDeleted struct {
	QuestionID string
}

func (InitialLoad) isEvent()     {}
func (SessionChanged) isEvent()  {}
func (ResponseUpsert) isEvent()  {}
func (ResponseDeleted) isEvent() {}
