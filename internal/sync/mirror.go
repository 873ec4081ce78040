package sync

import (
	"encoding/json"
	"sync"

	"github.com/randomly-source/guided-surveys/internal/domain"
)

// Mirror is the authoritative in-memory copy of (session, responses) for
// one session id. Feed delivery, poll ticks, and the initial load all pass
// through Apply; the UI layer reads snapshots and listens on Renders.
//
// A SessionChanged carrying status=completed is accepted like any other
// change. Refusing to originate further mutations on a completed session
// is the mutation facade's job, not the mirror's.
type Mirror struct {
	mu        sync.Mutex
	session   *domain.Session
	responses map[string]json.RawMessage
	overrides map[string]json.RawMessage

	renders chan struct{}
}

// NewMirror creates an empty mirror.
func NewMirror() *Mirror {
	return &Mirror{
		responses: make(map[string]json.RawMessage),
		overrides: make(map[string]json.RawMessage),
		renders:   make(chan struct{}, 1),
	}
}

// Renders signals after every successful Apply. The channel has capacity
// one, so events landing between reads coalesce into a single signal.
func (m *Mirror) Renders() <-chan struct{} {
	return m.renders
}

// Apply folds one event into the mirror. Events for the same response key
// resolve by arrival order: last write wins.
func (m *Mirror) Apply(event Event) {
	m.mu.Lock()
	switch e := event.(type) {
	case InitialLoad:
		m.session = cloneSession(e.Session)
		m.responses = make(map[string]json.RawMessage, len(e.Responses))
		for _, r := range e.Responses {
			m.responses[r.QuestionID] = r.Value
		}
	case SessionChanged:
		m.session = cloneSession(e.Session)
	case ResponseUpsert:
		m.responses[e.QuestionID] = e.Value
		// A confirmed write supersedes any optimistic local value.
		delete(m.overrides, e.QuestionID)
	case ResponseDeleted:
		delete(m.responses, e.QuestionID)
		delete(m.overrides, e.QuestionID)
	}
	m.mu.Unlock()

	m.signal()
}

// SetLocalOverride layers an optimistic UI value on top of the confirmed
// mirror. It is cleared when the store echoes the write back.
func (m *Mirror) SetLocalOverride(questionID string, value json.RawMessage) {
	m.mu.Lock()
	m.overrides[questionID] = value
	m.mu.Unlock()

	m.signal()
}

// Session returns a copy of the current session, or nil before the initial
// load lands.
func (m *Mirror) Session() *domain.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneSession(m.session)
}

// Read returns the current session and the response map with local
// overrides applied. Both are copies.
func (m *Mirror) Read() (*domain.Session, map[string]json.RawMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()

	responses := make(map[string]json.RawMessage, len(m.responses))
	for k, v := range m.responses {
		responses[k] = v
	}
	for k, v := range m.overrides {
		responses[k] = v
	}
	return cloneSession(m.session), responses
}

// HasResponse reports whether the confirmed mirror holds any value for the
// question id, including explicit empty values. Overrides do not count.
func (m *Mirror) HasResponse(questionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.responses[questionID]
	return ok
}

func (m *Mirror) signal() {
	select {
	case m.renders <- struct{}{}:
	default:
	}
}

func cloneSession(s *domain.Session) *domain.Session {
	if s == nil {
		return nil
	}
	copied := *s
	return &copied
}
