// Package feed provides row-level change notifications for the backing
// store. The store publishes a Change after every successful write; session
// views subscribe and mirror the changes into their local state.
package feed

import (
	"log/slog"
	"sync"

	"github.com/randomly-source/guided-surveys/internal/domain"
)

// EventType mirrors the store's row-change kinds.
type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// Table names carried on change events.
const (
	TableSessions  = "sessions"
	TableResponses = "responses"
)

// Change is one row-level change notification. Session is set for
// sessions-table events; Response for responses-table inserts/updates;
// OldResponse for responses-table deletes. Subscribers filter by the
// payload's own session id, not by any server-side filter.
type Change struct {
	Table       string
	Type        EventType
	Session     *domain.Session
	Response    *domain.Response
	OldResponse *domain.Response
}

// SessionID returns the session id the change belongs to, or "" when the
// payload carries none.
func (c Change) SessionID() string {
	switch {
	case c.Session != nil:
		return c.Session.ID
	case c.Response != nil:
		return c.Response.SessionID
	case c.OldResponse != nil:
		return c.OldResponse.SessionID
	}
	return ""
}

// Subscription is a handle to a subscriber's event channel.
type Subscription struct {
	id int
	ch chan Change
}

// Events returns the subscriber's delivery channel. It is closed on
// Unsubscribe.
func (s *Subscription) Events() <-chan Change {
	return s.ch
}

// Hub fans row changes out to subscribers. Publish never blocks: a
// subscriber whose buffer is full misses the event, and the polling
// fallback is the documented backstop for missed deliveries.
type Hub struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]*Subscription
	buffer int
}

// NewHub creates a hub whose subscriber channels buffer up to buffer events.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	return &Hub{
		subs:   make(map[int]*Subscription),
		buffer: buffer,
	}
}

// Subscribe registers a new subscriber.
func (h *Hub) Subscribe() *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	sub := &Subscription{id: h.nextID, ch: make(chan Change, h.buffer)}
	h.subs[sub.id] = sub
	return sub
}

// Unsubscribe removes a subscriber and closes its channel. Safe to call
// more than once.
func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[sub.id]; !ok {
		return
	}
	delete(h.subs, sub.id)
	close(sub.ch)
}

// Publish delivers a change to every subscriber without blocking.
func (h *Hub) Publish(c Change) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, sub := range h.subs {
		select {
		case sub.ch <- c:
		default:
			slog.Warn("Change feed subscriber saturated, dropping event",
				"table", c.Table,
				"type", c.Type,
				"session_id", c.SessionID())
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
