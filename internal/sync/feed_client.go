package sync

import (
	"log/slog"
	"sync"

	"github.com/randomly-source/guided-surveys/internal/feed"
)

// SubscribeStatus reports the outcome of establishing or tearing down a
// change-feed subscription.
type SubscribeStatus string

const (
	StatusSubscribed   SubscribeStatus = "subscribed"
	StatusChannelError SubscribeStatus = "channel_error"
	StatusTimedOut     SubscribeStatus = "timed_out"
	StatusClosed       SubscribeStatus = "closed"
)

// StatusFunc observes subscription status transitions. channel_error and
// timed_out are informational: the polling fallback is the correctness
// backstop, so the client never tears down the mirror on them.
type StatusFunc func(status SubscribeStatus)

// FeedClient subscribes to the change feed for one session id and
// translates each delivered change into a mirror event. Filtering happens
// client-side against the event payload's own session id; server-side id
// filters are not relied upon. The client holds no retry or backoff logic:
// it delivers what the transport gives it, translated, at most once per
// event.
type FeedClient struct {
	sessionID string
	hub       *feed.Hub
	mirror    *Mirror
	onStatus  StatusFunc

	mu      sync.Mutex
	sub     *feed.Subscription
	done    chan struct{}
	closing bool
}

// NewFeedClient creates a client for the given session id. onStatus may be
// nil.
func NewFeedClient(sessionID string, hub *feed.Hub, mirror *Mirror, onStatus StatusFunc) *FeedClient {
	return &FeedClient{
		sessionID: sessionID,
		hub:       hub,
		mirror:    mirror,
		onStatus:  onStatus,
	}
}

// Subscribe registers for session-table INSERT/UPDATE events and all
// response-table events, then starts the delivery loop.
func (c *FeedClient) Subscribe() {
	c.mu.Lock()
	if c.sub != nil {
		c.mu.Unlock()
		return
	}
	c.sub = c.hub.Subscribe()
	c.done = make(chan struct{})
	c.closing = false
	events := c.sub.Events()
	done := c.done
	c.mu.Unlock()

	c.report(StatusSubscribed)

	go func() {
		defer close(done)
		for change := range events {
			c.deliver(change)
		}
		c.mu.Lock()
		intentional := c.closing
		c.mu.Unlock()
		if intentional {
			c.report(StatusClosed)
		} else {
			// The transport dropped us. Non-fatal: polling covers the gap.
			slog.Warn("Change feed channel closed unexpectedly", "session_id", c.sessionID)
			c.report(StatusChannelError)
		}
	}()
}

// Unsubscribe stops delivery. Idempotent; safe on every exit path.
func (c *FeedClient) Unsubscribe() {
	c.mu.Lock()
	sub := c.sub
	done := c.done
	c.sub = nil
	c.closing = true
	c.mu.Unlock()

	if sub == nil {
		return
	}
	c.hub.Unsubscribe(sub)
	<-done
}

func (c *FeedClient) deliver(change feed.Change) {
	if change.SessionID() != c.sessionID {
		return
	}

	switch change.Table {
	case feed.TableSessions:
		if change.Type == feed.EventDelete || change.Session == nil {
			return
		}
		c.mirror.Apply(SessionChanged{Session: change.Session})
	case feed.TableResponses:
		switch change.Type {
		case feed.EventInsert, feed.EventUpdate:
			if change.Response == nil {
				return
			}
			c.mirror.Apply(ResponseUpsert{
				QuestionID: change.Response.QuestionID,
				Value:      change.Response.Value,
			})
		case feed.EventDelete:
			if change.OldResponse == nil {
				return
			}
			c.mirror.Apply(ResponseDeleted{QuestionID: change.OldResponse.QuestionID})
		}
	}
}

func (c *FeedClient) report(status SubscribeStatus) {
	if c.onStatus != nil {
		c.onStatus(status)
	}
}
