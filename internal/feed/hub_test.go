package feed

import (
	"testing"
	"time"

	"github.com/randomly-source/guided-surveys/internal/domain"
)

func TestHub_PublishDeliversToSubscriber(t *testing.T) {
	hub := NewHub(4)
	sub := hub.Subscribe()
	defer hub.Unsubscribe(sub)

	change := Change{
		Table:   TableSessions,
		Type:    EventUpdate,
		Session: &domain.Session{ID: "s-1", CurrentPage: 2},
	}
	hub.Publish(change)

	select {
	case got := <-sub.Events():
		if got.SessionID() != "s-1" {
			t.Errorf("Expected session id s-1, got %q", got.SessionID())
		}
		if got.Type != EventUpdate {
			t.Errorf("Expected UPDATE event, got %s", got.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for change delivery")
	}
}

func TestHub_UnsubscribeClosesChannel(t *testing.T) {
	hub := NewHub(4)
	sub := hub.Subscribe()

	hub.Unsubscribe(sub)

	if _, ok := <-sub.Events(); ok {
		t.Error("Expected closed channel after unsubscribe")
	}
	if hub.SubscriberCount() != 0 {
		t.Errorf("Expected 0 subscribers, got %d", hub.SubscriberCount())
	}
}

func TestHub_UnsubscribeIdempotent(t *testing.T) {
	hub := NewHub(4)
	sub := hub.Subscribe()

	hub.Unsubscribe(sub)
	hub.Unsubscribe(sub)
	hub.Unsubscribe(nil)
}

func TestHub_PublishNeverBlocksOnSaturatedSubscriber(t *testing.T) {
	hub := NewHub(1)
	sub := hub.Subscribe()
	defer hub.Unsubscribe(sub)

	// Fill the buffer, then publish more. The extra events are dropped;
	// the call must return promptly either way.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			hub.Publish(Change{Table: TableResponses, Type: EventInsert,
				Response: &domain.Response{SessionID: "s-1", QuestionID: "q"}})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a saturated subscriber")
	}
}

func TestChange_SessionID(t *testing.T) {
	tests := []struct {
		name   string
		change Change
		want   string
	}{
		{"session payload", Change{Session: &domain.Session{ID: "a"}}, "a"},
		{"response payload", Change{Response: &domain.Response{SessionID: "b"}}, "b"},
		{"old response payload", Change{OldResponse: &domain.Response{SessionID: "c"}}, "c"},
		{"empty payload", Change{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.change.SessionID(); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}
