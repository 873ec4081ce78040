package sync

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/randomly-source/guided-surveys/internal/domain"
)

type fakeMergeStore struct {
	mu         sync.Mutex
	entries    []*domain.HouseholdEntry
	listErr    error
	upsertErr  error
	upserts    map[string]json.RawMessage
	upsertKeys []string
}

func newFakeMergeStore(entries []*domain.HouseholdEntry) *fakeMergeStore {
	return &fakeMergeStore{
		entries: entries,
		upserts: make(map[string]json.RawMessage),
	}
}

func (f *fakeMergeStore) ListHouseholdEntries(_ context.Context, _ string) ([]*domain.HouseholdEntry, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.entries, nil
}

func (f *fakeMergeStore) UpsertResponse(_ context.Context, _, questionID string, value json.RawMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserts[questionID] = value
	f.upsertKeys = append(f.upsertKeys, questionID)
	return nil
}

func entry(questionID, value string) *domain.HouseholdEntry {
	return &domain.HouseholdEntry{HouseholdID: "h-1", QuestionID: questionID, Value: raw(value)}
}

func TestMerger_FillsOnlyAbsentQuestions(t *testing.T) {
	mirror := NewMirror()
	mirror.Apply(InitialLoad{
		Session: &domain.Session{ID: "s-1", HouseholdID: "h-1"},
		Responses: []*domain.Response{
			{QuestionID: "email", Value: raw(`"session@example.com"`)},
			{QuestionID: "phone", Value: raw(`""`)}, // explicit empty answer
		},
	})

	st := newFakeMergeStore([]*domain.HouseholdEntry{
		entry("full_name", `"Jane"`),
		entry("email", `"household@example.com"`),
		entry("phone", `"555-0100"`),
	})
	m := NewMerger(st, mirror)

	m.Merge(context.Background(), &domain.Session{ID: "s-1", HouseholdID: "h-1"})
	m.Wait()

	_, responses := mirror.Read()
	if string(responses["full_name"]) != `"Jane"` {
		t.Errorf("Expected absent full_name to be filled, got %s", responses["full_name"])
	}
	// Session data always wins over household data.
	if string(responses["email"]) != `"session@example.com"` {
		t.Errorf("Expected session email preserved, got %s", responses["email"])
	}
	// An existing-but-empty value is honored over household data.
	if string(responses["phone"]) != `""` {
		t.Errorf("Expected empty session phone preserved, got %s", responses["phone"])
	}
}

func TestMerger_WritesFillsBackToSessionStore(t *testing.T) {
	mirror := NewMirror()
	mirror.Apply(InitialLoad{Session: &domain.Session{ID: "s-1", HouseholdID: "h-1"}})

	st := newFakeMergeStore([]*domain.HouseholdEntry{
		entry("full_name", `"Jane"`),
		entry("age", `34`),
	})
	m := NewMerger(st, mirror)

	m.Merge(context.Background(), &domain.Session{ID: "s-1", HouseholdID: "h-1"})
	m.Wait()

	st.mu.Lock()
	defer st.mu.Unlock()
	if len(st.upserts) != 2 {
		t.Fatalf("Expected 2 fill-back writes, got %d", len(st.upserts))
	}
	if string(st.upserts["full_name"]) != `"Jane"` {
		t.Errorf("Expected durable full_name write-back, got %s", st.upserts["full_name"])
	}
}

func TestMerger_WriteBackFailureIsNonFatal(t *testing.T) {
	mirror := NewMirror()
	mirror.Apply(InitialLoad{Session: &domain.Session{ID: "s-1", HouseholdID: "h-1"}})

	st := newFakeMergeStore([]*domain.HouseholdEntry{entry("full_name", `"Jane"`)})
	st.upsertErr = errors.New("write failed")
	m := NewMerger(st, mirror)

	m.Merge(context.Background(), &domain.Session{ID: "s-1", HouseholdID: "h-1"})
	m.Wait()

	// The in-memory fill survives the failed durable write.
	_, responses := mirror.Read()
	if string(responses["full_name"]) != `"Jane"` {
		t.Error("In-memory fill must not roll back on write-back failure")
	}
}

func TestMerger_NoHouseholdIsNoop(t *testing.T) {
	mirror := NewMirror()
	st := newFakeMergeStore([]*domain.HouseholdEntry{entry("full_name", `"Jane"`)})
	m := NewMerger(st, mirror)

	m.Merge(context.Background(), &domain.Session{ID: "s-1"})
	m.Merge(context.Background(), nil)
	m.Wait()

	if mirror.HasResponse("full_name") {
		t.Error("Merge must not run for sessions without a household link")
	}
}

func TestMerger_ProfileLoadFailureLeavesMirrorUntouched(t *testing.T) {
	mirror := NewMirror()
	mirror.Apply(InitialLoad{
		Session:   &domain.Session{ID: "s-1", HouseholdID: "h-1"},
		Responses: []*domain.Response{{QuestionID: "email", Value: raw(`"a@b.c"`)}},
	})

	st := newFakeMergeStore(nil)
	st.listErr = errors.New("household store down")
	m := NewMerger(st, mirror)

	m.Merge(context.Background(), &domain.Session{ID: "s-1", HouseholdID: "h-1"})
	m.Wait()

	_, responses := mirror.Read()
	if len(responses) != 1 {
		t.Errorf("Expected mirror unchanged on profile load failure, got %d responses", len(responses))
	}
}
