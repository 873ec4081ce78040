package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/randomly-source/guided-surveys/internal/domain"
	"github.com/randomly-source/guided-surveys/internal/feed"
	"github.com/randomly-source/guided-surveys/internal/schema"
	"github.com/randomly-source/guided-surveys/internal/store"
	"github.com/randomly-source/guided-surveys/internal/survey"
)

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]string{"foo": "bar"}

	JSON(w, http.StatusOK, data)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	var got map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if got["foo"] != "bar" {
		t.Errorf("Expected foo=bar, got %v", got["foo"])
	}
}

func TestError(t *testing.T) {
	w := httptest.NewRecorder()

	Error(w, http.StatusBadRequest, "nope")

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", resp.StatusCode)
	}

	var got map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if got["error"] != "nope" {
		t.Errorf("Expected error=nope, got %v", got)
	}
}

func newTestRouter(t *testing.T) (chi.Router, *store.SQLiteStore) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "surveys.db"), feed.NewHub(8))
	if err != nil {
		t.Fatalf("Failed to open test store: %v", err)
	}
	t.Cleanup(func() {
		if err := st.Close(); err != nil {
			t.Errorf("Failed to close store: %v", err)
		}
	})

	h := NewHandler(st, survey.NewActions(st), survey.NewSubmitter(st))
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r, st
}

func createTestSession(t *testing.T, r chi.Router, body string) string {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/sessions", strings.NewReader(body))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("Create failed with status %d: %s", w.Code, w.Body.String())
	}
	var result survey.CreateResult
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode create result: %v", err)
	}
	if result.SessionID == "" {
		t.Fatal("Expected a minted session id")
	}
	return result.SessionID
}

func TestHandler_CreateSession(t *testing.T) {
	r, st := newTestRouter(t)

	id := createTestSession(t, r, "")

	session, err := st.GetSession(context.Background(), id)
	if err != nil || session == nil {
		t.Fatalf("Expected persisted session, got %v / %v", session, err)
	}
	if session.CurrentPage != 0 || session.EditMode != domain.EditModeCustomer {
		t.Errorf("Unexpected defaults: %+v", session)
	}
}

func TestHandler_CreateSessionWithHousehold(t *testing.T) {
	r, st := newTestRouter(t)

	id := createTestSession(t, r, `{"household_id":"h-42"}`)

	session, err := st.GetSession(context.Background(), id)
	if err != nil || session == nil {
		t.Fatalf("Expected persisted session, got %v / %v", session, err)
	}
	if session.HouseholdID != "h-42" {
		t.Errorf("Expected household link, got %q", session.HouseholdID)
	}
	if session.Status != domain.StatusActive {
		t.Errorf("Expected active status, got %s", session.Status)
	}
}

// The API layer clamps page navigation against the static page count; the
// facade itself never does.
func TestHandler_UpdatePageClampsToPageCount(t *testing.T) {
	r, st := newTestRouter(t)
	id := createTestSession(t, r, "")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/api/sessions/"+id+"/page", strings.NewReader(`{"page": 999}`))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	session, err := st.GetSession(context.Background(), id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	want := schema.PageCount() - 1
	if session.CurrentPage != want {
		t.Errorf("Expected page clamped to %d, got %d", want, session.CurrentPage)
	}
}

func TestHandler_UpsertResponseRejectsInvalidJSON(t *testing.T) {
	r, _ := newTestRouter(t)
	id := createTestSession(t, r, "")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/sessions/"+id+"/responses/full_name", strings.NewReader(`not json`))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid JSON, got %d", w.Code)
	}
}

func TestHandler_SubmitFlow(t *testing.T) {
	r, st := newTestRouter(t)
	id := createTestSession(t, r, `{"household_id":"h-7"}`)

	// Empty answer set is rejected before any household write.
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/sessions/"+id+"/submit", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for empty submission, got %d", w.Code)
	}

	// Answer, then submit.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/api/sessions/"+id+"/responses/full_name",
		bytes.NewReader([]byte(`"Jane"`))))
	if w.Code != http.StatusOK {
		t.Fatalf("Upsert failed: %d %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/sessions/"+id+"/submit", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Submit failed: %d %s", w.Code, w.Body.String())
	}

	entries, err := st.ListHouseholdEntries(context.Background(), "h-7")
	if err != nil {
		t.Fatalf("List household failed: %v", err)
	}
	if len(entries) != 1 || string(entries[0].Value) != `"Jane"` {
		t.Errorf("Expected projected household answer, got %+v", entries)
	}

	session, err := st.GetSession(context.Background(), id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if session.Status != domain.StatusCompleted {
		t.Errorf("Expected completed session, got %s", session.Status)
	}

	// Page navigation is refused after completion.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPatch, "/api/sessions/"+id+"/page", strings.NewReader(`{"page": 1}`)))
	if w.Code != http.StatusConflict {
		t.Errorf("Expected 409 after completion, got %d", w.Code)
	}
}

func TestHandler_SubmitWithoutHouseholdLink(t *testing.T) {
	r, _ := newTestRouter(t)
	id := createTestSession(t, r, "")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/sessions/"+id+"/submit", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for a session without a household link, got %d", w.Code)
	}
}

func TestHandler_GetSessionSnapshot(t *testing.T) {
	r, st := newTestRouter(t)
	id := createTestSession(t, r, "")

	if err := st.UpsertResponse(context.Background(), id, "age", json.RawMessage(`34`)); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sessions/"+id+"/", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var body struct {
		Session   *domain.Session            `json:"session"`
		Responses map[string]json.RawMessage `json:"responses"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if body.Session == nil || body.Session.ID != id {
		t.Errorf("Expected session in snapshot, got %+v", body.Session)
	}
	if string(body.Responses["age"]) != `34` {
		t.Errorf("Expected age answer in snapshot, got %v", body.Responses)
	}
}

func TestHandler_GetMissingSession(t *testing.T) {
	r, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sessions/absent/", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}

func TestHandler_Schema(t *testing.T) {
	r, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/schema", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var body struct {
		PageCount int           `json:"page_count"`
		Pages     []schema.Page `json:"pages"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if body.PageCount != schema.PageCount() || len(body.Pages) != schema.PageCount() {
		t.Errorf("Expected %d pages, got count=%d len=%d", schema.PageCount(), body.PageCount, len(body.Pages))
	}
}

func TestWebSocketHandler_RequiresSessionParameter(t *testing.T) {
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "surveys.db"), nil)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	h := NewWebSocketHandler(st, feed.NewHub(8), 2*time.Second, "", true)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws/session", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without a session parameter, got %d", w.Code)
	}
}
