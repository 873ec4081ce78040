package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/randomly-source/guided-surveys/internal/domain"
	"github.com/randomly-source/guided-surveys/internal/schema"
	"github.com/randomly-source/guided-surveys/internal/survey"
)

// RegisterRoutes mounts the session API.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/schema", h.handleSchema)
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", h.handleCreateSession)
			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", h.handleGetSession)
				r.Patch("/page", h.handleUpdatePage)
				r.Patch("/edit-mode", h.handleUpdateEditMode)
				r.Put("/responses/{questionID}", h.handleUpsertResponse)
				r.Post("/submit", h.handleSubmit)
			})
		})
	})
}

func (h *Handler) handleSchema(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]interface{}{
		"pages":      schema.Pages,
		"page_count": schema.PageCount(),
	})
}

type createSessionRequest struct {
	HouseholdID string `json:"household_id,omitempty"`
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sessionID := uuid.NewString()
	var result survey.CreateResult
	if req.HouseholdID != "" {
		result = h.actions.CreateSessionWithHousehold(r.Context(), sessionID, req.HouseholdID)
	} else {
		result = h.actions.CreateSession(r.Context(), sessionID)
	}

	switch {
	case result.OK:
		JSON(w, http.StatusCreated, result)
	case result.Retryable:
		JSON(w, http.StatusServiceUnavailable, result)
	default:
		JSON(w, http.StatusBadRequest, result)
	}
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	session, err := h.repo.GetSession(r.Context(), sessionID)
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	if session == nil {
		Error(w, http.StatusNotFound, "session not found")
		return
	}

	responses, err := h.repo.ListResponses(r.Context(), sessionID)
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to load responses")
		return
	}

	answers := make(map[string]json.RawMessage, len(responses))
	for _, resp := range responses {
		answers[resp.QuestionID] = resp.Value
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"session":   session,
		"responses": answers,
	})
}

type updatePageRequest struct {
	Page int `json:"page"`
}

func (h *Handler) handleUpdatePage(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req updatePageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// Page bounds are the caller's responsibility; the facade performs no
	// clamping of its own.
	page := schema.ClampPage(req.Page)

	if err := h.actions.UpdateSessionPage(r.Context(), sessionID, page); err != nil {
		h.writeActionError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]int{"page": page})
}

type updateEditModeRequest struct {
	EditMode domain.EditMode `json:"edit_mode"`
}

func (h *Handler) handleUpdateEditMode(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req updateEditModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.actions.UpdateSessionEditMode(r.Context(), sessionID, req.EditMode); err != nil {
		h.writeActionError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]domain.EditMode{"edit_mode": req.EditMode})
}

func (h *Handler) handleUpsertResponse(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	questionID := chi.URLParam(r, "questionID")

	value, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		Error(w, http.StatusBadRequest, "failed to read value")
		return
	}
	if !json.Valid(value) {
		Error(w, http.StatusBadRequest, "value must be valid JSON")
		return
	}

	if err := h.actions.UpsertResponse(r.Context(), sessionID, questionID, value); err != nil {
		h.writeActionError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]string{"question_id": questionID})
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	session, err := h.repo.GetSession(r.Context(), sessionID)
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	if session == nil {
		Error(w, http.StatusNotFound, "session not found")
		return
	}
	if !session.HasHousehold() {
		Error(w, http.StatusBadRequest, "session has no linked household")
		return
	}

	if err := h.submitter.SubmitToHousehold(r.Context(), sessionID, session.HouseholdID); err != nil {
		if errors.Is(err, survey.ErrNoResponses) {
			Error(w, http.StatusBadRequest, err.Error())
			return
		}
		// A step failed partway through; the caller may safely retry the
		// whole submission.
		Error(w, http.StatusBadGateway, err.Error())
		return
	}

	JSON(w, http.StatusOK, map[string]string{"status": string(domain.StatusCompleted)})
}

func (h *Handler) writeActionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, survey.ErrSessionNotFound):
		Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, survey.ErrSessionCompleted):
		Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, survey.ErrInvalidEditMode):
		Error(w, http.StatusBadRequest, err.Error())
	default:
		Error(w, http.StatusInternalServerError, err.Error())
	}
}
