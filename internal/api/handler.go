// Package api provides HTTP handlers for the guided-surveys API.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/randomly-source/guided-surveys/internal/store"
	"github.com/randomly-source/guided-surveys/internal/survey"
)

// Handler provides common handler dependencies for the session API.
type Handler struct {
	repo      store.Repository
	actions   *survey.Actions
	submitter *survey.Submitter
}

// NewHandler creates a new Handler.
func NewHandler(repo store.Repository, actions *survey.Actions, submitter *survey.Submitter) *Handler {
	return &Handler{
		repo:      repo,
		actions:   actions,
		submitter: submitter,
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
