// Package domain contains core domain types for the guided-surveys application.
package domain

import (
	"time"
)

// EditMode determines which actor may currently write answers.
type EditMode string

const (
	// EditModeCustomer allows the customer to edit answers.
	EditModeCustomer EditMode = "customer_editable"
	// EditModeAgentOnly locks answer editing to the agent.
	EditModeAgentOnly EditMode = "agent_only"
)

// Valid reports whether the edit mode is one of the known values.
func (m EditMode) Valid() bool {
	return m == EditModeCustomer || m == EditModeAgentOnly
}

// SessionStatus is the lifecycle state of a survey session.
type SessionStatus string

const (
	// StatusActive means the session is open for navigation and answers.
	StatusActive SessionStatus = "active"
	// StatusCompleted is terminal; page and lock mutations are refused once set.
	StatusCompleted SessionStatus = "completed"
)

// Session represents one instance of a customer answering a questionnaire
// under agent control.
type Session struct {
	ID          string        `json:"id"`
	CurrentPage int           `json:"current_page"`
	EditMode    EditMode      `json:"edit_mode"`
	HouseholdID string        `json:"household_id,omitempty"`
	Status      SessionStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// HasHousehold returns true if the session is linked to a household profile.
func (s *Session) HasHousehold() bool {
	return s.HouseholdID != ""
}

// Completed returns true once the session has reached its terminal status.
func (s *Session) Completed() bool {
	return s.Status == StatusCompleted
}

// Equal reports structural equality with another session, ignoring
// timestamps. Used by the polling fallback to suppress no-op refreshes.
func (s *Session) Equal(other *Session) bool {
	if s == nil || other == nil {
		return s == nil && other == nil
	}
	return s.ID == other.ID &&
		s.CurrentPage == other.CurrentPage &&
		s.EditMode == other.EditMode &&
		s.HouseholdID == other.HouseholdID &&
		s.Status == other.Status
}
