package domain

import (
	"encoding/json"
	"time"
)

// Response is one answer within a session, keyed by (session_id, question_id).
// Value holds an arbitrary-shaped answer: a scalar, a list, or a nested
// object mirroring the question tree's group/repeatable structure.
type Response struct {
	SessionID  string          `json:"session_id"`
	QuestionID string          `json:"question_id"`
	Value      json.RawMessage `json:"value"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// HouseholdEntry is the durable long-term answer for a household, keyed by
// (household_id, question_id). Written by the submission transactor
// (authoritative bulk write) and by the merge engine's fill-back.
type HouseholdEntry struct {
	HouseholdID string          `json:"household_id"`
	QuestionID  string          `json:"question_id"`
	Value       json.RawMessage `json:"value"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
