package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AddRecommendationRequest carries a loosely-shaped candidate the planner
// normalizes at its boundary; Candidate may be a string or an object.
type AddRecommendationRequest struct {
	Kind      string          `json:"kind"`
	Candidate json.RawMessage `json:"candidate"`
}

// AddActivityRequest adds an activity straight to the shared cart.
type AddActivityRequest struct {
	Candidate json.RawMessage `json:"candidate"`
}

// RemoveCartItemRequest identifies a cart item by kind and subject key.
type RemoveCartItemRequest struct {
	Kind       string `json:"kind"`
	SubjectKey string `json:"subject_key"`
}

// UpdateSettingsRequest replaces the cart's trip parameters.
type UpdateSettingsRequest struct {
	TripDays  int `json:"trip_days"`
	PartySize int `json:"party_size"`
}

// AIInteraction is the audit record of one suggestion-provider call.
type AIInteraction struct {
	ID           uuid.UUID `json:"id"`
	GroupID      uuid.UUID `json:"group_id"`
	UserID       uuid.UUID `json:"user_id"`
	Prompt       string    `json:"prompt"`
	ResponseText string    `json:"response_text"`
	ModelUsed    string    `json:"model_used"`
	LatencyMs    int       `json:"latency_ms"`
	CreatedAt    time.Time `json:"created_at"`
}
