package suggestions

import (
	"errors"

	"github.com/FACorreiaa/go-group-trip-planner/internal/planner"
)

var ErrAIUnavailable = errors.New("suggestion provider unavailable")
var ErrBadAIResponse = errors.New("could not parse suggestion response")

// SuggestionRequest carries the knobs a group can turn when asking for ideas.
type SuggestionRequest struct {
	City      string   `json:"city"`
	Interests []string `json:"interests,omitempty"`
	Budget    string   `json:"budget,omitempty"`
	TripDays  int      `json:"trip_days,omitempty"`
	PartySize int      `json:"party_size,omitempty"`
}

// SuggestionSet is the parsed, dedup-filtered result of one generation run.
// Candidates whose subject is already in the group cart are dropped.
type SuggestionSet struct {
	City       string            `json:"city"`
	Hotels     []planner.Payload `json:"hotels"`
	Activities []planner.Payload `json:"activities"`
	FromCache  bool              `json:"from_cache"`
}
