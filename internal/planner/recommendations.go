package planner

import (
	"fmt"
	"time"
)

// Recommendation is a candidate hotel or activity waiting for the group to
// vote on it or promote it into the cart.
type Recommendation struct {
	ID         int       `json:"id"`
	Kind       Kind      `json:"kind"`
	SubjectKey string    `json:"subject_key"`
	Payload    Payload   `json:"payload"`
	Votes      []string  `json:"votes"`
	AddedBy    string    `json:"added_by,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// VoteCount is the vote set cardinality.
func (r *Recommendation) VoteCount() int { return len(r.Votes) }

func (r *Recommendation) hasVote(voterID string) bool {
	for _, v := range r.Votes {
		if v == voterID {
			return true
		}
	}
	return false
}

// addVote appends voterID to the vote set. Idempotent: a voter appears at
// most once; re-voting leaves the set unchanged and reports false.
func (r *Recommendation) addVote(voterID string) bool {
	if r.hasVote(voterID) {
		return false
	}
	r.Votes = append(r.Votes, voterID)
	return true
}

// removeVote deletes voterID from the vote set, preserving the insertion
// order of the remaining voters. Absent voters are a no-op.
func (r *Recommendation) removeVote(voterID string) bool {
	for i, v := range r.Votes {
		if v == voterID {
			r.Votes = append(r.Votes[:i], r.Votes[i+1:]...)
			return true
		}
	}
	return false
}

func (r *Recommendation) clone() Recommendation {
	out := *r
	out.Votes = append([]string(nil), r.Votes...)
	out.Payload.Amenities = append([]string(nil), r.Payload.Amenities...)
	return out
}

// RecommendationStore holds the ordered candidate list for one group.
// Ids are assigned from a monotonic counter and never reused: removal
// compacts the list, later additions get fresh ids.
type RecommendationStore struct {
	recs   []*Recommendation
	nextID int
}

// NewRecommendationStore returns an empty store.
func NewRecommendationStore() *RecommendationStore {
	return &RecommendationStore{}
}

// Add appends a new recommendation with an empty vote set and returns it.
// The payload must carry a name; otherwise ErrInvalidPayload.
func (s *RecommendationStore) Add(kind Kind, payload Payload, addedBy string, now time.Time) (Recommendation, error) {
	if NormalizeName(payload.Name) == "" {
		return Recommendation{}, fmt.Errorf("recommendation name required: %w", ErrInvalidPayload)
	}
	if kind != KindHotel && kind != KindActivity {
		return Recommendation{}, fmt.Errorf("unknown kind %q: %w", kind, ErrInvalidPayload)
	}
	rec := &Recommendation{
		ID:         s.nextID,
		Kind:       kind,
		SubjectKey: SubjectKey(payload),
		Payload:    payload,
		Votes:      []string{},
		AddedBy:    addedBy,
		CreatedAt:  now,
	}
	s.nextID++
	s.recs = append(s.recs, rec)
	return rec.clone(), nil
}

func (s *RecommendationStore) find(id int) (int, *Recommendation) {
	for i, rec := range s.recs {
		if rec.ID == id {
			return i, rec
		}
	}
	return -1, nil
}

// Get returns a copy of the recommendation with the given id.
func (s *RecommendationStore) Get(id int) (Recommendation, error) {
	_, rec := s.find(id)
	if rec == nil {
		return Recommendation{}, fmt.Errorf("recommendation %d: %w", id, ErrNotFound)
	}
	return rec.clone(), nil
}

// Remove deletes the recommendation with the given id. Subsequent votes
// referencing the id fail with ErrNotFound rather than silently no-oping.
func (s *RecommendationStore) Remove(id int) error {
	i, rec := s.find(id)
	if rec == nil {
		return fmt.Errorf("recommendation %d: %w", id, ErrNotFound)
	}
	s.recs = append(s.recs[:i], s.recs[i+1:]...)
	return nil
}

// List returns a read-only snapshot of all recommendations in insertion
// order. Filtering against the cart is the caller's responsibility via
// SameSubject.
func (s *RecommendationStore) List() []Recommendation {
	out := make([]Recommendation, 0, len(s.recs))
	for _, rec := range s.recs {
		out = append(out, rec.clone())
	}
	return out
}

// Len reports the number of stored recommendations.
func (s *RecommendationStore) Len() int { return len(s.recs) }

// Vote records voterID on the recommendation. Voting twice is an idempotent
// no-op returning the unchanged state; a missing id is ErrNotFound.
func (s *RecommendationStore) Vote(id int, voterID string) (Recommendation, error) {
	_, rec := s.find(id)
	if rec == nil {
		return Recommendation{}, fmt.Errorf("vote target %d: %w", id, ErrNotFound)
	}
	rec.addVote(voterID)
	return rec.clone(), nil
}

// Unvote removes voterID from the recommendation's vote set. Unvoting a
// non-voter is a no-op, not an error; a missing id is ErrNotFound.
func (s *RecommendationStore) Unvote(id int, voterID string) (Recommendation, error) {
	_, rec := s.find(id)
	if rec == nil {
		return Recommendation{}, fmt.Errorf("unvote target %d: %w", id, ErrNotFound)
	}
	rec.removeVote(voterID)
	return rec.clone(), nil
}

// restore seeds the store from persisted state. The next id continues after
// the highest restored id so removal/re-add keeps ids unique.
func (s *RecommendationStore) restore(recs []Recommendation) {
	s.recs = make([]*Recommendation, 0, len(recs))
	s.nextID = 0
	for i := range recs {
		rec := recs[i].clone()
		if rec.Votes == nil {
			rec.Votes = []string{}
		}
		s.recs = append(s.recs, &rec)
		if rec.ID >= s.nextID {
			s.nextID = rec.ID + 1
		}
	}
}
