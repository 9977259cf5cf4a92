package planner

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// State is the full persistable planning state of one group: every
// recommendation with its votes, the cart, and the itinerary history
// (most-recent-first).
type State struct {
	GroupID         uuid.UUID        `json:"group_id"`
	Recommendations []Recommendation `json:"recommendations"`
	Cart            CartSnapshot     `json:"cart"`
	Itineraries     []Itinerary      `json:"itineraries"`
}

// View is the render-ready state returned by every mutating operation, so
// callers never re-derive state from partial responses. Recommendations
// whose subject is already covered by the cart are filtered out.
type View struct {
	GroupID         uuid.UUID        `json:"group_id"`
	Recommendations []Recommendation `json:"recommendations"`
	Cart            CartSnapshot     `json:"cart"`
	Itineraries     []Itinerary      `json:"itineraries"`
}

// GroupPlanner serializes all planning operations for a single group.
// Operations on different groups proceed independently; see Manager.
type GroupPlanner struct {
	mu      sync.Mutex
	groupID uuid.UUID
	store   *RecommendationStore
	cart    *Cart
	history []Itinerary

	// now is swappable for deterministic tests.
	now func() time.Time
}

// NewGroupPlanner returns an empty planner for the group.
func NewGroupPlanner(groupID uuid.UUID) *GroupPlanner {
	return &GroupPlanner{
		groupID: groupID,
		store:   NewRecommendationStore(),
		cart:    NewCart(),
		now:     time.Now,
	}
}

// Restore seeds the planner from persisted state, replacing any current
// contents.
func (g *GroupPlanner) Restore(state State) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.store.restore(state.Recommendations)
	g.cart.restore(state.Cart)
	g.history = append([]Itinerary(nil), state.Itineraries...)
}

// view assembles the filtered render state. Callers must hold g.mu.
func (g *GroupPlanner) view() View {
	cart := g.cart.Snapshot()
	var visible []Recommendation
	for _, rec := range g.store.List() {
		covered := false
		for _, item := range cart.Items {
			if item.Kind == rec.Kind && SameSubject(item.Payload, rec.Payload) {
				covered = true
				break
			}
		}
		if !covered {
			visible = append(visible, rec)
		}
	}
	return View{
		GroupID:         g.groupID,
		Recommendations: visible,
		Cart:            cart,
		Itineraries:     append([]Itinerary(nil), g.history...),
	}
}

// View returns a consistent point-in-time render state.
func (g *GroupPlanner) View() View {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.view()
}

// State returns the full persistable state, including recommendations the
// view filters out.
func (g *GroupPlanner) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return State{
		GroupID:         g.groupID,
		Recommendations: g.store.List(),
		Cart:            g.cart.Snapshot(),
		Itineraries:     append([]Itinerary(nil), g.history...),
	}
}

// AddRecommendation accepts a candidate into the store.
func (g *GroupPlanner) AddRecommendation(kind Kind, payload Payload, addedBy string) (Recommendation, View, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	rec, err := g.store.Add(kind, payload, addedBy, g.now())
	if err != nil {
		return Recommendation{}, View{}, err
	}
	return rec, g.view(), nil
}

// RemoveRecommendation deletes a candidate without promoting it.
func (g *GroupPlanner) RemoveRecommendation(id int) (View, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.store.Remove(id); err != nil {
		return View{}, err
	}
	return g.view(), nil
}

// Vote records a vote; voting twice is a no-op returning current state.
func (g *GroupPlanner) Vote(id int, voterID string) (Recommendation, View, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	rec, err := g.store.Vote(id, voterID)
	if err != nil {
		return Recommendation{}, View{}, err
	}
	return rec, g.view(), nil
}

// Unvote withdraws a vote; unvoting a non-voter is a no-op.
func (g *GroupPlanner) Unvote(id int, voterID string) (Recommendation, View, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	rec, err := g.store.Unvote(id, voterID)
	if err != nil {
		return Recommendation{}, View{}, err
	}
	return rec, g.view(), nil
}

// Promote moves a recommendation into the cart. On ErrAlreadyInCart the
// source recommendation is still removed and the pre-existing cart item is
// returned alongside the error.
func (g *GroupPlanner) Promote(sourceID int, promotedBy string) (CartItem, View, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	item, err := g.cart.Promote(g.store, sourceID, promotedBy, g.now())
	if err != nil {
		return item, g.view(), err
	}
	return item, g.view(), nil
}

// AddActivity inserts an activity directly into the cart, or increments the
// quantity of an equivalent existing one.
func (g *GroupPlanner) AddActivity(payload Payload, contributedBy string) (CartItem, View, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	item, err := g.cart.AddActivity(payload, contributedBy, g.now())
	if err != nil {
		return CartItem{}, View{}, err
	}
	return item, g.view(), nil
}

// RemoveCartItem deletes a selected item.
func (g *GroupPlanner) RemoveCartItem(kind Kind, subjectKey string) (View, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.cart.Remove(kind, subjectKey); err != nil {
		return View{}, err
	}
	return g.view(), nil
}

// UpdateSettings replaces the trip parameters.
func (g *GroupPlanner) UpdateSettings(tripDays, partySize int) (CartSettings, View, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	settings, err := g.cart.UpdateSettings(tripDays, partySize)
	if err != nil {
		return settings, View{}, err
	}
	return settings, g.view(), nil
}

// Generate builds a new itinerary from the current cart and prepends it to
// the history. The cart is left untouched so the group can regenerate.
func (g *GroupPlanner) Generate() (Itinerary, View, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	it, err := GenerateItinerary(g.cart.Snapshot(), g.now())
	if err != nil {
		return Itinerary{}, View{}, err
	}
	g.history = append([]Itinerary{*it}, g.history...)
	return *it, g.view(), nil
}

// History returns the itinerary history, most recent first.
func (g *GroupPlanner) History() []Itinerary {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Itinerary(nil), g.history...)
}

// Manager hands out one GroupPlanner per group id. Different groups never
// contend on a shared lock beyond the map access itself.
type Manager struct {
	mu     sync.RWMutex
	groups map[uuid.UUID]*GroupPlanner
}

// NewManager returns an empty planner registry.
func NewManager() *Manager {
	return &Manager{groups: make(map[uuid.UUID]*GroupPlanner)}
}

// Get returns the planner for groupID, creating an empty one if absent.
func (m *Manager) Get(groupID uuid.UUID) *GroupPlanner {
	m.mu.RLock()
	g, ok := m.groups[groupID]
	m.mu.RUnlock()
	if ok {
		return g
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok = m.groups[groupID]; ok {
		return g
	}
	g = NewGroupPlanner(groupID)
	m.groups[groupID] = g
	return g
}

// Lookup returns the planner for groupID without creating one.
func (m *Manager) Lookup(groupID uuid.UUID) (*GroupPlanner, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.groups[groupID]
	return g, ok
}

// Forget drops the planner for groupID, e.g. after group deletion.
func (m *Manager) Forget(groupID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.groups, groupID)
}
