package planner

import (
	"fmt"
	"time"
)

// CartItem is a hotel or activity the group has actually selected.
// Hotels are singleton per subject; identical activities accumulate Quantity.
type CartItem struct {
	Kind          Kind      `json:"kind"`
	SubjectKey    string    `json:"subject_key"`
	Payload       Payload   `json:"payload"`
	ContributedBy string    `json:"contributed_by"`
	Quantity      int       `json:"quantity"`
	AddedAt       time.Time `json:"added_at"`
}

func (c *CartItem) clone() CartItem {
	out := *c
	out.Payload.Amenities = append([]string(nil), c.Payload.Amenities...)
	return out
}

// CartSettings hold the trip parameters the itinerary is generated under.
// They persist across cart mutations.
type CartSettings struct {
	TripDays  int `json:"trip_days"`
	PartySize int `json:"party_size"`
}

// CartSnapshot is the immutable view handed to the itinerary builder and
// serialized to clients.
type CartSnapshot struct {
	Items    []CartItem   `json:"items"`
	Settings CartSettings `json:"settings"`
}

// Cart is the authoritative selected set for one group.
type Cart struct {
	items    []*CartItem
	settings CartSettings
}

// NewCart returns an empty cart with the default single-day, single-traveler
// settings.
func NewCart() *Cart {
	return &Cart{settings: CartSettings{TripDays: 1, PartySize: 1}}
}

// findSameSubject returns the cart item of the given kind that refers to the
// same real-world place as p, or nil.
func (c *Cart) findSameSubject(kind Kind, p Payload) *CartItem {
	for _, item := range c.items {
		if item.Kind == kind && SameSubject(item.Payload, p) {
			return item
		}
	}
	return nil
}

// Promote atomically removes the recommendation with sourceID from the store
// and inserts an equivalent cart item. When the subject is already covered by
// the cart the source recommendation is still removed (the suggestion is
// resolved) but no duplicate is created: the pre-existing item is returned
// together with ErrAlreadyInCart.
func (c *Cart) Promote(store *RecommendationStore, sourceID int, promotedBy string, now time.Time) (CartItem, error) {
	rec, err := store.Get(sourceID)
	if err != nil {
		return CartItem{}, err
	}
	if err := store.Remove(sourceID); err != nil {
		return CartItem{}, err
	}

	if existing := c.findSameSubject(rec.Kind, rec.Payload); existing != nil {
		return existing.clone(), fmt.Errorf("promote %d: %w", sourceID, ErrAlreadyInCart)
	}

	item := &CartItem{
		Kind:          rec.Kind,
		SubjectKey:    rec.SubjectKey,
		Payload:       rec.Payload,
		ContributedBy: promotedBy,
		Quantity:      1,
		AddedAt:       now,
	}
	c.items = append(c.items, item)
	return item.clone(), nil
}

// AddActivity inserts a new activity cart item, or increments the quantity of
// the existing item covering the same subject.
func (c *Cart) AddActivity(payload Payload, contributedBy string, now time.Time) (CartItem, error) {
	if NormalizeName(payload.Name) == "" {
		return CartItem{}, fmt.Errorf("activity name required: %w", ErrInvalidPayload)
	}
	if existing := c.findSameSubject(KindActivity, payload); existing != nil {
		existing.Quantity++
		return existing.clone(), nil
	}
	item := &CartItem{
		Kind:          KindActivity,
		SubjectKey:    SubjectKey(payload),
		Payload:       payload,
		ContributedBy: contributedBy,
		Quantity:      1,
		AddedAt:       now,
	}
	c.items = append(c.items, item)
	return item.clone(), nil
}

// Remove deletes the cart item with the given kind and subject key.
func (c *Cart) Remove(kind Kind, subjectKey string) error {
	for i, item := range c.items {
		if item.Kind == kind && item.SubjectKey == subjectKey {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("cart item %s/%s: %w", kind, subjectKey, ErrNotFound)
}

// UpdateSettings validates and replaces the cart settings without touching
// the item list. Non-positive values are rejected, never clamped; the UI
// imposes its own display bounds.
func (c *Cart) UpdateSettings(tripDays, partySize int) (CartSettings, error) {
	if tripDays < 1 {
		return c.settings, fmt.Errorf("trip days must be >= 1, got %d: %w", tripDays, ErrInvalidSettings)
	}
	if partySize < 1 {
		return c.settings, fmt.Errorf("party size must be >= 1, got %d: %w", partySize, ErrInvalidSettings)
	}
	c.settings = CartSettings{TripDays: tripDays, PartySize: partySize}
	return c.settings, nil
}

// Settings returns the current cart settings.
func (c *Cart) Settings() CartSettings { return c.settings }

// Snapshot returns an immutable copy of the cart contents and settings.
func (c *Cart) Snapshot() CartSnapshot {
	items := make([]CartItem, 0, len(c.items))
	for _, item := range c.items {
		items = append(items, item.clone())
	}
	return CartSnapshot{Items: items, Settings: c.settings}
}

// Len reports the number of distinct cart items.
func (c *Cart) Len() int { return len(c.items) }

// restore seeds the cart from persisted state.
func (c *Cart) restore(snap CartSnapshot) {
	c.items = make([]*CartItem, 0, len(snap.Items))
	for i := range snap.Items {
		item := snap.Items[i].clone()
		if item.Quantity < 1 {
			item.Quantity = 1
		}
		c.items = append(c.items, &item)
	}
	c.settings = snap.Settings
	if c.settings.TripDays < 1 {
		c.settings.TripDays = 1
	}
	if c.settings.PartySize < 1 {
		c.settings.PartySize = 1
	}
}
