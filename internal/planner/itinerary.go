package planner

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ScheduledActivity is one activity placed on a day of the itinerary.
// Start and end times are carried through from the payload when present,
// otherwise marked "TBD".
type ScheduledActivity struct {
	Name         string `json:"name"`
	Region       string `json:"region,omitempty"`
	DurationHint string `json:"duration_hint,omitempty"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	Quantity     int    `json:"quantity"`
}

// Day is one day of the trip with its ordered activities.
type Day struct {
	DayNumber  int                 `json:"day_number"`
	Activities []ScheduledActivity `json:"activities"`
}

// ItineraryHotel is a hotel carried into the itinerary, tagged with the day
// range it covers.
type ItineraryHotel struct {
	Payload Payload `json:"payload"`
	FromDay int     `json:"from_day"`
	ToDay   int     `json:"to_day"`
}

// Itinerary is a day-partitioned schedule generated from a cart snapshot.
// Immutable once created; regeneration appends a new Itinerary to the group's
// history instead of overwriting.
type Itinerary struct {
	ID          uuid.UUID      `json:"id"`
	TripDays    int            `json:"trip_days"`
	PartySize   int            `json:"party_size"`
	Days        []Day          `json:"days"`
	Hotels      []ItineraryHotel `json:"hotels"`
	GeneratedAt time.Time      `json:"generated_at"`
}

const timeTBD = "TBD"

// GenerateItinerary partitions the snapshot's activities across the
// configured trip days. Activities keep their cart order and are chunked as
// evenly as possible, the first days taking the remainder (ceil division):
// 5 activities over 2 days yields 3 then 2. The cart itself is never
// mutated; callers can regenerate at will.
func GenerateItinerary(snap CartSnapshot, now time.Time) (*Itinerary, error) {
	var activities []CartItem
	var hotels []CartItem
	for _, item := range snap.Items {
		switch item.Kind {
		case KindActivity:
			activities = append(activities, item)
		case KindHotel:
			hotels = append(hotels, item)
		}
	}
	if len(activities) == 0 {
		return nil, fmt.Errorf("generate itinerary: %w", ErrEmptyCart)
	}

	tripDays := snap.Settings.TripDays
	if tripDays < 1 {
		return nil, fmt.Errorf("generate itinerary: trip days %d: %w", tripDays, ErrInvalidSettings)
	}

	it := &Itinerary{
		ID:          uuid.New(),
		TripDays:    tripDays,
		PartySize:   snap.Settings.PartySize,
		Days:        make([]Day, tripDays),
		GeneratedAt: now,
	}

	base := len(activities) / tripDays
	rem := len(activities) % tripDays
	next := 0
	for d := 0; d < tripDays; d++ {
		count := base
		if d < rem {
			count++
		}
		day := Day{DayNumber: d + 1, Activities: []ScheduledActivity{}}
		for i := 0; i < count; i++ {
			day.Activities = append(day.Activities, scheduleActivity(activities[next]))
			next++
		}
		it.Days[d] = day
	}

	for _, h := range hotels {
		it.Hotels = append(it.Hotels, tagHotel(h, tripDays))
	}
	return it, nil
}

func scheduleActivity(item CartItem) ScheduledActivity {
	sa := ScheduledActivity{
		Name:         item.Payload.Name,
		Region:       item.Payload.Region,
		DurationHint: item.Payload.DurationHint,
		StartTime:    item.Payload.StartTime,
		EndTime:      item.Payload.EndTime,
		Quantity:     item.Quantity,
	}
	if sa.StartTime == "" {
		sa.StartTime = timeTBD
	}
	if sa.EndTime == "" {
		sa.EndTime = timeTBD
	}
	return sa
}

// tagHotel attaches the hotel to the full trip range unless the payload
// recommends a narrower stay; the range is clamped into [1, tripDays].
func tagHotel(item CartItem, tripDays int) ItineraryHotel {
	from, to := 1, tripDays
	if item.Payload.CheckInDay >= 1 && item.Payload.CheckInDay <= tripDays {
		from = item.Payload.CheckInDay
	}
	if item.Payload.CheckOutDay >= from && item.Payload.CheckOutDay <= tripDays {
		to = item.Payload.CheckOutDay
	}
	return ItineraryHotel{Payload: item.Payload, FromDay: from, ToDay: to}
}
