package planner

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func activityCart(t *testing.T, tripDays int, names ...string) *Cart {
	t.Helper()
	cart := NewCart()
	_, err := cart.UpdateSettings(tripDays, 2)
	require.NoError(t, err)
	for _, name := range names {
		_, err := cart.AddActivity(Payload{Name: name}, "alice", testNow)
		require.NoError(t, err)
	}
	return cart
}

func dayNames(d Day) []string {
	out := make([]string, 0, len(d.Activities))
	for _, a := range d.Activities {
		out = append(out, a.Name)
	}
	return out
}

func TestGenerateChunking(t *testing.T) {
	tests := []struct {
		activities []string
		tripDays   int
		want       [][]string
	}{
		{
			activities: []string{"A", "B", "C", "D", "E"},
			tripDays:   2,
			want:       [][]string{{"A", "B", "C"}, {"D", "E"}},
		},
		{
			activities: []string{"Beach", "Market", "Temple", "Museum"},
			tripDays:   3,
			want:       [][]string{{"Beach", "Market"}, {"Temple"}, {"Museum"}},
		},
		{
			activities: []string{"A", "B"},
			tripDays:   4,
			want:       [][]string{{"A"}, {"B"}, {}, {}},
		},
		{
			activities: []string{"A", "B", "C"},
			tripDays:   1,
			want:       [][]string{{"A", "B", "C"}},
		},
		{
			activities: []string{"A", "B", "C", "D", "E", "F"},
			tripDays:   3,
			want:       [][]string{{"A", "B"}, {"C", "D"}, {"E", "F"}},
		},
	}

	for _, tc := range tests {
		t.Run(fmt.Sprintf("%d activities over %d days", len(tc.activities), tc.tripDays), func(t *testing.T) {
			cart := activityCart(t, tc.tripDays, tc.activities...)
			it, err := GenerateItinerary(cart.Snapshot(), testNow)
			require.NoError(t, err)
			require.Len(t, it.Days, tc.tripDays)
			for i, wantDay := range tc.want {
				assert.Equal(t, i+1, it.Days[i].DayNumber)
				assert.Equal(t, wantDay, dayNames(it.Days[i]))
			}
		})
	}
}

func TestGenerateEmptyCart(t *testing.T) {
	cart := NewCart()
	_, err := GenerateItinerary(cart.Snapshot(), testNow)
	assert.True(t, errors.Is(err, ErrEmptyCart))

	t.Run("hotels alone are not enough", func(t *testing.T) {
		store := seedStore(t, Payload{Name: "Hotel Azul", ProviderCode: "HTL-1"})
		cart := NewCart()
		_, err := cart.Promote(store, 0, "alice", testNow)
		require.NoError(t, err)
		_, err = GenerateItinerary(cart.Snapshot(), testNow)
		assert.True(t, errors.Is(err, ErrEmptyCart))
	})
}

func TestGenerateTimesCarriedOrTBD(t *testing.T) {
	cart := activityCart(t, 1)
	_, err := cart.AddActivity(Payload{Name: "Sunrise Hike", StartTime: "06:00", EndTime: "09:30"}, "alice", testNow)
	require.NoError(t, err)
	_, err = cart.AddActivity(Payload{Name: "Free Afternoon"}, "alice", testNow)
	require.NoError(t, err)

	it, err := GenerateItinerary(cart.Snapshot(), testNow)
	require.NoError(t, err)
	acts := it.Days[0].Activities
	require.Len(t, acts, 2)
	assert.Equal(t, "06:00", acts[0].StartTime)
	assert.Equal(t, "09:30", acts[0].EndTime)
	assert.Equal(t, "TBD", acts[1].StartTime)
	assert.Equal(t, "TBD", acts[1].EndTime)
}

func TestGenerateHotelDayRange(t *testing.T) {
	store := seedStore(t,
		Payload{Name: "Hotel Azul", ProviderCode: "HTL-1"},
		Payload{Name: "Mountain Lodge", ProviderCode: "HTL-2", CheckInDay: 3, CheckOutDay: 4},
		Payload{Name: "Overflow Inn", ProviderCode: "HTL-3", CheckInDay: 2, CheckOutDay: 99},
	)
	cart := NewCart()
	_, err := cart.UpdateSettings(5, 2)
	require.NoError(t, err)
	for id := 0; id < 3; id++ {
		_, err := cart.Promote(store, id, "alice", testNow)
		require.NoError(t, err)
	}
	_, err = cart.AddActivity(Payload{Name: "Beach Walk"}, "alice", testNow)
	require.NoError(t, err)

	it, err := GenerateItinerary(cart.Snapshot(), testNow)
	require.NoError(t, err)
	require.Len(t, it.Hotels, 3)

	assert.Equal(t, 1, it.Hotels[0].FromDay, "untagged hotel spans the full trip")
	assert.Equal(t, 5, it.Hotels[0].ToDay)
	assert.Equal(t, 3, it.Hotels[1].FromDay, "payload range honored")
	assert.Equal(t, 4, it.Hotels[1].ToDay)
	assert.Equal(t, 2, it.Hotels[2].FromDay, "out-of-range checkout clamped")
	assert.Equal(t, 5, it.Hotels[2].ToDay)
}

func TestGenerateDoesNotMutateCart(t *testing.T) {
	cart := activityCart(t, 2, "A", "B", "C")
	before := cart.Snapshot()

	_, err := GenerateItinerary(cart.Snapshot(), testNow)
	require.NoError(t, err)

	after := cart.Snapshot()
	assert.Equal(t, before, after, "generation must leave the cart untouched")
}

func TestGenerateQuantityCarried(t *testing.T) {
	cart := activityCart(t, 1, "Kayak Rental", "Kayak  rental")
	it, err := GenerateItinerary(cart.Snapshot(), testNow)
	require.NoError(t, err)
	require.Len(t, it.Days[0].Activities, 1)
	assert.Equal(t, 2, it.Days[0].Activities[0].Quantity)
}

func BenchmarkGenerateItinerary(b *testing.B) {
	cart := NewCart()
	_, _ = cart.UpdateSettings(7, 4)
	for i := 0; i < 60; i++ {
		_, _ = cart.AddActivity(Payload{Name: fmt.Sprintf("Activity %d", i)}, "alice", time.Now())
	}
	snap := cart.Snapshot()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := GenerateItinerary(snap, time.Now()); err != nil {
			b.Fatal(err)
		}
	}
}
