package domain_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/tripchat/backend/internal/domain"
)

func days(nums ...int) []domain.ItineraryDay {
	out := make([]domain.ItineraryDay, len(nums))
	for i, n := range nums {
		out[i] = domain.ItineraryDay{DayNumber: n}
	}
	return out
}

func TestValidateDayNumbers(t *testing.T) {
	cases := []struct {
		name    string
		days    []domain.ItineraryDay
		wantErr bool
	}{
		{"empty", nil, false},
		{"contiguous", days(1, 2, 3), false},
		{"unordered", days(3, 1, 2), false},
		{"gap", days(1, 2, 4), true},
		{"duplicate", days(1, 2, 2), true},
		{"starts at two", days(2, 3), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := domain.ValidateDayNumbers(tc.days)
			if tc.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidRange)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestTrip_DayCount(t *testing.T) {
	trip := domain.Trip{
		StartDate: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC),
	}

	assert.Equal(t, 5, trip.DayCount())
	assert.Equal(t, time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC), trip.DateOf(3))

	trip.EndDate = trip.StartDate.AddDate(0, 0, -3)
	assert.Equal(t, 0, trip.DayCount())
}

func TestLocation_Coordinate(t *testing.T) {
	lat, lon := 35.0, 139.0

	_, ok := domain.Location{Name: "Somewhere", Lat: &lat}.Coordinate()
	assert.False(t, ok, "a missing longitude means no explicit coordinate")

	c, ok := domain.Location{Lat: &lat, Lon: &lon}.Coordinate()
	require.True(t, ok)
	assert.Equal(t, domain.Coordinate{Lat: 35, Lon: 139}, c)
}

func TestComponent_FlightMetadata(t *testing.T) {
	meta, err := json.Marshal(map[string]any{
		"outbound": map[string]string{"airline": "JL", "date": "2025-06-01"},
		"return":   map[string]string{"airline": "JL", "date": "2025-06-05"},
	})
	require.NoError(t, err)

	c := domain.Component{Type: domain.ComponentFlight, Metadata: meta}
	got, err := c.FlightMetadata()

	require.NoError(t, err)
	assert.Equal(t, "JL", got.Outbound.Airline)
	require.NotNil(t, got.Return)
	assert.Equal(t, "2025-06-05", got.Return.Date)
}

func TestComponent_FlightMetadata_NotAFlight(t *testing.T) {
	_, err := domain.Component{Type: domain.ComponentHotel}.FlightMetadata()

	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestMutation_Kinds(t *testing.T) {
	var muts = []domain.Mutation{
		domain.ExtendTrip{Days: 2},
		domain.ReplanRange{StartDay: 3},
		domain.ReplaceComponent{Option: domain.Component{Type: domain.ComponentHotel}},
		domain.ReplaceActivity{Day: 1},
	}
	want := []domain.MutationKind{
		domain.KindExtendTrip, domain.KindReplanRange, domain.KindReplaceComponent, domain.KindReplaceActivity,
	}
	for i, m := range muts {
		assert.Equal(t, want[i], m.Kind())
	}
	assert.Equal(t, "replan_range(3..last)", domain.ReplanRange{StartDay: 3}.String())
}
