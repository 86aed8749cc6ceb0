package domain

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// ActivityCategory classifies an activity for display and for the mandatory-activity policy.
type ActivityCategory string

const (
	CategoryFlight     ActivityCategory = "flight"
	CategoryHotel      ActivityCategory = "hotel"
	CategoryTransport  ActivityCategory = "transport"
	CategoryRestaurant ActivityCategory = "restaurant"
	CategoryAttraction ActivityCategory = "attraction"
	CategoryOther      ActivityCategory = "other"
)

// NormalizeCategory maps unknown or empty categories to CategoryOther.
func NormalizeCategory(c ActivityCategory) ActivityCategory {
	switch c {
	case CategoryFlight, CategoryHotel, CategoryTransport, CategoryRestaurant, CategoryAttraction:
		return c
	}
	return CategoryOther
}

// Coordinate is a WGS84 point.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Location is where an activity takes place. Lat and Lon are nil until known.
type Location struct {
	Name    string   `json:"name"`
	Address string   `json:"address,omitempty"`
	Lat     *float64 `json:"lat,omitempty"`
	Lon     *float64 `json:"lon,omitempty"`
}

// Coordinate returns the explicit coordinate attached to the location, if both
// latitude and longitude are present.
func (l Location) Coordinate() (Coordinate, bool) {
	if l.Lat == nil || l.Lon == nil {
		return Coordinate{}, false
	}
	return Coordinate{Lat: *l.Lat, Lon: *l.Lon}, true
}

// Activity is a single scheduled item within an itinerary day.
type Activity struct {
	Time          string           `json:"time"`
	Title         string           `json:"title"`
	Description   string           `json:"description,omitempty"`
	Location      Location         `json:"location"`
	Category      ActivityCategory `json:"category"`
	PriceEstimate *float64         `json:"price_estimate,omitempty"`
}

// ItineraryDay is one day of a trip's itinerary.
// DayNumber is 1-based and unique per trip; see ValidateDayNumbers.
type ItineraryDay struct {
	ID         uuid.UUID  `json:"id"`
	TripID     uuid.UUID  `json:"trip_id"`
	DayNumber  int        `json:"day_number"`
	Date       time.Time  `json:"date"`
	Activities []Activity `json:"activities"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// ValidateDayNumbers checks that the day numbers of days form exactly {1..N}
// with no gaps or duplicates. Order of the input slice does not matter.
func ValidateDayNumbers(days []ItineraryDay) error {
	nums := make([]int, len(days))
	for i, d := range days {
		nums[i] = d.DayNumber
	}
	sort.Ints(nums)
	for i, n := range nums {
		if n != i+1 {
			return fmt.Errorf("%w: day numbers are not contiguous from 1 (position %d has day %d)", ErrInvalidRange, i+1, n)
		}
	}
	return nil
}

// SortDays orders days by DayNumber ascending, in place.
func SortDays(days []ItineraryDay) {
	sort.Slice(days, func(i, j int) bool { return days[i].DayNumber < days[j].DayNumber })
}
