// Package domain contains the core data types for the trip conversation engine.
// This package has no dependencies on other internal packages and is imported
// by every other internal package (repo, service, mutation, session, handler).
package domain

import (
	"time"

	"github.com/google/uuid"
)

// TripStatus is the lifecycle stage of a generated trip.
type TripStatus string

const (
	TripStatusPlanning TripStatus = "planning"
	TripStatusDraft    TripStatus = "draft"
	TripStatusReview   TripStatus = "review"
	TripStatusSaved    TripStatus = "saved"
	TripStatusError    TripStatus = "error"
)

// Valid reports whether s is one of the known statuses.
func (s TripStatus) Valid() bool {
	switch s {
	case TripStatusPlanning, TripStatusDraft, TripStatusReview, TripStatusSaved, TripStatusError:
		return true
	}
	return false
}

// Trip represents a multi-day trip whose itinerary is held as ItineraryDay records.
// A trip is the top-level aggregate; days and components belong to a trip.
// StartDate and EndDate are calendar dates (time component is always midnight UTC).
type Trip struct {
	ID          uuid.UUID  `json:"id"`
	Destination string     `json:"destination"`
	Country     string     `json:"country,omitempty"` // region hint for geocoding
	StartDate   time.Time  `json:"start_date"`
	EndDate     time.Time  `json:"end_date"`
	Adults      int        `json:"adults"`
	Children    int        `json:"children"`
	Status      TripStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// DayCount returns the number of calendar days spanned by the trip, inclusive.
// A trip whose end date precedes its start date has zero days.
func (t Trip) DayCount() int {
	n := int(t.EndDate.Sub(t.StartDate).Hours()/24) + 1
	if n < 0 {
		return 0
	}
	return n
}

// DateOf returns the calendar date of the given 1-based day number.
func (t Trip) DateOf(dayNumber int) time.Time {
	return t.StartDate.AddDate(0, 0, dayNumber-1)
}
