package domain

import "time"

// ExportRow is a single row in a trip itinerary export.
// It is a flat, denormalized view: one row per activity, with trip and day
// fields repeated for every activity. Days with no activities yield one row
// with zero values for all activity fields.
type ExportRow struct {
	// Trip fields, repeated for every row.
	TripID      string
	Destination string
	StartDate   string // "2006-01-02" formatted date
	EndDate     string

	// Day fields.
	DayNumber int
	Date      time.Time

	// Activity fields: zero values when the day has no activities.
	Time      string
	Title     string
	Category  ActivityCategory
	Location  string
	Price     *float64
	Mandatory bool
}
