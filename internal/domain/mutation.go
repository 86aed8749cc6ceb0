package domain

import (
	"fmt"
	"time"
)

// MutationKind names a mutation type.
type MutationKind string

const (
	KindExtendTrip       MutationKind = "extend_trip"
	KindReplanRange      MutationKind = "replan_range"
	KindReplaceComponent MutationKind = "replace_component"
	KindReplaceActivity  MutationKind = "replace_activity"
)

// Mutation is a named operation that changes Trip, ItineraryDay or Component state.
// The set of implementations is closed: ExtendTrip, ReplanRange, ReplaceComponent
// and ReplaceActivity.
type Mutation interface {
	Kind() MutationKind
	String() string
	mutation()
}

// ExtendTrip appends Days new days after the current last day.
type ExtendTrip struct {
	Days int `json:"days"`
}

// ReplanRange regenerates days StartDay..EndDay. EndDay == 0 means "through the last day".
// A non-empty NewDestination replaces Trip.Destination before regeneration.
type ReplanRange struct {
	StartDay       int    `json:"start_day"`
	EndDay         int    `json:"end_day,omitempty"`
	NewDestination string `json:"new_destination,omitempty"`
}

// ReplaceComponent upserts Option as the trip's active component of its type and
// regenerates the days that depend on it.
type ReplaceComponent struct {
	Option Component `json:"option"`
}

// ReplaceActivity overwrites the activity at (Day, Index) with Alternative.
// Index is 0-based within the day's activity list.
type ReplaceActivity struct {
	Day         int      `json:"day"`
	Index       int      `json:"index"`
	Alternative Activity `json:"alternative"`
}

func (ExtendTrip) Kind() MutationKind       { return KindExtendTrip }
func (ReplanRange) Kind() MutationKind      { return KindReplanRange }
func (ReplaceComponent) Kind() MutationKind { return KindReplaceComponent }
func (ReplaceActivity) Kind() MutationKind  { return KindReplaceActivity }

func (ExtendTrip) mutation()       {}
func (ReplanRange) mutation()      {}
func (ReplaceComponent) mutation() {}
func (ReplaceActivity) mutation()  {}

func (m ExtendTrip) String() string {
	return fmt.Sprintf("extend_trip(days=%d)", m.Days)
}

func (m ReplanRange) String() string {
	end := "last"
	if m.EndDay > 0 {
		end = fmt.Sprint(m.EndDay)
	}
	if m.NewDestination != "" {
		return fmt.Sprintf("replan_range(%d..%s, destination=%q)", m.StartDay, end, m.NewDestination)
	}
	return fmt.Sprintf("replan_range(%d..%s)", m.StartDay, end)
}

func (m ReplaceComponent) String() string {
	return fmt.Sprintf("replace_component(%s, %q)", m.Option.Type, m.Option.Title)
}

func (m ReplaceActivity) String() string {
	return fmt.Sprintf("replace_activity(day=%d, index=%d, %q)", m.Day, m.Index, m.Alternative.Title)
}

// PendingAction is a mutation awaiting explicit user confirmation.
// At most one exists per session.
type PendingAction struct {
	Mutation  Mutation  `json:"-"`
	Prompt    string    `json:"prompt"`
	CreatedAt time.Time `json:"created_at"`
}
