package generator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkordes/tripchat/backend/internal/domain"
)

const itinerarySystemPrompt = `You are a travel planner. You answer with JSON only, no prose and no code fences.
Every activity has the fields: time ("HH:MM"), title, description, location {name, address, lat, lon},
category (one of flight, hotel, transport, restaurant, attraction, other) and an optional price_estimate in EUR.
Use real, specific places. Keep a realistic pace with travel time between activities.`

const activitySchema = `{"time":"09:00","title":"...","description":"...","location":{"name":"...","address":"..."},"category":"attraction","price_estimate":12}`

func daysPrompt(r Request) string {
	var b strings.Builder
	writeTrip(&b, r.Trip)
	writeComponents(&b, r.Components)

	if len(r.PriorDays) > 0 {
		b.WriteString("\nExisting days (context only, do not repeat or change them):\n")
		for _, d := range r.PriorDays {
			fmt.Fprintf(&b, "Day %d (%s): %s\n", d.DayNumber, d.Date.Format("2006-01-02"), activityTitles(d.Activities))
		}
	}
	writeConversation(&b, r.Conversation)

	if r.Instructions != "" {
		fmt.Fprintf(&b, "\nAdditional instructions: %s\n", r.Instructions)
	}

	if r.Count() == 1 {
		fmt.Fprintf(&b, "\nPlan day %d (%s) only.\n", r.StartDay, r.Trip.DateOf(r.StartDay).Format("2006-01-02"))
	} else {
		fmt.Fprintf(&b, "\nPlan days %d to %d (%s to %s), exactly %d days.\n",
			r.StartDay, r.EndDay,
			r.Trip.DateOf(r.StartDay).Format("2006-01-02"), r.Trip.DateOf(r.EndDay).Format("2006-01-02"),
			r.Count())
	}
	fmt.Fprintf(&b, `Answer with {"daily_itinerary":[{"day":%d,"activities":[%s]}]}`, r.StartDay, activitySchema)
	return b.String()
}

func alternativesPrompt(r AlternativesRequest) string {
	var b strings.Builder
	writeTrip(&b, r.Trip)

	current := r.Day.Activities[r.Index]
	fmt.Fprintf(&b, "\nDay %d currently has: %s\n", r.Day.DayNumber, activityTitles(r.Day.Activities))
	fmt.Fprintf(&b, "The traveler wants to replace %q at %s (%s).\n", current.Title, current.Time, current.Category)
	if len(r.Exclude) > 0 {
		fmt.Fprintf(&b, "Do not suggest any of: %s\n", activityTitles(r.Exclude))
	}
	writeConversation(&b, r.Conversation)

	fmt.Fprintf(&b, "\nSuggest %d different alternatives for the same time slot, near the other activities of the day.\n", r.Count)
	fmt.Fprintf(&b, `Answer with {"alternatives":[%s]}`, activitySchema)
	return b.String()
}

func writeTrip(b *strings.Builder, t domain.Trip) {
	fmt.Fprintf(b, "Trip to %s", t.Destination)
	if t.Country != "" {
		fmt.Fprintf(b, ", %s", t.Country)
	}
	fmt.Fprintf(b, " from %s to %s (%d days) for %d adult(s)",
		t.StartDate.Format("2006-01-02"), t.EndDate.Format("2006-01-02"), t.DayCount(), t.Adults)
	if t.Children > 0 {
		fmt.Fprintf(b, " and %d child(ren)", t.Children)
	}
	b.WriteString(".\n")
}

func writeComponents(b *strings.Builder, cs []domain.Component) {
	for _, c := range cs {
		fmt.Fprintf(b, "Booked %s: %s", c.Type, c.Title)
		if c.Description != "" {
			fmt.Fprintf(b, " (%s)", c.Description)
		}
		if c.Type == domain.ComponentFlight {
			if fm, err := c.FlightMetadata(); err == nil {
				if meta, err := json.Marshal(fm); err == nil {
					fmt.Fprintf(b, " %s", meta)
				}
			}
		}
		b.WriteString("\n")
	}
}

func writeConversation(b *strings.Builder, conversation []domain.Message) {
	if len(conversation) > maxConversation {
		conversation = conversation[len(conversation)-maxConversation:]
	}
	if len(conversation) == 0 {
		return
	}
	b.WriteString("\nConversation so far:\n")
	for _, m := range conversation {
		fmt.Fprintf(b, "%s: %s\n", m.Role, m.Content)
	}
}

func activityTitles(acts []domain.Activity) string {
	titles := make([]string, len(acts))
	for i, a := range acts {
		titles[i] = a.Title
	}
	return strings.Join(titles, "; ")
}
