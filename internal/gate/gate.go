// Package gate decides which mutations need the traveler's explicit approval
// and words the confirmation question.
package gate

import (
	"fmt"

	"github.com/pkordes/tripchat/backend/internal/domain"
)

// Impact is how disruptive a mutation is.
type Impact int

const (
	// AutoApply mutations run immediately.
	AutoApply Impact = iota
	// Impactful mutations wait for a yes/no from the traveler.
	Impactful
)

func (i Impact) String() string {
	if i == Impactful {
		return "impactful"
	}
	return "auto_apply"
}

// Classify returns the impact of m. Replacing a component is always impactful;
// every other mutation is applied without asking.
func Classify(m domain.Mutation) Impact {
	if _, ok := m.(domain.ReplaceComponent); ok {
		return Impactful
	}
	return AutoApply
}

// Scope names the days a mutation will regenerate, in words.
func Scope(m domain.Mutation) string {
	switch m := m.(type) {
	case domain.ReplaceComponent:
		if m.Option.Type == domain.ComponentFlight {
			return "the first and last day"
		}
		return "the entire itinerary"
	case domain.ExtendTrip:
		if m.Days == 1 {
			return "one new day at the end"
		}
		return fmt.Sprintf("%d new days at the end", m.Days)
	case domain.ReplanRange:
		switch {
		case m.EndDay == 0:
			return fmt.Sprintf("day %d through the last day", m.StartDay)
		case m.EndDay == m.StartDay:
			return fmt.Sprintf("day %d", m.StartDay)
		default:
			return fmt.Sprintf("days %d to %d", m.StartDay, m.EndDay)
		}
	case domain.ReplaceActivity:
		return fmt.Sprintf("one activity on day %d", m.Day)
	}
	return "the itinerary"
}

// Prompt is the confirmation question for m. It always restates the scope.
func Prompt(m domain.Mutation) string {
	if rc, ok := m.(domain.ReplaceComponent); ok {
		return fmt.Sprintf("Switching your %s to %s will regenerate %s. Any changes you made there will be lost. Shall I go ahead?",
			rc.Option.Type, rc.Option.Title, Scope(m))
	}
	return fmt.Sprintf("This will change %s. Shall I go ahead?", Scope(m))
}
