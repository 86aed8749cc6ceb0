package session

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/pkordes/tripchat/backend/internal/domain"
	"github.com/pkordes/tripchat/backend/internal/gate"
	"github.com/pkordes/tripchat/backend/internal/mutation"
)

const declinedMessage = "Okay, I've left your itinerary exactly as it was."

type answer int

const (
	answerOther answer = iota
	answerYes
	answerNo
)

var (
	yesWords = map[string]bool{
		"yes": true, "y": true, "yeah": true, "yep": true, "yup": true, "sure": true, "ok": true, "okay": true,
		"confirm": true, "go ahead": true, "do it": true, "please do": true, "yes please": true, "sounds good": true,
	}
	noWords = map[string]bool{
		"no": true, "n": true, "nope": true, "nah": true, "cancel": true, "don't": true, "dont": true,
		"no thanks": true, "never mind": true, "nevermind": true, "stop": true, "keep it": true,
	}
)

// answerOf classifies a reply to a confirmation question. Only short, plain
// answers count; anything longer is treated as a new request.
func answerOf(text string) answer {
	t := strings.ToLower(strings.TrimFunc(strings.TrimSpace(text), func(r rune) bool {
		return unicode.IsPunct(r) && r != '\''
	}))
	t = strings.Join(strings.Fields(t), " ")
	switch {
	case yesWords[t]:
		return answerYes
	case noWords[t]:
		return answerNo
	}
	return answerOther
}

func outcomeMessage(m domain.Mutation, out mutation.Outcome) string {
	switch m := m.(type) {
	case domain.ExtendTrip:
		return fmt.Sprintf("Done! I added %s. Your trip now ends on %s.",
			gate.Scope(m), out.Trip.EndDate.Format(time.DateOnly))
	case domain.ReplanRange:
		r := m
		if len(out.AffectedDays) > 0 {
			r.StartDay, r.EndDay = out.AffectedDays[0], out.AffectedDays[len(out.AffectedDays)-1]
		}
		if m.NewDestination != "" {
			return fmt.Sprintf("Done! I replanned %s in %s.", gate.Scope(r), m.NewDestination)
		}
		return fmt.Sprintf("Done! I replanned %s.", gate.Scope(r))
	case domain.ReplaceComponent:
		return fmt.Sprintf("Done! Your %s is now %s and I regenerated %s.", m.Option.Type, m.Option.Title, gate.Scope(m))
	case domain.ReplaceActivity:
		return fmt.Sprintf("Done! %s is now on day %d.", m.Alternative.Title, m.Day)
	}
	return "Done!"
}

func failureMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrMandatoryActivityProtected):
		return "That activity is a fixed part of your trip (a flight, check-in or check-out, or a transfer), so I can't replace it here."
	case errors.Is(err, domain.ErrInvalidRange):
		return "Those days don't match this itinerary, so I didn't change anything."
	case errors.Is(err, domain.ErrGenerationFailure):
		return "I couldn't come up with a new plan right now. Your itinerary hasn't changed; please try again."
	case errors.Is(err, domain.ErrPersistenceFailure):
		return "I prepared the new plan but couldn't save it. Your itinerary hasn't changed; please try again."
	case errors.Is(err, domain.ErrNotFound):
		return "I couldn't find that part of your trip."
	case errors.Is(err, domain.ErrValidation):
		return "That request doesn't look right, so I didn't change anything."
	}
	return "Something went wrong and nothing was changed. Please try again."
}

// errorKind is the stable name of err's category for API clients.
func errorKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrMandatoryActivityProtected):
		return "mandatory_activity_protected"
	case errors.Is(err, domain.ErrInvalidRange):
		return "invalid_range"
	case errors.Is(err, domain.ErrGenerationFailure):
		return "generation_failure"
	case errors.Is(err, domain.ErrPersistenceFailure):
		return "persistence_failure"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	}
	return "internal"
}
