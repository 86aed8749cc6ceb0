// Package intent turns a traveler's chat message into what the session should
// do next: run a mutation, show more alternatives, or just answer.
//
// Classification walks a fixed keyword table first (see DefaultRules) and only
// asks the content generator when no rule matches. The generator's answer is
// scanned for a control marker that requests a replan.
package intent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pkordes/tripchat/backend/internal/domain"
)

// Kind is the outcome category of a classification.
type Kind string

const (
	// KindMutation carries a domain.Mutation to run (possibly after confirmation).
	KindMutation Kind = "mutation"
	// KindMoreAlternatives asks for a new batch of alternatives for the open slot.
	KindMoreAlternatives Kind = "more_alternatives"
	// KindBulkReplaceSummaryOnly explains that a blanket replacement needs a concrete follow-up.
	KindBulkReplaceSummaryOnly Kind = "bulk_replace_summary_only"
	// KindGeneralAnswer is a plain conversational reply; nothing is mutated.
	KindGeneralAnswer Kind = "general_answer"
)

// ReplanMarker is the control marker the generator emits to request a replan.
// It is followed by an optional JSON object; a bare marker accepts the
// replan the assistant proposed in its previous message.
const ReplanMarker = "[[REPLAN]]"

// ProposalMarker is emitted when the assistant suggests a replan without being
// asked to perform it. The JSON that follows is kept as the pending proposal.
const ProposalMarker = "[[PROPOSE]]"

// Slot identifies one activity by day number and 0-based index.
type Slot struct {
	Day   int `json:"day"`
	Index int `json:"index"`
}

// Input is everything the classifier looks at.
type Input struct {
	Utterance string
	// Conversation is the transcript before Utterance.
	Conversation []domain.Message
	Trip         domain.Trip
	Days         []domain.ItineraryDay
	// Replacing is the activity whose alternatives are on screen, if any.
	Replacing *Slot
}

// Intent is the classifier's verdict.
type Intent struct {
	Kind     Kind
	Mutation domain.Mutation
	Slot     Slot
	// Reply is the assistant text for general answers and bulk requests.
	Reply string
	// Proposal is a replan the assistant suggested in Reply, for a later "go ahead".
	Proposal *domain.ReplanRange
	// Degraded is set when the generator could not be reached and Reply is an apology.
	Degraded bool
}

// Replier is the part of the content generator the classifier uses.
type Replier interface {
	Reply(ctx context.Context, system string, conversation []domain.Message) (string, error)
}

// Classifier resolves intents.
type Classifier struct {
	rules []Rule
	gen   Replier
	log   *slog.Logger
}

// NewClassifier returns a Classifier using DefaultRules with gen as the fallback.
func NewClassifier(gen Replier, log *slog.Logger) *Classifier {
	return NewClassifierWithRules(DefaultRules(), gen, log)
}

// NewClassifierWithRules returns a Classifier using the given table.
func NewClassifierWithRules(rules []Rule, gen Replier, log *slog.Logger) *Classifier {
	if log == nil {
		log = slog.Default()
	}
	return &Classifier{rules: rules, gen: gen, log: log}
}

const apology = "Sorry, I couldn't work out what you meant just now. Could you try again in a moment?"

// Classify returns the intent for in. It never returns a mutation when the
// generator fails; the result is then a degraded general answer.
func (c *Classifier) Classify(ctx context.Context, in Input) Intent {
	for _, r := range c.rules {
		if got, ok := r.Match(in); ok {
			c.log.Debug("intent matched rule", "rule", r.Name, "kind", got.Kind)
			return got
		}
	}

	conversation := append(append([]domain.Message(nil), in.Conversation...), domain.Message{
		TripID:    in.Trip.ID,
		Role:      domain.RoleUser,
		Content:   in.Utterance,
		CreatedAt: time.Now().UTC(),
	})
	raw, err := c.gen.Reply(ctx, classificationPrompt(in), conversation)
	if err != nil {
		c.log.Warn("intent classification degraded",
			"trip_id", in.Trip.ID, "error", fmt.Errorf("%w: %w", domain.ErrClassificationFailure, err))
		return Intent{Kind: KindGeneralAnswer, Reply: apology, Degraded: true}
	}
	return interpret(raw, in.Conversation)
}

// interpret reads the generator's answer for control markers.
func interpret(raw string, conversation []domain.Message) Intent {
	prose, proposal, _ := cutMarker(raw, ProposalMarker)

	prose, params, found := cutMarker(prose, ReplanMarker)
	if !found {
		out := Intent{Kind: KindGeneralAnswer, Reply: prose}
		if r, err := decodeRange(proposal); err == nil && r != nil {
			out.Proposal = r
		}
		return out
	}

	r, err := decodeRange(params)
	switch {
	case err != nil:
		return Intent{Kind: KindGeneralAnswer, Reply: orDefault(prose, "Which days would you like me to replan?")}
	case r == nil:
		prior := PriorProposal(conversation)
		if prior == nil {
			return Intent{Kind: KindGeneralAnswer, Reply: orDefault(prose, "Which days would you like me to replan?")}
		}
		return Intent{Kind: KindMutation, Mutation: *prior, Reply: prose}
	default:
		return Intent{Kind: KindMutation, Mutation: *r, Reply: prose}
	}
}

// cutMarker splits s at marker, returning the trimmed text before it and the
// text after it.
func cutMarker(s, marker string) (before, after string, found bool) {
	before, after, found = strings.Cut(s, marker)
	return strings.TrimSpace(before), strings.TrimSpace(after), found
}

type rangeParams struct {
	StartDay       int    `json:"start_day"`
	EndDay         int    `json:"end_day"`
	NewDestination string `json:"new_destination"`
}

// decodeRange parses the JSON object that may follow a marker. An empty
// string yields (nil, nil).
func decodeRange(s string) (*domain.ReplanRange, error) {
	if s == "" || !strings.HasPrefix(s, "{") {
		return nil, nil
	}
	var p rangeParams
	if err := json.NewDecoder(strings.NewReader(s)).Decode(&p); err != nil {
		return nil, fmt.Errorf("intent.decodeRange: %w", err)
	}
	if p.StartDay < 1 {
		if p.NewDestination == "" {
			return nil, errors.New("intent.decodeRange: missing start_day")
		}
		p.StartDay = 1
	}
	return &domain.ReplanRange{
		StartDay:       p.StartDay,
		EndDay:         p.EndDay,
		NewDestination: strings.TrimSpace(p.NewDestination),
	}, nil
}

// PriorProposal returns the replan carried by the most recent assistant
// message, if that message proposed one.
func PriorProposal(conversation []domain.Message) *domain.ReplanRange {
	for i := len(conversation) - 1; i >= 0; i-- {
		m := conversation[i]
		if m.Role != domain.RoleAssistant {
			continue
		}
		if m.Payload != nil && m.Payload.Kind == domain.PayloadProposal && m.Payload.Proposal != nil {
			p := *m.Payload.Proposal
			return &p
		}
		return nil
	}
	return nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func classificationPrompt(in Input) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a travel assistant chatting about a %d-day trip to %s", in.Trip.DayCount(), in.Trip.Destination)
	if in.Trip.Country != "" {
		fmt.Fprintf(&b, ", %s", in.Trip.Country)
	}
	fmt.Fprintf(&b, " from %s to %s.\n", in.Trip.StartDate.Format(time.DateOnly), in.Trip.EndDate.Format(time.DateOnly))

	for _, d := range in.Days {
		titles := make([]string, 0, len(d.Activities))
		for _, a := range d.Activities {
			titles = append(titles, a.Title)
		}
		fmt.Fprintf(&b, "Day %d: %s\n", d.DayNumber, strings.Join(titles, "; "))
	}

	b.WriteString(`
Answer the traveler's last message briefly and helpfully.
If the traveler asks you to replan, redo or change specific days, or to move part of the trip to another place,
end your answer with ` + ReplanMarker + ` followed by a JSON object {"start_day": n, "end_day": n, "new_destination": "..."}.
Omit end_day to mean "through the last day" and omit new_destination if the place does not change.
If the traveler agrees to a replan you proposed in your previous message, answer with ` + ReplanMarker + ` alone.
If you suggest a replan without being asked to do it, end your answer with ` + ProposalMarker + ` and the same JSON object.
Never use either marker otherwise.`)
	return b.String()
}
