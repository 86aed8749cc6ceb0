// Package generator is the typed client for the external content generation
// service. It builds prompts for itinerary days, activity alternatives and
// plain chat replies, sends them through a Model, and validates what comes back.
package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkordes/tripchat/backend/internal/domain"
)

// maxConversation bounds how much transcript is sent as context.
const maxConversation = 20

// Request asks for the days StartDay..EndDay of a trip.
type Request struct {
	Trip         domain.Trip
	Components   []domain.Component
	Conversation []domain.Message
	StartDay     int
	EndDay       int
	// PriorDays are passed as read-only context; they are never returned.
	PriorDays []domain.ItineraryDay
	// Instructions is an optional extra constraint, e.g. "keep the new hotel as the base".
	Instructions string
}

// Count is the number of days requested.
func (r Request) Count() int { return r.EndDay - r.StartDay + 1 }

// AlternativesRequest asks for replacements for one activity slot.
type AlternativesRequest struct {
	Trip         domain.Trip
	Day          domain.ItineraryDay
	Index        int
	Exclude      []domain.Activity // alternatives already shown
	Count        int
	Conversation []domain.Message
}

// Generator is the contract the engine depends on.
type Generator interface {
	// GenerateDays returns exactly r.Count() days numbered StartDay..EndDay.
	// Empty or malformed output is reported as domain.ErrGenerationFailure.
	GenerateDays(ctx context.Context, r Request) ([]domain.ItineraryDay, error)

	// SuggestAlternatives returns candidate replacements for one activity.
	SuggestAlternatives(ctx context.Context, r AlternativesRequest) ([]domain.Activity, error)

	// Reply returns a plain conversational answer to the transcript.
	Reply(ctx context.Context, system string, conversation []domain.Message) (string, error)
}

// Turn is one message of a model prompt.
type Turn struct {
	Role domain.Role
	Text string
}

// Prompt is what a Model receives.
type Prompt struct {
	System string
	Turns  []Turn
	// JSON asks the model to answer with a JSON document only.
	JSON bool
}

// Model sends a prompt to a language model and returns its raw text answer.
type Model interface {
	Generate(ctx context.Context, p Prompt) (string, error)
}

// Client implements Generator on top of a Model.
type Client struct {
	model Model
}

// NewClient returns a Generator backed by m.
func NewClient(m Model) *Client {
	return &Client{model: m}
}

var _ Generator = (*Client)(nil)

func (c *Client) GenerateDays(ctx context.Context, r Request) ([]domain.ItineraryDay, error) {
	if r.StartDay < 1 || r.EndDay < r.StartDay {
		return nil, fmt.Errorf("generator.Client.GenerateDays: %w: days %d..%d", domain.ErrInvalidRange, r.StartDay, r.EndDay)
	}

	raw, err := c.model.Generate(ctx, Prompt{
		System: itinerarySystemPrompt,
		Turns:  []Turn{{Role: domain.RoleUser, Text: daysPrompt(r)}},
		JSON:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("generator.Client.GenerateDays: %w", asGenerationFailure(err))
	}

	days, err := ParseDailyItinerary(raw, r.Trip, r.StartDay, r.Count())
	if err != nil {
		return nil, fmt.Errorf("generator.Client.GenerateDays: %w", err)
	}
	return days, nil
}

func (c *Client) SuggestAlternatives(ctx context.Context, r AlternativesRequest) ([]domain.Activity, error) {
	if r.Index < 0 || r.Index >= len(r.Day.Activities) {
		return nil, fmt.Errorf("generator.Client.SuggestAlternatives: %w: no activity %d on day %d",
			domain.ErrInvalidRange, r.Index, r.Day.DayNumber)
	}
	if r.Count <= 0 {
		r.Count = 3
	}

	raw, err := c.model.Generate(ctx, Prompt{
		System: itinerarySystemPrompt,
		Turns:  []Turn{{Role: domain.RoleUser, Text: alternativesPrompt(r)}},
		JSON:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("generator.Client.SuggestAlternatives: %w", asGenerationFailure(err))
	}

	alts, err := ParseAlternatives(raw)
	if err != nil {
		return nil, fmt.Errorf("generator.Client.SuggestAlternatives: %w", err)
	}
	return alts, nil
}

func (c *Client) Reply(ctx context.Context, system string, conversation []domain.Message) (string, error) {
	turns := turnsFrom(conversation)
	if len(turns) == 0 {
		return "", fmt.Errorf("generator.Client.Reply: %w: empty conversation", domain.ErrGenerationFailure)
	}

	raw, err := c.model.Generate(ctx, Prompt{System: system, Turns: turns})
	if err != nil {
		return "", fmt.Errorf("generator.Client.Reply: %w", asGenerationFailure(err))
	}
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", fmt.Errorf("generator.Client.Reply: %w: empty reply", domain.ErrGenerationFailure)
	}
	return text, nil
}

// turnsFrom converts the tail of a transcript into alternating model turns.
// Consecutive messages with the same role are merged and leading assistant
// messages are dropped, since the model expects the user to speak first.
func turnsFrom(conversation []domain.Message) []Turn {
	if len(conversation) > maxConversation {
		conversation = conversation[len(conversation)-maxConversation:]
	}
	var turns []Turn
	for _, m := range conversation {
		text := strings.TrimSpace(m.Content)
		if text == "" {
			continue
		}
		if len(turns) == 0 && m.Role != domain.RoleUser {
			continue
		}
		if n := len(turns); n > 0 && turns[n-1].Role == m.Role {
			turns[n-1].Text += "\n\n" + text
			continue
		}
		turns = append(turns, Turn{Role: m.Role, Text: text})
	}
	return turns
}

func asGenerationFailure(err error) error {
	if isGenerationFailure(err) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrGenerationFailure, err)
}
