package session

import "github.com/pkordes/tripchat/backend/internal/domain"

// State is the conversation state. Exactly one of Idle, Classifying,
// AwaitingConfirmation or Executing holds at any time.
type State interface {
	Name() string
	isState()
}

// Idle waits for input.
type Idle struct{}

// Classifying is interpreting Utterance.
type Classifying struct {
	Utterance string
}

// AwaitingConfirmation holds the one pending action until the traveler
// confirms or declines it. It never times out.
type AwaitingConfirmation struct {
	Pending domain.PendingAction
}

// Executing is applying Mutation.
type Executing struct {
	Mutation domain.Mutation
}

func (Idle) Name() string                 { return "idle" }
func (Classifying) Name() string          { return "classifying" }
func (AwaitingConfirmation) Name() string { return "awaiting_confirmation" }
func (Executing) Name() string            { return "executing" }

func (Idle) isState()                 {}
func (Classifying) isState()          {}
func (AwaitingConfirmation) isState() {}
func (Executing) isState()            {}

// busy reports whether st refuses new input.
func busy(st State) bool {
	switch st.(type) {
	case Classifying, Executing:
		return true
	}
	return false
}

// Feedback is a thumbs-up or thumbs-down mark on one activity.
type Feedback string

const (
	FeedbackNone     Feedback = ""
	FeedbackLiked    Feedback = "liked"
	FeedbackDisliked Feedback = "disliked"
)

// Valid reports whether f is a known mark; FeedbackNone clears a mark.
func (f Feedback) Valid() bool {
	switch f {
	case FeedbackNone, FeedbackLiked, FeedbackDisliked:
		return true
	}
	return false
}

// FeedbackKey addresses one activity by day number and 0-based index.
type FeedbackKey struct {
	Day   int `json:"day"`
	Index int `json:"index"`
}

// FeedbackMark is one entry of Snapshot.Feedback.
type FeedbackMark struct {
	FeedbackKey
	Feedback Feedback `json:"feedback"`
}
