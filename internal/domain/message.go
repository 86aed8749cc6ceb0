package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// PayloadKind discriminates the structured payload of a message.
type PayloadKind string

const (
	// PayloadAlternatives carries selectable replacement activities for one slot.
	PayloadAlternatives PayloadKind = "alternatives"
	// PayloadConfirmation carries the pending mutation the user is asked to approve.
	PayloadConfirmation PayloadKind = "confirmation"
	// PayloadProposal carries a replan range the assistant suggested in prose.
	PayloadProposal PayloadKind = "proposal"
)

// MessagePayload is optional structured data attached to an assistant message,
// rendered by the UI as selectable options.
type MessagePayload struct {
	Kind         PayloadKind  `json:"kind"`
	Day          int          `json:"day,omitempty"`
	Index        int          `json:"index,omitempty"`
	Alternatives []Activity   `json:"alternatives,omitempty"`
	Scope        string       `json:"scope,omitempty"`
	Proposal     *ReplanRange `json:"proposal,omitempty"`
}

// Message is one entry of a trip's conversation transcript.
type Message struct {
	ID        uuid.UUID       `json:"id"`
	TripID    uuid.UUID       `json:"trip_id"`
	Role      Role            `json:"role"`
	Content   string          `json:"content"`
	Payload   *MessagePayload `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
