package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ComponentType is the kind of bookable trip component.
type ComponentType string

const (
	ComponentHotel  ComponentType = "hotel"
	ComponentFlight ComponentType = "flight"
	ComponentCar    ComponentType = "car"
)

// Valid reports whether t is one of the known component types.
func (t ComponentType) Valid() bool {
	switch t {
	case ComponentHotel, ComponentFlight, ComponentCar:
		return true
	}
	return false
}

// Component is a transport or lodging choice attached to a trip.
// At most one Component per Type is active for a trip; writes are upserts.
// Metadata is type-specific JSON; flights decode into FlightMetadata.
type Component struct {
	ID          uuid.UUID       `json:"id"`
	TripID      uuid.UUID       `json:"trip_id"`
	Type        ComponentType   `json:"type"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Price       float64         `json:"price"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// FlightLeg describes one direction of a flight booking.
type FlightLeg struct {
	Airline   string `json:"airline"`
	Departure string `json:"departure_time"`
	Arrival   string `json:"arrival_time"`
	Date      string `json:"date"`
}

// FlightMetadata is the Metadata shape for flight components.
type FlightMetadata struct {
	Outbound FlightLeg  `json:"outbound"`
	Return   *FlightLeg `json:"return,omitempty"`
}

// FlightMetadata decodes the component metadata as flight legs.
// Returns ErrValidation if the component is not a flight or the metadata is malformed.
func (c Component) FlightMetadata() (FlightMetadata, error) {
	if c.Type != ComponentFlight {
		return FlightMetadata{}, fmt.Errorf("%w: component %q is not a flight", ErrValidation, c.Type)
	}
	var m FlightMetadata
	if len(c.Metadata) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(c.Metadata, &m); err != nil {
		return FlightMetadata{}, fmt.Errorf("%w: flight metadata: %v", ErrValidation, err)
	}
	return m, nil
}
