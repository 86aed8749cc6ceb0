package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/pkordes/tripchat/backend/internal/domain"
	"github.com/pkordes/tripchat/backend/internal/repo"
)

// ItineraryService is the typed store facade used by the conversation engine.
// Single-record reads and writes go straight to the repos; multi-record
// itinerary changes go through Commit so they land atomically.
type ItineraryService struct {
	repos repo.Repos
	tx    repo.Transactor
}

// NewItineraryService constructs an ItineraryService. repos serves plain reads
// and writes; tx opens the transaction used by Commit.
func NewItineraryService(repos repo.Repos, tx repo.Transactor) *ItineraryService {
	return &ItineraryService{repos: repos, tx: tx}
}

// Commit describes one atomic itinerary change.
type Commit struct {
	TripID uuid.UUID

	// Trip, when set, overwrites the trip's mutable fields first.
	Trip *domain.Trip

	// Component, when set, is upserted as the trip's active component of its type.
	Component *domain.Component

	// Replace lists days whose day_numbers already exist. The stored days with
	// those numbers are deleted and these are inserted in their place.
	Replace []domain.ItineraryDay

	// Append lists days with new day_numbers.
	Append []domain.ItineraryDay

	// Update lists existing days overwritten in place by ID.
	Update []domain.ItineraryDay
}

// GetTrip returns a trip by ID.
func (s *ItineraryService) GetTrip(ctx context.Context, id uuid.UUID) (domain.Trip, error) {
	t, err := s.repos.Trips.GetByID(ctx, id)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.ItineraryService.GetTrip: %w", err)
	}
	return t, nil
}

// UpdateTrip overwrites the trip's mutable fields.
func (s *ItineraryService) UpdateTrip(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	t, err := s.repos.Trips.Update(ctx, trip)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.ItineraryService.UpdateTrip: %w", err)
	}
	return t, nil
}

// ListDays returns the trip's days ordered by day_number. Never nil.
func (s *ItineraryService) ListDays(ctx context.Context, tripID uuid.UUID) ([]domain.ItineraryDay, error) {
	days, err := s.repos.Days.ListByTripID(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("service.ItineraryService.ListDays: %w", err)
	}
	if days == nil {
		return []domain.ItineraryDay{}, nil
	}
	domain.SortDays(days)
	return days, nil
}

// GetDay returns one day by number.
func (s *ItineraryService) GetDay(ctx context.Context, tripID uuid.UUID, dayNumber int) (domain.ItineraryDay, error) {
	d, err := s.repos.Days.GetByNumber(ctx, tripID, dayNumber)
	if err != nil {
		return domain.ItineraryDay{}, fmt.Errorf("service.ItineraryService.GetDay: %w", err)
	}
	return d, nil
}

// CreateDay inserts a single day.
func (s *ItineraryService) CreateDay(ctx context.Context, day domain.ItineraryDay) (domain.ItineraryDay, error) {
	d, err := s.repos.Days.Create(ctx, day)
	if err != nil {
		return domain.ItineraryDay{}, fmt.Errorf("service.ItineraryService.CreateDay: %w", err)
	}
	return d, nil
}

// UpdateDay overwrites a single day's date and activities.
func (s *ItineraryService) UpdateDay(ctx context.Context, day domain.ItineraryDay) (domain.ItineraryDay, error) {
	d, err := s.repos.Days.Update(ctx, day)
	if err != nil {
		return domain.ItineraryDay{}, fmt.Errorf("service.ItineraryService.UpdateDay: %w", err)
	}
	return d, nil
}

// DeleteDay removes a single day by ID.
func (s *ItineraryService) DeleteDay(ctx context.Context, tripID, dayID uuid.UUID) error {
	if err := s.repos.Days.Delete(ctx, tripID, dayID); err != nil {
		return fmt.Errorf("service.ItineraryService.DeleteDay: %w", err)
	}
	return nil
}

// ListComponents returns the trip's active components. Never nil.
func (s *ItineraryService) ListComponents(ctx context.Context, tripID uuid.UUID) ([]domain.Component, error) {
	cs, err := s.repos.Components.ListByTripID(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("service.ItineraryService.ListComponents: %w", err)
	}
	if cs == nil {
		return []domain.Component{}, nil
	}
	return cs, nil
}

// GetComponent returns the trip's active component of type t.
func (s *ItineraryService) GetComponent(ctx context.Context, tripID uuid.UUID, t domain.ComponentType) (domain.Component, error) {
	c, err := s.repos.Components.GetByType(ctx, tripID, t)
	if err != nil {
		return domain.Component{}, fmt.Errorf("service.ItineraryService.GetComponent: %w", err)
	}
	return c, nil
}

// UpsertComponent stores c as the trip's active component of its type.
func (s *ItineraryService) UpsertComponent(ctx context.Context, c domain.Component) (domain.Component, error) {
	if !c.Type.Valid() {
		return domain.Component{}, fmt.Errorf("%w: unknown component type %q", domain.ErrValidation, c.Type)
	}
	out, err := s.repos.Components.Upsert(ctx, c)
	if err != nil {
		return domain.Component{}, fmt.Errorf("service.ItineraryService.UpsertComponent: %w", err)
	}
	return out, nil
}

// DeleteComponent removes the trip's component of type t.
func (s *ItineraryService) DeleteComponent(ctx context.Context, tripID uuid.UUID, t domain.ComponentType) error {
	if err := s.repos.Components.Delete(ctx, tripID, t); err != nil {
		return fmt.Errorf("service.ItineraryService.DeleteComponent: %w", err)
	}
	return nil
}

// Commit applies c in one transaction and returns the trip's days afterwards.
// The day_number set is re-checked before commit; if it is no longer exactly
// {1..N} the transaction rolls back and the error wraps domain.ErrInvalidRange.
func (s *ItineraryService) Commit(ctx context.Context, c Commit) ([]domain.ItineraryDay, error) {
	if c.Component != nil && !c.Component.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown component type %q", domain.ErrValidation, c.Component.Type)
	}

	var result []domain.ItineraryDay
	err := s.tx.InTx(ctx, func(r repo.Repos) error {
		if c.Trip != nil {
			if _, err := r.Trips.Update(ctx, *c.Trip); err != nil {
				return err
			}
		}
		if c.Component != nil {
			comp := *c.Component
			comp.TripID = c.TripID
			if _, err := r.Components.Upsert(ctx, comp); err != nil {
				return err
			}
		}

		if len(c.Replace) > 0 {
			numbers := make([]int, len(c.Replace))
			for i, d := range c.Replace {
				numbers[i] = d.DayNumber
			}
			deleted, err := r.Days.DeleteByNumbers(ctx, c.TripID, numbers)
			if err != nil {
				return err
			}
			if deleted != int64(len(numbers)) {
				return fmt.Errorf("%w: %d of %d replaced days existed", domain.ErrInvalidRange, deleted, len(numbers))
			}
		}
		for _, d := range c.Update {
			d.TripID = c.TripID
			if _, err := r.Days.Update(ctx, d); err != nil {
				return err
			}
		}
		for _, group := range [][]domain.ItineraryDay{c.Replace, c.Append} {
			for _, d := range group {
				d.TripID = c.TripID
				if _, err := r.Days.Create(ctx, d); err != nil {
					return err
				}
			}
		}

		days, err := r.Days.ListByTripID(ctx, c.TripID)
		if err != nil {
			return err
		}
		if err := domain.ValidateDayNumbers(days); err != nil {
			return err
		}
		result = days
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("service.ItineraryService.Commit: %w", err)
	}
	domain.SortDays(result)
	return result, nil
}
