package mutation_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/pkordes/tripchat/backend/internal/domain"
	"github.com/pkordes/tripchat/backend/internal/generator"
	"github.com/pkordes/tripchat/backend/internal/mutation"
	"github.com/pkordes/tripchat/backend/internal/service"
)

// memStore is an in-memory mutation.Store with the same commit semantics as
// service.ItineraryService: all or nothing, invariant checked last.
type memStore struct {
	mu         sync.Mutex
	trip       domain.Trip
	days       map[int]domain.ItineraryDay
	components map[domain.ComponentType]domain.Component
	commitErr  error
	commits    int
}

func newMemStore(trip domain.Trip, days ...domain.ItineraryDay) *memStore {
	s := &memStore{trip: trip, days: map[int]domain.ItineraryDay{}, components: map[domain.ComponentType]domain.Component{}}
	for _, d := range days {
		s.days[d.DayNumber] = d
	}
	return s
}

func (s *memStore) GetTrip(_ context.Context, id uuid.UUID) (domain.Trip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != s.trip.ID {
		return domain.Trip{}, domain.ErrNotFound
	}
	return s.trip, nil
}

func (s *memStore) ListDays(_ context.Context, _ uuid.UUID) ([]domain.ItineraryDay, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedDays(), nil
}

func (s *memStore) GetDay(_ context.Context, _ uuid.UUID, n int) (domain.ItineraryDay, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.days[n]
	if !ok {
		return domain.ItineraryDay{}, domain.ErrNotFound
	}
	return cloneDay(d), nil
}

func (s *memStore) ListComponents(_ context.Context, _ uuid.UUID) ([]domain.Component, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Component{}
	for _, c := range s.components {
		out = append(out, c)
	}
	return out, nil
}

func (s *memStore) Commit(_ context.Context, c service.Commit) ([]domain.ItineraryDay, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.commitErr != nil {
		return nil, s.commitErr
	}

	days := make(map[int]domain.ItineraryDay, len(s.days))
	for n, d := range s.days {
		days[n] = d
	}
	for _, d := range c.Replace {
		if _, ok := days[d.DayNumber]; !ok {
			return nil, fmt.Errorf("%w: replaced day %d missing", domain.ErrInvalidRange, d.DayNumber)
		}
		delete(days, d.DayNumber)
	}
	for _, d := range c.Update {
		days[d.DayNumber] = cloneDay(d)
	}
	for _, group := range [][]domain.ItineraryDay{c.Replace, c.Append} {
		for _, d := range group {
			if _, ok := days[d.DayNumber]; ok {
				return nil, fmt.Errorf("duplicate day %d", d.DayNumber)
			}
			d.TripID = c.TripID
			days[d.DayNumber] = cloneDay(d)
		}
	}
	list := make([]domain.ItineraryDay, 0, len(days))
	for _, d := range days {
		list = append(list, d)
	}
	if err := domain.ValidateDayNumbers(list); err != nil {
		return nil, err
	}

	s.days = days
	if c.Trip != nil {
		s.trip = *c.Trip
	}
	if c.Component != nil {
		s.components[c.Component.Type] = *c.Component
	}
	s.commits++
	return s.sortedDays(), nil
}

func (s *memStore) sortedDays() []domain.ItineraryDay {
	out := make([]domain.ItineraryDay, 0, len(s.days))
	for _, d := range s.days {
		out = append(out, cloneDay(d))
	}
	domain.SortDays(out)
	return out
}

func (s *memStore) snapshot() (domain.Trip, []domain.ItineraryDay, map[domain.ComponentType]domain.Component) {
	s.mu.Lock()
	defer s.mu.Unlock()
	comps := make(map[domain.ComponentType]domain.Component, len(s.components))
	for k, v := range s.components {
		comps[k] = v
	}
	return s.trip, s.sortedDays(), comps
}

func cloneDay(d domain.ItineraryDay) domain.ItineraryDay {
	d.Activities = append([]domain.Activity(nil), d.Activities...)
	return d
}

var _ mutation.Store = (*memStore)(nil)

// fakeGenerator answers every GenerateDays call with freshly titled days and
// records the requests it saw.
type fakeGenerator struct {
	mu       sync.Mutex
	requests []generator.Request
	err      error
	version  int
}

func (g *fakeGenerator) GenerateDays(_ context.Context, r generator.Request) ([]domain.ItineraryDay, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, r)
	if g.err != nil {
		return nil, g.err
	}
	g.version++
	out := make([]domain.ItineraryDay, 0, r.Count())
	for n := r.StartDay; n <= r.EndDay; n++ {
		out = append(out, domain.ItineraryDay{
			TripID:    r.Trip.ID,
			DayNumber: n,
			Date:      r.Trip.DateOf(n),
			Activities: []domain.Activity{
				{Time: "10:00", Title: fmt.Sprintf("generated v%d day %d", g.version, n), Category: domain.CategoryAttraction},
			},
		})
	}
	return out, nil
}

func (g *fakeGenerator) SuggestAlternatives(_ context.Context, _ generator.AlternativesRequest) ([]domain.Activity, error) {
	return []domain.Activity{{Title: "alt"}}, nil
}

func (g *fakeGenerator) Reply(_ context.Context, _ string, _ []domain.Message) (string, error) {
	return "ok", nil
}

func (g *fakeGenerator) Requests() []generator.Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]generator.Request(nil), g.requests...)
}

var _ generator.Generator = (*fakeGenerator)(nil)

// recordingInvalidator remembers every invalidated day.
type recordingInvalidator struct {
	mu   sync.Mutex
	days []int
}

func (r *recordingInvalidator) Invalidate(_ uuid.UUID, days ...int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.days = append(r.days, days...)
}

func (r *recordingInvalidator) Days() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.days...)
}

var _ mutation.Invalidator = (*recordingInvalidator)(nil)
