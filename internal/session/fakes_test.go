package session_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/tripchat/backend/internal/domain"
	"github.com/pkordes/tripchat/backend/internal/generator"
	"github.com/pkordes/tripchat/backend/internal/geocode"
	"github.com/pkordes/tripchat/backend/internal/intent"
	"github.com/pkordes/tripchat/backend/internal/mapcache"
	"github.com/pkordes/tripchat/backend/internal/mutation"
	"github.com/pkordes/tripchat/backend/internal/session"
)

// ---- store -----------------------------------------------------------------------

type fakeStore struct {
	mu   sync.Mutex
	trip domain.Trip
	days []domain.ItineraryDay
}

func newFakeStore() *fakeStore {
	trip := domain.Trip{
		ID:          uuid.New(),
		Destination: "Lisbon",
		Country:     "Portugal",
		StartDate:   time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2025, 5, 3, 0, 0, 0, 0, time.UTC),
		Adults:      2,
		Status:      domain.TripStatusDraft,
	}
	lat, lon := 38.6916, -9.2160
	days := []domain.ItineraryDay{
		{TripID: trip.ID, DayNumber: 1, Date: trip.DateOf(1), Activities: []domain.Activity{
			{Time: "08:00", Title: "Flight TP 1351", Category: domain.CategoryFlight},
			{Time: "14:00", Title: "Hotel check-in", Category: domain.CategoryHotel},
		}},
		{TripID: trip.ID, DayNumber: 2, Date: trip.DateOf(2), Activities: []domain.Activity{
			{Time: "10:00", Title: "Belém Tower", Category: domain.CategoryAttraction,
				Location: domain.Location{Name: "Belém Tower", Lat: &lat, Lon: &lon}},
			{Time: "13:00", Title: "Lunch at Time Out Market", Category: domain.CategoryRestaurant,
				Location: domain.Location{Name: "Time Out Market"}},
		}},
		{TripID: trip.ID, DayNumber: 3, Date: trip.DateOf(3), Activities: []domain.Activity{
			{Time: "11:00", Title: "Sintra day trip", Category: domain.CategoryAttraction},
		}},
	}
	return &fakeStore{trip: trip, days: days}
}

func (s *fakeStore) GetTrip(_ context.Context, id uuid.UUID) (domain.Trip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != s.trip.ID {
		return domain.Trip{}, domain.ErrNotFound
	}
	return s.trip, nil
}

func (s *fakeStore) ListDays(_ context.Context, _ uuid.UUID) ([]domain.ItineraryDay, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ItineraryDay(nil), s.days...), nil
}

func (s *fakeStore) GetDay(_ context.Context, _ uuid.UUID, n int) (domain.ItineraryDay, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.days {
		if d.DayNumber == n {
			return d, nil
		}
	}
	return domain.ItineraryDay{}, domain.ErrNotFound
}

var _ session.Store = (*fakeStore)(nil)

// ---- executor --------------------------------------------------------------------

type fakeExecutor struct {
	mu     sync.Mutex
	calls  []domain.Mutation
	apply  func(ctx context.Context, m domain.Mutation) (mutation.Outcome, error)
	policy mutation.MandatoryPolicy
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{policy: mutation.NewKeywordPolicy()}
}

func (e *fakeExecutor) Apply(ctx context.Context, _ uuid.UUID, m domain.Mutation, _ []domain.Message) (mutation.Outcome, error) {
	e.mu.Lock()
	e.calls = append(e.calls, m)
	apply := e.apply
	e.mu.Unlock()
	if apply != nil {
		return apply(ctx, m)
	}
	return mutation.Outcome{Mutation: m, AffectedDays: []int{1}}, nil
}

func (e *fakeExecutor) IsMandatory(a domain.Activity) bool { return e.policy.IsMandatory(a) }

func (e *fakeExecutor) Calls() []domain.Mutation {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]domain.Mutation(nil), e.calls...)
}

var _ session.Executor = (*fakeExecutor)(nil)

// ---- classifier ------------------------------------------------------------------

type fakeClassifier struct {
	classify func(in intent.Input) intent.Intent
}

func (c *fakeClassifier) Classify(_ context.Context, in intent.Input) intent.Intent {
	return c.classify(in)
}

func classifyAs(got intent.Intent) *fakeClassifier {
	return &fakeClassifier{classify: func(intent.Input) intent.Intent { return got }}
}

var _ session.Classifier = (*fakeClassifier)(nil)

// ---- alternatives ----------------------------------------------------------------

type fakeAlternatives struct {
	mu       sync.Mutex
	requests []generator.AlternativesRequest
	err      error
	// wait, when set, blocks every call until it is closed.
	wait chan struct{}
}

func (a *fakeAlternatives) SuggestAlternatives(_ context.Context, r generator.AlternativesRequest) ([]domain.Activity, error) {
	if a.wait != nil {
		<-a.wait
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.requests = append(a.requests, r)
	if a.err != nil {
		return nil, a.err
	}
	n := len(a.requests)
	return []domain.Activity{
		{Time: "10:00", Title: fmt.Sprintf("Idea A%d", n), Category: domain.CategoryAttraction},
		{Time: "10:00", Title: fmt.Sprintf("Idea B%d", n), Category: domain.CategoryAttraction},
	}, nil
}

var _ session.Alternatives = (*fakeAlternatives)(nil)

// ---- transcript ------------------------------------------------------------------

type memTranscript struct {
	mu        sync.Mutex
	messages  []domain.Message
	appendErr error
}

func (t *memTranscript) Append(_ context.Context, m domain.Message) (domain.Message, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.appendErr != nil {
		return domain.Message{}, t.appendErr
	}
	t.messages = append(t.messages, m)
	return m, nil
}

func (t *memTranscript) ListByTripID(_ context.Context, tripID uuid.UUID) ([]domain.Message, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []domain.Message
	for _, m := range t.messages {
		if m.TripID == tripID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (t *memTranscript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.messages)
}

var _ session.Transcript = (*memTranscript)(nil)

// ---- geocoder --------------------------------------------------------------------

type fixedGeo struct{}

func (fixedGeo) Resolve(_ context.Context, q geocode.Query) geocode.Result {
	if q.Explicit != nil {
		return geocode.Result{Coordinate: *q.Explicit, Source: geocode.SourceExplicit}
	}
	return geocode.Result{Coordinate: domain.Coordinate{Lat: 38.7223, Lon: -9.1393}, Source: geocode.SourceTable}
}

var _ mapcache.Geocoder = fixedGeo{}
