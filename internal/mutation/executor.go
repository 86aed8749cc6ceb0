// Package mutation applies itinerary mutations: extending a trip, replanning a
// range of days, replacing a component, and replacing a single activity.
//
// Every operation computes its new content before touching the store and then
// commits in a single transaction, so a failed generation or write leaves the
// trip exactly as it was. Mutations against the same trip are serialized.
package mutation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pkordes/tripchat/backend/internal/domain"
	"github.com/pkordes/tripchat/backend/internal/generator"
	"github.com/pkordes/tripchat/backend/internal/service"
)

// Store is the part of the itinerary store the executor needs.
// *service.ItineraryService satisfies it.
type Store interface {
	GetTrip(ctx context.Context, id uuid.UUID) (domain.Trip, error)
	ListDays(ctx context.Context, tripID uuid.UUID) ([]domain.ItineraryDay, error)
	GetDay(ctx context.Context, tripID uuid.UUID, dayNumber int) (domain.ItineraryDay, error)
	ListComponents(ctx context.Context, tripID uuid.UUID) ([]domain.Component, error)
	Commit(ctx context.Context, c service.Commit) ([]domain.ItineraryDay, error)
}

// Invalidator drops cached per-day state. *mapcache.Registry satisfies it.
type Invalidator interface {
	Invalidate(tripID uuid.UUID, days ...int)
}

// Outcome reports what a mutation changed.
type Outcome struct {
	Mutation     domain.Mutation
	Trip         domain.Trip
	AffectedDays []int
	Days         []domain.ItineraryDay
}

// Executor applies mutations.
type Executor struct {
	store  Store
	gen    generator.Generator
	inval  Invalidator
	policy MandatoryPolicy
	log    *slog.Logger

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

// NewExecutor wires an Executor. A nil policy uses NewKeywordPolicy; a nil
// invalidator disables cache invalidation.
func NewExecutor(store Store, gen generator.Generator, inval Invalidator, policy MandatoryPolicy, log *slog.Logger) *Executor {
	if policy == nil {
		policy = NewKeywordPolicy()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Executor{
		store:  store,
		gen:    gen,
		inval:  inval,
		policy: policy,
		log:    log,
		locks:  make(map[uuid.UUID]*sync.Mutex),
	}
}

// IsMandatory reports whether a is protected by the executor's policy.
func (e *Executor) IsMandatory(a domain.Activity) bool {
	return e.policy.IsMandatory(a)
}

// Apply dispatches m to the matching operation.
func (e *Executor) Apply(ctx context.Context, tripID uuid.UUID, m domain.Mutation, conversation []domain.Message) (Outcome, error) {
	switch m := m.(type) {
	case domain.ExtendTrip:
		return e.ExtendTrip(ctx, tripID, m.Days, conversation)
	case domain.ReplanRange:
		return e.ReplanRange(ctx, tripID, m, conversation)
	case domain.ReplaceComponent:
		return e.ReplaceComponent(ctx, tripID, m.Option, conversation)
	case domain.ReplaceActivity:
		return e.ReplaceActivity(ctx, tripID, m.Day, m.Index, m.Alternative)
	default:
		return Outcome{}, fmt.Errorf("mutation.Executor.Apply: %w: unsupported mutation %T", domain.ErrValidation, m)
	}
}

// ExtendTrip appends days new days after the current last day and moves the
// end date forward by the same amount. Existing days are not touched.
func (e *Executor) ExtendTrip(ctx context.Context, tripID uuid.UUID, days int, conversation []domain.Message) (Outcome, error) {
	m := domain.ExtendTrip{Days: days}
	if days < 1 {
		return Outcome{}, fmt.Errorf("mutation.Executor.ExtendTrip: %w: days must be positive, got %d", domain.ErrInvalidRange, days)
	}
	unlock := e.lock(tripID)
	defer unlock()

	trip, existing, comps, err := e.load(ctx, tripID)
	if err != nil {
		return Outcome{}, fmt.Errorf("mutation.Executor.ExtendTrip: %w", err)
	}

	extended := trip
	extended.EndDate = trip.EndDate.AddDate(0, 0, days)
	last := len(existing)

	generated, err := e.gen.GenerateDays(ctx, generator.Request{
		Trip:         extended,
		Components:   comps,
		Conversation: conversation,
		StartDay:     last + 1,
		EndDay:       last + days,
		PriorDays:    existing,
		Instructions: "These days extend the trip. Continue naturally from the last existing day.",
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("mutation.Executor.ExtendTrip: %w", err)
	}

	return e.commit(ctx, m, extended, affected(last+1, last+days), service.Commit{
		TripID: tripID,
		Trip:   &extended,
		Append: generated,
	})
}

// ReplanRange regenerates days StartDay..EndDay (EndDay 0 means the last day).
// Days outside the range keep their numbers and content. A new destination is
// saved together with the regenerated days. Mandatory activities of the
// replaced days are carried over unless the destination changes.
func (e *Executor) ReplanRange(ctx context.Context, tripID uuid.UUID, m domain.ReplanRange, conversation []domain.Message) (Outcome, error) {
	unlock := e.lock(tripID)
	defer unlock()

	trip, existing, comps, err := e.load(ctx, tripID)
	if err != nil {
		return Outcome{}, fmt.Errorf("mutation.Executor.ReplanRange: %w", err)
	}

	last := len(existing)
	start, end := m.StartDay, m.EndDay
	if end == 0 {
		end = last
	}
	if last == 0 || start < 1 || end < start || end > last {
		return Outcome{}, fmt.Errorf("mutation.Executor.ReplanRange: %w: days %d..%d on a %d-day itinerary",
			domain.ErrInvalidRange, start, end, last)
	}

	target := trip
	var tripUpdate *domain.Trip
	instructions := ""
	if dest := strings.TrimSpace(m.NewDestination); dest != "" && !strings.EqualFold(dest, trip.Destination) {
		target.Destination = dest
		tripUpdate = &target
		instructions = fmt.Sprintf("The destination for these days is now %s.", dest)
	}

	var kept []domain.ItineraryDay
	if tripUpdate == nil {
		kept = existing[start-1 : end]
		if names := mandatoryTitles(kept, e.policy); len(names) > 0 {
			instructions = "Keep these fixed activities at their current times: " + strings.Join(names, "; ") + "."
		}
	}

	generated, err := e.gen.GenerateDays(ctx, generator.Request{
		Trip:         target,
		Components:   comps,
		Conversation: conversation,
		StartDay:     start,
		EndDay:       end,
		PriorDays:    existing[:start-1],
		Instructions: instructions,
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("mutation.Executor.ReplanRange: %w", err)
	}
	if kept != nil {
		generated = preserveMandatory(kept, generated, e.policy)
	}

	return e.commit(ctx, domain.ReplanRange{StartDay: start, EndDay: end, NewDestination: m.NewDestination},
		target, affected(start, end), service.Commit{
			TripID:  tripID,
			Trip:    tripUpdate,
			Replace: generated,
		})
}

// ReplaceComponent makes option the trip's active component of its type and
// regenerates the days that depend on it: only the first and last day for a
// flight, every day for a hotel or car.
func (e *Executor) ReplaceComponent(ctx context.Context, tripID uuid.UUID, option domain.Component, conversation []domain.Message) (Outcome, error) {
	m := domain.ReplaceComponent{Option: option}
	if !option.Type.Valid() {
		return Outcome{}, fmt.Errorf("mutation.Executor.ReplaceComponent: %w: unknown component type %q", domain.ErrValidation, option.Type)
	}
	unlock := e.lock(tripID)
	defer unlock()

	trip, existing, comps, err := e.load(ctx, tripID)
	if err != nil {
		return Outcome{}, fmt.Errorf("mutation.Executor.ReplaceComponent: %w", err)
	}
	option.TripID = tripID
	comps = withComponent(comps, option)

	last := len(existing)
	var generated []domain.ItineraryDay
	var days []int

	switch {
	case last == 0:
		// Nothing planned yet; only the component changes.
	case option.Type == domain.ComponentFlight:
		days = []int{1}
		if last > 1 {
			days = append(days, last)
		}
		generated, err = e.regenerateEnds(ctx, trip, comps, conversation, existing, days, option)
	default:
		days = affected(1, last)
		generated, err = e.gen.GenerateDays(ctx, generator.Request{
			Trip:         trip,
			Components:   comps,
			Conversation: conversation,
			StartDay:     1,
			EndDay:       last,
			Instructions: fmt.Sprintf("The %s changed to %s; plan every day around it.", option.Type, option.Title),
		})
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("mutation.Executor.ReplaceComponent: %w", err)
	}

	return e.commit(ctx, m, trip, days, service.Commit{
		TripID:    tripID,
		Component: &option,
		Replace:   generated,
	})
}

// regenerateEnds generates each of days on its own, with the middle days as
// read-only context.
func (e *Executor) regenerateEnds(ctx context.Context, trip domain.Trip, comps []domain.Component,
	conversation []domain.Message, existing []domain.ItineraryDay, days []int, flight domain.Component) ([]domain.ItineraryDay, error) {
	var middle []domain.ItineraryDay
	if len(existing) > 2 {
		middle = existing[1 : len(existing)-1]
	}

	out := make([][]domain.ItineraryDay, len(days))
	g, gctx := errgroup.WithContext(ctx)
	for i, n := range days {
		g.Go(func() error {
			instr := fmt.Sprintf("The flight changed to %s. Plan day %d around the new flight times.", flight.Title, n)
			res, err := e.gen.GenerateDays(gctx, generator.Request{
				Trip:         trip,
				Components:   comps,
				Conversation: conversation,
				StartDay:     n,
				EndDay:       n,
				PriorDays:    middle,
				Instructions: instr,
			})
			out[i] = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var generated []domain.ItineraryDay
	for _, res := range out {
		generated = append(generated, res...)
	}
	return generated, nil
}

// ReplaceActivity overwrites the activity at (day, index) with alt. Mandatory
// activities are refused with domain.ErrMandatoryActivityProtected.
func (e *Executor) ReplaceActivity(ctx context.Context, tripID uuid.UUID, day, index int, alt domain.Activity) (Outcome, error) {
	m := domain.ReplaceActivity{Day: day, Index: index, Alternative: alt}
	alt.Title = strings.TrimSpace(alt.Title)
	if alt.Title == "" {
		return Outcome{}, fmt.Errorf("mutation.Executor.ReplaceActivity: %w: alternative has no title", domain.ErrValidation)
	}
	alt.Category = domain.NormalizeCategory(alt.Category)

	unlock := e.lock(tripID)
	defer unlock()

	trip, err := e.store.GetTrip(ctx, tripID)
	if err != nil {
		return Outcome{}, fmt.Errorf("mutation.Executor.ReplaceActivity: %w", err)
	}
	current, err := e.store.GetDay(ctx, tripID, day)
	if errors.Is(err, domain.ErrNotFound) {
		return Outcome{}, fmt.Errorf("mutation.Executor.ReplaceActivity: %w: day %d does not exist", domain.ErrInvalidRange, day)
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("mutation.Executor.ReplaceActivity: %w", err)
	}
	if index < 0 || index >= len(current.Activities) {
		return Outcome{}, fmt.Errorf("mutation.Executor.ReplaceActivity: %w: day %d has no activity %d",
			domain.ErrInvalidRange, day, index)
	}
	if old := current.Activities[index]; e.policy.IsMandatory(old) {
		return Outcome{}, fmt.Errorf("mutation.Executor.ReplaceActivity: %w: %q", domain.ErrMandatoryActivityProtected, old.Title)
	}

	updated := current
	updated.Activities = append([]domain.Activity(nil), current.Activities...)
	updated.Activities[index] = alt

	return e.commit(ctx, m, trip, []int{day}, service.Commit{
		TripID: tripID,
		Update: []domain.ItineraryDay{updated},
	})
}

func (e *Executor) load(ctx context.Context, tripID uuid.UUID) (domain.Trip, []domain.ItineraryDay, []domain.Component, error) {
	trip, err := e.store.GetTrip(ctx, tripID)
	if err != nil {
		return domain.Trip{}, nil, nil, err
	}
	days, err := e.store.ListDays(ctx, tripID)
	if err != nil {
		return domain.Trip{}, nil, nil, err
	}
	if err := domain.ValidateDayNumbers(days); err != nil {
		return domain.Trip{}, nil, nil, err
	}
	domain.SortDays(days)
	comps, err := e.store.ListComponents(ctx, tripID)
	if err != nil {
		return domain.Trip{}, nil, nil, err
	}
	return trip, days, comps, nil
}

// commit writes c and invalidates the affected days. Store failures other
// than an invariant violation are reported as domain.ErrPersistenceFailure.
func (e *Executor) commit(ctx context.Context, m domain.Mutation, trip domain.Trip, days []int, c service.Commit) (Outcome, error) {
	result, err := e.store.Commit(ctx, c)
	if err != nil {
		if !errors.Is(err, domain.ErrInvalidRange) && !errors.Is(err, domain.ErrValidation) {
			err = fmt.Errorf("%w: %w", domain.ErrPersistenceFailure, err)
		}
		e.log.Error("mutation commit failed", "trip_id", c.TripID, "mutation", m.String(), "error", err)
		return Outcome{}, fmt.Errorf("mutation.Executor.%s: %w", methodName(m), err)
	}

	if e.inval != nil && len(days) > 0 {
		e.inval.Invalidate(c.TripID, days...)
	}
	e.log.Info("mutation applied", "trip_id", c.TripID, "mutation", m.String(), "affected_days", days)
	return Outcome{Mutation: m, Trip: trip, AffectedDays: days, Days: result}, nil
}

// lock serializes mutations per trip and returns the matching unlock.
func (e *Executor) lock(tripID uuid.UUID) func() {
	e.mu.Lock()
	l, ok := e.locks[tripID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[tripID] = l
	}
	e.mu.Unlock()
	l.Lock()
	return l.Unlock
}

func methodName(m domain.Mutation) string {
	switch m.Kind() {
	case domain.KindExtendTrip:
		return "ExtendTrip"
	case domain.KindReplanRange:
		return "ReplanRange"
	case domain.KindReplaceComponent:
		return "ReplaceComponent"
	default:
		return "ReplaceActivity"
	}
}

func affected(from, to int) []int {
	out := make([]int, 0, to-from+1)
	for n := from; n <= to; n++ {
		out = append(out, n)
	}
	return out
}

func withComponent(comps []domain.Component, c domain.Component) []domain.Component {
	out := make([]domain.Component, 0, len(comps)+1)
	for _, existing := range comps {
		if existing.Type != c.Type {
			out = append(out, existing)
		}
	}
	return append(out, c)
}

func mandatoryTitles(days []domain.ItineraryDay, p MandatoryPolicy) []string {
	var names []string
	for _, d := range days {
		for _, a := range d.Activities {
			if p.IsMandatory(a) {
				names = append(names, fmt.Sprintf("day %d %s %s", d.DayNumber, a.Time, a.Title))
			}
		}
	}
	return names
}

// preserveMandatory puts back any mandatory activity of old that the generator
// dropped from the replacement day with the same number.
func preserveMandatory(old, generated []domain.ItineraryDay, p MandatoryPolicy) []domain.ItineraryDay {
	byNumber := make(map[int]domain.ItineraryDay, len(old))
	for _, d := range old {
		byNumber[d.DayNumber] = d
	}
	for i, d := range generated {
		prev, ok := byNumber[d.DayNumber]
		if !ok {
			continue
		}
		present := make(map[string]bool, len(d.Activities))
		for _, a := range d.Activities {
			present[strings.ToLower(a.Title)] = true
		}
		added := false
		for _, a := range prev.Activities {
			if p.IsMandatory(a) && !present[strings.ToLower(a.Title)] {
				d.Activities = append(d.Activities, a)
				added = true
			}
		}
		if added {
			sort.SliceStable(d.Activities, func(x, y int) bool { return d.Activities[x].Time < d.Activities[y].Time })
			generated[i] = d
		}
	}
	return generated
}
