// Package session runs the conversation about one trip: it takes the
// traveler's messages and UI actions, classifies them, asks for confirmation
// when a change is disruptive, applies mutations, and keeps the transcript.
//
// Only one classification or mutation runs per session at a time; input that
// arrives meanwhile is refused with domain.ErrMutationInProgress.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/tripchat/backend/internal/domain"
	"github.com/pkordes/tripchat/backend/internal/gate"
	"github.com/pkordes/tripchat/backend/internal/generator"
	"github.com/pkordes/tripchat/backend/internal/intent"
	"github.com/pkordes/tripchat/backend/internal/mapcache"
	"github.com/pkordes/tripchat/backend/internal/mutation"
)

// alternativesPerRequest is how many replacement ideas are fetched at once.
const alternativesPerRequest = 3

// Store reads the itinerary. *service.ItineraryService satisfies it.
type Store interface {
	GetTrip(ctx context.Context, id uuid.UUID) (domain.Trip, error)
	ListDays(ctx context.Context, tripID uuid.UUID) ([]domain.ItineraryDay, error)
	GetDay(ctx context.Context, tripID uuid.UUID, dayNumber int) (domain.ItineraryDay, error)
}

// Executor applies mutations. *mutation.Executor satisfies it.
type Executor interface {
	Apply(ctx context.Context, tripID uuid.UUID, m domain.Mutation, conversation []domain.Message) (mutation.Outcome, error)
	IsMandatory(a domain.Activity) bool
}

// Classifier interprets free text. *intent.Classifier satisfies it.
type Classifier interface {
	Classify(ctx context.Context, in intent.Input) intent.Intent
}

// Alternatives suggests replacement activities. generator.Generator satisfies it.
type Alternatives interface {
	SuggestAlternatives(ctx context.Context, r generator.AlternativesRequest) ([]domain.Activity, error)
}

// Transcript persists conversation messages. repo.MessageRepo satisfies it.
type Transcript interface {
	Append(ctx context.Context, m domain.Message) (domain.Message, error)
	ListByTripID(ctx context.Context, tripID uuid.UUID) ([]domain.Message, error)
}

// Maps hands out per-trip map caches. *mapcache.Registry satisfies it.
type Maps interface {
	For(trip domain.Trip) *mapcache.Cache
	Drop(tripID uuid.UUID)
}

// Deps are the collaborators shared by every session.
type Deps struct {
	Store        Store
	Executor     Executor
	Classifier   Classifier
	Alternatives Alternatives
	Transcript   Transcript
	Maps         Maps
}

// Snapshot is the externally visible session state.
type Snapshot struct {
	TripID    uuid.UUID             `json:"trip_id"`
	State     string                `json:"state"`
	Pending   *domain.PendingAction `json:"pending,omitempty"`
	Mutation  string                `json:"mutation,omitempty"`
	Replacing *intent.Slot          `json:"replacing,omitempty"`
	Feedback  []FeedbackMark        `json:"feedback"`
}

// Response is what one call added to the conversation.
type Response struct {
	Messages []domain.Message `json:"messages"`
	Outcome  *Outcome         `json:"outcome,omitempty"`
	// Error names the failure kind when a mutation was refused or failed.
	Error    string   `json:"error,omitempty"`
	Degraded bool     `json:"degraded,omitempty"`
	Session  Snapshot `json:"session"`
}

// Outcome summarizes an applied mutation.
type Outcome struct {
	Mutation     string                `json:"mutation"`
	AffectedDays []int                 `json:"affected_days"`
	Days         []domain.ItineraryDay `json:"days"`
	Trip         domain.Trip           `json:"trip"`
}

type replacement struct {
	slot  intent.Slot
	shown []domain.Activity
}

// Session is the conversation about one trip.
type Session struct {
	tripID uuid.UUID
	deps   Deps
	log    *slog.Logger
	now    func() time.Time

	mu         sync.Mutex
	state      State
	replacing  *replacement
	feedback   map[FeedbackKey]Feedback
	transcript []domain.Message
}

func newSession(tripID uuid.UUID, deps Deps, history []domain.Message, log *slog.Logger) *Session {
	return &Session{
		tripID:     tripID,
		deps:       deps,
		log:        log.With("trip_id", tripID),
		now:        func() time.Time { return time.Now().UTC() },
		state:      Idle{},
		feedback:   make(map[FeedbackKey]Feedback),
		transcript: history,
	}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Messages returns a copy of the transcript, oldest first.
func (s *Session) Messages() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Message(nil), s.transcript...)
}

// Submit handles a typed message. While a confirmation is pending, a yes or
// no answers it and anything else replaces the pending action.
func (s *Session) Submit(ctx context.Context, text string) (Response, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Response{}, fmt.Errorf("session.Session.Submit: %w: empty message", domain.ErrValidation)
	}

	s.mu.Lock()
	if busy(s.state) {
		s.mu.Unlock()
		return Response{}, fmt.Errorf("session.Session.Submit: %w", domain.ErrMutationInProgress)
	}
	if st, ok := s.state.(AwaitingConfirmation); ok {
		switch answerOf(text) {
		case answerYes:
			s.state = Executing{Mutation: st.Pending.Mutation}
			s.mu.Unlock()
			var resp Response
			resp.add(s.record(ctx, domain.RoleUser, text, nil))
			return s.execute(ctx, st.Pending.Mutation, resp), nil
		case answerNo:
			s.state = Idle{}
			s.mu.Unlock()
			var resp Response
			resp.add(s.record(ctx, domain.RoleUser, text, nil))
			resp.add(s.record(ctx, domain.RoleAssistant, declinedMessage, nil))
			return s.finish(resp), nil
		}
		s.log.Info("pending action superseded", "mutation", st.Pending.Mutation.String())
	}
	s.state = Classifying{Utterance: text}
	var slot *intent.Slot
	if s.replacing != nil {
		sl := s.replacing.slot
		slot = &sl
	}
	history := append([]domain.Message(nil), s.transcript...)
	s.mu.Unlock()

	var resp Response
	resp.add(s.record(ctx, domain.RoleUser, text, nil))

	trip, days, err := s.load(ctx)
	if err != nil {
		s.setState(Idle{})
		return Response{}, fmt.Errorf("session.Session.Submit: %w", err)
	}

	got := s.deps.Classifier.Classify(ctx, intent.Input{
		Utterance:    text,
		Conversation: history,
		Trip:         trip,
		Days:         days,
		Replacing:    slot,
	})

	switch got.Kind {
	case intent.KindMutation:
		if got.Reply != "" {
			resp.add(s.record(ctx, domain.RoleAssistant, got.Reply, nil))
		}
		return s.propose(ctx, got.Mutation, resp), nil
	case intent.KindMoreAlternatives:
		s.setState(Idle{})
		return s.moreAlternatives(ctx, trip, days, got.Slot, resp), nil
	default:
		s.setState(Idle{})
		var payload *domain.MessagePayload
		if got.Proposal != nil {
			payload = &domain.MessagePayload{Kind: domain.PayloadProposal, Proposal: got.Proposal}
		}
		resp.Degraded = got.Degraded
		resp.add(s.record(ctx, domain.RoleAssistant, got.Reply, payload))
		return s.finish(resp), nil
	}
}

// Request handles a mutation chosen in the UI, such as picking a hotel option
// or an alternative activity. It goes through the same gate as typed requests.
func (s *Session) Request(ctx context.Context, m domain.Mutation) (Response, error) {
	if m == nil {
		return Response{}, fmt.Errorf("session.Session.Request: %w: no mutation", domain.ErrValidation)
	}
	s.mu.Lock()
	if busy(s.state) {
		s.mu.Unlock()
		return Response{}, fmt.Errorf("session.Session.Request: %w", domain.ErrMutationInProgress)
	}
	if st, ok := s.state.(AwaitingConfirmation); ok {
		s.log.Info("pending action superseded", "mutation", st.Pending.Mutation.String())
	}
	s.state = Classifying{}
	s.mu.Unlock()

	return s.propose(ctx, m, Response{}), nil
}

// Confirm runs the pending action.
func (s *Session) Confirm(ctx context.Context) (Response, error) {
	s.mu.Lock()
	st, ok := s.state.(AwaitingConfirmation)
	if !ok {
		err := domain.ErrNoPendingAction
		if busy(s.state) {
			err = domain.ErrMutationInProgress
		}
		s.mu.Unlock()
		return Response{}, fmt.Errorf("session.Session.Confirm: %w", err)
	}
	s.state = Executing{Mutation: st.Pending.Mutation}
	s.mu.Unlock()

	return s.execute(ctx, st.Pending.Mutation, Response{}), nil
}

// Decline discards the pending action. Nothing is written to the itinerary.
func (s *Session) Decline(ctx context.Context) (Response, error) {
	s.mu.Lock()
	st, ok := s.state.(AwaitingConfirmation)
	if !ok {
		err := domain.ErrNoPendingAction
		if busy(s.state) {
			err = domain.ErrMutationInProgress
		}
		s.mu.Unlock()
		return Response{}, fmt.Errorf("session.Session.Decline: %w", err)
	}
	s.state = Idle{}
	s.mu.Unlock()

	s.log.Info("pending action declined", "mutation", st.Pending.Mutation.String())
	var resp Response
	resp.add(s.record(ctx, domain.RoleAssistant, declinedMessage, nil))
	return s.finish(resp), nil
}

// OpenReplacement fetches alternatives for the activity at (day, index) and
// keeps that slot open so "show me more" asks for further ideas.
func (s *Session) OpenReplacement(ctx context.Context, day, index int) (Response, error) {
	s.mu.Lock()
	if busy(s.state) {
		s.mu.Unlock()
		return Response{}, fmt.Errorf("session.Session.OpenReplacement: %w", domain.ErrMutationInProgress)
	}
	prev := s.state
	s.state = Classifying{}
	s.mu.Unlock()
	restored := false
	restore := func() {
		if !restored {
			restored = true
			s.setState(prev)
		}
	}
	defer restore()

	trip, err := s.deps.Store.GetTrip(ctx, s.tripID)
	if err != nil {
		return Response{}, fmt.Errorf("session.Session.OpenReplacement: %w", err)
	}
	d, err := s.deps.Store.GetDay(ctx, s.tripID, day)
	if errors.Is(err, domain.ErrNotFound) {
		return Response{}, fmt.Errorf("session.Session.OpenReplacement: %w: day %d does not exist", domain.ErrInvalidRange, day)
	}
	if err != nil {
		return Response{}, fmt.Errorf("session.Session.OpenReplacement: %w", err)
	}
	if index < 0 || index >= len(d.Activities) {
		return Response{}, fmt.Errorf("session.Session.OpenReplacement: %w: day %d has no activity %d", domain.ErrInvalidRange, day, index)
	}
	if s.deps.Executor.IsMandatory(d.Activities[index]) {
		return Response{}, fmt.Errorf("session.Session.OpenReplacement: %w: %q", domain.ErrMandatoryActivityProtected, d.Activities[index].Title)
	}

	alts, err := s.suggest(ctx, trip, d, index, nil)
	if err != nil {
		return Response{}, fmt.Errorf("session.Session.OpenReplacement: %w", err)
	}

	slot := intent.Slot{Day: day, Index: index}
	s.mu.Lock()
	s.replacing = &replacement{slot: slot, shown: alts}
	s.mu.Unlock()
	restore()

	var resp Response
	resp.add(s.record(ctx, domain.RoleAssistant,
		fmt.Sprintf("Here are some alternatives to %s on day %d.", d.Activities[index].Title, day),
		alternativesPayload(slot, alts)))
	return s.finish(resp), nil
}

// CloseReplacement closes the open replacement slot, if any.
func (s *Session) CloseReplacement() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replacing = nil
}

// Mark records feedback on an activity. FeedbackNone removes the mark.
func (s *Session) Mark(day, index int, f Feedback) error {
	if !f.Valid() {
		return fmt.Errorf("session.Session.Mark: %w: unknown feedback %q", domain.ErrValidation, f)
	}
	if day < 1 || index < 0 {
		return fmt.Errorf("session.Session.Mark: %w: day %d index %d", domain.ErrInvalidRange, day, index)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := FeedbackKey{Day: day, Index: index}
	if f == FeedbackNone {
		delete(s.feedback, key)
		return nil
	}
	s.feedback[key] = f
	return nil
}

// Snapshot returns the current state for display.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Map returns the map view of day and starts resolving the other days in the
// background.
func (s *Session) Map(ctx context.Context, day int) (mapcache.View, error) {
	if s.deps.Maps == nil {
		return mapcache.View{}, errors.New("session.Session.Map: no map cache configured")
	}
	trip, days, err := s.load(ctx)
	if err != nil {
		return mapcache.View{}, fmt.Errorf("session.Session.Map: %w", err)
	}
	if day < 1 || day > len(days) {
		return mapcache.View{}, fmt.Errorf("session.Session.Map: %w: day %d of %d", domain.ErrInvalidRange, day, len(days))
	}

	cache := s.deps.Maps.For(trip)
	view, err := cache.Get(ctx, day)
	if err != nil {
		return mapcache.View{}, fmt.Errorf("session.Session.Map: %w", err)
	}
	numbers := make([]int, len(days))
	for i, d := range days {
		numbers[i] = d.DayNumber
	}
	cache.Prefetch(day, numbers)
	return view, nil
}

// propose sends m through the confirmation gate. The caller must have moved
// the session out of Idle.
func (s *Session) propose(ctx context.Context, m domain.Mutation, resp Response) Response {
	if gate.Classify(m) == gate.Impactful {
		pending := domain.PendingAction{Mutation: m, Prompt: gate.Prompt(m), CreatedAt: s.now()}
		s.setState(AwaitingConfirmation{Pending: pending})
		resp.add(s.record(ctx, domain.RoleAssistant, pending.Prompt,
			&domain.MessagePayload{Kind: domain.PayloadConfirmation, Scope: gate.Scope(m)}))
		return s.finish(resp)
	}
	s.setState(Executing{Mutation: m})
	return s.execute(ctx, m, resp)
}

// execute applies m and returns the session to Idle whatever happens. The
// caller going away does not cancel the mutation; the generator's own timeout
// bounds it.
func (s *Session) execute(ctx context.Context, m domain.Mutation, resp Response) Response {
	ctx = context.WithoutCancel(ctx)
	out, err := s.deps.Executor.Apply(ctx, s.tripID, m, s.Messages())

	s.mu.Lock()
	s.state = Idle{}
	if err == nil {
		s.clearFeedbackLocked(m, out.AffectedDays)
		if _, ok := m.(domain.ReplaceActivity); ok {
			s.replacing = nil
		}
	}
	s.mu.Unlock()

	if err != nil {
		s.log.Warn("mutation failed", "mutation", m.String(), "error", err)
		resp.Error = errorKind(err)
		resp.add(s.record(ctx, domain.RoleAssistant, failureMessage(err), nil))
		return s.finish(resp)
	}

	if s.deps.Maps != nil {
		s.deps.Maps.For(out.Trip)
	}
	resp.Outcome = &Outcome{
		Mutation:     m.String(),
		AffectedDays: out.AffectedDays,
		Days:         out.Days,
		Trip:         out.Trip,
	}
	resp.add(s.record(ctx, domain.RoleAssistant, outcomeMessage(m, out), nil))
	return s.finish(resp)
}

func (s *Session) moreAlternatives(ctx context.Context, trip domain.Trip, days []domain.ItineraryDay, slot intent.Slot, resp Response) Response {
	var day *domain.ItineraryDay
	for i := range days {
		if days[i].DayNumber == slot.Day {
			day = &days[i]
		}
	}
	if day == nil || slot.Index >= len(day.Activities) {
		s.CloseReplacement()
		resp.Error = errorKind(domain.ErrInvalidRange)
		resp.add(s.record(ctx, domain.RoleAssistant, failureMessage(domain.ErrInvalidRange), nil))
		return s.finish(resp)
	}

	s.mu.Lock()
	var shown []domain.Activity
	if s.replacing != nil {
		shown = append(shown, s.replacing.shown...)
	}
	s.mu.Unlock()

	alts, err := s.suggest(ctx, trip, *day, slot.Index, shown)
	if err != nil {
		s.log.Warn("alternatives failed", "day", slot.Day, "index", slot.Index, "error", err)
		resp.Error = errorKind(err)
		resp.add(s.record(ctx, domain.RoleAssistant, failureMessage(err), nil))
		return s.finish(resp)
	}

	s.mu.Lock()
	if s.replacing != nil && s.replacing.slot == slot {
		s.replacing.shown = append(s.replacing.shown, alts...)
	}
	s.mu.Unlock()

	resp.add(s.record(ctx, domain.RoleAssistant,
		fmt.Sprintf("Here are a few more ideas for day %d.", slot.Day), alternativesPayload(slot, alts)))
	return s.finish(resp)
}

func (s *Session) suggest(ctx context.Context, trip domain.Trip, day domain.ItineraryDay, index int, exclude []domain.Activity) ([]domain.Activity, error) {
	return s.deps.Alternatives.SuggestAlternatives(ctx, generator.AlternativesRequest{
		Trip:         trip,
		Day:          day,
		Index:        index,
		Exclude:      exclude,
		Count:        alternativesPerRequest,
		Conversation: s.Messages(),
	})
}

func (s *Session) load(ctx context.Context) (domain.Trip, []domain.ItineraryDay, error) {
	trip, err := s.deps.Store.GetTrip(ctx, s.tripID)
	if err != nil {
		return domain.Trip{}, nil, err
	}
	days, err := s.deps.Store.ListDays(ctx, s.tripID)
	if err != nil {
		return domain.Trip{}, nil, err
	}
	return trip, days, nil
}

// record appends a message to the transcript and persists it. A failed write
// is logged; the message stays in the in-memory transcript.
func (s *Session) record(ctx context.Context, role domain.Role, text string, payload *domain.MessagePayload) domain.Message {
	m := domain.Message{
		ID:        uuid.New(),
		TripID:    s.tripID,
		Role:      role,
		Content:   text,
		Payload:   payload,
		CreatedAt: s.now(),
	}
	if s.deps.Transcript != nil {
		saved, err := s.deps.Transcript.Append(ctx, m)
		if err != nil {
			s.log.Warn("transcript write failed", "role", role, "error", err)
		} else {
			m = saved
		}
	}

	s.mu.Lock()
	s.transcript = append(s.transcript, m)
	s.mu.Unlock()
	return m
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
}

func (s *Session) finish(resp Response) Response {
	resp.Session = s.Snapshot()
	if resp.Messages == nil {
		resp.Messages = []domain.Message{}
	}
	return resp
}

func (r *Response) add(m domain.Message) {
	r.Messages = append(r.Messages, m)
}

// clearFeedbackLocked drops the marks of activities m replaced.
func (s *Session) clearFeedbackLocked(m domain.Mutation, affected []int) {
	if ra, ok := m.(domain.ReplaceActivity); ok {
		delete(s.feedback, FeedbackKey{Day: ra.Day, Index: ra.Index})
		return
	}
	days := make(map[int]bool, len(affected))
	for _, d := range affected {
		days[d] = true
	}
	for k := range s.feedback {
		if days[k.Day] {
			delete(s.feedback, k)
		}
	}
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{TripID: s.tripID, State: s.state.Name(), Feedback: []FeedbackMark{}}
	if st, ok := s.state.(AwaitingConfirmation); ok {
		p := st.Pending
		snap.Pending = &p
		snap.Mutation = p.Mutation.String()
	}
	if st, ok := s.state.(Executing); ok {
		snap.Mutation = st.Mutation.String()
	}
	if s.replacing != nil {
		sl := s.replacing.slot
		snap.Replacing = &sl
	}
	for k, f := range s.feedback {
		snap.Feedback = append(snap.Feedback, FeedbackMark{FeedbackKey: k, Feedback: f})
	}
	sort.Slice(snap.Feedback, func(i, j int) bool {
		a, b := snap.Feedback[i], snap.Feedback[j]
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		return a.Index < b.Index
	})
	return snap
}

func alternativesPayload(slot intent.Slot, alts []domain.Activity) *domain.MessagePayload {
	return &domain.MessagePayload{
		Kind:         domain.PayloadAlternatives,
		Day:          slot.Day,
		Index:        slot.Index,
		Alternatives: alts,
	}
}
