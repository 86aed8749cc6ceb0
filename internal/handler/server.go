// Package handler implements the HTTP surface of the trip conversation API.
// All handlers are methods on Server; Routes mounts them on a chi router.
// Methods are split into resource-specific files (health.go, trip.go, chat.go,
// etc.) but share the same Server struct so they can access its dependencies.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pkordes/tripchat/backend/internal/domain"
	"github.com/pkordes/tripchat/backend/internal/mapcache"
	"github.com/pkordes/tripchat/backend/internal/session"
	"github.com/pkordes/tripchat/backend/spec"
)

// TripServicer defines the business operations the trip handlers depend on.
// Defining the interface here (in the consumer package) lets handler tests
// inject a mock without touching the database or service layer.
type TripServicer interface {
	Create(ctx context.Context, trip domain.Trip) (domain.Trip, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Trip, error)
	List(ctx context.Context, p domain.PaginationParams) ([]domain.Trip, int64, error)
	Update(ctx context.Context, trip domain.Trip) (domain.Trip, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ItineraryReader is the read side of the itinerary store.
type ItineraryReader interface {
	ListDays(ctx context.Context, tripID uuid.UUID) ([]domain.ItineraryDay, error)
	ListComponents(ctx context.Context, tripID uuid.UUID) ([]domain.Component, error)
}

// ExportServicer produces the flat export of one trip.
type ExportServicer interface {
	Export(ctx context.Context, tripID uuid.UUID) ([]domain.ExportRow, error)
}

// MandatoryChecker flags activities the conversation may not replace.
type MandatoryChecker interface {
	IsMandatory(a domain.Activity) bool
}

// Conversation is one trip's chat session. *session.Session satisfies it.
type Conversation interface {
	Submit(ctx context.Context, text string) (session.Response, error)
	Confirm(ctx context.Context) (session.Response, error)
	Decline(ctx context.Context) (session.Response, error)
	Request(ctx context.Context, m domain.Mutation) (session.Response, error)
	OpenReplacement(ctx context.Context, day, index int) (session.Response, error)
	CloseReplacement()
	Mark(day, index int, f session.Feedback) error
	Snapshot() session.Snapshot
	Messages() []domain.Message
	Map(ctx context.Context, day int) (mapcache.View, error)
}

// Sessions hands out the conversation of a trip.
type Sessions interface {
	Get(ctx context.Context, tripID uuid.UUID) (Conversation, error)
	Drop(tripID uuid.UUID)
}

// NewSessions adapts a session.Manager to Sessions.
func NewSessions(m *session.Manager) Sessions {
	return managerSessions{m: m}
}

type managerSessions struct {
	m *session.Manager
}

func (s managerSessions) Get(ctx context.Context, tripID uuid.UUID) (Conversation, error) {
	c, err := s.m.Get(ctx, tripID)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s managerSessions) Drop(tripID uuid.UUID) { s.m.Drop(tripID) }

// Server holds the dependencies of every handler.
type Server struct {
	trips     TripServicer
	itinerary ItineraryReader
	export    ExportServicer
	sessions  Sessions
	mandatory MandatoryChecker

	// chatMiddleware wraps the conversation routes only, e.g. a rate limiter.
	chatMiddleware []func(http.Handler) http.Handler
}

// NewServer constructs the Server with all its dependencies.
func NewServer(trips TripServicer, itinerary ItineraryReader, export ExportServicer, sessions Sessions, mandatory MandatoryChecker) *Server {
	return &Server{
		trips:     trips,
		itinerary: itinerary,
		export:    export,
		sessions:  sessions,
		mandatory: mandatory,
	}
}

// NewHealthHandler returns a Server for health-check-only use.
func NewHealthHandler() *Server {
	return NewServer(nil, nil, nil, nil, nil)
}

// WithChatMiddleware adds middleware applied only to conversation endpoints.
func (s *Server) WithChatMiddleware(mw ...func(http.Handler) http.Handler) *Server {
	s.chatMiddleware = append(s.chatMiddleware, mw...)
	return s
}

// Routes returns the API router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.GetHealth)
	r.Get("/openapi.yaml", serveSpec)

	r.Route("/trips", func(r chi.Router) {
		r.Get("/", s.ListTrips)
		r.Post("/", s.CreateTrip)

		r.Route("/{tripId}", func(r chi.Router) {
			r.Get("/", s.GetTrip)
			r.Put("/", s.UpdateTrip)
			r.Delete("/", s.DeleteTrip)

			r.Get("/days", s.ListDays)
			r.Get("/components", s.ListComponents)
			r.Get("/export", s.GetExport)
			r.Get("/days/{day}/map", s.GetDayMap)

			r.Group(func(r chi.Router) {
				r.Use(s.chatMiddleware...)

				r.Get("/chat", s.GetChat)
				r.Post("/chat", s.PostChat)
				r.Post("/chat/confirm", s.ConfirmChat)
				r.Post("/chat/decline", s.DeclineChat)
				r.Post("/components", s.SelectComponent)
				r.Post("/days/{day}/activities/{index}/alternatives", s.OpenAlternatives)
				r.Delete("/days/{day}/activities/{index}/alternatives", s.CloseAlternatives)
				r.Put("/days/{day}/activities/{index}", s.ReplaceActivity)
				r.Put("/days/{day}/activities/{index}/feedback", s.MarkActivity)
			})
		})
	})
	return r
}

func serveSpec(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(spec.OpenAPI)
}
