package handler

import (
	"net/http"
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/tripchat/backend/internal/domain"
)

// createTripRequest is the body of POST /trips.
type createTripRequest struct {
	Destination string             `json:"destination"`
	Country     *string            `json:"country,omitempty"`
	StartDate   openapi_types.Date `json:"start_date"`
	EndDate     openapi_types.Date `json:"end_date"`
	Adults      int                `json:"adults"`
	Children    int                `json:"children"`
	Status      *string            `json:"status,omitempty"`
}

// updateTripRequest is the body of PUT /trips/{tripId}. Destination and dates
// are changed through the conversation so the itinerary stays consistent.
type updateTripRequest struct {
	Country  *string `json:"country,omitempty"`
	Adults   *int    `json:"adults,omitempty"`
	Children *int    `json:"children,omitempty"`
	Status   *string `json:"status,omitempty"`
}

// Trip is the JSON shape of a trip.
type Trip struct {
	Id          openapi_types.UUID `json:"id"`
	Destination string             `json:"destination"`
	Country     *string            `json:"country,omitempty"`
	StartDate   openapi_types.Date `json:"start_date"`
	EndDate     openapi_types.Date `json:"end_date"`
	DayCount    int                `json:"day_count"`
	Adults      int                `json:"adults"`
	Children    int                `json:"children"`
	Status      string             `json:"status"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// Pagination describes one page of a list response.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

// TripList is the body of GET /trips.
type TripList struct {
	Data       []Trip     `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// CreateTrip handles POST /trips.
func (s *Server) CreateTrip(w http.ResponseWriter, r *http.Request) {
	var body createTripRequest
	if err := decodeJSON(r, &body); err != nil {
		requestError(w, err.Error())
		return
	}

	created, err := s.trips.Create(r.Context(), requestToTrip(body))
	if err != nil {
		serviceError(w, r, err, "trip not found")
		return
	}
	writeJSON(w, http.StatusCreated, tripToResponse(created))
}

// ListTrips handles GET /trips.
// Supports ?page= and ?limit= query parameters (defaults: page=1, limit=20, max=100).
func (s *Server) ListTrips(w http.ResponseWriter, r *http.Request) {
	var page, limit *int
	if err := queryParam(r, "page", &page); err != nil {
		requestError(w, "page must be an integer")
		return
	}
	if err := queryParam(r, "limit", &limit); err != nil {
		requestError(w, "limit must be an integer")
		return
	}

	params := domain.NewPaginationParams(page, limit)
	trips, total, err := s.trips.List(r.Context(), params)
	if err != nil {
		serviceError(w, r, err, "trip not found")
		return
	}

	data := make([]Trip, len(trips))
	for i, t := range trips {
		data[i] = tripToResponse(t)
	}
	writeJSON(w, http.StatusOK, TripList{
		Data:       data,
		Pagination: Pagination{Page: params.Page, Limit: params.Limit, Total: int(total)},
	})
}

// GetTrip handles GET /trips/{tripId}.
func (s *Server) GetTrip(w http.ResponseWriter, r *http.Request) {
	id, ok := tripID(w, r)
	if !ok {
		return
	}
	trip, err := s.trips.GetByID(r.Context(), id)
	if err != nil {
		serviceError(w, r, err, "trip not found")
		return
	}
	writeJSON(w, http.StatusOK, tripToResponse(trip))
}

// UpdateTrip handles PUT /trips/{tripId}.
func (s *Server) UpdateTrip(w http.ResponseWriter, r *http.Request) {
	id, ok := tripID(w, r)
	if !ok {
		return
	}
	var body updateTripRequest
	if err := decodeJSON(r, &body); err != nil {
		requestError(w, err.Error())
		return
	}

	trip, err := s.trips.GetByID(r.Context(), id)
	if err != nil {
		serviceError(w, r, err, "trip not found")
		return
	}
	if body.Country != nil {
		trip.Country = *body.Country
	}
	if body.Adults != nil {
		trip.Adults = *body.Adults
	}
	if body.Children != nil {
		trip.Children = *body.Children
	}
	if body.Status != nil {
		trip.Status = domain.TripStatus(*body.Status)
	}

	updated, err := s.trips.Update(r.Context(), trip)
	if err != nil {
		serviceError(w, r, err, "trip not found")
		return
	}
	writeJSON(w, http.StatusOK, tripToResponse(updated))
}

// DeleteTrip handles DELETE /trips/{tripId}. The trip's conversation and map
// cache are dropped with it.
func (s *Server) DeleteTrip(w http.ResponseWriter, r *http.Request) {
	id, ok := tripID(w, r)
	if !ok {
		return
	}
	if err := s.trips.Delete(r.Context(), id); err != nil {
		serviceError(w, r, err, "trip not found")
		return
	}
	if s.sessions != nil {
		s.sessions.Drop(id)
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- mapping helpers --------------------------------------------------------

// requestToTrip converts a createTripRequest into a domain.Trip.
func requestToTrip(body createTripRequest) domain.Trip {
	t := domain.Trip{
		Destination: body.Destination,
		StartDate:   body.StartDate.Time,
		EndDate:     body.EndDate.Time,
		Adults:      body.Adults,
		Children:    body.Children,
	}
	if body.Country != nil {
		t.Country = *body.Country
	}
	if body.Status != nil {
		t.Status = domain.TripStatus(*body.Status)
	}
	return t
}

// tripToResponse converts a domain.Trip into its JSON shape.
func tripToResponse(t domain.Trip) Trip {
	resp := Trip{
		Id:          t.ID,
		Destination: t.Destination,
		StartDate:   openapi_types.Date{Time: t.StartDate},
		EndDate:     openapi_types.Date{Time: t.EndDate},
		DayCount:    t.DayCount(),
		Adults:      t.Adults,
		Children:    t.Children,
		Status:      string(t.Status),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if t.Country != "" {
		resp.Country = &t.Country
	}
	return resp
}
