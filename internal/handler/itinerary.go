package handler

import (
	"net/http"

	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/tripchat/backend/internal/domain"
)

// activityResponse is an activity with its mandatory flag resolved.
type activityResponse struct {
	domain.Activity
	Mandatory bool `json:"mandatory"`
}

// dayResponse is the JSON shape of one itinerary day.
type dayResponse struct {
	Id         openapi_types.UUID `json:"id"`
	DayNumber  int                `json:"day_number"`
	Date       openapi_types.Date `json:"date"`
	Activities []activityResponse `json:"activities"`
}

// ListDays handles GET /trips/{tripId}/days.
func (s *Server) ListDays(w http.ResponseWriter, r *http.Request) {
	id, ok := tripID(w, r)
	if !ok {
		return
	}
	days, err := s.itinerary.ListDays(r.Context(), id)
	if err != nil {
		serviceError(w, r, err, "trip not found")
		return
	}

	out := make([]dayResponse, len(days))
	for i, d := range days {
		out[i] = s.dayToResponse(d)
	}
	writeJSON(w, http.StatusOK, out)
}

// ListComponents handles GET /trips/{tripId}/components.
func (s *Server) ListComponents(w http.ResponseWriter, r *http.Request) {
	id, ok := tripID(w, r)
	if !ok {
		return
	}
	comps, err := s.itinerary.ListComponents(r.Context(), id)
	if err != nil {
		serviceError(w, r, err, "trip not found")
		return
	}
	writeJSON(w, http.StatusOK, comps)
}

// GetDayMap handles GET /trips/{tripId}/days/{day}/map. Opening a day's map
// also starts background resolution of the trip's other days.
func (s *Server) GetDayMap(w http.ResponseWriter, r *http.Request) {
	id, ok := tripID(w, r)
	if !ok {
		return
	}
	day, _, ok := slot(w, r)
	if !ok {
		return
	}
	conv, err := s.sessions.Get(r.Context(), id)
	if err != nil {
		serviceError(w, r, err, "trip not found")
		return
	}
	view, err := conv.Map(r.Context(), day)
	if err != nil {
		serviceError(w, r, err, "day not found")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) dayToResponse(d domain.ItineraryDay) dayResponse {
	acts := make([]activityResponse, len(d.Activities))
	for i, a := range d.Activities {
		acts[i] = activityResponse{Activity: a}
		if s.mandatory != nil {
			acts[i].Mandatory = s.mandatory.IsMandatory(a)
		}
	}
	return dayResponse{
		Id:         d.ID,
		DayNumber:  d.DayNumber,
		Date:       openapi_types.Date{Time: d.Date},
		Activities: acts,
	}
}
