package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/pkordes/tripchat/backend/internal/domain"
	"github.com/pkordes/tripchat/backend/internal/session"
)

type chatRequest struct {
	Message string `json:"message"`
}

type feedbackRequest struct {
	Feedback session.Feedback `json:"feedback"`
}

// chatHistory is the body of GET /trips/{tripId}/chat.
type chatHistory struct {
	Messages []domain.Message `json:"messages"`
	Session  session.Snapshot `json:"session"`
}

// GetChat handles GET /trips/{tripId}/chat.
func (s *Server) GetChat(w http.ResponseWriter, r *http.Request) {
	conv, ok := s.conversation(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, chatHistory{Messages: conv.Messages(), Session: conv.Snapshot()})
}

// PostChat handles POST /trips/{tripId}/chat.
func (s *Server) PostChat(w http.ResponseWriter, r *http.Request) {
	var body chatRequest
	if err := decodeJSON(r, &body); err != nil {
		requestError(w, err.Error())
		return
	}
	if strings.TrimSpace(body.Message) == "" {
		requestError(w, "message is required")
		return
	}
	s.converse(w, r, func(ctx context.Context, c Conversation) (session.Response, error) {
		return c.Submit(ctx, body.Message)
	})
}

// ConfirmChat handles POST /trips/{tripId}/chat/confirm.
func (s *Server) ConfirmChat(w http.ResponseWriter, r *http.Request) {
	s.converse(w, r, func(ctx context.Context, c Conversation) (session.Response, error) {
		return c.Confirm(ctx)
	})
}

// DeclineChat handles POST /trips/{tripId}/chat/decline.
func (s *Server) DeclineChat(w http.ResponseWriter, r *http.Request) {
	s.converse(w, r, func(ctx context.Context, c Conversation) (session.Response, error) {
		return c.Decline(ctx)
	})
}

// SelectComponent handles POST /trips/{tripId}/components. Choosing a new
// hotel, flight or car always waits for confirmation.
func (s *Server) SelectComponent(w http.ResponseWriter, r *http.Request) {
	id, ok := tripID(w, r)
	if !ok {
		return
	}
	var body domain.Component
	if err := decodeJSON(r, &body); err != nil {
		requestError(w, err.Error())
		return
	}
	if !body.Type.Valid() {
		requestError(w, `type must be one of "hotel", "flight" or "car"`)
		return
	}
	if strings.TrimSpace(body.Title) == "" {
		requestError(w, "title is required")
		return
	}
	body.TripID = id
	s.converse(w, r, func(ctx context.Context, c Conversation) (session.Response, error) {
		return c.Request(ctx, domain.ReplaceComponent{Option: body})
	})
}

// OpenAlternatives handles POST /trips/{tripId}/days/{day}/activities/{index}/alternatives.
func (s *Server) OpenAlternatives(w http.ResponseWriter, r *http.Request) {
	day, index, ok := slot(w, r)
	if !ok {
		return
	}
	s.converse(w, r, func(ctx context.Context, c Conversation) (session.Response, error) {
		return c.OpenReplacement(ctx, day, index)
	})
}

// CloseAlternatives handles DELETE /trips/{tripId}/days/{day}/activities/{index}/alternatives.
func (s *Server) CloseAlternatives(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := slot(w, r); !ok {
		return
	}
	conv, ok := s.conversation(w, r)
	if !ok {
		return
	}
	conv.CloseReplacement()
	writeJSON(w, http.StatusOK, conv.Snapshot())
}

// ReplaceActivity handles PUT /trips/{tripId}/days/{day}/activities/{index}.
// The body is the chosen alternative.
func (s *Server) ReplaceActivity(w http.ResponseWriter, r *http.Request) {
	day, index, ok := slot(w, r)
	if !ok {
		return
	}
	var body domain.Activity
	if err := decodeJSON(r, &body); err != nil {
		requestError(w, err.Error())
		return
	}
	if strings.TrimSpace(body.Title) == "" {
		requestError(w, "title is required")
		return
	}
	s.converse(w, r, func(ctx context.Context, c Conversation) (session.Response, error) {
		return c.Request(ctx, domain.ReplaceActivity{Day: day, Index: index, Alternative: body})
	})
}

// MarkActivity handles PUT /trips/{tripId}/days/{day}/activities/{index}/feedback.
// An empty feedback value clears the mark.
func (s *Server) MarkActivity(w http.ResponseWriter, r *http.Request) {
	day, index, ok := slot(w, r)
	if !ok {
		return
	}
	var body feedbackRequest
	if err := decodeJSON(r, &body); err != nil {
		requestError(w, err.Error())
		return
	}
	conv, ok := s.conversation(w, r)
	if !ok {
		return
	}
	if err := conv.Mark(day, index, body.Feedback); err != nil {
		serviceError(w, r, err, "activity not found")
		return
	}
	writeJSON(w, http.StatusOK, conv.Snapshot())
}

// conversation resolves the trip's session, writing the error response on failure.
func (s *Server) conversation(w http.ResponseWriter, r *http.Request) (Conversation, bool) {
	id, ok := tripID(w, r)
	if !ok {
		return nil, false
	}
	conv, err := s.sessions.Get(r.Context(), id)
	if err != nil {
		serviceError(w, r, err, "trip not found")
		return nil, false
	}
	return conv, true
}

// converse runs one conversational step and writes its Response.
func (s *Server) converse(w http.ResponseWriter, r *http.Request, step func(context.Context, Conversation) (session.Response, error)) {
	conv, ok := s.conversation(w, r)
	if !ok {
		return
	}
	resp, err := step(r.Context(), conv)
	if err != nil {
		serviceError(w, r, err, "trip not found")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
