package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/pkordes/tripchat/backend/internal/domain"
)

// Manager keeps one Session per trip, created on first use.
type Manager struct {
	deps Deps
	log  *slog.Logger

	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
}

// NewManager returns a Manager sharing deps across sessions.
func NewManager(deps Deps, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{deps: deps, log: log, sessions: make(map[uuid.UUID]*Session)}
}

// Get returns the trip's session. A new session starts Idle with the stored
// transcript; domain.ErrNotFound is returned for unknown trips.
func (m *Manager) Get(ctx context.Context, tripID uuid.UUID) (*Session, error) {
	m.mu.Lock()
	s, ok := m.sessions[tripID]
	m.mu.Unlock()
	if ok {
		return s, nil
	}

	if _, err := m.deps.Store.GetTrip(ctx, tripID); err != nil {
		return nil, fmt.Errorf("session.Manager.Get: %w", err)
	}
	var history []domain.Message
	if m.deps.Transcript != nil {
		h, err := m.deps.Transcript.ListByTripID(ctx, tripID)
		if err != nil {
			m.log.Warn("transcript load failed", "trip_id", tripID, "error", err)
		}
		history = h
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[tripID]; ok {
		return s, nil
	}
	s = newSession(tripID, m.deps, history, m.log)
	m.sessions[tripID] = s
	return s, nil
}

// Drop forgets the trip's session and map cache, e.g. after the trip is deleted.
func (m *Manager) Drop(tripID uuid.UUID) {
	m.mu.Lock()
	delete(m.sessions, tripID)
	m.mu.Unlock()
	if m.deps.Maps != nil {
		m.deps.Maps.Drop(tripID)
	}
}
