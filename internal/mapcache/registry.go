package mapcache

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/pkordes/tripchat/backend/internal/domain"
)

// Registry owns one Cache per trip and routes invalidations to it.
type Registry struct {
	loader     DayLoader
	newGeocode func() Geocoder
	log        *slog.Logger

	mu     sync.Mutex
	caches map[uuid.UUID]*Cache
}

// NewRegistry returns an empty registry. newGeocode is called once per trip so
// each cache gets its own session-scoped geocode cache.
func NewRegistry(loader DayLoader, newGeocode func() Geocoder, log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		loader:     loader,
		newGeocode: newGeocode,
		log:        log,
		caches:     make(map[uuid.UUID]*Cache),
	}
}

// For returns the trip's cache, creating it on first use. The region hint is
// refreshed from trip on every call.
func (r *Registry) For(trip domain.Trip) *Cache {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.caches[trip.ID]
	if !ok {
		c = New(trip, r.loader, r.newGeocode(), r.log)
		r.caches[trip.ID] = c
		return c
	}
	c.SetTrip(trip)
	return c
}

// Invalidate drops the given days from the trip's cache, if it has one.
func (r *Registry) Invalidate(tripID uuid.UUID, days ...int) {
	r.mu.Lock()
	c, ok := r.caches[tripID]
	r.mu.Unlock()
	if ok {
		c.Invalidate(days...)
	}
}

// Drop closes and forgets the trip's cache.
func (r *Registry) Drop(tripID uuid.UUID) {
	r.mu.Lock()
	c, ok := r.caches[tripID]
	delete(r.caches, tripID)
	r.mu.Unlock()
	if ok {
		c.Close()
	}
}

// Close closes every cache.
func (r *Registry) Close() {
	r.mu.Lock()
	caches := r.caches
	r.caches = make(map[uuid.UUID]*Cache)
	r.mu.Unlock()
	for _, c := range caches {
		c.Close()
	}
}
