// Package mapcache keeps one resolved map view per itinerary day.
//
// Each day maps to a memoized future: the first request starts resolution and
// every later request for the same day joins it. The active day is resolved on
// demand; the remaining days are resolved one after another in the background.
// An entry is dropped only when that day is invalidated.
package mapcache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pkordes/tripchat/backend/internal/domain"
	"github.com/pkordes/tripchat/backend/internal/geocode"
)

// pointConcurrency bounds parallel geocode lookups within one day.
const pointConcurrency = 4

// ErrClosed is returned by Get after Close.
var ErrClosed = errors.New("map cache closed")

// DayLoader reads a single day from the store.
type DayLoader interface {
	GetDay(ctx context.Context, tripID uuid.UUID, dayNumber int) (domain.ItineraryDay, error)
}

// Geocoder resolves a place query. *geocode.Resolver satisfies it.
type Geocoder interface {
	Resolve(ctx context.Context, q geocode.Query) geocode.Result
}

// Point is one resolved activity location.
type Point struct {
	Index    int                     `json:"index"`
	Time     string                  `json:"time"`
	Title    string                  `json:"title"`
	Category domain.ActivityCategory `json:"category"`
	Coord    domain.Coordinate       `json:"coordinate"`
	Source   geocode.Source          `json:"source"`
}

// View is the map state for one day.
type View struct {
	Day    int               `json:"day"`
	Points []Point           `json:"points"`
	Center domain.Coordinate `json:"center"`
	Zoom   int               `json:"zoom"`
}

type entry struct {
	done chan struct{}
	view View
	err  error
}

// Cache holds the map views of one trip.
type Cache struct {
	tripID uuid.UUID
	loader DayLoader
	geo    Geocoder
	log    *slog.Logger

	// ctx bounds every resolution; it ends on Close.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu           sync.Mutex
	hint         string
	destination  string
	entries      map[int]*entry
	closed       bool
	stopPrefetch context.CancelFunc
}

// New returns an empty cache for trip. Close must be called to stop background work.
func New(trip domain.Trip, loader DayLoader, geo Geocoder, log *slog.Logger) *Cache {
	if log == nil {
		log = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Cache{
		tripID:  trip.ID,
		loader:  loader,
		geo:     geo,
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
		entries: make(map[int]*entry),
	}
	c.SetTrip(trip)
	return c
}

// SetTrip updates the region hint used for lookups, e.g. after the
// destination changed. Existing entries are kept; callers invalidate the days
// that changed.
func (c *Cache) SetTrip(trip domain.Trip) {
	hint := trip.Country
	if hint == "" {
		hint = trip.Destination
	}
	c.mu.Lock()
	c.hint = hint
	c.destination = trip.Destination
	c.mu.Unlock()
}

// Get returns the view for day, resolving it now if it is neither cached nor
// in flight. ctx only bounds how long the caller waits.
func (c *Cache) Get(ctx context.Context, day int) (View, error) {
	e, err := c.acquire(day, true)
	if err != nil {
		return View{}, err
	}
	select {
	case <-e.done:
		return e.view, e.err
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
}

// Peek returns the cached view for day without starting resolution.
func (c *Cache) Peek(day int) (View, bool) {
	c.mu.Lock()
	e, ok := c.entries[day]
	c.mu.Unlock()
	if !ok {
		return View{}, false
	}
	select {
	case <-e.done:
		return e.view, e.err == nil
	default:
		return View{}, false
	}
}

// Prefetch resolves every day in days except active, sequentially, in one
// background goroutine. Days already cached or in flight are skipped. A new
// call replaces any prefetch still running.
func (c *Cache) Prefetch(active int, days []int) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if c.stopPrefetch != nil {
		c.stopPrefetch()
	}
	ctx, stop := context.WithCancel(c.ctx)
	c.stopPrefetch = stop
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		defer stop()
		for _, d := range days {
			if d == active {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			e, err := c.acquire(d, false)
			if err != nil {
				return
			}
			if e == nil {
				continue
			}
			select {
			case <-e.done:
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Invalidate drops the entries for days. Other days are untouched.
func (c *Cache) Invalidate(days ...int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, d := range days {
		delete(c.entries, d)
	}
}

// Close stops background work and waits for it to finish.
func (c *Cache) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.cancel()
	c.wg.Wait()
}

// acquire returns the entry for day, starting resolution when there is none.
// With join false an existing entry yields nil, which prefetch uses to skip it.
func (c *Cache) acquire(day int, join bool) (*entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	if e, ok := c.entries[day]; ok {
		if !join {
			return nil, nil
		}
		return e, nil
	}

	e := &entry{done: make(chan struct{})}
	c.entries[day] = e
	hint, dest := c.hint, c.destination

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(e.done)
		e.view, e.err = c.resolve(c.ctx, day, hint, dest)
		if e.err != nil {
			c.mu.Lock()
			if c.entries[day] == e {
				delete(c.entries, day)
			}
			c.mu.Unlock()
			c.log.Debug("map view resolution failed", "trip_id", c.tripID, "day", day, "error", e.err)
		}
	}()
	return e, nil
}

func (c *Cache) resolve(ctx context.Context, dayNumber int, hint, destination string) (View, error) {
	day, err := c.loader.GetDay(ctx, c.tripID, dayNumber)
	if err != nil {
		return View{}, fmt.Errorf("mapcache.Cache.resolve: day %d: %w", dayNumber, err)
	}

	points := make([]*Point, len(day.Activities))
	var g errgroup.Group
	g.SetLimit(pointConcurrency)
	for i, a := range day.Activities {
		if a.Location.Name == "" && a.Location.Address == "" {
			if _, ok := a.Location.Coordinate(); !ok {
				continue
			}
		}
		g.Go(func() error {
			res := c.geo.Resolve(ctx, geocode.QueryFor(a.Location, hint))
			points[i] = &Point{
				Index:    i,
				Time:     a.Time,
				Title:    a.Title,
				Category: a.Category,
				Coord:    res.Coordinate,
				Source:   res.Source,
			}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return View{}, err
	}

	view := View{Day: dayNumber, Points: []Point{}}
	for _, p := range points {
		if p != nil {
			view.Points = append(view.Points, *p)
		}
	}

	if len(view.Points) == 0 {
		res := c.geo.Resolve(ctx, geocode.Query{Name: destination, Hint: hint})
		view.Center = res.Coordinate
		view.Zoom = emptyZoom
		return view, nil
	}
	view.Center, view.Zoom = Frame(view.Points)
	return view, nil
}

const emptyZoom = 12

// zoomBands maps the widest bounding-box side, in degrees, to a zoom level.
var zoomBands = []struct {
	maxSpan float64
	zoom    int
}{
	{0.01, 14},
	{0.02, 13},
	{0.05, 12},
	{0.1, 11},
	{0.5, 10},
	{1, 9},
	{3, 8},
}

// singlePointZoom is used when all points coincide.
const singlePointZoom = 15

// Frame returns the bounding-box midpoint of points and a zoom level that fits them.
func Frame(points []Point) (domain.Coordinate, int) {
	if len(points) == 0 {
		return domain.Coordinate{}, emptyZoom
	}
	minLat, maxLat := points[0].Coord.Lat, points[0].Coord.Lat
	minLon, maxLon := points[0].Coord.Lon, points[0].Coord.Lon
	for _, p := range points[1:] {
		minLat = math.Min(minLat, p.Coord.Lat)
		maxLat = math.Max(maxLat, p.Coord.Lat)
		minLon = math.Min(minLon, p.Coord.Lon)
		maxLon = math.Max(maxLon, p.Coord.Lon)
	}
	center := domain.Coordinate{Lat: (minLat + maxLat) / 2, Lon: (minLon + maxLon) / 2}
	return center, ZoomFor(math.Max(maxLat-minLat, maxLon-minLon))
}

// ZoomFor returns the zoom band for a bounding box whose widest side is span degrees.
func ZoomFor(span float64) int {
	if span <= 0 {
		return singlePointZoom
	}
	for _, b := range zoomBands {
		if span < b.maxSpan {
			return b.zoom
		}
	}
	return 6
}
