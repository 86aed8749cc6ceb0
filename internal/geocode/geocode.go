// Package geocode turns free-text place names into coordinates.
//
// Resolution runs an ordered chain of strategies and stops at the first one
// that answers: explicit coordinates, the alias table, the upstream provider
// with the full query, the provider with a simplified query, the static
// country/city table, and finally a fixed default. Results are cached per
// normalized (name, hint) key for the lifetime of a Resolver, and concurrent
// lookups of the same key share one upstream call.
package geocode

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/pkordes/tripchat/backend/internal/domain"
)

// DefaultTimeout bounds each upstream provider call.
const DefaultTimeout = 8 * time.Second

// Query is a single lookup.
type Query struct {
	Name string
	// Hint is an optional country or region, e.g. the trip's country.
	Hint string
	// Explicit, when set, is used as-is without any lookup.
	Explicit *domain.Coordinate
}

// QueryFor builds a Query for an activity location, carrying its explicit
// coordinates if it has them.
func QueryFor(loc domain.Location, hint string) Query {
	q := Query{Name: loc.Name, Hint: hint}
	if loc.Name == "" {
		q.Name = loc.Address
	}
	if c, ok := loc.Coordinate(); ok {
		q.Explicit = &c
	}
	return q
}

// Key is the normalized cache key for q.
func (q Query) Key() string {
	return normalize(q.Name) + "|" + normalize(q.Hint)
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// Source names the strategy that produced a Result.
type Source string

const (
	SourceExplicit   Source = "explicit"
	SourceRemote     Source = "remote"
	SourceAlias      Source = "alias"
	SourceProvider   Source = "provider"
	SourceSimplified Source = "simplified"
	SourceTable      Source = "table"
	SourceDefault    Source = "default"
)

// fromProvider reports whether s came from an upstream provider call.
func (s Source) fromProvider() bool {
	return s == SourceAlias || s == SourceProvider || s == SourceSimplified
}

// Result is a resolved coordinate and where it came from.
type Result struct {
	domain.Coordinate
	Source Source
}

// Provider is the upstream text-geocoding service. Search returns candidates
// best first, or an empty slice when nothing matched.
type Provider interface {
	Search(ctx context.Context, query string) ([]domain.Coordinate, error)
}

// RemoteCache is an optional cache shared between sessions and processes.
type RemoteCache interface {
	Get(ctx context.Context, key string) (domain.Coordinate, bool, error)
	Set(ctx context.Context, key string, c domain.Coordinate) error
}

// Options configures a Resolver.
type Options struct {
	Provider Provider
	Tables   Tables
	Timeout  time.Duration
	Remote   RemoteCache
	Logger   *slog.Logger
}

// Resolver resolves queries through the strategy chain with a per-instance cache.
// It is safe for concurrent use.
type Resolver struct {
	chain  []Strategy
	remote RemoteCache
	log    *slog.Logger

	mu    sync.Mutex
	cache map[string]Result
	group singleflight.Group
}

// NewResolver builds the standard chain from opts.
func NewResolver(opts Options) *Resolver {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	var chain []Strategy
	if opts.Provider != nil {
		chain = append(chain,
			aliasStrategy{aliases: opts.Tables.Aliases, provider: opts.Provider, timeout: opts.Timeout},
			providerStrategy{provider: opts.Provider, timeout: opts.Timeout},
			simplifiedStrategy{provider: opts.Provider, timeout: opts.Timeout},
		)
	}
	chain = append(chain,
		tableStrategy{places: opts.Tables.Places},
		defaultStrategy{coord: opts.Tables.Default, log: log},
	)
	return NewResolverWithChain(chain, opts.Remote, log)
}

// NewResolverWithChain builds a Resolver around a custom chain. Explicit
// coordinates and the remote cache are always consulted first.
func NewResolverWithChain(chain []Strategy, remote RemoteCache, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{
		chain:  chain,
		remote: remote,
		log:    log,
		cache:  make(map[string]Result),
	}
}

// Resolve returns a coordinate for q. It never fails: when every strategy
// misses, the chain's last strategy supplies a fallback.
func (r *Resolver) Resolve(ctx context.Context, q Query) Result {
	if q.Explicit != nil {
		return Result{Coordinate: *q.Explicit, Source: SourceExplicit}
	}

	key := q.Key()
	if res, ok := r.cached(key); ok {
		return res
	}

	// The shared call must not be cut short by whichever caller arrived first;
	// each upstream call still has its own timeout.
	shared := context.WithoutCancel(ctx)
	v, _, _ := r.group.Do(key, func() (any, error) {
		if res, ok := r.cached(key); ok {
			return res, nil
		}
		res := r.run(shared, key, q)
		r.mu.Lock()
		r.cache[key] = res
		r.mu.Unlock()
		return res, nil
	})
	return v.(Result)
}

// Cached reports the cached result for q, if any, without resolving.
func (r *Resolver) Cached(q Query) (Result, bool) {
	if q.Explicit != nil {
		return Result{Coordinate: *q.Explicit, Source: SourceExplicit}, true
	}
	return r.cached(q.Key())
}

func (r *Resolver) cached(key string) (Result, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.cache[key]
	return res, ok
}

func (r *Resolver) run(ctx context.Context, key string, q Query) Result {
	if r.remote != nil {
		c, ok, err := r.remote.Get(ctx, key)
		if err != nil {
			r.log.Debug("geocode remote cache get failed", "key", key, "error", err)
		}
		if ok {
			return Result{Coordinate: c, Source: SourceRemote}
		}
	}

	for _, s := range r.chain {
		c, ok := s.Resolve(ctx, q)
		if !ok {
			continue
		}
		res := Result{Coordinate: c, Source: s.Source()}
		if r.remote != nil && res.Source.fromProvider() {
			if err := r.remote.Set(ctx, key, c); err != nil {
				r.log.Debug("geocode remote cache set failed", "key", key, "error", err)
			}
		}
		return res
	}

	r.log.Warn("geocode chain exhausted", "query", q.Name, "hint", q.Hint)
	return Result{Source: SourceDefault}
}
