package geocode

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/pkordes/tripchat/backend/internal/domain"
)

// Strategy is one link of the resolution chain.
type Strategy interface {
	Source() Source
	// Resolve returns false to pass the query to the next strategy.
	Resolve(ctx context.Context, q Query) (domain.Coordinate, bool)
}

// search queries p with its own timeout and takes the first candidate.
// Errors, timeouts and empty answers are all misses.
func search(ctx context.Context, p Provider, timeout time.Duration, query string) (domain.Coordinate, bool) {
	query = strings.TrimSpace(query)
	if query == "" {
		return domain.Coordinate{}, false
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	results, err := p.Search(ctx, query)
	if err != nil || len(results) == 0 {
		return domain.Coordinate{}, false
	}
	return results[0], true
}

func fullQuery(q Query) string {
	name, hint := strings.TrimSpace(q.Name), strings.TrimSpace(q.Hint)
	if hint == "" || strings.Contains(strings.ToLower(name), strings.ToLower(hint)) {
		return name
	}
	return name + ", " + hint
}

// aliasStrategy rewrites generic names ("City Center", "Hotel") into a
// disambiguated provider query. A "{hint}" placeholder in the alias is
// replaced with the query hint.
type aliasStrategy struct {
	aliases  map[string]string
	provider Provider
	timeout  time.Duration
}

func (aliasStrategy) Source() Source { return SourceAlias }

func (s aliasStrategy) Resolve(ctx context.Context, q Query) (domain.Coordinate, bool) {
	alias, ok := s.aliases[normalize(q.Name)]
	if !ok {
		return domain.Coordinate{}, false
	}
	query := strings.Join(strings.Fields(strings.ReplaceAll(alias, "{hint}", q.Hint)), " ")
	return search(ctx, s.provider, s.timeout, query)
}

// providerStrategy sends "name, hint" upstream.
type providerStrategy struct {
	provider Provider
	timeout  time.Duration
}

func (providerStrategy) Source() Source { return SourceProvider }

func (s providerStrategy) Resolve(ctx context.Context, q Query) (domain.Coordinate, bool) {
	return search(ctx, s.provider, s.timeout, fullQuery(q))
}

// simplifiedStrategy retries once with the name cut at its first comma.
// It is skipped when that would repeat the full query.
type simplifiedStrategy struct {
	provider Provider
	timeout  time.Duration
}

func (simplifiedStrategy) Source() Source { return SourceSimplified }

func (s simplifiedStrategy) Resolve(ctx context.Context, q Query) (domain.Coordinate, bool) {
	simple := simplify(q.Name)
	if simple == "" || simple == fullQuery(q) {
		return domain.Coordinate{}, false
	}
	return search(ctx, s.provider, s.timeout, simple)
}

func simplify(name string) string {
	if i := strings.IndexByte(name, ','); i >= 0 {
		name = name[:i]
	}
	return strings.TrimSpace(name)
}

// tableStrategy matches the hint, then the name, then the name's last
// comma-separated part against the static country/city table.
type tableStrategy struct {
	places map[string]domain.Coordinate
}

func (tableStrategy) Source() Source { return SourceTable }

func (s tableStrategy) Resolve(_ context.Context, q Query) (domain.Coordinate, bool) {
	candidates := []string{q.Hint, q.Name}
	if i := strings.LastIndexByte(q.Name, ','); i >= 0 {
		candidates = append(candidates, q.Name[i+1:])
	}
	for _, c := range candidates {
		if coord, ok := s.places[normalize(c)]; ok && c != "" {
			return coord, true
		}
	}
	return domain.Coordinate{}, false
}

// defaultStrategy always answers with the application-wide fallback and logs
// the miss.
type defaultStrategy struct {
	coord domain.Coordinate
	log   *slog.Logger
}

func (defaultStrategy) Source() Source { return SourceDefault }

func (s defaultStrategy) Resolve(_ context.Context, q Query) (domain.Coordinate, bool) {
	s.log.Warn("geocode resolution failed, using default coordinate",
		"query", q.Name, "hint", q.Hint, "lat", s.coord.Lat, "lon", s.coord.Lon)
	return s.coord, true
}
