package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pkordes/tripchat/backend/internal/domain"
)

// Nominatim is a Provider for the Nominatim search API
// (or any service that speaks the same format=json protocol).
type Nominatim struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

// NewNominatim returns a provider that queries baseURL, e.g.
// https://nominatim.openstreetmap.org/search. A nil client uses http.DefaultClient.
func NewNominatim(baseURL, userAgent string, client *http.Client) *Nominatim {
	if client == nil {
		client = http.DefaultClient
	}
	return &Nominatim{baseURL: baseURL, userAgent: userAgent, client: client}
}

type nominatimPlace struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Search returns the first match for query, or an empty slice.
func (n *Nominatim) Search(ctx context.Context, query string) ([]domain.Coordinate, error) {
	u, err := url.Parse(n.baseURL)
	if err != nil {
		return nil, fmt.Errorf("geocode.Nominatim.Search: parse url: %w", err)
	}
	params := u.Query()
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", "1")
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("geocode.Nominatim.Search: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if n.userAgent != "" {
		req.Header.Set("User-Agent", n.userAgent)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode.Nominatim.Search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocode.Nominatim.Search: unexpected status %d", resp.StatusCode)
	}

	var places []nominatimPlace
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return nil, fmt.Errorf("geocode.Nominatim.Search: decode: %w", err)
	}

	out := make([]domain.Coordinate, 0, len(places))
	for _, p := range places {
		lat, err1 := strconv.ParseFloat(p.Lat, 64)
		lon, err2 := strconv.ParseFloat(p.Lon, 64)
		if err1 != nil || err2 != nil {
			continue
		}
		out = append(out, domain.Coordinate{Lat: lat, Lon: lon})
	}
	return out, nil
}
