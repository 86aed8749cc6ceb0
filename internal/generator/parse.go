package generator

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/pkordes/tripchat/backend/internal/domain"
)

type dailyItinerary struct {
	DailyItinerary []struct {
		Day        int               `json:"day"`
		Activities []domain.Activity `json:"activities"`
	} `json:"daily_itinerary"`
}

// ParseDailyItinerary decodes a {"daily_itinerary": [...]} document and returns
// exactly count days numbered startDay..startDay+count-1 and dated from the
// trip's start date. Numbers chosen by the model are ignored; order is kept.
// Empty, malformed or short output wraps domain.ErrGenerationFailure.
func ParseDailyItinerary(raw string, trip domain.Trip, startDay, count int) ([]domain.ItineraryDay, error) {
	var doc dailyItinerary
	if err := json.Unmarshal([]byte(stripFences(raw)), &doc); err != nil {
		return nil, fmt.Errorf("%w: decode daily_itinerary: %v", domain.ErrGenerationFailure, err)
	}
	if len(doc.DailyItinerary) == 0 {
		return nil, fmt.Errorf("%w: daily_itinerary is empty", domain.ErrGenerationFailure)
	}
	if len(doc.DailyItinerary) < count {
		return nil, fmt.Errorf("%w: wanted %d days, got %d", domain.ErrGenerationFailure, count, len(doc.DailyItinerary))
	}

	days := make([]domain.ItineraryDay, count)
	for i := 0; i < count; i++ {
		n := startDay + i
		acts := normalizeActivities(doc.DailyItinerary[i].Activities)
		if len(acts) == 0 {
			return nil, fmt.Errorf("%w: day %d has no activities", domain.ErrGenerationFailure, n)
		}
		days[i] = domain.ItineraryDay{
			TripID:     trip.ID,
			DayNumber:  n,
			Date:       trip.DateOf(n),
			Activities: acts,
		}
	}
	return days, nil
}

// ParseAlternatives decodes {"alternatives": [...]}. Entries without a title are dropped.
func ParseAlternatives(raw string) ([]domain.Activity, error) {
	var doc struct {
		Alternatives []domain.Activity `json:"alternatives"`
	}
	if err := json.Unmarshal([]byte(stripFences(raw)), &doc); err != nil {
		return nil, fmt.Errorf("%w: decode alternatives: %v", domain.ErrGenerationFailure, err)
	}
	alts := normalizeActivities(doc.Alternatives)
	if len(alts) == 0 {
		return nil, fmt.Errorf("%w: no alternatives returned", domain.ErrGenerationFailure)
	}
	return alts, nil
}

func normalizeActivities(in []domain.Activity) []domain.Activity {
	out := make([]domain.Activity, 0, len(in))
	for _, a := range in {
		a.Title = strings.TrimSpace(a.Title)
		if a.Title == "" {
			continue
		}
		a.Category = domain.NormalizeCategory(a.Category)
		out = append(out, a)
	}
	return out
}

// stripFences removes a surrounding ```json ... ``` block if the model added one.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func isGenerationFailure(err error) bool {
	return errors.Is(err, domain.ErrGenerationFailure)
}
