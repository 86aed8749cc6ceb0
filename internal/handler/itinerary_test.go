package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/tripchat/backend/internal/domain"
	"github.com/pkordes/tripchat/backend/internal/handler"
	"github.com/pkordes/tripchat/backend/internal/mapcache"
)

// ---- mocks -----------------------------------------------------------------

type mockItineraryReader struct {
	listDays       func(ctx context.Context, tripID uuid.UUID) ([]domain.ItineraryDay, error)
	listComponents func(ctx context.Context, tripID uuid.UUID) ([]domain.Component, error)
}

func (m *mockItineraryReader) ListDays(ctx context.Context, tripID uuid.UUID) ([]domain.ItineraryDay, error) {
	return m.listDays(ctx, tripID)
}
func (m *mockItineraryReader) ListComponents(ctx context.Context, tripID uuid.UUID) ([]domain.Component, error) {
	return m.listComponents(ctx, tripID)
}

var _ handler.ItineraryReader = (*mockItineraryReader)(nil)

// flightsMandatory marks only flights as mandatory.
type flightsMandatory struct{}

func (flightsMandatory) IsMandatory(a domain.Activity) bool {
	return a.Category == domain.CategoryFlight
}

// ---- GET /trips/{id}/days --------------------------------------------------

func TestListDays_FlagsMandatoryActivities(t *testing.T) {
	id := uuid.New()
	reader := &mockItineraryReader{
		listDays: func(_ context.Context, _ uuid.UUID) ([]domain.ItineraryDay, error) {
			return []domain.ItineraryDay{{
				ID:        uuid.New(),
				TripID:    id,
				DayNumber: 1,
				Date:      time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
				Activities: []domain.Activity{
					{Time: "09:00", Title: "Flight TP 1351", Category: domain.CategoryFlight},
					{Time: "13:00", Title: "Alfama walk", Category: domain.CategoryAttraction},
				},
			}}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/trips/"+id.String()+"/days", nil)
	rec := httptest.NewRecorder()
	handler.NewServer(nil, reader, nil, nil, flightsMandatory{}).Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var days []struct {
		DayNumber  int    `json:"day_number"`
		Date       string `json:"date"`
		Activities []struct {
			Title     string `json:"title"`
			Mandatory bool   `json:"mandatory"`
		} `json:"activities"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&days))
	require.Len(t, days, 1)
	assert.Equal(t, "2025-06-01", days[0].Date)
	require.Len(t, days[0].Activities, 2)
	assert.True(t, days[0].Activities[0].Mandatory)
	assert.False(t, days[0].Activities[1].Mandatory)
}

func TestListDays_500(t *testing.T) {
	reader := &mockItineraryReader{
		listDays: func(_ context.Context, _ uuid.UUID) ([]domain.ItineraryDay, error) {
			return nil, fmt.Errorf("boom")
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/trips/"+uuid.New().String()+"/days", nil)
	rec := httptest.NewRecorder()
	handler.NewServer(nil, reader, nil, nil, nil).Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

// ---- GET /trips/{id}/components --------------------------------------------

func TestListComponents(t *testing.T) {
	reader := &mockItineraryReader{
		listComponents: func(_ context.Context, _ uuid.UUID) ([]domain.Component, error) {
			return []domain.Component{{Type: domain.ComponentHotel, Title: "Hotel Avenida"}}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/trips/"+uuid.New().String()+"/components", nil)
	rec := httptest.NewRecorder()
	handler.NewServer(nil, reader, nil, nil, nil).Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "Hotel Avenida"))
}

// ---- GET /trips/{id}/days/{day}/map ----------------------------------------

func TestGetDayMap(t *testing.T) {
	conv := &mockConversation{
		mapView: func(_ context.Context, day int) (mapcache.View, error) {
			return mapcache.View{
				Day:    day,
				Points: []mapcache.Point{{Index: 0, Title: "Belém Tower", Coord: domain.Coordinate{Lat: 38.6916, Lon: -9.2160}}},
				Center: domain.Coordinate{Lat: 38.6916, Lon: -9.2160},
				Zoom:   15,
			}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/trips/"+uuid.New().String()+"/days/2/map", nil)
	rec := httptest.NewRecorder()
	newChatHTTPHandler(conv).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var view mapcache.View
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&view))
	assert.Equal(t, 2, view.Day)
	assert.Equal(t, 15, view.Zoom)
	require.Len(t, view.Points, 1)
}

func TestGetDayMap_422_OutOfRange(t *testing.T) {
	conv := &mockConversation{
		mapView: func(_ context.Context, day int) (mapcache.View, error) {
			return mapcache.View{}, fmt.Errorf("%w: trip has no day %d", domain.ErrInvalidRange, day)
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/trips/"+uuid.New().String()+"/days/9/map", nil)
	rec := httptest.NewRecorder()
	newChatHTTPHandler(conv).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "invalid_range", decodeError(t, rec).Error.Code)
}
