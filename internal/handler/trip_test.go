package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/tripchat/backend/internal/domain"
	"github.com/pkordes/tripchat/backend/internal/handler"
)

// mockTripServicer is a test double for handler.TripServicer.
// Set only the method fields your test needs.
type mockTripServicer struct {
	create  func(ctx context.Context, trip domain.Trip) (domain.Trip, error)
	getByID func(ctx context.Context, id uuid.UUID) (domain.Trip, error)
	list    func(ctx context.Context, p domain.PaginationParams) ([]domain.Trip, int64, error)
	update  func(ctx context.Context, trip domain.Trip) (domain.Trip, error)
	delete  func(ctx context.Context, id uuid.UUID) error
}

func (m *mockTripServicer) Create(ctx context.Context, t domain.Trip) (domain.Trip, error) {
	return m.create(ctx, t)
}
func (m *mockTripServicer) GetByID(ctx context.Context, id uuid.UUID) (domain.Trip, error) {
	return m.getByID(ctx, id)
}
func (m *mockTripServicer) List(ctx context.Context, p domain.PaginationParams) ([]domain.Trip, int64, error) {
	return m.list(ctx, p)
}
func (m *mockTripServicer) Update(ctx context.Context, t domain.Trip) (domain.Trip, error) {
	return m.update(ctx, t)
}
func (m *mockTripServicer) Delete(ctx context.Context, id uuid.UUID) error {
	return m.delete(ctx, id)
}

// compile-time check: mockTripServicer must satisfy handler.TripServicer.
var _ handler.TripServicer = (*mockTripServicer)(nil)

// ---- helpers ---------------------------------------------------------------

// newHTTPHandler wires a Server with the given mock into the chi router.
// This mirrors how main.go wires it in production.
func newHTTPHandler(svc handler.TripServicer) http.Handler {
	return handler.NewServer(svc, nil, nil, nil, nil).Routes()
}

func tripFixture() domain.Trip {
	return domain.Trip{
		ID:          uuid.New(),
		Destination: "Lisbon",
		Country:     "Portugal",
		StartDate:   time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC),
		Adults:      2,
		Status:      domain.TripStatusDraft,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
}

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func dateStr(t time.Time) string {
	return t.Format("2006-01-02")
}

type tripResponse struct {
	Id          uuid.UUID `json:"id"`
	Destination string    `json:"destination"`
	Country     *string   `json:"country"`
	StartDate   string    `json:"start_date"`
	EndDate     string    `json:"end_date"`
	DayCount    int       `json:"day_count"`
	Adults      int       `json:"adults"`
	Children    int       `json:"children"`
	Status      string    `json:"status"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

// ---- POST /trips -----------------------------------------------------------

func TestCreateTrip_201(t *testing.T) {
	fixture := tripFixture()
	var got domain.Trip
	svc := &mockTripServicer{
		create: func(_ context.Context, trip domain.Trip) (domain.Trip, error) {
			got = trip
			return fixture, nil
		},
	}

	body := jsonBody(t, map[string]any{
		"destination": "Lisbon",
		"country":     "Portugal",
		"start_date":  dateStr(fixture.StartDate),
		"end_date":    dateStr(fixture.EndDate),
		"adults":      2,
		"children":    0,
	})

	req := httptest.NewRequest(http.MethodPost, "/trips", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	newHTTPHandler(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Lisbon", got.Destination)
	assert.Equal(t, "Portugal", got.Country)
	assert.True(t, got.StartDate.Equal(fixture.StartDate))

	var resp tripResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, fixture.ID, resp.Id)
	assert.Equal(t, "2025-06-01", resp.StartDate)
	assert.Equal(t, 5, resp.DayCount)
}

func TestCreateTrip_422_ValidationError(t *testing.T) {
	svc := &mockTripServicer{
		create: func(_ context.Context, _ domain.Trip) (domain.Trip, error) {
			return domain.Trip{}, fmt.Errorf("service.TripService.Create: %w: destination is required", domain.ErrValidation)
		},
	}

	body := jsonBody(t, map[string]any{
		"destination": "",
		"start_date":  "2025-06-01",
		"end_date":    "2025-06-03",
	})

	req := httptest.NewRequest(http.MethodPost, "/trips", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	newHTTPHandler(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "validation_error", resp.Error.Code)
	assert.Equal(t, "destination is required", resp.Error.Message)
}

func TestCreateTrip_422_UnknownField(t *testing.T) {
	svc := &mockTripServicer{}

	body := jsonBody(t, map[string]any{
		"destination": "Lisbon",
		"start_date":  "2025-06-01",
		"end_date":    "2025-06-03",
		"budget":      9000,
	})

	req := httptest.NewRequest(http.MethodPost, "/trips", body)
	rec := httptest.NewRecorder()

	newHTTPHandler(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCreateTrip_422_MalformedDate(t *testing.T) {
	svc := &mockTripServicer{}

	body := jsonBody(t, map[string]any{
		"destination": "Lisbon",
		"start_date":  "June 1st",
		"end_date":    "2025-06-03",
	})

	req := httptest.NewRequest(http.MethodPost, "/trips", body)
	rec := httptest.NewRecorder()

	newHTTPHandler(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

// ---- GET /trips ------------------------------------------------------------

func TestListTrips_200(t *testing.T) {
	trips := []domain.Trip{tripFixture(), tripFixture()}
	svc := &mockTripServicer{
		list: func(_ context.Context, _ domain.PaginationParams) ([]domain.Trip, int64, error) {
			return trips, 2, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/trips", nil)
	rec := httptest.NewRecorder()

	newHTTPHandler(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data       []tripResponse `json:"data"`
		Pagination struct {
			Page  int `json:"page"`
			Limit int `json:"limit"`
			Total int `json:"total"`
		} `json:"pagination"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Len(t, resp.Data, 2)
	assert.Equal(t, 1, resp.Pagination.Page)
	assert.Equal(t, 20, resp.Pagination.Limit)
	assert.Equal(t, 2, resp.Pagination.Total)
}

func TestListTrips_200_Empty(t *testing.T) {
	svc := &mockTripServicer{
		list: func(_ context.Context, _ domain.PaginationParams) ([]domain.Trip, int64, error) {
			return []domain.Trip{}, 0, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/trips", nil)
	rec := httptest.NewRecorder()

	newHTTPHandler(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	// Must be a JSON array, not null.
	assert.Contains(t, rec.Body.String(), `"data":[]`)
}

func TestListTrips_PaginationParams(t *testing.T) {
	var got domain.PaginationParams
	svc := &mockTripServicer{
		list: func(_ context.Context, p domain.PaginationParams) ([]domain.Trip, int64, error) {
			got = p
			return []domain.Trip{}, 0, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/trips?page=3&limit=500", nil)
	rec := httptest.NewRecorder()

	newHTTPHandler(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.PaginationParams{Page: 3, Limit: 100}, got)
}

func TestListTrips_422_BadPage(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/trips?page=two", nil)
	rec := httptest.NewRecorder()

	newHTTPHandler(&mockTripServicer{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

// ---- GET /trips/{id} -------------------------------------------------------

func TestGetTrip_200(t *testing.T) {
	fixture := tripFixture()
	svc := &mockTripServicer{
		getByID: func(_ context.Context, id uuid.UUID) (domain.Trip, error) {
			return fixture, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/trips/"+fixture.ID.String(), nil)
	rec := httptest.NewRecorder()

	newHTTPHandler(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp tripResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, fixture.ID, resp.Id)
	require.NotNil(t, resp.Country)
	assert.Equal(t, "Portugal", *resp.Country)
}

func TestGetTrip_404(t *testing.T) {
	svc := &mockTripServicer{
		getByID: func(_ context.Context, _ uuid.UUID) (domain.Trip, error) {
			return domain.Trip{}, domain.ErrNotFound
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/trips/"+uuid.New().String(), nil)
	rec := httptest.NewRecorder()

	newHTTPHandler(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeError(t, rec).Error.Code)
}

func TestGetTrip_422_MalformedID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/trips/not-a-uuid", nil)
	rec := httptest.NewRecorder()

	newHTTPHandler(&mockTripServicer{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestGetTrip_500_Unexpected(t *testing.T) {
	svc := &mockTripServicer{
		getByID: func(_ context.Context, _ uuid.UUID) (domain.Trip, error) {
			return domain.Trip{}, fmt.Errorf("connection reset")
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/trips/"+uuid.New().String(), nil)
	rec := httptest.NewRecorder()

	newHTTPHandler(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection reset")
}

// ---- PUT /trips/{id} -------------------------------------------------------

func TestUpdateTrip_200_PatchesOnlyGivenFields(t *testing.T) {
	fixture := tripFixture()
	var saved domain.Trip
	svc := &mockTripServicer{
		getByID: func(_ context.Context, _ uuid.UUID) (domain.Trip, error) {
			return fixture, nil
		},
		update: func(_ context.Context, trip domain.Trip) (domain.Trip, error) {
			saved = trip
			return trip, nil
		},
	}

	body := jsonBody(t, map[string]any{"status": "saved", "children": 1})

	req := httptest.NewRequest(http.MethodPut, "/trips/"+fixture.ID.String(), body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	newHTTPHandler(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.TripStatusSaved, saved.Status)
	assert.Equal(t, 1, saved.Children)
	assert.Equal(t, fixture.Adults, saved.Adults)
	assert.Equal(t, fixture.Destination, saved.Destination)

	var resp tripResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "saved", resp.Status)
}

func TestUpdateTrip_422_DestinationIsNotPatchable(t *testing.T) {
	body := jsonBody(t, map[string]any{"destination": "Porto"})

	req := httptest.NewRequest(http.MethodPut, "/trips/"+uuid.New().String(), body)
	rec := httptest.NewRecorder()

	newHTTPHandler(&mockTripServicer{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestUpdateTrip_404(t *testing.T) {
	svc := &mockTripServicer{
		getByID: func(_ context.Context, _ uuid.UUID) (domain.Trip, error) {
			return domain.Trip{}, domain.ErrNotFound
		},
	}

	body := jsonBody(t, map[string]any{"adults": 3})

	req := httptest.NewRequest(http.MethodPut, "/trips/"+uuid.New().String(), body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	newHTTPHandler(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ---- DELETE /trips/{id} ----------------------------------------------------

func TestDeleteTrip_204(t *testing.T) {
	svc := &mockTripServicer{
		delete: func(_ context.Context, _ uuid.UUID) error { return nil },
	}

	req := httptest.NewRequest(http.MethodDelete, "/trips/"+uuid.New().String(), nil)
	rec := httptest.NewRecorder()

	newHTTPHandler(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestDeleteTrip_DropsSession(t *testing.T) {
	id := uuid.New()
	svc := &mockTripServicer{
		delete: func(_ context.Context, _ uuid.UUID) error { return nil },
	}
	sessions := &mockSessions{}

	req := httptest.NewRequest(http.MethodDelete, "/trips/"+id.String(), nil)
	rec := httptest.NewRecorder()

	handler.NewServer(svc, nil, nil, sessions, nil).Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []uuid.UUID{id}, sessions.dropped)
}

func TestDeleteTrip_404(t *testing.T) {
	svc := &mockTripServicer{
		delete: func(_ context.Context, _ uuid.UUID) error { return domain.ErrNotFound },
	}

	req := httptest.NewRequest(http.MethodDelete, "/trips/"+uuid.New().String(), nil)
	rec := httptest.NewRecorder()

	newHTTPHandler(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
