package repo_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/tripchat/backend/internal/domain"
	"github.com/pkordes/tripchat/backend/internal/repo"
)

// newDayRepos returns repos sharing one test transaction plus a persisted trip.
func newDayRepos(t *testing.T) (repo.Repos, domain.Trip) {
	t.Helper()
	repos := repo.NewRepos(newTestTx(t))

	trip, err := repos.Trips.Create(context.Background(), tripFixture())
	require.NoError(t, err)
	return repos, trip
}

func dayFixture(trip domain.Trip, n int) domain.ItineraryDay {
	lat, lon := 35.0116, 135.7681
	return domain.ItineraryDay{
		TripID:    trip.ID,
		DayNumber: n,
		Date:      trip.DateOf(n),
		Activities: []domain.Activity{
			{Time: "09:00", Title: "Fushimi Inari", Category: domain.CategoryAttraction,
				Location: domain.Location{Name: "Fushimi Inari Taisha", Lat: &lat, Lon: &lon}},
			{Time: "12:30", Title: "Lunch", Category: domain.CategoryRestaurant},
		},
	}
}

func TestDayRepo_CreateAndList(t *testing.T) {
	repos, trip := newDayRepos(t)
	ctx := context.Background()

	for _, n := range []int{2, 1, 3} {
		_, err := repos.Days.Create(ctx, dayFixture(trip, n))
		require.NoError(t, err)
	}

	days, err := repos.Days.ListByTripID(ctx, trip.ID)

	require.NoError(t, err)
	require.Len(t, days, 3)
	for i, d := range days {
		assert.Equal(t, i+1, d.DayNumber, "days should be ordered by day_number")
	}
	require.Len(t, days[0].Activities, 2)
	assert.Equal(t, "Fushimi Inari", days[0].Activities[0].Title)
	c, ok := days[0].Activities[0].Location.Coordinate()
	require.True(t, ok, "coordinates should survive the JSONB round trip")
	assert.InDelta(t, 35.0116, c.Lat, 1e-9)
}

func TestDayRepo_Create_DuplicateNumber(t *testing.T) {
	repos, trip := newDayRepos(t)
	ctx := context.Background()

	_, err := repos.Days.Create(ctx, dayFixture(trip, 1))
	require.NoError(t, err)

	_, err = repos.Days.Create(ctx, dayFixture(trip, 1))

	assert.Error(t, err, "(trip_id, day_number) must be unique")
}

func TestDayRepo_List_Empty(t *testing.T) {
	repos, trip := newDayRepos(t)

	days, err := repos.Days.ListByTripID(context.Background(), trip.ID)

	require.NoError(t, err)
	assert.NotNil(t, days)
	assert.Empty(t, days)
}

func TestDayRepo_UpdateAndGetByNumber(t *testing.T) {
	repos, trip := newDayRepos(t)
	ctx := context.Background()

	created, err := repos.Days.Create(ctx, dayFixture(trip, 1))
	require.NoError(t, err)

	created.Activities = []domain.Activity{{Time: "18:00", Title: "Gion walk", Category: domain.CategoryOther}}
	_, err = repos.Days.Update(ctx, created)
	require.NoError(t, err)

	got, err := repos.Days.GetByNumber(ctx, trip.ID, 1)

	require.NoError(t, err)
	require.Len(t, got.Activities, 1)
	assert.Equal(t, "Gion walk", got.Activities[0].Title)
}

func TestDayRepo_GetByNumber_NotFound(t *testing.T) {
	repos, trip := newDayRepos(t)

	_, err := repos.Days.GetByNumber(context.Background(), trip.ID, 9)

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDayRepo_Delete_WrongTrip(t *testing.T) {
	repos, trip := newDayRepos(t)
	ctx := context.Background()

	created, err := repos.Days.Create(ctx, dayFixture(trip, 1))
	require.NoError(t, err)

	err = repos.Days.Delete(ctx, uuid.New(), created.ID)

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDayRepo_DeleteByNumbers(t *testing.T) {
	repos, trip := newDayRepos(t)
	ctx := context.Background()

	for n := 1; n <= 5; n++ {
		_, err := repos.Days.Create(ctx, dayFixture(trip, n))
		require.NoError(t, err)
	}

	deleted, err := repos.Days.DeleteByNumbers(ctx, trip.ID, []int{3, 4})
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	days, err := repos.Days.ListByTripID(ctx, trip.ID)
	require.NoError(t, err)
	var nums []int
	for _, d := range days {
		nums = append(nums, d.DayNumber)
	}
	assert.Equal(t, []int{1, 2, 5}, nums)
}
