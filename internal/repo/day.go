package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/tripchat/backend/internal/domain"
)

// DayRepo defines the persistence operations for ItineraryDays.
// All operations are scoped by tripID to enforce ownership.
// Activities are stored as a single JSONB array per day.
type DayRepo interface {
	// Create inserts a new day and returns the persisted record.
	// A duplicate (trip_id, day_number) is rejected by the database.
	Create(ctx context.Context, day domain.ItineraryDay) (domain.ItineraryDay, error)

	// ListByTripID returns all days for a trip ordered by day_number ascending.
	ListByTripID(ctx context.Context, tripID uuid.UUID) ([]domain.ItineraryDay, error)

	// GetByNumber retrieves one day of a trip by its day_number.
	// Returns domain.ErrNotFound if the trip has no such day.
	GetByNumber(ctx context.Context, tripID uuid.UUID, dayNumber int) (domain.ItineraryDay, error)

	// Update overwrites the date and activities of an existing day.
	// Returns domain.ErrNotFound if no day with that ID exists under that trip.
	Update(ctx context.Context, day domain.ItineraryDay) (domain.ItineraryDay, error)

	// Delete removes a day by ID, scoped to the given tripID.
	// Returns domain.ErrNotFound if no day with that ID exists under that trip.
	Delete(ctx context.Context, tripID, dayID uuid.UUID) error

	// DeleteByNumbers removes the days whose day_number is in numbers and
	// returns how many rows were deleted.
	DeleteByNumbers(ctx context.Context, tripID uuid.UUID, numbers []int) (int64, error)
}

// pgDayRepo is the Postgres implementation of DayRepo.
type pgDayRepo struct {
	db db
}

// NewDayRepo constructs a DayRepo backed by the provided db connection.
func NewDayRepo(db db) DayRepo {
	return &pgDayRepo{db: db}
}

const dayColumns = `id, trip_id, day_number, date, activities, created_at, updated_at`

func (r *pgDayRepo) Create(ctx context.Context, day domain.ItineraryDay) (domain.ItineraryDay, error) {
	const q = `
		INSERT INTO itinerary_days (trip_id, day_number, date, activities)
		VALUES (@trip_id, @day_number, @date, @activities)
		RETURNING ` + dayColumns

	args := pgx.NamedArgs{
		"trip_id":    day.TripID,
		"day_number": day.DayNumber,
		"date":       day.Date,
		"activities": nonNilActivities(day.Activities),
	}

	result, err := scanDay(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.ItineraryDay{}, fmt.Errorf("repo.DayRepo.Create: %w", err)
	}
	return result, nil
}

func (r *pgDayRepo) ListByTripID(ctx context.Context, tripID uuid.UUID) ([]domain.ItineraryDay, error) {
	const q = `
		SELECT ` + dayColumns + `
		FROM itinerary_days
		WHERE trip_id = @trip_id
		ORDER BY day_number`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"trip_id": tripID})
	if err != nil {
		return nil, fmt.Errorf("repo.DayRepo.ListByTripID: %w", err)
	}
	defer rows.Close()

	days := []domain.ItineraryDay{}
	for rows.Next() {
		d, err := scanDay(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.DayRepo.ListByTripID: scan: %w", err)
		}
		days = append(days, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.DayRepo.ListByTripID: rows: %w", err)
	}
	return days, nil
}

func (r *pgDayRepo) GetByNumber(ctx context.Context, tripID uuid.UUID, dayNumber int) (domain.ItineraryDay, error) {
	const q = `
		SELECT ` + dayColumns + `
		FROM itinerary_days
		WHERE trip_id = @trip_id AND day_number = @day_number`

	result, err := scanDay(r.db.QueryRow(ctx, q, pgx.NamedArgs{"trip_id": tripID, "day_number": dayNumber}))
	if err != nil {
		return domain.ItineraryDay{}, fmt.Errorf("repo.DayRepo.GetByNumber: %w", err)
	}
	return result, nil
}

func (r *pgDayRepo) Update(ctx context.Context, day domain.ItineraryDay) (domain.ItineraryDay, error) {
	const q = `
		UPDATE itinerary_days
		SET date       = @date,
		    activities = @activities,
		    updated_at = now()
		WHERE id = @id AND trip_id = @trip_id
		RETURNING ` + dayColumns

	args := pgx.NamedArgs{
		"id":         day.ID,
		"trip_id":    day.TripID,
		"date":       day.Date,
		"activities": nonNilActivities(day.Activities),
	}

	result, err := scanDay(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.ItineraryDay{}, fmt.Errorf("repo.DayRepo.Update: %w", err)
	}
	return result, nil
}

func (r *pgDayRepo) Delete(ctx context.Context, tripID, dayID uuid.UUID) error {
	const q = `DELETE FROM itinerary_days WHERE id = @id AND trip_id = @trip_id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": dayID, "trip_id": tripID})
	if err != nil {
		return fmt.Errorf("repo.DayRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.DayRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *pgDayRepo) DeleteByNumbers(ctx context.Context, tripID uuid.UUID, numbers []int) (int64, error) {
	if len(numbers) == 0 {
		return 0, nil
	}
	const q = `DELETE FROM itinerary_days WHERE trip_id = @trip_id AND day_number = ANY(@numbers)`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"trip_id": tripID, "numbers": numbers})
	if err != nil {
		return 0, fmt.Errorf("repo.DayRepo.DeleteByNumbers: %w", err)
	}
	return tag.RowsAffected(), nil
}

// nonNilActivities keeps the JSONB column an array; a nil slice would encode as NULL.
func nonNilActivities(a []domain.Activity) []domain.Activity {
	if a == nil {
		return []domain.Activity{}
	}
	return a
}

// scanDay maps a single database row into a domain.ItineraryDay.
// The activities JSONB column is decoded by pgx's JSON codec.
func scanDay(s scanner) (domain.ItineraryDay, error) {
	var (
		d      domain.ItineraryDay
		id     pgtype.UUID
		tripID pgtype.UUID
		date   pgtype.Date
	)

	err := s.Scan(&id, &tripID, &d.DayNumber, &date, &d.Activities, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ItineraryDay{}, domain.ErrNotFound
		}
		return domain.ItineraryDay{}, err
	}

	d.ID = uuid.UUID(id.Bytes)
	d.TripID = uuid.UUID(tripID.Bytes)
	d.Date = date.Time
	if d.Activities == nil {
		d.Activities = []domain.Activity{}
	}
	return d, nil
}
