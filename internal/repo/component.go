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

// ComponentRepo defines the persistence operations for trip Components.
// The (trip_id, type) pair is unique, so writes are upserts.
type ComponentRepo interface {
	// Upsert inserts the component or replaces the trip's existing component
	// of the same type, returning the stored row.
	Upsert(ctx context.Context, c domain.Component) (domain.Component, error)

	// GetByType returns the trip's active component of type t.
	// Returns domain.ErrNotFound if the trip has none.
	GetByType(ctx context.Context, tripID uuid.UUID, t domain.ComponentType) (domain.Component, error)

	// ListByTripID returns all components for a trip ordered by type.
	ListByTripID(ctx context.Context, tripID uuid.UUID) ([]domain.Component, error)

	// Delete removes the trip's component of type t.
	// Returns domain.ErrNotFound if the trip has none.
	Delete(ctx context.Context, tripID uuid.UUID, t domain.ComponentType) error
}

// pgComponentRepo is the Postgres implementation of ComponentRepo.
type pgComponentRepo struct {
	db db
}

// NewComponentRepo constructs a ComponentRepo backed by the provided db connection.
func NewComponentRepo(db db) ComponentRepo {
	return &pgComponentRepo{db: db}
}

const componentColumns = `id, trip_id, type, title, description, price, metadata, created_at, updated_at`

// Upsert relies on the (trip_id, type) unique constraint; the row id is kept on
// conflict so references to the component stay valid.
func (r *pgComponentRepo) Upsert(ctx context.Context, c domain.Component) (domain.Component, error) {
	const q = `
		INSERT INTO components (trip_id, type, title, description, price, metadata)
		VALUES (@trip_id, @type, @title, @description, @price, @metadata)
		ON CONFLICT (trip_id, type) DO UPDATE
		SET title       = EXCLUDED.title,
		    description = EXCLUDED.description,
		    price       = EXCLUDED.price,
		    metadata    = EXCLUDED.metadata,
		    updated_at  = now()
		RETURNING ` + componentColumns

	var metadata []byte
	if len(c.Metadata) > 0 {
		metadata = c.Metadata
	}
	args := pgx.NamedArgs{
		"trip_id":     c.TripID,
		"type":        string(c.Type),
		"title":       c.Title,
		"description": c.Description,
		"price":       c.Price,
		"metadata":    metadata,
	}

	result, err := scanComponent(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Component{}, fmt.Errorf("repo.ComponentRepo.Upsert: %w", err)
	}
	return result, nil
}

func (r *pgComponentRepo) GetByType(ctx context.Context, tripID uuid.UUID, t domain.ComponentType) (domain.Component, error) {
	const q = `SELECT ` + componentColumns + ` FROM components WHERE trip_id = @trip_id AND type = @type`

	result, err := scanComponent(r.db.QueryRow(ctx, q, pgx.NamedArgs{"trip_id": tripID, "type": string(t)}))
	if err != nil {
		return domain.Component{}, fmt.Errorf("repo.ComponentRepo.GetByType: %w", err)
	}
	return result, nil
}

func (r *pgComponentRepo) ListByTripID(ctx context.Context, tripID uuid.UUID) ([]domain.Component, error) {
	const q = `SELECT ` + componentColumns + ` FROM components WHERE trip_id = @trip_id ORDER BY type`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"trip_id": tripID})
	if err != nil {
		return nil, fmt.Errorf("repo.ComponentRepo.ListByTripID: %w", err)
	}
	defer rows.Close()

	components := []domain.Component{}
	for rows.Next() {
		c, err := scanComponent(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.ComponentRepo.ListByTripID: scan: %w", err)
		}
		components = append(components, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.ComponentRepo.ListByTripID: rows: %w", err)
	}
	return components, nil
}

func (r *pgComponentRepo) Delete(ctx context.Context, tripID uuid.UUID, t domain.ComponentType) error {
	const q = `DELETE FROM components WHERE trip_id = @trip_id AND type = @type`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"trip_id": tripID, "type": string(t)})
	if err != nil {
		return fmt.Errorf("repo.ComponentRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.ComponentRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

func scanComponent(s scanner) (domain.Component, error) {
	var (
		c        domain.Component
		id       pgtype.UUID
		tripID   pgtype.UUID
		typ      string
		metadata []byte
	)

	err := s.Scan(&id, &tripID, &typ, &c.Title, &c.Description, &c.Price, &metadata, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Component{}, domain.ErrNotFound
		}
		return domain.Component{}, err
	}

	c.ID = uuid.UUID(id.Bytes)
	c.TripID = uuid.UUID(tripID.Bytes)
	c.Type = domain.ComponentType(typ)
	if len(metadata) > 0 {
		c.Metadata = metadata
	}
	return c, nil
}
