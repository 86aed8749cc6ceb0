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

// MessageRepo persists the conversation transcript of a trip.
// Messages are append-only.
type MessageRepo interface {
	// Append stores a message and returns it with id and created_at populated.
	Append(ctx context.Context, m domain.Message) (domain.Message, error)

	// ListByTripID returns the transcript oldest first.
	ListByTripID(ctx context.Context, tripID uuid.UUID) ([]domain.Message, error)
}

type pgMessageRepo struct {
	db db
}

// NewMessageRepo constructs a MessageRepo backed by the provided db connection.
func NewMessageRepo(db db) MessageRepo {
	return &pgMessageRepo{db: db}
}

const messageColumns = `id, trip_id, role, content, payload, created_at`

func (r *pgMessageRepo) Append(ctx context.Context, m domain.Message) (domain.Message, error) {
	const q = `
		INSERT INTO messages (trip_id, role, content, payload)
		VALUES (@trip_id, @role, @content, @payload)
		RETURNING ` + messageColumns

	args := pgx.NamedArgs{
		"trip_id": m.TripID,
		"role":    string(m.Role),
		"content": m.Content,
		"payload": m.Payload,
	}

	result, err := scanMessage(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Message{}, fmt.Errorf("repo.MessageRepo.Append: %w", err)
	}
	return result, nil
}

func (r *pgMessageRepo) ListByTripID(ctx context.Context, tripID uuid.UUID) ([]domain.Message, error) {
	const q = `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE trip_id = @trip_id
		ORDER BY created_at, id`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"trip_id": tripID})
	if err != nil {
		return nil, fmt.Errorf("repo.MessageRepo.ListByTripID: %w", err)
	}
	defer rows.Close()

	msgs := []domain.Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.MessageRepo.ListByTripID: scan: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.MessageRepo.ListByTripID: rows: %w", err)
	}
	return msgs, nil
}

func scanMessage(s scanner) (domain.Message, error) {
	var (
		m      domain.Message
		id     pgtype.UUID
		tripID pgtype.UUID
		role   string
	)

	err := s.Scan(&id, &tripID, &role, &m.Content, &m.Payload, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Message{}, domain.ErrNotFound
		}
		return domain.Message{}, err
	}

	m.ID = uuid.UUID(id.Bytes)
	m.TripID = uuid.UUID(tripID.Bytes)
	m.Role = domain.Role(role)
	return m, nil
}
