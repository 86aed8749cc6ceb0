package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// beginner is satisfied by *pgxpool.Pool and pgx.Tx. Beginning on a pgx.Tx
// creates a savepoint, so integration tests can nest InTx inside their
// rolled-back test transaction.
type beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Repos bundles the repositories bound to a single connection or transaction.
type Repos struct {
	Trips      TripRepo
	Days       DayRepo
	Components ComponentRepo
	Messages   MessageRepo
}

// NewRepos binds every repository to db.
func NewRepos(db db) Repos {
	return Repos{
		Trips:      NewTripRepo(db),
		Days:       NewDayRepo(db),
		Components: NewComponentRepo(db),
		Messages:   NewMessageRepo(db),
	}
}

// Transactor runs a function against repositories that share one transaction.
type Transactor interface {
	// InTx commits if fn returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(Repos) error) error
}

type pgTransactor struct {
	db beginner
}

// NewTransactor returns a Transactor that begins transactions on db.
func NewTransactor(db beginner) Transactor {
	return &pgTransactor{db: db}
}

func (t *pgTransactor) InTx(ctx context.Context, fn func(Repos) error) error {
	err := pgx.BeginFunc(ctx, t.db, func(tx pgx.Tx) error {
		return fn(NewRepos(tx))
	})
	if err != nil {
		return fmt.Errorf("repo.Transactor.InTx: %w", err)
	}
	return nil
}
