// Package postgres implements repository.Store on a pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"movierental/repository"
	"movierental/util/database"
)

var _ repository.Store = (*Store)(nil)

// querier is satisfied by both the pool and an open pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	pool *pgxpool.Pool
}

func New(db *database.DB) *Store { return &Store{pool: db.Pool} }

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS genres (
	id   UUID PRIMARY KEY,
	name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS movies (
	id                UUID PRIMARY KEY,
	title             TEXT NOT NULL,
	genre_id          UUID NOT NULL,
	genre_name        TEXT NOT NULL,
	number_in_stock   INT NOT NULL CHECK (number_in_stock >= 0),
	daily_rental_rate DOUBLE PRECISION NOT NULL
);

CREATE TABLE IF NOT EXISTS customers (
	id      UUID PRIMARY KEY,
	name    TEXT NOT NULL,
	phone   TEXT NOT NULL,
	is_gold BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS users (
	id            UUID PRIMARY KEY,
	name          TEXT NOT NULL,
	email         TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	is_admin      BOOLEAN NOT NULL DEFAULT FALSE,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE UNIQUE INDEX IF NOT EXISTS users_email_key ON users (lower(email));

CREATE TABLE IF NOT EXISTS rentals (
	id                      UUID PRIMARY KEY,
	customer_id             UUID NOT NULL,
	customer_name           TEXT NOT NULL,
	customer_phone          TEXT NOT NULL,
	movie_id                UUID NOT NULL,
	movie_title             TEXT NOT NULL,
	movie_daily_rental_rate DOUBLE PRECISION NOT NULL,
	date_out                TIMESTAMPTZ NOT NULL,
	date_returned           TIMESTAMPTZ,
	rental_fee              DOUBLE PRECISION,
	CONSTRAINT rentals_customer_movie_key UNIQUE (customer_id, movie_id)
);
CREATE INDEX IF NOT EXISTS rentals_date_out_idx ON rentals (date_out DESC);
`

// Migrate creates the tables and indexes when they do not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// WithinTx runs fn in a READ COMMITTED transaction. Stock and ledger rows are
// serialized with row locks taken by LockMovie and the guarded stock update.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.RentalTx) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", mapErr(err))
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
		}
	}()

	if err = fn(ctx, &rentalTx{q: tx}); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", mapErr(err))
	}
	return nil
}

func mapErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return fmt.Errorf("%w: %s", repository.ErrDuplicate, pgErr.ConstraintName)
		case pgerrcode.CheckViolation:
			return fmt.Errorf("%w: %s", repository.ErrOutOfStock, pgErr.ConstraintName)
		case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected, pgerrcode.LockNotAvailable:
			return fmt.Errorf("%w: %s", repository.ErrConflict, pgErr.Message)
		}
	}
	return err
}
