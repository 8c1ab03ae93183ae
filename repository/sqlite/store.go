// Package sqlite implements repository.Store on an embedded SQLite file using
// the pure Go modernc driver. Queries are built with goqu and scanned with sqlx.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3" // dialect registration
	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"movierental/repository"
)

var _ repository.Store = (*Store)(nil)

const dialectSQLite = "sqlite3"

// Store serializes every connection through a single handle, so SQLite's
// one-writer rule never surfaces as SQLITE_BUSY inside a unit of work.
type Store struct {
	db      *sqlx.DB
	dialect goqu.DialectWrapper
}

// Open opens (creating if needed) the database file at path and migrates it.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, dialect: goqu.Dialect(dialectSQLite)}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }
func (s *Store) Close() error                   { return s.db.Close() }

const schema = `
CREATE TABLE IF NOT EXISTS genres (
	id   TEXT PRIMARY KEY,
	name TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS movies (
	id                TEXT PRIMARY KEY,
	title             TEXT NOT NULL,
	genre_id          TEXT NOT NULL,
	genre_name        TEXT NOT NULL,
	number_in_stock   INTEGER NOT NULL CHECK (number_in_stock >= 0),
	daily_rental_rate REAL NOT NULL
);
CREATE TABLE IF NOT EXISTS customers (
	id      TEXT PRIMARY KEY,
	name    TEXT NOT NULL,
	phone   TEXT NOT NULL,
	is_gold INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	email         TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	is_admin      INTEGER NOT NULL DEFAULT 0,
	created_at    INTEGER NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS users_email_key ON users (email COLLATE NOCASE);
CREATE TABLE IF NOT EXISTS rentals (
	id                      TEXT PRIMARY KEY,
	customer_id             TEXT NOT NULL,
	customer_name           TEXT NOT NULL,
	customer_phone          TEXT NOT NULL,
	movie_id                TEXT NOT NULL,
	movie_title             TEXT NOT NULL,
	movie_daily_rental_rate REAL NOT NULL,
	date_out                INTEGER NOT NULL,
	date_returned           INTEGER,
	rental_fee              REAL,
	UNIQUE (customer_id, movie_id)
);
CREATE INDEX IF NOT EXISTS rentals_date_out_idx ON rentals (date_out DESC);
`

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// WithinTx runs fn on the single connection. Nothing inside fn may use s.db.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.RentalTx) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", mapErr(err))
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(ctx, &rentalTx{q: tx, dialect: s.dialect}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", mapErr(err))
	}
	return nil
}

// inTx groups plain store writes that must not interleave, like a read
// followed by the delete it reports.
func (s *Store) inTx(ctx context.Context, fn func(tx sqlx.ExtContext) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return mapErr(err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	return mapErr(tx.Commit())
}

type builder interface {
	ToSQL() (string, []any, error)
}

func getOne(ctx context.Context, q sqlx.QueryerContext, dest any, b builder) error {
	query, args, err := b.ToSQL()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	return mapErr(sqlx.GetContext(ctx, q, dest, query, args...))
}

func getAll(ctx context.Context, q sqlx.QueryerContext, dest any, b builder) error {
	query, args, err := b.ToSQL()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	return mapErr(sqlx.SelectContext(ctx, q, dest, query, args...))
}

// exec runs the statement and reports how many rows it touched.
func exec(ctx context.Context, q sqlx.ExecerContext, b builder) (int64, error) {
	query, args, err := b.ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, mapErr(err)
	}
	return res.RowsAffected()
}

// execOne is exec that fails with ErrNotFound when no row matched.
func execOne(ctx context.Context, q sqlx.ExecerContext, b builder) error {
	n, err := exec(ctx, q, b)
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %s", repository.ErrDuplicate, se.Error())
		case sqlite3.SQLITE_CONSTRAINT_CHECK:
			return fmt.Errorf("%w: %s", repository.ErrOutOfStock, se.Error())
		}
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return fmt.Errorf("%w: %s", repository.ErrConflict, se.Error())
		case sqlite3.SQLITE_CONSTRAINT:
			if strings.Contains(se.Error(), "UNIQUE constraint failed") {
				return fmt.Errorf("%w: %s", repository.ErrDuplicate, se.Error())
			}
		}
	}
	return err
}
