// Package repository holds the storage contracts shared by every backend.
package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"movierental/model"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
	// ErrConflict marks a write that lost a race with another transaction and
	// may succeed when retried.
	ErrConflict   = errors.New("concurrent write conflict")
	ErrOutOfStock = errors.New("stock exhausted")
)

type GenreStore interface {
	ListGenres(ctx context.Context) ([]model.Genre, error)
	FindGenre(ctx context.Context, id uuid.UUID) (*model.Genre, error)
	CreateGenre(ctx context.Context, g *model.Genre) error
	UpdateGenre(ctx context.Context, g *model.Genre) error
	DeleteGenre(ctx context.Context, id uuid.UUID) (*model.Genre, error)
}

type MovieStore interface {
	ListMovies(ctx context.Context) ([]model.Movie, error)
	FindMovie(ctx context.Context, id uuid.UUID) (*model.Movie, error)
	CreateMovie(ctx context.Context, m *model.Movie) error
	UpdateMovie(ctx context.Context, m *model.Movie) error
	DeleteMovie(ctx context.Context, id uuid.UUID) (*model.Movie, error)
}

type CustomerStore interface {
	ListCustomers(ctx context.Context) ([]model.Customer, error)
	FindCustomer(ctx context.Context, id uuid.UUID) (*model.Customer, error)
	CreateCustomer(ctx context.Context, c *model.Customer) error
	UpdateCustomer(ctx context.Context, c *model.Customer) error
	DeleteCustomer(ctx context.Context, id uuid.UUID) (*model.Customer, error)
}

type UserStore interface {
	// CreateUser fails with ErrDuplicate when the email is taken.
	CreateUser(ctx context.Context, u *model.User) error
	UserByEmail(ctx context.Context, email string) (*model.User, error)
	UserByID(ctx context.Context, id uuid.UUID) (*model.User, error)
}

type RentalReader interface {
	// ListRentals returns every rental, newest dateOut first.
	ListRentals(ctx context.Context) ([]model.Rental, error)
	FindRental(ctx context.Context, id uuid.UUID) (*model.Rental, error)
	// LookupRental returns the most recent rental for the pair, open or closed.
	LookupRental(ctx context.Context, customerID, movieID uuid.UUID) (*model.Rental, error)
}

// RentalTx is the write side of a unit of work spanning the rental ledger and
// the movie catalog. Every method runs inside the enclosing transaction.
type RentalTx interface {
	// LockMovie reads the movie and holds it against concurrent stock changes
	// until the transaction ends.
	LockMovie(ctx context.Context, id uuid.UUID) (*model.Movie, error)
	// AdjustStock adds delta to numberInStock. It fails with ErrOutOfStock
	// instead of letting the count go negative.
	AdjustStock(ctx context.Context, movieID uuid.UUID, delta int) error
	LookupRental(ctx context.Context, customerID, movieID uuid.UUID) (*model.Rental, error)
	// InsertRental fails with ErrDuplicate when a record for the pair exists.
	InsertRental(ctx context.Context, r *model.Rental) error
	// CloseRental persists dateReturned and rentalFee on an open rental. It
	// fails with ErrNotFound when no open rental with that id exists.
	CloseRental(ctx context.Context, r *model.Rental) error
	DeleteRental(ctx context.Context, id uuid.UUID) error
}

// UnitOfWork runs fn in a transaction: it commits when fn returns nil and
// rolls every write back otherwise, including on context cancellation.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx RentalTx) error) error
}

type Store interface {
	GenreStore
	MovieStore
	CustomerStore
	UserStore
	RentalReader
	UnitOfWork

	Ping(ctx context.Context) error
	Close() error
}
