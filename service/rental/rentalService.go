package rental

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"movierental/model"
	"movierental/repository"
)

const defaultTimeout = 5 * time.Second

const (
	opCheckout = "checkout"
	opReturn   = "return"
)

// Repo is the slice of storage the lifecycle manager needs.
type Repo interface {
	FindCustomer(ctx context.Context, id uuid.UUID) (*model.Customer, error)
	FindMovie(ctx context.Context, id uuid.UUID) (*model.Movie, error)
	repository.RentalReader
	repository.UnitOfWork
}

type Service interface {
	// Checkout rents one copy of the movie to the customer.
	Checkout(ctx context.Context, customerID, movieID uuid.UUID) (*model.Rental, error)

	// Return closes the open rental for the pair, charges the fee and puts the
	// copy back in stock.
	Return(ctx context.Context, customerID, movieID uuid.UUID) (*model.Rental, error)

	// Lookup finds the most recent rental for the pair, open or closed.
	Lookup(ctx context.Context, customerID, movieID uuid.UUID) (*model.Rental, error)

	List(ctx context.Context) ([]model.Rental, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Rental, error)
}

var _ Service = (*Manager)(nil)

// Manager owns the rental lifecycle. Every state change runs as one unit of
// work over the ledger and the movie's stock.
type Manager struct {
	repo        Repo
	now         func() time.Time
	newID       func() uuid.UUID
	timeout     time.Duration
	maxAttempts int
	baseDelay   time.Duration
	metrics     MetricsCollector
	log         *slog.Logger
}

func New(r Repo, opts ...Option) *Manager {
	m := &Manager{
		repo:        r,
		now:         func() time.Time { return time.Now().UTC() },
		newID:       uuid.New,
		timeout:     defaultTimeout,
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
		metrics:     noopMetrics{},
		log:         slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Checkout(ctx context.Context, customerID, movieID uuid.UUID) (*model.Rental, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	r, err := m.checkout(ctx, customerID, movieID)
	m.observe(ctx, opCheckout, start, err)
	if err != nil {
		return nil, err
	}
	m.log.InfoContext(ctx, "rental checked out",
		"rental_id", r.ID, "customer_id", customerID, "movie_id", movieID)
	return r, nil
}

func (m *Manager) checkout(ctx context.Context, customerID, movieID uuid.UUID) (*model.Rental, error) {
	customer, err := m.repo.FindCustomer(ctx, customerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, makeErr(ErrInvalidReference, msgInvalidCustomer)
		}
		return nil, failed(err)
	}
	movie, err := m.repo.FindMovie(ctx, movieID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, makeErr(ErrInvalidReference, msgInvalidMovie)
		}
		return nil, failed(err)
	}
	if movie.NumberInStock <= 0 {
		return nil, makeErr(ErrOutOfStock, msgOutOfStock)
	}

	var created *model.Rental
	err = m.retry(ctx, opCheckout, func(ctx context.Context) error {
		return m.repo.WithinTx(ctx, func(ctx context.Context, tx repository.RentalTx) error {
			// stock is re-read under the lock; the check above was advisory
			live, err := tx.LockMovie(ctx, movieID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return makeErr(ErrInvalidReference, msgInvalidMovie)
				}
				return err
			}
			if live.NumberInStock <= 0 {
				return makeErr(ErrOutOfStock, msgOutOfStock)
			}

			prev, err := tx.LookupRental(ctx, customerID, movieID)
			switch {
			case err == nil && prev.IsOpen():
				return makeErr(ErrAlreadyRented, msgAlreadyRented)
			case err == nil:
				if err := tx.DeleteRental(ctx, prev.ID); err != nil {
					return err
				}
			case !errors.Is(err, repository.ErrNotFound):
				return err
			}

			r := model.NewRental(m.newID(), *customer, *live, m.now())
			if err := tx.InsertRental(ctx, r); err != nil {
				if errors.Is(err, repository.ErrDuplicate) {
					return makeErr(ErrAlreadyRented, msgAlreadyRented)
				}
				return err
			}
			if err := tx.AdjustStock(ctx, movieID, -1); err != nil {
				if errors.Is(err, repository.ErrOutOfStock) {
					return makeErr(ErrOutOfStock, msgOutOfStock)
				}
				return err
			}
			created = r
			return nil
		})
	})
	if err != nil {
		return nil, classify(err)
	}
	return created, nil
}

func (m *Manager) Return(ctx context.Context, customerID, movieID uuid.UUID) (*model.Rental, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	r, err := m.returnRental(ctx, customerID, movieID)
	m.observe(ctx, opReturn, start, err)
	if err != nil {
		return nil, err
	}
	m.log.InfoContext(ctx, "rental returned",
		"rental_id", r.ID, "customer_id", customerID, "movie_id", movieID, "fee", *r.RentalFee)
	return r, nil
}

func (m *Manager) returnRental(ctx context.Context, customerID, movieID uuid.UUID) (*model.Rental, error) {
	var closed *model.Rental
	err := m.retry(ctx, opReturn, func(ctx context.Context) error {
		return m.repo.WithinTx(ctx, func(ctx context.Context, tx repository.RentalTx) error {
			// Lock order matches checkout. A movie deleted since checkout
			// surfaces later, when its stock cannot be adjusted.
			if _, err := tx.LockMovie(ctx, movieID); err != nil && !errors.Is(err, repository.ErrNotFound) {
				return err
			}

			r, err := tx.LookupRental(ctx, customerID, movieID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return makeErr(ErrNotFound, msgRentalNotFound)
				}
				return err
			}
			if !r.IsOpen() {
				return makeErr(ErrAlreadyReturned, msgAlreadyReturned)
			}

			returned := m.now()
			fee := Fee(r.DateOut, returned, r.Movie.DailyRentalRate)
			r.DateReturned = &returned
			r.RentalFee = &fee

			if err := tx.CloseRental(ctx, r); err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return makeErr(ErrAlreadyReturned, msgAlreadyReturned)
				}
				return err
			}
			if err := tx.AdjustStock(ctx, movieID, 1); err != nil {
				return err
			}
			closed = r
			return nil
		})
	})
	if err != nil {
		return nil, classify(err)
	}
	return closed, nil
}

func (m *Manager) Lookup(ctx context.Context, customerID, movieID uuid.UUID) (*model.Rental, error) {
	r, err := m.repo.LookupRental(ctx, customerID, movieID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, makeErr(ErrNotFound, msgRentalNotFound)
		}
		return nil, failed(err)
	}
	return r, nil
}

func (m *Manager) List(ctx context.Context) ([]model.Rental, error) {
	return m.repo.ListRentals(ctx)
}

func (m *Manager) Get(ctx context.Context, id uuid.UUID) (*model.Rental, error) {
	r, err := m.repo.FindRental(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, makeErr(ErrNotFound, msgRentalByID)
		}
		return nil, err
	}
	return r, nil
}

func (m *Manager) observe(ctx context.Context, op string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = strings.ToLower(string(Code(err)))
	}
	m.metrics.IncrementCounter(OperationsMetric, map[string]string{"operation": op, "outcome": outcome})
	m.metrics.RecordDuration(DurationMetric, time.Since(start), map[string]string{"operation": op})

	switch Code(err) {
	case "":
	case ErrTransactionFailed:
		m.log.ErrorContext(ctx, "rental "+op+" failed", "err", err)
	default:
		m.log.InfoContext(ctx, "rental "+op+" rejected", "code", Code(err))
	}
}
