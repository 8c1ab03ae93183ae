// Package storetest is a conformance suite every repository.Store backend runs
// from its own tests.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"movierental/model"
	"movierental/repository"
)

// Factory returns an empty store; cleanup is registered on t by the factory.
type Factory func(t *testing.T) repository.Store

func Run(t *testing.T, open Factory) {
	t.Run("genres", func(t *testing.T) { testGenres(t, open(t)) })
	t.Run("movies", func(t *testing.T) { testMovies(t, open(t)) })
	t.Run("customers", func(t *testing.T) { testCustomers(t, open(t)) })
	t.Run("users", func(t *testing.T) { testUsers(t, open(t)) })
	t.Run("tx commits ledger and stock together", func(t *testing.T) { testTxCommit(t, open(t)) })
	t.Run("tx rolls back on error", func(t *testing.T) { testTxRollback(t, open(t)) })
	t.Run("tx rolls back on cancel", func(t *testing.T) { testTxCancel(t, open(t)) })
	t.Run("stock never negative", func(t *testing.T) { testStockGuard(t, open(t)) })
	t.Run("one record per pair", func(t *testing.T) { testPairUnique(t, open(t)) })
	t.Run("close and delete", func(t *testing.T) { testCloseAndDelete(t, open(t)) })
	t.Run("list rentals newest first", func(t *testing.T) { testListRentals(t, open(t)) })
}

// Now is truncated to the coarsest precision any backend stores.
func Now() time.Time { return time.Now().UTC().Truncate(time.Millisecond) }

func SeedMovie(t *testing.T, s repository.Store, title string, stock int, rate float64) model.Movie {
	t.Helper()
	ctx := context.Background()
	g := model.Genre{ID: uuid.New(), Name: "Drama " + title}
	require.NoError(t, s.CreateGenre(ctx, &g))
	m := model.Movie{
		ID:              uuid.New(),
		Title:           title,
		Genre:           model.GenreRef{ID: g.ID, Name: g.Name},
		NumberInStock:   stock,
		DailyRentalRate: rate,
	}
	require.NoError(t, s.CreateMovie(ctx, &m))
	return m
}

func SeedCustomer(t *testing.T, s repository.Store, name string) model.Customer {
	t.Helper()
	c := model.Customer{ID: uuid.New(), Name: name, Phone: "555-0100"}
	require.NoError(t, s.CreateCustomer(context.Background(), &c))
	return c
}

func stock(t *testing.T, s repository.Store, id uuid.UUID) int {
	t.Helper()
	m, err := s.FindMovie(context.Background(), id)
	require.NoError(t, err)
	return m.NumberInStock
}

func testGenres(t *testing.T, s repository.Store) {
	ctx := context.Background()
	b := model.Genre{ID: uuid.New(), Name: "Thriller"}
	a := model.Genre{ID: uuid.New(), Name: "Animation"}
	require.NoError(t, s.CreateGenre(ctx, &b))
	require.NoError(t, s.CreateGenre(ctx, &a))

	list, err := s.ListGenres(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "Animation", list[0].Name)

	b.Name = "Thrillers"
	require.NoError(t, s.UpdateGenre(ctx, &b))
	got, err := s.FindGenre(ctx, b.ID)
	require.NoError(t, err)
	require.Equal(t, "Thrillers", got.Name)

	deleted, err := s.DeleteGenre(ctx, b.ID)
	require.NoError(t, err)
	require.Equal(t, b.ID, deleted.ID)

	_, err = s.FindGenre(ctx, b.ID)
	require.ErrorIs(t, err, repository.ErrNotFound)
	_, err = s.DeleteGenre(ctx, b.ID)
	require.ErrorIs(t, err, repository.ErrNotFound)
	require.ErrorIs(t, s.UpdateGenre(ctx, &model.Genre{ID: uuid.New(), Name: "ghost"}), repository.ErrNotFound)
}

func testMovies(t *testing.T, s repository.Store) {
	ctx := context.Background()
	m := SeedMovie(t, s, "Zodiac", 7, 2)
	SeedMovie(t, s, "Alien", 3, 1.5)

	list, err := s.ListMovies(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "Alien", list[0].Title)

	got, err := s.FindMovie(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, m, *got)

	m.NumberInStock = 9
	m.Title = "Zodiac (Director's Cut)"
	require.NoError(t, s.UpdateMovie(ctx, &m))
	got, err = s.FindMovie(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, 9, got.NumberInStock)
	require.Equal(t, m.Genre, got.Genre)

	deleted, err := s.DeleteMovie(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, m.Title, deleted.Title)
	_, err = s.FindMovie(ctx, m.ID)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func testCustomers(t *testing.T, s repository.Store) {
	ctx := context.Background()
	c := SeedCustomer(t, s, "Ripley")
	SeedCustomer(t, s, "Bishop")

	list, err := s.ListCustomers(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "Bishop", list[0].Name)

	c.IsGold = true
	require.NoError(t, s.UpdateCustomer(ctx, &c))
	got, err := s.FindCustomer(ctx, c.ID)
	require.NoError(t, err)
	require.True(t, got.IsGold)

	_, err = s.DeleteCustomer(ctx, c.ID)
	require.NoError(t, err)
	_, err = s.FindCustomer(ctx, c.ID)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func testUsers(t *testing.T, s repository.Store) {
	ctx := context.Background()
	u := model.User{ID: uuid.New(), Name: "Ellen", Email: "ellen@example.com", PasswordHash: "x", CreatedAt: Now()}
	require.NoError(t, s.CreateUser(ctx, &u))

	dup := model.User{ID: uuid.New(), Name: "Other", Email: "ellen@example.com", PasswordHash: "y", CreatedAt: Now()}
	require.ErrorIs(t, s.CreateUser(ctx, &dup), repository.ErrDuplicate)

	got, err := s.UserByEmail(ctx, "ellen@example.com")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
	require.Equal(t, "x", got.PasswordHash)

	got, err = s.UserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, u.Email, got.Email)

	_, err = s.UserByEmail(ctx, "nobody@example.com")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func testTxCommit(t *testing.T, s repository.Store) {
	ctx := context.Background()
	m := SeedMovie(t, s, "Heat", 2, 3)
	c := SeedCustomer(t, s, "Neil McCauley")
	r := model.NewRental(uuid.New(), c, m, Now())

	err := s.WithinTx(ctx, func(ctx context.Context, tx repository.RentalTx) error {
		live, err := tx.LockMovie(ctx, m.ID)
		if err != nil {
			return err
		}
		require.Equal(t, 2, live.NumberInStock)
		if err := tx.InsertRental(ctx, r); err != nil {
			return err
		}
		return tx.AdjustStock(ctx, m.ID, -1)
	})
	require.NoError(t, err)
	require.Equal(t, 1, stock(t, s, m.ID))

	got, err := s.LookupRental(ctx, c.ID, m.ID)
	require.NoError(t, err)
	require.Equal(t, r.ID, got.ID)
	require.True(t, got.IsOpen())
	require.True(t, r.DateOut.Equal(got.DateOut))
	require.Equal(t, r.Customer, got.Customer)
	require.Equal(t, r.Movie, got.Movie)

	byID, err := s.FindRental(ctx, r.ID)
	require.NoError(t, err)
	require.Equal(t, r.ID, byID.ID)
}

func testTxRollback(t *testing.T, s repository.Store) {
	ctx := context.Background()
	m := SeedMovie(t, s, "Ronin", 2, 3)
	c := SeedCustomer(t, s, "Sam Regan")
	boom := errors.New("boom")

	err := s.WithinTx(ctx, func(ctx context.Context, tx repository.RentalTx) error {
		if err := tx.InsertRental(ctx, model.NewRental(uuid.New(), c, m, Now())); err != nil {
			return err
		}
		if err := tx.AdjustStock(ctx, m.ID, -1); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.Equal(t, 2, stock(t, s, m.ID))
	_, err = s.LookupRental(ctx, c.ID, m.ID)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func testTxCancel(t *testing.T, s repository.Store) {
	m := SeedMovie(t, s, "Collateral", 2, 3)
	c := SeedCustomer(t, s, "Max Durocher")
	ctx, cancel := context.WithCancel(context.Background())

	err := s.WithinTx(ctx, func(ctx context.Context, tx repository.RentalTx) error {
		if err := tx.InsertRental(ctx, model.NewRental(uuid.New(), c, m, Now())); err != nil {
			return err
		}
		if err := tx.AdjustStock(ctx, m.ID, -1); err != nil {
			return err
		}
		cancel()
		return nil
	})
	require.Error(t, err)
	require.Equal(t, 2, stock(t, s, m.ID))
	_, err = s.LookupRental(context.Background(), c.ID, m.ID)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func testStockGuard(t *testing.T, s repository.Store) {
	ctx := context.Background()
	m := SeedMovie(t, s, "Thief", 1, 3)

	adjust := func(delta int) error {
		return s.WithinTx(ctx, func(ctx context.Context, tx repository.RentalTx) error {
			return tx.AdjustStock(ctx, m.ID, delta)
		})
	}
	require.NoError(t, adjust(-1))
	require.ErrorIs(t, adjust(-1), repository.ErrOutOfStock)
	require.Equal(t, 0, stock(t, s, m.ID))
	require.NoError(t, adjust(1))
	require.Equal(t, 1, stock(t, s, m.ID))

	err := s.WithinTx(ctx, func(ctx context.Context, tx repository.RentalTx) error {
		return tx.AdjustStock(ctx, uuid.New(), 1)
	})
	require.ErrorIs(t, err, repository.ErrNotFound)

	err = s.WithinTx(ctx, func(ctx context.Context, tx repository.RentalTx) error {
		_, err := tx.LockMovie(ctx, uuid.New())
		return err
	})
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func testPairUnique(t *testing.T, s repository.Store) {
	ctx := context.Background()
	m := SeedMovie(t, s, "Manhunter", 5, 3)
	c := SeedCustomer(t, s, "Will Graham")

	insert := func() error {
		return s.WithinTx(ctx, func(ctx context.Context, tx repository.RentalTx) error {
			return tx.InsertRental(ctx, model.NewRental(uuid.New(), c, m, Now()))
		})
	}
	require.NoError(t, insert())
	require.ErrorIs(t, insert(), repository.ErrDuplicate)
}

func testCloseAndDelete(t *testing.T, s repository.Store) {
	ctx := context.Background()
	m := SeedMovie(t, s, "Insider", 5, 3)
	c := SeedCustomer(t, s, "Jeffrey Wigand")
	r := model.NewRental(uuid.New(), c, m, Now().Add(-48*time.Hour))

	require.NoError(t, s.WithinTx(ctx, func(ctx context.Context, tx repository.RentalTx) error {
		return tx.InsertRental(ctx, r)
	}))

	returned := Now()
	fee := 6.0
	r.DateReturned = &returned
	r.RentalFee = &fee
	require.NoError(t, s.WithinTx(ctx, func(ctx context.Context, tx repository.RentalTx) error {
		return tx.CloseRental(ctx, r)
	}))

	got, err := s.LookupRental(ctx, c.ID, m.ID)
	require.NoError(t, err)
	require.False(t, got.IsOpen())
	require.True(t, returned.Equal(*got.DateReturned))
	require.InDelta(t, fee, *got.RentalFee, 1e-9)

	// closing twice finds no open rental
	err = s.WithinTx(ctx, func(ctx context.Context, tx repository.RentalTx) error {
		return tx.CloseRental(ctx, r)
	})
	require.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, s.WithinTx(ctx, func(ctx context.Context, tx repository.RentalTx) error {
		return tx.DeleteRental(ctx, r.ID)
	}))
	_, err = s.FindRental(ctx, r.ID)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func testListRentals(t *testing.T, s repository.Store) {
	ctx := context.Background()
	m := SeedMovie(t, s, "Blackhat", 5, 3)
	c1 := SeedCustomer(t, s, "Nick Hathaway")
	c2 := SeedCustomer(t, s, "Chen Lien")
	older := model.NewRental(uuid.New(), c1, m, Now().Add(-time.Hour))
	newer := model.NewRental(uuid.New(), c2, m, Now())

	require.NoError(t, s.WithinTx(ctx, func(ctx context.Context, tx repository.RentalTx) error {
		if err := tx.InsertRental(ctx, older); err != nil {
			return err
		}
		return tx.InsertRental(ctx, newer)
	}))

	list, err := s.ListRentals(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, newer.ID, list[0].ID)
	require.Equal(t, older.ID, list[1].ID)
}
