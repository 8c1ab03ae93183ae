package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"movierental/model"
	"movierental/repository"
)

const rentalColumns = `
	id, customer_id, customer_name, customer_phone,
	movie_id, movie_title, movie_daily_rental_rate,
	date_out, date_returned, rental_fee`

func scanRental(row pgx.Row) (*model.Rental, error) {
	var r model.Rental
	err := row.Scan(
		&r.ID, &r.Customer.ID, &r.Customer.Name, &r.Customer.Phone,
		&r.Movie.ID, &r.Movie.Title, &r.Movie.DailyRentalRate,
		&r.DateOut, &r.DateReturned, &r.RentalFee,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	r.DateOut = r.DateOut.UTC()
	if r.DateReturned != nil {
		t := r.DateReturned.UTC()
		r.DateReturned = &t
	}
	return &r, nil
}

func (s *Store) ListRentals(ctx context.Context) ([]model.Rental, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+rentalColumns+` FROM rentals ORDER BY date_out DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Rental{}
	for rows.Next() {
		r, err := scanRental(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (s *Store) FindRental(ctx context.Context, id uuid.UUID) (*model.Rental, error) {
	return scanRental(s.pool.QueryRow(ctx, `SELECT `+rentalColumns+` FROM rentals WHERE id = $1`, id))
}

func (s *Store) LookupRental(ctx context.Context, customerID, movieID uuid.UUID) (*model.Rental, error) {
	return lookupRental(ctx, s.pool, customerID, movieID, "")
}

func lookupRental(ctx context.Context, q querier, customerID, movieID uuid.UUID, lock string) (*model.Rental, error) {
	sql := `
		SELECT ` + rentalColumns + `
		FROM rentals
		WHERE customer_id = $1
		AND movie_id = $2
		ORDER BY date_out DESC
		LIMIT 1 ` + lock
	return scanRental(q.QueryRow(ctx, sql, customerID, movieID))
}

type rentalTx struct {
	q querier
}

func (t *rentalTx) LockMovie(ctx context.Context, id uuid.UUID) (*model.Movie, error) {
	q := `SELECT ` + movieColumns + ` FROM movies WHERE id = $1 FOR UPDATE`
	return scanMovie(t.q.QueryRow(ctx, q, id))
}

func (t *rentalTx) AdjustStock(ctx context.Context, movieID uuid.UUID, delta int) error {
	// Guard: the row only changes when the result stays non-negative.
	const q = `
		UPDATE movies
		SET number_in_stock = number_in_stock + $2
		WHERE id = $1
		AND number_in_stock + $2 >= 0`
	tag, err := t.q.Exec(ctx, q, movieID, delta)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	var one int
	if err := t.q.QueryRow(ctx, `SELECT 1 FROM movies WHERE id = $1`, movieID).Scan(&one); err != nil {
		return mapErr(err)
	}
	return repository.ErrOutOfStock
}

func (t *rentalTx) LookupRental(ctx context.Context, customerID, movieID uuid.UUID) (*model.Rental, error) {
	return lookupRental(ctx, t.q, customerID, movieID, "FOR UPDATE")
}

func (t *rentalTx) InsertRental(ctx context.Context, r *model.Rental) error {
	q := `INSERT INTO rentals (` + rentalColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := t.q.Exec(ctx, q,
		r.ID, r.Customer.ID, r.Customer.Name, r.Customer.Phone,
		r.Movie.ID, r.Movie.Title, r.Movie.DailyRentalRate,
		r.DateOut, r.DateReturned, r.RentalFee,
	)
	return mapErr(err)
}

func (t *rentalTx) CloseRental(ctx context.Context, r *model.Rental) error {
	const q = `
		UPDATE rentals
		SET date_returned = $2,
			rental_fee = $3
		WHERE id = $1
		AND date_returned IS NULL`
	tag, err := t.q.Exec(ctx, q, r.ID, r.DateReturned, r.RentalFee)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (t *rentalTx) DeleteRental(ctx context.Context, id uuid.UUID) error {
	tag, err := t.q.Exec(ctx, `DELETE FROM rentals WHERE id = $1`, id)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
