package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"movierental/model"
	"movierental/repository"
)

const tableRentals = "rentals"

type rentalRow struct {
	ID             uuid.UUID       `db:"id"`
	CustomerID     uuid.UUID       `db:"customer_id"`
	CustomerName   string          `db:"customer_name"`
	CustomerPhone  string          `db:"customer_phone"`
	MovieID        uuid.UUID       `db:"movie_id"`
	MovieTitle     string          `db:"movie_title"`
	MovieDailyRate float64         `db:"movie_daily_rental_rate"`
	DateOut        int64           `db:"date_out"`
	DateReturned   sql.NullInt64   `db:"date_returned"`
	RentalFee      sql.NullFloat64 `db:"rental_fee"`
}

var rentalCols = []any{
	"id", "customer_id", "customer_name", "customer_phone",
	"movie_id", "movie_title", "movie_daily_rental_rate",
	"date_out", "date_returned", "rental_fee",
}

func (r rentalRow) toModel() model.Rental {
	out := model.Rental{
		ID:       r.ID,
		Customer: model.CustomerSnapshot{ID: r.CustomerID, Name: r.CustomerName, Phone: r.CustomerPhone},
		Movie:    model.MovieSnapshot{ID: r.MovieID, Title: r.MovieTitle, DailyRentalRate: r.MovieDailyRate},
		DateOut:  time.UnixMilli(r.DateOut).UTC(),
	}
	if r.DateReturned.Valid {
		t := time.UnixMilli(r.DateReturned.Int64).UTC()
		out.DateReturned = &t
	}
	if r.RentalFee.Valid {
		fee := r.RentalFee.Float64
		out.RentalFee = &fee
	}
	return out
}

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func (s *Store) ListRentals(ctx context.Context) ([]model.Rental, error) {
	var rows []rentalRow
	ds := s.dialect.From(tableRentals).Select(rentalCols...).Order(goqu.C("date_out").Desc()).Prepared(true)
	if err := getAll(ctx, s.db, &rows, ds); err != nil {
		return nil, err
	}
	out := make([]model.Rental, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

func (s *Store) FindRental(ctx context.Context, id uuid.UUID) (*model.Rental, error) {
	var row rentalRow
	ds := s.dialect.From(tableRentals).Select(rentalCols...).Where(goqu.C("id").Eq(id)).Prepared(true)
	if err := getOne(ctx, s.db, &row, ds); err != nil {
		return nil, err
	}
	r := row.toModel()
	return &r, nil
}

func (s *Store) LookupRental(ctx context.Context, customerID, movieID uuid.UUID) (*model.Rental, error) {
	return lookupRental(ctx, s.db, s.dialect, customerID, movieID)
}

func lookupRental(ctx context.Context, q sqlx.QueryerContext, d goqu.DialectWrapper, customerID, movieID uuid.UUID) (*model.Rental, error) {
	var row rentalRow
	ds := d.From(tableRentals).Select(rentalCols...).
		Where(goqu.Ex{"customer_id": customerID, "movie_id": movieID}).
		Order(goqu.C("date_out").Desc()).
		Limit(1).
		Prepared(true)
	if err := getOne(ctx, q, &row, ds); err != nil {
		return nil, err
	}
	r := row.toModel()
	return &r, nil
}

// rentalTx needs no explicit row locks: the store's single connection means
// one transaction runs at a time.
type rentalTx struct {
	q       sqlx.ExtContext
	dialect goqu.DialectWrapper
}

func (t *rentalTx) LockMovie(ctx context.Context, id uuid.UUID) (*model.Movie, error) {
	return findMovie(ctx, t.q, t.dialect, id)
}

func (t *rentalTx) AdjustStock(ctx context.Context, movieID uuid.UUID, delta int) error {
	ds := t.dialect.Update(tableMovies).
		Set(goqu.Record{"number_in_stock": goqu.L("number_in_stock + ?", delta)}).
		Where(
			goqu.C("id").Eq(movieID),
			goqu.L("number_in_stock + ? >= 0", delta),
		).
		Prepared(true)
	n, err := exec(ctx, t.q, ds)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if _, err := findMovie(ctx, t.q, t.dialect, movieID); err != nil {
		return err
	}
	return repository.ErrOutOfStock
}

func (t *rentalTx) LookupRental(ctx context.Context, customerID, movieID uuid.UUID) (*model.Rental, error) {
	return lookupRental(ctx, t.q, t.dialect, customerID, movieID)
}

func (t *rentalTx) InsertRental(ctx context.Context, r *model.Rental) error {
	ds := t.dialect.Insert(tableRentals).Rows(goqu.Record{
		"id":                      r.ID,
		"customer_id":             r.Customer.ID,
		"customer_name":           r.Customer.Name,
		"customer_phone":          r.Customer.Phone,
		"movie_id":                r.Movie.ID,
		"movie_title":             r.Movie.Title,
		"movie_daily_rental_rate": r.Movie.DailyRentalRate,
		"date_out":                r.DateOut.UnixMilli(),
		"date_returned":           nullMillis(r.DateReturned),
		"rental_fee":              nullFloat(r.RentalFee),
	}).Prepared(true)
	_, err := exec(ctx, t.q, ds)
	return err
}

func (t *rentalTx) CloseRental(ctx context.Context, r *model.Rental) error {
	ds := t.dialect.Update(tableRentals).
		Set(goqu.Record{
			"date_returned": nullMillis(r.DateReturned),
			"rental_fee":    nullFloat(r.RentalFee),
		}).
		Where(goqu.C("id").Eq(r.ID), goqu.C("date_returned").IsNull()).
		Prepared(true)
	return execOne(ctx, t.q, ds)
}

func (t *rentalTx) DeleteRental(ctx context.Context, id uuid.UUID) error {
	return execOne(ctx, t.q, t.dialect.Delete(tableRentals).Where(goqu.C("id").Eq(id)).Prepared(true))
}
