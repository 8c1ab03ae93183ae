package sqlite

import (
	"context"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"movierental/model"
)

const (
	tableGenres = "genres"
	tableMovies = "movies"
)

type genreRow struct {
	ID   uuid.UUID `db:"id"`
	Name string    `db:"name"`
}

func (r genreRow) toModel() model.Genre { return model.Genre{ID: r.ID, Name: r.Name} }

type movieRow struct {
	ID              uuid.UUID `db:"id"`
	Title           string    `db:"title"`
	GenreID         uuid.UUID `db:"genre_id"`
	GenreName       string    `db:"genre_name"`
	NumberInStock   int       `db:"number_in_stock"`
	DailyRentalRate float64   `db:"daily_rental_rate"`
}

var movieCols = []any{"id", "title", "genre_id", "genre_name", "number_in_stock", "daily_rental_rate"}

func (r movieRow) toModel() model.Movie {
	return model.Movie{
		ID:              r.ID,
		Title:           r.Title,
		Genre:           model.GenreRef{ID: r.GenreID, Name: r.GenreName},
		NumberInStock:   r.NumberInStock,
		DailyRentalRate: r.DailyRentalRate,
	}
}

func movieRecord(m *model.Movie) goqu.Record {
	return goqu.Record{
		"id":                m.ID,
		"title":             m.Title,
		"genre_id":          m.Genre.ID,
		"genre_name":        m.Genre.Name,
		"number_in_stock":   m.NumberInStock,
		"daily_rental_rate": m.DailyRentalRate,
	}
}

func (s *Store) ListGenres(ctx context.Context) ([]model.Genre, error) {
	var rows []genreRow
	ds := s.dialect.From(tableGenres).Select("id", "name").Order(goqu.C("name").Asc()).Prepared(true)
	if err := getAll(ctx, s.db, &rows, ds); err != nil {
		return nil, err
	}
	out := make([]model.Genre, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

func (s *Store) FindGenre(ctx context.Context, id uuid.UUID) (*model.Genre, error) {
	var row genreRow
	ds := s.dialect.From(tableGenres).Select("id", "name").Where(goqu.C("id").Eq(id)).Prepared(true)
	if err := getOne(ctx, s.db, &row, ds); err != nil {
		return nil, err
	}
	g := row.toModel()
	return &g, nil
}

func (s *Store) CreateGenre(ctx context.Context, g *model.Genre) error {
	ds := s.dialect.Insert(tableGenres).Rows(goqu.Record{"id": g.ID, "name": g.Name}).Prepared(true)
	_, err := exec(ctx, s.db, ds)
	return err
}

func (s *Store) UpdateGenre(ctx context.Context, g *model.Genre) error {
	ds := s.dialect.Update(tableGenres).Set(goqu.Record{"name": g.Name}).Where(goqu.C("id").Eq(g.ID)).Prepared(true)
	return execOne(ctx, s.db, ds)
}

func (s *Store) DeleteGenre(ctx context.Context, id uuid.UUID) (*model.Genre, error) {
	var out *model.Genre
	err := s.inTx(ctx, func(tx sqlx.ExtContext) error {
		var row genreRow
		ds := s.dialect.From(tableGenres).Select("id", "name").Where(goqu.C("id").Eq(id)).Prepared(true)
		if err := getOne(ctx, tx, &row, ds); err != nil {
			return err
		}
		g := row.toModel()
		out = &g
		return execOne(ctx, tx, s.dialect.Delete(tableGenres).Where(goqu.C("id").Eq(id)).Prepared(true))
	})
	return out, err
}

func (s *Store) ListMovies(ctx context.Context) ([]model.Movie, error) {
	var rows []movieRow
	ds := s.dialect.From(tableMovies).Select(movieCols...).Order(goqu.C("title").Asc()).Prepared(true)
	if err := getAll(ctx, s.db, &rows, ds); err != nil {
		return nil, err
	}
	out := make([]model.Movie, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

func findMovie(ctx context.Context, q sqlx.QueryerContext, d goqu.DialectWrapper, id uuid.UUID) (*model.Movie, error) {
	var row movieRow
	ds := d.From(tableMovies).Select(movieCols...).Where(goqu.C("id").Eq(id)).Prepared(true)
	if err := getOne(ctx, q, &row, ds); err != nil {
		return nil, err
	}
	m := row.toModel()
	return &m, nil
}

func (s *Store) FindMovie(ctx context.Context, id uuid.UUID) (*model.Movie, error) {
	return findMovie(ctx, s.db, s.dialect, id)
}

func (s *Store) CreateMovie(ctx context.Context, m *model.Movie) error {
	_, err := exec(ctx, s.db, s.dialect.Insert(tableMovies).Rows(movieRecord(m)).Prepared(true))
	return err
}

func (s *Store) UpdateMovie(ctx context.Context, m *model.Movie) error {
	rec := movieRecord(m)
	delete(rec, "id")
	return execOne(ctx, s.db, s.dialect.Update(tableMovies).Set(rec).Where(goqu.C("id").Eq(m.ID)).Prepared(true))
}

func (s *Store) DeleteMovie(ctx context.Context, id uuid.UUID) (*model.Movie, error) {
	var out *model.Movie
	err := s.inTx(ctx, func(tx sqlx.ExtContext) error {
		m, err := findMovie(ctx, tx, s.dialect, id)
		if err != nil {
			return err
		}
		out = m
		return execOne(ctx, tx, s.dialect.Delete(tableMovies).Where(goqu.C("id").Eq(id)).Prepared(true))
	})
	return out, err
}
