package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"movierental/model"
	"movierental/repository"
)

func (s *Store) ListGenres(ctx context.Context) ([]model.Genre, error) {
	const q = `
		SELECT id, name
		FROM genres
		ORDER BY name`
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Genre{}
	for rows.Next() {
		var g model.Genre
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *Store) FindGenre(ctx context.Context, id uuid.UUID) (*model.Genre, error) {
	const q = `SELECT id, name FROM genres WHERE id = $1`
	var g model.Genre
	if err := s.pool.QueryRow(ctx, q, id).Scan(&g.ID, &g.Name); err != nil {
		return nil, mapErr(err)
	}
	return &g, nil
}

func (s *Store) CreateGenre(ctx context.Context, g *model.Genre) error {
	const q = `INSERT INTO genres (id, name) VALUES ($1, $2)`
	_, err := s.pool.Exec(ctx, q, g.ID, g.Name)
	return mapErr(err)
}

func (s *Store) UpdateGenre(ctx context.Context, g *model.Genre) error {
	const q = `UPDATE genres SET name = $2 WHERE id = $1`
	tag, err := s.pool.Exec(ctx, q, g.ID, g.Name)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteGenre(ctx context.Context, id uuid.UUID) (*model.Genre, error) {
	const q = `DELETE FROM genres WHERE id = $1 RETURNING id, name`
	var g model.Genre
	if err := s.pool.QueryRow(ctx, q, id).Scan(&g.ID, &g.Name); err != nil {
		return nil, mapErr(err)
	}
	return &g, nil
}

const movieColumns = `id, title, genre_id, genre_name, number_in_stock, daily_rental_rate`

func scanMovie(row pgx.Row) (*model.Movie, error) {
	var m model.Movie
	err := row.Scan(&m.ID, &m.Title, &m.Genre.ID, &m.Genre.Name, &m.NumberInStock, &m.DailyRentalRate)
	if err != nil {
		return nil, mapErr(err)
	}
	return &m, nil
}

func (s *Store) ListMovies(ctx context.Context) ([]model.Movie, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+movieColumns+` FROM movies ORDER BY title`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Movie{}
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func (s *Store) FindMovie(ctx context.Context, id uuid.UUID) (*model.Movie, error) {
	return scanMovie(s.pool.QueryRow(ctx, `SELECT `+movieColumns+` FROM movies WHERE id = $1`, id))
}

func (s *Store) CreateMovie(ctx context.Context, m *model.Movie) error {
	const q = `
		INSERT INTO movies (id, title, genre_id, genre_name, number_in_stock, daily_rental_rate)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := s.pool.Exec(ctx, q, m.ID, m.Title, m.Genre.ID, m.Genre.Name, m.NumberInStock, m.DailyRentalRate)
	return mapErr(err)
}

func (s *Store) UpdateMovie(ctx context.Context, m *model.Movie) error {
	const q = `
		UPDATE movies
		SET title = $2,
			genre_id = $3,
			genre_name = $4,
			number_in_stock = $5,
			daily_rental_rate = $6
		WHERE id = $1`
	tag, err := s.pool.Exec(ctx, q, m.ID, m.Title, m.Genre.ID, m.Genre.Name, m.NumberInStock, m.DailyRentalRate)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteMovie(ctx context.Context, id uuid.UUID) (*model.Movie, error) {
	return scanMovie(s.pool.QueryRow(ctx, `DELETE FROM movies WHERE id = $1 RETURNING `+movieColumns, id))
}
