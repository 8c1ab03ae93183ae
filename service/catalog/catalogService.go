package catalogsvc

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"movierental/model"
	"movierental/repository"
)

type ErrCode string

const (
	ErrGenreNotFound ErrCode = "GENRE_NOT_FOUND"
	ErrMovieNotFound ErrCode = "MOVIE_NOT_FOUND"
	ErrInvalidGenre  ErrCode = "INVALID_GENRE"
	ErrOutOfStock    ErrCode = "OUT_OF_STOCK"
)

var messages = map[ErrCode]string{
	ErrGenreNotFound: "The genre with the given ID was not found.",
	ErrMovieNotFound: "The movie with the given ID was not found.",
	ErrInvalidGenre:  "Invalid genre.",
	ErrOutOfStock:    "Movie not in stock.",
}

type codedError struct{ code ErrCode }

func (e codedError) Error() string { return messages[e.code] }
func (e codedError) Code() ErrCode { return e.code }
func makeErr(c ErrCode) error      { return codedError{code: c} }

// Code extracts error code
func Code(err error) ErrCode {
	var ce interface{ Code() ErrCode }
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return ""
}

type Repo interface {
	repository.GenreStore
	repository.MovieStore
	repository.UnitOfWork
}

type Service interface {
	ListGenres(ctx context.Context) ([]model.Genre, error)
	GetGenre(ctx context.Context, id uuid.UUID) (*model.Genre, error)
	CreateGenre(ctx context.Context, req model.GenreReq) (*model.Genre, error)
	UpdateGenre(ctx context.Context, id uuid.UUID, req model.GenreReq) (*model.Genre, error)
	DeleteGenre(ctx context.Context, id uuid.UUID) (*model.Genre, error)

	ListMovies(ctx context.Context) ([]model.Movie, error)
	GetMovie(ctx context.Context, id uuid.UUID) (*model.Movie, error)
	CreateMovie(ctx context.Context, req model.MovieReq) (*model.Movie, error)
	UpdateMovie(ctx context.Context, id uuid.UUID, req model.MovieReq) (*model.Movie, error)
	DeleteMovie(ctx context.Context, id uuid.UUID) (*model.Movie, error)
	AdjustStock(ctx context.Context, id uuid.UUID, delta int) error
}

var _ Service = (*Catalog)(nil)

type Catalog struct {
	r     Repo
	newID func() uuid.UUID
}

func New(r Repo) *Catalog { return &Catalog{r: r, newID: uuid.New} }

// notFound turns repository.ErrNotFound into the given code.
func notFound(err error, c ErrCode) error {
	if errors.Is(err, repository.ErrNotFound) {
		return makeErr(c)
	}
	return err
}

// Genres

func (s *Catalog) ListGenres(ctx context.Context) ([]model.Genre, error) { return s.r.ListGenres(ctx) }

func (s *Catalog) GetGenre(ctx context.Context, id uuid.UUID) (*model.Genre, error) {
	g, err := s.r.FindGenre(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrGenreNotFound)
	}
	return g, nil
}

func (s *Catalog) CreateGenre(ctx context.Context, req model.GenreReq) (*model.Genre, error) {
	g := &model.Genre{ID: s.newID(), Name: req.Name}
	if err := s.r.CreateGenre(ctx, g); err != nil {
		return nil, fmt.Errorf("create genre: %w", err)
	}
	return g, nil
}

func (s *Catalog) UpdateGenre(ctx context.Context, id uuid.UUID, req model.GenreReq) (*model.Genre, error) {
	g := &model.Genre{ID: id, Name: req.Name}
	if err := s.r.UpdateGenre(ctx, g); err != nil {
		return nil, notFound(err, ErrGenreNotFound)
	}
	return g, nil
}

func (s *Catalog) DeleteGenre(ctx context.Context, id uuid.UUID) (*model.Genre, error) {
	g, err := s.r.DeleteGenre(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrGenreNotFound)
	}
	return g, nil
}

// Movies

func (s *Catalog) ListMovies(ctx context.Context) ([]model.Movie, error) { return s.r.ListMovies(ctx) }

func (s *Catalog) GetMovie(ctx context.Context, id uuid.UUID) (*model.Movie, error) {
	m, err := s.r.FindMovie(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrMovieNotFound)
	}
	return m, nil
}

// movieFrom resolves the genre and copies its name into the movie.
func (s *Catalog) movieFrom(ctx context.Context, id uuid.UUID, req model.MovieReq) (*model.Movie, error) {
	gid, err := uuid.Parse(req.GenreID)
	if err != nil {
		return nil, makeErr(ErrInvalidGenre)
	}
	g, err := s.r.FindGenre(ctx, gid)
	if err != nil {
		return nil, notFound(err, ErrInvalidGenre)
	}
	m := &model.Movie{
		ID:    id,
		Title: req.Title,
		Genre: model.GenreRef{ID: g.ID, Name: g.Name},
	}
	if req.NumberInStock != nil {
		m.NumberInStock = *req.NumberInStock
	}
	if req.DailyRentalRate != nil {
		m.DailyRentalRate = *req.DailyRentalRate
	}
	return m, nil
}

func (s *Catalog) CreateMovie(ctx context.Context, req model.MovieReq) (*model.Movie, error) {
	m, err := s.movieFrom(ctx, s.newID(), req)
	if err != nil {
		return nil, err
	}
	if err := s.r.CreateMovie(ctx, m); err != nil {
		return nil, fmt.Errorf("create movie: %w", err)
	}
	return m, nil
}

func (s *Catalog) UpdateMovie(ctx context.Context, id uuid.UUID, req model.MovieReq) (*model.Movie, error) {
	m, err := s.movieFrom(ctx, id, req)
	if err != nil {
		return nil, err
	}
	if err := s.r.UpdateMovie(ctx, m); err != nil {
		return nil, notFound(err, ErrMovieNotFound)
	}
	return m, nil
}

func (s *Catalog) DeleteMovie(ctx context.Context, id uuid.UUID) (*model.Movie, error) {
	m, err := s.r.DeleteMovie(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrMovieNotFound)
	}
	return m, nil
}

// AdjustStock changes numberInStock by delta in its own unit of work.
func (s *Catalog) AdjustStock(ctx context.Context, id uuid.UUID, delta int) error {
	err := s.r.WithinTx(ctx, func(ctx context.Context, tx repository.RentalTx) error {
		return tx.AdjustStock(ctx, id, delta)
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrOutOfStock):
		return makeErr(ErrOutOfStock)
	default:
		return notFound(err, ErrMovieNotFound)
	}
}
