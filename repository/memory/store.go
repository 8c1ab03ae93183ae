// Package memory provides an in-memory implementation of the rental store
// used for tests and ephemeral environments.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"movierental/model"
	"movierental/repository"
)

var _ repository.Store = (*Store)(nil)

type state struct {
	genres    map[uuid.UUID]model.Genre
	movies    map[uuid.UUID]model.Movie
	customers map[uuid.UUID]model.Customer
	users     map[uuid.UUID]model.User
	rentals   map[uuid.UUID]model.Rental
}

func newState() state {
	return state{
		genres:    make(map[uuid.UUID]model.Genre),
		movies:    make(map[uuid.UUID]model.Movie),
		customers: make(map[uuid.UUID]model.Customer),
		users:     make(map[uuid.UUID]model.User),
		rentals:   make(map[uuid.UUID]model.Rental),
	}
}

func (s state) clone() state {
	out := state{
		genres:    make(map[uuid.UUID]model.Genre, len(s.genres)),
		movies:    make(map[uuid.UUID]model.Movie, len(s.movies)),
		customers: make(map[uuid.UUID]model.Customer, len(s.customers)),
		users:     make(map[uuid.UUID]model.User, len(s.users)),
		rentals:   make(map[uuid.UUID]model.Rental, len(s.rentals)),
	}
	for k, v := range s.genres {
		out.genres[k] = v
	}
	for k, v := range s.movies {
		out.movies[k] = v
	}
	for k, v := range s.customers {
		out.customers[k] = v
	}
	for k, v := range s.users {
		out.users[k] = v
	}
	for k, v := range s.rentals {
		out.rentals[k] = v.Clone()
	}
	return out
}

// Store keeps all records in maps guarded by a single mutex. Transactions run
// against a private clone that replaces the live state on commit.
type Store struct {
	mu    sync.RWMutex
	state state
}

func NewStore() *Store {
	return &Store{state: newState()}
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }

// Genres

func (s *Store) ListGenres(context.Context) ([]model.Genre, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Genre, 0, len(s.state.genres))
	for _, g := range s.state.genres {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) FindGenre(_ context.Context, id uuid.UUID) (*model.Genre, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.state.genres[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &g, nil
}

func (s *Store) CreateGenre(_ context.Context, g *model.Genre) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.genres[g.ID]; ok {
		return repository.ErrDuplicate
	}
	s.state.genres[g.ID] = *g
	return nil
}

func (s *Store) UpdateGenre(_ context.Context, g *model.Genre) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.genres[g.ID]; !ok {
		return repository.ErrNotFound
	}
	s.state.genres[g.ID] = *g
	return nil
}

func (s *Store) DeleteGenre(_ context.Context, id uuid.UUID) (*model.Genre, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.state.genres[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	delete(s.state.genres, id)
	return &g, nil
}

// Movies

func (s *Store) ListMovies(context.Context) ([]model.Movie, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Movie, 0, len(s.state.movies))
	for _, m := range s.state.movies {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

func (s *Store) FindMovie(_ context.Context, id uuid.UUID) (*model.Movie, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.state.movies[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &m, nil
}

func (s *Store) CreateMovie(_ context.Context, m *model.Movie) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.movies[m.ID]; ok {
		return repository.ErrDuplicate
	}
	s.state.movies[m.ID] = *m
	return nil
}

func (s *Store) UpdateMovie(_ context.Context, m *model.Movie) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.movies[m.ID]; !ok {
		return repository.ErrNotFound
	}
	s.state.movies[m.ID] = *m
	return nil
}

func (s *Store) DeleteMovie(_ context.Context, id uuid.UUID) (*model.Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.state.movies[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	delete(s.state.movies, id)
	return &m, nil
}

// Customers

func (s *Store) ListCustomers(context.Context) ([]model.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Customer, 0, len(s.state.customers))
	for _, c := range s.state.customers {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) FindCustomer(_ context.Context, id uuid.UUID) (*model.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.state.customers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (s *Store) CreateCustomer(_ context.Context, c *model.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.customers[c.ID]; ok {
		return repository.ErrDuplicate
	}
	s.state.customers[c.ID] = *c
	return nil
}

func (s *Store) UpdateCustomer(_ context.Context, c *model.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.customers[c.ID]; !ok {
		return repository.ErrNotFound
	}
	s.state.customers[c.ID] = *c
	return nil
}

func (s *Store) DeleteCustomer(_ context.Context, id uuid.UUID) (*model.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.state.customers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	delete(s.state.customers, id)
	return &c, nil
}

// Users

func (s *Store) CreateUser(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.state.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return repository.ErrDuplicate
		}
	}
	if _, ok := s.state.users[u.ID]; ok {
		return repository.ErrDuplicate
	}
	s.state.users[u.ID] = *u
	return nil
}

func (s *Store) UserByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.state.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Store) UserByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.state.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

// Rentals

func (s *Store) ListRentals(context.Context) ([]model.Rental, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Rental, 0, len(s.state.rentals))
	for _, r := range s.state.rentals {
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DateOut.After(out[j].DateOut) })
	return out, nil
}

func (s *Store) FindRental(_ context.Context, id uuid.UUID) (*model.Rental, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.state.rentals[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	r = r.Clone()
	return &r, nil
}

func (s *Store) LookupRental(_ context.Context, customerID, movieID uuid.UUID) (*model.Rental, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lookup(s.state, customerID, movieID)
}

func lookup(st state, customerID, movieID uuid.UUID) (*model.Rental, error) {
	var latest *model.Rental
	for _, r := range st.rentals {
		if r.Customer.ID != customerID || r.Movie.ID != movieID {
			continue
		}
		if latest == nil || r.DateOut.After(latest.DateOut) {
			c := r.Clone()
			latest = &c
		}
	}
	if latest == nil {
		return nil, repository.ErrNotFound
	}
	return latest, nil
}

// WithinTx holds the write lock for the whole unit of work, so every
// transaction is serialized against all others.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.RentalTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &transaction{state: s.state.clone()}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	// a cancelled caller never commits
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state = tx.state
	return nil
}

type transaction struct {
	state state
}

func (tx *transaction) LockMovie(_ context.Context, id uuid.UUID) (*model.Movie, error) {
	m, ok := tx.state.movies[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &m, nil
}

func (tx *transaction) AdjustStock(_ context.Context, movieID uuid.UUID, delta int) error {
	m, ok := tx.state.movies[movieID]
	if !ok {
		return repository.ErrNotFound
	}
	if m.NumberInStock+delta < 0 {
		return repository.ErrOutOfStock
	}
	m.NumberInStock += delta
	tx.state.movies[movieID] = m
	return nil
}

func (tx *transaction) LookupRental(_ context.Context, customerID, movieID uuid.UUID) (*model.Rental, error) {
	return lookup(tx.state, customerID, movieID)
}

func (tx *transaction) InsertRental(_ context.Context, r *model.Rental) error {
	if _, ok := tx.state.rentals[r.ID]; ok {
		return repository.ErrDuplicate
	}
	if _, err := lookup(tx.state, r.Customer.ID, r.Movie.ID); err == nil {
		return repository.ErrDuplicate
	}
	tx.state.rentals[r.ID] = r.Clone()
	return nil
}

func (tx *transaction) CloseRental(_ context.Context, r *model.Rental) error {
	existing, ok := tx.state.rentals[r.ID]
	if !ok || !existing.IsOpen() {
		return repository.ErrNotFound
	}
	existing.DateReturned = r.DateReturned
	existing.RentalFee = r.RentalFee
	tx.state.rentals[r.ID] = existing.Clone()
	return nil
}

func (tx *transaction) DeleteRental(_ context.Context, id uuid.UUID) error {
	if _, ok := tx.state.rentals[id]; !ok {
		return repository.ErrNotFound
	}
	delete(tx.state.rentals, id)
	return nil
}

// Seed inserts a rental directly, bypassing the lifecycle rules. Tests use it
// to arrange historical records.
func (s *Store) Seed(r model.Rental) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.rentals[r.ID] = r.Clone()
}
