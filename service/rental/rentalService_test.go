package rental_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"movierental/model"
	"movierental/repository"
	"movierental/repository/memory"
	"movierental/repository/storetest"
	"movierental/service/rental"
)

type fixture struct {
	store    *memory.Store
	customer model.Customer
	movie    model.Movie
}

func newFixture(t *testing.T, stock int, rate float64) fixture {
	t.Helper()
	s := memory.NewStore()
	return fixture{
		store:    s,
		customer: storetest.SeedCustomer(t, s, "Clarice Starling"),
		movie:    storetest.SeedMovie(t, s, "The Silence of the Lambs", stock, rate),
	}
}

func (f fixture) stock(t *testing.T) int {
	t.Helper()
	m, err := f.store.FindMovie(context.Background(), f.movie.ID)
	require.NoError(t, err)
	return m.NumberInStock
}

// fakeClock is advanced by tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type metricsMock struct {
	mu        sync.Mutex
	counters  map[string]int
	durations int
}

func newMetricsMock() *metricsMock { return &metricsMock{counters: map[string]int{}} }

func (m *metricsMock) IncrementCounter(metric string, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[metric+"|"+labels["operation"]+"|"+labels["outcome"]]++
}

func (m *metricsMock) RecordDuration(string, time.Duration, map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.durations++
}

func (m *metricsMock) count(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[key]
}

// repoMock lets a test intercept the unit of work while reads hit the store.
type repoMock struct {
	*memory.Store
	withinTxFn func(ctx context.Context, fn func(ctx context.Context, tx repository.RentalTx) error) error
}

func (m *repoMock) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.RentalTx) error) error {
	return m.withinTxFn(ctx, fn)
}

func TestCheckout_Success(t *testing.T) {
	f := newFixture(t, 3, 2)
	clock := &fakeClock{now: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
	svc := rental.New(f.store, rental.WithClock(clock.Now))

	r, err := svc.Checkout(context.Background(), f.customer.ID, f.movie.ID)
	require.NoError(t, err)
	require.True(t, r.IsOpen())
	require.Nil(t, r.RentalFee)
	require.Equal(t, clock.Now(), r.DateOut)
	require.Equal(t, model.CustomerSnapshot{ID: f.customer.ID, Name: f.customer.Name, Phone: f.customer.Phone}, r.Customer)
	require.Equal(t, model.MovieSnapshot{ID: f.movie.ID, Title: f.movie.Title, DailyRentalRate: 2}, r.Movie)
	require.Equal(t, 2, f.stock(t))

	got, err := svc.Lookup(context.Background(), f.customer.ID, f.movie.ID)
	require.NoError(t, err)
	require.Equal(t, r.ID, got.ID)
}

func TestCheckout_InvalidReference(t *testing.T) {
	f := newFixture(t, 3, 2)
	svc := rental.New(f.store)

	_, err := svc.Checkout(context.Background(), uuid.New(), f.movie.ID)
	require.Equal(t, rental.ErrInvalidReference, rental.Code(err))
	require.Equal(t, "Invalid customer.", rental.Message(err))

	_, err = svc.Checkout(context.Background(), f.customer.ID, uuid.New())
	require.Equal(t, rental.ErrInvalidReference, rental.Code(err))
	require.Equal(t, "Invalid movie.", rental.Message(err))
	require.Equal(t, 3, f.stock(t))
}

func TestCheckout_OutOfStock(t *testing.T) {
	f := newFixture(t, 0, 2)
	svc := rental.New(f.store)

	_, err := svc.Checkout(context.Background(), f.customer.ID, f.movie.ID)
	require.Equal(t, rental.ErrOutOfStock, rental.Code(err))
	require.Equal(t, "Movie not in stock.", rental.Message(err))
	require.Equal(t, 0, f.stock(t))

	_, err = svc.Lookup(context.Background(), f.customer.ID, f.movie.ID)
	require.Equal(t, rental.ErrNotFound, rental.Code(err))
}

func TestCheckout_AlreadyRented(t *testing.T) {
	f := newFixture(t, 3, 2)
	svc := rental.New(f.store)

	_, err := svc.Checkout(context.Background(), f.customer.ID, f.movie.ID)
	require.NoError(t, err)
	_, err = svc.Checkout(context.Background(), f.customer.ID, f.movie.ID)
	require.Equal(t, rental.ErrAlreadyRented, rental.Code(err))
	require.Equal(t, 2, f.stock(t))
}

func TestCheckout_ReplacesClosedRental(t *testing.T) {
	f := newFixture(t, 1, 2)
	svc := rental.New(f.store)
	ctx := context.Background()

	first, err := svc.Checkout(ctx, f.customer.ID, f.movie.ID)
	require.NoError(t, err)
	_, err = svc.Return(ctx, f.customer.ID, f.movie.ID)
	require.NoError(t, err)

	second, err := svc.Checkout(ctx, f.customer.ID, f.movie.ID)
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)
	require.Equal(t, 0, f.stock(t))

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, second.ID, list[0].ID)

	_, err = svc.Get(ctx, first.ID)
	require.Equal(t, rental.ErrNotFound, rental.Code(err))
}

func TestReturn_ChargesStartedDays(t *testing.T) {
	f := newFixture(t, 1, 2)
	clock := &fakeClock{now: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
	svc := rental.New(f.store, rental.WithClock(clock.Now))
	ctx := context.Background()

	out, err := svc.Checkout(ctx, f.customer.ID, f.movie.ID)
	require.NoError(t, err)
	require.Equal(t, 0, f.stock(t))

	clock.Advance(36 * time.Hour)
	r, err := svc.Return(ctx, f.customer.ID, f.movie.ID)
	require.NoError(t, err)
	require.Equal(t, out.ID, r.ID)
	require.False(t, r.IsOpen())
	require.Equal(t, clock.Now(), *r.DateReturned)
	require.InDelta(t, 4.0, *r.RentalFee, 1e-9)
	require.Equal(t, 1, f.stock(t))

	stored, err := svc.Get(ctx, r.ID)
	require.NoError(t, err)
	require.InDelta(t, 4.0, *stored.RentalFee, 1e-9)
}

func TestReturn_SameDayChargesOneDay(t *testing.T) {
	f := newFixture(t, 1, 3.5)
	svc := rental.New(f.store)

	_, err := svc.Checkout(context.Background(), f.customer.ID, f.movie.ID)
	require.NoError(t, err)
	r, err := svc.Return(context.Background(), f.customer.ID, f.movie.ID)
	require.NoError(t, err)
	require.InDelta(t, 3.5, *r.RentalFee, 1e-9)
}

func TestReturn_UsesSnapshotRate(t *testing.T) {
	f := newFixture(t, 1, 2)
	svc := rental.New(f.store)
	ctx := context.Background()

	_, err := svc.Checkout(ctx, f.customer.ID, f.movie.ID)
	require.NoError(t, err)

	m := f.movie
	m.DailyRentalRate = 100
	m.NumberInStock = 0
	require.NoError(t, f.store.UpdateMovie(ctx, &m))

	r, err := svc.Return(ctx, f.customer.ID, f.movie.ID)
	require.NoError(t, err)
	require.InDelta(t, 2.0, *r.RentalFee, 1e-9)
	require.Equal(t, 1, f.stock(t))
}

func TestReturn_Errors(t *testing.T) {
	f := newFixture(t, 1, 2)
	svc := rental.New(f.store)
	ctx := context.Background()

	_, err := svc.Return(ctx, f.customer.ID, f.movie.ID)
	require.Equal(t, rental.ErrNotFound, rental.Code(err))
	require.Equal(t, "Rental not found.", rental.Message(err))

	_, err = svc.Checkout(ctx, f.customer.ID, f.movie.ID)
	require.NoError(t, err)
	_, err = svc.Return(ctx, f.customer.ID, f.movie.ID)
	require.NoError(t, err)

	_, err = svc.Return(ctx, f.customer.ID, f.movie.ID)
	require.Equal(t, rental.ErrAlreadyReturned, rental.Code(err))
	require.Equal(t, "Return already processed.", rental.Message(err))
	require.Equal(t, 1, f.stock(t))
}

func TestReturn_DeletedMovieRollsBack(t *testing.T) {
	f := newFixture(t, 1, 2)
	svc := rental.New(f.store)
	ctx := context.Background()

	_, err := svc.Checkout(ctx, f.customer.ID, f.movie.ID)
	require.NoError(t, err)
	_, err = f.store.DeleteMovie(ctx, f.movie.ID)
	require.NoError(t, err)

	_, err = svc.Return(ctx, f.customer.ID, f.movie.ID)
	require.Equal(t, rental.ErrTransactionFailed, rental.Code(err))
	require.ErrorIs(t, err, repository.ErrNotFound)

	r, err := svc.Lookup(ctx, f.customer.ID, f.movie.ID)
	require.NoError(t, err)
	require.True(t, r.IsOpen())
}

func TestCheckout_RetriesConflicts(t *testing.T) {
	f := newFixture(t, 2, 2)
	metrics := newMetricsMock()
	calls := 0
	repo := &repoMock{Store: f.store}
	repo.withinTxFn = func(ctx context.Context, fn func(ctx context.Context, tx repository.RentalTx) error) error {
		calls++
		if calls < 3 {
			return repository.ErrConflict
		}
		return f.store.WithinTx(ctx, fn)
	}
	svc := rental.New(repo, rental.WithRetry(4, 0), rental.WithMetrics(metrics))

	_, err := svc.Checkout(context.Background(), f.customer.ID, f.movie.ID)
	require.NoError(t, err)
	require.Equal(t, 3, calls)
	require.Equal(t, 1, f.stock(t))
	require.Equal(t, 2, metrics.count(rental.RetriesMetric+"|checkout|"))
	require.Equal(t, 1, metrics.count(rental.OperationsMetric+"|checkout|success"))
}

func TestCheckout_ConflictsExhausted(t *testing.T) {
	f := newFixture(t, 2, 2)
	metrics := newMetricsMock()
	calls := 0
	repo := &repoMock{Store: f.store}
	repo.withinTxFn = func(context.Context, func(ctx context.Context, tx repository.RentalTx) error) error {
		calls++
		return repository.ErrConflict
	}
	svc := rental.New(repo, rental.WithRetry(4, 0), rental.WithMetrics(metrics))

	_, err := svc.Checkout(context.Background(), f.customer.ID, f.movie.ID)
	require.Equal(t, rental.ErrTransactionFailed, rental.Code(err))
	require.ErrorIs(t, err, repository.ErrConflict)
	require.Equal(t, 4, calls)
	require.Equal(t, 2, f.stock(t))
	require.Equal(t, 1, metrics.count(rental.OperationsMetric+"|checkout|transaction_failed"))
}

func TestCheckout_BusinessErrorsNotRetried(t *testing.T) {
	f := newFixture(t, 2, 2)
	calls := 0
	repo := &repoMock{Store: f.store}
	repo.withinTxFn = func(ctx context.Context, fn func(ctx context.Context, tx repository.RentalTx) error) error {
		calls++
		return f.store.WithinTx(ctx, fn)
	}
	svc := rental.New(repo, rental.WithRetry(4, 0))

	_, err := svc.Checkout(context.Background(), f.customer.ID, f.movie.ID)
	require.NoError(t, err)
	_, err = svc.Checkout(context.Background(), f.customer.ID, f.movie.ID)
	require.Equal(t, rental.ErrAlreadyRented, rental.Code(err))
	require.Equal(t, 2, calls)
}

func TestCheckout_InfrastructureFailure(t *testing.T) {
	f := newFixture(t, 2, 2)
	repo := &repoMock{Store: f.store}
	repo.withinTxFn = func(context.Context, func(ctx context.Context, tx repository.RentalTx) error) error {
		return errors.New("connection reset")
	}
	svc := rental.New(repo)

	_, err := svc.Checkout(context.Background(), f.customer.ID, f.movie.ID)
	require.Equal(t, rental.ErrTransactionFailed, rental.Code(err))
	require.Equal(t, "Something failed.", rental.Message(err))
}

func TestCheckout_TimeoutCommitsNothing(t *testing.T) {
	f := newFixture(t, 2, 2)
	repo := &repoMock{Store: f.store}
	repo.withinTxFn = func(ctx context.Context, fn func(ctx context.Context, tx repository.RentalTx) error) error {
		return f.store.WithinTx(ctx, func(ctx context.Context, tx repository.RentalTx) error {
			if err := fn(ctx, tx); err != nil {
				return err
			}
			<-ctx.Done()
			return nil
		})
	}
	svc := rental.New(repo, rental.WithTimeout(20*time.Millisecond))

	_, err := svc.Checkout(context.Background(), f.customer.ID, f.movie.ID)
	require.Equal(t, rental.ErrTransactionFailed, rental.Code(err))
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, 2, f.stock(t))

	_, err = svc.Lookup(context.Background(), f.customer.ID, f.movie.ID)
	require.Equal(t, rental.ErrNotFound, rental.Code(err))
}

func TestCheckout_ConcurrentNeverOversells(t *testing.T) {
	f := newFixture(t, 3, 2)
	svc := rental.New(f.store)

	customers := make([]model.Customer, 20)
	for i := range customers {
		customers[i] = storetest.SeedCustomer(t, f.store, "Customer "+uuid.NewString()[:8])
	}

	var wg sync.WaitGroup
	errs := make([]error, len(customers))
	for i, c := range customers {
		wg.Add(1)
		go func(i int, id uuid.UUID) {
			defer wg.Done()
			_, errs[i] = svc.Checkout(context.Background(), id, f.movie.ID)
		}(i, c.ID)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		require.Equal(t, rental.ErrOutOfStock, rental.Code(err))
	}
	require.Equal(t, 3, ok)
	require.Equal(t, 0, f.stock(t))
}

func TestCheckout_ConcurrentSamePair(t *testing.T) {
	f := newFixture(t, 10, 2)
	svc := rental.New(f.store)

	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Checkout(context.Background(), f.customer.ID, f.movie.ID)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		require.Equal(t, rental.ErrAlreadyRented, rental.Code(err))
	}
	require.Equal(t, 1, ok)
	require.Equal(t, 9, f.stock(t))
}

func TestStockConservation(t *testing.T) {
	f := newFixture(t, 4, 1)
	svc := rental.New(f.store)
	ctx := context.Background()

	customers := []model.Customer{f.customer}
	for i := 0; i < 3; i++ {
		customers = append(customers, storetest.SeedCustomer(t, f.store, "Extra "+uuid.NewString()[:8]))
	}
	for _, c := range customers[:3] {
		_, err := svc.Checkout(ctx, c.ID, f.movie.ID)
		require.NoError(t, err)
	}
	_, err := svc.Return(ctx, customers[1].ID, f.movie.ID)
	require.NoError(t, err)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	open := 0
	for _, r := range list {
		if r.IsOpen() {
			open++
		}
	}
	// initial stock == current stock + open rentals
	require.Equal(t, 4, f.stock(t)+open)
}

func TestGet_NotFound(t *testing.T) {
	svc := rental.New(memory.NewStore())
	_, err := svc.Get(context.Background(), uuid.New())
	require.Equal(t, rental.ErrNotFound, rental.Code(err))
	require.Equal(t, "The rental with the given ID was not found.", rental.Message(err))
}
