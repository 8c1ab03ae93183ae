package rental

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"movierental/repository"
)

const (
	defaultMaxAttempts  = 4
	defaultBaseDelay    = 10 * time.Millisecond
	defaultJitterFactor = 0.3
)

// retry runs fn until it succeeds, fails with a non-conflict error or runs out
// of attempts. Delays double from baseDelay with jitter on top.
//
// Only repository.ErrConflict is retried. Business errors and timeouts fail fast.
func (m *Manager) retry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < m.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := m.baseDelay * time.Duration(1<<(attempt-1))
			jitter := rand.Float64() * float64(delay) * defaultJitterFactor //nolint:gosec // jitter only
			m.metrics.IncrementCounter(RetriesMetric, map[string]string{"operation": op})

			select {
			case <-time.After(delay + time.Duration(jitter)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil || !errors.Is(lastErr, repository.ErrConflict) {
			return lastErr
		}
		m.log.WarnContext(ctx, "rental tx conflict", "operation", op, "attempt", attempt+1, "err", lastErr)
	}
	return lastErr
}
