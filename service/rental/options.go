package rental

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Metric names reported through MetricsCollector.
const (
	OperationsMetric = "rental_operations_total"
	DurationMetric   = "rental_operation_duration_seconds"
	RetriesMetric    = "rental_tx_retries_total"
)

// MetricsCollector receives outcome counters and latencies for lifecycle calls.
type MetricsCollector interface {
	IncrementCounter(metric string, labels map[string]string)
	RecordDuration(metric string, duration time.Duration, labels map[string]string)
}

type noopMetrics struct{}

func (noopMetrics) IncrementCounter(string, map[string]string)              {}
func (noopMetrics) RecordDuration(string, time.Duration, map[string]string) {}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces time.Now as the source of dateOut and dateReturned.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithIDs replaces uuid.New for new rental ids.
func WithIDs(next func() uuid.UUID) Option {
	return func(m *Manager) { m.newID = next }
}

// WithTimeout bounds every checkout and return, retries included.
func WithTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.timeout = d
		}
	}
}

func WithMetrics(c MetricsCollector) Option {
	return func(m *Manager) {
		if c != nil {
			m.metrics = c
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithRetry sets how often a conflicting unit of work is attempted and the
// first backoff delay.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(m *Manager) {
		if maxAttempts > 0 {
			m.maxAttempts = maxAttempts
		}
		if baseDelay >= 0 {
			m.baseDelay = baseDelay
		}
	}
}
