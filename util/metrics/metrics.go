// Package metrics exposes Prometheus counters and histograms behind the
// string-keyed collector interface the services use.
package metrics

import (
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	httpRequestsMetric = "http_requests_total"
	httpDurationMetric = "http_request_duration_seconds"
)

// Collector registers metric vectors lazily, on first use of a name. Later
// calls must use the same label names; mismatches are dropped.
type Collector struct {
	reg *prometheus.Registry

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
}

func New() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Collector{
		reg:        reg,
		counters:   make(map[string]*prometheus.CounterVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
}

func labelNames(labels map[string]string) []string {
	names := make([]string, 0, len(labels))
	for k := range labels {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (c *Collector) IncrementCounter(metric string, labels map[string]string) {
	c.mu.Lock()
	vec, ok := c.counters[metric]
	if !ok {
		vec = prometheus.NewCounterVec(prometheus.CounterOpts{Name: metric, Help: metric}, labelNames(labels))
		if err := c.reg.Register(vec); err != nil {
			c.mu.Unlock()
			return
		}
		c.counters[metric] = vec
	}
	c.mu.Unlock()

	if m, err := vec.GetMetricWith(labels); err == nil {
		m.Inc()
	}
}

func (c *Collector) RecordDuration(metric string, d time.Duration, labels map[string]string) {
	c.mu.Lock()
	vec, ok := c.histograms[metric]
	if !ok {
		vec = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    metric,
			Help:    metric,
			Buckets: prometheus.DefBuckets,
		}, labelNames(labels))
		if err := c.reg.Register(vec); err != nil {
			c.mu.Unlock()
			return
		}
		c.histograms[metric] = vec
	}
	c.mu.Unlock()

	if m, err := vec.GetMetricWith(labels); err == nil {
		m.Observe(d.Seconds())
	}
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{Registry: c.reg}))
}

// Middleware records request counts and latency per route template.
func (c *Collector) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			err := next(ctx)
			if err != nil {
				ctx.Error(err)
			}

			path := ctx.Path()
			if path == "" {
				path = "unmatched"
			}
			c.IncrementCounter(httpRequestsMetric, map[string]string{
				"method": ctx.Request().Method,
				"path":   path,
				"status": strconv.Itoa(ctx.Response().Status),
			})
			c.RecordDuration(httpDurationMetric, time.Since(start), map[string]string{
				"method": ctx.Request().Method,
				"path":   path,
			})
			return nil
		}
	}
}
