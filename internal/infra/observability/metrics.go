package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the hub API.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	reloadDuration *prometheus.HistogramVec
	backendErrors  *prometheus.CounterVec
	cacheHits      *prometheus.CounterVec
	cacheMisses    *prometheus.CounterVec
	mutations      *prometheus.CounterVec
	staleReloads   prometheus.Counter
}

// PortfolioMetricsSnapshot is the payload of GET /v1/metrics/portfolio.
type PortfolioMetricsSnapshot struct {
	Reloads        int64   `json:"reloads"`
	StaleDiscarded int64   `json:"staleDiscarded"`
	Mutations      int64   `json:"mutations"`
	BackendErrors  int64   `json:"backendErrors"`
	CacheHitRate   float64 `json:"cacheHitRate"`
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		reloadDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hub_portfolio_reload_duration_seconds",
				Help:    "Duration of full portfolio reloads by trigger.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"trigger"},
		),
		backendErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hub_backend_errors_total",
				Help: "Total errors from the storage/auth backend.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hub_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hub_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		mutations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hub_portfolio_mutations_total",
				Help: "Total portfolio mutations by operation.",
			},
			[]string{"operation"},
		),
		staleReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "hub_portfolio_stale_reloads_total",
				Help: "Reload results discarded for arriving after a newer one.",
			},
		),
	}
}

// RecordReloadDuration records the duration of a full portfolio reload.
func (m *Metrics) RecordReloadDuration(trigger string, d time.Duration) {
	m.reloadDuration.WithLabelValues(trigger).Observe(d.Seconds())
}

// IncrBackendError increments the backend error counter.
func (m *Metrics) IncrBackendError(service string) {
	m.backendErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrMutation increments the mutation counter for an operation.
func (m *Metrics) IncrMutation(operation string) {
	m.mutations.WithLabelValues(operation).Inc()
}

// IncrStaleReload counts a reload result discarded as stale.
func (m *Metrics) IncrStaleReload() {
	m.staleReloads.Inc()
}

// Snapshot gathers current values for the GET /v1/metrics/portfolio endpoint.
func (m *Metrics) Snapshot() *PortfolioMetricsSnapshot {
	hits := getCounterValue(m.cacheHits, "registry")
	misses := getCounterValue(m.cacheMisses, "registry")

	hitRate := float64(0)
	if hits+misses > 0 {
		hitRate = hits / (hits + misses)
	}

	return &PortfolioMetricsSnapshot{
		Reloads:        int64(sumHistogramCount(m.reloadDuration)),
		StaleDiscarded: int64(getPlainCounterValue(m.staleReloads)),
		Mutations:      int64(sumCounterVec(m.mutations)),
		BackendErrors:  int64(sumCounterVec(m.backendErrors)),
		CacheHitRate:   hitRate,
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}

func getPlainCounterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}

func sumCounterVec(cv *prometheus.CounterVec) float64 {
	ch := make(chan prometheus.Metric)
	go func() {
		cv.Collect(ch)
		close(ch)
	}()
	total := float64(0)
	for metric := range ch {
		m := &dto.Metric{}
		if err := metric.Write(m); err != nil {
			continue
		}
		if m.Counter != nil && m.Counter.Value != nil {
			total += *m.Counter.Value
		}
	}
	return total
}

func sumHistogramCount(hv *prometheus.HistogramVec) float64 {
	ch := make(chan prometheus.Metric)
	go func() {
		hv.Collect(ch)
		close(ch)
	}()
	total := float64(0)
	for metric := range ch {
		m := &dto.Metric{}
		if err := metric.Write(m); err != nil {
			continue
		}
		if m.Histogram != nil && m.Histogram.SampleCount != nil {
			total += float64(*m.Histogram.SampleCount)
		}
	}
	return total
}
