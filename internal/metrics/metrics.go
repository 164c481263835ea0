package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dailybrief"

// Outcome labels for oracle calls and notifications.
const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeCached   = "cached"
	OutcomeRejected = "rejected"
)

// Metrics collects pipeline counters plus the health state served on /health.
// All methods are safe on a nil receiver so collaborators can skip wiring it.
type Metrics struct {
	registry *prometheus.Registry

	itemsFetched  *prometheus.CounterVec
	duplicates    *prometheus.CounterVec
	oracleCalls   *prometheus.CounterVec
	fallbacks     *prometheus.CounterVec
	itemsSelected *prometheus.CounterVec
	notifications *prometheus.CounterVec
	runDuration   prometheus.Histogram

	mu                 sync.RWMutex
	lastRunTime        time.Time
	lastProcessingTime time.Duration
	lastErrorTime      time.Time
	lastError          string
	isHealthy          bool
	runs               int64
}

var Global = New()

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		itemsFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_fetched_total",
			Help:      "Raw items returned by fetchers.",
		}, []string{"category", "source"}),
		duplicates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicates_dropped_total",
			Help:      "Items dropped by the deduplicator.",
		}, []string{"category", "reason"}),
		oracleCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oracle_calls_total",
			Help:      "Scoring and summarization oracle calls.",
		}, []string{"kind", "outcome"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallbacks_total",
			Help:      "Items that received a fallback score or summary.",
		}, []string{"kind"}),
		itemsSelected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_selected_total",
			Help:      "Items ranked into the digest.",
		}, []string{"category"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Digest deliveries per notifier.",
		}, []string{"notifier", "outcome"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall-clock time of a full curation run.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		isHealthy: true,
	}

	m.registry.MustRegister(
		m.itemsFetched,
		m.duplicates,
		m.oracleCalls,
		m.fallbacks,
		m.itemsSelected,
		m.notifications,
		m.runDuration,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) AddFetched(category, source string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.itemsFetched.WithLabelValues(category, source).Add(float64(n))
}

func (m *Metrics) IncrementDuplicates(category, reason string) {
	if m == nil {
		return
	}
	m.duplicates.WithLabelValues(category, reason).Inc()
}

func (m *Metrics) IncrementOracleCalls(kind, outcome string) {
	if m == nil {
		return
	}
	m.oracleCalls.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) IncrementFallbacks(kind string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(kind).Inc()
}

func (m *Metrics) AddSelected(category string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.itemsSelected.WithLabelValues(category).Add(float64(n))
}

func (m *Metrics) IncrementNotifications(notifier, outcome string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(notifier, outcome).Inc()
}

func (m *Metrics) RecordProcessingTime(duration time.Duration) {
	if m == nil {
		return
	}
	m.runDuration.Observe(duration.Seconds())

	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastProcessingTime = duration
	m.runs++
}

func (m *Metrics) SetLastRun() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastRunTime = time.Now()
	m.isHealthy = true
}

func (m *Metrics) SetError(err string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastError = err
	m.lastErrorTime = time.Now()
	m.isHealthy = false
}

func (m *Metrics) Healthy() bool {
	if m == nil {
		return true
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isHealthy
}

// GetStats returns the health snapshot rendered on /health.
func (m *Metrics) GetStats() map[string]interface{} {
	if m == nil {
		return map[string]interface{}{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := map[string]interface{}{
		"runs":                    m.runs,
		"last_processing_time_ms": m.lastProcessingTime.Milliseconds(),
		"last_error":              m.lastError,
		"is_healthy":              m.isHealthy,
		"last_run_time":           "",
		"last_error_time":         "",
	}
	if !m.lastRunTime.IsZero() {
		stats["last_run_time"] = m.lastRunTime.Format(time.RFC3339)
	}
	if !m.lastErrorTime.IsZero() {
		stats["last_error_time"] = m.lastErrorTime.Format(time.RFC3339)
	}
	return stats
}
