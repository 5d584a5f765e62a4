package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/marks-api/internal/models"
)

const metricsNamespace = "marks_api"

// durationTally accumulates a count and a total so the health snapshot can report averages.
type durationTally struct {
	count atomic.Uint64
	nanos atomic.Uint64
}

func (t *durationTally) add(d time.Duration) {
	t.count.Add(1)
	t.nanos.Add(uint64(d.Nanoseconds()))
}

func (t *durationTally) averageMs() (uint64, float64) {
	n := t.count.Load()
	if n == 0 {
		return 0, 0
	}
	return n, float64(t.nanos.Load()) / float64(n) / float64(time.Millisecond)
}

// MetricsService owns the Prometheus registry for HTTP, cache, store and entry activity.
// A nil *MetricsService is valid and records nothing.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	httpDuration *prometheus.HistogramVec
	httpTotal    *prometheus.CounterVec
	cacheOps     *prometheus.HistogramVec
	cacheRatio   prometheus.Gauge
	dbDuration   *prometheus.HistogramVec
	marksSaved   *prometheus.CounterVec
	saveFailures prometheus.Counter
	finalized    *prometheus.CounterVec
	reconciled   prometheus.Counter

	requests durationTally
	queries  durationTally
	hits     atomic.Uint64
	misses   atomic.Uint64
}

// NewMetricsService builds a registry with the Go and process collectors plus the marks collectors.
func NewMetricsService() *MetricsService {
	m := &MetricsService{
		registry: prometheus.NewRegistry(),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace, Subsystem: "http", Name: "request_duration_seconds",
			Help:    "HTTP request latency by route template.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		httpTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace, Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests by route template.",
		}, []string{"method", "path", "status"}),
		cacheOps: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace, Subsystem: "cache", Name: "operation_seconds",
			Help:    "Summary cache latency by operation and result.",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1},
		}, []string{"op", "result"}),
		cacheRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace, Subsystem: "cache", Name: "hit_ratio",
			Help: "Summary cache hits over lookups since start.",
		}),
		dbDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace, Subsystem: "db", Name: "query_duration_seconds",
			Help:    "Mark store query latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"query"}),
		marksSaved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace, Name: "marks_saved_total",
			Help: "Mark records persisted, by category.",
		}, []string{"category"}),
		saveFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace, Name: "mark_save_failures_total",
			Help: "Mark record writes that failed.",
		}),
		finalized: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace, Subsystem: "entry", Name: "finalize_total",
			Help: "Guided entry finalizations, by save outcome.",
		}, []string{"saved"}),
		reconciled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace, Subsystem: "entry", Name: "reconciled_total",
			Help: "Unsaved entry results persisted on a later attempt.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpDuration, m.httpTotal, m.cacheOps, m.cacheRatio, m.dbDuration,
		m.marksSaved, m.saveFailures, m.finalized, m.reconciled,
	)
	m.handler = promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records one served request. path should be the route template.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.httpDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
	m.httpTotal.WithLabelValues(method, path, code).Inc()
	m.requests.add(duration)
}

// RecordCacheOperation records a cache lookup.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
		m.hits.Add(1)
	} else {
		m.misses.Add(1)
	}
	m.cacheOps.WithLabelValues("get", result).Observe(duration.Seconds())
	hits, misses := m.hits.Load(), m.misses.Load()
	m.cacheRatio.Set(float64(hits) / float64(hits+misses))
}

// ObserveCacheWrite records a cache write.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheOps.WithLabelValues("set", "ok").Observe(duration.Seconds())
}

// ObserveDBQuery records a store query under label.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbDuration.WithLabelValues(label).Observe(duration.Seconds())
	m.queries.add(duration)
}

// RecordMarkSaved counts a persisted mark record.
func (m *MetricsService) RecordMarkSaved(category models.Category) {
	if m == nil {
		return
	}
	m.marksSaved.WithLabelValues(string(category)).Inc()
}

// RecordMarkSaveFailure counts a failed mark write.
func (m *MetricsService) RecordMarkSaveFailure() {
	if m == nil {
		return
	}
	m.saveFailures.Inc()
}

// RecordEntryFinalized counts a guided entry finalization.
func (m *MetricsService) RecordEntryFinalized(saved bool) {
	if m == nil {
		return
	}
	m.finalized.WithLabelValues(strconv.FormatBool(saved)).Inc()
}

// RecordReconciled counts results persisted on a later attempt.
func (m *MetricsService) RecordReconciled(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.reconciled.Add(float64(n))
}

// Snapshot summarises the counters for the health endpoint.
func (m *MetricsService) Snapshot() models.ServiceMetrics {
	if m == nil {
		return models.ServiceMetrics{}
	}
	hits, misses := m.hits.Load(), m.misses.Load()
	var ratio float64
	if hits+misses > 0 {
		ratio = float64(hits) / float64(hits+misses)
	}
	requests, avgRequest := m.requests.averageMs()
	queries, avgQuery := m.queries.averageMs()
	return models.ServiceMetrics{
		CacheHitRatio:            ratio,
		CacheHits:                hits,
		CacheMisses:              misses,
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequest,
		DBQueryCount:             queries,
		AverageDBQueryDurationMs: avgQuery,
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
