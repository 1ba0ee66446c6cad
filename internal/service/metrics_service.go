package service

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsSnapshot aggregates generation and cache stats for diagnostics.
type MetricsSnapshot struct {
	GenerationsTotal            uint64    `json:"generations_total"`
	AverageGenerationDurationMs float64   `json:"average_generation_duration_ms"`
	ConflictsResolvedTotal      uint64    `json:"conflicts_resolved_total"`
	LastFitnessScore            int       `json:"last_fitness_score"`
	CacheHitRatio               float64   `json:"cache_hit_ratio"`
	CacheHits                   uint64    `json:"cache_hits"`
	CacheMisses                 uint64    `json:"cache_misses"`
	GeneratedAt                 time.Time `json:"generated_at"`
}

// MetricsService encapsulates Prometheus instrumentation for the
// timetable generator and provides lightweight snapshots.
type MetricsService struct {
	registry           *prometheus.Registry
	handler            http.Handler
	generationDuration prometheus.Histogram
	generationTotal    *prometheus.CounterVec
	conflictsResolved  prometheus.Counter
	fitnessScore       prometheus.Gauge
	cacheHitRatio      prometheus.Gauge
	cacheHits          prometheus.Counter
	cacheMisses        prometheus.Counter
	cacheWrite         prometheus.Observer

	generationCount         uint64
	generationDurationTotal uint64
	conflictsResolvedCount  uint64
	lastFitness             int64
	cacheHitCount           uint64
	cacheMissCount          uint64
}

// NewMetricsService registers the generator's Prometheus collectors on a
// private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	generationDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "timetable_generation_duration_seconds",
		Help:    "Duration of timetable generation runs in seconds",
		Buckets: prometheus.DefBuckets,
	})

	generationTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_generations_total",
		Help: "Total number of timetable generation runs",
	}, []string{"outcome"})

	conflictsResolved := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "timetable_conflicts_resolved_total",
		Help: "Total number of conflicts resolved via backtracking swaps",
	})

	fitnessScore := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "timetable_fitness_score",
		Help: "Fitness score of the most recent generation run",
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	registry.MustRegister(generationDuration, generationTotal, conflictsResolved, fitnessScore, cacheHitRatio, cacheHits, cacheMisses, cacheWrite)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:           registry,
		handler:            handler,
		generationDuration: generationDuration,
		generationTotal:    generationTotal,
		conflictsResolved:  conflictsResolved,
		fitnessScore:       fitnessScore,
		cacheHitRatio:      cacheHitRatio,
		cacheHits:          cacheHits,
		cacheMisses:        cacheMisses,
		cacheWrite:         cacheWrite,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// RecordGeneration records the outcome of one generation run.
func (m *MetricsService) RecordGeneration(complete bool, duration time.Duration, conflictsResolved, score int) {
	if m == nil {
		return
	}
	outcome := "complete"
	if !complete {
		outcome = "partial"
	}
	m.generationDuration.Observe(duration.Seconds())
	m.generationTotal.WithLabelValues(outcome).Inc()
	m.conflictsResolved.Add(float64(conflictsResolved))
	m.fitnessScore.Set(float64(score))

	atomic.AddUint64(&m.generationCount, 1)
	atomic.AddUint64(&m.generationDurationTotal, uint64(duration.Nanoseconds()))
	atomic.AddUint64(&m.conflictsResolvedCount, uint64(conflictsResolved))
	atomic.StoreInt64(&m.lastFitness, int64(score))
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	total := hits + misses
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil || m.cacheWrite == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// Snapshot returns aggregated metrics suitable for diagnostics output.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	generations := atomic.LoadUint64(&m.generationCount)
	genDuration := atomic.LoadUint64(&m.generationDurationTotal)
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)

	var avgGenMs float64
	if generations > 0 {
		avgGenMs = float64(genDuration) / float64(generations) / float64(time.Millisecond)
	}

	var cacheRatio float64
	if total := hits + misses; total > 0 {
		cacheRatio = float64(hits) / float64(total)
	}

	return MetricsSnapshot{
		GenerationsTotal:            generations,
		AverageGenerationDurationMs: avgGenMs,
		ConflictsResolvedTotal:      atomic.LoadUint64(&m.conflictsResolvedCount),
		LastFitnessScore:            int(atomic.LoadInt64(&m.lastFitness)),
		CacheHitRatio:               cacheRatio,
		CacheHits:                   hits,
		CacheMisses:                 misses,
		GeneratedAt:                 time.Now().UTC(),
	}
}
