package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"method", "route", "status"},
	)

	cacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "suggestion_cache_lookups_total",
			Help: "Suggestion cache lookups by outcome.",
		},
		[]string{"outcome"},
	)

	cacheIngested = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "suggestion_cache_ingested_total",
			Help: "Suggestions written into the cache.",
		},
	)

	cacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "suggestion_cache_entries",
			Help: "Devices currently held in the suggestion cache.",
		},
	)

	cacheSnapshots = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "suggestion_cache_snapshots_total",
			Help: "Cache snapshot attempts by sink and outcome.",
		},
		[]string{"sink", "outcome"},
	)

	readingsStored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "readings_stored_total",
			Help: "Uploaded readings by outcome.",
		},
		[]string{"outcome"},
	)

	agentCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scan_cycles_total",
			Help: "Scan and upload cycles by outcome.",
		},
		[]string{"outcome"},
	)
)

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

func IncCacheLookup(hit bool) {
	if hit {
		cacheLookups.WithLabelValues("hit").Inc()
		return
	}
	cacheLookups.WithLabelValues("miss").Inc()
}

func AddCacheIngested(n int) {
	cacheIngested.Add(float64(n))
}

func SetCacheEntries(n int) {
	cacheEntries.Set(float64(n))
}

func IncCacheSnapshot(sink string, err error) {
	cacheSnapshots.WithLabelValues(sink, outcome(err)).Inc()
}

func IncReadingStored(err error) {
	readingsStored.WithLabelValues(outcome(err)).Inc()
}

func IncScanCycle(result string) {
	agentCycles.WithLabelValues(result).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
