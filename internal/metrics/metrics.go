package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "starcalc_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "starcalc_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	ephemerisSamplesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "starcalc_ephemeris_samples_total",
			Help: "Ephemeris samples computed, by body and result.",
		},
		[]string{"body", "result"},
	)

	ephemerisBatchSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "starcalc_ephemeris_batch_duration_seconds",
			Help:    "Duration of one ephemeris batch in seconds.",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"body"},
	)

	workersGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "starcalc_workers",
			Help: "Size of the ephemeris worker pool.",
		},
	)

	catalogStars = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "starcalc_catalog_stars",
			Help: "Number of stars in the loaded catalog.",
		},
	)

	cacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "starcalc_cache_lookups_total",
			Help: "Ephemeris table cache lookups, by result.",
		},
		[]string{"result"},
	)

	cacheEvictionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "starcalc_cache_evictions_total",
			Help: "Ephemeris tables evicted from the cache.",
		},
	)

	cacheEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "starcalc_cache_entries",
			Help: "Ephemeris tables currently cached.",
		},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpDurationSeconds)
	prometheus.MustRegister(ephemerisSamplesTotal)
	prometheus.MustRegister(ephemerisBatchSeconds)
	prometheus.MustRegister(workersGauge)
	prometheus.MustRegister(catalogStars)
	prometheus.MustRegister(cacheLookupsTotal)
	prometheus.MustRegister(cacheEvictionsTotal)
	prometheus.MustRegister(cacheEntries)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordEphemeris records the outcome of one batch for body.
func RecordEphemeris(body string, duration time.Duration, success, failed int) {
	ephemerisBatchSeconds.WithLabelValues(body).Observe(duration.Seconds())
	ephemerisSamplesTotal.WithLabelValues(body, "ok").Add(float64(success))
	ephemerisSamplesTotal.WithLabelValues(body, "error").Add(float64(failed))
}

// SetWorkers publishes the worker pool size.
func SetWorkers(n int) { workersGauge.Set(float64(n)) }

// SetCatalogSize publishes the number of catalog stars.
func SetCatalogSize(n int) { catalogStars.Set(float64(n)) }

// IncCacheHits increments the table cache hit counter.
func IncCacheHits() { cacheLookupsTotal.WithLabelValues("hit").Inc() }

// IncCacheMisses increments the table cache miss counter.
func IncCacheMisses() { cacheLookupsTotal.WithLabelValues("miss").Inc() }

// AddCacheEvictions adds n to the table cache eviction counter.
func AddCacheEvictions(n int) { cacheEvictionsTotal.Add(float64(n)) }

// SetCacheEntries publishes the number of cached tables.
func SetCacheEntries(n int) { cacheEntries.Set(float64(n)) }

var exactRoutes = map[string]bool{
	"/":                  true,
	"/healthz":           true,
	"/readyz":            true,
	"/metrics":           true,
	"/api/v1/time":       true,
	"/api/v1/bodies":     true,
	"/api/v1/ellipsoids": true,
	"/api/v1/catalog":    true,
}

var bodySubroutes = map[string]bool{
	"position":  true,
	"ephemeris": true,
	"passes":    true,
}

// normalizeRoute maps a request path to a bounded label so that body and
// ellipsoid names do not each create a new time series.
func normalizeRoute(path string) string {
	if exactRoutes[path] {
		return path
	}

	if rest, ok := strings.CutPrefix(path, "/api/v1/bodies/"); ok {
		name, sub, found := strings.Cut(rest, "/")
		if found && name != "" && bodySubroutes[sub] {
			return "/api/v1/bodies/{name}/" + sub
		}
		return "other"
	}

	for _, prefix := range []string{"/api/v1/ellipsoids/", "/api/v1/catalog/"} {
		if rest, ok := strings.CutPrefix(path, prefix); ok && rest != "" && !strings.Contains(rest, "/") {
			return prefix + "{name}"
		}
	}

	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		route := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}
