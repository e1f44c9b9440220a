package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/star/starcalc/internal/auth"
	"github.com/star/starcalc/internal/body"
	"github.com/star/starcalc/internal/cache"
	"github.com/star/starcalc/internal/catalog"
	"github.com/star/starcalc/internal/ephemeris"
	"github.com/star/starcalc/internal/geodesy"
	"github.com/star/starcalc/internal/health"
	"github.com/star/starcalc/internal/httputil"
	"github.com/star/starcalc/internal/metrics"
	"github.com/star/starcalc/internal/tracing"
)

// Config holds the HTTP-facing settings.
type Config struct {
	Addr       string
	Auth       auth.Config
	MaxRows    int        // per ephemeris request
	RateLimit  rate.Limit // requests per second per client IP; zero disables
	RateBurst  int
	TrustProxy bool
	// MaxConcurrentPerIP bounds in-flight ephemeris and pass computations.
	MaxConcurrentPerIP int
	Observer           geodesy.GeodeticCoordinate // used when lat/lon are omitted
}

// Deps are the engine components the handlers read from.
type Deps struct {
	Bodies    *body.Registry
	Catalog   *catalog.Catalog
	Generator *ephemeris.Generator
	Tables    *cache.TableCache // optional; fronts Generator for ephemeris requests
	Health    *health.Checker
	Now       func() time.Time
}

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// maxPassHours bounds pass searches.
const maxPassHours = 7 * 24

// rateExempt are never rate limited so probes keep working under load.
var rateExempt = map[string]bool{
	"/healthz": true,
	"/readyz":  true,
	"/metrics": true,
}

// NewServer creates a configured HTTP server.
func NewServer(cfg Config, deps Deps, logger *slog.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           NewHandler(cfg, deps, logger),
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		logger: logger,
	}
}

// NewHandler builds the routed handler with its middleware chain.
func NewHandler(cfg Config, deps Deps, logger *slog.Logger) http.Handler {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Health == nil {
		deps.Health = &health.Checker{}
		deps.Health.SetReady(true)
	}
	maxConc := cfg.MaxConcurrentPerIP
	if maxConc <= 0 {
		maxConc = 4
	}
	heavy := httputil.NewConcurrencyLimiter(maxConc, 1000)
	h := &handlers{cfg: cfg, deps: deps, logger: logger}

	mux := http.NewServeMux()

	// Register routes.
	mux.HandleFunc("GET /healthz", deps.Health.Healthz)
	mux.HandleFunc("GET /readyz", deps.Health.Readyz)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /api/v1/time", h.timeHandler)
	mux.HandleFunc("GET /api/v1/bodies", h.bodiesHandler)
	mux.HandleFunc("GET /api/v1/bodies/{name}/position", h.positionHandler)
	mux.HandleFunc("GET /api/v1/bodies/{name}/ephemeris", heavy.Wrap(cfg.TrustProxy, h.ephemerisHandler))
	mux.HandleFunc("GET /api/v1/bodies/{name}/passes", heavy.Wrap(cfg.TrustProxy, h.passesHandler))
	mux.HandleFunc("GET /api/v1/ellipsoids", h.ellipsoidsHandler)
	mux.HandleFunc("GET /api/v1/ellipsoids/{name}", h.ellipsoidHandler)
	mux.HandleFunc("GET /api/v1/catalog", h.catalogHandler)
	mux.HandleFunc("GET /api/v1/catalog/{name}", h.starHandler)

	// Build middleware chain: tracing -> metrics -> logging -> rate limit -> auth -> mux.
	var handler http.Handler = mux
	handler = auth.Middleware(cfg.Auth)(handler)
	if cfg.RateLimit > 0 {
		handler = httputil.NewIPRateLimiter(cfg.RateLimit, cfg.RateBurst).Middleware(cfg.TrustProxy, rateExempt)(handler)
	}
	handler = loggingMiddleware(logger, cfg.TrustProxy)(handler)
	handler = metrics.Middleware(handler)
	handler = tracing.Middleware(handler)
	return handler
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// probePath returns true for health/readiness probe paths that should not log at INFO.
func probePath(path string) bool {
	return path == "/healthz" || path == "/readyz"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(logger *slog.Logger, trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			duration := time.Since(start)
			level := slog.LevelInfo
			if probePath(r.URL.Path) {
				level = slog.LevelDebug
			}

			logger.Log(r.Context(), level, "request",
				"component", "api",
				"method", r.Method,
				"path", r.URL.Path,
				"status", strconv.Itoa(sr.statusCode),
				"duration_ms", duration.Milliseconds(),
				"remote_ip", httputil.ClientIP(r, trustProxy),
			)
		})
	}
}
