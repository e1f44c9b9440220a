package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/star/starcalc/internal/angle"
	"github.com/star/starcalc/internal/api"
	"github.com/star/starcalc/internal/auth"
	"github.com/star/starcalc/internal/body"
	"github.com/star/starcalc/internal/cache"
	"github.com/star/starcalc/internal/catalog"
	"github.com/star/starcalc/internal/ephemeris"
	"github.com/star/starcalc/internal/geodesy"
	"github.com/star/starcalc/internal/health"
	"github.com/star/starcalc/internal/tle"
	"github.com/star/starcalc/internal/tracing"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: loadLogLevel(os.Getenv("STARCALC_LOG_LEVEL")),
	}))

	checker := &health.Checker{}

	authCfg, err := loadAuthConfig(logger)
	if err != nil {
		logger.Error("invalid auth configuration", "error", err)
		os.Exit(1)
	}

	apiCfg, err := loadAPIConfig(logger)
	if err != nil {
		logger.Error("invalid api configuration", "error", err)
		os.Exit(1)
	}
	apiCfg.Auth = authCfg

	ephemCfg := loadEphemerisConfig(logger)
	gen, err := ephemeris.NewGenerator(ephemCfg, logger)
	if err != nil {
		logger.Error("invalid ephemeris configuration", "error", err)
		os.Exit(1)
	}

	tables := cache.NewTableCache(loadCacheConfig(logger), gen, logger)

	registry := loadRegistry(logger, os.Getenv("STARCALC_TLE_FILE"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, tracing.ConfigFromEnv(logger), logger)
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer tracing.ShutdownWithTimeout(context.Background(), shutdownTracing, logger)

	cat, err := catalog.Open(ctx, logger)
	if err != nil {
		logger.Error("failed to open star catalog", "error", err)
		os.Exit(1)
	}
	defer cat.Close()

	srv := api.NewServer(apiCfg, api.Deps{
		Bodies:    registry,
		Catalog:   cat,
		Generator: gen,
		Tables:    tables,
		Health:    checker,
	}, logger)

	go tables.Start(ctx)

	go func() {
		logger.Info("starting server", "addr", apiCfg.Addr, "auth_enabled", authCfg.Enabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server listen error", "error", err)
			os.Exit(1)
		}
	}()
	checker.SetReady(true)

	<-ctx.Done()
	logger.Info("shutting down server...")
	checker.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func loadLogLevel(v string) slog.Level {
	switch strings.ToLower(v) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func loadAuthConfig(logger *slog.Logger) (auth.Config, error) {
	cfg := auth.Config{}

	enabledStr := os.Getenv("STARCALC_AUTH_ENABLED")
	if enabledStr != "" {
		enabled, err := strconv.ParseBool(enabledStr)
		if err != nil {
			return cfg, errors.New("STARCALC_AUTH_ENABLED must be a boolean value (true/false/1/0)")
		}
		cfg.Enabled = enabled
	}

	if cfg.Enabled {
		cfg.Tokens = auth.ParseTokens(os.Getenv("STARCALC_AUTH_TOKEN"))
		if len(cfg.Tokens) == 0 {
			return cfg, errors.New("STARCALC_AUTH_TOKEN is required when auth is enabled")
		}
		logger.Info("auth enabled", "tokens", len(cfg.Tokens))
	}

	return cfg, nil
}

// envInt reads a positive integer, warning and keeping def on bad input.
func envInt(logger *slog.Logger, key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		logger.Warn("invalid "+key+" value, using default", "value", v, "default", def)
		return def
	}
	return n
}

func envFloat(logger *slog.Logger, key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		logger.Warn("invalid "+key+" value, using default", "value", v, "default", def)
		return def
	}
	return f
}

func loadEphemerisConfig(logger *slog.Logger) ephemeris.Config {
	cfg := ephemeris.Config{
		Workers: envInt(logger, "STARCALC_WORKERS", runtime.NumCPU()),
		Step:    time.Duration(envInt(logger, "STARCALC_EPHEM_STEP", 60)) * time.Second,
		Horizon: time.Duration(envInt(logger, "STARCALC_EPHEM_HORIZON", 86400)) * time.Second,
	}

	logger.Info("ephemeris config",
		"workers", cfg.Workers,
		"step_seconds", cfg.Step.Seconds(),
		"horizon_seconds", cfg.Horizon.Seconds(),
	)

	return cfg
}

func loadCacheConfig(logger *slog.Logger) cache.Config {
	cfg := cache.Config{
		TTL:        time.Duration(envInt(logger, "STARCALC_CACHE_TTL", 600)) * time.Second,
		MaxEntries: envInt(logger, "STARCALC_CACHE_MAX_ENTRIES", 256),
	}

	logger.Info("cache config",
		"ttl_seconds", cfg.TTL.Seconds(),
		"max_entries", cfg.MaxEntries,
	)

	return cfg
}

func loadAPIConfig(logger *slog.Logger) (api.Config, error) {
	cfg := api.Config{
		Addr:               ":8080",
		MaxRows:            envInt(logger, "STARCALC_MAX_ROWS", 10000),
		RateLimit:          rate.Limit(envFloat(logger, "STARCALC_RATE_LIMIT", 20)),
		RateBurst:          envInt(logger, "STARCALC_RATE_BURST", 40),
		MaxConcurrentPerIP: envInt(logger, "STARCALC_MAX_CONCURRENT", 4),
	}

	if v := os.Getenv("STARCALC_HTTP_ADDR"); v != "" {
		cfg.Addr = v
	}

	if v := os.Getenv("STARCALC_TRUST_PROXY"); v != "" {
		trust, err := strconv.ParseBool(v)
		if err != nil {
			logger.Warn("invalid STARCALC_TRUST_PROXY value, defaulting to false", "value", v)
		} else {
			cfg.TrustProxy = trust
		}
	}

	lat := envFloat(logger, "STARCALC_OBSERVER_LAT", 0)
	lon := envFloat(logger, "STARCALC_OBSERVER_LON", 0)
	elev := envFloat(logger, "STARCALC_OBSERVER_ELEV", 0)
	obs, err := geodesy.NewGeodetic(angle.Radians(lat), angle.Radians(lon), elev, geodesy.WGS84)
	if err != nil {
		return cfg, err
	}
	cfg.Observer = obs

	logger.Info("api config",
		"addr", cfg.Addr,
		"max_rows", cfg.MaxRows,
		"rate_limit", float64(cfg.RateLimit),
		"rate_burst", cfg.RateBurst,
		"max_concurrent_per_ip", cfg.MaxConcurrentPerIP,
		"trust_proxy", cfg.TrustProxy,
		"observer_lat", lat,
		"observer_lon", lon,
	)

	return cfg, nil
}

// loadRegistry builds the satellite registry from an optional TLE file.
// A missing or unreadable file leaves only the built-in bodies.
func loadRegistry(logger *slog.Logger, path string) *body.Registry {
	if path == "" {
		return body.NewRegistry(nil, logger)
	}

	f, err := os.Open(path)
	if err != nil {
		logger.Warn("failed to open TLE file, starting without satellites", "path", path, "error", err)
		return body.NewRegistry(nil, logger)
	}
	defer f.Close()

	entries, err := tle.Parse(f, logger)
	if err != nil {
		logger.Warn("failed to parse TLE file, starting without satellites", "path", path, "error", err)
		return body.NewRegistry(nil, logger)
	}

	span := tle.Span(entries)
	logger.Info("loaded TLE data", "path", path, "count", len(entries),
		"epoch_min", span.Min.Format(time.RFC3339), "epoch_max", span.Max.Format(time.RFC3339))
	return body.NewRegistry(entries, logger)
}
