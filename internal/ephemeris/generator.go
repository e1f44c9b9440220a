package ephemeris

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/star/starcalc/internal/body"
	"github.com/star/starcalc/internal/geodesy"
	"github.com/star/starcalc/internal/metrics"
	"github.com/star/starcalc/internal/tracing"
)

// Generator produces ephemeris tables on a shared worker pool.
type Generator struct {
	pool   *WorkerPool
	config Config
	logger *slog.Logger
}

// NewGenerator creates a generator. The config must pass Validate.
func NewGenerator(config Config, logger *slog.Logger) (*Generator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	pool := NewWorkerPool(config.Workers, logger)
	metrics.SetWorkers(pool.Workers())
	return &Generator{
		pool:   pool,
		config: config,
		logger: logger,
	}, nil
}

// Config returns the generator's default configuration.
func (g *Generator) Config() Config { return g.config }

// Generate samples b from start over the configured horizon.
func (g *Generator) Generate(ctx context.Context, b body.Body, obs geodesy.GeodeticCoordinate, start time.Time) (*Table, error) {
	return g.GenerateWith(ctx, b, obs, start, g.config.Step, g.config.Horizon)
}

// GenerateWith samples b from start with an explicit step and horizon.
func (g *Generator) GenerateWith(ctx context.Context, b body.Body, obs geodesy.GeodeticCoordinate, start time.Time, step, horizon time.Duration) (*Table, error) {
	cfg := Config{Workers: g.config.Workers, Step: step, Horizon: horizon}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := obs.Validate(); err != nil {
		return nil, err
	}

	jds := cfg.Instants(start)

	g.logger.Debug("generating ephemeris",
		"body", b.Name(),
		"samples", len(jds),
		"start", start.UTC().Format(time.RFC3339),
		"workers", g.pool.Workers(),
	)

	ctx, span := tracing.Start(ctx, "ephemeris.Generate",
		attribute.String("body", b.Name()),
		attribute.Int("samples", len(jds)),
	)
	begin := time.Now()
	rows, successCount, errorCount := g.pool.ComputeBatch(ctx, b, obs, jds)
	duration := time.Since(begin)
	span.SetAttributes(attribute.Int("failed", errorCount))

	metrics.RecordEphemeris(b.Name(), duration, successCount, errorCount)

	g.logger.Debug("ephemeris complete",
		"body", b.Name(),
		"success", successCount,
		"errors", errorCount,
		"duration_ms", duration.Milliseconds(),
	)

	table := &Table{
		Body:     b.Name(),
		Observer: obs,
		Start:    start,
		Step:     step,
		Rows:     rows,
		Failed:   errorCount,
	}
	if err := ctx.Err(); err != nil {
		err = fmt.Errorf("ephemeris for %s stopped after %d of %d samples: %w", b.Name(), len(rows), len(jds), err)
		tracing.End(span, err)
		return table, err
	}
	tracing.End(span, nil)
	return table, nil
}
