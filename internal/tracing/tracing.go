// Package tracing wires OpenTelemetry spans around ephemeris generation, pass
// prediction and HTTP requests. When disabled, a no-op provider is installed
// and spans cost nothing.
package tracing

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const tracerName = "github.com/star/starcalc"

// Config governs how tracing is initialized.
type Config struct {
	Enabled     bool
	ServiceName string
	Exporter    string // stdout | otlp
	Endpoint    string // used when Exporter == otlp
	SampleRatio float64
}

// ConfigFromEnv reads STARCALC_TRACING_* variables, warning on bad values.
func ConfigFromEnv(logger *slog.Logger) Config {
	cfg := Config{
		ServiceName: "starcalc",
		Exporter:    "stdout",
		Endpoint:    os.Getenv("STARCALC_OTLP_ENDPOINT"),
		SampleRatio: 1.0,
	}

	if v := os.Getenv("STARCALC_TRACING_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			logger.Warn("invalid STARCALC_TRACING_ENABLED value, defaulting to false", "value", v)
		} else {
			cfg.Enabled = enabled
		}
	}

	if v := os.Getenv("STARCALC_TRACING_EXPORTER"); v != "" {
		cfg.Exporter = strings.ToLower(v)
	}

	if v := os.Getenv("STARCALC_TRACING_SERVICE_NAME"); v != "" {
		cfg.ServiceName = v
	}

	if v := os.Getenv("STARCALC_TRACING_SAMPLE_RATIO"); v != "" {
		ratio, err := strconv.ParseFloat(v, 64)
		if err != nil || ratio < 0 || ratio > 1 {
			logger.Warn("invalid STARCALC_TRACING_SAMPLE_RATIO value, using default", "value", v, "default", 1.0)
		} else {
			cfg.SampleRatio = ratio
		}
	}

	return cfg
}

// Init installs the global tracer provider and propagators. It returns a
// shutdown function that flushes pending spans.
func Init(ctx context.Context, cfg Config, logger *slog.Logger) (func(context.Context) error, error) {
	if !cfg.Enabled {
		otel.SetTracerProvider(noop.NewTracerProvider())
		otel.SetTextMapPropagator(propagation.TraceContext{})
		logger.Info("tracing disabled")
		return func(context.Context) error { return nil }, nil
	}

	exp, err := exporterFromConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", cfg.ServiceName),
			attribute.String("service.namespace", "starcalc"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info("tracing enabled",
		"exporter", cfg.Exporter,
		"service_name", cfg.ServiceName,
		"sample_ratio", cfg.SampleRatio,
	)

	return tp.Shutdown, nil
}

func exporterFromConfig(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	switch cfg.Exporter {
	case "stdout", "":
		return stdouttrace.New(
			stdouttrace.WithWriter(os.Stdout),
			stdouttrace.WithoutTimestamps(),
		)
	case "otlp", "otlpgrpc":
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = "localhost:4317"
		}
		client := otlptracegrpc.NewClient(
			otlptracegrpc.WithEndpoint(endpoint),
			otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
		return otlptrace.New(ctx, client)
	default:
		return nil, fmt.Errorf("unsupported tracing exporter: %s", cfg.Exporter)
	}
}

// ShutdownWithTimeout flushes spans with a bounded timeout, logging failures.
func ShutdownWithTimeout(ctx context.Context, shutdown func(context.Context) error, logger *slog.Logger) {
	if shutdown == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		logger.Warn("tracing shutdown failed", "error", err)
	}
}

// Start begins a span on the global tracer provider.
func Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// End records err on span, if any, and ends it.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

// Middleware starts a server span per request, continuing any trace context
// carried in the request headers.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx, span := otel.Tracer(tracerName).Start(ctx, "HTTP "+r.Method,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", r.Method),
				attribute.String("url.path", r.URL.Path),
			),
		)
		defer span.End()

		sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(sr, r.WithContext(ctx))

		span.SetAttributes(attribute.Int("http.response.status_code", sr.statusCode))
		if sr.statusCode >= 500 {
			span.SetStatus(codes.Error, http.StatusText(sr.statusCode))
		}
	})
}
