// Package telemetry wires OpenTelemetry export for waits: spans for each
// wait operation, and optionally slog records bridged to an OTLP collector.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/amp-labs/amp-wait/envutil"
	"github.com/amp-labs/amp-wait/logger"
)

const (
	defaultServiceVersion = "1.0.0"
	defaultTimeout        = 5 * time.Second

	// scopeName is the instrumentation scope attached to spans and bridged
	// log records.
	scopeName = "github.com/amp-labs/amp-wait"
)

//nolint:gochecknoglobals
var (
	tracerProvider *sdktrace.TracerProvider
	loggerProvider *sdklog.LoggerProvider
)

// Config holds the OpenTelemetry configuration.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	Endpoint       string
	LogsEndpoint   string
	Enabled        bool
	LogsEnabled    bool
	Timeout        time.Duration
}

// LoadConfigFromEnv loads OpenTelemetry configuration from environment
// variables. The service name defaults to the logging subsystem carried by
// ctx (see logger.WithSubsystem).
func LoadConfigFromEnv(ctx context.Context, runningEnv string) (*Config, error) {
	enabled := envutil.Bool(ctx, "OTEL_ENABLED",
		envutil.Default(false)).
		ValueOrElse(false)

	logsEnabled := envutil.Bool(ctx, "OTEL_LOGS_ENABLED",
		envutil.Default(false)).
		ValueOrElse(false)

	// Inside a cluster, default to the conventional collector service.
	defaultEndpoint := ""
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		defaultEndpoint = "http://opentelemetry-collector.opentelemetry.svc.cluster.local:4318"
	}

	serviceName := logger.GetSubsystem(ctx)

	svcName, err := envutil.String(ctx, "OTEL_SERVICE_NAME", envutil.Default(serviceName)).Value()
	if err != nil {
		return nil, err
	}

	svcVersion, err := envutil.String(ctx, "OTEL_SERVICE_VERSION",
		envutil.Default(defaultServiceVersion)).
		Value()
	if err != nil {
		return nil, err
	}

	endpoint, err := envutil.String(ctx, "OTEL_EXPORTER_OTLP_TRACES_ENDPOINT",
		envutil.Default(defaultEndpoint)).
		Value()
	if err != nil {
		return nil, err
	}

	logsEndpoint, err := envutil.String(ctx, "OTEL_EXPORTER_OTLP_LOGS_ENDPOINT",
		envutil.Default(defaultEndpoint)).
		Value()
	if err != nil {
		return nil, err
	}

	timeout, err := envutil.Duration(ctx, "OTEL_EXPORTER_OTLP_TIMEOUT",
		envutil.Default(defaultTimeout)).
		Value()
	if err != nil {
		return nil, err
	}

	return &Config{
		ServiceName:    svcName,
		ServiceVersion: svcVersion,
		Environment:    runningEnv,
		Endpoint:       endpoint,
		LogsEndpoint:   logsEndpoint,
		Enabled:        enabled,
		LogsEnabled:    logsEnabled,
		Timeout:        timeout,
	}, nil
}

// Initialize sets up OpenTelemetry export with the given configuration.
// Tracing and log export are independent; either can be enabled alone.
func Initialize(ctx context.Context, config *Config) error {
	if !config.Enabled && !config.LogsEnabled {
		slog.Info("OpenTelemetry export is disabled")

		return nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(config.ServiceName),
			semconv.ServiceVersionKey.String(config.ServiceVersion),
			semconv.DeploymentEnvironmentKey.String(config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	if config.Enabled {
		if err := initializeTracing(ctx, config, res); err != nil {
			return err
		}
	}

	if config.LogsEnabled {
		if err := initializeLogs(ctx, config, res); err != nil {
			return err
		}
	}

	return nil
}

func initializeTracing(ctx context.Context, config *Config, res *resource.Resource) error {
	if config.Endpoint == "" {
		slog.Warn("OpenTelemetry traces endpoint not configured, tracing will be disabled")

		return nil
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(config.Endpoint),
		otlptracehttp.WithTimeout(config.Timeout),
	)
	if err != nil {
		return fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tracerProvider)

	// Support trace context propagation into anything the waited-on system
	// reports back through.
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	slog.Info("OpenTelemetry tracing initialized",
		"service", config.ServiceName,
		"version", config.ServiceVersion,
		"environment", config.Environment,
		"endpoint", config.Endpoint,
	)

	return nil
}

func initializeLogs(ctx context.Context, config *Config, res *resource.Resource) error {
	if config.LogsEndpoint == "" {
		slog.Warn("OpenTelemetry logs endpoint not configured, log export will be disabled")

		return nil
	}

	exporter, err := otlploghttp.New(ctx,
		otlploghttp.WithEndpointURL(config.LogsEndpoint),
		otlploghttp.WithTimeout(config.Timeout),
	)
	if err != nil {
		return fmt.Errorf("failed to create OTLP log exporter: %w", err)
	}

	loggerProvider = sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
		sdklog.WithResource(res),
	)

	slog.Info("OpenTelemetry log export initialized",
		"service", config.ServiceName,
		"endpoint", config.LogsEndpoint,
	)

	return nil
}

// Tracer returns the tracer used for wait spans. Put it on the context with
// spans.WithTracer so that waits entered under that context are traced.
func Tracer() trace.Tracer {
	return otel.Tracer(scopeName)
}

// LogHandler returns a slog handler forwarding records to the OTLP log
// exporter, or nil when log export has not been initialized. Wire it into
// logging with logger.WithExtraHandler.
func LogHandler() slog.Handler {
	if loggerProvider == nil {
		return nil
	}

	return otelslog.NewHandler(scopeName, otelslog.WithLoggerProvider(loggerProvider))
}

// Shutdown flushes and shuts down the configured exporters.
func Shutdown(ctx context.Context) error {
	var errs []error

	if tracerProvider != nil {
		slog.Info("Shutting down OpenTelemetry tracer provider")

		if err := tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shut down tracer provider: %w", err))
		}
	}

	if loggerProvider != nil {
		slog.Info("Shutting down OpenTelemetry logger provider")

		if err := loggerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shut down logger provider: %w", err))
		}
	}

	return errors.Join(errs...)
}
