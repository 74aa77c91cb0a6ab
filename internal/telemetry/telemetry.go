// Package telemetry traces audioplay sessions with OpenTelemetry. A session
// span parents the creator selection and play spans of one run.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

// Exporter types
const (
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)

// ShutdownTimeout bounds how long Shutdown waits for pending spans
const ShutdownTimeout = 5 * time.Second

// Config selects the span exporter and sampling for a run
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	Environment    string
	Exporter       ExporterConfig
	Sampling       SamplingConfig
}

// ExporterConfig configures the span exporter
type ExporterConfig struct {
	Type     string
	Endpoint string // host:port, or a full URL
	Headers  map[string]string

	// Writer receives stdout exporter output, os.Stderr when nil. Stdout
	// belongs to the console session.
	Writer io.Writer
}

// SamplingConfig configures trace sampling
type SamplingConfig struct {
	Rate float64 // 0.0 to 1.0
}

// Service owns the tracer provider for one process. A disabled service hands
// out a no-op tracer and has nothing to flush.
type Service struct {
	logger   *zap.Logger
	provider *sdktrace.TracerProvider
	traces   *TraceHelper
}

// NewService builds the tracer provider described by cfg
func NewService(cfg Config, logger *zap.Logger) (*Service, error) {
	if !cfg.Enabled {
		logger.Debug("Telemetry disabled")
		return &Service{
			logger: logger,
			traces: &TraceHelper{tracer: noop.NewTracerProvider().Tracer(cfg.ServiceName)},
		}, nil
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(cfg.ServiceVersion),
			semconv.DeploymentEnvironmentKey.String(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := newSpanExporter(cfg.Exporter)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s exporter: %w", cfg.Exporter.Type, err)
	}

	// Synchronous export: every ended span is written before End returns
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.Sampling.Rate))),
	)

	logger.Info("Telemetry initialized",
		zap.String("service", cfg.ServiceName),
		zap.String("exporter", cfg.Exporter.Type),
		zap.Float64("sampling_rate", cfg.Sampling.Rate))

	return &Service{
		logger:   logger,
		provider: provider,
		traces:   &TraceHelper{tracer: provider.Tracer(cfg.ServiceName)},
	}, nil
}

func newSpanExporter(cfg ExporterConfig) (sdktrace.SpanExporter, error) {
	switch cfg.Type {
	case ExporterStdout:
		w := cfg.Writer
		if w == nil {
			w = os.Stderr
		}
		return stdouttrace.New(stdouttrace.WithWriter(w))
	case ExporterOTLP:
		if cfg.Endpoint == "" {
			return nil, fmt.Errorf("OTLP endpoint is required")
		}

		var opts []otlptracehttp.Option
		if strings.Contains(cfg.Endpoint, "://") {
			opts = append(opts, otlptracehttp.WithEndpointURL(cfg.Endpoint))
		} else {
			opts = append(opts, otlptracehttp.WithEndpoint(cfg.Endpoint))
		}
		if len(cfg.Headers) > 0 {
			opts = append(opts, otlptracehttp.WithHeaders(cfg.Headers))
		}

		return otlptracehttp.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported exporter type: %s", cfg.Type)
	}
}

// Traces returns the helper used to open spans
func (s *Service) Traces() *TraceHelper {
	return s.traces
}

// Shutdown flushes and stops the provider. It is safe to call more than once.
func (s *Service) Shutdown(ctx context.Context) error {
	if s.provider == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, ShutdownTimeout)
	defer cancel()

	if err := s.provider.Shutdown(ctx); err != nil {
		s.logger.Error("Failed to shutdown tracer provider", zap.Error(err))
		return fmt.Errorf("failed to shutdown tracer provider: %w", err)
	}
	s.provider = nil
	return nil
}
