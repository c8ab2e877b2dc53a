// Package observability wires OpenTelemetry tracing and metrics with OTLP
// gRPC export.
package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"repair-intake/internal/config"
)

const (
	ServiceName    = "repair-intake"
	ServiceVersion = "1.0.0"
)

// Provider owns the trace and metric providers.
type Provider struct {
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	logger         *zap.Logger

	requests metric.Int64Counter
	duration metric.Float64Histogram
}

// New installs global providers when telemetry is enabled. When disabled the
// returned Provider is inert and the otel globals stay no-op.
func New(ctx context.Context, cfg config.TelemetryConfig, logger *zap.Logger) (*Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Provider{logger: logger.Named("observability")}

	if !cfg.Enabled {
		p.logger.Info("observability disabled")
		return p, p.initHTTPMetrics()
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			attribute.String("service.name", ServiceName),
			attribute.String("service.version", ServiceVersion),
			attribute.String("deployment.environment", cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	traceOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint)}
	metricOpts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint)}
	if cfg.Insecure {
		traceOpts = append(traceOpts, otlptracegrpc.WithInsecure())
		metricOpts = append(metricOpts, otlpmetricgrpc.WithInsecure())
	}

	traceExporter, err := otlptracegrpc.New(ctx, traceOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}
	p.tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(traceExporter, sdktrace.WithBatchTimeout(5*time.Second)),
	)
	otel.SetTracerProvider(p.tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	metricExporter, err := otlpmetricgrpc.New(ctx, metricOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}
	p.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(15*time.Second))),
	)
	otel.SetMeterProvider(p.meterProvider)

	if err := p.initHTTPMetrics(); err != nil {
		return nil, err
	}

	p.logger.Info("observability initialized",
		zap.String("endpoint", cfg.OTLPEndpoint),
		zap.String("environment", cfg.Environment),
		zap.Bool("insecure", cfg.Insecure))
	return p, nil
}

func (p *Provider) initHTTPMetrics() error {
	meter := otel.Meter(ServiceName)
	var err error
	p.requests, err = meter.Int64Counter("http.server.requests",
		metric.WithDescription("HTTP requests by route and status"),
		metric.WithUnit("{request}"))
	if err != nil {
		return err
	}
	p.duration, err = meter.Float64Histogram("http.server.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"))
	return err
}

// RecordRequest records one served HTTP request.
func (p *Provider) RecordRequest(ctx context.Context, method, route string, status int, d time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", route),
		attribute.Int("http.status_code", status),
	)
	if p.requests != nil {
		p.requests.Add(ctx, 1, attrs)
	}
	if p.duration != nil {
		p.duration.Record(ctx, d.Seconds(), attrs)
	}
}

// Shutdown flushes and stops the providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tracerProvider != nil {
		if err := p.tracerProvider.Shutdown(ctx); err != nil {
			p.logger.Error("failed to shutdown trace provider", zap.Error(err))
		}
	}
	if p.meterProvider != nil {
		if err := p.meterProvider.Shutdown(ctx); err != nil {
			p.logger.Error("failed to shutdown metric provider", zap.Error(err))
		}
	}
	return nil
}
