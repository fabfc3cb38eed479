// Package telemetry provides OpenTelemetry instrumentation and logging for Corral.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/yairfalse/corral/internal/config"
)

const instrumentationName = "corral"

// Provider wraps OTEL tracer and meter providers.
type Provider struct {
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	tracer         trace.Tracer
	meter          metric.Meter

	readers     []sdkmetric.Reader
	spanOptions []sdktrace.TracerProviderOption

	// Metrics
	scanDuration  metric.Float64Histogram
	resourceCount metric.Int64Counter
	scanErrors    metric.Int64Counter
	actions       metric.Int64Counter
}

// Option configures a Provider.
type Option func(*Provider)

// WithReader adds a metric reader, e.g. the Prometheus exporter behind /metrics.
func WithReader(r sdkmetric.Reader) Option {
	return func(p *Provider) { p.readers = append(p.readers, r) }
}

// WithSpanProcessor adds a span processor, e.g. an in-memory recorder.
func WithSpanProcessor(sp sdktrace.SpanProcessor) Option {
	return func(p *Provider) { p.spanOptions = append(p.spanOptions, sdktrace.WithSpanProcessor(sp)) }
}

// NewProvider creates a new telemetry provider and installs it globally.
func NewProvider(ctx context.Context, cfg config.OTELConfig, opts ...Option) (*Provider, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	p := &Provider{}
	for _, opt := range opts {
		opt(p)
	}

	if err := p.setupTracing(ctx, cfg, res); err != nil {
		return nil, err
	}

	if err := p.setupMetrics(ctx, cfg, res); err != nil {
		_ = p.tracerProvider.Shutdown(ctx)
		return nil, err
	}

	if err := p.initMetrics(); err != nil {
		return nil, err
	}

	return p, nil
}

func (p *Provider) setupTracing(ctx context.Context, cfg config.OTELConfig, res *resource.Resource) error {
	opts := append([]sdktrace.TracerProviderOption{sdktrace.WithResource(res)}, p.spanOptions...)

	if cfg.Traces.Enabled && cfg.Endpoint != "" {
		exp, err := createTraceExporter(ctx, cfg)
		if err != nil {
			return fmt.Errorf("create trace exporter: %w", err)
		}
		sampler := sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.Traces.SampleRate))
		opts = append(opts, sdktrace.WithBatcher(exp), sdktrace.WithSampler(sampler))
	}

	p.tracerProvider = sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(p.tracerProvider)
	p.tracer = p.tracerProvider.Tracer(instrumentationName)

	return nil
}

func (p *Provider) setupMetrics(ctx context.Context, cfg config.OTELConfig, res *resource.Resource) error {
	opts := []sdkmetric.Option{
		sdkmetric.WithResource(res),
	}
	for _, r := range p.readers {
		opts = append(opts, sdkmetric.WithReader(r))
	}

	if cfg.Metrics.Enabled && cfg.Endpoint != "" {
		exp, err := createMetricExporter(ctx, cfg)
		if err != nil {
			return fmt.Errorf("create metric exporter: %w", err)
		}
		opts = append(opts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)))
	}

	p.meterProvider = sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(p.meterProvider)
	p.meter = p.meterProvider.Meter(instrumentationName)

	return nil
}

func createTraceExporter(ctx context.Context, cfg config.OTELConfig) (sdktrace.SpanExporter, error) {
	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
	}
	return otlptracegrpc.New(ctx, opts...)
}

func createMetricExporter(ctx context.Context, cfg config.OTELConfig) (sdkmetric.Exporter, error) {
	opts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
	}
	return otlpmetricgrpc.New(ctx, opts...)
}

func (p *Provider) initMetrics() error {
	var err error

	p.scanDuration, err = p.meter.Float64Histogram(
		"corral_scan_duration_seconds",
		metric.WithDescription("Duration of resource scans"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("create scan_duration: %w", err)
	}

	p.resourceCount, err = p.meter.Int64Counter(
		"corral_resources_scanned_total",
		metric.WithDescription("Total resources scanned"),
	)
	if err != nil {
		return fmt.Errorf("create resource_count: %w", err)
	}

	p.scanErrors, err = p.meter.Int64Counter(
		"corral_scan_errors_total",
		metric.WithDescription("Total scan errors"),
	)
	if err != nil {
		return fmt.Errorf("create scan_errors: %w", err)
	}

	p.actions, err = p.meter.Int64Counter(
		"corral_actions_total",
		metric.WithDescription("Actions executed, by outcome"),
	)
	if err != nil {
		return fmt.Errorf("create actions: %w", err)
	}

	return nil
}

// Tracer returns the tracer.
func (p *Provider) Tracer() trace.Tracer {
	return p.tracer
}

// Meter returns the meter.
func (p *Provider) Meter() metric.Meter {
	return p.meter
}

// StartSpan starts a new span.
func (p *Provider) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// RecordScanDuration records scan duration. An empty region or kind marks the whole scan.
func (p *Provider) RecordScanDuration(ctx context.Context, region, kind string, d time.Duration) {
	p.scanDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("region", region),
		attribute.String("kind", kind),
	))
}

// RecordResourceCount records the number of resources scanned.
func (p *Provider) RecordResourceCount(ctx context.Context, region, kind string, count int) {
	p.resourceCount.Add(ctx, int64(count), metric.WithAttributes(
		attribute.String("region", region),
		attribute.String("kind", kind),
	))
}

// RecordError records a scan error.
func (p *Provider) RecordError(ctx context.Context, region, kind string) {
	p.scanErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("region", region),
		attribute.String("kind", kind),
	))
}

// RecordAction records one executed action.
func (p *Provider) RecordAction(ctx context.Context, kind, action, status string) {
	p.actions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("action", action),
		attribute.String("verification_status", status),
	))
}

// Shutdown flushes and shuts down the providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tracerProvider != nil {
		if err := p.tracerProvider.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown tracer: %w", err)
		}
	}
	if p.meterProvider != nil {
		if err := p.meterProvider.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown meter: %w", err)
		}
	}
	return nil
}
