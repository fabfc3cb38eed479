package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/yairfalse/corral/internal/config"
)

func disabledConfig() config.OTELConfig {
	return config.OTELConfig{
		ServiceName: "test-corral",
		Traces:      config.TracesConfig{Enabled: false},
		Metrics:     config.MetricsConfig{Enabled: false},
	}
}

func findMetric(rm metricdata.ResourceMetrics, name string) (metricdata.Metrics, bool) {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m, true
			}
		}
	}
	return metricdata.Metrics{}, false
}

// ══════════════════════════════════════════════════════════════════════════════
// Provider
// ══════════════════════════════════════════════════════════════════════════════

func TestNewProvider_Disabled(t *testing.T) {
	p, err := NewProvider(context.Background(), disabledConfig())
	require.NoError(t, err)
	require.NotNil(t, p)

	assert.NotNil(t, p.Tracer())
	assert.NotNil(t, p.Meter())

	require.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProvider_WithEndpoint(t *testing.T) {
	cfg := config.OTELConfig{
		Endpoint:    "localhost:4317",
		Insecure:    true,
		ServiceName: "test-corral",
		Traces:      config.TracesConfig{Enabled: true, SampleRate: 1.0},
		Metrics:     config.MetricsConfig{Enabled: true},
	}

	// Exporters dial lazily, so setup succeeds without a collector.
	p, err := NewProvider(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, p)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_ = p.Shutdown(ctx)
}

func TestProvider_RecordsMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	p, err := NewProvider(context.Background(), disabledConfig(), WithReader(reader))
	require.NoError(t, err)
	defer func() { _ = p.Shutdown(context.Background()) }()

	ctx := context.Background()
	p.RecordResourceCount(ctx, "us-east-1", "EC2_Instance", 3)
	p.RecordResourceCount(ctx, "us-east-1", "EC2_Instance", 2)
	p.RecordError(ctx, "us-east-1", "EC2_Instance")
	p.RecordScanDuration(ctx, "us-east-1", "EC2_Instance", 250*time.Millisecond)
	p.RecordAction(ctx, "EC2_Instance", "stop", "verified")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	count, ok := findMetric(rm, "corral_resources_scanned_total")
	require.True(t, ok)
	sum, ok := count.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(5), sum.DataPoints[0].Value)

	errs, ok := findMetric(rm, "corral_scan_errors_total")
	require.True(t, ok)
	assert.Equal(t, int64(1), errs.Data.(metricdata.Sum[int64]).DataPoints[0].Value)

	_, ok = findMetric(rm, "corral_scan_duration_seconds")
	assert.True(t, ok)
	_, ok = findMetric(rm, "corral_actions_total")
	assert.True(t, ok)
}

func TestProvider_StartSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	p, err := NewProvider(context.Background(), disabledConfig(), WithSpanProcessor(recorder))
	require.NoError(t, err)
	defer func() { _ = p.Shutdown(context.Background()) }()

	ctx, span := p.StartSpan(context.Background(), "scan")
	require.NotNil(t, ctx)
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "scan", ended[0].Name())
}

// ══════════════════════════════════════════════════════════════════════════════
// Logger
// ══════════════════════════════════════════════════════════════════════════════

func TestLogger_AddsTraceContext(t *testing.T) {
	prevLogger, prevLevel := log.Logger, zerolog.GlobalLevel()
	defer func() {
		log.Logger = prevLogger
		zerolog.SetGlobalLevel(prevLevel)
	}()

	recorder := tracetest.NewSpanRecorder()
	p, err := NewProvider(context.Background(), disabledConfig(), WithSpanProcessor(recorder))
	require.NoError(t, err)
	defer func() { _ = p.Shutdown(context.Background()) }()

	var buf bytes.Buffer
	logger := newLogger(&buf, "corral", "debug", false)

	ctx, span := p.StartSpan(context.Background(), "task")
	logger.Info().Ctx(ctx).Msg("with span")
	span.End()

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "corral", entry["service"])
	assert.Equal(t, span.SpanContext().TraceID().String(), entry["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), entry["span_id"])
}

func TestLogger_NoSpanNoTraceFields(t *testing.T) {
	prevLogger, prevLevel := log.Logger, zerolog.GlobalLevel()
	defer func() {
		log.Logger = prevLogger
		zerolog.SetGlobalLevel(prevLevel)
	}()

	var buf bytes.Buffer
	logger := newLogger(&buf, "corral", "bogus", false)
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())

	logger.Info().Ctx(context.Background()).Msg("plain")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.NotContains(t, entry, "trace_id")
}
