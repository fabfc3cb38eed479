package daemon

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds serve-loop metrics using OTEL semantic conventions
type Metrics struct {
	scans        metric.Int64Counter
	scanDuration metric.Float64Histogram
}

// NewMetrics creates serve-loop metrics on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	scans, err := meter.Int64Counter(
		"corral.daemon.scans",
		metric.WithDescription("Number of periodic scan runs"),
		metric.WithUnit("{scan}"),
	)
	if err != nil {
		return nil, err
	}

	scanDuration, err := meter.Float64Histogram(
		"corral.daemon.scan.duration",
		metric.WithDescription("Duration of periodic scan runs"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		scans:        scans,
		scanDuration: scanDuration,
	}, nil
}

// RecordScan records one scan run with status
func (m *Metrics) RecordScan(ctx context.Context, status string, d time.Duration) {
	attrs := metric.WithAttributes(attribute.String("status", status))
	m.scans.Add(ctx, 1, attrs)
	m.scanDuration.Record(ctx, d.Seconds(), attrs)
}
