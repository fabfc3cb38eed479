package emitter

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/yairfalse/corral/pkg/resource"
)

// MetricsEmitter exposes the latest scan as OTEL instruments. Behind the
// Prometheus exporter these become the gauges scraped from /metrics.
type MetricsEmitter struct {
	meter metric.Meter

	resourceInfo   metric.Int64ObservableGauge
	resourceCount  metric.Int64ObservableGauge
	monthlyCost    metric.Float64ObservableGauge
	lastScanErrors metric.Int64ObservableGauge
	changesTotal   metric.Int64Counter
	registration   metric.Registration
	diffTracker    *DiffTracker

	// State for observable gauges
	mu     sync.RWMutex
	latest resource.ScanResult
}

// NewMetricsEmitter registers the scan instruments on meter.
func NewMetricsEmitter(meter metric.Meter) (*MetricsEmitter, error) {
	e := &MetricsEmitter{
		meter:       meter,
		diffTracker: NewDiffTracker(),
	}

	if err := e.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return e, nil
}

func (e *MetricsEmitter) initMetrics() error {
	var err error

	e.resourceInfo, err = e.meter.Int64ObservableGauge(
		"corral_resource_info",
		metric.WithDescription("Cloud resource information"),
	)
	if err != nil {
		return fmt.Errorf("create resource_info gauge: %w", err)
	}

	e.resourceCount, err = e.meter.Int64ObservableGauge(
		"corral_resources",
		metric.WithDescription("Resources found by the latest scan"),
	)
	if err != nil {
		return fmt.Errorf("create resources gauge: %w", err)
	}

	e.monthlyCost, err = e.meter.Float64ObservableGauge(
		"corral_estimated_monthly_cost_usd",
		metric.WithDescription("Estimated monthly cost of the latest scan's resources"),
		metric.WithUnit("USD"),
	)
	if err != nil {
		return fmt.Errorf("create monthly_cost gauge: %w", err)
	}

	e.lastScanErrors, err = e.meter.Int64ObservableGauge(
		"corral_last_scan_errors",
		metric.WithDescription("Failed scan tasks in the latest scan"),
	)
	if err != nil {
		return fmt.Errorf("create last_scan_errors gauge: %w", err)
	}

	e.changesTotal, err = e.meter.Int64Counter(
		"corral_resource_changes_total",
		metric.WithDescription("Total resource changes detected between scans"),
	)
	if err != nil {
		return fmt.Errorf("create resource_changes counter: %w", err)
	}

	e.registration, err = e.meter.RegisterCallback(e.observe,
		e.resourceInfo, e.resourceCount, e.monthlyCost, e.lastScanErrors)
	if err != nil {
		return fmt.Errorf("register callback: %w", err)
	}

	return nil
}

// Emit stores result for the gauges and counts changes since the previous scan.
func (e *MetricsEmitter) Emit(ctx context.Context, result resource.ScanResult) error {
	e.emitDiffs(ctx, result.Resources)

	e.mu.Lock()
	e.latest = result
	e.mu.Unlock()

	e.diffTracker.Update(result.Resources)

	log.Info().
		Int("resources", result.Summary.Total).
		Int("errors", len(result.Errors)).
		Strs("regions", result.RegionsScanned).
		Dur("duration", result.Duration).
		Msg("scan published")

	return nil
}

func (e *MetricsEmitter) emitDiffs(ctx context.Context, records []resource.Record) {
	diffs := e.diffTracker.ComputeDiff(records)
	if diffs == nil {
		// First scan - baseline established
		return
	}

	for _, diff := range diffs {
		e.changesTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("kind", string(diff.Record.Kind)),
			attribute.String("region", diff.Record.Region),
			attribute.String("change_type", string(diff.Type)),
		))

		event := log.Info().
			Str("resource_id", diff.Record.ResourceID).
			Str("kind", string(diff.Record.Kind)).
			Str("region", diff.Record.Region).
			Str("change", string(diff.Type))
		for field, change := range diff.Changes {
			event = event.Str(field+".from", change.Previous).Str(field+".to", change.Current)
		}
		event.Msg("resource changed")
	}
}

func (e *MetricsEmitter) observe(_ context.Context, o metric.Observer) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	type group struct {
		kind   resource.Kind
		region string
	}
	counts := make(map[group]int64)

	for _, r := range e.latest.Resources {
		attrs := []attribute.KeyValue{
			attribute.String("id", r.ResourceID),
			attribute.String("kind", string(r.Kind)),
			attribute.String("region", r.Region),
			attribute.String("state", r.State),
		}
		if r.ResourceName != "" {
			attrs = append(attrs, attribute.String("name", r.ResourceName))
		}
		o.ObserveInt64(e.resourceInfo, 1, metric.WithAttributes(attrs...))
		counts[group{r.Kind, r.Region}]++
	}

	for g, n := range counts {
		o.ObserveInt64(e.resourceCount, n, metric.WithAttributes(
			attribute.String("kind", string(g.kind)),
			attribute.String("region", g.region),
		))
	}

	for kind, total := range e.latest.CostSummary.ByKind {
		o.ObserveFloat64(e.monthlyCost, total, metric.WithAttributes(attribute.String("kind", kind)))
	}

	o.ObserveInt64(e.lastScanErrors, int64(len(e.latest.Errors)))
	return nil
}

// Close unregisters the gauge callback.
func (e *MetricsEmitter) Close() error {
	if e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
