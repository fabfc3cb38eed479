// Package orchestrator fans resource scanners out across regions on a bounded
// worker pool and folds their output into one ScanResult.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/yairfalse/corral/internal/awsapi"
	"github.com/yairfalse/corral/internal/cost"
	"github.com/yairfalse/corral/internal/scanner"
	"github.com/yairfalse/corral/internal/session"
	"github.com/yairfalse/corral/pkg/resource"
)

// DefaultMaxWorkers is the pool size when none is configured.
const DefaultMaxWorkers = 5

// RegionLister discovers the regions to scan.
type RegionLister interface {
	ListRegions(ctx context.Context) []string
}

// Telemetry receives spans and scan metrics. *telemetry.Provider satisfies it.
type Telemetry interface {
	StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span)
	RecordScanDuration(ctx context.Context, region, kind string, d time.Duration)
	RecordResourceCount(ctx context.Context, region, kind string, count int)
	RecordError(ctx context.Context, region, kind string)
}

// Orchestrator runs scans. It is reusable; concurrent Scan calls are serialized.
type Orchestrator struct {
	lister      RegionLister
	scanners    []scanner.Scanner
	regions     []string
	exclude     map[resource.Kind]bool
	maxWorkers  int
	taskTimeout time.Duration
	telemetry   Telemetry
	now         func() time.Time

	mu    sync.Mutex
	state atomic.Int32
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMaxWorkers sets the pool size. Values below 1 are clamped to 1.
func WithMaxWorkers(n int) Option {
	return func(o *Orchestrator) { o.maxWorkers = max(n, 1) }
}

// WithTaskTimeout bounds each scan task. Zero leaves tasks to the SDK timeouts.
func WithTaskTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.taskTimeout = d }
}

// WithRegions overrides region discovery.
func WithRegions(regions ...string) Option {
	return func(o *Orchestrator) { o.regions = append([]string(nil), regions...) }
}

// WithScanners replaces the default scanner set.
func WithScanners(scanners ...scanner.Scanner) Option {
	return func(o *Orchestrator) { o.scanners = scanners }
}

// WithExcludeKinds skips scanners for the given kinds.
func WithExcludeKinds(kinds ...resource.Kind) Option {
	return func(o *Orchestrator) {
		for _, k := range kinds {
			o.exclude[k] = true
		}
	}
}

// WithTelemetry attaches spans and metrics.
func WithTelemetry(t Telemetry) Option {
	return func(o *Orchestrator) {
		if t != nil {
			o.telemetry = t
		}
	}
}

// New creates an orchestrator over clients. Scanners default to the full
// set with the built-in cost table.
func New(clients awsapi.Clients, lister RegionLister, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		lister:     lister,
		exclude:    make(map[resource.Kind]bool),
		maxWorkers: DefaultMaxWorkers,
		telemetry:  nopTelemetry{tracer: tracenoop.NewTracerProvider().Tracer("")},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.scanners == nil {
		o.scanners = scanner.New(clients, scanner.WithEstimator(cost.DefaultTable())).All()
	}
	return o
}

// State returns the current scan state.
func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

func (o *Orchestrator) setState(s State) {
	o.state.Store(int32(s))
	log.Debug().Str("state", s.String()).Msg("orchestrator state")
}

type task struct {
	region  string
	scanner scanner.Scanner
}

type taskResult struct {
	task    task
	records []resource.Record
	err     error
}

// Scan runs every scanner and returns the aggregated result. It always
// returns a result; failed or unstarted tasks show up in Errors.
func (o *Orchestrator) Scan(ctx context.Context) resource.ScanResult {
	o.mu.Lock()
	defer o.mu.Unlock()

	start := o.now()
	o.setState(StateIdle)

	ctx, span := o.telemetry.StartSpan(ctx, "orchestrator.scan")
	defer span.End()

	regions := o.resolveRegions(ctx)
	o.setState(StateRegionsResolved)

	var regional, global []scanner.Scanner
	for _, sc := range o.scanners {
		switch {
		case o.exclude[sc.Kind]:
		case sc.Kind.Global():
			global = append(global, sc)
		default:
			regional = append(regional, sc)
		}
	}

	tasks := make([]task, 0, len(regions)*len(regional))
	for _, region := range regions {
		for _, sc := range regional {
			tasks = append(tasks, task{region: region, scanner: sc})
		}
	}

	results := make(chan taskResult)
	col := newCollector()
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		for r := range results {
			col.add(r)
		}
	}()

	o.setState(StateFannedOut)
	log.Info().
		Int("regions", len(regions)).
		Int("tasks", len(tasks)).
		Int("global", len(global)).
		Int("workers", o.maxWorkers).
		Msg("starting scan")

	o.runPool(ctx, tasks, results)
	for _, sc := range global {
		results <- o.runTask(ctx, task{region: resource.GlobalRegion, scanner: sc})
	}
	close(results)
	<-collected

	o.setState(StateAggregating)
	result := col.result()
	result.Timestamp = start
	result.RegionsScanned = regions
	result.Duration = o.now().Sub(start)
	o.telemetry.RecordScanDuration(ctx, "", "", result.Duration)

	log.Info().
		Int("resources", result.Summary.Total).
		Int("errors", len(result.Errors)).
		Float64("estimated_monthly_total", result.CostSummary.Total).
		Dur("duration", result.Duration).
		Msg("scan complete")

	o.setState(StateDone)
	return result
}

func (o *Orchestrator) resolveRegions(ctx context.Context) []string {
	if regions := uniqueRegions(o.regions); len(regions) > 0 {
		return regions
	}
	var regions []string
	if o.lister != nil {
		regions = o.lister.ListRegions(ctx)
	}
	if len(regions) == 0 {
		log.Warn().Msg("no regions resolved, using fallback regions")
		regions = session.FallbackRegions()
	}
	return regions
}

// uniqueRegions drops empty and repeated names, keeping first-seen order.
func uniqueRegions(regions []string) []string {
	seen := make(map[string]bool, len(regions))
	out := make([]string, 0, len(regions))
	for _, r := range regions {
		if r == "" || seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	return out
}

// runPool feeds tasks to maxWorkers goroutines and returns once all have finished.
func (o *Orchestrator) runPool(ctx context.Context, tasks []task, results chan<- taskResult) {
	queue := make(chan task)
	var wg sync.WaitGroup

	for i := 0; i < o.maxWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range queue {
				results <- o.runTask(ctx, t)
			}
		}()
	}

	for _, t := range tasks {
		queue <- t
	}
	close(queue)
	wg.Wait()
}

// runTask runs one scanner in one region, turning panics into errors.
func (o *Orchestrator) runTask(ctx context.Context, t task) (res taskResult) {
	res.task = t
	kind := string(t.scanner.Kind)

	if err := ctx.Err(); err != nil {
		res.err = fmt.Errorf("not started: %w", err)
		o.telemetry.RecordError(ctx, t.region, kind)
		return res
	}

	ctx, span := o.telemetry.StartSpan(ctx, "scan.task",
		attribute.String("region", t.region),
		attribute.String("kind", kind),
	)
	defer span.End()

	if o.taskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.taskTimeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res.err = fmt.Errorf("panic: %v", r)
			log.Error().Ctx(ctx).
				Str("scanner", kind).
				Str("region", t.region).
				Interface("panic", r).
				Msg("scanner panicked")
		}
		if res.err != nil {
			span.RecordError(res.err)
			o.telemetry.RecordError(ctx, t.region, kind)
		}
		o.telemetry.RecordScanDuration(ctx, t.region, kind, time.Since(start))
		o.telemetry.RecordResourceCount(ctx, t.region, kind, len(res.records))
	}()

	res.records, res.err = t.scanner.Scan(ctx, t.region)
	return res
}

type nopTelemetry struct {
	tracer trace.Tracer
}

func (n nopTelemetry) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return n.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (nopTelemetry) RecordScanDuration(context.Context, string, string, time.Duration) {}
func (nopTelemetry) RecordResourceCount(context.Context, string, string, int)         {}
func (nopTelemetry) RecordError(context.Context, string, string)                      {}
