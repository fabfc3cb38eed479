// Package daemon runs periodic scans and reports liveness for serve mode.
package daemon

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/yairfalse/corral/internal/emitter"
	"github.com/yairfalse/corral/pkg/resource"
)

// Scanner produces one scan result. *orchestrator.Orchestrator satisfies it.
type Scanner interface {
	Scan(ctx context.Context) resource.ScanResult
}

// Config holds daemon configuration
type Config struct {
	Interval    time.Duration
	ScanTimeout time.Duration
}

// Daemon scans on an interval and publishes every result.
type Daemon struct {
	scanner     Scanner
	emitter     emitter.Emitter
	metrics     *Metrics
	interval    time.Duration
	scanTimeout time.Duration
	startTime   time.Time
	scanCount   atomic.Int64

	mu       sync.RWMutex
	lastScan time.Time
	lastErrs int
}

// NewDaemon creates a daemon. metrics may be nil.
func NewDaemon(scanner Scanner, emit emitter.Emitter, metrics *Metrics, config Config) *Daemon {
	interval := config.Interval
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &Daemon{
		scanner:     scanner,
		emitter:     emit,
		metrics:     metrics,
		interval:    interval,
		scanTimeout: config.ScanTimeout,
		startTime:   time.Now(),
	}
}

// Start scans immediately, then on every tick until ctx is done.
func (d *Daemon) Start(ctx context.Context) error {
	d.runScan(ctx)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			d.runScan(ctx)
		}
	}
}

func (d *Daemon) runScan(ctx context.Context) {
	if d.scanTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.scanTimeout)
		defer cancel()
	}

	start := time.Now()
	result := d.scanner.Scan(ctx)

	status := "success"
	if len(result.Errors) > 0 {
		status = "partial"
	}
	if d.metrics != nil {
		d.metrics.RecordScan(ctx, status, time.Since(start))
	}

	if err := d.emitter.Emit(ctx, result); err != nil {
		log.Error().Err(err).Msg("emit failed")
	}

	d.mu.Lock()
	d.lastScan = time.Now()
	d.lastErrs = len(result.Errors)
	d.mu.Unlock()
	d.scanCount.Add(1)
}

// HealthStatus reports daemon liveness.
type HealthStatus struct {
	Status     string     `json:"status"`
	Uptime     int64      `json:"uptime_seconds"`
	Scans      int64      `json:"scans"`
	LastScan   *time.Time `json:"last_scan,omitempty"`
	LastErrors int        `json:"last_scan_errors"`
}

// Health returns daemon health status
func (d *Daemon) Health() HealthStatus {
	d.mu.RLock()
	defer d.mu.RUnlock()

	h := HealthStatus{
		Status:     "healthy",
		Uptime:     int64(time.Since(d.startTime).Seconds()),
		Scans:      d.scanCount.Load(),
		LastErrors: d.lastErrs,
	}
	if !d.lastScan.IsZero() {
		last := d.lastScan
		h.LastScan = &last
	}
	return h
}

// Ready reports whether at least one scan has been published.
func (d *Daemon) Ready() bool {
	return d.ScanCount() > 0
}

// ScanCount returns total scans run
func (d *Daemon) ScanCount() int64 {
	return d.scanCount.Load()
}

// HandleHealthz always answers ok while the process is serving.
func (d *Daemon) HandleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HandleReadyz answers ok once the first scan has completed.
func (d *Daemon) HandleReadyz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if !d.Ready() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("first scan pending"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
