package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"syscall"
	"time"

	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/exporters/prometheus"

	"github.com/yairfalse/corral/internal/daemon"
	"github.com/yairfalse/corral/internal/emitter"
	"github.com/yairfalse/corral/internal/telemetry"
)

var (
	serveAddr     string
	serveInterval time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Scan periodically and export Prometheus metrics",
	Long: `Run Corral as a long-lived exporter. A scan runs at start-up and then on
every interval; the latest inventory is published as metrics.

Endpoints:
- /metrics  Prometheus scrape endpoint
- /healthz  liveness
- /readyz   ready once the first scan has completed`,
	Example: `  corral serve                          # Defaults from config
  corral serve --interval 5m --addr :9090`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", ":2112", "HTTP listen address")
	serveCmd.Flags().DurationVar(&serveInterval, "interval", 0, "Scan interval (default from config)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveInterval > 0 {
		cfg.Scan.Interval = serveInterval
	}

	promExporter, err := prometheus.New()
	if err != nil {
		return err
	}
	tp, err := newTelemetry(ctx, cfg, telemetry.WithReader(promExporter))
	if err != nil {
		return err
	}
	defer shutdownTelemetry(tp)

	sess, err := newSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer sess.Teardown()

	metricsEmitter, err := emitter.NewMetricsEmitter(tp.Meter())
	if err != nil {
		return err
	}
	defer func() { _ = metricsEmitter.Close() }()

	daemonMetrics, err := daemon.NewMetrics(tp.Meter())
	if err != nil {
		return err
	}

	d := daemon.NewDaemon(newOrchestrator(cfg, sess, tp), metricsEmitter, daemonMetrics, daemon.Config{
		Interval:    cfg.Scan.Interval,
		ScanTimeout: cfg.Scan.Timeout,
	})

	srv := &http.Server{
		Addr:              serveAddr,
		Handler:           newServeMux(d),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info().
		Str("addr", serveAddr).
		Dur("interval", cfg.Scan.Interval).
		Msg("corral serving")

	var g run.Group
	{
		scanCtx, cancel := context.WithCancel(ctx)
		g.Add(func() error {
			return d.Start(scanCtx)
		}, func(error) {
			cancel()
		})
	}
	{
		g.Add(func() error {
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		}, func(error) {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		})
	}
	g.Add(run.SignalHandler(ctx, os.Interrupt, syscall.SIGTERM))

	err = g.Run()
	var sig run.SignalError
	if errors.As(err, &sig) {
		log.Info().Str("signal", sig.Signal.String()).Msg("shutting down")
		return nil
	}
	return err
}

func newServeMux(d *daemon.Daemon) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", d.HandleHealthz)
	mux.HandleFunc("/readyz", d.HandleReadyz)
	return mux
}
