package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/yairfalse/corral/internal/action"
	"github.com/yairfalse/corral/internal/audit"
	"github.com/yairfalse/corral/internal/config"
	"github.com/yairfalse/corral/internal/cost"
	"github.com/yairfalse/corral/internal/orchestrator"
	"github.com/yairfalse/corral/internal/policy"
	"github.com/yairfalse/corral/internal/scanner"
	"github.com/yairfalse/corral/internal/session"
	"github.com/yairfalse/corral/internal/telemetry"
)

var (
	version = "0.1.0"

	configPath    string
	logLevel      string
	logConsole    bool
	accessKey     string
	secretKey     string
	sessionToken  string
	defaultRegion string
	endpointURL   string

	rootCmd = &cobra.Command{
		Use:   "corral",
		Short: "AWS resource inventory and safe cleanup",
		Long: `Corral - AWS resource inventory and safe cleanup

Corral scans every enabled region of an AWS account in parallel and
reports a normalized inventory with counts and estimated monthly cost.

Actions (stop, delete, terminate) are validated against live state,
gated by optional Rego policy, and confirmed with a follow-up read.`,
		Version:           version,
		SilenceUsage:      true,
		PersistentPreRunE: setupLogging,
	}
)

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetVersionTemplate(`Corral {{.Version}} - AWS resource inventory and safe cleanup
`)

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "Config file (TOML, or YAML by extension)")
	flags.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
	flags.BoolVar(&logConsole, "console", false, "Human-readable log output")
	flags.StringVar(&accessKey, "access-key", "", "AWS access key id (default $AWS_ACCESS_KEY_ID)")
	flags.StringVar(&secretKey, "secret-key", "", "AWS secret access key (default $AWS_SECRET_ACCESS_KEY)")
	flags.StringVar(&sessionToken, "session-token", "", "AWS session token (default $AWS_SESSION_TOKEN)")
	flags.StringVar(&defaultRegion, "default-region", "", "Region for discovery and global services (overrides config)")
	flags.StringVar(&endpointURL, "endpoint", "", "Custom AWS endpoint, e.g. a local emulator (overrides config)")
}

func setupLogging(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	telemetry.NewLogger(cfg.OTEL.ServiceName, cfg.Log.Level, cfg.Log.Console)
	return nil
}

// loadConfig reads --config (or defaults) and applies flag overrides.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logConsole {
		cfg.Log.Console = true
	}
	if defaultRegion != "" {
		cfg.AWS.DefaultRegion = defaultRegion
	}
	if endpointURL != "" {
		cfg.AWS.Endpoint = endpointURL
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// credentials merges flags over the standard environment variables.
func credentials() session.Credentials {
	creds := session.CredentialsFromEnv()
	if accessKey != "" {
		creds.AccessKeyID = accessKey
	}
	if secretKey != "" {
		creds.SecretAccessKey = secretKey
	}
	if sessionToken != "" {
		creds.SessionToken = sessionToken
	}
	return creds
}

// newSession builds the client provider. Callers must defer Teardown.
func newSession(ctx context.Context, cfg *config.Config) (*session.Provider, error) {
	sess, err := session.New(ctx, credentials(),
		session.WithDefaultRegion(cfg.AWS.DefaultRegion),
		session.WithMaxAttempts(cfg.AWS.MaxAttempts),
		session.WithRequestTimeout(cfg.AWS.RequestTimeout),
		session.WithEndpoint(cfg.AWS.Endpoint),
	)
	if err != nil {
		var credErr *session.CredentialError
		if errors.As(err, &credErr) {
			return nil, fmt.Errorf("%w (pass --access-key/--secret-key or set AWS_ACCESS_KEY_ID/AWS_SECRET_ACCESS_KEY)", err)
		}
		return nil, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

func newOrchestrator(cfg *config.Config, sess *session.Provider, tp *telemetry.Provider, extra ...orchestrator.Option) *orchestrator.Orchestrator {
	scanners := scanner.New(sess,
		scanner.WithEstimator(cost.DefaultTable()),
		scanner.WithHomeRegion(cfg.AWS.DefaultRegion),
	).All()

	opts := []orchestrator.Option{
		orchestrator.WithScanners(scanners...),
		orchestrator.WithMaxWorkers(cfg.Scan.MaxWorkers),
		orchestrator.WithTaskTimeout(cfg.Scan.TaskTimeout),
		orchestrator.WithRegions(cfg.AWS.Regions...),
		orchestrator.WithExcludeKinds(cfg.ExcludedKinds()...),
		orchestrator.WithTelemetry(tp),
	}
	return orchestrator.New(sess, sess, append(opts, extra...)...)
}

// newExecutor wires the audit journal and policy guard from config.
// The returned cleanup closes the journal.
func newExecutor(ctx context.Context, cfg *config.Config, sess *session.Provider, tp *telemetry.Provider) (*action.Executor, func(), error) {
	opts := []action.Option{
		action.WithVerify(cfg.Action.VerifyEnabled()),
		action.WithRecorder(tp),
	}
	cleanup := func() {}

	if len(cfg.Action.PolicyPaths) > 0 {
		guard := policy.NewGuard()
		if err := guard.LoadPaths(ctx, cfg.Action.PolicyPaths...); err != nil {
			return nil, cleanup, fmt.Errorf("load policies: %w", err)
		}
		log.Debug().Int("modules", guard.Len()).Msg("policy guard loaded")
		opts = append(opts, action.WithGuard(guard))
	}

	if path := cfg.Action.AuditFile(); path != "" {
		journal, err := audit.Open(path)
		if err != nil {
			return nil, cleanup, fmt.Errorf("open audit journal: %w", err)
		}
		opts = append(opts, action.WithJournal(journal))
		cleanup = func() {
			if err := journal.Close(); err != nil {
				log.Warn().Err(err).Msg("close audit journal")
			}
		}
	}

	return action.NewExecutor(sess, opts...), cleanup, nil
}

// newTelemetry creates the provider for one command. Callers must defer Shutdown.
func newTelemetry(ctx context.Context, cfg *config.Config, opts ...telemetry.Option) (*telemetry.Provider, error) {
	tp, err := telemetry.NewProvider(ctx, cfg.OTEL, opts...)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	return tp, nil
}

func shutdownTelemetry(tp *telemetry.Provider) {
	if err := tp.Shutdown(context.Background()); err != nil {
		log.Warn().Err(err).Msg("telemetry shutdown")
	}
}
