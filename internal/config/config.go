// Package config handles TOML and YAML configuration for Corral.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/yairfalse/corral/pkg/resource"
)

// Environment names with their own worker defaults.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// DefaultAuditPath is the journal file used when action.audit_path is unset.
const DefaultAuditPath = "corral-audit.db"

// Config is the root configuration structure.
type Config struct {
	Environment string       `toml:"environment" yaml:"environment"`
	AWS         AWSConfig    `toml:"aws" yaml:"aws"`
	Scan        ScanConfig   `toml:"scan" yaml:"scan"`
	Action      ActionConfig `toml:"action" yaml:"action"`
	OTEL        OTELConfig   `toml:"otel" yaml:"otel"`
	Log         LogConfig    `toml:"log" yaml:"log"`
}

// AWSConfig holds AWS session settings.
type AWSConfig struct {
	Regions           []string      `toml:"regions" yaml:"regions"`
	DefaultRegion     string        `toml:"default_region" yaml:"default_region"`
	MaxAttempts       int           `toml:"max_attempts" yaml:"max_attempts"`
	RequestTimeoutStr string        `toml:"request_timeout" yaml:"request_timeout"`
	RequestTimeout    time.Duration `toml:"-" yaml:"-"`
	Endpoint          string        `toml:"endpoint" yaml:"endpoint"`
}

// ScanConfig holds orchestrator settings.
type ScanConfig struct {
	MaxWorkers     int           `toml:"max_workers" yaml:"max_workers"`
	TaskTimeoutStr string        `toml:"task_timeout" yaml:"task_timeout"`
	TaskTimeout    time.Duration `toml:"-" yaml:"-"`
	TimeoutStr     string        `toml:"timeout" yaml:"timeout"`
	Timeout        time.Duration `toml:"-" yaml:"-"`
	ExcludeKinds   []string      `toml:"exclude_kinds" yaml:"exclude_kinds"`
	IntervalStr    string        `toml:"interval" yaml:"interval"`
	Interval       time.Duration `toml:"-" yaml:"-"`
}

// ActionConfig holds executor settings.
// Verify and AuditPath are pointers so an explicit false or "" survives defaulting.
type ActionConfig struct {
	Verify      *bool    `toml:"verify" yaml:"verify"`
	AuditPath   *string  `toml:"audit_path" yaml:"audit_path"`
	PolicyPaths []string `toml:"policy_paths" yaml:"policy_paths"`
}

// VerifyEnabled reports whether mutations are confirmed with a follow-up read.
func (a ActionConfig) VerifyEnabled() bool {
	return a.Verify == nil || *a.Verify
}

// AuditFile returns the journal path, or "" when auditing is disabled.
func (a ActionConfig) AuditFile() string {
	if a.AuditPath == nil {
		return DefaultAuditPath
	}
	return *a.AuditPath
}

// OTELConfig holds OpenTelemetry settings.
type OTELConfig struct {
	Endpoint    string        `toml:"endpoint" yaml:"endpoint"`
	Insecure    bool          `toml:"insecure" yaml:"insecure"`
	ServiceName string        `toml:"service_name" yaml:"service_name"`
	Traces      TracesConfig  `toml:"traces" yaml:"traces"`
	Metrics     MetricsConfig `toml:"metrics" yaml:"metrics"`
}

// TracesConfig holds tracing settings.
type TracesConfig struct {
	Enabled    bool    `toml:"enabled" yaml:"enabled"`
	SampleRate float64 `toml:"sample_rate" yaml:"sample_rate"`
}

// MetricsConfig holds metrics settings.
type MetricsConfig struct {
	Enabled bool `toml:"enabled" yaml:"enabled"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level   string `toml:"level" yaml:"level"`
	Console bool   `toml:"console" yaml:"console"`
}

// Load reads and parses a config file. Files ending in .yaml or .yml are
// decoded as YAML, everything else as TOML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = toml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	if err := cfg.finish(); err != nil {
		// defaults always parse
		panic(err)
	}
	return cfg
}

func (c *Config) finish() error {
	applyDefaults(c)
	return parseDurations(c)
}

// DefaultWorkers returns the worker pool size for an environment.
func DefaultWorkers(env string) int {
	switch env {
	case EnvDevelopment:
		return 2
	case EnvProduction:
		return 10
	case EnvTest:
		return 1
	default:
		return 5
	}
}

func applyDefaults(cfg *Config) {
	if cfg.AWS.DefaultRegion == "" {
		cfg.AWS.DefaultRegion = "us-east-1"
	}
	if cfg.AWS.MaxAttempts == 0 {
		cfg.AWS.MaxAttempts = 3
	}
	if cfg.AWS.RequestTimeoutStr == "" {
		cfg.AWS.RequestTimeoutStr = "30s"
	}
	if cfg.Scan.MaxWorkers == 0 {
		cfg.Scan.MaxWorkers = DefaultWorkers(cfg.Environment)
	}
	if cfg.Scan.TaskTimeoutStr == "" {
		cfg.Scan.TaskTimeoutStr = "0s"
	}
	if cfg.Scan.TimeoutStr == "" {
		cfg.Scan.TimeoutStr = "10m"
	}
	if cfg.Scan.IntervalStr == "" {
		cfg.Scan.IntervalStr = "15m"
	}
	if cfg.OTEL.ServiceName == "" {
		cfg.OTEL.ServiceName = "corral"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

func parseDurations(cfg *Config) error {
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"aws.request_timeout", cfg.AWS.RequestTimeoutStr, &cfg.AWS.RequestTimeout},
		{"scan.task_timeout", cfg.Scan.TaskTimeoutStr, &cfg.Scan.TaskTimeout},
		{"scan.timeout", cfg.Scan.TimeoutStr, &cfg.Scan.Timeout},
		{"scan.interval", cfg.Scan.IntervalStr, &cfg.Scan.Interval},
	}
	for _, f := range fields {
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parse %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = d
	}
	return nil
}

// Validate checks the configuration is valid.
func (c *Config) Validate() error {
	switch c.Environment {
	case "", EnvDevelopment, EnvProduction, EnvTest:
	default:
		return fmt.Errorf("environment: unknown value %q", c.Environment)
	}
	if c.AWS.MaxAttempts < 1 {
		return fmt.Errorf("aws: max_attempts must be at least 1 (got %d)", c.AWS.MaxAttempts)
	}
	if c.Scan.MaxWorkers < 1 {
		return fmt.Errorf("scan: max_workers must be at least 1 (got %d)", c.Scan.MaxWorkers)
	}
	if c.Scan.TaskTimeout < 0 || c.Scan.Timeout < 0 {
		return fmt.Errorf("scan: timeouts must not be negative")
	}
	for _, k := range c.Scan.ExcludeKinds {
		if _, err := resource.ParseKind(k); err != nil {
			return fmt.Errorf("scan: exclude_kinds: %w", err)
		}
	}
	if c.OTEL.Traces.SampleRate < 0.0 || c.OTEL.Traces.SampleRate > 1.0 {
		return fmt.Errorf("otel: traces.sample_rate must be between 0.0 and 1.0 (got %v)", c.OTEL.Traces.SampleRate)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log: unknown level %q", c.Log.Level)
	}
	return nil
}

// ExcludedKinds returns the parsed exclude list. Call after Validate.
func (c *Config) ExcludedKinds() []resource.Kind {
	kinds := make([]resource.Kind, 0, len(c.Scan.ExcludeKinds))
	for _, k := range c.Scan.ExcludeKinds {
		if kind, err := resource.ParseKind(k); err == nil {
			kinds = append(kinds, kind)
		}
	}
	return kinds
}
