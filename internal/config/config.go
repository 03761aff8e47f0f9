// Package config loads and validates the core's configuration from
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the governance core.
type Config struct {
	// Durable store settings. The ledger always lives in its own SQLite
	// file; evidence/escalation/override/retention/responsibility use the
	// pluggable Postgres store when PostgresURL is set, an in-memory store
	// otherwise.
	LedgerPath  string
	PostgresURL string

	// Identity settings (C1).
	SigningPrivateKeyPath string // Path to Ed25519 private key PEM file.
	SigningPublicKeyPath  string // Path to Ed25519 public key PEM file.
	CapabilityTokenTTL    time.Duration

	// Decision/escalation defaults.
	DefaultPolicyMode          string        // Validated as "permissive", "strict", or "paranoid"; Core does not read it.
	DefaultEscalationRecipient []string      // Recipients used when an escalation request names none.
	EscalationDefaultSLA       time.Duration // Validated as positive; Core does not read it (SLA deadlines follow escalation priority).
	SLASweepInterval           time.Duration // How often the escalation sweeper checks for breaches.

	// Retention settings.
	RetentionSweepInterval time.Duration

	// OTEL settings.
	OTELEndpoint string
	OTELInsecure bool
	ServiceName  string

	// Operational settings.
	LogLevel            string
	DecisionConcurrency int // Maximum concurrent Decide calls (internal/workerpool).
	MaxContextBytes     int // Validated as positive; Core does not read it (internal/decision enforces domain.MaxContextBytes).
}

// Load reads configuration from environment variables with sensible
// defaults. Missing variables use defaults; only malformed values are
// rejected, and all parse errors are accumulated before returning.
func Load() (Config, error) {
	var errs []error
	cfg := Config{
		LedgerPath:                 envStr("LEXECON_LEDGER_PATH", "lexecon-ledger.db"),
		PostgresURL:                envStr("LEXECON_POSTGRES_URL", ""),
		SigningPrivateKeyPath:      envStr("LEXECON_SIGNING_PRIVATE_KEY", ""),
		SigningPublicKeyPath:       envStr("LEXECON_SIGNING_PUBLIC_KEY", ""),
		DefaultPolicyMode:          envStr("LEXECON_DEFAULT_POLICY_MODE", "strict"),
		OTELEndpoint:               envStr("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ServiceName:                envStr("OTEL_SERVICE_NAME", "lexecon"),
		LogLevel:                   envStr("LEXECON_LOG_LEVEL", "info"),
		DefaultEscalationRecipient: envStrSlice("LEXECON_DEFAULT_ESCALATION_RECIPIENTS", nil),
	}

	cfg.DecisionConcurrency, errs = collectInt(errs, "LEXECON_DECISION_CONCURRENCY", 32)
	cfg.MaxContextBytes, errs = collectInt(errs, "LEXECON_MAX_CONTEXT_BYTES", 64*1024)

	cfg.OTELInsecure, errs = collectBool(errs, "OTEL_EXPORTER_OTLP_INSECURE", false)

	cfg.CapabilityTokenTTL, errs = collectDuration(errs, "LEXECON_CAPABILITY_TOKEN_TTL", 15*time.Minute)
	cfg.EscalationDefaultSLA, errs = collectDuration(errs, "LEXECON_ESCALATION_DEFAULT_SLA", 4*time.Hour)
	cfg.SLASweepInterval, errs = collectDuration(errs, "LEXECON_SLA_SWEEP_INTERVAL", 30*time.Second)
	cfg.RetentionSweepInterval, errs = collectDuration(errs, "LEXECON_RETENTION_SWEEP_INTERVAL", 1*time.Hour)

	if len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return Config{}, fmt.Errorf("config: invalid environment variables:\n  %s", strings.Join(msgs, "\n  "))
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// collectInt parses an int env var, appending any error to the accumulator.
func collectInt(errs []error, key string, fallback int) (int, []error) {
	v, err := envInt(key, fallback)
	if err != nil {
		errs = append(errs, err)
	}
	return v, errs
}

// collectBool parses a bool env var, appending any error to the accumulator.
func collectBool(errs []error, key string, fallback bool) (bool, []error) {
	v, err := envBool(key, fallback)
	if err != nil {
		errs = append(errs, err)
	}
	return v, errs
}

// collectDuration parses a duration env var, appending any error to the accumulator.
func collectDuration(errs []error, key string, fallback time.Duration) (time.Duration, []error) {
	v, err := envDuration(key, fallback)
	if err != nil {
		errs = append(errs, err)
	}
	return v, errs
}

// Validate checks that required configuration is present and sane.
func (c Config) Validate() error {
	var errs []error

	if c.LedgerPath == "" {
		errs = append(errs, errors.New("config: LEXECON_LEDGER_PATH is required"))
	}
	switch c.DefaultPolicyMode {
	case "permissive", "strict", "paranoid":
	default:
		errs = append(errs, fmt.Errorf("config: LEXECON_DEFAULT_POLICY_MODE %q must be one of permissive|strict|paranoid", c.DefaultPolicyMode))
	}
	if c.DecisionConcurrency <= 0 {
		errs = append(errs, errors.New("config: LEXECON_DECISION_CONCURRENCY must be positive"))
	}
	if c.MaxContextBytes <= 0 {
		errs = append(errs, errors.New("config: LEXECON_MAX_CONTEXT_BYTES must be positive"))
	}
	if c.CapabilityTokenTTL <= 0 {
		errs = append(errs, errors.New("config: LEXECON_CAPABILITY_TOKEN_TTL must be positive"))
	}
	if c.EscalationDefaultSLA <= 0 {
		errs = append(errs, errors.New("config: LEXECON_ESCALATION_DEFAULT_SLA must be positive"))
	}
	if c.SLASweepInterval <= 0 {
		errs = append(errs, errors.New("config: LEXECON_SLA_SWEEP_INTERVAL must be positive"))
	}
	if c.RetentionSweepInterval <= 0 {
		errs = append(errs, errors.New("config: LEXECON_RETENTION_SWEEP_INTERVAL must be positive"))
	}
	if c.SigningPrivateKeyPath != "" {
		if err := validateKeyFile(c.SigningPrivateKeyPath, "LEXECON_SIGNING_PRIVATE_KEY"); err != nil {
			errs = append(errs, err)
		}
	}
	if c.SigningPublicKeyPath != "" {
		if err := validateKeyFile(c.SigningPublicKeyPath, "LEXECON_SIGNING_PUBLIC_KEY"); err != nil {
			errs = append(errs, err)
		}
	}
	if (c.SigningPrivateKeyPath == "") != (c.SigningPublicKeyPath == "") {
		errs = append(errs, errors.New("config: LEXECON_SIGNING_PRIVATE_KEY and LEXECON_SIGNING_PUBLIC_KEY must both be set or both be empty"))
	}

	return errors.Join(errs...)
}

// validateKeyFile checks that a key file exists, is readable, is non-empty,
// and has restrictive permissions (owner-only on Unix).
func validateKeyFile(path, envVar string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("config: %s %q: %w", envVar, path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("config: %s %q is a directory, expected a file", envVar, path)
	}
	if info.Size() == 0 {
		return fmt.Errorf("config: %s %q is empty", envVar, path)
	}
	perm := info.Mode().Perm()
	if perm&0o077 != 0 {
		return fmt.Errorf("config: %s %q has overly permissive mode %04o (expected 0600 or stricter)", envVar, path, perm)
	}
	return nil
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid integer", key, v)
	}
	return n, nil
}

func envBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s=%q is not a valid boolean", key, v)
	}
	return b, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid duration", key, v)
	}
	return d, nil
}

// envStrSlice reads a comma-separated env var into a string slice.
// Returns fallback if the env var is empty or unset.
func envStrSlice(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
