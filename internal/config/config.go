// Package config provides centralized configuration loading for qubecsim.
// It reads configuration from environment variables with sensible defaults
// and validation to fail fast on misconfiguration.
//
// Environment variable naming convention:
//   - QUBECSIM_* prefix for every application-specific setting.
//
// Usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatalf("configuration error: %v", err)
//	}
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// =============================================================================
// Environment Constants
// =============================================================================

const (
	// EnvDevelopment is the development environment.
	EnvDevelopment = "development"

	// EnvProduction is the production environment.
	EnvProduction = "production"

	// EnvTest is the test environment.
	EnvTest = "test"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	defaultStartYear = 2025
	defaultEndYear   = 2050
	defaultTrials    = 1
)

// =============================================================================
// Environment Variable Keys
// =============================================================================

const (
	envAppEnv = "QUBECSIM_APP_ENV"

	envCheckPositiveStreams = "QUBECSIM_CHECK_POSITIVE_STREAMS"
	envOptimizeRecalcs      = "QUBECSIM_OPTIMIZE_RECALCS"

	envDefaultStartYear = "QUBECSIM_DEFAULT_START_YEAR"
	envDefaultEndYear   = "QUBECSIM_DEFAULT_END_YEAR"
	envDefaultTrials    = "QUBECSIM_DEFAULT_TRIALS"

	envLogLevel  = "QUBECSIM_LOG_LEVEL"
	envLogFormat = "QUBECSIM_LOG_FORMAT"
)

// =============================================================================
// Configuration Structs
// =============================================================================

// Config holds all application configuration, grouped by concern.
type Config struct {
	// Env is the application environment (development, test, production).
	Env string `json:"env"`

	// Engine holds the engine behavior flags spec.md §9 calls out.
	Engine EngineConfig `json:"engine"`

	// Defaults holds scenario bounds read from the environment. They are
	// validated here; nothing in this module applies them to a loaded
	// Program.
	Defaults DefaultsConfig `json:"defaults"`

	// Logging holds structured-logging settings.
	Logging LoggingConfig `json:"logging"`
}

// EngineConfig holds the construction-time engine flags.
type EngineConfig struct {
	// CheckPositiveStreams mirrors CHECK_POSITIVE_STREAMS: when true, a
	// write that would drive a stream negative is a hard error instead of
	// a clamp-with-warning.
	CheckPositiveStreams bool `json:"check_positive_streams"`

	// OptimizeRecalcs mirrors OPTIMIZE_RECALCS: when true, the recalc
	// pipeline skips its idempotent propagation tail.
	OptimizeRecalcs bool `json:"optimize_recalcs"`
}

// DefaultsConfig holds the scenario bounds read from the
// QUBECSIM_DEFAULT_* environment variables.
type DefaultsConfig struct {
	StartYear int `json:"start_year"`
	EndYear   int `json:"end_year"`
	Trials    int `json:"trials"`
}

// LoggingConfig holds structured-logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// =============================================================================
// Configuration Loading
// =============================================================================

// Load reads configuration from environment variables and returns a
// validated Config.
func Load() (Config, error) {
	cfg := Config{
		Env: normalizeEnv(os.Getenv(envAppEnv)),
		Engine: EngineConfig{
			CheckPositiveStreams: getBoolEnv(envCheckPositiveStreams, true),
			OptimizeRecalcs:      getBoolEnv(envOptimizeRecalcs, true),
		},
		Defaults: DefaultsConfig{
			StartYear: getIntEnv(envDefaultStartYear, defaultStartYear),
			EndYear:   getIntEnv(envDefaultEndYear, defaultEndYear),
			Trials:    getIntEnv(envDefaultTrials, defaultTrials),
		},
		Logging: LoggingConfig{
			Level:  strings.ToLower(strings.TrimSpace(os.Getenv(envLogLevel))),
			Format: strings.ToLower(strings.TrimSpace(os.Getenv(envLogFormat))),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// MustLoad is like Load but panics on error. Use only in main().
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("config: failed to load: %v", err))
	}
	return cfg
}

// =============================================================================
// Validation
// =============================================================================

// Validate checks that the configuration is internally consistent.
func (c Config) Validate() error {
	var errs []error

	if c.Defaults.StartYear > c.Defaults.EndYear {
		errs = append(errs, fmt.Errorf("default start year %d is after default end year %d",
			c.Defaults.StartYear, c.Defaults.EndYear))
	}
	if c.Defaults.Trials < 1 {
		errs = append(errs, errors.New("default trials must be at least 1"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %w", errors.Join(errs...))
	}
	return nil
}

// =============================================================================
// Helper Methods
// =============================================================================

// IsProduction returns true if running in the production environment.
func (c Config) IsProduction() bool { return c.Env == EnvProduction }

// IsDevelopment returns true if running in the development environment.
func (c Config) IsDevelopment() bool { return c.Env == EnvDevelopment }

// IsTest returns true if running in the test environment.
func (c Config) IsTest() bool { return c.Env == EnvTest }

// =============================================================================
// Environment Variable Helpers
// =============================================================================

func getIntEnv(key string, defaultVal int) int {
	if raw := strings.TrimSpace(os.Getenv(key)); raw != "" {
		if val, err := strconv.Atoi(raw); err == nil {
			return val
		}
	}
	return defaultVal
}

// getBoolEnv returns a boolean from an environment variable, or the
// default. Accepts: true, false, 1, 0, yes, no (case-insensitive).
func getBoolEnv(key string, defaultVal bool) bool {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch raw {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return defaultVal
	}
}

func normalizeEnv(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod":
		return EnvProduction
	case "test", "testing":
		return EnvTest
	default:
		return EnvDevelopment
	}
}
