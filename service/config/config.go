package config

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/brojonat/coinguard/service/dataset"
	"github.com/brojonat/coinguard/service/network"
)

// Config holds all application configuration loaded from environment variables.
// All required fields are validated at startup to ensure fail-fast behavior.
type Config struct {
	// Server configuration
	ServerAddr      string
	LogLevel        string
	ShutdownTimeout time.Duration

	// Chain configuration
	Network           string
	RedemptionAddress string // overrides the network default when set

	// Dataset configuration
	DatasetSource string
	DatasetPath   string
	DatabaseURL   string

	// NATS configuration, empty URL disables publishing
	NATSURL    string
	NATSStream string

	// Guard behaviour
	RequireLoaded bool
	AllowReload   bool
}

// Load reads configuration from environment variables and validates all required fields.
// Returns an error if any required configuration is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	var errs []error

	cfg.ServerAddr = getEnvOrDefault("SERVER_ADDR", ":8080")
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	shutdown, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.ShutdownTimeout = shutdown
	}

	cfg.Network = getEnvOrDefault("NETWORK", network.Main)
	cfg.RedemptionAddress = os.Getenv("REDEMPTION_ADDRESS")

	cfg.DatasetSource = getEnvOrDefault("DATASET_SOURCE", dataset.KindStatic)
	cfg.DatasetPath = os.Getenv("DATASET_PATH")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")

	cfg.NATSURL = os.Getenv("NATS_URL")
	cfg.NATSStream = getEnvOrDefault("NATS_STREAM", "REDEMPTIONS")

	requireLoaded, err := parseBool("REQUIRE_LOADED", false)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.RequireLoaded = requireLoaded
	}

	allowReload, err := parseBool("ALLOW_RELOAD", false)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.AllowReload = allowReload
	}

	errs = append(errs, cfg.validate()...)

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %v", errs)
	}

	return cfg, nil
}

// MustLoad is like Load but panics if configuration is invalid.
// Useful for server initialization where misconfiguration should halt startup.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// Validate checks if the configuration is valid.
// This is useful for testing configuration without loading from env.
func (c *Config) Validate() error {
	if errs := c.validate(); len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errs)
	}
	return nil
}

func (c *Config) validate() []error {
	var errs []error

	if c.ServerAddr == "" {
		errs = append(errs, fmt.Errorf("ServerAddr is required"))
	}

	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	if _, err := c.NetworkParams(); err != nil {
		errs = append(errs, err)
	}

	switch c.DatasetSource {
	case dataset.KindStatic:
	case dataset.KindFile:
		if c.DatasetPath == "" {
			errs = append(errs, fmt.Errorf("DATASET_PATH is required when DATASET_SOURCE=file"))
		}
	case dataset.KindPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, fmt.Errorf("DATABASE_URL is required when DATASET_SOURCE=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("DATASET_SOURCE must be one of static, file, postgres, got %q", c.DatasetSource))
	}

	if c.NATSURL != "" && c.NATSStream == "" {
		errs = append(errs, fmt.Errorf("NATS_STREAM is required when NATS_URL is set"))
	}

	if c.ShutdownTimeout < 0 {
		errs = append(errs, fmt.Errorf("ShutdownTimeout cannot be negative"))
	}

	return errs
}

// NetworkParams returns the selected network profile with the redemption
// address override applied.
func (c *Config) NetworkParams() (*network.Params, error) {
	params, err := network.ByName(c.Network)
	if err != nil {
		return nil, fmt.Errorf("NETWORK must be one of %s: %w", strings.Join(network.Names(), ", "), err)
	}
	if c.RedemptionAddress == "" {
		return params, nil
	}
	params, err = params.WithRedemptionAddress(c.RedemptionAddress)
	if err != nil {
		return nil, fmt.Errorf("REDEMPTION_ADDRESS: %w", err)
	}
	return params, nil
}

// DatasetConfig returns the dataset source selection.
func (c *Config) DatasetConfig() dataset.Config {
	return dataset.Config{Kind: c.DatasetSource, Path: c.DatasetPath}
}

// ParseLogLevel maps LOG_LEVEL values to slog levels.
func ParseLogLevel(level string) (slog.Level, error) {
	levels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(levels, strings.ToLower(level)) {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL must be one of %s, got %q", strings.Join(levels, ", "), level)
	}

	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return l, nil
}

// getEnvOrDefault returns the environment variable value or a default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseDuration parses a duration from an environment variable or uses a default.
func parseDuration(key, defaultValue string) (time.Duration, error) {
	value := getEnvOrDefault(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, value, err)
	}
	return duration, nil
}

// parseBool parses a boolean from an environment variable or uses a default.
func parseBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s: invalid boolean %q: %w", key, value, err)
	}
	return result, nil
}
