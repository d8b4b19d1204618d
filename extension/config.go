package extension

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store driver names accepted by Config.StoreDriver.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMongo    = "mongo"
)

// Config holds the points extension configuration.
// Fields can be set programmatically via Option functions, loaded from
// YAML configuration files (under "extensions.points" or "points" keys),
// or read from POINTS_* environment variables.
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate" env:"POINTS_DISABLE_MIGRATE"`

	// Cooldown is the minimum time between daily claims (default: 24h).
	Cooldown time.Duration `json:"cooldown" mapstructure:"cooldown" yaml:"cooldown" env:"POINTS_COOLDOWN"`

	// DailyGrant is the number of free points one daily claim adds (default: 10).
	DailyGrant int64 `json:"daily_grant" mapstructure:"daily_grant" yaml:"daily_grant" env:"POINTS_DAILY_GRANT"`

	// StatusKey is the key status signals are reported under (default: "points").
	StatusKey string `json:"status_key" mapstructure:"status_key" yaml:"status_key" env:"POINTS_STATUS_KEY"`

	// StoreDriver selects the backend built from a grove.DB passed with
	// WithGroveDB: "postgres", "sqlite" or "mongo". Without a grove.DB the
	// memory store is used.
	StoreDriver string `json:"store_driver" mapstructure:"store_driver" yaml:"store_driver" env:"POINTS_STORE_DRIVER"`

	// HookTimeout bounds each plugin hook call (default: 5s).
	HookTimeout time.Duration `json:"hook_timeout" mapstructure:"hook_timeout" yaml:"hook_timeout" env:"POINTS_HOOK_TIMEOUT"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Cooldown:    24 * time.Hour,
		DailyGrant:  10,
		StatusKey:   "points",
		StoreDriver: DriverMemory,
		HookTimeout: 5 * time.Second,
	}
}

// LoadConfigFromEnv reads POINTS_* environment variables. Unset variables
// leave the zero value, so the result merges cleanly over other sources.
func LoadConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("points: parse env: %w", err)
	}
	return cfg, nil
}

// Validate reports a config that could not drive a ledger.
func (c Config) Validate() error {
	switch c.StoreDriver {
	case "", DriverMemory, DriverPostgres, DriverSQLite, DriverMongo:
	default:
		return fmt.Errorf("points: unknown store driver %q", c.StoreDriver)
	}
	if c.Cooldown < 0 {
		return fmt.Errorf("points: cooldown must not be negative, got %s", c.Cooldown)
	}
	if c.DailyGrant < 0 {
		return fmt.Errorf("points: daily grant must not be negative, got %d", c.DailyGrant)
	}
	return nil
}

// mergeWithDefaults fills zero-valued fields with defaults.
func mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.Cooldown == 0 {
		cfg.Cooldown = defaults.Cooldown
	}
	if cfg.DailyGrant == 0 {
		cfg.DailyGrant = defaults.DailyGrant
	}
	if cfg.StatusKey == "" {
		cfg.StatusKey = defaults.StatusKey
	}
	if cfg.StoreDriver == "" {
		cfg.StoreDriver = defaults.StoreDriver
	}
	if cfg.HookTimeout == 0 {
		cfg.HookTimeout = defaults.HookTimeout
	}
	return cfg
}

// mergeConfigurations fills the zero fields of primary from fallback.
// Bool flags are sticky: true in either source wins.
func mergeConfigurations(primary, fallback Config) Config {
	if fallback.DisableMigrate {
		primary.DisableMigrate = true
	}
	if fallback.RequireConfig {
		primary.RequireConfig = true
	}
	if primary.Cooldown == 0 {
		primary.Cooldown = fallback.Cooldown
	}
	if primary.DailyGrant == 0 {
		primary.DailyGrant = fallback.DailyGrant
	}
	if primary.StatusKey == "" {
		primary.StatusKey = fallback.StatusKey
	}
	if primary.StoreDriver == "" {
		primary.StoreDriver = fallback.StoreDriver
	}
	if primary.HookTimeout == 0 {
		primary.HookTimeout = fallback.HookTimeout
	}
	return primary
}
