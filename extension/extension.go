// Package extension provides the Forge extension adapter for the points
// ledger.
//
// It implements the forge.Extension interface to integrate the ledger
// into a Forge application with store selection, DI registration and
// lifecycle management.
//
// Configuration can be provided programmatically via Option functions,
// via YAML configuration files under "extensions.points" or "points" keys,
// or via POINTS_* environment variables.
package extension

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/forge"
	"github.com/xraph/grove"
	"github.com/xraph/vessel"

	points "github.com/xraph/points"
	"github.com/xraph/points/identity"
	"github.com/xraph/points/store"
	"github.com/xraph/points/store/memory"
	mongostore "github.com/xraph/points/store/mongo"
	"github.com/xraph/points/store/postgres"
	"github.com/xraph/points/store/sqlite"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "points"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Per-user points balance with daily free grants"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts the points ledger as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *points.Ledger
	store      store.Store
	groveDB    *grove.DB
	identity   identity.Provider
	ledgerOpts []points.Option
}

// New creates a new points Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying Ledger instance.
// This is nil until Register is called.
func (e *Extension) Engine() *points.Ledger { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// builds the store and the ledger, and registers the ledger in the DI
// container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	s, err := e.buildStore()
	if err != nil {
		return err
	}
	e.store = s

	if e.identity == nil {
		e.identity = identity.NewSession()
	}

	eng := points.New(e.store, e.identity, e.buildLedgerOpts()...)
	e.engine = eng

	return vessel.Provide(fapp.Container(), func() (*points.Ledger, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("points: extension not initialized")
	}

	if err := e.engine.Start(ctx); err != nil {
		return err
	}

	if sess, ok := e.identity.(*identity.Session); ok {
		e.engine.Follow(context.WithoutCancel(ctx), sess)
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("points: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildStore returns the programmatic store, or builds one for the
// configured driver.
func (e *Extension) buildStore() (store.Store, error) {
	if e.store != nil {
		return e.store, nil
	}
	if e.groveDB == nil {
		if e.config.StoreDriver != DriverMemory {
			e.Logger().Warn("points: no grove database provided, using memory store",
				forge.F("store_driver", e.config.StoreDriver),
			)
		}
		return memory.New(), nil
	}

	switch e.config.StoreDriver {
	case DriverPostgres:
		return postgres.New(e.groveDB), nil
	case DriverSQLite:
		return sqlite.New(e.groveDB), nil
	case DriverMongo:
		return mongostore.New(e.groveDB), nil
	default:
		return nil, fmt.Errorf("points: store driver %q cannot use a grove database", e.config.StoreDriver)
	}
}

// buildLedgerOpts constructs points.Option values from the resolved config.
func (e *Extension) buildLedgerOpts() []points.Option {
	opts := make([]points.Option, 0, len(e.ledgerOpts)+5)

	opts = append(opts,
		points.WithCooldown(e.config.Cooldown),
		points.WithDailyGrant(e.config.DailyGrant),
		points.WithStatusKey(e.config.StatusKey),
		points.WithHookTimeout(e.config.HookTimeout),
		points.WithAutoMigrate(!e.config.DisableMigrate),
	)

	// Append any pass-through ledger options.
	opts = append(opts, e.ledgerOpts...)

	return opts
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration resolves config from YAML files, programmatic options
// and environment variables, in that order of precedence.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	envConfig, err := LoadConfigFromEnv()
	if err != nil {
		return err
	}

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("points: configuration is required but not found in config files; " +
				"ensure 'extensions.points' or 'points' key exists in your config")
		}
		e.config = mergeWithDefaults(mergeConfigurations(programmaticConfig, envConfig))
	} else {
		merged := mergeConfigurations(fileConfig, programmaticConfig)
		e.config = mergeWithDefaults(mergeConfigurations(merged, envConfig))
	}

	if err := e.config.Validate(); err != nil {
		return err
	}

	e.Logger().Debug("points: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("cooldown", e.config.Cooldown),
		forge.F("daily_grant", e.config.DailyGrant),
		forge.F("status_key", e.config.StatusKey),
		forge.F("store_driver", e.config.StoreDriver),
		forge.F("hook_timeout", e.config.HookTimeout),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.points" first (namespaced pattern).
	if cm.IsSet("extensions.points") {
		if err := cm.Bind("extensions.points", &cfg); err == nil {
			e.Logger().Debug("points: loaded config from file",
				forge.F("key", "extensions.points"),
			)
			return cfg, true
		}
		e.Logger().Warn("points: failed to bind extensions.points config",
			forge.F("error", "bind failed"),
		)
	}

	// Try short "points" key.
	if cm.IsSet("points") {
		if err := cm.Bind("points", &cfg); err == nil {
			e.Logger().Debug("points: loaded config from file",
				forge.F("key", "points"),
			)
			return cfg, true
		}
		e.Logger().Warn("points: failed to bind points config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}
