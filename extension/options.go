package extension

import (
	"time"

	"github.com/xraph/grove"

	points "github.com/xraph/points"
	"github.com/xraph/points/identity"
	"github.com/xraph/points/plugin"
	"github.com/xraph/points/store"
)

// Option configures the points Forge extension.
type Option func(*Extension)

// WithStore sets the store for the ledger.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithGroveDB builds the store from db using Config.StoreDriver.
func WithGroveDB(db *grove.DB, driver string) Option {
	return func(e *Extension) {
		e.groveDB = db
		e.config.StoreDriver = driver
	}
}

// WithIdentity sets the identity provider. A *identity.Session is also
// followed, so sign-in and sign-out keep the mirror current.
func WithIdentity(p identity.Provider) Option {
	return func(e *Extension) {
		e.identity = p
	}
}

// WithLedgerOption passes a points.Option through to the underlying ledger.
func WithLedgerOption(opt points.Option) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, opt)
	}
}

// WithPlugin registers a ledger plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, points.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithCooldown sets the minimum time between daily claims.
func WithCooldown(d time.Duration) Option {
	return func(e *Extension) { e.config.Cooldown = d }
}

// WithDailyGrant sets the free points added by one daily claim.
func WithDailyGrant(n int64) Option {
	return func(e *Extension) { e.config.DailyGrant = n }
}

// WithStatusKey sets the key status signals are reported under.
func WithStatusKey(key string) Option {
	return func(e *Extension) { e.config.StatusKey = key }
}
