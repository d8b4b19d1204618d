// Package plugin provides an extensible plugin system for the points ledger.
// Plugins can hook into ledger lifecycle events to extend functionality.
package plugin

import (
	"context"
	"time"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// Event describes a completed ledger operation.
type Event struct {
	OperationID string
	Operation   string
	UserID      string

	// Amount is the requested amount (spend/add) or the daily grant (claim).
	Amount int64

	// Deltas actually applied to each balance.
	FreeDelta      int64
	PurchasedDelta int64

	// Mirror balances after the operation.
	FreePoints      int64
	PurchasedPoints int64

	LastClaimAt *time.Time
	Elapsed     time.Duration
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the ledger starts.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, ledger any) error
}

// OnShutdown is called when the ledger stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Balance hooks
// ──────────────────────────────────────────────────

// OnPointsLoaded is called after the mirror is populated from the store.
type OnPointsLoaded interface {
	Plugin
	OnPointsLoaded(ctx context.Context, evt *Event) error
}

// OnPointsAdded is called after a confirmed increment.
type OnPointsAdded interface {
	Plugin
	OnPointsAdded(ctx context.Context, evt *Event) error
}

// OnPointsSpent is called after every decrement of a spend is confirmed.
type OnPointsSpent interface {
	Plugin
	OnPointsSpent(ctx context.Context, evt *Event) error
}

// ──────────────────────────────────────────────────
// Daily claim hooks
// ──────────────────────────────────────────────────

// OnDailyClaimed is called after a daily claim commits.
type OnDailyClaimed interface {
	Plugin
	OnDailyClaimed(ctx context.Context, evt *Event) error
}

// OnClaimRejected is called when the remote re-check refuses a claim.
type OnClaimRejected interface {
	Plugin
	OnClaimRejected(ctx context.Context, userID string) error
}

// ──────────────────────────────────────────────────
// Failure hooks
// ──────────────────────────────────────────────────

// OnOperationFailed is called when a mutating operation returns an error.
type OnOperationFailed interface {
	Plugin
	OnOperationFailed(ctx context.Context, evt *Event, err error) error
}
