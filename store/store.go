package store

import (
	"context"

	"github.com/xraph/points/account"
)

// Store is the document store backing a points ledger.
//
// Apply must commit every increment and server timestamp in the mutation as
// one atomic write and return the record this write produced, with
// server-assigned timestamps filled in. The write is all or nothing:
//   - a missing record fails with points.ErrRecordNotFound;
//   - an unmet precondition fails with points.ErrConditionFailed;
//   - a decrement below zero fails with points.ErrInsufficientPoints;
//   - an increment past math.MaxInt64 fails with points.ErrInvalidMutation.
type Store interface {
	// Account methods
	GetAccount(ctx context.Context, userID string) (*account.Account, error)
	CreateAccount(ctx context.Context, a *account.Account) error
	Apply(ctx context.Context, userID string, m *account.Mutation) (*account.Account, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
