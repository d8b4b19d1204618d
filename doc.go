// Package points keeps a signed-in user's points balance in step with a
// shared document store.
//
// A Ledger holds a local mirror of one user's record: purchased points,
// free points and the time of the last daily claim. Every change is written
// to the store first and reaches the mirror only once the store confirms
// it. Reads come straight from the mirror and never wait on the network.
//
// # Quick Start
//
// Create a ledger with your preferred store and an identity provider:
//
//	import (
//	    "github.com/xraph/points"
//	    "github.com/xraph/points/identity"
//	    "github.com/xraph/points/store/postgres"
//	)
//
//	session := identity.NewSession()
//	l := points.New(postgres.New(db), session)
//
//	// Migrate and, if someone is already signed in, load their balance
//	if err := l.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Stop()
//
//	// Keep the mirror current as users sign in and out
//	l.Follow(ctx, session)
//
// # Balances
//
// Points come in two kinds. Purchased points are bought; free points come
// from the daily grant or from promotions. Spending always drains free
// points first:
//
//	l.AddPoints(ctx, 100, false) // purchased
//	l.SpendPoints(ctx, 8)        // free first, then purchased
//	total := l.TotalPoints()
//
// A spend larger than the total fails with ErrInsufficientPoints before
// anything is written. No store backend ever lets a balance go negative.
//
// # Daily Claims
//
// ClaimDailyPoints grants DailyGrant free points once per Cooldown. The
// eligibility check is repeated against the store right before the write,
// and the write is conditional on the stored claim time: the store commits
// the grant and the new claim time together only if no other claim landed
// within the cooldown. Two devices claiming at once get one grant between
// them; the other sees ErrClaimNotAvailable:
//
//	if l.CheckDailyPoints(ctx) {
//	    err := l.ClaimDailyPoints(ctx)
//	}
//
// Claim times are assigned by the store, not by the local clock.
//
// # Status
//
// Each operation reports loading, success and error signals to a
// status.Sink, keyed by WithStatusKey. The messages are user-facing text
// and can be replaced with WithMessages. Every operation also returns a
// plain error for callers that prefer to branch on sentinels.
//
// # Stores
//
// Backends live under store/: memory for tests, and postgres, sqlite and
// mongo built on Grove. Each applies a Mutation (increments plus server
// timestamps) as one atomic write.
package points
