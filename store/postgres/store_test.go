package postgres

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/xraph/points/account"
)

func TestApplyQueryGuardsAndReturns(t *testing.T) {
	mut := account.NewMutation().
		Increment(account.FieldFreePoints, -5).
		Increment(account.FieldPurchasedPoints, 3)

	query, args := applyQuery("u1", mut)

	for _, want := range []string{
		"UPDATE points_accounts SET free_points = free_points + $1, purchased_points = purchased_points + $2, updated_at = NOW()",
		"WHERE user_id = $3 AND free_points >= $4 AND purchased_points <= $5",
		"RETURNING " + accountColumns,
	} {
		if !strings.Contains(query, want) {
			t.Errorf("query missing %q:\n%s", want, query)
		}
	}

	wantArgs := []any{int64(-5), int64(3), "u1", int64(5), int64(math.MaxInt64 - 3)}
	if len(args) != len(wantArgs) {
		t.Fatalf("args: got %v, want %v", args, wantArgs)
	}
	for i := range wantArgs {
		if args[i] != wantArgs[i] {
			t.Errorf("arg %d: got %v, want %v", i+1, args[i], wantArgs[i])
		}
	}
}

func TestApplyQueryClaim(t *testing.T) {
	cutoff := time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC)
	mut := account.NewMutation().
		Increment(account.FieldFreePoints, 10).
		ServerTimestamp(account.FieldLastClaimAt).
		RequireNotAfter(account.FieldLastClaimAt, cutoff)

	query, args := applyQuery("u1", mut)

	if !strings.Contains(query, "last_claim_at = NOW()") {
		t.Errorf("claim time must come from the database clock:\n%s", query)
	}
	if !strings.Contains(query, "(last_claim_at IS NULL OR last_claim_at <= $4)") {
		t.Errorf("claim precondition missing:\n%s", query)
	}
	if got, ok := args[3].(time.Time); !ok || !got.Equal(cutoff) {
		t.Errorf("cutoff arg: got %v", args[3])
	}
}
