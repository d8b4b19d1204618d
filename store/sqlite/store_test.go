package sqlite

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"

	points "github.com/xraph/points"
	"github.com/xraph/points/account"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	drv := sqlitedriver.New()
	if err := drv.Open(ctx, filepath.Join(t.TempDir(), "points.db")); err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db, err := grove.Open(drv)
	if err != nil {
		t.Fatalf("grove open: %v", err)
	}

	s := New(db)
	t.Cleanup(func() { _ = s.Close() })
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return s
}

func seeded(t *testing.T, free, purchased int64, lastClaim *time.Time) *Store {
	t.Helper()
	s := newTestStore(t)
	a := account.New("u1")
	a.FreePoints = free
	a.PurchasedPoints = purchased
	a.LastClaimAt = lastClaim
	if err := s.CreateAccount(context.Background(), a); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	return s
}

func TestMigrateIsRepeatable(t *testing.T) {
	s := newTestStore(t)
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
}

func TestCreateAndGetAccount(t *testing.T) {
	s := seeded(t, 3, 4, nil)

	a, err := s.GetAccount(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if a.FreePoints != 3 || a.PurchasedPoints != 4 {
		t.Errorf("balances: free=%d purchased=%d", a.FreePoints, a.PurchasedPoints)
	}
	if a.HasClaimed() {
		t.Errorf("LastClaimAt: got %v, want unset", a.LastClaimAt)
	}
}

func TestCreateAccountDuplicate(t *testing.T) {
	s := seeded(t, 0, 0, nil)
	err := s.CreateAccount(context.Background(), account.New("u1"))
	if !errors.Is(err, points.ErrAlreadyExists) {
		t.Fatalf("got %v, want ErrAlreadyExists", err)
	}
}

func TestGetAccountMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetAccount(context.Background(), "nobody")
	if !errors.Is(err, points.ErrRecordNotFound) {
		t.Fatalf("got %v, want ErrRecordNotFound", err)
	}
}

func TestApplyMissingRecord(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Apply(context.Background(), "nobody", account.NewMutation().Increment(account.FieldFreePoints, 1))
	if !errors.Is(err, points.ErrRecordNotFound) {
		t.Fatalf("got %v, want ErrRecordNotFound", err)
	}
}

func TestApplyIncrementAndTimestamp(t *testing.T) {
	s := seeded(t, 5, 10, nil)
	before := time.Now().UTC().Add(-time.Second)

	got, err := s.Apply(context.Background(), "u1", account.NewMutation().
		Increment(account.FieldFreePoints, 10).
		ServerTimestamp(account.FieldLastClaimAt))
	if err != nil {
		t.Fatal(err)
	}

	after := time.Now().UTC().Add(time.Second)
	if got.FreePoints != 15 || got.PurchasedPoints != 10 {
		t.Errorf("balances: free=%d purchased=%d", got.FreePoints, got.PurchasedPoints)
	}
	if got.LastClaimAt == nil || got.LastClaimAt.Before(before) || got.LastClaimAt.After(after) {
		t.Errorf("LastClaimAt: got %v, want between %v and %v", got.LastClaimAt, before, after)
	}

	stored, _ := s.GetAccount(context.Background(), "u1")
	if stored.FreePoints != 15 || !stored.HasClaimed() {
		t.Errorf("stored: %+v", stored)
	}
}

func TestApplyRejectsOverdraw(t *testing.T) {
	s := seeded(t, 5, 10, nil)
	ctx := context.Background()

	_, err := s.Apply(ctx, "u1", account.NewMutation().
		Increment(account.FieldFreePoints, -1).
		Increment(account.FieldPurchasedPoints, -11))
	if !errors.Is(err, points.ErrInsufficientPoints) {
		t.Fatalf("got %v, want ErrInsufficientPoints", err)
	}

	a, _ := s.GetAccount(ctx, "u1")
	if a.FreePoints != 5 || a.PurchasedPoints != 10 {
		t.Errorf("partial write: free=%d purchased=%d", a.FreePoints, a.PurchasedPoints)
	}
}

func TestApplyExactBalance(t *testing.T) {
	s := seeded(t, 5, 0, nil)

	got, err := s.Apply(context.Background(), "u1", account.NewMutation().Increment(account.FieldFreePoints, -5))
	if err != nil {
		t.Fatal(err)
	}
	if got.FreePoints != 0 {
		t.Errorf("FreePoints: got %d, want 0", got.FreePoints)
	}
}

func TestApplyRejectsOverflow(t *testing.T) {
	s := seeded(t, 0, 1, nil)
	ctx := context.Background()

	_, err := s.Apply(ctx, "u1", account.NewMutation().Increment(account.FieldPurchasedPoints, math.MaxInt64))
	if !errors.Is(err, points.ErrInvalidMutation) {
		t.Fatalf("got %v, want ErrInvalidMutation", err)
	}

	a, _ := s.GetAccount(ctx, "u1")
	if a.PurchasedPoints != 1 {
		t.Errorf("PurchasedPoints: got %d, want 1", a.PurchasedPoints)
	}
}

func TestApplyConditionalClaim(t *testing.T) {
	lastClaim := time.Now().UTC().Add(-48 * time.Hour)
	s := seeded(t, 0, 0, &lastClaim)
	ctx := context.Background()
	claim := func() error {
		_, err := s.Apply(ctx, "u1", account.NewMutation().
			Increment(account.FieldFreePoints, 10).
			ServerTimestamp(account.FieldLastClaimAt).
			RequireNotAfter(account.FieldLastClaimAt, time.Now().UTC().Add(-24*time.Hour)))
		return err
	}

	if err := claim(); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if err := claim(); !errors.Is(err, points.ErrConditionFailed) {
		t.Fatalf("second claim: got %v, want ErrConditionFailed", err)
	}

	a, _ := s.GetAccount(ctx, "u1")
	if a.FreePoints != 10 {
		t.Errorf("FreePoints: got %d, want 10", a.FreePoints)
	}
}

func TestApplyInvalidMutation(t *testing.T) {
	s := seeded(t, 0, 0, nil)
	_, err := s.Apply(context.Background(), "u1", account.NewMutation().Increment(account.FieldLastClaimAt, 1))
	if !errors.Is(err, points.ErrInvalidMutation) {
		t.Fatalf("got %v, want ErrInvalidMutation", err)
	}
}
