package account

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestMutationValidate(t *testing.T) {
	tests := []struct {
		name    string
		m       *Mutation
		wantErr bool
	}{
		{"increment free", NewMutation().Increment(FieldFreePoints, 10), false},
		{"increment purchased", NewMutation().Increment(FieldPurchasedPoints, -3), false},
		{"claim", NewMutation().Increment(FieldFreePoints, 10).ServerTimestamp(FieldLastClaimAt), false},
		{"timestamp only", NewMutation().ServerTimestamp(FieldLastClaimAt), false},
		{"empty", NewMutation(), true},
		{"zero delta", NewMutation().Increment(FieldFreePoints, 0), true},
		{"nil", nil, true},
		{"increment timestamp field", NewMutation().Increment(FieldLastClaimAt, 1), true},
		{"timestamp numeric field", NewMutation().ServerTimestamp(FieldFreePoints), true},
		{"unknown field", NewMutation().Increment(Field("gems"), 1), true},
		{"conditional claim", NewMutation().Increment(FieldFreePoints, 10).RequireNotAfter(FieldLastClaimAt, time.Now()), false},
		{"condition on numeric field", NewMutation().Increment(FieldFreePoints, 1).RequireNotAfter(FieldFreePoints, time.Now()), true},
		{"condition only", NewMutation().RequireNotAfter(FieldLastClaimAt, time.Now()), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.m.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidMutation) {
					t.Errorf("expected ErrInvalidMutation, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestMutationIncrementsAccumulate(t *testing.T) {
	m := NewMutation().
		Increment(FieldPurchasedPoints, 5).
		Increment(FieldFreePoints, 2).
		Increment(FieldPurchasedPoints, -1)

	got := m.Increments()
	want := []Increment{
		{Field: FieldFreePoints, Delta: 2},
		{Field: FieldPurchasedPoints, Delta: 4},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d increments, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("increment %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestMutationApply(t *testing.T) {
	a := New("u1")
	a.FreePoints = 5
	a.PurchasedPoints = 10

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	NewMutation().
		Increment(FieldFreePoints, 10).
		ServerTimestamp(FieldLastClaimAt).
		Apply(a, now)

	if a.FreePoints != 15 {
		t.Errorf("FreePoints: got %d, want 15", a.FreePoints)
	}
	if a.PurchasedPoints != 10 {
		t.Errorf("PurchasedPoints changed: got %d", a.PurchasedPoints)
	}
	if a.LastClaimAt == nil || !a.LastClaimAt.Equal(now) {
		t.Errorf("LastClaimAt: got %v, want %v", a.LastClaimAt, now)
	}
	if !a.UpdatedAt.Equal(now) {
		t.Errorf("UpdatedAt: got %v, want %v", a.UpdatedAt, now)
	}
}

func TestAccountClone(t *testing.T) {
	ts := time.Now()
	a := &Account{UserID: "u1", FreePoints: 1, LastClaimAt: &ts}
	c := a.Clone()

	*c.LastClaimAt = ts.Add(time.Hour)
	c.FreePoints = 99

	if !a.LastClaimAt.Equal(ts) {
		t.Error("clone shares LastClaimAt with original")
	}
	if a.FreePoints != 1 {
		t.Error("clone shares FreePoints with original")
	}
	if a.Total() != 1 || c.Total() != 99 {
		t.Errorf("Total: got %d/%d", a.Total(), c.Total())
	}
	if (*Account)(nil).Clone() != nil {
		t.Error("nil clone should be nil")
	}
}

func TestMutationCheck(t *testing.T) {
	cutoff := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	before := cutoff.Add(-time.Minute)
	after := cutoff.Add(time.Minute)

	tests := []struct {
		name string
		acct Account
		m    *Mutation
		want error
	}{
		{"never claimed", Account{}, NewMutation().Increment(FieldFreePoints, 1).RequireNotAfter(FieldLastClaimAt, cutoff), nil},
		{"claimed before cutoff", Account{LastClaimAt: &before}, NewMutation().Increment(FieldFreePoints, 1).RequireNotAfter(FieldLastClaimAt, cutoff), nil},
		{"claimed at cutoff", Account{LastClaimAt: &cutoff}, NewMutation().Increment(FieldFreePoints, 1).RequireNotAfter(FieldLastClaimAt, cutoff), nil},
		{"claimed after cutoff", Account{LastClaimAt: &after}, NewMutation().Increment(FieldFreePoints, 1).RequireNotAfter(FieldLastClaimAt, cutoff), ErrConditionFailed},
		{"short balance", Account{FreePoints: 2}, NewMutation().Increment(FieldFreePoints, -3), ErrInsufficientPoints},
		{"exact balance", Account{FreePoints: 3}, NewMutation().Increment(FieldFreePoints, -3), nil},
		{"overflow", Account{PurchasedPoints: 1}, NewMutation().Increment(FieldPurchasedPoints, math.MaxInt64), ErrInvalidMutation},
		{"max without overflow", Account{}, NewMutation().Increment(FieldPurchasedPoints, math.MaxInt64), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.m.Check(&tt.acct)
			if tt.want == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestMutationConditionsOrdered(t *testing.T) {
	cutoff := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	m := NewMutation().RequireNotAfter(FieldLastClaimAt, cutoff)

	got := m.Conditions()
	if len(got) != 1 || got[0].Field != FieldLastClaimAt || !got[0].Cutoff.Equal(cutoff) {
		t.Errorf("Conditions: got %+v", got)
	}
	if !m.Holds(&Account{}) {
		t.Error("unset field should satisfy the condition")
	}
}
