package account

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

var (
	// ErrInvalidMutation is returned when a mutation names an unknown field,
	// applies an operation the field does not support, or would overflow.
	ErrInvalidMutation = errors.New("points: invalid mutation")

	// ErrConditionFailed is returned when the stored record does not satisfy
	// a mutation's preconditions. Nothing is written.
	ErrConditionFailed = errors.New("points: mutation precondition failed")

	// ErrInsufficientPoints is returned when a decrement would take a balance
	// below zero. Nothing is written.
	ErrInsufficientPoints = errors.New("points: insufficient points")
)

// Field names a mutable account field. The string value is the column or
// document key used by every store backend.
type Field string

const (
	FieldPurchasedPoints Field = "purchased_points"
	FieldFreePoints      Field = "free_points"
	FieldLastClaimAt     Field = "last_claim_at"
)

// Numeric reports whether f accepts increments.
func (f Field) Numeric() bool {
	return f == FieldPurchasedPoints || f == FieldFreePoints
}

// Temporal reports whether f accepts a server timestamp.
func (f Field) Temporal() bool {
	return f == FieldLastClaimAt
}

// Increment is one atomic delta on a numeric field.
type Increment struct {
	Field Field
	Delta int64
}

// Condition requires a temporal field to be unset or not after Cutoff.
type Condition struct {
	Field  Field
	Cutoff time.Time
}

// Holds reports whether a satisfies c.
func (c Condition) Holds(a *Account) bool {
	t := a.Time(c.Field)
	return t == nil || t.IsZero() || !t.After(c.Cutoff)
}

// Mutation is a partial update applied by a store as a single atomic write.
// Fields that are not named are left untouched.
type Mutation struct {
	increments map[Field]int64
	timestamps map[Field]struct{}
	conditions map[Field]time.Time
}

// NewMutation returns an empty mutation.
func NewMutation() *Mutation {
	return &Mutation{
		increments: make(map[Field]int64),
		timestamps: make(map[Field]struct{}),
		conditions: make(map[Field]time.Time),
	}
}

// Increment adds delta to f. Repeated calls on the same field accumulate.
func (m *Mutation) Increment(f Field, delta int64) *Mutation {
	m.increments[f] += delta
	return m
}

// ServerTimestamp sets f to the store's clock at commit time.
func (m *Mutation) ServerTimestamp(f Field) *Mutation {
	m.timestamps[f] = struct{}{}
	return m
}

// RequireNotAfter makes the write conditional: it commits only while f is
// unset or holds a time at or before cutoff. Otherwise the store fails with
// ErrConditionFailed.
func (m *Mutation) RequireNotAfter(f Field, cutoff time.Time) *Mutation {
	m.conditions[f] = cutoff
	return m
}

// Increments returns the non-zero deltas ordered by field name.
func (m *Mutation) Increments() []Increment {
	out := make([]Increment, 0, len(m.increments))
	for f, d := range m.increments {
		if d != 0 {
			out = append(out, Increment{Field: f, Delta: d})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}

// Timestamps returns the server-timestamp fields ordered by name.
func (m *Mutation) Timestamps() []Field {
	out := make([]Field, 0, len(m.timestamps))
	for f := range m.timestamps {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Conditions returns the preconditions ordered by field name.
func (m *Mutation) Conditions() []Condition {
	out := make([]Condition, 0, len(m.conditions))
	for f, cutoff := range m.conditions {
		out = append(out, Condition{Field: f, Cutoff: cutoff})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}

// Holds reports whether a satisfies every precondition of m.
func (m *Mutation) Holds(a *Account) bool {
	for _, c := range m.Conditions() {
		if !c.Holds(a) {
			return false
		}
	}
	return true
}

// Check reports why m cannot be applied to a, or nil if it can. Stores use
// it to explain a guarded write that matched nothing.
func (m *Mutation) Check(a *Account) error {
	for _, c := range m.Conditions() {
		if !c.Holds(a) {
			return fmt.Errorf("%w: %s is after %s", ErrConditionFailed, c.Field, c.Cutoff.Format(time.RFC3339))
		}
	}
	for _, inc := range m.Increments() {
		bal := a.Balance(inc.Field)
		if inc.Delta > 0 && bal > math.MaxInt64-inc.Delta {
			return fmt.Errorf("%w: %s would overflow", ErrInvalidMutation, inc.Field)
		}
		if bal+inc.Delta < 0 {
			return fmt.Errorf("%w: %s would drop to %d", ErrInsufficientPoints, inc.Field, bal+inc.Delta)
		}
	}
	return nil
}

// IsEmpty reports whether applying m would change nothing.
func (m *Mutation) IsEmpty() bool {
	return len(m.Increments()) == 0 && len(m.timestamps) == 0
}

// Validate checks every named field against the operation applied to it.
func (m *Mutation) Validate() error {
	if m == nil || m.IsEmpty() {
		return fmt.Errorf("%w: no fields", ErrInvalidMutation)
	}
	for f := range m.increments {
		if !f.Numeric() {
			return fmt.Errorf("%w: cannot increment %q", ErrInvalidMutation, f)
		}
	}
	for f := range m.timestamps {
		if !f.Temporal() {
			return fmt.Errorf("%w: cannot timestamp %q", ErrInvalidMutation, f)
		}
	}
	for f := range m.conditions {
		if !f.Temporal() {
			return fmt.Errorf("%w: cannot compare %q with a time", ErrInvalidMutation, f)
		}
	}
	return nil
}

// Apply writes m into a in place using serverNow for timestamp fields.
// Callers validate first; unknown fields are ignored here.
func (m *Mutation) Apply(a *Account, serverNow time.Time) {
	for _, inc := range m.Increments() {
		switch inc.Field {
		case FieldPurchasedPoints:
			a.PurchasedPoints += inc.Delta
		case FieldFreePoints:
			a.FreePoints += inc.Delta
		}
	}
	for _, f := range m.Timestamps() {
		if f == FieldLastClaimAt {
			t := serverNow
			a.LastClaimAt = &t
		}
	}
	a.UpdatedAt = serverNow
}
