// Package account models the per-user points record held by the document
// store and the atomic mutations that can be applied to it.
package account

import "time"

// Account is the remote points record for one user.
type Account struct {
	UserID          string     `json:"user_id"`
	PurchasedPoints int64      `json:"purchased_points"`
	FreePoints      int64      `json:"free_points"`
	LastClaimAt     *time.Time `json:"last_claim_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// New returns an empty account for userID with creation timestamps set.
func New(userID string) *Account {
	now := time.Now().UTC()
	return &Account{
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Total is purchased plus free points.
func (a *Account) Total() int64 {
	return a.PurchasedPoints + a.FreePoints
}

// HasClaimed reports whether a last-claim timestamp is recorded.
func (a *Account) HasClaimed() bool {
	return a.LastClaimAt != nil && !a.LastClaimAt.IsZero()
}

// Clone returns a deep copy.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	if a.LastClaimAt != nil {
		t := *a.LastClaimAt
		c.LastClaimAt = &t
	}
	return &c
}

// Balance returns the value of a numeric field.
func (a *Account) Balance(f Field) int64 {
	switch f {
	case FieldPurchasedPoints:
		return a.PurchasedPoints
	case FieldFreePoints:
		return a.FreePoints
	default:
		return 0
	}
}

// Time returns the value of a temporal field.
func (a *Account) Time(f Field) *time.Time {
	if f == FieldLastClaimAt {
		return a.LastClaimAt
	}
	return nil
}
