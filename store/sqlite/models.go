package sqlite

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/points/account"
)

type accountModel struct {
	grove.BaseModel `grove:"table:points_accounts"`

	UserID          string     `grove:"user_id,pk"`
	PurchasedPoints int64      `grove:"purchased_points"`
	FreePoints      int64      `grove:"free_points"`
	LastClaimAt     *time.Time `grove:"last_claim_at"`
	CreatedAt       time.Time  `grove:"created_at"`
	UpdatedAt       time.Time  `grove:"updated_at"`
}

func toAccountModel(a *account.Account) *accountModel {
	return &accountModel{
		UserID:          a.UserID,
		PurchasedPoints: a.PurchasedPoints,
		FreePoints:      a.FreePoints,
		LastClaimAt:     a.LastClaimAt,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

func fromAccountModel(m *accountModel) *account.Account {
	a := &account.Account{
		UserID:          m.UserID,
		PurchasedPoints: m.PurchasedPoints,
		FreePoints:      m.FreePoints,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
	if m.LastClaimAt != nil {
		t := m.LastClaimAt.UTC()
		a.LastClaimAt = &t
	}
	return a
}
