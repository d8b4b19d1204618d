package points

import "github.com/xraph/points/account"

// Re-export account types so callers don't have to import the account package.

// Account is re-exported from the account package.
type Account = account.Account

// Mutation is re-exported from the account package.
type Mutation = account.Mutation

// Field is re-exported from the account package.
type Field = account.Field

// Re-export account constructors and fields.
var (
	NewAccount  = account.New
	NewMutation = account.NewMutation
)

const (
	FieldPurchasedPoints = account.FieldPurchasedPoints
	FieldFreePoints      = account.FieldFreePoints
	FieldLastClaimAt     = account.FieldLastClaimAt
)
