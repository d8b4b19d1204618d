package audithook

// Action constants for audit events.
const (
	// Balance actions
	ActionPointsLoaded = "points.loaded"
	ActionPointsAdded  = "points.added"
	ActionPointsSpent  = "points.spent"

	// Daily claim actions
	ActionDailyClaimed  = "daily.claimed"
	ActionClaimRejected = "daily.rejected"

	// Failure actions
	ActionOperationFailed = "operation.failed"
)

// Resource constants for audit events.
const (
	ResourceAccount = "account"
	ResourceClaim   = "daily_claim"
)

// Category constants for audit events.
const (
	CategoryBalance = "balance"
	CategoryReward  = "reward"
	CategoryError   = "error"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
