package points

import (
	"errors"
	"fmt"

	"github.com/xraph/points/account"
)

// Sentinel errors for ledger operations.
var (
	// Precondition errors
	ErrNotAuthenticated = errors.New("points: not authenticated")
	ErrInvalidAmount    = errors.New("points: amount must be positive")

	// Balance and claim errors
	ErrInsufficientPoints = account.ErrInsufficientPoints
	ErrClaimNotAvailable  = errors.New("points: daily points not available yet")

	// Store errors
	ErrStoreUnavailable  = errors.New("points: store unavailable")
	ErrStoreClosed       = errors.New("points: store is closed")
	ErrRecordNotFound    = errors.New("points: account not found")
	ErrAlreadyExists     = errors.New("points: account already exists")
	ErrRemoteWriteFailed = errors.New("points: remote write failed")
	ErrMigrationFailed   = errors.New("points: migration failed")

	ErrInvalidMutation = account.ErrInvalidMutation
	ErrConditionFailed = account.ErrConditionFailed
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("points: validation failed for %s: %s", e.Field, e.Message)
}

// Unwrap returns the sentinel the validation failure belongs to.
func (e ValidationError) Unwrap() error { return e.Err }

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRecordNotFound)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable) ||
		errors.Is(err, ErrRemoteWriteFailed)
}

// IsUserError returns true for failures caused by the caller's state rather
// than by the store: missing session, bad amount, low balance, cooldown.
func IsUserError(err error) bool {
	return errors.Is(err, ErrNotAuthenticated) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInsufficientPoints) ||
		errors.Is(err, ErrClaimNotAvailable)
}

// writeFailed classifies a store error returned from Apply. Rejections the
// store made on the record's contents pass through unwrapped.
func writeFailed(err error) error {
	if errors.Is(err, ErrRemoteWriteFailed) ||
		errors.Is(err, ErrInvalidMutation) ||
		errors.Is(err, ErrConditionFailed) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrRemoteWriteFailed, err)
}

// readFailed classifies a store error returned from GetAccount.
func readFailed(err error) error {
	if errors.Is(err, ErrRecordNotFound) || errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}
