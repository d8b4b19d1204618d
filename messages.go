package points

import "errors"

// Messages holds the user-facing text sent to the status sink. Hosts
// localize by passing their own set through WithMessages.
type Messages struct {
	Loaded  string
	Added   string
	Spent   string
	Claimed string

	NotAuthenticated   string
	StoreUnavailable   string
	RecordNotFound     string
	InsufficientPoints string
	ClaimNotAvailable  string
	InvalidAmount      string
	AmountTooLarge     string
}

// DefaultMessages returns the English message set.
func DefaultMessages() Messages {
	return Messages{
		Loaded:  "Points loaded",
		Added:   "Points added",
		Spent:   "Points spent",
		Claimed: "Daily points claimed",

		NotAuthenticated:   "You need to be signed in to use points",
		StoreUnavailable:   "Could not connect to the database",
		RecordNotFound:     "User record not found",
		InsufficientPoints: "Not enough points",
		ClaimNotAvailable:  "Daily points are not available yet",
		InvalidAmount:      "Amount must be positive",
		AmountTooLarge:     "Amount is too large",
	}
}

// For returns the message for err. Errors without a dedicated message
// are shown as-is.
func (m Messages) For(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotAuthenticated):
		return m.NotAuthenticated
	case errors.Is(err, ErrInvalidAmount):
		return m.InvalidAmount
	case errors.Is(err, ErrInvalidMutation):
		return m.AmountTooLarge
	case errors.Is(err, ErrInsufficientPoints):
		return m.InsufficientPoints
	case errors.Is(err, ErrClaimNotAvailable):
		return m.ClaimNotAvailable
	case errors.Is(err, ErrRecordNotFound):
		return m.RecordNotFound
	case errors.Is(err, ErrStoreUnavailable):
		return m.StoreUnavailable
	default:
		return err.Error()
	}
}

func (m Messages) withDefaults() Messages {
	d := DefaultMessages()
	fill := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}
	fill(&m.Loaded, d.Loaded)
	fill(&m.Added, d.Added)
	fill(&m.Spent, d.Spent)
	fill(&m.Claimed, d.Claimed)
	fill(&m.NotAuthenticated, d.NotAuthenticated)
	fill(&m.StoreUnavailable, d.StoreUnavailable)
	fill(&m.RecordNotFound, d.RecordNotFound)
	fill(&m.InsufficientPoints, d.InsufficientPoints)
	fill(&m.ClaimNotAvailable, d.ClaimNotAvailable)
	fill(&m.InvalidAmount, d.InvalidAmount)
	fill(&m.AmountTooLarge, d.AmountTooLarge)
	return m
}
