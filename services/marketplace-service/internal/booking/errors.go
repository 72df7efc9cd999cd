package booking

import "errors"

var (
	// ErrNotFound covers missing bookings, providers, and series.
	ErrNotFound = errors.New("not found")
	// ErrValidation covers bad time windows, rates, and non-positive amounts.
	// No state is mutated when it is returned.
	ErrValidation = errors.New("validation failed")
	// ErrProviderNotConnected gates payment initiation until the provider has
	// a payout destination. Retriable once onboarding completes.
	ErrProviderNotConnected = errors.New("provider has no payout destination")
	// ErrSkipPayout tells the payout sweep to leave a booking untouched for a
	// future run (e.g. destination still missing). Not an error to callers.
	ErrSkipPayout = errors.New("skip payout")
)
