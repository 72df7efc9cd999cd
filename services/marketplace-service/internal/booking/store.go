package booking

import (
	"context"
	"time"

	"github.com/helpmarket/platform/services/marketplace-service/internal/model"
)

// PayoutCandidate is one paid, ended, not-yet-transferred booking together
// with the provider's payout destination (empty until onboarding completes).
type PayoutCandidate struct {
	Booking       model.Booking
	DestinationID string
}

// TransferFunc issues the money movement for one candidate and returns the
// transfer reference. Returning ErrSkipPayout (or any error) leaves the
// booking untouched for a future sweep.
type TransferFunc func(ctx context.Context, c PayoutCandidate) (string, error)

// Store is the persistence contract of the lifecycle controller. The
// PostgreSQL implementation lives in internal/storage; tests substitute an
// in-memory fake.
type Store interface {
	GetProvider(ctx context.Context, providerID string) (model.ProviderProfile, error)

	// CreateBooking persists the booking (and its series, when present) with
	// the frozen price snapshot, atomically with a booking.created event.
	CreateBooking(ctx context.Context, b model.Booking, series *model.BookingSeries) error
	GetBooking(ctx context.Context, bookingID string) (model.Booking, error)

	// SetCheckoutSession records the payment-session reference. Retried
	// payment initiation replaces the previous reference.
	SetCheckoutSession(ctx context.Context, bookingID, sessionID string) error

	// MarkPaid transitions pending_payment -> paid and stores the payment
	// reference. It reports false without error when the booking is already
	// paid or completed, so at-least-once webhook delivery is a no-op.
	MarkPaid(ctx context.Context, bookingID, paymentRef string) (bool, error)

	// SweepPayouts atomically selects up to limit bookings with
	// status = paid, no transfer reference, and end_at <= now (ordered by
	// end_at then id), invokes transfer for each, and applies the
	// paid -> completed transition with a write conditional on the transfer
	// reference still being null. A lost race counts as success-of-omission.
	// Returns the number of transfers recorded.
	SweepPayouts(ctx context.Context, now time.Time, limit int, transfer TransferFunc) (int, error)
}
