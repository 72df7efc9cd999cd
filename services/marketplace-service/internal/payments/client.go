// Package payments is the boundary to the payment processor. The core
// depends on Client so tests can substitute a fake; Stripe is the production
// implementation.
package payments

import "context"

// CheckoutParams describes a single-use payment collection session. Amounts
// are integer minor units (cents); the booking id travels as correlation
// metadata so the webhook can find its way back.
type CheckoutParams struct {
	BookingID   string
	AmountCents int64
	SuccessURL  string
	CancelURL   string
}

// CheckoutSession is the processor-issued redirect target.
type CheckoutSession struct {
	ID  string
	URL string
}

type Client interface {
	CreateCheckoutSession(ctx context.Context, p CheckoutParams) (CheckoutSession, error)
	// CreateTransfer moves platform-held funds to a provider's payout
	// destination and returns the transfer reference.
	CreateTransfer(ctx context.Context, amountCents int64, destinationID, bookingID string) (string, error)
	// CreateAccount provisions a connected account for provider onboarding.
	CreateAccount(ctx context.Context) (string, error)
	CreateOnboardingLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error)
}
