package model

import (
	"fmt"
	"math"
	"time"
)

// BookingStatus is the booking payment state machine:
// pending_payment -> paid -> completed. There is no failure or cancellation
// transition; a booking that never gets paid simply stays pending_payment.
type BookingStatus string

const (
	BookingPendingPayment BookingStatus = "pending_payment"
	BookingPaid           BookingStatus = "paid"
	BookingCompleted      BookingStatus = "completed"
)

// ProviderProfile carries the two things the payment flow needs from a
// provider: the rate snapshot source and the payout destination. The Stripe
// account id stays empty until the provider finishes Connect onboarding.
type ProviderProfile struct {
	ID              string
	HourlyRate      float64
	Timezone        string
	StripeAccountID string
	CreatedAt       time.Time
}

// BookingSeries records the recurrence rule behind a recurring booking. It is
// created once, referenced by the first booking row, and never mutated by the
// payment flow.
type BookingSeries struct {
	ID             string
	CustomerID     string
	ProviderID     string
	Frequency      Recurrence
	Interval       int
	Weekdays       []time.Weekday // nil unless weekly
	StartTime      string         // "HH:MM", provider-local
	EndTime        string         // "HH:MM"
	StartsOn       string         // "YYYY-MM-DD"
	EndsOn         *string
	MaxOccurrences *int
	ProviderRate   float64
	FeeRate        float64
	Status         string
	CreatedAt      time.Time
}

// Booking is the financial record for one occurrence. Rates and the three
// derived amounts are frozen at creation and never re-read from the live
// provider profile. Writes after creation are limited to webhook confirmation
// (Status, PaymentIntentID) and the payout sweep (Status, TransferID).
type Booking struct {
	ID                string
	CustomerID        string
	ProviderID        string
	SeriesID          string // empty for one-time bookings
	StartAt           time.Time
	EndAt             time.Time
	Status            BookingStatus
	ProviderRate      float64
	FeeRate           float64
	ProviderPayout    float64
	PlatformFee       float64
	CustomerTotal     float64
	CheckoutSessionID string
	PaymentIntentID   string
	TransferID        string // empty until the payout sweep records the transfer
	CreatedAt         time.Time
}

// Validate enforces the booking invariants: a real window and amounts that
// reconcile (payout + fee == total) to the cent.
func (b Booking) Validate() error {
	if !b.EndAt.After(b.StartAt) {
		return fmt.Errorf("booking end %s is not after start %s", b.EndAt.Format(time.RFC3339), b.StartAt.Format(time.RFC3339))
	}
	if b.CustomerTotal <= 0 {
		return fmt.Errorf("customer total must be positive, got %.2f", b.CustomerTotal)
	}
	if math.Abs(b.ProviderPayout+b.PlatformFee-b.CustomerTotal) > 1e-9 {
		return fmt.Errorf("amounts do not reconcile: %.2f + %.2f != %.2f", b.ProviderPayout, b.PlatformFee, b.CustomerTotal)
	}
	return nil
}

// MinorUnits converts a dollar amount to integer cents the way the payment
// processor expects it.
func MinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
