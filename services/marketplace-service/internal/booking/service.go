package booking

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/helpmarket/platform/services/marketplace-service/internal/model"
	"github.com/helpmarket/platform/services/marketplace-service/internal/payments"
	"github.com/helpmarket/platform/services/marketplace-service/internal/pricing"
)

// Config carries the lifecycle policy knobs. They are explicit parameters,
// not process-wide state.
type Config struct {
	FeeRate float64
	// RequireConnectedProvider gates payment initiation on the provider
	// having completed payout onboarding. Policy, not a technical necessity.
	RequireConnectedProvider bool
	CheckoutSuccessURL       string
	CheckoutCancelURL        string
}

// Service owns the booking state machine: creation with a frozen price
// snapshot, payment-session initiation, webhook-driven confirmation, and the
// payout sweep.
type Service struct {
	store    Store
	payments payments.Client
	logger   *slog.Logger
	cfg      Config
}

func NewService(store Store, paymentsClient payments.Client, logger *slog.Logger, cfg Config) *Service {
	return &Service{store: store, payments: paymentsClient, logger: logger, cfg: cfg}
}

type CreateBookingRequest struct {
	CustomerID string
	ProviderID string
	StartAt    time.Time
	EndAt      time.Time
	Recurrence model.Recurrence // none for a one-time booking
}

// CreateBooking validates the quote, creates the series first when the
// booking recurs, and persists the booking as pending_payment with rates
// frozen as of now. The live provider profile is never re-read later.
func (s *Service) CreateBooking(ctx context.Context, req CreateBookingRequest) (model.Booking, error) {
	if strings.TrimSpace(req.CustomerID) == "" || strings.TrimSpace(req.ProviderID) == "" {
		return model.Booking{}, fmt.Errorf("%w: customer and provider are required", ErrValidation)
	}

	provider, err := s.store.GetProvider(ctx, req.ProviderID)
	if err != nil {
		return model.Booking{}, err
	}

	quote, err := pricing.Price(provider.HourlyRate, req.StartAt, req.EndAt, s.cfg.FeeRate)
	if err != nil {
		return model.Booking{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if quote.CustomerTotal <= 0 {
		return model.Booking{}, fmt.Errorf("%w: customer total must be positive", ErrValidation)
	}

	b := model.Booking{
		ID:             uuid.NewString(),
		CustomerID:     req.CustomerID,
		ProviderID:     req.ProviderID,
		StartAt:        req.StartAt,
		EndAt:          req.EndAt,
		Status:         model.BookingPendingPayment,
		ProviderRate:   provider.HourlyRate,
		FeeRate:        s.cfg.FeeRate,
		ProviderPayout: quote.ProviderBase,
		PlatformFee:    quote.PlatformFee,
		CustomerTotal:  quote.CustomerTotal,
	}

	var series *model.BookingSeries
	if req.Recurrence != "" && req.Recurrence != model.RecurrenceNone {
		series = s.buildSeries(req, provider)
		b.SeriesID = series.ID
	}

	if err := b.Validate(); err != nil {
		return model.Booking{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := s.store.CreateBooking(ctx, b, series); err != nil {
		return model.Booking{}, err
	}

	s.logger.Info("booking created",
		"booking_id", b.ID,
		"provider_id", b.ProviderID,
		"recurring", series != nil,
		"customer_total", b.CustomerTotal,
	)
	return b, nil
}

func (s *Service) buildSeries(req CreateBookingRequest, provider model.ProviderProfile) *model.BookingSeries {
	loc := time.UTC
	if provider.Timezone != "" {
		if l, err := time.LoadLocation(provider.Timezone); err == nil {
			loc = l
		}
	}
	localStart := req.StartAt.In(loc)
	localEnd := req.EndAt.In(loc)

	var weekdays []time.Weekday
	if req.Recurrence == model.RecurrenceWeekly {
		weekdays = []time.Weekday{localStart.Weekday()}
	}

	return &model.BookingSeries{
		ID:           uuid.NewString(),
		CustomerID:   req.CustomerID,
		ProviderID:   req.ProviderID,
		Frequency:    req.Recurrence,
		Interval:     1,
		Weekdays:     weekdays,
		StartTime:    localStart.Format("15:04"),
		EndTime:      localEnd.Format("15:04"),
		StartsOn:     localStart.Format("2006-01-02"),
		ProviderRate: provider.HourlyRate,
		FeeRate:      s.cfg.FeeRate,
		Status:       "active",
	}
}

// InitiatePayment requests a checkout session for the booking's frozen total
// and stores the session reference. The booking stays pending_payment; the
// operation may be retried and a new session replaces the old reference.
func (s *Service) InitiatePayment(ctx context.Context, bookingID string) (string, error) {
	b, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return "", err
	}

	amountCents := model.MinorUnits(b.CustomerTotal)
	if amountCents <= 0 {
		return "", fmt.Errorf("%w: booking amount must be positive", ErrValidation)
	}

	provider, err := s.store.GetProvider(ctx, b.ProviderID)
	if err != nil {
		return "", err
	}
	if s.cfg.RequireConnectedProvider && provider.StripeAccountID == "" {
		return "", ErrProviderNotConnected
	}

	sess, err := s.payments.CreateCheckoutSession(ctx, payments.CheckoutParams{
		BookingID:   b.ID,
		AmountCents: amountCents,
		SuccessURL:  withQueryParam(s.cfg.CheckoutSuccessURL, "booking", b.ID),
		CancelURL:   s.cfg.CheckoutCancelURL,
	})
	if err != nil {
		// Surfaced to the caller; the booking stays retriable in its last
		// consistent state.
		return "", err
	}

	if err := s.store.SetCheckoutSession(ctx, b.ID, sess.ID); err != nil {
		return "", err
	}

	s.logger.Info("checkout session created",
		"booking_id", b.ID,
		"session_id", sess.ID,
		"amount_cents", amountCents,
	)
	return sess.URL, nil
}

// ConfirmPayment is invoked only from the verified webhook path. It applies
// pending_payment -> paid; a booking already paid or completed is a no-op,
// which makes at-least-once event delivery safe.
func (s *Service) ConfirmPayment(ctx context.Context, bookingID, paymentRef string) error {
	updated, err := s.store.MarkPaid(ctx, bookingID, paymentRef)
	if err != nil {
		return err
	}
	if !updated {
		s.logger.Info("payment confirmation replayed, no-op", "booking_id", bookingID)
		return nil
	}
	s.logger.Info("booking paid", "booking_id", bookingID, "payment_ref", paymentRef)
	return nil
}

// Sweep releases payouts for paid bookings that have ended by now, at most
// batchSize per run. Bookings whose provider has no payout destination are
// skipped untouched; per-booking transfer failures are logged and left
// retriable. Only a datastore failure fails the sweep.
func (s *Service) Sweep(ctx context.Context, now time.Time, batchSize int) (int, error) {
	count, err := s.store.SweepPayouts(ctx, now, batchSize, func(ctx context.Context, c PayoutCandidate) (string, error) {
		if c.DestinationID == "" {
			return "", ErrSkipPayout
		}
		transferID, err := s.payments.CreateTransfer(ctx, model.MinorUnits(c.Booking.ProviderPayout), c.DestinationID, c.Booking.ID)
		if err != nil {
			s.logger.Error("transfer failed, booking left for next sweep",
				"booking_id", c.Booking.ID, "err", err)
			return "", err
		}
		return transferID, nil
	})
	if err != nil {
		return count, err
	}
	if count > 0 {
		s.logger.Info("payout sweep released transfers", "count", count)
	}
	return count, nil
}

func withQueryParam(rawURL, key, value string) string {
	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}
	return rawURL + sep + key + "=" + url.QueryEscape(value)
}
