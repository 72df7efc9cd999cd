package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/helpmarket/platform/services/marketplace-service/internal/booking"
	"github.com/helpmarket/platform/services/marketplace-service/internal/model"
	"github.com/helpmarket/platform/services/marketplace-service/internal/outbox"
)

// CreateBooking persists the series (when present), the booking, and the
// booking.created event in one transaction.
func (r *Repository) CreateBooking(ctx context.Context, b model.Booking, series *model.BookingSeries) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if series != nil {
		_, err := tx.Exec(ctx, `
			INSERT INTO booking_series
				(id, customer_id, provider_id, frequency, series_interval, weekdays,
				 start_time, end_time, starts_on, ends_on, max_occurrences,
				 provider_rate, fee_rate, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		`, series.ID, series.CustomerID, series.ProviderID, string(series.Frequency), series.Interval,
			weekdayInts(series.Weekdays), series.StartTime, series.EndTime, series.StartsOn,
			series.EndsOn, series.MaxOccurrences, series.ProviderRate, series.FeeRate, series.Status)
		if err != nil {
			return err
		}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO bookings
			(id, customer_id, provider_id, series_id, start_at, end_at, status,
			 provider_rate, fee_rate, provider_payout, platform_fee, customer_total)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, b.ID, b.CustomerID, b.ProviderID, nullIfEmpty(b.SeriesID), b.StartAt, b.EndAt, string(b.Status),
		b.ProviderRate, b.FeeRate, b.ProviderPayout, b.PlatformFee, b.CustomerTotal)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(map[string]any{
		"booking_id":     b.ID,
		"customer_id":    b.CustomerID,
		"provider_id":    b.ProviderID,
		"series_id":      b.SeriesID,
		"start_at":       b.StartAt,
		"end_at":         b.EndAt,
		"customer_total": b.CustomerTotal,
	})
	if err != nil {
		return err
	}
	if err := r.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "booking",
		AggregateID:   b.ID,
		EventType:     outbox.EventBookingCreated,
		Payload:       payload,
	}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *Repository) GetBooking(ctx context.Context, id string) (model.Booking, error) {
	b, err := scanBooking(r.pool.QueryRow(ctx, selectBooking+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Booking{}, booking.ErrNotFound
		}
		return model.Booking{}, err
	}
	return b, nil
}

// SetCheckoutSession stores the latest payment-session reference. Retried
// initiations simply replace the previous one.
func (r *Repository) SetCheckoutSession(ctx context.Context, bookingID, sessionID string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE bookings
		SET checkout_session_id = $2
		WHERE id = $1
	`, bookingID, sessionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return booking.ErrNotFound
	}
	return nil
}

// MarkPaid applies pending_payment -> paid as a conditional write. A booking
// already past pending_payment leaves zero rows updated and reports
// (false, nil), which is how webhook replays stay harmless.
func (r *Repository) MarkPaid(ctx context.Context, bookingID, paymentRef string) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE bookings
		SET status = $2,
		    payment_intent_id = $3
		WHERE id = $1 AND status = $4
	`, bookingID, string(model.BookingPaid), paymentRef, string(model.BookingPendingPayment))
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM bookings WHERE id = $1)`, bookingID).Scan(&exists); err != nil {
			return false, err
		}
		if !exists {
			return false, booking.ErrNotFound
		}
		return false, tx.Commit(ctx)
	}

	payload, err := json.Marshal(map[string]any{
		"booking_id":        bookingID,
		"payment_intent_id": paymentRef,
	})
	if err != nil {
		return false, err
	}
	if err := r.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "booking",
		AggregateID:   bookingID,
		EventType:     outbox.EventBookingPaid,
		Payload:       payload,
	}); err != nil {
		return false, err
	}

	return true, tx.Commit(ctx)
}

// SweepPayouts lists due paid bookings without a transfer reference, then
// settles each one in its own transaction. A transfer is durable the moment
// its booking commits, so a failure partway through the batch never unwinds
// transfers already recorded. Per-booking transfer failures leave the row
// untouched for the next sweep; only a datastore failure stops the run.
func (r *Repository) SweepPayouts(ctx context.Context, now time.Time, limit int, transfer booking.TransferFunc) (int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text
		FROM bookings
		WHERE status = $1
		  AND transfer_id IS NULL
		  AND end_at <= $2
		ORDER BY end_at, id
		LIMIT $3
	`, string(model.BookingPaid), now, limit)
	if err != nil {
		return 0, err
	}

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if rows.Err() != nil {
		return 0, rows.Err()
	}

	count := 0
	for _, id := range ids {
		released, err := r.settlePayout(ctx, id, transfer)
		if err != nil {
			return count, err
		}
		if released {
			count++
		}
	}
	return count, nil
}

// settlePayout claims one booking under FOR UPDATE SKIP LOCKED, calls the
// transfer callback while the lock is held, and commits the transfer
// reference plus the booking.completed event before returning. The
// re-check of status and transfer_id inside the lock is what makes
// concurrent sweeps pay each booking at most once.
func (r *Repository) settlePayout(ctx context.Context, bookingID string, transfer booking.TransferFunc) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var c booking.PayoutCandidate
	var status string
	err = tx.QueryRow(ctx, `
		SELECT b.id::text, b.customer_id::text, b.provider_id::text, COALESCE(b.series_id::text, ''),
		       b.start_at, b.end_at, b.status,
		       b.provider_rate, b.fee_rate, b.provider_payout, b.platform_fee, b.customer_total,
		       COALESCE(b.checkout_session_id, ''), COALESCE(b.payment_intent_id, ''), COALESCE(b.transfer_id, ''),
		       b.created_at,
		       COALESCE(p.stripe_account_id, '')
		FROM bookings b
		JOIN provider_profiles p ON p.id = b.provider_id
		WHERE b.id = $1
		  AND b.status = $2
		  AND b.transfer_id IS NULL
		FOR UPDATE OF b SKIP LOCKED
	`, bookingID, string(model.BookingPaid)).Scan(
		&c.Booking.ID, &c.Booking.CustomerID, &c.Booking.ProviderID, &c.Booking.SeriesID,
		&c.Booking.StartAt, &c.Booking.EndAt, &status,
		&c.Booking.ProviderRate, &c.Booking.FeeRate, &c.Booking.ProviderPayout, &c.Booking.PlatformFee, &c.Booking.CustomerTotal,
		&c.Booking.CheckoutSessionID, &c.Booking.PaymentIntentID, &c.Booking.TransferID,
		&c.Booking.CreatedAt,
		&c.DestinationID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Claimed by a concurrent sweep or no longer eligible.
			return false, nil
		}
		return false, err
	}
	c.Booking.Status = model.BookingStatus(status)

	transferID, err := transfer(ctx, c)
	if err != nil {
		// Skipped or failed bookings keep their current state and come
		// back on the next sweep.
		return false, nil
	}

	tag, err := tx.Exec(ctx, `
		UPDATE bookings
		SET status = $2,
		    transfer_id = $3
		WHERE id = $1 AND transfer_id IS NULL
	`, c.Booking.ID, string(model.BookingCompleted), transferID)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	payload, err := json.Marshal(map[string]any{
		"booking_id":      c.Booking.ID,
		"transfer_id":     transferID,
		"provider_payout": c.Booking.ProviderPayout,
	})
	if err != nil {
		return false, err
	}
	if err := r.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "booking",
		AggregateID:   c.Booking.ID,
		EventType:     outbox.EventBookingCompleted,
		Payload:       payload,
	}); err != nil {
		return false, err
	}

	return true, tx.Commit(ctx)
}

const selectBooking = `
	SELECT id::text, customer_id::text, provider_id::text, COALESCE(series_id::text, ''),
	       start_at, end_at, status,
	       provider_rate, fee_rate, provider_payout, platform_fee, customer_total,
	       COALESCE(checkout_session_id, ''), COALESCE(payment_intent_id, ''), COALESCE(transfer_id, ''),
	       created_at
	FROM bookings`

func scanBooking(row pgx.Row) (model.Booking, error) {
	var b model.Booking
	var status string
	err := row.Scan(
		&b.ID, &b.CustomerID, &b.ProviderID, &b.SeriesID,
		&b.StartAt, &b.EndAt, &status,
		&b.ProviderRate, &b.FeeRate, &b.ProviderPayout, &b.PlatformFee, &b.CustomerTotal,
		&b.CheckoutSessionID, &b.PaymentIntentID, &b.TransferID,
		&b.CreatedAt,
	)
	if err != nil {
		return model.Booking{}, err
	}
	b.Status = model.BookingStatus(status)
	return b, nil
}
