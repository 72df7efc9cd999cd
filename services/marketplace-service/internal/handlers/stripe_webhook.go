package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/helpmarket/platform/services/marketplace-service/internal/booking"
)

// StripeWebhook confirms payments (no JWT auth; signature verification is the
// auth). This is the only path that moves a booking to paid.
func (h *Handler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if strings.TrimSpace(h.stripeWebhookSecret) == "" {
		http.Error(w, "stripe webhook not configured", http.StatusBadRequest)
		return
	}

	sigHeader := r.Header.Get("Stripe-Signature")
	if strings.TrimSpace(sigHeader) == "" {
		http.Error(w, "missing Stripe-Signature header", http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20)) // 1 MiB hard cap
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	evt, err := webhook.ConstructEventWithTolerance(body, sigHeader, h.stripeWebhookSecret, h.stripeWebhookTolerance)
	if err != nil {
		http.Error(w, "invalid signature", http.StatusBadRequest)
		return
	}

	evtType := string(evt.Type)
	h.logger.Info("payment provider event received",
		"provider", "stripe",
		"provider_event_id", evt.ID,
		"event_type", evtType,
	)

	switch evtType {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(evt.Data.Raw, &session); err != nil {
			h.logger.Error("stripe: invalid checkout session payload", "err", err)
			break
		}
		bookingID := strings.TrimSpace(session.Metadata["booking_id"])
		if bookingID == "" {
			h.logger.Warn("stripe: checkout session without booking_id metadata", "session_id", session.ID)
			break
		}
		paymentRef := ""
		if session.PaymentIntent != nil {
			paymentRef = session.PaymentIntent.ID
		}

		if err := h.svc.ConfirmPayment(r.Context(), bookingID, paymentRef); err != nil {
			if errors.Is(err, booking.ErrNotFound) {
				// Nothing actionable in a retry; ack so Stripe stops resending.
				h.logger.Warn("stripe: completed session references unknown booking", "booking_id", bookingID)
				break
			}
			h.logger.Error("payment confirmation failed", "booking_id", bookingID, "err", err)
			http.Error(w, "failed to confirm payment", http.StatusInternalServerError)
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}
