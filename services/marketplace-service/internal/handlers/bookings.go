package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/helpmarket/platform/services/marketplace-service/internal/booking"
	"github.com/helpmarket/platform/services/marketplace-service/internal/model"
)

type createBookingRequest struct {
	CustomerID string `json:"customer_id"`
	ProviderID string `json:"provider_id"`
	StartAt    string `json:"start_at"`
	EndAt      string `json:"end_at"`
	Recurrence string `json:"recurrence"`
}

type createBookingResponse struct {
	BookingID      string  `json:"booking_id"`
	SeriesID       string  `json:"series_id,omitempty"`
	Status         string  `json:"status"`
	ProviderPayout float64 `json:"provider_payout"`
	PlatformFee    float64 `json:"platform_fee"`
	CustomerTotal  float64 `json:"customer_total"`
}

func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	startAt, err := time.Parse(time.RFC3339, req.StartAt)
	if err != nil {
		http.Error(w, "invalid start_at", http.StatusBadRequest)
		return
	}
	endAt, err := time.Parse(time.RFC3339, req.EndAt)
	if err != nil {
		http.Error(w, "invalid end_at", http.StatusBadRequest)
		return
	}
	recurrence := model.RecurrenceNone
	if strings.TrimSpace(req.Recurrence) != "" {
		recurrence, err = model.ParseRecurrence(req.Recurrence)
		if err != nil {
			http.Error(w, "invalid recurrence", http.StatusBadRequest)
			return
		}
	}

	b, err := h.svc.CreateBooking(r.Context(), booking.CreateBookingRequest{
		CustomerID: strings.TrimSpace(req.CustomerID),
		ProviderID: strings.TrimSpace(req.ProviderID),
		StartAt:    startAt,
		EndAt:      endAt,
		Recurrence: recurrence,
	})
	if err != nil {
		switch {
		case errors.Is(err, booking.ErrNotFound):
			http.Error(w, "provider not found", http.StatusNotFound)
		case errors.Is(err, booking.ErrValidation):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			h.logger.Error("booking creation failed", "err", err)
			http.Error(w, "failed to create booking", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusCreated, createBookingResponse{
		BookingID:      b.ID,
		SeriesID:       b.SeriesID,
		Status:         string(b.Status),
		ProviderPayout: b.ProviderPayout,
		PlatformFee:    b.PlatformFee,
		CustomerTotal:  b.CustomerTotal,
	})
}

type checkoutRequest struct {
	BookingID string `json:"booking_id"`
}

// Checkout creates a payment session for a pending booking and returns the
// redirect URL. Retrying is fine; the latest session wins.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	bookingID := strings.TrimSpace(req.BookingID)
	if bookingID == "" {
		http.Error(w, "booking_id is required", http.StatusBadRequest)
		return
	}

	url, err := h.svc.InitiatePayment(r.Context(), bookingID)
	if err != nil {
		switch {
		case errors.Is(err, booking.ErrNotFound):
			http.Error(w, "booking not found", http.StatusNotFound)
		case errors.Is(err, booking.ErrValidation):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, booking.ErrProviderNotConnected):
			http.Error(w, "provider has not completed payout onboarding", http.StatusBadRequest)
		default:
			h.logger.Error("checkout session failed", "booking_id", bookingID, "err", err)
			http.Error(w, "payment provider error", http.StatusBadGateway)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"checkout_url": url})
}

// ReleasePayouts triggers one payout sweep on demand. The sweep is
// idempotent, so overlapping with the background worker is harmless. It runs
// on a context detached from the request: a client disconnect must not
// cancel a sweep that has already issued transfers.
func (h *Handler) ReleasePayouts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	n, err := h.svc.Sweep(context.WithoutCancel(r.Context()), time.Now().UTC(), h.payoutBatchSize)
	if err != nil {
		h.logger.Error("payout release failed", "err", err)
		http.Error(w, "payout release failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transfers": n})
}
