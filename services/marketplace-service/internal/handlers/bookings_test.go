package handlers

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/helpmarket/platform/services/marketplace-service/internal/booking"
	"github.com/helpmarket/platform/services/marketplace-service/internal/model"
)

func postJSON(t *testing.T, fn http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	fn(rec, req)
	return rec
}

func TestCreateBooking_RejectsBadTimestamps(t *testing.T) {
	h := newWebhookHandler(newMemStore())

	rec := postJSON(t, h.CreateBooking, "/api/v1/bookings",
		`{"customer_id":"c1","provider_id":"p1","start_at":"next tuesday","end_at":"2026-03-09T11:00:00Z"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCreateBooking_UnknownProviderIs404(t *testing.T) {
	h := newWebhookHandler(newMemStore())

	rec := postJSON(t, h.CreateBooking, "/api/v1/bookings",
		`{"customer_id":"c1","provider_id":"ghost","start_at":"2026-03-09T09:00:00Z","end_at":"2026-03-09T11:00:00Z"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestCheckout_UnknownBookingIs404(t *testing.T) {
	h := newWebhookHandler(newMemStore())

	rec := postJSON(t, h.Checkout, "/api/v1/bookings/checkout", `{"booking_id":"ghost"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestCheckout_DisconnectedProviderIs400(t *testing.T) {
	store := newMemStore()
	store.providers["prov-1"] = model.ProviderProfile{ID: "prov-1", HourlyRate: 25}
	seedPendingBooking(store, "bk-1")
	store.bookings["bk-1"].CustomerTotal = 53.75

	svc := booking.NewService(store, stubPayments{}, slog.Default(), booking.Config{
		FeeRate:                  0.075,
		RequireConnectedProvider: true,
	})
	h := New(nil, svc, stubPayments{}, slog.Default(), Config{StripeWebhookSecret: testWebhookSecret})

	rec := postJSON(t, h.Checkout, "/api/v1/bookings/checkout", `{"booking_id":"bk-1"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for disconnected provider, got %d: %s", rec.Code, rec.Body.String())
	}
}
