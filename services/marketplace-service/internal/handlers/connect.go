package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/helpmarket/platform/services/marketplace-service/internal/booking"
)

type connectRequest struct {
	ProviderID string `json:"provider_id"`
}

// ConnectProvider creates the provider's connected payout account on first
// call and returns a fresh onboarding link on every call. Links expire, so
// re-requesting one is the normal flow.
func (h *Handler) ConnectProvider(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req connectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	providerID := strings.TrimSpace(req.ProviderID)
	if providerID == "" {
		http.Error(w, "provider_id is required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	provider, err := h.repo.GetProvider(ctx, providerID)
	if err != nil {
		if errors.Is(err, booking.ErrNotFound) {
			http.Error(w, "provider not found", http.StatusNotFound)
			return
		}
		h.logger.Error("provider lookup failed", "provider_id", providerID, "err", err)
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	accountID := provider.StripeAccountID
	if accountID == "" {
		accountID, err = h.payments.CreateAccount(ctx)
		if err != nil {
			h.logger.Error("connected account creation failed", "provider_id", providerID, "err", err)
			http.Error(w, "payment provider error", http.StatusBadGateway)
			return
		}
		if err := h.repo.SetStripeAccount(ctx, providerID, accountID); err != nil {
			h.logger.Error("failed to persist connected account", "provider_id", providerID, "err", err)
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}
		h.logger.Info("connected account created", "provider_id", providerID, "account_id", accountID)
	}

	refreshURL := h.publicSiteURL + "/provider/connect/refresh"
	returnURL := h.publicSiteURL + "/provider/connect/return"
	link, err := h.payments.CreateOnboardingLink(ctx, accountID, refreshURL, returnURL)
	if err != nil {
		h.logger.Error("onboarding link failed", "provider_id", providerID, "err", err)
		http.Error(w, "payment provider error", http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"onboarding_url": link})
}
