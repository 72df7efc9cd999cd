package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/helpmarket/platform/services/marketplace-service/internal/booking"
	"github.com/helpmarket/platform/services/marketplace-service/internal/payments"
	"github.com/helpmarket/platform/services/marketplace-service/internal/storage"
)

type Handler struct {
	repo                   *storage.Repository
	svc                    *booking.Service
	payments               payments.Client
	logger                 *slog.Logger
	stripeWebhookSecret    string
	stripeWebhookTolerance time.Duration
	publicSiteURL          string
	slotHorizonDays        int
	searchHorizonDays      int
	payoutBatchSize        int
}

type Config struct {
	StripeWebhookSecret           string
	StripeWebhookToleranceSeconds int
	PublicSiteURL                 string
	SlotHorizonDays               int
	SearchHorizonDays             int
	PayoutBatchSize               int
}

func New(repo *storage.Repository, svc *booking.Service, paymentsClient payments.Client, logger *slog.Logger, cfg Config) *Handler {
	if cfg.StripeWebhookToleranceSeconds <= 0 {
		cfg.StripeWebhookToleranceSeconds = 300
	}
	if cfg.SlotHorizonDays <= 0 {
		cfg.SlotHorizonDays = 56
	}
	if cfg.SearchHorizonDays <= 0 {
		cfg.SearchHorizonDays = 56
	}
	if cfg.PayoutBatchSize <= 0 {
		cfg.PayoutBatchSize = 50
	}
	return &Handler{
		repo:                   repo,
		svc:                    svc,
		payments:               paymentsClient,
		logger:                 logger,
		stripeWebhookSecret:    cfg.StripeWebhookSecret,
		stripeWebhookTolerance: time.Duration(cfg.StripeWebhookToleranceSeconds) * time.Second,
		publicSiteURL:          cfg.PublicSiteURL,
		slotHorizonDays:        cfg.SlotHorizonDays,
		searchHorizonDays:      cfg.SearchHorizonDays,
		payoutBatchSize:        cfg.PayoutBatchSize,
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
