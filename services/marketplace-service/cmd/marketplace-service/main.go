package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/helpmarket/platform/libs/config"
	"github.com/helpmarket/platform/libs/db"
	"github.com/helpmarket/platform/libs/httpx"
	"github.com/helpmarket/platform/libs/kafkax"
	otelx "github.com/helpmarket/platform/libs/otel"
	"github.com/helpmarket/platform/libs/runtime"
	"github.com/helpmarket/platform/services/marketplace-service/internal/booking"
	"github.com/helpmarket/platform/services/marketplace-service/internal/handlers"
	"github.com/helpmarket/platform/services/marketplace-service/internal/outbox"
	"github.com/helpmarket/platform/services/marketplace-service/internal/payments"
	"github.com/helpmarket/platform/services/marketplace-service/internal/payouts"
	"github.com/helpmarket/platform/services/marketplace-service/internal/storage"
)

func main() {
	service := config.String("SERVICE_NAME", "marketplace-service")
	port, err := config.Port("PORT", "8084")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	outboxRepo := outbox.NewRepository(pool)
	repo := storage.NewRepository(pool, outboxRepo)
	stripeClient := payments.NewStripeClient(config.String("STRIPE_SECRET_KEY", ""))

	publicSiteURL := strings.TrimRight(config.String("PUBLIC_SITE_URL", "http://localhost:3000"), "/")
	svc := booking.NewService(repo, stripeClient, logger, booking.Config{
		FeeRate:                  config.Float("FEE_RATE", 0.075),
		RequireConnectedProvider: config.Bool("REQUIRE_CONNECTED_PROVIDER", true),
		CheckoutSuccessURL:       publicSiteURL + "/booking-success",
		CheckoutCancelURL:        publicSiteURL + "/booking-cancel",
	})

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	payoutWorker := payouts.NewWorker(svc, logger, payouts.WorkerConfig{
		Interval:  config.Duration("PAYOUT_SWEEP_INTERVAL", 0),
		BatchSize: config.Int("PAYOUT_BATCH_SIZE", 50),
	})
	go payoutWorker.Run(ctx)

	var rdb *redis.Client
	if addr := strings.TrimSpace(config.String("REDIS_ADDR", "")); addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       config.Int("REDIS_DB", 0),
		})
		defer func() { _ = rdb.Close() }()
	}

	readyChecks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
		{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	}
	if rdb != nil {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}
	mux := runtime.NewBaseMuxWithReady(readyChecks...)

	h := handlers.New(repo, svc, stripeClient, logger, handlers.Config{
		StripeWebhookSecret:           config.String("STRIPE_WEBHOOK_SECRET", ""),
		StripeWebhookToleranceSeconds: config.Int("STRIPE_WEBHOOK_TOLERANCE_SECONDS", 300),
		PublicSiteURL:                 publicSiteURL,
		SlotHorizonDays:               config.Int("SLOT_HORIZON_DAYS", 56),
		SearchHorizonDays:             config.Int("SEARCH_HORIZON_DAYS", 56),
		PayoutBatchSize:               config.Int("PAYOUT_BATCH_SIZE", 50),
	})
	mux.HandleFunc("/api/v1/providers/availability", h.PublishAvailability)
	mux.HandleFunc("/api/v1/search/providers", h.SearchProviders)
	mux.HandleFunc("/api/v1/bookings", h.CreateBooking)
	mux.HandleFunc("/api/v1/bookings/checkout", h.Checkout)
	mux.HandleFunc("/api/v1/payments/webhooks/stripe", h.StripeWebhook)
	mux.HandleFunc("/api/v1/payouts/release", h.ReleasePayouts)
	mux.HandleFunc("/api/v1/providers/connect", h.ConnectProvider)

	limitPerMinute := config.Int("RATE_LIMIT_PER_MINUTE", 120)
	var rateLimitMW httpx.Middleware
	if rdb != nil {
		rl := httpx.NewRedisRateLimiter(rdb, limitPerMinute, time.Minute, config.String("RATE_LIMIT_PREFIX", "rl"))
		rateLimitMW = rl.Middleware(logger, config.Bool("RATE_LIMIT_FAIL_OPEN", true))
		logger.Info("rate limiting enabled (redis)", "per_minute", limitPerMinute, "redis_addr", rdb.Options().Addr)
	} else {
		rl := httpx.NewRateLimiter(limitPerMinute, time.Minute)
		rateLimitMW = rl.Middleware()
		logger.Info("rate limiting enabled (in-memory)", "per_minute", limitPerMinute)
	}

	handler := httpx.Chain(mux,
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: strings.Split(config.String("CORS_ALLOWED_ORIGINS", publicSiteURL), ","),
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-Id"},
		}),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(int64(config.Int("REQUEST_BODY_LIMIT_BYTES", 1<<20))),
		httpx.WithTimeout(config.Duration("REQUEST_TIMEOUT", 15*time.Second)),
		rateLimitMW,
	)
	handler = otelhttp.NewHandler(handler, "marketplace")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", "err", err)
	}
}
