package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/helpmarket/platform/libs/db"
	"github.com/helpmarket/platform/services/marketplace-service/internal/model"
	"github.com/helpmarket/platform/services/marketplace-service/internal/outbox"
	"github.com/helpmarket/platform/services/marketplace-service/internal/storage"
)

// Seeds a provider profile for local development. Profile management has no
// public API; in production profiles arrive through the onboarding pipeline.
func main() {
	var (
		dbURL      = flag.String("database-url", os.Getenv("DATABASE_URL"), "postgres connection string")
		providerID = flag.String("provider-id", "", "provider id (default: new uuid)")
		hourlyRate = flag.Float64("hourly-rate", 25.0, "hourly rate in dollars")
		timezone   = flag.String("timezone", "UTC", "provider IANA time zone")
		accountID  = flag.String("stripe-account", "", "connected account id (optional)")
	)
	flag.Parse()

	if *dbURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(2)
	}
	if *providerID == "" {
		*providerID = uuid.NewString()
	}
	if _, err := time.LoadLocation(*timezone); err != nil {
		fmt.Fprintf(os.Stderr, "unknown time zone %q\n", *timezone)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.Open(ctx, *dbURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "db connection failed: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	repo := storage.NewRepository(pool, outbox.NewRepository(pool))
	err = repo.CreateProvider(ctx, model.ProviderProfile{
		ID:              *providerID,
		HourlyRate:      *hourlyRate,
		Timezone:        *timezone,
		StripeAccountID: *accountID,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "provider seed failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("provider_id=%s hourly_rate=%.2f timezone=%s\n", *providerID, *hourlyRate, *timezone)
}
