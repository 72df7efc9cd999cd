package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/helpmarket/platform/services/marketplace-service/internal/booking"
	"github.com/helpmarket/platform/services/marketplace-service/internal/model"
)

func (r *Repository) CreateProvider(ctx context.Context, p model.ProviderProfile) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO provider_profiles (id, hourly_rate, timezone, stripe_account_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET hourly_rate = EXCLUDED.hourly_rate,
		                               timezone = EXCLUDED.timezone
	`, p.ID, p.HourlyRate, p.Timezone, nullIfEmpty(p.StripeAccountID))
	return err
}

func (r *Repository) GetProvider(ctx context.Context, id string) (model.ProviderProfile, error) {
	var p model.ProviderProfile
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, hourly_rate, COALESCE(timezone, ''), COALESCE(stripe_account_id, ''), created_at
		FROM provider_profiles
		WHERE id = $1
	`, id).Scan(&p.ID, &p.HourlyRate, &p.Timezone, &p.StripeAccountID, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ProviderProfile{}, booking.ErrNotFound
		}
		return model.ProviderProfile{}, err
	}
	return p, nil
}

// SetStripeAccount records the provider's payout destination once Connect
// onboarding has produced an account.
func (r *Repository) SetStripeAccount(ctx context.Context, providerID, accountID string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE provider_profiles
		SET stripe_account_id = $2
		WHERE id = $1
	`, providerID, accountID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return booking.ErrNotFound
	}
	return nil
}
