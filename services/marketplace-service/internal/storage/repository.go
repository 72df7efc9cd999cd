package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/helpmarket/platform/libs/db"
	"github.com/helpmarket/platform/services/marketplace-service/internal/outbox"
)

// Repository is the PostgreSQL persistence layer. State changes that emit
// domain events write the event row in the same transaction via the outbox
// repository.
type Repository struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewRepository(pool *db.Pool, outboxRepo *outbox.Repository) *Repository {
	return &Repository{pool: pool, outbox: outboxRepo}
}

func (r *Repository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func weekdayInts(days []time.Weekday) []int32 {
	if len(days) == 0 {
		return nil
	}
	out := make([]int32, len(days))
	for i, d := range days {
		out[i] = int32(d)
	}
	return out
}

func intWeekdays(raw []int32) []time.Weekday {
	if len(raw) == 0 {
		return nil
	}
	out := make([]time.Weekday, len(raw))
	for i, v := range raw {
		out[i] = time.Weekday(v)
	}
	return out
}
