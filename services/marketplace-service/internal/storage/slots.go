package storage

import (
	"context"
	"time"

	"github.com/helpmarket/platform/services/marketplace-service/internal/model"
)

// InsertSlots appends expanded availability slots for a provider. Publishing
// a template is additive; existing slots from earlier templates stay live.
func (r *Repository) InsertSlots(ctx context.Context, slots []model.AvailabilitySlot) error {
	if len(slots) == 0 {
		return nil
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, s := range slots {
		_, err := tx.Exec(ctx, `
			INSERT INTO availability_slots (id, provider_id, start_at, end_at, recurrence, weekdays, timezone)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, s.ID, s.ProviderID, s.StartAt, s.EndAt, string(s.Recurrence), weekdayInts(s.Weekdays), s.Timezone)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// ProviderIDsCoveringWindow answers the one-time search directly in SQL: a
// provider matches when some slot of theirs contains the requested window.
func (r *Repository) ProviderIDsCoveringWindow(ctx context.Context, start, end time.Time) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT provider_id::text
		FROM availability_slots
		WHERE start_at <= $1 AND end_at >= $2
		ORDER BY provider_id
	`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return ids, nil
}

// SlotsStartingBetween returns the candidate slots for the recurring search.
// The weekday and minute-of-day evaluation happens in Go against each slot's
// own time zone, so SQL only bounds the horizon.
func (r *Repository) SlotsStartingBetween(ctx context.Context, from, to time.Time) ([]model.AvailabilitySlot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, provider_id::text, start_at, end_at, recurrence, COALESCE(weekdays, '{}'), COALESCE(timezone, ''), created_at
		FROM availability_slots
		WHERE start_at >= $1 AND start_at <= $2
		ORDER BY start_at, id
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slots []model.AvailabilitySlot
	for rows.Next() {
		var s model.AvailabilitySlot
		var recurrence string
		var weekdays []int32
		if err := rows.Scan(&s.ID, &s.ProviderID, &s.StartAt, &s.EndAt, &recurrence, &weekdays, &s.Timezone, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.Recurrence = model.Recurrence(recurrence)
		s.Weekdays = intWeekdays(weekdays)
		slots = append(slots, s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return slots, nil
}
