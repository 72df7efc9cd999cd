package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Recurrence is the repetition rule on an availability template.
type Recurrence string

const (
	RecurrenceNone   Recurrence = "none"
	RecurrenceDaily  Recurrence = "daily"
	RecurrenceWeekly Recurrence = "weekly"
)

func ParseRecurrence(s string) (Recurrence, error) {
	switch Recurrence(s) {
	case RecurrenceNone, RecurrenceDaily, RecurrenceWeekly:
		return Recurrence(s), nil
	}
	return "", fmt.Errorf("unknown recurrence %q", s)
}

// AvailabilityTemplate is a provider's input: one concrete window plus a
// recurrence rule. It is consumed by the slot generator and never persisted.
type AvailabilityTemplate struct {
	ProviderID string
	StartAt    time.Time
	EndAt      time.Time
	Recurrence Recurrence
	Weekdays   []time.Weekday // weekly only
	Timezone   string         // IANA name, e.g. "America/New_York"
}

// AvailabilitySlot is a concrete, dated interval during which a provider is
// available. Slots are append-only: generated in bulk, never updated or
// deleted, and never expire on their own.
type AvailabilitySlot struct {
	ID         string
	ProviderID string
	StartAt    time.Time
	EndAt      time.Time
	Recurrence Recurrence
	Weekdays   []time.Weekday // nil unless the source template was weekly
	Timezone   string
	CreatedAt  time.Time
}

// NewAvailabilitySlot builds a slot and enforces end > start.
func NewAvailabilitySlot(providerID string, start, end time.Time, rec Recurrence, weekdays []time.Weekday, tz string) (AvailabilitySlot, error) {
	if !end.After(start) {
		return AvailabilitySlot{}, fmt.Errorf("slot end %s is not after start %s", end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	return AvailabilitySlot{
		ID:         uuid.NewString(),
		ProviderID: providerID,
		StartAt:    start,
		EndAt:      end,
		Recurrence: rec,
		Weekdays:   weekdays,
		Timezone:   tz,
	}, nil
}
