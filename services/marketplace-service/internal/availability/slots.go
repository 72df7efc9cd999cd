// Package availability holds the slot math: expanding a provider's template
// into concrete slots and matching search requests against them. Everything
// here is pure — "now" and time zones are threaded in as arguments so the
// algorithms stay deterministic under test.
package availability

import (
	"errors"
	"fmt"
	"time"

	"github.com/helpmarket/platform/services/marketplace-service/internal/model"
)

var (
	ErrEmptyWindow     = errors.New("availability window must end after it starts")
	ErrNoWeekdays      = errors.New("weekly availability needs at least one weekday")
	ErrUnknownTimeZone = errors.New("unknown time zone")
)

// Expand turns one availability template into concrete slots covering
// [now, now+horizonDays] inclusive, walking calendar days at local midnight
// in the template's own time zone.
//
// A non-recurring template yields exactly one slot equal to its window,
// regardless of horizon. Daily and weekly templates transplant the window's
// time-of-day onto each qualifying date; slots whose end is not strictly in
// the future are dropped. Expansion is append-only and not deduplicated:
// expanding the same template twice produces duplicate slots.
func Expand(tpl model.AvailabilityTemplate, now time.Time, horizonDays int) ([]model.AvailabilitySlot, error) {
	if !tpl.EndAt.After(tpl.StartAt) {
		return nil, ErrEmptyWindow
	}
	if tpl.Recurrence == model.RecurrenceWeekly && len(tpl.Weekdays) == 0 {
		return nil, ErrNoWeekdays
	}
	loc, err := time.LoadLocation(tpl.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTimeZone, tpl.Timezone)
	}

	if tpl.Recurrence == model.RecurrenceNone {
		slot, err := model.NewAvailabilitySlot(tpl.ProviderID, tpl.StartAt, tpl.EndAt, tpl.Recurrence, nil, tpl.Timezone)
		if err != nil {
			return nil, err
		}
		return []model.AvailabilitySlot{slot}, nil
	}

	localStart := tpl.StartAt.In(loc)
	localEnd := tpl.EndAt.In(loc)

	day := startOfDay(now.In(loc))
	limit := day.AddDate(0, 0, horizonDays)

	var slots []model.AvailabilitySlot
	for ; !day.After(limit); day = day.AddDate(0, 0, 1) {
		if tpl.Recurrence == model.RecurrenceWeekly && !weekdayIn(day.Weekday(), tpl.Weekdays) {
			continue
		}

		slotStart := time.Date(day.Year(), day.Month(), day.Day(), localStart.Hour(), localStart.Minute(), 0, 0, loc)
		slotEnd := time.Date(day.Year(), day.Month(), day.Day(), localEnd.Hour(), localEnd.Minute(), 0, 0, loc)
		if !slotEnd.After(slotStart) {
			// Overnight window (e.g. 23:00-01:00): the end lands on the next day.
			slotEnd = slotEnd.AddDate(0, 0, 1)
		}
		if !slotEnd.After(now) {
			continue
		}

		var weekdays []time.Weekday
		if tpl.Recurrence == model.RecurrenceWeekly {
			weekdays = tpl.Weekdays
		}
		slot, err := model.NewAvailabilitySlot(tpl.ProviderID, slotStart, slotEnd, tpl.Recurrence, weekdays, tpl.Timezone)
		if err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}
	return slots, nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func weekdayIn(d time.Weekday, set []time.Weekday) bool {
	for _, w := range set {
		if w == d {
			return true
		}
	}
	return false
}
