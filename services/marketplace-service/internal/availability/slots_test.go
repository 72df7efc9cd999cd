package availability

import (
	"errors"
	"testing"
	"time"

	"github.com/helpmarket/platform/services/marketplace-service/internal/model"
)

// 2026-03-02 is a Monday.
var testNow = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

func oneTimeTemplate() model.AvailabilityTemplate {
	return model.AvailabilityTemplate{
		ProviderID: "prov-1",
		StartAt:    time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		EndAt:      time.Date(2026, 3, 10, 11, 0, 0, 0, time.UTC),
		Recurrence: model.RecurrenceNone,
		Timezone:   "UTC",
	}
}

func TestExpand_NoneEmitsSingleSlot(t *testing.T) {
	tpl := oneTimeTemplate()

	for _, horizon := range []int{0, 7, 365} {
		slots, err := Expand(tpl, testNow, horizon)
		if err != nil {
			t.Fatalf("Expand(horizon=%d) failed: %v", horizon, err)
		}
		if len(slots) != 1 {
			t.Fatalf("Expand(horizon=%d): expected 1 slot, got %d", horizon, len(slots))
		}
		if !slots[0].StartAt.Equal(tpl.StartAt) || !slots[0].EndAt.Equal(tpl.EndAt) {
			t.Fatalf("slot window %s-%s does not equal template window", slots[0].StartAt, slots[0].EndAt)
		}
	}
}

func TestExpand_DailyTransplantsTimeOfDayAndSkipsElapsed(t *testing.T) {
	tpl := model.AvailabilityTemplate{
		ProviderID: "prov-1",
		StartAt:    time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		EndAt:      time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC),
		Recurrence: model.RecurrenceDaily,
		Timezone:   "UTC",
	}

	slots, err := Expand(tpl, testNow, 7)
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}
	// 8 calendar days in the horizon; today's occurrence ended at 11:00, before
	// now (12:00), so it is dropped.
	if len(slots) != 7 {
		t.Fatalf("expected 7 slots, got %d", len(slots))
	}
	for _, s := range slots {
		if s.StartAt.Hour() != 9 || s.EndAt.Hour() != 11 {
			t.Fatalf("slot %s-%s lost the template's time of day", s.StartAt, s.EndAt)
		}
		if !s.EndAt.After(testNow) {
			t.Fatalf("slot ending %s is already elapsed", s.EndAt)
		}
	}
	if !slots[0].StartAt.Equal(time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("first slot should be tomorrow 09:00, got %s", slots[0].StartAt)
	}
}

func TestExpand_WeeklyEmitsOnlyConfiguredWeekdays(t *testing.T) {
	tpl := model.AvailabilityTemplate{
		ProviderID: "prov-1",
		StartAt:    time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		EndAt:      time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC),
		Recurrence: model.RecurrenceWeekly,
		Weekdays:   []time.Weekday{time.Monday, time.Wednesday},
		Timezone:   "UTC",
	}

	slots, err := Expand(tpl, testNow, 14)
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}
	// Mar 2..16 holds Mondays 2, 9, 16 and Wednesdays 4, 11; Monday the 2nd is
	// already elapsed at noon.
	if len(slots) != 4 {
		t.Fatalf("expected 4 slots, got %d", len(slots))
	}
	for _, s := range slots {
		wd := s.StartAt.Weekday()
		if wd != time.Monday && wd != time.Wednesday {
			t.Fatalf("slot on %s violates the weekday set", wd)
		}
		if !s.EndAt.After(testNow) {
			t.Fatalf("slot ending %s is in the past", s.EndAt)
		}
	}
}

func TestExpand_UsesTemplateTimeZoneForDays(t *testing.T) {
	// 14:00 UTC is 09:00 in New York (EST). The local time of day must be
	// preserved across the horizon, not the UTC clock reading.
	tpl := model.AvailabilityTemplate{
		ProviderID: "prov-1",
		StartAt:    time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC),
		EndAt:      time.Date(2026, 3, 2, 16, 0, 0, 0, time.UTC),
		Recurrence: model.RecurrenceDaily,
		Timezone:   "America/New_York",
	}

	slots, err := Expand(tpl, testNow, 10)
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}
	loc, _ := time.LoadLocation("America/New_York")
	for _, s := range slots {
		local := s.StartAt.In(loc)
		if local.Hour() != 9 || local.Minute() != 0 {
			t.Fatalf("slot starts %s local, want 09:00", local.Format("15:04"))
		}
	}
}

func TestExpand_OvernightWindowEndsNextDay(t *testing.T) {
	tpl := model.AvailabilityTemplate{
		ProviderID: "prov-1",
		StartAt:    time.Date(2026, 3, 2, 23, 0, 0, 0, time.UTC),
		EndAt:      time.Date(2026, 3, 3, 1, 0, 0, 0, time.UTC),
		Recurrence: model.RecurrenceDaily,
		Timezone:   "UTC",
	}

	slots, err := Expand(tpl, testNow, 3)
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}
	if len(slots) == 0 {
		t.Fatal("expected slots")
	}
	for _, s := range slots {
		if !s.EndAt.After(s.StartAt) {
			t.Fatalf("slot %s-%s violates end > start", s.StartAt, s.EndAt)
		}
		if got := s.EndAt.Sub(s.StartAt); got != 2*time.Hour {
			t.Fatalf("expected 2h duration, got %s", got)
		}
	}
}

func TestExpand_RejectsInvalidTemplates(t *testing.T) {
	tpl := oneTimeTemplate()
	tpl.EndAt = tpl.StartAt
	if _, err := Expand(tpl, testNow, 7); !errors.Is(err, ErrEmptyWindow) {
		t.Fatalf("expected ErrEmptyWindow, got %v", err)
	}

	tpl = oneTimeTemplate()
	tpl.Recurrence = model.RecurrenceWeekly
	tpl.Weekdays = nil
	if _, err := Expand(tpl, testNow, 7); !errors.Is(err, ErrNoWeekdays) {
		t.Fatalf("expected ErrNoWeekdays, got %v", err)
	}

	tpl = oneTimeTemplate()
	tpl.Timezone = "Mars/Olympus_Mons"
	if _, err := Expand(tpl, testNow, 7); !errors.Is(err, ErrUnknownTimeZone) {
		t.Fatalf("expected ErrUnknownTimeZone, got %v", err)
	}
}
