package availability

import (
	"errors"
	"testing"
	"time"

	"github.com/helpmarket/platform/services/marketplace-service/internal/model"
)

func slot(t *testing.T, provider string, start, end time.Time, tz string) model.AvailabilitySlot {
	t.Helper()
	s, err := model.NewAvailabilitySlot(provider, start, end, model.RecurrenceWeekly, nil, tz)
	if err != nil {
		t.Fatalf("building slot: %v", err)
	}
	return s
}

func TestMatch_NoCriteriaMeansUnfiltered(t *testing.T) {
	res, err := Match(nil, SearchQuery{})
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if res.Filtered {
		t.Fatal("empty query must not filter")
	}
	if res.ProviderIDs != nil {
		t.Fatal("unfiltered result should carry no set")
	}
}

func TestMatch_WindowIsReflexive(t *testing.T) {
	start := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 9, 11, 0, 0, 0, time.UTC)
	slots := []model.AvailabilitySlot{slot(t, "prov-1", start, end, "UTC")}

	res, err := Match(slots, SearchQuery{Window: &WindowQuery{Start: start, End: end}})
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if !res.Filtered {
		t.Fatal("window query must filter")
	}
	if _, ok := res.ProviderIDs["prov-1"]; !ok {
		t.Fatal("slot must match a request equal to itself")
	}
}

func TestMatch_WindowWiderThanSlotMatchesNothing(t *testing.T) {
	start := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 9, 11, 0, 0, 0, time.UTC)
	slots := []model.AvailabilitySlot{slot(t, "prov-1", start, end, "UTC")}

	res, err := Match(slots, SearchQuery{Window: &WindowQuery{
		Start: start.Add(-time.Minute),
		End:   end.Add(time.Minute),
	}})
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if len(res.ProviderIDs) != 0 {
		t.Fatal("a request wider than every slot must match nothing")
	}
}

func TestMatch_WindowRejectsInvertedInterval(t *testing.T) {
	at := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)
	_, err := Match(nil, SearchQuery{Window: &WindowQuery{Start: at, End: at}})
	if !errors.Is(err, ErrInvalidWindow) {
		t.Fatalf("expected ErrInvalidWindow, got %v", err)
	}
}

func TestMatch_RecurringRequiresEveryRequestedWeekday(t *testing.T) {
	// Monday March 9 and Wednesday March 11, both 09:00-11:00 UTC.
	slots := []model.AvailabilitySlot{
		slot(t, "prov-1", time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC), time.Date(2026, 3, 9, 11, 0, 0, 0, time.UTC), "UTC"),
		slot(t, "prov-1", time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC), time.Date(2026, 3, 11, 11, 0, 0, 0, time.UTC), "UTC"),
	}

	monWed := SearchQuery{Recurring: &RecurringQuery{MinuteOfDay: 10 * 60, Weekdays: []time.Weekday{time.Monday, time.Wednesday}}}
	res, err := Match(slots, monWed)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if _, ok := res.ProviderIDs["prov-1"]; !ok {
		t.Fatal("provider covering Mon and Wed at 10:00 must match {Mon,Wed}")
	}

	monTue := SearchQuery{Recurring: &RecurringQuery{MinuteOfDay: 10 * 60, Weekdays: []time.Weekday{time.Monday, time.Tuesday}}}
	res, err = Match(slots, monTue)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if len(res.ProviderIDs) != 0 {
		t.Fatal("provider without Tuesday coverage must not match {Mon,Tue}")
	}
}

func TestMatch_RecurringBoundaryIsHalfOpen(t *testing.T) {
	slots := []model.AvailabilitySlot{
		slot(t, "prov-1", time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC), time.Date(2026, 3, 9, 11, 0, 0, 0, time.UTC), "UTC"),
	}

	at := func(min int) bool {
		res, err := Match(slots, SearchQuery{Recurring: &RecurringQuery{MinuteOfDay: min, Weekdays: []time.Weekday{time.Monday}}})
		if err != nil {
			t.Fatalf("Match failed: %v", err)
		}
		_, ok := res.ProviderIDs["prov-1"]
		return ok
	}

	if !at(9 * 60) {
		t.Fatal("09:00 is inside [09:00, 11:00)")
	}
	if at(11 * 60) {
		t.Fatal("11:00 is outside [09:00, 11:00)")
	}
}

func TestMatch_RecurringEvaluatesSlotTimeZone(t *testing.T) {
	// Stored as 2026-03-05 03:00-05:00 UTC, which is Wednesday 22:00-24:00 in
	// New York. The match must see the local weekday and clock, not UTC's
	// Thursday small hours.
	slots := []model.AvailabilitySlot{
		slot(t, "prov-1",
			time.Date(2026, 3, 5, 3, 0, 0, 0, time.UTC),
			time.Date(2026, 3, 5, 5, 0, 0, 0, time.UTC),
			"America/New_York"),
	}

	res, err := Match(slots, SearchQuery{Recurring: &RecurringQuery{MinuteOfDay: 22*60 + 30, Weekdays: []time.Weekday{time.Wednesday}}})
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if _, ok := res.ProviderIDs["prov-1"]; !ok {
		t.Fatal("expected a Wednesday 22:30 local match")
	}

	res, err = Match(slots, SearchQuery{Recurring: &RecurringQuery{MinuteOfDay: 22*60 + 30, Weekdays: []time.Weekday{time.Thursday}}})
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if len(res.ProviderIDs) != 0 {
		t.Fatal("UTC weekday must not leak into the match")
	}
}

func TestMatch_RecurringOvernightWrap(t *testing.T) {
	// Local 23:00 Monday through 01:00 Tuesday.
	slots := []model.AvailabilitySlot{
		slot(t, "prov-1",
			time.Date(2026, 3, 9, 23, 0, 0, 0, time.UTC),
			time.Date(2026, 3, 10, 1, 0, 0, 0, time.UTC),
			"UTC"),
	}

	check := func(min int, want bool) {
		res, err := Match(slots, SearchQuery{Recurring: &RecurringQuery{MinuteOfDay: min, Weekdays: []time.Weekday{time.Monday}}})
		if err != nil {
			t.Fatalf("Match failed: %v", err)
		}
		_, ok := res.ProviderIDs["prov-1"]
		if ok != want {
			t.Fatalf("minute %d: match=%v, want %v", min, ok, want)
		}
	}

	check(23*60+30, true) // 23:30, before the wrap
	check(30, true)       // 00:30, after the wrap
	check(22*60, false)   // 22:00, before the slot opens
	check(60, false)      // 01:00, closed boundary
}

func TestMatch_RejectsCombinedModes(t *testing.T) {
	q := SearchQuery{
		Window:    &WindowQuery{Start: time.Now(), End: time.Now().Add(time.Hour)},
		Recurring: &RecurringQuery{MinuteOfDay: 600, Weekdays: []time.Weekday{time.Monday}},
	}
	if _, err := Match(nil, q); !errors.Is(err, ErrConflictingMode) {
		t.Fatalf("expected ErrConflictingMode, got %v", err)
	}
}
