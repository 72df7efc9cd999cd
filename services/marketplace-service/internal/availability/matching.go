package availability

import (
	"errors"
	"time"

	"github.com/helpmarket/platform/services/marketplace-service/internal/model"
)

var (
	ErrInvalidWindow   = errors.New("search window must end after it starts")
	ErrInvalidTime     = errors.New("requested time must be within 00:00-23:59")
	ErrConflictingMode = errors.New("window and recurring criteria cannot be combined")
)

// WindowQuery asks for providers with a slot fully covering [Start, End).
type WindowQuery struct {
	Start time.Time
	End   time.Time
}

// RecurringQuery asks for providers covering a clock time on every one of a
// set of weekdays, evaluated in each slot's own time zone.
type RecurringQuery struct {
	MinuteOfDay int // minutes since local midnight, e.g. 10:00 -> 600
	Weekdays    []time.Weekday
}

// SearchQuery selects exactly one mode by presence. Neither set means "do not
// filter", which callers must distinguish from "filtered, nobody matched".
type SearchQuery struct {
	Window    *WindowQuery
	Recurring *RecurringQuery
}

// MatchResult carries the distinction between an unfiltered search
// (Filtered=false, nil set) and a filter that nobody satisfied.
type MatchResult struct {
	Filtered    bool
	ProviderIDs map[string]struct{}
}

// Match evaluates a search query against candidate slots. Callers bound the
// candidate set to the search horizon; Match itself is pure.
func Match(slots []model.AvailabilitySlot, q SearchQuery) (MatchResult, error) {
	switch {
	case q.Window != nil && q.Recurring != nil:
		return MatchResult{}, ErrConflictingMode
	case q.Window != nil:
		if !q.Window.End.After(q.Window.Start) {
			return MatchResult{}, ErrInvalidWindow
		}
		return MatchResult{Filtered: true, ProviderIDs: windowProviders(slots, q.Window.Start, q.Window.End)}, nil
	case q.Recurring != nil:
		if q.Recurring.MinuteOfDay < 0 || q.Recurring.MinuteOfDay >= 24*60 {
			return MatchResult{}, ErrInvalidTime
		}
		if len(q.Recurring.Weekdays) == 0 {
			return MatchResult{}, ErrNoWeekdays
		}
		ids, err := recurringProviders(slots, q.Recurring.Weekdays, q.Recurring.MinuteOfDay)
		if err != nil {
			return MatchResult{}, err
		}
		return MatchResult{Filtered: true, ProviderIDs: ids}, nil
	default:
		return MatchResult{Filtered: false}, nil
	}
}

// windowProviders returns providers with at least one slot that covers the
// whole requested interval: slot.start <= start && slot.end >= end.
func windowProviders(slots []model.AvailabilitySlot, start, end time.Time) map[string]struct{} {
	out := map[string]struct{}{}
	for _, s := range slots {
		if !s.StartAt.After(start) && !s.EndAt.Before(end) {
			out[s.ProviderID] = struct{}{}
		}
	}
	return out
}

// recurringProviders accumulates, per provider, the weekdays on which some
// slot contains the requested clock time, then keeps providers whose covered
// set includes every requested weekday (AND across weekdays, OR across each
// weekday's slots).
func recurringProviders(slots []model.AvailabilitySlot, weekdays []time.Weekday, minuteOfDay int) (map[string]struct{}, error) {
	covered := map[string]map[time.Weekday]struct{}{}

	for _, s := range slots {
		loc, err := time.LoadLocation(s.Timezone)
		if err != nil {
			return nil, ErrUnknownTimeZone
		}

		localStart := s.StartAt.In(loc)
		localEnd := s.EndAt.In(loc)

		dow := localStart.Weekday()
		if !weekdayIn(dow, weekdays) {
			continue
		}

		stMin := localStart.Hour()*60 + localStart.Minute()
		enMin := localEnd.Hour()*60 + localEnd.Minute()
		if !containsMinute(stMin, enMin, minuteOfDay) {
			continue
		}

		set := covered[s.ProviderID]
		if set == nil {
			set = map[time.Weekday]struct{}{}
			covered[s.ProviderID] = set
		}
		set[dow] = struct{}{}
	}

	out := map[string]struct{}{}
	for providerID, days := range covered {
		all := true
		for _, w := range weekdays {
			if _, ok := days[w]; !ok {
				all = false
				break
			}
		}
		if all {
			out[providerID] = struct{}{}
		}
	}
	return out, nil
}

// containsMinute reports whether the local range [stMin, enMin) contains the
// requested minute. A range that wraps past midnight (enMin < stMin, e.g.
// 23:00-01:00) contains minutes on either side of the wrap.
func containsMinute(stMin, enMin, req int) bool {
	if enMin < stMin {
		return req >= stMin || req < enMin
	}
	return stMin <= req && req < enMin
}
