package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/helpmarket/platform/services/marketplace-service/internal/availability"
	"github.com/helpmarket/platform/services/marketplace-service/internal/model"
)

type publishAvailabilityRequest struct {
	ProviderID string `json:"provider_id"`
	StartAt    string `json:"start_at"`
	EndAt      string `json:"end_at"`
	Recurrence string `json:"recurrence"`
	Weekdays   []int  `json:"weekdays"`
	Timezone   string `json:"timezone"`
	DaysAhead  int    `json:"days_ahead"`
}

// PublishAvailability expands an availability template into concrete slots
// and appends them. Publishing is additive; earlier slots stay live.
func (h *Handler) PublishAvailability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req publishAvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	req.ProviderID = strings.TrimSpace(req.ProviderID)
	if req.ProviderID == "" {
		http.Error(w, "provider_id is required", http.StatusBadRequest)
		return
	}
	startAt, err := time.Parse(time.RFC3339, req.StartAt)
	if err != nil {
		http.Error(w, "invalid start_at", http.StatusBadRequest)
		return
	}
	endAt, err := time.Parse(time.RFC3339, req.EndAt)
	if err != nil {
		http.Error(w, "invalid end_at", http.StatusBadRequest)
		return
	}
	recurrence, err := model.ParseRecurrence(req.Recurrence)
	if err != nil {
		http.Error(w, "invalid recurrence", http.StatusBadRequest)
		return
	}
	weekdays, err := parseWeekdayInts(req.Weekdays)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	tpl := model.AvailabilityTemplate{
		ProviderID: req.ProviderID,
		StartAt:    startAt,
		EndAt:      endAt,
		Recurrence: recurrence,
		Weekdays:   weekdays,
		Timezone:   strings.TrimSpace(req.Timezone),
	}

	horizon := req.DaysAhead
	if horizon <= 0 {
		horizon = h.slotHorizonDays
	}

	slots, err := availability.Expand(tpl, time.Now().UTC(), horizon)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.repo.InsertSlots(r.Context(), slots); err != nil {
		h.logger.Error("slot insert failed", "provider_id", req.ProviderID, "err", err)
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	h.logger.Info("availability published",
		"provider_id", req.ProviderID,
		"recurrence", string(recurrence),
		"slots", len(slots),
	)
	writeJSON(w, http.StatusCreated, map[string]any{"slots_created": len(slots)})
}

// SearchProviders answers one of two exclusive modes:
//   - window: ?start=RFC3339&end=RFC3339, SQL containment
//   - recurring: ?time=HH:MM&weekdays=1,3, evaluated in each slot's own zone
func (h *Handler) SearchProviders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	hasWindow := q.Get("start") != "" || q.Get("end") != ""
	hasRecurring := q.Get("time") != "" || q.Get("weekdays") != ""

	switch {
	case hasWindow && hasRecurring:
		http.Error(w, availability.ErrConflictingMode.Error(), http.StatusBadRequest)
		return

	case hasWindow:
		start, err := time.Parse(time.RFC3339, q.Get("start"))
		if err != nil {
			http.Error(w, "invalid start", http.StatusBadRequest)
			return
		}
		end, err := time.Parse(time.RFC3339, q.Get("end"))
		if err != nil {
			http.Error(w, "invalid end", http.StatusBadRequest)
			return
		}
		if !end.After(start) {
			http.Error(w, availability.ErrInvalidWindow.Error(), http.StatusBadRequest)
			return
		}
		ids, err := h.repo.ProviderIDsCoveringWindow(r.Context(), start, end)
		if err != nil {
			h.logger.Error("window search failed", "err", err)
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, searchResponse("window", ids))

	case hasRecurring:
		minute, err := parseMinuteOfDay(q.Get("time"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		weekdays, err := parseWeekdayCSV(q.Get("weekdays"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		now := time.Now().UTC()
		slots, err := h.repo.SlotsStartingBetween(r.Context(), now.AddDate(0, 0, -1), now.AddDate(0, 0, h.searchHorizonDays))
		if err != nil {
			h.logger.Error("recurring search failed", "err", err)
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}

		res, err := availability.Match(slots, availability.SearchQuery{
			Recurring: &availability.RecurringQuery{MinuteOfDay: minute, Weekdays: weekdays},
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		ids := make([]string, 0, len(res.ProviderIDs))
		for id := range res.ProviderIDs {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		writeJSON(w, http.StatusOK, searchResponse("recurring", ids))

	default:
		http.Error(w, "search criteria required: window (start, end) or recurring (time, weekdays)", http.StatusBadRequest)
	}
}

func searchResponse(mode string, ids []string) map[string]any {
	if ids == nil {
		ids = []string{}
	}
	return map[string]any{"mode": mode, "provider_ids": ids}
}

func parseWeekdayInts(raw []int) ([]time.Weekday, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]time.Weekday, 0, len(raw))
	for _, v := range raw {
		if v < 0 || v > 6 {
			return nil, errors.New("weekdays must be 0 (Sunday) through 6 (Saturday)")
		}
		out = append(out, time.Weekday(v))
	}
	return out, nil
}

func parseWeekdayCSV(raw string) ([]time.Weekday, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, errors.New("weekdays is required for a recurring search")
	}
	parts := strings.Split(raw, ",")
	ints := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, errors.New("weekdays must be a comma-separated list of 0-6")
		}
		ints = append(ints, v)
	}
	return parseWeekdayInts(ints)
}

// parseMinuteOfDay converts "HH:MM" to minutes since local midnight.
func parseMinuteOfDay(raw string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(raw))
	if err != nil {
		return 0, errors.New("time must be HH:MM (24-hour)")
	}
	return t.Hour()*60 + t.Minute(), nil
}
