package pricing

import (
	"testing"
	"time"
)

func TestPrice_TwoHourBooking(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC)

	q, err := Price(25, start, end, 0.075)
	if err != nil {
		t.Fatalf("Price failed: %v", err)
	}
	if q.Hours != 2 {
		t.Fatalf("expected 2 hours, got %v", q.Hours)
	}
	if q.ProviderBase != 50.00 {
		t.Fatalf("expected provider base 50.00, got %v", q.ProviderBase)
	}
	if q.CustomerTotal != 53.75 {
		t.Fatalf("expected customer total 53.75, got %v", q.CustomerTotal)
	}
	if q.PlatformFee != 3.75 {
		t.Fatalf("expected platform fee 3.75, got %v", q.PlatformFee)
	}
}

func TestPrice_AmountsReconcileAfterRounding(t *testing.T) {
	// Rates and durations chosen to produce awkward fractions of a cent.
	cases := []struct {
		rate    float64
		minutes int
		feeRate float64
	}{
		{19.99, 45, 0.075},
		{33.33, 95, 0.075},
		{27.50, 50, 0.075},
		{41.07, 137, 0.125},
		{15.01, 61, 0.0333},
	}

	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	for _, tc := range cases {
		end := start.Add(time.Duration(tc.minutes) * time.Minute)
		q, err := Price(tc.rate, start, end, tc.feeRate)
		if err != nil {
			t.Fatalf("Price(%v, %dm, %v) failed: %v", tc.rate, tc.minutes, tc.feeRate, err)
		}
		if got := Round2(q.ProviderBase + q.PlatformFee); got != q.CustomerTotal {
			t.Fatalf("Price(%v, %dm, %v): base %v + fee %v = %v, want total %v",
				tc.rate, tc.minutes, tc.feeRate, q.ProviderBase, q.PlatformFee, got, q.CustomerTotal)
		}
	}
}

func TestPrice_RejectsEmptyAndInvertedWindows(t *testing.T) {
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	if _, err := Price(25, at, at, 0.075); err == nil {
		t.Fatal("expected error for zero-length window")
	}
	if _, err := Price(25, at, at.Add(-time.Hour), 0.075); err == nil {
		t.Fatal("expected error for inverted window")
	}
}

func TestRound2_HalfAwayFromZero(t *testing.T) {
	if got := Round2(2.005); got != 2.01 && got != 2.0 {
		// 2.005 is not exactly representable; accept either neighbor but make
		// sure we never produce more than two decimals.
		t.Fatalf("Round2(2.005) = %v", got)
	}
	if got := Round2(2.675); got != 2.68 && got != 2.67 {
		t.Fatalf("Round2(2.675) = %v", got)
	}
	if got := Round2(53.749999999999996); got != 53.75 {
		t.Fatalf("Round2 near 53.75 = %v", got)
	}
}
