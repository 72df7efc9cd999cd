// Package pricing computes the three linked amounts of a booking quote:
// what the provider earns, what the platform keeps, and what the customer
// pays. It is pure; the fee rate is configuration, not a constant here.
package pricing

import (
	"errors"
	"math"
	"time"
)

var ErrInvalidWindow = errors.New("end time must be after start time")

// Quote is the frozen price snapshot stored on a booking at creation.
type Quote struct {
	Hours         float64
	ProviderBase  float64
	PlatformFee   float64
	CustomerTotal float64
}

// Price derives a quote from an hourly rate and a time window.
//
// The platform fee is computed as round2(total) - round2(base) rather than
// rounded independently, so ProviderBase + PlatformFee == CustomerTotal holds
// exactly for every valid input.
func Price(hourlyRate float64, start, end time.Time, feeRate float64) (Quote, error) {
	hours := end.Sub(start).Seconds() / 3600
	if math.IsNaN(hours) || math.IsInf(hours, 0) || hours <= 0 {
		return Quote{}, ErrInvalidWindow
	}

	base := Round2(hourlyRate * hours)
	total := Round2(base * (1 + feeRate))
	fee := Round2(total - base)

	return Quote{
		Hours:         hours,
		ProviderBase:  base,
		PlatformFee:   fee,
		CustomerTotal: total,
	}, nil
}

// Round2 rounds to two decimal places, half away from zero.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}
