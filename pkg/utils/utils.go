package utils

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

const day = 24 * time.Hour

// DaysLate returns the whole days elapsed since due, rounding partial days up.
// A loan that is not yet due is 0 days late.
func DaysLate(due, now time.Time) int {
	if !now.After(due) {
		return 0
	}
	return int(math.Ceil(float64(now.Sub(due)) / float64(day)))
}

// DaysUntil returns the whole days left until due, rounding partial days up.
// Negative when due is in the past.
func DaysUntil(due, now time.Time) int {
	return int(math.Ceil(float64(due.Sub(now)) / float64(day)))
}

// FineAmount calculates days * ratePerDay, rounded to 2 places
func FineAmount(days int, ratePerDay decimal.Decimal) decimal.Decimal {
	if days <= 0 {
		return decimal.Zero
	}
	return ratePerDay.Mul(decimal.NewFromInt(int64(days))).Round(2)
}

// StartOfDay truncates t to midnight in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	y, m, d := local.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// AddDays adds n calendar days to t.
func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

// ToCents converts a 2-place amount into integer cents.
func ToCents(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
