// Package risk holds the capital kill-switch arithmetic. Everything here is
// a pure function of the balances the controller supplies.
package risk

import "github.com/shopspring/decimal"

// ProfitRatio returns (current - baseline) / baseline. A zero baseline yields
// zero rather than dividing by it.
func ProfitRatio(baseline, current decimal.Decimal) decimal.Decimal {
	if baseline.IsZero() {
		return decimal.Zero
	}
	return current.Sub(baseline).Div(baseline)
}

// ShouldHalt reports whether the profit ratio breaches the halt threshold.
// The breach is strict: a ratio exactly at the threshold does not halt.
func ShouldHalt(ratio, threshold decimal.Decimal) bool {
	return ratio.LessThan(threshold)
}

// DailyProfit returns current - reference, the day-over-day balance move used
// for the daily report. The reference is the previous day's closing balance,
// not the process-start baseline.
func DailyProfit(reference, current decimal.Decimal) decimal.Decimal {
	return current.Sub(reference)
}
