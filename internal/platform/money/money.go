// Package money bridges BigFin's int64-cents ledger storage type with the
// handful of calculations that need fractional precision before rounding
// to a whole cent — interest accrual from a basis-point APR, and
// human-readable formatting. The ledger itself never holds a
// decimal.Decimal; this package is the only place one appears.
package money

import "github.com/shopspring/decimal"

// DailyInterestCents computes one day's simple interest accrual on a
// principal balance, given an APR in basis points, rounded half-up to the
// nearest cent.
func DailyInterestCents(principalCents int64, aprBps int, daysInYear int) int64 {
	if daysInYear <= 0 {
		daysInYear = 365
	}
	principal := decimal.NewFromInt(principalCents)
	rate := decimal.NewFromInt(int64(aprBps)).Div(decimal.NewFromInt(10000))
	daily := principal.Mul(rate).Div(decimal.NewFromInt(int64(daysInYear)))
	return daily.Round(0).IntPart()
}

// PeriodInterestCents computes interest accrued over periodsPerYear
// sub-periods of a year (e.g. 12 for monthly), rounded half-up.
func PeriodInterestCents(principalCents int64, aprBps int, periodsPerYear int) int64 {
	if periodsPerYear <= 0 {
		periodsPerYear = 12
	}
	principal := decimal.NewFromInt(principalCents)
	rate := decimal.NewFromInt(int64(aprBps)).Div(decimal.NewFromInt(10000))
	perPeriod := principal.Mul(rate).Div(decimal.NewFromInt(int64(periodsPerYear)))
	return perPeriod.Round(0).IntPart()
}

// FormatCents renders an integer cents amount as a human-readable decimal
// string with two fraction digits, e.g. 150000 -> "1500.00".
func FormatCents(cents int64) string {
	return decimal.NewFromInt(cents).Div(decimal.NewFromInt(100)).StringFixed(2)
}
