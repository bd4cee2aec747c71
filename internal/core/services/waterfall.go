package services

import "github.com/bigfin/core/internal/core/domain"

// WaterfallSplit is the result of applying a repayment amount against a
// contract's outstanding balances.
type WaterfallSplit struct {
	AppliedFeeCents       int64
	AppliedInterestCents  int64
	AppliedPrincipalCents int64
}

// ApplyWaterfall splits amountCents across a contract's balances strictly
// in order fees -> interest -> principal, applying min(remaining, balance)
// at each step. Any residual after principal defaults to an additional
// principal decrement (prepayment).
func ApplyWaterfall(amountCents int64, balances domain.ContractBalances) WaterfallSplit {
	remaining := amountCents
	var split WaterfallSplit

	applied := min64(remaining, balances.FeesCents)
	split.AppliedFeeCents = applied
	remaining -= applied

	applied = min64(remaining, balances.InterestCents)
	split.AppliedInterestCents = applied
	remaining -= applied

	applied = min64(remaining, balances.PrincipalCents)
	split.AppliedPrincipalCents = applied
	remaining -= applied

	if remaining > 0 {
		split.AppliedPrincipalCents += remaining
	}

	return split
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
