package services_test

import (
	"testing"

	"github.com/bigfin/core/internal/core/domain"
	"github.com/bigfin/core/internal/core/services"
	"github.com/stretchr/testify/assert"
)

func TestApplyWaterfall_OrdersFeesInterestPrincipal(t *testing.T) {
	balances := domain.ContractBalances{FeesCents: 500, InterestCents: 1000, PrincipalCents: 50000}

	split := services.ApplyWaterfall(700, balances)

	assert.Equal(t, int64(500), split.AppliedFeeCents)
	assert.Equal(t, int64(200), split.AppliedInterestCents)
	assert.Equal(t, int64(0), split.AppliedPrincipalCents)
}

func TestApplyWaterfall_FullyCoversEveryBucket(t *testing.T) {
	balances := domain.ContractBalances{FeesCents: 500, InterestCents: 1000, PrincipalCents: 50000}

	split := services.ApplyWaterfall(51500, balances)

	assert.Equal(t, int64(500), split.AppliedFeeCents)
	assert.Equal(t, int64(1000), split.AppliedInterestCents)
	assert.Equal(t, int64(50000), split.AppliedPrincipalCents)
}

// Overpayment beyond every outstanding balance defaults to principal
// (prepayment).
func TestApplyWaterfall_OverpaymentDefaultsToPrincipal(t *testing.T) {
	balances := domain.ContractBalances{FeesCents: 500, InterestCents: 1000, PrincipalCents: 50000}

	split := services.ApplyWaterfall(60000, balances)

	assert.Equal(t, int64(500), split.AppliedFeeCents)
	assert.Equal(t, int64(1000), split.AppliedInterestCents)
	assert.Equal(t, int64(58500), split.AppliedPrincipalCents)
}

func TestApplyWaterfall_SplitNeverExceedsAmount(t *testing.T) {
	balances := domain.ContractBalances{FeesCents: 100, InterestCents: 200, PrincipalCents: 300}

	split := services.ApplyWaterfall(50, balances)

	total := split.AppliedFeeCents + split.AppliedInterestCents + split.AppliedPrincipalCents
	assert.Equal(t, int64(50), total)
}

func TestApplyWaterfall_ZeroAmount(t *testing.T) {
	balances := domain.ContractBalances{FeesCents: 100, InterestCents: 200, PrincipalCents: 300}

	split := services.ApplyWaterfall(0, balances)

	assert.Equal(t, services.WaterfallSplit{}, split)
}
