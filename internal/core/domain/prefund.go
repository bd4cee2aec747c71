package domain

import "time"

// PrefundType classifies a custodial prefund ledger entry.
type PrefundType string

const (
	PrefundDeposit            PrefundType = "DEPOSIT"
	PrefundWithdrawal         PrefundType = "WITHDRAWAL"
	PrefundFee                PrefundType = "FEE"
	PrefundDisbursementHold   PrefundType = "DISBURSEMENT_HOLD"
	PrefundDisbursementRelease PrefundType = "DISBURSEMENT_RELEASE"
)

// Sign returns +1 for a balance increase or -1 for a balance decrease.
func (t PrefundType) Sign() int64 {
	switch t {
	case PrefundDeposit, PrefundDisbursementRelease:
		return 1
	default:
		return -1
	}
}

// PrefundTransaction is an audit-trail row for a per-customer (lender)
// custodial balance.
type PrefundTransaction struct {
	ID                 string         `json:"id"`
	CustomerID         string         `json:"customerID"`
	Type               PrefundType    `json:"type"`
	AmountCents        int64          `json:"amountCents"`
	Status             TransferStatus `json:"status"`
	BalanceAfterCents   int64         `json:"balanceAfterCents"`
	AvailableAfterCents int64         `json:"availableAfterCents"`
	CreatedAt          time.Time      `json:"createdAt"`
}
