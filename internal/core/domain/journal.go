package domain

import "time"

// JournalType classifies the economic event a journal represents.
type JournalType string

const (
	JournalDisbursement    JournalType = "DISBURSEMENT"
	JournalRepayment       JournalType = "REPAYMENT"
	JournalFeeAssessment   JournalType = "FEE_ASSESSMENT"
	JournalInterestAccrual JournalType = "INTEREST_ACCRUAL"
	JournalAdjustment      JournalType = "ADJUSTMENT"
	JournalReversal        JournalType = "REVERSAL"
)

// EntryType indicates whether an entry line is a debit or a credit.
type EntryType string

const (
	Debit  EntryType = "DEBIT"
	Credit EntryType = "CREDIT"
)

// Journal is an append-only unit of posting. It is never mutated after
// creation except to record the id of the journal that reverses it.
type Journal struct {
	ID                  string      `json:"id"`
	TenantID            string      `json:"tenantID"`
	ContractID          *string     `json:"contractID,omitempty"` // nullable: some prefund journals are contract-free
	Type                JournalType `json:"type"`
	Description         string      `json:"description"`
	IsReversal          bool        `json:"isReversal"`
	ReversesJournalID   *string     `json:"reversesJournalID,omitempty"`
	ReversedByJournalID *string     `json:"reversedByJournalID,omitempty"`
	ReversalReason      *string     `json:"reversalReason,omitempty"`
	Entries             []Entry     `json:"entries,omitempty"`
	CreatedAt           time.Time   `json:"createdAt"`
	CreatedBy           string      `json:"createdBy"`
}

// Entry is a single debit/credit line item within a journal.
type Entry struct {
	JournalID         string    `json:"journalID"`
	AccountCode       string    `json:"accountCode"`
	DebitCents        int64     `json:"debitCents"`
	CreditCents       int64     `json:"creditCents"`
	BalanceAfterCents int64     `json:"balanceAfterCents"`
	CreatedAt         time.Time `json:"createdAt"`
}

// IsDebit reports whether this entry is a debit line.
func (e Entry) IsDebit() bool { return e.DebitCents != 0 }

// TrialBalanceLine is one row of a trial balance report.
type TrialBalanceLine struct {
	AccountCode string `json:"accountCode"`
	DebitCents  int64  `json:"debitCents"`
	CreditCents int64  `json:"creditCents"`
	NetCents    int64  `json:"netCents"`
}

// TrialBalance is the aggregate report over a tenant's ledger.
type TrialBalance struct {
	Lines        []TrialBalanceLine `json:"lines"`
	TotalDebits  int64              `json:"totalDebits"`
	TotalCredits int64              `json:"totalCredits"`
	IsBalanced   bool               `json:"isBalanced"`
}

// ContractBalances summarizes a loan contract's three outstanding buckets.
type ContractBalances struct {
	PrincipalCents int64 `json:"principalCents"`
	InterestCents  int64 `json:"interestCents"`
	FeesCents      int64 `json:"feesCents"`
	TotalCents     int64 `json:"totalCents"`
}
