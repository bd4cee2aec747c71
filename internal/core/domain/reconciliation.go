package domain

import "time"

// ExceptionType classifies a reconciliation discrepancy.
type ExceptionType string

const (
	ExceptionTransferStatus   ExceptionType = "transfer_status"
	ExceptionTransferMissing  ExceptionType = "transfer_missing"
	ExceptionTransferOrphaned ExceptionType = "transfer_orphaned"
	ExceptionAmountMismatch   ExceptionType = "amount_mismatch"
	ExceptionLedgerImbalance  ExceptionType = "ledger_imbalance"
	ExceptionPrefundMismatch  ExceptionType = "prefund_mismatch"
)

// Severity ranks how urgently a reconciliation exception needs attention.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ExceptionStatus is the resolution lifecycle of an exception.
type ExceptionStatus string

const (
	ExceptionOpen          ExceptionStatus = "open"
	ExceptionInvestigating ExceptionStatus = "investigating"
	ExceptionResolved      ExceptionStatus = "resolved"
	ExceptionIgnored       ExceptionStatus = "ignored"
)

// ResolutionType records how a resolved exception was closed.
type ResolutionType string

const (
	ResolutionAutoCorrected ResolutionType = "auto_corrected"
	ResolutionManual        ResolutionType = "manual"
)

// ReconciliationException is a durable discrepancy record between BigFin's
// local view and the payment provider's view.
type ReconciliationException struct {
	ID                     string          `json:"id"`
	TenantID               string          `json:"tenantID"`
	Type                   ExceptionType   `json:"type"`
	Severity               Severity        `json:"severity"`
	Status                 ExceptionStatus `json:"status"`
	LocalRecordType        *string         `json:"localRecordType,omitempty"`
	LocalRecordID          *string         `json:"localRecordID,omitempty"`
	ProviderRecordID       *string         `json:"providerRecordID,omitempty"`
	LocalValue             *string         `json:"localValue,omitempty"`
	ProviderValue          *string         `json:"providerValue,omitempty"`
	DiscrepancyAmountCents *int64          `json:"discrepancyAmountCents,omitempty"`
	Description            string          `json:"description"`
	DetectedAt             time.Time       `json:"detectedAt"`
	ResolvedAt             *time.Time      `json:"resolvedAt,omitempty"`
	ResolutionType         *ResolutionType `json:"resolutionType,omitempty"`
}

// ReconciliationRunStatus is the terminal state of a reconciliation run.
type ReconciliationRunStatus string

const (
	RunCompleted ReconciliationRunStatus = "completed"
	RunFailed    ReconciliationRunStatus = "failed"
)

// RunSummary counts outcomes per sub-procedure of a reconciliation run.
type RunSummary struct {
	DisbursementsChecked int `json:"disbursementsChecked"`
	RepaymentsChecked    int `json:"repaymentsChecked"`
	Matched              int `json:"matched"`
	ExceptionsCreated    int `json:"exceptionsCreated"`
	AutoResolved         int `json:"autoResolved"`
}

// ReconciliationRun is the persisted record of one execution of the
// reconciliation engine.
type ReconciliationRun struct {
	ID          string                  `json:"id"`
	TenantID    string                  `json:"tenantID"`
	PeriodStart time.Time               `json:"periodStart"`
	PeriodEnd   time.Time               `json:"periodEnd"`
	Status      ReconciliationRunStatus `json:"status"`
	ErrorMessage *string                `json:"errorMessage,omitempty"`
	Summary     RunSummary              `json:"summary"`
	StartedAt   time.Time               `json:"startedAt"`
	FinishedAt  time.Time               `json:"finishedAt"`
}
