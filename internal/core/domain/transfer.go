package domain

import "time"

// TransferStatus is the lifecycle of a disbursement or repayment's
// underlying transfer.
type TransferStatus string

const (
	TransferInitiated TransferStatus = "INITIATED"
	TransferPending   TransferStatus = "PENDING"
	TransferCompleted TransferStatus = "COMPLETED"
	TransferFailed    TransferStatus = "FAILED"
	TransferReturned  TransferStatus = "RETURNED"
	TransferCancelled TransferStatus = "CANCELLED"
)

// AvailabilityState is the usability state of funds, distinct from
// transfer status.
type AvailabilityState string

const (
	AvailabilityInitiated AvailabilityState = "INITIATED"
	AvailabilityPending   AvailabilityState = "PENDING"
	AvailabilityReceived  AvailabilityState = "RECEIVED"
	AvailabilityHeld      AvailabilityState = "HELD"
	AvailabilityAvailable AvailabilityState = "AVAILABLE"
	AvailabilityFailed    AvailabilityState = "FAILED"
)

// DisbursementSource is where the disbursed cash is drawn from.
type DisbursementSource string

const (
	SourcePrefund DisbursementSource = "PREFUND"
	SourceDirect  DisbursementSource = "DIRECT"
)

// Disbursement shadows an outbound provider transfer funding a contract.
type Disbursement struct {
	ID                string             `json:"id"`
	TenantID          string             `json:"tenantID"`
	ContractID        string             `json:"contractID"`
	AmountCents        int64              `json:"amountCents"`
	ExpressFeeCents    int64              `json:"expressFeeCents"`
	NetAmountCents     int64              `json:"netAmountCents"`
	Source             DisbursementSource `json:"source"`
	Status             TransferStatus     `json:"status"`
	AvailabilityState  AvailabilityState  `json:"availabilityState"`
	ProviderRef        *string            `json:"providerRef,omitempty"`
	Rail               *Rail              `json:"rail,omitempty"`
	IdempotencyKey      *string           `json:"idempotencyKey,omitempty"`
	SettlementJournalID *string           `json:"settlementJournalID,omitempty"`
	InitiatedAt        *time.Time         `json:"initiatedAt,omitempty"`
	CompletedAt        *time.Time         `json:"completedAt,omitempty"`
	FailedAt           *time.Time         `json:"failedAt,omitempty"`
	FailureReason       *string           `json:"failureReason,omitempty"`
	// AvailableAt is when a HELD disbursement's funds reach AVAILABLE. Set
	// immediately to CompletedAt when the availability policy applies no hold.
	AvailableAt        *time.Time         `json:"availableAt,omitempty"`
}

// Repayment shadows an inbound provider transfer collected against a
// contract, carrying the application waterfall split agreed at initiation.
type Repayment struct {
	ID                     string            `json:"id"`
	TenantID               string            `json:"tenantID"`
	ContractID             string            `json:"contractID"`
	AmountCents             int64            `json:"amountCents"`
	AppliedFeeCents        int64             `json:"appliedFeeCents"`
	AppliedInterestCents   int64             `json:"appliedInterestCents"`
	AppliedPrincipalCents  int64             `json:"appliedPrincipalCents"`
	Status                 TransferStatus    `json:"status"`
	AvailabilityState      AvailabilityState `json:"availabilityState"`
	ProviderRef            *string           `json:"providerRef,omitempty"`
	Rail                   *Rail             `json:"rail,omitempty"`
	IdempotencyKey         *string           `json:"idempotencyKey,omitempty"`
	SettlementJournalID    *string           `json:"settlementJournalID,omitempty"`
	InitiatedAt            *time.Time        `json:"initiatedAt,omitempty"`
	CompletedAt            *time.Time        `json:"completedAt,omitempty"`
	FailedAt               *time.Time        `json:"failedAt,omitempty"`
	FailureReason          *string           `json:"failureReason,omitempty"`
	// AvailableAt is when a HELD repayment's funds reach AVAILABLE. Set
	// immediately to CompletedAt when the availability policy applies no hold.
	AvailableAt            *time.Time        `json:"availableAt,omitempty"`
}

// TransferResult is the orchestrator's uniform view of an initiated
// transfer, regardless of whether it backs a disbursement or repayment.
type TransferResult struct {
	ProviderRef      string            `json:"providerRef"`
	Rail             Rail              `json:"rail"`
	Status           TransferStatus    `json:"status"`
	FeeCents         int64             `json:"feeCents"`
	EstimatedArrival time.Time         `json:"estimatedArrival"`
	AttemptedRails   []Rail            `json:"attemptedRails,omitempty"`
}
