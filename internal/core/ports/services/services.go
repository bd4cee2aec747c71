package services

import (
	"context"
	"time"

	"github.com/bigfin/core/internal/core/domain"
)

// CreateJournalInput is the request shape for LedgerEngine.CreateJournal.
type CreateJournalInput struct {
	TenantID    string
	Type        domain.JournalType
	Description string
	ContractID  *string
	Entries     []domain.Entry
	Actor       string
}

// LedgerEngine is the double-entry bookkeeping engine's public contract.
type LedgerEngine interface {
	CreateJournal(ctx context.Context, in CreateJournalInput) (*domain.Journal, error)
	ReverseJournal(ctx context.Context, tenantID, journalID, reason, actor string) (*domain.Journal, error)
	GetAccountBalance(ctx context.Context, tenantID, accountCode string) (int64, error)
	GetContractBalances(ctx context.Context, tenantID, contractID string) (domain.ContractBalances, error)
	GetTrialBalance(ctx context.Context, tenantID string) (domain.TrialBalance, error)
	GetContractJournals(ctx context.Context, tenantID, contractID string, limit int, nextToken *string) (domain.PageResult[domain.Journal], error)

	// Transaction templates; all pass through CreateJournal.
	PostDisbursementFromPrefund(ctx context.Context, tenantID, contractID string, principalCents, expressFeeCents int64, actor string) (*domain.Journal, error)
	PostDisbursementDirect(ctx context.Context, tenantID, contractID string, principalCents, expressFeeCents int64, actor string) (*domain.Journal, error)
	PostRepayment(ctx context.Context, tenantID, contractID string, feeCents, interestCents, principalCents int64, actor string) (*domain.Journal, error)
	PostFeeAssessment(ctx context.Context, tenantID, contractID string, feeCents int64, feeKind string, actor string) (*domain.Journal, error)
	PostInterestAccrual(ctx context.Context, tenantID, contractID string, interestCents int64, actor string) (*domain.Journal, error)
	PostPrefundDeposit(ctx context.Context, tenantID, customerID string, amountCents int64, actor string) (*domain.Journal, error)
	PostPrefundWithdrawal(ctx context.Context, tenantID, customerID string, amountCents int64, actor string) (*domain.Journal, error)
	PostWriteOff(ctx context.Context, tenantID, contractID string, principalCents, interestCents, feesCents int64, actor string) (*domain.Journal, error)
}

// RouteInput is the request shape for RoutingEngine.Route.
type RouteInput struct {
	Speed                   RouteSpeed
	Direction               RouteDirection
	AmountCents             int64
	SourceCapabilities      map[domain.Rail]struct{}
	DestinationCapabilities map[domain.Rail]struct{}
	// PrefundAvailableCents, when non-nil, is the lender's latest COMPLETED
	// prefund available_after_cents, used to decide the express-fee waiver.
	PrefundAvailableCents *int64
	Now                   time.Time
}

// RouteSpeed is the requested transfer speed.
type RouteSpeed string

const (
	SpeedStandard RouteSpeed = "standard"
	SpeedInstant  RouteSpeed = "instant"
)

// RouteDirection is which side of the transfer BigFin is moving funds on.
type RouteDirection string

const (
	DirectionCredit RouteDirection = "credit"
	DirectionDebit  RouteDirection = "debit"
)

// RouteResult is RoutingEngine.Route's output.
type RouteResult struct {
	Rail             domain.Rail
	EstimatedArrival time.Time
	FeeCents         int64
	FallbackRails    []domain.Rail
	Reason           string
}

// RoutingEngine selects a payment rail and computes fees. Pure: no I/O.
type RoutingEngine interface {
	Route(in RouteInput) (RouteResult, error)
	Fee(speed RouteSpeed, amountCents int64, prefundAvailableCents *int64) (feeCents int64, reason string)
}

// InitiateTransferInput is the request shape for Orchestrator.Initiate.
type InitiateTransferInput struct {
	TenantID          string
	ContractID        string
	Kind              TransferKind
	AmountCents       int64
	Speed             RouteSpeed
	SourceInstrument  string
	DestInstrument    string
	IdempotencyKey    *string
}

// TransferKind distinguishes a disbursement from a repayment at initiation.
type TransferKind string

const (
	KindDisbursement TransferKind = "disbursement"
	KindRepayment    TransferKind = "repayment"
)

// StatusUpdate is the normalized shape the orchestrator consumes after
// webhook parsing, regardless of the raw provider event shape.
type StatusUpdate struct {
	ProviderRef    string
	ProviderStatus string
	AmountCents    *int64
	Now            time.Time
}

// Orchestrator idempotently initiates transfers and ingests provider status
// updates, applying ledger effects on settlement.
type Orchestrator interface {
	Initiate(ctx context.Context, in InitiateTransferInput) (domain.TransferResult, error)
	Get(ctx context.Context, tenantID, providerRef string) (*domain.TransferResult, error)
	Cancel(ctx context.Context, tenantID, providerRef string) error
	ProcessStatusUpdate(ctx context.Context, update StatusUpdate) error
}

// ReconciliationEngine periodically compares BigFin's local records against
// the payment provider's view.
type ReconciliationEngine interface {
	Run(ctx context.Context, tenantID string, periodStart, periodEnd *time.Time, dryRun bool) (domain.ReconciliationRun, []domain.ReconciliationException, error)
}

// ScheduleEngine evaluates amortization schedules for items that have
// fallen past due unpaid.
type ScheduleEngine interface {
	// AssessOverdue transitions every SCHEDULED/DUE item past its due date
	// as of asOf to MISSED and assesses the configured late fee against the
	// owning contract, returning the items it transitioned.
	AssessOverdue(ctx context.Context, tenantID string, asOf time.Time) ([]domain.ScheduleItem, error)
}

// ServiceContainer aggregates every engine the composition root wires.
type ServiceContainer struct {
	Ledger         LedgerEngine
	Routing        RoutingEngine
	Orchestrator   Orchestrator
	Reconciliation ReconciliationEngine
	Schedule       ScheduleEngine
}
