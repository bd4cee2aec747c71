package repositories

import (
	"context"
	"time"

	"github.com/bigfin/core/internal/core/domain"
)

// DisbursementReader defines read operations over disbursements.
type DisbursementReader interface {
	FindDisbursementByID(ctx context.Context, tenantID, id string) (*domain.Disbursement, error)
	FindDisbursementByProviderRef(ctx context.Context, providerRef string) (*domain.Disbursement, error)
	// ListDisbursementsInitiatedBetween supports the reconciliation engine's
	// disbursement sub-procedure.
	ListDisbursementsInitiatedBetween(ctx context.Context, tenantID string, start, end time.Time) ([]domain.Disbursement, error)
}

// DisbursementWriter defines write operations over disbursements.
type DisbursementWriter interface {
	SaveDisbursement(ctx context.Context, d domain.Disbursement) error
	UpdateDisbursement(ctx context.Context, d domain.Disbursement) error
}

// DisbursementRepositoryFacade combines every disbursement repository concern.
type DisbursementRepositoryFacade interface {
	DisbursementReader
	DisbursementWriter
}

// RepaymentReader defines read operations over repayments.
type RepaymentReader interface {
	FindRepaymentByID(ctx context.Context, tenantID, id string) (*domain.Repayment, error)
	FindRepaymentByProviderRef(ctx context.Context, providerRef string) (*domain.Repayment, error)
	ListRepaymentsInitiatedBetween(ctx context.Context, tenantID string, start, end time.Time) ([]domain.Repayment, error)
}

// RepaymentWriter defines write operations over repayments.
type RepaymentWriter interface {
	SaveRepayment(ctx context.Context, r domain.Repayment) error
	UpdateRepayment(ctx context.Context, r domain.Repayment) error
}

// RepaymentRepositoryFacade combines every repayment repository concern.
type RepaymentRepositoryFacade interface {
	RepaymentReader
	RepaymentWriter
}
