package repositories

import (
	"context"

	"github.com/bigfin/core/internal/core/domain"
)

// ReconciliationReader defines read operations over reconciliation records.
type ReconciliationReader interface {
	ListOpenExceptions(ctx context.Context, tenantID string) ([]domain.ReconciliationException, error)
}

// ReconciliationWriter defines write operations over reconciliation records.
type ReconciliationWriter interface {
	SaveException(ctx context.Context, exc domain.ReconciliationException) error
	ResolveException(ctx context.Context, id string, resolution domain.ResolutionType) error
	SaveRun(ctx context.Context, run domain.ReconciliationRun) error
}

// ReconciliationRepositoryFacade combines every reconciliation repository concern.
type ReconciliationRepositoryFacade interface {
	ReconciliationReader
	ReconciliationWriter
}
