package repositories

import (
	"context"

	"github.com/bigfin/core/internal/core/domain"
)

// PrefundReader defines read operations over prefund transactions.
type PrefundReader interface {
	// LatestCompleted returns the most recent COMPLETED prefund transaction
	// for a customer, or nil if none exists.
	LatestCompleted(ctx context.Context, customerID string) (*domain.PrefundTransaction, error)
	// ListCompleted returns every COMPLETED prefund transaction for a
	// customer, used by the reconciliation engine to recompute balances.
	ListCompleted(ctx context.Context, customerID string) ([]domain.PrefundTransaction, error)
	// ListCustomersWithActivity returns every customer id with at least one
	// prefund transaction, used to scope the reconciliation sweep.
	ListCustomersWithActivity(ctx context.Context) ([]string, error)
}

// PrefundWriter defines write operations over prefund transactions.
type PrefundWriter interface {
	SavePrefundTransaction(ctx context.Context, tx domain.PrefundTransaction) error
}

// PrefundRepositoryFacade combines every prefund repository concern.
type PrefundRepositoryFacade interface {
	PrefundReader
	PrefundWriter
}
