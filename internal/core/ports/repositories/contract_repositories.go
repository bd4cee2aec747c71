package repositories

import (
	"context"
	"time"

	"github.com/bigfin/core/internal/core/domain"
)

// ContractReader defines read operations over loan contracts.
type ContractReader interface {
	FindContractByID(ctx context.Context, tenantID, contractID string) (*domain.LoanContract, error)
}

// ContractWriter defines write operations over loan contracts.
type ContractWriter interface {
	SaveContract(ctx context.Context, contract domain.LoanContract) error
	UpdateContract(ctx context.Context, contract domain.LoanContract) error
}

// ContractRepositoryFacade combines every contract repository concern.
type ContractRepositoryFacade interface {
	ContractReader
	ContractWriter
}

// ScheduleReader defines read operations over amortization schedule items.
type ScheduleReader interface {
	ListScheduleItems(ctx context.Context, contractID string) ([]domain.ScheduleItem, error)
	// ListOverdueScheduleItems returns every SCHEDULED or DUE item, across
	// every contract owned by tenantID, whose due date falls before asOf.
	ListOverdueScheduleItems(ctx context.Context, tenantID string, asOf time.Time) ([]domain.ScheduleItem, error)
}

// ScheduleWriter defines write operations over amortization schedule items.
type ScheduleWriter interface {
	SaveScheduleItems(ctx context.Context, items []domain.ScheduleItem) error
	UpdateScheduleItemStatus(ctx context.Context, itemID string, status domain.ScheduleItemStatus) error
}

// ScheduleRepositoryFacade combines every schedule repository concern.
type ScheduleRepositoryFacade interface {
	ScheduleReader
	ScheduleWriter
}
