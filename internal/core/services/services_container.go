package services

import (
	"github.com/bigfin/core/internal/core/ports/provider"
	"github.com/bigfin/core/internal/core/ports/repositories"
	portssvc "github.com/bigfin/core/internal/core/ports/services"
	"github.com/bigfin/core/internal/platform/config"
)

// NewServiceContainer wires every engine against its repository and
// provider dependencies as an explicit composition root that constructs
// each engine once.
func NewServiceContainer(
	repos repositories.RepositoryProvider,
	paymentProvider provider.PaymentProvider,
	policy config.ProductPolicy,
) portssvc.ServiceContainer {
	ledger := NewLedgerService(repos.AccountRepo, repos.JournalRepo, repos.ContractRepo)
	routing := NewRoutingService(policy)
	orchestrator := NewOrchestratorService(
		paymentProvider,
		routing,
		ledger,
		repos.ContractRepo,
		repos.InstrumentRepo,
		repos.DisbursementRepo,
		repos.RepaymentRepo,
		repos.PrefundRepo,
		repos.IdempotencyRepo,
		repos.TxManager,
		policy,
	)
	reconciliation := NewReconciliationService(
		paymentProvider,
		ledger,
		repos.DisbursementRepo,
		repos.RepaymentRepo,
		repos.PrefundRepo,
		repos.ReconciliationRepo,
		policy,
	)
	schedule := NewScheduleService(repos.ScheduleRepo, repos.ContractRepo, ledger, policy)

	return portssvc.ServiceContainer{
		Ledger:         ledger,
		Routing:        routing,
		Orchestrator:   orchestrator,
		Reconciliation: reconciliation,
		Schedule:       schedule,
	}
}
