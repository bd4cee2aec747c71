package repositories

// RepositoryProvider aggregates every repository facade needed by the
// service layer, so the composition root has a single dependency to build
// and pass around.
type RepositoryProvider struct {
	AccountRepo        AccountRepositoryFacade
	JournalRepo        JournalRepositoryFacade
	ContractRepo       ContractRepositoryFacade
	ScheduleRepo        ScheduleRepositoryFacade
	DisbursementRepo    DisbursementRepositoryFacade
	RepaymentRepo       RepaymentRepositoryFacade
	InstrumentRepo       InstrumentRepositoryFacade
	PrefundRepo          PrefundRepositoryFacade
	ReconciliationRepo   ReconciliationRepositoryFacade
	IdempotencyRepo      IdempotencyRepositoryFacade
	TxManager            TransactionManager
}
