package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/bigfin/core/internal/apperrors"
	"github.com/bigfin/core/internal/core/domain"
	"github.com/bigfin/core/internal/core/ports/provider"
	portssvc "github.com/bigfin/core/internal/core/ports/services"
	"github.com/bigfin/core/internal/core/services"
	"github.com/bigfin/core/internal/platform/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var errProvider = errors.New("provider unavailable")

// --- Mock PaymentProvider ---

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) CreateTransfer(ctx context.Context, in provider.CreateTransferInput) (provider.TransferHandle, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(provider.TransferHandle), args.Error(1)
}

func (m *mockProvider) ListTransfers(ctx context.Context, window provider.Window) ([]provider.ProviderTransfer, error) {
	args := m.Called(ctx, window)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]provider.ProviderTransfer), args.Error(1)
}

func (m *mockProvider) ListPaymentMethods(ctx context.Context, accountRef string) ([]provider.PaymentMethod, error) {
	args := m.Called(ctx, accountRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]provider.PaymentMethod), args.Error(1)
}

func (m *mockProvider) Cancel(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// --- Mock RoutingEngine ---

type mockRouting struct {
	mock.Mock
}

func (m *mockRouting) Route(in portssvc.RouteInput) (portssvc.RouteResult, error) {
	args := m.Called(in)
	return args.Get(0).(portssvc.RouteResult), args.Error(1)
}

func (m *mockRouting) Fee(speed portssvc.RouteSpeed, amountCents int64, prefundAvailableCents *int64) (int64, string) {
	args := m.Called(speed, amountCents, prefundAvailableCents)
	return args.Get(0).(int64), args.String(1)
}

// --- Mock LedgerEngine ---

type mockLedger struct {
	mock.Mock
}

func (m *mockLedger) CreateJournal(ctx context.Context, in portssvc.CreateJournalInput) (*domain.Journal, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Journal), args.Error(1)
}
func (m *mockLedger) ReverseJournal(ctx context.Context, tenantID, journalID, reason, actor string) (*domain.Journal, error) {
	args := m.Called(ctx, tenantID, journalID, reason, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Journal), args.Error(1)
}
func (m *mockLedger) GetAccountBalance(ctx context.Context, tenantID, accountCode string) (int64, error) {
	args := m.Called(ctx, tenantID, accountCode)
	return args.Get(0).(int64), args.Error(1)
}
func (m *mockLedger) GetContractBalances(ctx context.Context, tenantID, contractID string) (domain.ContractBalances, error) {
	args := m.Called(ctx, tenantID, contractID)
	return args.Get(0).(domain.ContractBalances), args.Error(1)
}
func (m *mockLedger) GetTrialBalance(ctx context.Context, tenantID string) (domain.TrialBalance, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(domain.TrialBalance), args.Error(1)
}
func (m *mockLedger) GetContractJournals(ctx context.Context, tenantID, contractID string, limit int, nextToken *string) (domain.PageResult[domain.Journal], error) {
	args := m.Called(ctx, tenantID, contractID, limit, nextToken)
	return args.Get(0).(domain.PageResult[domain.Journal]), args.Error(1)
}
func (m *mockLedger) PostDisbursementFromPrefund(ctx context.Context, tenantID, contractID string, principalCents, expressFeeCents int64, actor string) (*domain.Journal, error) {
	args := m.Called(ctx, tenantID, contractID, principalCents, expressFeeCents, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Journal), args.Error(1)
}
func (m *mockLedger) PostDisbursementDirect(ctx context.Context, tenantID, contractID string, principalCents, expressFeeCents int64, actor string) (*domain.Journal, error) {
	args := m.Called(ctx, tenantID, contractID, principalCents, expressFeeCents, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Journal), args.Error(1)
}
func (m *mockLedger) PostRepayment(ctx context.Context, tenantID, contractID string, feeCents, interestCents, principalCents int64, actor string) (*domain.Journal, error) {
	args := m.Called(ctx, tenantID, contractID, feeCents, interestCents, principalCents, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Journal), args.Error(1)
}
func (m *mockLedger) PostFeeAssessment(ctx context.Context, tenantID, contractID string, feeCents int64, feeKind string, actor string) (*domain.Journal, error) {
	args := m.Called(ctx, tenantID, contractID, feeCents, feeKind, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Journal), args.Error(1)
}
func (m *mockLedger) PostInterestAccrual(ctx context.Context, tenantID, contractID string, interestCents int64, actor string) (*domain.Journal, error) {
	args := m.Called(ctx, tenantID, contractID, interestCents, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Journal), args.Error(1)
}
func (m *mockLedger) PostPrefundDeposit(ctx context.Context, tenantID, customerID string, amountCents int64, actor string) (*domain.Journal, error) {
	args := m.Called(ctx, tenantID, customerID, amountCents, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Journal), args.Error(1)
}
func (m *mockLedger) PostPrefundWithdrawal(ctx context.Context, tenantID, customerID string, amountCents int64, actor string) (*domain.Journal, error) {
	args := m.Called(ctx, tenantID, customerID, amountCents, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Journal), args.Error(1)
}
func (m *mockLedger) PostWriteOff(ctx context.Context, tenantID, contractID string, principalCents, interestCents, feesCents int64, actor string) (*domain.Journal, error) {
	args := m.Called(ctx, tenantID, contractID, principalCents, interestCents, feesCents, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Journal), args.Error(1)
}

// --- Mock ContractRepositoryFacade ---

type mockContractRepo struct {
	mock.Mock
}

func (m *mockContractRepo) FindContractByID(ctx context.Context, tenantID, contractID string) (*domain.LoanContract, error) {
	args := m.Called(ctx, tenantID, contractID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoanContract), args.Error(1)
}
func (m *mockContractRepo) SaveContract(ctx context.Context, contract domain.LoanContract) error {
	args := m.Called(ctx, contract)
	return args.Error(0)
}
func (m *mockContractRepo) UpdateContract(ctx context.Context, contract domain.LoanContract) error {
	args := m.Called(ctx, contract)
	return args.Error(0)
}

// --- Mock InstrumentRepositoryFacade ---

type mockInstrumentRepo struct {
	mock.Mock
}

func (m *mockInstrumentRepo) FindInstrumentByID(ctx context.Context, id string) (*domain.FundingInstrument, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FundingInstrument), args.Error(1)
}
func (m *mockInstrumentRepo) SaveInstrument(ctx context.Context, instr domain.FundingInstrument) error {
	args := m.Called(ctx, instr)
	return args.Error(0)
}
func (m *mockInstrumentRepo) UpdateInstrument(ctx context.Context, instr domain.FundingInstrument) error {
	args := m.Called(ctx, instr)
	return args.Error(0)
}

// --- Mock DisbursementRepositoryFacade ---

type mockDisbursementRepo struct {
	mock.Mock
}

func (m *mockDisbursementRepo) FindDisbursementByID(ctx context.Context, tenantID, id string) (*domain.Disbursement, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Disbursement), args.Error(1)
}
func (m *mockDisbursementRepo) FindDisbursementByProviderRef(ctx context.Context, providerRef string) (*domain.Disbursement, error) {
	args := m.Called(ctx, providerRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Disbursement), args.Error(1)
}
func (m *mockDisbursementRepo) ListDisbursementsInitiatedBetween(ctx context.Context, tenantID string, start, end time.Time) ([]domain.Disbursement, error) {
	args := m.Called(ctx, tenantID, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Disbursement), args.Error(1)
}
func (m *mockDisbursementRepo) SaveDisbursement(ctx context.Context, d domain.Disbursement) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}
func (m *mockDisbursementRepo) UpdateDisbursement(ctx context.Context, d domain.Disbursement) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

// --- Mock RepaymentRepositoryFacade ---

type mockRepaymentRepo struct {
	mock.Mock
}

func (m *mockRepaymentRepo) FindRepaymentByID(ctx context.Context, tenantID, id string) (*domain.Repayment, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Repayment), args.Error(1)
}
func (m *mockRepaymentRepo) FindRepaymentByProviderRef(ctx context.Context, providerRef string) (*domain.Repayment, error) {
	args := m.Called(ctx, providerRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Repayment), args.Error(1)
}
func (m *mockRepaymentRepo) ListRepaymentsInitiatedBetween(ctx context.Context, tenantID string, start, end time.Time) ([]domain.Repayment, error) {
	args := m.Called(ctx, tenantID, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Repayment), args.Error(1)
}
func (m *mockRepaymentRepo) SaveRepayment(ctx context.Context, r domain.Repayment) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}
func (m *mockRepaymentRepo) UpdateRepayment(ctx context.Context, r domain.Repayment) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

// --- Mock PrefundReader ---

type mockPrefundReader struct {
	mock.Mock
}

func (m *mockPrefundReader) LatestCompleted(ctx context.Context, customerID string) (*domain.PrefundTransaction, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PrefundTransaction), args.Error(1)
}
func (m *mockPrefundReader) ListCompleted(ctx context.Context, customerID string) ([]domain.PrefundTransaction, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PrefundTransaction), args.Error(1)
}
func (m *mockPrefundReader) ListCustomersWithActivity(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// --- Mock IdempotencyRepositoryFacade ---

type mockIdempotencyRepo struct {
	mock.Mock
}

func (m *mockIdempotencyRepo) Get(ctx context.Context, key string) (*domain.IdempotencyRecord, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IdempotencyRecord), args.Error(1)
}
func (m *mockIdempotencyRepo) Put(ctx context.Context, record domain.IdempotencyRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}
func (m *mockIdempotencyRepo) UpdateResponse(ctx context.Context, key string, response []byte, statusCode int) error {
	args := m.Called(ctx, key, response, statusCode)
	return args.Error(0)
}
func (m *mockIdempotencyRepo) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// --- Mock TransactionManager ---

// mockTxManager runs fn against the untouched context, standing in for a
// real transaction: the mock repositories below don't distinguish a plain
// context from one carrying an enlisted tx, so no enlistment is needed here.
type mockTxManager struct {
	mock.Mock
}

func (m *mockTxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.Called(ctx)
	return fn(ctx)
}

type orchestratorFixture struct {
	provider      *mockProvider
	routing       *mockRouting
	ledger        *mockLedger
	contracts     *mockContractRepo
	instruments   *mockInstrumentRepo
	disbursements *mockDisbursementRepo
	repayments    *mockRepaymentRepo
	prefund       *mockPrefundReader
	idempotency   *mockIdempotencyRepo
	txManager     *mockTxManager
	svc           *services.OrchestratorService
}

func newOrchestratorFixture() *orchestratorFixture {
	f := &orchestratorFixture{
		provider:      &mockProvider{},
		routing:       &mockRouting{},
		ledger:        &mockLedger{},
		contracts:     &mockContractRepo{},
		instruments:   &mockInstrumentRepo{},
		disbursements: &mockDisbursementRepo{},
		repayments:    &mockRepaymentRepo{},
		prefund:       &mockPrefundReader{},
		idempotency:   &mockIdempotencyRepo{},
		txManager:     &mockTxManager{},
	}
	f.txManager.On("RunInTx", mock.Anything).Return(nil)
	f.svc = services.NewOrchestratorService(
		f.provider, f.routing, f.ledger, f.contracts, f.instruments,
		f.disbursements, f.repayments, f.prefund, f.idempotency, f.txManager,
		config.DefaultProductPolicy(),
	)
	return f
}

func TestOrchestrator_Initiate_ReplaysCachedIdempotentResponse(t *testing.T) {
	f := newOrchestratorFixture()
	key := "idem-1"
	cached := domain.TransferResult{ProviderRef: "provider-ref-1", Status: domain.TransferPending}
	body, err := json.Marshal(cached)
	require.NoError(t, err)
	f.idempotency.On("Get", mock.Anything, key).Return(&domain.IdempotencyRecord{Key: key, Response: body, StatusCode: 200}, nil)

	result, err := f.svc.Initiate(context.Background(), portssvc.InitiateTransferInput{
		TenantID: "tenant-1", ContractID: "contract-1", Kind: portssvc.KindDisbursement,
		AmountCents: 10000, IdempotencyKey: &key,
	})

	require.NoError(t, err)
	assert.Equal(t, cached.ProviderRef, result.ProviderRef)
	f.provider.AssertNotCalled(t, "CreateTransfer", mock.Anything, mock.Anything)
}

func TestOrchestrator_Initiate_FallsBackToNextRailOnProviderFailure(t *testing.T) {
	f := newOrchestratorFixture()

	f.routing.On("Route", mock.Anything).Return(portssvc.RouteResult{
		Rail:          domain.RailRTP,
		FallbackRails: []domain.Rail{domain.RailACH},
	}, nil)
	f.contracts.On("FindContractByID", mock.Anything, "tenant-1", "contract-1").Return(&domain.LoanContract{ID: "contract-1", TenantID: "tenant-1"}, nil)
	f.prefund.On("LatestCompleted", mock.Anything, mock.Anything).Return(nil, nil)
	f.disbursements.On("SaveDisbursement", mock.Anything, mock.Anything).Return(nil)
	f.provider.On("CreateTransfer", mock.Anything, mock.Anything).Return(provider.TransferHandle{}, errProvider).Once()
	f.provider.On("CreateTransfer", mock.Anything, mock.Anything).Return(provider.TransferHandle{ID: "prov-2"}, nil).Once()
	f.disbursements.On("FindDisbursementByID", mock.Anything, "tenant-1", mock.Anything).Return(&domain.Disbursement{
		ID: "disb-1", TenantID: "tenant-1", AmountCents: 10000,
	}, nil)
	f.disbursements.On("UpdateDisbursement", mock.Anything, mock.Anything).Return(nil)

	result, err := f.svc.Initiate(context.Background(), portssvc.InitiateTransferInput{
		TenantID: "tenant-1", ContractID: "contract-1", Kind: portssvc.KindDisbursement, AmountCents: 10000,
	})

	require.NoError(t, err)
	assert.Equal(t, domain.RailACH, result.Rail)
	assert.Equal(t, []domain.Rail{domain.RailRTP, domain.RailACH}, result.AttemptedRails)
	f.provider.AssertNumberOfCalls(t, "CreateTransfer", 2)
}

func TestOrchestrator_Initiate_AllRailsFailingReturnsProviderError(t *testing.T) {
	f := newOrchestratorFixture()

	f.routing.On("Route", mock.Anything).Return(portssvc.RouteResult{Rail: domain.RailRTP}, nil)
	f.contracts.On("FindContractByID", mock.Anything, "tenant-1", "contract-1").Return(&domain.LoanContract{ID: "contract-1", TenantID: "tenant-1"}, nil)
	f.prefund.On("LatestCompleted", mock.Anything, mock.Anything).Return(nil, nil)
	f.disbursements.On("SaveDisbursement", mock.Anything, mock.Anything).Return(nil)
	f.provider.On("CreateTransfer", mock.Anything, mock.Anything).Return(provider.TransferHandle{}, errProvider)

	_, err := f.svc.Initiate(context.Background(), portssvc.InitiateTransferInput{
		TenantID: "tenant-1", ContractID: "contract-1", Kind: portssvc.KindDisbursement, AmountCents: 10000,
	})

	assert.Error(t, err)
}

func TestOrchestrator_ProcessStatusUpdate_DropsRedeliveryOnTerminalDisbursement(t *testing.T) {
	f := newOrchestratorFixture()
	f.disbursements.On("FindDisbursementByProviderRef", mock.Anything, "prov-1").Return(&domain.Disbursement{
		ID: "disb-1", Status: domain.TransferCompleted,
	}, nil)

	err := f.svc.ProcessStatusUpdate(context.Background(), portssvc.StatusUpdate{ProviderRef: "prov-1", ProviderStatus: "completed"})

	require.NoError(t, err)
	f.contracts.AssertNotCalled(t, "FindContractByID", mock.Anything, mock.Anything, mock.Anything)
	f.ledger.AssertNotCalled(t, "PostDisbursementDirect", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestOrchestrator_ProcessStatusUpdate_CompletedDisbursementPostsDirectLedgerEntry(t *testing.T) {
	f := newOrchestratorFixture()
	d := &domain.Disbursement{
		ID: "disb-1", TenantID: "tenant-1", ContractID: "contract-1",
		AmountCents: 10000, Status: domain.TransferPending, Source: domain.SourceDirect,
	}
	f.disbursements.On("FindDisbursementByProviderRef", mock.Anything, "prov-1").Return(d, nil)
	f.disbursements.On("UpdateDisbursement", mock.Anything, mock.Anything).Return(nil)
	f.contracts.On("FindContractByID", mock.Anything, "tenant-1", "contract-1").Return(&domain.LoanContract{
		ID: "contract-1", TenantID: "tenant-1", Status: domain.ContractPendingDisbursement,
	}, nil)
	f.contracts.On("UpdateContract", mock.Anything, mock.Anything).Return(nil)
	f.ledger.On("PostDisbursementDirect", mock.Anything, "tenant-1", "contract-1", int64(10000), int64(0), mock.Anything).
		Return(&domain.Journal{ID: "journal-1"}, nil)

	err := f.svc.ProcessStatusUpdate(context.Background(), portssvc.StatusUpdate{ProviderRef: "prov-1", ProviderStatus: "completed"})

	require.NoError(t, err)
	f.ledger.AssertCalled(t, "PostDisbursementDirect", mock.Anything, "tenant-1", "contract-1", int64(10000), int64(0), mock.Anything)
}

func TestOrchestrator_Initiate_ConcurrentClaimReturnsInFlightError(t *testing.T) {
	f := newOrchestratorFixture()
	key := "idem-race"
	f.idempotency.On("Get", mock.Anything, key).Return((*domain.IdempotencyRecord)(nil), nil).Once()
	f.idempotency.On("Put", mock.Anything, mock.Anything).Return(apperrors.AlreadyExists("idempotency key already claimed: " + key))
	f.idempotency.On("Get", mock.Anything, key).Return(&domain.IdempotencyRecord{Key: key, Response: []byte("null"), StatusCode: 0}, nil).Once()

	_, err := f.svc.Initiate(context.Background(), portssvc.InitiateTransferInput{
		TenantID: "tenant-1", ContractID: "contract-1", Kind: portssvc.KindDisbursement,
		AmountCents: 10000, IdempotencyKey: &key,
	})

	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidState, apperrors.CodeOf(err))
	f.provider.AssertNotCalled(t, "CreateTransfer", mock.Anything, mock.Anything)
}

func TestOrchestrator_Initiate_AllRailsFailingReleasesIdempotencyClaim(t *testing.T) {
	f := newOrchestratorFixture()
	key := "idem-cleanup"
	f.idempotency.On("Get", mock.Anything, key).Return((*domain.IdempotencyRecord)(nil), nil).Once()
	f.idempotency.On("Put", mock.Anything, mock.Anything).Return(nil)
	f.idempotency.On("Delete", mock.Anything, key).Return(nil)
	f.routing.On("Route", mock.Anything).Return(portssvc.RouteResult{Rail: domain.RailRTP}, nil)
	f.contracts.On("FindContractByID", mock.Anything, "tenant-1", "contract-1").Return(&domain.LoanContract{ID: "contract-1", TenantID: "tenant-1"}, nil)
	f.prefund.On("LatestCompleted", mock.Anything, mock.Anything).Return(nil, nil)
	f.disbursements.On("SaveDisbursement", mock.Anything, mock.Anything).Return(nil)
	f.provider.On("CreateTransfer", mock.Anything, mock.Anything).Return(provider.TransferHandle{}, errProvider)

	_, err := f.svc.Initiate(context.Background(), portssvc.InitiateTransferInput{
		TenantID: "tenant-1", ContractID: "contract-1", Kind: portssvc.KindDisbursement,
		AmountCents: 10000, IdempotencyKey: &key,
	})

	assert.Error(t, err)
	f.idempotency.AssertCalled(t, "Delete", mock.Anything, key)
}

func TestOrchestrator_ProcessStatusUpdate_CompletedRepaymentDecrementsBalancesAndPaysOffContract(t *testing.T) {
	f := newOrchestratorFixture()
	journalID := "journal-1"
	r := &domain.Repayment{
		ID: "repay-1", TenantID: "tenant-1", ContractID: "contract-1",
		Status: domain.TransferPending, AmountCents: 10000,
		AppliedPrincipalCents: 9000, AppliedInterestCents: 800, AppliedFeeCents: 200,
	}
	f.disbursements.On("FindDisbursementByProviderRef", mock.Anything, "prov-1").Return((*domain.Disbursement)(nil), errProvider)
	f.repayments.On("FindRepaymentByProviderRef", mock.Anything, "prov-1").Return(r, nil)
	f.repayments.On("UpdateRepayment", mock.Anything, mock.Anything).Return(nil)
	f.contracts.On("FindContractByID", mock.Anything, "tenant-1", "contract-1").Return(&domain.LoanContract{
		ID: "contract-1", TenantID: "tenant-1", PrincipalCents: 9000,
		PrincipalBalanceCents: 9000, InterestBalanceCents: 800, FeesBalanceCents: 200,
	}, nil)
	f.ledger.On("PostRepayment", mock.Anything, "tenant-1", "contract-1", int64(200), int64(800), int64(9000), mock.Anything).
		Return(&domain.Journal{ID: journalID}, nil)

	var updated domain.LoanContract
	f.contracts.On("UpdateContract", mock.Anything, mock.MatchedBy(func(c domain.LoanContract) bool {
		updated = c
		return true
	})).Return(nil)

	err := f.svc.ProcessStatusUpdate(context.Background(), portssvc.StatusUpdate{ProviderRef: "prov-1", ProviderStatus: "completed"})

	require.NoError(t, err)
	assert.Equal(t, int64(0), updated.PrincipalBalanceCents)
	assert.Equal(t, int64(0), updated.InterestBalanceCents)
	assert.Equal(t, int64(0), updated.FeesBalanceCents)
	assert.Equal(t, domain.ContractPaidOff, updated.Status)
	assert.NotNil(t, updated.PaidOffAt)
}

func TestOrchestrator_ProcessStatusUpdate_ReturnedRepaymentReversesSettlementJournal(t *testing.T) {
	f := newOrchestratorFixture()
	journalID := "journal-1"
	r := &domain.Repayment{
		ID: "repay-1", TenantID: "tenant-1", ContractID: "contract-1",
		Status: domain.TransferPending, SettlementJournalID: &journalID,
	}
	f.disbursements.On("FindDisbursementByProviderRef", mock.Anything, "prov-1").Return((*domain.Disbursement)(nil), errProvider)
	f.repayments.On("FindRepaymentByProviderRef", mock.Anything, "prov-1").Return(r, nil)
	f.repayments.On("UpdateRepayment", mock.Anything, mock.Anything).Return(nil)
	f.ledger.On("ReverseJournal", mock.Anything, "tenant-1", journalID, mock.Anything, mock.Anything).
		Return(&domain.Journal{ID: "reversal-1", IsReversal: true}, nil)

	err := f.svc.ProcessStatusUpdate(context.Background(), portssvc.StatusUpdate{ProviderRef: "prov-1", ProviderStatus: "returned"})

	require.NoError(t, err)
	f.ledger.AssertCalled(t, "ReverseJournal", mock.Anything, "tenant-1", journalID, mock.Anything, mock.Anything)
}
