package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/bigfin/core/internal/core/domain"
	"github.com/bigfin/core/internal/core/ports/provider"
	"github.com/bigfin/core/internal/core/services"
	"github.com/bigfin/core/internal/platform/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- Mock ReconciliationRepositoryFacade ---

type mockReconRepo struct {
	mock.Mock
}

func (m *mockReconRepo) ListOpenExceptions(ctx context.Context, tenantID string) ([]domain.ReconciliationException, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ReconciliationException), args.Error(1)
}
func (m *mockReconRepo) SaveException(ctx context.Context, exc domain.ReconciliationException) error {
	args := m.Called(ctx, exc)
	return args.Error(0)
}
func (m *mockReconRepo) ResolveException(ctx context.Context, id string, resolution domain.ResolutionType) error {
	args := m.Called(ctx, id, resolution)
	return args.Error(0)
}
func (m *mockReconRepo) SaveRun(ctx context.Context, run domain.ReconciliationRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

// --- Mock PrefundRepositoryFacade ---

type mockPrefundRepo struct {
	mock.Mock
}

func (m *mockPrefundRepo) LatestCompleted(ctx context.Context, customerID string) (*domain.PrefundTransaction, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PrefundTransaction), args.Error(1)
}
func (m *mockPrefundRepo) ListCompleted(ctx context.Context, customerID string) ([]domain.PrefundTransaction, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PrefundTransaction), args.Error(1)
}
func (m *mockPrefundRepo) ListCustomersWithActivity(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}
func (m *mockPrefundRepo) SavePrefundTransaction(ctx context.Context, tx domain.PrefundTransaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func recThresholds() config.ProductPolicy {
	p := config.DefaultProductPolicy()
	p.Reconciliation = config.ReconciliationThresholds{
		MediumSeverityCents:       100,
		HighSeverityCents:         1000,
		CriticalSeverityCents:     10000,
		AutoResolveThresholdCents: 50,
		OrphanAgeThreshold:        24 * time.Hour,
	}
	return p
}

type reconFixture struct {
	provider      *mockProvider
	ledger        *mockLedger
	disbursements *mockDisbursementRepo
	repayments    *mockRepaymentRepo
	prefund       *mockPrefundRepo
	recon         *mockReconRepo
	svc           *services.ReconciliationService
}

func newReconFixture() *reconFixture {
	f := &reconFixture{
		provider:      &mockProvider{},
		ledger:        &mockLedger{},
		disbursements: &mockDisbursementRepo{},
		repayments:    &mockRepaymentRepo{},
		prefund:       &mockPrefundRepo{},
		recon:         &mockReconRepo{},
	}
	f.svc = services.NewReconciliationService(f.provider, f.ledger, f.disbursements, f.repayments, f.prefund, f.recon, recThresholds())
	return f
}

func TestReconciliation_Run_MatchingDisbursementProducesNoException(t *testing.T) {
	f := newReconFixture()
	providerRef := "prov-1"
	f.provider.On("ListTransfers", mock.Anything, mock.Anything).Return([]provider.ProviderTransfer{
		{ID: providerRef, Status: "completed", AmountCents: 10000, Metadata: map[string]string{"type": "disbursement"}},
	}, nil)
	f.disbursements.On("ListDisbursementsInitiatedBetween", mock.Anything, "tenant-1", mock.Anything, mock.Anything).
		Return([]domain.Disbursement{{ID: "disb-1", Status: domain.TransferCompleted, AmountCents: 10000, ProviderRef: &providerRef}}, nil)
	f.repayments.On("ListRepaymentsInitiatedBetween", mock.Anything, "tenant-1", mock.Anything, mock.Anything).Return([]domain.Repayment{}, nil)
	f.ledger.On("GetTrialBalance", mock.Anything, "tenant-1").Return(domain.TrialBalance{TotalDebits: 500, TotalCredits: 500}, nil)
	f.prefund.On("ListCustomersWithActivity", mock.Anything).Return([]string{}, nil)
	f.recon.On("SaveRun", mock.Anything, mock.Anything).Return(nil)

	run, exceptions, err := f.svc.Run(context.Background(), "tenant-1", nil, nil, false)

	require.NoError(t, err)
	assert.Empty(t, exceptions)
	assert.Equal(t, 1, run.Summary.Matched)
	assert.Equal(t, domain.RunCompleted, run.Status)
}

func TestReconciliation_Run_AmountMismatchProducesException(t *testing.T) {
	f := newReconFixture()
	providerRef := "prov-1"
	f.provider.On("ListTransfers", mock.Anything, mock.Anything).Return([]provider.ProviderTransfer{
		{ID: providerRef, Status: "completed", AmountCents: 9000, Metadata: map[string]string{"type": "disbursement"}},
	}, nil)
	f.disbursements.On("ListDisbursementsInitiatedBetween", mock.Anything, "tenant-1", mock.Anything, mock.Anything).
		Return([]domain.Disbursement{{ID: "disb-1", Status: domain.TransferCompleted, AmountCents: 10000, ProviderRef: &providerRef}}, nil)
	f.repayments.On("ListRepaymentsInitiatedBetween", mock.Anything, "tenant-1", mock.Anything, mock.Anything).Return([]domain.Repayment{}, nil)
	f.ledger.On("GetTrialBalance", mock.Anything, "tenant-1").Return(domain.TrialBalance{TotalDebits: 500, TotalCredits: 500}, nil)
	f.prefund.On("ListCustomersWithActivity", mock.Anything).Return([]string{}, nil)
	f.recon.On("SaveException", mock.Anything, mock.Anything).Return(nil)
	f.recon.On("SaveRun", mock.Anything, mock.Anything).Return(nil)

	_, exceptions, err := f.svc.Run(context.Background(), "tenant-1", nil, nil, false)

	require.NoError(t, err)
	require.Len(t, exceptions, 1)
	assert.Equal(t, domain.ExceptionAmountMismatch, exceptions[0].Type)
	assert.Equal(t, int64(1000), *exceptions[0].DiscrepancyAmountCents)
}

func TestReconciliation_Run_MissingProviderTransferProducesException(t *testing.T) {
	f := newReconFixture()
	f.provider.On("ListTransfers", mock.Anything, mock.Anything).Return([]provider.ProviderTransfer{
		{ID: "prov-orphan", Status: "completed", AmountCents: 5000, Metadata: map[string]string{"type": "disbursement"}},
	}, nil)
	f.disbursements.On("ListDisbursementsInitiatedBetween", mock.Anything, "tenant-1", mock.Anything, mock.Anything).Return([]domain.Disbursement{}, nil)
	f.repayments.On("ListRepaymentsInitiatedBetween", mock.Anything, "tenant-1", mock.Anything, mock.Anything).Return([]domain.Repayment{}, nil)
	f.ledger.On("GetTrialBalance", mock.Anything, "tenant-1").Return(domain.TrialBalance{TotalDebits: 0, TotalCredits: 0}, nil)
	f.prefund.On("ListCustomersWithActivity", mock.Anything).Return([]string{}, nil)
	f.recon.On("SaveException", mock.Anything, mock.Anything).Return(nil)
	f.recon.On("SaveRun", mock.Anything, mock.Anything).Return(nil)

	_, exceptions, err := f.svc.Run(context.Background(), "tenant-1", nil, nil, false)

	require.NoError(t, err)
	require.Len(t, exceptions, 1)
	assert.Equal(t, domain.ExceptionTransferMissing, exceptions[0].Type)
}

func TestReconciliation_Run_OrphanedLocalDisbursementAfterThresholdProducesException(t *testing.T) {
	f := newReconFixture()
	providerRef := "prov-gone"
	staleInitiated := time.Now().Add(-48 * time.Hour)
	f.provider.On("ListTransfers", mock.Anything, mock.Anything).Return([]provider.ProviderTransfer{}, nil)
	f.disbursements.On("ListDisbursementsInitiatedBetween", mock.Anything, "tenant-1", mock.Anything, mock.Anything).
		Return([]domain.Disbursement{{ID: "disb-1", Status: domain.TransferPending, ProviderRef: &providerRef, InitiatedAt: &staleInitiated}}, nil)
	f.repayments.On("ListRepaymentsInitiatedBetween", mock.Anything, "tenant-1", mock.Anything, mock.Anything).Return([]domain.Repayment{}, nil)
	f.ledger.On("GetTrialBalance", mock.Anything, "tenant-1").Return(domain.TrialBalance{TotalDebits: 0, TotalCredits: 0}, nil)
	f.prefund.On("ListCustomersWithActivity", mock.Anything).Return([]string{}, nil)
	f.recon.On("SaveException", mock.Anything, mock.Anything).Return(nil)
	f.recon.On("SaveRun", mock.Anything, mock.Anything).Return(nil)

	_, exceptions, err := f.svc.Run(context.Background(), "tenant-1", nil, nil, false)

	require.NoError(t, err)
	require.Len(t, exceptions, 1)
	assert.Equal(t, domain.ExceptionTransferOrphaned, exceptions[0].Type)
}

func TestReconciliation_Run_LedgerImbalanceProducesCriticalException(t *testing.T) {
	f := newReconFixture()
	f.provider.On("ListTransfers", mock.Anything, mock.Anything).Return([]provider.ProviderTransfer{}, nil)
	f.disbursements.On("ListDisbursementsInitiatedBetween", mock.Anything, "tenant-1", mock.Anything, mock.Anything).Return([]domain.Disbursement{}, nil)
	f.repayments.On("ListRepaymentsInitiatedBetween", mock.Anything, "tenant-1", mock.Anything, mock.Anything).Return([]domain.Repayment{}, nil)
	f.ledger.On("GetTrialBalance", mock.Anything, "tenant-1").Return(domain.TrialBalance{TotalDebits: 1000, TotalCredits: 900}, nil)
	f.prefund.On("ListCustomersWithActivity", mock.Anything).Return([]string{}, nil)
	f.recon.On("SaveException", mock.Anything, mock.Anything).Return(nil)
	f.recon.On("SaveRun", mock.Anything, mock.Anything).Return(nil)

	_, exceptions, err := f.svc.Run(context.Background(), "tenant-1", nil, nil, false)

	require.NoError(t, err)
	require.Len(t, exceptions, 1)
	assert.Equal(t, domain.ExceptionLedgerImbalance, exceptions[0].Type)
	assert.Equal(t, domain.SeverityCritical, exceptions[0].Severity)
}

func TestReconciliation_Run_PrefundSignFoldMismatchProducesException(t *testing.T) {
	f := newReconFixture()
	f.provider.On("ListTransfers", mock.Anything, mock.Anything).Return([]provider.ProviderTransfer{}, nil)
	f.disbursements.On("ListDisbursementsInitiatedBetween", mock.Anything, "tenant-1", mock.Anything, mock.Anything).Return([]domain.Disbursement{}, nil)
	f.repayments.On("ListRepaymentsInitiatedBetween", mock.Anything, "tenant-1", mock.Anything, mock.Anything).Return([]domain.Repayment{}, nil)
	f.ledger.On("GetTrialBalance", mock.Anything, "tenant-1").Return(domain.TrialBalance{TotalDebits: 0, TotalCredits: 0}, nil)
	f.prefund.On("ListCustomersWithActivity", mock.Anything).Return([]string{"cust-1"}, nil)
	f.prefund.On("LatestCompleted", mock.Anything, "cust-1").Return(&domain.PrefundTransaction{AvailableAfterCents: 5000}, nil)
	f.prefund.On("ListCompleted", mock.Anything, "cust-1").Return([]domain.PrefundTransaction{
		{Type: domain.PrefundDeposit, AmountCents: 3000},
	}, nil)
	f.recon.On("SaveException", mock.Anything, mock.Anything).Return(nil)
	f.recon.On("SaveRun", mock.Anything, mock.Anything).Return(nil)

	_, exceptions, err := f.svc.Run(context.Background(), "tenant-1", nil, nil, false)

	require.NoError(t, err)
	require.Len(t, exceptions, 1)
	assert.Equal(t, domain.ExceptionPrefundMismatch, exceptions[0].Type)
	assert.Equal(t, int64(2000), *exceptions[0].DiscrepancyAmountCents)
}

func TestReconciliation_Run_PendingVsCompletedStatusMismatchAutoResolves(t *testing.T) {
	f := newReconFixture()
	providerRef := "prov-1"
	f.provider.On("ListTransfers", mock.Anything, mock.Anything).Return([]provider.ProviderTransfer{
		{ID: providerRef, Status: "completed", AmountCents: 10000, Metadata: map[string]string{"type": "disbursement"}},
	}, nil)
	f.disbursements.On("ListDisbursementsInitiatedBetween", mock.Anything, "tenant-1", mock.Anything, mock.Anything).
		Return([]domain.Disbursement{{ID: "disb-1", Status: domain.TransferPending, AmountCents: 10000, ProviderRef: &providerRef}}, nil)
	f.repayments.On("ListRepaymentsInitiatedBetween", mock.Anything, "tenant-1", mock.Anything, mock.Anything).Return([]domain.Repayment{}, nil)
	f.ledger.On("GetTrialBalance", mock.Anything, "tenant-1").Return(domain.TrialBalance{TotalDebits: 0, TotalCredits: 0}, nil)
	f.prefund.On("ListCustomersWithActivity", mock.Anything).Return([]string{}, nil)
	f.disbursements.On("FindDisbursementByID", mock.Anything, "tenant-1", "disb-1").Return(&domain.Disbursement{
		ID: "disb-1", TenantID: "tenant-1", Status: domain.TransferPending,
	}, nil)
	f.disbursements.On("UpdateDisbursement", mock.Anything, mock.Anything).Return(nil)
	f.recon.On("SaveException", mock.Anything, mock.Anything).Return(nil)
	f.recon.On("SaveRun", mock.Anything, mock.Anything).Return(nil)

	_, exceptions, err := f.svc.Run(context.Background(), "tenant-1", nil, nil, false)

	require.NoError(t, err)
	require.Len(t, exceptions, 1)
	assert.Equal(t, domain.ExceptionTransferStatus, exceptions[0].Type)
	assert.Equal(t, domain.ExceptionResolved, exceptions[0].Status)
	f.disbursements.AssertCalled(t, "UpdateDisbursement", mock.Anything, mock.Anything)
}

func TestReconciliation_Run_CompletedVsFailedStatusMismatchDoesNotAutoResolve(t *testing.T) {
	f := newReconFixture()
	providerRef := "prov-1"
	f.provider.On("ListTransfers", mock.Anything, mock.Anything).Return([]provider.ProviderTransfer{
		{ID: providerRef, Status: "failed", AmountCents: 10000, Metadata: map[string]string{"type": "disbursement"}},
	}, nil)
	f.disbursements.On("ListDisbursementsInitiatedBetween", mock.Anything, "tenant-1", mock.Anything, mock.Anything).
		Return([]domain.Disbursement{{ID: "disb-1", Status: domain.TransferCompleted, AmountCents: 10000, ProviderRef: &providerRef}}, nil)
	f.repayments.On("ListRepaymentsInitiatedBetween", mock.Anything, "tenant-1", mock.Anything, mock.Anything).Return([]domain.Repayment{}, nil)
	f.ledger.On("GetTrialBalance", mock.Anything, "tenant-1").Return(domain.TrialBalance{TotalDebits: 0, TotalCredits: 0}, nil)
	f.prefund.On("ListCustomersWithActivity", mock.Anything).Return([]string{}, nil)
	f.recon.On("SaveException", mock.Anything, mock.Anything).Return(nil)
	f.recon.On("SaveRun", mock.Anything, mock.Anything).Return(nil)

	_, exceptions, err := f.svc.Run(context.Background(), "tenant-1", nil, nil, false)

	require.NoError(t, err)
	require.Len(t, exceptions, 1)
	assert.Equal(t, domain.ExceptionTransferStatus, exceptions[0].Type)
	assert.Equal(t, domain.SeverityCritical, exceptions[0].Severity)
	assert.Equal(t, domain.ExceptionOpen, exceptions[0].Status)
	f.disbursements.AssertNotCalled(t, "FindDisbursementByID", mock.Anything, mock.Anything, mock.Anything)
}

func TestReconciliation_Run_DryRunSkipsPersistence(t *testing.T) {
	f := newReconFixture()
	providerRef := "prov-1"
	f.provider.On("ListTransfers", mock.Anything, mock.Anything).Return([]provider.ProviderTransfer{
		{ID: providerRef, Status: "completed", AmountCents: 9000, Metadata: map[string]string{"type": "disbursement"}},
	}, nil)
	f.disbursements.On("ListDisbursementsInitiatedBetween", mock.Anything, "tenant-1", mock.Anything, mock.Anything).
		Return([]domain.Disbursement{{ID: "disb-1", Status: domain.TransferCompleted, AmountCents: 10000, ProviderRef: &providerRef}}, nil)
	f.repayments.On("ListRepaymentsInitiatedBetween", mock.Anything, "tenant-1", mock.Anything, mock.Anything).Return([]domain.Repayment{}, nil)
	f.ledger.On("GetTrialBalance", mock.Anything, "tenant-1").Return(domain.TrialBalance{TotalDebits: 0, TotalCredits: 0}, nil)
	f.prefund.On("ListCustomersWithActivity", mock.Anything).Return([]string{}, nil)

	_, exceptions, err := f.svc.Run(context.Background(), "tenant-1", nil, nil, true)

	require.NoError(t, err)
	require.Len(t, exceptions, 1)
	f.recon.AssertNotCalled(t, "SaveException", mock.Anything, mock.Anything)
	f.recon.AssertNotCalled(t, "SaveRun", mock.Anything, mock.Anything)
}
