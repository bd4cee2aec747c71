package services

import (
	"context"
	"fmt"
	"time"

	"github.com/bigfin/core/internal/core/domain"
	"github.com/bigfin/core/internal/core/ports/provider"
	"github.com/bigfin/core/internal/core/ports/repositories"
	portssvc "github.com/bigfin/core/internal/core/ports/services"
	"github.com/bigfin/core/internal/platform/config"
	"github.com/bigfin/core/internal/platform/metrics"
	"github.com/google/uuid"
)

// ReconciliationService compares BigFin's local records against the
// payment provider's view over a bounded period, classifies discrepancies
// by severity, and auto-resolves a narrow safe subset.
type ReconciliationService struct {
	BaseService
	provider      provider.PaymentProvider
	ledger        portssvc.LedgerEngine
	disbursements repositories.DisbursementRepositoryFacade
	repayments    repositories.RepaymentRepositoryFacade
	prefund       repositories.PrefundRepositoryFacade
	recon         repositories.ReconciliationRepositoryFacade
	policy        config.ProductPolicy
}

var _ portssvc.ReconciliationEngine = (*ReconciliationService)(nil)

// NewReconciliationService constructs a ReconciliationService.
func NewReconciliationService(
	p provider.PaymentProvider,
	ledger portssvc.LedgerEngine,
	disbursements repositories.DisbursementRepositoryFacade,
	repayments repositories.RepaymentRepositoryFacade,
	prefund repositories.PrefundRepositoryFacade,
	recon repositories.ReconciliationRepositoryFacade,
	policy config.ProductPolicy,
) *ReconciliationService {
	return &ReconciliationService{
		provider: p, ledger: ledger, disbursements: disbursements,
		repayments: repayments, prefund: prefund, recon: recon, policy: policy,
	}
}

// normalizeStatus maps local/provider status vocabularies onto a single
// comparable vocabulary.
func normalizeStatus(raw string) string {
	switch raw {
	case "PENDING", "PROCESSING", "created", "pending", "processing":
		return "pending"
	case "COMPLETED", "completed":
		return "completed"
	case "FAILED", "failed":
		return "failed"
	case "RETURNED", "reversed":
		return "returned"
	case "CANCELLED", "canceled":
		return "cancelled"
	default:
		return raw
	}
}

func (s *ReconciliationService) severityForAmount(discrepancy int64) domain.Severity {
	t := s.policy.Reconciliation
	switch {
	case discrepancy < t.MediumSeverityCents:
		return domain.SeverityLow
	case discrepancy < t.HighSeverityCents:
		return domain.SeverityMedium
	case discrepancy < t.CriticalSeverityCents:
		return domain.SeverityHigh
	default:
		return domain.SeverityCritical
	}
}

func severityForStatusMismatch(localNorm, providerNorm string) domain.Severity {
	switch {
	case localNorm == "completed" && providerNorm == "failed":
		return domain.SeverityCritical
	case localNorm == "pending" && providerNorm == "completed":
		return domain.SeverityHigh
	default:
		return domain.SeverityMedium
	}
}

func (s *ReconciliationService) Run(ctx context.Context, tenantID string, periodStart, periodEnd *time.Time, dryRun bool) (domain.ReconciliationRun, []domain.ReconciliationException, error) {
	end := time.Now().UTC()
	if periodEnd != nil {
		end = *periodEnd
	}
	start := end.Add(-7 * 24 * time.Hour)
	if periodStart != nil {
		start = *periodStart
	}

	run := domain.ReconciliationRun{
		ID:          uuid.NewString(),
		TenantID:    tenantID,
		PeriodStart: start,
		PeriodEnd:   end,
		StartedAt:   time.Now().UTC(),
	}

	var allExceptions []domain.ReconciliationException

	providerTransfers, err := s.provider.ListTransfers(ctx, provider.Window{Start: start, End: end})
	if err != nil {
		return s.fail(ctx, run, err)
	}
	byID := make(map[string]provider.ProviderTransfer, len(providerTransfers))
	for _, t := range providerTransfers {
		byID[t.ID] = t
	}

	disbExceptions, matched, err := s.reconcileDisbursements(ctx, tenantID, start, end, byID)
	if err != nil {
		return s.fail(ctx, run, err)
	}
	run.Summary.DisbursementsChecked = len(disbExceptions) + matched
	run.Summary.Matched += matched
	allExceptions = append(allExceptions, disbExceptions...)

	repayExceptions, matched, err := s.reconcileRepayments(ctx, tenantID, start, end, byID)
	if err != nil {
		return s.fail(ctx, run, err)
	}
	run.Summary.RepaymentsChecked = len(repayExceptions) + matched
	run.Summary.Matched += matched
	allExceptions = append(allExceptions, repayExceptions...)

	ledgerExc, err := s.reconcileLedger(ctx, tenantID)
	if err != nil {
		return s.fail(ctx, run, err)
	}
	if ledgerExc != nil {
		allExceptions = append(allExceptions, *ledgerExc)
	}

	prefundExc, err := s.reconcilePrefund(ctx)
	if err != nil {
		return s.fail(ctx, run, err)
	}
	allExceptions = append(allExceptions, prefundExc...)

	run.Summary.ExceptionsCreated = len(allExceptions)

	autoResolved := 0
	for i := range allExceptions {
		exc := &allExceptions[i]
		metrics.ReconciliationExceptionsTotal.WithLabelValues(string(exc.Type), string(exc.Severity)).Inc()
		if !dryRun && s.autoResolvable(*exc) {
			if err := s.autoResolve(ctx, exc, end); err != nil {
				return s.fail(ctx, run, err)
			}
			autoResolved++
			metrics.ReconciliationAutoResolvedTotal.Inc()
		}
		if !dryRun {
			if err := s.recon.SaveException(ctx, *exc); err != nil {
				return s.fail(ctx, run, err)
			}
		}
	}
	run.Summary.AutoResolved = autoResolved
	run.Status = domain.RunCompleted
	run.FinishedAt = time.Now().UTC()

	if !dryRun {
		if err := s.recon.SaveRun(ctx, run); err != nil {
			return run, allExceptions, err
		}
	}
	metrics.ReconciliationRunsTotal.WithLabelValues(string(run.Status)).Inc()
	return run, allExceptions, nil
}

func (s *ReconciliationService) fail(ctx context.Context, run domain.ReconciliationRun, cause error) (domain.ReconciliationRun, []domain.ReconciliationException, error) {
	msg := cause.Error()
	run.Status = domain.RunFailed
	run.ErrorMessage = &msg
	run.FinishedAt = time.Now().UTC()
	_ = s.recon.SaveRun(ctx, run)
	metrics.ReconciliationRunsTotal.WithLabelValues(string(run.Status)).Inc()
	s.LogError(ctx, cause, "reconciliation run failed", "run_id", run.ID)
	return run, nil, cause
}

func (s *ReconciliationService) reconcileDisbursements(ctx context.Context, tenantID string, start, end time.Time, byID map[string]provider.ProviderTransfer) ([]domain.ReconciliationException, int, error) {
	locals, err := s.disbursements.ListDisbursementsInitiatedBetween(ctx, tenantID, start, end)
	if err != nil {
		return nil, 0, err
	}
	remaining := make(map[string]provider.ProviderTransfer, len(byID))
	for k, v := range byID {
		if v.Metadata["type"] == "disbursement" {
			remaining[k] = v
		}
	}

	var exceptions []domain.ReconciliationException
	matched := 0
	for _, d := range locals {
		if d.ProviderRef == nil {
			continue
		}
		pt, ok := remaining[*d.ProviderRef]
		if !ok {
			if d.InitiatedAt != nil && time.Since(*d.InitiatedAt) > s.policy.Reconciliation.OrphanAgeThreshold {
				exceptions = append(exceptions, s.newException(tenantID, domain.ExceptionTransferOrphaned,
					domain.SeverityHigh, "disbursement", d.ID, d.ProviderRef, nil,
					fmt.Sprintf("disbursement %s has no matching provider transfer after %s", d.ID, s.policy.Reconciliation.OrphanAgeThreshold)))
			}
			continue
		}
		localNorm := normalizeStatus(string(d.Status))
		providerNorm := normalizeStatus(pt.Status)
		if localNorm != providerNorm {
			exceptions = append(exceptions, s.newStatusException(tenantID, "disbursement", d.ID, d.ProviderRef, localNorm, providerNorm))
			delete(remaining, *d.ProviderRef)
			continue
		}
		if d.AmountCents != pt.AmountCents {
			discrepancy := absInt64(d.AmountCents - pt.AmountCents)
			exceptions = append(exceptions, s.newAmountException(tenantID, "disbursement", d.ID, d.ProviderRef, discrepancy))
			delete(remaining, *d.ProviderRef)
			continue
		}
		matched++
		delete(remaining, *d.ProviderRef)
	}

	for id := range remaining {
		pt := remaining[id]
		exceptions = append(exceptions, s.newException(tenantID, domain.ExceptionTransferMissing,
			domain.SeverityMedium, "disbursement", "", &pt.ID, nil,
			fmt.Sprintf("provider transfer %s has no matching local disbursement", pt.ID)))
	}
	return exceptions, matched, nil
}

func (s *ReconciliationService) reconcileRepayments(ctx context.Context, tenantID string, start, end time.Time, byID map[string]provider.ProviderTransfer) ([]domain.ReconciliationException, int, error) {
	locals, err := s.repayments.ListRepaymentsInitiatedBetween(ctx, tenantID, start, end)
	if err != nil {
		return nil, 0, err
	}
	remaining := make(map[string]provider.ProviderTransfer, len(byID))
	for k, v := range byID {
		if v.Metadata["type"] == "repayment" {
			remaining[k] = v
		}
	}

	var exceptions []domain.ReconciliationException
	matched := 0
	for _, r := range locals {
		if r.ProviderRef == nil {
			continue
		}
		pt, ok := remaining[*r.ProviderRef]
		if !ok {
			if r.InitiatedAt != nil && time.Since(*r.InitiatedAt) > s.policy.Reconciliation.OrphanAgeThreshold {
				exceptions = append(exceptions, s.newException(tenantID, domain.ExceptionTransferOrphaned,
					domain.SeverityHigh, "repayment", r.ID, r.ProviderRef, nil,
					fmt.Sprintf("repayment %s has no matching provider transfer after %s", r.ID, s.policy.Reconciliation.OrphanAgeThreshold)))
			}
			continue
		}
		localNorm := normalizeStatus(string(r.Status))
		providerNorm := normalizeStatus(pt.Status)
		if localNorm != providerNorm {
			exceptions = append(exceptions, s.newStatusException(tenantID, "repayment", r.ID, r.ProviderRef, localNorm, providerNorm))
			delete(remaining, *r.ProviderRef)
			continue
		}
		if r.AmountCents != pt.AmountCents {
			discrepancy := absInt64(r.AmountCents - pt.AmountCents)
			exceptions = append(exceptions, s.newAmountException(tenantID, "repayment", r.ID, r.ProviderRef, discrepancy))
			delete(remaining, *r.ProviderRef)
			continue
		}
		matched++
		delete(remaining, *r.ProviderRef)
	}

	for id := range remaining {
		pt := remaining[id]
		exceptions = append(exceptions, s.newException(tenantID, domain.ExceptionTransferMissing,
			domain.SeverityMedium, "repayment", "", &pt.ID, nil,
			fmt.Sprintf("provider transfer %s has no matching local repayment", pt.ID)))
	}
	return exceptions, matched, nil
}

func (s *ReconciliationService) reconcileLedger(ctx context.Context, tenantID string) (*domain.ReconciliationException, error) {
	tb, err := s.ledger.GetTrialBalance(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if tb.TotalDebits == tb.TotalCredits {
		return nil, nil
	}
	discrepancy := absInt64(tb.TotalDebits - tb.TotalCredits)
	exc := s.newException(tenantID, domain.ExceptionLedgerImbalance, domain.SeverityCritical, "", "", nil, &discrepancy,
		fmt.Sprintf("trial balance debits=%d credits=%d", tb.TotalDebits, tb.TotalCredits))
	return &exc, nil
}

func (s *ReconciliationService) reconcilePrefund(ctx context.Context) ([]domain.ReconciliationException, error) {
	customers, err := s.prefund.ListCustomersWithActivity(ctx)
	if err != nil {
		return nil, err
	}
	var exceptions []domain.ReconciliationException
	for _, customerID := range customers {
		latest, err := s.prefund.LatestCompleted(ctx, customerID)
		if err != nil || latest == nil {
			continue
		}
		completed, err := s.prefund.ListCompleted(ctx, customerID)
		if err != nil {
			return nil, err
		}
		var calculated int64
		for _, tx := range completed {
			calculated += tx.Type.Sign() * tx.AmountCents
		}
		if calculated != latest.AvailableAfterCents {
			discrepancy := absInt64(calculated - latest.AvailableAfterCents)
			exceptions = append(exceptions, s.newException("", domain.ExceptionPrefundMismatch,
				s.severityForAmount(discrepancy), "prefund", customerID, nil, &discrepancy,
				fmt.Sprintf("recorded %d vs calculated %d", latest.AvailableAfterCents, calculated)))
		}
	}
	return exceptions, nil
}

func (s *ReconciliationService) newException(tenantID string, typ domain.ExceptionType, severity domain.Severity, localType, localID string, providerID *string, discrepancy *int64, description string) domain.ReconciliationException {
	var localTypePtr, localIDPtr *string
	if localType != "" {
		localTypePtr = &localType
	}
	if localID != "" {
		localIDPtr = &localID
	}
	return domain.ReconciliationException{
		ID:                     uuid.NewString(),
		TenantID:               tenantID,
		Type:                   typ,
		Severity:               severity,
		Status:                 domain.ExceptionOpen,
		LocalRecordType:        localTypePtr,
		LocalRecordID:          localIDPtr,
		ProviderRecordID:       providerID,
		DiscrepancyAmountCents: discrepancy,
		Description:            description,
		DetectedAt:             time.Now().UTC(),
	}
}

func (s *ReconciliationService) newAmountException(tenantID, localType, localID string, providerRef *string, discrepancy int64) domain.ReconciliationException {
	return s.newException(tenantID, domain.ExceptionAmountMismatch, s.severityForAmount(discrepancy), localType, localID, providerRef, &discrepancy,
		fmt.Sprintf("amount mismatch of %d cents", discrepancy))
}

// newStatusException records a transfer-status mismatch, carrying the
// normalized local/provider status pair so autoResolvable can judge which
// mismatches are safe to correct automatically without re-deriving them.
func (s *ReconciliationService) newStatusException(tenantID, localType, localID string, providerRef *string, localNorm, providerNorm string) domain.ReconciliationException {
	exc := s.newException(tenantID, domain.ExceptionTransferStatus,
		severityForStatusMismatch(localNorm, providerNorm), localType, localID, providerRef, nil,
		fmt.Sprintf("local status %s vs provider status %s", localNorm, providerNorm))
	exc.LocalValue = &localNorm
	exc.ProviderValue = &providerNorm
	return exc
}

// autoResolvable allows only the one transfer-status mismatch shape that is
// safe to correct without a human: BigFin's record is still pending while
// the provider has already settled it. Any mismatch involving a failure,
// return, or cancellation on either side requires manual review, since
// auto-resolving those could mark funds available that never actually moved.
func (s *ReconciliationService) autoResolvable(exc domain.ReconciliationException) bool {
	if exc.Type != domain.ExceptionTransferStatus {
		return false
	}
	if exc.LocalValue == nil || exc.ProviderValue == nil {
		return false
	}
	if *exc.LocalValue != "pending" || *exc.ProviderValue != "completed" {
		return false
	}
	if exc.DiscrepancyAmountCents != nil && *exc.DiscrepancyAmountCents > s.policy.Reconciliation.AutoResolveThresholdCents {
		return false
	}
	return true
}

func (s *ReconciliationService) autoResolve(ctx context.Context, exc *domain.ReconciliationException, now time.Time) error {
	if exc.LocalRecordType == nil || exc.LocalRecordID == nil {
		return nil
	}
	switch *exc.LocalRecordType {
	case "disbursement":
		d, err := s.disbursements.FindDisbursementByID(ctx, exc.TenantID, *exc.LocalRecordID)
		if err != nil || d == nil {
			return err
		}
		if d.Status == domain.TransferCompleted {
			break
		}
		d.Status = domain.TransferCompleted
		d.AvailabilityState = domain.AvailabilityAvailable
		d.CompletedAt = &now
		if err := s.disbursements.UpdateDisbursement(ctx, *d); err != nil {
			return err
		}
	case "repayment":
		r, err := s.repayments.FindRepaymentByID(ctx, exc.TenantID, *exc.LocalRecordID)
		if err != nil || r == nil {
			return err
		}
		if r.Status == domain.TransferCompleted {
			break
		}
		r.Status = domain.TransferCompleted
		r.AvailabilityState = domain.AvailabilityAvailable
		r.CompletedAt = &now
		if err := s.repayments.UpdateRepayment(ctx, *r); err != nil {
			return err
		}
	}
	resolution := domain.ResolutionAutoCorrected
	exc.Status = domain.ExceptionResolved
	exc.ResolvedAt = &now
	exc.ResolutionType = &resolution
	return nil
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
