package services

import (
	"context"
	"time"

	"github.com/bigfin/core/internal/core/domain"
	"github.com/bigfin/core/internal/core/ports/repositories"
	portssvc "github.com/bigfin/core/internal/core/ports/services"
	"github.com/bigfin/core/internal/platform/config"
	"github.com/bigfin/core/internal/platform/money"
	"github.com/google/uuid"
)

// GenerateSchedule builds a level-principal, simple-interest amortization
// schedule for a freshly-originated contract. Balloon, interest-only, and
// variable-rate amortization are out of scope.
func GenerateSchedule(contract domain.LoanContract) []domain.ScheduleItem {
	periodsPerYear, numPeriods, step := scheduleParams(contract.PaymentFrequency, contract.TermMonths)
	if numPeriods <= 0 {
		return nil
	}

	items := make([]domain.ScheduleItem, 0, numPeriods)
	remainingPrincipal := contract.PrincipalCents
	principalPerPeriod := contract.PrincipalCents / int64(numPeriods)
	dueDate := contract.FirstPaymentDate

	for period := 1; period <= numPeriods; period++ {
		principalDue := principalPerPeriod
		if period == numPeriods {
			principalDue = remainingPrincipal // last period absorbs rounding remainder
		}
		interestDue := money.PeriodInterestCents(remainingPrincipal, contract.AprBps, int(periodsPerYear))

		items = append(items, domain.ScheduleItem{
			ID:                uuid.NewString(),
			ContractID:        contract.ID,
			Period:            period,
			DueDate:           dueDate,
			PrincipalDueCents: principalDue,
			InterestDueCents:  interestDue,
			FeesDueCents:      0,
			Status:            domain.ScheduleItemScheduled,
		})

		remainingPrincipal -= principalDue
		dueDate = dueDate.AddDate(0, 0, step)
	}

	return items
}

func scheduleParams(freq domain.PaymentFrequency, termMonths int) (periodsPerYear int64, numPeriods int, stepDays int) {
	switch freq {
	case domain.Weekly:
		return 52, termMonths * 4, 7
	case domain.Biweekly:
		return 26, termMonths * 2, 14
	default: // Monthly
		return 12, termMonths, 30
	}
}

// ScheduleService transitions overdue amortization schedule items to
// MISSED and assesses the resulting late fee against the owning contract.
type ScheduleService struct {
	BaseService
	schedule  repositories.ScheduleRepositoryFacade
	contracts repositories.ContractRepositoryFacade
	ledger    portssvc.LedgerEngine
	policy    config.ProductPolicy
}

var _ portssvc.ScheduleEngine = (*ScheduleService)(nil)

// NewScheduleService constructs a ScheduleService.
func NewScheduleService(
	schedule repositories.ScheduleRepositoryFacade,
	contracts repositories.ContractRepositoryFacade,
	ledger portssvc.LedgerEngine,
	policy config.ProductPolicy,
) *ScheduleService {
	return &ScheduleService{schedule: schedule, contracts: contracts, ledger: ledger, policy: policy}
}

// AssessOverdue transitions every item still SCHEDULED or DUE past its due
// date as of asOf to MISSED, and — when the policy's late fee is non-zero —
// posts a fee-assessment journal against the owning contract and adds the
// fee to its fees balance. Items already PAID or MISSED are untouched.
func (s *ScheduleService) AssessOverdue(ctx context.Context, tenantID string, asOf time.Time) ([]domain.ScheduleItem, error) {
	overdue, err := s.schedule.ListOverdueScheduleItems(ctx, tenantID, asOf)
	if err != nil {
		return nil, err
	}

	missed := make([]domain.ScheduleItem, 0, len(overdue))
	for _, item := range overdue {
		if err := s.schedule.UpdateScheduleItemStatus(ctx, item.ID, domain.ScheduleItemMissed); err != nil {
			return missed, err
		}
		item.Status = domain.ScheduleItemMissed
		missed = append(missed, item)

		if s.policy.LateFeeCents <= 0 {
			continue
		}
		if _, err := s.ledger.PostFeeAssessment(ctx, tenantID, item.ContractID, s.policy.LateFeeCents, "late", "schedule"); err != nil {
			return missed, err
		}
		contract, err := s.contracts.FindContractByID(ctx, tenantID, item.ContractID)
		if err != nil {
			return missed, err
		}
		contract.FeesBalanceCents += s.policy.LateFeeCents
		if err := s.contracts.UpdateContract(ctx, *contract); err != nil {
			return missed, err
		}
		s.LogInfo(ctx, "schedule item missed, late fee assessed", "schedule_item_id", item.ID, "contract_id", item.ContractID)
	}
	return missed, nil
}
