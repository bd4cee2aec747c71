package services

import (
	"context"
	"time"

	"github.com/bigfin/core/internal/apperrors"
	"github.com/bigfin/core/internal/core/domain"
	"github.com/bigfin/core/internal/core/ports/repositories"
	portssvc "github.com/bigfin/core/internal/core/ports/services"
	"github.com/google/uuid"
)

// Standard chart-of-accounts codes the transaction templates post against.
// Seeded by migrations/000008_seed_accounts.up.sql.
const (
	AccountLoansPrincipal        = "Loans:Principal"
	AccountLoansInterest         = "Loans:Interest"
	AccountLoansFees             = "Loans:Fees"
	AccountCashOperating         = "Cash:Operating"
	AccountCashPrefund           = "Cash:Prefund"
	AccountPrefundBalances       = "Liabilities:Prefund_Balances"
	AccountRevenueFeesExpress    = "Revenue:Fees:Express"
	AccountRevenueFeesLate       = "Revenue:Fees:Late"
	AccountRevenueFeesNSF        = "Revenue:Fees:NSF"
	AccountRevenueInterestIncome = "Revenue:Interest_Income"
	AccountExpensesBadDebt       = "Expenses:Bad_Debt"
)

// LedgerService is the double-entry bookkeeping engine: CreateJournal,
// ReverseJournal, balance validation, and trial balance reporting, scoped
// to int64 cents and to BigFin's explicit tenant_id rather than a
// single-tenant workspace.
type LedgerService struct {
	BaseService
	accounts  repositories.AccountRepositoryFacade
	journals  repositories.JournalRepositoryFacade
	contracts repositories.ContractReader
}

var _ portssvc.LedgerEngine = (*LedgerService)(nil)

// NewLedgerService constructs a LedgerService.
func NewLedgerService(accounts repositories.AccountRepositoryFacade, journals repositories.JournalRepositoryFacade, contracts repositories.ContractReader) *LedgerService {
	return &LedgerService{accounts: accounts, journals: journals, contracts: contracts}
}

func (s *LedgerService) CreateJournal(ctx context.Context, in portssvc.CreateJournalInput) (*domain.Journal, error) {
	if err := validateEntries(in.Entries); err != nil {
		return nil, err
	}

	codes := make([]string, 0, len(in.Entries))
	seen := map[string]struct{}{}
	for _, e := range in.Entries {
		if _, ok := seen[e.AccountCode]; !ok {
			seen[e.AccountCode] = struct{}{}
			codes = append(codes, e.AccountCode)
		}
	}
	existing, err := s.accounts.FindAccountsByCodes(ctx, codes)
	if err != nil {
		return nil, err
	}
	for _, c := range codes {
		if _, ok := existing[c]; !ok {
			return nil, apperrors.InvalidRequest("unknown account code: " + c)
		}
	}

	now := time.Now().UTC()
	journal := domain.Journal{
		ID:          uuid.NewString(),
		TenantID:    in.TenantID,
		ContractID:  in.ContractID,
		Type:        in.Type,
		Description: in.Description,
		Entries:     append([]domain.Entry(nil), in.Entries...),
		CreatedAt:   now,
		CreatedBy:   in.Actor,
	}

	if err := s.journals.SaveJournal(ctx, journal); err != nil {
		s.LogError(ctx, err, "save journal failed", "tenant_id", in.TenantID, "type", in.Type)
		return nil, err
	}
	return &journal, nil
}

// validateEntries enforces the ledger's pre-write invariants: exactly one
// side non-zero per entry, no negative amounts, and Σdebits = Σcredits.
func validateEntries(entries []domain.Entry) error {
	if len(entries) == 0 {
		return apperrors.InvalidRequest("journal must have at least one entry")
	}
	var debits, credits int64
	for _, e := range entries {
		if e.DebitCents < 0 || e.CreditCents < 0 {
			return apperrors.InvalidRequest("entry amounts must not be negative")
		}
		hasDebit := e.DebitCents != 0
		hasCredit := e.CreditCents != 0
		if hasDebit == hasCredit {
			return apperrors.InvalidRequest("entry must have exactly one of debit/credit non-zero")
		}
		debits += e.DebitCents
		credits += e.CreditCents
	}
	if debits != credits {
		return apperrors.InvalidRequest("journal entries do not balance")
	}
	return nil
}

func (s *LedgerService) ReverseJournal(ctx context.Context, tenantID, journalID, reason, actor string) (*domain.Journal, error) {
	original, err := s.journals.FindJournalByID(ctx, tenantID, journalID)
	if err != nil {
		return nil, err
	}
	if original.IsReversal {
		return nil, apperrors.InvalidState("cannot reverse a reversal journal")
	}
	if original.ReversedByJournalID != nil {
		return nil, apperrors.InvalidState("journal already reversed")
	}

	swapped := make([]domain.Entry, len(original.Entries))
	for i, e := range original.Entries {
		swapped[i] = domain.Entry{
			AccountCode: e.AccountCode,
			DebitCents:  e.CreditCents,
			CreditCents: e.DebitCents,
		}
	}

	now := time.Now().UTC()
	reversal := domain.Journal{
		ID:                uuid.NewString(),
		TenantID:          tenantID,
		ContractID:        original.ContractID,
		Type:              domain.JournalReversal,
		Description:       "Reversal of " + original.ID + ": " + reason,
		IsReversal:        true,
		ReversesJournalID: &original.ID,
		ReversalReason:    &reason,
		Entries:           swapped,
		CreatedAt:         now,
		CreatedBy:         actor,
	}

	if err := s.journals.SaveReversal(ctx, *original, reversal); err != nil {
		s.LogError(ctx, err, "save reversal failed", "journal_id", journalID)
		return nil, err
	}
	return &reversal, nil
}

func (s *LedgerService) GetAccountBalance(ctx context.Context, tenantID, accountCode string) (int64, error) {
	last, err := s.journals.LastEntryForAccount(ctx, tenantID, accountCode)
	if err != nil {
		return 0, err
	}
	if last == nil {
		return 0, nil
	}
	return last.BalanceAfterCents, nil
}

func (s *LedgerService) GetContractBalances(ctx context.Context, tenantID, contractID string) (domain.ContractBalances, error) {
	c, err := s.contracts.FindContractByID(ctx, tenantID, contractID)
	if err != nil {
		return domain.ContractBalances{}, err
	}
	return domain.ContractBalances{
		PrincipalCents: c.PrincipalBalanceCents,
		InterestCents:  c.InterestBalanceCents,
		FeesCents:      c.FeesBalanceCents,
		TotalCents:     c.TotalOutstandingCents(),
	}, nil
}

func (s *LedgerService) GetTrialBalance(ctx context.Context, tenantID string) (domain.TrialBalance, error) {
	return s.journals.TrialBalance(ctx, tenantID)
}

func (s *LedgerService) GetContractJournals(ctx context.Context, tenantID, contractID string, limit int, nextToken *string) (domain.PageResult[domain.Journal], error) {
	if limit <= 0 {
		limit = 50
	}
	return s.journals.ListJournalsByContract(ctx, tenantID, contractID, limit, nextToken)
}

func entry(code string, debit, credit int64) domain.Entry {
	return domain.Entry{AccountCode: code, DebitCents: debit, CreditCents: credit}
}

func (s *LedgerService) post(ctx context.Context, tenantID, contractID string, jt domain.JournalType, desc string, actor string, entries []domain.Entry) (*domain.Journal, error) {
	return s.CreateJournal(ctx, portssvc.CreateJournalInput{
		TenantID:    tenantID,
		Type:        jt,
		Description: desc,
		ContractID:  &contractID,
		Entries:     entries,
		Actor:       actor,
	})
}

func (s *LedgerService) PostDisbursementFromPrefund(ctx context.Context, tenantID, contractID string, principalCents, expressFeeCents int64, actor string) (*domain.Journal, error) {
	entries := []domain.Entry{
		entry(AccountLoansPrincipal, principalCents, 0),
		entry(AccountPrefundBalances, 0, principalCents),
	}
	if expressFeeCents > 0 {
		entries = append(entries,
			entry(AccountCashOperating, expressFeeCents, 0),
			entry(AccountRevenueFeesExpress, 0, expressFeeCents),
		)
	}
	return s.post(ctx, tenantID, contractID, domain.JournalDisbursement, "Disbursement from prefund", actor, entries)
}

func (s *LedgerService) PostDisbursementDirect(ctx context.Context, tenantID, contractID string, principalCents, expressFeeCents int64, actor string) (*domain.Journal, error) {
	entries := []domain.Entry{
		entry(AccountLoansPrincipal, principalCents, 0),
		entry(AccountCashOperating, 0, principalCents),
	}
	if expressFeeCents > 0 {
		entries = append(entries,
			entry(AccountCashOperating, expressFeeCents, 0),
			entry(AccountRevenueFeesExpress, 0, expressFeeCents),
		)
	}
	return s.post(ctx, tenantID, contractID, domain.JournalDisbursement, "Direct disbursement", actor, entries)
}

func (s *LedgerService) PostRepayment(ctx context.Context, tenantID, contractID string, feeCents, interestCents, principalCents int64, actor string) (*domain.Journal, error) {
	total := feeCents + interestCents + principalCents
	entries := []domain.Entry{entry(AccountCashOperating, total, 0)}
	if feeCents > 0 {
		entries = append(entries, entry(AccountLoansFees, 0, feeCents))
	}
	if interestCents > 0 {
		entries = append(entries, entry(AccountLoansInterest, 0, interestCents))
	}
	if principalCents > 0 {
		entries = append(entries, entry(AccountLoansPrincipal, 0, principalCents))
	}
	return s.post(ctx, tenantID, contractID, domain.JournalRepayment, "Repayment", actor, entries)
}

func (s *LedgerService) PostFeeAssessment(ctx context.Context, tenantID, contractID string, feeCents int64, feeKind string, actor string) (*domain.Journal, error) {
	revenueAccount := AccountRevenueFeesLate
	switch feeKind {
	case "nsf":
		revenueAccount = AccountRevenueFeesNSF
	case "express":
		revenueAccount = AccountRevenueFeesExpress
	}
	entries := []domain.Entry{
		entry(AccountLoansFees, feeCents, 0),
		entry(revenueAccount, 0, feeCents),
	}
	return s.post(ctx, tenantID, contractID, domain.JournalFeeAssessment, "Fee assessment: "+feeKind, actor, entries)
}

func (s *LedgerService) PostInterestAccrual(ctx context.Context, tenantID, contractID string, interestCents int64, actor string) (*domain.Journal, error) {
	entries := []domain.Entry{
		entry(AccountLoansInterest, interestCents, 0),
		entry(AccountRevenueInterestIncome, 0, interestCents),
	}
	return s.post(ctx, tenantID, contractID, domain.JournalInterestAccrual, "Interest accrual", actor, entries)
}

func (s *LedgerService) PostPrefundDeposit(ctx context.Context, tenantID, customerID string, amountCents int64, actor string) (*domain.Journal, error) {
	entries := []domain.Entry{
		entry(AccountCashPrefund, amountCents, 0),
		entry(AccountPrefundBalances, 0, amountCents),
	}
	return s.CreateJournal(ctx, portssvc.CreateJournalInput{
		TenantID: tenantID, Type: domain.JournalAdjustment, Description: "Prefund deposit for " + customerID,
		Entries: entries, Actor: actor,
	})
}

func (s *LedgerService) PostPrefundWithdrawal(ctx context.Context, tenantID, customerID string, amountCents int64, actor string) (*domain.Journal, error) {
	entries := []domain.Entry{
		entry(AccountPrefundBalances, amountCents, 0),
		entry(AccountCashPrefund, 0, amountCents),
	}
	return s.CreateJournal(ctx, portssvc.CreateJournalInput{
		TenantID: tenantID, Type: domain.JournalAdjustment, Description: "Prefund withdrawal for " + customerID,
		Entries: entries, Actor: actor,
	})
}

func (s *LedgerService) PostWriteOff(ctx context.Context, tenantID, contractID string, principalCents, interestCents, feesCents int64, actor string) (*domain.Journal, error) {
	total := principalCents + interestCents + feesCents
	entries := []domain.Entry{entry(AccountExpensesBadDebt, total, 0)}
	if principalCents > 0 {
		entries = append(entries, entry(AccountLoansPrincipal, 0, principalCents))
	}
	if interestCents > 0 {
		entries = append(entries, entry(AccountLoansInterest, 0, interestCents))
	}
	if feesCents > 0 {
		entries = append(entries, entry(AccountLoansFees, 0, feesCents))
	}
	return s.post(ctx, tenantID, contractID, domain.JournalAdjustment, "Write-off", actor, entries)
}
