package repositories

import (
	"context"

	"github.com/bigfin/core/internal/core/domain"
	"github.com/jackc/pgx/v5"
)

// AccountReader defines read operations against the chart of accounts.
type AccountReader interface {
	FindAccountByCode(ctx context.Context, code string) (*domain.Account, error)
	FindAccountsByCodes(ctx context.Context, codes []string) (map[string]domain.Account, error)
	ListAccounts(ctx context.Context) ([]domain.Account, error)
}

// AccountWriter defines write operations against the chart of accounts.
// Accounts are a small, largely-static registry seeded at deployment time;
// BigFin does not expose account mutation as a tenant-facing operation.
type AccountWriter interface {
	SaveAccount(ctx context.Context, account domain.Account) error
}

// AccountTransactionSupport exposes the locking primitive the ledger
// engine needs while posting a journal.
type AccountTransactionSupport interface {
	// FindAccountsByCodesForUpdate locks the given accounts for update, in
	// canonical (lexicographic) account_code order, to prevent deadlocks
	// between journals posting against overlapping account sets.
	FindAccountsByCodesForUpdate(ctx context.Context, tx pgx.Tx, codes []string) (map[string]domain.Account, error)
}

// AccountRepositoryFacade combines every account repository concern.
type AccountRepositoryFacade interface {
	AccountReader
	AccountWriter
	AccountTransactionSupport
}

// JournalReader defines read operations over journals.
type JournalReader interface {
	FindJournalByID(ctx context.Context, tenantID, journalID string) (*domain.Journal, error)
	FindEntriesByJournalID(ctx context.Context, journalID string) ([]domain.Entry, error)
	ListJournalsByContract(ctx context.Context, tenantID, contractID string, limit int, nextToken *string) (domain.PageResult[domain.Journal], error)
	// LastEntryForAccount returns the most recently persisted entry for an
	// account under a tenant, or nil if none exists yet.
	LastEntryForAccount(ctx context.Context, tenantID, accountCode string) (*domain.Entry, error)
	TrialBalance(ctx context.Context, tenantID string) (domain.TrialBalance, error)
}

// JournalWriter defines write operations over journals.
type JournalWriter interface {
	// SaveJournal persists a journal and its entries in one transaction:
	// accounts touched are locked in canonical account_code order, entries
	// are posted in input order, and each entry's BalanceAfterCents is
	// computed and persisted against the account's last persisted entry.
	SaveJournal(ctx context.Context, journal domain.Journal) error

	// SaveReversal persists a reversal journal and, in the same
	// transaction, sets the original journal's ReversedByJournalID. The
	// reversal's entries are expected to already carry swapped debit/credit
	// amounts; balances are recomputed exactly as SaveJournal does.
	SaveReversal(ctx context.Context, original domain.Journal, reversal domain.Journal) error
}

// JournalRepositoryFacade combines every journal repository concern.
type JournalRepositoryFacade interface {
	JournalReader
	JournalWriter
}
