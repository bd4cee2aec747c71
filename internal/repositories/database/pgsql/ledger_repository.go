package pgsql

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/bigfin/core/internal/apperrors"
	"github.com/bigfin/core/internal/core/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LedgerRepository persists the chart of accounts, journals, and entries.
// Amounts are int64 cents rather than decimal. Accounts are locked in
// canonical (account_code) order rather than map-iteration order, and
// entries are posted and have their running balances computed in
// caller-supplied input order rather than re-sorted by id.
type LedgerRepository struct {
	BaseRepository
}

// NewLedgerRepository constructs a LedgerRepository.
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{BaseRepository{Pool: pool}}
}

func (r *LedgerRepository) FindAccountByCode(ctx context.Context, code string) (*domain.Account, error) {
	row := r.executor(ctx).QueryRow(ctx, `
		SELECT code, name, type, parent_code, is_system, created_at, created_by, updated_at, updated_by
		FROM accounts WHERE code = $1`, code)
	var a domain.Account
	var parent *string
	if err := row.Scan(&a.Code, &a.Name, &a.Type, &parent, &a.IsSystem, &a.CreatedAt, &a.CreatedBy, &a.UpdatedAt, &a.UpdatedBy); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("account not found: " + code)
		}
		return nil, apperrors.Internal("find account by code", err)
	}
	a.ParentCode = parent
	return &a, nil
}

func (r *LedgerRepository) FindAccountsByCodes(ctx context.Context, codes []string) (map[string]domain.Account, error) {
	rows, err := r.executor(ctx).Query(ctx, `
		SELECT code, name, type, parent_code, is_system, created_at, created_by, updated_at, updated_by
		FROM accounts WHERE code = ANY($1)`, codes)
	if err != nil {
		return nil, apperrors.Internal("find accounts by codes", err)
	}
	defer rows.Close()

	out := make(map[string]domain.Account, len(codes))
	for rows.Next() {
		var a domain.Account
		var parent *string
		if err := rows.Scan(&a.Code, &a.Name, &a.Type, &parent, &a.IsSystem, &a.CreatedAt, &a.CreatedBy, &a.UpdatedAt, &a.UpdatedBy); err != nil {
			return nil, apperrors.Internal("scan account", err)
		}
		a.ParentCode = parent
		out[a.Code] = a
	}
	return out, rows.Err()
}

func (r *LedgerRepository) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	rows, err := r.executor(ctx).Query(ctx, `
		SELECT code, name, type, parent_code, is_system, created_at, created_by, updated_at, updated_by
		FROM accounts ORDER BY code`)
	if err != nil {
		return nil, apperrors.Internal("list accounts", err)
	}
	defer rows.Close()

	var out []domain.Account
	for rows.Next() {
		var a domain.Account
		var parent *string
		if err := rows.Scan(&a.Code, &a.Name, &a.Type, &parent, &a.IsSystem, &a.CreatedAt, &a.CreatedBy, &a.UpdatedAt, &a.UpdatedBy); err != nil {
			return nil, apperrors.Internal("scan account", err)
		}
		a.ParentCode = parent
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *LedgerRepository) SaveAccount(ctx context.Context, a domain.Account) error {
	_, err := r.executor(ctx).Exec(ctx, `
		INSERT INTO accounts (code, name, type, parent_code, is_system, created_at, created_by, updated_at, updated_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name, updated_at = EXCLUDED.updated_at, updated_by = EXCLUDED.updated_by`,
		a.Code, a.Name, a.Type, a.ParentCode, a.IsSystem, a.CreatedAt, a.CreatedBy, a.UpdatedAt, a.UpdatedBy)
	if err != nil {
		return apperrors.Internal("save account", err)
	}
	return nil
}

// FindAccountsByCodesForUpdate locks every given account row, always in
// ascending account_code order regardless of the order codes were passed
// in, so two journals touching overlapping account sets from different
// goroutines always acquire their row locks in the same sequence.
func (r *LedgerRepository) FindAccountsByCodesForUpdate(ctx context.Context, tx pgx.Tx, codes []string) (map[string]domain.Account, error) {
	canonical := append([]string(nil), codes...)
	sort.Strings(canonical)

	rows, err := tx.Query(ctx, `
		SELECT code, name, type, parent_code, is_system, created_at, created_by, updated_at, updated_by
		FROM accounts WHERE code = ANY($1) ORDER BY code FOR UPDATE`, canonical)
	if err != nil {
		return nil, apperrors.Internal("lock accounts", err)
	}
	defer rows.Close()

	out := make(map[string]domain.Account, len(canonical))
	for rows.Next() {
		var a domain.Account
		var parent *string
		if err := rows.Scan(&a.Code, &a.Name, &a.Type, &parent, &a.IsSystem, &a.CreatedAt, &a.CreatedBy, &a.UpdatedAt, &a.UpdatedBy); err != nil {
			return nil, apperrors.Internal("scan locked account", err)
		}
		a.ParentCode = parent
		out[a.Code] = a
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, c := range canonical {
		if _, ok := out[c]; !ok {
			return nil, apperrors.NotFound("account not found: " + c)
		}
	}
	return out, nil
}

func (r *LedgerRepository) FindJournalByID(ctx context.Context, tenantID, journalID string) (*domain.Journal, error) {
	row := r.executor(ctx).QueryRow(ctx, `
		SELECT id, tenant_id, contract_id, type, description, is_reversal, reverses_journal_id, reversed_by_journal_id, reversal_reason, created_at, created_by
		FROM journals WHERE id = $1 AND tenant_id = $2`, journalID, tenantID)
	j, err := scanJournal(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("journal not found")
		}
		return nil, apperrors.Internal("find journal", err)
	}
	entries, err := r.FindEntriesByJournalID(ctx, j.ID)
	if err != nil {
		return nil, err
	}
	j.Entries = entries
	return j, nil
}

func scanJournal(row pgx.Row) (*domain.Journal, error) {
	var j domain.Journal
	if err := row.Scan(&j.ID, &j.TenantID, &j.ContractID, &j.Type, &j.Description, &j.IsReversal,
		&j.ReversesJournalID, &j.ReversedByJournalID, &j.ReversalReason, &j.CreatedAt, &j.CreatedBy); err != nil {
		return nil, err
	}
	return &j, nil
}

func (r *LedgerRepository) FindEntriesByJournalID(ctx context.Context, journalID string) ([]domain.Entry, error) {
	rows, err := r.executor(ctx).Query(ctx, `
		SELECT journal_id, account_code, debit_cents, credit_cents, balance_after_cents, created_at
		FROM entries WHERE journal_id = $1 ORDER BY seq ASC`, journalID)
	if err != nil {
		return nil, apperrors.Internal("find entries", err)
	}
	defer rows.Close()

	var out []domain.Entry
	for rows.Next() {
		var e domain.Entry
		if err := rows.Scan(&e.JournalID, &e.AccountCode, &e.DebitCents, &e.CreditCents, &e.BalanceAfterCents, &e.CreatedAt); err != nil {
			return nil, apperrors.Internal("scan entry", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *LedgerRepository) ListJournalsByContract(ctx context.Context, tenantID, contractID string, limit int, nextToken *string) (domain.PageResult[domain.Journal], error) {
	var after time.Time
	if nextToken != nil {
		t, err := decodeJournalToken(*nextToken)
		if err != nil {
			return domain.PageResult[domain.Journal]{}, apperrors.InvalidParameter("invalid pagination token")
		}
		after = t
	}

	rows, err := r.executor(ctx).Query(ctx, `
		SELECT id, tenant_id, contract_id, type, description, is_reversal, reverses_journal_id, reversed_by_journal_id, reversal_reason, created_at, created_by
		FROM journals
		WHERE tenant_id = $1 AND contract_id = $2 AND ($3::timestamptz IS NULL OR created_at > $3)
		ORDER BY created_at ASC
		LIMIT $4`, tenantID, contractID, nullableTime(after, nextToken), limit+1)
	if err != nil {
		return domain.PageResult[domain.Journal]{}, apperrors.Internal("list journals by contract", err)
	}
	defer rows.Close()

	var journals []domain.Journal
	for rows.Next() {
		j, err := scanJournal(rows)
		if err != nil {
			return domain.PageResult[domain.Journal]{}, apperrors.Internal("scan journal", err)
		}
		journals = append(journals, *j)
	}
	if err := rows.Err(); err != nil {
		return domain.PageResult[domain.Journal]{}, err
	}

	var next *string
	if len(journals) > limit {
		journals = journals[:limit]
		tok := encodeJournalToken(journals[len(journals)-1].CreatedAt)
		next = &tok
	}
	for i := range journals {
		entries, err := r.FindEntriesByJournalID(ctx, journals[i].ID)
		if err != nil {
			return domain.PageResult[domain.Journal]{}, err
		}
		journals[i].Entries = entries
	}
	return domain.PageResult[domain.Journal]{Items: journals, NextToken: next}, nil
}

func nullableTime(t time.Time, tok *string) interface{} {
	if tok == nil {
		return nil
	}
	return t
}

func (r *LedgerRepository) LastEntryForAccount(ctx context.Context, tenantID, accountCode string) (*domain.Entry, error) {
	row := r.executor(ctx).QueryRow(ctx, `
		SELECT e.journal_id, e.account_code, e.debit_cents, e.credit_cents, e.balance_after_cents, e.created_at
		FROM entries e JOIN journals j ON j.id = e.journal_id
		WHERE j.tenant_id = $1 AND e.account_code = $2
		ORDER BY e.created_at DESC, e.seq DESC LIMIT 1`, tenantID, accountCode)
	var e domain.Entry
	if err := row.Scan(&e.JournalID, &e.AccountCode, &e.DebitCents, &e.CreditCents, &e.BalanceAfterCents, &e.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperrors.Internal("last entry for account", err)
	}
	return &e, nil
}

func (r *LedgerRepository) TrialBalance(ctx context.Context, tenantID string) (domain.TrialBalance, error) {
	rows, err := r.executor(ctx).Query(ctx, `
		SELECT e.account_code, COALESCE(SUM(e.debit_cents),0), COALESCE(SUM(e.credit_cents),0)
		FROM entries e JOIN journals j ON j.id = e.journal_id
		WHERE j.tenant_id = $1
		GROUP BY e.account_code ORDER BY e.account_code`, tenantID)
	if err != nil {
		return domain.TrialBalance{}, apperrors.Internal("trial balance", err)
	}
	defer rows.Close()

	var tb domain.TrialBalance
	for rows.Next() {
		var line domain.TrialBalanceLine
		if err := rows.Scan(&line.AccountCode, &line.DebitCents, &line.CreditCents); err != nil {
			return domain.TrialBalance{}, apperrors.Internal("scan trial balance line", err)
		}
		line.NetCents = line.DebitCents - line.CreditCents
		tb.Lines = append(tb.Lines, line)
		tb.TotalDebits += line.DebitCents
		tb.TotalCredits += line.CreditCents
	}
	tb.IsBalanced = tb.TotalDebits == tb.TotalCredits
	return tb, rows.Err()
}

// SaveJournal persists journal and its entries atomically: it locks every
// touched account in canonical order, then posts entries in the order
// they appear in journal.Entries (input order), computing each entry's
// BalanceAfterCents against that account's last persisted entry (which may
// be another entry earlier in this same journal).
func (r *LedgerRepository) SaveJournal(ctx context.Context, journal domain.Journal) error {
	return r.saveJournalEntries(ctx, journal)
}

// SaveReversal persists a reversal journal and links it to the original,
// all in the same transaction. If ctx already carries a transaction
// enlisted by RunInTx, the reversal joins it instead of opening its own.
func (r *LedgerRepository) SaveReversal(ctx context.Context, original domain.Journal, reversal domain.Journal) error {
	run := func(tx pgx.Tx) error {
		if err := r.postJournalTx(ctx, tx, &reversal); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `
			UPDATE journals SET reversed_by_journal_id = $1
			WHERE id = $2 AND reversed_by_journal_id IS NULL`, reversal.ID, original.ID)
		if err != nil {
			return apperrors.Internal("link reversal", err)
		}
		if tag.RowsAffected() == 0 {
			return apperrors.InvalidState("journal already reversed")
		}
		return nil
	}
	if tx, ok := ctx.Value(ctxTxKey{}).(pgx.Tx); ok {
		return run(tx)
	}
	return pgx.BeginFunc(ctx, r.Pool, run)
}

func (r *LedgerRepository) saveJournalEntries(ctx context.Context, journal domain.Journal) error {
	if tx, ok := ctx.Value(ctxTxKey{}).(pgx.Tx); ok {
		return r.postJournalTx(ctx, tx, &journal)
	}
	return pgx.BeginFunc(ctx, r.Pool, func(tx pgx.Tx) error {
		return r.postJournalTx(ctx, tx, &journal)
	})
}

func (r *LedgerRepository) postJournalTx(ctx context.Context, tx pgx.Tx, journal *domain.Journal) error {
	codes := make([]string, 0, len(journal.Entries))
	seen := map[string]struct{}{}
	for _, e := range journal.Entries {
		if _, ok := seen[e.AccountCode]; !ok {
			seen[e.AccountCode] = struct{}{}
			codes = append(codes, e.AccountCode)
		}
	}

	if _, err := r.FindAccountsByCodesForUpdate(ctx, tx, codes); err != nil {
		return err
	}

	running := make(map[string]int64, len(codes))
	for _, code := range codes {
		last, err := r.lastEntryForAccountTx(ctx, tx, journal.TenantID, code)
		if err != nil {
			return err
		}
		if last != nil {
			running[code] = last.BalanceAfterCents
		}
	}

	_, err := tx.Exec(ctx, `
		INSERT INTO journals (id, tenant_id, contract_id, type, description, is_reversal, reverses_journal_id, reversed_by_journal_id, reversal_reason, created_at, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		journal.ID, journal.TenantID, journal.ContractID, journal.Type, journal.Description, journal.IsReversal,
		journal.ReversesJournalID, journal.ReversedByJournalID, journal.ReversalReason, journal.CreatedAt, journal.CreatedBy)
	if err != nil {
		return apperrors.Internal("insert journal", err)
	}

	accounts, err := r.findAccountTypesTx(ctx, tx, codes)
	if err != nil {
		return err
	}

	for i := range journal.Entries {
		e := &journal.Entries[i]
		acct, ok := accounts[e.AccountCode]
		if !ok {
			return apperrors.NotFound("account not found: " + e.AccountCode)
		}
		delta := e.DebitCents - e.CreditCents
		if acct.Type.NormalSide() == domain.Credit {
			delta = e.CreditCents - e.DebitCents
		}
		running[e.AccountCode] += delta
		e.BalanceAfterCents = running[e.AccountCode]
		e.JournalID = journal.ID
		if e.CreatedAt.IsZero() {
			e.CreatedAt = journal.CreatedAt
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO entries (journal_id, seq, account_code, debit_cents, credit_cents, balance_after_cents, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			e.JournalID, i, e.AccountCode, e.DebitCents, e.CreditCents, e.BalanceAfterCents, e.CreatedAt)
		if err != nil {
			return apperrors.Internal("insert entry", err)
		}
	}
	return nil
}

func (r *LedgerRepository) lastEntryForAccountTx(ctx context.Context, tx pgx.Tx, tenantID, accountCode string) (*domain.Entry, error) {
	row := tx.QueryRow(ctx, `
		SELECT e.journal_id, e.account_code, e.debit_cents, e.credit_cents, e.balance_after_cents, e.created_at
		FROM entries e JOIN journals j ON j.id = e.journal_id
		WHERE j.tenant_id = $1 AND e.account_code = $2
		ORDER BY e.created_at DESC, e.seq DESC LIMIT 1`, tenantID, accountCode)
	var e domain.Entry
	if err := row.Scan(&e.JournalID, &e.AccountCode, &e.DebitCents, &e.CreditCents, &e.BalanceAfterCents, &e.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperrors.Internal("last entry for account (tx)", err)
	}
	return &e, nil
}

func (r *LedgerRepository) findAccountTypesTx(ctx context.Context, tx pgx.Tx, codes []string) (map[string]domain.Account, error) {
	rows, err := tx.Query(ctx, `SELECT code, type FROM accounts WHERE code = ANY($1)`, codes)
	if err != nil {
		return nil, apperrors.Internal("find account types", err)
	}
	defer rows.Close()
	out := make(map[string]domain.Account, len(codes))
	for rows.Next() {
		var a domain.Account
		if err := rows.Scan(&a.Code, &a.Type); err != nil {
			return nil, apperrors.Internal("scan account type", err)
		}
		out[a.Code] = a
	}
	return out, rows.Err()
}
