package pgsql

import (
	"context"
	"errors"

	"github.com/bigfin/core/internal/apperrors"
	"github.com/bigfin/core/internal/core/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PrefundRepository persists the append-only custodial prefund ledger:
// one audit row per deposit, withdrawal, fee, disbursement hold, and
// disbursement release against a lender's prefund balance.
type PrefundRepository struct {
	BaseRepository
}

// NewPrefundRepository constructs a PrefundRepository.
func NewPrefundRepository(pool *pgxpool.Pool) *PrefundRepository {
	return &PrefundRepository{BaseRepository{Pool: pool}}
}

func (r *PrefundRepository) LatestCompleted(ctx context.Context, customerID string) (*domain.PrefundTransaction, error) {
	row := r.Pool.QueryRow(ctx, `
		SELECT id, customer_id, type, amount_cents, status, balance_after_cents, available_after_cents, created_at
		FROM prefund_transactions
		WHERE customer_id = $1 AND status = 'COMPLETED'
		ORDER BY created_at DESC LIMIT 1`, customerID)

	var t domain.PrefundTransaction
	if err := row.Scan(&t.ID, &t.CustomerID, &t.Type, &t.AmountCents, &t.Status, &t.BalanceAfterCents, &t.AvailableAfterCents, &t.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperrors.Internal("latest completed prefund transaction", err)
	}
	return &t, nil
}

func (r *PrefundRepository) ListCompleted(ctx context.Context, customerID string) ([]domain.PrefundTransaction, error) {
	rows, err := r.Pool.Query(ctx, `
		SELECT id, customer_id, type, amount_cents, status, balance_after_cents, available_after_cents, created_at
		FROM prefund_transactions
		WHERE customer_id = $1 AND status = 'COMPLETED'
		ORDER BY created_at ASC`, customerID)
	if err != nil {
		return nil, apperrors.Internal("list completed prefund transactions", err)
	}
	defer rows.Close()

	var out []domain.PrefundTransaction
	for rows.Next() {
		var t domain.PrefundTransaction
		if err := rows.Scan(&t.ID, &t.CustomerID, &t.Type, &t.AmountCents, &t.Status, &t.BalanceAfterCents, &t.AvailableAfterCents, &t.CreatedAt); err != nil {
			return nil, apperrors.Internal("scan prefund transaction", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *PrefundRepository) ListCustomersWithActivity(ctx context.Context) ([]string, error) {
	rows, err := r.Pool.Query(ctx, `SELECT DISTINCT customer_id FROM prefund_transactions`)
	if err != nil {
		return nil, apperrors.Internal("list customers with prefund activity", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, apperrors.Internal("scan customer id", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *PrefundRepository) SavePrefundTransaction(ctx context.Context, tx domain.PrefundTransaction) error {
	_, err := r.Pool.Exec(ctx, `
		INSERT INTO prefund_transactions (id, customer_id, type, amount_cents, status, balance_after_cents, available_after_cents, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		tx.ID, tx.CustomerID, tx.Type, tx.AmountCents, tx.Status, tx.BalanceAfterCents, tx.AvailableAfterCents, tx.CreatedAt)
	if err != nil {
		return apperrors.Internal("save prefund transaction", err)
	}
	return nil
}
