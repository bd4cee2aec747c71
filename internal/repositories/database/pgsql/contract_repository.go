package pgsql

import (
	"context"
	"errors"
	"time"

	"github.com/bigfin/core/internal/apperrors"
	"github.com/bigfin/core/internal/core/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ContractRepository persists loan contracts and their amortization
// schedules across the contract aggregate's two tables.
type ContractRepository struct {
	BaseRepository
}

// NewContractRepository constructs a ContractRepository.
func NewContractRepository(pool *pgxpool.Pool) *ContractRepository {
	return &ContractRepository{BaseRepository{Pool: pool}}
}

func (r *ContractRepository) FindContractByID(ctx context.Context, tenantID, contractID string) (*domain.LoanContract, error) {
	row := r.executor(ctx).QueryRow(ctx, `
		SELECT id, tenant_id, status, principal_cents, apr_bps, term_months, payment_frequency,
		       first_payment_date, principal_balance_cents, interest_balance_cents, fees_balance_cents,
		       disbursed_at, paid_off_at, created_at, created_by, updated_at, updated_by
		FROM loan_contracts WHERE id = $1 AND tenant_id = $2`, contractID, tenantID)

	var c domain.LoanContract
	if err := row.Scan(&c.ID, &c.TenantID, &c.Status, &c.PrincipalCents, &c.AprBps, &c.TermMonths, &c.PaymentFrequency,
		&c.FirstPaymentDate, &c.PrincipalBalanceCents, &c.InterestBalanceCents, &c.FeesBalanceCents,
		&c.DisbursedAt, &c.PaidOffAt, &c.CreatedAt, &c.CreatedBy, &c.UpdatedAt, &c.UpdatedBy); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("loan contract not found")
		}
		return nil, apperrors.Internal("find contract by id", err)
	}
	return &c, nil
}

func (r *ContractRepository) SaveContract(ctx context.Context, contract domain.LoanContract) error {
	_, err := r.executor(ctx).Exec(ctx, `
		INSERT INTO loan_contracts (id, tenant_id, status, principal_cents, apr_bps, term_months, payment_frequency,
		       first_payment_date, principal_balance_cents, interest_balance_cents, fees_balance_cents,
		       disbursed_at, paid_off_at, created_at, created_by, updated_at, updated_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		contract.ID, contract.TenantID, contract.Status, contract.PrincipalCents, contract.AprBps, contract.TermMonths,
		contract.PaymentFrequency, contract.FirstPaymentDate, contract.PrincipalBalanceCents, contract.InterestBalanceCents,
		contract.FeesBalanceCents, contract.DisbursedAt, contract.PaidOffAt, contract.CreatedAt, contract.CreatedBy,
		contract.UpdatedAt, contract.UpdatedBy)
	if err != nil {
		return apperrors.Internal("save contract", err)
	}
	return nil
}

func (r *ContractRepository) UpdateContract(ctx context.Context, contract domain.LoanContract) error {
	tag, err := r.executor(ctx).Exec(ctx, `
		UPDATE loan_contracts SET
			status = $1, principal_balance_cents = $2, interest_balance_cents = $3, fees_balance_cents = $4,
			disbursed_at = $5, paid_off_at = $6, updated_at = $7, updated_by = $8
		WHERE id = $9 AND tenant_id = $10`,
		contract.Status, contract.PrincipalBalanceCents, contract.InterestBalanceCents, contract.FeesBalanceCents,
		contract.DisbursedAt, contract.PaidOffAt, contract.UpdatedAt, contract.UpdatedBy, contract.ID, contract.TenantID)
	if err != nil {
		return apperrors.Internal("update contract", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("loan contract not found")
	}
	return nil
}

// ScheduleRepository persists amortization schedule items.
type ScheduleRepository struct {
	BaseRepository
}

// NewScheduleRepository constructs a ScheduleRepository.
func NewScheduleRepository(pool *pgxpool.Pool) *ScheduleRepository {
	return &ScheduleRepository{BaseRepository{Pool: pool}}
}

func (r *ScheduleRepository) ListScheduleItems(ctx context.Context, contractID string) ([]domain.ScheduleItem, error) {
	rows, err := r.executor(ctx).Query(ctx, `
		SELECT id, contract_id, period, due_date, principal_due_cents, interest_due_cents, fees_due_cents, status
		FROM schedule_items WHERE contract_id = $1 ORDER BY period ASC`, contractID)
	if err != nil {
		return nil, apperrors.Internal("list schedule items", err)
	}
	defer rows.Close()

	var out []domain.ScheduleItem
	for rows.Next() {
		var s domain.ScheduleItem
		if err := rows.Scan(&s.ID, &s.ContractID, &s.Period, &s.DueDate, &s.PrincipalDueCents, &s.InterestDueCents, &s.FeesDueCents, &s.Status); err != nil {
			return nil, apperrors.Internal("scan schedule item", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *ScheduleRepository) ListOverdueScheduleItems(ctx context.Context, tenantID string, asOf time.Time) ([]domain.ScheduleItem, error) {
	rows, err := r.executor(ctx).Query(ctx, `
		SELECT si.id, si.contract_id, si.period, si.due_date, si.principal_due_cents, si.interest_due_cents, si.fees_due_cents, si.status
		FROM schedule_items si
		JOIN loan_contracts lc ON lc.id = si.contract_id
		WHERE lc.tenant_id = $1 AND si.due_date < $2 AND si.status IN ('SCHEDULED', 'DUE')
		ORDER BY si.due_date ASC`, tenantID, asOf)
	if err != nil {
		return nil, apperrors.Internal("list overdue schedule items", err)
	}
	defer rows.Close()

	var out []domain.ScheduleItem
	for rows.Next() {
		var s domain.ScheduleItem
		if err := rows.Scan(&s.ID, &s.ContractID, &s.Period, &s.DueDate, &s.PrincipalDueCents, &s.InterestDueCents, &s.FeesDueCents, &s.Status); err != nil {
			return nil, apperrors.Internal("scan overdue schedule item", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *ScheduleRepository) SaveScheduleItems(ctx context.Context, items []domain.ScheduleItem) error {
	return r.WithTx(ctx, func(tx pgx.Tx) error {
		for _, s := range items {
			_, err := tx.Exec(ctx, `
				INSERT INTO schedule_items (id, contract_id, period, due_date, principal_due_cents, interest_due_cents, fees_due_cents, status)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
				s.ID, s.ContractID, s.Period, s.DueDate, s.PrincipalDueCents, s.InterestDueCents, s.FeesDueCents, s.Status)
			if err != nil {
				return apperrors.Internal("save schedule item", err)
			}
		}
		return nil
	})
}

func (r *ScheduleRepository) UpdateScheduleItemStatus(ctx context.Context, itemID string, status domain.ScheduleItemStatus) error {
	tag, err := r.executor(ctx).Exec(ctx, `UPDATE schedule_items SET status = $1 WHERE id = $2`, status, itemID)
	if err != nil {
		return apperrors.Internal("update schedule item status", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("schedule item not found")
	}
	return nil
}
