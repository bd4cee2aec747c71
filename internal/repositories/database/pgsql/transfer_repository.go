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

// DisbursementRepository persists disbursements, the outbound half of the
// transfer aggregate (repayments are the inbound half).
type DisbursementRepository struct {
	BaseRepository
}

// NewDisbursementRepository constructs a DisbursementRepository.
func NewDisbursementRepository(pool *pgxpool.Pool) *DisbursementRepository {
	return &DisbursementRepository{BaseRepository{Pool: pool}}
}

func scanDisbursement(row pgx.Row) (*domain.Disbursement, error) {
	var d domain.Disbursement
	if err := row.Scan(&d.ID, &d.TenantID, &d.ContractID, &d.AmountCents, &d.ExpressFeeCents, &d.NetAmountCents,
		&d.Source, &d.Status, &d.AvailabilityState, &d.ProviderRef, &d.Rail, &d.IdempotencyKey, &d.SettlementJournalID,
		&d.InitiatedAt, &d.CompletedAt, &d.FailedAt, &d.FailureReason, &d.AvailableAt); err != nil {
		return nil, err
	}
	return &d, nil
}

const disbursementColumns = `id, tenant_id, contract_id, amount_cents, express_fee_cents, net_amount_cents,
	       source, status, availability_state, provider_ref, rail, idempotency_key, settlement_journal_id,
	       initiated_at, completed_at, failed_at, failure_reason, available_at`

func (r *DisbursementRepository) FindDisbursementByID(ctx context.Context, tenantID, id string) (*domain.Disbursement, error) {
	row := r.executor(ctx).QueryRow(ctx, `SELECT `+disbursementColumns+` FROM disbursements WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	d, err := scanDisbursement(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("disbursement not found")
		}
		return nil, apperrors.Internal("find disbursement by id", err)
	}
	return d, nil
}

func (r *DisbursementRepository) FindDisbursementByProviderRef(ctx context.Context, providerRef string) (*domain.Disbursement, error) {
	row := r.executor(ctx).QueryRow(ctx, `SELECT `+disbursementColumns+` FROM disbursements WHERE provider_ref = $1`, providerRef)
	d, err := scanDisbursement(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("disbursement not found")
		}
		return nil, apperrors.Internal("find disbursement by provider ref", err)
	}
	return d, nil
}

func (r *DisbursementRepository) ListDisbursementsInitiatedBetween(ctx context.Context, tenantID string, start, end time.Time) ([]domain.Disbursement, error) {
	rows, err := r.executor(ctx).Query(ctx, `
		SELECT `+disbursementColumns+` FROM disbursements
		WHERE tenant_id = $1 AND initiated_at >= $2 AND initiated_at < $3
		ORDER BY initiated_at ASC`, tenantID, start, end)
	if err != nil {
		return nil, apperrors.Internal("list disbursements initiated between", err)
	}
	defer rows.Close()

	var out []domain.Disbursement
	for rows.Next() {
		d, err := scanDisbursement(rows)
		if err != nil {
			return nil, apperrors.Internal("scan disbursement", err)
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func (r *DisbursementRepository) SaveDisbursement(ctx context.Context, d domain.Disbursement) error {
	_, err := r.executor(ctx).Exec(ctx, `
		INSERT INTO disbursements (`+disbursementColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`,
		d.ID, d.TenantID, d.ContractID, d.AmountCents, d.ExpressFeeCents, d.NetAmountCents,
		d.Source, d.Status, d.AvailabilityState, d.ProviderRef, d.Rail, d.IdempotencyKey, d.SettlementJournalID,
		d.InitiatedAt, d.CompletedAt, d.FailedAt, d.FailureReason, d.AvailableAt)
	if err != nil {
		return apperrors.Internal("save disbursement", err)
	}
	return nil
}

func (r *DisbursementRepository) UpdateDisbursement(ctx context.Context, d domain.Disbursement) error {
	tag, err := r.executor(ctx).Exec(ctx, `
		UPDATE disbursements SET
			status = $1, availability_state = $2, provider_ref = $3, rail = $4, settlement_journal_id = $5,
			completed_at = $6, failed_at = $7, failure_reason = $8, available_at = $9
		WHERE id = $10 AND tenant_id = $11`,
		d.Status, d.AvailabilityState, d.ProviderRef, d.Rail, d.SettlementJournalID,
		d.CompletedAt, d.FailedAt, d.FailureReason, d.AvailableAt, d.ID, d.TenantID)
	if err != nil {
		return apperrors.Internal("update disbursement", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("disbursement not found")
	}
	return nil
}

// RepaymentRepository persists repayments, the inbound half of the transfer
// aggregate.
type RepaymentRepository struct {
	BaseRepository
}

// NewRepaymentRepository constructs a RepaymentRepository.
func NewRepaymentRepository(pool *pgxpool.Pool) *RepaymentRepository {
	return &RepaymentRepository{BaseRepository{Pool: pool}}
}

const repaymentColumns = `id, tenant_id, contract_id, amount_cents, applied_fee_cents, applied_interest_cents,
	       applied_principal_cents, status, availability_state, provider_ref, rail, idempotency_key,
	       settlement_journal_id, initiated_at, completed_at, failed_at, failure_reason, available_at`

func scanRepayment(row pgx.Row) (*domain.Repayment, error) {
	var p domain.Repayment
	if err := row.Scan(&p.ID, &p.TenantID, &p.ContractID, &p.AmountCents, &p.AppliedFeeCents, &p.AppliedInterestCents,
		&p.AppliedPrincipalCents, &p.Status, &p.AvailabilityState, &p.ProviderRef, &p.Rail, &p.IdempotencyKey,
		&p.SettlementJournalID, &p.InitiatedAt, &p.CompletedAt, &p.FailedAt, &p.FailureReason, &p.AvailableAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *RepaymentRepository) FindRepaymentByID(ctx context.Context, tenantID, id string) (*domain.Repayment, error) {
	row := r.executor(ctx).QueryRow(ctx, `SELECT `+repaymentColumns+` FROM repayments WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	p, err := scanRepayment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("repayment not found")
		}
		return nil, apperrors.Internal("find repayment by id", err)
	}
	return p, nil
}

func (r *RepaymentRepository) FindRepaymentByProviderRef(ctx context.Context, providerRef string) (*domain.Repayment, error) {
	row := r.executor(ctx).QueryRow(ctx, `SELECT `+repaymentColumns+` FROM repayments WHERE provider_ref = $1`, providerRef)
	p, err := scanRepayment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("repayment not found")
		}
		return nil, apperrors.Internal("find repayment by provider ref", err)
	}
	return p, nil
}

func (r *RepaymentRepository) ListRepaymentsInitiatedBetween(ctx context.Context, tenantID string, start, end time.Time) ([]domain.Repayment, error) {
	rows, err := r.executor(ctx).Query(ctx, `
		SELECT `+repaymentColumns+` FROM repayments
		WHERE tenant_id = $1 AND initiated_at >= $2 AND initiated_at < $3
		ORDER BY initiated_at ASC`, tenantID, start, end)
	if err != nil {
		return nil, apperrors.Internal("list repayments initiated between", err)
	}
	defer rows.Close()

	var out []domain.Repayment
	for rows.Next() {
		p, err := scanRepayment(rows)
		if err != nil {
			return nil, apperrors.Internal("scan repayment", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *RepaymentRepository) SaveRepayment(ctx context.Context, p domain.Repayment) error {
	_, err := r.executor(ctx).Exec(ctx, `
		INSERT INTO repayments (`+repaymentColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`,
		p.ID, p.TenantID, p.ContractID, p.AmountCents, p.AppliedFeeCents, p.AppliedInterestCents,
		p.AppliedPrincipalCents, p.Status, p.AvailabilityState, p.ProviderRef, p.Rail, p.IdempotencyKey,
		p.SettlementJournalID, p.InitiatedAt, p.CompletedAt, p.FailedAt, p.FailureReason, p.AvailableAt)
	if err != nil {
		return apperrors.Internal("save repayment", err)
	}
	return nil
}

func (r *RepaymentRepository) UpdateRepayment(ctx context.Context, p domain.Repayment) error {
	tag, err := r.executor(ctx).Exec(ctx, `
		UPDATE repayments SET
			status = $1, availability_state = $2, provider_ref = $3, rail = $4, settlement_journal_id = $5,
			completed_at = $6, failed_at = $7, failure_reason = $8, available_at = $9
		WHERE id = $10 AND tenant_id = $11`,
		p.Status, p.AvailabilityState, p.ProviderRef, p.Rail, p.SettlementJournalID,
		p.CompletedAt, p.FailedAt, p.FailureReason, p.AvailableAt, p.ID, p.TenantID)
	if err != nil {
		return apperrors.Internal("update repayment", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("repayment not found")
	}
	return nil
}
