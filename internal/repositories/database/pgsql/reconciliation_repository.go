package pgsql

import (
	"context"
	"encoding/json"

	"github.com/bigfin/core/internal/apperrors"
	"github.com/bigfin/core/internal/core/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ReconciliationRepository persists reconciliation runs and the exceptions
// they raise.
type ReconciliationRepository struct {
	BaseRepository
}

// NewReconciliationRepository constructs a ReconciliationRepository.
func NewReconciliationRepository(pool *pgxpool.Pool) *ReconciliationRepository {
	return &ReconciliationRepository{BaseRepository{Pool: pool}}
}

func (r *ReconciliationRepository) ListOpenExceptions(ctx context.Context, tenantID string) ([]domain.ReconciliationException, error) {
	rows, err := r.Pool.Query(ctx, `
		SELECT id, tenant_id, type, severity, status, local_record_type, local_record_id, provider_record_id,
		       local_value, provider_value, discrepancy_amount_cents, description, detected_at, resolved_at, resolution_type
		FROM reconciliation_exceptions
		WHERE tenant_id = $1 AND status = 'open'
		ORDER BY detected_at ASC`, tenantID)
	if err != nil {
		return nil, apperrors.Internal("list open exceptions", err)
	}
	defer rows.Close()

	var out []domain.ReconciliationException
	for rows.Next() {
		var e domain.ReconciliationException
		if err := rows.Scan(&e.ID, &e.TenantID, &e.Type, &e.Severity, &e.Status, &e.LocalRecordType, &e.LocalRecordID,
			&e.ProviderRecordID, &e.LocalValue, &e.ProviderValue, &e.DiscrepancyAmountCents, &e.Description,
			&e.DetectedAt, &e.ResolvedAt, &e.ResolutionType); err != nil {
			return nil, apperrors.Internal("scan reconciliation exception", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *ReconciliationRepository) SaveException(ctx context.Context, exc domain.ReconciliationException) error {
	_, err := r.Pool.Exec(ctx, `
		INSERT INTO reconciliation_exceptions (id, tenant_id, type, severity, status, local_record_type, local_record_id,
		       provider_record_id, local_value, provider_value, discrepancy_amount_cents, description, detected_at,
		       resolved_at, resolution_type)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		exc.ID, exc.TenantID, exc.Type, exc.Severity, exc.Status, exc.LocalRecordType, exc.LocalRecordID,
		exc.ProviderRecordID, exc.LocalValue, exc.ProviderValue, exc.DiscrepancyAmountCents, exc.Description,
		exc.DetectedAt, exc.ResolvedAt, exc.ResolutionType)
	if err != nil {
		return apperrors.Internal("save reconciliation exception", err)
	}
	return nil
}

func (r *ReconciliationRepository) ResolveException(ctx context.Context, id string, resolution domain.ResolutionType) error {
	tag, err := r.Pool.Exec(ctx, `
		UPDATE reconciliation_exceptions SET status = 'resolved', resolution_type = $1, resolved_at = now()
		WHERE id = $2`, resolution, id)
	if err != nil {
		return apperrors.Internal("resolve reconciliation exception", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("reconciliation exception not found")
	}
	return nil
}

func (r *ReconciliationRepository) SaveRun(ctx context.Context, run domain.ReconciliationRun) error {
	summary, err := json.Marshal(run.Summary)
	if err != nil {
		return apperrors.Internal("marshal run summary", err)
	}
	_, err = r.Pool.Exec(ctx, `
		INSERT INTO reconciliation_runs (id, tenant_id, period_start, period_end, status, error_message, summary, started_at, finished_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		run.ID, run.TenantID, run.PeriodStart, run.PeriodEnd, run.Status, run.ErrorMessage, summary, run.StartedAt, run.FinishedAt)
	if err != nil {
		return apperrors.Internal("save reconciliation run", err)
	}
	return nil
}
