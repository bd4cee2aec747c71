package pgsql

import (
	"context"
	"errors"

	"github.com/bigfin/core/internal/apperrors"
	"github.com/bigfin/core/internal/core/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// InstrumentRepository persists funding instruments (bank accounts, debit
// cards) customers attach to their loan contracts.
type InstrumentRepository struct {
	BaseRepository
}

// NewInstrumentRepository constructs an InstrumentRepository.
func NewInstrumentRepository(pool *pgxpool.Pool) *InstrumentRepository {
	return &InstrumentRepository{BaseRepository{Pool: pool}}
}

func (r *InstrumentRepository) FindInstrumentByID(ctx context.Context, id string) (*domain.FundingInstrument, error) {
	row := r.Pool.QueryRow(ctx, `
		SELECT id, customer_id, type, status, provider_ref, supported_rails, created_at, created_by, updated_at, updated_by
		FROM funding_instruments WHERE id = $1`, id)

	var f domain.FundingInstrument
	var rails []string
	if err := row.Scan(&f.ID, &f.CustomerID, &f.Type, &f.Status, &f.ProviderRef, &rails,
		&f.CreatedAt, &f.CreatedBy, &f.UpdatedAt, &f.UpdatedBy); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("funding instrument not found")
		}
		return nil, apperrors.Internal("find instrument by id", err)
	}
	for _, rr := range rails {
		f.SupportedRails = append(f.SupportedRails, domain.Rail(rr))
	}
	return &f, nil
}

func (r *InstrumentRepository) SaveInstrument(ctx context.Context, instr domain.FundingInstrument) error {
	_, err := r.Pool.Exec(ctx, `
		INSERT INTO funding_instruments (id, customer_id, type, status, provider_ref, supported_rails, created_at, created_by, updated_at, updated_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		instr.ID, instr.CustomerID, instr.Type, instr.Status, instr.ProviderRef, railsToStrings(instr.SupportedRails),
		instr.CreatedAt, instr.CreatedBy, instr.UpdatedAt, instr.UpdatedBy)
	if err != nil {
		return apperrors.Internal("save instrument", err)
	}
	return nil
}

func (r *InstrumentRepository) UpdateInstrument(ctx context.Context, instr domain.FundingInstrument) error {
	tag, err := r.Pool.Exec(ctx, `
		UPDATE funding_instruments SET status = $1, provider_ref = $2, supported_rails = $3, updated_at = $4, updated_by = $5
		WHERE id = $6`,
		instr.Status, instr.ProviderRef, railsToStrings(instr.SupportedRails), instr.UpdatedAt, instr.UpdatedBy, instr.ID)
	if err != nil {
		return apperrors.Internal("update instrument", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("funding instrument not found")
	}
	return nil
}

func railsToStrings(rails []domain.Rail) []string {
	out := make([]string, len(rails))
	for i, r := range rails {
		out[i] = string(r)
	}
	return out
}
