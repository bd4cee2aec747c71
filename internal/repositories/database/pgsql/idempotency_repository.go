package pgsql

import (
	"context"
	"errors"

	"github.com/bigfin/core/internal/apperrors"
	"github.com/bigfin/core/internal/core/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// IdempotencyRepository persists idempotency records, keyed on the
// caller-supplied idempotency key. A unique-violation on insert reports
// CodeAlreadyExists rather than a conflict HTTP status directly, leaving
// status-code translation to the transport layer.
type IdempotencyRepository struct {
	BaseRepository
}

// NewIdempotencyRepository constructs an IdempotencyRepository.
func NewIdempotencyRepository(pool *pgxpool.Pool) *IdempotencyRepository {
	return &IdempotencyRepository{BaseRepository{Pool: pool}}
}

func (r *IdempotencyRepository) Get(ctx context.Context, key string) (*domain.IdempotencyRecord, error) {
	row := r.executor(ctx).QueryRow(ctx, `
		SELECT key, response, status_code, created_at, expires_at
		FROM idempotency_records WHERE key = $1 AND expires_at > now()`, key)

	var rec domain.IdempotencyRecord
	if err := row.Scan(&rec.Key, &rec.Response, &rec.StatusCode, &rec.CreatedAt, &rec.ExpiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperrors.Internal("get idempotency record", err)
	}
	return &rec, nil
}

func (r *IdempotencyRepository) Put(ctx context.Context, record domain.IdempotencyRecord) error {
	_, err := r.executor(ctx).Exec(ctx, `
		INSERT INTO idempotency_records (key, response, status_code, created_at, expires_at)
		VALUES ($1,$2,$3,$4,$5)`,
		record.Key, record.Response, record.StatusCode, record.CreatedAt, record.ExpiresAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperrors.AlreadyExists("idempotency key already claimed: " + record.Key)
		}
		return apperrors.Internal("put idempotency record", err)
	}
	return nil
}

// UpdateResponse fills in the response recorded against a key already
// claimed by Put, turning the placeholder inserted before a provider call
// into the replayable result once that call succeeds.
func (r *IdempotencyRepository) UpdateResponse(ctx context.Context, key string, response []byte, statusCode int) error {
	tag, err := r.executor(ctx).Exec(ctx, `
		UPDATE idempotency_records SET response = $1, status_code = $2 WHERE key = $3`,
		response, statusCode, key)
	if err != nil {
		return apperrors.Internal("update idempotency record", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("idempotency key not claimed: " + key)
	}
	return nil
}

// Delete removes a claimed key outright. Used to release a claim that will
// never be finalized, so retries are not blocked until the row expires.
func (r *IdempotencyRepository) Delete(ctx context.Context, key string) error {
	_, err := r.executor(ctx).Exec(ctx, `DELETE FROM idempotency_records WHERE key = $1`, key)
	if err != nil {
		return apperrors.Internal("delete idempotency record", err)
	}
	return nil
}
