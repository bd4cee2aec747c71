package repositories

import (
	"context"

	"github.com/bigfin/core/internal/core/domain"
)

// IdempotencyRepositoryFacade stores and retrieves idempotency records.
// Put relies on a primary-key insert to detect replays: a unique-constraint
// violation on Key means a concurrent or prior call already claimed it.
type IdempotencyRepositoryFacade interface {
	// Get returns the record for key if present and not expired.
	Get(ctx context.Context, key string) (*domain.IdempotencyRecord, error)
	// Put inserts a new record. Returns apperrors.CodeAlreadyExists if the
	// key is already claimed.
	Put(ctx context.Context, record domain.IdempotencyRecord) error
	// UpdateResponse fills in the response body and status code of a record
	// already claimed by Put. Returns apperrors.CodeNotFound if key has no
	// claimed row.
	UpdateResponse(ctx context.Context, key string, response []byte, statusCode int) error
	// Delete releases a claimed key, e.g. after every rail attempt failed, so
	// a retry with the same key is not permanently blocked by a claim that
	// will never be finalized.
	Delete(ctx context.Context, key string) error
}
