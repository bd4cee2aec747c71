package pgsql

import (
	"time"

	"github.com/bigfin/core/internal/utils/pagination"
)

// encodeJournalToken/decodeJournalToken wrap the shared token helpers for
// the single-field (created_at) cursor used by journal listing.
func encodeJournalToken(createdAt time.Time) string {
	return pagination.EncodeDateBasedToken(createdAt)
}

func decodeJournalToken(token string) (time.Time, error) {
	return pagination.DecodeDateBasedToken(token)
}
