package domain

import "time"

// IdempotencyRecord caches the outcome of a prior mutating call so that a
// retried call with the same key returns the original response verbatim.
type IdempotencyRecord struct {
	Key        string    `json:"key"`
	Response   []byte    `json:"response"`
	StatusCode int       `json:"statusCode"`
	CreatedAt  time.Time `json:"createdAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
}
