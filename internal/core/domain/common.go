package domain

import "time"

// AuditFields holds standard provenance information for domain entities.
type AuditFields struct {
	CreatedAt time.Time `json:"createdAt"`
	CreatedBy string    `json:"createdBy"`
	UpdatedAt time.Time `json:"updatedAt"`
	UpdatedBy string    `json:"updatedBy"`
}

// PageResult wraps a page of items with an opaque continuation token.
type PageResult[T any] struct {
	Items     []T
	NextToken *string
}
