// Package provider defines the PaymentProvider port: the external
// collaborator BigFin calls to move money. Any concrete provider SDK is an
// adapter behind this interface; tests substitute an in-memory double.
package provider

import (
	"context"
	"time"
)

// CreateTransferInput is the request shape for PaymentProvider.CreateTransfer.
type CreateTransferInput struct {
	SourcePaymentMethodID string
	DestPaymentMethodID   string
	AmountCents           int64
	Currency              string
	Description           string
	Metadata              map[string]string
	// IdempotencyKey is the orchestrator's caller key with "-transfer"
	// appended, so caller and provider idempotency domains are independent.
	IdempotencyKey string
}

// TransferHandle is the provider's minimal acknowledgement of a created
// transfer.
type TransferHandle struct {
	ID     string
	Status string
}

// ProviderTransfer is one row of the provider's transfer ledger, as
// returned by ListTransfers.
type ProviderTransfer struct {
	ID          string
	Status      string
	AmountCents int64
	CreatedAt   time.Time
	CompletedAt *time.Time
	Metadata    map[string]string
}

// PaymentMethod is a provider-side payment method handle.
type PaymentMethod struct {
	ID   string
	Type string
}

// Window bounds a ListTransfers query.
type Window struct {
	Start time.Time
	End   time.Time
}

// PaymentProvider is the external collaborator contract. Implementations
// must be idempotent on CreateTransfer given the same IdempotencyKey.
type PaymentProvider interface {
	CreateTransfer(ctx context.Context, in CreateTransferInput) (TransferHandle, error)
	ListTransfers(ctx context.Context, window Window) ([]ProviderTransfer, error)
	ListPaymentMethods(ctx context.Context, accountRef string) ([]PaymentMethod, error)
	Cancel(ctx context.Context, id string) error
}

// WebhookEvent is the parsed shape of an inbound provider webhook.
type WebhookEvent struct {
	EventID   string
	Type      string
	Data      map[string]any
	CreatedOn time.Time
}
