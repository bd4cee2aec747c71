// Package provider holds concrete PaymentProvider adapters. InMemoryProvider
// is the test/local-development double: it respects the same contract a
// real provider would (listable history, deterministic ids, synchronous
// callbacks for webhook simulation) without any external dependency.
package provider

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bigfin/core/internal/apperrors"
	"github.com/bigfin/core/internal/core/ports/provider"
)

// InMemoryProvider is a deterministic, in-process PaymentProvider double.
// IDs are sequential ("tx-1", "tx-2", ...) rather than random, so tests can
// assert on them directly. FailNext(n) preloads n forced CreateTransfer
// failures, exercising the orchestrator's fallback loop.
type InMemoryProvider struct {
	mu        sync.Mutex
	seq       int
	transfers map[string]*provider.ProviderTransfer
	methods   map[string][]provider.PaymentMethod
	failNext  int
	onDeliver func(ctx context.Context, event provider.WebhookEvent) error
}

// NewInMemoryProvider constructs an empty InMemoryProvider.
func NewInMemoryProvider() *InMemoryProvider {
	return &InMemoryProvider{
		transfers: make(map[string]*provider.ProviderTransfer),
		methods:   make(map[string][]provider.PaymentMethod),
	}
}

// SetPaymentMethods seeds the payment methods ListPaymentMethods returns
// for a given account reference.
func (p *InMemoryProvider) SetPaymentMethods(accountRef string, methods []provider.PaymentMethod) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.methods[accountRef] = methods
}

// FailNext makes the next n CreateTransfer calls return a provider error,
// exercising the orchestrator's rail fallback loop.
func (p *InMemoryProvider) FailNext(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failNext = n
}

// OnDeliver registers a callback invoked synchronously by CompleteTransfer,
// FailTransfer and ReturnTransfer, modeling a webhook handler without an
// HTTP round trip.
func (p *InMemoryProvider) OnDeliver(fn func(ctx context.Context, event provider.WebhookEvent) error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onDeliver = fn
}

func (p *InMemoryProvider) CreateTransfer(ctx context.Context, in provider.CreateTransferInput) (provider.TransferHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failNext > 0 {
		p.failNext--
		return provider.TransferHandle{}, apperrors.ProviderError("simulated provider failure")
	}

	p.seq++
	id := fmt.Sprintf("tx-%d", p.seq)
	now := time.Now().UTC()
	p.transfers[id] = &provider.ProviderTransfer{
		ID:          id,
		Status:      "processing",
		AmountCents: in.AmountCents,
		CreatedAt:   now,
		Metadata:    in.Metadata,
	}
	return provider.TransferHandle{ID: id, Status: "processing"}, nil
}

func (p *InMemoryProvider) ListTransfers(ctx context.Context, window provider.Window) ([]provider.ProviderTransfer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []provider.ProviderTransfer
	for _, t := range p.transfers {
		if t.CreatedAt.Before(window.Start) || t.CreatedAt.After(window.End) {
			continue
		}
		out = append(out, *t)
	}
	return out, nil
}

func (p *InMemoryProvider) ListPaymentMethods(ctx context.Context, accountRef string) ([]provider.PaymentMethod, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.methods[accountRef], nil
}

func (p *InMemoryProvider) Cancel(ctx context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.transfers[id]
	if !ok {
		return nil // best-effort, idempotent
	}
	t.Status = "canceled"
	return nil
}

// CompleteTransfer marks a previously created transfer COMPLETED and
// delivers a transfer.completed webhook event through the registered
// handler, simulating the provider's asynchronous settlement callback.
func (p *InMemoryProvider) CompleteTransfer(ctx context.Context, id string) error {
	return p.setStatusAndDeliver(ctx, id, "completed", "transfer.completed")
}

// FailTransfer marks a previously created transfer FAILED and delivers a
// transfer.failed webhook event.
func (p *InMemoryProvider) FailTransfer(ctx context.Context, id string) error {
	return p.setStatusAndDeliver(ctx, id, "failed", "transfer.failed")
}

// ReturnTransfer marks a previously created transfer RETURNED and delivers
// a transfer.reversed webhook event.
func (p *InMemoryProvider) ReturnTransfer(ctx context.Context, id string) error {
	return p.setStatusAndDeliver(ctx, id, "returned", "transfer.reversed")
}

func (p *InMemoryProvider) setStatusAndDeliver(ctx context.Context, id, status, eventType string) error {
	p.mu.Lock()
	t, ok := p.transfers[id]
	if !ok {
		p.mu.Unlock()
		return apperrors.NotFound("no such provider transfer " + id)
	}
	t.Status = status
	now := time.Now().UTC()
	if status == "completed" {
		t.CompletedAt = &now
	}
	deliver := p.onDeliver
	p.mu.Unlock()

	if deliver == nil {
		return nil
	}
	event := provider.WebhookEvent{
		EventID:   id + "-" + status,
		Type:      eventType,
		Data:      map[string]any{"id": id, "status": status, "amount_cents": t.AmountCents},
		CreatedOn: now,
	}
	return deliver(ctx, event)
}
