package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bigfin/core/internal/apperrors"
	"github.com/bigfin/core/internal/core/domain"
	"github.com/bigfin/core/internal/core/ports/provider"
	"github.com/bigfin/core/internal/core/ports/repositories"
	portssvc "github.com/bigfin/core/internal/core/ports/services"
	"github.com/bigfin/core/internal/platform/config"
	"github.com/bigfin/core/internal/platform/metrics"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// providerCallRate bounds how fast the fallback loop may hit the payment
// provider across rails, so a string of rail failures doesn't turn into a
// burst against a provider that is itself degraded.
const (
	providerCallRatePerSecond = 20
	providerCallBurst         = 5
)

// railPaymentMethodTypes maps a rail to the provider payment-method types
// eligible on each side. Rails with no listed source type (rtp, fednow,
// push_to_card) move funds without debiting a source payment method: the
// disbursement draws from BigFin's own operating/prefund cash instead.
func railPaymentMethodTypes(rail domain.Rail) (sourceTypes, destTypes []string) {
	switch rail {
	case domain.RailRTP:
		return nil, []string{"rtp-credit"}
	case domain.RailFedNow:
		return nil, []string{"fednow-credit"}
	case domain.RailPushToCard:
		return nil, []string{"push-to-card"}
	case domain.RailSameDayACH:
		return []string{"ach-debit-fund", "ach-debit-collect"}, []string{"ach-credit-same-day"}
	default: // ach
		return []string{"ach-debit-fund", "ach-debit-collect"}, []string{"ach-credit-standard"}
	}
}

// OrchestratorService idempotently initiates transfers through the payment
// provider with fallback iteration, and ingests provider status updates.
// Settlement ingestion — record update, contract update, ledger post — runs
// inside a single transaction via txManager, so a crash partway through
// never leaves the contract and the ledger disagreeing about a settled
// transfer.
type OrchestratorService struct {
	BaseService
	provider      provider.PaymentProvider
	routing       portssvc.RoutingEngine
	ledger        portssvc.LedgerEngine
	contracts     repositories.ContractRepositoryFacade
	instruments   repositories.InstrumentRepositoryFacade
	disbursements repositories.DisbursementRepositoryFacade
	repayments    repositories.RepaymentRepositoryFacade
	prefund       repositories.PrefundReader
	idempotency   repositories.IdempotencyRepositoryFacade
	txManager     repositories.TransactionManager
	policy        config.ProductPolicy
	limiter       *rate.Limiter
}

var _ portssvc.Orchestrator = (*OrchestratorService)(nil)

// NewOrchestratorService constructs an OrchestratorService.
func NewOrchestratorService(
	p provider.PaymentProvider,
	routing portssvc.RoutingEngine,
	ledger portssvc.LedgerEngine,
	contracts repositories.ContractRepositoryFacade,
	instruments repositories.InstrumentRepositoryFacade,
	disbursements repositories.DisbursementRepositoryFacade,
	repayments repositories.RepaymentRepositoryFacade,
	prefund repositories.PrefundReader,
	idempotency repositories.IdempotencyRepositoryFacade,
	txManager repositories.TransactionManager,
	policy config.ProductPolicy,
) *OrchestratorService {
	return &OrchestratorService{
		provider: p, routing: routing, ledger: ledger, contracts: contracts,
		instruments: instruments, disbursements: disbursements, repayments: repayments,
		prefund: prefund, idempotency: idempotency, txManager: txManager, policy: policy,
		limiter: rate.NewLimiter(rate.Limit(providerCallRatePerSecond), providerCallBurst),
	}
}

func (s *OrchestratorService) Initiate(ctx context.Context, in portssvc.InitiateTransferInput) (domain.TransferResult, error) {
	if in.IdempotencyKey != nil {
		cached, err := s.claimIdempotencyKey(ctx, *in.IdempotencyKey)
		if err != nil {
			return domain.TransferResult{}, err
		}
		if cached != nil {
			return *cached, nil
		}
	}

	var sourceInstr, destInstr *domain.FundingInstrument
	var err error
	if in.SourceInstrument != "" {
		sourceInstr, err = s.instruments.FindInstrumentByID(ctx, in.SourceInstrument)
		if err != nil {
			return domain.TransferResult{}, err
		}
	}
	if in.DestInstrument != "" {
		destInstr, err = s.instruments.FindInstrumentByID(ctx, in.DestInstrument)
		if err != nil {
			return domain.TransferResult{}, err
		}
	}

	direction := portssvc.DirectionCredit
	if in.Kind == portssvc.KindRepayment {
		direction = portssvc.DirectionDebit
	}

	var sourceCaps, destCaps map[domain.Rail]struct{}
	if sourceInstr != nil {
		sourceCaps = sourceInstr.EffectiveRails()
	}
	if destInstr != nil {
		destCaps = destInstr.EffectiveRails()
	}

	var prefundAvailable *int64
	if in.Kind == portssvc.KindDisbursement {
		contract, err := s.contracts.FindContractByID(ctx, in.TenantID, in.ContractID)
		if err != nil {
			return domain.TransferResult{}, err
		}
		if latest, err := s.prefund.LatestCompleted(ctx, contract.ID); err == nil && latest != nil {
			avail := latest.AvailableAfterCents
			prefundAvailable = &avail
		}
	}

	route, err := s.routing.Route(portssvc.RouteInput{
		Speed:                   in.Speed,
		Direction:               direction,
		AmountCents:             in.AmountCents,
		SourceCapabilities:      sourceCaps,
		DestinationCapabilities: destCaps,
		PrefundAvailableCents:   prefundAvailable,
		Now:                     time.Now().UTC(),
	})
	if err != nil {
		return domain.TransferResult{}, err
	}

	recordID, err := s.createPendingRecord(ctx, in)
	if err != nil {
		return domain.TransferResult{}, err
	}

	candidates := append([]domain.Rail{route.Rail}, route.FallbackRails...)
	attempted := make([]domain.Rail, 0, len(candidates))
	var lastErr error

	for i, rail := range candidates {
		attempted = append(attempted, rail)
		metrics.TransferAttemptsTotal.WithLabelValues(string(in.Kind), string(rail)).Inc()
		if i > 0 {
			metrics.TransferFallbacksTotal.WithLabelValues(string(in.Kind), string(candidates[i-1]), string(rail)).Inc()
		}
		srcTypes, destTypes := railPaymentMethodTypes(rail)

		var srcPM, destPM string
		if len(srcTypes) > 0 && sourceInstr != nil {
			srcPM, err = s.resolvePaymentMethod(ctx, sourceInstr, srcTypes)
			if err != nil {
				lastErr = err
				continue
			}
		}
		if len(destTypes) > 0 && destInstr != nil {
			destPM, err = s.resolvePaymentMethod(ctx, destInstr, destTypes)
			if err != nil {
				lastErr = err
				continue
			}
		}

		providerKey := ""
		if in.IdempotencyKey != nil {
			providerKey = *in.IdempotencyKey + "-transfer"
		}

		if err := s.limiter.Wait(ctx); err != nil {
			return domain.TransferResult{}, apperrors.ProviderError("provider call rate limit wait: " + err.Error())
		}

		handle, cerr := s.provider.CreateTransfer(ctx, provider.CreateTransferInput{
			SourcePaymentMethodID: srcPM,
			DestPaymentMethodID:   destPM,
			AmountCents:           in.AmountCents,
			Currency:              "USD",
			Description:           string(in.Kind),
			IdempotencyKey:        providerKey,
		})
		if cerr != nil {
			s.LogInfo(ctx, "provider create_transfer failed, trying next rail", "rail", rail, "error", cerr.Error())
			lastErr = cerr
			continue
		}

		result := domain.TransferResult{
			ProviderRef:      handle.ID,
			Rail:             rail,
			Status:           domain.TransferPending,
			FeeCents:         route.FeeCents,
			EstimatedArrival: route.EstimatedArrival,
			AttemptedRails:   attempted,
		}

		if err := s.attachProviderRef(ctx, in, recordID, result); err != nil {
			return domain.TransferResult{}, err
		}
		if in.IdempotencyKey != nil {
			if err := s.storeIdempotentResponse(ctx, *in.IdempotencyKey, result); err != nil {
				return domain.TransferResult{}, err
			}
		}
		return result, nil
	}

	metrics.TransferFailuresTotal.WithLabelValues(string(in.Kind)).Inc()
	if in.IdempotencyKey != nil {
		// Release the claim: every rail failed, so nothing was actually
		// submitted to the provider and a retry with this key must be able
		// to try again rather than wait out the claim's 24h expiry.
		if derr := s.idempotency.Delete(ctx, *in.IdempotencyKey); derr != nil {
			s.LogError(ctx, derr, "failed to release idempotency claim after all rails failed", "idempotency_key", *in.IdempotencyKey)
		}
	}
	return domain.TransferResult{}, apperrors.Wrap(apperrors.CodeProviderError,
		fmt.Sprintf("all rails failed: %v", attempted), lastErr)
}

// claimIdempotencyKey returns the cached result for a key already finalized
// by a prior Initiate call, or inserts a placeholder row claiming the key
// and returns nil so the caller proceeds to the provider. A placeholder row
// (StatusCode 0) found on Get means another call is mid-flight for the same
// key; Put's unique-constraint detection catches the same race when two
// calls reach the claim step concurrently.
func (s *OrchestratorService) claimIdempotencyKey(ctx context.Context, key string) (*domain.TransferResult, error) {
	if cached, err := s.idempotency.Get(ctx, key); err != nil {
		return nil, err
	} else if cached != nil {
		return decodeIdempotentResult(cached)
	}

	claim := domain.IdempotencyRecord{
		Key:        key,
		Response:   []byte("null"),
		StatusCode: 0,
		CreatedAt:  time.Now().UTC(),
		ExpiresAt:  time.Now().UTC().Add(24 * time.Hour),
	}
	if err := s.idempotency.Put(ctx, claim); err != nil {
		if !apperrors.Is(err, apperrors.CodeAlreadyExists) {
			return nil, err
		}
		cached, gerr := s.idempotency.Get(ctx, key)
		if gerr != nil {
			return nil, gerr
		}
		return decodeIdempotentResult(cached)
	}
	return nil, nil
}

func decodeIdempotentResult(cached *domain.IdempotencyRecord) (*domain.TransferResult, error) {
	if cached == nil || cached.StatusCode == 0 {
		return nil, apperrors.New(apperrors.CodeInvalidState, "transfer already in flight for this idempotency key")
	}
	var result domain.TransferResult
	if err := json.Unmarshal(cached.Response, &result); err != nil {
		return nil, apperrors.Internal("decode cached transfer result", err)
	}
	return &result, nil
}

// createPendingRecord persists the INITIATED disbursement or repayment
// record before any provider call is attempted, so status ingestion always
// has a row to find by provider_ref once the call succeeds.
func (s *OrchestratorService) createPendingRecord(ctx context.Context, in portssvc.InitiateTransferInput) (string, error) {
	id := uuid.NewString()

	if in.Kind == portssvc.KindDisbursement {
		d := domain.Disbursement{
			ID:                id,
			TenantID:          in.TenantID,
			ContractID:        in.ContractID,
			AmountCents:       in.AmountCents,
			Source:            domain.SourceDirect,
			Status:            domain.TransferInitiated,
			AvailabilityState: domain.AvailabilityInitiated,
			IdempotencyKey:    in.IdempotencyKey,
		}
		return id, s.disbursements.SaveDisbursement(ctx, d)
	}

	balances, err := s.ledger.GetContractBalances(ctx, in.TenantID, in.ContractID)
	if err != nil {
		return "", err
	}
	split := ApplyWaterfall(in.AmountCents, balances)
	r := domain.Repayment{
		ID:                    id,
		TenantID:              in.TenantID,
		ContractID:            in.ContractID,
		AmountCents:           in.AmountCents,
		AppliedFeeCents:       split.AppliedFeeCents,
		AppliedInterestCents:  split.AppliedInterestCents,
		AppliedPrincipalCents: split.AppliedPrincipalCents,
		Status:                domain.TransferInitiated,
		AvailabilityState:     domain.AvailabilityInitiated,
		IdempotencyKey:        in.IdempotencyKey,
	}
	return id, s.repayments.SaveRepayment(ctx, r)
}

func (s *OrchestratorService) attachProviderRef(ctx context.Context, in portssvc.InitiateTransferInput, recordID string, result domain.TransferResult) error {
	now := time.Now().UTC()
	rail := result.Rail
	if in.Kind == portssvc.KindDisbursement {
		d, err := s.disbursements.FindDisbursementByID(ctx, in.TenantID, recordID)
		if err != nil {
			return err
		}
		d.ProviderRef = &result.ProviderRef
		d.Rail = &rail
		d.Status = domain.TransferPending
		d.AvailabilityState = domain.AvailabilityPending
		d.InitiatedAt = &now
		d.ExpressFeeCents = result.FeeCents
		d.NetAmountCents = d.AmountCents - result.FeeCents
		return s.disbursements.UpdateDisbursement(ctx, *d)
	}

	r, err := s.repayments.FindRepaymentByID(ctx, in.TenantID, recordID)
	if err != nil {
		return err
	}
	r.ProviderRef = &result.ProviderRef
	r.Rail = &rail
	r.Status = domain.TransferPending
	r.AvailabilityState = domain.AvailabilityPending
	r.InitiatedAt = &now
	return s.repayments.UpdateRepayment(ctx, *r)
}

// storeIdempotentResponse finalizes the placeholder row claimIdempotencyKey
// inserted before the rail loop, so a replayed request decodes the real
// result instead of seeing a claim forever stuck at StatusCode 0.
func (s *OrchestratorService) storeIdempotentResponse(ctx context.Context, key string, result domain.TransferResult) error {
	body, err := json.Marshal(result)
	if err != nil {
		return apperrors.Internal("encode idempotent response", err)
	}
	return s.idempotency.UpdateResponse(ctx, key, body, 200)
}

func (s *OrchestratorService) resolvePaymentMethod(ctx context.Context, instr *domain.FundingInstrument, types []string) (string, error) {
	accountRef := instr.ID
	if instr.ProviderRef != nil {
		accountRef = *instr.ProviderRef
	}
	pms, err := s.provider.ListPaymentMethods(ctx, accountRef)
	if err != nil {
		return "", apperrors.ProviderError("list payment methods: " + err.Error())
	}
	for _, pm := range pms {
		for _, t := range types {
			if pm.Type == t {
				return pm.ID, nil
			}
		}
	}
	return "", apperrors.New(apperrors.CodeInstrumentInvalid, "no payment method matching rail on instrument "+instr.ID)
}

func (s *OrchestratorService) Get(ctx context.Context, tenantID, providerRef string) (*domain.TransferResult, error) {
	if d, err := s.disbursements.FindDisbursementByProviderRef(ctx, providerRef); err == nil && d != nil {
		return disbursementToResult(d), nil
	}
	if r, err := s.repayments.FindRepaymentByProviderRef(ctx, providerRef); err == nil && r != nil {
		return repaymentToResult(r), nil
	}
	return nil, apperrors.NotFound("no transfer with provider_ref " + providerRef)
}

func disbursementToResult(d *domain.Disbursement) *domain.TransferResult {
	var rail domain.Rail
	if d.Rail != nil {
		rail = *d.Rail
	}
	var ref string
	if d.ProviderRef != nil {
		ref = *d.ProviderRef
	}
	return &domain.TransferResult{ProviderRef: ref, Rail: rail, Status: d.Status, FeeCents: d.ExpressFeeCents}
}

func repaymentToResult(r *domain.Repayment) *domain.TransferResult {
	var rail domain.Rail
	if r.Rail != nil {
		rail = *r.Rail
	}
	var ref string
	if r.ProviderRef != nil {
		ref = *r.ProviderRef
	}
	return &domain.TransferResult{ProviderRef: ref, Rail: rail, Status: r.Status}
}

func (s *OrchestratorService) Cancel(ctx context.Context, tenantID, providerRef string) error {
	if err := s.provider.Cancel(ctx, providerRef); err != nil {
		return apperrors.ProviderError("cancel: " + err.Error())
	}
	if d, err := s.disbursements.FindDisbursementByProviderRef(ctx, providerRef); err == nil && d != nil {
		if IsTerminal(d.Status) {
			return nil
		}
		d.Status = domain.TransferCancelled
		d.AvailabilityState = domain.AvailabilityFailed
		return s.disbursements.UpdateDisbursement(ctx, *d)
	}
	if r, err := s.repayments.FindRepaymentByProviderRef(ctx, providerRef); err == nil && r != nil {
		if IsTerminal(r.Status) {
			return nil
		}
		r.Status = domain.TransferCancelled
		r.AvailabilityState = domain.AvailabilityFailed
		return s.repayments.UpdateRepayment(ctx, *r)
	}
	return nil
}

// ProcessStatusUpdate ingests a normalized provider status update. It
// looks up the disbursement first, then the repayment, applies
// the status mapping, and posts the corresponding ledger effect on
// settlement. The disbursement/repayment record is flipped to its terminal
// status before the ledger journal is posted, so a redelivered webhook sees
// an already-terminal record and is dropped before a duplicate post.
func (s *OrchestratorService) ProcessStatusUpdate(ctx context.Context, update portssvc.StatusUpdate) error {
	now := update.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	if d, err := s.disbursements.FindDisbursementByProviderRef(ctx, update.ProviderRef); err == nil && d != nil {
		return s.ingestDisbursementStatus(ctx, d, update, now)
	}
	if r, err := s.repayments.FindRepaymentByProviderRef(ctx, update.ProviderRef); err == nil && r != nil {
		return s.ingestRepaymentStatus(ctx, r, update, now)
	}
	s.LogInfo(ctx, "status update for unknown provider_ref", "provider_ref", update.ProviderRef)
	return nil
}

func (s *OrchestratorService) ingestDisbursementStatus(ctx context.Context, d *domain.Disbursement, update portssvc.StatusUpdate, now time.Time) error {
	if IsTerminal(d.Status) {
		return nil
	}
	newStatus, newAvail := MapProviderStatus(update.ProviderStatus, portssvc.KindDisbursement)

	switch newStatus {
	case domain.TransferCompleted:
		return s.txManager.RunInTx(ctx, func(ctx context.Context) error {
			contract, err := s.contracts.FindContractByID(ctx, d.TenantID, d.ContractID)
			if err != nil {
				return err
			}

			firstTransaction := contract.Status == domain.ContractPendingDisbursement
			held, releaseAt := DetermineHold(s.policy.Availability, d.AmountCents, firstTransaction, now)
			d.Status = domain.TransferCompleted
			d.CompletedAt = &now
			if held {
				d.AvailabilityState = domain.AvailabilityHeld
				d.AvailableAt = &releaseAt
			} else {
				d.AvailabilityState = newAvail
				d.AvailableAt = &now
			}
			if err := s.disbursements.UpdateDisbursement(ctx, *d); err != nil {
				return err
			}

			if contract.Status == domain.ContractPendingDisbursement {
				contract.Status = domain.ContractActive
				contract.DisbursedAt = &now
				contract.PrincipalBalanceCents += d.AmountCents
				if err := s.contracts.UpdateContract(ctx, *contract); err != nil {
					return err
				}
			}

			var journal *domain.Journal
			if d.Source == domain.SourcePrefund {
				journal, err = s.ledger.PostDisbursementFromPrefund(ctx, contract.TenantID, d.ContractID, d.AmountCents, d.ExpressFeeCents, "orchestrator")
			} else {
				journal, err = s.ledger.PostDisbursementDirect(ctx, contract.TenantID, d.ContractID, d.AmountCents, d.ExpressFeeCents, "orchestrator")
			}
			if err != nil {
				return err
			}
			d.SettlementJournalID = &journal.ID
			return s.disbursements.UpdateDisbursement(ctx, *d)
		})

	case domain.TransferFailed:
		d.Status = domain.TransferFailed
		d.AvailabilityState = domain.AvailabilityFailed
		d.FailedAt = &now
		reason := update.ProviderStatus
		d.FailureReason = &reason
		return s.disbursements.UpdateDisbursement(ctx, *d)

	default:
		d.Status = newStatus
		d.AvailabilityState = newAvail
		return s.disbursements.UpdateDisbursement(ctx, *d)
	}
}

func (s *OrchestratorService) ingestRepaymentStatus(ctx context.Context, r *domain.Repayment, update portssvc.StatusUpdate, now time.Time) error {
	newStatus, newAvail := MapProviderStatus(update.ProviderStatus, portssvc.KindRepayment)
	// A return of a COMPLETED repayment is the one update allowed past a
	// terminal status: it reverses the settlement journal below.
	if IsTerminal(r.Status) && !(r.Status == domain.TransferCompleted && newStatus == domain.TransferReturned) {
		return nil
	}

	switch newStatus {
	case domain.TransferCompleted:
		return s.txManager.RunInTx(ctx, func(ctx context.Context) error {
			contract, err := s.contracts.FindContractByID(ctx, r.TenantID, r.ContractID)
			if err != nil {
				return err
			}

			firstTransaction := contract.PrincipalBalanceCents == contract.PrincipalCents
			held, releaseAt := DetermineHold(s.policy.Availability, r.AmountCents, firstTransaction, now)
			r.Status = domain.TransferCompleted
			r.CompletedAt = &now
			if held {
				r.AvailabilityState = domain.AvailabilityHeld
				r.AvailableAt = &releaseAt
			} else {
				r.AvailabilityState = newAvail
				r.AvailableAt = &now
			}
			if err := s.repayments.UpdateRepayment(ctx, *r); err != nil {
				return err
			}

			journal, err := s.ledger.PostRepayment(ctx, r.TenantID, r.ContractID,
				r.AppliedFeeCents, r.AppliedInterestCents, r.AppliedPrincipalCents, "orchestrator")
			if err != nil {
				return err
			}
			r.SettlementJournalID = &journal.ID
			if err := s.repayments.UpdateRepayment(ctx, *r); err != nil {
				return err
			}

			contract.PrincipalBalanceCents -= r.AppliedPrincipalCents
			contract.InterestBalanceCents -= r.AppliedInterestCents
			contract.FeesBalanceCents -= r.AppliedFeeCents
			if contract.PrincipalBalanceCents == 0 && contract.InterestBalanceCents == 0 && contract.FeesBalanceCents == 0 {
				contract.Status = domain.ContractPaidOff
				contract.PaidOffAt = &now
			}
			return s.contracts.UpdateContract(ctx, *contract)
		})

	case domain.TransferReturned:
		r.Status = domain.TransferReturned
		r.AvailabilityState = domain.AvailabilityFailed
		r.FailedAt = &now
		reason := update.ProviderStatus
		r.FailureReason = &reason
		if err := s.repayments.UpdateRepayment(ctx, *r); err != nil {
			return err
		}
		if r.SettlementJournalID != nil {
			_, err := s.ledger.ReverseJournal(ctx, r.TenantID, *r.SettlementJournalID, "repayment returned", "orchestrator")
			return err
		}
		return nil

	case domain.TransferFailed, domain.TransferCancelled:
		r.Status = newStatus
		r.AvailabilityState = domain.AvailabilityFailed
		r.FailedAt = &now
		reason := update.ProviderStatus
		r.FailureReason = &reason
		return s.repayments.UpdateRepayment(ctx, *r)

	default:
		r.Status = newStatus
		r.AvailabilityState = newAvail
		return s.repayments.UpdateRepayment(ctx, *r)
	}
}
