package services

import (
	"time"

	"github.com/bigfin/core/internal/core/domain"
	portssvc "github.com/bigfin/core/internal/core/ports/services"
	"github.com/bigfin/core/internal/platform/config"
)

// MapProviderStatus translates a raw provider status into the domain status
// + availability-state pair. kind distinguishes a disbursement from a
// repayment since "returned"/"canceled" map to different domain statuses
// for each.
func MapProviderStatus(raw string, kind portssvc.TransferKind) (domain.TransferStatus, domain.AvailabilityState) {
	switch raw {
	case "pending", "processing":
		return domain.TransferPending, domain.AvailabilityPending
	case "completed":
		return domain.TransferCompleted, domain.AvailabilityAvailable
	case "failed":
		return domain.TransferFailed, domain.AvailabilityFailed
	case "returned":
		if kind == portssvc.KindRepayment {
			return domain.TransferReturned, domain.AvailabilityFailed
		}
		return domain.TransferFailed, domain.AvailabilityFailed
	case "canceled":
		if kind == portssvc.KindRepayment {
			return domain.TransferCancelled, domain.AvailabilityFailed
		}
		return domain.TransferFailed, domain.AvailabilityFailed
	default:
		return domain.TransferPending, domain.AvailabilityPending
	}
}

// IsTerminal reports whether status is a settled, monotonic end state that
// must not be overwritten by a later, lower-precedence status update: a
// COMPLETED record stays COMPLETED unless explicitly reversed.
func IsTerminal(status domain.TransferStatus) bool {
	switch status {
	case domain.TransferCompleted, domain.TransferFailed, domain.TransferReturned, domain.TransferCancelled:
		return true
	default:
		return false
	}
}

// DetermineHold applies the availability policy's hold rules to a
// just-completed transfer, returning whether funds enter HELD before
// AVAILABLE and, if so, when the hold releases.
func DetermineHold(policy config.AvailabilityPolicy, amountCents int64, firstTransaction bool, now time.Time) (held bool, releaseAt time.Time) {
	hold := policy.DefaultHoldDuration
	if firstTransaction && policy.FirstTransactionHold > hold {
		hold = policy.FirstTransactionHold
	}
	if policy.LargeAmountThresholdCents > 0 && amountCents >= policy.LargeAmountThresholdCents && policy.LargeAmountHold > hold {
		hold = policy.LargeAmountHold
	}
	if hold <= 0 {
		return false, time.Time{}
	}
	return true, now.Add(hold)
}
