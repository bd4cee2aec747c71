package services

import (
	"time"

	"github.com/bigfin/core/internal/apperrors"
	"github.com/bigfin/core/internal/core/domain"
	portssvc "github.com/bigfin/core/internal/core/ports/services"
	"github.com/bigfin/core/internal/platform/config"
)

// railPriority is the scan order for instant-speed selection, highest
// priority first (rtp, fednow, push-to-card, same-day ach, ach); selection
// takes the first rail present in the capability set.
var railPriority = []domain.Rail{domain.RailRTP, domain.RailFedNow, domain.RailPushToCard, domain.RailSameDayACH, domain.RailACH}

// fallbackChain is the static degradation path a selected rail follows.
var fallbackChain = map[domain.Rail][]domain.Rail{
	domain.RailRTP:        {domain.RailFedNow, domain.RailPushToCard, domain.RailACH},
	domain.RailFedNow:     {domain.RailPushToCard, domain.RailACH},
	domain.RailPushToCard: {domain.RailACH},
	domain.RailSameDayACH: {domain.RailACH},
	domain.RailACH:        {},
}

// RoutingService selects a payment rail and computes fees. Pure: it holds
// no repository dependency and performs no I/O.
type RoutingService struct {
	policy config.ProductPolicy
	loc    *time.Location
}

var _ portssvc.RoutingEngine = (*RoutingService)(nil)

// NewRoutingService constructs a RoutingService against a product policy.
// Falls back to UTC if the configured timezone cannot be loaded.
func NewRoutingService(policy config.ProductPolicy) *RoutingService {
	loc, err := time.LoadLocation(policy.BusinessHoursTimezone)
	if err != nil {
		loc = time.UTC
	}
	return &RoutingService{policy: policy, loc: loc}
}

func (s *RoutingService) Route(in portssvc.RouteInput) (portssvc.RouteResult, error) {
	var capabilities map[domain.Rail]struct{}
	if in.Direction == portssvc.DirectionCredit {
		capabilities = in.DestinationCapabilities
	} else {
		capabilities = in.SourceCapabilities
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	if in.Speed == portssvc.SpeedStandard {
		if _, ok := capabilities[domain.RailACH]; ok {
			feeCents, reason := s.Fee(portssvc.SpeedStandard, in.AmountCents, in.PrefundAvailableCents)
			return portssvc.RouteResult{
				Rail:             domain.RailACH,
				EstimatedArrival: s.estimatedArrival(domain.RailACH, now),
				FeeCents:         feeCents,
				FallbackRails:    nil,
				Reason:           reason,
			}, nil
		}
		return portssvc.RouteResult{}, apperrors.InvalidState("standard speed requires ach availability")
	}

	var selected domain.Rail
	found := false
	for _, r := range railPriority {
		if _, ok := capabilities[r]; ok {
			selected = r
			found = true
			break
		}
	}
	if !found {
		return portssvc.RouteResult{}, apperrors.InvalidState("no available rail for instant speed")
	}

	fallbacks := make([]domain.Rail, 0, len(fallbackChain[selected]))
	for _, r := range fallbackChain[selected] {
		if _, ok := capabilities[r]; ok {
			fallbacks = append(fallbacks, r)
		}
	}

	feeCents, reason := s.Fee(in.Speed, in.AmountCents, in.PrefundAvailableCents)
	return portssvc.RouteResult{
		Rail:             selected,
		EstimatedArrival: s.estimatedArrival(selected, now),
		FeeCents:         feeCents,
		FallbackRails:    fallbacks,
		Reason:           "selected " + string(selected) + " by instant priority scan",
	}, nil
}

func (s *RoutingService) Fee(speed portssvc.RouteSpeed, amountCents int64, prefundAvailableCents *int64) (int64, string) {
	if speed == portssvc.SpeedStandard {
		return 0, "standard speed has no express fee"
	}
	if prefundAvailableCents != nil && *prefundAvailableCents >= amountCents {
		return 0, "waived: prefund balance covers principal"
	}
	for _, band := range s.policy.FeeBands {
		if band.MaxPrincipalCents == -1 || amountCents <= band.MaxPrincipalCents {
			return band.FeeCents, "express fee band"
		}
	}
	return 0, "no matching fee band"
}

// estimatedArrival computes the projected settlement time for a rail.
func (s *RoutingService) estimatedArrival(rail domain.Rail, now time.Time) time.Time {
	switch rail {
	case domain.RailRTP, domain.RailFedNow:
		return now
	case domain.RailPushToCard:
		return now.Add(30 * time.Minute)
	case domain.RailSameDayACH:
		return addBusinessHours(now.In(s.loc), 4)
	default: // ach
		return addBusinessHours(now.In(s.loc), 24)
	}
}

// addBusinessHours advances t by n business hours, skipping weekends and
// the 17:00-09:00 overnight window.
func addBusinessHours(t time.Time, n int) time.Time {
	for n > 0 {
		t = t.Add(time.Hour)
		if isBusinessHour(t) {
			n--
		}
	}
	return t
}

func isBusinessHour(t time.Time) bool {
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}
	hour := t.Hour()
	return hour >= 9 && hour < 17
}
