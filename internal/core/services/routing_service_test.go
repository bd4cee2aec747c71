package services_test

import (
	"testing"
	"time"

	"github.com/bigfin/core/internal/core/domain"
	portssvc "github.com/bigfin/core/internal/core/ports/services"
	"github.com/bigfin/core/internal/core/services"
	"github.com/bigfin/core/internal/platform/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func businessHourFixture() time.Time {
	// A Tuesday at 10:00 UTC, safely inside business hours.
	return time.Date(2026, 8, 4, 10, 0, 0, 0, time.UTC)
}

func TestRoutingService_StandardAlwaysACH(t *testing.T) {
	svc := services.NewRoutingService(config.DefaultProductPolicy())

	result, err := svc.Route(portssvc.RouteInput{
		Speed:                   portssvc.SpeedStandard,
		Direction:               portssvc.DirectionCredit,
		AmountCents:             10000,
		DestinationCapabilities: map[domain.Rail]struct{}{domain.RailACH: {}, domain.RailRTP: {}},
		Now:                     businessHourFixture(),
	})

	require.NoError(t, err)
	assert.Equal(t, domain.RailACH, result.Rail)
	assert.Equal(t, int64(0), result.FeeCents)
}

func TestRoutingService_StandardFailsWithoutACH(t *testing.T) {
	svc := services.NewRoutingService(config.DefaultProductPolicy())

	_, err := svc.Route(portssvc.RouteInput{
		Speed:                   portssvc.SpeedStandard,
		Direction:               portssvc.DirectionCredit,
		AmountCents:             10000,
		DestinationCapabilities: map[domain.Rail]struct{}{domain.RailPushToCard: {}},
		Now:                     businessHourFixture(),
	})

	assert.Error(t, err)
}

func TestRoutingService_InstantPicksHighestPriorityAvailableRail(t *testing.T) {
	svc := services.NewRoutingService(config.DefaultProductPolicy())

	result, err := svc.Route(portssvc.RouteInput{
		Speed:                   portssvc.SpeedInstant,
		Direction:               portssvc.DirectionCredit,
		AmountCents:             10000,
		DestinationCapabilities: map[domain.Rail]struct{}{domain.RailPushToCard: {}, domain.RailACH: {}, domain.RailFedNow: {}},
		Now:                     businessHourFixture(),
	})

	require.NoError(t, err)
	assert.Equal(t, domain.RailFedNow, result.Rail)
	assert.Equal(t, []domain.Rail{domain.RailPushToCard, domain.RailACH}, result.FallbackRails)
}

func TestRoutingService_InstantFallbackOnlyListsCapableRails(t *testing.T) {
	svc := services.NewRoutingService(config.DefaultProductPolicy())

	result, err := svc.Route(portssvc.RouteInput{
		Speed:                   portssvc.SpeedInstant,
		Direction:               portssvc.DirectionCredit,
		AmountCents:             10000,
		DestinationCapabilities: map[domain.Rail]struct{}{domain.RailRTP: {}, domain.RailACH: {}},
		Now:                     businessHourFixture(),
	})

	require.NoError(t, err)
	assert.Equal(t, domain.RailRTP, result.Rail)
	assert.Equal(t, []domain.Rail{domain.RailACH}, result.FallbackRails)
}

func TestRoutingService_Fee_PrefundWaiverCoversFullAmount(t *testing.T) {
	svc := services.NewRoutingService(config.DefaultProductPolicy())
	avail := int64(100000)

	feeCents, reason := svc.Fee(portssvc.SpeedInstant, 50000, &avail)

	assert.Equal(t, int64(0), feeCents)
	assert.Contains(t, reason, "waived")
}

func TestRoutingService_Fee_PartialPrefundDoesNotWaive(t *testing.T) {
	svc := services.NewRoutingService(config.DefaultProductPolicy())
	avail := int64(100)

	feeCents, _ := svc.Fee(portssvc.SpeedInstant, 50000, &avail)

	assert.Greater(t, feeCents, int64(0))
}

func TestRoutingService_Fee_BandsIncreaseWithAmount(t *testing.T) {
	svc := services.NewRoutingService(config.DefaultProductPolicy())

	small, _ := svc.Fee(portssvc.SpeedInstant, 10000, nil)
	large, _ := svc.Fee(portssvc.SpeedInstant, 4_000_000, nil)

	assert.Less(t, small, large)
}

func TestRoutingService_Fee_StandardIsAlwaysFree(t *testing.T) {
	svc := services.NewRoutingService(config.DefaultProductPolicy())

	feeCents, _ := svc.Fee(portssvc.SpeedStandard, 4_000_000, nil)

	assert.Equal(t, int64(0), feeCents)
}
