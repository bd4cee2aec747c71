package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// FeeBand is one row of the routing engine's express-fee schedule.
type FeeBand struct {
	MaxPrincipalCents int64 `mapstructure:"max_principal_cents"` // -1 means unbounded
	FeeCents          int64 `mapstructure:"fee_cents"`
}

// AvailabilityPolicy governs when a completed transfer is held before it
// becomes AVAILABLE.
type AvailabilityPolicy struct {
	DefaultHoldDuration     time.Duration `mapstructure:"default_hold_duration"`
	FirstTransactionHold    time.Duration `mapstructure:"first_transaction_hold"`
	LargeAmountThresholdCents int64       `mapstructure:"large_amount_threshold_cents"`
	LargeAmountHold         time.Duration `mapstructure:"large_amount_hold"`
}

// ReconciliationThresholds governs severity banding and auto-resolution.
type ReconciliationThresholds struct {
	MediumSeverityCents   int64 `mapstructure:"medium_severity_cents"`
	HighSeverityCents     int64 `mapstructure:"high_severity_cents"`
	CriticalSeverityCents int64 `mapstructure:"critical_severity_cents"`
	AutoResolveThresholdCents int64 `mapstructure:"auto_resolve_threshold_cents"`
	OrphanAgeThreshold    time.Duration `mapstructure:"orphan_age_threshold"`
}

// ProductPolicy is the product-version-scoped configuration the core
// consumes: fee bands, waterfall order, hold durations, reconciliation
// thresholds. Loaded once per product version; the core treats everything
// upstream of this (term schema, the raw policy documents) as opaque.
// WaterfallOrder is loaded but not read by ApplyWaterfall, which always
// applies fee, interest, principal in that order.
type ProductPolicy struct {
	FeeBands              []FeeBand                `mapstructure:"fee_bands"`
	WaterfallOrder        []string                  `mapstructure:"waterfall_order"`
	Availability          AvailabilityPolicy        `mapstructure:"availability"`
	Reconciliation        ReconciliationThresholds  `mapstructure:"reconciliation"`
	BusinessHoursTimezone string                    `mapstructure:"business_hours_timezone"`
	// LateFeeCents is assessed once against a contract's fees balance the
	// first time a schedule item transitions to MISSED. Zero disables
	// late-fee assessment entirely.
	LateFeeCents int64 `mapstructure:"late_fee_cents"`
}

// DefaultProductPolicy returns the baseline fee bands, routing, and
// reconciliation thresholds used when no policy file is supplied.
func DefaultProductPolicy() ProductPolicy {
	return ProductPolicy{
		FeeBands: []FeeBand{
			{MaxPrincipalCents: 50_000, FeeCents: 299},
			{MaxPrincipalCents: 200_000, FeeCents: 499},
			{MaxPrincipalCents: 500_000, FeeCents: 799},
			{MaxPrincipalCents: 1_000_000, FeeCents: 999},
			{MaxPrincipalCents: 2_500_000, FeeCents: 1499},
			{MaxPrincipalCents: 5_000_000, FeeCents: 1999},
			{MaxPrincipalCents: -1, FeeCents: 1999},
		},
		WaterfallOrder: []string{"fee", "interest", "principal"},
		Availability: AvailabilityPolicy{
			DefaultHoldDuration:       0,
			FirstTransactionHold:      24 * time.Hour,
			LargeAmountThresholdCents: 10_000_00,
			LargeAmountHold:           48 * time.Hour,
		},
		Reconciliation: ReconciliationThresholds{
			MediumSeverityCents:       1_000,
			HighSeverityCents:         10_000,
			CriticalSeverityCents:     100_000,
			AutoResolveThresholdCents: 100,
			OrphanAgeThreshold:        24 * time.Hour,
		},
		BusinessHoursTimezone: "America/New_York",
		LateFeeCents:          2500,
	}
}

// LoadProductPolicy reads a product policy document (YAML/JSON/TOML, per
// viper's format detection) from path, falling back to DefaultProductPolicy
// for any field the file doesn't set. Pass an empty path to use defaults
// outright.
func LoadProductPolicy(path string) (ProductPolicy, error) {
	policy := DefaultProductPolicy()
	if path == "" {
		return policy, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return policy, fmt.Errorf("load product policy: %w", err)
	}
	if err := v.Unmarshal(&policy); err != nil {
		return policy, fmt.Errorf("parse product policy: %w", err)
	}
	return policy, nil
}
