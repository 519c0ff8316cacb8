package pricing

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultConfigID is the id of the single active rate configuration.
const DefaultConfigID int64 = 1

// RateConfiguration holds the global rates. Every rate is a fraction of the
// final sale price, not of cost.
type RateConfiguration struct {
	ID                        int64           `json:"id"`
	TaxRate                   decimal.Decimal `json:"tax_rate"`
	CommissionRate            decimal.Decimal `json:"commission_rate"`
	CashDiscountRate          decimal.Decimal `json:"cash_discount_rate"`
	FallbackMinimumMarginRate decimal.Decimal `json:"fallback_minimum_margin_rate"`
	UpdatedAt                 time.Time       `json:"updated_at"`
}

// RateUpdate is an administrative change to the global rates.
// A nil FallbackMinimumMarginRate keeps the current value.
type RateUpdate struct {
	TaxRate                   decimal.Decimal
	CommissionRate            decimal.Decimal
	CashDiscountRate          decimal.Decimal
	FallbackMinimumMarginRate *decimal.Decimal
}

// Apply returns current with the update applied.
func (u RateUpdate) Apply(current RateConfiguration) RateConfiguration {
	next := current
	next.TaxRate = u.TaxRate
	next.CommissionRate = u.CommissionRate
	next.CashDiscountRate = u.CashDiscountRate
	if u.FallbackMinimumMarginRate != nil {
		next.FallbackMinimumMarginRate = *u.FallbackMinimumMarginRate
	}
	return next
}

// MarginTier is a revenue bracket [MinRevenue, MaxRevenue) with its own margin
// and minimum-margin rate. An invalid MaxRevenue means the tier is unbounded.
type MarginTier struct {
	ID                int64               `json:"id"`
	ConfigID          int64               `json:"config_id"`
	MinRevenue        decimal.Decimal     `json:"min_revenue"`
	MaxRevenue        decimal.NullDecimal `json:"max_revenue"`
	MarginRate        decimal.Decimal     `json:"margin_rate"`
	MinimumMarginRate decimal.Decimal     `json:"minimum_margin_rate"`
	DisplayOrder      int                 `json:"display_order"`
}

// OpenEnded reports whether the tier has no upper revenue bound.
func (t MarginTier) OpenEnded() bool {
	return !t.MaxRevenue.Valid
}

// Contains reports whether revenue falls inside the tier's bracket.
func (t MarginTier) Contains(revenue decimal.Decimal) bool {
	if revenue.LessThan(t.MinRevenue) {
		return false
	}
	return t.OpenEnded() || revenue.LessThan(t.MaxRevenue.Decimal)
}

// Snapshot is the rate configuration and its tiers as read at one instant.
// Calculations run against a snapshot, so a concurrent rate change never
// affects a calculation already in flight.
type Snapshot struct {
	Rates RateConfiguration `json:"rates"`
	Tiers []MarginTier      `json:"tiers"`
}

// NewSnapshot copies tiers so later changes to the caller's slice do not leak in.
func NewSnapshot(rates RateConfiguration, tiers []MarginTier) Snapshot {
	cp := make([]MarginTier, len(tiers))
	copy(cp, tiers)
	return Snapshot{Rates: rates, Tiers: cp}
}

// Calculate prices in against the snapshot.
func (s Snapshot) Calculate(in Input) (CalculationResult, error) {
	return Calculate(in, s.Rates, s.Tiers)
}
