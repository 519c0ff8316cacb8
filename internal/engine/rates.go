package engine

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/margingate/internal/logx"
	"github.com/Simplici0/margingate/internal/pricing"
)

// GetRateConfiguration returns the active global rates.
func (s *Service) GetRateConfiguration(ctx context.Context) (pricing.RateConfiguration, error) {
	return s.rates.GetRateConfiguration(ctx)
}

// UpdateRateConfiguration applies an administrative rate change. Existing
// quote lines keep their frozen prices.
func (s *Service) UpdateRateConfiguration(ctx context.Context, upd pricing.RateUpdate) (pricing.RateConfiguration, error) {
	rc, err := s.rates.UpdateRateConfiguration(ctx, upd)
	if err != nil {
		return pricing.RateConfiguration{}, err
	}
	s.invalidateRates(ctx)

	logx.Info().
		Str("tax_rate", rc.TaxRate.String()).
		Str("commission_rate", rc.CommissionRate.String()).
		Str("cash_discount_rate", rc.CashDiscountRate.String()).
		Str("fallback_minimum_margin_rate", rc.FallbackMinimumMarginRate.String()).
		Msg("rate configuration updated")
	return rc, nil
}

// ListMarginTiers returns the tiers of configID.
func (s *Service) ListMarginTiers(ctx context.Context, configID int64) ([]pricing.MarginTier, error) {
	return s.rates.ListMarginTiers(ctx, configID)
}

// UpsertMarginTier creates or replaces a tier after checking it against the
// global rates.
func (s *Service) UpsertMarginTier(ctx context.Context, tier pricing.MarginTier) (pricing.MarginTier, error) {
	saved, err := s.rates.UpsertMarginTier(ctx, tier)
	if err != nil {
		return pricing.MarginTier{}, err
	}
	s.invalidateRates(ctx)

	logx.Info().
		Int64("tier_id", saved.ID).
		Str("min_revenue", saved.MinRevenue.String()).
		Str("margin_rate", saved.MarginRate.String()).
		Str("minimum_margin_rate", saved.MinimumMarginRate.String()).
		Msg("margin tier saved")
	return saved, nil
}

// DeleteMarginTier removes a tier.
func (s *Service) DeleteMarginTier(ctx context.Context, tierID int64) error {
	if err := s.rates.DeleteMarginTier(ctx, tierID); err != nil {
		return err
	}
	s.invalidateRates(ctx)

	logx.Info().Int64("tier_id", tierID).Msg("margin tier deleted")
	return nil
}

// CalculatePrice previews the ideal and minimum price of quantity units at
// cost for an order of the given revenue. Nothing is persisted.
func (s *Service) CalculatePrice(ctx context.Context, cost decimal.Decimal, quantity int64, revenue decimal.Decimal) (pricing.CalculationResult, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return pricing.CalculationResult{}, err
	}
	return snap.Calculate(pricing.Input{Cost: cost, Quantity: quantity, Revenue: revenue})
}
