package pricing

import "github.com/shopspring/decimal"

func checkFraction(field string, rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThanOrEqual(one) {
		return &InvalidRateError{Field: field, Rate: rate, Reason: "must be within [0, 1)"}
	}
	return nil
}

// checkDenominator rejects tax + commission + margin >= 1.
func checkDenominator(field string, rates RateConfiguration, margin decimal.Decimal) error {
	sum := rates.TaxRate.Add(rates.CommissionRate).Add(margin)
	if sum.GreaterThanOrEqual(one) {
		return &InvalidRateError{
			Field:  field,
			Rate:   sum,
			Reason: "tax_rate + commission_rate + " + field + " must stay below 1",
		}
	}
	return nil
}

// ValidateRates checks the global rates on their own.
func ValidateRates(rates RateConfiguration) error {
	fields := []struct {
		name string
		rate decimal.Decimal
	}{
		{"tax_rate", rates.TaxRate},
		{"commission_rate", rates.CommissionRate},
		{"cash_discount_rate", rates.CashDiscountRate},
		{"fallback_minimum_margin_rate", rates.FallbackMinimumMarginRate},
	}
	for _, f := range fields {
		if err := checkFraction(f.name, f.rate); err != nil {
			return err
		}
	}
	return checkDenominator("fallback_minimum_margin_rate", rates, rates.FallbackMinimumMarginRate)
}

// ValidateTier checks one tier against the global rates it will be combined with.
func ValidateTier(rates RateConfiguration, tier MarginTier) error {
	if tier.MinRevenue.IsNegative() {
		return &ValidationError{Field: "min_revenue", Message: "must be greater than or equal to 0"}
	}
	if tier.MaxRevenue.Valid && !tier.MaxRevenue.Decimal.GreaterThan(tier.MinRevenue) {
		return &ValidationError{Field: "max_revenue", Message: "must be greater than min_revenue"}
	}
	if err := checkFraction("margin_rate", tier.MarginRate); err != nil {
		return err
	}
	if err := checkFraction("minimum_margin_rate", tier.MinimumMarginRate); err != nil {
		return err
	}
	if tier.MinimumMarginRate.GreaterThan(tier.MarginRate) {
		return &InvalidRateError{
			Field:  "minimum_margin_rate",
			Rate:   tier.MinimumMarginRate,
			Reason: "must not exceed margin_rate " + tier.MarginRate.String(),
		}
	}
	// minimum <= margin, so checking margin covers both prices.
	return checkDenominator("margin_rate", rates, tier.MarginRate)
}

// ValidateSchedule validates the global rates together with every tier. It
// runs whenever either side changes, so a rate update that would break an
// existing tier is refused.
func ValidateSchedule(rates RateConfiguration, tiers []MarginTier) error {
	if err := ValidateRates(rates); err != nil {
		return err
	}
	for _, tier := range tiers {
		if err := ValidateTier(rates, tier); err != nil {
			return err
		}
	}
	return nil
}
