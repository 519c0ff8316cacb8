package pricing

import "github.com/shopspring/decimal"

// Input represents the values of one price calculation.
type Input struct {
	Cost     decimal.Decimal
	Quantity int64
	Revenue  decimal.Decimal
}

// Breakdown splits the ideal unit price into the portion each rate claims.
type Breakdown struct {
	Cost       decimal.Decimal
	Tax        decimal.Decimal
	Commission decimal.Decimal
	Margin     decimal.Decimal
}

// Totals contains quantity-scaled amounts, rounded to cents.
type Totals struct {
	TotalIdealPrice   decimal.Decimal
	TotalMinimumPrice decimal.Decimal
}

// CalculationResult groups the full pricing output. Unit prices are kept
// unrounded so they can be frozen on a line item and scaled by quantity
// without compounding rounding error.
type CalculationResult struct {
	Tier             ResolvedTier
	Quantity         int64
	IdealUnitPrice   decimal.Decimal
	MinimumUnitPrice decimal.Decimal
	CashUnitPrice    decimal.Decimal
	Breakdown        Breakdown
	Totals           Totals
}

// UnitPrice applies the markup-divisor formula:
//
//	price = cost / (1 - taxRate - commissionRate - marginRate)
func UnitPrice(cost, taxRate, commissionRate, marginRate decimal.Decimal) (decimal.Decimal, error) {
	return unitPrice("margin_rate", cost, taxRate, commissionRate, marginRate)
}

func unitPrice(field string, cost, taxRate, commissionRate, marginRate decimal.Decimal) (decimal.Decimal, error) {
	denominator := one.Sub(taxRate).Sub(commissionRate).Sub(marginRate)
	if !denominator.IsPositive() {
		return decimal.Zero, &InvalidRateError{
			Field:  field,
			Rate:   one.Sub(denominator),
			Reason: "tax_rate + commission_rate + " + field + " must stay below 1",
		}
	}
	return cost.Div(denominator), nil
}

// Calculate computes ideal and minimum prices for in using the tier resolved
// from in.Revenue.
func Calculate(in Input, rates RateConfiguration, tiers []MarginTier) (CalculationResult, error) {
	if !in.Cost.IsPositive() {
		return CalculationResult{}, &ValidationError{Field: "cost", Message: "must be greater than 0"}
	}
	if in.Quantity <= 0 {
		return CalculationResult{}, &ValidationError{Field: "quantity", Message: "must be greater than 0"}
	}

	tier, err := ResolveTier(in.Revenue, tiers, rates)
	if err != nil {
		return CalculationResult{}, err
	}

	ideal, err := unitPrice("margin_rate", in.Cost, rates.TaxRate, rates.CommissionRate, tier.MarginRate)
	if err != nil {
		return CalculationResult{}, err
	}
	minimum, err := unitPrice("minimum_margin_rate", in.Cost, rates.TaxRate, rates.CommissionRate, tier.MinimumMarginRate)
	if err != nil {
		return CalculationResult{}, err
	}

	qty := decimal.NewFromInt(in.Quantity)

	return CalculationResult{
		Tier:             tier,
		Quantity:         in.Quantity,
		IdealUnitPrice:   ideal,
		MinimumUnitPrice: minimum,
		CashUnitPrice:    ideal.Mul(one.Sub(rates.CashDiscountRate)),
		Breakdown: Breakdown{
			Cost:       in.Cost,
			Tax:        ideal.Mul(rates.TaxRate),
			Commission: ideal.Mul(rates.CommissionRate),
			Margin:     ideal.Mul(tier.MarginRate),
		},
		Totals: Totals{
			TotalIdealPrice:   RoundMoney(ideal.Mul(qty)),
			TotalMinimumPrice: RoundMoney(minimum.Mul(qty)),
		},
	}, nil
}
