package quote

import (
	"github.com/shopspring/decimal"

	"github.com/Simplici0/margingate/internal/pricing"
)

var hundred = decimal.NewFromInt(100)

// LineTotal is the per-line part of Totals.
type LineTotal struct {
	LineID       int64
	TotalPrice   decimal.Decimal
	BelowMinimum bool
}

// Totals contains the derived amounts of a quote, rounded to cents.
type Totals struct {
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	ShippingCost   decimal.Decimal
	TotalValue     decimal.Decimal
	BelowMinimum   bool
	Lines          []LineTotal
}

// Aggregate derives the totals of q. It reads nothing but q and rounds only
// the final amounts, so calling it again on an unchanged quote reproduces the
// same totals.
func Aggregate(q Quote) (Totals, error) {
	if err := validateTerms(q.DiscountKind, q.DiscountValue, q.ShippingCost); err != nil {
		return Totals{}, err
	}

	subtotal := decimal.Zero
	below := false
	lines := make([]LineTotal, 0, len(q.Lines))
	for _, l := range q.Lines {
		total := l.TotalPrice()
		subtotal = subtotal.Add(total)

		lineBelow := l.BelowMinimum()
		below = below || lineBelow
		lines = append(lines, LineTotal{
			LineID:       l.ID,
			TotalPrice:   pricing.RoundMoney(total),
			BelowMinimum: lineBelow,
		})
	}

	discount := q.DiscountValue
	if q.DiscountKind == DiscountPercentage {
		discount = subtotal.Mul(pricing.Percent(q.DiscountValue))
	}

	total := subtotal.Sub(discount).Add(q.ShippingCost)
	if total.IsNegative() {
		return Totals{}, &pricing.ValidationError{
			Field:   "discount_value",
			Message: "makes the quote total negative (" + pricing.RoundMoney(total).StringFixed(pricing.MoneyPlaces) + ")",
		}
	}

	return Totals{
		Subtotal:       pricing.RoundMoney(subtotal),
		DiscountAmount: pricing.RoundMoney(discount),
		ShippingCost:   pricing.RoundMoney(q.ShippingCost),
		TotalValue:     pricing.RoundMoney(total),
		BelowMinimum:   below,
		Lines:          lines,
	}, nil
}

func validateTerms(kind DiscountKind, value, shipping decimal.Decimal) error {
	switch kind {
	case DiscountPercentage:
		if value.IsNegative() || value.GreaterThan(hundred) {
			return &pricing.ValidationError{Field: "discount_value", Message: "must be between 0 and 100 for a percentage discount"}
		}
	case DiscountFlat:
		if value.IsNegative() {
			return &pricing.ValidationError{Field: "discount_value", Message: "must be greater than or equal to 0"}
		}
	default:
		return &pricing.ValidationError{Field: "discount_kind", Message: "must be percentage or flat"}
	}
	if shipping.IsNegative() {
		return &pricing.ValidationError{Field: "shipping_cost", Message: "must be greater than or equal to 0"}
	}
	return nil
}
