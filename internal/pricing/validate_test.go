package pricing

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestValidateRates(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*RateConfiguration)
		field string
	}{
		{"valid", func(*RateConfiguration) {}, ""},
		{"tax at one", func(r *RateConfiguration) { r.TaxRate = dec("1") }, "tax_rate"},
		{"negative commission", func(r *RateConfiguration) { r.CommissionRate = dec("-0.01") }, "commission_rate"},
		{"cash discount out of range", func(r *RateConfiguration) { r.CashDiscountRate = dec("1.2") }, "cash_discount_rate"},
		{"fallback pushes sum to one", func(r *RateConfiguration) { r.FallbackMinimumMarginRate = dec("0.85") }, "fallback_minimum_margin_rate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rates := testRates()
			tt.edit(&rates)

			err := ValidateRates(rates)
			if tt.field == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			var rateErr *InvalidRateError
			if !errors.As(err, &rateErr) {
				t.Fatalf("expected InvalidRateError, got %v", err)
			}
			if rateErr.Field != tt.field {
				t.Fatalf("field = %q, want %q", rateErr.Field, tt.field)
			}
		})
	}
}

func TestValidateTier(t *testing.T) {
	valid := MarginTier{MinRevenue: dec("0"), MaxRevenue: decimal.NewNullDecimal(dec("100")), MarginRate: dec("0.3"), MinimumMarginRate: dec("0.2")}

	tests := []struct {
		name  string
		edit  func(*MarginTier)
		field string
	}{
		{"valid", func(*MarginTier) {}, ""},
		{"open ended", func(m *MarginTier) { m.MaxRevenue = decimal.NullDecimal{} }, ""},
		{"negative min revenue", func(m *MarginTier) { m.MinRevenue = dec("-1") }, "min_revenue"},
		{"max not above min", func(m *MarginTier) { m.MaxRevenue = decimal.NewNullDecimal(dec("0")) }, "max_revenue"},
		{"minimum above margin", func(m *MarginTier) { m.MinimumMarginRate = dec("0.35") }, "minimum_margin_rate"},
		{"margin breaks denominator", func(m *MarginTier) { m.MarginRate = dec("0.85") }, "margin_rate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tier := valid
			tt.edit(&tier)

			err := ValidateTier(testRates(), tier)
			if tt.field == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			var rateErr *InvalidRateError
			var vErr *ValidationError
			switch {
			case errors.As(err, &rateErr):
				if rateErr.Field != tt.field {
					t.Fatalf("field = %q, want %q", rateErr.Field, tt.field)
				}
			case errors.As(err, &vErr):
				if vErr.Field != tt.field {
					t.Fatalf("field = %q, want %q", vErr.Field, tt.field)
				}
			default:
				t.Fatalf("expected a typed error for %s, got %v", tt.field, err)
			}
		})
	}
}

func TestValidateSchedule_RateChangeBreakingExistingTier(t *testing.T) {
	rates := testRates()
	rates.TaxRate = dec("0.60")
	// Fine for the fallback (0.88) and tier 2 (0.93); tier 1 reaches 1.01.
	rates.CommissionRate = dec("0.13")

	err := ValidateSchedule(rates, testTiers())
	var rateErr *InvalidRateError
	if !errors.As(err, &rateErr) {
		t.Fatalf("expected InvalidRateError, got %v", err)
	}
	if rateErr.Field != "margin_rate" || !rateErr.Rate.Equal(dec("1.01")) {
		t.Fatalf("unexpected error: %+v", rateErr)
	}
}
