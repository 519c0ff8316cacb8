package quote

import (
	"errors"
	"testing"

	"github.com/Simplici0/margingate/internal/pricing"
)

func TestAggregate(t *testing.T) {
	tests := []struct {
		name         string
		kind         DiscountKind
		value        string
		shipping     string
		wantSubtotal string
		wantDiscount string
		wantTotal    string
	}{
		{"no discount", DiscountPercentage, "0", "0", "250.00", "0.00", "250.00"},
		{"percentage", DiscountPercentage, "10", "15", "250.00", "25.00", "240.00"},
		{"flat", DiscountFlat, "30", "12.50", "250.00", "30.00", "232.50"},
		{"full percentage", DiscountPercentage, "100", "5", "250.00", "250.00", "5.00"},
		{"flat equal to subtotal", DiscountFlat, "250", "0", "250.00", "250.00", "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := draftWith(line(1, "10", "8", 10), line(2, "30", "25", 5))
			q.DiscountKind = tt.kind
			q.DiscountValue = dec(tt.value)
			q.ShippingCost = dec(tt.shipping)

			totals, err := Aggregate(q)
			if err != nil {
				t.Fatalf("Aggregate returned error: %v", err)
			}
			if !totals.Subtotal.Equal(dec(tt.wantSubtotal)) {
				t.Fatalf("subtotal = %s, want %s", totals.Subtotal, tt.wantSubtotal)
			}
			if !totals.DiscountAmount.Equal(dec(tt.wantDiscount)) {
				t.Fatalf("discount = %s, want %s", totals.DiscountAmount, tt.wantDiscount)
			}
			if !totals.TotalValue.Equal(dec(tt.wantTotal)) {
				t.Fatalf("total = %s, want %s", totals.TotalValue, tt.wantTotal)
			}
			if totals.BelowMinimum {
				t.Fatal("expected compliant quote")
			}
		})
	}
}

func TestAggregate_RoundsOnlyAtTheEnd(t *testing.T) {
	// 3 * 17.543859... = 52.631578... which rounds to 52.63, while rounding
	// the unit first would give 52.62.
	l := line(1, "17.5438596491", "10", 3)
	q := draftWith(l)

	totals, err := Aggregate(q)
	if err != nil {
		t.Fatalf("Aggregate returned error: %v", err)
	}
	if !totals.Subtotal.Equal(dec("52.63")) {
		t.Fatalf("subtotal = %s, want 52.63", totals.Subtotal)
	}
	if !totals.Lines[0].TotalPrice.Equal(dec("52.63")) {
		t.Fatalf("line total = %s, want 52.63", totals.Lines[0].TotalPrice)
	}
}

func TestAggregate_Idempotent(t *testing.T) {
	q := draftWith(line(1, "17.5438596491", "10", 7), line(2, "3.3333333333", "3", 11))
	q.DiscountValue = dec("12.5")
	q.ShippingCost = dec("9.99")

	first, err := Aggregate(q)
	if err != nil {
		t.Fatalf("Aggregate returned error: %v", err)
	}
	for i := 0; i < 50; i++ {
		again, err := Aggregate(q)
		if err != nil {
			t.Fatalf("Aggregate (iteration=%d) returned error: %v", i, err)
		}
		if !again.TotalValue.Equal(first.TotalValue) || !again.Subtotal.Equal(first.Subtotal) {
			t.Fatalf("totals drifted on iteration %d: %s vs %s", i, again.TotalValue, first.TotalValue)
		}
	}
}

func TestAggregate_BelowMinimumFlags(t *testing.T) {
	q := draftWith(line(1, "12", "10", 1), line(2, "8", "10", 1))

	totals, err := Aggregate(q)
	if err != nil {
		t.Fatalf("Aggregate returned error: %v", err)
	}
	if !totals.BelowMinimum {
		t.Fatal("expected quote to be below minimum")
	}
	if totals.Lines[0].BelowMinimum || !totals.Lines[1].BelowMinimum {
		t.Fatalf("unexpected line flags: %+v", totals.Lines)
	}
}

func TestAggregate_InvalidTerms(t *testing.T) {
	tests := []struct {
		name     string
		kind     DiscountKind
		value    string
		shipping string
		field    string
	}{
		{"flat discount above subtotal", DiscountFlat, "300", "10", "discount_value"},
		{"percentage above 100", DiscountPercentage, "101", "0", "discount_value"},
		{"negative percentage", DiscountPercentage, "-1", "0", "discount_value"},
		{"negative flat", DiscountFlat, "-5", "0", "discount_value"},
		{"negative shipping", DiscountFlat, "0", "-1", "shipping_cost"},
		{"unknown kind", DiscountKind("voucher"), "0", "0", "discount_kind"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := draftWith(line(1, "10", "8", 25))
			q.DiscountKind = tt.kind
			q.DiscountValue = dec(tt.value)
			q.ShippingCost = dec(tt.shipping)

			_, err := Aggregate(q)
			var vErr *pricing.ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if vErr.Field != tt.field {
				t.Fatalf("field = %q, want %q", vErr.Field, tt.field)
			}
		})
	}
}

func TestAggregate_EmptyQuote(t *testing.T) {
	totals, err := Aggregate(draftWith())
	if err != nil {
		t.Fatalf("Aggregate returned error: %v", err)
	}
	if !totals.TotalValue.IsZero() || totals.BelowMinimum {
		t.Fatalf("unexpected totals for empty quote: %+v", totals)
	}
}
