package quote

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/margingate/internal/pricing"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func line(id int64, unitPrice, minimum string, qty int64) LineItem {
	return LineItem{
		ID:               id,
		ProductRef:       "SKU-1",
		CostPrice:        dec("5"),
		Quantity:         qty,
		IdealUnitPrice:   dec(minimum).Add(dec("2")),
		MinimumUnitPrice: dec(minimum),
		UnitPrice:        dec(unitPrice),
	}
}

func draftWith(lines ...LineItem) Quote {
	q := New("pub-1", "vendor-1", "ACME", "Mugs", "", time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	q.ID = 7
	q.Lines = lines
	return q
}

func TestLineItemTotalIncludesSurcharges(t *testing.T) {
	l := line(1, "10", "8", 3)
	l.Customizations = []Customization{
		{Name: "engraving", UnitSurcharge: dec("1.50")},
		{Name: "gift box", UnitSurcharge: dec("0.50")},
	}

	if got := l.TotalPrice(); !got.Equal(dec("36")) {
		t.Fatalf("TotalPrice = %s, want 36", got)
	}
}

func TestLineItemBelowMinimumComparesUnrounded(t *testing.T) {
	tests := []struct {
		name      string
		unitPrice string
		minimum   string
		want      bool
	}{
		{"below", "8", "10", true},
		{"equal", "10", "10", false},
		{"above", "12", "10", false},
		{"price under an unrounded floor", "17.54", "17.54385964912", true},
		{"price over an unrounded floor", "17.55", "17.54385964912", false},
		{"sub-cent price over the floor", "17.539", "17.5351", false},
		{"sub-cent price under the floor", "17.5438", "17.5439", true},
		{"price equal to the unrounded floor", "17.5439", "17.5439", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := line(1, tt.unitPrice, tt.minimum, 1)
			if got := l.BelowMinimum(); got != tt.want {
				t.Fatalf("BelowMinimum = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCloneDoesNotShareLines(t *testing.T) {
	l := line(1, "10", "8", 1)
	l.Customizations = []Customization{{Name: "print", UnitSurcharge: dec("1")}}
	q := draftWith(l)

	cp := q.Clone()
	cp.Lines[0].UnitPrice = dec("99")
	cp.Lines[0].Customizations[0].Name = "changed"

	if !q.Lines[0].UnitPrice.Equal(dec("10")) {
		t.Fatalf("clone mutated original unit price: %s", q.Lines[0].UnitPrice)
	}
	if q.Lines[0].Customizations[0].Name != "print" {
		t.Fatalf("clone mutated original customization: %q", q.Lines[0].Customizations[0].Name)
	}
}

func TestParseEnums(t *testing.T) {
	if _, err := ParseLifecycle("awaiting_authorization"); err != nil {
		t.Fatalf("ParseLifecycle: %v", err)
	}
	if _, err := ParseLifecycle("pending"); err == nil {
		t.Fatal("expected error for unknown lifecycle")
	}
	if _, err := ParseAuthorization("approved"); err != nil {
		t.Fatalf("ParseAuthorization: %v", err)
	}
	if _, err := ParseAuthorization("maybe"); err == nil {
		t.Fatal("expected error for unknown authorization")
	}
	if _, err := ParseDiscountKind("flat"); err != nil {
		t.Fatalf("ParseDiscountKind: %v", err)
	}
	if _, err := ParseDiscountKind("bogo"); err == nil {
		t.Fatal("expected error for unknown discount kind")
	}
	if _, err := ParseEvent("convert"); err != nil {
		t.Fatalf("ParseEvent: %v", err)
	}
}

func TestClientVisibility(t *testing.T) {
	hidden := []Lifecycle{Draft, AwaitingAuthorization}
	for _, l := range hidden {
		if l.ClientVisible() {
			t.Fatalf("%s should be hidden from clients", l)
		}
	}
	visible := []Lifecycle{Sent, Approved, Rejected, Converted}
	for _, l := range visible {
		if !l.ClientVisible() {
			t.Fatalf("%s should be visible to clients", l)
		}
	}
}

func TestStaleStateErrorMessage(t *testing.T) {
	q := draftWith()
	q.Lifecycle = Sent

	err := &StaleStateError{Action: "admin_approve", Expected: Expected(EventAdminApprove), Current: q}
	want := "admin_approve not allowed: quote 7 is sent/none, expected awaiting_authorization/awaiting"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}

	var target *StaleStateError
	if !errors.As(error(err), &target) {
		t.Fatal("errors.As failed for *StaleStateError")
	}
}

func TestLineInputValidate(t *testing.T) {
	valid := LineInput{ProductRef: "SKU-1", Cost: dec("10"), Quantity: 2, UnitPrice: dec("20")}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid input rejected: %v", err)
	}

	tests := []struct {
		name  string
		field string
		edit  func(*LineInput)
	}{
		{"missing product", "product_ref", func(in *LineInput) { in.ProductRef = "  " }},
		{"zero cost", "cost", func(in *LineInput) { in.Cost = decimal.Zero }},
		{"negative cost", "cost", func(in *LineInput) { in.Cost = dec("-1") }},
		{"zero quantity", "quantity", func(in *LineInput) { in.Quantity = 0 }},
		{"zero unit price", "unit_price", func(in *LineInput) { in.UnitPrice = decimal.Zero }},
		{"unnamed customization", "customizations.name", func(in *LineInput) {
			in.Customizations = []Customization{{UnitSurcharge: dec("1")}}
		}},
		{"negative surcharge", "customizations.unit_surcharge", func(in *LineInput) {
			in.Customizations = []Customization{{Name: "print", UnitSurcharge: dec("-1")}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.edit(&in)
			var vErr *pricing.ValidationError
			if err := in.Validate(); !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if vErr.Field != tt.field {
				t.Fatalf("field = %q, want %q", vErr.Field, tt.field)
			}
		})
	}
}
