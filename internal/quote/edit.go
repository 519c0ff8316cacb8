package quote

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/margingate/internal/pricing"
)

// LineInput is what a vendor submits to add a line.
type LineInput struct {
	ProductRef     string
	Description    string
	Cost           decimal.Decimal
	Quantity       int64
	UnitPrice      decimal.Decimal
	Customizations []Customization
}

// Validate checks the fields the engine relies on.
func (in LineInput) Validate() error {
	if strings.TrimSpace(in.ProductRef) == "" {
		return &pricing.ValidationError{Field: "product_ref", Message: "is required"}
	}
	if !in.Cost.IsPositive() {
		return &pricing.ValidationError{Field: "cost", Message: "must be greater than 0"}
	}
	if in.Quantity <= 0 {
		return &pricing.ValidationError{Field: "quantity", Message: "must be greater than 0"}
	}
	if !in.UnitPrice.IsPositive() {
		return &pricing.ValidationError{Field: "unit_price", Message: "must be greater than 0"}
	}
	return validateCustomizations(in.Customizations)
}

func validateCustomizations(cs []Customization) error {
	for _, c := range cs {
		if strings.TrimSpace(c.Name) == "" {
			return &pricing.ValidationError{Field: "customizations.name", Message: "is required"}
		}
		if c.UnitSurcharge.IsNegative() {
			return &pricing.ValidationError{Field: "customizations.unit_surcharge", Message: "must be greater than or equal to 0"}
		}
	}
	return nil
}

// RevenueWith is the order revenue a new line is priced against: the current
// subtotal with the new line included.
func (q Quote) RevenueWith(in LineInput) decimal.Decimal {
	l := LineItem{Quantity: in.Quantity, UnitPrice: in.UnitPrice, Customizations: in.Customizations}
	return q.Subtotal().Add(l.TotalPrice())
}

// NewLineItem freezes calc's prices onto a new line. Later rate or tier
// changes never touch these values.
func NewLineItem(in LineInput, calc pricing.CalculationResult, now time.Time) LineItem {
	return LineItem{
		ProductRef:       strings.TrimSpace(in.ProductRef),
		Description:      strings.TrimSpace(in.Description),
		CostPrice:        in.Cost,
		Quantity:         in.Quantity,
		TierID:           calc.Tier.TierID,
		IdealUnitPrice:   calc.IdealUnitPrice,
		MinimumUnitPrice: calc.MinimumUnitPrice,
		UnitPrice:        in.UnitPrice,
		Customizations:   append([]Customization(nil), in.Customizations...),
		CreatedAt:        now,
	}
}

// LineChange edits an existing line; nil fields stay as they are.
type LineChange struct {
	UnitPrice *decimal.Decimal
	Quantity  *int64
}

// Terms are the quote-level pricing inputs.
type Terms struct {
	DiscountKind  DiscountKind
	DiscountValue decimal.Decimal
	ShippingCost  decimal.Decimal
}

// AddLine appends l to a draft quote.
func (q *Quote) AddLine(l LineItem) error {
	return q.edit("add_line", func(next *Quote) error {
		next.Lines = append(next.Lines, l)
		return nil
	})
}

// UpdateLine applies change to line id.
func (q *Quote) UpdateLine(id int64, change LineChange) error {
	return q.edit("update_line", func(next *Quote) error {
		i := next.lineIndex(id)
		if i < 0 {
			return ErrLineNotFound
		}
		if change.UnitPrice != nil {
			if !change.UnitPrice.IsPositive() {
				return &pricing.ValidationError{Field: "unit_price", Message: "must be greater than 0"}
			}
			next.Lines[i].UnitPrice = *change.UnitPrice
		}
		if change.Quantity != nil {
			if *change.Quantity <= 0 {
				return &pricing.ValidationError{Field: "quantity", Message: "must be greater than 0"}
			}
			next.Lines[i].Quantity = *change.Quantity
		}
		return nil
	})
}

// RemoveLine drops line id.
func (q *Quote) RemoveLine(id int64) error {
	return q.edit("remove_line", func(next *Quote) error {
		i := next.lineIndex(id)
		if i < 0 {
			return ErrLineNotFound
		}
		next.Lines = append(next.Lines[:i], next.Lines[i+1:]...)
		return nil
	})
}

// SetTerms replaces the discount and shipping terms.
func (q *Quote) SetTerms(t Terms) error {
	return q.edit("set_terms", func(next *Quote) error {
		next.DiscountKind = t.DiscountKind
		next.DiscountValue = t.DiscountValue
		next.ShippingCost = t.ShippingCost
		return nil
	})
}

// edit runs fn on a copy of a draft quote and keeps the result only if the
// copy still aggregates. An edit that flips BelowMinimum clears any
// authorization the previous line set had.
func (q *Quote) edit(action string, fn func(next *Quote) error) error {
	if err := q.RequireDraft(action); err != nil {
		return err
	}

	before := q.BelowMinimum()
	next := q.Clone()
	if err := fn(&next); err != nil {
		return err
	}
	if _, err := Aggregate(next); err != nil {
		return err
	}
	if next.BelowMinimum() != before {
		next.Authorization = AuthNone
	}

	*q = next
	return nil
}

// RequireDraft fails with *StaleStateError unless q can still be edited.
func (q Quote) RequireDraft(action string) error {
	if q.Lifecycle == Draft {
		return nil
	}
	return &StaleStateError{
		Action:   action,
		Expected: []State{{Lifecycle: Draft, Authorization: q.Authorization}},
		Current:  q.Clone(),
	}
}

func (q *Quote) lineIndex(id int64) int {
	for i, l := range q.Lines {
		if l.ID == id {
			return i
		}
	}
	return -1
}
