// Package quote holds the quote aggregate: line items with frozen minimum
// prices, the totals aggregator, and the authorization gate that decides when
// a quote may reach its client.
package quote

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DiscountKind selects how DiscountValue is read.
type DiscountKind string

const (
	DiscountPercentage DiscountKind = "percentage"
	DiscountFlat       DiscountKind = "flat"
)

// ParseDiscountKind validates a discount kind.
func ParseDiscountKind(s string) (DiscountKind, error) {
	switch k := DiscountKind(s); k {
	case DiscountPercentage, DiscountFlat:
		return k, nil
	}
	return "", fmt.Errorf("unknown discount kind %q", s)
}

// Customization is a per-unit surcharge on a line (engraving, print, ...).
type Customization struct {
	Name          string          `json:"name"`
	UnitSurcharge decimal.Decimal `json:"unit_surcharge"`
}

// LineItem is one priced product on a quote. IdealUnitPrice, MinimumUnitPrice
// and TierID are frozen when the line is created.
type LineItem struct {
	ID               int64
	ProductRef       string
	Description      string
	CostPrice        decimal.Decimal
	Quantity         int64
	TierID           int64
	IdealUnitPrice   decimal.Decimal
	MinimumUnitPrice decimal.Decimal
	UnitPrice        decimal.Decimal
	Customizations   []Customization
	CreatedAt        time.Time
}

// UnitSurcharge sums the line's customization surcharges.
func (l LineItem) UnitSurcharge() decimal.Decimal {
	total := decimal.Zero
	for _, c := range l.Customizations {
		total = total.Add(c.UnitSurcharge)
	}
	return total
}

// TotalPrice is quantity * (unitPrice + surcharges), unrounded.
func (l LineItem) TotalPrice() decimal.Decimal {
	return decimal.NewFromInt(l.Quantity).Mul(l.UnitPrice.Add(l.UnitSurcharge()))
}

// BelowMinimum compares the vendor price with the frozen floor. Neither side
// is rounded.
func (l LineItem) BelowMinimum() bool {
	return l.UnitPrice.LessThan(l.MinimumUnitPrice)
}

// Quote is the aggregate the gate operates on. Version is the optimistic
// concurrency token; the store bumps it on every successful write.
type Quote struct {
	ID              int64
	PublicID        string
	VendorID        string
	ClientName      string
	Title           string
	Notes           string
	Lines           []LineItem
	DiscountKind    DiscountKind
	DiscountValue   decimal.Decimal
	ShippingCost    decimal.Decimal
	Lifecycle       Lifecycle
	Authorization   Authorization
	Revision        int
	Version         int64
	RejectionReason string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// New returns an empty draft quote.
func New(publicID, vendorID, clientName, title, notes string, now time.Time) Quote {
	return Quote{
		PublicID:      publicID,
		VendorID:      vendorID,
		ClientName:    clientName,
		Title:         title,
		Notes:         notes,
		DiscountKind:  DiscountPercentage,
		DiscountValue: decimal.Zero,
		ShippingCost:  decimal.Zero,
		Lifecycle:     Draft,
		Authorization: AuthNone,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// State returns the gate-relevant part of q.
func (q Quote) State() State {
	return State{Lifecycle: q.Lifecycle, Authorization: q.Authorization}
}

// BelowMinimum reports whether any line is priced under its frozen floor.
func (q Quote) BelowMinimum() bool {
	for _, l := range q.Lines {
		if l.BelowMinimum() {
			return true
		}
	}
	return false
}

// Subtotal sums the unrounded line totals.
func (q Quote) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, l := range q.Lines {
		total = total.Add(l.TotalPrice())
	}
	return total
}

// Line looks a line up by id.
func (q Quote) Line(id int64) (LineItem, bool) {
	for _, l := range q.Lines {
		if l.ID == id {
			return l, true
		}
	}
	return LineItem{}, false
}

// Clone returns a copy of q that shares no slices with it.
func (q Quote) Clone() Quote {
	cp := q
	cp.Lines = make([]LineItem, len(q.Lines))
	for i, l := range q.Lines {
		l.Customizations = append([]Customization(nil), l.Customizations...)
		cp.Lines[i] = l
	}
	return cp
}
