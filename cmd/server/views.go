package main

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/margingate/internal/pricing"
	"github.com/Simplici0/margingate/internal/quote"
)

func money(d decimal.Decimal) string {
	return pricing.RoundMoney(d).StringFixed(pricing.MoneyPlaces)
}

type lineView struct {
	ID               int64                 `json:"id"`
	ProductRef       string                `json:"product_ref"`
	Description      string                `json:"description"`
	CostPrice        string                `json:"cost_price"`
	Quantity         int64                 `json:"quantity"`
	TierID           int64                 `json:"tier_id"`
	IdealUnitPrice   string                `json:"ideal_unit_price"`
	MinimumUnitPrice string                `json:"minimum_unit_price"`
	UnitPrice        string                `json:"unit_price"`
	UnitSurcharge    string                `json:"unit_surcharge"`
	Customizations   []quote.Customization `json:"customizations"`
	TotalPrice       string                `json:"total_price"`
	BelowMinimum     bool                  `json:"below_minimum"`
}

type quoteView struct {
	ID                  int64               `json:"id"`
	PublicID            string              `json:"public_id"`
	VendorID            string              `json:"vendor_id"`
	ClientName          string              `json:"client_name"`
	Title               string              `json:"title"`
	Notes               string              `json:"notes"`
	LifecycleStatus     quote.Lifecycle     `json:"lifecycle_status"`
	AuthorizationStatus quote.Authorization `json:"authorization_status"`
	Revision            int                 `json:"revision"`
	Version             int64               `json:"version"`
	RejectionReason     string              `json:"rejection_reason,omitempty"`
	DiscountKind        quote.DiscountKind  `json:"discount_kind"`
	DiscountValue       string              `json:"discount_value"`
	Subtotal            string              `json:"subtotal"`
	DiscountAmount      string              `json:"discount_amount"`
	ShippingCost        string              `json:"shipping_cost"`
	TotalValue          string              `json:"total_value"`
	BelowMinimum        bool                `json:"below_minimum"`
	Lines               []lineView          `json:"lines"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at"`
}

func newLineView(l quote.LineItem) lineView {
	return lineView{
		ID:               l.ID,
		ProductRef:       l.ProductRef,
		Description:      l.Description,
		CostPrice:        money(l.CostPrice),
		Quantity:         l.Quantity,
		TierID:           l.TierID,
		IdealUnitPrice:   money(l.IdealUnitPrice),
		MinimumUnitPrice: money(l.MinimumUnitPrice),
		UnitPrice:        money(l.UnitPrice),
		UnitSurcharge:    money(l.UnitSurcharge()),
		Customizations:   customizationsOrEmpty(l.Customizations),
		TotalPrice:       money(l.TotalPrice()),
		BelowMinimum:     l.BelowMinimum(),
	}
}

// newQuoteView renders q with its totals. Stored quotes always aggregate, so
// an error here means the row was edited outside the engine.
func newQuoteView(q quote.Quote) (quoteView, error) {
	totals, err := quote.Aggregate(q)
	if err != nil {
		return quoteView{}, err
	}

	lines := make([]lineView, 0, len(q.Lines))
	for _, l := range q.Lines {
		lines = append(lines, newLineView(l))
	}

	return quoteView{
		ID:                  q.ID,
		PublicID:            q.PublicID,
		VendorID:            q.VendorID,
		ClientName:          q.ClientName,
		Title:               q.Title,
		Notes:               q.Notes,
		LifecycleStatus:     q.Lifecycle,
		AuthorizationStatus: q.Authorization,
		Revision:            q.Revision,
		Version:             q.Version,
		RejectionReason:     q.RejectionReason,
		DiscountKind:        q.DiscountKind,
		DiscountValue:       q.DiscountValue.String(),
		Subtotal:            money(totals.Subtotal),
		DiscountAmount:      money(totals.DiscountAmount),
		ShippingCost:        money(totals.ShippingCost),
		TotalValue:          money(totals.TotalValue),
		BelowMinimum:        totals.BelowMinimum,
		Lines:               lines,
		CreatedAt:           q.CreatedAt,
		UpdatedAt:           q.UpdatedAt,
	}, nil
}

func newQuoteViews(qs []quote.Quote) ([]quoteView, error) {
	views := make([]quoteView, 0, len(qs))
	for _, q := range qs {
		v, err := newQuoteView(q)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}

// clientLineView leaves out cost, tier and floor prices.
type clientLineView struct {
	ProductRef     string                `json:"product_ref"`
	Description    string                `json:"description"`
	Quantity       int64                 `json:"quantity"`
	UnitPrice      string                `json:"unit_price"`
	Customizations []quote.Customization `json:"customizations"`
	TotalPrice     string                `json:"total_price"`
}

type clientQuoteView struct {
	PublicID       string             `json:"public_id"`
	ClientName     string             `json:"client_name"`
	Title          string             `json:"title"`
	Notes          string             `json:"notes"`
	Status         quote.Lifecycle    `json:"status"`
	DiscountKind   quote.DiscountKind `json:"discount_kind"`
	Subtotal       string             `json:"subtotal"`
	DiscountAmount string             `json:"discount_amount"`
	ShippingCost   string             `json:"shipping_cost"`
	TotalValue     string             `json:"total_value"`
	Lines          []clientLineView   `json:"lines"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

func newClientQuoteView(q quote.Quote) (clientQuoteView, error) {
	totals, err := quote.Aggregate(q)
	if err != nil {
		return clientQuoteView{}, err
	}

	lines := make([]clientLineView, 0, len(q.Lines))
	for _, l := range q.Lines {
		lines = append(lines, clientLineView{
			ProductRef:     l.ProductRef,
			Description:    l.Description,
			Quantity:       l.Quantity,
			UnitPrice:      money(l.UnitPrice),
			Customizations: customizationsOrEmpty(l.Customizations),
			TotalPrice:     money(l.TotalPrice()),
		})
	}

	return clientQuoteView{
		PublicID:       q.PublicID,
		ClientName:     q.ClientName,
		Title:          q.Title,
		Notes:          q.Notes,
		Status:         q.Lifecycle,
		DiscountKind:   q.DiscountKind,
		Subtotal:       money(totals.Subtotal),
		DiscountAmount: money(totals.DiscountAmount),
		ShippingCost:   money(totals.ShippingCost),
		TotalValue:     money(totals.TotalValue),
		Lines:          lines,
		UpdatedAt:      q.UpdatedAt,
	}, nil
}

func customizationsOrEmpty(cs []quote.Customization) []quote.Customization {
	if cs == nil {
		return []quote.Customization{}
	}
	return cs
}

type transitionView[T any] struct {
	Changed bool   `json:"changed"`
	Event   string `json:"event"`
	Quote   T      `json:"quote"`
}

type calculationView struct {
	TierID            int64  `json:"tier_id"`
	Fallback          bool   `json:"fallback"`
	CatchAll          bool   `json:"catch_all"`
	MarginRate        string `json:"margin_rate"`
	MinimumMarginRate string `json:"minimum_margin_rate"`
	Quantity          int64  `json:"quantity"`
	IdealUnitPrice    string `json:"ideal_unit_price"`
	MinimumUnitPrice  string `json:"minimum_unit_price"`
	CashUnitPrice     string `json:"cash_unit_price"`
	TotalIdealPrice   string `json:"total_ideal_price"`
	TotalMinimumPrice string `json:"total_minimum_price"`
	Breakdown         struct {
		Cost       string `json:"cost"`
		Tax        string `json:"tax"`
		Commission string `json:"commission"`
		Margin     string `json:"margin"`
	} `json:"breakdown"`
}

func newCalculationView(res pricing.CalculationResult) calculationView {
	v := calculationView{
		TierID:            res.Tier.TierID,
		Fallback:          res.Tier.Fallback,
		CatchAll:          res.Tier.CatchAll,
		MarginRate:        res.Tier.MarginRate.String(),
		MinimumMarginRate: res.Tier.MinimumMarginRate.String(),
		Quantity:          res.Quantity,
		IdealUnitPrice:    money(res.IdealUnitPrice),
		MinimumUnitPrice:  money(res.MinimumUnitPrice),
		CashUnitPrice:     money(res.CashUnitPrice),
		TotalIdealPrice:   money(res.Totals.TotalIdealPrice),
		TotalMinimumPrice: money(res.Totals.TotalMinimumPrice),
	}
	v.Breakdown.Cost = money(res.Breakdown.Cost)
	v.Breakdown.Tax = money(res.Breakdown.Tax)
	v.Breakdown.Commission = money(res.Breakdown.Commission)
	v.Breakdown.Margin = money(res.Breakdown.Margin)
	return v
}
