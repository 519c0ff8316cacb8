package pricing

import (
	"sort"

	"github.com/shopspring/decimal"
)

// ResolvedTier is the margin pair applied to one calculation. TierID is zero
// when the fallback rate was used because no tiers are configured.
type ResolvedTier struct {
	TierID            int64           `json:"tier_id"`
	MarginRate        decimal.Decimal `json:"margin_rate"`
	MinimumMarginRate decimal.Decimal `json:"minimum_margin_rate"`
	Fallback          bool            `json:"fallback"`
	CatchAll          bool            `json:"catch_all"`
}

// ResolveTier selects the tier whose bracket contains revenue.
//
// Overlapping matches go to the lowest DisplayOrder. When nothing matches,
// the open-ended tier with the highest MinRevenue is used; if there is none
// the tier set has a gap and a ConfigurationError is returned. An empty tier
// set falls back to the configured fallback minimum margin for both rates.
func ResolveTier(revenue decimal.Decimal, tiers []MarginTier, rates RateConfiguration) (ResolvedTier, error) {
	if revenue.IsNegative() {
		return ResolvedTier{}, &ValidationError{Field: "revenue", Message: "must be greater than or equal to 0"}
	}

	if len(tiers) == 0 {
		return ResolvedTier{
			MarginRate:        rates.FallbackMinimumMarginRate,
			MinimumMarginRate: rates.FallbackMinimumMarginRate,
			Fallback:          true,
		}, nil
	}

	var match *MarginTier
	for i := range tiers {
		t := &tiers[i]
		if !t.Contains(revenue) {
			continue
		}
		if match == nil || precedes(t, match) {
			match = t
		}
	}
	if match != nil {
		return resolved(*match, false), nil
	}

	var catchAll *MarginTier
	for i := range tiers {
		t := &tiers[i]
		if !t.OpenEnded() {
			continue
		}
		switch {
		case catchAll == nil:
			catchAll = t
		case t.MinRevenue.GreaterThan(catchAll.MinRevenue):
			catchAll = t
		case t.MinRevenue.Equal(catchAll.MinRevenue) && precedes(t, catchAll):
			catchAll = t
		}
	}
	if catchAll == nil {
		return ResolvedTier{}, &ConfigurationError{Revenue: revenue}
	}
	return resolved(*catchAll, true), nil
}

func resolved(t MarginTier, catchAll bool) ResolvedTier {
	return ResolvedTier{
		TierID:            t.ID,
		MarginRate:        t.MarginRate,
		MinimumMarginRate: t.MinimumMarginRate,
		CatchAll:          catchAll,
	}
}

// precedes orders competing tiers: display order, then lower bound, then id.
func precedes(a, b *MarginTier) bool {
	if a.DisplayOrder != b.DisplayOrder {
		return a.DisplayOrder < b.DisplayOrder
	}
	if !a.MinRevenue.Equal(b.MinRevenue) {
		return a.MinRevenue.LessThan(b.MinRevenue)
	}
	return a.ID < b.ID
}

// SortTiers orders tiers by MinRevenue, breaking ties by display order.
func SortTiers(tiers []MarginTier) {
	sort.SliceStable(tiers, func(i, j int) bool {
		if !tiers[i].MinRevenue.Equal(tiers[j].MinRevenue) {
			return tiers[i].MinRevenue.LessThan(tiers[j].MinRevenue)
		}
		return precedes(&tiers[i], &tiers[j])
	})
}
