package main

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/margingate/internal/pricing"
)

type rateUpdateRequest struct {
	TaxRate                   *decimal.Decimal `json:"tax_rate"`
	CommissionRate            *decimal.Decimal `json:"commission_rate"`
	CashDiscountRate          *decimal.Decimal `json:"cash_discount_rate"`
	FallbackMinimumMarginRate *decimal.Decimal `json:"fallback_minimum_margin_rate"`
}

func (req rateUpdateRequest) toUpdate() (pricing.RateUpdate, error) {
	var (
		upd pricing.RateUpdate
		err error
	)
	if upd.TaxRate, err = requireDecimal(req.TaxRate, "tax_rate"); err != nil {
		return upd, err
	}
	if upd.CommissionRate, err = requireDecimal(req.CommissionRate, "commission_rate"); err != nil {
		return upd, err
	}
	if upd.CashDiscountRate, err = requireDecimal(req.CashDiscountRate, "cash_discount_rate"); err != nil {
		return upd, err
	}
	upd.FallbackMinimumMarginRate = req.FallbackMinimumMarginRate
	return upd, nil
}

type tierRequest struct {
	MinRevenue        *decimal.Decimal `json:"min_revenue"`
	MaxRevenue        *decimal.Decimal `json:"max_revenue"`
	MarginRate        *decimal.Decimal `json:"margin_rate"`
	MinimumMarginRate *decimal.Decimal `json:"minimum_margin_rate"`
	DisplayOrder      int              `json:"display_order"`
}

func (req tierRequest) toTier(id int64) (pricing.MarginTier, error) {
	tier := pricing.MarginTier{ID: id, ConfigID: pricing.DefaultConfigID, DisplayOrder: req.DisplayOrder}
	var err error
	if tier.MinRevenue, err = requireDecimal(req.MinRevenue, "min_revenue"); err != nil {
		return tier, err
	}
	if tier.MarginRate, err = requireDecimal(req.MarginRate, "margin_rate"); err != nil {
		return tier, err
	}
	if tier.MinimumMarginRate, err = requireDecimal(req.MinimumMarginRate, "minimum_margin_rate"); err != nil {
		return tier, err
	}
	if req.MaxRevenue != nil {
		tier.MaxRevenue = decimal.NewNullDecimal(*req.MaxRevenue)
	}
	return tier, nil
}

type calculateRequest struct {
	Cost     *decimal.Decimal `json:"cost"`
	Quantity int64            `json:"quantity"`
	Revenue  *decimal.Decimal `json:"revenue"`
}

func (s *server) handleGetRates(w http.ResponseWriter, r *http.Request) {
	rc, err := s.engine.GetRateConfiguration(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rc)
}

func (s *server) handleUpdateRates(w http.ResponseWriter, r *http.Request) {
	var req rateUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	upd, err := req.toUpdate()
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	rc, err := s.engine.UpdateRateConfiguration(r.Context(), upd)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rc)
}

func (s *server) handleListTiers(w http.ResponseWriter, r *http.Request) {
	tiers, err := s.engine.ListMarginTiers(r.Context(), pricing.DefaultConfigID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if tiers == nil {
		tiers = []pricing.MarginTier{}
	}
	writeJSON(w, http.StatusOK, tiers)
}

func (s *server) handleCreateTier(w http.ResponseWriter, r *http.Request) {
	s.saveTier(w, r, 0, http.StatusCreated)
}

func (s *server) handleUpdateTier(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	s.saveTier(w, r, id, http.StatusOK)
}

func (s *server) saveTier(w http.ResponseWriter, r *http.Request, id int64, status int) {
	var req tierRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	tier, err := req.toTier(id)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	saved, err := s.engine.UpsertMarginTier(r.Context(), tier)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, status, saved)
}

func (s *server) handleDeleteTier(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if err := s.engine.DeleteMarginTier(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	var req calculateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	cost, err := requireDecimal(req.Cost, "cost")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	revenue, err := requireDecimal(req.Revenue, "revenue")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	res, err := s.engine.CalculatePrice(r.Context(), cost, req.Quantity, revenue)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCalculationView(res))
}
