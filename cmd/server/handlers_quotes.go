package main

import (
	"errors"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/margingate/internal/engine"
	"github.com/Simplici0/margingate/internal/quote"
	"github.com/Simplici0/margingate/internal/store"
)

type createQuoteRequest struct {
	VendorID   string `json:"vendor_id"`
	ClientName string `json:"client_name"`
	Title      string `json:"title"`
	Notes      string `json:"notes"`
}

type lineRequest struct {
	ProductRef     string                `json:"product_ref"`
	Description    string                `json:"description"`
	Cost           *decimal.Decimal      `json:"cost"`
	Quantity       int64                 `json:"quantity"`
	UnitPrice      *decimal.Decimal      `json:"unit_price"`
	Customizations []quote.Customization `json:"customizations"`
}

type lineChangeRequest struct {
	UnitPrice *decimal.Decimal `json:"unit_price"`
	Quantity  *int64           `json:"quantity"`
}

type termsRequest struct {
	DiscountKind  string           `json:"discount_kind"`
	DiscountValue *decimal.Decimal `json:"discount_value"`
	ShippingCost  *decimal.Decimal `json:"shipping_cost"`
}

func (req termsRequest) toTerms() (quote.Terms, error) {
	kind := quote.DiscountPercentage
	if strings.TrimSpace(req.DiscountKind) != "" {
		parsed, err := quote.ParseDiscountKind(strings.TrimSpace(req.DiscountKind))
		if err != nil {
			return quote.Terms{}, err
		}
		kind = parsed
	}
	terms := quote.Terms{DiscountKind: kind}
	if req.DiscountValue != nil {
		terms.DiscountValue = *req.DiscountValue
	}
	if req.ShippingCost != nil {
		terms.ShippingCost = *req.ShippingCost
	}
	return terms, nil
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// quoteAccess keeps vendors on their own quotes. Someone else's quote is
// reported as missing.
func (s *server) quoteAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a := actorFrom(r.Context())
		if a.Role != roleVendor {
			next.ServeHTTP(w, r)
			return
		}
		id, err := parseIDParam(r, "id")
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error(), nil)
			return
		}
		q, err := s.engine.GetQuote(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if q.VendorID != a.ID {
			writeError(w, r, store.ErrNotFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *server) handleQuotesList(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	limit, err := parseLimit(params.Get("limit"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	filter := store.QuoteFilter{
		Query:    strings.TrimSpace(params.Get("q")),
		VendorID: strings.TrimSpace(params.Get("vendor_id")),
		Limit:    limit,
	}
	if raw := params.Get("status"); raw != "" {
		if filter.Lifecycle, err = quote.ParseLifecycle(raw); err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error(), nil)
			return
		}
	}
	if raw := params.Get("authorization"); raw != "" {
		if filter.Authorization, err = quote.ParseAuthorization(raw); err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error(), nil)
			return
		}
	}
	if a := actorFrom(r.Context()); a.Role == roleVendor {
		filter.VendorID = a.ID
	}

	quotes, err := s.engine.ListQuotes(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.writeQuotes(w, r, quotes)
}

func (s *server) handleCreateQuote(w http.ResponseWriter, r *http.Request) {
	var req createQuoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	a := actorFrom(r.Context())
	vendorID := a.ID
	if a.Role == roleAdmin && strings.TrimSpace(req.VendorID) != "" {
		vendorID = req.VendorID
	}

	q, err := s.engine.CreateQuote(r.Context(), engine.NewQuote{
		VendorID:   vendorID,
		ClientName: req.ClientName,
		Title:      req.Title,
		Notes:      req.Notes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.writeQuote(w, r, http.StatusCreated, q)
}

func (s *server) handleGetQuote(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	q, err := s.engine.GetQuote(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.writeQuote(w, r, http.StatusOK, q)
}

func (s *server) handleSetTerms(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	var req termsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	terms, err := req.toTerms()
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	q, err := s.engine.SetTerms(r.Context(), id, terms)
	if err != nil {
		s.writeEditError(w, r, err)
		return
	}
	s.writeQuote(w, r, http.StatusOK, q)
}

func (s *server) handleAddLine(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	var req lineRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	in := quote.LineInput{
		ProductRef:     req.ProductRef,
		Description:    req.Description,
		Quantity:       req.Quantity,
		Customizations: req.Customizations,
	}
	if in.Cost, err = requireDecimal(req.Cost, "cost"); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if in.UnitPrice, err = requireDecimal(req.UnitPrice, "unit_price"); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	line, err := s.engine.AddLineItem(r.Context(), id, in)
	if err != nil {
		s.writeEditError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newLineView(line))
}

func (s *server) handleUpdateLine(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	lineID, err := parseIDParam(r, "lineID")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	var req lineChangeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	line, err := s.engine.UpdateLineItem(r.Context(), id, lineID, quote.LineChange{UnitPrice: req.UnitPrice, Quantity: req.Quantity})
	if err != nil {
		s.writeEditError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newLineView(line))
}

func (s *server) handleRemoveLine(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	lineID, err := parseIDParam(r, "lineID")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	q, err := s.engine.RemoveLineItem(r.Context(), id, lineID)
	if err != nil {
		s.writeEditError(w, r, err)
		return
	}
	s.writeQuote(w, r, http.StatusOK, q)
}

func (s *server) handleSendQuote(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	q, out, err := s.engine.SendQuote(r.Context(), id, actorFrom(r.Context()).ID)
	s.writeTransition(w, r, quote.EventSend, q, out, err)
}

func (s *server) handleAuthorizationHistory(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	events, err := s.engine.AuthorizationHistory(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if events == nil {
		events = []quote.AuthorizationEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *server) handlePendingQuotes(w http.ResponseWriter, r *http.Request) {
	quotes, err := s.engine.PendingAuthorizations(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.writeQuotes(w, r, quotes)
}

func (s *server) handleAdminApprove(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	q, out, err := s.engine.AdminApprove(r.Context(), id, actorFrom(r.Context()).ID)
	s.writeTransition(w, r, quote.EventAdminApprove, q, out, err)
}

func (s *server) handleAdminReject(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	// the reason is optional, including the whole body
	var req rejectRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		writeJSONError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	q, out, err := s.engine.AdminReject(r.Context(), id, actorFrom(r.Context()).ID, strings.TrimSpace(req.Reason))
	s.writeTransition(w, r, quote.EventAdminReject, q, out, err)
}

func (s *server) handleConvertQuote(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	q, out, err := s.engine.ConvertQuote(r.Context(), id, actorFrom(r.Context()).ID)
	s.writeTransition(w, r, quote.EventConvert, q, out, err)
}

func (s *server) writeQuote(w http.ResponseWriter, r *http.Request, status int, q quote.Quote) {
	view, err := newQuoteView(q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, status, view)
}

func (s *server) writeQuotes(w http.ResponseWriter, r *http.Request, quotes []quote.Quote) {
	views, err := newQuoteViews(quotes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

// writeEditError reports a refused edit with the stored quote attached so
// the caller can refresh.
func (s *server) writeEditError(w http.ResponseWriter, r *http.Request, err error) {
	var stale *quote.StaleStateError
	if errors.As(err, &stale) {
		view, viewErr := newQuoteView(stale.Current)
		if viewErr != nil {
			writeError(w, r, viewErr)
			return
		}
		writeJSONError(w, http.StatusConflict, stale.Error(), view)
		return
	}
	writeError(w, r, err)
}

// writeTransition renders a gate outcome. An admin or client decision that
// arrives after the quote already reached its target state is answered with
// 200 and changed=false instead of a conflict.
func (s *server) writeTransition(w http.ResponseWriter, r *http.Request, event quote.Event, q quote.Quote, out quote.Outcome, err error) {
	if err != nil {
		var stale *quote.StaleStateError
		if !repeatable(event) || !errors.As(err, &stale) || !quote.Reached(event, stale.Current) {
			s.writeEditError(w, r, err)
			return
		}
		q = stale.Current
		out = quote.Outcome{Event: event, From: q.State(), To: q.State()}
	}
	view, err := newQuoteView(q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, transitionView[quoteView]{Changed: out.Changed, Event: string(event), Quote: view})
}

func repeatable(e quote.Event) bool {
	switch e {
	case quote.EventAdminApprove, quote.EventClientApprove, quote.EventClientReject:
		return true
	}
	return false
}
