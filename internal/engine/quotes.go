package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Simplici0/margingate/internal/logx"
	"github.com/Simplici0/margingate/internal/pricing"
	"github.com/Simplici0/margingate/internal/quote"
	"github.com/Simplici0/margingate/internal/store"
)

func newPublicID() string {
	return uuid.NewString()
}

// NewQuote is the header of a quote a vendor starts.
type NewQuote struct {
	VendorID   string
	ClientName string
	Title      string
	Notes      string
}

// CreateQuote starts an empty draft.
func (s *Service) CreateQuote(ctx context.Context, in NewQuote) (quote.Quote, error) {
	in.VendorID = strings.TrimSpace(in.VendorID)
	in.ClientName = strings.TrimSpace(in.ClientName)
	in.Title = strings.TrimSpace(in.Title)
	if in.VendorID == "" {
		return quote.Quote{}, &pricing.ValidationError{Field: "vendor_id", Message: "is required"}
	}
	if in.ClientName == "" {
		return quote.Quote{}, &pricing.ValidationError{Field: "client_name", Message: "is required"}
	}
	if in.Title == "" {
		return quote.Quote{}, &pricing.ValidationError{Field: "title", Message: "is required"}
	}

	q := quote.New(s.newID(), in.VendorID, in.ClientName, in.Title, strings.TrimSpace(in.Notes), s.clock())
	created, err := s.quotes.CreateQuote(ctx, q)
	if err != nil {
		return quote.Quote{}, err
	}

	logx.Info().Int64("quote_id", created.ID).Str("vendor_id", created.VendorID).Msg("quote created")
	return created, nil
}

// GetQuote loads a quote for vendors and admins.
func (s *Service) GetQuote(ctx context.Context, id int64) (quote.Quote, error) {
	return s.quotes.GetQuote(ctx, id)
}

// GetClientQuote loads a quote by its public id. Quotes a client may not see
// yet are reported as not found.
func (s *Service) GetClientQuote(ctx context.Context, publicID string) (quote.Quote, error) {
	q, err := s.quotes.GetQuoteByPublicID(ctx, publicID)
	if err != nil {
		return quote.Quote{}, err
	}
	if !q.Lifecycle.ClientVisible() {
		return quote.Quote{}, fmt.Errorf("quote: %w", store.ErrNotFound)
	}
	return q, nil
}

// ListQuotes returns quotes matching f, newest first.
func (s *Service) ListQuotes(ctx context.Context, f store.QuoteFilter) ([]quote.Quote, error) {
	return s.quotes.ListQuotes(ctx, f)
}

// PendingAuthorizations is the admin queue of quotes held for approval.
func (s *Service) PendingAuthorizations(ctx context.Context) ([]quote.Quote, error) {
	return s.quotes.ListQuotes(ctx, store.QuoteFilter{
		Lifecycle:     quote.AwaitingAuthorization,
		Authorization: quote.AuthAwaiting,
	})
}

// AuthorizationHistory returns the audited gate events of a quote.
func (s *Service) AuthorizationHistory(ctx context.Context, quoteID int64) ([]quote.AuthorizationEvent, error) {
	if _, err := s.quotes.GetQuote(ctx, quoteID); err != nil {
		return nil, err
	}
	return s.quotes.ListAuthorizationEvents(ctx, quoteID)
}

// AddLineItem prices a new line against the current snapshot, freezes the
// result on the line and appends it to a draft quote. The tier is resolved
// from the quote subtotal including the new line.
func (s *Service) AddLineItem(ctx context.Context, quoteID int64, in quote.LineInput) (quote.LineItem, error) {
	if err := in.Validate(); err != nil {
		return quote.LineItem{}, err
	}

	var added quote.LineItem
	_, err := s.editQuote(ctx, quoteID, "add_line", func(q *quote.Quote) error {
		if err := q.RequireDraft("add_line"); err != nil {
			return err
		}
		snap, err := s.Snapshot(ctx)
		if err != nil {
			return err
		}
		calc, err := snap.Calculate(pricing.Input{Cost: in.Cost, Quantity: in.Quantity, Revenue: q.RevenueWith(in)})
		if err != nil {
			return err
		}
		return q.AddLine(quote.NewLineItem(in, calc, s.clock()))
	}, func(saved quote.Quote) {
		added = saved.Lines[len(saved.Lines)-1]
	})
	if err != nil {
		return quote.LineItem{}, err
	}

	logx.Info().
		Int64("quote_id", quoteID).
		Int64("line_id", added.ID).
		Int64("tier_id", added.TierID).
		Bool("below_minimum", added.BelowMinimum()).
		Msg("line item added")
	return added, nil
}

// UpdateLineItem changes the unit price or quantity of a line. Frozen prices
// stay as they were when the line was added.
func (s *Service) UpdateLineItem(ctx context.Context, quoteID, lineID int64, change quote.LineChange) (quote.LineItem, error) {
	var updated quote.LineItem
	_, err := s.editQuote(ctx, quoteID, "update_line", func(q *quote.Quote) error {
		return q.UpdateLine(lineID, change)
	}, func(saved quote.Quote) {
		updated, _ = saved.Line(lineID)
	})
	if err != nil {
		return quote.LineItem{}, err
	}
	return updated, nil
}

// RemoveLineItem drops a line from a draft quote.
func (s *Service) RemoveLineItem(ctx context.Context, quoteID, lineID int64) (quote.Quote, error) {
	return s.editQuote(ctx, quoteID, "remove_line", func(q *quote.Quote) error {
		return q.RemoveLine(lineID)
	}, nil)
}

// SetTerms replaces the discount and shipping of a draft quote.
func (s *Service) SetTerms(ctx context.Context, quoteID int64, terms quote.Terms) (quote.Quote, error) {
	return s.editQuote(ctx, quoteID, "set_terms", func(q *quote.Quote) error {
		return q.SetTerms(terms)
	}, nil)
}

// editQuote loads the quote, applies fn and saves under the loaded version
// and state. A concurrent writer turns into a StaleStateError.
func (s *Service) editQuote(ctx context.Context, quoteID int64, action string, fn func(q *quote.Quote) error, done func(saved quote.Quote)) (quote.Quote, error) {
	q, err := s.quotes.GetQuote(ctx, quoteID)
	if err != nil {
		return quote.Quote{}, err
	}
	expected, version := q.State(), q.Version

	if err := fn(&q); err != nil {
		return quote.Quote{}, err
	}
	q.UpdatedAt = s.clock()

	saved, err := s.quotes.SaveQuote(ctx, q, expected, version)
	if err != nil {
		return quote.Quote{}, s.staleFromConflict(ctx, quoteID, action, []quote.State{expected}, err)
	}
	if expected.Authorization != saved.Authorization {
		logx.Info().
			Int64("quote_id", saved.ID).
			Str("from", expected.String()).
			Str("to", saved.State().String()).
			Msg("edit reset authorization")
	}
	if done != nil {
		done(saved)
	}
	return saved, nil
}
