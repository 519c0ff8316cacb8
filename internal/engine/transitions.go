package engine

import (
	"context"
	"errors"

	"github.com/Simplici0/margingate/internal/logx"
	"github.com/Simplici0/margingate/internal/quote"
)

// SendQuote hands a draft to the client. A quote priced below its floor
// without prior approval is parked in awaiting_authorization instead.
func (s *Service) SendQuote(ctx context.Context, quoteID int64, actor string) (quote.Quote, quote.Outcome, error) {
	q, err := s.quotes.GetQuote(ctx, quoteID)
	if err != nil {
		return quote.Quote{}, quote.Outcome{}, err
	}
	return s.transition(ctx, q, quote.Command{Event: quote.EventSend}, actor)
}

// AdminApprove authorizes below-minimum pricing and sends the quote.
// Approving an already approved quote changes nothing.
func (s *Service) AdminApprove(ctx context.Context, quoteID int64, actor string) (quote.Quote, quote.Outcome, error) {
	q, err := s.quotes.GetQuote(ctx, quoteID)
	if err != nil {
		return quote.Quote{}, quote.Outcome{}, err
	}
	return s.transition(ctx, q, quote.Command{Event: quote.EventAdminApprove}, actor)
}

// AdminReject returns a held quote to its vendor as a new draft revision.
func (s *Service) AdminReject(ctx context.Context, quoteID int64, actor, reason string) (quote.Quote, quote.Outcome, error) {
	q, err := s.quotes.GetQuote(ctx, quoteID)
	if err != nil {
		return quote.Quote{}, quote.Outcome{}, err
	}
	current, out, err := s.transition(ctx, q, quote.Command{Event: quote.EventAdminReject, Reason: reason}, actor)
	var stale *quote.StaleStateError
	if !errors.As(err, &stale) {
		return current, out, err
	}
	// a second click on reject finds the draft the first one produced
	events, histErr := s.quotes.ListAuthorizationEvents(ctx, quoteID)
	if histErr != nil {
		return current, out, err
	}
	if n := len(events); n > 0 && quote.RepeatsReject(stale.Current, events[n-1]) {
		logx.Debug().Int64("quote_id", quoteID).Msg("admin reject repeated")
		return stale.Current, quote.Outcome{Event: quote.EventAdminReject, From: stale.Current.State(), To: stale.Current.State()}, nil
	}
	return current, out, err
}

// ClientApprove records the client's acceptance of a sent quote.
func (s *Service) ClientApprove(ctx context.Context, publicID string) (quote.Quote, quote.Outcome, error) {
	q, err := s.GetClientQuote(ctx, publicID)
	if err != nil {
		return quote.Quote{}, quote.Outcome{}, err
	}
	return s.transition(ctx, q, quote.Command{Event: quote.EventClientApprove}, "client")
}

// ClientReject records the client's refusal; the quote becomes terminal.
func (s *Service) ClientReject(ctx context.Context, publicID string) (quote.Quote, quote.Outcome, error) {
	q, err := s.GetClientQuote(ctx, publicID)
	if err != nil {
		return quote.Quote{}, quote.Outcome{}, err
	}
	return s.transition(ctx, q, quote.Command{Event: quote.EventClientReject}, "client")
}

// ConvertQuote is called by fulfillment once an approved quote becomes an order.
func (s *Service) ConvertQuote(ctx context.Context, quoteID int64, actor string) (quote.Quote, quote.Outcome, error) {
	q, err := s.quotes.GetQuote(ctx, quoteID)
	if err != nil {
		return quote.Quote{}, quote.Outcome{}, err
	}
	return s.transition(ctx, q, quote.Command{Event: quote.EventConvert}, actor)
}

// transition runs the gate in memory, persists the result under the loaded
// version and state, and only then notifies. Losing a race against a writer
// that already produced the same end state (a double-clicked approve) is
// reported as a no-op; any other lost race is a StaleStateError.
func (s *Service) transition(ctx context.Context, q quote.Quote, cmd quote.Command, actor string) (quote.Quote, quote.Outcome, error) {
	next, out, err := quote.Apply(q, cmd)
	if err != nil {
		return q, out, err
	}
	if !out.Changed {
		logx.Debug().Int64("quote_id", q.ID).Str("event", string(cmd.Event)).Msg("quote transition is a no-op")
		return next, out, nil
	}

	now := s.clock()
	next.UpdatedAt = now

	var events []quote.AuthorizationEvent
	if out.Audited() {
		events = append(events, quote.NewAuthorizationEvent(next, out, actor, cmd.Reason, now))
	}

	saved, err := s.quotes.SaveQuote(ctx, next, out.From, q.Version, events...)
	if err != nil {
		err = s.staleFromConflict(ctx, q.ID, string(cmd.Event), quote.Expected(cmd.Event), err)
		var stale *quote.StaleStateError
		if errors.As(err, &stale) {
			if current, noop, applyErr := quote.Apply(stale.Current, cmd); applyErr == nil && !noop.Changed {
				return current, noop, nil
			}
			return stale.Current, quote.Outcome{Event: cmd.Event, From: stale.Current.State(), To: stale.Current.State()}, stale
		}
		return q, out, err
	}

	logx.Info().
		Int64("quote_id", saved.ID).
		Str("event", string(out.Event)).
		Str("from", out.From.String()).
		Str("to", out.To.String()).
		Str("actor", actor).
		Int("revision", saved.Revision).
		Msg("quote transition")

	s.notifier.QuoteTransitioned(ctx, saved, out)
	return saved, out, nil
}
