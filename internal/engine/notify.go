package engine

import (
	"context"

	"github.com/Simplici0/margingate/internal/logx"
	"github.com/Simplici0/margingate/internal/quote"
)

// LogNotifier records transitions that someone should hear about in the log.
type LogNotifier struct{}

func (LogNotifier) QuoteTransitioned(_ context.Context, q quote.Quote, out quote.Outcome) {
	var audience string
	switch {
	case out.To.Lifecycle == quote.AwaitingAuthorization:
		audience = "admin"
	case out.Event == quote.EventAdminReject:
		audience = "vendor"
	case out.To.Lifecycle == quote.Sent:
		audience = "client"
	case out.To.Lifecycle == quote.Approved:
		audience = "fulfillment"
	default:
		return
	}

	logx.Info().
		Int64("quote_id", q.ID).
		Str("public_id", q.PublicID).
		Str("audience", audience).
		Str("event", string(out.Event)).
		Str("state", out.To.String()).
		Msg("notify")
}
