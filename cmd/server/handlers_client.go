package main

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Simplici0/margingate/internal/quote"
	"github.com/Simplici0/margingate/internal/store"
)

func publicIDParam(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "publicID"))
}

func (s *server) handleClientQuote(w http.ResponseWriter, r *http.Request) {
	q, err := s.engine.GetClientQuote(r.Context(), publicIDParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := newClientQuoteView(q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *server) handleClientApprove(w http.ResponseWriter, r *http.Request) {
	q, out, err := s.engine.ClientApprove(r.Context(), publicIDParam(r))
	s.writeClientTransition(w, r, quote.EventClientApprove, q, out, err)
}

func (s *server) handleClientReject(w http.ResponseWriter, r *http.Request) {
	q, out, err := s.engine.ClientReject(r.Context(), publicIDParam(r))
	s.writeClientTransition(w, r, quote.EventClientReject, q, out, err)
}

// writeClientTransition mirrors writeTransition with the client view, so a
// conflict never exposes costs or floor prices.
func (s *server) writeClientTransition(w http.ResponseWriter, r *http.Request, event quote.Event, q quote.Quote, out quote.Outcome, err error) {
	if err != nil {
		var stale *quote.StaleStateError
		if !errors.As(err, &stale) {
			writeError(w, r, err)
			return
		}
		if !stale.Current.Lifecycle.ClientVisible() {
			writeError(w, r, store.ErrNotFound)
			return
		}
		if !quote.Reached(event, stale.Current) {
			view, viewErr := newClientQuoteView(stale.Current)
			if viewErr != nil {
				writeError(w, r, viewErr)
				return
			}
			writeJSONError(w, http.StatusConflict, "quote is "+string(stale.Current.Lifecycle), view)
			return
		}
		q = stale.Current
		out = quote.Outcome{Event: event, From: q.State(), To: q.State()}
	}

	view, err := newClientQuoteView(q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, transitionView[clientQuoteView]{Changed: out.Changed, Event: string(event), Quote: view})
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeJSONError(w, http.StatusServiceUnavailable, "database unavailable", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
