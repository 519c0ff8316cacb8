package main

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Simplici0/margingate/internal/logx"
)

// Roles are asserted by the gateway in front of this service.
const (
	roleAdmin       = "admin"
	roleVendor      = "vendor"
	roleFulfillment = "fulfillment"

	headerRole  = "X-Actor-Role"
	headerActor = "X-Actor-ID"
)

type actor struct {
	Role string
	ID   string
}

type actorKey struct{}

func actorFrom(ctx context.Context) actor {
	a, _ := ctx.Value(actorKey{}).(actor)
	return a
}

// requireRole admits requests whose gateway headers name one of roles.
func requireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			a := actor{
				Role: strings.ToLower(strings.TrimSpace(r.Header.Get(headerRole))),
				ID:   strings.TrimSpace(r.Header.Get(headerActor)),
			}
			if a.Role == "" || a.ID == "" {
				writeJSONError(w, http.StatusUnauthorized, "missing actor headers", nil)
				return
			}
			if !slices.Contains(roles, a.Role) {
				writeJSONError(w, http.StatusForbidden, "role "+a.Role+" may not call this endpoint", nil)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey{}, a)))
		})
	}
}

// requestLogger writes one zerolog line per request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			logx.Info().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("http request")
		}()
		next.ServeHTTP(ww, r)
	})
}

func newRouter(s *server) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", s.handleHealth)

	r.Route("/admin", func(r chi.Router) {
		r.Use(requireRole(roleAdmin))
		r.Get("/rates", s.handleGetRates)
		r.Put("/rates", s.handleUpdateRates)
		r.Get("/rates/tiers", s.handleListTiers)
		r.Post("/rates/tiers", s.handleCreateTier)
		r.Put("/rates/tiers/{id}", s.handleUpdateTier)
		r.Delete("/rates/tiers/{id}", s.handleDeleteTier)
		r.Get("/quotes/pending", s.handlePendingQuotes)
		r.Post("/quotes/{id}/approve", s.handleAdminApprove)
		r.Post("/quotes/{id}/reject", s.handleAdminReject)
	})

	r.Group(func(r chi.Router) {
		r.Use(requireRole(roleVendor, roleAdmin))
		r.Post("/pricing/calculate", s.handleCalculate)
		r.Get("/quotes", s.handleQuotesList)
		r.Post("/quotes", s.handleCreateQuote)
		r.Route("/quotes/{id}", func(r chi.Router) {
			r.Use(s.quoteAccess)
			r.Get("/", s.handleGetQuote)
			r.Put("/terms", s.handleSetTerms)
			r.Post("/lines", s.handleAddLine)
			r.Put("/lines/{lineID}", s.handleUpdateLine)
			r.Delete("/lines/{lineID}", s.handleRemoveLine)
			r.Post("/send", s.handleSendQuote)
			r.Get("/authorizations", s.handleAuthorizationHistory)
		})
	})

	// Clients hold an unguessable public id instead of gateway credentials.
	r.Route("/client/quotes/{publicID}", func(r chi.Router) {
		r.Get("/", s.handleClientQuote)
		r.Post("/approve", s.handleClientApprove)
		r.Post("/reject", s.handleClientReject)
	})

	r.Route("/fulfillment", func(r chi.Router) {
		r.Use(requireRole(roleFulfillment, roleAdmin))
		r.Post("/quotes/{id}/convert", s.handleConvertQuote)
	})

	return r
}
