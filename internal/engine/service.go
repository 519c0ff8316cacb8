// Package engine exposes the pricing and authorization operations the HTTP
// layer calls. It loads state through its repositories, runs the pure
// pricing and quote functions, and persists the result under an optimistic
// precondition.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/Simplici0/margingate/internal/cache"
	"github.com/Simplici0/margingate/internal/logx"
	"github.com/Simplici0/margingate/internal/pricing"
	"github.com/Simplici0/margingate/internal/quote"
	"github.com/Simplici0/margingate/internal/store"
)

// RateRepository persists the rate configuration and margin tiers.
type RateRepository interface {
	GetRateConfiguration(ctx context.Context) (pricing.RateConfiguration, error)
	UpdateRateConfiguration(ctx context.Context, upd pricing.RateUpdate) (pricing.RateConfiguration, error)
	ListMarginTiers(ctx context.Context, configID int64) ([]pricing.MarginTier, error)
	UpsertMarginTier(ctx context.Context, tier pricing.MarginTier) (pricing.MarginTier, error)
	DeleteMarginTier(ctx context.Context, tierID int64) error
	Snapshot(ctx context.Context) (pricing.Snapshot, error)
}

// QuoteRepository persists quotes and their authorization history.
type QuoteRepository interface {
	CreateQuote(ctx context.Context, q quote.Quote) (quote.Quote, error)
	GetQuote(ctx context.Context, id int64) (quote.Quote, error)
	GetQuoteByPublicID(ctx context.Context, publicID string) (quote.Quote, error)
	ListQuotes(ctx context.Context, f store.QuoteFilter) ([]quote.Quote, error)
	SaveQuote(ctx context.Context, q quote.Quote, expected quote.State, expectedVersion int64, events ...quote.AuthorizationEvent) (quote.Quote, error)
	ListAuthorizationEvents(ctx context.Context, quoteID int64) ([]quote.AuthorizationEvent, error)
}

var (
	_ RateRepository  = (*store.Store)(nil)
	_ QuoteRepository = (*store.Store)(nil)
	_ SnapshotCache   = (*cache.Redis)(nil)
	_ SnapshotCache   = cache.Noop{}
)

// SnapshotCache holds the current rate snapshot between reads. Put receives
// the generation Get reported, so a fill that raced an invalidation is never
// served.
type SnapshotCache interface {
	Get(ctx context.Context) (cache.Entry, error)
	Put(ctx context.Context, gen int64, snap pricing.Snapshot) error
	Invalidate(ctx context.Context) error
}

// Notifier is told about every persisted gate transition. Delivery (mail,
// chat, UI push) lives outside the engine.
type Notifier interface {
	QuoteTransitioned(ctx context.Context, q quote.Quote, out quote.Outcome)
}

// Service implements the engine operations.
type Service struct {
	rates    RateRepository
	quotes   QuoteRepository
	cache    SnapshotCache
	notifier Notifier
	now      func() time.Time
	newID    func() string
}

type Option func(*Service)

// WithCache puts a snapshot cache in front of the rate repository.
func WithCache(c SnapshotCache) Option {
	return func(s *Service) {
		if c != nil {
			s.cache = c
		}
	}
}

// WithNotifier replaces the default LogNotifier.
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithPublicIDs overrides the generator of client-facing quote ids.
func WithPublicIDs(gen func() string) Option {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// New builds a Service.
func New(rates RateRepository, quotes QuoteRepository, opts ...Option) *Service {
	s := &Service{
		rates:    rates,
		quotes:   quotes,
		cache:    cache.Noop{},
		notifier: LogNotifier{},
		now:      time.Now,
		newID:    newPublicID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) clock() time.Time {
	return s.now().UTC()
}

// Snapshot returns the current rates and tiers, from the cache when possible.
// Cache failures are logged and fall through to the repository.
func (s *Service) Snapshot(ctx context.Context) (pricing.Snapshot, error) {
	entry, getErr := s.cache.Get(ctx)
	if getErr != nil {
		logx.Warn().Err(getErr).Msg("rate snapshot cache read failed")
	}
	if entry.Found {
		return entry.Snapshot, nil
	}

	snap, err := s.rates.Snapshot(ctx)
	if err != nil {
		return pricing.Snapshot{}, err
	}
	// without a generation there is nothing safe to fill
	if getErr != nil {
		return snap, nil
	}
	if err := s.cache.Put(ctx, entry.Generation, snap); err != nil {
		logx.Warn().Err(err).Msg("rate snapshot cache write failed")
	}
	return snap, nil
}

func (s *Service) invalidateRates(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		logx.Warn().Err(err).Msg("rate snapshot cache invalidation failed")
	}
}

// staleFromConflict turns a lost optimistic write into a StaleStateError
// carrying the quote as it is now stored.
func (s *Service) staleFromConflict(ctx context.Context, id int64, action string, expected []quote.State, err error) error {
	if !errors.Is(err, store.ErrVersionConflict) {
		return err
	}
	current, loadErr := s.quotes.GetQuote(ctx, id)
	if loadErr != nil {
		return errors.Join(err, loadErr)
	}
	return &quote.StaleStateError{Action: action, Expected: expected, Current: current}
}
