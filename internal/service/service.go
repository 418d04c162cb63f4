package service

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"teasales/backend/internal/cache"
	"teasales/backend/internal/domain"
	"teasales/backend/internal/store"
)

var (
	ErrIncompleteSale = errors.New("select customer, products and paid amount")
	ErrForbidden      = errors.New("forbidden")
)

const moneyScale = 2

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Options struct {
	CatalogTTL time.Duration
	DraftTTL   time.Duration
	// Location is where calendar-day filter bounds are interpreted.
	Location *time.Location
	Now      func() time.Time
}

type Service struct {
	repo         store.Repository
	catalogCache cache.CatalogCache
	drafts       cache.DraftStore
	catalogTTL   time.Duration
	draftTTL     time.Duration
	location     *time.Location
	now          func() time.Time
}

func New(repo store.Repository, catalogCache cache.CatalogCache, drafts cache.DraftStore, opts Options) *Service {
	if catalogCache == nil {
		catalogCache = cache.NoopCatalogCache{}
	}
	if drafts == nil {
		drafts = cache.NewMemoryDraftStore()
	}
	if opts.CatalogTTL <= 0 {
		opts.CatalogTTL = time.Minute
	}
	if opts.DraftTTL <= 0 {
		opts.DraftTTL = 2 * time.Hour
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Service{
		repo:         repo,
		catalogCache: catalogCache,
		drafts:       drafts,
		catalogTTL:   opts.CatalogTTL,
		draftTTL:     opts.DraftTTL,
		location:     opts.Location,
		now:          opts.Now,
	}
}

func (s *Service) Location() *time.Location {
	return s.location
}

// validAmount reports whether d is a non-negative amount with at most two
// decimal places, the precision every store keeps.
func validAmount(d decimal.Decimal) bool {
	return !d.IsNegative() && d.Equal(d.Round(moneyScale))
}
