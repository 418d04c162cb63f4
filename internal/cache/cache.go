package cache

import (
	"context"
	"time"

	"teasales/backend/internal/domain"
)

type CatalogCache interface {
	Get(ctx context.Context) (*domain.Catalog, bool, error)
	Set(ctx context.Context, value *domain.Catalog, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

type NoopCatalogCache struct{}

func (NoopCatalogCache) Get(_ context.Context) (*domain.Catalog, bool, error) {
	return nil, false, nil
}

func (NoopCatalogCache) Set(_ context.Context, _ *domain.Catalog, _ time.Duration) error {
	return nil
}

func (NoopCatalogCache) Invalidate(_ context.Context) error {
	return nil
}
