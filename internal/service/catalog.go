package service

import (
	"context"
	"log/slog"
	"strings"

	"teasales/backend/internal/domain"
	"teasales/backend/internal/metrics"
	"teasales/backend/internal/store"
)

// LoadCatalog returns the product and customer snapshot used to build a
// sale. Cache failures fall through to the repository.
func (s *Service) LoadCatalog(ctx context.Context) (domain.Catalog, error) {
	cached, ok, err := s.catalogCache.Get(ctx)
	switch {
	case err != nil:
		metrics.CatalogCacheLookups.WithLabelValues("error").Inc()
		slog.WarnContext(ctx, "catalog cache read failed", "error", err)
	case ok:
		metrics.CatalogCacheLookups.WithLabelValues("hit").Inc()
		return *cached, nil
	default:
		metrics.CatalogCacheLookups.WithLabelValues("miss").Inc()
	}

	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return domain.Catalog{}, err
	}
	customers, err := s.repo.ListCustomers(ctx)
	if err != nil {
		return domain.Catalog{}, err
	}

	catalog := domain.Catalog{Products: products, Customers: customers}
	if err := s.catalogCache.Set(ctx, &catalog, s.catalogTTL); err != nil {
		slog.WarnContext(ctx, "catalog cache write failed", "error", err)
	}
	return catalog, nil
}

// SearchProducts matches names case-insensitively. An empty query lists all.
func (s *Service) SearchProducts(ctx context.Context, query string) ([]domain.Product, error) {
	catalog, err := s.LoadCatalog(ctx)
	if err != nil {
		return nil, err
	}

	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return catalog.Products, nil
	}
	out := make([]domain.Product, 0, len(catalog.Products))
	for _, p := range catalog.Products {
		if strings.Contains(strings.ToLower(p.Name), query) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Service) SearchCustomers(ctx context.Context, query string) ([]domain.Customer, error) {
	catalog, err := s.LoadCatalog(ctx)
	if err != nil {
		return nil, err
	}

	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return catalog.Customers, nil
	}
	out := make([]domain.Customer, 0, len(catalog.Customers))
	for _, c := range catalog.Customers {
		if strings.Contains(strings.ToLower(c.Name), query) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return domain.Product{}, ErrForbidden
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || !validAmount(req.Price) {
		return domain.Product{}, store.ErrInvalidInput
	}

	created, err := s.repo.CreateProduct(ctx, domain.Product{
		Name:      req.Name,
		Price:     req.Price,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return domain.Product{}, err
	}

	s.invalidateCatalog(ctx)
	slog.InfoContext(ctx, "product created", "product_id", created.ID, "name", created.Name, "price", created.Price.String())
	return *created, nil
}

func (s *Service) CreateCustomer(ctx context.Context, req domain.CustomerCreateRequest) (domain.Customer, error) {
	if _, ok := ActorFromContext(ctx); !ok {
		return domain.Customer{}, ErrForbidden
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return domain.Customer{}, store.ErrInvalidInput
	}

	created, err := s.repo.CreateCustomer(ctx, domain.Customer{
		Name:      req.Name,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return domain.Customer{}, err
	}

	s.invalidateCatalog(ctx)
	slog.InfoContext(ctx, "customer created", "customer_id", created.ID, "name", created.Name)
	return *created, nil
}

func (s *Service) invalidateCatalog(ctx context.Context) {
	if err := s.catalogCache.Invalidate(ctx); err != nil {
		slog.WarnContext(ctx, "catalog cache invalidate failed", "error", err)
	}
}
