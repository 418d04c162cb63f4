package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"teasales/backend/internal/cart"
	"teasales/backend/internal/domain"
	"teasales/backend/internal/metrics"
	"teasales/backend/internal/store"
	"teasales/backend/internal/xid"
)

// OpenDraft starts an empty sale for the calling seller.
func (s *Service) OpenDraft(ctx context.Context) (domain.Draft, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.Draft{}, ErrForbidden
	}

	now := s.now().UTC()
	draft := domain.Draft{
		ID:          xid.New("draft"),
		OwnerID:     actor.UserID,
		Lines:       []domain.CartLine{},
		TotalAmount: decimal.Zero,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.drafts.Save(ctx, &draft, s.draftTTL); err != nil {
		return domain.Draft{}, err
	}
	return draft, nil
}

func (s *Service) GetDraft(ctx context.Context, draftID string) (domain.Draft, error) {
	draft, err := s.ownedDraft(ctx, draftID)
	if err != nil {
		return domain.Draft{}, err
	}
	return *draft, nil
}

// AddProduct adds one unit of the product, merging with an existing line.
func (s *Service) AddProduct(ctx context.Context, draftID string, productID string) (domain.Draft, error) {
	if _, err := s.ownedDraft(ctx, draftID); err != nil {
		return domain.Draft{}, err
	}

	productID = strings.TrimSpace(productID)
	if productID == "" {
		return domain.Draft{}, store.ErrInvalidInput
	}
	product, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return domain.Draft{}, err
	}

	return s.updateDraft(ctx, draftID, func(_ *domain.Draft, c *cart.Cart) {
		c.AddProduct(*product)
	})
}

func (s *Service) RemoveProduct(ctx context.Context, draftID string, productID string) (domain.Draft, error) {
	return s.updateDraft(ctx, draftID, func(_ *domain.Draft, c *cart.Cart) {
		c.RemoveProduct(productID)
	})
}

// SetQuantity sets a line's quantity. Negative quantities and unknown
// products leave the draft unchanged.
func (s *Service) SetQuantity(ctx context.Context, draftID string, productID string, quantity int) (domain.Draft, error) {
	return s.updateDraft(ctx, draftID, func(_ *domain.Draft, c *cart.Cart) {
		c.SetQuantity(productID, quantity)
	})
}

// SelectCustomer sets the draft's customer. An empty id clears it.
func (s *Service) SelectCustomer(ctx context.Context, draftID string, customerID string) (domain.Draft, error) {
	if _, err := s.ownedDraft(ctx, draftID); err != nil {
		return domain.Draft{}, err
	}

	var ref *domain.CustomerRef
	customerID = strings.TrimSpace(customerID)
	if customerID != "" {
		customer, err := s.repo.GetCustomer(ctx, customerID)
		if err != nil {
			return domain.Draft{}, err
		}
		ref = &domain.CustomerRef{ID: customer.ID, Name: customer.Name}
	}

	return s.updateDraft(ctx, draftID, func(draft *domain.Draft, _ *cart.Cart) {
		draft.Customer = ref
	})
}

func (s *Service) DiscardDraft(ctx context.Context, draftID string) error {
	draft, err := s.ownedDraft(ctx, draftID)
	if err != nil {
		return err
	}
	return s.drafts.Delete(ctx, draft.ID)
}

// SubmitDraft records the draft as a sale and removes it. BalanceAdded is
// fixed here as total minus paid. The draft is taken out of the store before
// the sale is written, so a repeated submit cannot record it twice.
func (s *Service) SubmitDraft(ctx context.Context, draftID string, paid *decimal.Decimal) (domain.Sale, error) {
	draft, err := s.ownedDraft(ctx, draftID)
	if err != nil {
		return domain.Sale{}, err
	}
	if err := checkSubmittable(draft, paid); err != nil {
		return domain.Sale{}, err
	}

	taken, found, err := s.drafts.Take(ctx, draft.ID)
	if err != nil {
		return domain.Sale{}, err
	}
	if !found {
		return domain.Sale{}, store.ErrNotFound
	}
	// An edit may have landed between the check and the take.
	if err := checkSubmittable(taken, paid); err != nil {
		s.restoreDraft(ctx, taken)
		return domain.Sale{}, err
	}

	c := cart.FromLines(taken.Lines)
	total := c.Total()
	sale, err := s.repo.CreateSale(ctx, domain.SaleSubmission{
		CustomerID:   taken.Customer.ID,
		CustomerName: taken.Customer.Name,
		Items:        c.Lines(),
		TotalAmount:  total,
		PaidAmount:   *paid,
		BalanceAdded: total.Sub(*paid),
		CreatedBy:    taken.OwnerID,
		Date:         s.now().UTC(),
	})
	if err != nil {
		s.restoreDraft(ctx, taken)
		return domain.Sale{}, err
	}

	metrics.SalesCreated.Inc()
	metrics.SalesAmount.Add(total.InexactFloat64())
	slog.InfoContext(ctx, "sale created",
		"sale_id", sale.ID,
		"customer_id", sale.CustomerID,
		"items", len(sale.Items),
		"total", sale.TotalAmount.String(),
		"paid", sale.PaidAmount.String(),
	)
	return *sale, nil
}

func checkSubmittable(draft *domain.Draft, paid *decimal.Decimal) error {
	if draft.Customer == nil || len(draft.Lines) == 0 || paid == nil {
		return ErrIncompleteSale
	}
	if !validAmount(*paid) {
		return store.ErrInvalidInput
	}
	return nil
}

func (s *Service) restoreDraft(ctx context.Context, draft *domain.Draft) {
	if err := s.drafts.Save(ctx, draft, s.draftTTL); err != nil {
		slog.WarnContext(ctx, "failed to restore draft after submit error", "draft_id", draft.ID, "error", err)
	}
}

func (s *Service) ownedDraft(ctx context.Context, draftID string) (*domain.Draft, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return nil, ErrForbidden
	}

	draftID = strings.TrimSpace(draftID)
	if draftID == "" {
		return nil, store.ErrInvalidInput
	}
	draft, found, err := s.drafts.Get(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, store.ErrNotFound
	}
	if draft.OwnerID != actor.UserID {
		return nil, ErrForbidden
	}
	return draft, nil
}

// updateDraft applies edit to the caller's draft as one store update and
// recomputes lines and total from the cart.
func (s *Service) updateDraft(ctx context.Context, draftID string, edit func(*domain.Draft, *cart.Cart)) (domain.Draft, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.Draft{}, ErrForbidden
	}
	draftID = strings.TrimSpace(draftID)
	if draftID == "" {
		return domain.Draft{}, store.ErrInvalidInput
	}

	updated, found, err := s.drafts.Update(ctx, draftID, s.draftTTL, func(draft *domain.Draft) error {
		if draft.OwnerID != actor.UserID {
			return ErrForbidden
		}
		c := cart.FromLines(draft.Lines)
		edit(draft, c)
		draft.Lines = c.Lines()
		draft.TotalAmount = c.Total()
		draft.UpdatedAt = s.now().UTC()
		return nil
	})
	if err != nil {
		return domain.Draft{}, err
	}
	if !found {
		return domain.Draft{}, store.ErrNotFound
	}
	return *updated, nil
}
