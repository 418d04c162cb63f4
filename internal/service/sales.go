package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"teasales/backend/internal/domain"
	"teasales/backend/internal/salesfilter"
	"teasales/backend/internal/store"
)

// ListSales returns the sales history, newest first, narrowed by criteria.
func (s *Service) ListSales(ctx context.Context, criteria salesfilter.Criteria) (domain.SaleListResponse, error) {
	sales, err := s.repo.ListSales(ctx)
	if err != nil {
		return domain.SaleListResponse{}, err
	}

	filtered := salesfilter.Apply(sales, criteria)
	if filtered == nil {
		filtered = []domain.Sale{}
	}
	return domain.SaleListResponse{Sales: filtered, Count: len(filtered)}, nil
}

// UpdatePaidAmount edits the paid amount of a saved sale. BalanceAdded keeps
// the value recorded at sale time.
func (s *Service) UpdatePaidAmount(ctx context.Context, saleID string, paid *decimal.Decimal) (domain.Sale, error) {
	saleID = strings.TrimSpace(saleID)
	if saleID == "" || paid == nil || !validAmount(*paid) {
		return domain.Sale{}, store.ErrInvalidInput
	}

	updated, err := s.repo.UpdatePaidAmount(ctx, saleID, *paid)
	if err != nil {
		return domain.Sale{}, err
	}

	slog.InfoContext(ctx, "sale paid amount updated", "sale_id", updated.ID, "paid", updated.PaidAmount.String())
	return *updated, nil
}
