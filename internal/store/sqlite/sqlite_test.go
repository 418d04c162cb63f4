package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"teasales/backend/internal/domain"
	"teasales/backend/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "data", "teasales.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStoreCatalog(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	t.Run("CreateProduct keeps decimal price", func(t *testing.T) {
		created, err := s.CreateProduct(ctx, domain.Product{Name: "Assam CTC 250g", Price: decimal.RequireFromString("120.50")})
		if err != nil {
			t.Fatalf("CreateProduct failed: %v", err)
		}
		got, err := s.GetProduct(ctx, created.ID)
		if err != nil {
			t.Fatalf("GetProduct failed: %v", err)
		}
		if !got.Price.Equal(decimal.RequireFromString("120.5")) {
			t.Fatalf("expected price 120.5, got %s", got.Price)
		}
	})

	t.Run("duplicate product id is a conflict", func(t *testing.T) {
		p := domain.Product{ID: "prod-fixed", Name: "Green Tea", Price: decimal.NewFromInt(95)}
		if _, err := s.CreateProduct(ctx, p); err != nil {
			t.Fatalf("first insert failed: %v", err)
		}
		if _, err := s.CreateProduct(ctx, p); !errors.Is(err, store.ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}
	})

	t.Run("customers are listed by name", func(t *testing.T) {
		for _, name := range []string{"Ravi Tea Stall", "Amit Sharma"} {
			if _, err := s.CreateCustomer(ctx, domain.Customer{Name: name}); err != nil {
				t.Fatalf("CreateCustomer failed: %v", err)
			}
		}
		customers, err := s.ListCustomers(ctx)
		if err != nil {
			t.Fatalf("ListCustomers failed: %v", err)
		}
		if len(customers) != 2 || customers[0].Name != "Amit Sharma" {
			t.Fatalf("unexpected customers: %+v", customers)
		}
	})

	t.Run("missing customer", func(t *testing.T) {
		if _, err := s.GetCustomer(ctx, "nope"); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestSQLiteStoreSales(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	line := domain.CartLine{
		ProductID: "prod-assam",
		Name:      "Assam",
		UnitPrice: decimal.NewFromInt(50),
		Quantity:  2,
		LineTotal: decimal.NewFromInt(100),
	}
	older, err := s.CreateSale(ctx, domain.SaleSubmission{
		CustomerID:   "cust-amit",
		CustomerName: "Amit",
		Items:        []domain.CartLine{line},
		TotalAmount:  decimal.NewFromInt(100),
		PaidAmount:   decimal.NewFromInt(100),
		BalanceAdded: decimal.Zero,
		CreatedBy:    "user-seller",
		Date:         time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("CreateSale failed: %v", err)
	}
	newer, err := s.CreateSale(ctx, domain.SaleSubmission{
		CustomerID:   "cust-amita",
		CustomerName: "Amita",
		Items:        []domain.CartLine{line, {ProductID: "prod-green", Name: "Green", UnitPrice: decimal.NewFromInt(150), Quantity: 1, LineTotal: decimal.NewFromInt(150)}},
		TotalAmount:  decimal.NewFromInt(250),
		PaidAmount:   decimal.NewFromInt(100),
		BalanceAdded: decimal.NewFromInt(150),
		CreatedBy:    "user-seller",
		Date:         time.Date(2024, 1, 10, 18, 30, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("CreateSale failed: %v", err)
	}

	sales, err := s.ListSales(ctx)
	if err != nil {
		t.Fatalf("ListSales failed: %v", err)
	}
	if len(sales) != 2 {
		t.Fatalf("expected 2 sales, got %d", len(sales))
	}
	if sales[0].ID != newer.ID || sales[1].ID != older.ID {
		t.Fatalf("expected newest first, got %s then %s", sales[0].ID, sales[1].ID)
	}
	if len(sales[0].Items) != 2 || sales[0].Items[1].ProductID != "prod-green" {
		t.Fatalf("items not loaded in order: %+v", sales[0].Items)
	}
	if !sales[0].OccurredAt.Equal(time.Date(2024, 1, 10, 18, 30, 0, 0, time.UTC)) {
		t.Fatalf("unexpected occurred_at %v", sales[0].OccurredAt)
	}

	updated, err := s.UpdatePaidAmount(ctx, newer.ID, decimal.NewFromInt(250))
	if err != nil {
		t.Fatalf("UpdatePaidAmount failed: %v", err)
	}
	if !updated.PaidAmount.Equal(decimal.NewFromInt(250)) {
		t.Fatalf("expected paid 250, got %s", updated.PaidAmount)
	}
	if !updated.BalanceAdded.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("balance_added must stay 150, got %s", updated.BalanceAdded)
	}

	if _, err := s.UpdatePaidAmount(ctx, "missing", decimal.Zero); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.UpdatePaidAmount(ctx, newer.ID, decimal.NewFromInt(-1)); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSQLiteStoreUsers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := domain.User{Name: "Seller", Email: " Seller@Shop.Local ", PasswordHash: "$2a$10$hash", Active: true}
	if err := s.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if err := s.CreateUser(ctx, user); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	got, err := s.GetUserByEmail(ctx, "seller@shop.local")
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}
	if got.Role != domain.RoleSeller || !got.Active {
		t.Fatalf("unexpected user %+v", got)
	}
	byID, err := s.GetUserByID(ctx, got.ID)
	if err != nil || byID.Email != "seller@shop.local" {
		t.Fatalf("GetUserByID = %+v, %v", byID, err)
	}
}
