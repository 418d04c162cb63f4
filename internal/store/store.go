package store

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"teasales/backend/internal/domain"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("already exists")
)

type CatalogStore interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	ListCustomers(ctx context.Context) ([]domain.Customer, error)
	GetCustomer(ctx context.Context, id string) (*domain.Customer, error)
	CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
}

// SalesStore lists sales newest first.
type SalesStore interface {
	ListSales(ctx context.Context) ([]domain.Sale, error)
	GetSale(ctx context.Context, id string) (*domain.Sale, error)
	CreateSale(ctx context.Context, submission domain.SaleSubmission) (*domain.Sale, error)
	UpdatePaidAmount(ctx context.Context, id string, paid decimal.Decimal) (*domain.Sale, error)
}

type UserStore interface {
	CreateUser(ctx context.Context, user domain.User) error
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
}

type Repository interface {
	CatalogStore
	SalesStore
	UserStore
}
