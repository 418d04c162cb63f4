package memory

import (
	"cmp"
	"context"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"teasales/backend/internal/domain"
	"teasales/backend/internal/store"
	"teasales/backend/internal/xid"
)

type Store struct {
	mu          sync.RWMutex
	products    map[string]domain.Product
	customers   map[string]domain.Customer
	sales       []domain.Sale
	salesByID   map[string]int
	usersByID   map[string]domain.User
	userByEmail map[string]string
}

var _ store.Repository = (*Store)(nil)

func New() *Store {
	return &Store{
		products:    make(map[string]domain.Product),
		customers:   make(map[string]domain.Customer),
		sales:       make([]domain.Sale, 0, 64),
		salesByID:   make(map[string]int),
		usersByID:   make(map[string]domain.User),
		userByEmail: make(map[string]string),
	}
}

// NewSeeded returns a store with a demo tea catalog and two accounts.
// Passwords come from SEED_ADMIN_PASSWORD and SEED_SELLER_PASSWORD, falling
// back to dev defaults with a warning.
func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()

	for _, p := range []struct{ id, name, price string }{
		{"prod-assam-250", "Assam CTC 250g", "120"},
		{"prod-assam-1k", "Assam CTC 1kg", "440"},
		{"prod-darjeeling-ff", "Darjeeling First Flush 100g", "480"},
		{"prod-nilgiri", "Nilgiri Frost 250g", "210"},
		{"prod-green-100", "Green Tea 100g", "95.50"},
		{"prod-masala", "Masala Chai Blend 200g", "150"},
		{"prod-dust", "Premium Dust 500g", "165"},
	} {
		s.products[p.id] = domain.Product{ID: p.id, Name: p.name, Price: decimal.RequireFromString(p.price), CreatedAt: now}
	}
	for _, c := range []struct{ id, name string }{
		{"cust-amit", "Amit Sharma"},
		{"cust-amita", "Amita Das"},
		{"cust-hotel-sagar", "Hotel Sagar"},
		{"cust-ravi-stall", "Ravi Tea Stall"},
	} {
		s.customers[c.id] = domain.Customer{ID: c.id, Name: c.name, CreatedAt: now}
	}

	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	sellerPwd := envOr("SEED_SELLER_PASSWORD", "seller123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_SELLER_PASSWORD") == "" {
		slog.Warn("memory store using default dev credentials; set SEED_ADMIN_PASSWORD and SEED_SELLER_PASSWORD to override")
	}
	for _, u := range []struct{ id, name, email, password, role string }{
		{"user-admin", "Admin", "admin@teasales.local", adminPwd, domain.RoleAdmin},
		{"user-seller", "Seller", "seller@teasales.local", sellerPwd, domain.RoleSeller},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			slog.Error("failed to hash seed password", "email", u.email, "error", err)
			os.Exit(1)
		}
		s.usersByID[u.id] = domain.User{
			ID:           u.id,
			Name:         u.name,
			Email:        u.email,
			PasswordHash: string(hash),
			Role:         u.role,
			Active:       true,
			CreatedAt:    now,
		}
		s.userByEmail[u.email] = u.id
	}

	return s
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, p)
	}
	slices.SortFunc(products, func(a, b domain.Product) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	return products, nil
}

func (s *Store) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &product, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if strings.TrimSpace(product.Name) == "" || product.Price.IsNegative() {
		return nil, store.ErrInvalidInput
	}
	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[product.ID]; exists {
		return nil, store.ErrConflict
	}
	s.products[product.ID] = product
	created := product
	return &created, nil
}

func (s *Store) ListCustomers(_ context.Context) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customers := make([]domain.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		customers = append(customers, c)
	}
	slices.SortFunc(customers, func(a, b domain.Customer) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	return customers, nil
}

func (s *Store) GetCustomer(_ context.Context, id string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customer, ok := s.customers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &customer, nil
}

func (s *Store) CreateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	if strings.TrimSpace(customer.Name) == "" {
		return nil, store.ErrInvalidInput
	}
	if customer.ID == "" {
		customer.ID = xid.New("cust")
	}
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.customers[customer.ID]; exists {
		return nil, store.ErrConflict
	}
	s.customers[customer.ID] = customer
	created := customer
	return &created, nil
}

func (s *Store) ListSales(_ context.Context) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sales := make([]domain.Sale, 0, len(s.sales))
	for i := len(s.sales) - 1; i >= 0; i-- {
		sales = append(sales, cloneSale(s.sales[i]))
	}
	slices.SortStableFunc(sales, func(a, b domain.Sale) int {
		return b.OccurredAt.Compare(a.OccurredAt)
	})
	return sales, nil
}

func (s *Store) GetSale(_ context.Context, id string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.salesByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	sale := cloneSale(s.sales[idx])
	return &sale, nil
}

func (s *Store) CreateSale(_ context.Context, submission domain.SaleSubmission) (*domain.Sale, error) {
	if submission.CustomerID == "" || len(submission.Items) == 0 {
		return nil, store.ErrInvalidInput
	}
	if submission.Date.IsZero() {
		submission.Date = time.Now().UTC()
	}

	sale := domain.Sale{
		ID:           xid.New("sale"),
		CustomerID:   submission.CustomerID,
		CustomerName: submission.CustomerName,
		Items:        slices.Clone(submission.Items),
		TotalAmount:  submission.TotalAmount,
		PaidAmount:   submission.PaidAmount,
		BalanceAdded: submission.BalanceAdded,
		CreatedBy:    submission.CreatedBy,
		OccurredAt:   submission.Date,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.salesByID[sale.ID] = len(s.sales)
	s.sales = append(s.sales, sale)
	created := cloneSale(sale)
	return &created, nil
}

func (s *Store) UpdatePaidAmount(_ context.Context, id string, paid decimal.Decimal) (*domain.Sale, error) {
	if paid.IsNegative() {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.salesByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	s.sales[idx].PaidAmount = paid
	updated := cloneSale(s.sales[idx])
	return &updated, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if user.Email == "" || user.PasswordHash == "" {
		return store.ErrInvalidInput
	}
	if user.ID == "" {
		user.ID = xid.New("user")
	}
	if user.Role == "" {
		user.Role = domain.RoleSeller
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.userByEmail[user.Email]; exists {
		return store.ErrConflict
	}
	if _, exists := s.usersByID[user.ID]; exists {
		return store.ErrConflict
	}
	s.usersByID[user.ID] = user
	s.userByEmail[user.Email] = user.ID
	return nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.userByEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, store.ErrNotFound
	}
	user := s.usersByID[id]
	return &user, nil
}

func (s *Store) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.usersByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &user, nil
}

func cloneSale(src domain.Sale) domain.Sale {
	dst := src
	dst.Items = slices.Clone(src.Items)
	return dst
}
