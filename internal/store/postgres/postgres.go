package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"teasales/backend/internal/domain"
	"teasales/backend/internal/store"
	"teasales/backend/internal/xid"
)

type Store struct {
	db *sql.DB
}

var _ store.Repository = (*Store)(nil)

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(4)
	db.SetMaxOpenConns(16)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, price, created_at
		FROM products
		ORDER BY name, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 64)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.CreatedAt = p.CreatedAt.UTC()
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, price, created_at
		FROM products
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Price, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return &p, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if strings.TrimSpace(product.Name) == "" || product.Price.IsNegative() {
		return nil, store.ErrInvalidInput
	}
	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, price, created_at)
		VALUES ($1,$2,$3,$4)
	`, product.ID, product.Name, product.Price, product.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}

	created := product
	return &created, nil
}

func (s *Store) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, created_at
		FROM customers
		ORDER BY name, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0, 64)
	for rows.Next() {
		var c domain.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.CreatedAt = c.CreatedAt.UTC()
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return customers, nil
}

func (s *Store) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	var c domain.Customer
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, created_at
		FROM customers
		WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}

func (s *Store) CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	if strings.TrimSpace(customer.Name) == "" {
		return nil, store.ErrInvalidInput
	}
	if customer.ID == "" {
		customer.ID = xid.New("cust")
	}
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (id, name, created_at)
		VALUES ($1,$2,$3)
	`, customer.ID, customer.Name, customer.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}

	created := customer
	return &created, nil
}

func (s *Store) ListSales(ctx context.Context) ([]domain.Sale, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, customer_id, customer_name, total_amount, paid_amount, balance_added, created_by, occurred_at
		FROM sales
		ORDER BY occurred_at DESC, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, 128)
	index := make(map[string]int)
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		index[sale.ID] = len(sales)
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(sales) == 0 {
		return sales, nil
	}

	itemRows, err := s.db.QueryContext(ctx, `
		SELECT sale_id, product_id, name, unit_price, quantity, line_total
		FROM sale_items
		ORDER BY sale_id, position
	`)
	if err != nil {
		return nil, err
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var saleID string
		var line domain.CartLine
		if err := itemRows.Scan(&saleID, &line.ProductID, &line.Name, &line.UnitPrice, &line.Quantity, &line.LineTotal); err != nil {
			return nil, err
		}
		if idx, ok := index[saleID]; ok {
			sales[idx].Items = append(sales[idx].Items, line)
		}
	}
	if err := itemRows.Err(); err != nil {
		return nil, err
	}
	return sales, nil
}

func (s *Store) GetSale(ctx context.Context, id string) (*domain.Sale, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, customer_id, customer_name, total_amount, paid_amount, balance_added, created_by, occurred_at
		FROM sales
		WHERE id = $1
	`, id)
	sale, err := scanSale(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	items, err := s.saleItems(ctx, sale.ID)
	if err != nil {
		return nil, err
	}
	sale.Items = items
	return &sale, nil
}

func (s *Store) CreateSale(ctx context.Context, submission domain.SaleSubmission) (*domain.Sale, error) {
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
		Items:        submission.Items,
		TotalAmount:  submission.TotalAmount,
		PaidAmount:   submission.PaidAmount,
		BalanceAdded: submission.BalanceAdded,
		CreatedBy:    submission.CreatedBy,
		OccurredAt:   submission.Date.UTC(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sales (id, customer_id, customer_name, total_amount, paid_amount, balance_added, created_by, occurred_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, sale.ID, sale.CustomerID, sale.CustomerName, sale.TotalAmount, sale.PaidAmount, sale.BalanceAdded, sale.CreatedBy, sale.OccurredAt)
	if err != nil {
		return nil, fmt.Errorf("insert sale: %w", err)
	}

	for i, line := range sale.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO sale_items (sale_id, position, product_id, name, unit_price, quantity, line_total)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, sale.ID, i, line.ProductID, line.Name, line.UnitPrice, line.Quantity, line.LineTotal)
		if err != nil {
			return nil, fmt.Errorf("insert sale item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &sale, nil
}

func (s *Store) UpdatePaidAmount(ctx context.Context, id string, paid decimal.Decimal) (*domain.Sale, error) {
	if paid.IsNegative() {
		return nil, store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE sales
		SET paid_amount = $2
		WHERE id = $1
	`, id, paid)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	return s.GetSale(ctx, id)
}

func (s *Store) CreateUser(ctx context.Context, user domain.User) error {
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

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_users (id, name, email, password_hash, role, active, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, user.ID, user.Name, user.Email, user.PasswordHash, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrConflict
		}
		return err
	}
	return nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.findUser(ctx, "email", strings.ToLower(strings.TrimSpace(email)))
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	return s.findUser(ctx, "id", id)
}

func (s *Store) findUser(ctx context.Context, column string, value string) (*domain.User, error) {
	var user domain.User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, password_hash, role, active, created_at
		FROM app_users
		WHERE `+column+` = $1
	`, value).Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Role, &user.Active, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	user.CreatedAt = user.CreatedAt.UTC()
	return &user, nil
}

func (s *Store) saleItems(ctx context.Context, saleID string) ([]domain.CartLine, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, name, unit_price, quantity, line_total
		FROM sale_items
		WHERE sale_id = $1
		ORDER BY position
	`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.CartLine, 0, 8)
	for rows.Next() {
		var line domain.CartLine
		if err := rows.Scan(&line.ProductID, &line.Name, &line.UnitPrice, &line.Quantity, &line.LineTotal); err != nil {
			return nil, err
		}
		items = append(items, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSale(row rowScanner) (domain.Sale, error) {
	var sale domain.Sale
	err := row.Scan(
		&sale.ID,
		&sale.CustomerID,
		&sale.CustomerName,
		&sale.TotalAmount,
		&sale.PaidAmount,
		&sale.BalanceAdded,
		&sale.CreatedBy,
		&sale.OccurredAt,
	)
	if err != nil {
		return domain.Sale{}, err
	}
	sale.OccurredAt = sale.OccurredAt.UTC()
	return sale, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
