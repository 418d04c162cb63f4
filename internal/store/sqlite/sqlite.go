// Package sqlite provides a single-file Repository for small shops running
// without a Postgres server.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"teasales/backend/internal/domain"
	"teasales/backend/internal/store"
	"teasales/backend/internal/xid"
)

var _ store.Repository = (*Store)(nil)

type Store struct {
	db *sql.DB
}

// New opens (or creates) the database at dbPath and runs migrations.
func New(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, price, created_at FROM products ORDER BY name, id")
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 64)
	for rows.Next() {
		var p domain.Product
		var createdAt int64
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		p.CreatedAt = fromUnixNano(createdAt)
		products = append(products, p)
	}
	return products, rows.Err()
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	var createdAt int64
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, price, created_at FROM products WHERE id = ?", id,
	).Scan(&p.ID, &p.Name, &p.Price, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	p.CreatedAt = fromUnixNano(createdAt)
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

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO products (id, name, price, created_at) VALUES (?, ?, ?, ?)",
		product.ID, product.Name, product.Price.String(), product.CreatedAt.UnixNano(),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, fmt.Errorf("failed to insert product: %w", err)
	}
	created := product
	return &created, nil
}

func (s *Store) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, created_at FROM customers ORDER BY name, id")
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0, 64)
	for rows.Next() {
		var c domain.Customer
		var createdAt int64
		if err := rows.Scan(&c.ID, &c.Name, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		c.CreatedAt = fromUnixNano(createdAt)
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

func (s *Store) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	var c domain.Customer
	var createdAt int64
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, created_at FROM customers WHERE id = ?", id,
	).Scan(&c.ID, &c.Name, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	c.CreatedAt = fromUnixNano(createdAt)
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

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO customers (id, name, created_at) VALUES (?, ?, ?)",
		customer.ID, customer.Name, customer.CreatedAt.UnixNano(),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, fmt.Errorf("failed to insert customer: %w", err)
	}
	created := customer
	return &created, nil
}

func (s *Store) ListSales(ctx context.Context) ([]domain.Sale, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, customer_id, customer_name, total_amount, paid_amount, balance_added, created_by, occurred_at
		FROM sales
		ORDER BY occurred_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, 128)
	index := make(map[string]int)
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sale: %w", err)
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
		ORDER BY sale_id, position`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sale items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var saleID string
		var line domain.CartLine
		if err := itemRows.Scan(&saleID, &line.ProductID, &line.Name, &line.UnitPrice, &line.Quantity, &line.LineTotal); err != nil {
			return nil, fmt.Errorf("failed to scan sale item: %w", err)
		}
		if idx, ok := index[saleID]; ok {
			sales[idx].Items = append(sales[idx].Items, line)
		}
	}
	return sales, itemRows.Err()
}

func (s *Store) GetSale(ctx context.Context, id string) (*domain.Sale, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, customer_id, customer_name, total_amount, paid_amount, balance_added, created_by, occurred_at
		FROM sales WHERE id = ?`, id)
	sale, err := scanSale(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sale: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, name, unit_price, quantity, line_total
		FROM sale_items WHERE sale_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get sale items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line domain.CartLine
		if err := rows.Scan(&line.ProductID, &line.Name, &line.UnitPrice, &line.Quantity, &line.LineTotal); err != nil {
			return nil, fmt.Errorf("failed to scan sale item: %w", err)
		}
		sale.Items = append(sale.Items, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
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
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sales (id, customer_id, customer_name, total_amount, paid_amount, balance_added, created_by, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sale.ID, sale.CustomerID, sale.CustomerName,
		sale.TotalAmount.String(), sale.PaidAmount.String(), sale.BalanceAdded.String(),
		sale.CreatedBy, sale.OccurredAt.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert sale: %w", err)
	}

	for i, line := range sale.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO sale_items (sale_id, position, product_id, name, unit_price, quantity, line_total)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			sale.ID, i, line.ProductID, line.Name, line.UnitPrice.String(), line.Quantity, line.LineTotal.String(),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert sale item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &sale, nil
}

func (s *Store) UpdatePaidAmount(ctx context.Context, id string, paid decimal.Decimal) (*domain.Sale, error) {
	if paid.IsNegative() {
		return nil, store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, "UPDATE sales SET paid_amount = ? WHERE id = ?", paid.String(), id)
	if err != nil {
		return nil, fmt.Errorf("failed to update paid amount: %w", err)
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
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Name, user.Email, user.PasswordHash, user.Role, user.Active, user.CreatedAt.UnixNano(),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return store.ErrConflict
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.findUser(ctx, "email", strings.ToLower(strings.TrimSpace(email)))
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	return s.findUser(ctx, "id", id)
}

func (s *Store) findUser(ctx context.Context, column, value string) (*domain.User, error) {
	var user domain.User
	var createdAt int64
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, email, password_hash, role, active, created_at FROM app_users WHERE "+column+" = ?",
		value,
	).Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Role, &user.Active, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	user.CreatedAt = fromUnixNano(createdAt)
	return &user, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSale(row rowScanner) (domain.Sale, error) {
	var sale domain.Sale
	var occurredAt int64
	err := row.Scan(
		&sale.ID, &sale.CustomerID, &sale.CustomerName,
		&sale.TotalAmount, &sale.PaidAmount, &sale.BalanceAdded,
		&sale.CreatedBy, &occurredAt,
	)
	if err != nil {
		return domain.Sale{}, err
	}
	sale.OccurredAt = fromUnixNano(occurredAt)
	return sale, nil
}

func fromUnixNano(v int64) time.Time {
	return time.Unix(0, v).UTC()
}

// isConstraintViolation also covers primary key clashes, which SQLite
// reports as UNIQUE failures.
func isConstraintViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
