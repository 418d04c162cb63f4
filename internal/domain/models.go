package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	CreatedAt time.Time       `json:"created_at"`
}

type ProductCreateRequest struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

type Customer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type CustomerCreateRequest struct {
	Name string `json:"name"`
}

// Catalog is the reference data a sale draft draws from.
type Catalog struct {
	Products  []Product  `json:"products"`
	Customers []Customer `json:"customers"`
}

// CartLine is one product in an in-progress or saved sale.
// LineTotal is always Quantity x UnitPrice; only the cart package computes it.
type CartLine struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// Sale is a recorded sale. BalanceAdded is fixed at creation and is not
// recomputed when PaidAmount is edited later.
type Sale struct {
	ID           string          `json:"id"`
	CustomerID   string          `json:"customer_id"`
	CustomerName string          `json:"customer_name"`
	Items        []CartLine      `json:"items"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	PaidAmount   decimal.Decimal `json:"paid_amount"`
	BalanceAdded decimal.Decimal `json:"balance_added"`
	CreatedBy    string          `json:"created_by"`
	OccurredAt   time.Time       `json:"occurred_at"`
}

// SaleSubmission is the payload handed to the sales store when a draft is saved.
type SaleSubmission struct {
	CustomerID   string
	CustomerName string
	Items        []CartLine
	TotalAmount  decimal.Decimal
	PaidAmount   decimal.Decimal
	BalanceAdded decimal.Decimal
	CreatedBy    string
	Date         time.Time
}

type CustomerRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Draft is the server-held state of the create-sale screen for one seller.
type Draft struct {
	ID          string          `json:"id"`
	OwnerID     string          `json:"owner_id"`
	Customer    *CustomerRef    `json:"customer,omitempty"`
	Lines       []CartLine      `json:"lines"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type DraftAddItemRequest struct {
	ProductID string `json:"product_id"`
}

type DraftQuantityRequest struct {
	Quantity *int `json:"quantity"`
}

type DraftCustomerRequest struct {
	CustomerID string `json:"customer_id"`
}

type DraftSubmitRequest struct {
	PaidAmount *decimal.Decimal `json:"paid_amount"`
}

type DraftResponse struct {
	Draft Draft `json:"draft"`
}

type SaleResponse struct {
	Sale Sale `json:"sale"`
}

type SaleListResponse struct {
	Sales []Sale `json:"sales"`
	Count int    `json:"count"`
}

type PaidAmountUpdateRequest struct {
	PaidAmount *decimal.Decimal `json:"paid_amount"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	UserID      string `json:"user_id"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type UserResponse struct {
	User User `json:"user"`
}

type Actor struct {
	UserID string
	Role   string
}

// User is the persistence model for seller accounts.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

const (
	RoleSeller = "seller"
	RoleAdmin  = "admin"
)
