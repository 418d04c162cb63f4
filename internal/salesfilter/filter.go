// Package salesfilter narrows a sales history list by text and date criteria.
package salesfilter

import (
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"teasales/backend/internal/domain"
)

// Criteria are ANDed together. Empty strings and nil bounds match everything.
//
// The amount fields match when the decimal string form of the amount contains
// the text, so "10" matches 100, 10.5 and 10.
type Criteria struct {
	CustomerName string
	TotalAmount  string
	PaidAmount   string
	Balance      string
	From         *time.Time
	To           *time.Time
}

func (c Criteria) IsEmpty() bool {
	return c.CustomerName == "" && c.TotalAmount == "" && c.PaidAmount == "" &&
		c.Balance == "" && c.From == nil && c.To == nil
}

// Apply returns the records matching every criterion, in input order.
// Records are never modified and the result never shares the input's
// backing array.
func Apply(records []domain.Sale, c Criteria) []domain.Sale {
	if c.IsEmpty() {
		return slices.Clone(records)
	}

	m := newMatcher(c)
	out := make([]domain.Sale, 0, len(records))
	for _, record := range records {
		if m.match(record) {
			out = append(out, record)
		}
	}
	return out
}

// StartOfDay is 00:00:00.000 of t's calendar day in t's location.
func StartOfDay(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay is 23:59:59.999 of t's calendar day in t's location.
func EndOfDay(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 23, 59, 59, int(999*time.Millisecond), t.Location())
}

type matcher struct {
	customer string
	total    string
	paid     string
	balance  string
	from     *time.Time
	to       *time.Time
}

func newMatcher(c Criteria) matcher {
	m := matcher{
		customer: strings.ToLower(c.CustomerName),
		total:    c.TotalAmount,
		paid:     c.PaidAmount,
		balance:  c.Balance,
	}
	if c.From != nil {
		from := StartOfDay(*c.From)
		m.from = &from
	}
	if c.To != nil {
		to := EndOfDay(*c.To)
		m.to = &to
	}
	return m
}

func (m matcher) match(s domain.Sale) bool {
	if m.customer != "" && !strings.Contains(strings.ToLower(s.CustomerName), m.customer) {
		return false
	}
	if !containsAmount(s.TotalAmount, m.total) ||
		!containsAmount(s.PaidAmount, m.paid) ||
		!containsAmount(s.BalanceAdded, m.balance) {
		return false
	}

	// Sale times are compared at whole-second resolution.
	at := s.OccurredAt.Truncate(time.Second)
	if m.from != nil && at.Before(*m.from) {
		return false
	}
	if m.to != nil && at.After(*m.to) {
		return false
	}
	return true
}

func containsAmount(amount decimal.Decimal, text string) bool {
	if text == "" {
		return true
	}
	return strings.Contains(amount.String(), text)
}
