// Package cart aggregates the line items of an in-progress sale.
//
// A Cart holds at most one line per product id. Every quantity change
// recomputes the line total, so LineTotal always equals Quantity x UnitPrice.
// Cart is not safe for concurrent use; it belongs to a single draft.
package cart

import (
	"github.com/shopspring/decimal"

	"teasales/backend/internal/domain"
)

type Cart struct {
	lines []domain.CartLine
}

func New() *Cart {
	return &Cart{lines: make([]domain.CartLine, 0, 8)}
}

// FromLines rebuilds a cart from stored lines. Line totals are recomputed and
// repeated product ids collapse into the first occurrence.
func FromLines(lines []domain.CartLine) *Cart {
	c := New()
	for _, line := range lines {
		if idx := c.indexOf(line.ProductID); idx >= 0 {
			c.lines[idx].Quantity += line.Quantity
			c.lines[idx].LineTotal = lineTotal(c.lines[idx].UnitPrice, c.lines[idx].Quantity)
			continue
		}
		line.LineTotal = lineTotal(line.UnitPrice, line.Quantity)
		c.lines = append(c.lines, line)
	}
	return c
}

// AddProduct increments the quantity of the product's line by one, or appends
// a new line with quantity 1.
func (c *Cart) AddProduct(product domain.Product) {
	if idx := c.indexOf(product.ID); idx >= 0 {
		c.lines[idx].Quantity++
		c.lines[idx].LineTotal = lineTotal(c.lines[idx].UnitPrice, c.lines[idx].Quantity)
		return
	}
	c.lines = append(c.lines, domain.CartLine{
		ProductID: product.ID,
		Name:      product.Name,
		UnitPrice: product.Price,
		Quantity:  1,
		LineTotal: product.Price,
	})
}

// RemoveProduct deletes the product's line. Absent ids are a no-op.
func (c *Cart) RemoveProduct(productID string) {
	idx := c.indexOf(productID)
	if idx < 0 {
		return
	}
	c.lines = append(c.lines[:idx], c.lines[idx+1:]...)
}

// SetQuantity replaces the quantity of the product's line. Negative
// quantities are ignored and leave the cart untouched. Zero keeps the line.
func (c *Cart) SetQuantity(productID string, quantity int) {
	if quantity < 0 {
		return
	}
	idx := c.indexOf(productID)
	if idx < 0 {
		return
	}
	c.lines[idx].Quantity = quantity
	c.lines[idx].LineTotal = lineTotal(c.lines[idx].UnitPrice, quantity)
}

func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range c.lines {
		total = total.Add(line.LineTotal)
	}
	return total
}

// Lines returns a copy of the lines in insertion order.
func (c *Cart) Lines() []domain.CartLine {
	out := make([]domain.CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) Len() int {
	return len(c.lines)
}

func (c *Cart) indexOf(productID string) int {
	for i := range c.lines {
		if c.lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

func lineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}
