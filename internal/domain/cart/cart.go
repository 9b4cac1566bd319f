package cart

import (
	"fmt"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/xenking/notions-storefront/internal/domain/product"
)

// DefaultMaxQuantity is the per-line ceiling used when none is configured.
// It matches the upper bound of the product detail quantity selector.
const DefaultMaxQuantity = 99

// InvalidQuantityError indicates an add request with a non-positive quantity.
type InvalidQuantityError struct {
	ProductID int
	Quantity  int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %d, got %d", e.ProductID, e.Quantity)
}

// LineItem is a single product in the cart. Name and Price are snapshotted
// when the product is first added.
type LineItem struct {
	ProductID int
	Name      string
	Price     decimal.Decimal
	Quantity  int
}

// Subtotal returns Price × Quantity.
func (li LineItem) Subtotal() decimal.Decimal {
	return li.Price.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Cart owns an ordered list of line items with at most one item per product
// and a quantity of at least one on every item.
type Cart struct {
	items       []LineItem
	maxQuantity int
}

// New returns a cart holding a copy of items. A maxQuantity below one falls
// back to DefaultMaxQuantity.
func New(items []LineItem, maxQuantity int) *Cart {
	if maxQuantity < 1 {
		maxQuantity = DefaultMaxQuantity
	}
	return &Cart{
		items:       slices.Clone(items),
		maxQuantity: maxQuantity,
	}
}

// AddItem increments the quantity of an existing line for p, or appends a new
// line snapshotting p's id, name and price.
func (c *Cart) AddItem(p product.Product, quantity int) error {
	if quantity < 1 {
		return &InvalidQuantityError{ProductID: p.ID, Quantity: quantity}
	}
	if i := c.index(p.ID); i >= 0 {
		c.items[i].Quantity = c.clamp(c.items[i].Quantity + quantity)
		return nil
	}
	c.items = append(c.items, LineItem{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Quantity:  c.clamp(quantity),
	})
	return nil
}

// RemoveItem drops the line for productID. It reports whether a line was removed.
func (c *Cart) RemoveItem(productID int) bool {
	i := c.index(productID)
	if i < 0 {
		return false
	}
	c.items = slices.Delete(c.items, i, i+1)
	return true
}

// UpdateQuantity sets the quantity of an existing line. A quantity of zero or
// less removes the line. It reports whether the cart changed.
func (c *Cart) UpdateQuantity(productID, quantity int) bool {
	i := c.index(productID)
	if i < 0 {
		return false
	}
	if quantity <= 0 {
		return c.RemoveItem(productID)
	}
	c.items[i].Quantity = c.clamp(quantity)
	return true
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.items = c.items[:0]
}

// Total returns Σ(price × quantity). Rounding is left to presentation.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.items {
		total = total.Add(it.Subtotal())
	}
	return total
}

// ItemCount returns Σ(quantity).
func (c *Cart) ItemCount() int {
	n := 0
	for _, it := range c.items {
		n += it.Quantity
	}
	return n
}

// Items returns a copy of the line items in insertion order.
func (c *Cart) Items() []LineItem {
	out := make([]LineItem, len(c.items))
	copy(out, c.items)
	return out
}

// Item returns the line for productID.
func (c *Cart) Item(productID int) (LineItem, bool) {
	if i := c.index(productID); i >= 0 {
		return c.items[i], true
	}
	return LineItem{}, false
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.items) == 0
}

// MaxQuantity returns the per-line ceiling.
func (c *Cart) MaxQuantity() int {
	return c.maxQuantity
}

func (c *Cart) index(productID int) int {
	for i, it := range c.items {
		if it.ProductID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) clamp(q int) int {
	return min(q, c.maxQuantity)
}
