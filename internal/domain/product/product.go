package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// CategoryAll is the category filter that matches every product.
const CategoryAll = "all"

// Product represents a catalog item available for purchase.
type Product struct {
	ID          int
	Name        string
	Price       decimal.Decimal
	Category    string
	Description string
	// Badge is an optional label such as "New" or "Sale". Empty means none.
	Badge string
}

// HasBadge reports whether the product carries a display badge.
func (p Product) HasBadge() bool {
	return p.Badge != ""
}

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id int) (*Product, error)
	ListByCategory(ctx context.Context, category string) ([]Product, error)
}

// MatchesCategory reports whether p passes the category filter. An empty
// filter or CategoryAll matches everything.
func MatchesCategory(p Product, category string) bool {
	if category == "" || category == CategoryAll {
		return true
	}
	return p.Category == category
}

// FilterByCategory returns the products passing the category filter, keeping
// their original order.
func FilterByCategory(products []Product, category string) []Product {
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if MatchesCategory(p, category) {
			out = append(out, p)
		}
	}
	return out
}
