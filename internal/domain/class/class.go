// Package class describes the workshops and social hours offered in store.
package class

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested class does not exist.
var ErrNotFound = errors.New("class not found")

// Offering is a scheduled class. A zero cost means the class is free.
type Offering struct {
	ID          int
	Name        string
	Cost        decimal.Decimal
	Dates       []string
	Sessions    int
	Description string
	// Link is an optional external registration page.
	Link string
}

// IsFree reports whether the class costs nothing.
func (o Offering) IsFree() bool {
	return o.Cost.IsZero()
}

// HasDateChoice reports whether the visitor picks one of several dates.
func (o Offering) HasDateChoice() bool {
	return len(o.Dates) > 1
}

// FirstDate returns the earliest listed date, or "" when none is scheduled.
func (o Offering) FirstDate() string {
	if len(o.Dates) == 0 {
		return ""
	}
	return o.Dates[0]
}

// Repository defines read operations for the class schedule.
type Repository interface {
	List(ctx context.Context) ([]Offering, error)
	GetByID(ctx context.Context, id int) (*Offering, error)
}
