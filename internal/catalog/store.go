// Package catalog holds the shop's product and class listings and projects
// them into display cards.
package catalog

import (
	"context"
	"slices"

	"github.com/xenking/notions-storefront/internal/domain/class"
	"github.com/xenking/notions-storefront/internal/domain/product"
)

var (
	_ product.Repository = (*Store)(nil)
	_ class.Repository   = classView{}
)

// Store is an immutable in-memory catalog seeded once at startup.
type Store struct {
	products []product.Product
	classes  []class.Offering
}

// NewStore returns a Store holding the given listings.
func NewStore(products []product.Product, classes []class.Offering) *Store {
	return &Store{
		products: slices.Clone(products),
		classes:  slices.Clone(classes),
	}
}

// NewStaticStore returns a Store seeded with the built-in listings.
func NewStaticStore() *Store {
	return NewStore(Products(), Classes())
}

// List returns every product.
func (s *Store) List(context.Context) ([]product.Product, error) {
	return slices.Clone(s.products), nil
}

// GetByID returns a single product.
func (s *Store) GetByID(_ context.Context, id int) (*product.Product, error) {
	for _, p := range s.products {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, product.ErrNotFound
}

// ListByCategory returns products in category; "" and "all" list everything.
func (s *Store) ListByCategory(_ context.Context, category string) ([]product.Product, error) {
	return product.FilterByCategory(s.products, category), nil
}

// Classes exposes the class side of the store as a class.Repository.
func (s *Store) Classes() class.Repository {
	return classView{s}
}

// classView adapts Store to class.Repository, whose method names collide
// with the product side.
type classView struct{ s *Store }

func (v classView) List(context.Context) ([]class.Offering, error) {
	out := make([]class.Offering, len(v.s.classes))
	for i, o := range v.s.classes {
		o.Dates = slices.Clone(o.Dates)
		out[i] = o
	}
	return out, nil
}

func (v classView) GetByID(_ context.Context, id int) (*class.Offering, error) {
	for _, o := range v.s.classes {
		if o.ID == id {
			o.Dates = slices.Clone(o.Dates)
			return &o, nil
		}
	}
	return nil, class.ErrNotFound
}
