package handler

import (
	"net/http"
	"strconv"

	"github.com/go-faster/errors"

	"github.com/xenking/notions-storefront/internal/catalog"
	"github.com/xenking/notions-storefront/internal/domain/product"
	"github.com/xenking/notions-storefront/internal/form"
)

// Categories offered by the shop filter, in display order.
var shopCategories = []struct{ Value, Label string }{
	{product.CategoryAll, "All Products"},
	{"paper", "Paper"},
	{"tools", "Tools"},
	{"stamps", "Stamps"},
	{"embellishments", "Embellishments"},
	{"diamond-art", "Diamond Art"},
	{"kits", "Kits"},
	{"adhesives", "Adhesives"},
	{"inks", "Inks"},
	{"wood", "Wood"},
}

type homeData struct {
	Products []catalog.ProductCard
	Classes  []catalog.ClassCard
}

// Home renders the landing page with featured products and classes.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	products, err := h.products.List(ctx)
	if err != nil {
		h.serverError(w, r, errors.Wrap(err, "list products"))
		return
	}
	classes, err := h.classes.List(ctx)
	if err != nil {
		h.serverError(w, r, errors.Wrap(err, "list classes"))
		return
	}
	h.render(w, r, http.StatusOK, "home", "Nina's Notions", homeData{
		Products: catalog.RenderProducts(products, h.cfg.FeaturedProducts),
		Classes:  catalog.RenderClasses(classes, h.cfg.FeaturedClasses),
	})
}

type categoryView struct {
	Value, Label string
	Active       bool
}

type shopData struct {
	Category   string
	Categories []categoryView
	Products   []catalog.ProductCard
}

// Shop renders the product grid filtered by the category query parameter.
func (h *Handler) Shop(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	if category == "" {
		category = product.CategoryAll
	}
	products, err := h.products.ListByCategory(r.Context(), category)
	if err != nil {
		h.serverError(w, r, errors.Wrap(err, "list products by category"))
		return
	}

	data := shopData{
		Category: category,
		Products: catalog.RenderProducts(products, 0),
	}
	for _, c := range shopCategories {
		data.Categories = append(data.Categories, categoryView{
			Value:  c.Value,
			Label:  c.Label,
			Active: c.Value == category,
		})
	}
	h.render(w, r, http.StatusOK, "shop", "Shop", data)
}

// ProductDetail renders a single product with its quantity selector.
func (h *Handler) ProductDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.URL.Query().Get("id"))
	if err != nil {
		h.NotFound(w, r)
		return
	}
	p, err := h.products.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			h.NotFound(w, r)
			return
		}
		h.serverError(w, r, errors.Wrap(err, "get product"))
		return
	}
	h.render(w, r, http.StatusOK, "product", p.Name, catalog.NewProductDetail(*p, h.carts.MaxQuantity()))
}

type classesData struct {
	Classes  []catalog.ClassCard
	Register formView
}

// Classes renders the class schedule and the registration form. ?class=
// preselects the class the form registers for.
func (h *Handler) Classes(w http.ResponseWriter, r *http.Request) {
	classes, err := h.classes.List(r.Context())
	if err != nil {
		h.serverError(w, r, errors.Wrap(err, "list classes"))
		return
	}
	register, _ := h.formView(r, "register")
	if name := r.URL.Query().Get("class"); name != "" {
		for i, f := range register.Fields {
			if f.Name == form.ClassNameField && f.Value == "" {
				register.Fields[i].Value = name
			}
		}
	}
	h.render(w, r, http.StatusOK, "classes", "Classes & Workshops", classesData{
		Classes:  catalog.RenderClasses(classes, 0),
		Register: register,
	})
}

type contactData struct {
	Forms []formView
}

// Contact renders the contact, special order and newsletter forms.
func (h *Handler) Contact(w http.ResponseWriter, r *http.Request) {
	var data contactData
	for _, name := range []string{"contact", "special-order", "newsletter"} {
		if v, ok := h.formView(r, name); ok {
			data.Forms = append(data.Forms, v)
		}
	}
	h.render(w, r, http.StatusOK, "contact", "Contact Us", data)
}

// Cart renders the visitor's cart.
func (h *Handler) Cart(w http.ResponseWriter, r *http.Request) {
	c := h.carts.Get(r.Context(), VisitorFromContext(r.Context()))
	h.render(w, r, http.StatusOK, "cart", "Your Cart", newCartView(c))
}

// NotFound renders the 404 page.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusNotFound, "notfound", "Page Not Found", nil)
}
