package handler

import (
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/notions-storefront/internal/domain/cart"
	"github.com/xenking/notions-storefront/internal/domain/class"
	"github.com/xenking/notions-storefront/internal/domain/product"
)

// APIListProducts returns the catalog, optionally filtered by ?category=.
func (h *Handler) APIListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.ListByCategory(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		h.apiError(w, r, errors.Wrap(err, "list products"))
		return
	}
	var e jx.Encoder
	e.ArrStart()
	for _, p := range products {
		encodeProduct(&e, p)
	}
	e.ArrEnd()
	writeJSON(w, http.StatusOK, &e)
}

// APIGetProduct returns a single product by ID.
func (h *Handler) APIGetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	p, err := h.products.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			writeJSONError(w, http.StatusNotFound, "product not found")
			return
		}
		h.apiError(w, r, errors.Wrap(err, "get product"))
		return
	}
	var e jx.Encoder
	encodeProduct(&e, *p)
	writeJSON(w, http.StatusOK, &e)
}

// APIListClasses returns the class schedule.
func (h *Handler) APIListClasses(w http.ResponseWriter, r *http.Request) {
	classes, err := h.classes.List(r.Context())
	if err != nil {
		h.apiError(w, r, errors.Wrap(err, "list classes"))
		return
	}
	var e jx.Encoder
	e.ArrStart()
	for _, o := range classes {
		encodeClass(&e, o)
	}
	e.ArrEnd()
	writeJSON(w, http.StatusOK, &e)
}

// APIGetCart returns the visitor's cart with derived totals.
func (h *Handler) APIGetCart(w http.ResponseWriter, r *http.Request) {
	c := h.carts.Get(r.Context(), VisitorFromContext(r.Context()))
	var e jx.Encoder
	encodeCart(&e, c)
	writeJSON(w, http.StatusOK, &e)
}

func encodeProduct(e *jx.Encoder, p product.Product) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Int(p.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(p.Name) })
		e.Field("price", func(e *jx.Encoder) { e.RawStr(p.Price.StringFixed(2)) })
		e.Field("category", func(e *jx.Encoder) { e.Str(p.Category) })
		e.Field("description", func(e *jx.Encoder) { e.Str(p.Description) })
		if p.HasBadge() {
			e.Field("badge", func(e *jx.Encoder) { e.Str(p.Badge) })
		}
	})
}

func encodeClass(e *jx.Encoder, o class.Offering) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Int(o.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(o.Name) })
		e.Field("cost", func(e *jx.Encoder) { e.RawStr(o.Cost.StringFixed(2)) })
		e.Field("free", func(e *jx.Encoder) { e.Bool(o.IsFree()) })
		e.Field("dates", func(e *jx.Encoder) {
			e.ArrStart()
			for _, d := range o.Dates {
				e.Str(d)
			}
			e.ArrEnd()
		})
		e.Field("sessions", func(e *jx.Encoder) { e.Int(o.Sessions) })
		e.Field("description", func(e *jx.Encoder) { e.Str(o.Description) })
		if o.Link != "" {
			e.Field("link", func(e *jx.Encoder) { e.Str(o.Link) })
		}
	})
}

func encodeCart(e *jx.Encoder, c *cart.Cart) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("items", func(e *jx.Encoder) {
			e.ArrStart()
			for _, it := range c.Items() {
				e.Obj(func(e *jx.Encoder) {
					e.Field("id", func(e *jx.Encoder) { e.Int(it.ProductID) })
					e.Field("name", func(e *jx.Encoder) { e.Str(it.Name) })
					e.Field("price", func(e *jx.Encoder) { e.RawStr(it.Price.StringFixed(2)) })
					e.Field("quantity", func(e *jx.Encoder) { e.Int(it.Quantity) })
					e.Field("subtotal", func(e *jx.Encoder) { e.RawStr(it.Subtotal().StringFixed(2)) })
				})
			}
			e.ArrEnd()
		})
		e.Field("count", func(e *jx.Encoder) { e.Int(c.ItemCount()) })
		e.Field("total", func(e *jx.Encoder) { e.RawStr(c.Total().StringFixed(2)) })
	})
}

func (h *Handler) apiError(w http.ResponseWriter, r *http.Request, err error) {
	zctx.From(r.Context()).Error("API error", zap.Error(err))
	writeJSONError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("code", func(e *jx.Encoder) { e.Int(status) })
		e.Field("message", func(e *jx.Encoder) { e.Str(msg) })
	})
	writeJSON(w, status, &e)
}
