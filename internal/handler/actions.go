package handler

import (
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/notions-storefront/internal/catalog"
	"github.com/xenking/notions-storefront/internal/domain/cart"
	"github.com/xenking/notions-storefront/internal/domain/class"
	"github.com/xenking/notions-storefront/internal/domain/product"
	"github.com/xenking/notions-storefront/internal/form"
	"github.com/xenking/notions-storefront/internal/notify"
)

// Toast texts for cart actions.
const (
	msgItemRemoved     = "Item removed from cart"
	msgCartCleared     = "Cart cleared"
	msgCartEmpty       = "Your cart is empty"
	msgCheckoutSoon    = "Checkout coming soon! Thank you for shopping with us."
	msgProductNotFound = "Sorry, that product is no longer available"
	msgClassNotFound   = "Sorry, that class is no longer available"
	msgInvalidQuantity = "Please choose a quantity of at least 1"
	msgStillSending    = "Your form is still being sent"
	msgCartUnavailable = "Sorry, we couldn't update your cart. Please try again."
)

func (h *Handler) notify(r *http.Request, n notify.Notification) {
	h.toasts.Notify(r.Context(), VisitorFromContext(r.Context()), n)
}

func formInt(r *http.Request, key string, def int) (int, error) {
	v := r.PostFormValue(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Wrapf(err, "parse %s", key)
	}
	return n, nil
}

// AddToCart adds product_id with an optional quantity (default 1).
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := formInt(r, "product_id", 0)
	if err != nil {
		http.Error(w, "invalid product id", http.StatusBadRequest)
		return
	}
	qty, err := formInt(r, "quantity", 1)
	if err != nil {
		http.Error(w, "invalid quantity", http.StatusBadRequest)
		return
	}

	p, err := h.products.GetByID(ctx, id)
	switch {
	case errors.Is(err, product.ErrNotFound):
		h.notify(r, notify.Error(msgProductNotFound))
		redirectBack(w, r)
		return
	case err != nil:
		h.serverError(w, r, errors.Wrap(err, "get product"))
		return
	}

	_, added, err := h.carts.AddItem(ctx, VisitorFromContext(ctx), *p, qty)
	var iqErr *cart.InvalidQuantityError
	switch {
	case errors.As(err, &iqErr):
		h.notify(r, notify.Error(msgInvalidQuantity))
	case errors.Is(err, cart.ErrUnavailable):
		h.notify(r, notify.Error(msgCartUnavailable))
	case err != nil:
		h.serverError(w, r, errors.Wrap(err, "add item"))
		return
	case added == 0:
		h.notify(r, notify.Info(catalog.LimitMessage(p.Name, h.carts.MaxQuantity())))
	default:
		h.notify(r, notify.Success(catalog.AddedMessage(p.Name, added)))
	}
	redirectBack(w, r)
}

// RemoveFromCart drops product_id from the cart.
func (h *Handler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	id, err := formInt(r, "product_id", 0)
	if err != nil {
		http.Error(w, "invalid product id", http.StatusBadRequest)
		return
	}
	h.carts.RemoveItem(r.Context(), VisitorFromContext(r.Context()), id)
	h.notify(r, notify.Info(msgItemRemoved))
	redirectBack(w, r)
}

// ChangeQuantity handles the +/- buttons (op=increase|decrease) and direct
// quantity input (quantity=N, zero removes the line).
func (h *Handler) ChangeQuantity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	visitorID := VisitorFromContext(ctx)
	id, err := formInt(r, "product_id", 0)
	if err != nil {
		http.Error(w, "invalid product id", http.StatusBadRequest)
		return
	}

	switch op := r.PostFormValue("op"); op {
	case "increase":
		h.carts.Increase(ctx, visitorID, id)
	case "decrease":
		h.carts.Decrease(ctx, visitorID, id)
	case "", "set":
		qty, err := formInt(r, "quantity", -1)
		if err != nil || qty < 0 {
			http.Error(w, "invalid quantity", http.StatusBadRequest)
			return
		}
		h.carts.UpdateQuantity(ctx, visitorID, id, qty)
	default:
		http.Error(w, "unknown operation", http.StatusBadRequest)
		return
	}
	redirectBack(w, r)
}

// ClearCart empties the cart.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	h.carts.Clear(r.Context(), VisitorFromContext(r.Context()))
	h.notify(r, notify.Info(msgCartCleared))
	redirectBack(w, r)
}

// Checkout is a placeholder: it never changes the cart.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	_, err := h.carts.Checkout(r.Context(), VisitorFromContext(r.Context()))
	switch {
	case errors.Is(err, cart.ErrEmptyCart):
		h.notify(r, notify.Error(msgCartEmpty))
	case err != nil:
		h.serverError(w, r, errors.Wrap(err, "checkout"))
		return
	default:
		h.notify(r, notify.Info(msgCheckoutSoon))
	}
	redirectBack(w, r)
}

// RegisterClass handles the "Register Now" button on a class card. There is
// no registration backend, only the confirmation toast.
func (h *Handler) RegisterClass(w http.ResponseWriter, r *http.Request) {
	id, err := formInt(r, "class_id", 0)
	if err != nil {
		http.Error(w, "invalid class id", http.StatusBadRequest)
		return
	}
	o, err := h.classes.GetByID(r.Context(), id)
	switch {
	case errors.Is(err, class.ErrNotFound):
		h.notify(r, notify.Error(msgClassNotFound))
	case err != nil:
		h.serverError(w, r, errors.Wrap(err, "get class"))
		return
	default:
		zctx.From(r.Context()).Info("Class register clicked",
			zap.Int("class_id", o.ID),
			zap.String("date", r.PostFormValue("date")),
		)
		h.notify(r, notify.Success(catalog.RegisteredMessage(o.Name)))
	}
	redirectBack(w, r)
}

// SubmitForm validates and submits one of the registered forms. The form
// page shows the outcome after the redirect.
func (h *Handler) SubmitForm(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	_, err := h.forms.Submit(r.Context(), VisitorFromContext(r.Context()), name, r.PostForm)
	var verr *form.ValidationError
	switch {
	case err == nil, errors.As(err, &verr):
	case errors.Is(err, form.ErrUnknownForm):
		h.NotFound(w, r)
		return
	case errors.Is(err, form.ErrBusy):
		h.notify(r, notify.Info(msgStillSending))
	case r.Context().Err() != nil:
		// Visitor went away during the simulated send.
		return
	default:
		h.serverError(w, r, errors.Wrap(err, "submit form"))
		return
	}
	redirectBack(w, r)
}

// FormInput clears the annotation of an edited field.
func (h *Handler) FormInput(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if _, ok := h.forms.Lookup(name); !ok {
		http.NotFound(w, r)
		return
	}
	h.forms.ClearError(VisitorFromContext(r.Context()), name, r.PostFormValue("field"))
	w.WriteHeader(http.StatusNoContent)
}

// Newsletter handles the inline footer signup.
func (h *Handler) Newsletter(w http.ResponseWriter, r *http.Request) {
	_, err := h.forms.SubscribeInline(r.Context(), VisitorFromContext(r.Context()), r.PostFormValue("email"))
	var verr *form.ValidationError
	if err != nil && !errors.As(err, &verr) {
		h.serverError(w, r, errors.Wrap(err, "subscribe"))
		return
	}
	redirectBack(w, r)
}

// CloseToast dismisses the visitor's toast before its timer fires.
func (h *Handler) CloseToast(w http.ResponseWriter, r *http.Request) {
	h.toasts.Close(VisitorFromContext(r.Context()))
	redirectBack(w, r)
}
