// Package handler serves the storefront: HTML pages, the form actions behind
// every button, the header fragment endpoint and a read-only JSON API.
package handler

import (
	"html/template"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/gorilla/securecookie"

	"github.com/xenking/notions-storefront/internal/domain/cart"
	"github.com/xenking/notions-storefront/internal/domain/class"
	"github.com/xenking/notions-storefront/internal/domain/product"
	"github.com/xenking/notions-storefront/internal/form"
	"github.com/xenking/notions-storefront/internal/nav"
	"github.com/xenking/notions-storefront/internal/notify"
)

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// VisitorCookie names the cookie carrying the signed visitor id.
	VisitorCookie string
	// VisitorHashKey signs the visitor cookie. A random key is generated when
	// empty, which invalidates visitor ids on restart.
	VisitorHashKey []byte
	// SecureCookies marks cookies Secure (HTTPS only).
	SecureCookies bool
	// FeaturedProducts and FeaturedClasses limit the home page grids.
	FeaturedProducts int
	FeaturedClasses  int
}

// Handler serves every storefront route.
type Handler struct {
	products product.Repository
	classes  class.Repository
	carts    *cart.Service
	forms    *form.Handler
	toasts   *notify.Board
	menu     nav.Menu

	cfg     HandlerConfig
	cookies *securecookie.SecureCookie
	pages   map[string]*template.Template
	header  *template.Template
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	cfg HandlerConfig,
	products product.Repository,
	classes class.Repository,
	carts *cart.Service,
	forms *form.Handler,
	toasts *notify.Board,
	menu nav.Menu,
) (*Handler, error) {
	if cfg.VisitorCookie == "" {
		cfg.VisitorCookie = "notions_visitor"
	}
	if len(cfg.VisitorHashKey) == 0 {
		cfg.VisitorHashKey = securecookie.GenerateRandomKey(32)
		if cfg.VisitorHashKey == nil {
			return nil, errors.New("generate visitor cookie key")
		}
	}
	if cfg.FeaturedProducts == 0 {
		cfg.FeaturedProducts = 4
	}
	if cfg.FeaturedClasses == 0 {
		cfg.FeaturedClasses = 2
	}

	h := &Handler{
		products: products,
		classes:  classes,
		carts:    carts,
		forms:    forms,
		toasts:   toasts,
		menu:     menu,
		cfg:      cfg,
		cookies:  securecookie.New(cfg.VisitorHashKey, nil).MaxAge(int(visitorMaxAge.Seconds())),
	}
	if err := h.parseTemplates(); err != nil {
		return nil, errors.Wrap(err, "parse templates")
	}
	return h, nil
}

// Register adds every route to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	// Pages.
	mux.HandleFunc("GET /{$}", h.Home)
	mux.HandleFunc("GET /shop", h.Shop)
	mux.HandleFunc("GET /product", h.ProductDetail)
	mux.HandleFunc("GET /classes", h.Classes)
	mux.HandleFunc("GET /contact", h.Contact)
	mux.HandleFunc("GET /cart", h.Cart)

	// Actions.
	mux.HandleFunc("POST /cart/add", h.AddToCart)
	mux.HandleFunc("POST /cart/remove", h.RemoveFromCart)
	mux.HandleFunc("POST /cart/quantity", h.ChangeQuantity)
	mux.HandleFunc("POST /cart/clear", h.ClearCart)
	mux.HandleFunc("POST /cart/checkout", h.Checkout)
	mux.HandleFunc("POST /classes/register", h.RegisterClass)
	mux.HandleFunc("POST /forms/{name}", h.SubmitForm)
	mux.HandleFunc("POST /forms/{name}/input", h.FormInput)
	mux.HandleFunc("POST /newsletter", h.Newsletter)
	mux.HandleFunc("POST /toast/close", h.CloseToast)
	mux.HandleFunc("POST /nav/{event}", h.NavEvent)

	// JSON API.
	mux.HandleFunc("GET /api/products", h.APIListProducts)
	mux.HandleFunc("GET /api/products/{id}", h.APIGetProduct)
	mux.HandleFunc("GET /api/classes", h.APIListClasses)
	mux.HandleFunc("GET /api/cart", h.APIGetCart)

	mux.HandleFunc("/", h.NotFound)
}
