package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"html"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/gorilla/securecookie"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/xenking/notions-storefront/internal/catalog"
	"github.com/xenking/notions-storefront/internal/domain/cart"
	"github.com/xenking/notions-storefront/internal/domain/product"
	"github.com/xenking/notions-storefront/internal/form"
	"github.com/xenking/notions-storefront/internal/nav"
	"github.com/xenking/notions-storefront/internal/notify"
	"github.com/xenking/notions-storefront/internal/storage/memory"
)

// --- Mock implementations ---

type failingProductRepo struct {
	err error
}

func (m *failingProductRepo) List(context.Context) ([]product.Product, error) {
	return nil, m.err
}

func (m *failingProductRepo) GetByID(context.Context, int) (*product.Product, error) {
	return nil, m.err
}

func (m *failingProductRepo) ListByCategory(context.Context, string) ([]product.Product, error) {
	return nil, m.err
}

type unreadableSlots struct {
	cart.SlotStore
}

func (unreadableSlots) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("connection reset by peer")
}

// --- Helpers ---

const testVisitor = "0d5e2f1c-6b8a-4c3e-9f1d-2a7b8c9d0e1f"

type testEnv struct {
	h      *Handler
	mux    *http.ServeMux
	carts  *cart.Service
	toasts *notify.Board
	forms  *form.Handler
}

func newTestEnv(t *testing.T, products product.Repository) *testEnv {
	t.Helper()
	return newTestEnvWithSlots(t, products, memory.NewSlotStore())
}

func newTestEnvWithSlots(t *testing.T, products product.Repository, slots cart.SlotStore) *testEnv {
	t.Helper()

	store := catalog.NewStaticStore()
	if products == nil {
		products = store
	}
	carts, err := cart.NewService(
		cart.NewAdapter(slots, ""),
		cart.ServiceConfig{MaxQuantity: 5},
		noop.NewMeterProvider().Meter("test"),
	)
	require.NoError(t, err)

	toasts := notify.NewBoard(time.Minute)
	t.Cleanup(toasts.Stop)
	forms := form.NewHandler(form.DefaultForms(), toasts, form.Config{Delay: -1})

	h, err := NewHandler(HandlerConfig{}, products, store.Classes(), carts, forms, toasts, nav.DefaultMenu())
	require.NoError(t, err)

	mux := http.NewServeMux()
	h.Register(mux)
	return &testEnv{h: h, mux: mux, carts: carts, toasts: toasts, forms: forms}
}

func (e *testEnv) do(t *testing.T, method, target string, values url.Values) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if values != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(values.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req = req.WithContext(WithVisitor(req.Context(), testVisitor))
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) toast(t *testing.T) notify.Notification {
	t.Helper()
	n, ok := e.toasts.Current(testVisitor)
	require.True(t, ok, "expected a toast")
	return n
}

func (e *testEnv) cart() *cart.Cart {
	return e.carts.Get(context.Background(), testVisitor)
}

// --- Pages ---

func TestPages_Render(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name   string
		target string
		want   []string
	}{
		{"home", "/", []string{"Featured Products", "Floral Scrapbook Paper Pack", "Porch Leaner Workshop"}},
		{"shop", "/shop", []string{"All Products", "Porch Leaner Blank - 4ft", "$89.99"}},
		{"shop filtered", "/shop?category=paper", []string{"Cardstock Variety Pack"}},
		{"product", "/product?id=8", []string{"Die Cut Machine - Starter", `max="5"`, "Best Seller"}},
		{"classes", "/classes", []string{"Cards for Kids", "Free", "01/24/26 - 1 session", "Register Now"}},
		{"contact", "/contact", []string{`id="form-contact"`, `id="form-special-order"`, `id="form-newsletter"`}},
		{"cart", "/cart", []string{"Your cart is empty", "Continue Shopping"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, tt.target, nil)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
			body := rec.Body.String()
			for _, s := range tt.want {
				assert.Contains(t, body, s)
			}
		})
	}
}

func TestPages_HomeLimitsFeatured(t *testing.T) {
	env := newTestEnv(t, nil)
	body := env.do(t, http.MethodGet, "/", nil).Body.String()

	assert.Equal(t, 4, strings.Count(body, `class="product-card"`))
	assert.Equal(t, 2, strings.Count(body, `class="class-card"`))
}

func TestPages_ShopFilterExcludesOtherCategories(t *testing.T) {
	env := newTestEnv(t, nil)
	body := env.do(t, http.MethodGet, "/shop?category=tools", nil).Body.String()

	assert.Equal(t, 2, strings.Count(body, `class="product-card"`))
	assert.NotContains(t, body, "Cardstock Variety Pack")
}

func TestPages_NotFound(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, target := range []string{"/nope", "/product?id=999", "/product?id=abc"} {
		rec := env.do(t, http.MethodGet, target, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, target)
		assert.Contains(t, rec.Body.String(), "Page Not Found", target)
	}
}

func TestPages_StorageErrorRendersErrorPage(t *testing.T) {
	env := newTestEnv(t, &failingProductRepo{err: errors.New("connection refused")})

	rec := env.do(t, http.MethodGet, "/shop", nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Something went wrong")
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

// --- Cart actions ---

func TestAddToCart(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/cart/add", url.Values{
		"product_id": {"1"},
		"return":     {"/shop?category=paper"},
	})

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/shop?category=paper", rec.Header().Get("Location"))
	assert.Equal(t, 1, env.cart().ItemCount())
	assert.Equal(t, notify.Success("Floral Scrapbook Paper Pack added to cart!"), env.toast(t))
}

func TestAddToCart_WithQuantity(t *testing.T) {
	env := newTestEnv(t, nil)

	env.do(t, http.MethodPost, "/cart/add", url.Values{"product_id": {"2"}, "quantity": {"3"}})

	assert.Equal(t, 3, env.cart().ItemCount())
	assert.Equal(t, "3 × Craft Scissors Set added to cart!", env.toast(t).Message)
	assert.Equal(t, "37.00", env.cart().Total().StringFixed(2))
}

func TestAddToCart_ClampsToMaxQuantity(t *testing.T) {
	env := newTestEnv(t, nil)

	env.do(t, http.MethodPost, "/cart/add", url.Values{"product_id": {"2"}, "quantity": {"4"}})
	env.do(t, http.MethodPost, "/cart/add", url.Values{"product_id": {"2"}, "quantity": {"4"}})

	assert.Equal(t, 5, env.cart().ItemCount())
	assert.Equal(t, "Craft Scissors Set added to cart!", env.toast(t).Message)

	env.do(t, http.MethodPost, "/cart/add", url.Values{"product_id": {"2"}})

	assert.Equal(t, 5, env.cart().ItemCount())
	assert.Equal(t,
		notify.Info("You already have the maximum of 5 × Craft Scissors Set in your cart"),
		env.toast(t),
	)
}

func TestAddToCart_Errors(t *testing.T) {
	t.Run("unknown product", func(t *testing.T) {
		env := newTestEnv(t, nil)
		rec := env.do(t, http.MethodPost, "/cart/add", url.Values{"product_id": {"999"}})

		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.True(t, env.cart().IsEmpty())
		assert.Equal(t, notify.KindError, env.toast(t).Kind)
	})
	t.Run("zero quantity", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.do(t, http.MethodPost, "/cart/add", url.Values{"product_id": {"1"}, "quantity": {"0"}})

		assert.True(t, env.cart().IsEmpty())
		assert.Equal(t, notify.Error(msgInvalidQuantity), env.toast(t))
	})
	t.Run("malformed id", func(t *testing.T) {
		env := newTestEnv(t, nil)
		rec := env.do(t, http.MethodPost, "/cart/add", url.Values{"product_id": {"x"}})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
	t.Run("storage unreadable", func(t *testing.T) {
		slots := memory.NewSlotStore()
		env := newTestEnvWithSlots(t, nil, unreadableSlots{SlotStore: slots})
		rec := env.do(t, http.MethodPost, "/cart/add", url.Values{"product_id": {"1"}})

		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, notify.Error(msgCartUnavailable), env.toast(t))
		_, err := slots.Get(context.Background(), cart.NewAdapter(slots, "").Key(testVisitor))
		assert.ErrorIs(t, err, cart.ErrSlotNotFound)
	})
}

func TestChangeQuantity(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodPost, "/cart/add", url.Values{"product_id": {"3"}})

	env.do(t, http.MethodPost, "/cart/quantity", url.Values{"product_id": {"3"}, "op": {"increase"}})
	assert.Equal(t, 2, env.cart().ItemCount())

	env.do(t, http.MethodPost, "/cart/quantity", url.Values{"product_id": {"3"}, "quantity": {"4"}})
	assert.Equal(t, 4, env.cart().ItemCount())

	env.do(t, http.MethodPost, "/cart/quantity", url.Values{"product_id": {"3"}, "quantity": {"0"}})
	assert.True(t, env.cart().IsEmpty())

	rec := env.do(t, http.MethodPost, "/cart/quantity", url.Values{"product_id": {"3"}, "op": {"double"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChangeQuantity_DecreaseAtOneRemoves(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodPost, "/cart/add", url.Values{"product_id": {"3"}})

	env.do(t, http.MethodPost, "/cart/quantity", url.Values{"product_id": {"3"}, "op": {"decrease"}})

	assert.True(t, env.cart().IsEmpty())
}

func TestRemoveAndClear(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodPost, "/cart/add", url.Values{"product_id": {"1"}})
	env.do(t, http.MethodPost, "/cart/add", url.Values{"product_id": {"2"}})

	env.do(t, http.MethodPost, "/cart/remove", url.Values{"product_id": {"1"}})
	assert.Equal(t, 1, env.cart().ItemCount())
	assert.Equal(t, notify.Info(msgItemRemoved), env.toast(t))

	env.do(t, http.MethodPost, "/cart/clear", url.Values{})
	assert.True(t, env.cart().IsEmpty())
	assert.Equal(t, notify.Info(msgCartCleared), env.toast(t))
}

func TestCheckout(t *testing.T) {
	env := newTestEnv(t, nil)

	env.do(t, http.MethodPost, "/cart/checkout", url.Values{})
	assert.Equal(t, notify.Error("Your cart is empty"), env.toast(t))

	env.do(t, http.MethodPost, "/cart/add", url.Values{"product_id": {"1"}})
	env.do(t, http.MethodPost, "/cart/checkout", url.Values{})
	assert.Equal(t, notify.Info("Checkout coming soon! Thank you for shopping with us."), env.toast(t))
	assert.Equal(t, 1, env.cart().ItemCount(), "checkout leaves the cart untouched")
}

func TestCartPage_ShowsLinesAndTotals(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodPost, "/cart/add", url.Values{"product_id": {"1"}, "quantity": {"2"}})
	env.do(t, http.MethodPost, "/cart/add", url.Values{"product_id": {"12"}})

	body := env.do(t, http.MethodGet, "/cart", nil).Body.String()

	assert.Contains(t, body, "$25.98")
	assert.Contains(t, body, "$50.98")
	assert.Contains(t, body, `<span class="cart-count">3</span>`)
	assert.NotContains(t, body, "Continue Shopping")
}

func TestRender_ToastAndCartBadge(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodPost, "/cart/add", url.Values{"product_id": {"5"}})

	body := env.do(t, http.MethodGet, "/shop", nil).Body.String()

	assert.Contains(t, body, `class="toast toast-success"`)
	assert.Contains(t, body, "Diamond Art Kit - Sunflower added to cart!")

	env.do(t, http.MethodPost, "/toast/close", url.Values{})
	body = env.do(t, http.MethodGet, "/shop", nil).Body.String()
	assert.NotContains(t, body, `class="toast`)
}

func TestRedirectBack(t *testing.T) {
	tests := []struct {
		name    string
		ret     string
		referer string
		want    string
	}{
		{"return value", "/classes", "", "/classes"},
		{"referer fallback", "", "http://shop.example/cart?x=1", "/cart?x=1"},
		{"external return ignored", "https://evil.example/", "", "/"},
		{"protocol relative ignored", "//evil.example/x", "", "/"},
		{"nothing", "", "", "/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(url.Values{"return": {tt.ret}}.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			if tt.referer != "" {
				req.Header.Set("Referer", tt.referer)
			}
			rec := httptest.NewRecorder()
			redirectBack(rec, req)
			assert.Equal(t, http.StatusSeeOther, rec.Code)
			assert.Equal(t, tt.want, rec.Header().Get("Location"))
		})
	}
}

// --- Classes and forms ---

func TestRegisterClass(t *testing.T) {
	env := newTestEnv(t, nil)

	env.do(t, http.MethodPost, "/classes/register", url.Values{"class_id": {"3"}, "date": {"02/07/26"}})

	assert.Equal(t,
		notify.Success(`Registration for "Monthly Scrapbooking Workshop" submitted! We'll contact you shortly.`),
		env.toast(t),
	)
}

func TestSubmitForm_ValidationRoundTrip(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/forms/contact", url.Values{
		"name":    {""},
		"email":   {"not-an-email"},
		"message": {"short"},
		"return":  {"/contact"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, notify.Error(form.MsgFixErrors), env.toast(t))

	body := env.do(t, http.MethodGet, "/contact", nil).Body.String()
	assert.Contains(t, body, form.MsgRequired)
	assert.Contains(t, body, form.MsgInvalidEmail)
	assert.Contains(t, body, "Must be at least 10 characters")
	assert.Contains(t, body, `value="not-an-email"`)

	// The annotations are shown once.
	body = env.do(t, http.MethodGet, "/contact", nil).Body.String()
	assert.NotContains(t, body, form.MsgInvalidEmail)
}

func TestSubmitForm_Success(t *testing.T) {
	env := newTestEnv(t, nil)

	env.do(t, http.MethodPost, "/forms/register", url.Values{
		form.ClassNameField: {"Cards for Kids"},
		"name":              {"Ada"},
		"email":             {"ada@example.com"},
		"phone":             {"(555) 123-4567"},
	})
	assert.Equal(t, notify.Success("Registration successful!"), env.toast(t))

	body := env.do(t, http.MethodGet, "/classes", nil).Body.String()
	assert.Contains(t, body, html.EscapeString("You've been registered for Cards for Kids!"))
}

func TestSubmitForm_UnknownForm(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodPost, "/forms/nope", url.Values{})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFormInput_ClearsFieldError(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodPost, "/forms/newsletter", url.Values{"email": {"bad"}})

	rec := env.do(t, http.MethodPost, "/forms/newsletter/input", url.Values{"field": {"email"}})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	body := env.do(t, http.MethodGet, "/contact", nil).Body.String()
	assert.NotContains(t, body, form.MsgInvalidEmail)
	assert.Contains(t, body, `value="bad"`)
}

func TestClassesPage_PreselectsClass(t *testing.T) {
	env := newTestEnv(t, nil)
	body := env.do(t, http.MethodGet, "/classes?class=Cards+for+Kids", nil).Body.String()
	assert.Contains(t, body, `name="class-name" value="Cards for Kids"`)
}

func TestNewsletter(t *testing.T) {
	env := newTestEnv(t, nil)

	env.do(t, http.MethodPost, "/newsletter", url.Values{"email": {"not-an-email"}})
	assert.Equal(t, notify.Error(form.MsgInvalidEmail), env.toast(t))

	env.do(t, http.MethodPost, "/newsletter", url.Values{"email": {"a@b.com"}})
	assert.Equal(t, notify.Success(form.MsgInlineSubscribed), env.toast(t))
}

// --- Navigation ---

func TestNavEvent(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name     string
		event    string
		form     url.Values
		wantCode int
		contains []string
		excludes []string
	}{
		{
			name:     "toggle opens menu",
			event:    "toggle",
			form:     url.Values{},
			wantCode: http.StatusOK,
			contains: []string{`aria-expanded="true"`, `class="nav-menu active"`},
		},
		{
			name:     "outside click closes",
			event:    "outside",
			form:     url.Values{"menu": {"open"}},
			wantCode: http.StatusOK,
			contains: []string{`aria-expanded="false"`},
		},
		{
			name:     "escape on closed menu is a no-op",
			event:    "escape",
			form:     url.Values{},
			wantCode: http.StatusNoContent,
		},
		{
			name:     "mobile submenu toggle",
			event:    "submenu",
			form:     url.Values{"menu": {"open"}, "item": {"Shop"}, "width": {"400"}},
			wantCode: http.StatusOK,
			contains: []string{"submenu-open", `name="submenu" value="Shop"`},
		},
		{
			name:     "desktop resize collapses",
			event:    "resize",
			form:     url.Values{"menu": {"open"}, "submenu": {"Shop"}, "width": {"1024"}},
			wantCode: http.StatusOK,
			excludes: []string{"submenu-open", `class="nav-menu active"`},
		},
		{
			name:     "scroll coalesces to last offset",
			event:    "scroll",
			form:     url.Values{"y": {"50", "200", "5"}},
			wantCode: http.StatusOK,
			excludes: []string{"site-header scrolled"},
		},
		{
			name:     "scroll past threshold",
			event:    "scroll",
			form:     url.Values{"y": {"11"}},
			wantCode: http.StatusOK,
			contains: []string{"site-header scrolled"},
		},
		{
			name:     "unknown item",
			event:    "link",
			form:     url.Values{"item": {"Blog"}},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "unknown event",
			event:    "hover",
			form:     url.Values{},
			wantCode: http.StatusNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/nav/"+tt.event, tt.form)
			require.Equal(t, tt.wantCode, rec.Code)
			body := rec.Body.String()
			for _, s := range tt.contains {
				assert.Contains(t, body, s)
			}
			for _, s := range tt.excludes {
				assert.NotContains(t, body, s)
			}
		})
	}
}

// --- JSON API ---

func TestAPI_ListProducts(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/api/products?category=tools", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var names []string
	d := jx.DecodeBytes(rec.Body.Bytes())
	require.NoError(t, d.Arr(func(d *jx.Decoder) error {
		return d.Obj(func(d *jx.Decoder, key string) error {
			if key != "name" {
				return d.Skip()
			}
			s, err := d.Str()
			names = append(names, s)
			return err
		})
	}))
	assert.Equal(t, []string{"Craft Scissors Set", "Die Cut Machine - Starter"}, names)
}

func TestAPI_GetProduct(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/api/products/2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `"price":18.50`)
	assert.NotContains(t, body, `"badge"`)

	rec = env.do(t, http.MethodGet, "/api/products/999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"code":404,"message":"product not found"}`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/products/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_Classes(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/api/classes", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, jx.Valid(rec.Body.Bytes()))
	assert.Contains(t, rec.Body.String(), `"free":true`)
}

func TestAPI_Cart(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodPost, "/cart/add", url.Values{"product_id": {"1"}, "quantity": {"2"}})

	rec := env.do(t, http.MethodGet, "/api/cart", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"items": [{"id":1,"name":"Floral Scrapbook Paper Pack","price":12.99,"quantity":2,"subtotal":25.98}],
		"count": 2,
		"total": 25.98
	}`, rec.Body.String())
}

func TestAPI_StorageError(t *testing.T) {
	env := newTestEnv(t, &failingProductRepo{err: errors.New("boom")})

	rec := env.do(t, http.MethodGet, "/api/products", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"code":500,"message":"internal error"}`, rec.Body.String())
}

// --- Visitors ---

func TestVisitors_IssuesAndReusesCookie(t *testing.T) {
	env := newTestEnv(t, nil)

	var seen []string
	h := env.h.Visitors(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, VisitorFromContext(r.Context()))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "notions_visitor", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Result().Cookies(), "valid cookie is not reissued")

	require.Len(t, seen, 2)
	assert.NotEmpty(t, seen[0])
	assert.Equal(t, seen[0], seen[1])
}

func TestVisitors_RejectsTamperedCookie(t *testing.T) {
	env := newTestEnv(t, nil)

	var seen string
	h := env.h.Visitors(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = VisitorFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "notions_visitor", Value: testVisitor})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.NotEqual(t, testVisitor, seen)
	assert.Len(t, rec.Result().Cookies(), 1)
}

// signedVisitorAt builds a visitor cookie value signed as of issued, in the
// securecookie "name|date|value|mac" layout.
func signedVisitorAt(t *testing.T, hashKey []byte, name, id string, issued time.Time) string {
	t.Helper()
	raw, err := securecookie.GobEncoder{}.Serialize(id)
	require.NoError(t, err)

	payload := fmt.Sprintf("%s|%d|%s|", name, issued.UTC().Unix(), base64.URLEncoding.EncodeToString(raw))
	mac := hmac.New(sha256.New, hashKey)
	_, _ = mac.Write([]byte(payload[:len(payload)-1]))
	b := append([]byte(payload), mac.Sum(nil)...)[len(name)+1:]
	return base64.URLEncoding.EncodeToString(b)
}

func TestVisitors_KeepsIdForCookieLifetime(t *testing.T) {
	env := newTestEnv(t, nil)
	id := "5b8f3a8e-2c1d-4f6a-9e7b-0a1b2c3d4e5f"

	tests := []struct {
		name    string
		age     time.Duration
		wantOld bool
	}{
		{"fresh", time.Hour, true},
		{"older than a month", 45 * 24 * time.Hour, true},
		{"near a year", 360 * 24 * time.Hour, true},
		{"past cookie lifetime", visitorMaxAge + 24*time.Hour, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			h := env.h.Visitors(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = VisitorFromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.AddCookie(&http.Cookie{
				Name:  "notions_visitor",
				Value: signedVisitorAt(t, env.h.cfg.VisitorHashKey, "notions_visitor", id, time.Now().Add(-tt.age)),
			})
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if tt.wantOld {
				assert.Equal(t, id, seen)
				assert.Empty(t, rec.Result().Cookies())
				return
			}
			assert.NotEqual(t, id, seen)
			assert.Len(t, rec.Result().Cookies(), 1)
		})
	}
}
