package handler

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"

	"github.com/xenking/notions-storefront/internal/catalog"
	"github.com/xenking/notions-storefront/internal/domain/cart"
	"github.com/xenking/notions-storefront/internal/form"
	"github.com/xenking/notions-storefront/internal/nav"
	"github.com/xenking/notions-storefront/internal/notify"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{
	"home", "shop", "product", "classes", "contact", "cart", "notfound", "error",
}

// cardContext hands a product or class card to its template together with
// the page's CSRF field and return path.
type cardContext struct {
	Card   any
	CSRF   template.HTML
	Return string
}

var templateFuncs = template.FuncMap{
	"cardData": func(card any, p *page) cardContext {
		return cardContext{Card: card, CSRF: p.CSRF, Return: p.Return}
	},
}

func (h *Handler) parseTemplates() error {
	shared := []string{
		"templates/layout.html",
		"templates/header.html",
		"templates/form.html",
		"templates/cards.html",
	}

	h.pages = make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		files := append(shared[:len(shared):len(shared)], "templates/"+name+".html")
		t, err := template.New(name).Funcs(templateFuncs).ParseFS(templateFS, files...)
		if err != nil {
			return errors.Wrapf(err, "page %s", name)
		}
		h.pages[name] = t
	}

	header, err := template.New("fragment").ParseFS(templateFS, "templates/header.html")
	if err != nil {
		return errors.Wrap(err, "header")
	}
	h.header = header
	return nil
}

// page is the data every full page renders.
type page struct {
	Title  string
	Header headerView
	CSRF   template.HTML
	Return string
	Toast  *notify.Notification
	Data   any
}

type headerView struct {
	Items     []menuItemView
	MenuOpen  bool
	Scrolled  bool
	CartCount int
	CSRF      template.HTML
	Return    string
}

type menuItemView struct {
	nav.Item
	Open bool
}

func (h *Handler) headerView(r *http.Request, st *nav.State, cartCount int, ret string) headerView {
	items := make([]menuItemView, len(h.menu))
	for i, it := range h.menu {
		items[i] = menuItemView{Item: it, Open: st.SubmenuOpen(it.Label)}
	}
	return headerView{
		Items:     items,
		MenuOpen:  st.MenuOpen,
		Scrolled:  st.Scrolled,
		CartCount: cartCount,
		CSRF:      csrf.TemplateField(r),
		Return:    ret,
	}
}

type cartView struct {
	Lines       []cartLineView
	Count       int
	Total       string
	Empty       bool
	MaxQuantity int
}

type cartLineView struct {
	ProductID int
	Name      string
	Price     string
	Quantity  int
	Subtotal  string
	AtMax     bool
	DetailURL string
}

func newCartView(c *cart.Cart) cartView {
	items := c.Items()
	v := cartView{
		Lines:       make([]cartLineView, len(items)),
		Count:       c.ItemCount(),
		Total:       catalog.FormatPrice(c.Total()),
		Empty:       c.IsEmpty(),
		MaxQuantity: c.MaxQuantity(),
	}
	for i, it := range items {
		v.Lines[i] = cartLineView{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     catalog.FormatPrice(it.Price),
			Quantity:  it.Quantity,
			Subtotal:  catalog.FormatPrice(it.Subtotal()),
			AtMax:     it.Quantity >= c.MaxQuantity(),
			DetailURL: catalog.DetailURL(it.ProductID),
		}
	}
	return v
}

type formView struct {
	Form   form.Form
	Fields []fieldView
	Action string
	Busy   bool
	Saved  string
	CSRF   template.HTML
	Return string
}

type fieldView struct {
	form.Field
	Value string
	Error string
}

func (h *Handler) formView(r *http.Request, name string) (formView, bool) {
	visitorID := VisitorFromContext(r.Context())
	f, ok := h.forms.Lookup(name)
	if !ok {
		return formView{}, false
	}
	st := h.forms.State(visitorID, name)
	v := formView{
		Form:   f,
		Fields: make([]fieldView, len(f.Fields)),
		Action: "/forms/" + url.PathEscape(name),
		Busy:   h.forms.Busy(visitorID, name),
		Saved:  st.Success,
		CSRF:   csrf.TemplateField(r),
		Return: r.URL.RequestURI(),
	}
	for i, fl := range f.Fields {
		v.Fields[i] = fieldView{
			Field: fl,
			Value: st.Values.Get(fl.Name),
			Error: st.Errors[fl.Name],
		}
	}
	return v, true
}

// render writes a full page. The visitor's toast and cart badge are filled in
// here so every page shows them.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	ctx := r.Context()
	visitorID := VisitorFromContext(ctx)

	var st nav.State
	ret := r.URL.RequestURI()
	p := &page{
		Title:  title,
		Header: h.headerView(r, &st, h.carts.Get(ctx, visitorID).ItemCount(), ret),
		CSRF:   csrf.TemplateField(r),
		Return: ret,
		Data:   data,
	}
	if n, ok := h.toasts.Current(visitorID); ok {
		p.Toast = &n
	}

	var buf bytes.Buffer
	if err := h.pages[name].ExecuteTemplate(&buf, "layout", p); err != nil {
		zctx.From(ctx).Error("Render page", zap.String("page", name), zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// serverError logs err and renders the error page. Storage details never
// reach the visitor.
func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, err error) {
	zctx.From(r.Context()).Error("Internal error", zap.Error(err))
	h.render(w, r, http.StatusInternalServerError, "error", "Something went wrong", nil)
}

// ErrorPage renders the generic error page; it backs the panic recovery.
func (h *Handler) ErrorPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusInternalServerError, "error", "Something went wrong", nil)
}

// redirectBack sends the visitor to the page the action was posted from: the
// "return" form value, then the Referer, then home. Only local paths are
// followed.
func redirectBack(w http.ResponseWriter, r *http.Request) {
	target := "/"
	for _, candidate := range []string{r.PostFormValue("return"), r.Referer()} {
		if p, ok := localPath(candidate); ok {
			target = p
			break
		}
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func localPath(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Path == "" || !strings.HasPrefix(u.Path, "/") || strings.HasPrefix(u.Path, "//") {
		return "", false
	}
	if u.RawQuery != "" {
		return u.Path + "?" + u.RawQuery, true
	}
	return u.Path, true
}
