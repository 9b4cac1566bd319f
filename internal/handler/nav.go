package handler

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/notions-storefront/internal/nav"
)

// NavEvent applies one header interaction to the posted header state and
// returns the re-rendered header fragment. The state travels in the form
// (menu, scrolled, submenu) so the server keeps nothing per view.
//
// Events: toggle, outside, escape, resize (width), submenu and link (item,
// width), scroll (one or more y values, coalesced into a single frame).
func (h *Handler) NavEvent(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	st := nav.ParseState(r.PostForm, h.menu)

	width := nav.Breakpoint
	if v := r.PostForm.Get("width"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "invalid width", http.StatusBadRequest)
			return
		}
		width = n
	}

	switch event := r.PathValue("event"); event {
	case "toggle":
		st.ToggleMenu()
	case "outside":
		st.OutsideClick()
	case "escape":
		if !st.Escape() {
			w.WriteHeader(http.StatusNoContent)
			return
		}
	case "resize":
		st.Resize(width)
	case "submenu", "link":
		item, ok := h.menu.Find(r.PostForm.Get("item"))
		if !ok {
			http.Error(w, "unknown menu item", http.StatusBadRequest)
			return
		}
		if event == "submenu" {
			st.ToggleSubmenu(item, width)
		} else {
			st.LinkActivated(item, width)
		}
	case "scroll":
		throttle := nav.NewScrollThrottle(&st)
		for _, v := range r.PostForm["y"] {
			y, err := strconv.Atoi(v)
			if err != nil {
				http.Error(w, "invalid scroll offset", http.StatusBadRequest)
				return
			}
			throttle.Observe(y)
		}
		throttle.Frame()
	default:
		http.NotFound(w, r)
		return
	}

	ctx := r.Context()
	ret := r.PostForm.Get("return")
	if _, ok := localPath(ret); !ok {
		ret = "/"
	}
	view := h.headerView(r, &st, h.carts.Get(ctx, VisitorFromContext(ctx)).ItemCount(), ret)

	var buf bytes.Buffer
	if err := h.header.ExecuteTemplate(&buf, "header", view); err != nil {
		zctx.From(ctx).Error("Render header", zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
