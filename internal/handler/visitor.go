package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const visitorMaxAge = 365 * 24 * time.Hour

type visitorKey struct{}

// VisitorFromContext returns the visitor id assigned by Visitors.
func VisitorFromContext(ctx context.Context) string {
	id, _ := ctx.Value(visitorKey{}).(string)
	return id
}

// WithVisitor stores a visitor id in ctx.
func WithVisitor(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, visitorKey{}, id)
}

// Visitors identifies the browser with a signed random id cookie, issuing a
// new one when the cookie is missing or fails verification. The id selects
// the visitor's cart slot and toast.
func (h *Handler) Visitors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := h.readVisitor(r)
		if !ok {
			id = uuid.NewString()
			if err := h.writeVisitor(w, id); err != nil {
				zctx.From(r.Context()).Warn("Issue visitor cookie", zap.Error(err))
			}
		}
		ctx := WithVisitor(r.Context(), id)
		ctx = zctx.With(ctx, zap.String("visitor_id", id))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) readVisitor(r *http.Request) (string, bool) {
	c, err := r.Cookie(h.cfg.VisitorCookie)
	if err != nil {
		return "", false
	}
	var id string
	if err := h.cookies.Decode(h.cfg.VisitorCookie, c.Value, &id); err != nil {
		return "", false
	}
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}

func (h *Handler) writeVisitor(w http.ResponseWriter, id string) error {
	encoded, err := h.cookies.Encode(h.cfg.VisitorCookie, id)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.VisitorCookie,
		Value:    encoded,
		Path:     "/",
		MaxAge:   int(visitorMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}
