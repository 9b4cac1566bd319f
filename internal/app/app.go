package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/gorilla/csrf"
	"github.com/gorilla/securecookie"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/notions-storefront/internal/domain/cart"
	"github.com/xenking/notions-storefront/internal/form"
	"github.com/xenking/notions-storefront/internal/handler"
	"github.com/xenking/notions-storefront/internal/nav"
	"github.com/xenking/notions-storefront/internal/notify"
	"github.com/xenking/notions-storefront/pkg/health"
	"github.com/xenking/notions-storefront/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	st, err := openStores(ctx, lg, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	// Domain services.
	carts, err := cart.NewService(
		cart.NewAdapter(st.slots, cfg.Cart.SlotKey),
		cart.ServiceConfig{MaxQuantity: cfg.Cart.MaxQuantity},
		m.MeterProvider().Meter("notions/cart"),
	)
	if err != nil {
		return errors.Wrap(err, "create cart service")
	}
	carts.OnChange(func(ctx context.Context, visitorID string, c *cart.Cart) {
		zctx.From(ctx).Debug("Cart changed",
			zap.Int("lines", len(c.Items())),
			zap.Int("count", c.ItemCount()),
			zap.String("total", c.Total().StringFixed(2)),
		)
	})

	toasts := notify.NewBoard(cfg.Toast.TTL)
	defer toasts.Stop()
	forms := form.NewHandler(form.DefaultForms(), toasts, form.Config{Delay: cfg.Forms.Delay, StateTTL: cfg.Forms.StateTTL})

	// Health check service.
	healthSvc := health.New(lg.Named("health"))
	healthSvc.Add(health.Readiness, health.Check{Name: "cart-slots", Timeout: 5 * time.Second, Func: health.PingCheck(carts)})
	healthSvc.Add(health.Liveness, health.Check{Name: "goroutines", Func: health.GoroutineCountCheck(10000)})
	healthSvc.Add(health.Liveness, health.Check{Name: "gc-pause", Func: health.GCMaxPauseCheck(time.Second)})
	healthSvc.Start(ctx, 10*time.Second)
	defer healthSvc.Stop()

	// HTTP handlers.
	h, err := handler.NewHandler(
		handler.HandlerConfig{
			VisitorCookie:    cfg.Visitor.Cookie,
			VisitorHashKey:   []byte(cfg.Visitor.HashKey),
			SecureCookies:    cfg.CSRF.Secure,
			FeaturedProducts: cfg.Catalog.FeaturedProducts,
			FeaturedClasses:  cfg.Catalog.FeaturedClasses,
		},
		st.products,
		st.classes,
		carts,
		forms,
		toasts,
		nav.DefaultMenu(),
	)
	if err != nil {
		return errors.Wrap(err, "create handler")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("GET /readyz", healthSvc.ReadyEndpoint)
	h.Register(mux)
	routeFinder := httpmiddleware.MakeRouteFinder(mux)

	protect, err := csrfMiddleware(cfg.CSRF)
	if err != nil {
		return err
	}

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(http.HandlerFunc(h.ErrorPage)),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("notions-storefront", routeFinder, m.TracerProvider(), m.MeterProvider()),
			httpmiddleware.LogRequests(routeFinder),
			httpmiddleware.Labeler(routeFinder),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:     cfg.RateLimit.Max,
				Window:  cfg.RateLimit.Window,
				KeyFunc: visitorKey(cfg.Visitor.Cookie),
				Skip:    safeMethod,
			}),
			h.Visitors,
			protect,
		),
	}

	healthSvc.SetReady(true)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		healthSvc.SetReady(false)
		if ctx.Err() != nil {
			lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
			time.Sleep(cfg.Graceful.ReadinessDelay)
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown")
		}
		return nil
	})
	return g.Wait()
}

// csrfMiddleware protects every unsafe request with a double-submit token.
// Without Secure the requests are marked plaintext so the origin check
// accepts http:// referers in development.
func csrfMiddleware(cfg CSRFConfig) (httpmiddleware.Middleware, error) {
	key := []byte(cfg.Key)
	if len(key) == 0 {
		key = securecookie.GenerateRandomKey(32)
		if key == nil {
			return nil, errors.New("generate CSRF key")
		}
	}
	protect := csrf.Protect(key,
		csrf.Secure(cfg.Secure),
		csrf.Path("/"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.TrustedOrigins(cfg.TrustedOrigins),
		csrf.ErrorHandler(http.HandlerFunc(csrfFailure)),
	)
	if cfg.Secure {
		return protect, nil
	}
	return func(next http.Handler) http.Handler {
		protected := protect(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			protected.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
		})
	}, nil
}

func csrfFailure(w http.ResponseWriter, r *http.Request) {
	zctx.From(r.Context()).Warn("CSRF check failed", zap.Error(csrf.FailureReason(r)))
	http.Error(w, "Your session expired. Please go back, reload the page and try again.", http.StatusForbidden)
}

// visitorKey rate limits by visitor cookie, falling back to the client IP
// for first-time visitors.
func visitorKey(cookie string) func(*http.Request) string {
	return func(r *http.Request) string {
		if c, err := r.Cookie(cookie); err == nil && c.Value != "" {
			return "v:" + c.Value
		}
		return "ip:" + httpmiddleware.ClientIP(r)
	}
}

func safeMethod(r *http.Request) bool {
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}
