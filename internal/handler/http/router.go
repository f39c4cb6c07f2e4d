package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/middleware"
)

// RouterConfig carries the HTTP settings the router needs.
type RouterConfig struct {
	ServiceName   string
	SessionTTL    time.Duration
	SecureCookies bool
	// CatalogMaxAge is the public cache lifetime of catalog responses, in seconds.
	CatalogMaxAge int
	CORSOrigins   []string
	PprofCIDRs    []string
}

// NewRouter creates a chi router with all storefront routes registered.
// checkoutLimit guards order completion and may be nil.
func NewRouter(
	h *Handler,
	healthHandler *health.Handler,
	checkoutLimit *middleware.RateLimiter,
	cfg RouterConfig,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(cfg.ServiceName))
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSOrigins)))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Pprof debug endpoints with IP allowlist.
	middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)

	// Catalog documents are shared by every shopper.
	r.Route("/api/v1/catalog", func(r chi.Router) {
		r.Use(middleware.RequestLogger(logger))
		r.Use(middleware.CacheControl(cfg.CatalogMaxAge))

		r.Get("/search", h.SearchCatalog)
		r.Get("/{name}", h.GetCatalog)
		r.Get("/{name}/products", h.ListProducts)
	})

	dispatcher := NewDispatcher(h)
	dispatcher.Wire()

	// Everything below is bound to the shopper's session.
	r.Group(func(r chi.Router) {
		r.Use(Session(cfg.SessionTTL, cfg.SecureCookies))
		r.Use(middleware.RequestLogger(logger))
		r.Use(middleware.NoStore)

		r.Route("/api/v1/cart", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Delete("/", h.ClearCart)

			r.Post("/items", h.AddToCart)
			r.Put("/items/{itemID}", h.UpdateCartItem)
			r.Delete("/items/{itemID}", h.RemoveCartItem)
			r.Post("/items/{itemID}/increment", h.IncrementCartItem)
			r.Post("/items/{itemID}/decrement", h.DecrementCartItem)
		})

		r.Route("/api/v1/wishlist", func(r chi.Router) {
			r.Get("/", h.GetWishlist)
			r.Delete("/", h.ClearWishlist)

			r.Post("/items", h.AddToWishlist)
			r.Post("/toggle", h.ToggleWishlist)
			r.Delete("/items/{itemID}", h.RemoveWishlistItem)
			r.Post("/items/{itemID}/move-to-cart", h.MoveWishlistItemToCart)
		})

		r.Route("/api/v1/checkout", func(r chi.Router) {
			r.Get("/", h.GetCheckout)
			r.Post("/", h.BeginCheckout)
			r.Post("/shipping", h.EstimateShipping)
			r.Get("/confirmation", h.GetConfirmation)

			r.Group(func(r chi.Router) {
				if checkoutLimit != nil {
					r.Use(checkoutLimit.Middleware)
				}
				r.Post("/complete", h.CompleteCheckout)
			})
		})

		r.Get("/api/v1/notifications", h.DrainNotifications)

		r.Route("/fragments", func(r chi.Router) {
			r.Get("/toasts", h.ToastsFragment)
			r.Get("/catalog/{name}", h.ProductsFragment)
			r.Get("/catalog/{name}/subcategories", h.SubcategoriesFragment)
			r.Get("/{store}", h.StoreFragment)
		})

		r.Method(http.MethodPost, "/actions", dispatcher)
	})

	return r
}
