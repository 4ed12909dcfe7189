package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gearvn/storefront/internal/service"
	"github.com/gearvn/storefront/pkg/health"
	"github.com/gearvn/storefront/pkg/middleware"
)

const serviceName = "storefront"

// Services bundles the services the router dispatches to.
type Services struct {
	Cart     *service.CartService
	Checkout *service.CheckoutService
	Search   *service.SearchService
	Session  *service.SessionService

	// Limiter throttles each session on /api/v1. Nil disables it.
	Limiter *middleware.RateLimiter
}

// NewRouter creates a chi router with all storefront routes registered.
func NewRouter(
	svc Services,
	healthHandler *health.Handler,
	cors middleware.CORSConfig,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(serviceName))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(cors))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	cartHandler := NewCartHandler(svc.Cart, logger)
	checkoutHandler := NewCheckoutHandler(svc.Checkout, svc.Session, logger)
	searchHandler := NewSearchHandler(svc.Search, logger)
	sessionHandler := NewSessionHandler(svc.Session, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(middleware.Session())
		if svc.Limiter != nil {
			r.Use(svc.Limiter.Middleware(logger))
		}
		r.Use(middleware.NoStore)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)

			r.Post("/items", cartHandler.AddItem)
			r.Put("/items/{productId}", cartHandler.UpdateItemQuantity)
			r.Delete("/items/{productId}", cartHandler.RemoveItem)
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/", checkoutHandler.View)
			r.Post("/discount", checkoutHandler.ApplyDiscount)
			r.Delete("/discount", checkoutHandler.ClearDiscount)
			r.Post("/submit", checkoutHandler.Submit)
		})

		r.Route("/search", func(r chi.Router) {
			r.Get("/suggest", searchHandler.Suggest)
			r.Post("/select", searchHandler.Select)
			r.Post("/submit", searchHandler.Submit)
		})
		r.Get("/products", searchHandler.ListProducts)

		r.Put("/session/token", sessionHandler.SetToken)
		r.Delete("/session/token", sessionHandler.ClearToken)
	})

	return r
}
