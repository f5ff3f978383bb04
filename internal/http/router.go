package http

import (
	"net/http"
	"time"

	"github.com/fjod/go_shop/internal/metrics"
	"github.com/fjod/go_shop/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter mounts the full API surface. Login and the catalog are
// public; cart, checkout and orders require a session.
func NewRouter(
	auth *AuthHandler,
	products *ProductHandler,
	cart *CartHandler,
	checkout *CheckoutHandler,
	orders *OrdersHandler,
	sessions *service.AuthService,
	requestTimeout time.Duration,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.Compress(5))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Handle("/metrics", metrics.Handler())

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", auth.Login)

		r.Get("/products", products.ListProducts)
		r.Get("/products/{product_id}", products.GetProduct)

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(sessions))

			r.Post("/auth/logout", auth.Logout)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cart.GetCart)
				r.Delete("/", cart.ClearCart)
				r.Post("/items", cart.AddItem)
				r.Put("/items/{product_id}", cart.UpdateQuantity)
				r.Delete("/items/{product_id}", cart.RemoveItem)
				r.Get("/total", cart.GetTotal)
				r.Post("/discount", cart.ApplyDiscount)
			})

			r.Post("/checkout", checkout.Checkout)

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", orders.ListOrders)
				r.Get("/{order_id}", orders.GetOrder)
				r.Post("/{order_id}/cancel", orders.CancelOrder)
				r.Post("/{order_id}/ship", orders.ShipOrder)
				r.Post("/{order_id}/deliver", orders.DeliverOrder)
			})
		})
	})

	return r
}
