package http

import (
	"net/http"

	"github.com/BrightCodeshub/BakeryShop/internal/auth"
	"github.com/BrightCodeshub/BakeryShop/internal/menu"
	"github.com/BrightCodeshub/BakeryShop/internal/order"
	"github.com/BrightCodeshub/BakeryShop/internal/payment"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Dependencies struct {
	Auth      *auth.Authenticator
	Carts     CartStore
	Menu      menu.Service
	Orders    order.Service
	Projector OrderProjector
	Checkout  CheckoutService
	Payments  payment.Service
	Verifier  payment.Verifier
}

func NewRouter(deps Dependencies) *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	router.Route("/api", func(r chi.Router) {
		NewMenuHandler(deps.Menu).RegisterRoutes(r)
		NewCartHandler(deps.Carts, deps.Menu).RegisterRoutes(r)
		NewCheckoutHandler(deps.Checkout, deps.Carts).RegisterRoutes(r, deps.Auth)
		NewPaymentHandler(deps.Payments, deps.Verifier).RegisterRoutes(r, deps.Auth)
		NewOrderHandler(deps.Orders, deps.Projector).RegisterRoutes(r, deps.Auth)
	})

	return router
}
