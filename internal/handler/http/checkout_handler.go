package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/BrightCodeshub/BakeryShop/internal/auth"
	"github.com/BrightCodeshub/BakeryShop/internal/cart"
	"github.com/BrightCodeshub/BakeryShop/internal/checkout"
	"github.com/BrightCodeshub/BakeryShop/internal/order"
	"github.com/BrightCodeshub/BakeryShop/internal/payment"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

type CheckoutService interface {
	PlaceOrder(ctx context.Context, req checkout.PlaceOrderRequest) (*checkout.Result, error)
	CreateSession(ctx context.Context, req checkout.SessionRequest) (*payment.Session, error)
}

type CheckoutItemRequest struct {
	ID       string  `json:"id" validate:"required,uuid"`
	Name     string  `json:"name"`
	Price    float64 `json:"price" validate:"gte=0"`
	Quantity int     `json:"quantity" validate:"min=1"`
	ImageURL string  `json:"image_url,omitempty"`
}

// CheckoutRequest may omit items, in which case the cart named by the
// X-Cart-ID header is checked out.
type CheckoutRequest struct {
	CustomerEmail string                `json:"customer_email" validate:"omitempty,email"`
	Items         []CheckoutItemRequest `json:"items" validate:"omitempty,dive"`
	Total         *float64              `json:"total,omitempty"`
}

// CreateSessionRequest keeps the field names the storefront already sends.
type CreateSessionRequest struct {
	OrderID       string      `json:"orderId"`
	Items         []cart.Item `json:"items"`
	CustomerEmail string      `json:"customerEmail"`
}

type CheckoutHandler struct {
	service  CheckoutService
	carts    CartStore
	validate *validator.Validate
}

func NewCheckoutHandler(service CheckoutService, carts CartStore) *CheckoutHandler {
	return &CheckoutHandler{
		service:  service,
		carts:    carts,
		validate: validator.New(),
	}
}

func (h *CheckoutHandler) RegisterRoutes(router chi.Router, authn *auth.Authenticator) {
	router.With(authn.Optional).Post("/checkout", h.handlePlaceOrder)
	router.Post("/stripe/create-checkout-session", h.handleCreateSession)
}

func (h *CheckoutHandler) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	placeReq := checkout.PlaceOrderRequest{
		CustomerEmail: req.CustomerEmail,
		ClientTotal:   req.Total,
		CartID:        r.Header.Get(CartIDHeader),
	}
	if identity, ok := auth.FromContext(r.Context()); ok {
		placeReq.UserID = identity.UserID
		if placeReq.CustomerEmail == "" {
			placeReq.CustomerEmail = identity.Email
		}
	}

	if len(req.Items) > 0 {
		placeReq.Items = make([]cart.Item, 0, len(req.Items))
		for _, item := range req.Items {
			placeReq.Items = append(placeReq.Items, cart.Item{
				ID:       item.ID,
				Name:     item.Name,
				Price:    item.Price,
				Quantity: item.Quantity,
				ImageURL: item.ImageURL,
			})
		}
	} else if placeReq.CartID != "" {
		items, err := h.carts.Get(r.Context(), placeReq.CartID)
		if err != nil {
			log.Error().Err(err).Str("cart_id", placeReq.CartID).Msg("Failed to load cart for checkout")
			respondWithError(w, http.StatusInternalServerError, "Failed to load cart")
			return
		}
		placeReq.Items = items
	}

	result, err := h.service.PlaceOrder(r.Context(), placeReq)
	if err != nil {
		status := mapErrorToStatusCode(err)
		if status >= http.StatusInternalServerError {
			log.Error().Err(err).Str("customer_email", placeReq.CustomerEmail).Msg("Checkout failed")
		}
		message := clientMessage(err, "Failed to place order")
		if errors.Is(err, checkout.ErrGateway) {
			message = "Payment provider is unavailable, please try again"
		}
		respondWithError(w, status, message)
		return
	}

	respondWithJSON(w, http.StatusCreated, result)
}

func (h *CheckoutHandler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	session, err := h.service.CreateSession(r.Context(), checkout.SessionRequest{
		OrderID:       req.OrderID,
		CustomerEmail: req.CustomerEmail,
		Items:         req.Items,
	})
	if err != nil {
		var validationErr *checkout.ValidationError
		if errors.As(err, &validationErr) {
			respondWithError(w, http.StatusBadRequest, validationErr.Message)
			return
		}
		if errors.Is(err, order.ErrOrderNotFound) {
			log.Warn().Err(err).Str("order_id", req.OrderID).Msg("Checkout session requested for unknown order")
			respondWithError(w, http.StatusBadRequest, "Order not found")
			return
		}
		log.Error().Err(err).Str("order_id", req.OrderID).Msg("Failed to create checkout session")
		respondWithError(w, http.StatusInternalServerError, "Error creating checkout session")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"url": session.URL})
}
