package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/BrightCodeshub/BakeryShop/internal/auth"
	"github.com/BrightCodeshub/BakeryShop/internal/order"
	"github.com/BrightCodeshub/BakeryShop/internal/profile"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
)

type OrderProjector interface {
	CustomerOrders(ctx context.Context, userID uuid.UUID, q order.Query) ([]order.Order, error)
	OrdersByEmail(ctx context.Context, email string, q order.Query) ([]order.Order, error)
	Queue(ctx context.Context) ([]order.Order, error)
	DashboardStats(ctx context.Context, now time.Time) (*order.DashboardStats, error)
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending paid preparing ready completed cancelled"`
}

type OrderHandler struct {
	service   order.Service
	projector OrderProjector
	validate  *validator.Validate
	now       func() time.Time
}

func NewOrderHandler(service order.Service, projector OrderProjector) *OrderHandler {
	return &OrderHandler{
		service:   service,
		projector: projector,
		validate:  validator.New(),
		now:       time.Now,
	}
}

func (h *OrderHandler) RegisterRoutes(router chi.Router, authn *auth.Authenticator) {
	router.Group(func(r chi.Router) {
		r.Use(authn.Require())
		r.Get("/orders/me", h.handleMyOrders)
		r.Get("/orders/{id}", h.handleGetOrderByID)
	})

	router.Group(func(r chi.Router) {
		r.Use(authn.Require(profile.RoleEmployee, profile.RoleManager))
		r.Get("/manager/orders/queue", h.handleQueue)
		r.Patch("/manager/orders/{id}/status", h.handleUpdateStatus)
	})

	router.Group(func(r chi.Router) {
		r.Use(authn.Require(profile.RoleManager))
		r.Get("/manager/orders", h.handleOrdersByEmail)
		r.Get("/manager/stats", h.handleStats)
	})
}

func (h *OrderHandler) handleMyOrders(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())

	q, err := parseOrderQuery(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	orders, err := h.projector.CustomerOrders(r.Context(), identity.UserID, q)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", identity.UserID).Msg("Failed to load customer orders")
		respondWithError(w, http.StatusInternalServerError, "Failed to load orders")
		return
	}
	respondWithJSON(w, http.StatusOK, orders)
}

// handleGetOrderByID answers 404 for orders of other customers so that ids
// cannot be probed.
func (h *OrderHandler) handleGetOrderByID(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())

	idParam := chi.URLParam(r, "id")
	orderID, err := uuid.FromString(idParam)
	if err != nil {
		log.Warn().Err(err).Str("order_id", idParam).Msg("Failed to parse id parameter from URL")
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	found, err := h.service.GetOrderByID(r.Context(), orderID)
	if err != nil {
		status := mapErrorToStatusCode(err)
		if status >= http.StatusInternalServerError {
			log.Error().Err(err).Stringer("order_id", orderID).Msg("Failed to get order by id via service")
		}
		respondWithError(w, status, clientMessage(err, "Failed to get order"))
		return
	}
	if found.UserID != identity.UserID && !identity.Role.IsStaff() {
		respondWithError(w, http.StatusNotFound, order.ErrOrderNotFound.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, found)
}

func (h *OrderHandler) handleQueue(w http.ResponseWriter, r *http.Request) {
	orders, err := h.projector.Queue(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to load order queue")
		respondWithError(w, http.StatusInternalServerError, "Failed to load orders")
		return
	}
	respondWithJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	idParam := chi.URLParam(r, "id")
	orderID, err := uuid.FromString(idParam)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	var req UpdateStatusRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	status, err := order.ParseStatus(req.Status)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.service.UpdateOrderStatus(r.Context(), orderID, status)
	if err != nil {
		code := mapErrorToStatusCode(err)
		if code >= http.StatusInternalServerError {
			log.Error().Err(err).Stringer("order_id", orderID).Str("status", req.Status).Msg("Failed to update order status")
		}
		message := clientMessage(err, "Failed to update order status")
		if errors.Is(err, order.ErrStatusConflict) {
			message = "Order was updated concurrently, reload and retry"
		}
		respondWithError(w, code, message)
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

func (h *OrderHandler) handleOrdersByEmail(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		respondWithError(w, http.StatusBadRequest, "email query parameter is required")
		return
	}

	q, err := parseOrderQuery(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	orders, err := h.projector.OrdersByEmail(r.Context(), email, q)
	if err != nil {
		log.Error().Err(err).Str("customer_email", email).Msg("Failed to load orders by email")
		respondWithError(w, http.StatusInternalServerError, "Failed to load orders")
		return
	}
	respondWithJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.projector.DashboardStats(r.Context(), h.now())
	if err != nil {
		log.Error().Err(err).Msg("Failed to load dashboard stats")
		respondWithError(w, http.StatusInternalServerError, "Failed to load stats")
		return
	}
	respondWithJSON(w, http.StatusOK, stats)
}
