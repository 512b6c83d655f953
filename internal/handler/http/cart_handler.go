package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/BrightCodeshub/BakeryShop/internal/cart"
	"github.com/BrightCodeshub/BakeryShop/internal/menu"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
)

const CartIDHeader = "X-Cart-ID"

type CartStore interface {
	Get(ctx context.Context, cartID string) ([]cart.Item, error)
	Add(ctx context.Context, cartID string, item cart.Item, quantity int) ([]cart.Item, error)
	Update(ctx context.Context, cartID, id string, quantity int) ([]cart.Item, error)
	Remove(ctx context.Context, cartID, id string) ([]cart.Item, error)
	Clear(ctx context.Context, cartID string) error
}

type AddCartItemRequest struct {
	MenuItemID string `json:"id" validate:"required,uuid"`
	Quantity   int    `json:"quantity" validate:"gte=0"`
}

type UpdateCartItemRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

type CartResponse struct {
	Items     []cart.Item `json:"items"`
	Total     float64     `json:"total"`
	ItemCount int         `json:"item_count"`
}

func newCartResponse(items []cart.Item) CartResponse {
	if items == nil {
		items = []cart.Item{}
	}
	return CartResponse{
		Items:     items,
		Total:     cart.TotalOf(items),
		ItemCount: cart.CountOf(items),
	}
}

type CartHandler struct {
	store    CartStore
	menu     menu.Service
	validate *validator.Validate
}

func NewCartHandler(store CartStore, menuSvc menu.Service) *CartHandler {
	return &CartHandler{
		store:    store,
		menu:     menuSvc,
		validate: validator.New(),
	}
}

func (h *CartHandler) RegisterRoutes(router chi.Router) {
	router.Get("/cart", h.handleGetCart)
	router.Delete("/cart", h.handleClearCart)
	router.Post("/cart/items", h.handleAddItem)
	router.Patch("/cart/items/{id}", h.handleUpdateItem)
	router.Delete("/cart/items/{id}", h.handleRemoveItem)
}

func cartID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.Header.Get(CartIDHeader)
	if id == "" {
		respondWithError(w, http.StatusBadRequest, CartIDHeader+" header is required")
		return "", false
	}
	return id, true
}

func (h *CartHandler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	id, ok := cartID(w, r)
	if !ok {
		return
	}

	items, err := h.store.Get(r.Context(), id)
	if err != nil {
		log.Error().Err(err).Str("cart_id", id).Msg("Failed to load cart")
		respondWithError(w, http.StatusInternalServerError, "Failed to load cart")
		return
	}
	respondWithJSON(w, http.StatusOK, newCartResponse(items))
}

// handleAddItem prices the item from the menu; clients only send an id.
func (h *CartHandler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	id, ok := cartID(w, r)
	if !ok {
		return
	}

	var req AddCartItemRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	menuItemID := uuid.FromStringOrNil(req.MenuItemID)
	found, err := h.menu.GetByIDs(r.Context(), []uuid.UUID{menuItemID})
	if err != nil {
		log.Error().Err(err).Str("menu_item_id", req.MenuItemID).Msg("Failed to look up menu item")
		respondWithError(w, http.StatusInternalServerError, "Failed to add item")
		return
	}
	item, exists := found[menuItemID]
	if !exists {
		respondWithError(w, http.StatusNotFound, "Menu item not found")
		return
	}
	if !item.Available {
		respondWithError(w, http.StatusConflict, item.Name+" is not available")
		return
	}

	items, err := h.store.Add(r.Context(), id, cart.Item{
		ID:       item.ID.String(),
		Name:     item.Name,
		Price:    item.Price,
		ImageURL: item.ImageURL,
	}, req.Quantity)
	if err != nil {
		h.respondStoreError(w, id, err)
		return
	}
	respondWithJSON(w, http.StatusOK, newCartResponse(items))
}

func (h *CartHandler) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := cartID(w, r)
	if !ok {
		return
	}

	var req UpdateCartItemRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	items, err := h.store.Update(r.Context(), id, chi.URLParam(r, "id"), *req.Quantity)
	if err != nil {
		h.respondStoreError(w, id, err)
		return
	}
	respondWithJSON(w, http.StatusOK, newCartResponse(items))
}

func (h *CartHandler) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	id, ok := cartID(w, r)
	if !ok {
		return
	}

	items, err := h.store.Remove(r.Context(), id, chi.URLParam(r, "id"))
	if err != nil {
		h.respondStoreError(w, id, err)
		return
	}
	respondWithJSON(w, http.StatusOK, newCartResponse(items))
}

func (h *CartHandler) handleClearCart(w http.ResponseWriter, r *http.Request) {
	id, ok := cartID(w, r)
	if !ok {
		return
	}

	if err := h.store.Clear(r.Context(), id); err != nil {
		h.respondStoreError(w, id, err)
		return
	}
	respondWithJSON(w, http.StatusOK, newCartResponse(nil))
}

func (h *CartHandler) respondStoreError(w http.ResponseWriter, id string, err error) {
	status := mapErrorToStatusCode(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("cart_id", id).Msg("Cart update failed")
	}
	if errors.Is(err, cart.ErrInvalidQuantity) || errors.Is(err, cart.ErrInvalidItem) {
		respondWithError(w, status, err.Error())
		return
	}
	respondWithError(w, status, clientMessage(err, "Failed to update cart"))
}
