package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BrightCodeshub/BakeryShop/internal/cart"
	bakeryHttp "github.com/BrightCodeshub/BakeryShop/internal/handler/http"
	"github.com/BrightCodeshub/BakeryShop/internal/menu"
	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var croissantID = uuid.Must(uuid.FromString("0b8f6a2e-3c1d-4e5f-8a9b-7c6d5e4f3a21"))

func newCartRouter(store *cart.Store, menuSvc *MockMenuService) *chi.Mux {
	router := chi.NewRouter()
	bakeryHttp.NewCartHandler(store, menuSvc).RegisterRoutes(router)
	return router
}

func doCart(t *testing.T, router http.Handler, method, path, cartID string, body any) (*httptest.ResponseRecorder, bakeryHttp.CartResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if cartID != "" {
		req.Header.Set(bakeryHttp.CartIDHeader, cartID)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	var resp bakeryHttp.CartResponse
	if rr.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	}
	return rr, resp
}

func TestCartHandler_Flow(t *testing.T) {
	menuSvc := new(MockMenuService)
	menuSvc.On("GetByIDs", mock.Anything, []uuid.UUID{croissantID}).Return(map[uuid.UUID]menu.Item{
		croissantID: {ID: croissantID, Name: "Croissant", Price: 3.50, Available: true},
	}, nil)
	router := newCartRouter(cart.NewStore(cart.NewMemoryStorage()), menuSvc)

	rr, resp := doCart(t, router, http.MethodPost, "/cart/items", "c1", map[string]any{"id": croissantID.String()})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, resp.ItemCount)

	rr, resp = doCart(t, router, http.MethodPost, "/cart/items", "c1", map[string]any{"id": croissantID.String(), "quantity": 1})
	require.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, 2, resp.Items[0].Quantity)
	assert.Equal(t, 7.00, resp.Total)

	rr, resp = doCart(t, router, http.MethodPatch, "/cart/items/"+croissantID.String(), "c1", map[string]any{"quantity": 5})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 17.50, resp.Total)

	rr, resp = doCart(t, router, http.MethodPatch, "/cart/items/"+croissantID.String(), "c1", map[string]any{"quantity": 0})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, resp.Items)

	rr, resp = doCart(t, router, http.MethodGet, "/cart", "c1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotNil(t, resp.Items)
	assert.Zero(t, resp.ItemCount)
}

func TestCartHandler_Errors(t *testing.T) {
	unavailableID := uuid.Must(uuid.NewV4())
	menuSvc := new(MockMenuService)
	menuSvc.On("GetByIDs", mock.Anything, []uuid.UUID{unavailableID}).Return(map[uuid.UUID]menu.Item{
		unavailableID: {ID: unavailableID, Name: "Stollen", Price: 12, Available: false},
	}, nil)
	menuSvc.On("GetByIDs", mock.Anything, mock.Anything).Return(map[uuid.UUID]menu.Item{}, nil)
	router := newCartRouter(cart.NewStore(cart.NewMemoryStorage()), menuSvc)

	tests := []struct {
		name       string
		method     string
		path       string
		cartID     string
		body       any
		wantStatus int
	}{
		{name: "missing_cart_header", method: http.MethodGet, path: "/cart", wantStatus: http.StatusBadRequest},
		{name: "invalid_menu_id", method: http.MethodPost, path: "/cart/items", cartID: "c1", body: map[string]any{"id": "croissant"}, wantStatus: http.StatusBadRequest},
		{name: "negative_quantity", method: http.MethodPost, path: "/cart/items", cartID: "c1", body: map[string]any{"id": croissantID.String(), "quantity": -1}, wantStatus: http.StatusBadRequest},
		{name: "unknown_menu_item", method: http.MethodPost, path: "/cart/items", cartID: "c1", body: map[string]any{"id": croissantID.String()}, wantStatus: http.StatusNotFound},
		{name: "unavailable_item", method: http.MethodPost, path: "/cart/items", cartID: "c1", body: map[string]any{"id": unavailableID.String()}, wantStatus: http.StatusConflict},
		{name: "client_sets_price", method: http.MethodPost, path: "/cart/items", cartID: "c1", body: map[string]any{"id": croissantID.String(), "price": 0.01}, wantStatus: http.StatusBadRequest},
		{name: "update_without_quantity", method: http.MethodPatch, path: "/cart/items/x", cartID: "c1", body: map[string]any{}, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr, _ := doCart(t, router, tt.method, tt.path, tt.cartID, tt.body)
			assert.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())
		})
	}
}

func TestCartHandler_Clear(t *testing.T) {
	store := cart.NewStore(cart.NewMemoryStorage())
	_, err := store.Add(context.Background(), "c1", cart.Item{ID: "x", Name: "Muffin", Price: 2.99}, 2)
	require.NoError(t, err)
	router := newCartRouter(store, new(MockMenuService))

	rr, resp := doCart(t, router, http.MethodDelete, "/cart", "c1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, resp.Items)

	items, err := store.Get(context.Background(), "c1")
	require.NoError(t, err)
	assert.Empty(t, items)
}
