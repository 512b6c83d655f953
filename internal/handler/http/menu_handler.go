package http

import (
	"net/http"

	"github.com/BrightCodeshub/BakeryShop/internal/menu"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

type MenuHandler struct {
	service menu.Service
}

func NewMenuHandler(service menu.Service) *MenuHandler {
	return &MenuHandler{service: service}
}

func (h *MenuHandler) RegisterRoutes(router chi.Router) {
	router.Get("/menu", h.handleListMenu)
	router.Get("/menu/popular", h.handlePopular)
}

func (h *MenuHandler) handleListMenu(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")

	items, err := h.service.List(r.Context(), category)
	if err != nil {
		log.Error().Err(err).Str("category", category).Msg("Failed to list menu")
		respondWithError(w, http.StatusInternalServerError, "Failed to load menu")
		return
	}
	respondWithJSON(w, http.StatusOK, items)
}

func (h *MenuHandler) handlePopular(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.Popular(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list popular items")
		respondWithError(w, http.StatusInternalServerError, "Failed to load menu")
		return
	}
	respondWithJSON(w, http.StatusOK, items)
}
