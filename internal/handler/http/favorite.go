package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nahankar/shatika/internal/domain"
	"github.com/nahankar/shatika/internal/service"
	"github.com/nahankar/shatika/pkg/httputil"
	"github.com/nahankar/shatika/pkg/middleware"
)

// FavoriteHandler handles the caller's favorite products.
type FavoriteHandler struct {
	favorites *service.FavoriteService
	logger    *slog.Logger
}

// NewFavoriteHandler creates a new favorites HTTP handler.
func NewFavoriteHandler(favorites *service.FavoriteService, logger *slog.Logger) *FavoriteHandler {
	return &FavoriteHandler{
		favorites: favorites,
		logger:    logger,
	}
}

// FavoriteStatus reports whether a product is a favorite.
type FavoriteStatus struct {
	ProductID  string `json:"product_id"`
	IsFavorite bool   `json:"is_favorite"`
}

// List handles GET /api/v1/favorites
func (h *FavoriteHandler) List(w http.ResponseWriter, r *http.Request) {
	lines, err := h.favorites.List(r.Context(), middleware.AccountIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if lines == nil {
		lines = []domain.FavoriteLine{}
	}
	httputil.WriteData(w, http.StatusOK, lines)
}

// Add handles POST /api/v1/favorites/{productId}
func (h *FavoriteHandler) Add(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathUUID(w, chi.URLParam(r, "productId"))
	if !ok {
		return
	}

	if err := h.favorites.Add(r.Context(), middleware.AccountIDFromContext(r.Context()), productID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteMessage(w, http.StatusOK, "added to favorites")
}

// Remove handles DELETE /api/v1/favorites/{productId}
func (h *FavoriteHandler) Remove(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathUUID(w, chi.URLParam(r, "productId"))
	if !ok {
		return
	}

	if err := h.favorites.Remove(r.Context(), middleware.AccountIDFromContext(r.Context()), productID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteMessage(w, http.StatusOK, "removed from favorites")
}

// Check handles GET /api/v1/favorites/{productId}
func (h *FavoriteHandler) Check(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathUUID(w, chi.URLParam(r, "productId"))
	if !ok {
		return
	}

	found, err := h.favorites.Contains(r.Context(), middleware.AccountIDFromContext(r.Context()), productID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, FavoriteStatus{ProductID: productID, IsFavorite: found})
}
