package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nahankar/shatika/internal/service"
	"github.com/nahankar/shatika/pkg/httputil"
	"github.com/nahankar/shatika/pkg/middleware"
	"github.com/nahankar/shatika/pkg/validator"
)

// CartHandler handles the caller's cart.
type CartHandler struct {
	cart   *service.CartService
	logger *slog.Logger
}

// NewCartHandler creates a new cart HTTP handler.
func NewCartHandler(cart *service.CartService, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		cart:   cart,
		logger: logger,
	}
}

// AddItemRequest is the JSON request body for adding to the cart. An absent
// size or color is a distinct key from any label, including "".
type AddItemRequest struct {
	ProductID string  `json:"product_id" validate:"required,uuid"`
	Quantity  int     `json:"quantity" validate:"required,min=1,max=1000"`
	Size      *string `json:"size" validate:"omitempty,max=50"`
	Color     *string `json:"color" validate:"omitempty,max=50"`
}

// UpdateItemRequest is the JSON request body for changing a line quantity.
type UpdateItemRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1,max=1000"`
}

// GetCart handles GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	view, err := h.cart.List(r.Context(), middleware.AccountIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, view)
}

// AddItem handles POST /api/v1/cart
// Adding a product with the same size and color merges into the existing line.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	_, err := h.cart.Add(r.Context(), middleware.AccountIDFromContext(r.Context()), service.AddToCartInput{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		Size:      req.Size,
		Color:     req.Color,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteMessage(w, http.StatusOK, "added to cart")
}

// UpdateItem handles PUT and PATCH /api/v1/cart/{itemId}
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := pathUUID(w, chi.URLParam(r, "itemId"))
	if !ok {
		return
	}

	var req UpdateItemRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	item, err := h.cart.UpdateQuantity(r.Context(), middleware.AccountIDFromContext(r.Context()), itemID, req.Quantity)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, item)
}

// RemoveItem handles DELETE /api/v1/cart/{itemId}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := pathUUID(w, chi.URLParam(r, "itemId"))
	if !ok {
		return
	}

	if err := h.cart.Remove(r.Context(), middleware.AccountIDFromContext(r.Context()), itemID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteMessage(w, http.StatusOK, "removed from cart")
}

// ClearCart handles DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.cart.Clear(r.Context(), middleware.AccountIDFromContext(r.Context())); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteMessage(w, http.StatusOK, "cart cleared")
}
