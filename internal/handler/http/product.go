package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nahankar/shatika/internal/repository"
	"github.com/nahankar/shatika/internal/service"
	apperrors "github.com/nahankar/shatika/pkg/errors"
	"github.com/nahankar/shatika/pkg/httputil"
	"github.com/nahankar/shatika/pkg/pagination"
	"github.com/nahankar/shatika/pkg/validator"
)

// ProductHandler handles HTTP requests for product endpoints.
type ProductHandler struct {
	catalog  *service.CatalogService
	maxBytes int64
	logger   *slog.Logger
}

// NewProductHandler creates a new product HTTP handler. maxBytes limits
// image uploads.
func NewProductHandler(catalog *service.CatalogService, maxBytes int64, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		catalog:  catalog,
		maxBytes: maxBytes,
		logger:   logger,
	}
}

// --- Request DTOs ---

// CreateProductRequest is the JSON request body for creating a product.
type CreateProductRequest struct {
	Name        string   `json:"name" validate:"required,min=1,max=500"`
	Slug        string   `json:"slug" validate:"omitempty,max=200"`
	Description string   `json:"description" validate:"max=10000"`
	Price       int64    `json:"price" validate:"gte=0"`
	Currency    string   `json:"currency" validate:"omitempty,len=3"`
	CategoryID  *string  `json:"category_id" validate:"omitempty,uuid"`
	MaterialID  *string  `json:"material_id" validate:"omitempty,uuid"`
	ArtID       *string  `json:"art_id" validate:"omitempty,uuid"`
	Images      []string `json:"images" validate:"max=20,dive,url"`
	Sizes       []string `json:"sizes" validate:"max=50,dive,max=50"`
	Colors      []string `json:"colors" validate:"max=50,dive,max=50"`
	Stock       int      `json:"stock" validate:"gte=0"`
	IsActive    *bool    `json:"is_active"`
}

// UpdateProductRequest is the JSON request body for updating a product. An
// empty string clears a category, material or art reference.
type UpdateProductRequest struct {
	Name        *string   `json:"name" validate:"omitempty,min=1,max=500"`
	Slug        *string   `json:"slug" validate:"omitempty,max=200"`
	Description *string   `json:"description" validate:"omitempty,max=10000"`
	Price       *int64    `json:"price" validate:"omitempty,gte=0"`
	Currency    *string   `json:"currency" validate:"omitempty,len=3"`
	CategoryID  *string   `json:"category_id" validate:"omitempty,uuid"`
	MaterialID  *string   `json:"material_id" validate:"omitempty,uuid"`
	ArtID       *string   `json:"art_id" validate:"omitempty,uuid"`
	Images      *[]string `json:"images" validate:"omitempty,max=20,dive,url"`
	Sizes       *[]string `json:"sizes" validate:"omitempty,max=50,dive,max=50"`
	Colors      *[]string `json:"colors" validate:"omitempty,max=50,dive,max=50"`
	Stock       *int      `json:"stock" validate:"omitempty,gte=0"`
	IsActive    *bool     `json:"is_active"`
}

// RemoveImageRequest is the JSON request body for detaching an image.
type RemoveImageRequest struct {
	URL string `json:"url" validate:"required"`
}

// --- Handlers ---

// ListProducts handles GET /api/v1/products
// Query: page, per_page, category_id, material_id, art_id, search,
// min_price, max_price, sort (name, -name, created_at, -created_at,
// price, -price). Admins may pass include_inactive=true.
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	page := pagination.FromRequest(r)

	minPrice, err := queryInt64(r, "min_price")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	maxPrice, err := queryInt64(r, "max_price")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	// An absent sort ranks search hits by relevance and everything else
	// newest first.
	var sort repository.SortOrder
	if v := r.URL.Query().Get("sort"); v != "" {
		sort = repository.ParseSort(v, repository.SortCreatedDesc, true)
	}

	input := service.ListProductsInput{
		CategoryID:      queryString(r, "category_id"),
		MaterialID:      queryString(r, "material_id"),
		ArtID:           queryString(r, "art_id"),
		Search:          queryString(r, "search"),
		MinPrice:        minPrice,
		MaxPrice:        maxPrice,
		IncludeInactive: isAdmin(r) && r.URL.Query().Get("include_inactive") == "true",
		Sort:            sort,
		Page:            page,
	}

	products, total, err := h.catalog.ListProducts(r.Context(), input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, httputil.NewPaginatedResponse(products, total, page.Page, page.PerPage))
}

// GetProduct handles GET /api/v1/products/{idOrSlug}
// Inactive products are only visible to admins.
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "idOrSlug")

	product, err := h.catalog.GetProduct(r.Context(), ref)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if !product.IsActive && !isAdmin(r) {
		httputil.WriteError(w, r, apperrors.NotFound("product", ref), h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, product)
}

// CreateProduct handles POST /api/v1/products
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	product, err := h.catalog.CreateProduct(r.Context(), service.CreateProductInput{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		Price:       req.Price,
		Currency:    req.Currency,
		CategoryID:  req.CategoryID,
		MaterialID:  req.MaterialID,
		ArtID:       req.ArtID,
		Images:      req.Images,
		Sizes:       req.Sizes,
		Colors:      req.Colors,
		Stock:       req.Stock,
		IsActive:    req.IsActive,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusCreated, product)
}

// UpdateProduct handles PUT and PATCH /api/v1/products/{id}
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req UpdateProductRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	product, err := h.catalog.UpdateProduct(r.Context(), id, service.UpdateProductInput{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		Price:       req.Price,
		Currency:    req.Currency,
		CategoryID:  req.CategoryID,
		MaterialID:  req.MaterialID,
		ArtID:       req.ArtID,
		Images:      req.Images,
		Sizes:       req.Sizes,
		Colors:      req.Colors,
		Stock:       req.Stock,
		IsActive:    req.IsActive,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, product)
}

// DeleteProduct handles DELETE /api/v1/products/{id}
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.catalog.DeleteProduct(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteMessage(w, http.StatusOK, "product deleted")
}

// ReindexResult reports a search index rebuild.
type ReindexResult struct {
	Indexed int `json:"indexed"`
}

// Reindex handles POST /api/v1/admin/search/reindex
func (h *ProductHandler) Reindex(w http.ResponseWriter, r *http.Request) {
	n, err := h.catalog.ReindexProducts(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, ReindexResult{Indexed: n})
}

// AddImage handles POST /api/v1/products/{id}/images (multipart, field "file")
func (h *ProductHandler) AddImage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	upload, cleanup, err := readUpload(w, r, h.maxBytes)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	defer cleanup()

	product, err := h.catalog.AddProductImage(r.Context(), id, upload)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusCreated, product)
}

// RemoveImage handles DELETE /api/v1/products/{id}/images with body {"url": "..."}
func (h *ProductHandler) RemoveImage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req RemoveImageRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	product, err := h.catalog.RemoveProductImage(r.Context(), id, req.URL)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, product)
}
