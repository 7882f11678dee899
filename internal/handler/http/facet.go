package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nahankar/shatika/internal/domain"
	"github.com/nahankar/shatika/internal/repository"
	"github.com/nahankar/shatika/internal/service"
	"github.com/nahankar/shatika/pkg/httputil"
	"github.com/nahankar/shatika/pkg/validator"
)

// FacetHandler serves one catalog facet collection: categories, materials
// or arts.
type FacetHandler struct {
	kind    domain.FacetKind
	catalog *service.CatalogService
	logger  *slog.Logger
}

// NewFacetHandler creates a handler for facets of kind.
func NewFacetHandler(kind domain.FacetKind, catalog *service.CatalogService, logger *slog.Logger) *FacetHandler {
	return &FacetHandler{
		kind:    kind,
		catalog: catalog,
		logger:  logger,
	}
}

// FacetRequest is the JSON request body for creating a facet.
type FacetRequest struct {
	Name        string  `json:"name" validate:"required,min=1,max=200"`
	Slug        string  `json:"slug" validate:"omitempty,max=200"`
	Description string  `json:"description" validate:"max=5000"`
	ImageURL    *string `json:"image_url" validate:"omitempty,url"`
}

// UpdateFacetRequest is the JSON request body for updating a facet.
type UpdateFacetRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=200"`
	Slug        *string `json:"slug" validate:"omitempty,max=200"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
	ImageURL    *string `json:"image_url" validate:"omitempty,url"`
}

// List handles GET /api/v1/{facets}?sort=name|-name|created_at|-created_at
func (h *FacetHandler) List(w http.ResponseWriter, r *http.Request) {
	sort := repository.ParseSort(r.URL.Query().Get("sort"), repository.SortNameAsc, false)

	facets, err := h.catalog.ListFacets(r.Context(), h.kind, sort)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if facets == nil {
		facets = []domain.Facet{}
	}
	httputil.WriteData(w, http.StatusOK, facets)
}

// Get handles GET /api/v1/{facets}/{id}
func (h *FacetHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	facet, err := h.catalog.GetFacet(r.Context(), h.kind, id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, facet)
}

// Create handles POST /api/v1/{facets}
func (h *FacetHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req FacetRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	facet, err := h.catalog.CreateFacet(r.Context(), h.kind, service.CreateFacetInput{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, facet)
}

// Update handles PUT and PATCH /api/v1/{facets}/{id}
func (h *FacetHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req UpdateFacetRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	facet, err := h.catalog.UpdateFacet(r.Context(), h.kind, id, service.UpdateFacetInput{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, facet)
}

// Delete handles DELETE /api/v1/{facets}/{id}
// Categories and arts still referenced by products answer 400 HAS_DEPENDENTS.
func (h *FacetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.catalog.DeleteFacet(r.Context(), h.kind, id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteMessage(w, http.StatusOK, string(h.kind)+" deleted")
}
