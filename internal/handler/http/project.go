package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nahankar/shatika/internal/domain"
	"github.com/nahankar/shatika/internal/service"
	"github.com/nahankar/shatika/pkg/httputil"
	"github.com/nahankar/shatika/pkg/middleware"
	"github.com/nahankar/shatika/pkg/pagination"
	"github.com/nahankar/shatika/pkg/validator"
)

// ProjectHandler handles design projects and thumbnail rendering.
type ProjectHandler struct {
	projects *service.ProjectService
	logger   *slog.Logger
}

// NewProjectHandler creates a new project HTTP handler.
func NewProjectHandler(projects *service.ProjectService, logger *slog.Logger) *ProjectHandler {
	return &ProjectHandler{
		projects: projects,
		logger:   logger,
	}
}

// CreateProjectRequest is the JSON request body for creating a project.
type CreateProjectRequest struct {
	Name      string        `json:"name" validate:"required,min=1,max=200"`
	ProductID *string       `json:"product_id" validate:"omitempty,uuid"`
	Design    domain.Design `json:"design"`
}

// UpdateProjectRequest is the JSON request body for updating a project.
type UpdateProjectRequest struct {
	Name      *string        `json:"name" validate:"omitempty,min=1,max=200"`
	ProductID *string        `json:"product_id" validate:"omitempty,uuid"`
	Design    *domain.Design `json:"design"`
}

// PreviewRequest is the JSON request body for a one-off thumbnail.
type PreviewRequest struct {
	Design domain.Design `json:"design"`
}

// List handles GET /api/v1/projects
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	page := pagination.FromRequest(r)

	projects, total, err := h.projects.List(r.Context(), middleware.AccountIDFromContext(r.Context()), page)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, httputil.NewPaginatedResponse(projects, total, page.Page, page.PerPage))
}

// Create handles POST /api/v1/projects
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateProjectRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	project, err := h.projects.Create(r.Context(), middleware.AccountIDFromContext(r.Context()), service.CreateProjectInput{
		Name:      req.Name,
		ProductID: req.ProductID,
		Design:    req.Design,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, project)
}

// Get handles GET /api/v1/projects/{id}
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	project, err := h.projects.Get(r.Context(), middleware.AccountIDFromContext(r.Context()), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, project)
}

// Update handles PUT /api/v1/projects/{id}
func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req UpdateProjectRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	project, err := h.projects.Update(r.Context(), middleware.AccountIDFromContext(r.Context()), id, service.UpdateProjectInput{
		Name:      req.Name,
		ProductID: req.ProductID,
		Design:    req.Design,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, project)
}

// Delete handles DELETE /api/v1/projects/{id}
func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.projects.Delete(r.Context(), middleware.AccountIDFromContext(r.Context()), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteMessage(w, http.StatusOK, "project deleted")
}

// RenderThumbnail handles POST /api/v1/projects/{id}/thumbnail
func (h *ProjectHandler) RenderThumbnail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	project, err := h.projects.RenderThumbnail(r.Context(), middleware.AccountIDFromContext(r.Context()), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, project)
}

// Preview handles POST /api/v1/thumbnails/preview and answers with the PNG.
func (h *ProjectHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	png, err := h.projects.Preview(r.Context(), &req.Design)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
