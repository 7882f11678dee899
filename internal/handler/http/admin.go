package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nahankar/shatika/internal/service"
	"github.com/nahankar/shatika/pkg/httputil"
	"github.com/nahankar/shatika/pkg/middleware"
	"github.com/nahankar/shatika/pkg/pagination"
	"github.com/nahankar/shatika/pkg/validator"
)

// AdminHandler serves the admin dashboard and account management.
type AdminHandler struct {
	accounts  *service.AccountService
	dashboard *service.DashboardService
	logger    *slog.Logger
}

// NewAdminHandler creates a new admin HTTP handler.
func NewAdminHandler(accounts *service.AccountService, dashboard *service.DashboardService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		accounts:  accounts,
		dashboard: dashboard,
		logger:    logger,
	}
}

// UpdateRoleRequest is the JSON request body for changing an account role.
type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=user admin"`
}

// Stats handles GET /api/v1/admin/stats
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.dashboard.Stats(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, stats)
}

// ListAccounts handles GET /api/v1/admin/accounts
func (h *AdminHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	page := pagination.FromRequest(r)

	accounts, total, err := h.accounts.ListAccounts(r.Context(), page)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, httputil.NewPaginatedResponse(accounts, total, page.Page, page.PerPage))
}

// GetAccount handles GET /api/v1/admin/accounts/{id}
func (h *AdminHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	account, err := h.accounts.GetAccount(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, account)
}

// UpdateRole handles PUT /api/v1/admin/accounts/{id}/role
func (h *AdminHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req UpdateRoleRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	account, err := h.accounts.UpdateRole(r.Context(), middleware.AccountIDFromContext(r.Context()), id, req.Role)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, account)
}
