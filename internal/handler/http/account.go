package http

import (
	"log/slog"
	"net/http"

	"github.com/nahankar/shatika/internal/domain"
	"github.com/nahankar/shatika/internal/service"
	"github.com/nahankar/shatika/pkg/httputil"
	"github.com/nahankar/shatika/pkg/middleware"
	"github.com/nahankar/shatika/pkg/validator"
)

// AccountHandler handles registration, login and the caller's own account.
type AccountHandler struct {
	service *service.AccountService
	logger  *slog.Logger
}

// NewAccountHandler creates a new account HTTP handler.
func NewAccountHandler(svc *service.AccountService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// RegisterRequest is the JSON request body for registration.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Name     string `json:"name" validate:"required,min=1,max=100"`
}

// LoginRequest is the JSON request body for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UpdateProfileRequest is the JSON request body for updating the profile.
type UpdateProfileRequest struct {
	Name  *string `json:"name" validate:"omitempty,min=1,max=100"`
	Email *string `json:"email" validate:"omitempty,email,max=254"`
}

// ChangePasswordRequest is the JSON request body for changing the password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Account *domain.Account   `json:"account"`
	Token   *domain.AuthToken `json:"token"`
}

// --- Handlers ---

// Register handles POST /api/v1/auth/register
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	account, token, err := h.service.Register(r.Context(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusCreated, AuthResponse{Account: account, Token: token})
}

// Login handles POST /api/v1/auth/login
func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	account, token, err := h.service.Login(r.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, AuthResponse{Account: account, Token: token})
}

// Me handles GET /api/v1/auth/me
func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	account, err := h.service.Profile(r.Context(), middleware.AccountIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, account)
}

// UpdateMe handles PUT /api/v1/auth/me
func (h *AccountHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	account, err := h.service.UpdateProfile(r.Context(), middleware.AccountIDFromContext(r.Context()), service.UpdateProfileInput{
		Name:  req.Name,
		Email: req.Email,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, account)
}

// ChangePassword handles PUT /api/v1/auth/password
func (h *AccountHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	err := h.service.ChangePassword(r.Context(), middleware.AccountIDFromContext(r.Context()), req.CurrentPassword, req.NewPassword)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteMessage(w, http.StatusOK, "password changed")
}

// DeleteMe handles DELETE /api/v1/auth/me
func (h *AccountHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteAccount(r.Context(), middleware.AccountIDFromContext(r.Context())); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteMessage(w, http.StatusOK, "account deleted")
}
