package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/yourorg/centerattend/internal/domain"
	"github.com/yourorg/centerattend/internal/observability/metrics"
	"github.com/yourorg/centerattend/internal/security/middleware"
	"github.com/yourorg/centerattend/internal/service"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService *service.AuthService
	resolver    *service.ProfileResolver
	logger      *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, resolver *service.ProfileResolver, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &AuthHandler{
		authService: authService,
		resolver:    resolver,
		logger:      logger,
	}
}

// RegisterInstructor handles POST /api/auth/register/instructor
func (h *AuthHandler) RegisterInstructor(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterInstructorInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode register request", slog.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	result, err := h.authService.RegisterInstructor(req)
	if err != nil {
		metrics.ObserveRegistration("instructor", "failed")
		h.logger.Info("instructor registration failed",
			slog.String("external_id", req.ExternalID),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	metrics.ObserveRegistration("instructor", "ok")
	writeJSON(w, http.StatusCreated, result)
}

// RegisterStudent handles POST /api/auth/register/student
func (h *AuthHandler) RegisterStudent(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterStudentInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode register request", slog.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	result, err := h.authService.RegisterStudent(req)
	if err != nil {
		metrics.ObserveRegistration("student", "failed")
		h.logger.Info("student registration failed",
			slog.String("external_id", req.ExternalID),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	metrics.ObserveRegistration("student", "ok")
	writeJSON(w, http.StatusCreated, result)
}

// LoginRequest represents login credentials
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode login request", slog.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	result, err := h.authService.Login(req.Username, req.Password)
	if err != nil {
		metrics.ObserveLogin("failed")
		// Generic error to prevent account enumeration
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	metrics.ObserveLogin("ok")
	h.logger.Info("user logged in",
		slog.String("account_id", result.AccountID),
		slog.String("role", string(result.Role)),
	)
	writeJSON(w, http.StatusOK, result)
}

// MeResponse echoes the caller's identity and linked profile.
type MeResponse struct {
	AccountID string                   `json:"accountId"`
	Username  string                   `json:"username"`
	Email     string                   `json:"email,omitempty"`
	Role      domain.Role              `json:"role"`
	Profile   *service.ResolvedProfile `json:"profile,omitempty"`
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccountFromContext(r.Context())
	if account == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	resp := MeResponse{
		AccountID: account.ID,
		Username:  account.Username,
		Email:     account.Email,
		Role:      account.Role,
	}
	if account.Profile != nil {
		profile, err := h.resolver.Resolve(*account.Profile)
		if err != nil {
			h.logger.Warn("profile resolution failed",
				slog.String("account_id", account.ID),
				slog.String("error", err.Error()),
			)
		} else {
			resp.Profile = profile
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// ChangePasswordRequest represents change password request
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8"`
}

// ChangePassword handles POST /api/auth/password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccountFromContext(r.Context())
	if account == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	if err := h.authService.ChangePassword(account.ID, req.OldPassword, req.NewPassword); err != nil {
		writeDomainError(w, err)
		return
	}

	h.logger.Info("password changed", slog.String("account_id", account.ID))
	writeJSON(w, http.StatusOK, map[string]string{"message": "password changed"})
}

// LinkRequest binds an admin-created profile to the caller's own account.
type LinkRequest struct {
	Kind      string `json:"kind" validate:"required"`
	ProfileID string `json:"profileId" validate:"required"`
}

// Link handles POST /api/auth/link. The target account is always the
// session's own; linking profiles to other accounts is not supported.
func (h *AuthHandler) Link(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccountFromContext(r.Context())
	if account == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req LinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	kind := domain.ProfileKind(req.Kind)
	if !kind.Valid() {
		writeError(w, http.StatusBadRequest, "kind must be center, instructor or student")
		return
	}

	ref := domain.ProfileRef{Kind: kind, ID: req.ProfileID}
	if err := h.authService.CompleteRegistration(account.Username, ref); err != nil {
		writeDomainError(w, err)
		return
	}

	h.logger.Info("profile linked",
		slog.String("account_id", account.ID),
		slog.String("profile_id", req.ProfileID),
	)
	writeJSON(w, http.StatusOK, map[string]string{"message": "profile linked"})
}
