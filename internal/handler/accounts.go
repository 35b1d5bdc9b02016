package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/yourorg/centerattend/internal/domain"
	"github.com/yourorg/centerattend/internal/security/middleware"
	"github.com/yourorg/centerattend/internal/service"
)

// AccountHandler handles the admin account management endpoints
type AccountHandler struct {
	accounts *service.AccountService
	logger   *slog.Logger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(accounts *service.AccountService, logger *slog.Logger) *AccountHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &AccountHandler{
		accounts: accounts,
		logger:   logger,
	}
}

// AccountResponse is the API shape of an account. The password hash never
// leaves the server.
type AccountResponse struct {
	ID        string             `json:"id"`
	Username  string             `json:"username"`
	Email     string             `json:"email,omitempty"`
	Role      domain.Role        `json:"role"`
	Profile   *domain.ProfileRef `json:"profile,omitempty"`
	Active    bool               `json:"active"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

func toAccountResponse(a *domain.Account) AccountResponse {
	return AccountResponse{
		ID:        a.ID,
		Username:  a.Username,
		Email:     a.Email,
		Role:      a.Role,
		Profile:   a.Profile,
		Active:    a.Active,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// List handles GET /api/accounts with an optional role filter
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccountFromContext(r.Context())

	accounts, err := h.accounts.List(account, domain.Role(r.URL.Query().Get("role")))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]AccountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountResponse(a))
	}
	writeJSON(w, http.StatusOK, out)
}

// Get handles GET /api/accounts/{id}
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccountFromContext(r.Context())

	target, err := h.accounts.Get(account, r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountResponse(target))
}

// Deactivate handles DELETE /api/accounts/{id}
func (h *AccountHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccountFromContext(r.Context())

	if err := h.accounts.Deactivate(account, r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}

	h.logger.Info("account deactivated", slog.String("account_id", r.PathValue("id")))
	w.WriteHeader(http.StatusNoContent)
}
