package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/yourorg/centerattend/internal/domain"
	"github.com/yourorg/centerattend/internal/security/middleware"
	"github.com/yourorg/centerattend/internal/service"
)

// CenterHandler handles the center directory endpoints
type CenterHandler struct {
	directory *service.DirectoryService
	logger    *slog.Logger
}

// NewCenterHandler creates a new center handler
func NewCenterHandler(directory *service.DirectoryService, logger *slog.Logger) *CenterHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &CenterHandler{
		directory: directory,
		logger:    logger,
	}
}

// CenterRequest carries center create/update fields
type CenterRequest struct {
	Code         string `json:"code" validate:"required"`
	Name         string `json:"name" validate:"required"`
	Town         string `json:"town,omitempty"`
	City         string `json:"city,omitempty"`
	InchargeCode string `json:"inchargeCode,omitempty"`
}

// ListPublic handles GET /api/centers/public. No auth; registration forms
// need the center list before the caller has an account.
func (h *CenterHandler) ListPublic(w http.ResponseWriter, r *http.Request) {
	centers, err := h.directory.ListCentersPublic()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, centers)
}

// List handles GET /api/centers
func (h *CenterHandler) List(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccountFromContext(r.Context())

	centers, err := h.directory.ListCenters(account)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, centers)
}

// Get handles GET /api/centers/{id}
func (h *CenterHandler) Get(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccountFromContext(r.Context())

	center, err := h.directory.GetCenter(account, r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, center)
}

// Create handles POST /api/centers
func (h *CenterHandler) Create(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccountFromContext(r.Context())

	var req CenterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	center := &domain.Center{
		Code:         req.Code,
		Name:         req.Name,
		Town:         req.Town,
		City:         req.City,
		InchargeCode: req.InchargeCode,
	}
	if err := h.directory.CreateCenter(account, center); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, center)
}

// Update handles PUT /api/centers/{id}
func (h *CenterHandler) Update(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccountFromContext(r.Context())

	var req CenterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	center, err := h.directory.GetCenter(account, r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	center.Code = req.Code
	center.Name = req.Name
	center.Town = req.Town
	center.City = req.City
	center.InchargeCode = req.InchargeCode
	if err := h.directory.UpdateCenter(account, center); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, center)
}

// Delete handles DELETE /api/centers/{id}
func (h *CenterHandler) Delete(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccountFromContext(r.Context())

	if err := h.directory.DeleteCenter(account, r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}

	h.logger.Info("center deleted", slog.String("center_id", r.PathValue("id")))
	w.WriteHeader(http.StatusNoContent)
}
