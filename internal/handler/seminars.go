package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/yourorg/centerattend/internal/domain"
	"github.com/yourorg/centerattend/internal/security/middleware"
	"github.com/yourorg/centerattend/internal/service"
)

// SeminarHandler handles the seminar scheduling endpoints
type SeminarHandler struct {
	seminars *service.SeminarService
	logger   *slog.Logger
}

// NewSeminarHandler creates a new seminar handler
func NewSeminarHandler(seminars *service.SeminarService, logger *slog.Logger) *SeminarHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &SeminarHandler{
		seminars: seminars,
		logger:   logger,
	}
}

// SeminarRequest carries seminar create/update fields
type SeminarRequest struct {
	Title        string `json:"title" validate:"required"`
	Description  string `json:"description,omitempty"`
	Date         string `json:"date" validate:"required"`
	CenterID     string `json:"centerId,omitempty"`
	InstructorID string `json:"instructorId,omitempty"`
	Status       string `json:"status,omitempty"`
}

func (req SeminarRequest) toSeminar() (*domain.Seminar, error) {
	date, err := time.Parse(time.RFC3339, req.Date)
	if err != nil {
		// Accept a bare day as well
		date, err = time.Parse(time.DateOnly, req.Date)
		if err != nil {
			return nil, &domain.ValidationError{Field: "date", Message: "must be RFC 3339 or YYYY-MM-DD"}
		}
	}

	return &domain.Seminar{
		Title:        req.Title,
		Description:  req.Description,
		Date:         date,
		CenterID:     req.CenterID,
		InstructorID: req.InstructorID,
		Status:       domain.SeminarStatus(req.Status),
	}, nil
}

// List handles GET /api/seminars with an optional centerId filter
func (h *SeminarHandler) List(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccountFromContext(r.Context())

	seminars, err := h.seminars.List(account, r.URL.Query().Get("centerId"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, seminars)
}

// Get handles GET /api/seminars/{id}
func (h *SeminarHandler) Get(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccountFromContext(r.Context())

	seminar, err := h.seminars.Get(account, r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, seminar)
}

// Create handles POST /api/seminars
func (h *SeminarHandler) Create(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccountFromContext(r.Context())

	var req SeminarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	seminar, err := req.toSeminar()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.seminars.Create(account, seminar); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, seminar)
}

// Update handles PUT /api/seminars/{id}
func (h *SeminarHandler) Update(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccountFromContext(r.Context())

	var req SeminarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	existing, err := h.seminars.Get(account, r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	updated, err := req.toSeminar()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	updated.ID = existing.ID
	if updated.Status == "" {
		updated.Status = existing.Status
	}
	if err := h.seminars.Update(account, updated); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/seminars/{id}
func (h *SeminarHandler) Delete(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccountFromContext(r.Context())

	if err := h.seminars.Delete(account, r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}

	h.logger.Info("seminar deleted", slog.String("seminar_id", r.PathValue("id")))
	w.WriteHeader(http.StatusNoContent)
}
