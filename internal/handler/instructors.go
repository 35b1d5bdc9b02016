package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/yourorg/centerattend/internal/security/middleware"
	"github.com/yourorg/centerattend/internal/service"
)

// InstructorHandler handles the instructor directory endpoints
type InstructorHandler struct {
	directory *service.DirectoryService
	logger    *slog.Logger
}

// NewInstructorHandler creates a new instructor handler
func NewInstructorHandler(directory *service.DirectoryService, logger *slog.Logger) *InstructorHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &InstructorHandler{
		directory: directory,
		logger:    logger,
	}
}

// List handles GET /api/instructors with an optional centerId filter
func (h *InstructorHandler) List(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccountFromContext(r.Context())

	instructors, err := h.directory.ListInstructors(account, r.URL.Query().Get("centerId"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, instructors)
}

// Get handles GET /api/instructors/{id}
func (h *InstructorHandler) Get(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccountFromContext(r.Context())

	instructor, err := h.directory.GetInstructor(account, r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, instructor)
}

// AssignCenterRequest moves an instructor to a center; an empty centerId
// clears the assignment.
type AssignCenterRequest struct {
	CenterID string `json:"centerId"`
}

// AssignCenter handles PUT /api/instructors/{id}/assign-center
func (h *InstructorHandler) AssignCenter(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccountFromContext(r.Context())

	var req AssignCenterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	instructor, err := h.directory.AssignInstructorCenter(r.Context(), account, r.PathValue("id"), req.CenterID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, instructor)
}
