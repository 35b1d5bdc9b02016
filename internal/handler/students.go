package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/yourorg/centerattend/internal/security/middleware"
	"github.com/yourorg/centerattend/internal/service"
)

// StudentHandler handles the student directory endpoints
type StudentHandler struct {
	directory *service.DirectoryService
	logger    *slog.Logger
}

// NewStudentHandler creates a new student handler
func NewStudentHandler(directory *service.DirectoryService, logger *slog.Logger) *StudentHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &StudentHandler{
		directory: directory,
		logger:    logger,
	}
}

// List handles GET /api/students with an optional centerId filter
func (h *StudentHandler) List(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccountFromContext(r.Context())

	students, err := h.directory.ListStudents(account, r.URL.Query().Get("centerId"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, students)
}

// Get handles GET /api/students/{id}
func (h *StudentHandler) Get(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccountFromContext(r.Context())

	student, err := h.directory.GetStudent(account, r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, student)
}

// StudentUpdateRequest carries editable student profile fields
type StudentUpdateRequest struct {
	Name       string `json:"name" validate:"required"`
	AgeOrGrade string `json:"ageOrGrade,omitempty"`
	Gender     string `json:"gender,omitempty" validate:"omitempty,oneof=Male Female"`
	CenterID   string `json:"centerId,omitempty"`
}

// Update handles PUT /api/students/{id}
func (h *StudentHandler) Update(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccountFromContext(r.Context())

	var req StudentUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	student, err := h.directory.GetStudent(account, r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	student.Name = req.Name
	if req.AgeOrGrade != "" {
		student.AgeOrGrade = req.AgeOrGrade
	}
	if req.Gender != "" {
		student.Gender = req.Gender
	}
	if req.CenterID != "" {
		student.CenterID = req.CenterID
	}
	if err := h.directory.UpdateStudent(r.Context(), account, student); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, student)
}

// Delete handles DELETE /api/students/{id}
func (h *StudentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccountFromContext(r.Context())

	if err := h.directory.DeleteStudent(r.Context(), account, r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
