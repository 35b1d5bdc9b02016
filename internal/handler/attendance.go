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

// AttendanceHandler handles the attendance ledger endpoints
type AttendanceHandler struct {
	attendance *service.AttendanceService
	logger     *slog.Logger
}

// NewAttendanceHandler creates a new attendance handler
func NewAttendanceHandler(attendance *service.AttendanceService, logger *slog.Logger) *AttendanceHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &AttendanceHandler{
		attendance: attendance,
		logger:     logger,
	}
}

// MarkRequest represents a single attendance mark
type MarkRequest struct {
	Date              string `json:"date" validate:"required"`
	SubjectExternalID string `json:"subjectExternalId" validate:"required"`
	CenterCode        string `json:"centerCode,omitempty"`
	Status            string `json:"status,omitempty"`
	Notes             string `json:"notes,omitempty"`
}

// RecordResponse is the wire form of one attendance record
type RecordResponse struct {
	ID        string    `json:"id"`
	Date      string    `json:"date"`
	Kind      string    `json:"kind"`
	SubjectID string    `json:"subjectId"`
	CenterID  string    `json:"centerId"`
	Status    string    `json:"status"`
	MarkedBy  string    `json:"markedBy"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toRecordResponse(rec *domain.AttendanceRecord) RecordResponse {
	return RecordResponse{
		ID:        rec.ID,
		Date:      rec.Date.Format(time.DateOnly),
		Kind:      string(rec.Subject.Kind),
		SubjectID: rec.Subject.ID,
		CenterID:  rec.CenterID,
		Status:    string(rec.Status),
		MarkedBy:  rec.MarkedBy,
		Notes:     rec.Notes,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
}

// MarkStudent handles POST /api/attendance/student
func (h *AttendanceHandler) MarkStudent(w http.ResponseWriter, r *http.Request) {
	h.markOne(w, r, domain.KindStudent)
}

// MarkInstructor handles POST /api/attendance/instructor
func (h *AttendanceHandler) MarkInstructor(w http.ResponseWriter, r *http.Request) {
	h.markOne(w, r, domain.KindInstructor)
}

func (h *AttendanceHandler) markOne(w http.ResponseWriter, r *http.Request, kind domain.ProfileKind) {
	account := middleware.GetAccountFromContext(r.Context())

	var req MarkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode mark request", slog.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	date, err := time.Parse(time.DateOnly, req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	status := domain.AttendanceStatus(req.Status)
	if req.Status == "" {
		status = domain.StatusPresent
	}

	record, err := h.attendance.MarkOne(r.Context(), account, service.MarkInput{
		Date:              date,
		Kind:              kind,
		SubjectExternalID: req.SubjectExternalID,
		CenterCode:        req.CenterCode,
		Status:            status,
		Notes:             req.Notes,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toRecordResponse(record))
}

// BulkRequest represents a bulk attendance submission
type BulkRequest struct {
	Kind    string               `json:"kind" validate:"required"`
	Records []service.BulkRecord `json:"records" validate:"required,min=1"`
}

// BulkResponse summarizes a bulk submission
type BulkResponse struct {
	Created   int                   `json:"created"`
	FailedNum int                   `json:"failedCount"`
	Succeeded []RecordResponse      `json:"succeeded"`
	Failed    []service.BulkFailure `json:"failed"`
}

// MarkBulk handles POST /api/attendance/bulk. The batch always answers 201:
// per-record failures are data in the summary, not an HTTP error.
func (h *AttendanceHandler) MarkBulk(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccountFromContext(r.Context())

	var req BulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode bulk request", slog.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	kind := domain.ProfileKind(req.Kind)
	if kind != domain.KindStudent && kind != domain.KindInstructor {
		writeError(w, http.StatusBadRequest, "kind must be student or instructor")
		return
	}

	result, err := h.attendance.MarkBulk(r.Context(), account, kind, req.Records)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := BulkResponse{
		Created:   len(result.Succeeded),
		FailedNum: len(result.Failed),
		Succeeded: make([]RecordResponse, 0, len(result.Succeeded)),
		Failed:    result.Failed,
	}
	for _, rec := range result.Succeeded {
		resp.Succeeded = append(resp.Succeeded, toRecordResponse(rec))
	}

	writeJSON(w, http.StatusCreated, resp)
}

// List handles GET /api/attendance with optional date, kind, subjectId and
// centerId query filters. The caller's scope prunes whatever the query asks
// for.
func (h *AttendanceHandler) List(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccountFromContext(r.Context())

	filter, err := filterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	records, err := h.attendance.ListFor(account, filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := make([]RecordResponse, 0, len(records))
	for _, rec := range records {
		resp = append(resp, toRecordResponse(rec))
	}
	writeJSON(w, http.StatusOK, resp)
}

// My handles GET /api/attendance/my. Identical to List; self-scoped roles
// land on the same narrowed query either way, this is just the friendlier
// route.
func (h *AttendanceHandler) My(w http.ResponseWriter, r *http.Request) {
	h.List(w, r)
}

// Get handles GET /api/attendance/{id}
func (h *AttendanceHandler) Get(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccountFromContext(r.Context())

	record, err := h.attendance.Get(account, r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordResponse(record))
}

// UpdateStatusRequest corrects a record's status
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Notes  string `json:"notes,omitempty"`
}

// Update handles PUT /api/attendance/{id}
func (h *AttendanceHandler) Update(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccountFromContext(r.Context())

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	record, err := h.attendance.UpdateStatus(account, r.PathValue("id"), domain.AttendanceStatus(req.Status), req.Notes)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordResponse(record))
}

// Delete handles DELETE /api/attendance/{id}
func (h *AttendanceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccountFromContext(r.Context())

	if err := h.attendance.Delete(account, r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}

	h.logger.Info("attendance record deleted",
		slog.String("record_id", r.PathValue("id")),
	)
	w.WriteHeader(http.StatusNoContent)
}

func filterFromQuery(r *http.Request) (domain.AttendanceFilter, error) {
	var filter domain.AttendanceFilter

	q := r.URL.Query()
	if raw := q.Get("date"); raw != "" {
		date, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return filter, &domain.ValidationError{Field: "date", Message: "must be YYYY-MM-DD"}
		}
		day := domain.DateOnly(date)
		filter.Date = &day
	}
	if kind, id := q.Get("kind"), q.Get("subjectId"); kind != "" && id != "" {
		filter.Subject = &domain.SubjectRef{Kind: domain.ProfileKind(kind), ID: id}
	}
	filter.CenterID = q.Get("centerId")

	return filter, nil
}
