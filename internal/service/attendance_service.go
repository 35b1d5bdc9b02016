package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/yourorg/centerattend/internal/domain"
	"github.com/yourorg/centerattend/internal/observability/metrics"
	"github.com/yourorg/centerattend/internal/security"
)

// Broadcaster receives successfully persisted attendance records, e.g. to
// push them to live websocket subscribers. Implementations must not block.
type Broadcaster interface {
	Broadcast(record *domain.AttendanceRecord)
}

// MarkInput is one attendance mark addressed by external ID.
type MarkInput struct {
	Date              time.Time
	Kind              domain.ProfileKind
	SubjectExternalID string
	CenterCode        string
	Status            domain.AttendanceStatus
	Notes             string
}

// BulkRecord is one entry of a bulk submission, kept verbatim so failures
// can echo it back.
type BulkRecord struct {
	Date              string `json:"date"`
	SubjectExternalID string `json:"subjectExternalId"`
	CenterCode        string `json:"centerCode,omitempty"`
	Status            string `json:"status,omitempty"`
	Notes             string `json:"notes,omitempty"`
}

// BulkFailure pairs a rejected record with the reason it was rejected.
type BulkFailure struct {
	Record BulkRecord `json:"record"`
	Reason string     `json:"reason"`
}

// BulkResult summarizes a batch. Bulk ingestion is best-effort: partial
// application is the designed outcome, never a failure mode.
type BulkResult struct {
	Succeeded []*domain.AttendanceRecord `json:"succeeded"`
	Failed    []BulkFailure              `json:"failed"`
}

// AttendanceService is the attendance ledger and bulk recorder. The
// one-record-per-(date, subject) invariant is owned by the storage layer's
// unique constraint; this service only adds the fast-path existence check,
// external-ID resolution, and role scoping.
type AttendanceService struct {
	records  domain.AttendanceRepository
	centers  domain.CenterRepository
	resolver *ProfileResolver
	policy   *security.PolicyEngine
	feed     Broadcaster
	logger   *slog.Logger
}

// NewAttendanceService creates a new attendance service. feed may be nil.
func NewAttendanceService(
	records domain.AttendanceRepository,
	centers domain.CenterRepository,
	resolver *ProfileResolver,
	policy *security.PolicyEngine,
	feed Broadcaster,
	logger *slog.Logger,
) *AttendanceService {
	if logger == nil {
		logger = slog.Default()
	}

	return &AttendanceService{
		records:  records,
		centers:  centers,
		resolver: resolver,
		policy:   policy,
		feed:     feed,
		logger:   logger,
	}
}

// MarkOne records presence for one subject on one day. A second mark for the
// same (date, subject) fails with a DuplicateError and never mutates; under
// concurrency the storage unique constraint picks exactly one winner.
func (s *AttendanceService) MarkOne(ctx context.Context, caller *domain.Account, in MarkInput) (*domain.AttendanceRecord, error) {
	scope, err := s.policy.ComputeScope(caller, security.OpMarkAttendance)
	if err != nil {
		return nil, err
	}

	if !in.Status.Valid() {
		metrics.ObserveMark("invalid")
		return nil, &domain.ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", in.Status)}
	}
	if in.Date.IsZero() {
		metrics.ObserveMark("invalid")
		return nil, &domain.ValidationError{Field: "date", Message: "required"}
	}

	subject, err := s.resolver.FindByExternalID(ctx, in.Kind, in.SubjectExternalID)
	if err != nil {
		metrics.ObserveMark("not_found")
		return nil, err
	}

	centerID := subject.CenterID
	if in.CenterCode != "" {
		center, err := s.centers.GetByCode(in.CenterCode)
		if err != nil {
			metrics.ObserveMark("not_found")
			return nil, err
		}
		centerID = center.ID
	}
	if centerID == "" {
		metrics.ObserveMark("invalid")
		return nil, &domain.ValidationError{Field: "centerCode", Message: "subject has no center assignment; a center code is required"}
	}

	// Center-scoped recorders may only mark within their own center.
	if scope.Kind == security.ScopeCenter && centerID != scope.CenterID {
		metrics.ObserveMark("forbidden")
		return nil, domain.ErrForbidden
	}

	date := domain.DateOnly(in.Date)

	// Fast path: fail before the insert attempt when a record already
	// exists. Correctness does not depend on this check.
	if exists, err := s.records.Exists(date, subject.Ref); err == nil && exists {
		metrics.ObserveMark("duplicate")
		return nil, &domain.DuplicateError{
			Resource: "attendance",
			Key:      fmt.Sprintf("%s %s on %s", subject.Ref.Kind, in.SubjectExternalID, date.Format(time.DateOnly)),
		}
	}

	record := &domain.AttendanceRecord{
		Date:     date,
		Subject:  subject.Ref,
		CenterID: centerID,
		Status:   in.Status,
		MarkedBy: caller.ID,
		Notes:    in.Notes,
	}
	if err := s.records.Insert(record); err != nil {
		if domain.IsDuplicate(err) {
			metrics.ObserveMark("duplicate")
		} else {
			metrics.ObserveMark("error")
		}
		return nil, err
	}

	metrics.ObserveMark("ok")
	s.logger.Info("attendance marked",
		slog.String("record_id", record.ID),
		slog.String("subject", in.SubjectExternalID),
		slog.String("date", date.Format(time.DateOnly)),
		slog.String("status", string(record.Status)),
	)

	if s.feed != nil {
		s.feed.Broadcast(record)
	}

	return record, nil
}

// MarkBulk processes records independently, in input order. Per-record
// failures (unknown external ID, duplicate day, bad input) are captured into
// the summary and never abort the batch; the batch as a whole always
// succeeds.
func (s *AttendanceService) MarkBulk(ctx context.Context, caller *domain.Account, kind domain.ProfileKind, records []BulkRecord) (*BulkResult, error) {
	if _, err := s.policy.ComputeScope(caller, security.OpMarkAttendance); err != nil {
		return nil, err
	}

	result := &BulkResult{
		Succeeded: []*domain.AttendanceRecord{},
		Failed:    []BulkFailure{},
	}

	for _, rec := range records {
		in, err := rec.toMarkInput(kind)
		if err == nil {
			var record *domain.AttendanceRecord
			record, err = s.MarkOne(ctx, caller, in)
			if err == nil {
				result.Succeeded = append(result.Succeeded, record)
				metrics.ObserveBulkRecord("ok")
				continue
			}
		}
		result.Failed = append(result.Failed, BulkFailure{Record: rec, Reason: err.Error()})
		metrics.ObserveBulkRecord("failed")
	}

	s.logger.Info("bulk attendance processed",
		slog.Int("submitted", len(records)),
		slog.Int("created", len(result.Succeeded)),
		slog.Int("failed", len(result.Failed)),
	)

	return result, nil
}

func (rec BulkRecord) toMarkInput(kind domain.ProfileKind) (MarkInput, error) {
	date, err := time.Parse(time.DateOnly, rec.Date)
	if err != nil {
		return MarkInput{}, &domain.ValidationError{Field: "date", Message: fmt.Sprintf("invalid date %q, want YYYY-MM-DD", rec.Date)}
	}

	status := domain.AttendanceStatus(rec.Status)
	if rec.Status == "" {
		status = domain.StatusPresent
	}

	return MarkInput{
		Date:              date,
		Kind:              kind,
		SubjectExternalID: rec.SubjectExternalID,
		CenterCode:        rec.CenterCode,
		Status:            status,
		Notes:             rec.Notes,
	}, nil
}

// ListFor returns attendance records visible to the caller. The caller's
// scope overwrites the supplied filter: instructors and students only ever
// see themselves, center accounts only their center, admins everything.
func (s *AttendanceService) ListFor(caller *domain.Account, filter domain.AttendanceFilter) ([]*domain.AttendanceRecord, error) {
	scope, err := s.policy.ComputeScope(caller, security.OpReadAttendance)
	if err != nil {
		return nil, err
	}

	return s.records.List(scope.Narrow(filter))
}

// Get returns one record if the caller's scope covers it.
func (s *AttendanceService) Get(caller *domain.Account, id string) (*domain.AttendanceRecord, error) {
	scope, err := s.policy.ComputeScope(caller, security.OpReadAttendance)
	if err != nil {
		return nil, err
	}

	record, err := s.records.GetByID(id)
	if err != nil {
		return nil, err
	}

	switch scope.Kind {
	case security.ScopeCenter:
		if record.CenterID != scope.CenterID {
			return nil, domain.ErrForbidden
		}
	case security.ScopeSelf:
		if scope.Subject == nil || record.Subject != *scope.Subject {
			return nil, domain.ErrForbidden
		}
	}

	return record, nil
}

// UpdateStatus corrects a record's status. Permitted for admin and center
// roles; center accounts can only touch records at their own center.
func (s *AttendanceService) UpdateStatus(caller *domain.Account, id string, status domain.AttendanceStatus, notes string) (*domain.AttendanceRecord, error) {
	scope, err := s.policy.ComputeScope(caller, security.OpUpdateAttendance)
	if err != nil {
		return nil, err
	}

	if !status.Valid() {
		return nil, &domain.ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", status)}
	}

	if scope.Kind == security.ScopeCenter {
		record, err := s.records.GetByID(id)
		if err != nil {
			return nil, err
		}
		if record.CenterID != scope.CenterID {
			return nil, domain.ErrForbidden
		}
	}

	return s.records.UpdateStatus(id, status, notes)
}

// Delete removes a record. Admin only.
func (s *AttendanceService) Delete(caller *domain.Account, id string) error {
	if _, err := s.policy.ComputeScope(caller, security.OpDeleteAttendance); err != nil {
		return err
	}

	return s.records.Delete(id)
}
