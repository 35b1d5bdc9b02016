package service

import (
	"log/slog"

	"github.com/yourorg/centerattend/internal/domain"
	"github.com/yourorg/centerattend/internal/security"
)

// SeminarService manages scheduled seminars. Reads are open to every role;
// management is admin only.
type SeminarService struct {
	seminars domain.SeminarRepository
	centers  domain.CenterRepository
	policy   *security.PolicyEngine
	logger   *slog.Logger
}

// NewSeminarService creates a new seminar service.
func NewSeminarService(
	seminars domain.SeminarRepository,
	centers domain.CenterRepository,
	policy *security.PolicyEngine,
	logger *slog.Logger,
) *SeminarService {
	if logger == nil {
		logger = slog.Default()
	}

	return &SeminarService{
		seminars: seminars,
		centers:  centers,
		policy:   policy,
		logger:   logger,
	}
}

// List returns seminars, optionally filtered by center.
func (s *SeminarService) List(caller *domain.Account, centerID string) ([]*domain.Seminar, error) {
	if _, err := s.policy.ComputeScope(caller, security.OpReadSeminars); err != nil {
		return nil, err
	}
	return s.seminars.List(centerID)
}

// Get returns one seminar by ID.
func (s *SeminarService) Get(caller *domain.Account, id string) (*domain.Seminar, error) {
	if _, err := s.policy.ComputeScope(caller, security.OpReadSeminars); err != nil {
		return nil, err
	}
	return s.seminars.GetByID(id)
}

// Create schedules a seminar. Admin only.
func (s *SeminarService) Create(caller *domain.Account, seminar *domain.Seminar) error {
	if _, err := s.policy.ComputeScope(caller, security.OpManageSeminars); err != nil {
		return err
	}

	if seminar.Title == "" {
		return &domain.ValidationError{Field: "title", Message: "required"}
	}
	if seminar.Date.IsZero() {
		return &domain.ValidationError{Field: "date", Message: "required"}
	}
	if seminar.Status == "" {
		seminar.Status = domain.SeminarScheduled
	}
	if !seminar.Status.Valid() {
		return &domain.ValidationError{Field: "status", Message: "must be scheduled, completed or cancelled"}
	}
	if seminar.CenterID != "" {
		if _, err := s.centers.GetByID(seminar.CenterID); err != nil {
			return err
		}
	}

	if err := s.seminars.Create(seminar); err != nil {
		return err
	}

	s.logger.Info("seminar created",
		slog.String("seminar_id", seminar.ID),
		slog.String("title", seminar.Title),
	)
	return nil
}

// Update modifies a seminar. Admin only.
func (s *SeminarService) Update(caller *domain.Account, seminar *domain.Seminar) error {
	if _, err := s.policy.ComputeScope(caller, security.OpManageSeminars); err != nil {
		return err
	}
	if !seminar.Status.Valid() {
		return &domain.ValidationError{Field: "status", Message: "must be scheduled, completed or cancelled"}
	}
	return s.seminars.Update(seminar)
}

// Delete removes a seminar. Admin only.
func (s *SeminarService) Delete(caller *domain.Account, id string) error {
	if _, err := s.policy.ComputeScope(caller, security.OpManageSeminars); err != nil {
		return err
	}
	return s.seminars.Delete(id)
}
