package service

import (
	"context"
	"log/slog"

	"github.com/yourorg/centerattend/internal/domain"
	"github.com/yourorg/centerattend/internal/security"
)

// DirectoryService manages the center, instructor and student directories.
// Read operations are scoped by the policy engine; management operations are
// admin only except where noted.
type DirectoryService struct {
	centers     domain.CenterRepository
	instructors domain.InstructorRepository
	students    domain.StudentRepository
	resolver    *ProfileResolver
	policy      *security.PolicyEngine
	logger      *slog.Logger
}

// NewDirectoryService creates a new directory service.
func NewDirectoryService(
	centers domain.CenterRepository,
	instructors domain.InstructorRepository,
	students domain.StudentRepository,
	resolver *ProfileResolver,
	policy *security.PolicyEngine,
	logger *slog.Logger,
) *DirectoryService {
	if logger == nil {
		logger = slog.Default()
	}

	return &DirectoryService{
		centers:     centers,
		instructors: instructors,
		students:    students,
		resolver:    resolver,
		policy:      policy,
		logger:      logger,
	}
}

// ListCentersPublic returns all centers without authentication. Registration
// forms need the center list before the caller has an account.
func (s *DirectoryService) ListCentersPublic() ([]*domain.Center, error) {
	return s.centers.List()
}

// ListCenters returns all centers visible to the caller.
func (s *DirectoryService) ListCenters(caller *domain.Account) ([]*domain.Center, error) {
	if _, err := s.policy.ComputeScope(caller, security.OpReadCenters); err != nil {
		return nil, err
	}
	return s.centers.List()
}

// GetCenter returns one center by ID.
func (s *DirectoryService) GetCenter(caller *domain.Account, id string) (*domain.Center, error) {
	if _, err := s.policy.ComputeScope(caller, security.OpReadCenters); err != nil {
		return nil, err
	}
	return s.centers.GetByID(id)
}

// CreateCenter registers a new center. Admin only.
func (s *DirectoryService) CreateCenter(caller *domain.Account, center *domain.Center) error {
	if _, err := s.policy.ComputeScope(caller, security.OpManageCenters); err != nil {
		return err
	}
	if center.Code == "" {
		return &domain.ValidationError{Field: "code", Message: "required"}
	}
	if center.Name == "" {
		return &domain.ValidationError{Field: "name", Message: "required"}
	}

	if err := s.centers.Create(center); err != nil {
		return err
	}

	s.logger.Info("center created",
		slog.String("center_id", center.ID),
		slog.String("code", center.Code),
	)
	return nil
}

// UpdateCenter updates a center's details. Admin only.
func (s *DirectoryService) UpdateCenter(caller *domain.Account, center *domain.Center) error {
	if _, err := s.policy.ComputeScope(caller, security.OpManageCenters); err != nil {
		return err
	}
	return s.centers.Update(center)
}

// DeleteCenter removes a center. Admin only.
func (s *DirectoryService) DeleteCenter(caller *domain.Account, id string) error {
	if _, err := s.policy.ComputeScope(caller, security.OpManageCenters); err != nil {
		return err
	}
	return s.centers.Delete(id)
}

// ListInstructors returns the instructor directory. Center-scoped callers
// only see instructors assigned to their center.
func (s *DirectoryService) ListInstructors(caller *domain.Account, centerID string) ([]*domain.Instructor, error) {
	scope, err := s.policy.ComputeScope(caller, security.OpReadInstructors)
	if err != nil {
		return nil, err
	}
	if scope.Kind == security.ScopeCenter {
		centerID = scope.CenterID
	}
	return s.instructors.List(centerID)
}

// GetInstructor returns one instructor by ID.
func (s *DirectoryService) GetInstructor(caller *domain.Account, id string) (*domain.Instructor, error) {
	if _, err := s.policy.ComputeScope(caller, security.OpReadInstructors); err != nil {
		return nil, err
	}
	return s.instructors.GetByID(id)
}

// AssignInstructorCenter moves an instructor to a center. Admin only. The
// cached external-ID resolution is dropped so the next mark sees the new
// center.
func (s *DirectoryService) AssignInstructorCenter(ctx context.Context, caller *domain.Account, instructorID, centerID string) (*domain.Instructor, error) {
	if _, err := s.policy.ComputeScope(caller, security.OpManageInstructors); err != nil {
		return nil, err
	}

	instructor, err := s.instructors.GetByID(instructorID)
	if err != nil {
		return nil, err
	}
	if centerID != "" {
		if _, err := s.centers.GetByID(centerID); err != nil {
			return nil, err
		}
	}

	instructor.CenterID = centerID
	if err := s.instructors.Update(instructor); err != nil {
		return nil, err
	}
	s.resolver.InvalidateExternalID(ctx, domain.KindInstructor, instructor.ExternalID)

	s.logger.Info("instructor assigned to center",
		slog.String("instructor_id", instructorID),
		slog.String("center_id", centerID),
	)
	return instructor, nil
}

// ListStudents returns the student directory. Center-scoped callers only see
// their own center's students.
func (s *DirectoryService) ListStudents(caller *domain.Account, centerID string) ([]*domain.Student, error) {
	scope, err := s.policy.ComputeScope(caller, security.OpReadStudents)
	if err != nil {
		return nil, err
	}
	if scope.Kind == security.ScopeCenter {
		centerID = scope.CenterID
	}
	return s.students.List(centerID)
}

// GetStudent returns one student by ID.
func (s *DirectoryService) GetStudent(caller *domain.Account, id string) (*domain.Student, error) {
	if _, err := s.policy.ComputeScope(caller, security.OpReadStudents); err != nil {
		return nil, err
	}
	return s.students.GetByID(id)
}

// UpdateStudent updates a student profile. Admin only.
func (s *DirectoryService) UpdateStudent(ctx context.Context, caller *domain.Account, student *domain.Student) error {
	if _, err := s.policy.ComputeScope(caller, security.OpManageStudents); err != nil {
		return err
	}
	if student.CenterID != "" {
		if _, err := s.centers.GetByID(student.CenterID); err != nil {
			return err
		}
	}
	if err := s.students.Update(student); err != nil {
		return err
	}
	s.resolver.InvalidateExternalID(ctx, domain.KindStudent, student.ExternalID)
	return nil
}

// DeleteStudent removes a student profile. Admin only.
func (s *DirectoryService) DeleteStudent(ctx context.Context, caller *domain.Account, id string) error {
	if _, err := s.policy.ComputeScope(caller, security.OpManageStudents); err != nil {
		return err
	}

	student, err := s.students.GetByID(id)
	if err != nil {
		return err
	}
	if err := s.students.Delete(id); err != nil {
		return err
	}
	s.resolver.InvalidateExternalID(ctx, domain.KindStudent, student.ExternalID)

	s.logger.Info("student deleted",
		slog.String("student_id", id),
		slog.String("external_id", student.ExternalID),
	)
	return nil
}
