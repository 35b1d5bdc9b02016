package service

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/yourorg/centerattend/internal/domain"
	"github.com/yourorg/centerattend/internal/security/auth"
	"golang.org/x/crypto/bcrypt"
)

// InstructorEmailSuffix is the institutional domain instructors must
// register with.
const InstructorEmailSuffix = "@eng.pdn.ac.lk"

// instructorIDPattern is the university format for instructor IDs, E-YY-NNN.
var instructorIDPattern = regexp.MustCompile(`^E-\d{2}-\d{3}$`)

// AuthService handles registration, credential verification, and session
// tokens. Registration is two-phase (profile, then account) because the
// store has no cross-entity transaction; a half-completed registration is
// reported as a PartialRegistrationError so the caller can resume linkage
// without re-registering credentials.
type AuthService struct {
	accounts    domain.AccountRepository
	instructors domain.InstructorRepository
	students    domain.StudentRepository
	centers     domain.CenterRepository
	tokens      *auth.TokenManager
	tokenTTL    time.Duration
	logger      *slog.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(
	accounts domain.AccountRepository,
	instructors domain.InstructorRepository,
	students domain.StudentRepository,
	centers domain.CenterRepository,
	tokens *auth.TokenManager,
	tokenTTL time.Duration,
	logger *slog.Logger,
) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	if tokenTTL <= 0 {
		tokenTTL = auth.DefaultTokenTTL
	}

	return &AuthService{
		accounts:    accounts,
		instructors: instructors,
		students:    students,
		centers:     centers,
		tokens:      tokens,
		tokenTTL:    tokenTTL,
		logger:      logger,
	}
}

// RegisterInstructorInput carries instructor self-registration fields
type RegisterInstructorInput struct {
	ExternalID string `json:"externalId" validate:"required"`
	Name       string `json:"name" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=8"`
}

// RegisterStudentInput carries student registration fields
type RegisterStudentInput struct {
	ExternalID string `json:"externalId" validate:"required"`
	Name       string `json:"name" validate:"required"`
	AgeOrGrade string `json:"ageOrGrade" validate:"required"`
	Gender     string `json:"gender" validate:"required,oneof=Male Female"`
	CenterCode string `json:"centerCode" validate:"required"`
	Password   string `json:"password" validate:"required,min=8"`
}

// RegisterResult represents registration response
type RegisterResult struct {
	AccountID string            `json:"accountId"`
	Username  string            `json:"username"`
	Role      domain.Role       `json:"role"`
	Profile   domain.ProfileRef `json:"profile"`
}

// LoginResult represents login response
type LoginResult struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	AccountID string      `json:"accountId"`
	Username  string      `json:"username"`
	Role      domain.Role `json:"role"`
}

// RegisterInstructor creates an instructor profile and its login account.
func (s *AuthService) RegisterInstructor(in RegisterInstructorInput) (*RegisterResult, error) {
	if !instructorIDPattern.MatchString(in.ExternalID) {
		return nil, &domain.ValidationError{Field: "externalId", Message: "must match E-YY-NNN"}
	}
	if !strings.HasSuffix(in.Email, InstructorEmailSuffix) {
		return nil, &domain.ValidationError{Field: "email", Message: "only " + InstructorEmailSuffix + " addresses are allowed for instructors"}
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}

	instructor := &domain.Instructor{
		ExternalID: in.ExternalID,
		Name:       in.Name,
		Email:      in.Email,
	}
	if err := s.instructors.Create(instructor); err != nil {
		if !domain.IsDuplicate(err) {
			return nil, err
		}
		// The external ID is taken. If it belongs to an orphaned profile
		// from an earlier half-failed registration and the submitted fields
		// match, adopt it and retry the account half instead of burning the
		// ID forever.
		orphan, ok := s.orphanedInstructor(in)
		if !ok {
			return nil, err
		}
		instructor = orphan
		s.logger.Info("resuming partial instructor registration",
			slog.String("external_id", in.ExternalID),
			slog.String("profile_id", instructor.ID),
		)
	}

	ref := domain.ProfileRef{Kind: domain.KindInstructor, ID: instructor.ID}
	account, err := s.createAccount(in.Email, in.Email, in.Password, domain.RoleInstructor, &ref)
	if err != nil {
		// Phase two failed: the profile exists but has no account. Surface
		// both halves so the caller can resume via CompleteRegistration.
		s.logger.Error("instructor account creation failed after profile creation",
			slog.String("external_id", in.ExternalID),
			slog.String("error", err.Error()),
		)
		return nil, &domain.PartialRegistrationError{ProfileID: instructor.ID, Cause: err}
	}

	s.logger.Info("instructor registered",
		slog.String("account_id", account.ID),
		slog.String("external_id", in.ExternalID),
	)

	return &RegisterResult{
		AccountID: account.ID,
		Username:  account.Username,
		Role:      account.Role,
		Profile:   ref,
	}, nil
}

// RegisterStudent creates a student profile and its login account. The
// student's credential handle is the external ID.
func (s *AuthService) RegisterStudent(in RegisterStudentInput) (*RegisterResult, error) {
	if in.ExternalID == "" {
		return nil, &domain.ValidationError{Field: "externalId", Message: "required"}
	}
	if in.Gender != domain.GenderMale && in.Gender != domain.GenderFemale {
		return nil, &domain.ValidationError{Field: "gender", Message: "must be Male or Female"}
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}

	center, err := s.centers.GetByCode(in.CenterCode)
	if err != nil {
		return nil, err
	}

	student := &domain.Student{
		ExternalID: in.ExternalID,
		Name:       in.Name,
		AgeOrGrade: in.AgeOrGrade,
		Gender:     in.Gender,
		CenterID:   center.ID,
	}
	if err := s.students.Create(student); err != nil {
		if !domain.IsDuplicate(err) {
			return nil, err
		}
		orphan, ok := s.orphanedStudent(in, center.ID)
		if !ok {
			return nil, err
		}
		student = orphan
		s.logger.Info("resuming partial student registration",
			slog.String("external_id", in.ExternalID),
			slog.String("profile_id", student.ID),
		)
	}

	ref := domain.ProfileRef{Kind: domain.KindStudent, ID: student.ID}
	account, err := s.createAccount(in.ExternalID, "", in.Password, domain.RoleStudent, &ref)
	if err != nil {
		s.logger.Error("student account creation failed after profile creation",
			slog.String("external_id", in.ExternalID),
			slog.String("error", err.Error()),
		)
		return nil, &domain.PartialRegistrationError{ProfileID: student.ID, Cause: err}
	}

	s.logger.Info("student registered",
		slog.String("account_id", account.ID),
		slog.String("external_id", in.ExternalID),
	)

	return &RegisterResult{
		AccountID: account.ID,
		Username:  account.Username,
		Role:      account.Role,
		Profile:   ref,
	}, nil
}

// orphanedInstructor finds an instructor profile with this external ID that
// has no account bound to it and whose fields match the submission. Such a
// profile is the leftover of a registration whose account half failed, and
// the resubmitting caller is allowed to claim it.
func (s *AuthService) orphanedInstructor(in RegisterInstructorInput) (*domain.Instructor, bool) {
	existing, err := s.instructors.GetByExternalID(in.ExternalID)
	if err != nil {
		return nil, false
	}
	if existing.Name != in.Name || existing.Email != in.Email {
		return nil, false
	}
	ref := domain.ProfileRef{Kind: domain.KindInstructor, ID: existing.ID}
	if _, err := s.accounts.GetByProfile(ref); err == nil {
		return nil, false
	}
	return existing, true
}

func (s *AuthService) orphanedStudent(in RegisterStudentInput, centerID string) (*domain.Student, bool) {
	existing, err := s.students.GetByExternalID(in.ExternalID)
	if err != nil {
		return nil, false
	}
	if existing.Name != in.Name || existing.CenterID != centerID {
		return nil, false
	}
	ref := domain.ProfileRef{Kind: domain.KindStudent, ID: existing.ID}
	if _, err := s.accounts.GetByProfile(ref); err == nil {
		return nil, false
	}
	return existing, true
}

func (s *AuthService) createAccount(username, email, password string, role domain.Role, ref *domain.ProfileRef) (*domain.Account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account := &domain.Account{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		Profile:      ref,
		Active:       true,
	}
	if err := s.accounts.Create(account); err != nil {
		return nil, err
	}
	return account, nil
}

// Login authenticates a credential handle and issues a session token. All
// failures collapse into ErrUnauthorized so the response never reveals
// whether the handle exists.
func (s *AuthService) Login(username, password string) (*LoginResult, error) {
	if username == "" || password == "" {
		return nil, domain.ErrUnauthorized
	}

	account, err := s.accounts.GetByUsername(username)
	if err != nil {
		s.logger.Info("login attempt with unknown handle", slog.String("username", username))
		return nil, domain.ErrUnauthorized
	}

	// bcrypt re-derives via the stored salt and compares in constant time.
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		s.logger.Info("login failed with wrong password", slog.String("username", username))
		return nil, domain.ErrUnauthorized
	}

	expiresAt := time.Now().Add(s.tokenTTL)
	token, err := s.tokens.GenerateToken(account.ID, string(account.Role), s.tokenTTL)
	if err != nil {
		s.logger.Error("failed to sign token", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	s.logger.Info("account logged in",
		slog.String("account_id", account.ID),
		slog.String("role", string(account.Role)),
	)

	return &LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		AccountID: account.ID,
		Username:  account.Username,
		Role:      account.Role,
	}, nil
}

// Verify validates a session token and resolves the account behind it. It is
// side-effect-free. A token whose account no longer exists (or was
// deactivated) is rejected the same way as a bad signature.
func (s *AuthService) Verify(token string) (*domain.Account, error) {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return nil, domain.ErrUnauthorized
	}

	account, err := s.accounts.GetByID(claims.AccountID)
	if err != nil || !account.Active {
		return nil, domain.ErrUnauthorized
	}
	if string(account.Role) != claims.Role {
		// Role changed since issuance; force a fresh login.
		return nil, domain.ErrUnauthorized
	}

	return account, nil
}

// ChangePassword verifies the old password and stores a new hash.
func (s *AuthService) ChangePassword(accountID, oldPassword, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	account, err := s.accounts.GetByID(accountID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(oldPassword)); err != nil {
		return domain.ErrUnauthorized
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("failed to hash new password", slog.String("error", err.Error()))
		return fmt.Errorf("failed to change password: %w", err)
	}

	account.PasswordHash = string(hash)
	if err := s.accounts.Update(account); err != nil {
		return fmt.Errorf("failed to change password: %w", err)
	}

	s.logger.Info("account changed password", slog.String("account_id", accountID))
	return nil
}

// CompleteRegistration resumes a registration that created a profile but no
// account, or an account that lost its profile link. It binds the account to
// the profile after checking the variant still exists and matches the role.
func (s *AuthService) CompleteRegistration(username string, ref domain.ProfileRef) error {
	account, err := s.accounts.GetByUsername(username)
	if err != nil {
		return err
	}

	wantKind, ok := domain.ProfileKindForRole(account.Role)
	if !ok || wantKind != ref.Kind {
		return &domain.ValidationError{Field: "kind", Message: fmt.Sprintf("profile kind %s does not match role %s", ref.Kind, account.Role)}
	}
	if account.Profile != nil && (account.Profile.Kind != ref.Kind || account.Profile.ID != ref.ID) {
		return &domain.ConflictError{Resource: "account", Detail: "account is already linked to a different profile"}
	}

	// Confirm the profile half actually exists before binding.
	switch ref.Kind {
	case domain.KindInstructor:
		if _, err := s.instructors.GetByID(ref.ID); err != nil {
			return err
		}
	case domain.KindStudent:
		if _, err := s.students.GetByID(ref.ID); err != nil {
			return err
		}
	case domain.KindCenter:
		if _, err := s.centers.GetByID(ref.ID); err != nil {
			return err
		}
	default:
		return &domain.ValidationError{Field: "kind", Message: "unknown profile kind"}
	}

	return s.accounts.SetProfile(account.ID, ref)
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return &domain.ValidationError{Field: "password", Message: "must be at least 8 characters"}
	}
	return nil
}

// IsAuthError reports whether err should surface as a 401.
func IsAuthError(err error) bool {
	return errors.Is(err, domain.ErrUnauthorized)
}
