package service

import (
	"log/slog"

	"github.com/yourorg/centerattend/internal/domain"
	"github.com/yourorg/centerattend/internal/security"
)

// AccountService exposes the admin view over login accounts. Every operation
// requires the account management permission; only admins hold it.
type AccountService struct {
	accounts domain.AccountRepository
	policy   *security.PolicyEngine
	logger   *slog.Logger
}

// NewAccountService creates a new account management service.
func NewAccountService(
	accounts domain.AccountRepository,
	policy *security.PolicyEngine,
	logger *slog.Logger,
) *AccountService {
	if logger == nil {
		logger = slog.Default()
	}

	return &AccountService{
		accounts: accounts,
		policy:   policy,
		logger:   logger,
	}
}

// List returns accounts, optionally filtered by role.
func (s *AccountService) List(caller *domain.Account, role domain.Role) ([]*domain.Account, error) {
	if _, err := s.policy.ComputeScope(caller, security.OpManageAccounts); err != nil {
		return nil, err
	}
	if role != "" && !role.Valid() {
		return nil, &domain.ValidationError{Field: "role", Message: "must be admin, center, instructor or student"}
	}
	return s.accounts.List(role)
}

// Get returns one account by ID.
func (s *AccountService) Get(caller *domain.Account, id string) (*domain.Account, error) {
	if _, err := s.policy.ComputeScope(caller, security.OpManageAccounts); err != nil {
		return nil, err
	}
	return s.accounts.GetByID(id)
}

// Deactivate soft-deletes an account so its tokens stop verifying. Admins
// cannot deactivate themselves; that would strand the system without a
// working admin.
func (s *AccountService) Deactivate(caller *domain.Account, id string) error {
	if _, err := s.policy.ComputeScope(caller, security.OpManageAccounts); err != nil {
		return err
	}
	if caller.ID == id {
		return &domain.ValidationError{Field: "id", Message: "cannot deactivate your own account"}
	}
	if _, err := s.accounts.GetByID(id); err != nil {
		return err
	}
	if err := s.accounts.Deactivate(id); err != nil {
		return err
	}

	s.logger.Info("account deactivated",
		slog.String("account_id", id),
		slog.String("by", caller.ID),
	)
	return nil
}
