package security

import (
	"log/slog"

	"github.com/yourorg/centerattend/internal/domain"
)

// Operation identifies what a request is trying to do
type Operation string

const (
	OpReadAttendance    Operation = "read_attendance"
	OpMarkAttendance    Operation = "mark_attendance"
	OpUpdateAttendance  Operation = "update_attendance"
	OpDeleteAttendance  Operation = "delete_attendance"
	OpReadCenters       Operation = "read_centers"
	OpManageCenters     Operation = "manage_centers"
	OpReadInstructors   Operation = "read_instructors"
	OpManageInstructors Operation = "manage_instructors"
	OpReadStudents      Operation = "read_students"
	OpManageStudents    Operation = "manage_students"
	OpReadSeminars      Operation = "read_seminars"
	OpManageSeminars    Operation = "manage_seminars"
	OpManageAccounts    Operation = "manage_accounts"
)

// RolePermissions maps roles to the operations they may perform. Anything
// absent from a role's allowlist is Forbidden.
var RolePermissions = map[domain.Role][]Operation{
	domain.RoleAdmin: {
		OpReadAttendance,
		OpMarkAttendance,
		OpUpdateAttendance,
		OpDeleteAttendance,
		OpReadCenters,
		OpManageCenters,
		OpReadInstructors,
		OpManageInstructors,
		OpReadStudents,
		OpManageStudents,
		OpReadSeminars,
		OpManageSeminars,
		OpManageAccounts,
	},
	domain.RoleCenter: {
		OpReadAttendance,
		OpMarkAttendance,
		OpUpdateAttendance,
		OpReadCenters,
		OpReadInstructors,
		OpReadStudents,
		OpReadSeminars,
	},
	domain.RoleInstructor: {
		OpReadAttendance,
		OpReadCenters,
		OpReadSeminars,
	},
	domain.RoleStudent: {
		OpReadAttendance,
		OpReadCenters,
		OpReadSeminars,
	},
}

// ScopeKind classifies how far a permitted operation may reach.
type ScopeKind int

const (
	// ScopeAll places no restriction on the operation.
	ScopeAll ScopeKind = iota
	// ScopeCenter restricts the operation to one center's records.
	ScopeCenter
	// ScopeSelf restricts the operation to the caller's own records.
	ScopeSelf
)

// Scope is the visibility a request operates under. It is computed from the
// account alone and overwrites any client-supplied filter: a caller cannot
// widen its reach by omitting or forging filters.
type Scope struct {
	Kind     ScopeKind
	CenterID string
	Subject  *domain.SubjectRef
}

// Narrow applies the scope to a client-supplied attendance filter and
// returns the filter that may actually reach the store.
func (s Scope) Narrow(filter domain.AttendanceFilter) domain.AttendanceFilter {
	switch s.Kind {
	case ScopeCenter:
		filter.CenterID = s.CenterID
	case ScopeSelf:
		filter.Subject = s.Subject
		filter.CenterID = ""
	}
	return filter
}

// HasPermission checks if a role has a specific operation on its allowlist
func HasPermission(role domain.Role, op Operation) bool {
	for _, allowed := range RolePermissions[role] {
		if allowed == op {
			return true
		}
	}
	return false
}

// PolicyEngine computes per-request scope from the caller's role. It is a
// pure decision function with no I/O so every (role, operation) pair can be
// tested in isolation.
type PolicyEngine struct {
	logger *slog.Logger
}

// NewPolicyEngine creates a new policy engine
func NewPolicyEngine(logger *slog.Logger) *PolicyEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &PolicyEngine{logger: logger}
}

// ComputeScope returns the scope the account operates under for the given
// operation, or domain.ErrForbidden when the role's allowlist does not cover
// it.
func (p *PolicyEngine) ComputeScope(account *domain.Account, op Operation) (Scope, error) {
	if account == nil {
		return Scope{}, domain.ErrUnauthorized
	}
	if !HasPermission(account.Role, op) {
		p.logger.Warn("operation denied",
			slog.String("role", string(account.Role)),
			slog.String("operation", string(op)),
		)
		return Scope{}, domain.ErrForbidden
	}

	switch account.Role {
	case domain.RoleAdmin:
		return Scope{Kind: ScopeAll}, nil

	case domain.RoleCenter:
		// Directory reads stay unscoped; everything else is pinned to the
		// caller's own center.
		if op == OpReadCenters || op == OpReadSeminars {
			return Scope{Kind: ScopeAll}, nil
		}
		if account.Profile == nil || account.Profile.Kind != domain.KindCenter {
			return Scope{}, domain.ErrForbidden
		}
		return Scope{Kind: ScopeCenter, CenterID: account.Profile.ID}, nil

	case domain.RoleInstructor, domain.RoleStudent:
		if op == OpReadCenters || op == OpReadSeminars {
			return Scope{Kind: ScopeAll}, nil
		}
		if account.Profile == nil {
			return Scope{}, domain.ErrForbidden
		}
		return Scope{
			Kind: ScopeSelf,
			Subject: &domain.SubjectRef{
				Kind: account.Profile.Kind,
				ID:   account.Profile.ID,
			},
		}, nil

	default:
		return Scope{}, domain.ErrForbidden
	}
}
