package domain

import "time"

// Role classifies what an account is allowed to do
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleCenter     Role = "center"
	RoleInstructor Role = "instructor"
	RoleStudent    Role = "student"
)

// Valid returns true when the role is a supported value.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleCenter, RoleInstructor, RoleStudent:
		return true
	default:
		return false
	}
}

// ProfileKind discriminates which profile variant an account links to
type ProfileKind string

const (
	KindCenter     ProfileKind = "center"
	KindInstructor ProfileKind = "instructor"
	KindStudent    ProfileKind = "student"
)

// Valid returns true when the kind is a supported value.
func (k ProfileKind) Valid() bool {
	switch k {
	case KindCenter, KindInstructor, KindStudent:
		return true
	default:
		return false
	}
}

// ProfileKindForRole maps a non-admin role to its profile variant.
func ProfileKindForRole(r Role) (ProfileKind, bool) {
	switch r {
	case RoleCenter:
		return KindCenter, true
	case RoleInstructor:
		return KindInstructor, true
	case RoleStudent:
		return KindStudent, true
	default:
		return "", false
	}
}

// ProfileRef is a discriminated reference from an account to one profile.
// Resolution dispatches on Kind; there is no inheritance anywhere.
type ProfileRef struct {
	Kind ProfileKind `json:"kind"`
	ID   string      `json:"id"`
}

// Account represents a login identity
type Account struct {
	ID           string      // UUID
	Username     string      // Unique credential handle (email for instructors)
	Email        string      // Optional, unique when set
	PasswordHash string      // Bcrypt hashed password (not returned in API)
	Role         Role
	Profile      *ProfileRef // Nil for admin accounts until linked
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AccountRepository defines data access for accounts
type AccountRepository interface {
	Create(account *Account) error
	GetByID(id string) (*Account, error)
	GetByUsername(username string) (*Account, error)
	Update(account *Account) error
	// SetProfile binds an account to a profile reference.
	SetProfile(accountID string, ref ProfileRef) error
	// GetByProfile finds the account bound to a profile reference, if any.
	GetByProfile(ref ProfileRef) (*Account, error)
	// Deactivate soft-deletes an account; accounts are never hard-deleted.
	Deactivate(id string) error
	List(role Role) ([]*Account, error)
}
