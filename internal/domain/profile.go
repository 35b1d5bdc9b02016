package domain

import "time"

// Center represents a physical teaching center
type Center struct {
	ID           string // UUID
	Code         string // Human-facing center code, unique
	Name         string
	Town         string
	City         string
	InchargeCode string // Optional code of the instructor in charge
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Instructor represents an instructor profile. ExternalID follows the
// E-YY-NNN university format and Email is restricted to the institutional
// domain at registration time.
type Instructor struct {
	ID         string // UUID
	ExternalID string // Unique, matches E-\d{2}-\d{3}
	Name       string
	Email      string
	CenterID   string // Optional center assignment
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Gender values accepted for student profiles.
const (
	GenderMale   = "Male"
	GenderFemale = "Female"
)

// Student represents a student profile. CenterID is required.
type Student struct {
	ID         string // UUID
	ExternalID string // Unique human-facing student ID
	Name       string
	AgeOrGrade string
	Gender     string
	CenterID   string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CenterRepository defines data access for centers
type CenterRepository interface {
	Create(center *Center) error
	GetByID(id string) (*Center, error)
	GetByCode(code string) (*Center, error)
	Update(center *Center) error
	Delete(id string) error
	List() ([]*Center, error)
}

// InstructorRepository defines data access for instructor profiles
type InstructorRepository interface {
	Create(instructor *Instructor) error
	GetByID(id string) (*Instructor, error)
	GetByExternalID(externalID string) (*Instructor, error)
	Update(instructor *Instructor) error
	Delete(id string) error
	List(centerID string) ([]*Instructor, error)
}

// StudentRepository defines data access for student profiles
type StudentRepository interface {
	Create(student *Student) error
	GetByID(id string) (*Student, error)
	GetByExternalID(externalID string) (*Student, error)
	Update(student *Student) error
	Delete(id string) error
	List(centerID string) ([]*Student, error)
}
