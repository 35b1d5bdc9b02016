package domain

import "time"

// SeminarStatus represents the lifecycle state of a seminar.
type SeminarStatus string

const (
	SeminarScheduled SeminarStatus = "scheduled"
	SeminarCompleted SeminarStatus = "completed"
	SeminarCancelled SeminarStatus = "cancelled"
)

// Valid returns true when the status is a supported value.
func (s SeminarStatus) Valid() bool {
	switch s {
	case SeminarScheduled, SeminarCompleted, SeminarCancelled:
		return true
	default:
		return false
	}
}

// Seminar represents a scheduled teaching session at a center.
type Seminar struct {
	ID           string // UUID
	Title        string
	Description  string
	Date         time.Time
	CenterID     string
	InstructorID string // Optional
	Status       SeminarStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SeminarRepository defines data access for seminars
type SeminarRepository interface {
	Create(seminar *Seminar) error
	GetByID(id string) (*Seminar, error)
	Update(seminar *Seminar) error
	Delete(id string) error
	List(centerID string) ([]*Seminar, error)
}
