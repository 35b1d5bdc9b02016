package domain

import "time"

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	StatusPresent AttendanceStatus = "present"
	StatusAbsent  AttendanceStatus = "absent"
	StatusLate    AttendanceStatus = "late"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusLate:
		return true
	default:
		return false
	}
}

// SubjectRef identifies whose presence a record tracks: a student or an
// instructor. Kind is never KindCenter.
type SubjectRef struct {
	Kind ProfileKind `json:"kind"`
	ID   string      `json:"id"`
}

// AttendanceRecord is one presence record for one subject on one calendar
// day. The (Date, Subject) pair is unique regardless of center; the storage
// layer enforces this with a unique index so concurrent marks resolve to one
// winner and one DuplicateError loser.
type AttendanceRecord struct {
	ID        string    // UUID
	Date      time.Time // Calendar day, normalized to midnight UTC
	Subject   SubjectRef
	CenterID  string
	Status    AttendanceStatus
	MarkedBy  string // Account ID of the recorder
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DateOnly normalizes a timestamp to its calendar day in UTC. All attendance
// dates pass through this before touching the store.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AttendanceFilter narrows attendance queries. A zero filter matches all
// records; the authorization layer fills Subject/CenterID before any query
// reaches the repository.
type AttendanceFilter struct {
	Date     *time.Time
	Subject  *SubjectRef
	CenterID string
}

// AttendanceRepository defines data access for attendance records
type AttendanceRepository interface {
	// Insert creates a record. It returns a DuplicateError when a record for
	// the same (date, subject) already exists; the unique index is the
	// correctness guarantee, not any prior read.
	Insert(record *AttendanceRecord) error
	GetByID(id string) (*AttendanceRecord, error)
	// Exists is a fast-path check only; Insert remains safe without it.
	Exists(date time.Time, subject SubjectRef) (bool, error)
	List(filter AttendanceFilter) ([]*AttendanceRecord, error)
	UpdateStatus(id string, status AttendanceStatus, notes string) (*AttendanceRecord, error)
	Delete(id string) error
	// CountPresentByCenter aggregates present marks per center for one day.
	CountPresentByCenter(date time.Time) (map[string]int, error)
}
